// Package ir defines the typed program tree the evaluator consumes.
//
// The front end (parser, type checker, overload resolution) is an external
// collaborator: it hands over a Program whose expressions have already been
// resolved to declarations, with implicit conversions made explicit as Cast
// nodes. The loader package builds the same tree from CUE program files.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Nodes carry a Loc so every failure can be anchored to source
//   - Declarations are shared by pointer; identity is pointer identity
//   - The tree is immutable once handed to an evaluation session
package ir
