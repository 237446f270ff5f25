// Package loader builds ir.Program trees from CUE program files.
//
// The evaluator expects a resolved, typed tree from a compiler front end.
// Program files stand in for that front end in the CLI and the scenario
// harness: declarations are listed in order under classes, functions and
// globals, and every expression or statement is a struct discriminated by
// one key:
//
//	functions: [{
//		name:   "sum"
//		params: [{name: "n", type: "int"}]
//		result: "int"
//		body: [
//			{var: "s", type: "int", init: 0},
//			{"for": {init: {var: "i", type: "int", init: 1}, cond: {binary: "<=", x: "i", y: "n"}, inc: {unary: "++", x: "i"}},
//			 body: {expr: {assign: "+=", x: "s", y: "i"}}},
//			{return: "s"},
//		]
//	}]
//
// Bare numbers, strings and booleans are shorthand for literals and names.
// Loading is two-pass: class, function and global shells are created first
// so that bodies may refer to declarations in any order.
package loader

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/consteval/internal/ir"
)

// LoadFile reads and compiles a program file.
func LoadFile(path string) (*ir.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return LoadBytes(path, src)
}

// LoadBytes compiles CUE source into a program. filename is used for
// positions only.
func LoadBytes(filename string, src []byte) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// Compile builds a program from a CUE value with top-level classes,
// functions and globals lists.
func Compile(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	c := newCompiler()
	if err := c.declare(v); err != nil {
		return nil, err
	}
	if err := c.define(); err != nil {
		return nil, err
	}
	return ir.NewProgram(c.classList, c.funcList, c.globalList), nil
}

// CompileExpr compiles a standalone expression against a loaded program,
// as used by scenario cases that evaluate an expression directly.
func CompileExpr(p *ir.Program, src string) (ir.Expr, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("<expr>"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	c := newCompiler()
	c.adopt(p)
	return c.expr(v)
}

// compiler holds the declarations seen so far.
type compiler struct {
	classes map[string]*ir.ClassDecl
	funcs   map[string]*ir.FuncDecl
	globals map[string]*ir.GlobalVar

	classList  []*ir.ClassDecl
	funcList   []*ir.FuncDecl
	globalList []*ir.GlobalVar

	// bodies compiled in the second pass
	pending pending

	// result type of the function whose body is being compiled
	result *ir.Type
}

func newCompiler() *compiler {
	return &compiler{
		classes: make(map[string]*ir.ClassDecl),
		funcs:   make(map[string]*ir.FuncDecl),
		globals: make(map[string]*ir.GlobalVar),
	}
}

func (c *compiler) adopt(p *ir.Program) {
	for _, cls := range p.Classes {
		c.classes[cls.Name] = cls
	}
	for _, f := range p.Funcs {
		c.funcs[f.Name] = f
	}
	for _, g := range p.Globals {
		c.globals[g.Name] = g
	}
}

// lookup returns the field key of v, if present.
func lookup(v cue.Value, key string) (cue.Value, bool) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	return f, f.Exists()
}

func has(v cue.Value, key string) bool {
	_, ok := lookup(v, key)
	return ok
}

func str(v cue.Value, key string) (string, error) {
	f, ok := lookup(v, key)
	if !ok {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", errorf(f, key, "must be a string")
	}
	return s, nil
}

func requireStr(v cue.Value, key string) (string, error) {
	f, ok := lookup(v, key)
	if !ok {
		return "", errorf(v, key, "%s is required", key)
	}
	s, err := f.String()
	if err != nil {
		return "", errorf(f, key, "must be a string")
	}
	return s, nil
}

func boolField(v cue.Value, key string, def bool) (bool, error) {
	f, ok := lookup(v, key)
	if !ok {
		return def, nil
	}
	b, err := f.Bool()
	if err != nil {
		return def, errorf(f, key, "must be a boolean")
	}
	return b, nil
}

// each iterates a list-valued field. A missing field is an empty list.
func each(v cue.Value, key string, fn func(cue.Value) error) error {
	f, ok := lookup(v, key)
	if !ok {
		return nil
	}
	return eachOf(f, key, fn)
}

func eachOf(list cue.Value, key string, fn func(cue.Value) error) error {
	iter, err := list.List()
	if err != nil {
		return errorf(list, key, "must be a list")
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}
