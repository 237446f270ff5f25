package ir

import "fmt"

// Loc is a source location. The zero Loc means "unknown".
type Loc struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// IsZero reports whether the location is unknown.
func (l Loc) IsZero() bool {
	return l.Line == 0 && l.File == ""
}

// String formats the location as file:line:col.
func (l Loc) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Pos returns the location. Embedding Loc gives every node a Pos method.
func (l Loc) Pos() Loc {
	return l
}
