package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/ir"
)

const pointSrc = `
classes: [{
	name: "Point"
	fields: [{name: "x", type: "int"}, {name: "y", type: "int", init: 0}]
	methods: [{
		name: "sum"
		result: "int"
		body: [{"return": {binary: "+", x: {member: "x", x: "this", arrow: true}, y: {member: "y", x: "this", arrow: true}}}]
	}]
}, {
	name: "Point3"
	bases: [{class: "Point", access: "private"}]
	fields: [{name: "z", type: "long"}]
}]
functions: [{
	name: "origin"
	result: "Point"
	body: [{"return": [0, 0]}]
}, {
	name: "later"
	result: "int"
	body: [{"return": {call: "defined_below"}}]
}, {
	name: "defined_below"
	result: "int"
	body: [{"return": 1}]
}]
globals: [
	{name: "p", type: "Point", init: [1, 2]},
	{name: "grid", type: "int[2][3]"},
	{name: "cmp", type: "std::strong_ordering", init: {binary: "<=>", x: 1, y: 2}},
	{name: "runtime", type: "int", constexpr: false, init: 0},
]
`

// TestLoadBytes tests that declarations are compiled with their types and
// that bodies may call functions declared later.
func TestLoadBytes(t *testing.T) {
	p, err := LoadBytes("point.cue", []byte(pointSrc))
	require.NoError(t, err)

	point := p.Class("Point")
	require.NotNil(t, point)
	require.Len(t, point.Fields, 2)
	assert.Equal(t, ir.Int, point.Fields[0].Type)
	assert.NotNil(t, point.Fields[1].Init)
	require.NotNil(t, point.Method("sum", 0))

	p3 := p.Class("Point3")
	require.Len(t, p3.Bases, 1)
	assert.Equal(t, point, p3.Bases[0].Class)
	assert.Equal(t, ir.Private, p3.Bases[0].Access)

	later := p.Func("later")
	require.NotNil(t, later)
	require.Len(t, later.Body.Stmts, 1)
	ret := later.Body.Stmts[0].(*ir.Return)
	assert.Equal(t, p.Func("defined_below"), ret.X.(*ir.Call).Func)

	origin := p.Func("origin")
	list, ok := origin.Body.Stmts[0].(*ir.Return).X.(*ir.InitList)
	require.True(t, ok, "a bare list returned from a function takes its result type")
	assert.Equal(t, point, list.Type.Class)

	grid := p.Global("grid")
	require.NotNil(t, grid)
	assert.Equal(t, "int[2][3]", grid.Type.String())
	assert.Nil(t, grid.Init)

	assert.Equal(t, ir.KindOrdering, p.Global("cmp").Type.Kind)
	assert.False(t, p.Global("runtime").Constexpr)
	assert.True(t, p.Global("p").Constexpr)

	assert.Equal(t, "point.cue", p.Global("p").Loc.File)
}

// TestLoadBytes_Errors tests that compile errors name the offending field
// and position.
func TestLoadBytes_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "unknown type",
			src:     `globals: [{name: "g", type: "Missing"}]`,
			message: `unknown type "Missing"`,
		},
		{
			name:    "unknown function",
			src:     `globals: [{name: "g", type: "int", init: {call: "nope"}}]`,
			message: `unknown function "nope"`,
		},
		{
			name:    "unknown base",
			src:     `classes: [{name: "A", bases: [{class: "B"}]}]`,
			message: `unknown base class "B"`,
		},
		{
			name:    "duplicate class",
			src:     `classes: [{name: "A"}, {name: "A"}]`,
			message: `class "A" declared twice`,
		},
		{
			name:    "unknown operator",
			src:     `globals: [{name: "g", type: "int", init: {binary: "**", x: 1, y: 2}}]`,
			message: `unknown binary operator "**"`,
		},
		{
			name:    "reference without init",
			src:     `functions: [{name: "f", body: [{var: "r", type: "int", ref: true}]}]`,
			message: `reference "r" must be initialized`,
		},
		{
			name:    "try without catch",
			src:     `functions: [{name: "f", body: [{"try": []}]}]`,
			message: "try needs at least one catch clause",
		},
		{
			name:    "not a direct base",
			src:     `classes: [{name: "A"}, {name: "B", ctors: [{inits: [{base: "A"}], body: []}]}]`,
			message: `"A" is not a direct base of "B"`,
		},
		{
			name:    "bare list without type",
			src:     `functions: [{name: "f", body: [{expr: [1, 2]}]}]`,
			message: "an initializer list needs a type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes("bad.cue", []byte(tt.src))
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, ce.Message, tt.message)
			assert.Contains(t, err.Error(), "bad.cue:1:")
		})
	}
}

// TestLoadBytes_InvalidCUE tests that CUE syntax errors carry a position.
func TestLoadBytes_InvalidCUE(t *testing.T) {
	_, err := LoadBytes("syntax.cue", []byte("globals: [{name: \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax.cue")
}

// TestLoadFile tests loading a program from disk.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.cue")
	require.NoError(t, os.WriteFile(path, []byte(pointSrc), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, p.Globals, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

// TestCompileExpr tests compiling a standalone expression against a loaded
// program.
func TestCompileExpr(t *testing.T) {
	p, err := LoadBytes("point.cue", []byte(pointSrc))
	require.NoError(t, err)

	e, err := CompileExpr(p, `{method: "sum", recv: "p"}`)
	require.NoError(t, err)
	mc, ok := e.(*ir.MethodCall)
	require.True(t, ok)
	assert.Equal(t, "sum", mc.Name)

	_, err = CompileExpr(p, `{call: "missing"}`)
	assert.Error(t, err)
}

// TestParseType tests type spellings.
func TestParseType(t *testing.T) {
	p, err := LoadBytes("point.cue", []byte(pointSrc))
	require.NoError(t, err)
	c := newCompiler()
	c.adopt(p)

	tests := []struct {
		spelling string
		want     string
		ok       bool
	}{
		{"int", "int", true},
		{"unsigned long", "unsigned long", true},
		{"Point*", "Point*", true},
		{"Point**", "Point**", true},
		{"char[4]", "char[4]", true},
		{"int Point::*", "int Point::*", true},
		{"std::partial_ordering", "std::partial_ordering", true},
		{"Nope", "", false},
		{"int[-1]", "", false},
		{"Nope*", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			got, ok := c.parseType(tt.spelling)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}
