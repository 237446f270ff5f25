package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/ir"
)

// TestOrdering_Compare0 tests comparing orderings against literal zero.
func TestOrdering_Compare0(t *testing.T) {
	greater := NewOrdering(ir.StrongOrdering, 1)
	equal := NewOrdering(ir.StrongOrdering, 0)
	unordered := UnorderedResult()

	tests := []struct {
		name string
		o    Ordering
		op   ir.BinaryOp
		want bool
	}{
		{"greater <", greater, ir.OpLt, false},
		{"greater >", greater, ir.OpGt, true},
		{"greater >=", greater, ir.OpGe, true},
		{"equal ==", equal, ir.OpEq, true},
		{"equal <=", equal, ir.OpLe, true},
		{"unordered <", unordered, ir.OpLt, false},
		{"unordered ==", unordered, ir.OpEq, false},
		{"unordered >=", unordered, ir.OpGe, false},
		{"unordered !=", unordered, ir.OpNe, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.o.Compare0(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Ordering{Category: ir.StrongEquality, Outcome: ir.Equal}.Compare0(ir.OpLt)
	assert.Error(t, err)
}

// TestOrdering_In tests conversion to weaker categories.
func TestOrdering_In(t *testing.T) {
	eq := NewOrdering(ir.StrongOrdering, 0)
	assert.Equal(t, ir.Equivalent, eq.In(ir.WeakOrdering).Outcome)
	assert.Equal(t, ir.Equivalent, eq.In(ir.PartialOrdering).Outcome)
	assert.Equal(t, ir.Equal, eq.In(ir.StrongEquality).Outcome)

	less := NewOrdering(ir.WeakOrdering, -1)
	assert.Equal(t, ir.NonEquivalent, less.In(ir.WeakEquality).Outcome)

	// Unordered has no spelling in a stronger category.
	u := UnorderedResult()
	assert.Equal(t, u, u.In(ir.StrongOrdering))

	assert.Equal(t, "std::partial_ordering::equivalent", NewOrdering(ir.PartialOrdering, 0).String())
	assert.Equal(t, ir.Less, NewOrdering(ir.StrongOrdering, 1).Reverse().Outcome)
}

// TestDesignator tests path construction and comparison.
func TestDesignator(t *testing.T) {
	root := RootOf(3)
	d := root.Field(1).Base(0).Elem(2)

	assert.Equal(t, "#3.f1.base0[2]", d.String())
	assert.False(t, d.IsRoot())
	assert.True(t, d.HasPrefix(root.Field(1)))
	assert.False(t, root.Field(1).HasPrefix(d))
	assert.True(t, d.Prefix(2).Equal(root.Field(1).Base(0)))
	assert.Equal(t, 1, root.Field(1).Base(0).TrailingBases())

	parent, last, ok := d.Parent()
	require.True(t, ok)
	assert.Equal(t, Selector{Kind: SelElem, Index: 2}, last)
	assert.True(t, parent.Equal(root.Field(1).Base(0)))

	_, _, ok = root.Parent()
	assert.False(t, ok)

	// Child never aliases the receiver's path.
	a := root.Field(0)
	b := a.Field(1)
	c := a.Field(2)
	assert.False(t, b.Equal(c))

	inv := d
	inv.Invalid = true
	assert.True(t, inv.Equal(d))
	assert.Contains(t, inv.String(), "(invalid)")
}

// TestFirstUninit tests finding the first scalar without a value.
func TestFirstUninit(t *testing.T) {
	cls := &ir.ClassDecl{Name: "P", Fields: []*ir.FieldDecl{{Name: "x", Type: ir.Int}, {Name: "d", Type: ir.Double}}}
	full := Aggregate{Type: cls.Type(), Elems: []Value{NewInt(1, ir.Int), Float{V: 2, Type: ir.Double}}}
	partial := Aggregate{Type: cls.Type(), Elems: []Value{NewInt(1, ir.Int), Uninit{}}}

	assert.Nil(t, FirstUninit(full, cls.Type()))
	assert.Equal(t, ir.Double, FirstUninit(partial, cls.Type()))
	assert.True(t, Equal(full, full))
	assert.False(t, Equal(full, partial))
}

// TestPointers tests collecting object pointers from nested values.
func TestPointers(t *testing.T) {
	p := PointerTo(ir.PointerTo(ir.Int), RootOf(1))
	v := Aggregate{Elems: []Value{p, NullPointer(ir.PointerTo(ir.Int)), Aggregate{Elems: []Value{p}}}}
	assert.Len(t, Pointers(v), 2)
}

// TestZero tests value-initialized scalars.
func TestZero(t *testing.T) {
	assert.Equal(t, NewInt(0, ir.Int), Zero(ir.Int))
	assert.True(t, Zero(ir.PointerTo(ir.Int)).(Pointer).Null)
	assert.Equal(t, "nullptr", Zero(ir.NullPtrT).String())
	assert.Equal(t, Uninit{}, Zero(ir.ArrayOf(ir.Int, 2)))
	assert.Equal(t, "false", NewBool(false).String())

	b, err := Truthy(Float{V: 0.5, Type: ir.Double})
	require.NoError(t, err)
	assert.True(t, b)
	_, err = Truthy(Aggregate{})
	assert.Error(t, err)
}
