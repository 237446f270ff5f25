package objstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

func pointClass() *ir.ClassDecl {
	return &ir.ClassDecl{
		Name: "Point",
		Fields: []*ir.FieldDecl{
			{Name: "x", Type: ir.Int},
			{Name: "y", Type: ir.Int},
		},
	}
}

func unionClass() *ir.ClassDecl {
	return &ir.ClassDecl{
		Name:  "U",
		Union: true,
		Fields: []*ir.FieldDecl{
			{Name: "a", Type: ir.Int},
			{Name: "b", Type: ir.Long},
		},
	}
}

func ints(vs ...int64) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = value.NewInt(v, ir.Int)
	}
	return out
}

// TestStore_InitFromAndRead tests building an object tree from a value and
// reading it back whole and by member.
func TestStore_InitFromAndRead(t *testing.T) {
	s := New()
	pt := pointClass().Type()
	o := s.Create(pt, Automatic, "p")
	require.NoError(t, s.InitFrom(o, value.Aggregate{Type: pt, Elems: ints(1, 2)}))

	d := value.RootOf(o.ID)
	v, err := s.Read(d.Field(1))
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(2, ir.Int), v)

	whole, err := s.Read(d)
	require.NoError(t, err)
	assert.Equal(t, "{1, 2}", whole.String())
	assert.Equal(t, "p.y", s.Describe(d.Field(1)))
}

// TestStore_WriteStartsScalar tests that writing a not-started complete
// scalar starts its lifetime while reading it fails.
func TestStore_WriteStartsScalar(t *testing.T) {
	s := New()
	o := s.Create(ir.Int, Automatic, "n")
	d := value.RootOf(o.ID)

	_, err := s.Read(d)
	require.Error(t, err)
	assert.Equal(t, diag.KindUninitializedRead, diag.KindOf(err))

	require.NoError(t, s.Write(d, value.NewInt(4, ir.Int)))
	assert.Equal(t, Alive, o.State)
	v, err := s.Read(d)
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(4, ir.Int), v)
}

// TestStore_StaticBeforeInitialization tests reading a global before its
// initializer ran.
func TestStore_StaticBeforeInitialization(t *testing.T) {
	s := New()
	o := s.Create(ir.Int, Static, "g")
	_, err := s.Read(value.RootOf(o.ID))
	require.Error(t, err)
	assert.Equal(t, diag.KindNonConstant, diag.KindOf(err))
	assert.Contains(t, err.Error(), "before its initialization")
}

// TestStore_UninitializedMember tests that a memberwise read fails on a
// scalar without a value while a representation copy carries it over.
func TestStore_UninitializedMember(t *testing.T) {
	s := New()
	pt := pointClass().Type()
	o := s.Create(pt, Automatic, "p")
	require.NoError(t, s.StartTrivial(o))
	d := value.RootOf(o.ID)
	require.NoError(t, s.Write(d.Field(0), value.NewInt(1, ir.Int)))

	_, err := s.Read(d)
	require.Error(t, err)
	assert.Equal(t, diag.KindUninitializedRead, diag.KindOf(err))
	assert.Contains(t, err.Error(), "p.y")

	v, err := s.Snapshot(o, Representation)
	require.NoError(t, err)
	agg := v.(value.Aggregate)
	assert.Equal(t, value.Uninit{}, agg.Elems[1])
}

// TestStore_Lifecycle tests the forward-only lifecycle transitions.
func TestStore_Lifecycle(t *testing.T) {
	s := New()
	o := s.Create(pointClass().Type(), Automatic, "p")

	require.NoError(t, s.BeginConstruction(o))
	assert.Equal(t, UnderConstruction, o.State)
	assert.Equal(t, StageBases, o.Stage)
	assert.Error(t, s.BeginConstruction(o))

	s.EnterOwnStage(o)
	s.EndConstruction(o)
	assert.Equal(t, Alive, o.State)

	require.NoError(t, s.BeginDestruction(o))
	err := s.BeginDestruction(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already being destroyed")

	s.EndDestruction(o)
	assert.Equal(t, Ended, o.State)
	_, err = s.Read(value.RootOf(o.ID))
	require.Error(t, err)
	assert.Equal(t, diag.KindUseAfterLifetime, diag.KindOf(err))
	assert.Contains(t, err.Error(), "whose lifetime has ended")
}

// TestStore_HeapUseAfterDelete tests the wording for deleted heap objects.
func TestStore_HeapUseAfterDelete(t *testing.T) {
	s := New()
	o := s.Create(ir.Int, Heap, "heap#1")
	require.NoError(t, s.InitFrom(o, value.NewInt(1, ir.Int)))
	s.Kill(o)

	_, err := s.Read(value.RootOf(o.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heap allocated object that has been deleted")
}

// TestStore_UnionActiveMember tests active member tracking and switching.
func TestStore_UnionActiveMember(t *testing.T) {
	s := New()
	ut := unionClass().Type()
	o := s.Create(ut, Automatic, "u")
	require.NoError(t, s.StartTrivial(o))
	d := value.RootOf(o.ID)

	_, err := s.Read(d.Field(0))
	require.Error(t, err)
	assert.Equal(t, diag.KindInactiveUnionMember, diag.KindOf(err))
	assert.Contains(t, err.Error(), "no active member")

	c, err := s.Materialize(d.Field(0))
	require.NoError(t, err)
	require.NoError(t, s.InitFrom(c, value.NewInt(3, ir.Int)))
	assert.Equal(t, 0, o.Active)

	_, err = s.Read(d.Field(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read of member 'b' of union with active member 'a'")

	var destroyed []string
	nc, err := s.SwitchActiveMember(d, 1, func(d value.Designator, o *Object) error {
		destroyed = append(destroyed, s.Describe(d))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u.a"}, destroyed)
	assert.Equal(t, 1, o.Active)
	assert.Equal(t, Ended, c.State)
	assert.Equal(t, ir.Long, nc.Type)

	v, err := s.Read(d)
	require.NoError(t, err)
	u := v.(value.Union)
	assert.Equal(t, 1, u.Active)
	assert.Equal(t, value.Uninit{}, u.Member)
}

// TestStore_Const tests that const objects reject writes.
func TestStore_Const(t *testing.T) {
	s := New()
	pt := pointClass().Type()
	o := s.Create(pt, Static, "k")
	require.NoError(t, s.InitFrom(o, value.Aggregate{Type: pt, Elems: ints(1, 2)}))
	s.MarkConst(o)

	err := s.Write(value.RootOf(o.ID).Field(0), value.NewInt(9, ir.Int))
	require.Error(t, err)
	assert.Equal(t, diag.KindModifyConst, diag.KindOf(err))
}

// TestStore_OpaqueRead tests that non-constexpr objects cannot be read.
func TestStore_OpaqueRead(t *testing.T) {
	s := New()
	o := s.Create(ir.Int, Static, "rt")
	o.Opaque = true
	o.State = Alive

	_, err := s.Read(value.RootOf(o.ID))
	require.Error(t, err)
	assert.Equal(t, diag.KindNonConstant, diag.KindOf(err))
	assert.Contains(t, err.Error(), "non-constexpr variable 'rt'")
}

// TestStore_Describe tests diagnostic names through bases and elements.
func TestStore_Describe(t *testing.T) {
	base := pointClass()
	derived := &ir.ClassDecl{
		Name:   "Derived",
		Bases:  []ir.BaseSpec{{Class: base}},
		Fields: []*ir.FieldDecl{{Name: "arr", Type: ir.ArrayOf(ir.Int, 4)}},
	}
	s := New()
	o := s.Create(derived.Type(), Automatic, "d")
	d := value.RootOf(o.ID)

	assert.Equal(t, "d.(Point).x", s.Describe(d.Base(0).Field(0)))
	assert.Equal(t, "d.arr[2]", s.Describe(d.Field(0).Elem(2)))

	ty, err := s.TypeOf(d.Field(0).Elem(2))
	require.NoError(t, err)
	assert.Equal(t, ir.Int, ty)
	_, err = s.TypeOf(d.Field(3))
	assert.Error(t, err)
}

// TestChildType tests that reference members are stored as pointers.
func TestChildType(t *testing.T) {
	c := &ir.ClassDecl{Name: "R", Fields: []*ir.FieldDecl{{Name: "r", Type: ir.Int, Ref: true}}}
	ct, ok := ChildType(c.Type(), value.Selector{Kind: value.SelField, Index: 0})
	require.True(t, ok)
	assert.Equal(t, ir.KindPointer, ct.Kind)
	assert.Equal(t, ir.Int, ct.Elem)

	_, ok = ChildType(ir.Int, value.Selector{Kind: value.SelElem})
	assert.False(t, ok)
}
