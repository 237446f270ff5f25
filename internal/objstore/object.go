package objstore

import (
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// StorageKind is where a complete object lives.
type StorageKind int

const (
	Automatic StorageKind = iota
	Static
	Heap
	Temporary
)

func (k StorageKind) String() string {
	switch k {
	case Static:
		return "static"
	case Heap:
		return "heap"
	case Temporary:
		return "temporary"
	}
	return "automatic"
}

// State is the lifecycle state of an object. States only move forward:
// not-started, under-construction, alive, under-destruction, ended.
type State int

const (
	NotStarted State = iota
	UnderConstruction
	Alive
	UnderDestruction
	Ended
)

func (s State) String() string {
	switch s {
	case UnderConstruction:
		return "under-construction"
	case Alive:
		return "alive"
	case UnderDestruction:
		return "under-destruction"
	case Ended:
		return "ended"
	}
	return "not-started"
}

// Stage is the phase of a class object's construction or destruction.
// While base subobjects are being built or torn down the object is in
// StageBases; from the first member initializer until the destructor body
// finishes it is in StageOwn.
type Stage int

const (
	StageBases Stage = iota
	StageOwn
)

// Object is one node of the object tree. Complete objects have no parent.
type Object struct {
	ID      value.ObjectID
	Type    *ir.Type
	Storage StorageKind
	State   State
	Stage   Stage
	Name    string

	// Active is the index of the active member of a union, -1 for none.
	Active int

	// Opaque objects have an address but no known contents or dynamic type.
	Opaque bool

	// Const objects reject writes.
	Const bool

	// Value is the scalar's value; nil means the scalar holds no value.
	Value value.Value

	parent   *Object
	sel      value.Selector
	children []*Object
}

// Parent returns the enclosing object, or nil for complete objects.
func (o *Object) Parent() *Object {
	return o.parent
}

// Selector returns the selector picking o out of its parent.
func (o *Object) Selector() value.Selector {
	return o.sel
}

// Root returns the complete object containing o.
func (o *Object) Root() *Object {
	for o.parent != nil {
		o = o.parent
	}
	return o
}

// Child returns the existing direct subobject for sel, or nil.
func (o *Object) Child(sel value.Selector) *Object {
	slot, ok := o.slot(sel)
	if !ok || slot >= len(o.children) {
		return nil
	}
	return o.children[slot]
}

// IsUnion reports whether o is a union object.
func (o *Object) IsUnion() bool {
	return o.Type.IsUnion()
}

// InLifetime reports whether o can be accessed: constructing, alive or
// being destroyed.
func (o *Object) InLifetime() bool {
	return o.State == UnderConstruction || o.State == Alive || o.State == UnderDestruction
}

// slot maps a selector to an index in children.
func (o *Object) slot(sel value.Selector) (int, bool) {
	t := o.Type
	switch sel.Kind {
	case value.SelElem:
		if t.Kind != ir.KindArray || sel.Index < 0 || int64(sel.Index) >= t.Len {
			return 0, false
		}
		return sel.Index, true
	case value.SelBase:
		if t.Kind != ir.KindClass || sel.Index < 0 || sel.Index >= len(t.Class.Bases) {
			return 0, false
		}
		return sel.Index, true
	case value.SelField:
		if t.Kind != ir.KindClass || sel.Index < 0 || sel.Index >= len(t.Class.Fields) {
			return 0, false
		}
		return len(t.Class.Bases) + sel.Index, true
	}
	return 0, false
}

func (o *Object) slotCount() int {
	switch o.Type.Kind {
	case ir.KindArray:
		return int(o.Type.Len)
	case ir.KindClass:
		return o.Type.Class.Slots()
	}
	return 0
}

// ChildType returns the type of the subobject sel picks out of an object of
// type t. Reference members are stored as pointers to their referent.
func ChildType(t *ir.Type, sel value.Selector) (*ir.Type, bool) {
	switch sel.Kind {
	case value.SelElem:
		if t.Kind != ir.KindArray || sel.Index < 0 {
			return nil, false
		}
		return t.Elem, true
	case value.SelBase:
		if t.Kind != ir.KindClass || sel.Index < 0 || sel.Index >= len(t.Class.Bases) {
			return nil, false
		}
		return t.Class.Bases[sel.Index].Class.Type(), true
	case value.SelField:
		if t.Kind != ir.KindClass || sel.Index < 0 || sel.Index >= len(t.Class.Fields) {
			return nil, false
		}
		f := t.Class.Fields[sel.Index]
		if f.Ref {
			return ir.PointerTo(f.Type), true
		}
		return f.Type, true
	}
	return nil, false
}
