// Package heap tracks dynamic allocations made during an evaluation.
//
// Every allocation is recorded with its form (scalar or array), element
// count, root designator and the source site that made it. Releases are
// checked against the record before any destructor runs, and records still
// live when the evaluation finishes are reported as leaks.
package heap

import (
	"fmt"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/dispatch"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// Form is the form of an allocation or release.
type Form int

const (
	Scalar Form = iota
	Array
)

func (f Form) String() string {
	if f == Array {
		return "array"
	}
	return "scalar"
}

func (f Form) newSpelling() string {
	if f == Array {
		return "new[]"
	}
	return "new"
}

func (f Form) deleteSpelling() string {
	if f == Array {
		return "delete[]"
	}
	return "delete"
}

// Status is the state of an allocation record.
type Status int

const (
	Live Status = iota
	Released
)

// DefaultMaxElements bounds the element count of one array allocation.
const DefaultMaxElements = 1 << 24

// Allocation is one record of the tracker.
type Allocation struct {
	ID     int
	Form   Form
	Elem   *ir.Type
	Count  int64
	Root   value.Designator
	Status Status
	Site   ir.Loc
}

// First returns the designator a new-expression yields: the complete object
// for scalar allocations, the first element for arrays.
func (a *Allocation) First() value.Designator {
	if a.Form == Array {
		return a.Root.Elem(0)
	}
	return a.Root
}

// Tracker records allocations of one evaluation session.
type Tracker struct {
	store       *objstore.Store
	allocs      []*Allocation
	byRoot      map[value.ObjectID]*Allocation
	maxElements int64
}

// NewTracker creates a tracker that creates heap objects in store.
func NewTracker(store *objstore.Store, maxElements int64) *Tracker {
	if maxElements <= 0 {
		maxElements = DefaultMaxElements
	}
	return &Tracker{
		store:       store,
		byRoot:      make(map[value.ObjectID]*Allocation),
		maxElements: maxElements,
	}
}

// CheckBound validates an array bound without allocating.
func (t *Tracker) CheckBound(count int64) error {
	if count < 0 {
		return diag.New(diag.KindBadBound, "cannot allocate array; evaluated array bound %d is negative", count)
	}
	if count > t.maxElements {
		return diag.New(diag.KindBadBound, "cannot allocate array; evaluated array bound %d is too large", count)
	}
	return nil
}

// Allocate creates a not-started heap object and records it. Scalar
// allocations ignore count.
func (t *Tracker) Allocate(elem *ir.Type, count int64, form Form, site ir.Loc) (*Allocation, *objstore.Object, error) {
	typ := elem
	if form == Array {
		if err := t.CheckBound(count); err != nil {
			return nil, nil, err
		}
		typ = ir.ArrayOf(elem, count)
	} else {
		count = 1
	}
	id := len(t.allocs) + 1
	obj := t.store.Create(typ, objstore.Heap, fmt.Sprintf("heap#%d", id))
	a := &Allocation{
		ID:    id,
		Form:  form,
		Elem:  elem,
		Count: count,
		Root:  value.RootOf(obj.ID),
		Site:  site,
	}
	t.allocs = append(t.allocs, a)
	t.byRoot[obj.ID] = a
	return a, obj, nil
}

// Lookup returns the allocation containing the designated object.
func (t *Tracker) Lookup(d value.Designator) (*Allocation, bool) {
	a, ok := t.byRoot[d.Root]
	return a, ok
}

// Release checks and performs delete (form Scalar) or delete[] (form
// Array) of the designated object. Checks run in order: the target must be
// heap-allocated, not yet released, released with the matching form, and be
// exactly the allocation's root (or, for scalar deletes, a base subobject of
// a class with a virtual destructor). destroy runs only after every check
// passes; its failure aborts the release.
func (t *Tracker) Release(d value.Designator, form Form, destroy func(*Allocation, *objstore.Object) error) error {
	a, ok := t.byRoot[d.Root]
	if !ok {
		root := t.store.Object(d.Root)
		name := d.String()
		if root != nil {
			name = t.store.Describe(d)
		}
		return diag.New(diag.KindDanglingTarget, "%s of pointer to '%s' that does not point to a heap-allocated object", form.deleteSpelling(), name)
	}
	root := t.store.Object(a.Root.Root)
	if a.Status == Released || root.State == objstore.Ended {
		return diag.New(diag.KindDoubleRelease, "%s of pointer that has already been deleted", form.deleteSpelling()).
			WithNote(a.Site, "heap allocation performed here")
	}
	if root.State == objstore.UnderDestruction {
		return diag.New(diag.KindDoubleRelease, "%s of object that is already being destroyed", form.deleteSpelling()).
			WithNote(a.Site, "heap allocation performed here")
	}
	if a.Form != form {
		return diag.New(diag.KindFormMismatch, "'%s' used to delete pointer to %s object; use '%s'",
			form.deleteSpelling(), a.formDescription(), a.Form.deleteSpelling()).
			WithNote(a.Site, "allocated with '%s' here", a.Form.newSpelling())
	}
	if err := t.checkTarget(a, d); err != nil {
		return err
	}
	if destroy != nil {
		if err := destroy(a, root); err != nil {
			return err
		}
	}
	a.Status = Released
	t.store.Kill(root)
	return nil
}

// Abandon releases an allocation whose initialization failed. No
// destruction checks run; the storage simply goes away.
func (t *Tracker) Abandon(a *Allocation) {
	a.Status = Released
	if root := t.store.Object(a.Root.Root); root != nil {
		t.store.Kill(root)
	}
}

func (a *Allocation) formDescription() string {
	if a.Form == Array {
		return "array"
	}
	return "non-array"
}

func (t *Tracker) checkTarget(a *Allocation, d value.Designator) error {
	if a.Form == Array {
		if len(d.Path) == 1 && d.Path[0] == (value.Selector{Kind: value.SelElem, Index: 0}) {
			return nil
		}
		return diag.New(diag.KindDanglingTarget, "delete[] of pointer '%s' that does not point to the first element of the allocated array",
			t.store.Describe(d)).WithNote(a.Site, "heap allocation performed here")
	}
	if len(d.Path) == 0 {
		return nil
	}
	for _, sel := range d.Path {
		if sel.Kind != value.SelBase {
			return diag.New(diag.KindDanglingTarget, "delete of pointer to subobject '%s'", t.store.Describe(d)).
				WithNote(a.Site, "heap allocation performed here")
		}
	}
	st, err := t.store.TypeOf(d)
	if err != nil {
		return err
	}
	if st.Kind == ir.KindClass && dispatch.HasVirtualDestructor(st.Class) {
		return nil
	}
	return diag.New(diag.KindDanglingTarget, "delete of pointer to base subobject '%s' whose destructor is not virtual",
		t.store.Describe(d)).WithNote(a.Site, "heap allocation performed here")
}

// Live returns the records not yet released, in allocation order.
func (t *Tracker) Live() []*Allocation {
	var out []*Allocation
	for _, a := range t.allocs {
		if a.Status == Live {
			out = append(out, a)
		}
	}
	return out
}

// All returns every record in allocation order.
func (t *Tracker) All() []*Allocation {
	return t.allocs
}

// LeakFailure builds the memory-leak failure for live records.
func LeakFailure(live []*Allocation) *diag.Failure {
	f := diag.New(diag.KindMemoryLeak, "allocated storage was not deallocated")
	for _, a := range live {
		f.WithNote(a.Site, "heap allocation performed here")
	}
	return f
}
