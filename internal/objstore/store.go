package objstore

import (
	"fmt"
	"strings"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// Access says what an access through a designator intends to do. It only
// changes how failures are worded and whether a not-started complete scalar
// may be implicitly started.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessMember
)

func (a Access) verb() string {
	switch a {
	case AccessWrite:
		return "assignment to"
	case AccessMember:
		return "member call on"
	}
	return "read of"
}

// Store is the arena of objects of one evaluation session.
//
// Thread-safety: a Store belongs to a single session and is not safe for
// concurrent use.
type Store struct {
	objects []*Object // index is ID-1
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Create allocates a complete object in the not-started state.
func (s *Store) Create(t *ir.Type, storage StorageKind, name string) *Object {
	o := &Object{
		ID:      value.ObjectID(len(s.objects) + 1),
		Type:    t,
		Storage: storage,
		Name:    name,
		Active:  -1,
	}
	s.objects = append(s.objects, o)
	return o
}

// Object returns the complete object with the given id, or nil.
func (s *Store) Object(id value.ObjectID) *Object {
	if id <= 0 || int(id) > len(s.objects) {
		return nil
	}
	return s.objects[id-1]
}

// Len returns the number of complete objects created so far.
func (s *Store) Len() int {
	return len(s.objects)
}

// DesignatorOf builds the designator of an object.
func (s *Store) DesignatorOf(o *Object) value.Designator {
	var sels []value.Selector
	for o.parent != nil {
		sels = append(sels, o.sel)
		o = o.parent
	}
	for i, j := 0, len(sels)-1; i < j; i, j = i+1, j-1 {
		sels[i], sels[j] = sels[j], sels[i]
	}
	return value.Designator{Root: o.ID, Path: sels}
}

// TypeOf navigates types along the designator's path without looking at any
// object's lifetime.
func (s *Store) TypeOf(d value.Designator) (*ir.Type, error) {
	root := s.Object(d.Root)
	if root == nil {
		return nil, diag.New(diag.KindNonConstant, "designator %s names no object", d)
	}
	t := root.Type
	for _, sel := range d.Path {
		ct, ok := ChildType(t, sel)
		if !ok {
			return nil, diag.New(diag.KindNonConstant, "designator %s does not match type %s", d, t)
		}
		t = ct
	}
	return t, nil
}

// Lookup follows the designator through existing objects without any
// lifetime checks. It returns nil if some step does not exist.
func (s *Store) Lookup(d value.Designator) *Object {
	o := s.Object(d.Root)
	for _, sel := range d.Path {
		if o == nil {
			return nil
		}
		o = o.Child(sel)
	}
	return o
}

// Valid reports whether the designator's complete object is still in its
// lifetime and the designator was not invalidated.
func (s *Store) Valid(d value.Designator) bool {
	if d.Invalid {
		return false
	}
	root := s.Object(d.Root)
	return root != nil && root.State != Ended
}

// Resolve follows a designator for an access, checking lifetimes and union
// active members along the path.
func (s *Store) Resolve(d value.Designator, access Access) (*Object, error) {
	if d.Invalid {
		return nil, diag.New(diag.KindUseAfterLifetime, "%s object through an invalidated pointer", access.verb())
	}
	o := s.Object(d.Root)
	if o == nil {
		return nil, diag.New(diag.KindNonConstant, "designator %s names no object", d)
	}
	if err := s.checkLifetime(o, d.Prefix(0), access, len(d.Path) == 0); err != nil {
		return nil, err
	}
	for i, sel := range d.Path {
		if o.Opaque {
			return o, nil
		}
		if _, ok := o.slot(sel); !ok {
			if sel.Kind == value.SelElem {
				return nil, diag.New(diag.KindOutOfBounds, "%s dereferenced one-past-the-end pointer", access.verb())
			}
			return nil, diag.New(diag.KindNonConstant, "designator %s does not match type %s", d, o.Type)
		}
		if o.IsUnion() && sel.Kind == value.SelField && o.Active != sel.Index {
			return nil, s.inactiveMember(o, sel.Index, access)
		}
		child := o.Child(sel)
		if child == nil {
			return nil, s.notStarted(d.Prefix(i+1), access)
		}
		o = child
		if err := s.checkLifetime(o, d.Prefix(i+1), access, i+1 == len(d.Path)); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (s *Store) checkLifetime(o *Object, at value.Designator, access Access, final bool) error {
	switch o.State {
	case Ended:
		if o.Root().Storage == Heap {
			return diag.New(diag.KindUseAfterLifetime, "%s heap allocated object that has been deleted", access.verb())
		}
		return diag.New(diag.KindUseAfterLifetime, "%s object '%s' whose lifetime has ended", access.verb(), s.Describe(at))
	case NotStarted:
		// A complete scalar whose declaration was jumped over may be assigned,
		// which starts its lifetime.
		if final && at.IsRoot() && access == AccessWrite && o.Type.IsScalar() {
			return nil
		}
		if at.IsRoot() && o.Storage == Static {
			return diag.New(diag.KindNonConstant, "%s object '%s' before its initialization", access.verb(), s.Describe(at))
		}
		return s.notStarted(at, access)
	}
	return nil
}

func (s *Store) notStarted(d value.Designator, access Access) error {
	if access == AccessRead {
		return diag.New(diag.KindUninitializedRead, "read of object '%s' outside its lifetime", s.Describe(d))
	}
	return diag.New(diag.KindUseAfterLifetime, "%s object '%s' outside its lifetime", access.verb(), s.Describe(d))
}

func (s *Store) inactiveMember(u *Object, idx int, access Access) error {
	return diag.New(diag.KindInactiveUnionMember, "%s member '%s' of union with %s",
		access.verb(), u.Type.Class.Fields[idx].Name, activeDescription(u))
}

func activeDescription(u *Object) string {
	if u.Active < 0 {
		return "no active member"
	}
	return fmt.Sprintf("active member '%s'", u.Type.Class.Fields[u.Active].Name)
}

// EnsureChild returns the subobject for sel, creating it in the not-started
// state when absent or when a previous incarnation has ended.
func (s *Store) EnsureChild(parent *Object, sel value.Selector) (*Object, error) {
	slot, ok := parent.slot(sel)
	if !ok {
		return nil, diag.New(diag.KindOutOfBounds, "subobject %s does not exist in %s", sel, parent.Type)
	}
	if parent.children == nil {
		parent.children = make([]*Object, parent.slotCount())
	}
	if c := parent.children[slot]; c != nil && c.State != Ended {
		return c, nil
	}
	t, _ := ChildType(parent.Type, sel)
	c := &Object{
		ID:      parent.ID,
		Type:    t,
		Storage: parent.Storage,
		Active:  -1,
		Const:   parent.Const,
		parent:  parent,
		sel:     sel,
	}
	parent.children[slot] = c
	return c, nil
}

// Materialize returns the object a designator names for initialization,
// creating the final subobject if needed. Every enclosing object must be in
// its lifetime.
func (s *Store) Materialize(d value.Designator) (*Object, error) {
	parentD, last, ok := d.Parent()
	if !ok {
		o := s.Object(d.Root)
		if o == nil {
			return nil, diag.New(diag.KindNonConstant, "designator %s names no object", d)
		}
		return o, nil
	}
	parent := s.Lookup(parentD)
	if parent == nil || !parent.InLifetime() {
		return nil, s.notStarted(parentD, AccessWrite)
	}
	if parent.IsUnion() && last.Kind == value.SelField {
		parent.Active = last.Index
	}
	return s.EnsureChild(parent, last)
}

// Describe renders a designator with declared names, for diagnostics.
func (s *Store) Describe(d value.Designator) string {
	root := s.Object(d.Root)
	if root == nil {
		return d.String()
	}
	var b strings.Builder
	b.WriteString(root.Name)
	t := root.Type
	for _, sel := range d.Path {
		switch sel.Kind {
		case value.SelElem:
			fmt.Fprintf(&b, "[%d]", sel.Index)
		case value.SelField:
			if t.Kind == ir.KindClass && sel.Index < len(t.Class.Fields) {
				fmt.Fprintf(&b, ".%s", t.Class.Fields[sel.Index].Name)
			}
		case value.SelBase:
			if t.Kind == ir.KindClass && sel.Index < len(t.Class.Bases) {
				fmt.Fprintf(&b, ".(%s)", t.Class.Bases[sel.Index].Class.Name)
			}
		}
		ct, ok := ChildType(t, sel)
		if !ok {
			break
		}
		t = ct
	}
	return b.String()
}
