package objstore

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// CopyMode selects how Snapshot treats scalars without a value.
type CopyMode int

const (
	// Memberwise copies require every scalar to hold a value, as a class's
	// implicit copy constructor reading each member does.
	Memberwise CopyMode = iota

	// Representation copies carry missing values over as value.Uninit, as
	// copying a union's object representation does.
	Representation
)

// Read returns the value of the designated object. Class and array objects
// are read memberwise.
func (s *Store) Read(d value.Designator) (value.Value, error) {
	o, err := s.Resolve(d, AccessRead)
	if err != nil {
		return nil, err
	}
	if o.Root().Opaque {
		return nil, diag.New(diag.KindNonConstant, "read of non-constexpr variable '%s' is not allowed in a constant expression", o.Root().Name)
	}
	if !o.Type.IsScalar() {
		return s.Snapshot(o, Memberwise)
	}
	if o.Value == nil {
		return nil, diag.New(diag.KindUninitializedRead, "read of uninitialized object '%s'", s.Describe(d))
	}
	return o.Value, nil
}

// Write stores a scalar value into the designated object. Writing a
// not-started complete scalar starts its lifetime.
func (s *Store) Write(d value.Designator, v value.Value) error {
	o, err := s.Resolve(d, AccessWrite)
	if err != nil {
		return err
	}
	root := o.Root()
	if root.Opaque {
		return diag.New(diag.KindNonConstant, "modification of non-constexpr variable '%s' is not allowed in a constant expression", root.Name)
	}
	if o.Const {
		return diag.New(diag.KindModifyConst, "modification of object of const-qualified type '%s'", s.Describe(d))
	}
	if !o.Type.IsScalar() {
		return s.Overwrite(o, v)
	}
	if o.State == NotStarted {
		o.State = Alive
	}
	if _, ok := v.(value.Uninit); ok {
		o.Value = nil
		return nil
	}
	o.Value = v
	return nil
}

// Snapshot produces a deep copy of an object's current value. Union members
// are always copied by representation.
func (s *Store) Snapshot(o *Object, mode CopyMode) (value.Value, error) {
	if o.State == Ended {
		return nil, diag.New(diag.KindUseAfterLifetime, "read of object '%s' whose lifetime has ended", s.Describe(s.DesignatorOf(o)))
	}
	switch o.Type.Kind {
	case ir.KindArray:
		elems := make([]value.Value, o.Type.Len)
		for i := range elems {
			v, err := s.snapshotChild(o, value.Selector{Kind: value.SelElem, Index: i}, o.Type.Elem, mode)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return value.Aggregate{Type: o.Type, Elems: elems}, nil
	case ir.KindClass:
		c := o.Type.Class
		if c.Union {
			if o.Active < 0 {
				return value.Union{Type: o.Type, Active: -1}, nil
			}
			sel := value.Selector{Kind: value.SelField, Index: o.Active}
			ft, _ := ChildType(o.Type, sel)
			m, err := s.snapshotChild(o, sel, ft, Representation)
			if err != nil {
				return nil, err
			}
			return value.Union{Type: o.Type, Active: o.Active, Member: m}, nil
		}
		elems := make([]value.Value, 0, c.Slots())
		for i := range c.Bases {
			sel := value.Selector{Kind: value.SelBase, Index: i}
			v, err := s.snapshotChild(o, sel, c.Bases[i].Class.Type(), mode)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		for i := range c.Fields {
			sel := value.Selector{Kind: value.SelField, Index: i}
			ft, _ := ChildType(o.Type, sel)
			v, err := s.snapshotChild(o, sel, ft, mode)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return value.Aggregate{Type: o.Type, Elems: elems}, nil
	}
	if o.Value == nil {
		if mode == Representation {
			return value.Uninit{}, nil
		}
		return nil, diag.New(diag.KindUninitializedRead, "read of uninitialized object '%s'", s.Describe(s.DesignatorOf(o)))
	}
	return o.Value, nil
}

func (s *Store) snapshotChild(o *Object, sel value.Selector, t *ir.Type, mode CopyMode) (value.Value, error) {
	c := o.Child(sel)
	if c == nil || c.State == NotStarted {
		if mode == Representation {
			return uninitOf(t), nil
		}
		if t.IsScalar() {
			return nil, diag.New(diag.KindUninitializedRead, "subobject of type '%s' is not initialized", t)
		}
		return nil, diag.New(diag.KindUninitializedRead, "subobject '%s' is not initialized", s.Describe(s.DesignatorOf(o).Child(sel)))
	}
	return s.Snapshot(c, mode)
}

// uninitOf builds the representation of an object none of whose scalars
// hold a value.
func uninitOf(t *ir.Type) value.Value {
	switch t.Kind {
	case ir.KindArray:
		elems := make([]value.Value, t.Len)
		for i := range elems {
			elems[i] = uninitOf(t.Elem)
		}
		return value.Aggregate{Type: t, Elems: elems}
	case ir.KindClass:
		if t.Class.Union {
			return value.Union{Type: t, Active: -1}
		}
		var elems []value.Value
		for _, b := range t.Class.Bases {
			elems = append(elems, uninitOf(b.Class.Type()))
		}
		for i := range t.Class.Fields {
			ft, _ := ChildType(t, value.Selector{Kind: value.SelField, Index: i})
			elems = append(elems, uninitOf(ft))
		}
		return value.Aggregate{Type: t, Elems: elems}
	}
	return value.Uninit{}
}

// InitFrom builds a not-started object's subobject tree from a value and
// makes every node alive.
func (s *Store) InitFrom(o *Object, v value.Value) error {
	o.State = Alive
	o.Stage = StageOwn
	switch x := v.(type) {
	case value.Aggregate:
		return s.eachSlot(o, len(x.Elems), func(sel value.Selector, i int) error {
			c, err := s.EnsureChild(o, sel)
			if err != nil {
				return err
			}
			return s.InitFrom(c, x.Elems[i])
		})
	case value.Union:
		o.Active = x.Active
		if x.Active < 0 {
			return nil
		}
		c, err := s.EnsureChild(o, value.Selector{Kind: value.SelField, Index: x.Active})
		if err != nil {
			return err
		}
		return s.InitFrom(c, x.Member)
	case value.Uninit:
		if !o.Type.IsScalar() {
			return s.InitFrom(o, uninitOf(o.Type))
		}
		o.Value = nil
		return nil
	}
	o.Value = v
	return nil
}

// Overwrite assigns a value to an alive object, as trivial copy assignment
// does. A union whose active member changes ends the old member.
func (s *Store) Overwrite(o *Object, v value.Value) error {
	switch x := v.(type) {
	case value.Aggregate:
		return s.eachSlot(o, len(x.Elems), func(sel value.Selector, i int) error {
			c := o.Child(sel)
			if c == nil || c.State != Alive {
				nc, err := s.EnsureChild(o, sel)
				if err != nil {
					return err
				}
				return s.InitFrom(nc, x.Elems[i])
			}
			return s.Overwrite(c, x.Elems[i])
		})
	case value.Union:
		if o.Active >= 0 && o.Active != x.Active {
			if old := o.Child(value.Selector{Kind: value.SelField, Index: o.Active}); old != nil {
				s.Kill(old)
			}
		}
		o.Active = x.Active
		if x.Active < 0 {
			return nil
		}
		sel := value.Selector{Kind: value.SelField, Index: x.Active}
		c := o.Child(sel)
		if c == nil || c.State != Alive {
			nc, err := s.EnsureChild(o, sel)
			if err != nil {
				return err
			}
			return s.InitFrom(nc, x.Member)
		}
		return s.Overwrite(c, x.Member)
	case value.Uninit:
		o.Value = nil
		return nil
	}
	o.Value = v
	return nil
}

// eachSlot visits the selectors of o's direct subobjects in layout order.
func (s *Store) eachSlot(o *Object, n int, fn func(sel value.Selector, i int) error) error {
	if o.Type.Kind == ir.KindArray {
		for i := 0; i < n; i++ {
			if err := fn(value.Selector{Kind: value.SelElem, Index: i}, i); err != nil {
				return err
			}
		}
		return nil
	}
	c := o.Type.Class
	for i := 0; i < n; i++ {
		sel := value.Selector{Kind: value.SelBase, Index: i}
		if i >= len(c.Bases) {
			sel = value.Selector{Kind: value.SelField, Index: i - len(c.Bases)}
		}
		if err := fn(sel, i); err != nil {
			return err
		}
	}
	return nil
}

// StartTrivial starts the lifetime of an object and all of its subobjects
// without initializing any scalar, as trivial default initialization does.
func (s *Store) StartTrivial(o *Object) error {
	o.State = Alive
	o.Stage = StageOwn
	switch o.Type.Kind {
	case ir.KindArray:
		for i := int64(0); i < o.Type.Len; i++ {
			c, err := s.EnsureChild(o, value.Selector{Kind: value.SelElem, Index: int(i)})
			if err != nil {
				return err
			}
			if err := s.StartTrivial(c); err != nil {
				return err
			}
		}
	case ir.KindClass:
		if o.Type.Class.Union {
			return nil
		}
		return s.eachSlot(o, o.Type.Class.Slots(), func(sel value.Selector, _ int) error {
			c, err := s.EnsureChild(o, sel)
			if err != nil {
				return err
			}
			return s.StartTrivial(c)
		})
	}
	return nil
}

// Kill ends the lifetime of an object and everything inside it without
// running any destructor.
func (s *Store) Kill(o *Object) {
	o.State = Ended
	for _, c := range o.children {
		if c != nil && c.State != Ended {
			s.Kill(c)
		}
	}
}

// MarkConst makes an object and its subobjects reject writes.
func (s *Store) MarkConst(o *Object) {
	o.Const = true
	for _, c := range o.children {
		if c != nil {
			s.MarkConst(c)
		}
	}
}
