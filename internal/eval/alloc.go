package eval

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/heap"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// newExpr evaluates a new-expression. Array bounds are checked before
// anything is allocated; the nothrow form turns a bad bound into a null
// pointer.
func (s *Session) newExpr(x *ir.New) (value.Value, error) {
	if x.Placement != nil {
		return nil, diag.NewAt(diag.KindNonConstant, x.Loc, "placement new is not allowed in a constant expression")
	}
	ptrType := ir.PointerTo(x.Elem)

	if x.Count == nil {
		a, o, err := s.heap.Allocate(x.Elem, 1, heap.Scalar, x.Loc)
		if err != nil {
			return nil, err
		}
		s.trace(TraceAllocate, a.Root, x.Elem, x.Loc)
		if err := s.initObject(a.Root, x.Elem, x.Init); err != nil {
			s.abandonAllocation(a, o)
			return nil, err
		}
		return value.PointerTo(ptrType, a.First()), nil
	}

	n, err := s.intValue(x.Count)
	if err != nil {
		return nil, err
	}
	berr := s.heap.CheckBound(n)
	if berr == nil && x.ListInit && n < int64(len(x.Elems)) {
		berr = diag.New(diag.KindBadBound,
			"cannot allocate array; evaluated array bound %d is too small to hold %d explicitly initialized elements", n, len(x.Elems))
	}
	if berr != nil {
		if x.Nothrow {
			return value.NullPointer(ptrType), nil
		}
		return nil, berr
	}

	a, o, err := s.heap.Allocate(x.Elem, n, heap.Array, x.Loc)
	if err != nil {
		return nil, err
	}
	s.trace(TraceAllocate, a.Root, o.Type, x.Loc)
	if err := s.store.BeginConstruction(o); err != nil {
		return nil, err
	}
	for i := int64(0); i < n; i++ {
		var init ir.Expr
		switch {
		case x.ListInit && i < int64(len(x.Elems)):
			init = x.Elems[i]
		case x.ListInit:
			init = &ir.InitList{Loc: x.Loc, Type: x.Elem}
		default:
			init = x.Init
		}
		if err := s.initObject(a.Root.Elem(int(i)), x.Elem, init); err != nil {
			s.abandonAllocation(a, o)
			return nil, err
		}
	}
	s.store.EndConstruction(o)
	return value.PointerTo(ptrType, a.First()), nil
}

// abandonAllocation undoes an allocation whose initialization failed.
// Elements constructed so far are destroyed in reverse order.
func (s *Session) abandonAllocation(a *heap.Allocation, o *objstore.Object) {
	if o.State == objstore.UnderConstruction {
		s.abandonConstruction(a.Root, o)
	}
	s.heap.Abandon(a)
	s.trace(TraceRelease, a.Root, o.Type, a.Site)
}

// deleteExpr evaluates delete and delete[]. Deleting a null pointer does
// nothing.
func (s *Session) deleteExpr(x *ir.Delete) error {
	v, err := s.rvalue(x.X)
	if err != nil {
		return err
	}
	p, ok := v.(value.Pointer)
	switch {
	case !ok:
		return diag.NewAt(diag.KindNonConstant, x.Loc, "cannot delete expression of type '%s'", typeOfValue(v))
	case p.Null:
		return nil
	case p.Func != nil:
		return diag.NewAt(diag.KindNonConstant, x.Loc, "cannot delete pointer to function '%s'", p.Func.QualifiedName())
	case p.PastEnd:
		return diag.NewAt(diag.KindDanglingTarget, x.Loc, "delete of pointer '%s' past the end of an object", s.pointerName(p))
	}
	form := heap.Scalar
	if x.Array {
		form = heap.Array
	}
	var released *heap.Allocation
	err = s.heap.Release(p.Target, form, func(a *heap.Allocation, root *objstore.Object) error {
		released = a
		return s.destroyAt(a.Root)
	})
	if err != nil {
		return anchor(err, x.Loc)
	}
	s.trace(TraceRelease, released.Root, nil, x.Loc)
	return nil
}
