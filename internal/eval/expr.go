package eval

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/dispatch"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// rvalue evaluates e to a value. Failures are anchored at the innermost
// expression that produced them.
func (s *Session) rvalue(e ir.Expr) (value.Value, error) {
	if err := s.step(); err != nil {
		return nil, anchor(err, e.Pos())
	}
	v, err := s.evalRValue(e)
	if err != nil {
		return nil, anchor(err, e.Pos())
	}
	return v, nil
}

func (s *Session) evalRValue(e ir.Expr) (value.Value, error) {
	switch x := e.(type) {
	case *ir.IntLit:
		t := x.Type
		if t == nil {
			t = ir.Int
		}
		return value.NewInt(x.Value, t), nil
	case *ir.FloatLit:
		t := x.Type
		if t == nil {
			t = ir.Double
		}
		return value.Float{V: x.Value, Type: t}, nil
	case *ir.BoolLit:
		return value.NewBool(x.Value), nil
	case *ir.NullLit:
		t := x.Type
		if t == nil {
			t = ir.NullPtrT
		}
		return value.Zero(t), nil
	case *ir.OrderingLit:
		if !value.ValidOutcome(x.Category, x.Outcome) {
			return nil, diag.New(diag.KindNonConstant, "'%s' is not a value of std::%s", x.Outcome, x.Category)
		}
		return value.Ordering{Category: x.Category, Outcome: x.Outcome}, nil
	case *ir.This:
		f := s.frame()
		if !f.hasThis {
			return nil, diag.New(diag.KindNonConstant, "invalid use of 'this' outside of a non-static member function")
		}
		t, err := s.store.TypeOf(f.this)
		if err != nil {
			return nil, err
		}
		return value.PointerTo(ir.PointerTo(t), f.this), nil
	case *ir.Name, *ir.Member, *ir.Index, *ir.MemberAccess:
		d, err := s.lvalue(e)
		if err != nil {
			return nil, err
		}
		return s.load(d)
	case *ir.Unary:
		return s.unary(x)
	case *ir.Binary:
		return s.binary(x)
	case *ir.Assign:
		d, err := s.assign(x)
		if err != nil {
			return nil, err
		}
		return s.load(d)
	case *ir.Cond:
		b, err := s.condition(x.Cond)
		if err != nil {
			return nil, err
		}
		if b {
			return s.rvalue(x.Then)
		}
		return s.rvalue(x.Else)
	case *ir.Call, *ir.MethodCall:
		res, err := s.call(e, nil)
		if err != nil {
			return nil, err
		}
		return s.callValue(res)
	case *ir.Construct, *ir.InitList:
		d, err := s.materialize(e)
		if err != nil {
			return nil, err
		}
		return s.snapshot(d)
	case *ir.New:
		return s.newExpr(x)
	case *ir.Delete:
		return value.Void{}, s.deleteExpr(x)
	case *ir.Cast:
		return s.cast(x)
	case *ir.TypeID:
		return s.typeID(x)
	case *ir.MemberPtr:
		return s.memberPointer(x)
	case *ir.FuncAddr:
		return value.Pointer{Type: ir.PointerTo(ir.Void), Func: x.Func}, nil
	case *ir.Throw:
		return nil, s.throw(x)
	}
	return nil, diag.New(diag.KindNonConstant, "unsupported expression %T", e)
}

// load performs the lvalue-to-rvalue conversion. Arrays decay to a pointer
// to their first element.
func (s *Session) load(d value.Designator) (value.Value, error) {
	t, err := s.store.TypeOf(d)
	if err != nil {
		return nil, err
	}
	if t.Kind == ir.KindArray {
		return value.PointerTo(ir.PointerTo(t.Elem), d.Elem(0)), nil
	}
	return s.store.Read(d)
}

// snapshot copies a class prvalue's object by representation.
func (s *Session) snapshot(d value.Designator) (value.Value, error) {
	o, err := s.store.Resolve(d, objstore.AccessRead)
	if err != nil {
		return nil, err
	}
	if o.Type.IsScalar() {
		return s.store.Read(d)
	}
	return s.store.Snapshot(o, objstore.Representation)
}

// condition evaluates e and converts it to bool.
func (s *Session) condition(e ir.Expr) (bool, error) {
	v, err := s.rvalue(e)
	if err != nil {
		return false, err
	}
	b, err := value.Truthy(v)
	if err != nil {
		return false, diag.NewAt(diag.KindNonConstant, e.Pos(), "%v", err)
	}
	return b, nil
}

// intValue evaluates e to an integer.
func (s *Session) intValue(e ir.Expr) (int64, error) {
	v, err := s.rvalue(e)
	if err != nil {
		return 0, err
	}
	i, ok := v.(value.Int)
	if !ok {
		return 0, diag.NewAt(diag.KindNonConstant, e.Pos(), "expression of value %s is not an integer", v)
	}
	return i.V, nil
}

// lvalue evaluates e to the designator of the object it refers to.
// Prvalues are materialized into temporaries.
func (s *Session) lvalue(e ir.Expr) (value.Designator, error) {
	if err := s.step(); err != nil {
		return value.Designator{}, anchor(err, e.Pos())
	}
	d, err := s.evalLValue(e)
	if err != nil {
		return d, anchor(err, e.Pos())
	}
	return d, nil
}

func (s *Session) evalLValue(e ir.Expr) (value.Designator, error) {
	switch x := e.(type) {
	case *ir.Name:
		return s.name(x)
	case *ir.Unary:
		switch x.Op {
		case ir.OpDeref:
			v, err := s.rvalue(x.X)
			if err != nil {
				return value.Designator{}, err
			}
			return s.deref(v)
		case ir.OpPreInc, ir.OpPreDec:
			return s.increment(x)
		}
	case *ir.Member:
		d, _, err := s.memberChain(x)
		return d, err
	case *ir.Index:
		d, _, err := s.indexChain(x)
		return d, err
	case *ir.MemberAccess:
		return s.memberAccess(x)
	case *ir.Assign:
		return s.assign(x)
	case *ir.Binary:
		if x.Op == ir.OpComma {
			if err := s.discard(x.X); err != nil {
				return value.Designator{}, err
			}
			return s.lvalue(x.Y)
		}
	case *ir.Cond:
		b, err := s.condition(x.Cond)
		if err != nil {
			return value.Designator{}, err
		}
		if b {
			return s.lvalue(x.Then)
		}
		return s.lvalue(x.Else)
	case *ir.Call, *ir.MethodCall:
		res, err := s.call(e, nil)
		if err != nil {
			return value.Designator{}, err
		}
		switch {
		case res.isRef:
			return res.ref, nil
		case res.inSlot:
			return res.ref, nil
		}
		return s.materializeValue(res.v)
	case *ir.Cast:
		if x.Type.Kind == ir.KindClass {
			return s.classCast(x)
		}
	case *ir.Construct, *ir.InitList:
		return s.materialize(e)
	}
	v, err := s.evalRValue(e)
	if err != nil {
		return value.Designator{}, err
	}
	return s.materializeValue(v)
}

// name resolves a variable: innermost scope first, then globals.
func (s *Session) name(x *ir.Name) (value.Designator, error) {
	if b, ok := s.frame().lookup(x.Name); ok {
		return b.d, nil
	}
	if g := s.program.Global(x.Name); g != nil {
		return s.global(g)
	}
	return value.Designator{}, diag.New(diag.KindNonConstant, "use of undeclared identifier '%s'", x.Name)
}

// deref converts a pointer value to the designator it points to.
func (s *Session) deref(v value.Value) (value.Designator, error) {
	p, ok := v.(value.Pointer)
	if !ok {
		return value.Designator{}, diag.New(diag.KindNonConstant, "indirection requires pointer operand, got %s", v)
	}
	switch {
	case p.Null:
		return value.Designator{}, diag.New(diag.KindNullDereference, "dereferencing a null pointer is not allowed in a constant expression")
	case p.Func != nil:
		return value.Designator{}, diag.New(diag.KindNonConstant, "indirection through function pointer '%s'", p.Func.QualifiedName())
	case p.PastEnd:
		return value.Designator{}, diag.New(diag.KindOutOfBounds,
			"dereferenced one-past-the-end pointer to '%s'", s.store.Describe(p.Target))
	}
	return p.Target, nil
}

// memberChain resolves x.f or p->f. start is the index in the resulting
// path where the syntactic member-access chain begins; assignments only
// switch union members from there on.
func (s *Session) memberChain(x *ir.Member) (value.Designator, int, error) {
	var base value.Designator
	start := 0
	if x.Arrow {
		v, err := s.rvalue(x.X)
		if err != nil {
			return base, 0, err
		}
		base, err = s.deref(v)
		if err != nil {
			return base, 0, err
		}
		start = len(base.Path)
	} else {
		var err error
		base, start, err = s.chain(x.X)
		if err != nil {
			return base, 0, err
		}
	}
	t, err := s.store.TypeOf(base)
	if err != nil {
		return base, 0, err
	}
	if t.Kind != ir.KindClass {
		return base, 0, diag.New(diag.KindNonConstant, "member reference base type '%s' is not a class", t)
	}
	path, idx, err := dispatch.FindField(t.Class, x.Field)
	if err != nil {
		return base, 0, err
	}
	if idx < 0 {
		return base, 0, diag.New(diag.KindNonConstant, "no member named '%s' in '%s'", x.Field, t.Class.Name)
	}
	d := base.Extend(path.Selectors()...).Field(idx)
	owner := dispatch.ClassesAlong(t.Class, path)
	if f := owner[len(owner)-1].Fields[idx]; f.Ref {
		target, err := s.refField(d)
		return target, len(target.Path), err
	}
	return d, start, nil
}

// refField follows a reference member to its referent.
func (s *Session) refField(d value.Designator) (value.Designator, error) {
	v, err := s.store.Read(d)
	if err != nil {
		return d, err
	}
	return s.deref(v)
}

// indexChain resolves a[i] over an array glvalue or a pointer.
func (s *Session) indexChain(x *ir.Index) (value.Designator, int, error) {
	if ir.IsGLValue(x.X) {
		base, start, err := s.chain(x.X)
		if err != nil {
			return base, 0, err
		}
		t, err := s.store.TypeOf(base)
		if err != nil {
			return base, 0, err
		}
		if t.Kind == ir.KindArray {
			i, err := s.intValue(x.Index)
			if err != nil {
				return base, 0, err
			}
			if i < 0 || i >= t.Len {
				return base, 0, diag.New(diag.KindOutOfBounds,
					"cannot refer to element %d of array of %d elements in a constant expression", i, t.Len)
			}
			return base.Elem(int(i)), start, nil
		}
		p, err := s.load(base)
		if err != nil {
			return base, 0, err
		}
		d, err := s.subscript(p, x.Index)
		return d, len(d.Path), err
	}
	p, err := s.rvalue(x.X)
	if err != nil {
		return value.Designator{}, 0, err
	}
	d, err := s.subscript(p, x.Index)
	return d, len(d.Path), err
}

func (s *Session) subscript(p value.Value, index ir.Expr) (value.Designator, error) {
	i, err := s.intValue(index)
	if err != nil {
		return value.Designator{}, err
	}
	ptr, ok := p.(value.Pointer)
	if !ok {
		return value.Designator{}, diag.New(diag.KindNonConstant, "subscripted value %s is not an array or pointer", p)
	}
	moved, err := s.pointerAdd(ptr, i)
	if err != nil {
		return value.Designator{}, err
	}
	return s.deref(moved)
}

// chain evaluates e as the start of a member-access chain.
func (s *Session) chain(e ir.Expr) (value.Designator, int, error) {
	if err := s.step(); err != nil {
		return value.Designator{}, 0, anchor(err, e.Pos())
	}
	var (
		d     value.Designator
		start int
		err   error
	)
	switch x := e.(type) {
	case *ir.Member:
		d, start, err = s.memberChain(x)
	case *ir.Index:
		d, start, err = s.indexChain(x)
	default:
		d, err = s.evalLValue(e)
		start = len(d.Path)
	}
	if err != nil {
		return d, 0, anchor(err, e.Pos())
	}
	return d, start, nil
}

// memberAccess resolves x.*p and x->*p.
func (s *Session) memberAccess(x *ir.MemberAccess) (value.Designator, error) {
	var base value.Designator
	var err error
	if x.Arrow {
		v, err := s.rvalue(x.X)
		if err != nil {
			return base, err
		}
		if base, err = s.deref(v); err != nil {
			return base, err
		}
	} else if base, err = s.lvalue(x.X); err != nil {
		return base, err
	}
	v, err := s.rvalue(x.Ptr)
	if err != nil {
		return base, err
	}
	mp, ok := v.(value.MemberPointer)
	if !ok || mp.Method != nil {
		return base, diag.New(diag.KindNonConstant, "right operand of '.*' is not a pointer to data member")
	}
	if mp.Null {
		return base, diag.New(diag.KindNullDereference, "member pointer is null")
	}
	t, err := s.store.TypeOf(base)
	if err != nil {
		return base, err
	}
	if t.Kind != ir.KindClass {
		return base, diag.New(diag.KindNonConstant, "left operand of '.*' is not a class object")
	}
	if t.Class != mp.Class {
		p, err := dispatch.UniqueBasePath(t.Class, mp.Class)
		if err != nil {
			return base, err
		}
		base = base.Extend(p.Selectors()...)
	}
	idx := mp.Class.FieldIndex(mp.Field)
	if idx < 0 {
		return base, diag.New(diag.KindNonConstant, "no member named '%s' in '%s'", mp.Field, mp.Class.Name)
	}
	d := base.Field(idx)
	if mp.Class.Fields[idx].Ref {
		return s.refField(d)
	}
	return d, nil
}

func (s *Session) memberPointer(x *ir.MemberPtr) (value.Value, error) {
	if idx := x.Class.FieldIndex(x.Member); idx >= 0 {
		return value.MemberPointer{Class: x.Class, Field: x.Member}, nil
	}
	if m := x.Class.Method(x.Member, -1); m != nil {
		return value.MemberPointer{Class: x.Class, Method: m}, nil
	}
	return nil, diag.New(diag.KindNonConstant, "no member named '%s' in '%s'", x.Member, x.Class.Name)
}

// materialize creates a temporary for a class or array prvalue.
func (s *Session) materialize(e ir.Expr) (value.Designator, error) {
	var t *ir.Type
	switch x := e.(type) {
	case *ir.Construct:
		t = x.Type
	case *ir.InitList:
		t = x.Type
	}
	if t == nil {
		return value.Designator{}, diag.New(diag.KindNonConstant, "prvalue of unknown type cannot be materialized")
	}
	o := s.store.Create(t, objstore.Temporary, "temporary")
	d := value.RootOf(o.ID)
	s.registerTemp(d)
	return d, s.initObject(d, t, e)
}

// materializeValue creates a temporary holding an already computed value.
func (s *Session) materializeValue(v value.Value) (value.Designator, error) {
	t := typeOfValue(v)
	if t == nil {
		return value.Designator{}, diag.New(diag.KindNonConstant, "expression of value %s is not an lvalue", v)
	}
	o := s.store.Create(t, objstore.Temporary, "temporary")
	d := value.RootOf(o.ID)
	s.registerTemp(d)
	return d, s.store.InitFrom(o, v)
}

func typeOfValue(v value.Value) *ir.Type {
	switch x := v.(type) {
	case value.Int:
		return x.Type
	case value.Float:
		return x.Type
	case value.Pointer:
		return x.Type
	case value.Aggregate:
		return x.Type
	case value.Union:
		return x.Type
	case value.Ordering:
		return ir.OrderingType(x.Category)
	case value.MemberPointer:
		return ir.MemberPointerTo(x.Class, nil)
	case value.TypeID:
		return ir.TypeInfo
	}
	return nil
}

// discard evaluates e for its side effects only. Discarded glvalues are not
// read.
func (s *Session) discard(e ir.Expr) error {
	switch x := e.(type) {
	case *ir.Call, *ir.MethodCall:
		if err := s.step(); err != nil {
			return anchor(err, e.Pos())
		}
		_, err := s.call(e, nil)
		return anchor(err, e.Pos())
	case *ir.Assign:
		_, err := s.lvalue(x)
		return err
	case *ir.Unary:
		switch x.Op {
		case ir.OpPreInc, ir.OpPreDec:
			_, err := s.lvalue(x)
			return err
		case ir.OpDeref:
			v, err := s.rvalue(x.X)
			if err != nil {
				return err
			}
			_, err = s.deref(v)
			return anchor(err, x.Pos())
		}
	case *ir.Binary:
		if x.Op == ir.OpComma {
			if err := s.discard(x.X); err != nil {
				return err
			}
			return s.discard(x.Y)
		}
	case *ir.Cond:
		b, err := s.condition(x.Cond)
		if err != nil {
			return err
		}
		if b {
			return s.discard(x.Then)
		}
		return s.discard(x.Else)
	case *ir.Construct, *ir.InitList:
		_, err := s.materialize(e)
		return anchor(err, e.Pos())
	case *ir.Cast:
		if x.Kind == ir.CastToVoid {
			return s.discard(x.X)
		}
	}
	if ir.IsGLValue(e) {
		_, err := s.lvalue(e)
		return err
	}
	_, err := s.rvalue(e)
	return err
}
