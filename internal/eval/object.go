package eval

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// initObject initializes the not-started object d of type t from init. A
// nil init default-initializes; an empty InitList value-initializes.
func (s *Session) initObject(d value.Designator, t *ir.Type, init ir.Expr) error {
	switch t.Kind {
	case ir.KindClass:
		return s.initClassObject(d, t, init)
	case ir.KindArray:
		return s.initArray(d, t, init)
	}
	return s.initScalar(d, t, init)
}

func (s *Session) initScalar(d value.Designator, t *ir.Type, init ir.Expr) error {
	var v value.Value
	switch x := init.(type) {
	case nil:
	case *ir.InitList:
		switch len(x.Elems) {
		case 0:
			v = value.Zero(t)
		case 1:
			rv, err := s.rvalue(x.Elems[0])
			if err != nil {
				return err
			}
			v = s.convert(rv, t)
		default:
			return diag.NewAt(diag.KindNonConstant, x.Loc, "excess elements in scalar initializer")
		}
	default:
		rv, err := s.rvalue(init)
		if err != nil {
			return err
		}
		v = s.convert(rv, t)
	}
	o, err := s.store.Materialize(d)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	if _, uninit := v.(value.Uninit); v != nil && !uninit {
		o.Value = v
	}
	s.store.EndConstruction(o)
	return nil
}

func (s *Session) initClassObject(d value.Designator, t *ir.Type, init ir.Expr) error {
	cls := t.Class
	switch x := init.(type) {
	case nil:
		return s.construct(d, cls, nil, nil, cls.Loc)
	case *ir.Construct:
		return s.construct(d, cls, x.Ctor, x.Args, x.Loc)
	case *ir.InitList:
		if len(cls.Ctors) > 0 {
			return s.construct(d, cls, nil, x.Elems, x.Loc)
		}
		return s.aggregateInit(d, cls, x)
	case *ir.Call, *ir.MethodCall:
		res, err := s.call(init, &d)
		if err != nil {
			return anchor(err, init.Pos())
		}
		switch {
		case res.inSlot:
			return nil
		case res.isRef:
			return s.copyConstruct(d, cls, res.ref, init.Pos())
		}
		o, err := s.store.Materialize(d)
		if err != nil {
			return err
		}
		return s.store.InitFrom(o, res.v)
	case *ir.Cond:
		b, err := s.condition(x.Cond)
		if err != nil {
			return err
		}
		if b {
			return s.initClassObject(d, t, x.Then)
		}
		return s.initClassObject(d, t, x.Else)
	case *ir.Binary:
		if x.Op == ir.OpComma {
			if err := s.discard(x.X); err != nil {
				return err
			}
			return s.initClassObject(d, t, x.Y)
		}
	}
	src, err := s.lvalue(init)
	if err != nil {
		return err
	}
	return s.copyConstruct(d, cls, src, init.Pos())
}

// construct runs a constructor. A nil ctor picks a user constructor by
// arity and falls back to the implicit default and copy constructors.
func (s *Session) construct(d value.Designator, cls *ir.ClassDecl, ctor *ir.FuncDecl, args []ir.Expr, loc ir.Loc) error {
	if cls.HasVirtualBase() {
		return diag.NewAt(diag.KindNonConstant, loc,
			"constructing '%s', a class with a virtual base class, is not supported in a constant expression", cls.Name)
	}
	if ctor == nil {
		ctor = cls.Constructor(len(args))
	}
	if ctor != nil {
		return s.callConstructor(d, cls, ctor, args, nil, loc)
	}
	switch len(args) {
	case 0:
		return s.implicitDefault(d, cls, loc)
	case 1:
		src, err := s.lvalue(args[0])
		if err != nil {
			return err
		}
		return s.copyConstruct(d, cls, src, loc)
	}
	return diag.NewAt(diag.KindNonConstant, loc,
		"no matching constructor for initialization of '%s' with %d arguments", cls.Name, len(args))
}

func copyConstructor(cls *ir.ClassDecl) *ir.FuncDecl {
	for _, c := range cls.Ctors {
		if len(c.Params) == 1 && c.Params[0].Ref && c.Params[0].Type.Kind == ir.KindClass && c.Params[0].Type.Class == cls {
			return c
		}
	}
	return nil
}

// copyConstruct initializes d as a copy of the object src designates.
func (s *Session) copyConstruct(d value.Designator, cls *ir.ClassDecl, src value.Designator, loc ir.Loc) error {
	if ctor := copyConstructor(cls); ctor != nil {
		return s.callConstructor(d, cls, ctor, nil, &src, loc)
	}
	return s.implicitCopy(d, cls, src)
}

func (s *Session) callConstructor(d value.Designator, cls *ir.ClassDecl, ctor *ir.FuncDecl, args []ir.Expr, refArg *value.Designator, loc ir.Loc) error {
	if err := s.checkCallable(ctor); err != nil {
		return anchor(err, loc)
	}
	if err := s.checkDepth(); err != nil {
		return anchor(err, loc)
	}
	fr := &frame{fn: ctor, this: d, hasThis: true, site: loc, scopes: []*scope{newScope()}}
	if refArg != nil {
		fr.scopes[0].bind(ctor.Params[0].Name, binding{d: *refArg, ref: true})
	} else if err := s.bindParams(fr, ctor, args, loc); err != nil {
		return err
	}
	s.pushFrame(fr)
	err := s.initClass(d, cls, ctor)
	err = s.popScope(err)
	s.popFrame()
	return s.leaveFrame(fr, err)
}

func (s *Session) implicitDefault(d value.Designator, cls *ir.ClassDecl, loc ir.Loc) error {
	if err := s.checkDepth(); err != nil {
		return anchor(err, loc)
	}
	fr := &frame{this: d, hasThis: true, site: loc, scopes: []*scope{newScope()}}
	s.pushFrame(fr)
	err := s.initClass(d, cls, nil)
	err = s.popScope(err)
	s.popFrame()
	return err
}

// initClass builds a class object in the current frame: bases, then
// fields, then the constructor body. Member initializers of ctor take
// precedence over default member initializers.
func (s *Session) initClass(d value.Designator, cls *ir.ClassDecl, ctor *ir.FuncDecl) error {
	o, err := s.store.Materialize(d)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	fail := func(err error) error {
		s.abandonConstruction(d, o)
		return err
	}
	for i, b := range cls.Bases {
		var init ir.Expr
		if ctor != nil {
			if mi := ctor.InitFor(b.Class, ""); mi != nil {
				init = mi.Init
			}
		}
		bd := d.Base(i)
		if err := s.fullExpr(func() error { return s.initObject(bd, b.Class.Type(), init) }); err != nil {
			return fail(err)
		}
	}
	s.store.EnterOwnStage(o)

	if cls.Union {
		if err := s.initUnionMember(d, cls, ctor); err != nil {
			return fail(err)
		}
	} else {
		for i, f := range cls.Fields {
			init := f.Init
			if ctor != nil {
				if mi := ctor.InitFor(nil, f.Name); mi != nil {
					init = mi.Init
				}
			}
			fd := d.Field(i)
			if err := s.fullExpr(func() error { return s.initField(fd, f, init) }); err != nil {
				return fail(err)
			}
		}
	}

	if ctor != nil {
		if _, err := s.execBlock(ctor.Body); err != nil {
			return fail(err)
		}
	}
	s.store.EndConstruction(o)
	s.trace(TraceConstruct, d, o.Type, s.frame().site)
	return nil
}

// initUnionMember initializes the one member that has an initializer,
// making it active. Unions without one start with no active member.
func (s *Session) initUnionMember(d value.Designator, cls *ir.ClassDecl, ctor *ir.FuncDecl) error {
	idx := -1
	var init ir.Expr
	if ctor != nil {
		for i, f := range cls.Fields {
			if mi := ctor.InitFor(nil, f.Name); mi != nil {
				idx, init = i, mi.Init
				break
			}
		}
	}
	if idx < 0 {
		for i, f := range cls.Fields {
			if f.Init != nil {
				idx, init = i, f.Init
				break
			}
		}
	}
	if idx < 0 {
		return nil
	}
	fd := d.Field(idx)
	return s.fullExpr(func() error { return s.initField(fd, cls.Fields[idx], init) })
}

func (s *Session) initField(d value.Designator, f *ir.FieldDecl, init ir.Expr) error {
	if !f.Ref {
		return s.initObject(d, f.Type, init)
	}
	if init == nil {
		return diag.NewAt(diag.KindNonConstant, f.Loc, "reference member '%s' is not initialized", f.Name)
	}
	target, err := s.lvalue(init)
	if err != nil {
		return err
	}
	o, err := s.store.Materialize(d)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	o.Value = value.PointerTo(ir.PointerTo(f.Type), target)
	s.store.EndConstruction(o)
	return nil
}

// aggregateInit performs list-initialization of a class without
// user-declared constructors. Missing elements use the default member
// initializer or are value-initialized.
func (s *Session) aggregateInit(d value.Designator, cls *ir.ClassDecl, x *ir.InitList) error {
	o, err := s.store.Materialize(d)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	fail := func(err error) error {
		s.abandonConstruction(d, o)
		return err
	}

	if cls.Union {
		s.store.EnterOwnStage(o)
		if len(x.Elems) > 1 {
			return fail(diag.NewAt(diag.KindNonConstant, x.Loc, "excess elements in union initializer"))
		}
		idx := 0
		if x.Field != "" {
			if idx = cls.FieldIndex(x.Field); idx < 0 {
				return fail(diag.NewAt(diag.KindNonConstant, x.Loc, "union '%s' has no member named '%s'", cls.Name, x.Field))
			}
		}
		if len(cls.Fields) > 0 {
			f := cls.Fields[idx]
			var init ir.Expr = &ir.InitList{Loc: x.Loc, Type: f.Type}
			if len(x.Elems) == 1 {
				init = x.Elems[0]
			}
			if err := s.initField(d.Field(idx), f, init); err != nil {
				return fail(err)
			}
		}
		s.store.EndConstruction(o)
		s.trace(TraceConstruct, d, o.Type, x.Loc)
		return nil
	}

	k := 0
	next := func() ir.Expr {
		if k < len(x.Elems) {
			k++
			return x.Elems[k-1]
		}
		return nil
	}
	for i, b := range cls.Bases {
		init := next()
		if init == nil {
			init = &ir.InitList{Loc: x.Loc, Type: b.Class.Type()}
		}
		if err := s.initObject(d.Base(i), b.Class.Type(), init); err != nil {
			return fail(err)
		}
	}
	s.store.EnterOwnStage(o)
	for i, f := range cls.Fields {
		init := next()
		if init == nil {
			init = f.Init
		}
		if init == nil && !f.Ref {
			init = &ir.InitList{Loc: x.Loc, Type: f.Type}
		}
		if err := s.initField(d.Field(i), f, init); err != nil {
			return fail(err)
		}
	}
	if k < len(x.Elems) {
		return fail(diag.NewAt(diag.KindNonConstant, x.Loc, "excess elements in struct initializer"))
	}
	s.store.EndConstruction(o)
	s.trace(TraceConstruct, d, o.Type, x.Loc)
	return nil
}

func (s *Session) initArray(d value.Designator, t *ir.Type, init ir.Expr) error {
	var list *ir.InitList
	switch x := init.(type) {
	case nil:
	case *ir.InitList:
		if int64(len(x.Elems)) > t.Len {
			return diag.NewAt(diag.KindNonConstant, x.Loc, "excess elements in array initializer")
		}
		list = x
	default:
		src, err := s.lvalue(init)
		if err != nil {
			return err
		}
		return s.copyObject(d, t, src)
	}
	o, err := s.store.Materialize(d)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	for i := int64(0); i < t.Len; i++ {
		var e ir.Expr
		if list != nil {
			if i < int64(len(list.Elems)) {
				e = list.Elems[i]
			} else {
				e = &ir.InitList{Loc: list.Loc, Type: t.Elem}
			}
		}
		if err := s.initObject(d.Elem(int(i)), t.Elem, e); err != nil {
			s.abandonConstruction(d, o)
			return err
		}
	}
	s.store.EndConstruction(o)
	return nil
}

// implicitCopy is the implicit copy constructor: memberwise, with unions
// copied by representation.
func (s *Session) implicitCopy(d value.Designator, cls *ir.ClassDecl, src value.Designator) error {
	so, err := s.store.Resolve(src, objstore.AccessRead)
	if err != nil {
		return err
	}
	if so.Root().Opaque {
		return diag.New(diag.KindNonConstant,
			"read of non-constexpr variable '%s' is not allowed in a constant expression", so.Root().Name)
	}
	o, err := s.store.Materialize(d)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	if cls.Union {
		v, err := s.store.Snapshot(so, objstore.Representation)
		if err != nil {
			s.abandonConstruction(d, o)
			return err
		}
		if err := s.store.InitFrom(o, v); err != nil {
			return err
		}
		s.trace(TraceConstruct, d, o.Type, cls.Loc)
		return nil
	}
	fail := func(err error) error {
		s.abandonConstruction(d, o)
		return err
	}
	for i, b := range cls.Bases {
		if err := s.copyObject(d.Base(i), b.Class.Type(), src.Base(i)); err != nil {
			return fail(err)
		}
	}
	s.store.EnterOwnStage(o)
	for i := range cls.Fields {
		ft, _ := objstore.ChildType(cls.Type(), value.Selector{Kind: value.SelField, Index: i})
		if err := s.copyObject(d.Field(i), ft, src.Field(i)); err != nil {
			return fail(err)
		}
	}
	s.store.EndConstruction(o)
	s.trace(TraceConstruct, d, o.Type, cls.Loc)
	return nil
}

// copyObject initializes dst of type t as a copy of src.
func (s *Session) copyObject(dst value.Designator, t *ir.Type, src value.Designator) error {
	switch t.Kind {
	case ir.KindClass:
		return s.copyConstruct(dst, t.Class, src, t.Class.Loc)
	case ir.KindArray:
		o, err := s.store.Materialize(dst)
		if err != nil {
			return err
		}
		if err := s.store.BeginConstruction(o); err != nil {
			return err
		}
		for i := int64(0); i < t.Len; i++ {
			if err := s.copyObject(dst.Elem(int(i)), t.Elem, src.Elem(int(i))); err != nil {
				s.abandonConstruction(dst, o)
				return err
			}
		}
		s.store.EndConstruction(o)
		return nil
	}
	v, err := s.store.Read(src)
	if err != nil {
		return err
	}
	o, err := s.store.Materialize(dst)
	if err != nil {
		return err
	}
	if err := s.store.BeginConstruction(o); err != nil {
		return err
	}
	o.Value = s.convert(v, t)
	s.store.EndConstruction(o)
	return nil
}

// abandonConstruction destroys the already constructed subobjects of a
// partially constructed object in reverse order and ends its lifetime.
// Union members are not destroyed.
func (s *Session) abandonConstruction(d value.Designator, o *objstore.Object) {
	if o.Type.Kind == ir.KindClass && !o.Type.Class.Union || o.Type.Kind == ir.KindArray {
		for i := slotCount(o.Type) - 1; i >= 0; i-- {
			sel := slotSelector(o.Type, i)
			c := o.Child(sel)
			if c == nil {
				continue
			}
			if c.State == objstore.Alive {
				// The original failure is what gets reported.
				_ = s.destroy(d.Child(sel), c)
			}
		}
	}
	if o.Type.Kind == ir.KindClass {
		s.trace(TraceUnwind, d, o.Type, ir.Loc{})
	}
	s.store.Kill(o)
}

func slotCount(t *ir.Type) int {
	switch t.Kind {
	case ir.KindArray:
		return int(t.Len)
	case ir.KindClass:
		return t.Class.Slots()
	}
	return 0
}

func slotSelector(t *ir.Type, i int) value.Selector {
	if t.Kind == ir.KindArray {
		return value.Selector{Kind: value.SelElem, Index: i}
	}
	if i < len(t.Class.Bases) {
		return value.Selector{Kind: value.SelBase, Index: i}
	}
	return value.Selector{Kind: value.SelField, Index: i - len(t.Class.Bases)}
}

// destroyAt destroys the object d designates when its scope or
// full-expression ends. Objects never started or already ended are only
// marked ended.
func (s *Session) destroyAt(d value.Designator) error {
	o := s.store.Lookup(d)
	if o == nil {
		return nil
	}
	switch o.State {
	case objstore.Ended:
		return nil
	case objstore.NotStarted:
		s.store.Kill(o)
		return nil
	}
	return s.destroy(d, o)
}

// destroy runs the destruction of an object: the destructor body, then
// fields in reverse, then bases in reverse. Arrays destroy their elements
// in reverse order.
func (s *Session) destroy(d value.Designator, o *objstore.Object) error {
	switch o.Type.Kind {
	case ir.KindClass:
		return s.destroyClass(d, o)
	case ir.KindArray:
		if err := s.store.BeginDestruction(o); err != nil {
			return err
		}
		for i := o.Type.Len - 1; i >= 0; i-- {
			sel := value.Selector{Kind: value.SelElem, Index: int(i)}
			if c := o.Child(sel); c != nil && c.State == objstore.Alive {
				if err := s.destroy(d.Child(sel), c); err != nil {
					return err
				}
			}
		}
		s.store.EndDestruction(o)
		return nil
	}
	if err := s.store.BeginDestruction(o); err != nil {
		return err
	}
	s.store.EndDestruction(o)
	return nil
}

func (s *Session) destroyClass(d value.Designator, o *objstore.Object) error {
	cls := o.Type.Class
	if err := s.store.BeginDestruction(o); err != nil {
		return err
	}
	s.trace(TraceDestroy, d, o.Type, ir.Loc{})
	if cls.Dtor != nil {
		if err := s.runDestructor(d, cls.Dtor); err != nil {
			return err
		}
	}
	if !cls.Union {
		for i := len(cls.Fields) - 1; i >= 0; i-- {
			if cls.Fields[i].Ref {
				continue
			}
			sel := value.Selector{Kind: value.SelField, Index: i}
			if c := o.Child(sel); c != nil && c.State == objstore.Alive {
				if err := s.destroy(d.Child(sel), c); err != nil {
					return err
				}
			}
		}
		s.store.LeaveOwnStage(o)
		for i := len(cls.Bases) - 1; i >= 0; i-- {
			sel := value.Selector{Kind: value.SelBase, Index: i}
			if c := o.Child(sel); c != nil && c.State == objstore.Alive {
				if err := s.destroy(d.Child(sel), c); err != nil {
					return err
				}
			}
		}
	}
	s.store.EndDestruction(o)
	return nil
}

func (s *Session) runDestructor(d value.Designator, dtor *ir.FuncDecl) error {
	if err := s.checkCallable(dtor); err != nil {
		return err
	}
	if err := s.checkDepth(); err != nil {
		return err
	}
	fr := &frame{fn: dtor, this: d, hasThis: true, site: dtor.Loc, scopes: []*scope{newScope()}}
	s.pushFrame(fr)
	_, err := s.execBlock(dtor.Body)
	err = s.popScope(err)
	s.popFrame()
	return s.leaveFrame(fr, err)
}
