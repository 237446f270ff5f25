package eval

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/dispatch"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// callResult is what a call produced. Reference results designate their
// referent; class results are constructed in place and designated by ref
// with inSlot set; everything else is a plain value.
type callResult struct {
	v      value.Value
	ref    value.Designator
	isRef  bool
	inSlot bool
}

func (s *Session) callValue(res callResult) (value.Value, error) {
	switch {
	case res.isRef:
		return s.load(res.ref)
	case res.inSlot:
		return s.snapshot(res.ref)
	}
	return res.v, nil
}

// call evaluates a call expression. A class result is constructed in slot
// when one is given.
func (s *Session) call(e ir.Expr, slot *value.Designator) (callResult, error) {
	switch x := e.(type) {
	case *ir.Call:
		fn := x.Func
		if fn == nil {
			if x.Callee == nil {
				return callResult{}, diag.NewAt(diag.KindNonConstant, x.Loc, "call without a callee")
			}
			v, err := s.rvalue(x.Callee)
			if err != nil {
				return callResult{}, err
			}
			p, ok := v.(value.Pointer)
			switch {
			case ok && p.Null:
				return callResult{}, diag.NewAt(diag.KindNullDereference, x.Loc, "call through a null function pointer")
			case !ok || p.Func == nil:
				return callResult{}, diag.NewAt(diag.KindNonConstant, x.Loc, "called object of type '%s' is not a function", typeOfValue(v))
			}
			fn = p.Func
		}
		return s.invoke(fn, nil, x.Args, slot, x.Loc)
	case *ir.MethodCall:
		return s.methodCall(x, slot)
	}
	return callResult{}, diag.NewAt(diag.KindNonConstant, e.Pos(), "unsupported call %T", e)
}

func (s *Session) methodCall(x *ir.MethodCall, slot *value.Designator) (callResult, error) {
	var recv value.Designator
	if x.Arrow {
		v, err := s.rvalue(x.Recv)
		if err != nil {
			return callResult{}, err
		}
		if recv, err = s.deref(v); err != nil {
			return callResult{}, anchor(err, x.Loc)
		}
	} else {
		var err error
		if recv, err = s.lvalue(x.Recv); err != nil {
			return callResult{}, err
		}
	}
	t, err := s.store.TypeOf(recv)
	if err != nil {
		return callResult{}, anchor(err, x.Loc)
	}
	if t.Kind != ir.KindClass {
		return callResult{}, diag.NewAt(diag.KindNonConstant, x.Loc, "member function call on object of type '%s'", t)
	}

	m := x.Method
	var path dispatch.Path
	switch {
	case m == nil:
		if m, path, err = dispatch.FindMethod(t.Class, x.Name, len(x.Args)); err != nil {
			return callResult{}, anchor(err, x.Loc)
		}
		if m == nil {
			return callResult{}, diag.NewAt(diag.KindNonConstant, x.Loc,
				"no member function named '%s' in '%s' taking %d arguments", x.Name, t.Class.Name, len(x.Args))
		}
	case m.Class != nil && m.Class != t.Class:
		if path, err = dispatch.UniqueBasePath(t.Class, m.Class); err != nil {
			return callResult{}, anchor(err, x.Loc)
		}
	}
	this := recv.Extend(path.Selectors()...)

	var chain []*ir.FuncDecl
	if !x.Qualified && dispatch.IsVirtual(m.Class, m.Name, len(m.Params)) {
		c, err := s.resolver.ResolveVirtual(this, m)
		if err != nil {
			return callResult{}, anchor(err, x.Loc)
		}
		m, this, chain = c.Target, c.This, c.Chain
	} else if _, err := s.store.Resolve(this, objstore.AccessMember); err != nil {
		return callResult{}, anchor(err, x.Loc)
	}

	res, err := s.invoke(m, &this, x.Args, slot, x.Loc)
	if err != nil || len(chain) < 2 {
		return res, err
	}
	return s.adjustCovariant(res, chain, x.Loc)
}

// adjustCovariant converts the result of an overrider with a covariant
// return type back to the return type of the called declaration.
func (s *Session) adjustCovariant(res callResult, chain []*ir.FuncDecl, loc ir.Loc) (callResult, error) {
	if res.isRef {
		d, err := dispatch.AdjustCovariant(res.ref, chain)
		if err != nil {
			return res, anchor(err, loc)
		}
		res.ref = d
		return res, nil
	}
	p, ok := res.v.(value.Pointer)
	if !ok || p.Null || p.Func != nil {
		return res, nil
	}
	d, err := dispatch.AdjustCovariant(p.Target, chain)
	if err != nil {
		return res, anchor(err, loc)
	}
	p.Target = d
	p.Type = chain[len(chain)-1].Result
	res.v = p
	return res, nil
}

func (s *Session) checkCallable(fn *ir.FuncDecl) error {
	var f *diag.Failure
	switch {
	case fn.NonConstant:
		f = diag.New(diag.KindNonConstant, "non-constexpr function '%s' cannot be used in a constant expression", fn.QualifiedName())
	case fn.Body == nil:
		f = diag.New(diag.KindNonConstant, "undefined function '%s' cannot be used in a constant expression", fn.QualifiedName())
	default:
		return nil
	}
	if !fn.Loc.IsZero() {
		f.WithNote(fn.Loc, "declared here")
	}
	return f
}

// invoke calls fn with this bound to the given object, if any. Arguments
// are evaluated in the caller's context.
func (s *Session) invoke(fn *ir.FuncDecl, this *value.Designator, args []ir.Expr, slot *value.Designator, loc ir.Loc) (callResult, error) {
	if err := s.checkCallable(fn); err != nil {
		return callResult{}, anchor(err, loc)
	}
	if err := s.checkDepth(); err != nil {
		return callResult{}, anchor(err, loc)
	}
	fr := &frame{fn: fn, site: loc, scopes: []*scope{newScope()}}
	if this != nil {
		fr.this, fr.hasThis = *this, true
	}
	if err := s.bindParams(fr, fn, args, loc); err != nil {
		return callResult{}, err
	}

	classResult := fn.Result != nil && fn.Result.Kind == ir.KindClass && !fn.RefResult
	if classResult {
		if slot == nil {
			o := s.store.Create(fn.Result, objstore.Temporary, "temporary")
			d := value.RootOf(o.ID)
			s.registerTemp(d)
			slot = &d
		}
		fr.retSlot = slot
	}

	s.pushFrame(fr)
	fl, err := s.execBlock(fn.Body)
	if err == nil && fl != flowReturn && fn.Result != nil && fn.Result.Kind != ir.KindVoid {
		err = diag.NewAt(diag.KindNonConstant, fn.Body.Loc,
			"control reached the end of non-void function '%s'", fn.QualifiedName())
	}
	err = s.popScope(err)
	s.popFrame()
	if err = s.leaveFrame(fr, err); err != nil {
		return callResult{}, err
	}

	switch {
	case fn.RefResult:
		return callResult{ref: fr.retRef, isRef: true}, nil
	case classResult:
		return callResult{ref: *slot, inSlot: true}, nil
	case fr.retVal == nil:
		return callResult{v: value.Void{}}, nil
	}
	return callResult{v: fr.retVal}, nil
}

// bindParams creates fn's parameters in the new frame fr. Argument
// expressions run in the caller's frame; by-value parameters are destroyed
// when fr's outermost scope ends.
func (s *Session) bindParams(fr *frame, fn *ir.FuncDecl, args []ir.Expr, loc ir.Loc) error {
	if len(args) != len(fn.Params) {
		return diag.NewAt(diag.KindNonConstant, loc,
			"function '%s' called with %d arguments, expects %d", fn.QualifiedName(), len(args), len(fn.Params))
	}
	sc := fr.scopes[0]
	for i, p := range fn.Params {
		if p.Ref {
			d, err := s.lvalue(args[i])
			if err != nil {
				return s.runCleanups(sc.cleanups, err)
			}
			sc.bind(p.Name, binding{d: d, ref: true})
			continue
		}
		if err := s.checkArrayType(p.Type); err != nil {
			return s.runCleanups(sc.cleanups, anchor(err, loc))
		}
		o := s.store.Create(p.Type, objstore.Automatic, p.Name)
		d := value.RootOf(o.ID)
		sc.bind(p.Name, binding{d: d})
		sc.cleanups = append(sc.cleanups, d)
		if err := s.initObject(d, p.Type, args[i]); err != nil {
			return s.runCleanups(sc.cleanups, err)
		}
	}
	return nil
}

// leaveFrame records how fr ended and adds the call-stack note to failures.
func (s *Session) leaveFrame(fr *frame, err error) error {
	if err == nil {
		fr.state = frameReturned
		return nil
	}
	fr.state = frameFailed
	if f, ok := diag.As(err); ok {
		f.WithNote(fr.site, "in call to '%s'", fr.name())
		return f
	}
	if _, ok := err.(*thrown); ok {
		s.traceNamed(TraceUnwind, fr.name(), nil, fr.site)
	}
	return err
}
