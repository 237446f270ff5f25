package eval

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/dispatch"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// flow is how a statement completed.
type flow int

const (
	flowNormal flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// exec runs one statement, charging a step.
func (s *Session) exec(st ir.Stmt) (flow, error) {
	if err := s.step(); err != nil {
		return flowNormal, anchor(err, st.Pos())
	}
	fl, err := s.execStmt(st)
	if err != nil {
		return fl, anchor(err, st.Pos())
	}
	return fl, nil
}

func (s *Session) execStmt(st ir.Stmt) (flow, error) {
	switch x := st.(type) {
	case *ir.Block:
		return s.execBlock(x)
	case *ir.Decl:
		return flowNormal, s.declare(x.Var)
	case *ir.ExprStmt:
		return flowNormal, s.fullExpr(func() error { return s.discard(x.X) })
	case *ir.If:
		s.pushScope()
		fl, err := s.execIf(x)
		return fl, s.popScope(err)
	case *ir.While:
		return s.execWhile(x)
	case *ir.DoWhile:
		return s.execDoWhile(x)
	case *ir.For:
		s.pushScope()
		fl, err := s.execFor(x, true)
		return fl, s.popScope(err)
	case *ir.RangeFor:
		s.pushScope()
		fl, err := s.execRangeFor(x)
		return fl, s.popScope(err)
	case *ir.Switch:
		s.pushScope()
		fl, err := s.execSwitch(x)
		return fl, s.popScope(err)
	case *ir.Case:
		return flowNormal, nil
	case *ir.Break:
		return flowBreak, nil
	case *ir.Continue:
		return flowContinue, nil
	case *ir.Return:
		return flowReturn, s.execReturn(x)
	case *ir.Try:
		return s.execTry(x)
	}
	return flowNormal, diag.NewAt(diag.KindNonConstant, st.Pos(), "unsupported statement %T", st)
}

func (s *Session) execBlock(b *ir.Block) (flow, error) {
	s.pushScope()
	fl, err := s.execStmts(b.Stmts)
	return fl, s.popScope(err)
}

func (s *Session) execStmts(list []ir.Stmt) (flow, error) {
	for _, st := range list {
		fl, err := s.exec(st)
		if err != nil || fl != flowNormal {
			return fl, err
		}
	}
	return flowNormal, nil
}

// declare creates a local variable in the innermost scope. Reference
// declarations extend the lifetime of a temporary they bind to.
func (s *Session) declare(v *ir.VarDecl) error {
	if v.Ref {
		return s.fullExpr(func() error {
			d, err := s.lvalue(v.Init)
			if err != nil {
				return err
			}
			s.extendTemp(d)
			s.frame().top().bind(v.Name, binding{d: d, ref: true})
			return nil
		})
	}
	d, err := s.declareObject(v.Type, v.Name)
	if err != nil {
		return err
	}
	return s.fullExpr(func() error { return s.initObject(d, v.Type, v.Init) })
}

// declareSkipped declares a variable whose declaration a jump bypassed.
// Its storage exists but its lifetime never started.
func (s *Session) declareSkipped(v *ir.VarDecl) error {
	if v.Ref {
		s.frame().top().bind(v.Name, binding{d: value.Designator{Invalid: true}, ref: true})
		return nil
	}
	_, err := s.declareObject(v.Type, v.Name)
	return err
}

// cond evaluates a condition, declaring the condition variable first when
// there is one.
func (s *Session) cond(v *ir.VarDecl, e ir.Expr) (bool, error) {
	if v != nil {
		if err := s.declare(v); err != nil {
			return false, err
		}
		e = &ir.Name{Loc: v.Loc, Name: v.Name}
	}
	if e == nil {
		return true, nil
	}
	var b bool
	err := s.fullExpr(func() error {
		var err error
		b, err = s.condition(e)
		return err
	})
	return b, err
}

func (s *Session) execIf(x *ir.If) (flow, error) {
	if x.Init != nil {
		if _, err := s.exec(x.Init); err != nil {
			return flowNormal, err
		}
	}
	b, err := s.cond(x.CondVar, x.Cond)
	if err != nil {
		return flowNormal, err
	}
	switch {
	case b:
		return s.exec(x.Then)
	case x.Else != nil:
		return s.exec(x.Else)
	}
	return flowNormal, nil
}

// loopBody runs one iteration's body in its own scope and reports whether
// the loop should go on.
func (s *Session) loopBody(body ir.Stmt) (flow, bool, error) {
	s.pushScope()
	fl, err := s.exec(body)
	if err = s.popScope(err); err != nil {
		return fl, false, err
	}
	switch fl {
	case flowBreak:
		return flowNormal, false, nil
	case flowReturn:
		return flowReturn, false, nil
	}
	return flowNormal, true, nil
}

func (s *Session) execWhile(x *ir.While) (flow, error) {
	for {
		if err := s.step(); err != nil {
			return flowNormal, err
		}
		s.pushScope()
		b, err := s.cond(x.CondVar, x.Cond)
		if err != nil || !b {
			return flowNormal, s.popScope(err)
		}
		fl, err := s.exec(x.Body)
		if err = s.popScope(err); err != nil {
			return fl, err
		}
		switch fl {
		case flowBreak:
			return flowNormal, nil
		case flowReturn:
			return flowReturn, nil
		}
	}
}

func (s *Session) execDoWhile(x *ir.DoWhile) (flow, error) {
	for {
		fl, more, err := s.loopBody(x.Body)
		if err != nil || !more {
			return fl, err
		}
		b, err := s.cond(nil, x.Cond)
		if err != nil || !b {
			return flowNormal, err
		}
	}
}

// execFor runs a for loop in the current scope. init is false when a jump
// into the body already bypassed the init-statement.
func (s *Session) execFor(x *ir.For, init bool) (flow, error) {
	if init && x.Init != nil {
		if _, err := s.exec(x.Init); err != nil {
			return flowNormal, err
		}
	}
	for {
		if err := s.step(); err != nil {
			return flowNormal, err
		}
		s.pushScope()
		b, err := s.cond(x.CondVar, x.Cond)
		if err != nil || !b {
			return flowNormal, s.popScope(err)
		}
		fl, err := s.exec(x.Body)
		if err = s.popScope(err); err != nil {
			return fl, err
		}
		switch fl {
		case flowBreak:
			return flowNormal, nil
		case flowReturn:
			return flowReturn, nil
		}
		if err := s.forIncrement(x); err != nil {
			return flowNormal, err
		}
	}
}

func (s *Session) forIncrement(x *ir.For) error {
	if x.Inc == nil {
		return nil
	}
	return s.fullExpr(func() error { return s.discard(x.Inc) })
}

// execRangeFor iterates over an array glvalue.
func (s *Session) execRangeFor(x *ir.RangeFor) (flow, error) {
	if x.Init != nil {
		if _, err := s.exec(x.Init); err != nil {
			return flowNormal, err
		}
	}
	var rd value.Designator
	err := s.fullExpr(func() error {
		var err error
		rd, err = s.lvalue(x.Range)
		if err == nil {
			s.extendTemp(rd)
		}
		return err
	})
	if err != nil {
		return flowNormal, err
	}
	t, err := s.store.TypeOf(rd)
	if err != nil {
		return flowNormal, err
	}
	if t.Kind != ir.KindArray {
		return flowNormal, diag.NewAt(diag.KindNonConstant, x.Range.Pos(), "cannot iterate over a value of type '%s'", t)
	}
	for i := int64(0); i < t.Len; i++ {
		if err := s.step(); err != nil {
			return flowNormal, err
		}
		s.pushScope()
		ed := rd.Elem(int(i))
		if err := s.bindRangeVar(x.Var, ed, t.Elem); err != nil {
			return flowNormal, s.popScope(err)
		}
		fl, err := s.exec(x.Body)
		if err = s.popScope(err); err != nil {
			return fl, err
		}
		switch fl {
		case flowBreak:
			return flowNormal, nil
		case flowReturn:
			return flowReturn, nil
		}
	}
	return flowNormal, nil
}

func (s *Session) bindRangeVar(v *ir.VarDecl, ed value.Designator, elem *ir.Type) error {
	if v.Ref {
		s.frame().top().bind(v.Name, binding{d: ed, ref: true})
		return nil
	}
	t := v.Type
	if t == nil {
		t = elem
	}
	d, err := s.declareObject(t, v.Name)
	if err != nil {
		return err
	}
	return s.fullExpr(func() error { return s.copyObject(d, t, ed) })
}

// execSwitch jumps to the matching case label, or to default.
func (s *Session) execSwitch(x *ir.Switch) (flow, error) {
	if x.Init != nil {
		if _, err := s.exec(x.Init); err != nil {
			return flowNormal, err
		}
	}
	e := x.Cond
	if x.CondVar != nil {
		if err := s.declare(x.CondVar); err != nil {
			return flowNormal, err
		}
		e = &ir.Name{Loc: x.CondVar.Loc, Name: x.CondVar.Name}
	}
	var n int64
	err := s.fullExpr(func() error {
		var err error
		n, err = s.intValue(e)
		return err
	})
	if err != nil {
		return flowNormal, err
	}
	target := findCase(x.Body, n)
	if target == nil {
		return flowNormal, nil
	}
	fl, err := s.search(x.Body, target)
	if fl == flowBreak {
		fl = flowNormal
	}
	return fl, err
}

// findCase returns the case label of a switch body matching n, or its
// default label. Nested switches are not searched.
func findCase(body ir.Stmt, n int64) *ir.Case {
	var match, def *ir.Case
	var walk func(st ir.Stmt)
	walk = func(st ir.Stmt) {
		if match != nil || st == nil {
			return
		}
		switch x := st.(type) {
		case *ir.Case:
			if x.Default {
				if def == nil {
					def = x
				}
			} else if x.Value == n {
				match = x
			}
		case *ir.Block:
			for _, c := range x.Stmts {
				walk(c)
			}
		case *ir.If:
			walk(x.Then)
			walk(x.Else)
		case *ir.While:
			walk(x.Body)
		case *ir.DoWhile:
			walk(x.Body)
		case *ir.For:
			walk(x.Body)
		case *ir.RangeFor:
			walk(x.Body)
		}
	}
	walk(body)
	if match != nil {
		return match
	}
	return def
}

func containsLabel(st ir.Stmt, target *ir.Case) bool {
	switch x := st.(type) {
	case *ir.Case:
		return x == target
	case *ir.Block:
		for _, c := range x.Stmts {
			if containsLabel(c, target) {
				return true
			}
		}
	case *ir.If:
		return containsLabel(x.Then, target) || x.Else != nil && containsLabel(x.Else, target)
	case *ir.While:
		return containsLabel(x.Body, target)
	case *ir.DoWhile:
		return containsLabel(x.Body, target)
	case *ir.For:
		return containsLabel(x.Body, target)
	case *ir.RangeFor:
		return containsLabel(x.Body, target)
	}
	return false
}

// search executes st starting at the case label target, which st
// contains. Declarations jumped over are created without starting their
// lifetime.
func (s *Session) search(st ir.Stmt, target *ir.Case) (flow, error) {
	if err := s.step(); err != nil {
		return flowNormal, err
	}
	switch x := st.(type) {
	case *ir.Case:
		return flowNormal, nil
	case *ir.Block:
		s.pushScope()
		fl, err := s.searchStmts(x.Stmts, target)
		return fl, s.popScope(err)
	case *ir.If:
		s.pushScope()
		var fl flow
		err := s.skipInit(x.Init, x.CondVar)
		if err == nil {
			if containsLabel(x.Then, target) {
				fl, err = s.search(x.Then, target)
			} else {
				fl, err = s.search(x.Else, target)
			}
		}
		return fl, s.popScope(err)
	case *ir.While:
		s.pushScope()
		err := s.skipInit(nil, x.CondVar)
		fl, err := s.searchBody(x.Body, target, err)
		if err = s.popScope(err); err != nil || fl != flowContinue {
			return fl, err
		}
		return s.execWhile(x)
	case *ir.DoWhile:
		fl, err := s.searchBody(x.Body, target, nil)
		if err != nil || fl != flowContinue {
			return fl, err
		}
		b, err := s.cond(nil, x.Cond)
		if err != nil || !b {
			return flowNormal, err
		}
		return s.execDoWhile(x)
	case *ir.For:
		s.pushScope()
		fl, err := s.searchFor(x, target)
		return fl, s.popScope(err)
	}
	return flowNormal, diag.NewAt(diag.KindNonConstant, st.Pos(), "cannot jump into this statement in a constant expression")
}

// searchBody runs a loop body entered at a label. It returns flowContinue
// when the loop should go on with its next iteration.
func (s *Session) searchBody(body ir.Stmt, target *ir.Case, err error) (flow, error) {
	if err != nil {
		return flowNormal, err
	}
	s.pushScope()
	fl, err := s.search(body, target)
	if err = s.popScope(err); err != nil {
		return fl, err
	}
	switch fl {
	case flowBreak:
		return flowNormal, nil
	case flowReturn:
		return flowReturn, nil
	}
	return flowContinue, nil
}

func (s *Session) searchFor(x *ir.For, target *ir.Case) (flow, error) {
	err := s.skipInit(x.Init, nil)
	fl, err := s.searchBody(x.Body, target, err)
	if err != nil || fl != flowContinue {
		return fl, err
	}
	if err := s.forIncrement(x); err != nil {
		return flowNormal, err
	}
	return s.execFor(x, false)
}

func (s *Session) skipInit(init ir.Stmt, v *ir.VarDecl) error {
	if d, ok := init.(*ir.Decl); ok {
		if err := s.declareSkipped(d.Var); err != nil {
			return err
		}
	}
	if v != nil {
		return s.declareSkipped(v)
	}
	return nil
}

func (s *Session) searchStmts(list []ir.Stmt, target *ir.Case) (flow, error) {
	for i, st := range list {
		if c, ok := st.(*ir.Case); ok && c == target {
			return s.execStmts(list[i+1:])
		}
		if containsLabel(st, target) {
			fl, err := s.search(st, target)
			if err != nil || fl != flowNormal {
				return fl, err
			}
			return s.execStmts(list[i+1:])
		}
		if d, ok := st.(*ir.Decl); ok {
			if err := s.declareSkipped(d.Var); err != nil {
				return flowNormal, err
			}
		}
	}
	return flowNormal, nil
}

// execReturn stores the returned value in the current frame. Class results
// are constructed directly in the caller's slot.
func (s *Session) execReturn(x *ir.Return) error {
	f := s.frame()
	if x.X == nil {
		return nil
	}
	if f.fn == nil {
		return diag.NewAt(diag.KindNonConstant, x.Loc, "return statement outside of a function")
	}
	switch {
	case f.fn.RefResult:
		return s.fullExpr(func() error {
			d, err := s.lvalue(x.X)
			f.retRef = d
			return err
		})
	case f.retSlot != nil:
		return s.fullExpr(func() error { return s.initObject(*f.retSlot, f.fn.Result, x.X) })
	}
	return s.fullExpr(func() error {
		v, err := s.rvalue(x.X)
		if err != nil {
			return err
		}
		f.retVal = s.convert(v, f.fn.Result)
		return nil
	})
}

// execTry runs a try block. Only exceptions raised by throw are caught;
// every other failure passes through untouched.
func (s *Session) execTry(x *ir.Try) (flow, error) {
	fl, err := s.execBlock(x.Body)
	t, ok := err.(*thrown)
	if !ok {
		return fl, err
	}
	for _, h := range x.Handlers {
		if !catches(h, t) {
			continue
		}
		s.pushScope()
		if err := s.bindHandler(h, t); err != nil {
			return flowNormal, s.popScope(err)
		}
		s.caught = append(s.caught, t)
		fl, err := s.execBlock(h.Body)
		s.caught = s.caught[:len(s.caught)-1]
		return fl, s.popScope(err)
	}
	return fl, err
}

// catches reports whether handler h matches the exception: the same type,
// or a public unambiguous base class of it.
func catches(h *ir.Handler, t *thrown) bool {
	switch {
	case h.Type == nil:
		return true
	case ir.SameType(h.Type, t.t):
		return true
	case h.Type.Kind == ir.KindClass && t.t != nil && t.t.Kind == ir.KindClass:
		p, err := dispatch.UniqueBasePath(t.t.Class, h.Type.Class)
		return err == nil && dispatch.PathIsPublic(t.t.Class, p)
	}
	return false
}

func (s *Session) bindHandler(h *ir.Handler, t *thrown) error {
	if h.Var == "" || h.Type == nil {
		return nil
	}
	v := t.v
	if h.Type.Kind == ir.KindClass && t.t.Class != h.Type.Class {
		p, err := dispatch.UniqueBasePath(t.t.Class, h.Type.Class)
		if err != nil {
			return err
		}
		for _, idx := range p {
			agg, ok := v.(value.Aggregate)
			if !ok || idx >= len(agg.Elems) {
				return diag.NewAt(diag.KindNonConstant, h.Loc, "cannot slice exception of type '%s'", t.t)
			}
			v = agg.Elems[idx]
		}
	}
	d, err := s.declareObject(h.Type, h.Var)
	if err != nil {
		return err
	}
	o := s.store.Lookup(d)
	if o == nil {
		return diag.NewAt(diag.KindNonConstant, h.Loc, "exception object '%s' could not be created", h.Var)
	}
	return s.store.InitFrom(o, s.convert(v, h.Type))
}

// throw raises an exception. A throw without an operand rethrows the
// exception currently being handled.
func (s *Session) throw(x *ir.Throw) error {
	if x.X == nil {
		if len(s.caught) == 0 {
			return diag.NewAt(diag.KindNonConstant, x.Loc, "rethrow with no exception being handled")
		}
		t := s.caught[len(s.caught)-1]
		s.traceNamed(TraceThrow, "exception", t.t, x.Loc)
		return t
	}
	v, err := s.rvalue(x.X)
	if err != nil {
		return err
	}
	t := typeOfValue(v)
	s.traceNamed(TraceThrow, "exception", t, x.Loc)
	return &thrown{v: v, t: t, loc: x.Loc}
}
