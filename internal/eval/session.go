// Package eval is the compile-time evaluator.
//
// A Session owns everything one translation unit's constant evaluations
// need: the object store, the heap tracker, the dispatch resolver, the step
// quota and the frame stack. Statically evaluated globals are initialized
// lazily on first use and cached for the session. Every entry point returns
// a Result holding either a deep copy of the value or the failure that ended
// the evaluation.
//
// Sessions are single-threaded. Create one session per program; there is no
// global mutable state, so independent sessions can run concurrently.
package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/dispatch"
	"github.com/roach88/consteval/internal/heap"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// Session evaluates constant expressions over one program.
type Session struct {
	// ID identifies the session in logs and records.
	ID string

	program  *ir.Program
	store    *objstore.Store
	heap     *heap.Tracker
	resolver *dispatch.Resolver
	quota    *StepQuota
	clock    Sequencer

	maxSteps    int
	maxDepth    int
	maxElements int64
	leakPolicy  LeakPolicy
	log         *slog.Logger
	tracer      func(TraceEvent)
	idGen       IDGenerator

	frames      []*frame
	temps       *[]value.Designator
	globals     map[*ir.GlobalVar]*globalSlot
	transferred map[int]bool
	caught      []*thrown
}

type globalSlot struct {
	d   value.Designator
	err error
}

// NewSession creates a session over program p.
func NewSession(p *ir.Program, opts ...Option) *Session {
	s := &Session{
		program:     p,
		store:       objstore.New(),
		clock:       NewClock(),
		maxSteps:    DefaultMaxSteps,
		maxDepth:    DefaultMaxDepth,
		maxElements: DefaultMaxArrayElements,
		leakPolicy:  LeakStrict,
		idGen:       UUIDv7Generator{},
		globals:     make(map[*ir.GlobalVar]*globalSlot),
		transferred: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = discardLogger()
	}
	s.heap = heap.NewTracker(s.store, s.maxElements)
	s.resolver = dispatch.NewResolver(s.store)
	s.quota = NewStepQuota(s.maxSteps)
	s.ID = s.idGen.Generate()
	return s
}

// Program returns the program the session evaluates.
func (s *Session) Program() *ir.Program {
	return s.program
}

// Result is the outcome of one evaluation.
type Result struct {
	SessionID string
	Context   Context
	Value     value.Value
	Failure   *diag.Failure
	Steps     int
}

// Constant reports whether the evaluation produced a value.
func (r *Result) Constant() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil.
func (r *Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// EvaluateGlobal evaluates (or returns the cached value of) the named
// statically evaluated global.
func (s *Session) EvaluateGlobal(name string) *Result {
	base := s.begin(ContextInitializer)
	g := s.program.Global(name)
	if g == nil {
		return s.finish(ContextInitializer, nil, diag.New(diag.KindNonConstant, "no global named '%s'", name))
	}
	d, err := s.global(g)
	var v value.Value
	if err == nil {
		v, err = s.resultValue(d)
	}
	if err == nil {
		err = s.checkResult(v, base)
	}
	return s.finish(ContextInitializer, v, err)
}

// EvaluateExpr evaluates e as a full-expression in the given context.
func (s *Session) EvaluateExpr(e ir.Expr, ctx Context) *Result {
	base := s.begin(ctx)
	var v value.Value
	err := s.fullExpr(func() error {
		var err error
		v, err = s.rvalue(e)
		return err
	})
	err = s.popScope(err)
	if err == nil {
		v, err = s.checkComplete(v)
	}
	if err == nil && ctx == ContextAssertion {
		var b bool
		b, err = value.Truthy(v)
		if err != nil {
			err = diag.NewAt(diag.KindNonConstant, e.Pos(), "%v", err)
		}
		v = value.NewBool(b)
	}
	if err == nil {
		err = s.checkResult(v, base)
	}
	return s.finish(ctx, v, err)
}

// EvaluateCall calls fn with scalar arguments and evaluates the call as a
// full-expression.
func (s *Session) EvaluateCall(fn *ir.FuncDecl, args []value.Value, ctx Context) *Result {
	exprs := make([]ir.Expr, len(args))
	for i, a := range args {
		e, err := literalOf(a, fn.Loc)
		if err != nil {
			s.begin(ctx)
			return s.finish(ctx, nil, diag.NewAt(diag.KindNonConstant, fn.Loc, "argument %d: %v", i+1, err))
		}
		exprs[i] = e
	}
	return s.EvaluateExpr(&ir.Call{Loc: fn.Loc, Func: fn, Args: exprs}, ctx)
}

func literalOf(v value.Value, loc ir.Loc) (ir.Expr, error) {
	switch x := v.(type) {
	case value.Int:
		if x.Type != nil && x.Type.Kind == ir.KindBool {
			return &ir.BoolLit{Loc: loc, Value: x.V != 0}, nil
		}
		return &ir.IntLit{Loc: loc, Value: x.V, Type: x.Type}, nil
	case value.Float:
		return &ir.FloatLit{Loc: loc, Value: x.V, Type: x.Type}, nil
	case value.Pointer:
		if x.Null {
			return &ir.NullLit{Loc: loc, Type: x.Type}, nil
		}
	}
	return nil, fmt.Errorf("value %s cannot be passed as an argument", v)
}

// begin resets per-evaluation state and returns the heap watermark.
func (s *Session) begin(ctx Context) int {
	s.quota = NewStepQuota(s.maxSteps)
	s.frames = []*frame{{scopes: []*scope{newScope()}}}
	s.temps = nil
	s.caught = nil
	s.log.Debug("evaluation started", "session_id", s.ID, "context", string(ctx))
	return len(s.heap.All())
}

func (s *Session) finish(ctx Context, v value.Value, err error) *Result {
	r := &Result{SessionID: s.ID, Context: ctx, Steps: s.quota.Current()}
	if err != nil {
		r.Failure = toFailure(err)
		level := slog.LevelDebug
		if ctx != ContextProbe && r.Failure.Kind == diag.KindLimitExceeded {
			level = slog.LevelWarn
		}
		s.log.Log(context.Background(), level, "evaluation failed",
			"session_id", s.ID, "kind", string(r.Failure.Kind), "steps", r.Steps)
		return r
	}
	r.Value = v
	s.log.Debug("evaluation finished", "session_id", s.ID, "steps", r.Steps)
	return r
}

// toFailure converts any evaluation error into a failure.
func toFailure(err error) *diag.Failure {
	if f, ok := diag.As(err); ok {
		return f
	}
	if t, ok := err.(*thrown); ok {
		f := diag.NewAt(diag.KindUserRaised, t.loc, "exception of type '%s' is not caught in a constant expression", t.t)
		f.Payload = t.v
		return f
	}
	return diag.New(diag.KindNonConstant, "%v", err)
}

// step charges one evaluation step.
func (s *Session) step() error {
	return s.quota.Check()
}

// anchor attaches loc to failures that have no location yet.
func anchor(err error, loc ir.Loc) error {
	if f, ok := diag.As(err); ok {
		f.At(loc)
	}
	return err
}

// global returns the designator of a namespace-scope variable, evaluating
// its initializer on first use.
func (s *Session) global(g *ir.GlobalVar) (value.Designator, error) {
	if gs, ok := s.globals[g]; ok {
		return gs.d, gs.err
	}
	gs := &globalSlot{}
	s.globals[g] = gs
	if !g.Constexpr {
		o := s.store.Create(g.Type, objstore.Static, g.Name)
		o.Opaque = true
		o.State = objstore.Alive
		gs.d = value.RootOf(o.ID)
		return gs.d, nil
	}

	savedFrames, savedTemps := s.frames, s.temps
	s.frames = []*frame{{scopes: []*scope{newScope()}}}
	s.temps = nil
	base := len(s.heap.All())

	var o *objstore.Object
	err := s.fullExpr(func() error {
		if g.Ref {
			d, err := s.bindStaticRef(g)
			gs.d = d
			return err
		}
		o = s.store.Create(g.Type, objstore.Static, g.Name)
		gs.d = value.RootOf(o.ID)
		return s.initObject(gs.d, g.Type, g.Init)
	})
	err = s.popScope(err)
	s.frames, s.temps = savedFrames, savedTemps

	if err == nil && o != nil {
		var v value.Value
		v, err = s.resultValue(gs.d)
		if err == nil {
			err = s.checkResult(v, base)
		}
	}
	if err != nil {
		f := toFailure(err)
		f.WithNote(g.Loc, "in initializer of '%s'", g.Name)
		gs.err = f
		return gs.d, f
	}
	if o != nil {
		s.store.MarkConst(o)
	}
	return gs.d, nil
}

// bindStaticRef binds a reference global. A prvalue initializer creates a
// static object the reference is bound to.
func (s *Session) bindStaticRef(g *ir.GlobalVar) (value.Designator, error) {
	if ir.IsGLValue(g.Init) {
		return s.lvalue(g.Init)
	}
	o := s.store.Create(g.Type, objstore.Static, g.Name)
	d := value.RootOf(o.ID)
	if err := s.initObject(d, g.Type, g.Init); err != nil {
		return d, err
	}
	s.store.MarkConst(o)
	return d, nil
}

// resultValue copies the designated object out of the store. The object
// must be fully initialized.
func (s *Session) resultValue(d value.Designator) (value.Value, error) {
	o, err := s.store.Resolve(d, objstore.AccessRead)
	if err != nil {
		return nil, err
	}
	if o.Type.IsScalar() || o.Root().Opaque {
		return s.store.Read(d)
	}
	v, err := s.store.Snapshot(o, objstore.Representation)
	if err != nil {
		return nil, err
	}
	return s.checkComplete(v)
}

// checkComplete fails if some scalar inside v holds no value.
func (s *Session) checkComplete(v value.Value) (value.Value, error) {
	var t *ir.Type
	switch x := v.(type) {
	case value.Aggregate:
		t = x.Type
	case value.Union:
		t = x.Type
	case value.Uninit:
		return nil, diag.New(diag.KindUninitializedRead, "constant expression produced an uninitialized value")
	default:
		return v, nil
	}
	if u := value.FirstUninit(v, t); u != nil {
		return nil, diag.New(diag.KindUninitializedRead, "subobject of type '%s' is not initialized", u)
	}
	return v, nil
}

// checkResult enforces the constant-ness of a finished value and the leak
// policy for allocations made since base.
func (s *Session) checkResult(v value.Value, base int) error {
	for _, p := range value.Pointers(v) {
		root := s.store.Object(p.Target.Root)
		if root == nil {
			continue
		}
		switch root.Storage {
		case objstore.Automatic, objstore.Temporary:
			return diag.New(diag.KindNonConstant,
				"pointer to %s object '%s' is not a constant expression", root.Storage, root.Name)
		case objstore.Heap:
			a, ok := s.heap.Lookup(p.Target)
			if !ok {
				continue
			}
			if a.Status == heap.Released {
				return diag.New(diag.KindUseAfterLifetime,
					"pointer to heap allocated object that has been deleted is not a constant expression").
					WithNote(a.Site, "heap allocation performed here")
			}
			if s.leakPolicy == LeakTransferResult {
				s.transferred[a.ID] = true
			}
		}
	}
	var leaks []*heap.Allocation
	for _, a := range s.heap.Live() {
		if a.ID > base && !s.transferred[a.ID] {
			leaks = append(leaks, a)
		}
	}
	if len(leaks) > 0 {
		s.log.Debug("memory leak", "session_id", s.ID, "allocations", len(leaks))
		for _, a := range leaks {
			// Report each leak once.
			s.transferred[a.ID] = true
		}
		return heap.LeakFailure(leaks)
	}
	return nil
}

// checkDepth fails when another call would exceed the depth limit.
func (s *Session) checkDepth() error {
	if len(s.frames)-1 >= s.maxDepth {
		return diag.New(diag.KindLimitExceeded,
			"constexpr evaluation exceeded maximum depth of %d calls", s.maxDepth)
	}
	return nil
}

// checkArrayType bounds the element count of arrays created by declarations.
func (s *Session) checkArrayType(t *ir.Type) error {
	n := int64(1)
	for t.Kind == ir.KindArray {
		n *= max(t.Len, 1)
		if n > s.maxElements {
			return diag.New(diag.KindLimitExceeded,
				"array of type '%s' exceeds the maximum of %d elements", t, s.maxElements)
		}
		t = t.Elem
	}
	return nil
}

// thrown is an exception in flight. It is the only error try/catch handles.
type thrown struct {
	v   value.Value
	t   *ir.Type
	loc ir.Loc
}

func (t *thrown) Error() string {
	return fmt.Sprintf("exception of type '%s' thrown", t.t)
}
