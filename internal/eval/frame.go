package eval

import (
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// frameState tracks one activation through its life.
type frameState int

const (
	frameRunning frameState = iota
	frameSuspended
	frameUnwinding
	frameReturned
	frameFailed
)

func (s frameState) String() string {
	switch s {
	case frameSuspended:
		return "suspended"
	case frameUnwinding:
		return "unwinding"
	case frameReturned:
		return "returned"
	case frameFailed:
		return "failed"
	}
	return "running"
}

// binding is what a name in scope refers to. Reference variables bind the
// designator of their referent directly.
type binding struct {
	d   value.Designator
	ref bool
}

// scope holds the names declared in one block and the objects to destroy
// when the block is left, in declaration order.
type scope struct {
	names    map[string]binding
	cleanups []value.Designator
}

func newScope() *scope {
	return &scope{names: make(map[string]binding)}
}

func (sc *scope) bind(name string, b binding) {
	if name != "" {
		sc.names[name] = b
	}
}

// frame is one function activation. The bottom frame of a session has no
// function and no this.
type frame struct {
	fn      *ir.FuncDecl
	this    value.Designator
	hasThis bool
	site    ir.Loc
	state   frameState
	scopes  []*scope

	// Results. retSlot is where a class result is constructed.
	retSlot *value.Designator
	retVal  value.Value
	retRef  value.Designator
}

func (f *frame) name() string {
	if f.fn == nil {
		return "<top level>"
	}
	return f.fn.QualifiedName()
}

func (f *frame) top() *scope {
	return f.scopes[len(f.scopes)-1]
}

func (f *frame) lookup(name string) (binding, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if b, ok := f.scopes[i].names[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (s *Session) frame() *frame {
	return s.frames[len(s.frames)-1]
}

func (s *Session) pushFrame(f *frame) {
	if len(s.frames) > 0 {
		s.frame().state = frameSuspended
	}
	f.state = frameRunning
	s.frames = append(s.frames, f)
}

func (s *Session) popFrame() {
	s.frames = s.frames[:len(s.frames)-1]
	if len(s.frames) > 0 {
		s.frame().state = frameRunning
	}
}

func (s *Session) pushScope() *scope {
	sc := newScope()
	f := s.frame()
	f.scopes = append(f.scopes, sc)
	return sc
}

// popScope leaves the innermost scope, destroying its automatic objects in
// reverse declaration order. err is the error unwinding through the scope,
// if any; the first error wins.
func (s *Session) popScope(err error) error {
	f := s.frame()
	sc := f.top()
	f.scopes = f.scopes[:len(f.scopes)-1]
	if err != nil {
		f.state = frameUnwinding
	}
	return s.runCleanups(sc.cleanups, err)
}

// declareObject creates an automatic object for a local variable and
// registers it for destruction at scope exit.
func (s *Session) declareObject(t *ir.Type, name string) (value.Designator, error) {
	if err := s.checkArrayType(t); err != nil {
		return value.Designator{}, err
	}
	o := s.store.Create(t, objstore.Automatic, name)
	d := value.RootOf(o.ID)
	sc := s.frame().top()
	sc.bind(name, binding{d: d})
	sc.cleanups = append(sc.cleanups, d)
	return d, nil
}

// fullExpr runs fn as one full-expression: temporaries it creates are
// destroyed in reverse creation order when it finishes, normally or not.
func (s *Session) fullExpr(fn func() error) error {
	saved := s.temps
	var mine []value.Designator
	s.temps = &mine
	err := fn()
	s.temps = saved
	return s.runCleanups(mine, err)
}

// registerTemp schedules a temporary for destruction at the end of the
// current full-expression.
func (s *Session) registerTemp(d value.Designator) {
	if s.temps == nil {
		sc := s.frame().top()
		sc.cleanups = append(sc.cleanups, d)
		return
	}
	*s.temps = append(*s.temps, d)
}

// extendTemp moves the temporary rooted at d out of the current
// full-expression into the innermost scope, as binding a reference does.
func (s *Session) extendTemp(d value.Designator) {
	if s.temps == nil {
		return
	}
	list := *s.temps
	for i, t := range list {
		if t.Root == d.Root && t.IsRoot() {
			*s.temps = append(list[:i:i], list[i+1:]...)
			sc := s.frame().top()
			sc.cleanups = append(sc.cleanups, t)
			return
		}
	}
}

func (s *Session) runCleanups(list []value.Designator, err error) error {
	for i := len(list) - 1; i >= 0; i-- {
		if cerr := s.destroyAt(list[i]); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
