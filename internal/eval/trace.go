package eval

import (
	"fmt"

	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// TraceKind classifies lifecycle events.
type TraceKind string

const (
	TraceConstruct TraceKind = "construct"
	TraceDestroy   TraceKind = "destroy"
	TraceAllocate  TraceKind = "allocate"
	TraceRelease   TraceKind = "release"
	TraceActivate  TraceKind = "activate"
	TraceThrow     TraceKind = "throw"
	TraceUnwind    TraceKind = "unwind"
)

// TraceEvent is one lifecycle event of a session.
type TraceEvent struct {
	Seq    int64     `json:"seq"`
	Kind   TraceKind `json:"kind"`
	Object string    `json:"object"`
	Type   string    `json:"type,omitempty"`
	Loc    ir.Loc    `json:"loc,omitzero"`
}

func (e TraceEvent) String() string {
	s := fmt.Sprintf("%d %s %s", e.Seq, e.Kind, e.Object)
	if e.Type != "" {
		s += " : " + e.Type
	}
	return s
}

func (s *Session) trace(kind TraceKind, d value.Designator, t *ir.Type, loc ir.Loc) {
	if s.tracer == nil {
		return
	}
	s.traceNamed(kind, s.store.Describe(d), t, loc)
}

func (s *Session) traceNamed(kind TraceKind, object string, t *ir.Type, loc ir.Loc) {
	if s.tracer == nil {
		return
	}
	ev := TraceEvent{
		Seq:    s.clock.Next(),
		Kind:   kind,
		Object: object,
		Loc:    loc,
	}
	if t != nil {
		ev.Type = t.String()
	}
	s.tracer(ev)
}
