package eval

import (
	"fmt"
	"io"
	"log/slog"
)

// Default limits. They keep runaway evaluations (infinite loops, unbounded
// recursion, huge arrays) from consuming unbounded resources.
const (
	DefaultMaxSteps         = 1_000_000
	DefaultMaxDepth         = 512
	DefaultMaxArrayElements = 1 << 24
)

// Context is the situation an evaluation is requested in.
type Context string

const (
	// ContextInitializer evaluates the initializer of a statically evaluated
	// variable. The result must be a constant.
	ContextInitializer Context = "initializer"

	// ContextAssertion evaluates the operand of a compile-time assertion. The
	// result is converted to bool.
	ContextAssertion Context = "assertion"

	// ContextProbe only asks whether evaluation would succeed. Failures are
	// reported but are not hard errors for the caller.
	ContextProbe Context = "probe"
)

// ParseContext validates a context name. Empty defaults to initializer.
func ParseContext(s string) (Context, error) {
	switch Context(s) {
	case "":
		return ContextInitializer, nil
	case ContextInitializer, ContextAssertion, ContextProbe:
		return Context(s), nil
	}
	return "", fmt.Errorf("invalid context %q: must be initializer, assertion, or probe", s)
}

// LeakPolicy decides what happens to heap allocations still live when an
// evaluation finishes.
type LeakPolicy string

const (
	// LeakStrict reports every live allocation as a memory leak and rejects
	// results that point into the heap.
	LeakStrict LeakPolicy = "strict"

	// LeakTransferResult lets allocations reachable from the result outlive
	// the evaluation; other live allocations are still leaks.
	LeakTransferResult LeakPolicy = "transfer-result"
)

// ParseLeakPolicy validates a leak policy name. Empty defaults to strict.
func ParseLeakPolicy(s string) (LeakPolicy, error) {
	switch LeakPolicy(s) {
	case "":
		return LeakStrict, nil
	case LeakStrict, LeakTransferResult:
		return LeakPolicy(s), nil
	}
	return "", fmt.Errorf("invalid leak policy %q: must be strict or transfer-result", s)
}

// Option configures a Session.
type Option func(*Session)

// WithMaxSteps sets the step budget of the session.
//
// Default: 1,000,000 steps (DefaultMaxSteps)
// Use WithMaxSteps(100) for testing limit enforcement.
func WithMaxSteps(n int) Option {
	return func(s *Session) {
		s.maxSteps = n
	}
}

// WithMaxDepth sets the maximum call depth.
func WithMaxDepth(n int) Option {
	return func(s *Session) {
		s.maxDepth = n
	}
}

// WithMaxArrayElements bounds the element count of arrays and array
// allocations.
func WithMaxArrayElements(n int64) Option {
	return func(s *Session) {
		s.maxElements = n
	}
}

// WithLeakPolicy sets the leak policy.
func WithLeakPolicy(p LeakPolicy) Option {
	return func(s *Session) {
		s.leakPolicy = p
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithTracer installs a callback receiving lifecycle events.
func WithTracer(fn func(TraceEvent)) Option {
	return func(s *Session) {
		s.tracer = fn
	}
}

// WithClock sets the sequencer stamping trace events. The default is a
// fresh Clock per session.
func WithClock(c Sequencer) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) {
		s.idGen = g
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
