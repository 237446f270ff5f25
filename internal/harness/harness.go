package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/consteval/internal/cache"
	"github.com/roach88/consteval/internal/eval"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/loader"
	"github.com/roach88/consteval/internal/testutil"
	"github.com/roach88/consteval/internal/value"
)

// Harness runs the cases of one scenario in a single evaluation session.
type Harness struct {
	session *eval.Session
	program *ir.Program
	clock   *testutil.DeterministicClock
	events  []eval.TraceEvent
}

// Run executes a test scenario and returns the result.
//
// All cases share one session with a fixed session id and a resettable
// clock, so every case numbers its lifecycle events from 1 and the result
// is reproducible.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithPrograms(scenario, nil)
}

// RunWithPrograms is like Run but compiles the scenario's program through
// programs, so scenarios sharing a program compile it once. A nil cache
// compiles the program directly.
func RunWithPrograms(scenario *Scenario, programs *cache.Programs) (*Result, error) {
	prog, err := loadProgram(scenario.Program, programs)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	policy, err := eval.ParseLeakPolicy(scenario.LeakPolicy)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		program: prog,
		clock:   testutil.NewDeterministicClock(),
	}

	opts := []eval.Option{
		eval.WithIDGenerator(testutil.NewFixedSessionGenerator(scenario.SessionID)),
		eval.WithClock(h.clock),
		eval.WithTracer(func(ev eval.TraceEvent) { h.events = append(h.events, ev) }),
		eval.WithLeakPolicy(policy),
		eval.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if scenario.Limits.MaxSteps > 0 {
		opts = append(opts, eval.WithMaxSteps(scenario.Limits.MaxSteps))
	}
	if scenario.Limits.MaxDepth > 0 {
		opts = append(opts, eval.WithMaxDepth(scenario.Limits.MaxDepth))
	}
	if scenario.Limits.MaxArrayElements > 0 {
		opts = append(opts, eval.WithMaxArrayElements(scenario.Limits.MaxArrayElements))
	}
	h.session = eval.NewSession(prog, opts...)

	result := NewResult(h.session.ID)
	for i := range scenario.Cases {
		result.AddCase(h.runCase(&scenario.Cases[i]))
	}
	return result, nil
}

func loadProgram(path string, programs *cache.Programs) (*ir.Program, error) {
	if programs == nil {
		return loader.LoadFile(path)
	}
	p, err := programs.Load(path)
	if err != nil {
		return nil, err
	}
	return p.Program, nil
}

// runCase evaluates one case and checks its expectation and assertions.
// Setup errors (unknown function, bad arguments) fail the case rather than
// the scenario.
func (h *Harness) runCase(c *Case) CaseResult {
	h.clock.Reset()
	h.events = nil

	cr := CaseResult{Name: c.Name, Trace: []string{}}
	r, err := h.evaluate(c)
	if err != nil {
		cr.Errors = append(cr.Errors, err.Error())
		return cr
	}

	cr.Constant = r.Constant()
	cr.Steps = r.Steps
	if r.Failure != nil {
		cr.Failure = &CaseFailure{
			Kind:    string(r.Failure.Kind),
			Message: r.Failure.Message,
		}
		if !r.Failure.Anchor.IsZero() {
			cr.Failure.Anchor = r.Failure.Anchor.String()
		}
		for _, n := range r.Failure.Notes {
			cr.Failure.Notes = append(cr.Failure.Notes, n.Message)
		}
	} else {
		cr.Value = r.Value.String()
	}
	for _, ev := range h.events {
		cr.Trace = append(cr.Trace, ev.String())
	}

	cr.Errors = append(cr.Errors, checkExpect(c.Expect, cr)...)
	cr.Errors = append(cr.Errors, EvaluateAssertions(h.events, c.Assertions)...)
	cr.Pass = len(cr.Errors) == 0
	return cr
}

func (h *Harness) evaluate(c *Case) (*eval.Result, error) {
	ctx, err := eval.ParseContext(c.Context)
	if err != nil {
		return nil, err
	}

	switch {
	case c.Global != "":
		return h.session.EvaluateGlobal(c.Global), nil

	case c.Call != "":
		fn := h.program.Func(c.Call)
		if fn == nil {
			return nil, fmt.Errorf("no function named '%s'", c.Call)
		}
		var args []value.Value
		args, err = eval.ParseArgs(fn, c.Args)
		if err != nil {
			return nil, err
		}
		return h.session.EvaluateCall(fn, args, ctx), nil

	default:
		e, err := loader.CompileExpr(h.program, c.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile expr: %w", err)
		}
		return h.session.EvaluateExpr(e, ctx), nil
	}
}

// checkExpect compares an outcome with its expectation. Values compare
// exactly; failures compare by kind, with message and notes matched as
// substrings.
func checkExpect(expect Expect, cr CaseResult) []string {
	var errs []string

	if expect.Value != nil {
		if cr.Failure != nil {
			return []string{fmt.Sprintf("expected value %s, got %s", *expect.Value, cr.Outcome())}
		}
		if cr.Value != *expect.Value {
			errs = append(errs, fmt.Sprintf("expected value %s, got %s", *expect.Value, cr.Value))
		}
		return errs
	}

	want := expect.Failure
	if cr.Failure == nil {
		return []string{fmt.Sprintf("expected failure %s, got %s", want.Kind, cr.Outcome())}
	}
	if cr.Failure.Kind != want.Kind {
		errs = append(errs, fmt.Sprintf("expected failure %s, got %s", want.Kind, cr.Outcome()))
	}
	if want.Message != "" && !strings.Contains(cr.Failure.Message, want.Message) {
		errs = append(errs, fmt.Sprintf("expected message containing %q, got %q", want.Message, cr.Failure.Message))
	}

	next := 0
	for _, note := range want.Notes {
		found := false
		for next < len(cr.Failure.Notes) {
			msg := cr.Failure.Notes[next]
			next++
			if strings.Contains(msg, note) {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Sprintf("expected note containing %q (in order), got %v", note, cr.Failure.Notes))
			break
		}
	}
	return errs
}
