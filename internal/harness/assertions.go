package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/consteval/internal/eval"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string            // Assertion type for categorization
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Trace    []eval.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	if len(e.Trace) == 0 {
		fmt.Fprintf(&buf, "  (empty)\n")
	}
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", event)
	}

	return buf.String()
}

// matches reports whether event has the given kind and, when object is
// non-empty, the given object.
func matches(event eval.TraceEvent, kind, object string) bool {
	if string(event.Kind) != kind {
		return false
	}
	return object == "" || event.Object == object
}

// describe renders a kind/object filter for error messages.
func describe(kind, object string) string {
	if object == "" {
		return kind
	}
	return kind + " " + object
}

// assertTraceContains checks that the trace holds an event of the assertion's
// kind (on its object, if set).
func assertTraceContains(trace []eval.TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matches(event, assertion.Kind, assertion.Object) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s", describe(assertion.Kind, assertion.Object)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the events appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed).
// Each expected event is a "kind object" pair, or a bare kind.
func assertTraceOrder(trace []eval.TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Events {
		kind, object, _ := strings.Cut(want, " ")
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if matches(event, kind, object) {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing event: %s", want)
			if i > 0 {
				actual = fmt.Sprintf("%s not found after %s", want, assertion.Events[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that events of the assertion's kind (on its object,
// if set) appear exactly the specified number of times.
func assertTraceCount(trace []eval.TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, assertion.Kind, assertion.Object) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, describe(assertion.Kind, assertion.Object)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against a case's trace.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(trace []eval.TraceEvent, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
