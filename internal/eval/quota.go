package eval

import (
	"github.com/roach88/consteval/internal/diag"
)

// StepQuota counts evaluation steps and enforces the session's budget.
//
// One step is charged per expression and per statement evaluated, so an
// infinite loop or unbounded recursion always terminates with a limit
// failure instead of hanging the caller.
type StepQuota struct {
	maxSteps int
	current  int
}

// NewStepQuota creates a quota with the given limit.
func NewStepQuota(maxSteps int) *StepQuota {
	return &StepQuota{maxSteps: maxSteps}
}

// Check charges one step and fails once the budget is exhausted.
func (q *StepQuota) Check() error {
	q.current++
	if q.current > q.maxSteps {
		return diag.New(diag.KindLimitExceeded,
			"constexpr evaluation hit maximum step limit (%d steps); possible infinite loop", q.maxSteps)
	}
	return nil
}

// Current returns the steps charged so far.
func (q *StepQuota) Current() int {
	return q.current
}

// MaxSteps returns the budget.
func (q *StepQuota) MaxSteps() int {
	return q.maxSteps
}
