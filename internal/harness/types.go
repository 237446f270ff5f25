package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every case matched its expectation and assertions.
	Pass bool `json:"pass"`

	// SessionID is the id of the session the cases ran in.
	SessionID string `json:"session_id"`

	// Cases holds one result per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages of all cases.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name     string       `json:"name"`
	Pass     bool         `json:"pass"`
	Constant bool         `json:"constant"`
	Value    string       `json:"value,omitempty"`
	Failure  *CaseFailure `json:"failure,omitempty"`
	Steps    int          `json:"steps"`

	// Trace lists lifecycle events as "seq kind object : type".
	Trace  []string `json:"trace"`
	Errors []string `json:"errors,omitempty"`
}

// CaseFailure is the failure a case ended with.
type CaseFailure struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Anchor  string   `json:"anchor,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// Outcome renders the case outcome without source locations, which depend
// on where the program file lives.
func (c CaseResult) Outcome() string {
	if c.Failure == nil {
		return "value: " + c.Value
	}
	return "failure: " + c.Failure.Kind + ": " + c.Failure.Message
}

// NewResult creates a new passing result.
func NewResult(sessionID string) *Result {
	return &Result{
		Pass:      true,
		SessionID: sessionID,
		Cases:     []CaseResult{},
		Errors:    []string{},
	}
}

// AddCase appends a case result and folds its errors into the result.
func (r *Result) AddCase(c CaseResult) {
	r.Cases = append(r.Cases, c)
	for _, e := range c.Errors {
		r.AddError(c.Name + ": " + e)
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
