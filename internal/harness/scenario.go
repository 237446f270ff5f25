package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/eval"
)

// Scenario is a set of evaluations over one program together with their
// expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the CUE program file, relative to the
	// scenario file.
	Program string `yaml:"program"`

	// Limits overrides the session's evaluation limits.
	Limits Limits `yaml:"limits,omitempty"`

	// LeakPolicy is "strict" (default) or "transfer-result".
	LeakPolicy string `yaml:"leak_policy,omitempty"`

	// Trace includes each case's lifecycle events in the golden snapshot.
	Trace bool `yaml:"trace,omitempty"`

	// SessionID fixes the session id for deterministic records.
	// Defaults to testutil.DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	// Cases run in order in one session, so globals evaluated by an
	// earlier case are cached for later ones.
	Cases []Case `yaml:"cases"`
}

// Limits mirrors the session options. Zero means the default.
type Limits struct {
	MaxSteps         int   `yaml:"max_steps,omitempty"`
	MaxDepth         int   `yaml:"max_depth,omitempty"`
	MaxArrayElements int64 `yaml:"max_array_elements,omitempty"`
}

// Case is one evaluation. Exactly one of Global, Call or Expr is set.
type Case struct {
	// Name labels the case in reports. Defaults to the entry point.
	Name string `yaml:"name,omitempty"`

	// Global evaluates a statically evaluated global's initializer.
	Global string `yaml:"global,omitempty"`

	// Call calls a free function with Args.
	Call string   `yaml:"call,omitempty"`
	Args []string `yaml:"args,omitempty"`

	// Expr evaluates a standalone expression written in the program
	// format, e.g. {binary: "==", x: "total", y: 55}.
	Expr string `yaml:"expr,omitempty"`

	// Context is initializer (default), assertion or probe. Globals are
	// always evaluated as initializers.
	Context string `yaml:"context,omitempty"`

	// Expect is the expected outcome.
	Expect Expect `yaml:"expect"`

	// Assertions check the case's lifecycle trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect holds either the expected value or the expected failure.
type Expect struct {
	// Value is the rendered value, compared exactly.
	Value *string `yaml:"value,omitempty"`

	// Failure describes the expected failure.
	Failure *ExpectFailure `yaml:"failure,omitempty"`
}

// ExpectFailure matches a failure by kind, and optionally by message and
// notes (substring matches; notes must appear in order).
type ExpectFailure struct {
	Kind    string   `yaml:"kind"`
	Message string   `yaml:"message,omitempty"`
	Notes   []string `yaml:"notes,omitempty"`
}

// Assertion validates a case's lifecycle trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Kind (on Object, if set) occurred
	// - "trace_order": Events occurred in this order
	// - "trace_count": events of Kind (on Object, if set) occurred Count times
	Type string `yaml:"type"`

	Kind   string `yaml:"kind,omitempty"`
	Object string `yaml:"object,omitempty"`
	Count  int    `yaml:"count,omitempty"`

	// Events are "kind object" pairs, e.g. "destroy heap#1[2]".
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The program path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}

	if _, err := eval.ParseLeakPolicy(s.LeakPolicy); err != nil {
		return err
	}

	if s.Limits.MaxSteps < 0 || s.Limits.MaxDepth < 0 || s.Limits.MaxArrayElements < 0 {
		return fmt.Errorf("limits must be non-negative")
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i := range s.Cases {
		if err := validateCase(i, &s.Cases[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateCase(index int, c *Case) error {
	set := 0
	for _, s := range []string{c.Global, c.Call, c.Expr} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("cases[%d]: exactly one of global, call or expr is required", index)
	}
	if len(c.Args) > 0 && c.Call == "" {
		return fmt.Errorf("cases[%d]: args require call", index)
	}
	if c.Global != "" && c.Context != "" {
		return fmt.Errorf("cases[%d]: context does not apply to globals", index)
	}
	if _, err := eval.ParseContext(c.Context); err != nil {
		return fmt.Errorf("cases[%d]: %w", index, err)
	}

	if (c.Expect.Value == nil) == (c.Expect.Failure == nil) {
		return fmt.Errorf("cases[%d].expect: exactly one of value or failure is required", index)
	}
	if c.Expect.Failure != nil {
		if c.Expect.Failure.Kind == "" {
			return fmt.Errorf("cases[%d].expect.failure: kind is required", index)
		}
		if _, err := diag.ParseKind(c.Expect.Failure.Kind); err != nil {
			return fmt.Errorf("cases[%d].expect.failure: %w", index, err)
		}
	}

	for i := range c.Assertions {
		if err := validateAssertion(index, i, &c.Assertions[i]); err != nil {
			return err
		}
	}

	if c.Name == "" {
		c.Name = defaultCaseName(c)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(caseIndex, index int, a *Assertion) error {
	prefix := fmt.Sprintf("cases[%d].assertions[%d]", caseIndex, index)
	if a.Type == "" {
		return fmt.Errorf("%s: type is required", prefix)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("%s: kind is required for trace_contains", prefix)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("%s: events list is required for trace_order", prefix)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("%s: kind is required for trace_count", prefix)
		}
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for trace_count", prefix)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", prefix, a.Type)
	}

	return nil
}

func defaultCaseName(c *Case) string {
	switch {
	case c.Global != "":
		return c.Global
	case c.Call != "":
		return fmt.Sprintf("%s(%s)", c.Call, strings.Join(c.Args, ", "))
	}
	return c.Expr
}
