package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/consteval/internal/canon"
)

// Snapshot captures the outcomes of a scenario execution.
// It serializes to canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	SessionID    string
	Cases        []CaseResult
	Trace        bool // include lifecycle events
}

// Object converts the snapshot to its canonical form.
// Source locations are left out because they depend on where the program
// file lives.
func (s *Snapshot) Object() canon.Object {
	cases := make([]any, len(s.Cases))
	for i, c := range s.Cases {
		obj := canon.Object{
			"name":    c.Name,
			"outcome": c.Outcome(),
		}
		if c.Failure != nil && len(c.Failure.Notes) > 0 {
			obj["notes"] = c.Failure.Notes
		}
		if s.Trace {
			obj["trace"] = c.Trace
		}
		cases[i] = obj
	}

	return canon.Object{
		"scenario_name": s.ScenarioName,
		"session_id":    s.SessionID,
		"cases":         cases,
	}
}

// SnapshotBytes returns the canonical JSON golden content for a result.
func SnapshotBytes(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		SessionID:    result.SessionID,
		Cases:        result.Cases,
		Trace:        scenario.Trace,
	}
	return canon.Marshal(snapshot.Object())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := SnapshotBytes(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
