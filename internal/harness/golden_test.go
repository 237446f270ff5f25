package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden files live in testdata/golden. To regenerate them, run:
//
//	go test ./internal/harness -run Golden -update

func TestRunWithGolden_Arith(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/arith.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_Unwind(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/unwind.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

// TestAssertGolden_FromResult tests comparing an existing result without
// re-running the scenario.
func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/unwind.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario, result))
}

// TestSnapshotDeterminism tests that two runs of a scenario produce
// byte-identical snapshots.
func TestSnapshotDeterminism(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/arith.yaml")
	require.NoError(t, err)

	var snapshots [][]byte
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := SnapshotBytes(scenario, result)
		require.NoError(t, err)
		snapshots = append(snapshots, data)
	}
	assert.Equal(t, snapshots[0], snapshots[1])
	assert.Equal(t, snapshots[1], snapshots[2])
}

// TestSnapshotBytes tests the snapshot layout: sorted keys, no source
// locations, and traces only when the scenario asks for them.
func TestSnapshotBytes(t *testing.T) {
	result := NewResult("sid")
	result.AddCase(CaseResult{Name: "ok", Value: "1", Trace: []string{"1 construct x : int"}})
	result.AddCase(CaseResult{
		Name:    "bad",
		Failure: &CaseFailure{Kind: "overflow", Message: "too big", Anchor: "p.cue:1:2", Notes: []string{"here"}},
		Trace:   []string{},
	})

	scenario := &Scenario{Name: "snap"}
	data, err := SnapshotBytes(scenario, result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"cases":[{"name":"ok","outcome":"value: 1"},{"name":"bad","notes":["here"],"outcome":"failure: overflow: too big"}],"scenario_name":"snap","session_id":"sid"}`,
		string(data))
	assert.NotContains(t, string(data), "p.cue")

	scenario.Trace = true
	data, err = SnapshotBytes(scenario, result)
	require.NoError(t, err)

	var decoded struct {
		Cases []struct {
			Trace []string `json:"trace"`
		} `json:"cases"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Cases, 2)
	assert.Equal(t, []string{"1 construct x : int"}, decoded.Cases[0].Trace)
	assert.Equal(t, []string{}, decoded.Cases[1].Trace)
}
