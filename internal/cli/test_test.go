package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupScenarioDir creates a scenarios directory holding a copy of the
// test program and the given scenario files.
func setupScenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	src, err := os.ReadFile(testProgram)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.cue"), src, 0644))

	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0644))
	}
	return dir
}

const passingScenario = `name: totals
description: Totals from loops
program: prog.cue
cases:
  - global: total
    expect:
      value: "55"
  - call: sum
    args: ["3"]
    expect:
      value: "6"
`

const failingScenario = `name: wrong
description: Deliberately wrong expectation
program: prog.cue
cases:
  - global: total
    expect:
      value: "56"
`

const divzeroScenario = `name: divzero
description: Division by zero
program: prog.cue
cases:
  - global: divzero
    expect:
      failure:
        kind: division-by-zero
`

func TestTestCommand_Pass(t *testing.T) {
	dir := setupScenarioDir(t, map[string]string{"totals": passingScenario, "divzero": divzeroScenario})

	out, err := runCLI(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ totals (2 cases)")
	assert.Contains(t, out, "✓ divzero (1 cases)")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Fail(t *testing.T) {
	dir := setupScenarioDir(t, map[string]string{"totals": passingScenario, "wrong": failingScenario})

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "expected value 56, got 55")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

// TestTestCommand_Golden tests the --update cycle: the golden file is
// written, then matched, then a changed golden file fails the scenario.
func TestTestCommand_Golden(t *testing.T) {
	dir := setupScenarioDir(t, map[string]string{"totals": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "totals.golden")

	out, err := runCLI(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ totals (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"totals"`)
	assert.Contains(t, string(golden), `"outcome":"value: 55"`)

	_, err = runCLI(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{}`), 0644))
	out, err = runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "outcomes do not match golden file")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := setupScenarioDir(t, map[string]string{"totals": passingScenario, "wrong": failingScenario})

	out, err := runCLI(t, "test", dir, "--filter", "tot*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ totals")
	assert.NotContains(t, out, "wrong")
	assert.Contains(t, out, "1 total")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := setupScenarioDir(t, map[string]string{"totals": passingScenario, "wrong": failingScenario})

	out, err := runCLI(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommand_BadScenario(t *testing.T) {
	dir := setupScenarioDir(t, map[string]string{"broken": "name: broken\ndescription: Broken\nprogram: prog.cue\ncases: 7\n"})

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_EmptyAndMissing(t *testing.T) {
	out, err := runCLI(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, err = runCLI(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "arith.golden"), goldenFilePath(filepath.Join("s", "arith.yaml")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yml"))
}
