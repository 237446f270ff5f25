package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/canon"
	"github.com/roach88/consteval/internal/store"
)

func TestReplayCommand_Deterministic(t *testing.T) {
	db := recordEvaluations(t)

	out, err := runCLI(t, "replay", testProgram, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ total")
	assert.Contains(t, out, "✓ sum(4)")
	assert.Contains(t, out, "✓ divzero")
	assert.Contains(t, out, "✓ All 3 evaluations reproduced")
}

func TestReplayCommand_JSON(t *testing.T) {
	db := recordEvaluations(t)

	out, err := runCLI(t, "--format", "json", "replay", testProgram, "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	assert.Equal(t, 3, resp.Data.Total)

	src, err := os.ReadFile(testProgram)
	require.NoError(t, err)
	assert.Equal(t, canon.ProgramDigest(src), resp.Data.Program)

	for _, e := range resp.Data.Entries {
		assert.Equal(t, e.Recorded, e.Replayed, e.Target)
	}
}

// TestReplayCommand_Diverged tests that a record whose outcome the
// evaluator no longer produces fails the replay.
func TestReplayCommand_Diverged(t *testing.T) {
	db := recordEvaluations(t)

	src, err := os.ReadFile(testProgram)
	require.NoError(t, err)
	req := canon.Request{
		Program:    canon.ProgramDigest(src),
		Target:     "total",
		Context:    "initializer",
		LeakPolicy: "strict",
		MaxSteps:   4000,
		MaxDepth:   512,
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	inserted, err := st.WriteEvaluation(context.Background(), store.Evaluation{
		Key:       canon.MustEvaluationKey(req),
		SessionID: "tampered",
		Source:    testProgram,
		Request:   req,
		Constant:  true,
		Value:     "54",
		Steps:     1,
	})
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, st.Close())

	out, err := runCLI(t, "replay", testProgram, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ total")
	assert.Contains(t, out, "recorded: 54")
	assert.Contains(t, out, "replayed: 55")
	assert.Contains(t, out, "✗ Determinism verification failed")

	out, err = runCLI(t, "--format", "json", "replay", testProgram, "--db", db)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNonReplaying, resp.Error.Code)
}

func TestReplayCommand_NoRecords(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, err := runCLI(t, "replay", testProgram, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No evaluations recorded for testdata/prog.cue.\n", out)
}

func TestReplayCommand_MissingProgram(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	_, err := runCLI(t, "replay", filepath.Join(t.TempDir(), "missing.cue"), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
