package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordEvaluations evaluates a few entry points into a fresh database and
// returns its path.
func recordEvaluations(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "consteval.db")

	_, err := runCLI(t, "eval", testProgram, "--global", "total", "--db", db)
	require.NoError(t, err)
	_, err = runCLI(t, "eval", testProgram, "--call", "sum", "--arg", "4", "--context", "probe", "--db", db)
	require.NoError(t, err)
	_, err = runCLI(t, "eval", testProgram, "--global", "divzero", "--db", db)
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))

	return db
}

func TestHistoryCommand_Text(t *testing.T) {
	db := recordEvaluations(t)

	out, err := runCLI(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "sum(4)")
	assert.Contains(t, out, "probe")
	assert.Contains(t, out, "55")
	assert.Contains(t, out, "division-by-zero")
	// Notes are dropped from the table.
	assert.NotContains(t, out, "note:")
}

func TestHistoryCommand_JSON(t *testing.T) {
	db := recordEvaluations(t)

	out, err := runCLI(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Equal(t, 3, resp.Data.Total)

	// Newest first.
	entries := resp.Data.Entries
	assert.Equal(t, "divzero", entries[0].Target)
	assert.False(t, entries[0].Constant)
	assert.Equal(t, "sum(4)", entries[1].Target)
	assert.Equal(t, "10", entries[1].Outcome)
	assert.Equal(t, "total", entries[2].Target)
	assert.Greater(t, entries[0].Seq, entries[2].Seq)
	assert.Equal(t, testProgram, entries[2].Source)
}

func TestHistoryCommand_Limit(t *testing.T) {
	db := recordEvaluations(t)

	out, err := runCLI(t, "--format", "json", "history", "--db", db, "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, "divzero", resp.Data.Entries[0].Target)
}

func TestHistoryCommand_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, err := runCLI(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No evaluations recorded.\n", out)
}

func TestShortKeyAndFirstLine(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortKey("0123456789abcdef"))
	assert.Equal(t, "abc", shortKey("abc"))
	assert.Equal(t, "overflow: too big", firstLine("overflow: too big\n  note: in call to 'f'"))
	assert.Equal(t, "55", firstLine("55"))
}
