package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	out, err := runCLI(t, "validate", testProgram)
	require.NoError(t, err)
	assert.Equal(t, "✓ testdata/prog.cue: 0 classes, 1 functions, 2 globals\n", out)
}

func TestValidateCommand_ValidJSON(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "validate", testProgram)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Digest, 64)
	assert.Equal(t, 1, resp.Data.Functions)
	assert.Equal(t, 2, resp.Data.Globals)
}

// TestValidateCommand_Invalid tests that a compile error is reported with
// its field and source position.
func TestValidateCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	src := "globals: [{\n\tname: \"g\"\n\ttype: \"Missing\"\n}]\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	out, err := runCLI(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 1 validation error(s):")
	assert.Contains(t, out, `unknown type "Missing"`)
	assert.Contains(t, out, "(line 3,")

	out, err = runCLI(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Errors, 1)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Errors[0].Line)
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
