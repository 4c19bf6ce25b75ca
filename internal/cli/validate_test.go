package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptPath(name string) string {
	return filepath.Join("testdata", "scripts", name)
}

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidScript(t *testing.T) {
	out, err := executeValidate(t, "text", scriptPath("fran.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Fran valid (3 statements)")
}

func TestValidateValidScriptJSON(t *testing.T) {
	out, err := executeValidate(t, "json", scriptPath("pair.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "Pair", resp.Data.Name)
	assert.Equal(t, 2, resp.Data.Statements)
}

func TestValidateNonExistentScript(t *testing.T) {
	out, err := executeValidate(t, "text", "/nonexistent/workout.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "script not found")
}

func TestValidateDirectory(t *testing.T) {
	_, err := executeValidate(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not a file")
}

func TestValidateMalformedYAML(t *testing.T) {
	path := writeScript(t, "bad.yaml", "statements: [\n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestValidateUnknownField(t *testing.T) {
	path := writeScript(t, "extra.yaml", `
name: Extra
statements:
  - id: 1
    colour: red
    fragments:
      - {type: effort, value: Run}
`)

	_, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E004")
}

func TestValidateValidationErrors(t *testing.T) {
	out, err := executeValidate(t, "text", scriptPath("broken.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E102")
	assert.Contains(t, out, "E103")
	assert.Contains(t, out, "statement 1")
}

func TestValidateValidationErrorsJSON(t *testing.T) {
	out, err := executeValidate(t, "json", scriptPath("broken.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidateEmptyScript(t *testing.T) {
	path := writeScript(t, "empty.yaml", "name: Nothing\nstatements: []\n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E100")
}

func TestValidateCUEScript(t *testing.T) {
	path := filepath.Join("..", "script", "testdata", "cindy.cue")

	out, err := executeValidate(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidateMissingArg(t *testing.T) {
	_, err := executeValidate(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
