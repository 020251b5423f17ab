package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"chains": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"chains": 3.0}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "chains.cue", "line": "4"}
	require.NoError(t, formatter.Error(ErrCodeInvalidOp, "unknown operator", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidOp, resp.Error.Code)
	assert.Equal(t, "unknown operator", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Failure([]string{"partial"}, ErrCodeGeneric, "2 failed"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, []any{"partial"}, resp.Data)
	assert.Equal(t, "2 failed", resp.Error.Message)
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		details any
		want    []string
		notWant []string
	}{
		{"plain", false, map[string]string{"file": "a.cue"}, []string{"Error [E005]", "missing"}, []string{"Details:"}},
		{"verbose", true, map[string]string{"file": "a.cue"}, []string{"Error [E005]", "Details:"}, nil},
		{"verbose without details", true, nil, []string{"Error [E005]"}, []string{"Details:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, formatter.Error(ErrCodeNotFound, "missing", tt.details))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}

	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, formatter.Success("3 chains planned"))
	assert.Equal(t, "3 chains planned\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			formatter.VerboseLog("Planning %s", "byScore")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "Planning byScore\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_GetErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	assert.Same(t, out, (&OutputFormatter{Writer: out}).GetErrWriter())
	assert.Same(t, diag, (&OutputFormatter{Writer: out, ErrWriter: diag}).GetErrWriter())
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to cache plan", cause)
	assert.Equal(t, "failed to cache plan: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("plan: %w", err)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))

	assert.Equal(t, "2 scenario(s) failed", NewExitError(ExitFailure, "2 scenario(s) failed").Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
