package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidChains(t *testing.T) {
	out, err := executeCLI(t, "", "validate", fixtureChains)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All chains valid (4)")
	assert.NotContains(t, out, "warning")
}

func TestValidateValidChainsJSON(t *testing.T) {
	out, err := executeCLI(t, "", "--format", "json", "validate", fixtureChains)
	require.NoError(t, err)

	status, result, cliErr := decodeResponse[ValidationResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Nil(t, cliErr)
	assert.True(t, result.Valid)
	assert.Equal(t, 4, result.Chains)
	assert.Empty(t, result.Errors)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := executeCLI(t, "", "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := executeCLI(t, "", "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidateCompileError(t *testing.T) {
	dir := chainsDir(t, `chain: shuffled: {
	ops: [{shuffle: "self"}]
	terminal: "count"
}
`)

	out, err := executeCLI(t, "", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "chain shuffled")
	assert.Contains(t, out, ErrCodeInvalidOp)
	assert.Contains(t, out, "ops[0].shuffle")
}

func TestValidateUnknownFunction(t *testing.T) {
	dir := chainsDir(t, `chain: primes: {
	ops: [{filter: "prime"}]
	terminal: "count"
}
`)

	out, err := executeCLI(t, "", "--format", "json", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	status, result, cliErr := decodeResponse[ValidationResult](t, out)
	assert.Equal(t, "error", status)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "E125", result.Errors[0].Code)
	assert.Equal(t, "primes", result.Errors[0].Chain)
	require.NotNil(t, cliErr)
	assert.Equal(t, "E125", cliErr.Code)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := chainsDir(t, `chain: a: {
	ops: [{refine_sort_by: "self"}]
	terminal: "to_array"
}

chain: b: {
	terminal: {fn: "add"}
}

chain: c: {
	ops: [{sort_by: "self", key_type: "date"}]
	terminal: "to_list"
}
`)

	out, err := executeCLI(t, "", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalidTerminal) // b
	assert.Contains(t, out, "E121")                 // a
	assert.Contains(t, out, "E124")                 // c
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	dir := chainsDir(t, `chain: resorted: {
	ops: [
		{sort_by: "mod3"},
		{sort_by: "self"},
	]
	terminal: "to_array"
}
`)

	out, err := executeCLI(t, "", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: chain resorted ops[1]")
	assert.Contains(t, out, "✓ All chains valid (1)")
}

func TestValidateNoChainField(t *testing.T) {
	dir := chainsDir(t, "other: 1\n")

	out, err := executeCLI(t, "", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoChains)
}

func TestValidateVerboseOutput(t *testing.T) {
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"-v", "validate", filepath.Clean(fixtureChains)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "Found 1 CUE file(s)")
	assert.Contains(t, stderr.String(), "Validating chain: sortedDesc")
	assert.NotContains(t, stdout.String(), "Validating chain")
}
