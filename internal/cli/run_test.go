package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countEvens = `name: count_evens
description: "Counting after a filter is one forward loop"
chain:
  ops:
    - filter: even
  terminal: count
input: [1, 2, 3, 4, 6]
assertions:
  - type: result
    value: 3
  - type: loops
    loops: [forward]
  - type: matches_reference
`

const wrongCount = `name: wrong_count
description: "The expected value is wrong on purpose"
chain:
  terminal: {kind: count}
input: [4, 9, 2]
assertions:
  - type: result
    value: 4
`

func TestRun_HarnessScenarios(t *testing.T) {
	out, err := executeCLI(t, "", "run", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ streaming_first [sort forward]")
	assert.Contains(t, out, "✓ single_multiple")
	assert.Contains(t, out, "Run Summary: 7 passed, 0 failed, 7 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestRun_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "count_evens.yaml", countEvens)
	writeFile(t, dir, "wrong_count.yaml", wrongCount)

	out, err := executeCLI(t, "", "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ count_evens [forward]")
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "Actual: 3")
	assert.Contains(t, out, "Run Summary: 1 passed, 1 failed, 2 total")
}

func TestRun_FilesAndFilter(t *testing.T) {
	dir := t.TempDir()
	evens := writeFile(t, dir, "count_evens.yaml", countEvens)
	writeFile(t, dir, "wrong_count.yaml", wrongCount)

	out, err := executeCLI(t, "", "run", "--filter", "count_*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	out, err = executeCLI(t, "", "run", evens)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ count_evens")

	out, err = executeCLI(t, "", "run", "--filter", "nothing_*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRun_Golden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "count_evens.yaml", countEvens)
	goldenPath := filepath.Join(dir, "golden", "count_evens.golden")

	_, err := executeCLI(t, "", "run", "--update", dir)
	require.NoError(t, err)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), "scenario count_evens\n")
	assert.Contains(t, string(golden), "result 3\n")

	_, err = executeCLI(t, "", "run", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("scenario count_evens\nresult 4\n"), 0644))
	out, err := executeCLI(t, "", "run", dir)
	require.Error(t, err)
	assert.Contains(t, out, "plan does not match golden file")
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "count_evens.yaml", countEvens)
	writeFile(t, dir, "wrong_count.yaml", wrongCount)

	out, err := executeCLI(t, "", "--format", "json", "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	status, result, cliErr := decodeResponse[RunResult](t, out)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 2)
	assert.True(t, result.Scenarios[0].Pass)
	assert.Equal(t, []string{"forward"}, result.Scenarios[0].Loops)
	assert.False(t, result.Scenarios[1].Pass)
	assert.NotEmpty(t, result.Scenarios[1].Errors)
}

func TestRun_BadInputs(t *testing.T) {
	_, err := executeCLI(t, "", "run", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")

	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")
	out, err := executeCLI(t, "", "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "")
	writeFile(t, dir, "nested/b.yml", "")
	writeFile(t, dir, "golden/a.yaml", "")
	writeFile(t, dir, "notes.txt", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yml"),
	}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
