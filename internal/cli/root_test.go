package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chainfuse", cmd.Use)
	assert.Contains(t, cmd.Long, "fused loops")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "plan", "run", "sort", "cache"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestPlanCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	planCmd, _, err := cmd.Find([]string{"plan"})
	require.NoError(t, err)

	for _, name := range []string{"db", "label", "no-fold"} {
		assert.NotNil(t, planCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	updateFlag := runCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)
	assert.NotNil(t, runCmd.Flags().Lookup("filter"))
}

func TestSortCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sortCmd, _, err := cmd.Find([]string{"sort"})
	require.NoError(t, err)

	keyFlag := sortCmd.Flags().Lookup("key")
	require.NotNil(t, keyFlag)
	assert.Equal(t, "[asc]", keyFlag.DefValue)
}

func TestCacheSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"list", "show"} {
		sub, _, err := cmd.Find([]string{"cache", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestCommandHelp(t *testing.T) {
	out, err := executeCLI(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "chainfuse")
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "sort")
}

func TestFormatValidation(t *testing.T) {
	_, err := executeCLI(t, "1\n", "--format", "yaml", "sort")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
