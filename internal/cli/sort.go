package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/exec"
	"github.com/roach88/chainfuse/internal/sorting"
)

// SortOptions holds flags for the sort command.
type SortOptions struct {
	*RootOptions
	Keys []string // one direction per leading column, outermost first
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SortOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Stable multi-key sort of integer rows from stdin",
		Long: `Sort whitespace-separated integer rows read from stdin.

Each --key flag adds one key column, in priority order: the first --key
sorts by column 1, the second breaks ties by column 2, and so on. Rows that
compare equal on every key keep their input order. Columns beyond the keys
are carried along unchanged.

Examples:
  printf '2 1\n1 9\n2 0\n' | chainfuse sort
  printf '2 1\n1 9\n2 0\n' | chainfuse sort --key desc --key asc`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(opts, cmd.InOrStdin(), cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Keys, "key", []string{"asc"}, "key direction per column (asc|desc), repeatable")

	return cmd
}

func runSort(opts *SortOptions, in io.Reader, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dirs := make([]sorting.Direction, len(opts.Keys))
	for i, k := range opts.Keys {
		d, err := chain.ParseDirection(k)
		if err != nil {
			_ = formatter.Error(ErrCodeBadInput, fmt.Sprintf("--key %d: %v", i+1, err), nil)
			return WrapExitError(ExitCommandError, "invalid key direction", err)
		}
		dirs[i] = exec.SortDirection(d)
	}

	rows, err := readRows(in, len(dirs))
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid input", err)
	}
	formatter.VerboseLog("Sorting %d row(s) by %d key(s)", len(rows), len(dirs))

	sorted := sortRows(rows, dirs)

	if formatter.IsJSON() {
		return formatter.Success(sorted)
	}
	for _, row := range sorted {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = strconv.Itoa(v)
		}
		fmt.Fprintln(formatter.Writer, strings.Join(fields, " "))
	}
	return nil
}

// readRows parses one row per non-blank line. Every row needs at least
// minCols columns.
func readRows(in io.Reader, minCols int) ([][]int, error) {
	var rows [][]int
	scanner := bufio.NewScanner(in)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < minCols {
			return nil, fmt.Errorf("line %d: %d column(s), need at least %d", line, len(fields), minCols)
		}
		row := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %q is not an integer", line, i+1, f)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return rows, nil
}

// sortRows extracts one dense key buffer per key column, sorts a rented
// index map and applies it to a fresh row slice.
func sortRows(rows [][]int, dirs []sorting.Direction) [][]int {
	n := len(rows)
	keys := make([]sorting.Keys, len(dirs))
	for col, dir := range dirs {
		values := make([]int, n)
		for i, row := range rows {
			values[i] = row[col]
		}
		keys[col] = sorting.Ordered[int]{Values: values, Dir: dir}
	}

	scratch := sorting.RentIndex(n)
	defer scratch.Release()
	sorting.Sort(n, scratch.Index, keys...)

	sorted := make([][]int, n)
	sorting.Apply(sorted, rows, scratch.Index)
	return sorted
}
