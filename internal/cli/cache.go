package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/store"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	DatabasePath string
}

// SharedOp is one op of a cached chain with the chains that reuse it.
type SharedOp struct {
	Op     string   `json:"op"`
	Hash   string   `json:"hash"`
	Chains []string `json:"chains"`
}

// CachedPlan is the cache show payload. Plans holds every stored
// decomposition of the chain, unfolded first.
type CachedPlan struct {
	Name  string     `json:"name"`
	Hash  string     `json:"hash"`
	RunID string     `json:"run_id"`
	Plans []string   `json:"plans"`
	Ops   []SharedOp `json:"ops"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the SQLite plan cache",
		Long: `Inspect plans written by "chainfuse plan --db".

Examples:
  chainfuse cache list --db plans.db
  chainfuse cache show 91cb673c79e0 --db plans.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.DatabasePath, "db", "", "SQLite plan cache (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List cached chains",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(cmd.Context(), opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <hash-or-prefix>",
		Short:         "Show a cached plan and the chains sharing its ops",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheShow(cmd.Context(), opts, args[0], cmd)
		},
	})

	return cmd
}

// openCache opens an existing plan cache. A missing file is an error here,
// since store.Open would silently create an empty one.
func openCache(opts *CacheOptions, formatter *OutputFormatter) (*store.Store, error) {
	if _, err := os.Stat(opts.DatabasePath); os.IsNotExist(err) {
		msg := fmt.Sprintf("plan cache not found: %s", opts.DatabasePath)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	st, err := store.Open(opts.DatabasePath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open plan cache", err)
	}
	return st, nil
}

func newCacheFormatter(opts *CacheOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func runCacheList(ctx context.Context, opts *CacheOptions, cmd *cobra.Command) error {
	formatter := newCacheFormatter(opts, cmd)
	st, err := openCache(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	chains, err := st.ListChains(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list plan cache", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(chains)
	}
	if len(chains) == 0 {
		fmt.Fprintln(formatter.Writer, "No cached chains.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHASH\tTERMINAL\tFOLD\tOPS\tPIECES\tSORTS")
	for _, c := range chains {
		fold := "no"
		if c.LeadingFolded {
			fold = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n", c.Name, c.Hash[:12], c.Terminal, fold, c.Ops, c.Pieces, c.SortPieces)
	}
	return tw.Flush()
}

func runCacheShow(ctx context.Context, opts *CacheOptions, ref string, cmd *cobra.Command) error {
	formatter := newCacheFormatter(opts, cmd)
	st, err := openCache(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	hash, err := resolveHash(ctx, st, ref)
	if err != nil {
		code := ErrCodeDatabase
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cache show", err)
	}

	rec, err := st.LoadChain(ctx, hash)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cache show", err)
	}
	plans, err := st.LoadPlans(ctx, hash)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cache show", err)
	}

	shown := CachedPlan{
		Name:  rec.Name,
		Hash:  hash,
		RunID: rec.RunID,
		Plans: make([]string, 0, len(plans)),
		Ops:   make([]SharedOp, 0, len(rec.Chain.Ops)),
	}
	for _, p := range plans {
		shown.Plans = append(shown.Plans, p.Describe())
	}
	for _, op := range rec.Chain.Ops {
		opHash := chain.OpHash(op)
		users, err := st.ChainsUsingOp(ctx, opHash)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "cache show", err)
		}
		shown.Ops = append(shown.Ops, SharedOp{Op: op.String(), Hash: opHash, Chains: users})
	}

	if formatter.IsJSON() {
		return formatter.Success(shown)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s (run %s)\n", shown.Name, shown.RunID)
	for _, desc := range shown.Plans {
		fmt.Fprint(w, desc)
	}
	for _, op := range shown.Ops {
		fmt.Fprintf(w, "  op %s shared by %d chain(s)\n", op.Op, len(op.Chains))
	}
	return nil
}

// resolveHash expands a unique hash prefix to the full chain hash.
func resolveHash(ctx context.Context, st *store.Store, ref string) (string, error) {
	chains, err := st.ListChains(ctx)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, c := range chains {
		// A chain stored with both fold modes is listed twice.
		if strings.HasPrefix(c.Hash, ref) && !slices.Contains(matches, c.Hash) {
			matches = append(matches, c.Hash)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("hash prefix %s is ambiguous: %d chains", ref, len(matches))
	}
}
