package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/compiler"
	"github.com/roach88/chainfuse/internal/exec"
	"github.com/roach88/chainfuse/internal/plan"
	"github.com/roach88/chainfuse/internal/store"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	DatabasePath string
	Label        string
	NoFold       bool
}

// PlannedChain is one chain's decomposition as reported by the plan command.
type PlannedChain struct {
	Name       string   `json:"name"`
	Hash       string   `json:"hash"`
	Loops      []string `json:"loops"`
	SortPieces int      `json:"sort_pieces"`
	Cached     *bool    `json:"cached,omitempty"` // set only with --db; true if already stored
	Plan       string   `json:"plan"`
}

// ArenaSummary reports how much the planned chains share once interned.
type ArenaSummary struct {
	Chains    int `json:"chains"`    // distinct chains that need their own plan
	Ops       int `json:"ops"`       // distinct operators
	Positions int `json:"positions"` // prefix trie positions, roots included
}

// PlanResult holds the plan command's output.
type PlanResult struct {
	RunID  string         `json:"run_id,omitempty"`
	Chains []PlannedChain `json:"chains"`
	Arena  ArenaSummary   `json:"arena"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <chains-dir>",
		Short: "Decompose chains into fused pieces",
		Long: `Compile every chain in a directory and print its decomposition.

Each piece is one loop: forward, backward or a stable sort. With --db the
plans are also written to a SQLite plan cache; a chain already cached under
the same hash is reported as cached and left untouched.

Examples:
  chainfuse plan ./chains
  chainfuse plan ./chains --db plans.db --label nightly
  chainfuse plan ./chains --no-fold --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DatabasePath, "db", "", "SQLite plan cache to write")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label recorded with the cache run")
	cmd.Flags().BoolVar(&opts.NoFold, "no-fold", false, "never fold a leading sort into its successor")

	return cmd
}

func runPlan(ctx context.Context, opts *PlanOptions, chainsDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadChains(chainsDir, LoadModeFailFast)
	if loadResult == nil || len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}
	if errs := compiler.ValidateAll(loadResult.Specs, exec.Builtins()); len(errs) > 0 {
		_ = formatter.Error(errs[0].Code, errs[0].Error(), errs)
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid chain(s), run validate for details", len(errs)))
	}

	var planOpts []plan.Option
	if opts.NoFold {
		planOpts = append(planOpts, plan.WithoutLeadingFold())
	}

	var st *store.Store
	result := PlanResult{Chains: make([]PlannedChain, 0, len(loadResult.Specs))}
	if opts.DatabasePath != "" {
		var err error
		st, err = store.Open(opts.DatabasePath)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open plan cache", err)
		}
		defer st.Close()

		label := opts.Label
		if label == "" {
			label = "plan " + chainsDir
		}
		if result.RunID, err = st.BeginRun(ctx, store.UUIDv7Generator{}, label); err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to start cache run", err)
		}
		slog.Debug("plan cache run started", "run_id", result.RunID, "db", opts.DatabasePath)
	}

	arena := chain.NewArena()
	for _, spec := range loadResult.Specs {
		if _, err := arena.AddChain(spec.Chain); err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("%s: %v", spec.Name, err), nil)
			return WrapExitError(ExitFailure, "intern "+spec.Name, err)
		}

		p, err := plan.Build(spec.Chain, planOpts...)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("%s: %v", spec.Name, err), nil)
			return WrapExitError(ExitFailure, "plan "+spec.Name, err)
		}

		planned := PlannedChain{
			Name:       spec.Name,
			Hash:       p.Hash,
			Loops:      loopNames(p),
			SortPieces: p.SortPieces(),
			Plan:       p.Describe(),
		}
		if st != nil {
			inserted, err := st.SavePlan(ctx, result.RunID, spec.Name, p)
			if err != nil {
				_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to cache plan "+spec.Name, err)
			}
			cached := !inserted
			planned.Cached = &cached
		}
		result.Chains = append(result.Chains, planned)
	}
	result.Arena = ArenaSummary{
		Chains:    len(arena.Leaves()),
		Ops:       arena.Len(),
		Positions: arena.Positions(),
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, c := range result.Chains {
		status := ""
		if c.Cached != nil {
			status = " (saved)"
			if *c.Cached {
				status = " (cached)"
			}
		}
		fmt.Fprintf(w, "%s%s\n", c.Name, status)
		fmt.Fprint(w, c.Plan)
	}
	fmt.Fprintf(w, "arena: %d distinct chain(s), %d op(s), %d position(s)\n",
		result.Arena.Chains, result.Arena.Ops, result.Arena.Positions)
	if result.RunID != "" {
		fmt.Fprintf(w, "run %s\n", result.RunID)
	}
	return nil
}

// loopNames lists the loop of every piece in order.
func loopNames(p *plan.Plan) []string {
	loops := make([]string, len(p.Pieces))
	for i, piece := range p.Pieces {
		loops[i] = piece.Loop.String()
	}
	return loops
}
