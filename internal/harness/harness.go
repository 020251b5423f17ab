package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/chainfuse/internal/compiler"
	"github.com/roach88/chainfuse/internal/exec"
	"github.com/roach88/chainfuse/internal/plan"
	"github.com/roach88/chainfuse/internal/store"
	"github.com/roach88/chainfuse/internal/testutil"
)

// Harness runs scenarios against one registry and one plan cache.
type Harness struct {
	store  *store.Store
	reg    *exec.Registry
	runID  string
	logger *slog.Logger
}

// Run executes a scenario with the builtin function registry.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Compile the scenario's chain and validate it against the registry
//  2. Build the plan, save it and load it back from the store
//  3. Run the plan and the naive reference over the input
//  4. Evaluate assertions against the outcome
//
// The returned error covers setup failures (a chain that does not compile
// or validate, a broken store). Failed assertions are reported in
// Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithRegistry(scenario, exec.Builtins())
}

// RunWithRegistry is Run with a caller-supplied function registry.
func RunWithRegistry(scenario *Scenario, reg *exec.Registry) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	runID, err := st.BeginRun(ctx, testutil.NewFixedRunID(scenario.Name), scenario.Description)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		reg:    reg,
		runID:  runID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	spec, err := CompileScenarioChain(scenario)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(spec, h.reg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid chain: %w", errs[0])
	}

	var opts []plan.Option
	if scenario.NoFold {
		opts = append(opts, plan.WithoutLeadingFold())
	}
	p, err := plan.Build(spec.Chain, opts...)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Plan = p.Describe()
	for _, piece := range p.Pieces {
		result.Loops = append(result.Loops, piece.Loop.String())
	}
	result.SortPieces = p.SortPieces()

	if err := h.checkRoundTrip(ctx, spec.Name, p, result); err != nil {
		return nil, err
	}

	out, runErr := exec.Run(ctx, p, scenario.Input, h.reg)
	if err := record(runErr, out, &result.Output, &result.ErrorCode); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	ref, refErr := exec.Reference(spec.Chain, scenario.Input, h.reg)
	if err := record(refErr, ref, &result.Reference, &result.ReferenceErrorCode); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"hash", p.Hash[:12],
		"pieces", len(p.Pieces),
		"error_code", result.ErrorCode,
	)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkRoundTrip saves p and reads it back. A stored plan must describe
// exactly like the one that was built.
func (h *Harness) checkRoundTrip(ctx context.Context, name string, p *plan.Plan, result *Result) error {
	if _, err := h.store.SavePlan(ctx, h.runID, name, p); err != nil {
		return err
	}
	loaded, err := h.store.LoadPlan(ctx, p.Hash, p.LeadingFolded())
	if err != nil {
		return err
	}
	if got := loaded.Describe(); got != result.Plan {
		result.AddError(fmt.Sprintf("stored plan differs:\n%s\nwant:\n%s", got, result.Plan))
	}
	return nil
}

// record stores a run outcome. Runtime errors are data-dependent outcomes
// and are kept by code; any other error is returned.
func record(runErr error, value any, out *any, code *string) error {
	if runErr == nil {
		*out = value
		return nil
	}
	c := exec.ErrorCode(runErr)
	if c == "" {
		return runErr
	}
	*code = string(c)
	return nil
}

// CompileScenarioChain compiles the scenario's chain through the same CUE
// path as chain spec files, so both accept exactly the same shapes.
func CompileScenarioChain(scenario *Scenario) (*compiler.Spec, error) {
	v := cuecontext.New().Encode(scenario.Chain)
	spec, err := compiler.CompileChain(v)
	if err != nil {
		return nil, fmt.Errorf("compile chain: %w", err)
	}
	spec.Name = scenario.Name
	return spec, nil
}
