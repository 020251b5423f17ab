package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chainfuse/internal/compiler"
	"github.com/roach88/chainfuse/internal/exec"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Chains   int                        `json:"chains"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.Warning         `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <chains-dir>",
		Short: "Validate chain definitions",
		Long: `Validate the CUE chain definitions in a directory.

Every chain is compiled and checked against the builtin function registry:
operator arity, ordering refinements, key types and terminal functions.
Lint warnings are printed but do not fail validation.

Exit codes:
  0 - All chains valid
  1 - One or more chains invalid
  2 - Command error (missing directory, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, chainsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadChains(chainsDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, chainsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, loadErrorToValidation(err))
	}
	for _, spec := range loadResult.Specs {
		formatter.VerboseLog("Validating chain: %s", spec.Name)
	}
	validationErrors = append(validationErrors, compiler.ValidateAll(loadResult.Specs, exec.Builtins())...)

	result := ValidationResult{
		Valid:    len(validationErrors) == 0,
		Chains:   len(loadResult.Specs),
		Errors:   validationErrors,
		Warnings: compiler.Analyze(loadResult.Specs),
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// loadErrorToValidation folds a loader error into the validation report.
func loadErrorToValidation(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("line %d: %s", loadErr.Pos.Line(), msg)
		}
		return compiler.ValidationError{
			Chain:   loadErr.Chain,
			Field:   "load",
			Message: msg,
			Code:    loadErr.Code,
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputLoadError reports a loader failure that left nothing to validate.
// These are command-level errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	printWarnings(formatter, result.Warnings)
	fmt.Fprintf(formatter.Writer, "✓ All chains valid (%d)\n", result.Chains)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.IsJSON() {
		first := result.Errors[0]
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return failErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range result.Errors {
		if err.Chain != "" {
			fmt.Fprintf(formatter.Writer, "chain %s\n", err.Chain)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	printWarnings(formatter, result.Warnings)

	return failErr
}

func printWarnings(formatter *OutputFormatter, warnings []compiler.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "%s: chain %s %s: %s\n", w.Level, w.Chain, w.Field, w.Message)
	}
}
