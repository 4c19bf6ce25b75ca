package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wodrun/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Name       string                     `json:"name"`
	Statements int                        `json:"statements"`
	Valid      bool                       `json:"valid"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script>",
		Short: "Validate a statement script without running it",
		Long: `Validate a statement script (.yaml, .json or .cue) without running it.

CUE documents are checked against the statement schema first. The script is
then annotated and checked for bad timers and rounds, parent/child
mismatches, leading "+" laps, statement cycles and float values.

Exit codes:
  0 - Script is valid
  1 - Validation failed
  2 - Command error (script missing or unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadScript(path, false)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d statement(s) from %s", loaded.Script.Len(), path)

	result := ValidationResult{
		Name:       loaded.Name,
		Statements: loaded.Script.Len(),
		Errors:     compiler.Validate(loaded.Script),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid (%d statements)\n", result.Name, result.Statements)
	return nil
}

// outputLoadError reports a script that could not be loaded. Load failures
// are command-level errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	var details interface{}
	if loadErr.Pos.IsValid() {
		details = map[string]interface{}{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)
	return WrapExitError(ExitCommandError, loadErr.Code, loadErr)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := encodeJSON(formatter.Writer, response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Statement > 0 {
			fmt.Fprintf(formatter.Writer, "statement %d\n", err.Statement)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return failure
}
