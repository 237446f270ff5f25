package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/consteval/internal/canon"
	"github.com/roach88/consteval/internal/loader"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Digest    string            `json:"digest,omitempty"`
	Classes   int               `json:"classes"`
	Functions int               `json:"functions"`
	Globals   int               `json:"globals"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError is a positioned problem in a program file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check that a program file loads",
		Long: `Load a program file and report the first positioned error, without
evaluating anything.

Exit codes:
  0 - The program loads
  1 - The program has errors
  2 - Command error (file not found)`,
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

	src, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}

	prog, err := loader.LoadBytes(path, src)
	if err != nil {
		return outputValidationErrors(formatter, []ValidationError{validationErrorOf(err)})
	}

	formatter.VerboseLog("Loaded %s", path)
	result := ValidationResult{
		Valid:     true,
		Digest:    canon.ProgramDigest(src),
		Classes:   len(prog.Classes),
		Functions: len(prog.Funcs),
		Globals:   len(prog.Globals),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %d classes, %d functions, %d globals\n",
		path, result.Classes, result.Functions, result.Globals)
	return nil
}

// validationErrorOf converts a loader error, keeping its position.
func validationErrorOf(err error) ValidationError {
	var cErr *loader.CompileError
	if errors.As(err, &cErr) {
		ve := ValidationError{Field: cErr.Field, Message: cErr.Message}
		if cErr.Pos.IsValid() {
			ve.Line = cErr.Pos.Line()
			ve.Column = cErr.Pos.Column()
		}
		return ve
	}
	return ValidationError{Field: "program", Message: err.Error()}
}

func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeLoad,
				Message: fmt.Sprintf("%d validation error(s)", len(errs)),
			},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %d validation error(s):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(formatter.Writer, "  %s: %s", e.Field, e.Message)
			if e.Line > 0 {
				fmt.Fprintf(formatter.Writer, " (line %d, column %d)", e.Line, e.Column)
			}
			fmt.Fprintln(formatter.Writer)
		}
	}
	return NewExitError(ExitFailure, "validation failed")
}
