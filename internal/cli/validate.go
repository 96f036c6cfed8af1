package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wander/internal/journey"
)

// ValidationIssue is one problem found in a journey directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Journeys  []string          `json:"journeys,omitempty"`
	FileCount int               `json:"file_count"`
	Issues    []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <journeys-dir>",
		Short: "Validate journey files without exploring",
		Long: `Validate CUE journey files: syntax, action declarations, preconditions,
and invariant definitions. Collects every problem instead of stopping at
the first one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, loadErrs := journey.LoadJourneys(dir, journey.LoadModeCollectAll)

	result := ValidationResult{Valid: len(loadErrs) == 0}
	if loaded != nil {
		result.FileCount = loaded.FileCount
		for _, j := range loaded.Journeys {
			result.Journeys = append(result.Journeys, j.Name)
		}
	}
	for _, err := range loadErrs {
		var loadErr *journey.LoadError
		if errors.As(err, &loadErr) {
			result.Issues = append(result.Issues, ValidationIssue{Code: loadErr.Code, Message: loadErr.Message})
		} else {
			result.Issues = append(result.Issues, ValidationIssue{Code: journey.ErrCodeGeneric, Message: err.Error()})
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		if err := formatter.Success(renderValidation(&result)); err != nil {
			return err
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation issue(s)", len(result.Issues)))
	}
	return nil
}

func renderValidation(r *ValidationResult) string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "OK: %d journey(s) in %d file(s)", len(r.Journeys), r.FileCount)
		for _, name := range r.Journeys {
			fmt.Fprintf(&b, "\n  %s", name)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "INVALID: %d issue(s)", len(r.Issues))
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "\n  [%s] %s", issue.Code, issue.Message)
	}
	return b.String()
}
