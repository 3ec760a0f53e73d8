package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/descriptor"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Mixins int      `json:"mixins"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.cue>",
		Short: "Validate a mixin manifest",
		Long: `Validate a CUE mixin manifest: syntax, declaration shape, and
clause consistency. Collects every error instead of stopping at the
first. Exits non-zero when the manifest is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true}

	mods, err := loadManifest(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return outputValidation(formatter, result)
	}
	result.Mixins = len(mods)
	formatter.VerboseLog("Compiled %d mixin module(s) from %s", len(mods), path)

	// Collect per module so one bad module does not mask errors in others.
	for _, mod := range mods {
		if _, err := descriptor.Collect(mod); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err.Error())
		}
	}

	return outputValidation(formatter, result)
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(f.Writer, "valid: %d mixin module(s)\n", result.Mixins)
	} else {
		for _, msg := range result.Errors {
			fmt.Fprintf(f.Writer, "invalid: %s\n", msg)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "manifest is invalid")
	}
	return nil
}
