package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CompiledMixin is one mixin's compiled summary in the JSON output.
type CompiledMixin struct {
	Mixin       string `json:"mixin"`
	Target      string `json:"target"`
	Specs       int    `json:"specs"`
	Priority    int    `json:"priority"`
	Fingerprint string `json:"fingerprint"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <manifest.cue>",
		Short: "Compile a mixin manifest to descriptors",
		Long: `Compile a CUE mixin manifest into descriptors and print their
fingerprints. Handler references are stubbed: compilation checks manifest
shape and declaration validity, not handler implementations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCompile(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mods, err := loadManifest(path)
	if err != nil {
		formatter.Error(ErrCodeCompile, err.Error(), nil)
		return WrapExitError(ExitFailure, "compile failed", err)
	}
	formatter.VerboseLog("Compiled %d mixin module(s) from %s", len(mods), path)

	descs, err := collectAll(mods)
	if err != nil {
		formatter.Error(ErrCodeCollect, err.Error(), nil)
		return WrapExitError(ExitFailure, "collect failed", err)
	}

	var out []CompiledMixin
	var text strings.Builder
	for _, d := range descs {
		fp, err := d.Fingerprint()
		if err != nil {
			formatter.Error(ErrCodeCollect, err.Error(), nil)
			return WrapExitError(ExitFailure, "fingerprint failed", err)
		}
		out = append(out, CompiledMixin{
			Mixin:       d.Mixin,
			Target:      d.Target,
			Specs:       len(d.Specs()),
			Priority:    d.Priority(),
			Fingerprint: fp,
		})
		fmt.Fprintf(&text, "%s -> %s  specs=%d priority=%d\n  %s\n",
			d.Mixin, d.Target, len(d.Specs()), d.Priority(), fp)
	}

	return formatter.SuccessText(text.String(), out)
}
