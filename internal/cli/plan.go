package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/resolver"
)

// PlanResult is the JSON shape of a resolution plan.
type PlanResult struct {
	Targets  []PlanTarget    `json:"targets"`
	Excluded []PlanExclusion `json:"excluded,omitempty"`
}

// PlanTarget lists one target's active mixins in application order.
type PlanTarget struct {
	Target string   `json:"target"`
	Mixins []string `json:"mixins"`
}

// PlanExclusion reports one excluded mixin and its cause.
type PlanExclusion struct {
	Mixin  string `json:"mixin"`
	Target string `json:"target"`
	Reason string `json:"reason"`
	Other  string `json:"other"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "plan <manifest.cue>",
		Short: "Show the weave plan for a manifest",
		Long: `Resolve a manifest's mixins and print the per-target activation
order plus any exclusions, without touching a target world. This is the
exact ordering a weave of the same manifest would use.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], strict, cmd)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any mixin is excluded")

	return cmd
}

func runPlan(opts *RootOptions, path string, strict bool, cmd *cobra.Command) error {
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
	descs, err := collectAll(mods)
	if err != nil {
		formatter.Error(ErrCodeCollect, err.Error(), nil)
		return WrapExitError(ExitFailure, "collect failed", err)
	}

	res := resolver.Resolve(descs)

	result := PlanResult{}
	var text strings.Builder
	for _, target := range res.Targets() {
		var mixins []string
		for _, d := range res.ForTarget(target) {
			mixins = append(mixins, d.Mixin)
		}
		result.Targets = append(result.Targets, PlanTarget{Target: target, Mixins: mixins})
		fmt.Fprintf(&text, "%s: %s\n", target, strings.Join(mixins, " -> "))
	}
	for _, ex := range res.Excluded() {
		result.Excluded = append(result.Excluded, PlanExclusion{
			Mixin:  ex.Desc.Mixin,
			Target: ex.Desc.Target,
			Reason: string(ex.Err.Reason),
			Other:  ex.Err.Other,
		})
		fmt.Fprintf(&text, "excluded %s: %s\n", ex.Desc.Mixin, ex.Err.Error())
	}

	if err := formatter.SuccessText(text.String(), result); err != nil {
		return err
	}
	if strict && len(res.Excluded()) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d mixin(s) excluded", len(res.Excluded())))
	}
	return nil
}
