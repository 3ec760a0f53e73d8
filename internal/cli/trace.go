package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/patch"
	"github.com/roach88/loom/internal/store"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <audit.db> [run-token]",
		Short: "Read a weave audit log",
		Long: `Read the weave audit log from a SQLite database. With no run
token, lists all runs in chronological order; with one, dumps that run's
outcomes in sequence order.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runToken := ""
			if len(args) == 2 {
				runToken = args[1]
			}
			return runTrace(rootOpts, args[0], runToken, cmd)
		},
	}
	return cmd
}

func runTrace(opts *RootOptions, dbPath, runToken string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dbPath); err != nil {
		formatter.Error(ErrCodeStoreOpen, fmt.Sprintf("audit database %s not found", dbPath), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		formatter.Error(ErrCodeStoreOpen, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	if runToken == "" {
		runs, err := st.Runs(ctx)
		if err != nil {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "reading runs", err)
		}
		var text strings.Builder
		for _, run := range runs {
			fmt.Fprintln(&text, run)
		}
		return formatter.SuccessText(text.String(), runs)
	}

	records, err := st.ReadRun(ctx, runToken)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading run", err)
	}
	return formatter.SuccessText(renderRecords(records), records)
}

func renderRecords(records []patch.AuditRecord) string {
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%04d %-8s %s %s", rec.Seq, rec.Status, rec.Mixin, rec.Target)
		if rec.Method != "" {
			fmt.Fprintf(&b, ".%s", rec.Method)
		}
		if rec.Spec != "" {
			fmt.Fprintf(&b, " %s/%s", rec.Kind, rec.Spec)
		}
		if rec.Detail != "" {
			fmt.Fprintf(&b, " (%s)", rec.Detail)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
