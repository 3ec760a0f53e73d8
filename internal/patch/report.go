package patch

import (
	"context"
	"fmt"
	"strings"
)

// Outcome statuses carried in reports and audit records.
const (
	// StatusApplied marks a spec whose rewrite or hook landed.
	StatusApplied = "APPLIED"

	// StatusSkipped marks a spec that failed locally (resolution, pattern,
	// handler signature). The rest of the weave proceeded.
	StatusSkipped = "SKIPPED"

	// StatusExcluded marks a descriptor dropped during resolution
	// (conflict or unmet require). None of its specs were attempted.
	StatusExcluded = "EXCLUDED"
)

// Outcome is the result of one spec (or, for exclusions, one descriptor)
// within a weave run.
type Outcome struct {
	Mixin  string
	Target string
	Method string
	Spec   string
	Kind   string
	Phase  string
	Status string
	Detail string
}

// Report is the full account of one weave run. Outcomes appear in
// application order: exclusions first, then per-method in key order, then
// per-phase within a method.
type Report struct {
	RunToken string
	Outcomes []Outcome
}

// Counts returns the number of applied, skipped, and excluded outcomes.
func (r *Report) Counts() (applied, skipped, excluded int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusApplied:
			applied++
		case StatusSkipped:
			skipped++
		case StatusExcluded:
			excluded++
		}
	}
	return
}

// Summary renders a one-line digest for logs and CLI output.
func (r *Report) Summary() string {
	applied, skipped, excluded := r.Counts()
	return fmt.Sprintf("run %s: %d applied, %d skipped, %d excluded",
		r.RunToken, applied, skipped, excluded)
}

// Render writes the report as deterministic plain text, one outcome per
// line. The shape is stable; golden tests depend on it.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunToken)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "%-8s %s %s", o.Status, o.Mixin, o.Target)
		if o.Method != "" {
			fmt.Fprintf(&b, ".%s", o.Method)
		}
		if o.Spec != "" {
			fmt.Fprintf(&b, " %s/%s", o.Kind, o.Spec)
		}
		if o.Detail != "" {
			fmt.Fprintf(&b, " (%s)", o.Detail)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// AuditRecord is one persisted outcome, stamped with the run token and the
// engine clock's sequence number.
type AuditRecord struct {
	RunToken string
	Seq      int64
	Mixin    string
	Target   string
	Method   string
	Spec     string
	Kind     string
	Phase    string
	Status   string
	Detail   string
}

// AuditSink persists weave outcomes. Implemented by the sqlite store; nil
// sinks are valid and mean auditing is off. Sink failures are logged and
// never fail the weave.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}
