package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/manifest"
	"github.com/roach88/loom/internal/patch"
	"github.com/roach88/loom/internal/testutil"
)

// Result is the rendered outcome of one scenario: the weave report plus
// the runtime trace in firing order.
type Result struct {
	Report *patch.Report
	Trace  []string
}

// Render produces the deterministic plain text compared against golden
// files: the report, a separator, then the trace.
func (r *Result) Render() string {
	var b strings.Builder
	b.WriteString(r.Report.Render())
	b.WriteString("--\n")
	for _, line := range r.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Run executes a scenario against a fresh fixture world.
//
// Execution flow:
//  1. Build the fixture world and handler table
//  2. Register the scenario's mixins
//  3. Weave with the scenario's fixed run token
//  4. Invoke the flow steps, recording handler firings and results
func Run(scenario *Scenario) (*Result, error) {
	rec := &Recorder{}
	world := NewFixtureWorld()
	table := FixtureTable(rec)

	opts := []patch.EngineOption{
		patch.WithTokenGenerator(testutil.NewFixedTokens(scenario.RunToken)),
		// Suppress logs in tests.
		patch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.StrictMatch {
		opts = append(opts, patch.WithStrictMatch())
	}
	eng := patch.New(world, opts...)

	for _, decl := range scenario.Mixins {
		mod, err := buildModule(decl, table)
		if err != nil {
			return nil, err
		}
		if err := eng.RegisterMixin(mod); err != nil {
			return nil, fmt.Errorf("scenario %s: register %s: %w", scenario.Name, decl.Name, err)
		}
	}

	ctx := context.Background()
	report, err := eng.Weave(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: weave: %w", scenario.Name, err)
	}

	objects := map[string]*ir.Object{}
	for _, step := range scenario.Flow {
		recv := objects[step.Type]
		if recv == nil {
			recv, err = world.NewObject(step.Type)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			objects[step.Type] = recv
		}

		args, err := convertArgs(step.Args)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}

		rec.Eventf("invoke %s.%s%s(%s)", step.Type, step.Method, step.Sig, formatCallArgs(args))
		result, err := world.Invoke(step.Type, recv, step.Method, step.Sig, args...)
		if err != nil {
			rec.Eventf("error %v", err)
			continue
		}
		rec.Eventf("result %s", ir.FormatValue(result))
	}

	return &Result{Report: report, Trace: rec.Lines()}, nil
}

// buildModule converts a scenario mixin declaration into a descriptor
// module, resolving handler names against the fixture table.
func buildModule(decl MixinDecl, table manifest.HandlerTable) (descriptor.Module, error) {
	mod := descriptor.Module{
		Name:      decl.Name,
		Target:    decl.Target,
		Requires:  decl.Requires,
		Conflicts: decl.Conflicts,
	}

	for _, sd := range decl.Decls {
		d := descriptor.Decl{
			Name:        sd.Name,
			Method:      sd.Method,
			Sig:         sd.Sig,
			HandlerName: sd.Handler,
		}

		if sd.Inject != nil {
			d.Inject = &descriptor.InjectClause{
				At:          descriptor.InjectionPoint(sd.Inject.At),
				Priority:    sd.Inject.Priority,
				Cancellable: sd.Inject.Cancellable,
			}
		}
		if sd.Redirect != nil {
			d.Redirect = &descriptor.RedirectClause{Call: sd.Redirect.Call, Arity: sd.Redirect.Arity}
		}
		if sd.Overwrite != nil {
			d.Overwrite = &descriptor.OverwriteClause{PreserveOriginal: sd.Overwrite.PreserveOriginal}
		}
		if sd.Multi != nil {
			var at []descriptor.InjectionPoint
			for _, p := range sd.Multi.At {
				at = append(at, descriptor.InjectionPoint(p))
			}
			d.Multi = &descriptor.MultiClause{At: at, Priority: sd.Multi.Priority}
		}

		if sd.Transform != "" {
			fn, ok := table.Transforms[sd.Transform]
			if !ok {
				return mod, fmt.Errorf("mixin %s: decl %s: unknown transform %q", decl.Name, sd.Name, sd.Transform)
			}
			d.Transform = fn
			if d.HandlerName == "" {
				d.HandlerName = sd.Transform
			}
		}
		if sd.Condition != "" {
			cond, ok := table.Conditions[sd.Condition]
			if !ok {
				return mod, fmt.Errorf("mixin %s: decl %s: unknown condition %q", decl.Name, sd.Name, sd.Condition)
			}
			d.Condition = cond
		}
		if sd.Handler != "" {
			if sd.Redirect != nil {
				fn, ok := table.Calls[sd.Handler]
				if !ok {
					return mod, fmt.Errorf("mixin %s: decl %s: unknown call handler %q", decl.Name, sd.Name, sd.Handler)
				}
				d.Call = fn
			} else {
				fn, ok := table.Handlers[sd.Handler]
				if !ok {
					return mod, fmt.Errorf("mixin %s: decl %s: unknown handler %q", decl.Name, sd.Name, sd.Handler)
				}
				d.Handler = fn
			}
		}

		mod.Decls = append(mod.Decls, d)
	}

	return mod, nil
}

// convertArgs maps scenario YAML literals onto IR values.
func convertArgs(raw []any) ([]ir.Value, error) {
	args := make([]ir.Value, len(raw))
	for i, v := range raw {
		switch val := v.(type) {
		case int:
			args[i] = ir.Int(int64(val))
		case int64:
			args[i] = ir.Int(val)
		case string:
			args[i] = ir.Str(val)
		case bool:
			args[i] = ir.Bool(val)
		case nil:
			args[i] = ir.Null{}
		default:
			return nil, fmt.Errorf("unsupported arg literal %T (floats are not part of the value model)", v)
		}
	}
	return args, nil
}

func formatCallArgs(args []ir.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = ir.FormatValue(a)
	}
	return strings.Join(parts, ", ")
}
