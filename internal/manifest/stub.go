package manifest

import (
	"cuelang.org/go/cue"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
)

// StubTable builds a handler table mapping every name the manifest
// references to a no-op implementation.
//
// Inspection tooling (compile, validate, plan) works on manifest metadata
// alone and has no access to the real handler functions, which live in
// the embedding program. Stubbing keeps collection and resolution honest
// for those paths without executing anything.
func StubTable(v cue.Value) (HandlerTable, error) {
	table := HandlerTable{
		Handlers:   map[string]ir.HandlerFunc{},
		Conditions: map[string]ir.Condition{},
		Calls:      map[string]ir.Callable{},
		Transforms: map[string]descriptor.TransformFunc{},
	}
	if err := v.Err(); err != nil {
		return table, formatCUEError(err)
	}

	mixinVal := v.LookupPath(cue.ParsePath("mixin"))
	if !mixinVal.Exists() {
		return table, nil
	}
	mixins, err := mixinVal.Fields()
	if err != nil {
		return table, formatCUEError(err)
	}

	for mixins.Next() {
		declVal := mixins.Value().LookupPath(cue.ParsePath("decl"))
		if !declVal.Exists() {
			continue
		}
		decls, err := declVal.Fields()
		if err != nil {
			return table, formatCUEError(err)
		}
		for decls.Next() {
			d := decls.Value()

			if name, err := optionalString(d, "handler"); err != nil {
				return table, err
			} else if name != "" {
				if d.LookupPath(cue.ParsePath("redirect")).Exists() {
					table.Calls[name] = func(*ir.Object, []ir.Value) (ir.Value, error) {
						return ir.Null{}, nil
					}
				} else {
					table.Handlers[name] = func(*ir.Invocation) {}
				}
			}

			if name, err := optionalString(d, "condition"); err != nil {
				return table, err
			} else if name != "" {
				table.Conditions[name] = func(*ir.Invocation) bool { return true }
			}

			if name, err := optionalString(d, "transform"); err != nil {
				return table, err
			} else if name != "" {
				table.Transforms[name] = func(s *ir.Stream) (*ir.Stream, error) { return s, nil }
			}
		}
	}

	return table, nil
}
