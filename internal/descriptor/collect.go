package descriptor

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// Module is the declaration surface a mixin presents to the Collector:
// one target type plus a list of annotated declarations.
type Module struct {
	// Name identifies the mixin. Referenced by other mixins' requires and
	// conflicts sets.
	Name string

	// Target is the target type name every declaration in this module
	// augments.
	Target string

	Requires  []string
	Conflicts []string

	Decls []Decl
}

// Decl is one annotated declaration. At most one of the clause fields may
// be set - a declaration carries a single spec kind. A declaration with a
// Transform handler carries no clause at all: transpilers are detected
// structurally from the handler's shape.
//
// Declarations with no clause and no Transform are ignored (a mixin module
// may contain plain helpers).
type Decl struct {
	// Name identifies the declaration within the mixin.
	Name string

	// Method names the target method, with an optional signature
	// disambiguator for overloaded names. Resolution happens at patch
	// time, never during collection.
	Method string
	Sig    string

	// HandlerName is the stable identity used in fingerprints and logs.
	// Defaults to Name.
	HandlerName string

	Inject    *InjectClause
	Redirect  *RedirectClause
	Overwrite *OverwriteClause
	Multi     *MultiClause

	// Condition turns an Inject clause into a conditional inject.
	Condition ir.Condition

	// Handler backs inject, multi-inject, and overwrite declarations.
	Handler ir.HandlerFunc

	// Call backs redirect declarations.
	Call ir.Callable

	// Transform marks the declaration as a custom transpiler.
	Transform TransformFunc
}

// InjectClause is the metadata of an inject declaration.
type InjectClause struct {
	At          InjectionPoint
	Priority    int // <= 0 means DefaultPriority
	Cancellable bool
}

// RedirectClause is the metadata of a redirect declaration.
type RedirectClause struct {
	Call  string
	Arity int
}

// OverwriteClause is the metadata of an overwrite declaration.
type OverwriteClause struct {
	PreserveOriginal bool
}

// MultiClause is the metadata of a multi-inject declaration.
type MultiClause struct {
	At       []InjectionPoint
	Priority int // <= 0 means DefaultPriority
}

// CollectError reports a malformed declaration. Collection is all-or-
// nothing per module: a module with a bad declaration produces no
// descriptor.
type CollectError struct {
	Mixin   string
	Decl    string
	Message string
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("mixin %s: declaration %s: %s", e.Mixin, e.Decl, e.Message)
}

// Collect classifies a module's declarations into a descriptor.
//
// Collection is purely syntactic: it reads declaration metadata and never
// inspects the target type. A declared method that does not resolve is not
// an error here - that surfaces at patch time as a resolution failure.
func Collect(mod Module) (*MixinDescriptor, error) {
	if mod.Name == "" {
		return nil, &CollectError{Mixin: mod.Name, Message: "mixin name is required"}
	}
	if mod.Target == "" {
		return nil, &CollectError{Mixin: mod.Name, Message: "target type is required"}
	}

	d := &MixinDescriptor{
		Mixin:     mod.Name,
		Target:    mod.Target,
		Requires:  append([]string(nil), mod.Requires...),
		Conflicts: append([]string(nil), mod.Conflicts...),
	}

	seen := make(map[string]bool, len(mod.Decls))
	for seq, decl := range mod.Decls {
		if decl.Name == "" {
			return nil, &CollectError{Mixin: mod.Name, Message: fmt.Sprintf("declaration %d has no name", seq)}
		}
		if seen[decl.Name] {
			return nil, &CollectError{Mixin: mod.Name, Decl: decl.Name, Message: "duplicate declaration name"}
		}
		seen[decl.Name] = true

		spec, err := classify(mod.Name, decl, seq)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			continue // plain helper, no spec metadata
		}

		switch s := spec.(type) {
		case *RedirectSpec:
			d.Redirects = append(d.Redirects, s)
		case *ConditionalInjectSpec:
			d.Conditionals = append(d.Conditionals, s)
		case *MultiInjectSpec:
			d.Multis = append(d.Multis, s)
		case *TranspilerSpec:
			d.Transpilers = append(d.Transpilers, s)
		case *InjectSpec:
			d.Injects = append(d.Injects, s)
		case *OverwriteSpec:
			d.Overwrites = append(d.Overwrites, s)
		}
	}

	if _, err := d.Fingerprint(); err != nil {
		return nil, &CollectError{Mixin: mod.Name, Message: err.Error()}
	}
	return d, nil
}

// classify maps one declaration to its spec kind, or nil for helpers.
func classify(mixin string, decl Decl, seq int) (Spec, error) {
	clauses := 0
	if decl.Inject != nil {
		clauses++
	}
	if decl.Redirect != nil {
		clauses++
	}
	if decl.Overwrite != nil {
		clauses++
	}
	if decl.Multi != nil {
		clauses++
	}

	if clauses > 1 {
		return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "declaration carries more than one spec kind"}
	}
	if decl.Transform != nil && clauses > 0 {
		return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "transpiler handler cannot also carry a spec clause"}
	}
	if decl.Condition != nil && decl.Inject == nil {
		return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "condition requires an inject clause"}
	}

	if clauses == 0 && decl.Transform == nil {
		return nil, nil
	}

	if decl.Method == "" {
		return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "target method is required"}
	}

	handlerName := decl.HandlerName
	if handlerName == "" {
		handlerName = decl.Name
	}
	base := specBase{
		Name:        decl.Name,
		Method:      decl.Method,
		Sig:         decl.Sig,
		HandlerName: handlerName,
		Seq:         seq,
	}

	switch {
	case decl.Transform != nil:
		return &TranspilerSpec{specBase: base, Transform: decl.Transform}, nil

	case decl.Redirect != nil:
		if decl.Call == nil {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "redirect declaration has no call handler"}
		}
		if decl.Redirect.Call == "" {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "redirect declaration names no call symbol"}
		}
		return &RedirectSpec{
			specBase: base,
			CallSym:  decl.Redirect.Call,
			Arity:    decl.Redirect.Arity,
			Handler:  decl.Call,
		}, nil

	case decl.Inject != nil:
		if decl.Handler == nil {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "inject declaration has no handler"}
		}
		if !decl.Inject.At.Valid() {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: fmt.Sprintf("unknown injection point %q", decl.Inject.At)}
		}
		if decl.Inject.Cancellable && decl.Inject.At != AtHead {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "only HEAD injections may be cancellable"}
		}
		spec := InjectSpec{
			specBase:    base,
			At:          decl.Inject.At,
			Priority:    normalizePriority(decl.Inject.Priority),
			Cancellable: decl.Inject.Cancellable,
			Handler:     decl.Handler,
		}
		if decl.Condition != nil {
			return &ConditionalInjectSpec{InjectSpec: spec, Condition: decl.Condition}, nil
		}
		return &spec, nil

	case decl.Multi != nil:
		if decl.Handler == nil {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "multi-inject declaration has no handler"}
		}
		if len(decl.Multi.At) == 0 {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "multi-inject declares no injection points"}
		}
		for _, p := range decl.Multi.At {
			if !p.Valid() {
				return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: fmt.Sprintf("unknown injection point %q", p)}
			}
		}
		return &MultiInjectSpec{
			specBase: base,
			At:       append([]InjectionPoint(nil), decl.Multi.At...),
			Priority: normalizePriority(decl.Multi.Priority),
			Handler:  decl.Handler,
		}, nil

	default: // Overwrite
		if decl.Handler == nil {
			return nil, &CollectError{Mixin: mixin, Decl: decl.Name, Message: "overwrite declaration has no handler"}
		}
		return &OverwriteSpec{
			specBase:         base,
			PreserveOriginal: decl.Overwrite.PreserveOriginal,
			Handler:          decl.Handler,
		}, nil
	}
}

func normalizePriority(p int) int {
	if p <= 0 {
		return DefaultPriority
	}
	return p
}
