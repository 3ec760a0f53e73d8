package manifest

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
)

// HandlerTable resolves the handler names a manifest references into
// actual Go functions. Every name a manifest uses must be present in the
// matching map; a missing name is a compile error.
type HandlerTable struct {
	Handlers   map[string]ir.HandlerFunc
	Conditions map[string]ir.Condition
	Calls      map[string]ir.Callable
	Transforms map[string]descriptor.TransformFunc
}

// Compile parses a manifest root value into descriptor modules.
//
// The value must carry a "mixin" struct whose fields are mixin modules.
// Modules are returned in ascending name order so compilation output is
// deterministic regardless of CUE field iteration order.
func Compile(v cue.Value, table HandlerTable) ([]descriptor.Module, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	mixinVal := v.LookupPath(cue.ParsePath("mixin"))
	if !mixinVal.Exists() {
		return nil, &CompileError{
			Field:   "mixin",
			Message: "manifest declares no mixin modules",
			Pos:     v.Pos(),
		}
	}

	iter, err := mixinVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var modules []descriptor.Module
	for iter.Next() {
		mod, err := CompileMixin(iter.Label(), iter.Value(), table)
		if err != nil {
			return nil, err
		}
		modules = append(modules, mod)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules, nil
}

// CompileFile reads and compiles a manifest from disk.
func CompileFile(path string, table HandlerTable) ([]descriptor.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return Compile(v, table)
}

// CompileMixin parses one mixin module struct.
func CompileMixin(name string, v cue.Value, table HandlerTable) (descriptor.Module, error) {
	mod := descriptor.Module{Name: name}

	target, err := requiredString(v, "target")
	if err != nil {
		return mod, err
	}
	mod.Target = target

	mod.Requires, err = stringList(v, "requires")
	if err != nil {
		return mod, err
	}
	mod.Conflicts, err = stringList(v, "conflicts")
	if err != nil {
		return mod, err
	}

	declVal := v.LookupPath(cue.ParsePath("decl"))
	if declVal.Exists() {
		iter, err := declVal.Fields()
		if err != nil {
			return mod, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := compileDecl(name, iter.Label(), iter.Value(), table)
			if err != nil {
				return mod, err
			}
			mod.Decls = append(mod.Decls, decl)
		}
	}

	// CUE struct field order is source order for concrete structs, but
	// keep declaration names sorted so fingerprints never depend on it.
	sort.SliceStable(mod.Decls, func(i, j int) bool { return mod.Decls[i].Name < mod.Decls[j].Name })

	return mod, nil
}

// compileDecl parses one declaration struct into a descriptor.Decl,
// resolving handler names against the table.
func compileDecl(mixin, name string, v cue.Value, table HandlerTable) (descriptor.Decl, error) {
	decl := descriptor.Decl{Name: name}
	field := func(sub string) string {
		return fmt.Sprintf("mixin.%s.decl.%s.%s", mixin, name, sub)
	}

	method, err := optionalString(v, "method")
	if err != nil {
		return decl, err
	}
	decl.Method = method

	sig, err := optionalString(v, "sig")
	if err != nil {
		return decl, err
	}
	decl.Sig = sig

	handlerName, err := optionalString(v, "handler")
	if err != nil {
		return decl, err
	}

	// inject clause
	if injVal := v.LookupPath(cue.ParsePath("inject")); injVal.Exists() {
		at, err := requiredString(injVal, "at")
		if err != nil {
			return decl, err
		}
		point := descriptor.InjectionPoint(at)
		if !point.Valid() {
			return decl, &CompileError{
				Field:   field("inject.at"),
				Message: fmt.Sprintf("unknown injection point %q", at),
				Pos:     injVal.Pos(),
			}
		}
		priority, err := optionalInt(injVal, "priority")
		if err != nil {
			return decl, err
		}
		cancellable, err := optionalBool(injVal, "cancellable")
		if err != nil {
			return decl, err
		}
		decl.Inject = &descriptor.InjectClause{At: point, Priority: priority, Cancellable: cancellable}
	}

	// redirect clause
	if redVal := v.LookupPath(cue.ParsePath("redirect")); redVal.Exists() {
		call, err := requiredString(redVal, "call")
		if err != nil {
			return decl, err
		}
		arity, err := optionalInt(redVal, "arity")
		if err != nil {
			return decl, err
		}
		decl.Redirect = &descriptor.RedirectClause{Call: call, Arity: arity}
	}

	// overwrite clause
	if owVal := v.LookupPath(cue.ParsePath("overwrite")); owVal.Exists() {
		preserve, err := optionalBool(owVal, "preserve_original")
		if err != nil {
			return decl, err
		}
		decl.Overwrite = &descriptor.OverwriteClause{PreserveOriginal: preserve}
	}

	// multi clause
	if multiVal := v.LookupPath(cue.ParsePath("multi")); multiVal.Exists() {
		points, err := stringList(multiVal, "at")
		if err != nil {
			return decl, err
		}
		var at []descriptor.InjectionPoint
		for _, p := range points {
			point := descriptor.InjectionPoint(p)
			if !point.Valid() {
				return decl, &CompileError{
					Field:   field("multi.at"),
					Message: fmt.Sprintf("unknown injection point %q", p),
					Pos:     multiVal.Pos(),
				}
			}
			at = append(at, point)
		}
		priority, err := optionalInt(multiVal, "priority")
		if err != nil {
			return decl, err
		}
		decl.Multi = &descriptor.MultiClause{At: at, Priority: priority}
	}

	// transform reference
	transformName, err := optionalString(v, "transform")
	if err != nil {
		return decl, err
	}
	if transformName != "" {
		fn, ok := table.Transforms[transformName]
		if !ok {
			return decl, &CompileError{
				Field:   field("transform"),
				Message: fmt.Sprintf("unknown transform %q", transformName),
				Pos:     v.Pos(),
			}
		}
		decl.Transform = fn
		decl.HandlerName = transformName
	}

	// condition reference
	condName, err := optionalString(v, "condition")
	if err != nil {
		return decl, err
	}
	if condName != "" {
		cond, ok := table.Conditions[condName]
		if !ok {
			return decl, &CompileError{
				Field:   field("condition"),
				Message: fmt.Sprintf("unknown condition %q", condName),
				Pos:     v.Pos(),
			}
		}
		decl.Condition = cond
	}

	// Resolve the handler name against the map matching the clause kind.
	if handlerName != "" {
		decl.HandlerName = handlerName
		if decl.Redirect != nil {
			fn, ok := table.Calls[handlerName]
			if !ok {
				return decl, &CompileError{
					Field:   field("handler"),
					Message: fmt.Sprintf("unknown call handler %q", handlerName),
					Pos:     v.Pos(),
				}
			}
			decl.Call = fn
		} else {
			fn, ok := table.Handlers[handlerName]
			if !ok {
				return decl, &CompileError{
					Field:   field("handler"),
					Message: fmt.Sprintf("unknown handler %q", handlerName),
					Pos:     v.Pos(),
				}
			}
			decl.Handler = fn
		}
	}

	return decl, nil
}

func requiredString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   path,
			Message: path + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalInt(v cue.Value, path string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a manifest compilation error with source
// position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
