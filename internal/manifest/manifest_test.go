package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
)

const sampleManifest = `
mixin: tracer: {
	target: "Counter"
	decl: {
		head_trace: {
			method:    "Increment"
			handler:   "trace"
			condition: "arg_positive"
			inject: {at: "HEAD", priority: 100, cancellable: true}
		}
		swap_add: {
			method:  "Add"
			handler: "add_ten"
			redirect: {call: "math.add", arity: 2}
		}
		exits: {
			method:  "Clamp"
			handler: "trace"
			multi: {at: ["RETURN", "THROW"], priority: 200}
		}
		rewrite: {
			method:    "Increment"
			transform: "drop_field_writes"
		}
		replace: {
			method:  "Scale"
			sig:     "(int)"
			handler: "trace"
			overwrite: {preserve_original: true}
		}
	}
}
mixin: dependent: {
	target:    "Counter"
	requires:  ["tracer"]
	conflicts: ["rival"]
}
`

func sampleTable() HandlerTable {
	return HandlerTable{
		Handlers: map[string]ir.HandlerFunc{
			"trace": func(*ir.Invocation) {},
		},
		Conditions: map[string]ir.Condition{
			"arg_positive": func(*ir.Invocation) bool { return true },
		},
		Calls: map[string]ir.Callable{
			"add_ten": func(*ir.Object, []ir.Value) (ir.Value, error) { return ir.Null{}, nil },
		},
		Transforms: map[string]descriptor.TransformFunc{
			"drop_field_writes": func(s *ir.Stream) (*ir.Stream, error) { return s, nil },
		},
	}
}

func compileString(t *testing.T, src string, table HandlerTable) []descriptor.Module {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	mods, err := Compile(v, table)
	require.NoError(t, err)
	return mods
}

// TestCompile_FullManifest parses every clause kind and resolves names
// against the table.
func TestCompile_FullManifest(t *testing.T) {
	mods := compileString(t, sampleManifest, sampleTable())
	require.Len(t, mods, 2)

	// Modules sorted by name.
	assert.Equal(t, "dependent", mods[0].Name)
	assert.Equal(t, "tracer", mods[1].Name)

	dep := mods[0]
	assert.Equal(t, "Counter", dep.Target)
	assert.Equal(t, []string{"tracer"}, dep.Requires)
	assert.Equal(t, []string{"rival"}, dep.Conflicts)
	assert.Empty(t, dep.Decls)

	tracer := mods[1]
	require.Len(t, tracer.Decls, 5)

	byName := make(map[string]descriptor.Decl)
	for _, d := range tracer.Decls {
		byName[d.Name] = d
	}

	head := byName["head_trace"]
	require.NotNil(t, head.Inject)
	assert.Equal(t, descriptor.AtHead, head.Inject.At)
	assert.Equal(t, 100, head.Inject.Priority)
	assert.True(t, head.Inject.Cancellable)
	assert.NotNil(t, head.Handler)
	assert.NotNil(t, head.Condition)
	assert.Equal(t, "trace", head.HandlerName)

	swap := byName["swap_add"]
	require.NotNil(t, swap.Redirect)
	assert.Equal(t, "math.add", swap.Redirect.Call)
	assert.Equal(t, 2, swap.Redirect.Arity)
	assert.NotNil(t, swap.Call)
	assert.Nil(t, swap.Handler, "redirect handlers resolve from the calls map")

	exits := byName["exits"]
	require.NotNil(t, exits.Multi)
	assert.Equal(t, []descriptor.InjectionPoint{descriptor.AtReturn, descriptor.AtThrow}, exits.Multi.At)
	assert.Equal(t, 200, exits.Multi.Priority)

	rewrite := byName["rewrite"]
	assert.NotNil(t, rewrite.Transform)
	assert.Equal(t, "drop_field_writes", rewrite.HandlerName)

	replace := byName["replace"]
	require.NotNil(t, replace.Overwrite)
	assert.True(t, replace.Overwrite.PreserveOriginal)
	assert.Equal(t, "(int)", replace.Sig)
}

// TestCompile_DeclsSortedByName keeps fingerprints independent of CUE
// field iteration order.
func TestCompile_DeclsSortedByName(t *testing.T) {
	mods := compileString(t, sampleManifest, sampleTable())
	tracer := mods[1]

	names := make([]string, len(tracer.Decls))
	for i, d := range tracer.Decls {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"exits", "head_trace", "replace", "rewrite", "swap_add"}, names)
}

// TestCompile_CollectableOutput feeds compiled modules straight into
// descriptor collection.
func TestCompile_CollectableOutput(t *testing.T) {
	mods := compileString(t, sampleManifest, sampleTable())
	for _, mod := range mods {
		_, err := descriptor.Collect(mod)
		assert.NoError(t, err, mod.Name)
	}
}

// TestCompile_Rejections covers unknown names and missing fields.
func TestCompile_Rejections(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"no mixin root", `other: {}`},
		{"missing target", `mixin: broken: {decl: {}}`},
		{"unknown handler", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", handler: "nope", inject: {at: "HEAD"}}
}`},
		{"unknown call handler", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", handler: "nope", redirect: {call: "f", arity: 1}}
}`},
		{"unknown condition", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", handler: "trace", condition: "nope", inject: {at: "HEAD"}}
}`},
		{"unknown transform", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", transform: "nope"}
}`},
		{"bad injection point", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", handler: "trace", inject: {at: "MIDDLE"}}
}`},
		{"bad multi point", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", handler: "trace", multi: {at: ["RETURN", "MIDDLE"]}}
}`},
		{"redirect without call", `
mixin: broken: {
	target: "Counter"
	decl: x: {method: "Act", handler: "add_ten", redirect: {arity: 1}}
}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tc.src)
			_, err := Compile(v, sampleTable())
			var cerr *CompileError
			require.ErrorAs(t, err, &cerr)
		})
	}
}

// TestCompileFile round-trips through disk.
func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixins.cue")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	mods, err := CompileFile(path, sampleTable())
	require.NoError(t, err)
	assert.Len(t, mods, 2)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.cue"), sampleTable())
	assert.Error(t, err)
}

// TestStubTable_CoversReferencedNames builds no-ops for every name the
// manifest mentions, routed by clause kind.
func TestStubTable_CoversReferencedNames(t *testing.T) {
	v := cuecontext.New().CompileString(sampleManifest)
	table, err := StubTable(v)
	require.NoError(t, err)

	assert.Contains(t, table.Handlers, "trace")
	assert.Contains(t, table.Calls, "add_ten")
	assert.NotContains(t, table.Handlers, "add_ten", "redirect handler is a call")
	assert.Contains(t, table.Conditions, "arg_positive")
	assert.Contains(t, table.Transforms, "drop_field_writes")

	// The stubbed table satisfies compilation of its own manifest.
	_, err = Compile(v, table)
	assert.NoError(t, err)
}

// TestCompileError_Formatting includes position when available.
func TestCompileError_Formatting(t *testing.T) {
	e := &CompileError{Field: "mixin.x.decl.y.handler", Message: `unknown handler "nope"`}
	assert.Equal(t, `mixin.x.decl.y.handler: unknown handler "nope"`, e.Error())
}
