package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
)

func desc(t *testing.T, name, target string, priority int, opts ...func(*descriptor.Module)) *descriptor.MixinDescriptor {
	t.Helper()
	mod := descriptor.Module{
		Name:   name,
		Target: target,
		Decls: []descriptor.Decl{
			{
				Name:    "probe",
				Method:  "Act",
				Inject:  &descriptor.InjectClause{At: descriptor.AtHead, Priority: priority},
				Handler: func(*ir.Invocation) {},
			},
		},
	}
	for _, opt := range opts {
		opt(&mod)
	}
	d, err := descriptor.Collect(mod)
	require.NoError(t, err)
	return d
}

func requires(names ...string) func(*descriptor.Module) {
	return func(m *descriptor.Module) { m.Requires = names }
}

func conflicts(names ...string) func(*descriptor.Module) {
	return func(m *descriptor.Module) { m.Conflicts = names }
}

func activeNames(descs []*descriptor.MixinDescriptor) []string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Mixin
	}
	return names
}

// TestResolve_PriorityOrdering sorts ascending by aggregate priority,
// keeping declaration order on ties.
func TestResolve_PriorityOrdering(t *testing.T) {
	res := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "late", "Box", 900),
		desc(t, "tie_a", "Box", 500),
		desc(t, "early", "Box", 100),
		desc(t, "tie_b", "Box", 500),
	})

	assert.Empty(t, res.Excluded())
	assert.Equal(t,
		[]string{"early", "tie_a", "tie_b", "late"},
		activeNames(res.ForTarget("Box")))

	assert.Equal(t, 0, res.Order("early"))
	assert.Equal(t, 1, res.Order("tie_a"))
	assert.Equal(t, 2, res.Order("tie_b"))
	assert.Equal(t, 3, res.Order("late"))
}

// TestResolve_ConflictExcludesDeclarer tests that the declaring mixin is
// the one dropped, never its counterpart.
func TestResolve_ConflictExcludesDeclarer(t *testing.T) {
	res := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "base", "Box", 100),
		desc(t, "rival", "Box", 200, conflicts("base")),
	})

	assert.Equal(t, []string{"base"}, activeNames(res.ForTarget("Box")))

	exs := res.Excluded()
	require.Len(t, exs, 1)
	assert.Equal(t, "rival", exs[0].Desc.Mixin)
	assert.Equal(t, ReasonConflict, exs[0].Err.Reason)
	assert.Equal(t, "base", exs[0].Err.Other)
	assert.Equal(t, -1, res.Order("rival"))
}

// TestResolve_ConflictAgainstExcluded tests that a conflict with an
// already-excluded mixin does not fire.
func TestResolve_ConflictAgainstExcluded(t *testing.T) {
	res := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "ghost", "Box", 100, requires("nowhere")),
		desc(t, "wary", "Box", 200, conflicts("ghost")),
	})

	assert.Equal(t, []string{"wary"}, activeNames(res.ForTarget("Box")))
	require.Len(t, res.Excluded(), 1)
	assert.Equal(t, "ghost", res.Excluded()[0].Desc.Mixin)
}

// TestResolve_RequiresCascade tests that exclusion propagates through
// chains of requires to a fixpoint.
func TestResolve_RequiresCascade(t *testing.T) {
	res := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "a", "Box", 100, requires("missing")),
		desc(t, "b", "Box", 200, requires("a")),
		desc(t, "c", "Box", 300, requires("b")),
		desc(t, "d", "Box", 400),
	})

	assert.Equal(t, []string{"d"}, activeNames(res.ForTarget("Box")))

	exs := res.Excluded()
	require.Len(t, exs, 3)
	for _, ex := range exs {
		assert.Equal(t, ReasonUnmetRequire, ex.Err.Reason)
	}
}

// TestResolve_ConflictThenRequiresCascade tests that a conflict exclusion
// invalidates dependents in the second requires pass.
func TestResolve_ConflictThenRequiresCascade(t *testing.T) {
	res := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "base", "Box", 100),
		desc(t, "rival", "Box", 200, conflicts("base")),
		desc(t, "dependent", "Box", 300, requires("rival")),
	})

	assert.Equal(t, []string{"base"}, activeNames(res.ForTarget("Box")))

	byMixin := make(map[string]*ConflictError)
	for _, ex := range res.Excluded() {
		byMixin[ex.Desc.Mixin] = ex.Err
	}
	require.Len(t, byMixin, 2)
	assert.Equal(t, ReasonConflict, byMixin["rival"].Reason)
	assert.Equal(t, ReasonUnmetRequire, byMixin["dependent"].Reason)
	assert.Equal(t, "rival", byMixin["dependent"].Other)
}

// TestResolve_ArrivalOrderIndependent tests that registration order never
// changes the activation plan.
func TestResolve_ArrivalOrderIndependent(t *testing.T) {
	forward := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "x", "Box", 300),
		desc(t, "y", "Box", 100),
		desc(t, "z", "Box", 200),
	})
	reversed := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "z", "Box", 200),
		desc(t, "y", "Box", 100),
		desc(t, "x", "Box", 300),
	})

	assert.Equal(t,
		activeNames(forward.ForTarget("Box")),
		activeNames(reversed.ForTarget("Box")))
}

// TestResolve_TargetsSorted tests deterministic target enumeration and
// cross-target activation indexes.
func TestResolve_TargetsSorted(t *testing.T) {
	res := Resolve([]*descriptor.MixinDescriptor{
		desc(t, "m2", "Zeta", 100),
		desc(t, "m1", "Alpha", 100),
	})

	assert.Equal(t, []string{"Alpha", "Zeta"}, res.Targets())
	assert.Equal(t, 0, res.Order("m1"))
	assert.Equal(t, 1, res.Order("m2"))
	assert.Equal(t, -1, res.Order("absent"))
}

// TestConflictError_Messages covers both reason phrasings.
func TestConflictError_Messages(t *testing.T) {
	c := &ConflictError{Mixin: "a", Target: "Box", Reason: ReasonConflict, Other: "b"}
	assert.Equal(t, "CONFLICT: mixin a (target Box) conflicts with active mixin b", c.Error())

	u := &ConflictError{Mixin: "a", Target: "Box", Reason: ReasonUnmetRequire, Other: "b"}
	assert.Equal(t, "UNMET_REQUIRE: mixin a (target Box) requires inactive mixin b", u.Error())
}
