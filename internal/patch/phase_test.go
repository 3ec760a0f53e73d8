package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/loom/internal/descriptor"
)

// TestPhase_FixedOrder walks the machine from redirect to the terminal
// applied state.
func TestPhase_FixedOrder(t *testing.T) {
	want := []Phase{
		PhaseRedirect,
		PhaseConditionalInject,
		PhaseMultiInject,
		PhaseTranspiler,
		PhaseInject,
		PhaseOverwrite,
		PhaseApplied,
	}

	p := PhaseRedirect
	for i, w := range want {
		assert.Equal(t, w, p, "step %d", i)
		p = p.Next()
	}
	assert.Equal(t, PhaseApplied, p, "applied is terminal")
	assert.Equal(t, PhaseApplied, PhaseApplied.Next())
}

// TestPhase_SpecKindMapping pairs each working phase with its spec kind.
func TestPhase_SpecKindMapping(t *testing.T) {
	cases := map[Phase]descriptor.Kind{
		PhaseRedirect:          descriptor.KindRedirect,
		PhaseConditionalInject: descriptor.KindConditionalInject,
		PhaseMultiInject:       descriptor.KindMultiInject,
		PhaseTranspiler:        descriptor.KindTranspiler,
		PhaseInject:            descriptor.KindInject,
		PhaseOverwrite:         descriptor.KindOverwrite,
	}
	for p, k := range cases {
		assert.Equal(t, k, p.SpecKind(), p.String())
	}

	assert.Panics(t, func() { PhaseApplied.SpecKind() })
}

// TestPhase_Strings match the audit record vocabulary.
func TestPhase_Strings(t *testing.T) {
	assert.Equal(t, "redirect", PhaseRedirect.String())
	assert.Equal(t, "conditional-inject", PhaseConditionalInject.String())
	assert.Equal(t, "multi-inject", PhaseMultiInject.String())
	assert.Equal(t, "transpiler", PhaseTranspiler.String())
	assert.Equal(t, "inject", PhaseInject.String())
	assert.Equal(t, "overwrite", PhaseOverwrite.String())
	assert.Equal(t, "applied", PhaseApplied.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
}
