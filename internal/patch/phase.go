package patch

import (
	"fmt"

	"github.com/roach88/loom/internal/descriptor"
)

// Phase is one state of the per-method patch state machine.
//
// The explicit state type exists so tests can assert phase ordering
// directly instead of inferring it from call order in source.
type Phase int

const (
	PhaseRedirect Phase = iota
	PhaseConditionalInject
	PhaseMultiInject
	PhaseTranspiler
	PhaseInject
	PhaseOverwrite

	// PhaseApplied is terminal: the method's current body is the
	// composition of every mixin's effect in phase order.
	PhaseApplied
)

// String returns the phase name used in logs and audit records.
func (p Phase) String() string {
	switch p {
	case PhaseRedirect:
		return "redirect"
	case PhaseConditionalInject:
		return "conditional-inject"
	case PhaseMultiInject:
		return "multi-inject"
	case PhaseTranspiler:
		return "transpiler"
	case PhaseInject:
		return "inject"
	case PhaseOverwrite:
		return "overwrite"
	case PhaseApplied:
		return "applied"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// Next advances the machine exactly one state. Applied is terminal.
func (p Phase) Next() Phase {
	if p >= PhaseApplied {
		return PhaseApplied
	}
	return p + 1
}

// SpecKind maps a non-terminal phase onto the spec kind it consumes.
func (p Phase) SpecKind() descriptor.Kind {
	switch p {
	case PhaseRedirect:
		return descriptor.KindRedirect
	case PhaseConditionalInject:
		return descriptor.KindConditionalInject
	case PhaseMultiInject:
		return descriptor.KindMultiInject
	case PhaseTranspiler:
		return descriptor.KindTranspiler
	case PhaseInject:
		return descriptor.KindInject
	case PhaseOverwrite:
		return descriptor.KindOverwrite
	default:
		panic(fmt.Sprintf("phase %s consumes no specs", p))
	}
}
