package descriptor

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// DefaultPriority applies to specs that do not declare a priority.
// Lower values apply earlier.
const DefaultPriority = 1000

// InjectionPoint names where inside a method body a handler is spliced.
type InjectionPoint string

const (
	// AtHead injects before the first operation (method prologue).
	// Structural: implemented as a prologue hook, no stream scan.
	AtHead InjectionPoint = "HEAD"

	// AtTail injects after the last operation, before the final return.
	// Structural: implemented as an epilogue hook, no stream scan.
	AtTail InjectionPoint = "TAIL"

	// AtInvoke injects immediately before the FIRST call operation.
	// Deliberately asymmetric with AtInvokeAfter: first match only.
	AtInvoke InjectionPoint = "INVOKE"

	// AtInvokeAfter injects immediately after EVERY call operation.
	AtInvokeAfter InjectionPoint = "INVOKE_AFTER"

	// AtReturn injects immediately before every return, covering all exit
	// points including early returns.
	AtReturn InjectionPoint = "RETURN"

	// AtFieldGet injects immediately before every field read.
	AtFieldGet InjectionPoint = "FIELD_GET"

	// AtFieldSet injects immediately before every field write.
	AtFieldSet InjectionPoint = "FIELD_SET"

	// AtThrow injects immediately before every throw.
	AtThrow InjectionPoint = "THROW"

	// AtNew injects immediately before every object construction.
	AtNew InjectionPoint = "NEW"
)

// Valid reports whether p is a known injection point.
func (p InjectionPoint) Valid() bool {
	switch p {
	case AtHead, AtTail, AtInvoke, AtInvokeAfter, AtReturn, AtFieldGet, AtFieldSet, AtThrow, AtNew:
		return true
	}
	return false
}

// NeedsScan reports whether locating p requires scanning the instruction
// stream. HEAD and TAIL are structural positions; everything else is
// defined by operation content.
func (p InjectionPoint) NeedsScan() bool {
	return p != AtHead && p != AtTail
}

// Category returns the operation category a scanning point matches.
// Panics for structural points, which have no category.
func (p InjectionPoint) Category() ir.Category {
	switch p {
	case AtInvoke, AtInvokeAfter:
		return ir.CatCall
	case AtReturn:
		return ir.CatReturn
	case AtFieldGet:
		return ir.CatFieldRead
	case AtFieldSet:
		return ir.CatFieldWrite
	case AtThrow:
		return ir.CatThrow
	case AtNew:
		return ir.CatConstruct
	default:
		panic(fmt.Sprintf("injection point %s has no scan category", p))
	}
}

// TransformFunc is a custom transpiler: it receives the full current
// stream and returns a full replacement, taking complete responsibility
// for the result's correctness.
type TransformFunc func(s *ir.Stream) (*ir.Stream, error)

// Kind identifies a spec kind. The declared order of the constants is the
// engine's fixed phase order.
type Kind uint8

const (
	KindRedirect Kind = iota
	KindConditionalInject
	KindMultiInject
	KindTranspiler
	KindInject
	KindOverwrite
)

// String returns the spec kind name used in logs and audit records.
func (k Kind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindConditionalInject:
		return "conditional-inject"
	case KindMultiInject:
		return "multi-inject"
	case KindTranspiler:
		return "transpiler"
	case KindInject:
		return "inject"
	case KindOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Spec is the common surface of all spec kinds. Implementations are value
// types owned by their descriptor and immutable after collection.
type Spec interface {
	// SpecName is the declaration name, unique within the mixin.
	SpecName() string

	// SpecKind classifies the spec into its phase.
	SpecKind() Kind

	// TargetKey returns the declared target method name and optional
	// signature disambiguator.
	TargetKey() (method, sig string)

	// DeclSeq is the declaration index within the mixin, used for stable
	// tie ordering.
	DeclSeq() int

	// canonical returns the spec's metadata for fingerprinting. Handlers
	// appear by name only.
	canonical() ir.Map
}

// specBase carries the fields every spec shares.
type specBase struct {
	Name        string
	Method      string
	Sig         string
	HandlerName string
	Seq         int
}

func (b specBase) SpecName() string               { return b.Name }
func (b specBase) TargetKey() (string, string)    { return b.Method, b.Sig }
func (b specBase) DeclSeq() int                   { return b.Seq }
func (b specBase) baseCanonical(kind Kind) ir.Map {
	return ir.Map{
		"name":    ir.Str(b.Name),
		"kind":    ir.Str(kind.String()),
		"method":  ir.Str(b.Method),
		"sig":     ir.Str(b.Sig),
		"handler": ir.Str(b.HandlerName),
	}
}

// InjectSpec splices a handler at one injection point of one target method.
type InjectSpec struct {
	specBase
	At          InjectionPoint
	Priority    int
	Cancellable bool
	Handler     ir.HandlerFunc
}

func (s *InjectSpec) SpecKind() Kind { return KindInject }

func (s *InjectSpec) canonical() ir.Map {
	m := s.baseCanonical(s.SpecKind())
	m["at"] = ir.Str(string(s.At))
	m["priority"] = ir.Int(int64(s.Priority))
	m["cancellable"] = ir.Bool(s.Cancellable)
	return m
}

// RedirectSpec retargets call sites invoking CallSym to the replacement
// handler, leaving everything else in the method untouched. Arity declares
// the handler's parameter count; call sites with a different argument count
// are a signature error at apply time.
type RedirectSpec struct {
	specBase
	CallSym string
	Arity   int
	Handler ir.Callable
}

func (s *RedirectSpec) SpecKind() Kind { return KindRedirect }

func (s *RedirectSpec) canonical() ir.Map {
	m := s.baseCanonical(s.SpecKind())
	m["call"] = ir.Str(s.CallSym)
	m["arity"] = ir.Int(int64(s.Arity))
	return m
}

// ConditionalInjectSpec is an InjectSpec gated by a condition evaluated at
// the injection point on every invocation. A false condition suppresses the
// handler at runtime; the rewrite itself is unconditional.
type ConditionalInjectSpec struct {
	InjectSpec
	Condition ir.Condition
}

func (s *ConditionalInjectSpec) SpecKind() Kind { return KindConditionalInject }

func (s *ConditionalInjectSpec) canonical() ir.Map {
	m := s.InjectSpec.canonical()
	m["kind"] = ir.Str(s.SpecKind().String())
	m["conditional"] = ir.Bool(true)
	return m
}

// MultiInjectSpec binds one handler to several injection points at once;
// each point is applied independently with the same handler.
type MultiInjectSpec struct {
	specBase
	At       []InjectionPoint
	Priority int
	Handler  ir.HandlerFunc
}

func (s *MultiInjectSpec) SpecKind() Kind { return KindMultiInject }

func (s *MultiInjectSpec) canonical() ir.Map {
	m := s.baseCanonical(s.SpecKind())
	points := make(ir.List, len(s.At))
	for i, p := range s.At {
		points[i] = ir.Str(string(p))
	}
	m["at"] = points
	m["priority"] = ir.Int(int64(s.Priority))
	return m
}

// OverwriteSpec replaces the target method's behavior entirely. When
// PreserveOriginal is set, the pre-overwrite body stays callable under the
// "<method>$original" alias; otherwise it becomes unreachable dead code
// (never executed, not removed).
type OverwriteSpec struct {
	specBase
	PreserveOriginal bool
	Handler          ir.HandlerFunc
}

func (s *OverwriteSpec) SpecKind() Kind { return KindOverwrite }

func (s *OverwriteSpec) canonical() ir.Map {
	m := s.baseCanonical(s.SpecKind())
	m["preserve_original"] = ir.Bool(s.PreserveOriginal)
	return m
}

// TranspilerSpec hands the full stream to a transform. There is no
// explicit declaration kind for it - the Collector detects it structurally
// from the handler's shape.
type TranspilerSpec struct {
	specBase
	Transform TransformFunc
}

func (s *TranspilerSpec) SpecKind() Kind { return KindTranspiler }

func (s *TranspilerSpec) canonical() ir.Map {
	return s.baseCanonical(s.SpecKind())
}

// priorityOf returns the ordering priority a spec contributes to its
// descriptor's aggregate. Kinds without a declared priority contribute the
// default.
func priorityOf(s Spec) int {
	switch spec := s.(type) {
	case *InjectSpec:
		return spec.Priority
	case *ConditionalInjectSpec:
		return spec.Priority
	case *MultiInjectSpec:
		return spec.Priority
	default:
		return DefaultPriority
	}
}
