// Package patch implements the loom patch engine: the component that
// rewrites target method bodies according to registered mixin descriptors.
//
// ARCHITECTURE:
//
// Phase state machine:
// Every target method advances through a fixed sequence of phases:
//
//	Redirect → ConditionalInject → MultiInject → Transpiler → Inject → Overwrite → Applied
//
// Transitions are unconditional and advance exactly once; a phase with no
// pending specs is a no-op pass-through. There is no rollback - once a
// phase commits a rewrite, it is a permanent input to later phases. This is
// intentional: an overwrite must see the effect of everything before it,
// most importantly any redirects, so that "calling the original" from a
// replacement handler reflects the redirected call graph.
//
// Phase order is invariant and independent of priority. Priority orders
// mixins only WITHIN a phase, across different mixins targeting the same
// method, via the resolver's activation order.
//
// Failure isolation:
// Every failure is local to one spec or one descriptor. A misconfigured
// mixin logs its error with full identity context (mixin, target, method,
// spec kind) and silently does not take effect; unrelated mixins proceed.
// The engine never aborts a weave because one spec failed.
//
// Structural vs scanning application:
// HEAD and TAIL are structural positions, installed as prologue/epilogue
// hooks without touching the stream. Every other injection point is
// content-defined and requires a linear scan by its matcher (matchers.go),
// followed by label-preserving fragment insertion.
package patch
