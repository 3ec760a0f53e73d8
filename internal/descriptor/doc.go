// Package descriptor defines what a mixin declares and how declarations
// are collected into descriptors.
//
// A mixin module names one target type and carries a list of declarations,
// each binding a handler to at most one spec kind: inject, redirect,
// conditional inject, multi inject, overwrite, or transpiler. The Collector
// classifies declarations purely by their metadata - it never inspects the
// target type's members. Whether a declared target method actually resolves
// is a patch-time concern.
//
// Descriptors are immutable after collection. Each descriptor and each spec
// carries a content-addressed fingerprint over its metadata (handler
// identity included by name, never by function pointer), which is what makes
// re-registration idempotent: registering byte-identical declarations twice
// produces one effect.
package descriptor
