// Package ir defines the instruction-level representation the loom engine
// rewrites.
//
// A method body is a Stream: an ordered, mutable sequence of instructions,
// each tagged with an operation kind that maps onto one of seven categories
// (call, return, field-read, field-write, throw, construct-object, other).
// The engine locates injection points by scanning categories and splices
// handler-call fragments into the stream.
//
// ARCHITECTURE:
//
// Branch targets are symbolic labels carried on instructions, never raw
// offsets. Insertion therefore only has one control-flow obligation: when a
// fragment is inserted at an offset whose instruction carries a label, the
// label moves to the first inserted instruction so inbound jumps land before
// the fragment. Stream.Insert enforces this unconditionally.
//
// Canonical form:
// Disassemble and Hash go through the canonical encoder (canonical.go),
// which NFC-normalizes every symbol. Two streams that differ only in the
// Unicode representation of a symbol hash identically.
//
// Execution:
// exec.go contains a small interpreter over streams so patched methods are
// directly observable in tests. It is deliberately minimal - named frame
// variables, label jumps, calls dispatched through the owning World - and is
// not a general-purpose VM.
package ir
