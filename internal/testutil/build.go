// Package testutil provides builders and deterministic generators shared
// by tests across packages.
package testutil

import "github.com/roach88/loom/internal/ir"

// Instruction builders. Each returns one instruction; compose with
// ir.NewStream. Labels attach via Labeled.

// Const loads a literal into dst.
func Const(dst string, val ir.Value) ir.Instruction {
	return ir.Instruction{Kind: ir.OpConst, Dst: dst, Val: val}
}

// Call invokes a callable symbol with named-variable arguments.
func Call(dst, sym string, args ...string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpCall, Dst: dst, Sym: sym, Args: args}
}

// Ret returns the named variable.
func Ret(arg string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpReturn, Args: []string{arg}}
}

// RetVoid returns without a value.
func RetVoid() ir.Instruction {
	return ir.Instruction{Kind: ir.OpReturn}
}

// FieldGet reads a receiver field into dst.
func FieldGet(dst, field string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpFieldGet, Dst: dst, Sym: field}
}

// FieldSet writes a named variable into a receiver field.
func FieldSet(field, src string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpFieldSet, Sym: field, Args: []string{src}}
}

// Throw raises the named variable.
func Throw(arg string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpThrow, Args: []string{arg}}
}

// New constructs an instance of a registered type into dst.
func New(dst, typeName string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpNew, Dst: dst, Sym: typeName}
}

// Jump transfers control to a label unconditionally.
func Jump(label string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpJump, Jump: label}
}

// Branch transfers control to a label when the named variable is falsy.
func Branch(cond, label string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpBranch, Args: []string{cond}, Jump: label}
}

// Binary applies an operator to two named variables into dst.
func Binary(dst, op, a, b string) ir.Instruction {
	return ir.Instruction{Kind: ir.OpBinary, Dst: dst, Sym: op, Args: []string{a, b}}
}

// Labeled attaches a branch label to an instruction.
func Labeled(label string, in ir.Instruction) ir.Instruction {
	in.Label = label
	return in
}

// NewMethod builds a method over the given instructions.
func NewMethod(name, sig string, params []string, ops ...ir.Instruction) *ir.Method {
	return &ir.Method{
		Name:   name,
		Sig:    sig,
		Params: params,
		Body:   ir.NewStream(ops...),
	}
}

// NewWorld builds a world from types, panicking on duplicates. Tests only.
func NewWorld(types ...*ir.Type) *ir.World {
	w := ir.NewWorld()
	for _, t := range types {
		if err := w.AddType(t); err != nil {
			panic(err)
		}
	}
	return w
}
