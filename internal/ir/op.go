package ir

import (
	"fmt"
	"strings"
)

// OpKind identifies the operation an instruction performs.
type OpKind uint8

const (
	// OpConst loads Val into Dst.
	OpConst OpKind = iota

	// OpCall invokes the callable named by Sym with Args, storing the
	// result in Dst (if non-empty).
	OpCall

	// OpReturn exits the method. Args[0] names the returned variable;
	// a return with no args yields Null.
	OpReturn

	// OpFieldGet loads receiver field Sym into Dst.
	OpFieldGet

	// OpFieldSet stores Args[0] into receiver field Sym.
	OpFieldSet

	// OpThrow raises Args[0] as an error, unwinding the method.
	OpThrow

	// OpNew constructs an instance of type Sym into Dst.
	OpNew

	// OpJump transfers control to the instruction labeled Jump.
	OpJump

	// OpBranch transfers control to Jump when Args[0] is falsy.
	OpBranch

	// OpBinary applies operator Sym to Args[0] and Args[1], storing the
	// result in Dst. Supported operators: + - * == != < <= > >=.
	OpBinary
)

// String returns the mnemonic for an OpKind.
func (k OpKind) String() string {
	switch k {
	case OpConst:
		return "const"
	case OpCall:
		return "call"
	case OpReturn:
		return "ret"
	case OpFieldGet:
		return "getf"
	case OpFieldSet:
		return "setf"
	case OpThrow:
		return "throw"
	case OpNew:
		return "new"
	case OpJump:
		return "jmp"
	case OpBranch:
		return "brf"
	case OpBinary:
		return "binop"
	default:
		return fmt.Sprintf("OpKind(%d)", k)
	}
}

// Category is one of the seven operation categories injection-point
// matchers scan for.
type Category uint8

const (
	CatOther Category = iota
	CatCall
	CatReturn
	CatFieldRead
	CatFieldWrite
	CatThrow
	CatConstruct
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case CatCall:
		return "call"
	case CatReturn:
		return "return"
	case CatFieldRead:
		return "field-read"
	case CatFieldWrite:
		return "field-write"
	case CatThrow:
		return "throw"
	case CatConstruct:
		return "construct-object"
	default:
		return "other"
	}
}

// Category maps an operation kind onto its scan category.
// Const, jump, branch, and binary ops are all "other" - no injection-point
// kind targets them.
func (k OpKind) Category() Category {
	switch k {
	case OpCall:
		return CatCall
	case OpReturn:
		return CatReturn
	case OpFieldGet:
		return CatFieldRead
	case OpFieldSet:
		return CatFieldWrite
	case OpThrow:
		return CatThrow
	case OpNew:
		return CatConstruct
	default:
		return CatOther
	}
}

// Instruction is one operation in a Stream.
//
// Label, when non-empty, marks this instruction as a branch target.
// Labels are part of the instruction, not a side table, so every stream
// mutation is forced to decide what happens to them (see Stream.Insert).
type Instruction struct {
	Kind OpKind

	// Sym is the referenced symbol: the callee for OpCall, the field for
	// OpFieldGet/OpFieldSet, the type for OpNew, the operator for OpBinary.
	Sym string

	// Dst names the frame variable receiving the result, if any.
	Dst string

	// Args names the frame variables consumed as operands.
	Args []string

	// Val is the literal operand for OpConst.
	Val Value

	// Label is the branch-target name carried by this instruction.
	Label string

	// Jump is the destination label for OpJump/OpBranch.
	Jump string
}

// format renders one instruction in disassembly form (no offset column).
func (in Instruction) format() string {
	var b strings.Builder
	if in.Label != "" {
		fmt.Fprintf(&b, "%s: ", normSym(in.Label))
	}
	b.WriteString(in.Kind.String())
	switch in.Kind {
	case OpConst:
		fmt.Fprintf(&b, " %s -> %s", FormatValue(in.Val), in.Dst)
	case OpCall:
		fmt.Fprintf(&b, " %s(%s)", normSym(in.Sym), strings.Join(in.Args, ", "))
		if in.Dst != "" {
			fmt.Fprintf(&b, " -> %s", in.Dst)
		}
	case OpReturn:
		if len(in.Args) > 0 {
			fmt.Fprintf(&b, " %s", in.Args[0])
		}
	case OpFieldGet:
		fmt.Fprintf(&b, " .%s -> %s", normSym(in.Sym), in.Dst)
	case OpFieldSet:
		fmt.Fprintf(&b, " .%s <- %s", normSym(in.Sym), in.Args[0])
	case OpThrow:
		fmt.Fprintf(&b, " %s", in.Args[0])
	case OpNew:
		fmt.Fprintf(&b, " %s -> %s", normSym(in.Sym), in.Dst)
	case OpJump:
		fmt.Fprintf(&b, " %s", normSym(in.Jump))
	case OpBranch:
		fmt.Fprintf(&b, " %s, %s", in.Args[0], normSym(in.Jump))
	case OpBinary:
		fmt.Fprintf(&b, " %s %s %s -> %s", in.Args[0], in.Sym, in.Args[1], in.Dst)
	}
	return b.String()
}
