package ir

import (
	"fmt"
	"strings"
)

// Stream is the ordered, mutable representation of one method body.
//
// A Stream is owned exclusively by one rewrite pass at a time; it is not
// safe for concurrent mutation.
type Stream struct {
	ops []Instruction
}

// NewStream creates a stream from the given instructions.
func NewStream(ops ...Instruction) *Stream {
	s := &Stream{ops: make([]Instruction, len(ops))}
	copy(s.ops, ops)
	return s
}

// Len returns the number of instructions.
func (s *Stream) Len() int {
	return len(s.ops)
}

// At returns the instruction at offset i. Panics if out of range.
func (s *Stream) At(i int) Instruction {
	return s.ops[i]
}

// Append adds instructions to the end of the stream.
func (s *Stream) Append(ops ...Instruction) {
	s.ops = append(s.ops, ops...)
}

// Clone returns a deep copy of the stream.
func (s *Stream) Clone() *Stream {
	out := &Stream{ops: make([]Instruction, len(s.ops))}
	copy(out.ops, s.ops)
	for i := range out.ops {
		if len(out.ops[i].Args) > 0 {
			args := make([]string, len(out.ops[i].Args))
			copy(args, out.ops[i].Args)
			out.ops[i].Args = args
		}
	}
	return out
}

// Insert splices frag into the stream so that frag[0] lands at offset at.
//
// Label transfer: if the instruction currently at the insertion offset
// carries a branch-target label, the label moves to the first inserted
// instruction. Inbound jumps therefore reach the fragment before the
// original instruction - exactly what "inject before" requires. Skipping
// this step would leave jumps bypassing the fragment.
//
// Inserting at Len() appends (no label to transfer).
func (s *Stream) Insert(at int, frag ...Instruction) error {
	if at < 0 || at > len(s.ops) {
		return fmt.Errorf("insert offset %d out of range [0,%d]", at, len(s.ops))
	}
	if len(frag) == 0 {
		return nil
	}

	frag = append([]Instruction(nil), frag...)
	if at < len(s.ops) && s.ops[at].Label != "" {
		frag[0].Label = s.ops[at].Label
		s.ops[at].Label = ""
	}

	s.ops = append(s.ops[:at], append(frag, s.ops[at:]...)...)
	return nil
}

// InsertAfter splices frag immediately after the instruction at offset at.
// The following instruction's label (if any) stays where it is: an inbound
// jump to the instruction after a call must still skip the fragment, since
// the fragment belongs to the call site it trails.
func (s *Stream) InsertAfter(at int, frag ...Instruction) error {
	if at < 0 || at >= len(s.ops) {
		return fmt.Errorf("insert-after offset %d out of range [0,%d)", at, len(s.ops))
	}
	if len(frag) == 0 {
		return nil
	}
	frag = append([]Instruction(nil), frag...)
	s.ops = append(s.ops[:at+1], append(frag, s.ops[at+1:]...)...)
	return nil
}

// SetSym rewrites the referenced symbol of the instruction at offset i.
// Used by redirect application to retarget a call site in place.
func (s *Stream) SetSym(i int, sym string) {
	s.ops[i].Sym = sym
}

// FindLabel returns the offset of the instruction carrying the given label,
// or -1 if no instruction does.
func (s *Stream) FindLabel(name string) int {
	for i := range s.ops {
		if s.ops[i].Label == name {
			return i
		}
	}
	return -1
}

// Disassemble renders the stream as canonical text: one instruction per
// line with a four-digit offset column. Symbols are NFC-normalized, so the
// output is stable across Unicode-equivalent spellings.
func (s *Stream) Disassemble() string {
	var b strings.Builder
	for i, in := range s.ops {
		fmt.Fprintf(&b, "%04d  %s\n", i, in.format())
	}
	return b.String()
}

// canonicalValue encodes the stream as a Value for hashing.
func (s *Stream) canonicalValue() Value {
	ops := make(List, len(s.ops))
	for i, in := range s.ops {
		args := make(List, len(in.Args))
		for j, a := range in.Args {
			args[j] = Str(a)
		}
		val := in.Val
		if val == nil {
			val = Null{}
		}
		ops[i] = Map{
			"kind":  Str(in.Kind.String()),
			"sym":   Str(in.Sym),
			"dst":   Str(in.Dst),
			"args":  args,
			"val":   val,
			"label": Str(in.Label),
			"jump":  Str(in.Jump),
		}
	}
	return Map{"ops": ops}
}
