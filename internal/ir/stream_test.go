package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ret(arg string) Instruction {
	return Instruction{Kind: OpReturn, Args: []string{arg}}
}

func call(dst, sym string, args ...string) Instruction {
	return Instruction{Kind: OpCall, Dst: dst, Sym: sym, Args: args}
}

// TestStream_InsertTransfersLabel tests that inserting before a labeled
// instruction moves the label onto the fragment head.
func TestStream_InsertTransfersLabel(t *testing.T) {
	s := NewStream(
		Instruction{Kind: OpJump, Jump: "end"},
		Instruction{Kind: OpConst, Dst: "x", Val: Int(1)},
		Instruction{Kind: OpReturn, Label: "end"},
	)

	require.NoError(t, s.Insert(2, call("", "probe")))

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, "end", s.At(2).Label, "label moves to fragment head")
	assert.Equal(t, "probe", s.At(2).Sym)
	assert.Empty(t, s.At(3).Label, "original instruction loses the label")
	assert.Equal(t, 2, s.FindLabel("end"), "inbound jumps now reach the fragment first")
}

// TestStream_InsertWithoutLabel tests plain insertion.
func TestStream_InsertWithoutLabel(t *testing.T) {
	s := NewStream(ret("a"), ret("b"))

	require.NoError(t, s.Insert(1, call("", "probe")))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, OpCall, s.At(1).Kind)
	assert.Equal(t, OpReturn, s.At(2).Kind)
}

// TestStream_InsertAtEnd appends.
func TestStream_InsertAtEnd(t *testing.T) {
	s := NewStream(ret("a"))
	require.NoError(t, s.Insert(1, call("", "probe")))
	assert.Equal(t, OpCall, s.At(1).Kind)
}

// TestStream_InsertOutOfRange rejects bad offsets.
func TestStream_InsertOutOfRange(t *testing.T) {
	s := NewStream(ret("a"))
	assert.Error(t, s.Insert(-1, call("", "probe")))
	assert.Error(t, s.Insert(2, call("", "probe")))
}

// TestStream_InsertAfterKeepsFollowingLabel tests that InsertAfter does
// not move the next instruction's label.
func TestStream_InsertAfterKeepsFollowingLabel(t *testing.T) {
	s := NewStream(
		call("x", "fetch"),
		Instruction{Kind: OpReturn, Label: "exit", Args: []string{"x"}},
	)

	require.NoError(t, s.InsertAfter(0, call("", "probe")))

	assert.Equal(t, 3, s.Len())
	assert.Empty(t, s.At(1).Label, "fragment carries no label")
	assert.Equal(t, "exit", s.At(2).Label, "following label stays put")
}

// TestStream_CloneIsIndependent tests deep copy semantics.
func TestStream_CloneIsIndependent(t *testing.T) {
	s := NewStream(call("x", "fetch", "a"))
	clone := s.Clone()

	clone.SetSym(0, "other")
	clone.Append(ret("x"))

	assert.Equal(t, "fetch", s.At(0).Sym)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, clone.Len())
}

// TestStream_Hash_LabelSensitive tests that moving a label changes the
// hash: labels are semantic, not decoration.
func TestStream_Hash_LabelSensitive(t *testing.T) {
	a := NewStream(
		Instruction{Kind: OpConst, Dst: "x", Val: Int(1), Label: "top"},
		ret("x"),
	)
	b := NewStream(
		Instruction{Kind: OpConst, Dst: "x", Val: Int(1)},
		Instruction{Kind: OpReturn, Args: []string{"x"}, Label: "top"},
	)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

// TestStream_Hash_Deterministic tests equal streams hash equal.
func TestStream_Hash_Deterministic(t *testing.T) {
	build := func() *Stream {
		return NewStream(call("x", "fetch", "a", "b"), ret("x"))
	}
	ha, err := build().Hash()
	require.NoError(t, err)
	hb, err := build().Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

// TestStream_Disassemble renders offsets and mnemonics.
func TestStream_Disassemble(t *testing.T) {
	s := NewStream(
		Instruction{Kind: OpConst, Dst: "x", Val: Int(7)},
		ret("x"),
	)
	out := s.Disassemble()
	assert.Contains(t, out, "0000")
	assert.Contains(t, out, "0001")
}
