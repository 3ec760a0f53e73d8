package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorld(t *testing.T, methods ...*Method) *World {
	t.Helper()
	typ := NewType("Box", map[string]Value{"n": Int(0)})
	for _, m := range methods {
		require.NoError(t, typ.AddMethod(m))
	}
	w := NewWorld()
	require.NoError(t, w.AddType(typ))
	return w
}

// TestInvoke_BodyAndResult runs a plain method end to end.
func TestInvoke_BodyAndResult(t *testing.T) {
	m := &Method{
		Name:   "Double",
		Params: []string{"x"},
		Body: NewStream(
			Instruction{Kind: OpConst, Dst: "two", Val: Int(2)},
			Instruction{Kind: OpBinary, Sym: "*", Dst: "y", Args: []string{"x", "two"}},
			ret("y"),
		),
	}
	w := testWorld(t, m)

	got, err := w.Invoke("Box", nil, "Double", "", Int(21))
	require.NoError(t, err)
	assert.Equal(t, Int(42), got)
}

// TestInvoke_ArityMismatch rejects wrong argument counts.
func TestInvoke_ArityMismatch(t *testing.T) {
	m := &Method{Name: "Id", Params: []string{"x"}, Body: NewStream(ret("x"))}
	w := testWorld(t, m)

	_, err := w.Invoke("Box", nil, "Id", "")
	assert.Error(t, err)
}

// TestInvoke_HookOrderAndResult tests that prologue hooks run in install
// order and epilogue hooks observe the final result.
func TestInvoke_HookOrderAndResult(t *testing.T) {
	m := &Method{
		Name:   "Id",
		Params: []string{"x"},
		Body:   NewStream(ret("x")),
	}
	var order []string
	m.AddPrologue(Hook{Name: "first", Fn: func(*Invocation) { order = append(order, "first") }})
	m.AddPrologue(Hook{Name: "second", Fn: func(*Invocation) { order = append(order, "second") }})

	var observed Value
	m.AddEpilogue(Hook{Name: "tail", Fn: func(inv *Invocation) {
		order = append(order, "tail")
		observed = inv.Result
	}})

	w := testWorld(t, m)
	got, err := w.Invoke("Box", nil, "Id", "", Int(7))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "tail"}, order)
	assert.Equal(t, Int(7), got)
	assert.Equal(t, Int(7), observed)
}

// TestInvoke_CancellableSuppressesBody tests that a cancellable HEAD hook
// can skip the body while later hooks still run.
func TestInvoke_CancellableSuppressesBody(t *testing.T) {
	bodyRan := false
	w := NewWorld()
	w.RegisterFunc("probe", func(*Object, []Value) (Value, error) {
		bodyRan = true
		return Null{}, nil
	})

	m := &Method{
		Name:   "Act",
		Params: nil,
		Body:   NewStream(call("", "probe")),
	}
	later := false
	m.AddPrologue(Hook{Name: "cancel", Cancellable: true, Fn: func(inv *Invocation) { inv.Cancel() }})
	m.AddPrologue(Hook{Name: "later", Fn: func(*Invocation) { later = true }})

	typ := NewType("Box", nil)
	require.NoError(t, typ.AddMethod(m))
	require.NoError(t, w.AddType(typ))

	got, err := w.Invoke("Box", nil, "Act", "")
	require.NoError(t, err)

	assert.False(t, bodyRan, "cancelled invocation skips the body")
	assert.True(t, later, "every prologue hook still runs")
	assert.Equal(t, Null{}, got)
}

// TestInvoke_CancelIgnoredForNonCancellable tests that Cancel from a
// non-cancellable hook is a no-op.
func TestInvoke_CancelIgnoredForNonCancellable(t *testing.T) {
	m := &Method{
		Name:   "Id",
		Params: []string{"x"},
		Body:   NewStream(ret("x")),
	}
	m.AddPrologue(Hook{Name: "rogue", Fn: func(inv *Invocation) { inv.Cancel() }})

	w := testWorld(t, m)
	got, err := w.Invoke("Box", nil, "Id", "", Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(3), got, "body still runs")
}

// TestInvoke_SuppressRunsReplacement tests overwrite-style suppression.
func TestInvoke_SuppressRunsReplacement(t *testing.T) {
	m := &Method{
		Name:   "Id",
		Params: []string{"x"},
		Body:   NewStream(ret("x")),
	}
	m.AddPrologue(Hook{Name: "replace", Suppress: true, Fn: func(inv *Invocation) {
		inv.Result = Int(99)
	}})

	w := testWorld(t, m)
	got, err := w.Invoke("Box", nil, "Id", "", Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(99), got)
}

// TestInvoke_ThrowSkipsEpilogue tests that a throw is not a return.
func TestInvoke_ThrowSkipsEpilogue(t *testing.T) {
	m := &Method{
		Name:   "Boom",
		Params: []string{"msg"},
		Body:   NewStream(Instruction{Kind: OpThrow, Args: []string{"msg"}}),
	}
	tailRan := false
	m.AddEpilogue(Hook{Name: "tail", Fn: func(*Invocation) { tailRan = true }})

	w := testWorld(t, m)
	_, err := w.Invoke("Box", nil, "Boom", "", Str("bad"))

	var thrown *ThrownError
	require.ErrorAs(t, err, &thrown)
	assert.Equal(t, Str("bad"), thrown.Value)
	assert.False(t, tailRan, "TAIL hooks fire on return, not on throw")
}

// TestInvoke_BranchAndJump executes control flow through labels.
func TestInvoke_BranchAndJump(t *testing.T) {
	m := &Method{
		Name:   "Max",
		Params: []string{"a", "b"},
		Body: NewStream(
			Instruction{Kind: OpBinary, Sym: ">", Dst: "c", Args: []string{"a", "b"}},
			Instruction{Kind: OpBranch, Args: []string{"c"}, Jump: "other"},
			ret("a"),
			Instruction{Kind: OpReturn, Args: []string{"b"}, Label: "other"},
		),
	}
	w := testWorld(t, m)

	got, err := w.Invoke("Box", nil, "Max", "", Int(5), Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(5), got)

	got, err = w.Invoke("Box", nil, "Max", "", Int(2), Int(9))
	require.NoError(t, err)
	assert.Equal(t, Int(9), got)
}

// TestInvoke_FieldAccess reads and writes receiver fields.
func TestInvoke_FieldAccess(t *testing.T) {
	m := &Method{
		Name:   "Bump",
		Params: []string{"d"},
		Body: NewStream(
			Instruction{Kind: OpFieldGet, Sym: "n", Dst: "v"},
			Instruction{Kind: OpBinary, Sym: "+", Dst: "t", Args: []string{"v", "d"}},
			Instruction{Kind: OpFieldSet, Sym: "n", Args: []string{"t"}},
			ret("t"),
		),
	}
	w := testWorld(t, m)

	recv, err := w.NewObject("Box")
	require.NoError(t, err)

	got, err := w.Invoke("Box", recv, "Bump", "", Int(4))
	require.NoError(t, err)
	assert.Equal(t, Int(4), got)
	assert.Equal(t, Int(4), recv.Fields["n"])

	got, err = w.Invoke("Box", recv, "Bump", "", Int(6))
	require.NoError(t, err)
	assert.Equal(t, Int(10), got)
}

// TestInvoke_StepQuota aborts runaway loops.
func TestInvoke_StepQuota(t *testing.T) {
	m := &Method{
		Name: "Spin",
		Body: NewStream(
			Instruction{Kind: OpJump, Jump: "top", Label: "top"},
		),
	}
	w := testWorld(t, m)
	w.SetMaxSteps(50)

	_, err := w.Invoke("Box", nil, "Spin", "")
	var quota *StepsExceededError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, 50, quota.Limit)
}

// TestInvoke_UnknownCallable reports unbound symbols.
func TestInvoke_UnknownCallable(t *testing.T) {
	m := &Method{Name: "Act", Body: NewStream(call("", "missing"))}
	w := testWorld(t, m)

	_, err := w.Invoke("Box", nil, "Act", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

// TestInvoke_ImplicitVoidReturn falls off the end.
func TestInvoke_ImplicitVoidReturn(t *testing.T) {
	m := &Method{Name: "Nop", Body: NewStream(
		Instruction{Kind: OpConst, Dst: "x", Val: Int(1)},
	)}
	w := testWorld(t, m)

	got, err := w.Invoke("Box", nil, "Nop", "")
	require.NoError(t, err)
	assert.Equal(t, Null{}, got)
}

// TestRunStream_Detached executes a stream outside any method pipeline.
func TestRunStream_Detached(t *testing.T) {
	w := NewWorld()
	s := NewStream(
		Instruction{Kind: OpBinary, Sym: "+", Dst: "t", Args: []string{"a", "b"}},
		ret("t"),
	)

	got, err := w.RunStream(s, nil, []string{"a", "b"}, []Value{Int(1), Int(2)}, "detached")
	require.NoError(t, err)
	assert.Equal(t, Int(3), got)

	_, err = w.RunStream(s, nil, []string{"a", "b"}, []Value{Int(1)}, "detached")
	assert.Error(t, err, "arity checked")
}
