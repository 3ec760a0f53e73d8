package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolve_SingleMatch resolves a non-overloaded name without a sig.
func TestResolve_SingleMatch(t *testing.T) {
	typ := NewType("Box", nil)
	require.NoError(t, typ.AddMethod(&Method{Name: "Act", Body: NewStream()}))

	m, err := typ.Resolve("Act", "")
	require.NoError(t, err)
	assert.Equal(t, "Act", m.Name)
}

// TestResolve_NotFound reports the sentinel for unknown names.
func TestResolve_NotFound(t *testing.T) {
	typ := NewType("Box", nil)

	_, err := typ.Resolve("Nope", "")
	assert.ErrorIs(t, err, ErrMethodNotFound)
}

// TestResolve_AmbiguousOverloads never picks an arbitrary overload.
func TestResolve_AmbiguousOverloads(t *testing.T) {
	typ := NewType("Box", nil)
	require.NoError(t, typ.AddMethod(&Method{Name: "Act", Sig: "(int)", Body: NewStream()}))
	require.NoError(t, typ.AddMethod(&Method{Name: "Act", Sig: "(int,int)", Body: NewStream()}))

	_, err := typ.Resolve("Act", "")
	assert.ErrorIs(t, err, ErrMethodAmbiguous)

	m, err := typ.Resolve("Act", "(int,int)")
	require.NoError(t, err)
	assert.Equal(t, "Act(int,int)", m.Ident())
}

// TestAddMethod_DuplicateRejected rejects duplicate (name, sig) pairs.
func TestAddMethod_DuplicateRejected(t *testing.T) {
	typ := NewType("Box", nil)
	require.NoError(t, typ.AddMethod(&Method{Name: "Act", Body: NewStream()}))
	assert.Error(t, typ.AddMethod(&Method{Name: "Act", Body: NewStream()}))
}

// TestWorld_TypeNamesSorted returns deterministic order.
func TestWorld_TypeNamesSorted(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.AddType(NewType("Zeta", nil)))
	require.NoError(t, w.AddType(NewType("Alpha", nil)))

	assert.Equal(t, []string{"Alpha", "Zeta"}, w.TypeNames())
}

// TestWorld_NewObjectCopiesDefaults gives each instance its own fields.
func TestWorld_NewObjectCopiesDefaults(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.AddType(NewType("Box", map[string]Value{"n": Int(1)})))

	a, err := w.NewObject("Box")
	require.NoError(t, err)
	b, err := w.NewObject("Box")
	require.NoError(t, err)

	a.Fields["n"] = Int(5)
	assert.Equal(t, Int(1), b.Fields["n"])
}
