package ir

import "sort"

// Value is a sealed interface over the constrained value types instruction
// operands and canonical encodings are built from.
// Only Null, Str, Int, Bool, List, Map, and Ref implement it.
// There is no float kind - floats break deterministic hashing.
type Value interface {
	irValue() // sealed
}

// Null is the absent value.
type Null struct{}

func (Null) irValue() {}

// Str is a string value.
type Str string

func (Str) irValue() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// List is an ordered sequence of values.
type List []Value

func (List) irValue() {}

// Map is a string-keyed collection of values.
// Use SortedKeys for deterministic iteration.
type Map map[string]Value

func (Map) irValue() {}

// Ref holds a reference to a live object instance. Refs exist only at
// execution time (OpNew results, receivers); the canonical encoder rejects
// them.
type Ref struct {
	Obj *Object
}

func (Ref) irValue() {}

// SortedKeys returns the map's keys in ascending byte order.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Truthy reports whether a value is considered true by OpBranch.
// Null and false are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	default:
		return true
	}
}

// Equal compares two values structurally. Refs compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		_, null := b.(Null)
		return b == nil || null
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Ref:
		bv, ok := b.(Ref)
		return ok && av.Obj == bv.Obj
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !Equal(v, bv[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
