package patch

import (
	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
)

// insertion is one located injection point: an offset into the scanned
// stream plus whether the fragment goes before or after the matched
// operation. Offsets are in the coordinates of the stream as scanned;
// callers inserting multiple fragments must account for the index shift.
type insertion struct {
	index int
	after bool
}

// The matchers are stateless: each scans a stream for its operation
// category and returns zero or more insertion points. HEAD and TAIL have
// no matcher - their positions are structural, not content-defined.

// matchInvoke matches only the FIRST call operation. The asymmetry with
// matchInvokeAfter is deliberate and part of the declared contract:
// INVOKE targets "the call", INVOKE_AFTER targets "every call".
func matchInvoke(s *ir.Stream) []insertion {
	for i := 0; i < s.Len(); i++ {
		if s.At(i).Kind.Category() == ir.CatCall {
			return []insertion{{index: i}}
		}
	}
	return nil
}

// matchInvokeAfter matches every call operation, inserting after each.
func matchInvokeAfter(s *ir.Stream) []insertion {
	return matchEvery(s, ir.CatCall, true)
}

// matchReturn matches every return operation - all exit points, including
// early returns. Paths that never return (e.g. an infinite loop branch)
// contribute no match.
func matchReturn(s *ir.Stream) []insertion {
	return matchEvery(s, ir.CatReturn, false)
}

// matchFieldGet matches every field read.
func matchFieldGet(s *ir.Stream) []insertion {
	return matchEvery(s, ir.CatFieldRead, false)
}

// matchFieldSet matches every field write.
func matchFieldSet(s *ir.Stream) []insertion {
	return matchEvery(s, ir.CatFieldWrite, false)
}

// matchThrow matches every throw.
func matchThrow(s *ir.Stream) []insertion {
	return matchEvery(s, ir.CatThrow, false)
}

// matchNew matches every object construction.
func matchNew(s *ir.Stream) []insertion {
	return matchEvery(s, ir.CatConstruct, false)
}

func matchEvery(s *ir.Stream, cat ir.Category, after bool) []insertion {
	var out []insertion
	for i := 0; i < s.Len(); i++ {
		if s.At(i).Kind.Category() == cat {
			out = append(out, insertion{index: i, after: after})
		}
	}
	return out
}

// matcherFor returns the matcher for a scanning injection point.
// Panics for structural points; callers dispatch HEAD/TAIL before asking.
func matcherFor(at descriptor.InjectionPoint) func(*ir.Stream) []insertion {
	switch at {
	case descriptor.AtInvoke:
		return matchInvoke
	case descriptor.AtInvokeAfter:
		return matchInvokeAfter
	case descriptor.AtReturn:
		return matchReturn
	case descriptor.AtFieldGet:
		return matchFieldGet
	case descriptor.AtFieldSet:
		return matchFieldSet
	case descriptor.AtThrow:
		return matchThrow
	case descriptor.AtNew:
		return matchNew
	default:
		panic("no matcher for injection point " + string(at))
	}
}

// spliceAll inserts the fragment at every located point, accounting for
// the running index shift as earlier insertions grow the stream. Insert
// transfers any branch label at the offset onto the fragment head, so
// inbound control flow still reaches a semantically equivalent point.
func spliceAll(s *ir.Stream, points []insertion, frag []ir.Instruction) error {
	delta := 0
	for _, p := range points {
		var err error
		if p.after {
			err = s.InsertAfter(p.index+delta, frag...)
		} else {
			err = s.Insert(p.index+delta, frag...)
		}
		if err != nil {
			return err
		}
		delta += len(frag)
	}
	return nil
}
