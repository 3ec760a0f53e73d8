// Package resolver orders mixin descriptors and validates their declared
// requires/conflicts sets before activation.
//
// Resolution is a pure function over the full descriptor set: it never
// touches instruction streams and has no side effects. Its output - a
// per-target ordered activation list plus an exclusion report - is the
// single source of ordering truth for the patch engine and the registry.
// Registration arrival order never influences application order.
package resolver

import (
	"fmt"
	"sort"

	"github.com/roach88/loom/internal/descriptor"
)

// ConflictReason distinguishes the two exclusion causes.
type ConflictReason string

const (
	// ReasonConflict indicates a mixin named in the descriptor's conflicts
	// set is active.
	ReasonConflict ConflictReason = "CONFLICT"

	// ReasonUnmetRequire indicates a mixin named in the descriptor's
	// requires set is absent or itself excluded.
	ReasonUnmetRequire ConflictReason = "UNMET_REQUIRE"
)

// ConflictError reports one descriptor's exclusion from activation.
// Exclusion is local: other descriptors proceed.
type ConflictError struct {
	Mixin  string
	Target string
	Reason ConflictReason

	// Other is the mixin identifier that triggered the exclusion.
	Other string
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonConflict:
		return fmt.Sprintf("%s: mixin %s (target %s) conflicts with active mixin %s", e.Reason, e.Mixin, e.Target, e.Other)
	default:
		return fmt.Sprintf("%s: mixin %s (target %s) requires inactive mixin %s", e.Reason, e.Mixin, e.Target, e.Other)
	}
}

// Exclusion pairs an excluded descriptor with its cause.
type Exclusion struct {
	Desc *descriptor.MixinDescriptor
	Err  *ConflictError
}

// Resolution is the ordered activation plan for one descriptor set.
type Resolution struct {
	byTarget map[string][]*descriptor.MixinDescriptor
	order    map[string]int
	excluded []Exclusion
}

// ForTarget returns the active descriptors for a target type, ascending by
// aggregate priority, stable on ties.
func (r *Resolution) ForTarget(target string) []*descriptor.MixinDescriptor {
	return r.byTarget[target]
}

// Targets returns every target type with at least one active descriptor,
// in ascending name order.
func (r *Resolution) Targets() []string {
	targets := make([]string, 0, len(r.byTarget))
	for t := range r.byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Order returns the activation index of a mixin, or -1 if it is not
// active. Lower indexes apply earlier; the registry sorts pending specs by
// this, never by registration arrival order.
func (r *Resolution) Order(mixin string) int {
	if idx, ok := r.order[mixin]; ok {
		return idx
	}
	return -1
}

// Excluded returns the descriptors dropped during validation.
func (r *Resolution) Excluded() []Exclusion {
	return r.excluded
}

// Resolve orders descriptors per target type and validates requires and
// conflicts.
//
// Validation runs in two steps. First, unmet requires are excluded to a
// fixpoint, so an exclusion cascades through chains of requires. Second,
// conflicts are checked against the surviving active set, followed by one
// more requires cascade for anything a conflict exclusion invalidated.
// Exclusions are monotone - a descriptor excluded once never reactivates,
// which keeps the outcome deterministic and independent of check order.
func Resolve(descs []*descriptor.MixinDescriptor) *Resolution {
	res := &Resolution{
		byTarget: make(map[string][]*descriptor.MixinDescriptor),
		order:    make(map[string]int),
	}

	present := make(map[string]*descriptor.MixinDescriptor, len(descs))
	for _, d := range descs {
		present[d.Mixin] = d
	}

	excluded := make(map[string]*ConflictError)

	// Requires cascade to fixpoint.
	cascadeRequires(descs, present, excluded)

	// Conflicts against the active set, in input order for determinism.
	for _, d := range descs {
		if excluded[d.Mixin] != nil {
			continue
		}
		for _, other := range d.Conflicts {
			if _, ok := present[other]; ok && excluded[other] == nil {
				excluded[d.Mixin] = &ConflictError{
					Mixin:  d.Mixin,
					Target: d.Target,
					Reason: ReasonConflict,
					Other:  other,
				}
				break
			}
		}
	}

	// A conflict exclusion may have invalidated someone's requires.
	cascadeRequires(descs, present, excluded)

	for _, d := range descs {
		if err := excluded[d.Mixin]; err != nil {
			res.excluded = append(res.excluded, Exclusion{Desc: d, Err: err})
			continue
		}
		res.byTarget[d.Target] = append(res.byTarget[d.Target], d)
	}

	// Ascending aggregate priority, stable on ties (declaration order).
	idx := 0
	for _, target := range res.Targets() {
		group := res.byTarget[target]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority() < group[j].Priority()
		})
		for _, d := range group {
			res.order[d.Mixin] = idx
			idx++
		}
	}

	return res
}

// cascadeRequires excludes descriptors with unmet requires until no more
// exclusions occur.
func cascadeRequires(
	descs []*descriptor.MixinDescriptor,
	present map[string]*descriptor.MixinDescriptor,
	excluded map[string]*ConflictError,
) {
	for changed := true; changed; {
		changed = false
		for _, d := range descs {
			if excluded[d.Mixin] != nil {
				continue
			}
			for _, req := range d.Requires {
				if _, ok := present[req]; ok && excluded[req] == nil {
					continue
				}
				excluded[d.Mixin] = &ConflictError{
					Mixin:  d.Mixin,
					Target: d.Target,
					Reason: ReasonUnmetRequire,
					Other:  req,
				}
				changed = true
				break
			}
		}
	}
}
