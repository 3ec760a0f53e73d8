package descriptor

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// MixinDescriptor is one mixin module's compiled declaration set against a
// single target type. Created once at registration, immutable thereafter,
// alive for the process lifetime (mixins are never unregistered).
type MixinDescriptor struct {
	// Mixin is the declaring module's identifier.
	Mixin string

	// Target is the target type name this descriptor augments.
	Target string

	// Requires lists mixin identifiers that must also be active for this
	// target set; Conflicts lists identifiers that must not be.
	Requires  []string
	Conflicts []string

	Redirects    []*RedirectSpec
	Conditionals []*ConditionalInjectSpec
	Multis       []*MultiInjectSpec
	Transpilers  []*TranspilerSpec
	Injects      []*InjectSpec
	Overwrites   []*OverwriteSpec

	fingerprint string
}

// Specs returns every spec in declaration order.
func (d *MixinDescriptor) Specs() []Spec {
	var all []Spec
	for _, s := range d.Redirects {
		all = append(all, s)
	}
	for _, s := range d.Conditionals {
		all = append(all, s)
	}
	for _, s := range d.Multis {
		all = append(all, s)
	}
	for _, s := range d.Transpilers {
		all = append(all, s)
	}
	for _, s := range d.Injects {
		all = append(all, s)
	}
	for _, s := range d.Overwrites {
		all = append(all, s)
	}
	// Restore declaration order across the typed lists.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].DeclSeq() < all[j-1].DeclSeq(); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	return all
}

// SpecsOfKind returns the specs of one kind in declaration order.
func (d *MixinDescriptor) SpecsOfKind(k Kind) []Spec {
	var out []Spec
	for _, s := range d.Specs() {
		if s.SpecKind() == k {
			out = append(out, s)
		}
	}
	return out
}

// Priority is the descriptor's aggregate ordering key: the minimum
// priority across its specs, or DefaultPriority when it declares none.
// Lower values apply earlier within a phase.
func (d *MixinDescriptor) Priority() int {
	p := DefaultPriority
	for _, s := range d.Specs() {
		if sp := priorityOf(s); sp < p {
			p = sp
		}
	}
	return p
}

// Fingerprint is the content-addressed identity of the descriptor's
// metadata. Two registrations with identical declarations share a
// fingerprint, which is what makes re-registration idempotent.
func (d *MixinDescriptor) Fingerprint() (string, error) {
	if d.fingerprint != "" {
		return d.fingerprint, nil
	}

	requires := make(ir.List, len(d.Requires))
	for i, r := range d.Requires {
		requires[i] = ir.Str(r)
	}
	conflicts := make(ir.List, len(d.Conflicts))
	for i, c := range d.Conflicts {
		conflicts[i] = ir.Str(c)
	}
	specs := ir.List{}
	for _, s := range d.Specs() {
		specs = append(specs, s.canonical())
	}

	canonical, err := ir.MarshalCanonical(ir.Map{
		"mixin":     ir.Str(d.Mixin),
		"target":    ir.Str(d.Target),
		"requires":  requires,
		"conflicts": conflicts,
		"specs":     specs,
	})
	if err != nil {
		return "", fmt.Errorf("descriptor fingerprint: %w", err)
	}

	d.fingerprint = ir.HashWithDomain(ir.DomainDescriptor, canonical)
	return d.fingerprint, nil
}

// SpecFingerprint identifies one spec within its descriptor.
func SpecFingerprint(d *MixinDescriptor, s Spec) (string, error) {
	canonical, err := ir.MarshalCanonical(ir.Map{
		"mixin": ir.Str(d.Mixin),
		"spec":  s.canonical(),
	})
	if err != nil {
		return "", fmt.Errorf("spec fingerprint: %w", err)
	}
	return ir.HashWithDomain(ir.DomainDescriptor, canonical), nil
}
