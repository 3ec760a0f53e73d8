// Package registry keys pending specs by (target type, target method) for
// the rewrite pass.
//
// It exists because stream rewriting happens in a second pass driven only
// by the method identity and the raw stream - not by which mixin requested
// the rewrite. The patch engine consults the registry by key at rewrite
// time to recover the originating specs and descriptors.
package registry

import (
	"sync"

	"github.com/roach88/loom/internal/descriptor"
)

// Key identifies one target method. Sig carries the overload
// disambiguator; specs naming different disambiguators of one method are
// distinct keys and resolve independently.
type Key struct {
	Target string
	Method string
	Sig    string
}

// Pending pairs a spec with its owning descriptor.
type Pending struct {
	Spec descriptor.Spec
	Desc *descriptor.MixinDescriptor
}

// Registry is the keyed pending-spec store.
//
// Thread-safety: Store and Lookup are mutex-guarded so mixin modules
// loading from parallel goroutines cannot corrupt a key's entry set.
// Ordering, however, never depends on arrival: Lookup sorts by the
// resolver's activation order, then by declaration order within a mixin.
type Registry struct {
	mu      sync.Mutex
	entries map[Key][]Pending
	seen    map[string]bool
	order   func(mixin string) int
}

// New creates a registry ordered by the given activation-order function
// (normally Resolution.Order).
func New(order func(mixin string) int) *Registry {
	return &Registry{
		entries: make(map[Key][]Pending),
		seen:    make(map[string]bool),
		order:   order,
	}
}

// Store records a pending spec under its key. Write-once per
// (spec, descriptor) pair: storing an identical pair again is a no-op,
// which keeps re-registration idempotent.
func (r *Registry) Store(key Key, spec descriptor.Spec, desc *descriptor.MixinDescriptor) error {
	specFP, err := descriptor.SpecFingerprint(desc, spec)
	if err != nil {
		return err
	}
	descFP, err := desc.Fingerprint()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dedupe := descFP + "/" + specFP
	if r.seen[dedupe] {
		return nil
	}
	r.seen[dedupe] = true
	r.entries[key] = append(r.entries[key], Pending{Spec: spec, Desc: desc})
	return nil
}

// Lookup returns the pending entries for a key, ordered by activation
// order then declaration order. Reads are idempotent; the same key may be
// looked up repeatedly (e.g. by inspection tooling) without side effects.
func (r *Registry) Lookup(key Key) []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := append([]Pending(nil), r.entries[key]...)
	// Insertion sort keeps this dependency-free and stable; entry counts
	// per key are small.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && r.less(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	return entries
}

// Keys returns every key with pending entries. Order is unspecified;
// callers sort as needed.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

func (r *Registry) less(a, b Pending) bool {
	ao, bo := r.order(a.Desc.Mixin), r.order(b.Desc.Mixin)
	if ao != bo {
		return ao < bo
	}
	return a.Spec.DeclSeq() < b.Spec.DeclSeq()
}
