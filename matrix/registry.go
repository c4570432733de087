package matrix

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// registry is the bidirectional owner-string <-> nation-index map (spec.md
// §3.3). Indices are stable for the session; a removed nation leaves a hole
// in indexToOwner, and new allocations reuse the lowest hole.
//
// Owner identifiers cross a persistence boundary and may arrive as plain
// strings or as opaque identifiers whose string form round-trips
// differently (spec.md §9 "Dynamic keys crossing a persistence boundary").
// Every lookup and insertion normalizes to NFC form first so two
// byte-distinct-but-canonically-equal keys never split into two indices.
type registry struct {
	ownerToIndex map[string]int8
	indexToOwner []*string
}

func newRegistry(n int) *registry {
	return &registry{
		ownerToIndex: make(map[string]int8, n),
		indexToOwner: make([]*string, n),
	}
}

func normalizeOwner(owner string) string {
	return norm.NFC.String(owner)
}

// lookup returns the index for owner and whether it is currently registered.
func (r *registry) lookup(owner string) (int8, bool) {
	idx, ok := r.ownerToIndex[normalizeOwner(owner)]
	return idx, ok
}

// ownerOf returns the owner string for a nation index, if any.
func (r *registry) ownerOf(n int8) (string, bool) {
	if n < 0 || int(n) >= len(r.indexToOwner) || r.indexToOwner[n] == nil {
		return "", false
	}
	return *r.indexToOwner[n], true
}

// register allocates the lowest free index for owner, or returns the
// existing index if owner is already registered. Returns an error if no
// slot is free.
func (r *registry) register(owner string) (int8, error) {
	key := normalizeOwner(owner)
	if idx, ok := r.ownerToIndex[key]; ok {
		return idx, nil
	}
	for i, slot := range r.indexToOwner {
		if slot == nil {
			r.indexToOwner[i] = &key
			r.ownerToIndex[key] = int8(i)
			return int8(i), nil
		}
	}
	return -1, fmt.Errorf("registry: no free nation slot (max %d)", len(r.indexToOwner))
}

// registerAt assigns owner to the exact index n, used to restore a nation
// at its original slot during deserialization (spec.md §4.7) so that the
// nation-cell layers, indexed by that slot, line up with the nation it
// named at serialization time.
func (r *registry) registerAt(owner string, n int8) error {
	if n < 0 || int(n) >= len(r.indexToOwner) {
		return fmt.Errorf("registry: index %d out of range", n)
	}
	if r.indexToOwner[n] != nil {
		return fmt.Errorf("registry: slot %d already occupied", n)
	}
	key := normalizeOwner(owner)
	if _, ok := r.ownerToIndex[key]; ok {
		return fmt.Errorf("registry: owner %q already registered", owner)
	}
	r.indexToOwner[n] = &key
	r.ownerToIndex[key] = n
	return nil
}

// retire clears the owner's slot, leaving a hole that later registrations
// may reuse. The matrix's dynamic layers for that index must be cleared by
// the caller (spec.md §3.6).
func (r *registry) retire(n int8) {
	if n < 0 || int(n) >= len(r.indexToOwner) || r.indexToOwner[n] == nil {
		return
	}
	delete(r.ownerToIndex, *r.indexToOwner[n])
	r.indexToOwner[n] = nil
}

// live returns every currently-registered nation index, ascending.
func (r *registry) live() []int8 {
	out := make([]int8, 0, len(r.indexToOwner))
	for i, slot := range r.indexToOwner {
		if slot != nil {
			out = append(out, int8(i))
		}
	}
	return out
}
