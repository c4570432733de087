// Package delta implements spec.md §4.7: cell-flip delta derivation,
// per-player view assembly, wire packing, and the versioned persistence
// codec.
package delta

import "github.com/s4lvi/historyengine-sub002/matrix"

// Delta is one nation's ownership change for a single tick: cells gained
// (Add) and cells lost (Sub), both flat coordinate lists.
type Delta struct {
	Add []matrix.Point
	Sub []matrix.Point
}

// Empty reports whether the delta carries no change at all (spec.md §4.7
// "Bandwidth floor": pack must return null in this case).
func (d Delta) Empty() bool { return len(d.Add) == 0 && len(d.Sub) == 0 }

// DeriveDeltas walks m.DirtyCells() and emits one Delta per affected
// nation: each flipped cell contributes a Sub entry to its former owner and
// an Add entry to its new owner (spec.md §4.7). Cost is O(cells changed),
// not O(size), since SetOwner is the only writer of ownership and records
// every flip as it happens.
func DeriveDeltas(m *matrix.Matrix) map[int8]*Delta {
	out := make(map[int8]*Delta)
	for _, i64 := range m.DirtyCells() {
		i := int(i64)
		prev := m.PrevOwnerAt(i)
		cur := m.OwnerAt(i)
		if prev == cur {
			continue
		}
		x, y := i%m.W, i/m.W
		if prev >= 0 {
			d := out[prev]
			if d == nil {
				d = &Delta{}
				out[prev] = d
			}
			d.Sub = append(d.Sub, matrix.Point{X: x, Y: y})
		}
		if cur >= 0 {
			d := out[cur]
			if d == nil {
				d = &Delta{}
				out[cur] = d
			}
			d.Add = append(d.Add, matrix.Point{X: x, Y: y})
		}
	}
	return out
}
