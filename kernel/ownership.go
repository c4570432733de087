package kernel

import "github.com/s4lvi/historyengine-sub002/matrix"

// DeriveOwnership implements spec.md §4.2.1: for each non-ocean cell, find
// the nation with maximum loyalty. Ownership flips only if that maximum
// exceeds threshold, exceeds the current owner's loyalty at the same cell,
// and the challenger differs from the current owner. It never unclaims.
// Returns the number of cells flipped.
func DeriveOwnership(m *matrix.Matrix, threshold float64) int {
	nations := m.Nations()
	flips := 0
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.Ocean(x, y) {
				continue
			}
			var best int8 = matrix.Unowned
			var bestLoyalty float32 = -1
			for _, n := range nations {
				l := m.Loyalty(x, y, n)
				if l > bestLoyalty {
					bestLoyalty = l
					best = n
				}
			}
			if best < 0 || float64(bestLoyalty) <= threshold {
				continue
			}
			cur := m.Owner(x, y)
			if best == cur {
				continue
			}
			if cur >= 0 && bestLoyalty <= m.Loyalty(x, y, cur) {
				continue
			}
			m.SetOwner(x, y, best)
			flips++
		}
	}
	return flips
}
