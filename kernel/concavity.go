package kernel

import "github.com/s4lvi/historyengine-sub002/matrix"

// ConcavityFill implements spec.md §4.2.2: for each unowned non-ocean
// cell, inspect the 8 neighbours; if at least minNeighbors share a single
// nation owner and no other nation ties that count, claim the cell for
// that nation with loyalty 1.0. Runs cascading passes up to maxPasses,
// stopping early when a pass fills zero cells; ties leave the cell
// unowned. Returns the total number of cells claimed.
func ConcavityFill(m *matrix.Matrix, minNeighbors, maxPasses int) int {
	total := 0
	counts := make(map[int8]int, 8)
	for pass := 0; pass < maxPasses; pass++ {
		filled := 0
		// Collect claims first so a claim made mid-pass doesn't feed the
		// same pass's neighbour counts for cells visited later.
		type claim struct {
			x, y int
			n    int8
		}
		var claims []claim
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				if m.Ocean(x, y) || m.Owner(x, y) != matrix.Unowned {
					continue
				}
				for k := range counts {
					delete(counts, k)
				}
				neighbors8(m, x, y, func(nx, ny int) {
					if o := m.Owner(nx, ny); o >= 0 {
						counts[o]++
					}
				})
				var best int8 = matrix.Unowned
				bestCount, tie := 0, false
				for n, c := range counts {
					switch {
					case c > bestCount:
						best, bestCount, tie = n, c, false
					case c == bestCount:
						tie = true
					}
				}
				if tie || bestCount < minNeighbors {
					continue
				}
				claims = append(claims, claim{x, y, best})
			}
		}
		for _, c := range claims {
			m.SetOwner(c.x, c.y, c.n)
			m.SetLoyaltyAt(c.n, m.Idx(c.x, c.y), 1.0)
			filled++
		}
		total += filled
		if filled == 0 {
			break
		}
	}
	return total
}
