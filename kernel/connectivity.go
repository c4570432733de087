package kernel

import "github.com/s4lvi/historyengine-sub002/matrix"

// Component4 runs a 4-connected BFS over cells owned by n, seeded at
// (x,y), and returns a bit mask over the full map (spec.md §4.2.3).
func Component4(m *matrix.Matrix, x, y int, n int8) []bool {
	mask := make([]bool, m.W*m.H)
	if !m.InBounds(x, y) || m.Owner(x, y) != n {
		return mask
	}
	queue := []int{m.Idx(x, y)}
	mask[queue[0]] = true
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		cx, cy := i%m.W, i/m.W
		neighbors4(m, cx, cy, func(nx, ny int) {
			ni := m.Idx(nx, ny)
			if !mask[ni] && m.Owner(nx, ny) == n {
				mask[ni] = true
				queue = append(queue, ni)
			}
		})
	}
	return mask
}

// RemoveDisconnectedTerritory unclaims every cell owned by n that is not
// in the connected component containing (capitalX, capitalY) (spec.md
// §4.2.3). Returns the number of cells released.
func RemoveDisconnectedTerritory(m *matrix.Matrix, n int8, capitalX, capitalY int) int {
	component := Component4(m, capitalX, capitalY, n)
	released := 0
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			i := m.Idx(x, y)
			if m.Owner(x, y) == n && !component[i] {
				m.SetOwner(x, y, matrix.Unowned)
				released++
			}
		}
	}
	return released
}
