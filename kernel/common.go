// Package kernel implements the pure field operations of spec.md §4.2:
// ownership derivation from loyalty, passive concavity fill, connectivity,
// encirclement detection and frontier-candidate scoring. None of these
// allocate per cell; none of them ever fail over a valid matrix (spec.md
// §7 "All kernels are total over valid matrix state").
package kernel

import (
	"golang.org/x/exp/constraints"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

var dir4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
var dir8 = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// neighbors4 calls fn for each in-bounds 4-neighbour of (x,y).
func neighbors4(m *matrix.Matrix, x, y int, fn func(nx, ny int)) {
	for _, d := range dir4 {
		nx, ny := x+d[0], y+d[1]
		if m.InBounds(nx, ny) {
			fn(nx, ny)
		}
	}
}

// neighbors8 calls fn for each in-bounds 8-neighbour of (x,y).
func neighbors8(m *matrix.Matrix, x, y int, fn func(nx, ny int)) {
	for _, d := range dir8 {
		nx, ny := x+d[0], y+d[1]
		if m.InBounds(nx, ny) {
			fn(nx, ny)
		}
	}
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
