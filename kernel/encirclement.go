package kernel

import "github.com/s4lvi/historyengine-sub002/matrix"

// Encirclement reports a territorial component that has been cut off and
// surrounded by a single encircling nation (spec.md §4.2.4).
type Encirclement struct {
	Owner     int8
	Encircler int8
	Cells     []matrix.Point
}

// DetectEncirclements flood-fills every non-ocean cell once (4-connected,
// grouped by uniform owner) and reports every component that does not
// touch the map edge or ocean, whose every out-of-component neighbour
// shares one non-Unowned owner different from the component's own, and
// that contains a capital cell of that owner.
func DetectEncirclements(m *matrix.Matrix) []Encirclement {
	visited := make([]bool, m.W*m.H)
	var reports []Encirclement

	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			start := m.Idx(x, y)
			if visited[start] || m.Ocean(x, y) {
				continue
			}
			owner := m.Owner(x, y)
			comp, touchesEdgeOrOcean, outsideOwner, uniform := floodComponent(m, x, y, owner, visited)
			if owner < 0 || touchesEdgeOrOcean || !uniform || outsideOwner < 0 || outsideOwner == owner {
				continue
			}
			if !componentHasCapital(m, comp, owner) {
				continue
			}
			reports = append(reports, Encirclement{Owner: owner, Encircler: outsideOwner, Cells: comp})
		}
	}
	return reports
}

// floodComponent BFS-expands the uniform-owner component containing
// (x,y), marking visited cells. It returns the component's cells, whether
// it touches the map edge or an ocean cell, the single owner found outside
// the component (Unowned when no owned neighbour was found), and whether
// every out-of-component neighbour was owned and agreed on one owner.
func floodComponent(m *matrix.Matrix, x, y int, owner int8, visited []bool) (cells []matrix.Point, touchesEdge bool, outsideOwner int8, uniform bool) {
	const unset int8 = -2
	outsideOwner = unset
	uniform = true

	queue := []matrix.Point{{X: x, Y: y}}
	visited[m.Idx(x, y)] = true
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		cells = append(cells, p)

		for _, d := range dir4 {
			nx, ny := p.X+d[0], p.Y+d[1]
			if !m.InBounds(nx, ny) {
				touchesEdge = true
				continue
			}
			if m.Ocean(nx, ny) {
				touchesEdge = true
				continue
			}
			if m.Owner(nx, ny) == owner {
				ni := m.Idx(nx, ny)
				if !visited[ni] {
					visited[ni] = true
					queue = append(queue, matrix.Point{X: nx, Y: ny})
				}
				continue
			}
			no := m.Owner(nx, ny)
			if no == matrix.Unowned {
				uniform = false
				continue
			}
			if outsideOwner == unset {
				outsideOwner = no
			} else if outsideOwner != no {
				uniform = false
			}
		}
	}
	if outsideOwner == unset {
		outsideOwner = matrix.Unowned
	}
	return cells, touchesEdge, outsideOwner, uniform
}

func componentHasCapital(m *matrix.Matrix, cells []matrix.Point, owner int8) bool {
	cap, ok := m.Capital(owner)
	if !ok {
		return false
	}
	for _, c := range cells {
		if c.X == cap.X && c.Y == cap.Y {
			return true
		}
	}
	return false
}
