package kernel

import (
	"math"
	"sort"

	"github.com/brentp/intintmap"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

// Candidate is a ranked frontier cell for nation n to expand into
// (spec.md §4.2.5).
type Candidate struct {
	X, Y  int
	Score float64
}

// FrontierOptions parameters the scoring of spec.md §4.2.5. Target and
// Anchor are optional (nil to omit their term); Path is the optional arrow
// path used for along/perpendicular scoring.
type FrontierOptions struct {
	Target          *matrix.Point
	Anchor          *matrix.Point
	Path            []matrix.Point
	MaxDistFromPath float64
}

// holeBonusThreshold is the owned-8-neighbour count at or above which the "hole
// bonus" kicks in (spec.md §4.2.5 "3+").
const holeBonusThreshold = 3

// FrontierCandidates produces a ranked list of unowned/enemy cells
// adjacent to n's territory, scored by owned-neighbour count (with a hole
// bonus), distance to a target point, distance from an anchor, and
// along/perpendicular path progress when a path is supplied. Candidates
// farther than MaxDistFromPath from the path are dropped.
func FrontierCandidates(m *matrix.Matrix, n int8, opt FrontierOptions) []Candidate {
	seen := intintmap.New(256, 0.75)
	var candidates []Candidate

	bb := m.BBox(n)
	if bb.Empty() {
		return nil
	}
	for y := bb.MinY; y <= bb.MaxY; y++ {
		for x := bb.MinX; x <= bb.MaxX; x++ {
			if m.Owner(x, y) != n {
				continue
			}
			neighbors8(m, x, y, func(nx, ny int) {
				if m.Owner(nx, ny) == n || m.Ocean(nx, ny) {
					return
				}
				key := int64(m.Idx(nx, ny))
				if seen.Has(key) {
					return
				}
				seen.Put(key, 1)

				ownedCount := 0
				neighbors8(m, nx, ny, func(ox, oy int) {
					if m.Owner(ox, oy) == n {
						ownedCount++
					}
				})
				score := float64(ownedCount)
				if ownedCount >= holeBonusThreshold {
					score += 10
				}

				pos := mgl64.Vec2{float64(nx), float64(ny)}
				if opt.Target != nil {
					t := mgl64.Vec2{float64(opt.Target.X), float64(opt.Target.Y)}
					score -= pos.Sub(t).Len() * 0.1
				}
				if opt.Anchor != nil {
					a := mgl64.Vec2{float64(opt.Anchor.X), float64(opt.Anchor.Y)}
					score -= pos.Sub(a).Len() * 0.05
				}
				if len(opt.Path) >= 2 {
					along, perp, ok := pathProjection(opt.Path, pos)
					if ok {
						if opt.MaxDistFromPath > 0 && math.Abs(perp) > opt.MaxDistFromPath {
							return
						}
						score += along*0.2 - math.Abs(perp)*0.3
					}
				}
				candidates = append(candidates, Candidate{X: nx, Y: ny, Score: score})
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	return candidates
}

// pathProjection projects pos onto the polyline path, returning the
// along-path distance accumulated up to the closest segment and the
// perpendicular distance from that segment.
func pathProjection(path []matrix.Point, pos mgl64.Vec2) (along, perp float64, ok bool) {
	bestPerp := math.MaxFloat64
	var bestAlong float64
	cumulative := 0.0
	found := false

	for i := 0; i+1 < len(path); i++ {
		a := mgl64.Vec2{float64(path[i].X), float64(path[i].Y)}
		b := mgl64.Vec2{float64(path[i+1].X), float64(path[i+1].Y)}
		seg := b.Sub(a)
		segLen := seg.Len()
		if segLen < 1e-9 {
			continue
		}
		dir := seg.Mul(1 / segLen)
		rel := pos.Sub(a)
		t := clamp(rel.Dot(dir), 0, segLen)
		closest := a.Add(dir.Mul(t))
		d := pos.Sub(closest).Len()
		if d < bestPerp {
			bestPerp = d
			bestAlong = cumulative + t
			found = true
		}
		cumulative += segLen
	}
	return bestAlong, bestPerp, found
}
