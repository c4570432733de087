package troop

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

var dir4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// attractorField is a dense stamp of attractorBias values (spec.md §4.5.2)
// over a nation's expanded bbox, precomputed once per tick per nation so the
// red-black diffusion passes can look values up in O(1).
type attractorField struct {
	minX, minY, w, h int
	vals             []float64
}

func (f *attractorField) at(x, y int) float64 {
	if f == nil || f.w == 0 {
		return 0
	}
	i := (y-f.minY)*f.w + (x - f.minX)
	if i < 0 || i >= len(f.vals) {
		return 0
	}
	return f.vals[i]
}

// arrowForward returns the arrow's local forward direction, taken from the
// two path points straddling currentIndex (spec.md §4.5.4), or false if the
// arrow has no direction (a single-point or empty path).
func arrowForward(a *matrix.Arrow) (mgl64.Vec2, bool) {
	if len(a.Path) < 2 {
		return mgl64.Vec2{}, false
	}
	i := a.CurrentIndex
	if i < 0 {
		i = 0
	}
	if i > len(a.Path)-2 {
		i = len(a.Path) - 2
	}
	p0, p1 := a.Path[i], a.Path[i+1]
	v := mgl64.Vec2{float64(p1.X - p0.X), float64(p1.Y - p0.Y)}
	if v.Len() == 0 {
		return v, false
	}
	return v.Normalize(), true
}

// expandedBBoxForArrows grows bb by margin and further extends it to cover
// every active arrow's attractor radius around its head (spec.md §4.5.2).
func expandedBBoxForArrows(bb matrix.BBox, nat *matrix.Nation, cfg config.Troop, margin int, w, h int) matrix.BBox {
	out := bb.Expanded(margin, w, h)
	r := cfg.ArrowAttractorRadius
	for _, a := range nat.Arrows {
		if a.Phase != matrix.ArrowAdvancing {
			continue
		}
		out.MinX = min(out.MinX, int(a.HeadX-r))
		out.MaxX = max(out.MaxX, int(a.HeadX+r))
		out.MinY = min(out.MinY, int(a.HeadY-r))
		out.MaxY = max(out.MaxY, int(a.HeadY+r))
	}
	if out.MinX < 0 {
		out.MinX = 0
	}
	if out.MinY < 0 {
		out.MinY = 0
	}
	if out.MaxX > w-1 {
		out.MaxX = w - 1
	}
	if out.MaxY > h-1 {
		out.MaxY = h - 1
	}
	return out
}

func computeAttractorBias(nat *matrix.Nation, cfg config.Troop, bb matrix.BBox) *attractorField {
	if bb.Empty() {
		return nil
	}
	w := bb.MaxX - bb.MinX + 1
	h := bb.MaxY - bb.MinY + 1
	f := &attractorField{minX: bb.MinX, minY: bb.MinY, w: w, h: h, vals: make([]float64, w*h)}

	r := cfg.ArrowAttractorRadius
	for _, a := range nat.Arrows {
		if a.Phase != matrix.ArrowAdvancing {
			continue
		}
		fwd, ok := arrowForward(a)
		if !ok {
			continue
		}
		corridorWidth := 1.5 * a.CorridorHalfWidth
		minX := max(bb.MinX, int(a.HeadX-r))
		maxX := min(bb.MaxX, int(a.HeadX+r))
		minY := max(bb.MinY, int(a.HeadY-r))
		maxY := min(bb.MaxY, int(a.HeadY+r))
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				dx, dy := float64(x)-a.HeadX, float64(y)-a.HeadY
				along := dx*fwd.X() + dy*fwd.Y()
				if along < -0.3*r || along > r {
					continue
				}
				perp := dx*fwd.Y() - dy*fwd.X()
				if math.Abs(perp) > corridorWidth {
					continue
				}
				distFalloff := 1 - along/r
				if distFalloff < 0 {
					distFalloff = 0
				}
				corridorFalloff := 1 - math.Abs(perp)/corridorWidth
				if corridorFalloff < 0 {
					corridorFalloff = 0
				}
				stamp := cfg.ArrowAttractorStrength * distFalloff * corridorFalloff * a.Percent
				i := (y-f.minY)*f.w + (x - f.minX)
				if stamp > f.vals[i] {
					f.vals[i] = stamp
				}
			}
		}
	}
	return f
}

// neighborAvgAndBorder averages troop density over n's owned 4-neighbours of
// (x,y) and reports whether (x,y) is a border cell: any 4-neighbour that is
// out-of-map, ocean, or owned by a different nation (spec.md §4.5.2).
func neighborAvgAndBorder(m *matrix.Matrix, x, y int, n int8) (avg float64, border bool) {
	sum, count := 0.0, 0
	for _, d := range dir4 {
		nx, ny := x+d[0], y+d[1]
		if !m.InBounds(nx, ny) {
			border = true
			continue
		}
		if m.Ocean(nx, ny) {
			border = true
			continue
		}
		no := m.OwnerAt(m.Idx(nx, ny))
		if no != n {
			border = true
			continue
		}
		sum += float64(m.TroopDensityAt(n, m.Idx(nx, ny)))
		count++
	}
	if count > 0 {
		avg = sum / float64(count)
	}
	return avg, border
}

// Diffuse runs red-black Gauss-Seidel, in place, over every live nation's
// arrow-expanded bbox, followed by conservation scaling (spec.md §4.5.2,
// §4.5.3).
func Diffuse(m *matrix.Matrix, cfg config.Troop, margin int) {
	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		bb := m.BBox(n)
		if bb.Empty() {
			continue
		}
		expanded := expandedBBoxForArrows(bb, nat, cfg, margin, m.W, m.H)
		attractor := computeAttractorBias(nat, cfg, expanded)
		hasArrows := len(nat.Arrows) > 0

		for step := 0; step < cfg.DiffusionSubSteps; step++ {
			last := step == cfg.DiffusionSubSteps-1
			for pass := 0; pass < 2; pass++ {
				for y := expanded.MinY; y <= expanded.MaxY; y++ {
					for x := expanded.MinX; x <= expanded.MaxX; x++ {
						if (x+y+pass)%2 != 0 {
							continue
						}
						i := m.Idx(x, y)
						if m.OwnerAt(i) != n {
							if last && pass == 0 {
								v := m.TroopDensityAt(n, i)
								if v > 0 {
									m.SetTroopDensityAt(n, i, v*float32(cfg.DensityDecayOnUnowned), float32(cfg.MaxDensityPerCell))
								}
							}
							continue
						}
						avg, isBorder := neighborAvgAndBorder(m, x, y, n)
						ab := attractor.at(x, y)
						borderBias := 0.0
						if isBorder {
							switch {
							case hasArrows && ab > 0.01:
								borderBias = cfg.BorderConcentrationBias
							case hasArrows:
								borderBias = 0.15 * cfg.BorderConcentrationBias
							default:
								borderBias = cfg.BorderConcentrationBias
							}
						}
						target := avg + borderBias + ab
						v := m.TroopDensityAt(n, i)
						v += float32(cfg.DiffusionRate) * (1 - m.ResistanceAt(i)) * (float32(target) - v)
						m.SetTroopDensityAt(n, i, v, float32(cfg.MaxDensityPerCell))
					}
				}
			}
		}

		conserve(m, n, nat, bb, cfg)
	}
}

// conserve recomputes nation n's density sum over its tracked (unexpanded)
// bbox and uniformly rescales density so it sums to troopCount, capped at
// config.MaxConservationScale (spec.md §4.5.3).
func conserve(m *matrix.Matrix, n int8, nat *matrix.Nation, bb matrix.BBox, cfg config.Troop) {
	if bb.Empty() {
		m.SetTroopDensitySum(n, 0)
		return
	}
	sum := 0.0
	for y := bb.MinY; y <= bb.MaxY; y++ {
		for x := bb.MinX; x <= bb.MaxX; x++ {
			i := m.Idx(x, y)
			if m.OwnerAt(i) == n {
				sum += float64(m.TroopDensityAt(n, i))
			}
		}
	}
	if sum <= 1e-9 || nat.TroopCount <= 0 {
		m.SetTroopDensitySum(n, sum)
		return
	}
	scale := nat.TroopCount / sum
	if scale > config.MaxConservationScale {
		scale = config.MaxConservationScale
	}
	if scale == 1 {
		m.SetTroopDensitySum(n, sum)
		return
	}
	newSum := 0.0
	for y := bb.MinY; y <= bb.MaxY; y++ {
		for x := bb.MinX; x <= bb.MaxX; x++ {
			i := m.Idx(x, y)
			if m.OwnerAt(i) != n {
				continue
			}
			v := m.TroopDensityAt(n, i) * float32(scale)
			m.SetTroopDensityAt(n, i, v, float32(cfg.MaxDensityPerCell))
			newSum += float64(v)
		}
	}
	m.SetTroopDensitySum(n, newSum)
}
