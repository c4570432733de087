// Package population implements the red–black Gauss–Seidel population
// density diffusion and the defense-strength composition of spec.md §4.3.
package population

import (
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// cityDensityCap is the additive cap applied when a city adds its source
// term to its own cell (spec.md §4.3 "capped at 10").
const cityDensityCap = 10

// Regions is the optional external precomputed partition used by the
// regional boost (spec.md §4.3 "Regional boost") and the regional tiered
// defense bonus. A nil *Regions disables both.
type Regions struct {
	// RegionOf maps a flat cell index to a region id, or -1 if the cell
	// belongs to no region.
	RegionOf []int32
}

func (r *Regions) regionAt(i int) int32 {
	if r == nil || i >= len(r.RegionOf) {
		return -1
	}
	return r.RegionOf[i]
}

// Diffuse runs one tick of population diffusion (spec.md §4.3): two
// red-black sub-passes over non-ocean, non-asleep cells, each cell's new
// value blending toward its owned-or-any neighbour average with decay,
// followed by each city's source term. Regions boosts diffusionRate for
// cells in a region containing one of the owner's cities.
func Diffuse(m *matrix.Matrix, cfg config.Population, regions *Regions, cityDensityMultiplier float64) {
	cityRegions := citiesByRegion(m, regions)

	for pass := 0; pass < 2; pass++ {
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				if (x+y+pass)%2 != 0 {
					continue
				}
				if m.Ocean(x, y) || m.ChunkAsleep(x, y) {
					continue
				}
				i := m.Idx(x, y)
				rate := cfg.DiffusionRate
				if regions != nil {
					owner := m.OwnerAt(i)
					if owner >= 0 && cityRegions[regionNationKey(regions.regionAt(i), owner)] {
						rate *= cityDensityMultiplier
					}
				}
				sum, count := float32(0), 0
				neighborSum(m, x, y, &sum, &count)
				if count == 0 {
					continue
				}
				avg := sum / float32(count)
				v := m.PopulationDensityAt(i)
				v += float32(rate)*(avg-v) - float32(cfg.DecayRate)*v
				if v < 0 {
					v = 0
				}
				m.SetPopulationDensityAt(i, v)
			}
		}
	}

	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		for _, c := range nat.Cities {
			i := m.Idx(c.X, c.Y)
			source := cfg.CitySource
			if c.Type == matrix.CityCapital {
				source = cfg.CapitalSource
			}
			v := m.PopulationDensityAt(i) + float32(source)
			if v > cityDensityCap {
				v = cityDensityCap
			}
			m.SetPopulationDensityAt(i, v)
		}
	}
}

func neighborSum(m *matrix.Matrix, x, y int, sum *float32, count *int) {
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx, ny := x+d[0], y+d[1]
		if !m.InBounds(nx, ny) || m.Ocean(nx, ny) {
			continue
		}
		*sum += m.PopulationDensityAt(m.Idx(nx, ny))
		*count++
	}
}

func regionNationKey(region int32, n int8) uint64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, uint64(uint32(region)))
	h = fnv1a.AddUint64(h, uint64(uint8(n)))
	return h
}

func citiesByRegion(m *matrix.Matrix, regions *Regions) map[uint64]bool {
	out := make(map[uint64]bool)
	if regions == nil {
		return out
	}
	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil {
			continue
		}
		for _, c := range nat.Cities {
			r := regions.regionAt(m.Idx(c.X, c.Y))
			if r >= 0 {
				out[regionNationKey(r, n)] = true
			}
		}
	}
	return out
}

// towerCountByRegion memoizes, per region+nation, the number of towers
// that nation owns in that region, keyed by a fasthash of (region, nation)
// to avoid rescanning every cell's structural bonus per-cell.
func towerCountByRegion(m *matrix.Matrix, regions *Regions) map[uint64]int {
	out := make(map[uint64]int)
	if regions == nil {
		return out
	}
	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil {
			continue
		}
		for _, c := range nat.Cities {
			if c.Type != matrix.CityTower {
				continue
			}
			r := regions.regionAt(m.Idx(c.X, c.Y))
			if r >= 0 {
				out[regionNationKey(r, n)]++
			}
		}
	}
	return out
}

// ComputeDefense recomputes the defense-strength field (spec.md §4.3
// "Defense composition"): a base term from population and troop density,
// plus additive structural bonuses from nearby towns/capitals/towers with
// a quadratic falloff, further multiplied by a regional tiered bonus when
// a region holds multiple towers of the same nation.
func ComputeDefense(m *matrix.Matrix, popCfg config.Population, structures config.Structures, regions *Regions, towerTierBonus []float64) {
	towerCounts := towerCountByRegion(m, regions)

	for i := 0; i < m.W*m.H; i++ {
		n := m.OwnerAt(i)
		pop := m.PopulationDensityAt(i)
		var troop float32
		if n >= 0 {
			troop = m.TroopDensityAt(n, i)
		}
		base := 1.0 + float64(pop)*popCfg.DensityDefenseScale + float64(troop)*popCfg.TroopDefenseScale
		m.SetDefenseAt(i, float32(base))
	}

	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil {
			continue
		}
		for _, c := range nat.Cities {
			radius := structures.Town.DefenseRadius
			loss := structures.Town.TroopLossMultiplier
			switch c.Type {
			case matrix.CityCapital:
				radius = structures.Town.DefenseRadius * 1.5
			case matrix.CityTower:
				radius = structures.Tower.DefenseRadius
				loss = structures.Tower.TroopLossMultiplier
			}
			applyStructuralBonus(m, c, radius, loss)
		}
	}

	if regions == nil || len(towerTierBonus) == 0 {
		return
	}
	for i := 0; i < m.W*m.H; i++ {
		n := m.OwnerAt(i)
		if n < 0 {
			continue
		}
		r := regions.regionAt(i)
		if r < 0 {
			continue
		}
		count := towerCounts[regionNationKey(r, n)]
		if count <= 0 {
			continue
		}
		tier := count - 1
		if tier >= len(towerTierBonus) {
			tier = len(towerTierBonus) - 1
		}
		m.SetDefenseAt(i, m.DefenseAt(i)*float32(towerTierBonus[tier]))
	}
}

// applyStructuralBonus adds c's falloff-weighted defense bonus to every
// cell within radius, scaled by lossMultiplier (config.Structure's
// TroopLossMultiplier): a tower's higher multiplier makes its defended
// ring cost an attacker more troops per tick of combat than a town's.
func applyStructuralBonus(m *matrix.Matrix, c matrix.City, radius, lossMultiplier float64) {
	r := int(radius) + 1
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := c.X+dx, c.Y+dy
			if !m.InBounds(x, y) {
				continue
			}
			d2 := float64(dx*dx + dy*dy)
			r2 := radius * radius
			if d2 > r2 {
				continue
			}
			falloff := (1 - d2/r2) * lossMultiplier
			i := m.Idx(x, y)
			m.SetDefenseAt(i, m.DefenseAt(i)+float32(falloff))
		}
	}
}
