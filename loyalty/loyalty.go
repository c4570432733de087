// Package loyalty implements the double-buffered loyalty diffusion kernel
// of spec.md §4.4.
package loyalty

import (
	"math"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// Diffuse runs one tick of loyalty diffusion for every live nation. It
// reads the previous tick's loyalty values (captured into prev before any
// writes) and writes the new values back into the matrix, per spec.md
// §4.4: reinforcement/decay from current ownership, neighbour diffusion
// scaled by (1 - resistance), city/capital proximity bonuses, and a final
// clamp to [0,1].
func Diffuse(m *matrix.Matrix, cfg config.Loyalty) {
	size := m.W * m.H
	prev := make([]float32, size)

	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		for i := 0; i < size; i++ {
			prev[i] = m.LoyaltyAt(n, i)
		}

		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				if m.Ocean(x, y) {
					continue
				}
				i := m.Idx(x, y)
				v := prev[i]

				owner := m.OwnerAt(i)
				switch {
				case owner == n:
					v += float32(cfg.ReinforcementRate)
				case owner != matrix.Unowned:
					v -= float32(cfg.DecayRate)
				}

				sum, count := float32(0), 0
				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := x+d[0], y+d[1]
					if !m.InBounds(nx, ny) {
						continue
					}
					sum += prev[m.Idx(nx, ny)]
					count++
				}
				if count > 0 {
					avg := sum / float32(count)
					resistance := m.ResistanceAt(i)
					v += float32(cfg.DiffusionRate) * (1 - resistance) * (avg - v)
				}

				for _, c := range nat.Cities {
					bonus, radius := cfg.CityBonus, cfg.CityRadius
					if c.Type == matrix.CityCapital {
						bonus, radius = cfg.CapitalBonus, cfg.CapitalRadius
					}
					dx, dy := float64(x-c.X), float64(y-c.Y)
					dist := dx*dx + dy*dy
					if dist > radius*radius {
						continue
					}
					d := math.Sqrt(dist)
					v += float32(bonus * (1 - d/radius))
				}

				m.SetLoyaltyAt(n, i, v)
			}
		}
	}
}

// ApplyArrowPressure adds a clamped delta to a single cell's loyalty for
// nation n, used by the arrow combat pipeline (spec.md §4.4
// applyArrowLoyaltyPressure).
func ApplyArrowPressure(m *matrix.Matrix, n int8, x, y int, gain float32) {
	if !m.InBounds(x, y) {
		return
	}
	i := m.Idx(x, y)
	m.SetLoyaltyAt(n, i, m.LoyaltyAt(n, i)+gain)
}
