package troop

import (
	"math"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ResolveCombat runs resolveDensityCombat for one arrow belonging to nation
// n (spec.md §4.5.4): it scans the candidate corridor around the arrow's
// head, claims unowned cells the attacker's density overwhelms, and resolves
// combat against enemy-owned cells, all ownership changes going through the
// centralized mutator.
func ResolveCombat(m *matrix.Matrix, cfg config.Troop, troopDefenseScale float64, n int8, arrow *matrix.Arrow) {
	fwd, ok := arrowForward(arrow)
	if !ok {
		return
	}
	r := cfg.ArrowAttractorRadius
	corridorHalf := arrow.CorridorHalfWidth

	minX := max(0, int(arrow.HeadX-r))
	maxX := min(m.W-1, int(arrow.HeadX+r))
	minY := max(0, int(arrow.HeadY-r))
	maxY := min(m.H-1, int(arrow.HeadY+r))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)-arrow.HeadX, float64(y)-arrow.HeadY
			along := dx*fwd.X() + dy*fwd.Y()
			if along < -2 || along > r {
				continue
			}
			perp := dx*fwd.Y() - dy*fwd.X()
			if math.Abs(perp) > corridorHalf {
				continue
			}
			resolveCell(m, cfg, troopDefenseScale, n, x, y, perp, corridorHalf)
		}
	}
}

func resolveCell(m *matrix.Matrix, cfg config.Troop, troopDefenseScale float64, n int8, x, y int, perp, corridorHalf float64) {
	i := m.Idx(x, y)
	owner := m.OwnerAt(i)
	if owner == n {
		return
	}

	attackerDensity, count := 0.0, 0
	for _, d := range dir4 {
		nx, ny := x+d[0], y+d[1]
		if !m.InBounds(nx, ny) {
			continue
		}
		ni := m.Idx(nx, ny)
		if m.OwnerAt(ni) == n {
			attackerDensity += float64(m.TroopDensityAt(n, ni))
			count++
		}
	}
	if count == 0 {
		return
	}
	attackerDensity /= float64(count)

	corridorFactor := math.Max(0.1, 1-0.8*math.Abs(perp)/corridorHalf)
	effectiveAttack := attackerDensity * corridorFactor

	if owner == matrix.Unowned {
		if effectiveAttack >= cfg.CombatDensityThreshold {
			m.SetOwner(x, y, n)
			m.SetTroopDensityAt(n, i, float32(attackerDensity*0.3), float32(cfg.MaxDensityPerCell))
		}
		return
	}

	e := owner
	defenderDensity := float64(m.TroopDensityAt(e, i))
	terrainMod := clampF(float64(m.DefenseAt(i))-defenderDensity*troopDefenseScale, 1.0, 3.0)
	effectiveDefense := defenderDensity * cfg.CombatDefenderAdvantage * terrainMod

	if effectiveAttack < cfg.CombatDensityThreshold && effectiveDefense < cfg.CombatDensityThreshold {
		return
	}

	if effectiveAttack > effectiveDefense {
		spread := defenderDensity * cfg.CombatExchangeRate
		m.SetTroopDensityAt(e, i, float32(math.Max(0, defenderDensity-spread)), float32(cfg.MaxDensityPerCell))
		if enemyNat := m.Nation(e); enemyNat != nil {
			enemyNat.TroopCount = math.Max(0, enemyNat.TroopCount-spread)
			enemyNat.Population = math.Max(0, enemyNat.Population-spread)
		}
		distributeAttackerLoss(m, cfg, n, x, y, spread*0.5)
		m.SetOwner(x, y, n)
		m.SetTroopDensityAt(n, i, float32(attackerDensity*0.3), float32(cfg.MaxDensityPerCell))
		return
	}

	attrition := math.Min(effectiveAttack, defenderDensity) * cfg.CombatExchangeRate * 0.2
	m.SetTroopDensityAt(e, i, float32(math.Max(0, defenderDensity-attrition)), float32(cfg.MaxDensityPerCell))
	distributeAttackerLoss(m, cfg, n, x, y, attrition)
}

// distributeAttackerLoss spreads a density loss equally over n's owned
// 4-neighbours of (x,y), the attacking cells that contributed
// attackerDensity (spec.md §4.5.4 "attacker loses half that spread over the
// attacking neighbours").
func distributeAttackerLoss(m *matrix.Matrix, cfg config.Troop, n int8, x, y int, loss float64) {
	var neighbours []int
	for _, d := range dir4 {
		nx, ny := x+d[0], y+d[1]
		if !m.InBounds(nx, ny) {
			continue
		}
		ni := m.Idx(nx, ny)
		if m.OwnerAt(ni) == n {
			neighbours = append(neighbours, ni)
		}
	}
	if len(neighbours) == 0 {
		return
	}
	per := float32(loss / float64(len(neighbours)))
	for _, ni := range neighbours {
		v := m.TroopDensityAt(n, ni) - per
		if v < 0 {
			v = 0
		}
		m.SetTroopDensityAt(n, ni, v, float32(cfg.MaxDensityPerCell))
	}
}
