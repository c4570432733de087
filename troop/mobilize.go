// Package troop implements the troop density engine of spec.md §4.5:
// mobilization, seeding, red-black in-place diffusion with attractor
// corridors, per-tick arrow head advance, conservation scaling, and arrow
// combat resolution.
package troop

import (
	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// Mobilize runs spec.md §4.5.1 for every live nation: recruiting toward
// troopTarget*population when under target, demobilizing when over, and
// bootstrapping density via uniform seeding when the tracked density sum
// has fallen far behind troopCount (e.g. right after construction,
// deserialization, or heavy conservation-capped combat losses).
func Mobilize(m *matrix.Matrix, cfg config.Troop) {
	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		mobilizeOne(m, cfg, n, nat)
		seedOne(m, n, nat)
	}
}

func mobilizeOne(m *matrix.Matrix, cfg config.Troop, n int8, nat *matrix.Nation) {
	target := float64(nat.TroopTarget) * nat.Population
	switch {
	case nat.TroopCount < target:
		freeWorkerRatio := 1.0
		if nat.Population > 0 {
			freeWorkerRatio = 1 - nat.TroopCount/nat.Population
		}
		if freeWorkerRatio < 0 {
			freeWorkerRatio = 0
		}
		recruit := nat.Population * (cfg.MobilizationBaseRate / 10) * (1 + freeWorkerRatio*cfg.MobilizationFreeWorkerScale)
		nat.TroopCount += recruit
		if nat.TroopCount > target {
			nat.TroopCount = target
		}
	case nat.TroopCount > target:
		demobilize := nat.Population * (cfg.DemobilizationRate / 10)
		nat.TroopCount -= demobilize
		if nat.TroopCount < target {
			nat.TroopCount = target
		}
	}
	if nat.TroopCount < 0 {
		nat.TroopCount = 0
	}
	if nat.TroopCount > nat.Population {
		nat.TroopCount = nat.Population
	}
}

func seedOne(m *matrix.Matrix, n int8, nat *matrix.Nation) {
	if nat.TroopCount <= 0 {
		return
	}
	if m.TroopDensitySum(n) >= 0.1*nat.TroopCount {
		return
	}
	count := m.OwnedCellCount(n)
	if count <= 0 {
		return
	}
	per := float32(nat.TroopCount / float64(count))
	bb := m.BBox(n)
	if bb.Empty() {
		return
	}
	sum := 0.0
	for y := bb.MinY; y <= bb.MaxY; y++ {
		for x := bb.MinX; x <= bb.MaxX; x++ {
			if m.Owner(x, y) != n {
				continue
			}
			m.SetTroopDensityAt(n, m.Idx(x, y), per, float32(1<<20))
			sum += float64(per)
		}
	}
	m.SetTroopDensitySum(n, sum)
}
