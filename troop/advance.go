package troop

import (
	"math"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// AdvanceArrows moves every live nation's in-flight arrows one tick along
// their path (spec.md §3.4, §4.5.4): an ArrowAdvancing head steps toward its
// next waypoint, bumping CurrentIndex as waypoints are passed; an
// ArrowRetreating head steps back the way it came and clears once it
// reaches the path's origin. Called once per tick, before ResolveCombat
// scans the corridor at each arrow's (possibly just-moved) head.
func AdvanceArrows(m *matrix.Matrix, cfg config.Troop) {
	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		for _, a := range nat.Arrows {
			advanceArrow(a, cfg)
		}
	}
}

func advanceArrow(a *matrix.Arrow, cfg config.Troop) {
	if len(a.Path) < 2 {
		return
	}
	budget := cfg.ArrowAdvanceRate * a.Percent
	if budget <= 0 {
		return
	}
	switch a.Phase {
	case matrix.ArrowAdvancing:
		stepToward(a, budget, 1)
	case matrix.ArrowRetreating:
		stepToward(a, budget, -1)
	}
}

// stepToward consumes budget moving the head along the path, one waypoint
// segment at a time, in direction dir (+1 toward Path[CurrentIndex+1], -1
// toward Path[CurrentIndex]). Leftover budget after reaching a waypoint
// carries into the next segment within the same tick.
func stepToward(a *matrix.Arrow, budget float64, dir int) {
	for budget > 0 {
		var target matrix.Point
		switch {
		case dir > 0 && a.CurrentIndex >= len(a.Path)-1:
			return
		case dir > 0:
			target = a.Path[a.CurrentIndex+1]
		default:
			target = a.Path[a.CurrentIndex]
		}

		tx, ty := float64(target.X), float64(target.Y)
		dx, dy := tx-a.HeadX, ty-a.HeadY
		dist := math.Hypot(dx, dy)

		if dist <= budget {
			a.HeadX, a.HeadY = tx, ty
			budget -= dist
			if dir > 0 {
				a.CurrentIndex++
				continue
			}
			if a.CurrentIndex == 0 {
				a.Phase = matrix.ArrowCleared
				a.Cleared = true
				return
			}
			a.CurrentIndex--
			continue
		}

		a.HeadX += dx / dist * budget
		a.HeadY += dy / dist * budget
		return
	}
}
