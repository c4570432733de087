package command

import (
	"github.com/s4lvi/historyengine-sub002/apperr"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// defaultCorridorHalfWidth is used when an issueAttack command leaves
// CorridorHalfWidth at its zero value (spec.md §3.4 "default 4").
const defaultCorridorHalfWidth = 4.0

// Apply drains every buffered command and applies it to m, in arrival
// order, sending each command's result (if it registered one). Called once
// at the start of a tick, before any kernel runs (spec.md §4.6 step 2 is
// preceded by this).
func Apply(m *matrix.Matrix, q *Queue) {
	for _, c := range q.Drain() {
		err := applyOne(m, c)
		if c.Result != nil {
			c.Result <- err
		}
	}
}

func applyOne(m *matrix.Matrix, c Command) error {
	switch c.Kind {
	case FoundNation:
		_, err := m.FoundNation(c.Owner, c.X, c.Y)
		return err
	case BuildCity:
		return m.BuildCity(c.Owner, c.X, c.Y, c.Name, c.Type)
	case IssueAttack:
		return applyIssueAttack(m, c)
	case ReinforceArrow:
		return applyReinforceArrow(m, c)
	case RetreatArrow:
		return applyRetreatArrow(m, c)
	case ClearArrow:
		return m.RemoveArrow(c.Owner, c.ArrowID)
	default:
		return apperr.Command("command", "unknown command kind")
	}
}

func applyIssueAttack(m *matrix.Matrix, c Command) error {
	n, ok := m.LookupOwner(c.Owner)
	if !ok {
		return apperr.Command("issueAttack", "unknown owner")
	}
	if len(c.Path) < 2 {
		return apperr.Command("issueAttack", "path needs at least two points")
	}
	if c.Percent <= 0 || c.Percent > 1 {
		return apperr.Command("issueAttack", "percent must be in (0,1]")
	}
	head := c.Path[0]
	if m.Owner(head.X, head.Y) != n {
		return apperr.Command("issueAttack", "path must start on owned territory")
	}
	half := c.CorridorHalfWidth
	if half <= 0 {
		half = defaultCorridorHalfWidth
	}
	nat := m.Nation(n)
	nat.Arrows = append(nat.Arrows, &matrix.Arrow{
		ID:                matrix.NewArrowID(),
		Path:              c.Path,
		CurrentIndex:      0,
		HeadX:             float64(head.X),
		HeadY:             float64(head.Y),
		Percent:           c.Percent,
		CorridorHalfWidth: half,
		Phase:             matrix.ArrowAdvancing,
	})
	return nil
}

func applyReinforceArrow(m *matrix.Matrix, c Command) error {
	a, err := m.FindArrow(c.Owner, c.ArrowID)
	if err != nil {
		return err
	}
	p := a.Percent + c.PercentDelta
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	a.Percent = p
	return nil
}

func applyRetreatArrow(m *matrix.Matrix, c Command) error {
	a, err := m.FindArrow(c.Owner, c.ArrowID)
	if err != nil {
		return err
	}
	a.Phase = matrix.ArrowRetreating
	return nil
}
