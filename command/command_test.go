package command

import (
	"testing"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

func newTestMatrix(t *testing.T, w, h int) *matrix.Matrix {
	t.Helper()
	m := matrix.New(w, h, 2)
	cells := make([][]matrix.Cell, h)
	for y := range cells {
		cells[y] = make([]matrix.Cell, w)
	}
	if err := m.PopulateStatic(cells, func(x, y int, c matrix.Cell) float32 { return 0 }); err != nil {
		t.Fatalf("PopulateStatic: %v", err)
	}
	return m
}

func TestApplyFoundNationThenBuildCity(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	q := NewQueue()
	q.Push(Command{Kind: FoundNation, Owner: "a", X: 2, Y: 2})
	Apply(m, q)
	if m.Owner(2, 2) < 0 {
		t.Fatal("foundNation should have claimed (2,2)")
	}

	q.Push(Command{Kind: BuildCity, Owner: "a", X: 2, Y: 2, Name: "capital", Type: matrix.CityCapital})
	Apply(m, q)
	n, _ := m.LookupOwner("a")
	cap, ok := m.Capital(n)
	if !ok || cap.Name != "capital" {
		t.Fatal("buildCity should have registered a capital")
	}
}

func TestApplyIssueAttackRejectsUnownedStart(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	q := NewQueue()
	q.Push(Command{Kind: FoundNation, Owner: "a", X: 2, Y: 2})
	Apply(m, q)

	result := make(chan error, 1)
	q.Push(Command{
		Kind:    IssueAttack,
		Owner:   "a",
		Path:    []matrix.Point{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Percent: 0.5,
		Result:  result,
	})
	Apply(m, q)
	if err := <-result; err == nil {
		t.Fatal("expected rejection for a path not starting on owned territory")
	}
}

func TestApplyIssueAttackThenClearArrow(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	q := NewQueue()
	q.Push(Command{Kind: FoundNation, Owner: "a", X: 2, Y: 2})
	Apply(m, q)

	q.Push(Command{
		Kind:    IssueAttack,
		Owner:   "a",
		Path:    []matrix.Point{{X: 2, Y: 2}, {X: 4, Y: 2}},
		Percent: 0.5,
	})
	Apply(m, q)

	n, _ := m.LookupOwner("a")
	nat := m.Nation(n)
	if len(nat.Arrows) != 1 {
		t.Fatalf("expected 1 arrow, got %d", len(nat.Arrows))
	}
	id := nat.Arrows[0].ID

	q.Push(Command{Kind: ClearArrow, Owner: "a", ArrowID: id})
	Apply(m, q)
	if len(nat.Arrows) != 0 {
		t.Fatalf("clearArrow should have removed the arrow, got %d remaining", len(nat.Arrows))
	}
}
