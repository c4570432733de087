package kernel

import (
	"testing"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

func newTestMatrix(t *testing.T, w, h int) *matrix.Matrix {
	t.Helper()
	m := matrix.New(w, h, 4)
	cells := make([][]matrix.Cell, h)
	for y := range cells {
		cells[y] = make([]matrix.Cell, w)
	}
	if err := m.PopulateStatic(cells, func(x, y int, c matrix.Cell) float32 { return 0.1 }); err != nil {
		t.Fatalf("PopulateStatic: %v", err)
	}
	return m
}

func TestDeriveOwnershipFlipsOnlyAboveThreshold(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 0, 0)
	b, _ := m.FoundNation("b", 4, 4)

	m.SetLoyaltyAt(a, m.Idx(2, 2), 0.5)
	m.SetLoyaltyAt(b, m.Idx(2, 2), 0.4)
	if n := DeriveOwnership(m, 0.6); n != 0 {
		t.Fatalf("expected no flips below threshold, got %d", n)
	}

	m.SetLoyaltyAt(a, m.Idx(2, 2), 0.7)
	if n := DeriveOwnership(m, 0.6); n != 1 {
		t.Fatalf("expected one flip, got %d", n)
	}
	if m.Owner(2, 2) != a {
		t.Fatalf("owner = %d, want %d", m.Owner(2, 2), a)
	}
}

func TestDeriveOwnershipNeverUnclaims(t *testing.T) {
	m := newTestMatrix(t, 3, 3)
	a, _ := m.FoundNation("a", 1, 1)
	// No nation has loyalty above threshold anywhere else; owned cell
	// must remain owned even though its own loyalty may be low.
	m.SetLoyaltyAt(a, m.Idx(1, 1), 0.1)
	DeriveOwnership(m, 0.6)
	if m.Owner(1, 1) != a {
		t.Fatal("ownership must never be removed by DeriveOwnership")
	}
}

func TestConcavityFillClaimsSurroundedCell(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 1, 1)
	// (2,2) is a hole with six a-owned 8-neighbours.
	for _, p := range []matrix.Point{{X: 2, Y: 1}, {X: 3, Y: 1}, {X: 1, Y: 2}, {X: 3, Y: 2}, {X: 2, Y: 3}} {
		m.SetOwner(p.X, p.Y, a)
	}
	filled := ConcavityFill(m, 5, 3)
	if filled == 0 {
		t.Fatal("expected at least one cell to be claimed")
	}
	if m.Owner(2, 2) != a {
		t.Fatalf("hole (2,2) should have been claimed by a, owner=%d", m.Owner(2, 2))
	}
}

func TestConcavityFillLeavesTiesUnowned(t *testing.T) {
	m := newTestMatrix(t, 3, 3)
	a, _ := m.FoundNation("a", 0, 1)
	b, _ := m.FoundNation("b", 2, 1)
	m.SetOwner(1, 0, a)
	m.SetOwner(1, 2, b)
	// (1,1) has two a-neighbours and two b-neighbours: a tie, must stay unowned.
	ConcavityFill(m, 2, 1)
	if m.Owner(1, 1) != matrix.Unowned {
		t.Fatalf("tied cell should remain unowned, got owner %d", m.Owner(1, 1))
	}
}

func TestRemoveDisconnectedTerritory(t *testing.T) {
	m := newTestMatrix(t, 5, 1)
	a, _ := m.FoundNation("a", 0, 0)
	m.SetOwner(1, 0, a)
	// Gap at x=2 (stays unowned) disconnects x=3,4 from the capital.
	m.SetOwner(3, 0, a)
	m.SetOwner(4, 0, a)

	released := RemoveDisconnectedTerritory(m, a, 0, 0)
	if released != 2 {
		t.Fatalf("released = %d, want 2", released)
	}
	if m.Owner(3, 0) != matrix.Unowned || m.Owner(4, 0) != matrix.Unowned {
		t.Fatal("disconnected cells must be released")
	}
	if m.Owner(0, 0) != a || m.Owner(1, 0) != a {
		t.Fatal("connected cells must remain owned")
	}
}

func TestDetectEncirclementFindsSurroundedCapital(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 0, 0)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if x != 2 || y != 2 {
				m.SetOwner(x, y, a)
			}
		}
	}
	b, _ := m.FoundNation("b", 2, 2)
	_ = m.BuildCity("b", 2, 2, "capital", matrix.CityCapital)

	reports := DetectEncirclements(m)
	found := false
	for _, r := range reports {
		if r.Owner == b && r.Encircler == a {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an encirclement report for b by a, got %+v", reports)
	}
}

func TestFrontierCandidatesExcludeNonAdjacentCells(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 2, 2)
	for _, p := range []matrix.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}} {
		m.SetOwner(p.X, p.Y, a)
	}
	cands := FrontierCandidates(m, a, FrontierOptions{})
	if len(cands) == 0 {
		t.Fatal("expected candidates")
	}
	for _, c := range cands {
		if c.X == 4 && c.Y == 4 {
			t.Fatal("(4,4) is not adjacent to owned territory and must not be a candidate")
		}
	}
}
