package match

import (
	"testing"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

func newFlatMatrix(t *testing.T, w, h, n int) *matrix.Matrix {
	t.Helper()
	m := matrix.New(w, h, n)
	cells := make([][]matrix.Cell, h)
	for y := range cells {
		cells[y] = make([]matrix.Cell, w)
	}
	if err := m.PopulateStatic(cells, func(x, y int, c matrix.Cell) float32 { return 0 }); err != nil {
		t.Fatalf("PopulateStatic: %v", err)
	}
	return m
}

// TestSingleNationExpansion grounds spec.md §8 scenario 1.
func TestSingleNationExpansion(t *testing.T) {
	m := newFlatMatrix(t, 20, 20, 4)
	a, _ := m.FoundNation("a", 10, 10)
	nat := m.Nation(a)
	nat.Population = 100
	nat.TroopTarget = 0.2

	cfg := config.Config{}.WithDefaults()
	mt := New("t1", cfg, m, nil, nil)
	for i := 0; i < 50; i++ {
		mt.Tick()
	}

	if got := m.OwnedCellCount(a); got < 9 {
		t.Fatalf("ownedCellCount = %d, want >= 9", got)
	}
	sum := 0.0
	count := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if m.Owner(x, y) == a {
				sum += float64(m.Loyalty(x, y, a))
				count++
			}
		}
	}
	if sum < 0.5*float64(count) {
		t.Fatalf("sum loyalty %f too low over %d owned cells", sum, count)
	}
	if got := m.TroopDensitySum(a); got < nat.TroopCount-1e-2 || got > nat.TroopCount+1e-2 {
		t.Fatalf("troop density sum %f != troopCount %f", got, nat.TroopCount)
	}
}

// TestHeadToHeadArrowFlipsFrontierCells grounds spec.md §8 scenario 2.
func TestHeadToHeadArrowFlipsFrontierCells(t *testing.T) {
	m := newFlatMatrix(t, 40, 40, 4)
	a, _ := m.FoundNation("a", 10, 20)
	b, _ := m.FoundNation("b", 30, 20)
	na, nb := m.Nation(a), m.Nation(b)
	na.Population, nb.Population = 1000, 1000
	na.TroopTarget, nb.TroopTarget = 0.3, 0.3

	cfg := config.Config{}.WithDefaults()
	mt := New("t2", cfg, m, nil, nil)
	for i := 0; i < 20; i++ {
		mt.Tick()
	}

	beforeTroopCountB := nb.TroopCount

	na.Arrows = append(na.Arrows, &matrix.Arrow{
		ID:                matrix.NewArrowID(),
		Path:              []matrix.Point{{X: 10, Y: 20}, {X: 30, Y: 20}},
		CurrentIndex:      0,
		HeadX:             10,
		HeadY:             20,
		Percent:           0.5,
		CorridorHalfWidth: 4,
		Phase:             matrix.ArrowAdvancing,
	})

	flippedBtoA := false
	for i := 0; i < 80; i++ {
		mt.Tick()
		for x := 15; x < 25; x++ {
			if m.Owner(x, 20) == a {
				flippedBtoA = true
			}
		}
	}
	if !flippedBtoA {
		t.Fatal("expected at least one cell between x=15 and x=25 to flip to A")
	}
	if nb.TroopCount >= beforeTroopCountB {
		t.Fatalf("B's troopCount should have decreased: before=%f after=%f", beforeTroopCountB, nb.TroopCount)
	}
}

// TestEncirclementDefeatsCapitalHolder grounds spec.md §8 scenario 3.
func TestEncirclementDefeatsCapitalHolder(t *testing.T) {
	m := newFlatMatrix(t, 9, 9, 4)
	a, _ := m.FoundNation("a", 0, 0)
	b, _ := m.FoundNation("b", 4, 4)
	m.Nation(a).Population = 5000
	m.Nation(b).Population = 100
	m.BuildCity("b", 4, 4, "capital", matrix.CityCapital)

	// Ring A completely around B's single cell.
	for _, p := range []matrix.Point{
		{3, 3}, {4, 3}, {5, 3},
		{3, 4}, {5, 4},
		{3, 5}, {4, 5}, {5, 5},
	} {
		m.SetOwner(p.X, p.Y, a)
	}
	m.SnapshotOwnership()

	cfg := config.Config{}.WithDefaults()
	mt := New("t3", cfg, m, nil, nil)
	out := mt.Tick()

	if m.Nation(b).Status != matrix.StatusDefeated {
		t.Fatal("encircled capital holder should be defeated")
	}
	if m.Owner(4, 4) == b {
		t.Fatal("defeated nation's cells should revert to unowned")
	}
	if d := out.Deltas[b]; d == nil || len(d.Sub) == 0 {
		t.Fatal("defeated nation's delta should list a sub of its prior territory")
	}
}

// TestStableNationProducesNoOwnershipDeltas grounds spec.md §8 scenario 6:
// a single settled nation with no arrows and no neighbors should reach a
// quiescent frontier where ticks stop producing ownership deltas.
func TestStableNationProducesNoOwnershipDeltas(t *testing.T) {
	m := newFlatMatrix(t, 12, 12, 2)
	a, _ := m.FoundNation("a", 6, 6)
	nat := m.Nation(a)
	nat.Population = 50
	nat.TroopTarget = 0.2

	cfg := config.Config{}.WithDefaults()
	mt := New("t6", cfg, m, nil, nil)
	for i := 0; i < 60; i++ {
		mt.Tick()
	}

	out := mt.Tick()
	if d, ok := out.Deltas[a]; ok && !d.Empty() {
		t.Fatalf("expected a quiescent frontier after 60 ticks, got delta %+v", d)
	}
}
