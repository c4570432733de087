package matrix

import "testing"

func newTestMatrix(t *testing.T, w, h int) *Matrix {
	t.Helper()
	m := New(w, h, 4)
	cells := make([][]Cell, h)
	for y := range cells {
		cells[y] = make([]Cell, w)
	}
	if err := m.PopulateStatic(cells, func(x, y int, c Cell) float32 { return 0.1 }); err != nil {
		t.Fatalf("PopulateStatic: %v", err)
	}
	return m
}

func TestSetOwnerMaintainsCounters(t *testing.T) {
	m := newTestMatrix(t, 10, 10)
	n, err := m.FoundNation("alice", 5, 5)
	if err != nil {
		t.Fatalf("FoundNation: %v", err)
	}
	if got := m.OwnedCellCount(n); got != 1 {
		t.Fatalf("OwnedCellCount = %d, want 1", got)
	}
	m.SetOwner(5, 6, n)
	if got := m.OwnedCellCount(n); got != 2 {
		t.Fatalf("OwnedCellCount = %d, want 2", got)
	}
	bb := m.BBox(n)
	if bb.MinY != 5 || bb.MaxY != 6 {
		t.Fatalf("bbox = %+v, want y in [5,6]", bb)
	}

	m.SetOwner(5, 5, Unowned)
	if got := m.OwnedCellCount(n); got != 1 {
		t.Fatalf("OwnedCellCount after release = %d, want 1", got)
	}
	if !m.BBox(n).Dirty {
		t.Fatal("bbox should be marked dirty after a loss")
	}
}

func TestFoundNationRejectsOcean(t *testing.T) {
	m := newTestMatrix(t, 4, 4)
	m.oceanMask[m.Idx(1, 1)] = 1
	if _, err := m.FoundNation("bob", 1, 1); err == nil {
		t.Fatal("expected error founding on ocean")
	}
}

func TestFoundNationRejectsDuplicateOwner(t *testing.T) {
	m := newTestMatrix(t, 4, 4)
	if _, err := m.FoundNation("bob", 0, 0); err != nil {
		t.Fatalf("FoundNation: %v", err)
	}
	if _, err := m.FoundNation("bob", 1, 1); err == nil {
		t.Fatal("expected error on duplicate owner")
	}
}

func TestRegistryNormalizesOwnerKeys(t *testing.T) {
	m := newTestMatrix(t, 4, 4)
	// "é" as a single code point (U+00E9) vs. combining form (e + U+0301);
	// both must resolve to the same nation.
	precomposed := "café"
	decomposed := "café"
	n, err := m.FoundNation(precomposed, 0, 0)
	if err != nil {
		t.Fatalf("FoundNation: %v", err)
	}
	got, ok := m.LookupOwner(decomposed)
	if !ok || got != n {
		t.Fatalf("LookupOwner(decomposed) = %v,%v want %v,true", got, ok, n)
	}
}

func TestRebuildCountersFromOwnership(t *testing.T) {
	m := newTestMatrix(t, 6, 6)
	n, _ := m.FoundNation("alice", 2, 2)
	m.SetOwner(3, 3, n)
	m.SetOwner(4, 2, n)

	m.ownedCellCount[n] = 0
	m.bbox[n] = emptyBBox()
	m.RebuildCountersFromOwnership()

	if got := m.OwnedCellCount(n); got != 3 {
		t.Fatalf("OwnedCellCount = %d, want 3", got)
	}
	bb := m.BBox(n)
	if bb.MinX != 2 || bb.MaxX != 4 || bb.MinY != 2 || bb.MaxY != 3 {
		t.Fatalf("bbox = %+v", bb)
	}
}

func TestChunkSleepCycle(t *testing.T) {
	m := newTestMatrix(t, 32, 32)
	n, _ := m.FoundNation("alice", 0, 0)
	_ = n

	if m.ChunkAsleep(0, 0) {
		t.Fatal("freshly dirtied chunk must not be asleep")
	}
	// The first tick only clears the dirty flag FoundNation left; the sleep
	// counter then has to climb past SleepThreshold.
	for i := 0; i < SleepThreshold+2; i++ {
		m.TickChunkSleep()
	}
	if !m.ChunkAsleep(0, 0) {
		t.Fatal("chunk should be asleep after exceeding the sleep threshold with no border")
	}
	m.SetOwner(1, 0, n)
	if m.ChunkAsleep(0, 0) {
		t.Fatal("chunk must wake on a new write")
	}
}

func TestDefeatRevertsCellsAndClearsState(t *testing.T) {
	m := newTestMatrix(t, 6, 6)
	n, _ := m.FoundNation("alice", 1, 1)
	m.SetOwner(2, 1, n)
	m.SetLoyaltyAt(n, m.Idx(2, 1), 0.9)

	m.Defeat(n)

	if m.Owner(1, 1) != Unowned || m.Owner(2, 1) != Unowned {
		t.Fatal("defeat must revert owned cells to unowned")
	}
	if m.Loyalty(2, 1, n) != 0 {
		t.Fatal("defeat must clear loyalty")
	}
	if m.Nation(n).Status != StatusDefeated {
		t.Fatal("nation must be marked defeated")
	}
}
