package delta

import (
	"testing"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

func newTestMatrix(t *testing.T, w, h, n int) *matrix.Matrix {
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

func TestDeriveDeltasTracksAddAndSub(t *testing.T) {
	m := newTestMatrix(t, 5, 5, 2)
	a, _ := m.FoundNation("a", 1, 1)
	b, _ := m.FoundNation("b", 3, 3)
	m.SnapshotOwnership()

	m.SetOwner(2, 2, a)
	m.SetOwner(3, 3, a) // steal b's only cell

	deltas := DeriveDeltas(m)
	if len(deltas[a].Add) != 2 {
		t.Fatalf("a.Add = %v, want 2 entries", deltas[a].Add)
	}
	if len(deltas[b].Sub) != 1 {
		t.Fatalf("b.Sub = %v, want 1 entry", deltas[b].Sub)
	}
}

func TestDeriveDeltasEmptyWhenNoChange(t *testing.T) {
	m := newTestMatrix(t, 5, 5, 1)
	m.FoundNation("a", 1, 1)
	m.SnapshotOwnership()
	deltas := DeriveDeltas(m)
	if len(deltas) != 0 {
		t.Fatalf("expected no deltas when ownership is unchanged, got %v", deltas)
	}
}

func TestPackTextRoundTrip(t *testing.T) {
	d := &Delta{
		Add: []matrix.Point{{X: 1, Y: 2}, {X: 40, Y: 3}},
		Sub: []matrix.Point{{X: 5, Y: 5}},
	}
	text, ok := PackText(d)
	if !ok {
		t.Fatal("expected a packed payload")
	}
	got, err := UnpackText(text)
	if err != nil {
		t.Fatalf("UnpackText: %v", err)
	}
	if len(got.Add) != 2 || len(got.Sub) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Add[1].X != 40 {
		t.Fatalf("base-36 round trip lost precision: %+v", got.Add[1])
	}
}

func TestPackTextEmptyReturnsNull(t *testing.T) {
	if _, ok := PackText(&Delta{}); ok {
		t.Fatal("an empty delta should pack to null")
	}
}

func TestPackBinaryRoundTrip(t *testing.T) {
	d := &Delta{Add: []matrix.Point{{X: 7, Y: 8}}, Sub: []matrix.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}
	packed, ok := PackBinary(d)
	if !ok {
		t.Fatal("expected a packed payload")
	}
	got, err := UnpackBinary(packed)
	if err != nil {
		t.Fatalf("UnpackBinary: %v", err)
	}
	if len(got.Add) != 1 || len(got.Sub) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	m := newTestMatrix(t, 6, 6, 2)
	a, _ := m.FoundNation("a", 2, 2)
	m.BuildCity("a", 2, 2, "capital", matrix.CityCapital)
	m.SetOwner(3, 2, a)
	m.SetLoyaltyAt(a, m.Idx(3, 2), 0.75)
	m.SetTroopDensityAt(a, m.Idx(2, 2), 4.5, 50)

	cells := make([][]matrix.Cell, 6)
	for y := range cells {
		cells[y] = make([]matrix.Cell, 6)
	}
	resistance := func(x, y int, c matrix.Cell) float32 { return 0 }

	data, err := Serialize(m, Version1)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	restored, err := Deserialize(data, cells, resistance)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Owner(2, 2) < 0 || restored.Owner(2, 2) != restored.Owner(3, 2) {
		t.Fatal("ownership did not round-trip")
	}
	rn := restored.Owner(2, 2)
	if got := restored.TroopDensityAt(rn, restored.Idx(2, 2)); got < 4.49 || got > 4.51 {
		t.Fatalf("troop density round trip = %f, want ~4.5", got)
	}
	if got := restored.Loyalty(3, 2, rn); got < 0.74 || got > 0.76 {
		t.Fatalf("loyalty round trip = %f, want ~0.75", got)
	}
	if cap, ok := restored.Capital(rn); !ok || cap.Name != "capital" {
		t.Fatal("capital city did not round-trip")
	}
}

func TestSerializeDeserializeV2QuantizesLoyalty(t *testing.T) {
	m := newTestMatrix(t, 4, 4, 1)
	a, _ := m.FoundNation("a", 1, 1)
	m.SetLoyaltyAt(a, m.Idx(1, 1), 0.6)

	cells := make([][]matrix.Cell, 4)
	for y := range cells {
		cells[y] = make([]matrix.Cell, 4)
	}
	data, err := Serialize(m, Version2)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	restored, err := Deserialize(data, cells, func(x, y int, c matrix.Cell) float32 { return 0 })
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	rn := restored.Owner(1, 1)
	got := restored.Loyalty(1, 1, rn)
	if got < 0.6-1.0/255 || got > 0.6+1.0/255 {
		t.Fatalf("quantized loyalty = %f, want within 1/255 of 0.6", got)
	}
}

func TestAssembleViewsStripsOtherNations(t *testing.T) {
	m := newTestMatrix(t, 5, 5, 2)
	m.FoundNation("a", 1, 1)
	m.FoundNation("b", 3, 3)
	m.SnapshotOwnership()
	deltas := DeriveDeltas(m)
	cache := NewCache()

	views := AssembleViews(m, deltas, cache, 1, 50, "a", false)
	if !views["a"].IsSelf {
		t.Fatal("viewer's own nation should be the self view")
	}
	if views["b"].IsSelf {
		t.Fatal("other nations must not be marked self")
	}
	if views["b"].Arrows != nil {
		t.Fatal("other nations must not expose arrows")
	}
}
