package loyalty

import (
	"testing"

	"github.com/s4lvi/historyengine-sub002/config"
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

func TestDiffuseClampsToUnitRange(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 2, 2)
	cfg := config.Config{}.WithDefaults().Loyalty
	for i := 0; i < 200; i++ {
		Diffuse(m, cfg)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			v := m.Loyalty(x, y, a)
			if v < 0 || v > 1 {
				t.Fatalf("loyalty at (%d,%d) = %f out of [0,1]", x, y, v)
			}
		}
	}
}

func TestDiffuseGrowsLoyaltyNearOwnedCell(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 2, 2)
	cfg := config.Config{}.WithDefaults().Loyalty
	for i := 0; i < 5; i++ {
		Diffuse(m, cfg)
	}
	if m.Loyalty(2, 1, a) <= 0 {
		t.Fatal("loyalty should diffuse outward from an owned cell")
	}
}

func TestApplyArrowPressure(t *testing.T) {
	m := newTestMatrix(t, 3, 3)
	a, _ := m.FoundNation("a", 1, 1)
	before := m.Loyalty(1, 1, a)
	ApplyArrowPressure(m, a, 1, 1, 0.2)
	if m.Loyalty(1, 1, a) <= before {
		t.Fatal("arrow pressure should increase loyalty")
	}
}
