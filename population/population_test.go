package population

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

func TestDiffuseAppliesCitySourceCapped(t *testing.T) {
	m := newTestMatrix(t, 5, 5)
	a, _ := m.FoundNation("a", 2, 2)
	_ = m.BuildCity("a", 2, 2, "capital", matrix.CityCapital)
	_ = a

	cfg := config.Config{}.WithDefaults().Population
	for i := 0; i < 20; i++ {
		Diffuse(m, cfg, nil, 1)
	}
	if got := m.PopulationDensityAt(m.Idx(2, 2)); got > cityDensityCap+0.01 {
		t.Fatalf("population density %f exceeds cap %f", got, float32(cityDensityCap))
	}
}

func TestDiffuseSkipsOcean(t *testing.T) {
	m := newTestMatrix(t, 3, 3)
	m.PopulateStatic([][]matrix.Cell{
		{{}, {}, {}},
		{{}, {Ocean: true}, {}},
		{{}, {}, {}},
	}, func(x, y int, c matrix.Cell) float32 { return 0 })
	cfg := config.Config{}.WithDefaults().Population
	Diffuse(m, cfg, nil, 1)
	if got := m.PopulationDensityAt(m.Idx(1, 1)); got != 0 {
		t.Fatalf("ocean cell density = %f, want 0", got)
	}
}

func TestComputeDefenseAddsStructuralBonus(t *testing.T) {
	m := newTestMatrix(t, 9, 9)
	a, _ := m.FoundNation("a", 4, 4)
	_ = m.BuildCity("a", 4, 4, "capital", matrix.CityCapital)
	_ = a

	popCfg := config.Config{}.WithDefaults().Population
	structures := config.Config{}.WithDefaults().Structures
	ComputeDefense(m, popCfg, structures, nil, nil)

	center := m.DefenseAt(m.Idx(4, 4))
	far := m.DefenseAt(m.Idx(0, 0))
	if center <= far {
		t.Fatalf("defense near capital (%f) should exceed far defense (%f)", center, far)
	}
}
