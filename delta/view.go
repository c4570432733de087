package delta

import (
	"sync"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

// heatmapInterval is how often (in ticks) a nation's own troop-density
// heatmap is rebuilt; other ticks reuse the cached payload (spec.md §4.7).
const heatmapInterval = 5

// HeatmapCell is one quantized density sample, flat-packed as [x,y,q,...]
// on the wire.
type HeatmapCell struct {
	X, Y int
	Q    uint8
}

// Heatmap is a nation's quantized troop-density payload over its bbox.
type Heatmap struct {
	Tick  int64
	Cells []HeatmapCell
}

// ArrowView is the subset of an Arrow's fields reported to its owner.
type ArrowView struct {
	ID                matrix.ID
	HeadX, HeadY      float64
	Percent           float64
	CorridorHalfWidth float64
	Phase             matrix.ArrowPhase
}

// NationView is the payload for one nation, already stripped to the level
// of detail appropriate for the viewer (spec.md §4.7 "Per-player view").
type NationView struct {
	Owner       string
	Status      matrix.NationStatus
	DeltaText   string
	HasDelta    bool
	IsSelf      bool
	Population  float64
	TroopCount  float64
	TroopTarget float32
	Arrows      []ArrowView
	Heatmap     *Heatmap
}

// Cache holds the per-nation throttled heatmap state across ticks.
type Cache struct {
	mu       sync.Mutex
	heatmaps map[int8]*Heatmap
}

// NewCache returns an empty heatmap cache.
func NewCache() *Cache { return &Cache{heatmaps: make(map[int8]*Heatmap)} }

func (c *Cache) heatmap(m *matrix.Matrix, n int8, tick int64, maxDensityPerCell float64, force bool) *Heatmap {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force && tick%heatmapInterval != 0 {
		if h, ok := c.heatmaps[n]; ok {
			return h
		}
	}
	h := buildHeatmap(m, n, tick, maxDensityPerCell)
	c.heatmaps[n] = h
	return h
}

func buildHeatmap(m *matrix.Matrix, n int8, tick int64, maxDensityPerCell float64) *Heatmap {
	bb := m.BBox(n)
	h := &Heatmap{Tick: tick}
	if bb.Empty() {
		return h
	}
	peak := 0.0
	for y := bb.MinY; y <= bb.MaxY; y++ {
		for x := bb.MinX; x <= bb.MaxX; x++ {
			i := m.Idx(x, y)
			if m.OwnerAt(i) != n {
				continue
			}
			if v := float64(m.TroopDensityAt(n, i)); v > peak {
				peak = v
			}
		}
	}
	denom := maxDensityPerCell
	if peak > 1 && peak < maxDensityPerCell {
		denom = peak
	} else if peak <= 1 {
		denom = 1
		if maxDensityPerCell < 1 {
			denom = maxDensityPerCell
		}
	}
	if denom <= 0 {
		return h
	}
	for y := bb.MinY; y <= bb.MaxY; y++ {
		for x := bb.MinX; x <= bb.MaxX; x++ {
			i := m.Idx(x, y)
			if m.OwnerAt(i) != n {
				continue
			}
			v := float64(m.TroopDensityAt(n, i)) / denom
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			q := uint8(v * 255)
			if q < 1 {
				q = 1
			}
			h.Cells = append(h.Cells, HeatmapCell{X: x, Y: y, Q: q})
		}
	}
	return h
}

// AssembleViews builds one NationView per registered nation, defeated
// nations included (those carry only owner/status/delta).
// viewerOwner is the requesting player's own nation, which receives the
// full self view (including the throttled heatmap); every other nation is
// stripped to owner/status/delta (spec.md §4.7). forceFullState requests an
// unthrottled heatmap rebuild (e.g. on a client's initial full-state
// request).
func AssembleViews(m *matrix.Matrix, deltas map[int8]*Delta, cache *Cache, tick int64, maxDensityPerCell float64, viewerOwner string, forceFullState bool) map[string]NationView {
	out := make(map[string]NationView)
	viewerN, hasViewer := m.LookupOwner(viewerOwner)

	for _, n := range m.Nations() {
		nat := m.Nation(n)
		if nat == nil {
			continue
		}
		owner := nat.Owner
		d := deltas[n]
		text, hasDelta := PackText(d)

		if nat.Status == matrix.StatusDefeated {
			out[owner] = NationView{Owner: owner, Status: nat.Status, DeltaText: text, HasDelta: hasDelta}
			continue
		}

		if hasViewer && n == viewerN {
			out[owner] = selfView(m, n, nat, tick, maxDensityPerCell, text, hasDelta, cache, forceFullState)
			continue
		}
		out[owner] = NationView{Owner: owner, Status: nat.Status, DeltaText: text, HasDelta: hasDelta}
	}
	return out
}

func selfView(m *matrix.Matrix, n int8, nat *matrix.Nation, tick int64, maxDensityPerCell float64, text string, hasDelta bool, cache *Cache, forceFullState bool) NationView {
	arrows := make([]ArrowView, 0, len(nat.Arrows))
	for _, a := range nat.Arrows {
		arrows = append(arrows, ArrowView{
			ID: a.ID, HeadX: a.HeadX, HeadY: a.HeadY,
			Percent: a.Percent, CorridorHalfWidth: a.CorridorHalfWidth, Phase: a.Phase,
		})
	}
	heatmap := cache.heatmap(m, n, tick, maxDensityPerCell, forceFullState)
	return NationView{
		Owner: nat.Owner, Status: nat.Status, DeltaText: text, HasDelta: hasDelta, IsSelf: true,
		Population: nat.Population, TroopCount: nat.TroopCount, TroopTarget: nat.TroopTarget,
		Arrows: arrows, Heatmap: heatmap,
	}
}
