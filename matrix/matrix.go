// Package matrix implements the dense typed-array territory store (spec.md
// §3, §4.1): cell-indexed and nation-cell-indexed layers, the nation
// registry, running counters, and the single centralized mutator through
// which ownership may change.
package matrix

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// ChunkSize is the side length of the dirty/sleep tracking grid (spec.md
// §3.5, GLOSSARY).
const ChunkSize = 16

// SleepThreshold is the count of consecutive undirtied ticks a chunk must
// exceed, with no border cell, before diffusion kernels may skip it
// (spec.md §4.3).
const SleepThreshold = 3

// Cell is a map cell description supplied by the external map generator
// (spec.md §6 "Map input"). The core never synthesizes these values.
type Cell struct {
	Biome        uint8
	Elevation    float32
	Moisture     float32
	IsRiver      bool
	Ocean        bool
	ResourceType uint8
	ResourceLevel uint8
}

// Matrix is one map instance's dense territorial field store plus its
// companion nation registry and per-nation records (spec.md §2, §3).
type Matrix struct {
	W, H int
	N    int
	size int

	// Cell-indexed layers, length W*H.
	ownership     []int8
	prevOwnership []int8

	biomeIndex []uint8
	elevation  []float32
	moisture   []float32
	oceanMask  []uint8

	resourceType          []uint8
	resourceLevel         []uint8
	resourceClaimOwner    []int8
	resourceClaimProgress []float32

	populationDensity   []float32
	defenseStrength     []float32
	diffusionResistance []float32

	// Nation-cell layers, length W*H*N, stride size per nation.
	loyalty      []float32
	troopDensity []float32

	reg     *registry
	nations []*Nation // indexed by nation index, nil when retired

	ownedCellCount  []int32
	troopDensitySum []float64
	bbox            []BBox

	// dirtyCells accumulates the flat index of every cell whose ownership
	// actually changed since the last SnapshotOwnership, so DeriveDeltas can
	// walk only the changed cells instead of rescanning the grid (spec.md
	// §4.7 "Cost O(cells changed), not O(size)"). dirtyMark dedupes repeat
	// flips of the same cell within one tick.
	dirtyCells []int32
	dirtyMark  []bool

	chunkW, chunkH       int
	chunkDirty           []bool
	chunkSleepCounter    []int
	chunkHasBorder       []bool
}

// New allocates an empty Matrix of the given dimensions with room for n
// nations, with no cells owned. Call PopulateStatic to fill the static
// layers from a finalized map description before use.
func New(w, h, n int) *Matrix {
	size := w * h
	chunkW := (w + ChunkSize - 1) / ChunkSize
	chunkH := (h + ChunkSize - 1) / ChunkSize

	m := &Matrix{
		W: w, H: h, N: n, size: size,

		ownership:     make([]int8, size),
		prevOwnership: make([]int8, size),

		biomeIndex: make([]uint8, size),
		elevation:  make([]float32, size),
		moisture:   make([]float32, size),
		oceanMask:  make([]uint8, size),

		resourceType:          make([]uint8, size),
		resourceLevel:         make([]uint8, size),
		resourceClaimOwner:    make([]int8, size),
		resourceClaimProgress: make([]float32, size),

		populationDensity:   make([]float32, size),
		defenseStrength:     make([]float32, size),
		diffusionResistance: make([]float32, size),

		loyalty:      make([]float32, size*n),
		troopDensity: make([]float32, size*n),

		reg:     newRegistry(n),
		nations: make([]*Nation, n),

		ownedCellCount:  make([]int32, n),
		troopDensitySum: make([]float64, n),
		bbox:            make([]BBox, n),

		dirtyMark: make([]bool, size),

		chunkW: chunkW, chunkH: chunkH,
		chunkDirty:        make([]bool, chunkW*chunkH),
		chunkSleepCounter: make([]int, chunkW*chunkH),
		chunkHasBorder:    make([]bool, chunkW*chunkH),
	}
	for i := range m.ownership {
		m.ownership[i] = Unowned
		m.prevOwnership[i] = Unowned
		m.resourceClaimOwner[i] = Unowned
	}
	for i := range m.bbox {
		m.bbox[i] = emptyBBox()
	}
	return m
}

// Idx returns the flat cell index for (x,y). The kernels, the engines and
// the tests all use it.
func (m *Matrix) Idx(x, y int) int { return y*m.W + x }

// InBounds reports whether (x,y) lies within the map.
func (m *Matrix) InBounds(x, y int) bool { return x >= 0 && x < m.W && y >= 0 && y < m.H }

// PopulateStatic fills the static layers from a finalized 2D map
// description (spec.md §6) and derives diffusion resistance once.
func (m *Matrix) PopulateStatic(cells [][]Cell, resistance func(x, y int, c Cell) float32) error {
	if len(cells) != m.H {
		return fmt.Errorf("matrix: map has %d rows, want %d", len(cells), m.H)
	}
	for y, row := range cells {
		if len(row) != m.W {
			return fmt.Errorf("matrix: map row %d has %d cols, want %d", y, len(row), m.W)
		}
		for x, c := range row {
			i := m.Idx(x, y)
			m.biomeIndex[i] = c.Biome
			m.elevation[i] = c.Elevation
			m.moisture[i] = c.Moisture
			if c.Ocean {
				m.oceanMask[i] = 1
			}
			m.resourceType[i] = c.ResourceType
			m.resourceLevel[i] = c.ResourceLevel
			res := resistance(x, y, c)
			if c.Ocean {
				res = 1.0
			}
			if res < 0 {
				res = 0
			}
			if res > 0.99 {
				res = 0.99
			}
			m.diffusionResistance[i] = res
		}
	}
	return nil
}

// Ocean reports whether the cell at (x,y) is impassable ocean.
func (m *Matrix) Ocean(x, y int) bool { return m.oceanMask[m.Idx(x, y)] != 0 }

// Owner returns the nation index owning (x,y), or Unowned.
func (m *Matrix) Owner(x, y int) int8 { return m.ownership[m.Idx(x, y)] }

// OwnerAt is the index-addressed form of Owner, used by kernels iterating
// flat indices.
func (m *Matrix) OwnerAt(i int) int8 { return m.ownership[i] }

// PrevOwnerAt returns the ownership snapshot taken at the start of the
// current tick.
func (m *Matrix) PrevOwnerAt(i int) int8 { return m.prevOwnership[i] }

// Loyalty returns nation n's loyalty at (x,y).
func (m *Matrix) Loyalty(x, y int, n int8) float32 { return m.loyalty[int(n)*m.size+m.Idx(x, y)] }

// LoyaltyAt is the index-addressed form of Loyalty.
func (m *Matrix) LoyaltyAt(n int8, i int) float32 { return m.loyalty[int(n)*m.size+i] }

// SetLoyaltyAt sets nation n's loyalty at cell i, clamped to [0,1] (spec.md
// §4.4 step 4).
func (m *Matrix) SetLoyaltyAt(n int8, i int, v float32) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	m.loyalty[int(n)*m.size+i] = v
}

// TroopDensityAt returns nation n's troop density at cell i.
func (m *Matrix) TroopDensityAt(n int8, i int) float32 { return m.troopDensity[int(n)*m.size+i] }

// SetTroopDensityAt sets nation n's troop density at cell i, clamped to
// [0, maxDensityPerCell].
func (m *Matrix) SetTroopDensityAt(n int8, i int, v, maxDensityPerCell float32) {
	if v < 0 {
		v = 0
	} else if v > maxDensityPerCell {
		v = maxDensityPerCell
	}
	m.troopDensity[int(n)*m.size+i] = v
}

// ResistanceAt returns the precomputed diffusion resistance at cell i.
func (m *Matrix) ResistanceAt(i int) float32 { return m.diffusionResistance[i] }

// PopulationDensityAt / SetPopulationDensityAt access the population field.
func (m *Matrix) PopulationDensityAt(i int) float32    { return m.populationDensity[i] }
func (m *Matrix) SetPopulationDensityAt(i int, v float32) { m.populationDensity[i] = v }

// DefenseAt / SetDefenseAt access the defense field.
func (m *Matrix) DefenseAt(i int) float32    { return m.defenseStrength[i] }
func (m *Matrix) SetDefenseAt(i int, v float32) { m.defenseStrength[i] = v }

// OwnedCellCount returns nation n's live owned-cell counter.
func (m *Matrix) OwnedCellCount(n int8) int32 { return m.ownedCellCount[n] }

// TroopDensitySum returns nation n's cached density sum.
func (m *Matrix) TroopDensitySum(n int8) float64 { return m.troopDensitySum[n] }

// SetTroopDensitySum overwrites the cached sum (used by the conservation
// step after recomputing it, spec.md §4.5.3).
func (m *Matrix) SetTroopDensitySum(n int8, v float64) { m.troopDensitySum[n] = v }

// BBox returns nation n's bounding box.
func (m *Matrix) BBox(n int8) BBox { return m.bbox[n] }

// Nation returns the bookkeeping record for nation index n, or nil if the
// slot is not currently live.
func (m *Matrix) Nation(n int8) *Nation {
	if n < 0 || int(n) >= len(m.nations) {
		return nil
	}
	return m.nations[n]
}

// Nations returns every currently-live nation index, ascending.
func (m *Matrix) Nations() []int8 { return m.reg.live() }

// LookupOwner returns the nation index for owner, and whether it is
// registered.
func (m *Matrix) LookupOwner(owner string) (int8, bool) { return m.reg.lookup(owner) }

// OwnerString returns the owner string of nation index n.
func (m *Matrix) OwnerString(n int8) (string, bool) { return m.reg.ownerOf(n) }

// chunkOf returns the chunk-grid index containing cell (x,y).
func (m *Matrix) chunkOf(x, y int) int {
	return (y/ChunkSize)*m.chunkW + (x / ChunkSize)
}

// markChunkDirty marks the chunk containing (x,y) dirty and resets its
// sleep counter (spec.md §4.1 step 3).
func (m *Matrix) markChunkDirty(x, y int) {
	c := m.chunkOf(x, y)
	m.chunkDirty[c] = true
	m.chunkSleepCounter[c] = 0
}

// ChunkAsleep reports whether the chunk containing (x,y) may be skipped by
// diffusion kernels this tick (spec.md §4.3's skip rule).
func (m *Matrix) ChunkAsleep(x, y int) bool {
	c := m.chunkOf(x, y)
	return !m.chunkDirty[c] && !m.chunkHasBorder[c] && m.chunkSleepCounter[c] > SleepThreshold
}

// TickChunkSleep increments sleep counters for chunks that were not
// dirtied this tick and clears every dirty flag (spec.md §4.6 step 11).
func (m *Matrix) TickChunkSleep() {
	for i := range m.chunkDirty {
		if m.chunkDirty[i] {
			m.chunkDirty[i] = false
		} else {
			m.chunkSleepCounter[i]++
		}
	}
}

// RebuildChunkBorderFlags recomputes chunkHasBorder from current ownership,
// required after deserialization (spec.md §4.7).
func (m *Matrix) RebuildChunkBorderFlags() {
	for i := range m.chunkHasBorder {
		m.chunkHasBorder[i] = false
	}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			i := m.Idx(x, y)
			owner := m.ownership[i]
			if m.isBorderCell(x, y, owner) {
				m.chunkHasBorder[m.chunkOf(x, y)] = true
			}
		}
	}
}

func (m *Matrix) isBorderCell(x, y int, owner int8) bool {
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx, ny := x+d[0], y+d[1]
		if !m.InBounds(nx, ny) {
			if owner != Unowned {
				return true
			}
			continue
		}
		if m.ownership[m.Idx(nx, ny)] != owner {
			return true
		}
	}
	return false
}

// SetOwner is the single centralized mutator for ownership changes
// (spec.md §4.1). It is the only place allowed to write m.ownership: it
// maintains ownedCellCount, bbox and the chunk dirty/sleep grid atomically
// with the write.
func (m *Matrix) SetOwner(x, y int, n int8) {
	i := m.Idx(x, y)
	old := m.ownership[i]
	if old == n {
		return
	}
	if old >= 0 {
		m.ownedCellCount[old]--
		m.bbox[old].Dirty = true
	}
	m.ownership[i] = n
	if n >= 0 {
		m.ownedCellCount[n]++
		m.bbox[n].grow(x, y)
	}
	m.markChunkDirty(x, y)

	if !m.dirtyMark[i] {
		m.dirtyMark[i] = true
		m.dirtyCells = append(m.dirtyCells, int32(i))
	}
}

// SnapshotOwnership copies ownership into prevOwnership (spec.md §4.1,
// §4.6 step 1), used by the delta pass to find cell flips, and clears the
// dirty-cell accumulator SetOwner fills over the course of the tick.
func (m *Matrix) SnapshotOwnership() {
	copy(m.prevOwnership, m.ownership)
	for _, i := range m.dirtyCells {
		m.dirtyMark[i] = false
	}
	m.dirtyCells = m.dirtyCells[:0]
}

// DirtyCells returns the flat indices of every cell SetOwner has changed
// since the last SnapshotOwnership, in the order they were first flipped
// this tick. The slice is owned by Matrix and is only valid until the next
// SnapshotOwnership call.
func (m *Matrix) DirtyCells() []int32 {
	return m.dirtyCells
}

// RebuildCountersFromOwnership recomputes ownedCellCount and every nation's
// bbox from scratch, for use after deserialization (spec.md §4.1, §4.7).
func (m *Matrix) RebuildCountersFromOwnership() {
	for i := range m.ownedCellCount {
		m.ownedCellCount[i] = 0
	}
	for i := range m.bbox {
		m.bbox[i] = emptyBBox()
	}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			n := m.ownership[m.Idx(x, y)]
			if n < 0 {
				continue
			}
			m.ownedCellCount[n]++
			m.bbox[n].grow(x, y)
		}
	}
}

// Checksum returns a deterministic hash of the dynamic state (ownership,
// loyalty, troop density), for comparing two matrices' state, e.g. across
// a serialize/deserialize round trip or for desync diagnostics.
func (m *Matrix) Checksum() uint64 {
	h := xxhash.New()
	_, _ = h.Write(int8sToBytes(m.ownership))
	_, _ = h.Write(float32sToBytes(m.loyalty))
	_, _ = h.Write(float32sToBytes(m.troopDensity))
	return h.Sum64()
}

func int8sToBytes(s []int8) []byte {
	out := make([]byte, len(s))
	for i, v := range s {
		out[i] = byte(v)
	}
	return out
}

func float32sToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		bits := math.Float32bits(v)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
