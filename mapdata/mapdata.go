// Package mapdata loads the finalized 2D map description the engine
// receives from an external generator (spec.md §6 "Map input") and derives
// the diffusion-resistance callback PopulateStatic needs. The engine never
// synthesizes terrain itself; this package only decodes and scores what it
// is handed.
package mapdata

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// Load decodes a map description from a JSON file: a row-major [][]Cell
// grid, one row per y. No ecosystem map-description format was present
// anywhere in the retrieved pack, so this is a deliberate stdlib
// encoding/json use.
func Load(path string) ([][]matrix.Cell, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapdata: read %s: %w", path, err)
	}
	var cells [][]matrix.Cell
	if err := json.Unmarshal(b, &cells); err != nil {
		return nil, fmt.Errorf("mapdata: parse %s: %w", path, err)
	}
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, fmt.Errorf("mapdata: %s describes an empty map", path)
	}
	width := len(cells[0])
	for y, row := range cells {
		if len(row) != width {
			return nil, fmt.Errorf("mapdata: row %d has %d cells, want %d", y, len(row), width)
		}
	}
	return cells, nil
}

// hillyBiomes are biome ids whose terrain resists diffusion beyond what
// elevation alone accounts for (mountains, dense forest). Biome ids are
// assigned by the external generator; 2 and 3 are the ids the shipped
// sample maps use for those two biomes.
var hillyBiomes = map[uint8]bool{2: true, 3: true}

// Resistance builds the diffusion-resistance callback PopulateStatic calls
// once per cell, combining elevation, a fixed-point octave noise (deterministic
// per-coordinate via xxhash, since no terrain-noise library was present in
// the retrieved pack and xxhash is already wired elsewhere in matrix), and an
// optional per-biome bump (spec.md §4.1 "static diffusion resistance").
func Resistance(cfg config.Matrix) func(x, y int, c matrix.Cell) float32 {
	return func(x, y int, c matrix.Cell) float32 {
		if c.Ocean {
			return 1.0
		}
		res := float64(c.Elevation) * cfg.ElevationResistanceWeight
		res += fractalNoise(x, y, cfg.NoiseFrequency, cfg.NoiseOctaves) * cfg.NoiseWeight
		if cfg.BiomeResistanceEnabled && hillyBiomes[c.Biome] {
			res += 0.2
		}
		if res < 0 {
			res = 0
		}
		if res > 1 {
			res = 1
		}
		return float32(res)
	}
}

// fractalNoise returns a deterministic pseudo-random value in [0,1) for
// (x,y), summed over octaves at increasing frequency and decreasing
// amplitude, the same shape a Perlin/simplex fractal sum would produce.
func fractalNoise(x, y int, frequency float64, octaves int) float64 {
	if octaves <= 0 {
		octaves = 1
	}
	var sum, amplitude, norm float64
	amplitude = 1
	freq := frequency
	for o := 0; o < octaves; o++ {
		sum += amplitude * hashUnit(x, y, freq, o)
		norm += amplitude
		amplitude *= 0.5
		freq *= 2
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// hashUnit maps a coordinate, frequency and octave index to a value in
// [0,1) via xxhash of their fixed-point encoding.
func hashUnit(x, y int, frequency float64, octave int) float64 {
	fx := uint64(math.Round(float64(x) * frequency * 1000))
	fy := uint64(math.Round(float64(y) * frequency * 1000))
	var b [24]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(fx >> (8 * i))
		b[8+i] = byte(fy >> (8 * i))
	}
	b[16] = byte(octave)
	h := xxhash.Sum64(b[:])
	return float64(h%1_000_000) / 1_000_000
}
