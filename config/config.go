// Package config holds the tunable parameters recognized by the territory
// engine. Every sub-config follows the same withDefaults shape: the zero
// value is usable, and withDefaults fills in the constants named by the
// specification where the caller left a field unset.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// Loyalty holds the tunables for the loyalty diffusion kernel.
type Loyalty struct {
	DiffusionRate     float64
	DecayRate         float64
	ReinforcementRate float64
	CityBonus         float64
	CapitalBonus      float64
	CityRadius        float64
	CapitalRadius     float64
}

func (c Loyalty) withDefaults() Loyalty {
	if c.DiffusionRate == 0 {
		c.DiffusionRate = 0.08
	}
	if c.DecayRate == 0 {
		c.DecayRate = 0.01
	}
	if c.ReinforcementRate == 0 {
		c.ReinforcementRate = 0.02
	}
	if c.CityBonus == 0 {
		c.CityBonus = 0.15
	}
	if c.CapitalBonus == 0 {
		c.CapitalBonus = 0.3
	}
	if c.CityRadius == 0 {
		c.CityRadius = 6
	}
	if c.CapitalRadius == 0 {
		c.CapitalRadius = 10
	}
	return c
}

// Population holds the tunables for the population density & defense kernel.
type Population struct {
	DiffusionRate       float64
	DecayRate           float64
	CitySource          float64
	CapitalSource       float64
	DensityDefenseScale float64
	TroopDefenseScale   float64
}

func (c Population) withDefaults() Population {
	if c.DiffusionRate == 0 {
		c.DiffusionRate = 0.1
	}
	if c.DecayRate == 0 {
		c.DecayRate = 0.002
	}
	if c.CitySource == 0 {
		c.CitySource = 0.4
	}
	if c.CapitalSource == 0 {
		c.CapitalSource = 0.8
	}
	if c.DensityDefenseScale == 0 {
		c.DensityDefenseScale = 0.5
	}
	if c.TroopDefenseScale == 0 {
		c.TroopDefenseScale = 1.5
	}
	return c
}

// Troop holds the tunables for the troop density engine.
type Troop struct {
	MobilizationBaseRate        float64
	MobilizationFreeWorkerScale float64
	DemobilizationRate          float64
	DiffusionRate               float64
	DiffusionSubSteps           int
	BorderConcentrationBias     float64
	ArrowAttractorStrength      float64
	ArrowAttractorRadius        float64
	ArrowAdvanceRate            float64
	MaxDensityPerCell           float64
	DensityDecayOnUnowned       float64
	CombatExchangeRate          float64
	CombatDefenderAdvantage     float64
	CombatDensityThreshold      float64
}

// MaxConservationScale caps the per-nation troop-density conservation
// correction (spec.md §4.5.3); it is a hard constant, not configurable.
const MaxConservationScale = 3.0

func (c Troop) withDefaults() Troop {
	if c.MobilizationBaseRate == 0 {
		c.MobilizationBaseRate = 1.0
	}
	if c.MobilizationFreeWorkerScale == 0 {
		c.MobilizationFreeWorkerScale = 0.5
	}
	if c.DemobilizationRate == 0 {
		c.DemobilizationRate = 0.5
	}
	if c.DiffusionRate == 0 {
		c.DiffusionRate = 0.15
	}
	if c.DiffusionSubSteps == 0 {
		c.DiffusionSubSteps = 1
	}
	if c.BorderConcentrationBias == 0 {
		c.BorderConcentrationBias = 0.2
	}
	if c.ArrowAttractorStrength == 0 {
		c.ArrowAttractorStrength = 1.0
	}
	if c.ArrowAttractorRadius == 0 {
		c.ArrowAttractorRadius = 14
	}
	if c.ArrowAdvanceRate == 0 {
		c.ArrowAdvanceRate = 0.5
	}
	if c.MaxDensityPerCell == 0 {
		c.MaxDensityPerCell = 50
	}
	if c.DensityDecayOnUnowned == 0 {
		c.DensityDecayOnUnowned = 0.5
	}
	if c.CombatExchangeRate == 0 {
		c.CombatExchangeRate = 0.3
	}
	if c.CombatDefenderAdvantage == 0 {
		c.CombatDefenderAdvantage = 1.1
	}
	if c.CombatDensityThreshold == 0 {
		c.CombatDensityThreshold = 0.05
	}
	return c
}

// Matrix holds the tunables used once, at matrix creation, to derive the
// static diffusion-resistance field from biome, elevation and noise.
type Matrix struct {
	NoiseFrequency            float64
	NoiseOctaves              int
	NoiseWeight               float64
	ElevationResistanceWeight float64
	BiomeResistanceEnabled    bool
}

func (c Matrix) withDefaults() Matrix {
	if c.NoiseFrequency == 0 {
		c.NoiseFrequency = 0.05
	}
	if c.NoiseOctaves == 0 {
		c.NoiseOctaves = 3
	}
	if c.NoiseWeight == 0 {
		c.NoiseWeight = 0.2
	}
	if c.ElevationResistanceWeight == 0 {
		c.ElevationResistanceWeight = 0.3
	}
	return c
}

// Structure holds defense-bonus tunables for a structure type (town/tower).
type Structure struct {
	DefenseRadius       float64
	TroopLossMultiplier float64
}

func (c Structure) withDefaults(radius, loss float64) Structure {
	if c.DefenseRadius == 0 {
		c.DefenseRadius = radius
	}
	if c.TroopLossMultiplier == 0 {
		c.TroopLossMultiplier = loss
	}
	return c
}

// Structures groups the per-structure-type defense tunables.
type Structures struct {
	Town  Structure
	Tower Structure
}

func (c Structures) withDefaults() Structures {
	c.Town = c.Town.withDefaults(5, 1.0)
	c.Tower = c.Tower.withDefaults(8, 1.5)
	return c
}

// Regions holds the optional regional-metadata tunables (spec.md §4.3's
// "Regional boost"). withDefaults fills zero values, so these fields only
// tune the regional paths; the paths are disabled by passing a nil
// *population.Regions, and region metadata itself is supplied per tick, not
// here.
type Regions struct {
	CityDensityMultiplier float64
	TowerDefenseBonus     []float64
}

func (c Regions) withDefaults() Regions {
	if c.CityDensityMultiplier == 0 {
		c.CityDensityMultiplier = 1.5
	}
	if len(c.TowerDefenseBonus) == 0 {
		c.TowerDefenseBonus = []float64{1.0, 1.25, 1.5, 2.0}
	}
	return c
}

// Config is the full set of tunables recognized by a Match (spec.md §6).
type Config struct {
	Loyalty    Loyalty
	Population Population
	Troop      Troop
	Matrix     Matrix
	Structures Structures
	Regions    Regions

	// MaxNations bounds the nation index space N (spec.md §3.2).
	MaxNations int
	// TickInterval is the wall-clock period between ticks.
	TickInterval time.Duration
	// OwnershipThreshold is the minimum loyalty an ownership-derivation
	// challenger must exceed to flip a cell (spec.md §4.2.1, default 0.6).
	OwnershipThreshold float64
	// ConcavityMinNeighbors is the minimum same-owner 8-neighbour count for
	// passive concavity fill to claim a cell (spec.md §4.2.2, default 5).
	ConcavityMinNeighbors int
	// ConcavityMaxPasses bounds cascading concavity-fill passes per tick
	// (spec.md §4.2.2, default 3).
	ConcavityMaxPasses int
	// TroopDiffusionMargin expands a nation's bbox for troop diffusion
	// (spec.md §4.5.2, default 12).
	TroopDiffusionMargin int
}

// WithDefaults returns a copy of c with every unset field replaced by the
// specification's default (spec.md §4, §6).
func (c Config) WithDefaults() Config {
	c.Loyalty = c.Loyalty.withDefaults()
	c.Population = c.Population.withDefaults()
	c.Troop = c.Troop.withDefaults()
	c.Matrix = c.Matrix.withDefaults()
	c.Structures = c.Structures.withDefaults()
	c.Regions = c.Regions.withDefaults()
	if c.MaxNations == 0 {
		c.MaxNations = 64
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second / 10
	}
	if c.OwnershipThreshold == 0 {
		c.OwnershipThreshold = 0.6
	}
	if c.ConcavityMinNeighbors == 0 {
		c.ConcavityMinNeighbors = 5
	}
	if c.ConcavityMaxPasses == 0 {
		c.ConcavityMaxPasses = 3
	}
	if c.TroopDiffusionMargin == 0 {
		c.TroopDiffusionMargin = 12
	}
	return c
}

// Load reads a Config from a TOML file at path and applies WithDefaults to
// the result, mirroring the teacher's own server.toml configuration file.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := toml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c.WithDefaults(), nil
}
