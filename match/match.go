// Package match implements the tick orchestrator of spec.md §4.6: the
// exact twelve-step per-tick pipeline wiring the matrix store, kernels,
// population/loyalty/troop engines, defeat resolution and delta/view
// assembly together, plus the match's own tick loop (grounded in the
// teacher's ticker/tickLoop: a time.Ticker, rolling TPS sampling, and a
// slog warning on every tick whose TPS reading is below threshold).
package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/s4lvi/historyengine-sub002/command"
	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/delta"
	"github.com/s4lvi/historyengine-sub002/kernel"
	"github.com/s4lvi/historyengine-sub002/loyalty"
	"github.com/s4lvi/historyengine-sub002/matrix"
	"github.com/s4lvi/historyengine-sub002/metrics"
	"github.com/s4lvi/historyengine-sub002/population"
	"github.com/s4lvi/historyengine-sub002/troop"
)

// Output is what one Tick produces: the raw per-nation deltas (for callers
// that persist or replicate them directly) and the tick number they belong
// to. Per-player view assembly (delta.AssembleViews) is left to the caller,
// since it is parameterized by which nation is viewing.
type Output struct {
	Tick   int64
	Deltas map[int8]*delta.Delta
}

// Match owns one running simulation instance: its matrix, its configuration,
// its buffered command queue, and its tick-rate tracker. Per spec.md §5, a
// Match is single-threaded cooperative: Tick and Run must only ever be
// driven by one goroutine at a time.
type Match struct {
	ID      string
	Cfg     config.Config
	M       *matrix.Matrix
	Queue   *command.Queue
	Regions *population.Regions
	Metrics *metrics.Tracker
	Views   *delta.Cache

	log  *slog.Logger
	tick int64
}

// New constructs a Match around an already-populated matrix (PopulateStatic
// must already have been called).
func New(id string, cfg config.Config, m *matrix.Matrix, regions *population.Regions, log *slog.Logger) *Match {
	if log == nil {
		log = slog.Default()
	}
	return &Match{
		ID: id, Cfg: cfg, M: m, Regions: regions,
		Queue: command.NewQueue(), Metrics: metrics.NewTracker(), Views: delta.NewCache(),
		log: log,
	}
}

// TickCount returns the number of ticks processed so far.
func (mt *Match) TickCount() int64 { return mt.tick }

// Tick runs one full orchestrator pass (spec.md §4.6, steps 1-12) and
// returns the resulting per-nation deltas. Buffered commands must already
// have been applied (command.Apply(mt.M, mt.Queue)) by the caller before
// calling Tick, matching the "commands buffered, applied at tick start"
// contract of spec.md §5.
func (mt *Match) Tick() Output {
	start := time.Now()

	mt.M.SnapshotOwnership() // 1

	troop.Mobilize(mt.M, mt.Cfg.Troop) // 2
	troop.Diffuse(mt.M, mt.Cfg.Troop, mt.Cfg.TroopDiffusionMargin) // 3

	troop.AdvanceArrows(mt.M, mt.Cfg.Troop) // 4a: step each arrow's head along its path

	for _, n := range mt.M.Nations() { // 4b: resolve combat for arrows still advancing
		nat := mt.M.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		for _, a := range nat.Arrows {
			if a.Phase != matrix.ArrowAdvancing {
				continue
			}
			troop.ResolveCombat(mt.M, mt.Cfg.Troop, mt.Cfg.Population.TroopDefenseScale, n, a)
		}
	}

	loyalty.Diffuse(mt.M, mt.Cfg.Loyalty) // 5

	kernel.DeriveOwnership(mt.M, mt.Cfg.OwnershipThreshold) // 6

	kernel.ConcavityFill(mt.M, mt.Cfg.ConcavityMinNeighbors, mt.Cfg.ConcavityMaxPasses) // 7

	population.Diffuse(mt.M, mt.Cfg.Population, mt.Regions, mt.Cfg.Regions.CityDensityMultiplier) // 8

	population.ComputeDefense(mt.M, mt.Cfg.Population, mt.Cfg.Structures, mt.Regions, mt.Cfg.Regions.TowerDefenseBonus) // 9

	mt.resolveDefeats() // 10

	mt.M.TickChunkSleep() // 11

	deltas := delta.DeriveDeltas(mt.M) // 12

	mt.tick++
	mt.Metrics.Record(time.Since(start).Nanoseconds())
	if configuredHz := 1.0 / mt.Cfg.TickInterval.Seconds(); mt.Metrics.Below(configuredHz) {
		mt.log.Warn("tick rate dropped below threshold", "tps", mt.Metrics.TPS(), "match", mt.ID)
	}

	return Output{Tick: mt.tick, Deltas: deltas}
}

// resolveDefeats implements spec.md §4.6 step 10 and resolves the open
// question of spec.md §9 ("defeat condition on capital loss") with the
// combined rule recorded in DESIGN.md: a nation is defeated the tick its
// capital cell flips to another owner, OR its capital-bearing territory
// component is found encircled, OR it ends the tick owning zero cells.
func (mt *Match) resolveDefeats() {
	for _, n := range mt.M.Nations() {
		nat := mt.M.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		capital, ok := mt.M.Capital(n)
		if !ok {
			continue
		}
		if mt.M.Owner(capital.X, capital.Y) != n {
			mt.M.Defeat(n)
			continue
		}
		kernel.RemoveDisconnectedTerritory(mt.M, n, capital.X, capital.Y)
	}

	for _, enc := range kernel.DetectEncirclements(mt.M) {
		if nat := mt.M.Nation(enc.Owner); nat != nil && nat.Status != matrix.StatusDefeated {
			mt.M.Defeat(enc.Owner)
		}
	}

	for _, n := range mt.M.Nations() {
		nat := mt.M.Nation(n)
		if nat == nil || nat.Status == matrix.StatusDefeated {
			continue
		}
		if mt.M.OwnedCellCount(n) == 0 {
			mt.M.Defeat(n)
		}
	}
}

// Run drives the tick loop at Cfg.TickInterval until ctx is cancelled,
// applying buffered commands at the start of every tick and invoking
// onTick with each tick's output (spec.md §5 "Scheduling"). onTick may be
// nil.
func (mt *Match) Run(ctx context.Context, onTick func(Output)) {
	tc := time.NewTicker(mt.Cfg.TickInterval)
	defer tc.Stop()
	for {
		select {
		case <-tc.C:
			command.Apply(mt.M, mt.Queue)
			out := mt.Tick()
			if onTick != nil {
				onTick(out)
			}
		case <-ctx.Done():
			return
		}
	}
}
