// Package metrics tracks tick-rate health for a running match, grounded in
// the teacher's own TPS sampling (atomic.Uint64 storing math.Float64bits, a
// rolling sample window, a below-threshold check).
package metrics

import (
	"math"
	"sync/atomic"
)

const (
	sampleSize        = 20
	warnThresholdHz   = 8.0 // in tenths: warn below 80% of the configured tick rate
)

// Snapshot is a point-in-time read of a Tracker's counters.
type Snapshot struct {
	TicksProcessed uint64
	TPS            float64
	AvgTickNanos   int64
}

// Tracker accumulates tick durations and exposes a lock-free Snapshot, safe
// to read from any goroutine while the tick loop writes to it.
type Tracker struct {
	ticksProcessed atomic.Uint64
	tpsBits        atomic.Uint64
	avgNanos       atomic.Int64

	sumNanos   int64
	sampleN    int
}

// NewTracker returns a zero-valued Tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Record folds one tick's wall-clock duration into the rolling sample. It
// must only be called from the single tick-owning goroutine.
func (t *Tracker) Record(tickNanos int64) {
	t.ticksProcessed.Add(1)
	if tickNanos <= 0 {
		return
	}
	t.sumNanos += tickNanos
	t.sampleN++
	if t.sampleN < sampleSize {
		return
	}
	avg := t.sumNanos / int64(t.sampleN)
	t.avgNanos.Store(avg)
	if avg > 0 {
		tps := 1.0 / (float64(avg) / 1e9)
		t.tpsBits.Store(math.Float64bits(tps))
	} else {
		t.tpsBits.Store(0)
	}
	t.sumNanos = 0
	t.sampleN = 0
}

// TPS returns the most recently computed ticks-per-second figure.
func (t *Tracker) TPS() float64 { return math.Float64frombits(t.tpsBits.Load()) }

// Below reports whether the current TPS has dropped below the given
// configured rate's warning threshold. Below keeps no state: the tick loop
// logs a warning on every tick for which it reports true, not once per
// below-threshold excursion.
func (t *Tracker) Below(configuredHz float64) bool {
	tps := t.TPS()
	if tps <= 0 {
		return false
	}
	threshold := configuredHz * (warnThresholdHz / 10)
	return tps < threshold
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		TicksProcessed: t.ticksProcessed.Load(),
		TPS:            t.TPS(),
		AvgTickNanos:   t.avgNanos.Load(),
	}
}
