// Package command implements the buffered command surface of spec.md §6:
// player-issued orders are queued as they arrive and drained once, at the
// start of the next tick, by the match orchestrator.
package command

import (
	"sync"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

// Kind identifies which command a Command carries.
type Kind uint8

const (
	FoundNation Kind = iota
	BuildCity
	IssueAttack
	ReinforceArrow
	RetreatArrow
	ClearArrow
)

// Command is one buffered player order (spec.md §6 "Command surface").
// Only the fields relevant to Kind are populated by the issuer.
type Command struct {
	Kind  Kind
	Owner string

	// foundNation / buildCity
	X, Y int
	Name string
	Type matrix.CityType

	// issueAttack
	Path              []matrix.Point
	Percent           float64
	CorridorHalfWidth float64

	// reinforceArrow / retreatArrow / clearArrow
	ArrowID matrix.ID
	// ArrowType is clearArrow's type discriminator (spec.md §6); the engine
	// currently models a single arrow kind, so Apply accepts any value.
	ArrowType string
	// PercentDelta is reinforceArrow's commitment adjustment.
	PercentDelta float64

	// Result, if non-nil, is sent the outcome of applying this command
	// (nil on success). Issuers that don't care may leave it nil.
	Result chan<- error
}

// Queue buffers commands between ticks. Safe for concurrent Push from
// multiple goroutines (e.g. network handlers); Drain is intended to be
// called by the single tick-owning goroutine only (spec.md §5).
type Queue struct {
	mu      sync.Mutex
	pending []Command
}

// NewQueue returns an empty command queue.
func NewQueue() *Queue { return &Queue{} }

// Push enqueues a command to be applied at the start of the next tick.
func (q *Queue) Push(c Command) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

// Drain removes and returns every buffered command, in arrival order.
func (q *Queue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}
