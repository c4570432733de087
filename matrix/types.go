package matrix

import "github.com/google/uuid"

// Unowned is the ownership value of a cell with no claiming nation
// (spec.md §3.1).
const Unowned int8 = -1

// CityType distinguishes the structure types a nation may build (spec.md
// §3.4).
type CityType uint8

const (
	CityTown CityType = iota
	CityTower
	CityCapital
)

// City is a single structure owned by a nation.
type City struct {
	X, Y int
	Name string
	Type CityType
}

// Point is a waypoint cell coordinate along an Arrow's path (spec.md §3.4).
type Point struct {
	X, Y int
}

// Arrow is a player-directed attack order driving frontal combat along a
// corridor (spec.md §3.4, GLOSSARY "Arrow").
type Arrow struct {
	ID ID

	Path         []Point
	CurrentIndex int
	HeadX, HeadY float64

	// Percent is the commitment fraction in (0,1].
	Percent float64
	// CorridorHalfWidth is the corridor half-width in cells, default 4.
	CorridorHalfWidth float64

	// Phase and OpposingForces are book-keeping fields consumed by the
	// combat resolver and reported back to clients.
	Phase           ArrowPhase
	OpposingForces  float64
	Cleared         bool
}

// ID is a stable identifier for an Arrow, used so commands can reference an
// in-flight order (reinforceArrow, retreatArrow, clearArrow).
type ID = uuid.UUID

// NewArrowID returns a fresh, random Arrow identifier.
func NewArrowID() ID { return uuid.New() }

// ParseArrowID parses the textual form of an Arrow ID, as issued by command
// sources that reference an in-flight order (e.g. the console).
func ParseArrowID(s string) (ID, error) { return uuid.Parse(s) }

// ArrowPhase tracks the lifecycle of an in-flight arrow order.
type ArrowPhase uint8

const (
	ArrowAdvancing ArrowPhase = iota
	ArrowRetreating
	ArrowCleared
)

// NationStatus is the lifecycle state of a nation (spec.md §3.4).
type NationStatus uint8

const (
	StatusActive NationStatus = iota
	StatusDefeated
)

// Nation holds the per-nation bookkeeping that lives outside the dense
// matrix layers (spec.md §3.4).
type Nation struct {
	Owner string

	Population  float64
	TroopCount  float64
	TroopTarget float32

	Cities []City
	Arrows []*Arrow

	Status NationStatus
}

// BBox is the monotonically-grown bounding box of a nation's owned cells
// (spec.md §3.5). It is grown on every claim and marked Dirty on loss so
// shrinkage can be computed lazily.
type BBox struct {
	MinX, MaxX, MinY, MaxY int
	Dirty                  bool
}

// Empty reports whether the bbox has never contained a cell.
func (b BBox) Empty() bool { return b.MinX > b.MaxX || b.MinY > b.MaxY }

func emptyBBox() BBox {
	return BBox{MinX: 1, MaxX: 0, MinY: 1, MaxY: 0}
}

func (b *BBox) grow(x, y int) {
	if b.Empty() {
		b.MinX, b.MaxX, b.MinY, b.MaxY = x, x, y, y
		return
	}
	if x < b.MinX {
		b.MinX = x
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if y > b.MaxY {
		b.MaxY = y
	}
}

// Expanded returns a copy of the bbox grown by margin cells in every
// direction and clamped to [0,w) x [0,h).
func (b BBox) Expanded(margin, w, h int) BBox {
	if b.Empty() {
		return b
	}
	out := BBox{
		MinX: max(0, b.MinX-margin),
		MaxX: min(w-1, b.MaxX+margin),
		MinY: max(0, b.MinY-margin),
		MaxY: min(h-1, b.MaxY+margin),
	}
	return out
}
