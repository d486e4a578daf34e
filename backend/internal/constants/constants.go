package constants

import "time"

// Explorer constants
const (
	// DefaultFilterLevel is the semantic-zoom level assigned to a new focus
	DefaultFilterLevel = 0.5

	// DefaultFilterStep is the level delta applied per zoom gesture
	DefaultFilterStep = 0.1

	// UnboundedLevel is the level at and above which every downstream
	// neighbor is visible
	UnboundedLevel = 0.95

	// DefaultVisibleFloor is the downstream neighbor count shown at level 0
	DefaultVisibleFloor = 3

	// DefaultVisibleRamp is the additional neighbor count revealed across
	// the level range below UnboundedLevel
	DefaultVisibleRamp = 20
)

// Timing constants
const (
	// DebounceWindow coalesces rapid reclassification and re-center triggers
	DebounceWindow = 120 * time.Millisecond

	// RecenterDelay defers the viewport re-center after a layout pass
	RecenterDelay = 150 * time.Millisecond

	// CacheTTL is the entity cache entry lifetime
	CacheTTL = 5 * time.Minute
)

// Layout constants
const (
	// RowGap is the vertical distance between the focus row and a neighbor row
	RowGap = 140.0

	// ColumnGap is the horizontal distance between neighbors on a row
	ColumnGap = 90.0

	// ZoomEpsilon is the tolerance applied before correcting zoom drift
	ZoomEpsilon = 0.001
)
