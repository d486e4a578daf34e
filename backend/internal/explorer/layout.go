package explorer

import (
	"math"

	"go.uber.org/zap"

	"influence-atlas/backend/internal/constants"
	"influence-atlas/backend/pkg/logger"
)

// ============================================================================
// Layout Coordinator
// ============================================================================

// Point is an abstract layout position. The rendering layer owns pixels;
// this is only the placement policy.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the pan/zoom state the renderer mirrors
type Viewport struct {
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
	Zoom float64 `json:"zoom"`
}

// Coordinator arranges newly added elements and keeps the viewport
// stable across placement passes. It carries no locking of its own: the
// owning session serializes every call behind its mutex, so at most one
// placement pass runs at a time.
type Coordinator struct {
	positions map[string]Point
	rowGap    float64
	colGap    float64

	viewport   Viewport
	zoomLocked bool
	lockedZoom float64

	log *zap.Logger
}

// NewCoordinator creates a layout coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{
		positions: make(map[string]Point),
		rowGap:    constants.RowGap,
		colGap:    constants.ColumnGap,
		viewport:  Viewport{Zoom: 1.0},
		log:       logger.Get(),
	}
}

// Arrange places the focus neighborhood: upstream neighbors on a row
// above the focus, downstream neighbors on a row below, both arranged
// center-outward and anchored at the focus node's current position.
// Nodes that already have a position keep it, so repeated filtering does
// not make visible nodes jump.
func (c *Coordinator) Arrange(focusID string, upstream, downstream []string) {
	anchor, ok := c.positions[focusID]
	if !ok {
		anchor = Point{}
		c.positions[focusID] = anchor
	}

	c.placeRow(upstream, anchor.X, anchor.Y-c.rowGap)
	c.placeRow(downstream, anchor.X, anchor.Y+c.rowGap)

	c.log.Debug("Placement pass completed",
		zap.String("focus", focusID),
		zap.Int("upstream", len(upstream)),
		zap.Int("downstream", len(downstream)),
	)
}

// placeRow assigns positions center-outward: first element centered,
// subsequent elements alternating right/left at increasing offsets.
// Already-placed nodes are skipped.
func (c *Coordinator) placeRow(ids []string, centerX, y float64) {
	slot := 0
	for _, id := range ids {
		if _, ok := c.positions[id]; ok {
			continue
		}
		c.positions[id] = Point{X: centerX + rowOffset(slot)*c.colGap, Y: y}
		slot++
	}
}

// rowOffset maps slot index 0,1,2,3,4... to offsets 0,+1,-1,+2,-2...
func rowOffset(slot int) float64 {
	if slot == 0 {
		return 0
	}
	magnitude := float64((slot + 1) / 2)
	if slot%2 == 1 {
		return magnitude
	}
	return -magnitude
}

// Position returns the placed position for a node, if any
func (c *Coordinator) Position(id string) (Point, bool) {
	p, ok := c.positions[id]
	return p, ok
}

// HasPosition reports whether the node has been placed
func (c *Coordinator) HasPosition(id string) bool {
	_, ok := c.positions[id]
	return ok
}

// RecenterOn centers the viewport pan on the bounding box of the given
// nodes. The session defers and coalesces calls to this through its
// scheduler so rapid repeated triggers produce a single re-center.
func (c *Coordinator) RecenterOn(ids []string) {
	if len(ids) == 0 {
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false
	for _, id := range ids {
		p, ok := c.positions[id]
		if !ok {
			continue
		}
		found = true
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	if !found {
		return
	}

	c.viewport.PanX = (minX + maxX) / 2
	c.viewport.PanY = (minY + maxY) / 2
}

// ============================================================================
// Viewport Stability
// ============================================================================

// LockZoom freezes the current zoom value. While locked, zoom changes not
// attributable to a user filter-level change are corrected back.
func (c *Coordinator) LockZoom() {
	c.zoomLocked = true
	c.lockedZoom = c.viewport.Zoom
}

// UnlockZoom re-enables user-driven zoom
func (c *Coordinator) UnlockZoom() {
	c.zoomLocked = false
}

// SetUserZoom applies a user-initiated zoom. Ignored while locked.
func (c *Coordinator) SetUserZoom(zoom float64) bool {
	if c.zoomLocked {
		return false
	}
	c.viewport.Zoom = zoom
	return true
}

// HandleZoomChanged observes a zoom value reported by the renderer and
// corrects drift back to the locked value. The epsilon tolerance keeps
// the clamp from oscillating on rounding noise. Returns true when a
// correction was applied.
func (c *Coordinator) HandleZoomChanged(zoom float64) bool {
	if !c.zoomLocked {
		c.viewport.Zoom = zoom
		return false
	}
	if math.Abs(zoom-c.lockedZoom) <= constants.ZoomEpsilon {
		return false
	}
	c.viewport.Zoom = c.lockedZoom
	return true
}

// Viewport returns the current pan/zoom state
func (c *Coordinator) Viewport() Viewport {
	return c.viewport
}
