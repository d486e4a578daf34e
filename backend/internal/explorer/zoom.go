package explorer

import (
	"sort"

	"influence-atlas/backend/internal/constants"
	"influence-atlas/backend/internal/graph"
)

// ============================================================================
// Semantic Zoom Classifier
// ============================================================================

// Unbounded is returned by VisibleCount when every downstream neighbor
// should be visible
const Unbounded = -1

// CurveParams configures the level-to-count curve
type CurveParams struct {
	Floor int // Downstream neighbors visible at level 0
	Ramp  int // Additional neighbors revealed across the level range
}

// DefaultCurve returns the standard visible-count curve
func DefaultCurve() CurveParams {
	return CurveParams{
		Floor: constants.DefaultVisibleFloor,
		Ramp:  constants.DefaultVisibleRamp,
	}
}

// VisibleCount maps a filter level in [0,1] to the maximum number of
// visible downstream neighbors. The function is monotonically
// non-decreasing; at and above the unbounded threshold it returns
// Unbounded. VisibleCount(0) equals the configured floor (3 by default).
func VisibleCount(level float64, curve CurveParams) int {
	if level < 0 {
		level = 0
	}
	if level >= constants.UnboundedLevel {
		return Unbounded
	}
	return curve.Floor + int(level*float64(curve.Ramp))
}

// Classification is the visibility assignment produced by a single
// classifier run. It carries no other state; re-running classification
// replaces it wholesale.
type Classification struct {
	Nodes map[string]graph.NodeClass
	Edges map[string]graph.EdgeClass
}

// Classify partitions all currently loaded nodes and edges into
// visibility classes for the given focus and filter level.
//
// The focus neighborhood is split before any filtering: neighbors with an
// edge into the focus ("upstream") are always fully visible; the rest
// ("downstream") are sorted descending by connection count, ties broken
// by the neighborhood's enumeration order, and truncated to
// VisibleCount(level). Everything else in the graph is dimmed.
// Classification is idempotent and side-effect-free.
func Classify(g *graph.Store, focusID string, level float64, curve CurveParams) Classification {
	c := Classification{
		Nodes: make(map[string]graph.NodeClass),
		Edges: make(map[string]graph.EdgeClass),
	}

	neighborhood := g.Neighborhood(focusID)
	upstream := g.UpstreamIDs(focusID)

	var downstream []*graph.Entity
	visible := map[string]bool{focusID: true}
	for _, n := range neighborhood {
		if upstream[n.ID] {
			visible[n.ID] = true
			continue
		}
		downstream = append(downstream, n)
	}

	// Stable sort keeps neighborhood enumeration order for equal degrees
	sort.SliceStable(downstream, func(i, j int) bool {
		return downstream[i].ConnectionCount > downstream[j].ConnectionCount
	})

	maxVisible := VisibleCount(level, curve)
	hidden := make(map[string]bool)
	for i, n := range downstream {
		if maxVisible == Unbounded || i < maxVisible {
			visible[n.ID] = true
		} else {
			hidden[n.ID] = true
		}
	}

	for _, n := range g.Nodes() {
		switch {
		case n.ID == focusID:
			c.Nodes[n.ID] = graph.NodeFocus
		case hidden[n.ID]:
			c.Nodes[n.ID] = graph.NodeHidden
		case visible[n.ID]:
			c.Nodes[n.ID] = graph.NodeNeighbor
		default:
			c.Nodes[n.ID] = graph.NodeDimmed
		}
	}

	for _, rel := range g.Edges() {
		key := rel.Key()
		switch {
		case hidden[rel.SourceID] || hidden[rel.TargetID]:
			c.Edges[key] = graph.EdgeHidden
		case visible[rel.SourceID] && visible[rel.TargetID]:
			c.Edges[key] = graph.EdgeVisible
		default:
			c.Edges[key] = graph.EdgeDimmed
		}
	}

	return c
}

// VisibleNodeCount returns the number of nodes classed focus or neighbor
func (c Classification) VisibleNodeCount() int {
	count := 0
	for _, class := range c.Nodes {
		if class == graph.NodeFocus || class == graph.NodeNeighbor {
			count++
		}
	}
	return count
}

// IsEmpty reports whether no classification is in effect
func (c Classification) IsEmpty() bool {
	return len(c.Nodes) == 0 && len(c.Edges) == 0
}
