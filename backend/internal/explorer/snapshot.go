package explorer

import (
	"context"

	"influence-atlas/backend/internal/graph"
)

// ============================================================================
// Read Model
// ============================================================================

// NodeView is the render-ready projection of a loaded entity
type NodeView struct {
	ID              string          `json:"id"`
	DisplayLabel    string          `json:"display_label"`
	Attributes      graph.Entity    `json:"attributes"`
	Position        Point           `json:"position"`
	VisibilityClass graph.NodeClass `json:"visibility_class,omitempty"`
}

// EdgeView is the render-ready projection of a loaded relationship
type EdgeView struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Target          string          `json:"target"`
	Category        graph.Category  `json:"category"`
	Trust           graph.Trust     `json:"trust"`
	Weight          float64         `json:"weight"`
	VisibilityClass graph.EdgeClass `json:"visibility_class,omitempty"`
}

// ReadModel is the read-only snapshot the UI layer consumes
type ReadModel struct {
	Nodes        []NodeView `json:"nodes"`
	Edges        []EdgeView `json:"edges"`
	Mode         Mode       `json:"mode"`
	FocusID      string     `json:"focus_id,omitempty"`
	Level        float64    `json:"level"`
	VisibleNodes int        `json:"visible_nodes"`
	Viewport     Viewport   `json:"viewport"`
	ZoomLocked   bool       `json:"zoom_locked"`
}

// Snapshot builds the current read model. The snapshot is detached from
// session state; mutating it has no effect on the graph.
func (s *Session) Snapshot() ReadModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm := ReadModel{
		Mode:         s.mode,
		FocusID:      s.focusID,
		Level:        s.level,
		VisibleNodes: s.visibleNodes,
		Viewport:     s.layout.Viewport(),
		ZoomLocked:   s.mode == ModeFocused,
	}

	for _, n := range s.graph.Nodes() {
		pos, _ := s.layout.Position(n.ID)
		rm.Nodes = append(rm.Nodes, NodeView{
			ID:              n.ID,
			DisplayLabel:    n.DisplayName(),
			Attributes:      *n,
			Position:        pos,
			VisibilityClass: s.class.Nodes[n.ID],
		})
	}

	for _, rel := range s.graph.Edges() {
		key := rel.Key()
		rm.Edges = append(rm.Edges, EdgeView{
			ID:              key,
			Source:          rel.SourceID,
			Target:          rel.TargetID,
			Category:        rel.Category,
			Trust:           rel.Trust,
			Weight:          rel.Trust.Weight(),
			VisibilityClass: s.class.Edges[key],
		})
	}

	return rm
}

// Search passes a name query through to the collaborator store. Consumed
// only as a selection source for the UI.
func (s *Session) Search(ctx context.Context, text string, limit int) ([]graph.Entity, error) {
	return s.store.SearchEntities(ctx, text, limit)
}
