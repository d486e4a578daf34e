// Package graph provides the in-memory directed graph of figures and
// influence relationships materialized during an exploration session.
// It is independent of any rendering library; the renderer consumes a
// read-only snapshot built elsewhere.
package graph

import "sync"

// Store is the authoritative in-memory collection of nodes and directed
// edges. Nodes and edges are deduplicated on insert and enumerated in
// insertion order so that downstream tie-breaking is deterministic.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]*Entity
	nodeOrder []string
	edges     map[string]Relationship
	edgeOrder []string
}

// NewStore creates an empty graph store
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*Entity),
		edges: make(map[string]Relationship),
	}
}

// AddEntity inserts a node if its id is not already present.
// New entities start marked as not yet expanded unless they are the
// expansion target itself. Returns true if the node was inserted.
func (s *Store) AddEntity(e *Entity, isRoot bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[e.ID]; ok {
		return false
	}

	n := *e
	n.ConnectionCount = 1
	n.Expanded = isRoot
	s.nodes[e.ID] = &n
	s.nodeOrder = append(s.nodeOrder, e.ID)
	return true
}

// AddRelationship inserts a directed edge unless the directed pair already
// has one. First-seen category/trust wins for a given direction; a later
// relationship for the same pair with a different category is dropped.
// Returns true if the edge was inserted.
func (s *Store) AddRelationship(rel Relationship) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rel.Key()
	if _, ok := s.edges[key]; ok {
		return false
	}
	s.edges[key] = rel
	s.edgeOrder = append(s.edgeOrder, key)
	return true
}

// Node returns a copy of the entity with the given id, or nil.
// Accessors never hand out pointers into the store; all mutation goes
// through Store methods, so reads stay serialized with writes.
func (s *Store) Node(id string) *Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyNode(id)
}

// copyNode detaches an entity from the store. Caller holds a lock.
func (s *Store) copyNode(id string) *Entity {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	out := *n
	return &out
}

// HasNode reports whether an entity with the given id is loaded
func (s *Store) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Nodes returns copies of all entities in insertion order
func (s *Store) Nodes() []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entity, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.copyNode(id))
	}
	return out
}

// Edges returns all relationships in insertion order
func (s *Store) Edges() []Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Relationship, 0, len(s.edgeOrder))
	for _, key := range s.edgeOrder {
		out = append(out, s.edges[key])
	}
	return out
}

// Neighborhood returns the entities connected to id by any edge in either
// direction, deduplicated, in edge insertion order. The order is the
// "natural enumeration order" used to break classification ties.
func (s *Store) Neighborhood(id string) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []*Entity
	for _, key := range s.edgeOrder {
		rel := s.edges[key]
		var other string
		switch {
		case rel.SourceID == id:
			other = rel.TargetID
		case rel.TargetID == id:
			other = rel.SourceID
		default:
			continue
		}
		if seen[other] || other == id {
			continue
		}
		seen[other] = true
		if n := s.copyNode(other); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// UpstreamIDs returns the ids of neighbors that have an edge into id
func (s *Store) UpstreamIDs(id string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	up := make(map[string]bool)
	for _, rel := range s.edges {
		if rel.TargetID == id && rel.SourceID != id {
			up[rel.SourceID] = true
		}
	}
	return up
}

// RecomputeDegrees sets every node's connection count to its current
// degree. Called after every structural batch.
func (s *Store) RecomputeDegrees() {
	s.mu.Lock()
	defer s.mu.Unlock()

	degrees := make(map[string]int, len(s.nodes))
	for _, rel := range s.edges {
		degrees[rel.SourceID]++
		degrees[rel.TargetID]++
	}
	for id, n := range s.nodes {
		n.ConnectionCount = degrees[id]
	}
}

// MarkExpanded flags an already-loaded entity as fully expanded
func (s *Store) MarkExpanded(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.Expanded = true
	}
}

// NodeCount returns the number of loaded entities
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of loaded relationships
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}
