package explorer

import (
	"influence-atlas/backend/internal/graph"
)

// ============================================================================
// Path Finder
// ============================================================================

// PathResult is an unweighted shortest path through the loaded subgraph
type PathResult struct {
	NodeIDs  []string
	EdgeKeys []string
}

// FindPath computes a minimum-hop path between two loaded nodes, treating
// every edge as undirected. Returns ok=false when either endpoint is
// absent from the loaded subgraph or no path exists. Only hop count is
// minimized; edge weights play no part.
func FindPath(g *graph.Store, startID, endID string) (*PathResult, bool) {
	if startID == endID {
		return nil, false
	}
	if !g.HasNode(startID) || !g.HasNode(endID) {
		return nil, false
	}

	// Undirected adjacency keyed to the stored edge for reconstruction
	type hop struct {
		neighbor string
		edgeKey  string
	}
	adjacency := make(map[string][]hop)
	for _, rel := range g.Edges() {
		key := rel.Key()
		adjacency[rel.SourceID] = append(adjacency[rel.SourceID], hop{rel.TargetID, key})
		adjacency[rel.TargetID] = append(adjacency[rel.TargetID], hop{rel.SourceID, key})
	}

	type cameFrom struct {
		prev    string
		edgeKey string
	}
	visited := map[string]cameFrom{startID: {}}
	queue := []string{startID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == endID {
			// Walk the breadcrumbs back to the start
			var nodes []string
			var edges []string
			for at := endID; ; {
				nodes = append([]string{at}, nodes...)
				if at == startID {
					break
				}
				step := visited[at]
				edges = append([]string{step.edgeKey}, edges...)
				at = step.prev
			}
			return &PathResult{NodeIDs: nodes, EdgeKeys: edges}, true
		}
		for _, h := range adjacency[current] {
			if _, seen := visited[h.neighbor]; seen {
				continue
			}
			visited[h.neighbor] = cameFrom{prev: current, edgeKey: h.edgeKey}
			queue = append(queue, h.neighbor)
		}
	}

	return nil, false
}

// ClassifyPath assigns highlight classes to every element on the path
// and dims everything else. The endpoints are additionally marked
// path-start and path-end.
func ClassifyPath(g *graph.Store, path *PathResult) Classification {
	c := Classification{
		Nodes: make(map[string]graph.NodeClass),
		Edges: make(map[string]graph.EdgeClass),
	}

	onPath := make(map[string]bool, len(path.NodeIDs))
	for _, id := range path.NodeIDs {
		onPath[id] = true
	}
	onPathEdge := make(map[string]bool, len(path.EdgeKeys))
	for _, key := range path.EdgeKeys {
		onPathEdge[key] = true
	}

	for _, n := range g.Nodes() {
		if onPath[n.ID] {
			c.Nodes[n.ID] = graph.NodeHighlight
		} else {
			c.Nodes[n.ID] = graph.NodeDimmed
		}
	}
	c.Nodes[path.NodeIDs[0]] = graph.NodePathStart
	c.Nodes[path.NodeIDs[len(path.NodeIDs)-1]] = graph.NodePathEnd

	for _, rel := range g.Edges() {
		key := rel.Key()
		if onPathEdge[key] {
			c.Edges[key] = graph.EdgeHighlight
		} else {
			c.Edges[key] = graph.EdgeDimmed
		}
	}

	return c
}
