package graph

// ============================================================================
// Graph Data Model
// ============================================================================

// Entity represents a notable figure in the graph
type Entity struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	LocalName       string   `json:"local_name,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	BirthYear       *int     `json:"birth_year,omitempty"`
	DeathYear       *int     `json:"death_year,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Links           []string `json:"links,omitempty"`
	ConnectionCount int      `json:"connection_count"`
	Expanded        bool     `json:"expanded"`
}

// DisplayName returns the localized name when present, the primary name otherwise
func (e *Entity) DisplayName() string {
	if e.LocalName != "" {
		return e.LocalName
	}
	return e.Name
}

// Category is the kind of influence a relationship carries
type Category string

const (
	CategoryMusical       Category = "musical"
	CategoryLyrical       Category = "lyrical"
	CategoryPhilosophical Category = "philosophical"
	CategoryAesthetic     Category = "aesthetic"
	CategoryPersonal      Category = "personal"
)

// Trust is the provenance level of a relationship
type Trust string

const (
	TrustSelfStated Trust = "self_stated"
	TrustExpertDB   Trust = "expert_db"
	TrustWikidata   Trust = "wikidata"
	TrustAcademic   Trust = "academic"
	TrustCommunity  Trust = "community"
)

// trustWeights maps provenance to a rendering-confidence weight
var trustWeights = map[Trust]float64{
	TrustSelfStated: 1.0,
	TrustExpertDB:   0.9,
	TrustWikidata:   0.8,
	TrustAcademic:   0.7,
	TrustCommunity:  0.5,
}

// Weight returns the rendering-confidence weight for a trust level
func (t Trust) Weight() float64 {
	if w, ok := trustWeights[t]; ok {
		return w
	}
	return 0.5
}

// Relationship is a directed, categorized, trust-weighted edge
type Relationship struct {
	SourceID string   `json:"source"`
	TargetID string   `json:"target"`
	Category Category `json:"category"`
	Trust    Trust    `json:"trust"`
}

// Key returns the directed-pair key this edge is stored under.
// Edges are keyed by the pair alone: a second relationship with a
// different category for an already-present direction is dropped.
// This mirrors the upstream persistence model deliberately.
func (r Relationship) Key() string {
	return EdgeKey(r.SourceID, r.TargetID)
}

// EdgeKey builds the directed-pair key for (source, target)
func EdgeKey(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}

// ============================================================================
// Visibility Classes
// ============================================================================

// NodeClass is the render-state assigned to a node by classification
type NodeClass string

const (
	NodeFocus     NodeClass = "focus"
	NodeNeighbor  NodeClass = "neighbor"
	NodeHidden    NodeClass = "hidden"
	NodeDimmed    NodeClass = "dimmed"
	NodeHighlight NodeClass = "highlight"
	NodePathStart NodeClass = "path-start"
	NodePathEnd   NodeClass = "path-end"
)

// EdgeClass is the render-state assigned to an edge by classification
type EdgeClass string

const (
	EdgeVisible   EdgeClass = "visible"
	EdgeDimmed    EdgeClass = "dimmed"
	EdgeHidden    EdgeClass = "hidden"
	EdgeHighlight EdgeClass = "highlight"
)
