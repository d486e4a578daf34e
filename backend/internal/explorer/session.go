// Package explorer implements the graph interaction engine: lazy
// neighborhood expansion with caching, the semantic-zoom visibility
// classifier, placement policy with viewport stability, the interaction
// state machine, and the unweighted path finder.
package explorer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"influence-atlas/backend/internal/cache"
	"influence-atlas/backend/internal/constants"
	"influence-atlas/backend/internal/graph"
	"influence-atlas/backend/pkg/logger"
)

// Mode is the interaction state
type Mode string

const (
	ModeIdle             Mode = "idle"
	ModeFocused          Mode = "focused"
	ModePathWaitingStart Mode = "path-waiting-start"
	ModePathWaitingEnd   Mode = "path-waiting-end"
)

// Error kinds published through Events.OnError
const (
	ErrorKindNotFound  = "not_found"
	ErrorKindTransport = "transport"
)

// Events are the callbacks exposed to the surrounding UI layer.
// Any callback may be nil.
type Events struct {
	OnFocusChanged   func(*graph.Entity)
	OnPathResult     func([]string)
	OnLoadingChanged func(bool)
	OnError          func(kind string)
}

// Config is the tuning surface consumed from callers
type Config struct {
	DefaultLevel float64
	FilterStep   float64
	Curve        CurveParams
	Debounce     time.Duration
	CacheTTL     time.Duration
}

// DefaultConfig returns the standard explorer configuration
func DefaultConfig() Config {
	return Config{
		DefaultLevel: constants.DefaultFilterLevel,
		FilterStep:   constants.DefaultFilterStep,
		Curve:        DefaultCurve(),
		Debounce:     constants.DebounceWindow,
		CacheTTL:     constants.CacheTTL,
	}
}

// Session owns one exploration: the materialized graph, its cache, the
// expansion record, the viewport, and the interaction mode. All state
// mutations are serialized behind a single mutex; the store fetches
// themselves run outside it.
type Session struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	store  EntityStore
	graph  *graph.Store
	cache  *cache.Cache
	loader *Loader
	layout *Coordinator

	reclassify *Debouncer
	recenter   *Debouncer
	events     Events

	mode      Mode
	focusID   string
	level     float64
	pathStart string

	// generation rises on every root/focus change; expansion completions
	// carrying an older generation are discarded
	generation uint64

	class        Classification
	visibleNodes int
}

// NewSession creates a session over the given collaborator store
func NewSession(es EntityStore, cfg Config, events Events, sched Scheduler) *Session {
	g := graph.NewStore()
	c := cache.New()
	return &Session{
		cfg:        cfg,
		log:        logger.Get(),
		store:      es,
		graph:      g,
		cache:      c,
		loader:     NewLoader(es, c, g, cfg.CacheTTL),
		layout:     NewCoordinator(),
		reclassify: NewDebouncer(sched, cfg.Debounce),
		recenter:   NewDebouncer(sched, constants.RecenterDelay),
		events:     events,
		mode:       ModeIdle,
		level:      cfg.DefaultLevel,
	}
}

// Close tears the session down: pending timers are cancelled and the
// cache is dropped
func (s *Session) Close() {
	s.reclassify.Stop()
	s.recenter.Stop()
	s.cache.Clear()
}

// Graph exposes the session's graph store
func (s *Session) Graph() *graph.Store {
	return s.graph
}

// Mode returns the current interaction mode
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// FocusID returns the current focus entity id, empty when none
func (s *Session) FocusID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusID
}

// Level returns the current filter level
func (s *Session) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Classification returns the current visibility assignment
func (s *Session) Classification() Classification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.class
}

// VisibleNodeCount returns the node count of the last classification
func (s *Session) VisibleNodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleNodes
}

// ZoomLocked reports whether user zoom gestures are currently disabled
func (s *Session) ZoomLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode == ModeFocused
}

// HandleZoomChanged observes a renderer-reported zoom value. While a
// focus is active any drift is corrected back to the locked value.
// Returns true when a correction was applied.
func (s *Session) HandleZoomChanged(zoom float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.HandleZoomChanged(zoom)
}

// Viewport returns the current pan/zoom state
func (s *Session) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.Viewport()
}

// refreshLocked runs the post-merge pipeline: placement for new
// elements, degree recomputation, and reclassification when a focus is
// active. Runs before any caller-visible done signal. Caller holds mu.
func (s *Session) refreshLocked(grew bool) {
	if grew && s.focusID != "" {
		up, down := s.placementRows()
		s.layout.Arrange(s.focusID, up, down)
	}

	s.graph.RecomputeDegrees()

	if s.mode == ModeFocused && s.focusID != "" {
		s.class = Classify(s.graph, s.focusID, s.level, s.cfg.Curve)
		s.visibleNodes = s.class.VisibleNodeCount()
	}

	s.requestRecenterLocked()
}

// requestRecenterLocked schedules the coalesced deferred re-center.
// The callback re-acquires the session lock when it fires.
func (s *Session) requestRecenterLocked() {
	s.recenter.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.layout.RecenterOn(s.visibleIDsLocked())
	})
}

// placementRows splits the focus neighborhood into the row above
// (upstream) and the row below (filtered downstream). Caller holds mu.
func (s *Session) placementRows() (up, down []string) {
	pre := Classify(s.graph, s.focusID, s.level, s.cfg.Curve)
	upstream := s.graph.UpstreamIDs(s.focusID)
	for _, n := range s.graph.Neighborhood(s.focusID) {
		if upstream[n.ID] {
			up = append(up, n.ID)
			continue
		}
		if pre.Nodes[n.ID] == graph.NodeNeighbor {
			down = append(down, n.ID)
		}
	}
	return up, down
}

// visibleIDsLocked lists the node ids the deferred re-center should
// frame. Caller holds mu.
func (s *Session) visibleIDsLocked() []string {
	if s.class.IsEmpty() {
		ids := make([]string, 0, s.graph.NodeCount())
		for _, n := range s.graph.Nodes() {
			ids = append(ids, n.ID)
		}
		return ids
	}

	var ids []string
	for id, class := range s.class.Nodes {
		switch class {
		case graph.NodeFocus, graph.NodeNeighbor, graph.NodeHighlight, graph.NodePathStart, graph.NodePathEnd:
			ids = append(ids, id)
		}
	}
	return ids
}

// Nil-safe event emitters. Callbacks run without the session lock held.

func (s *Session) emitFocusChanged(e *graph.Entity) {
	if s.events.OnFocusChanged != nil {
		s.events.OnFocusChanged(e)
	}
}

func (s *Session) emitPathResult(nodeIDs []string) {
	if s.events.OnPathResult != nil {
		s.events.OnPathResult(nodeIDs)
	}
}

func (s *Session) emitLoading(loading bool) {
	if s.events.OnLoadingChanged != nil {
		s.events.OnLoadingChanged(loading)
	}
}

func (s *Session) emitError(kind string) {
	if s.events.OnError != nil {
		s.events.OnError(kind)
	}
}
