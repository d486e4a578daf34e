package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"influence-atlas/backend/internal/graph"
	apperrors "influence-atlas/backend/pkg/errors"
)

// eventRecorder captures every callback a session emits
type eventRecorder struct {
	mu      sync.Mutex
	focus   []*graph.Entity
	paths   [][]string
	loading []bool
	errs    []string
}

func (r *eventRecorder) events() Events {
	return Events{
		OnFocusChanged: func(e *graph.Entity) {
			r.mu.Lock()
			r.focus = append(r.focus, e)
			r.mu.Unlock()
		},
		OnPathResult: func(ids []string) {
			r.mu.Lock()
			r.paths = append(r.paths, ids)
			r.mu.Unlock()
		},
		OnLoadingChanged: func(loading bool) {
			r.mu.Lock()
			r.loading = append(r.loading, loading)
			r.mu.Unlock()
		},
		OnError: func(kind string) {
			r.mu.Lock()
			r.errs = append(r.errs, kind)
			r.mu.Unlock()
		},
	}
}

func (r *eventRecorder) focusEvents() []*graph.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*graph.Entity(nil), r.focus...)
}

func (r *eventRecorder) pathEvents() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.paths...)
}

func (r *eventRecorder) loadingEvents() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.loading...)
}

func (r *eventRecorder) errorEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errs...)
}

// wideStore seeds a root with two upstream and twelve downstream
// neighbors
func wideStore() *fakeEntityStore {
	fs := newFakeEntityStore()
	fs.addFigure("root", "Root")
	for i := 1; i <= 2; i++ {
		id := fmt.Sprintf("up%d", i)
		fs.addFigure(id, id)
		fs.addInfluence(id, "root", graph.CategoryMusical, graph.TrustExpertDB)
	}
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("d%02d", i)
		fs.addFigure(id, id)
		fs.addInfluence("root", id, graph.CategoryMusical, graph.TrustCommunity)
	}
	return fs
}

func newSessionAtLevel(t *testing.T, fs *fakeEntityStore, level float64, events Events) (*Session, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	cfg := DefaultConfig()
	cfg.DefaultLevel = level
	s := NewSession(fs, cfg, events, sched)
	t.Cleanup(s.Close)
	return s, sched
}

func TestSelect_SetsFocus(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, gainsbourgStore(), rec.events())

	err := s.Start(context.Background(), "gainsbourg")
	assert.NoError(t, err)

	assert.Equal(t, ModeFocused, s.Mode())
	assert.Equal(t, "gainsbourg", s.FocusID())
	assert.True(t, s.ZoomLocked())
	assert.Equal(t, 5, s.VisibleNodeCount())

	// Exactly one node carries the focus class
	focusCount := 0
	for _, class := range s.Classification().Nodes {
		if class == graph.NodeFocus {
			focusCount++
		}
	}
	assert.Equal(t, 1, focusCount)

	assert.Equal(t, []bool{true, false}, rec.loadingEvents())
	focus := rec.focusEvents()
	if assert.Len(t, focus, 1) {
		assert.Equal(t, "gainsbourg", focus[0].ID)
	}
}

func TestSelect_LevelZeroHidesDownstreamOverflow(t *testing.T) {
	s, _ := newSessionAtLevel(t, wideStore(), 0, Events{})

	err := s.Start(context.Background(), "root")
	assert.NoError(t, err)

	// Floor of 3 downstream plus both upstream plus the focus
	assert.Equal(t, 6, s.VisibleNodeCount())

	c := s.Classification()
	assert.Equal(t, graph.NodeNeighbor, c.Nodes["up1"])
	assert.Equal(t, graph.NodeNeighbor, c.Nodes["up2"])
	assert.Equal(t, graph.NodeNeighbor, c.Nodes["d01"])
	assert.Equal(t, graph.NodeHidden, c.Nodes["d04"])
	assert.Equal(t, graph.NodeHidden, c.Nodes["d12"])
}

func TestAdjustLevel_Debounced(t *testing.T) {
	fs := wideStore()
	s, sched := newSessionAtLevel(t, fs, 0, Events{})

	assert.NoError(t, s.Start(context.Background(), "root"))
	assert.Equal(t, 6, s.VisibleNodeCount())

	// Three rapid steps move the level but reclassify only once the
	// window closes
	s.AdjustLevel(0.05)
	s.AdjustLevel(0.05)
	s.AdjustLevel(0.05)
	assert.InDelta(t, 0.15, s.Level(), 1e-9)
	assert.Equal(t, 6, s.VisibleNodeCount(), "classification waits for the debounce window")

	sched.fire()
	// VisibleCount(0.15) = 3 + 3 downstream
	assert.Equal(t, 9, s.VisibleNodeCount())

	// No re-expansion happened along the way
	assert.Equal(t, 1, fs.entityFetches("root"))
	assert.Equal(t, 1, fs.relationshipFetches("root"))
}

func TestAdjustLevel_RoundTripRestoresAssignment(t *testing.T) {
	s, sched := newSessionAtLevel(t, wideStore(), 0, Events{})
	assert.NoError(t, s.Start(context.Background(), "root"))

	before := s.Classification()

	s.AdjustLevel(1.0)
	sched.fire()
	assert.Equal(t, 15, s.VisibleNodeCount(), "level 1 shows every downstream neighbor")

	s.AdjustLevel(-1.0)
	sched.fire()

	after := s.Classification()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Edges, after.Edges)
}

func TestAdjustLevel_ClampsToRange(t *testing.T) {
	s, _ := newTestSession(t, gainsbourgStore(), Events{})
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	s.AdjustLevel(5.0)
	assert.Equal(t, 1.0, s.Level())

	s.AdjustLevel(-5.0)
	assert.Equal(t, 0.0, s.Level())
}

func TestStepLevel_UsesConfiguredStep(t *testing.T) {
	s, sched := newTestSession(t, gainsbourgStore(), Events{})
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	s.StepLevel(true)
	assert.InDelta(t, 0.6, s.Level(), 1e-9)

	s.StepLevel(false)
	s.StepLevel(false)
	assert.InDelta(t, 0.4, s.Level(), 1e-9)
	sched.fire()
}

func TestAdjustLevel_IgnoredWhenNotFocused(t *testing.T) {
	s, sched := newTestSession(t, gainsbourgStore(), Events{})

	s.AdjustLevel(0.1)
	sched.fire()
	assert.Equal(t, DefaultConfig().DefaultLevel, s.Level())
}

func TestSelect_NotFoundRevertsToIdle(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, newFakeEntityStore(), rec.events())

	err := s.Start(context.Background(), "ghost")
	assert.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	assert.Equal(t, ModeIdle, s.Mode())
	assert.Empty(t, s.FocusID())
	assert.False(t, s.ZoomLocked())
	assert.Equal(t, []bool{true, false}, rec.loadingEvents())
	assert.Equal(t, []string{ErrorKindNotFound}, rec.errorEvents())
}

func TestSelect_TransportErrorSurfaced(t *testing.T) {
	rec := &eventRecorder{}
	fs := gainsbourgStore()
	fs.failEntity("gainsbourg", apperrors.NewTransport("gainsbourg", errors.New("connection reset")))
	s, _ := newTestSession(t, fs, rec.events())

	err := s.Start(context.Background(), "gainsbourg")
	assert.Error(t, err)
	assert.Equal(t, ModeIdle, s.Mode())
	assert.Equal(t, []string{ErrorKindTransport}, rec.errorEvents())
}

func TestSelect_SupersededFetchIsDiscarded(t *testing.T) {
	rec := &eventRecorder{}
	fs := gainsbourgStore()
	fs.addFigure("slow", "Slow Figure")
	release := fs.blockEntity("slow")
	s, _ := newTestSession(t, fs, rec.events())

	done := make(chan error, 1)
	go func() { done <- s.Select(context.Background(), "slow") }()

	assert.Eventually(t, func() bool { return fs.entityFetches("slow") == 1 },
		time.Second, time.Millisecond)

	// A newer selection lands while the first fetch is in flight
	assert.NoError(t, s.Select(context.Background(), "gainsbourg"))
	release()
	assert.NoError(t, <-done)

	assert.Equal(t, "gainsbourg", s.FocusID())
	assert.Equal(t, ModeFocused, s.Mode())

	// Only the winning selection was published
	focus := rec.focusEvents()
	if assert.Len(t, focus, 1) {
		assert.Equal(t, "gainsbourg", focus[0].ID)
	}
}

func TestDismiss_ClearsClassification(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, gainsbourgStore(), rec.events())
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	s.Dismiss()

	assert.Equal(t, ModeIdle, s.Mode())
	assert.Empty(t, s.FocusID())
	assert.True(t, s.Classification().IsEmpty())
	assert.Equal(t, 0, s.VisibleNodeCount())
	assert.False(t, s.ZoomLocked())

	focus := rec.focusEvents()
	if assert.Len(t, focus, 2) {
		assert.Nil(t, focus[1])
	}

	// The graph itself is untouched
	assert.Equal(t, 5, s.Graph().NodeCount())
}

func TestDismiss_WhenIdleIsNoOp(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, gainsbourgStore(), rec.events())

	s.Dismiss()

	assert.Equal(t, ModeIdle, s.Mode())
	assert.Empty(t, rec.focusEvents())
}

func TestTogglePath_ClearsFocus(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, gainsbourgStore(), rec.events())
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	s.TogglePath()

	assert.Equal(t, ModePathWaitingStart, s.Mode())
	assert.Empty(t, s.FocusID())
	assert.True(t, s.Classification().IsEmpty())
	assert.False(t, s.ZoomLocked())

	focus := rec.focusEvents()
	if assert.Len(t, focus, 2) {
		assert.Nil(t, focus[1])
	}
}

func pathStore() *fakeEntityStore {
	fs := newFakeEntityStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		fs.addFigure(id, id)
	}
	fs.addInfluence("a", "b", graph.CategoryMusical, graph.TrustExpertDB)
	fs.addInfluence("b", "d", graph.CategoryMusical, graph.TrustExpertDB)
	fs.addInfluence("a", "c", graph.CategoryLyrical, graph.TrustCommunity)
	return fs
}

func TestPathQuery(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, pathStore(), rec.events())

	s.TogglePath()
	assert.Equal(t, ModePathWaitingStart, s.Mode())

	assert.NoError(t, s.Select(context.Background(), "a"))
	assert.Equal(t, ModePathWaitingEnd, s.Mode())

	assert.NoError(t, s.Select(context.Background(), "d"))

	paths := rec.pathEvents()
	if assert.Len(t, paths, 1) {
		assert.Equal(t, []string{"a", "b", "d"}, paths[0])
	}

	c := s.Classification()
	assert.Equal(t, graph.NodePathStart, c.Nodes["a"])
	assert.Equal(t, graph.NodeHighlight, c.Nodes["b"])
	assert.Equal(t, graph.NodePathEnd, c.Nodes["d"])
	assert.Equal(t, graph.NodeDimmed, c.Nodes["c"])

	// A completed query waits for a fresh start point
	assert.Equal(t, ModePathWaitingStart, s.Mode())
}

func TestPathQuery_NoPathPublishesNil(t *testing.T) {
	rec := &eventRecorder{}
	fs := newFakeEntityStore()
	fs.addFigure("x", "x")
	fs.addFigure("y", "y")
	s, _ := newTestSession(t, fs, rec.events())

	s.TogglePath()
	assert.NoError(t, s.Select(context.Background(), "x"))
	assert.NoError(t, s.Select(context.Background(), "y"))

	paths := rec.pathEvents()
	if assert.Len(t, paths, 1) {
		assert.Nil(t, paths[0])
	}
	assert.True(t, s.Classification().IsEmpty())
}

func TestPathQuery_SameNodeTwice(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, pathStore(), rec.events())

	s.TogglePath()
	assert.NoError(t, s.Select(context.Background(), "a"))
	assert.NoError(t, s.Select(context.Background(), "a"))

	// Still waiting for a distinct end point, no self-path published
	assert.Equal(t, ModePathWaitingEnd, s.Mode())
	assert.Empty(t, rec.pathEvents())
}

func TestTogglePath_ExitClearsHighlights(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, pathStore(), rec.events())

	s.TogglePath()
	assert.NoError(t, s.Select(context.Background(), "a"))
	assert.NoError(t, s.Select(context.Background(), "d"))

	s.TogglePath()

	assert.Equal(t, ModeIdle, s.Mode())
	assert.True(t, s.Classification().IsEmpty())

	paths := rec.pathEvents()
	if assert.Len(t, paths, 2) {
		assert.Nil(t, paths[1], "leaving path mode clears the published path")
	}
}

func TestRetryExpansion_AfterSwallowedFailure(t *testing.T) {
	fs := pathStore()
	fs.failEntity("b", apperrors.NewTransport("b", errors.New("timeout")))
	s, _ := newTestSession(t, fs, Events{})

	s.TogglePath()
	assert.NoError(t, s.Select(context.Background(), "b"), "non-root failure is swallowed")
	assert.False(t, s.Graph().HasNode("b"))

	fs.clearEntityFailure("b")
	assert.NoError(t, s.RetryExpansion(context.Background(), "b"))
	assert.True(t, s.Graph().HasNode("b"))
}

func TestRetryExpansion_RefreshesFocus(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, gainsbourgStore(), rec.events())
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	assert.NoError(t, s.RetryExpansion(context.Background(), "gainsbourg"))

	assert.Equal(t, ModeFocused, s.Mode())
	assert.Equal(t, 5, s.Graph().NodeCount(), "retry of an intact focus changes nothing")
	assert.Len(t, rec.focusEvents(), 2, "the refreshed focus is republished")
}

func TestSession_ZoomCorrectionFollowsFocus(t *testing.T) {
	s, _ := newTestSession(t, gainsbourgStore(), Events{})
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	assert.True(t, s.HandleZoomChanged(1.5), "drift while focused is corrected")
	assert.Equal(t, 1.0, s.Viewport().Zoom)

	s.Dismiss()
	assert.False(t, s.HandleZoomChanged(1.5))
	assert.Equal(t, 1.5, s.Viewport().Zoom)
}

func TestSession_RecenterCoalesces(t *testing.T) {
	s, sched := newTestSession(t, gainsbourgStore(), Events{})
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	sched.fire()

	vp := s.Viewport()
	assert.NotEqual(t, Viewport{Zoom: 1.0}, vp, "deferred re-center moved the pan")
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestSession(t, gainsbourgStore(), Events{})
	assert.NoError(t, s.Start(context.Background(), "gainsbourg"))

	rm := s.Snapshot()

	assert.Equal(t, ModeFocused, rm.Mode)
	assert.Equal(t, "gainsbourg", rm.FocusID)
	assert.True(t, rm.ZoomLocked)
	assert.Equal(t, 5, rm.VisibleNodes)
	assert.Len(t, rm.Nodes, 5)
	assert.Len(t, rm.Edges, 4)

	byID := make(map[string]NodeView)
	for _, n := range rm.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, graph.NodeFocus, byID["gainsbourg"].VisibilityClass)
	assert.Equal(t, "Serge Gainsbourg", byID["gainsbourg"].DisplayLabel)

	for _, e := range rm.Edges {
		if e.ID == graph.EdgeKey("vian", "gainsbourg") {
			assert.Equal(t, graph.TrustSelfStated, e.Trust)
			assert.Equal(t, 1.0, e.Weight)
		}
	}
}

func TestSnapshot_ConcurrentWithExpansion(t *testing.T) {
	fs := newFakeEntityStore()
	for i := 0; i < 200; i++ {
		fs.addFigure(fmt.Sprintf("fig%03d", i), fmt.Sprintf("Figure %03d", i))
	}
	for i := 0; i < 199; i++ {
		fs.addInfluence(fmt.Sprintf("fig%03d", i), fmt.Sprintf("fig%03d", i+1),
			graph.CategoryMusical, graph.TrustCommunity)
	}
	s, _ := newTestSession(t, fs, Events{})

	// Snapshot reads must stay serialized against expansion merges,
	// including the expanded-flag write that lands after the relationship
	// batch. Run under the race detector.
	done := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = s.Snapshot()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		assert.NoError(t, s.Select(context.Background(), fmt.Sprintf("fig%03d", i)))
	}
	close(done)
	readers.Wait()

	assert.Equal(t, 200, s.Graph().NodeCount())
}

func TestSession_Search(t *testing.T) {
	s, _ := newTestSession(t, gainsbourgStore(), Events{})

	results, err := s.Search(context.Background(), "birkin", 10)
	assert.NoError(t, err)
	if assert.Len(t, results, 1) {
		assert.Equal(t, "birkin", results[0].ID)
	}
}
