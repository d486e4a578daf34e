package explorer

import (
	"context"

	"go.uber.org/zap"

	"influence-atlas/backend/internal/graph"
	apperrors "influence-atlas/backend/pkg/errors"
)

// ============================================================================
// Interaction State Machine
// ============================================================================

// Start loads the initial root entity and focuses it. A missing root is
// surfaced to the caller and through Events.OnError.
func (s *Session) Start(ctx context.Context, rootID string) error {
	return s.Select(ctx, rootID)
}

// Select dispatches a node selection gesture according to the current
// mode: focusing in Idle/Focused, or collecting path endpoints in the
// path-query modes. Selection expands the node if it is not already
// expanded.
func (s *Session) Select(ctx context.Context, id string) error {
	s.mu.Lock()

	switch s.mode {
	case ModeIdle, ModeFocused:
		s.mode = ModeFocused
		s.focusID = id
		s.level = s.cfg.DefaultLevel
		s.generation++
		gen := s.generation
		s.layout.LockZoom()
		s.mu.Unlock()
		return s.expandAndPublish(ctx, id, gen)

	case ModePathWaitingStart:
		gen := s.generation
		s.mu.Unlock()
		if err := s.expandForPath(ctx, id, gen); err != nil {
			return err
		}
		s.mu.Lock()
		if s.mode == ModePathWaitingStart {
			s.pathStart = id
			s.mode = ModePathWaitingEnd
		}
		s.mu.Unlock()
		return nil

	case ModePathWaitingEnd:
		start := s.pathStart
		if id == start {
			// Same node twice never produces a self-path
			s.mu.Unlock()
			return nil
		}
		gen := s.generation
		s.mu.Unlock()
		if err := s.expandForPath(ctx, id, gen); err != nil {
			return err
		}
		s.runPathQuery(start, id)
		return nil
	}

	s.mu.Unlock()
	return nil
}

// expandAndPublish expands a focus target and, when the request is still
// current, runs the refresh pipeline and publishes the resolved entity.
func (s *Session) expandAndPublish(ctx context.Context, id string, gen uint64) error {
	s.emitLoading(true)

	entity, grew, err := s.loader.Expand(ctx, id, ExpandOptions{IsRoot: true})

	s.mu.Lock()
	if s.generation != gen {
		// A newer focus superseded this request; its graph content is
		// kept but nothing session-visible happens.
		s.mu.Unlock()
		s.emitLoading(false)
		return nil
	}

	if err != nil {
		s.mode = ModeIdle
		s.focusID = ""
		s.class = Classification{}
		s.visibleNodes = 0
		s.layout.UnlockZoom()
		s.mu.Unlock()

		s.emitLoading(false)
		if apperrors.IsNotFound(err) {
			s.emitError(ErrorKindNotFound)
		} else {
			s.emitError(ErrorKindTransport)
		}
		return err
	}

	if entity == nil {
		entity = s.graph.Node(id)
	}
	s.refreshLocked(grew)
	s.mu.Unlock()

	s.emitLoading(false)
	s.emitFocusChanged(entity)

	s.log.Info("Focus set",
		zap.String("entity_id", id),
		zap.Bool("grew", grew),
	)
	return nil
}

// expandForPath expands a path endpoint; failures degrade to the loaded
// subgraph rather than surfacing.
func (s *Session) expandForPath(ctx context.Context, id string, gen uint64) error {
	_, grew, err := s.loader.Expand(ctx, id, ExpandOptions{IsRoot: false})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	if grew {
		up, down := s.neighborRows(id)
		s.layout.Arrange(id, up, down)
	}
	s.graph.RecomputeDegrees()
	s.requestRecenterLocked()
	return nil
}

// runPathQuery executes the path finder for (start, end) and publishes
// the result, then resets to await a new start.
func (s *Session) runPathQuery(startID, endID string) {
	s.mu.Lock()
	path, ok := FindPath(s.graph, startID, endID)
	if ok {
		s.class = ClassifyPath(s.graph, path)
	} else {
		s.class = Classification{}
	}
	s.pathStart = ""
	s.mode = ModePathWaitingStart
	s.requestRecenterLocked()
	s.mu.Unlock()

	if ok {
		s.emitPathResult(path.NodeIDs)
		s.log.Info("Path found",
			zap.String("start", startID),
			zap.String("end", endID),
			zap.Int("hops", len(path.EdgeKeys)),
		)
	} else {
		s.emitPathResult(nil)
		s.log.Info("No path found",
			zap.String("start", startID),
			zap.String("end", endID),
		)
	}
}

// Dismiss handles a background tap: clears all visibility classes and
// re-enables zoom/pan controls.
func (s *Session) Dismiss() {
	s.mu.Lock()
	if s.mode != ModeFocused {
		s.mu.Unlock()
		return
	}
	s.mode = ModeIdle
	s.focusID = ""
	s.class = Classification{}
	s.visibleNodes = 0
	s.layout.UnlockZoom()
	s.mu.Unlock()

	s.emitFocusChanged(nil)
}

// AdjustLevel applies a filter-level delta while focused. Only
// classification re-runs; no re-expansion happens, and layout touches
// only nodes that must now be shown for the first time. Rapid
// adjustments coalesce through the debounce window.
func (s *Session) AdjustLevel(delta float64) {
	s.mu.Lock()
	if s.mode != ModeFocused {
		s.mu.Unlock()
		return
	}

	s.level = clampLevel(s.level + delta)
	gen := s.generation
	s.mu.Unlock()

	s.reclassify.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.mode != ModeFocused || s.generation != gen {
			return
		}

		s.class = Classify(s.graph, s.focusID, s.level, s.cfg.Curve)
		s.visibleNodes = s.class.VisibleNodeCount()

		// Place any neighbor the new level revealed for the first time
		for id, class := range s.class.Nodes {
			if class == graph.NodeNeighbor && !s.layout.HasPosition(id) {
				up, down := s.placementRows()
				s.layout.Arrange(s.focusID, up, down)
				break
			}
		}
		s.requestRecenterLocked()
	})
}

// StepLevel applies one configured filter step up or down. Zoom gestures
// map here; sliders and tests use AdjustLevel directly.
func (s *Session) StepLevel(up bool) {
	step := s.cfg.FilterStep
	if !up {
		step = -step
	}
	s.AdjustLevel(step)
}

// TogglePath enters or leaves path-query mode. Entering clears any focus
// classification; leaving clears path highlights.
func (s *Session) TogglePath() {
	s.mu.Lock()

	switch s.mode {
	case ModeIdle, ModeFocused:
		s.mode = ModePathWaitingStart
		s.focusID = ""
		s.pathStart = ""
		s.class = Classification{}
		s.visibleNodes = 0
		s.layout.UnlockZoom()
		s.mu.Unlock()
		s.emitFocusChanged(nil)

	case ModePathWaitingStart, ModePathWaitingEnd:
		s.mode = ModeIdle
		s.pathStart = ""
		s.class = Classification{}
		s.mu.Unlock()
		s.emitPathResult(nil)
	}
}

// RetryExpansion clears a stuck expanded mark left behind by a swallowed
// transport failure and runs the expansion again.
func (s *Session) RetryExpansion(ctx context.Context, id string) error {
	s.loader.ClearExpansion(id)

	s.mu.Lock()
	isFocus := s.mode == ModeFocused && s.focusID == id
	gen := s.generation
	s.mu.Unlock()

	if isFocus {
		return s.expandAndPublish(ctx, id, gen)
	}
	return s.expandForPath(ctx, id, gen)
}

// neighborRows splits a node's full neighborhood into upstream and
// downstream rows without level filtering. Used for placement in path
// mode where no focus classification applies. Caller holds no locks on
// graph internals; the store is safe to read concurrently.
func (s *Session) neighborRows(id string) (up, down []string) {
	upstream := s.graph.UpstreamIDs(id)
	for _, n := range s.graph.Neighborhood(id) {
		if upstream[n.ID] {
			up = append(up, n.ID)
		} else {
			down = append(down, n.ID)
		}
	}
	return up, down
}

func clampLevel(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
