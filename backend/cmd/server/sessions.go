package main

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"influence-atlas/backend/internal/explorer"
	"influence-atlas/backend/internal/graph"
	"influence-atlas/backend/pkg/config"
	apperrors "influence-atlas/backend/pkg/errors"
	"influence-atlas/backend/pkg/logger"
)

// sessionHandle pairs a session with the latest state its event
// callbacks reported
type sessionHandle struct {
	session *explorer.Session

	mu        sync.Mutex
	loading   bool
	lastError string
	lastPath  []string
	focus     *graph.Entity
}

// sessionStatus is the event-derived state returned alongside snapshots
type sessionStatus struct {
	Loading   bool     `json:"loading"`
	LastError string   `json:"last_error,omitempty"`
	LastPath  []string `json:"last_path,omitempty"`
}

func (h *sessionHandle) status() sessionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sessionStatus{
		Loading:   h.loading,
		LastError: h.lastError,
		LastPath:  h.lastPath,
	}
}

// sessionRegistry owns all live exploration sessions
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionHandle
	store    explorer.EntityStore
	cfg      *config.Config
}

func newSessionRegistry(store explorer.EntityStore, cfg *config.Config) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*sessionHandle),
		store:    store,
		cfg:      cfg,
	}
}

func (r *sessionRegistry) get(id string) (*sessionHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[id]
	return h, ok
}

func (r *sessionRegistry) create() (string, *sessionHandle) {
	handle := &sessionHandle{}

	events := explorer.Events{
		OnFocusChanged: func(e *graph.Entity) {
			handle.mu.Lock()
			handle.focus = e
			handle.mu.Unlock()
		},
		OnPathResult: func(nodeIDs []string) {
			handle.mu.Lock()
			handle.lastPath = nodeIDs
			handle.mu.Unlock()
		},
		OnLoadingChanged: func(loading bool) {
			handle.mu.Lock()
			handle.loading = loading
			if loading {
				handle.lastError = ""
			}
			handle.mu.Unlock()
		},
		OnError: func(kind string) {
			metricRootErrors.Inc()
			handle.mu.Lock()
			handle.lastError = kind
			handle.mu.Unlock()
		},
	}

	sessionCfg := explorer.Config{
		DefaultLevel: r.cfg.DefaultFilterLevel,
		FilterStep:   r.cfg.FilterStep,
		Curve:        explorer.CurveParams{Floor: r.cfg.VisibleFloor, Ramp: r.cfg.VisibleRamp},
		Debounce:     durationMillis(r.cfg.DebounceMillis),
		CacheTTL:     durationMinutes(r.cfg.CacheTTLMinutes),
	}
	handle.session = explorer.NewSession(r.store, sessionCfg, events, explorer.TimerScheduler{})

	id := uuid.New().String()
	r.mu.Lock()
	r.sessions[id] = handle
	r.mu.Unlock()

	metricSessions.Inc()
	return id, handle
}

func durationMillis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func durationMinutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.sessions {
		h.session.Close()
	}
	r.sessions = make(map[string]*sessionHandle)
}

// registerRoutes wires the explorer API onto the router
func (r *sessionRegistry) registerRoutes(router *gin.Engine, log *zap.Logger) {
	api := router.Group("/api")

	// Create a session and expand its root
	api.POST("/sessions", func(c *gin.Context) {
		var req struct {
			RootID string `json:"root_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, handle := r.create()
		if err := handle.session.Start(c.Request.Context(), req.RootID); err != nil {
			if apperrors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Figure not found", "session_id": id})
				return
			}
			log.Error("Failed to expand root", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load figure", "session_id": id, "retryable": true})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"session_id": id,
			"graph":      handle.session.Snapshot(),
			"status":     handle.status(),
		})
	})

	// Read model snapshot
	api.GET("/sessions/:id/graph", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"graph":  handle.session.Snapshot(),
			"status": handle.status(),
		})
	})

	// Select gesture
	api.POST("/sessions/:id/select", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		var req struct {
			EntityID string `json:"entity_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		metricSelects.Inc()
		wasPathEnd := handle.session.Mode() == explorer.ModePathWaitingEnd
		if err := handle.session.Select(c.Request.Context(), req.EntityID); err != nil {
			if apperrors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Figure not found"})
				return
			}
			log.Error("Select failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load figure", "retryable": true})
			return
		}
		if wasPathEnd {
			metricPathQueries.Inc()
		}

		c.JSON(http.StatusOK, gin.H{
			"graph":  handle.session.Snapshot(),
			"status": handle.status(),
		})
	})

	// Background dismiss
	api.POST("/sessions/:id/dismiss", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		handle.session.Dismiss()
		c.JSON(http.StatusOK, gin.H{"graph": handle.session.Snapshot()})
	})

	// Filter-level adjust
	api.POST("/sessions/:id/level", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		var req struct {
			Delta     *float64 `json:"delta"`
			Direction string   `json:"direction"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		switch {
		case req.Delta != nil:
			handle.session.AdjustLevel(*req.Delta)
		case req.Direction == "up" || req.Direction == "down":
			handle.session.StepLevel(req.Direction == "up")
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "delta or direction is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"level": handle.session.Level()})
	})

	// Path-mode toggle
	api.POST("/sessions/:id/path", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		handle.session.TogglePath()
		c.JSON(http.StatusOK, gin.H{"mode": handle.session.Mode()})
	})

	// Explicit expansion retry
	api.POST("/sessions/:id/retry", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		var req struct {
			EntityID string `json:"entity_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := handle.session.RetryExpansion(c.Request.Context(), req.EntityID); err != nil {
			if apperrors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Figure not found"})
				return
			}
			log.Error("Retry failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load figure", "retryable": true})
			return
		}

		c.JSON(http.StatusOK, gin.H{"graph": handle.session.Snapshot()})
	})

	// Renderer-reported zoom (corrected while a focus is active)
	api.POST("/sessions/:id/zoom", func(c *gin.Context) {
		handle, ok := r.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		var req struct {
			Zoom *float64 `json:"zoom" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		corrected := handle.session.HandleZoomChanged(*req.Zoom)
		c.JSON(http.StatusOK, gin.H{
			"corrected": corrected,
			"viewport":  handle.session.Viewport(),
		})
	})

	// Name search, a selection source only
	api.GET("/search", func(c *gin.Context) {
		text := c.Query("q")
		if text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

		entities, err := r.store.SearchEntities(c.Request.Context(), text, limit)
		if err != nil {
			logger.Get().Error("Search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": entities})
	})
}
