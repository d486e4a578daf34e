package explorer

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"influence-atlas/backend/internal/cache"
	"influence-atlas/backend/internal/graph"
	"influence-atlas/backend/internal/store"
	apperrors "influence-atlas/backend/pkg/errors"
	"influence-atlas/backend/pkg/logger"
)

// EntityStore is the persistent store the loader fetches from. The
// Neo4j repository satisfies it; tests use an in-memory fake.
type EntityStore interface {
	GetEntity(ctx context.Context, id string) (*graph.Entity, error)
	InboundRelationships(ctx context.Context, id string) ([]store.RelatedEntity, error)
	OutboundRelationships(ctx context.Context, id string) ([]store.RelatedEntity, error)
	SearchEntities(ctx context.Context, text string, limit int) ([]graph.Entity, error)
}

// ExpandOptions controls a single expansion request
type ExpandOptions struct {
	IsRoot              bool
	SkipLayoutAnimation bool
}

// relationshipBatch is the combined inbound+outbound unit cached per
// entity id
type relationshipBatch struct {
	Inbound  []store.RelatedEntity
	Outbound []store.RelatedEntity
}

// Loader guarantees that an entity's detail and both relationship sets
// are fetched and merged into the graph store exactly once.
type Loader struct {
	store    EntityStore
	cache    *cache.Cache
	graph    *graph.Store
	expanded mapset.Set[string]
	ttl      time.Duration
	log      *zap.Logger
}

// NewLoader creates an expansion loader over the given collaborator store
func NewLoader(es EntityStore, c *cache.Cache, g *graph.Store, ttl time.Duration) *Loader {
	return &Loader{
		store:    es,
		cache:    c,
		graph:    g,
		expanded: mapset.NewSet[string](),
		ttl:      ttl,
		log:      logger.Get(),
	}
}

// TryBeginExpansion atomically marks an entity as expanded, returning
// false if it was already marked. The mark is taken before any fetch
// begins, so an overlapping request for the same id is a no-op rather
// than a duplicate fetch.
func (l *Loader) TryBeginExpansion(id string) bool {
	return l.expanded.Add(id)
}

// IsExpanded reports whether the entity has been (or is being) expanded
func (l *Loader) IsExpanded(id string) bool {
	return l.expanded.Contains(id)
}

// ClearExpansion removes the expanded mark so the entity can be expanded
// again. This is the explicit retry path after a swallowed transport
// failure; nothing clears the mark on its own.
func (l *Loader) ClearExpansion(id string) {
	l.expanded.Remove(id)
}

// Expand fetches the entity's detail and both relationship sets, then
// merges them into the graph store. Returns the resolved entity and
// whether the graph grew. Invoking Expand twice for the same id yields
// the same graph content as once.
func (l *Loader) Expand(ctx context.Context, id string, opts ExpandOptions) (*graph.Entity, bool, error) {
	if !l.TryBeginExpansion(id) {
		return l.graph.Node(id), false, nil
	}

	entity, err := l.resolveEntity(ctx, id)
	if err != nil {
		if opts.IsRoot {
			// Root failures are user-visible; release the mark so a
			// fresh selection of the same root retries cleanly.
			l.expanded.Remove(id)
			return nil, false, err
		}
		// Partial graph is acceptable for non-root targets. The mark
		// stays set to avoid retry storms.
		l.log.Warn("Skipping unreachable neighbor", zap.String("entity_id", id), zap.Error(err))
		return nil, false, nil
	}

	grew := l.graph.AddEntity(entity, opts.IsRoot)

	batch, err := l.resolveRelationships(ctx, id)
	if err != nil {
		if opts.IsRoot {
			return entity, grew, err
		}
		l.log.Warn("Relationship fetch failed, keeping partial graph",
			zap.String("entity_id", id), zap.Error(err))
		return l.graph.Node(id), grew, nil
	}

	for _, re := range append(batch.Inbound, batch.Outbound...) {
		e := re.Entity
		if l.graph.AddEntity(&e, false) {
			grew = true
		}
		if l.graph.AddRelationship(re.Relationship) {
			grew = true
		}
	}

	l.graph.MarkExpanded(id)

	l.log.Debug("Expansion completed",
		zap.String("entity_id", id),
		zap.Bool("root", opts.IsRoot),
		zap.Bool("grew", grew),
		zap.Int("inbound", len(batch.Inbound)),
		zap.Int("outbound", len(batch.Outbound)),
	)

	return l.graph.Node(id), grew, nil
}

// resolveEntity fetches entity detail through the cache
func (l *Loader) resolveEntity(ctx context.Context, id string) (*graph.Entity, error) {
	key := "entity:" + id
	if v, ok := l.cache.Get(key); ok {
		if e, ok := v.(*graph.Entity); ok {
			return e, nil
		}
	}

	entity, err := l.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, entity, l.ttl)
	return entity, nil
}

// resolveRelationships fetches the inbound and outbound sets as one
// combined cache unit keyed by entity id. On a miss both directions are
// fetched concurrently and awaited together.
func (l *Loader) resolveRelationships(ctx context.Context, id string) (*relationshipBatch, error) {
	key := "rels:" + id
	if v, ok := l.cache.Get(key); ok {
		if b, ok := v.(*relationshipBatch); ok {
			return b, nil
		}
	}

	batch := &relationshipBatch{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in, err := l.store.InboundRelationships(gctx, id)
		if err != nil {
			return err
		}
		batch.Inbound = in
		return nil
	})
	g.Go(func() error {
		out, err := l.store.OutboundRelationships(gctx, id)
		if err != nil {
			return err
		}
		batch.Outbound = out
		return nil
	})
	if err := g.Wait(); err != nil {
		if _, ok := err.(*apperrors.ErrTransport); ok {
			return nil, err
		}
		return nil, apperrors.NewTransport(id, err)
	}

	l.cache.Set(key, batch, l.ttl)
	return batch, nil
}
