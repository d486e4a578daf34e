package explorer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"influence-atlas/backend/internal/graph"
	"influence-atlas/backend/internal/store"
	apperrors "influence-atlas/backend/pkg/errors"
)

// fakeEntityStore is an in-memory EntityStore for tests. Figures and
// influences are registered up front; individual fetches can be made to
// fail or block.
type fakeEntityStore struct {
	mu        sync.Mutex
	entities  map[string]graph.Entity
	inbound   map[string][]store.RelatedEntity
	outbound  map[string][]store.RelatedEntity
	entityErr map[string]error
	relErr    map[string]error
	gate      map[string]chan struct{}
	getCalls  map[string]int
	relCalls  map[string]int
}

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{
		entities:  make(map[string]graph.Entity),
		inbound:   make(map[string][]store.RelatedEntity),
		outbound:  make(map[string][]store.RelatedEntity),
		entityErr: make(map[string]error),
		relErr:    make(map[string]error),
		gate:      make(map[string]chan struct{}),
		getCalls:  make(map[string]int),
		relCalls:  make(map[string]int),
	}
}

func (f *fakeEntityStore) addFigure(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities[id] = graph.Entity{ID: id, Name: name}
}

func (f *fakeEntityStore) addInfluence(srcID, tgtID string, category graph.Category, trust graph.Trust) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel := graph.Relationship{SourceID: srcID, TargetID: tgtID, Category: category, Trust: trust}
	f.outbound[srcID] = append(f.outbound[srcID], store.RelatedEntity{Relationship: rel, Entity: f.entities[tgtID]})
	f.inbound[tgtID] = append(f.inbound[tgtID], store.RelatedEntity{Relationship: rel, Entity: f.entities[srcID]})
}

// blockEntity makes GetEntity for id wait until the returned release
// function is called
func (f *fakeEntityStore) blockEntity(id string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate[id] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeEntityStore) failEntity(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entityErr[id] = err
}

func (f *fakeEntityStore) clearEntityFailure(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entityErr, id)
}

func (f *fakeEntityStore) failRelationships(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relErr[id] = err
}

func (f *fakeEntityStore) entityFetches(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[id]
}

func (f *fakeEntityStore) relationshipFetches(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relCalls[id]
}

func (f *fakeEntityStore) GetEntity(ctx context.Context, id string) (*graph.Entity, error) {
	f.mu.Lock()
	f.getCalls[id]++
	gate := f.gate[id]
	err := f.entityErr[id]
	e, ok := f.entities[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewEntityNotFound(id)
	}
	out := e
	return &out, nil
}

func (f *fakeEntityStore) InboundRelationships(ctx context.Context, id string) ([]store.RelatedEntity, error) {
	f.mu.Lock()
	f.relCalls[id]++
	err := f.relErr[id]
	rels := f.inbound[id]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return rels, nil
}

func (f *fakeEntityStore) OutboundRelationships(ctx context.Context, id string) ([]store.RelatedEntity, error) {
	f.mu.Lock()
	err := f.relErr[id]
	rels := f.outbound[id]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return rels, nil
}

func (f *fakeEntityStore) SearchEntities(ctx context.Context, text string, limit int) ([]graph.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graph.Entity
	for _, e := range f.entities {
		if strings.Contains(strings.ToLower(e.Name), strings.ToLower(text)) {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// manualScheduler collects scheduled callbacks and fires them on demand,
// so debounce behavior is deterministic without real timers
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
}

func (m *manualScheduler) Schedule(_ time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	task := &manualTask{fn: fn}
	m.tasks = append(m.tasks, task)
	return func() {
		m.mu.Lock()
		task.cancelled = true
		m.mu.Unlock()
	}
}

// fire runs every scheduled callback that has not been cancelled.
// Callbacks scheduled while firing are queued for the next fire.
func (m *manualScheduler) fire() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	for _, task := range tasks {
		m.mu.Lock()
		cancelled := task.cancelled
		m.mu.Unlock()
		if !cancelled {
			task.fn()
		}
	}
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, task := range m.tasks {
		if !task.cancelled {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, fs *fakeEntityStore, events Events) (*Session, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	s := NewSession(fs, DefaultConfig(), events, sched)
	t.Cleanup(s.Close)
	return s, sched
}
