// Package memstore is an in-memory list store with live feeds.
//
// It backs the CLI's offline mode and stands in for either side of the
// sync coordinator in tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/helpmebuyapp/helpmebuy/internal/feed"
	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Record is the memory representation of a list. It keeps items.
type Record struct {
	ID       int
	Name     string
	Category string
	Items    []model.Item
}

func (r *Record) EntityID() int             { return r.ID }
func (r *Record) EntityName() string        { return r.Name }
func (r *Record) EntityCategory() string    { return r.Category }
func (r *Record) EntityItems() []model.Item { return r.Items }

func recordOf(e model.Entity) *Record {
	return &Record{
		ID:       e.EntityID(),
		Name:     e.EntityName(),
		Category: model.CategoryOrDefault(e.EntityCategory()),
		Items:    model.ItemsOf(e),
	}
}

func (r *Record) clone() *Record {
	c := *r
	if r.Items != nil {
		c.Items = append([]model.Item(nil), r.Items...)
	}
	return &c
}

// Option configures a Store.
type Option func(*Store)

// WithUpsert makes Update insert entities whose id is unknown and makes
// Insert keep the supplied id, overwriting any existing entry. This mirrors
// a remote key-value store.
func WithUpsert() Option {
	return func(s *Store) { s.upsert = true }
}

// Store is an in-memory Repository. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	lists  map[int]*Record
	nextID int
	upsert bool
	hub    *feed.Hub
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		lists:  make(map[int]*Record),
		nextID: 1,
		hub:    feed.NewHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores e. Without upsert mode a zero or taken id is replaced by
// the next free one.
func (s *Store) Insert(ctx context.Context, e model.Entity) (int, error) {
	if err := model.Validate(e); err != nil {
		return 0, err
	}
	rec := recordOf(e)

	s.mu.Lock()
	if !s.upsert {
		if _, taken := s.lists[rec.ID]; rec.ID == 0 || taken {
			rec.ID = s.nextID
		}
	}
	if rec.ID >= s.nextID {
		s.nextID = rec.ID + 1
	}
	s.lists[rec.ID] = rec
	s.mu.Unlock()

	s.hub.Notify()
	return rec.ID, nil
}

// Update replaces the entity with e's id. A missing id is ignored unless
// the store is in upsert mode.
func (s *Store) Update(ctx context.Context, e model.Entity) error {
	if err := model.Validate(e); err != nil {
		return err
	}
	rec := recordOf(e)

	s.mu.Lock()
	if _, ok := s.lists[rec.ID]; !ok && !s.upsert {
		s.mu.Unlock()
		return nil
	}
	if rec.ID >= s.nextID {
		s.nextID = rec.ID + 1
	}
	s.lists[rec.ID] = rec
	s.mu.Unlock()

	s.hub.Notify()
	return nil
}

// Delete removes the entity with e's id.
func (s *Store) Delete(ctx context.Context, e model.Entity) error {
	if model.IsNil(e) {
		return model.Validate(e)
	}

	s.mu.Lock()
	_, ok := s.lists[e.EntityID()]
	delete(s.lists, e.EntityID())
	s.mu.Unlock()

	if ok {
		s.hub.Notify()
	}
	return nil
}

// GetByID returns a live feed of one entity.
func (s *Store) GetByID(ctx context.Context, id int) (<-chan model.Entity, error) {
	return feed.Watch(ctx, s.hub, func(context.Context) (model.Entity, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		rec, ok := s.lists[id]
		if !ok {
			return nil, nil
		}
		return rec.clone(), nil
	}, nil)
}

// GetAll returns a live feed of every entity ordered by id.
func (s *Store) GetAll(ctx context.Context) (<-chan []model.Entity, error) {
	return feed.Watch(ctx, s.hub, func(context.Context) ([]model.Entity, error) {
		return s.snapshot(), nil
	}, nil)
}

// AutoSuggestions implements repository.Repository.
func (s *Store) AutoSuggestions(query string) []string {
	return model.Suggest(query)
}

// Len returns the number of stored lists.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists)
}

// Close ends every live feed.
func (s *Store) Close() {
	s.hub.Close()
}

func (s *Store) snapshot() []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.lists))
	for id := range s.lists {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]model.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.lists[id].clone())
	}
	return out
}
