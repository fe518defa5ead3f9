// Package repository defines the capability interface every list store
// implements: the SQLite local store, the DynamoDB remote mirror, the
// in-memory store and the sync coordinator that composes them.
package repository

import (
	"context"
	"fmt"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Repository is the uniform list store contract.
type Repository interface {
	// Insert persists a new entity and returns the id it was stored under.
	//
	// The id carried by e is advisory. Local stores assign a fresh id when
	// it is zero or already taken; remote stores keep it.
	Insert(ctx context.Context, e model.Entity) (int, error)

	// Update replaces the entity with the same id wholesale.
	Update(ctx context.Context, e model.Entity) error

	// Delete removes the entity with e's id. Deleting a missing id is a no-op.
	Delete(ctx context.Context, e model.Entity) error

	// GetByID returns a feed of the entity with the given id. A nil value
	// means the store holds no such entity. Live stores emit after every
	// change until ctx is done; snapshot stores emit once and close.
	GetByID(ctx context.Context, id int) (<-chan model.Entity, error)

	// GetAll returns a feed of every entity, ordered by id. Live stores emit
	// after every change until ctx is done; snapshot stores emit once and close.
	GetAll(ctx context.Context) (<-chan []model.Entity, error)

	// AutoSuggestions returns common item names matching query.
	// It never touches the store.
	AutoSuggestions(query string) []string
}

// Snapshot reads the current contents of r once and releases the feed.
func Snapshot(ctx context.Context, r Repository) ([]model.Entity, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return first(ctx, ch)
}

// Lookup reads the entity with the given id once. It returns nil when the
// store holds no such entity.
func Lookup(ctx context.Context, r Repository, id int) (model.Entity, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return first(ctx, ch)
}

func first[T any](ctx context.Context, ch <-chan T) (T, error) {
	var zero T
	select {
	case v, ok := <-ch:
		if !ok {
			return zero, fmt.Errorf("feed closed before first value")
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Index maps entities by id.
func Index(entities []model.Entity) map[int]model.Entity {
	idx := make(map[int]model.Entity, len(entities))
	for _, e := range entities {
		idx[e.EntityID()] = e
	}
	return idx
}
