// Package localstore provides the durable local list store.
//
// The store is an embedded SQLite database opened in WAL mode so UI reads
// never wait on background writers. It is the authoritative copy of the
// user's lists: every read the UI performs is served from here.
//
// Architecture:
//   - Database file: ~/.helpmebuy/hmb.db (configurable)
//   - WAL mode: concurrent readers during writes
//   - Schema: a single lists table; items are stored as a JSON array
//   - Live reads: every committed write notifies a feed.Hub
//
// Concurrent writers are serialized by SQLite itself (busy timeout 5s);
// the store adds no locking of its own.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"

	"github.com/helpmebuyapp/helpmebuy/internal/feed"
	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Store wraps the SQLite connection and implements repository.Repository.
type Store struct {
	conn   *sql.DB
	path   string
	hub    *feed.Hub
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for feed reload failures and watcher events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "localstore").Logger()
	}
}

// Open creates a new database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// The caller MUST call Close() when done and InitSchema() before first use.
//
// Example:
//
//	store, err := localstore.Open("hmb.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		conn:   conn,
		path:   path,
		hub:    feed.NewHub(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	pragmas := []struct {
		stmt string
		desc string
	}{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
		{"PRAGMA synchronous=NORMAL", "set synchronous mode"},
	}
	for _, p := range pragmas {
		if _, err := s.conn.Exec(p.stmt); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.desc, err)
		}
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close ends all live feeds and closes the connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	s.hub.Close()

	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn().Err(err).Msg("failed to checkpoint WAL")
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the lists table if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS lists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'General',
		items TEXT NOT NULL DEFAULT '[]',  -- JSON array of {name, quantity}
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lists_category ON lists(category);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return wrap("initialize schema", err)
	}
	return nil
}

// Insert stores a new list and returns its id.
//
// A zero id, or an id that is already taken, is replaced by a fresh one
// assigned by SQLite. A free non-zero id is kept so lists pulled from the
// remote mirror keep their remote id.
func (s *Store) Insert(ctx context.Context, e model.Entity) (int, error) {
	row, err := ToGroceryList(e)
	if err != nil {
		return 0, err
	}

	itemsJSON, err := encodeItems(row.Items)
	if err != nil {
		return 0, wrap("insert list", err)
	}

	query := `
	INSERT INTO lists (id, name, category, items, updated_at)
	VALUES (
		CASE WHEN ?1 > 0 AND NOT EXISTS (SELECT 1 FROM lists WHERE id = ?1) THEN ?1 ELSE NULL END,
		?2, ?3, ?4, ?5
	)
	RETURNING id
	`

	var id int
	err = s.conn.QueryRowContext(ctx, query,
		row.ID,
		row.Name,
		row.Category,
		itemsJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return 0, wrap("insert list", err)
	}

	s.hub.Notify()
	return id, nil
}

// Update replaces the list with the same id wholesale.
// Returns model.ErrNotFound when no such list exists.
func (s *Store) Update(ctx context.Context, e model.Entity) error {
	row, err := ToGroceryList(e)
	if err != nil {
		return err
	}

	itemsJSON, err := encodeItems(row.Items)
	if err != nil {
		return wrap("update list", err)
	}

	query := `
	UPDATE lists
	SET name = ?, category = ?, items = ?, updated_at = ?
	WHERE id = ?
	`

	res, err := s.conn.ExecContext(ctx, query,
		row.Name,
		row.Category,
		itemsJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
		row.ID,
	)
	if err != nil {
		return wrap(fmt.Sprintf("update list %d", row.ID), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrap(fmt.Sprintf("update list %d", row.ID), err)
	}
	if n == 0 {
		return wrap(fmt.Sprintf("update list %d", row.ID), model.ErrNotFound)
	}

	s.hub.Notify()
	return nil
}

// Delete removes the list with e's id.
// Returns nil if the list doesn't exist (idempotent).
func (s *Store) Delete(ctx context.Context, e model.Entity) error {
	if model.IsNil(e) {
		return model.Validate(e)
	}

	res, err := s.conn.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, e.EntityID())
	if err != nil {
		return wrap(fmt.Sprintf("delete list %d", e.EntityID()), err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.hub.Notify()
	}
	return nil
}

// GetByID returns a live feed of the list with the given id.
func (s *Store) GetByID(ctx context.Context, id int) (<-chan model.Entity, error) {
	return feed.Watch(ctx, s.hub, func(ctx context.Context) (model.Entity, error) {
		row, err := s.ListByID(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return row, nil
	}, s.reloadFailed("get_by_id"))
}

// GetAll returns a live feed of every list ordered by id.
func (s *Store) GetAll(ctx context.Context) (<-chan []model.Entity, error) {
	return feed.Watch(ctx, s.hub, func(ctx context.Context) ([]model.Entity, error) {
		rows, err := s.Lists(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]model.Entity, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}, s.reloadFailed("get_all"))
}

// AutoSuggestions implements repository.Repository.
func (s *Store) AutoSuggestions(query string) []string {
	return model.Suggest(query)
}

// ListByID reads one list. Returns model.ErrNotFound if it doesn't exist.
func (s *Store) ListByID(ctx context.Context, id int) (*GroceryList, error) {
	query := `
	SELECT id, name, category, items, updated_at
	FROM lists
	WHERE id = ?
	`

	row, err := scanList(s.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(fmt.Sprintf("get list %d", id), model.ErrNotFound)
	}
	if err != nil {
		return nil, wrap(fmt.Sprintf("get list %d", id), err)
	}
	return row, nil
}

// Lists reads every list ordered by id.
func (s *Store) Lists(ctx context.Context) ([]*GroceryList, error) {
	query := `
	SELECT id, name, category, items, updated_at
	FROM lists
	ORDER BY id ASC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("query lists", err)
	}
	defer rows.Close()

	var lists []*GroceryList
	for rows.Next() {
		row, err := scanList(rows)
		if err != nil {
			return nil, wrap("scan list", err)
		}
		lists = append(lists, row)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap("iterate lists", err)
	}
	return lists, nil
}

// Count returns the number of stored lists.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists").Scan(&count); err != nil {
		return 0, wrap("count lists", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanList reads one row in (id, name, category, items, updated_at) order.
func scanList(sc scanner) (*GroceryList, error) {
	var row GroceryList
	var itemsJSON, updatedAt string

	if err := sc.Scan(&row.ID, &row.Name, &row.Category, &itemsJSON, &updatedAt); err != nil {
		return nil, err
	}

	items, err := decodeItems(itemsJSON)
	if err != nil {
		return nil, err
	}
	row.Items = items

	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		row.UpdatedAt = t
	}
	return &row, nil
}

func (s *Store) reloadFailed(feedName string) func(error) {
	return func(err error) {
		s.logger.Warn().Err(err).Str("feed", feedName).Msg("live feed reload failed")
	}
}
