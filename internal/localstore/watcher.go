package localstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce batches bursts of WAL writes into one refresh.
const DefaultWatchDebounce = 100 * time.Millisecond

// WatchExternal refreshes live feeds when another process writes the
// database file. It watches the directory containing the database and
// reacts to changes of the main file and its -wal and -shm companions.
//
// Setup errors are returned; afterwards the watcher runs in the background
// until ctx is done.
func (s *Store) WatchExternal(ctx context.Context) error {
	return s.watchExternal(ctx, DefaultWatchDebounce)
}

func (s *Store) watchExternal(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch database directory %s: %w", dir, err)
	}

	s.logger.Debug().Str("dir", dir).Msg("watching for external writes")

	go s.processWatchEvents(ctx, watcher, debounce)
	return nil
}

// processWatchEvents is the event loop behind WatchExternal.
func (s *Store) processWatchEvents(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) {
	defer watcher.Close()

	// A nil timer channel blocks until the first relevant event arms it.
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.isDatabaseFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			s.logger.Debug().Msg("external write detected")
			s.hub.Notify()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// isDatabaseFile reports whether name is the database or one of its
// SQLite side files.
func (s *Store) isDatabaseFile(name string) bool {
	base := filepath.Base(s.path)
	got := filepath.Base(name)
	if got == base {
		return true
	}
	return strings.HasPrefix(got, base+"-") &&
		(strings.HasSuffix(got, "-wal") || strings.HasSuffix(got, "-shm") || strings.HasSuffix(got, "-journal"))
}
