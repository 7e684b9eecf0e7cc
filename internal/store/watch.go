package store

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// watchFlushInterval batches bursts of events for the same file, such as
// the create and rename of one atomic save.
const watchFlushInterval = 100 * time.Millisecond

// Watch calls fn with the player name whenever that player's file is
// created, replaced or removed by anyone, including this store. It blocks
// until ctx is done.
func (s *FileStore) Watch(ctx context.Context, fn func(name string)) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch data directory: %w", err)
	}

	ticker := time.NewTicker(watchFlushInterval)
	defer ticker.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if name, ok := nameFromFile(filepath.Base(event.Name)); ok {
				pending[name] = struct{}{}
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(werr).Str("dir", s.dir).Msg("File watcher error")
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			clear(pending)
			slices.Sort(names)
			for _, name := range names {
				fn(name)
			}
		}
	}
}
