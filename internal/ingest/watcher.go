package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sparklens/internal/logging"
)

// watchedExtensions are the filename suffixes the watcher ingests. Anything
// else dropped into the directory is ignored.
var watchedExtensions = map[string]bool{
	".log": true,
	".txt": true,
	".out": true,
	".gz":  true,
	".zip": true,
}

// settleDelay is how long a newly created file must sit before ingestion, so
// a writer still appending does not get a partial parse.
const settleDelay = 2 * time.Second

// Watcher ingests log files as they appear in a directory.
type Watcher struct {
	service *Service
	dir     string
}

// NewWatcher creates a directory watcher backed by the given service.
func NewWatcher(service *Service, dir string) *Watcher {
	return &Watcher{service: service, dir: dir}
}

// Run watches the directory until the context is cancelled. Each created or
// renamed-in file is ingested after a settle delay; ingestion failures are
// logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logging.Ingest("watching %s", w.dir)

	pending := make(map[string]*time.Timer)
	ingested := make(chan string)
	// done releases settle timers that fire after Run has returned through a
	// closed fsnotify channel; without it their goroutines would block on the
	// unbuffered send forever.
	done := make(chan struct{})
	defer func() {
		close(done)
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			path := event.Name
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			logging.IngestDebug("queued %s", path)
			pending[path] = time.AfterFunc(settleDelay, func() {
				enqueue(ctx, done, ingested, path)
			})

		case path := <-ingested:
			delete(pending, path)
			if _, err := w.service.IngestFile(ctx, path); err != nil {
				logging.Get(logging.CategoryIngest).Error("ingest %s failed: %v", path, err)
				continue
			}
			logging.Ingest("ingested %s", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryIngest).Warn("watch error: %v", err)
		}
	}
}

// enqueue hands a settled path to the ingest loop, giving up when the context
// is cancelled or the watch has already exited.
func enqueue(ctx context.Context, done <-chan struct{}, ingested chan<- string, path string) {
	select {
	case ingested <- path:
	case <-ctx.Done():
	case <-done:
	}
}
