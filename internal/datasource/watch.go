package datasource

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yubzen/sqlchat/internal/observability"
)

const watchDebounce = 500 * time.Millisecond

var ErrNotWatchable = errors.New("only local data sources can be watched")

// Watcher invalidates a local Handle when its database file is rewritten or
// replaced on disk, so the next query opens the new file.
type Watcher struct {
	Done chan struct{}

	handle *Handle
	path   string
	log    *slog.Logger
}

// Watch starts watching the directory of a local handle's file. It returns
// ErrNotWatchable for remote handles. The watcher stops when ctx ends.
func Watch(ctx context.Context, h *Handle, log *slog.Logger) (*Watcher, error) {
	cfg := h.Config()
	if cfg.Kind != KindLocal {
		return nil, ErrNotWatchable
	}
	if log == nil {
		log = observability.Discard()
	}
	abs, err := filepath.Abs(cfg.Local.Path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: tools that rebuild the file usually write a new
	// file and rename it over the old one.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{Done: make(chan struct{}), handle: h, path: abs, log: log}
	go w.loop(ctx, fsw)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()
	defer close(w.Done)

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				pending = true
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watchDebounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("data source watcher error", "path", w.path, "error", err)
		case <-debounce.C:
			if pending {
				pending = false
				w.handle.Invalidate()
				w.log.Info("data source file changed, pool invalidated", "path", w.path)
			}
		}
	}
}

// relevant matches the database file and its sqlite sidecars.
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	return name == w.path || name == w.path+"-wal" || name == w.path+"-journal"
}
