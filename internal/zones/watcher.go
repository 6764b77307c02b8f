package zones

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pixil98/mudcore/internal/game"
)

const DefaultSettleDelay = 500 * time.Millisecond

// Poster runs a unit inside the serializer.
type Poster interface {
	Post(name string, fn func(ctx context.Context, w *game.World)) error
}

// Watcher reloads a zone when its file is written. Editors often write a
// file in several steps, so a reload waits until the file has been quiet for
// the settle delay.
type Watcher struct {
	dir    string
	poster Poster
	settle time.Duration
	ready  []<-chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

type WatcherOpt func(*Watcher)

func WithSettleDelay(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithReady delays watching until ch is closed, normally when the world has
// finished its first load.
func WithReady(ch <-chan struct{}) WatcherOpt {
	return func(w *Watcher) {
		w.ready = append(w.ready, ch)
	}
}

func NewWatcher(dir string, poster Poster, opts ...WatcherOpt) *Watcher {
	w := &Watcher{
		dir:     dir,
		poster:  poster,
		settle:  DefaultSettleDelay,
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Start(ctx context.Context) error {
	for _, ch := range w.ready {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating zone watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.InfoContext(ctx, "watching zone files", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "zone watcher", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !IsZoneFile(ev.Name) {
		return
	}
	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		w.schedule(ctx, ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// The zone stays loaded until the server restarts.
		slog.WarnContext(ctx, "zone file removed, keeping loaded zone", "path", ev.Name)
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.reload(ctx, path)
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// reload reads the file here and swaps the zone inside the serializer.
func (w *Watcher) reload(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.ErrorContext(ctx, "reading changed zone file", "path", path, "error", err)
		return
	}

	err = w.poster.Post("reload "+path, func(ctx context.Context, world *game.World) {
		if err := ReloadZone(ctx, world, data, path); err != nil {
			slog.ErrorContext(ctx, "zone reload failed, keeping loaded zone", "path", path, "error", err)
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "queueing zone reload", "path", path, "error", err)
	}
}

// ReloadZone replaces the zone a document defines and checks the result.
// A document that fails to load leaves the world unchanged.
func ReloadZone(ctx context.Context, w *game.World, data []byte, source string) error {
	z, err := w.ReplaceZone(data, source)
	if err != nil {
		return err
	}
	_ = report(ctx, w.ValidateWorld())

	// Repopulate right away rather than waiting for the reset timer.
	if _, err := w.ForceReset(z.Id); err != nil {
		return fmt.Errorf("resetting zone %d: %w", z.Id, err)
	}
	return nil
}
