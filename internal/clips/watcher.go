package clips

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces bursts of file events (copying a directory of
// clips produces many) into one reload.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads an [Inventory] whenever a clip file is created, removed
// or renamed in its directory.
type Watcher struct {
	inv      *Inventory
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onReload func(count int, err error)

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last event before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnReload registers a callback invoked after every watcher-triggered
// reload.
func WithOnReload(fn func(count int, err error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher starts watching the directory of inv. The returned watcher
// runs until ctx is cancelled or [Watcher.Stop] is called.
func NewWatcher(ctx context.Context, inv *Inventory, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("clips: create watcher: %w", err)
	}
	if err := fsw.Add(inv.Dir()); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("clips: watch %q: %w", inv.Dir(), err)
	}

	w := &Watcher{
		inv:      inv,
		fsw:      fsw,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.run(ctx)
	slog.Info("clips: watching directory", "dir", inv.Dir())
	return w, nil
}

// Stop stops watching and waits for the event loop to exit. It is safe to
// call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.stopOnce.Do(func() {
				close(w.done)
				_ = w.fsw.Close()
			})
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("clips: watcher error", "dir", w.inv.Dir(), "err", err)
		case <-timer.C:
			n, err := w.inv.Reload()
			if err != nil {
				slog.Warn("clips: reload after change failed", "dir", w.inv.Dir(), "err", err)
			} else {
				slog.Info("clips: inventory reloaded after change", "count", n)
			}
			if w.onReload != nil {
				w.onReload(n, err)
			}
		}
	}
}

// relevant reports whether ev can change the inventory. Plain writes to an
// existing clip do not.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, w.inv.ext) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
