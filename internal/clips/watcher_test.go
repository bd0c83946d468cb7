package clips_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrWong99/citabot/internal/clips"
)

func TestWatcher_ReloadsOnCreate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inv := clips.NewInventory(dir, ".ogg")
	if _, err := inv.Reload(); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan int, 4)
	w, err := clips.NewWatcher(context.Background(), inv,
		clips.WithDebounce(20*time.Millisecond),
		clips.WithOnReload(func(n int, err error) {
			if err == nil {
				reloaded <- n
			}
		}),
	)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)

	writeFiles(t, dir, "new.ogg", "ignored.txt")

	select {
	case n := <-reloaded:
		if n != 1 {
			t.Errorf("reload count = %d, want 1", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher reload")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	inv := clips.NewInventory(t.TempDir(), ".ogg")
	w, err := clips.NewWatcher(context.Background(), inv)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingDir(t *testing.T) {
	t.Parallel()

	inv := clips.NewInventory("/nonexistent/citabot-clips", ".ogg")
	if _, err := clips.NewWatcher(context.Background(), inv); err == nil {
		t.Fatal("NewWatcher: expected error for missing directory")
	}
}
