package clips_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/citabot/internal/clips"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("OggS"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestInventory_Reload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "zap.ogg", "airhorn.ogg", "notes.txt", "LOUD.OGG")
	if err := os.Mkdir(filepath.Join(dir, "nested.ogg"), 0o755); err != nil {
		t.Fatal(err)
	}

	inv := clips.NewInventory(dir, "ogg")
	n, err := inv.Reload()
	if err != nil {
		t.Fatalf("Reload: unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("Reload count = %d, want 2", n)
	}

	want := []string{"airhorn", "zap"}
	if got := inv.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if p := inv.List()[0].Path; p != filepath.Join(dir, "airhorn.ogg") {
		t.Errorf("Path = %q, want %q", p, filepath.Join(dir, "airhorn.ogg"))
	}
}

func TestInventory_ListedNamesResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	long := strings.Repeat("x", clips.MaxNameLength+1)
	writeFiles(t, dir, "Boom.OGG", "a.ogg", "a.OGG", long+".ogg", strings.Repeat("y", clips.MaxNameLength)+".ogg")

	inv := clips.NewInventory(dir, ".ogg")
	if _, err := inv.Reload(); err != nil {
		t.Fatalf("Reload: unexpected error: %v", err)
	}

	names := inv.Names()
	want := []string{"a", strings.Repeat("y", clips.MaxNameLength)}
	if !slices.Equal(names, want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for _, n := range names {
		if _, err := inv.Resolve(n); err != nil {
			t.Errorf("Resolve(%q): unexpected error: %v", n, err)
		}
	}
	if _, err := inv.Resolve(long); !errors.Is(err, clips.ErrInvalidName) {
		t.Errorf("Resolve(long): expected ErrInvalidName, got %v", err)
	}
}

func TestInventory_ReloadRebuildsFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "a.ogg", "b.ogg")
	inv := clips.NewInventory(dir, ".ogg")
	if _, err := inv.Reload(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "a.ogg")); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, "c.ogg")

	if got := inv.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() before reload = %v, want [a b]", got)
	}
	if _, err := inv.Reload(); err != nil {
		t.Fatal(err)
	}
	if got := inv.Names(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Names() after reload = %v, want [b c]", got)
	}
}

func TestInventory_MissingDirKeepsListing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "a.ogg")
	inv := clips.NewInventory(dir, ".ogg")
	if _, err := inv.Reload(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	_, err := inv.Reload()
	if !errors.Is(err, clips.ErrInventoryMissing) {
		t.Fatalf("Reload: expected ErrInventoryMissing, got %v", err)
	}
	if got := inv.Names(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Names() = %v, want previous listing [a]", got)
	}
}

func TestInventory_Resolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "bell.ogg")
	inv := clips.NewInventory(dir, ".ogg")

	// Resolve checks the disk directly, even before any reload.
	c, err := inv.Resolve("bell")
	if err != nil {
		t.Fatalf("Resolve(bell): unexpected error: %v", err)
	}
	if c.Path != filepath.Join(dir, "bell.ogg") {
		t.Errorf("Path = %q, want %q", c.Path, filepath.Join(dir, "bell.ogg"))
	}

	tests := []struct {
		name string
		want error
	}{
		{"missing", clips.ErrClipNotFound},
		{"", clips.ErrInvalidName},
		{"..", clips.ErrInvalidName},
		{"../etc/passwd", clips.ErrInvalidName},
		{`a\b`, clips.ErrInvalidName},
	}
	for _, tt := range tests {
		if _, err := inv.Resolve(tt.name); !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%q): expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestInventory_Suggest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "airhorn.ogg", "tada.ogg")
	inv := clips.NewInventory(dir, ".ogg")
	if _, err := inv.Reload(); err != nil {
		t.Fatalf("Reload: unexpected error: %v", err)
	}

	if got, ok := inv.Suggest("airhron"); !ok || got != "airhorn" {
		t.Errorf("Suggest(airhron) = %q, %v; want %q, true", got, ok, "airhorn")
	}
	if got, ok := inv.Suggest("xylophone"); ok {
		t.Errorf("Suggest(xylophone) = %q, want no suggestion", got)
	}
}
