// Package clips maintains the inventory of locally available audio clips.
// A clip is a file in the configured directory with the configured
// extension and is identified by its file name without that extension.
package clips

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/citabot/internal/catalog"
)

var (
	// ErrClipNotFound is returned when a clip name does not resolve to an
	// existing file.
	ErrClipNotFound = errors.New("clips: clip not found")

	// ErrInvalidName is returned for names that could escape the clip
	// directory or are empty.
	ErrInvalidName = errors.New("clips: invalid clip name")

	// ErrInventoryMissing is returned by [Inventory.Reload] when the clip
	// directory does not exist.
	ErrInventoryMissing = errors.New("clips: clip directory does not exist")
)

// MaxNameLength is the longest clip identifier, in characters. Longer names
// cannot be carried as a select option value and are not listed.
const MaxNameLength = 100

// Clip is one playable audio file.
type Clip struct {
	// Name is the file name without extension; it is the clip identifier.
	Name string `yaml:"name"`

	// Path is the absolute or configured-relative path to the file.
	Path string `yaml:"path"`

	Size    int64     `yaml:"size"`
	ModTime time.Time `yaml:"mod_time"`
}

// Inventory lists the clips of one directory. [Inventory.Reload] rebuilds
// the listing from disk; readers see the listing of the last successful
// reload.
//
// Inventory is safe for concurrent use.
type Inventory struct {
	dir     string
	ext     string
	current atomic.Pointer[[]Clip]
}

// NewInventory returns an empty inventory over dir for files ending in ext
// (for example ".ogg"). Call [Inventory.Reload] to populate it.
func NewInventory(dir, ext string) *Inventory {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	inv := &Inventory{dir: dir, ext: ext}
	inv.current.Store(&[]Clip{})
	return inv
}

// Dir returns the directory this inventory lists.
func (inv *Inventory) Dir() string { return inv.dir }

// Reload lists the directory again and replaces the inventory. It returns
// the number of clips found. On error the previous listing is kept.
//
// The extension must match exactly, so every listed name resolves through
// [Inventory.Resolve] on case-sensitive filesystems too.
func (inv *Inventory) Reload() (int, error) {
	entries, err := os.ReadDir(inv.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrInventoryMissing, inv.dir)
	}
	if err != nil {
		return 0, fmt.Errorf("clips: read dir %q: %w", inv.dir, err)
	}

	list := make([]Clip, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), inv.ext)
		if e.IsDir() || !ok || validateName(name) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		list = append(list, Clip{
			Name:    name,
			Path:    filepath.Join(inv.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(list, func(a, b Clip) int { return strings.Compare(a.Name, b.Name) })

	inv.current.Store(&list)
	return len(list), nil
}

// List returns the clips of the last successful reload, sorted by name.
func (inv *Inventory) List() []Clip {
	return slices.Clone(*inv.current.Load())
}

// Names returns the clip identifiers of [Inventory.List].
func (inv *Inventory) Names() []string {
	list := *inv.current.Load()
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	return names
}

// Resolve maps a clip identifier to the file on disk. The file must exist
// at call time, regardless of whether it was present at the last reload.
func (inv *Inventory) Resolve(name string) (Clip, error) {
	if err := validateName(name); err != nil {
		return Clip{}, err
	}
	path := filepath.Join(inv.dir, name+inv.ext)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Clip{}, fmt.Errorf("%w: %q", ErrClipNotFound, name)
	}
	return Clip{Name: name, Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Suggest returns the listed clip name closest to name, for "did you mean"
// hints after a failed [Inventory.Resolve].
func (inv *Inventory) Suggest(name string) (string, bool) {
	return catalog.Closest(name, inv.Names(), catalog.DefaultSimilarity)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || utf8.RuneCountInString(name) > MaxNameLength ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
