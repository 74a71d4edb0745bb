// Package workspace owns one project directory: it resolves paths inside it,
// lists its contents and caches a classification of its media files.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/seantiz/podfree/internal/sandbox"
)

// ErrNotDirectory is returned when a listed path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Context is an explicit handle on a workspace root. The cached summary is
// recomputed on demand and dropped by Invalidate after jobs change the tree.
type Context struct {
	root   string
	logger *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	cached *Summary
	gen    uint64
}

// New canonicalizes root and returns a Context for it. The directory must
// already exist.
func New(root string, logger *slog.Logger) (*Context, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s: %w", canonical, ErrNotDirectory)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{root: canonical, logger: logger}, nil
}

// Root returns the canonical workspace root.
func (c *Context) Root() string {
	return c.root
}

// Resolve maps a caller-supplied path to an absolute path inside the root.
func (c *Context) Resolve(p string) (string, error) {
	return sandbox.Resolve(c.root, p)
}

// Summary returns the cached summary, computing it on first use.
func (c *Context) Summary() (Summary, error) {
	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	return c.Refresh()
}

// Refresh rescans the workspace. Concurrent callers share one scan.
func (c *Context) Refresh() (Summary, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.group.Do("summary", func() (any, error) {
		s, err := Summarize(c.root)
		if err != nil {
			return Summary{}, err
		}
		c.mu.Lock()
		// A scan that raced with Invalidate may already be stale.
		if c.gen == gen {
			c.cached = &s
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		c.logger.Error("workspace scan failed", "path", c.root, "error", err)
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Invalidate drops the cached summary so the next Summary call rescans.
func (c *Context) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget("summary")
	c.logger.Debug("workspace summary invalidated", "path", c.root)
}

// Entry is one item of a directory listing.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Crumb is one step of the path from the root to a listed directory.
type Crumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the content of one workspace directory.
type Listing struct {
	Path        string  `json:"path"`
	Entries     []Entry `json:"entries"`
	Breadcrumbs []Crumb `json:"breadcrumbs"`
}

// ListDir lists the directory rel (relative to the root). Directories sort
// before files and dotfiles are hidden.
func (c *Context) ListDir(rel string) (Listing, error) {
	dir, err := c.Resolve(rel)
	if err != nil {
		return Listing{}, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("list %s: %w", rel, err)
	}
	if !info.IsDir() {
		return Listing{}, fmt.Errorf("%s: %w", rel, ErrNotDirectory)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("list %s: %w", rel, err)
	}

	relDir, err := filepath.Rel(c.root, dir)
	if err != nil {
		return Listing{}, fmt.Errorf("list %s: %w", rel, err)
	}
	relDir = filepath.ToSlash(relDir)
	if relDir == "." {
		relDir = ""
	}

	listing := Listing{Path: relDir, Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		entry := Entry{
			Name:    e.Name(),
			Path:    joinRel(relDir, e.Name()),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime().UTC(),
		}
		if !entry.IsDir {
			entry.Size = info.Size()
		}
		listing.Entries = append(listing.Entries, entry)
	}
	slices.SortFunc(listing.Entries, func(a, b Entry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	listing.Breadcrumbs = []Crumb{{Name: filepath.Base(c.root), Path: ""}}
	if relDir != "" {
		acc := ""
		for _, part := range strings.Split(relDir, "/") {
			acc = joinRel(acc, part)
			listing.Breadcrumbs = append(listing.Breadcrumbs, Crumb{Name: part, Path: acc})
		}
	}
	return listing, nil
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
