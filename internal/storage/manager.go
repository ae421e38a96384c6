// Package storage owns per-job scratch directories under a single root.
package storage

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

// partialExts are the in-progress suffixes the extractor leaves behind.
var partialExts = []string{".part", ".ytdl", ".temp", ".tmp"}

// Manager hands out scopes under root and tracks which are in use.
type Manager struct {
	root   string
	log    *slog.Logger
	mu     sync.Mutex
	active map[string]*Scope // dir -> scope
}

// NewManager creates root if needed and returns a manager for it.
func NewManager(root string, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Manager{
		root:   abs,
		log:    log,
		active: make(map[string]*Scope),
	}, nil
}

// Root returns the absolute storage root.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a fresh, uniquely named directory for one job.
func (m *Manager) Acquire(jobID string) (*Scope, error) {
	dir, err := os.MkdirTemp(m.root, "job-"+sanitizeID(jobID)+"-")
	if err != nil {
		return nil, fmt.Errorf("create scope: %w", err)
	}

	s := &Scope{dir: dir, jobID: jobID, mgr: m}
	m.mu.Lock()
	m.active[dir] = s
	m.mu.Unlock()

	m.log.Debug("scope acquired", "job_id", jobID, "dir", dir)
	return s, nil
}

// Active returns the number of scopes not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) isActive(dir string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[dir]
	return ok
}

func (m *Manager) forget(dir string) {
	m.mu.Lock()
	delete(m.active, dir)
	m.mu.Unlock()
}

// removeUnder deletes path after checking it lies strictly inside root.
func (m *Manager) removeUnder(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	clean := filepath.Clean(abs)
	if !strings.HasPrefix(clean, m.root+string(filepath.Separator)) {
		m.log.Warn("refusing to delete path outside storage root", "path", path, "root", m.root)
		return ErrPathOutsideRoot
	}
	return os.RemoveAll(clean)
}

// Scope is one job's scratch directory. Release removes it exactly once.
type Scope struct {
	dir   string
	jobID string
	mgr   *Manager

	once sync.Once
	err  error
}

// Dir returns the scope directory.
func (s *Scope) Dir() string {
	return s.dir
}

// Contains reports whether path lies inside the scope directory.
func (s *Scope) Contains(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// OutputTemplate returns the extractor output template rooted in the scope.
func (s *Scope) OutputTemplate() string {
	return filepath.Join(s.dir, "%(title).80B [%(id)s].%(ext)s")
}

// Release removes the scope and everything in it. Calls after the first
// are no-ops that return nil.
func (s *Scope) Release() error {
	released := false
	s.once.Do(func() {
		released = true
		s.mgr.forget(s.dir)
		s.err = s.mgr.removeUnder(s.dir)
		if s.err != nil {
			s.mgr.log.Error("scope release failed", "job_id", s.jobID, "dir", s.dir, "error", s.err)
			return
		}
		s.mgr.log.Debug("scope released", "job_id", s.jobID, "dir", s.dir)
	})
	if !released {
		return nil
	}
	return s.err
}

// Artifact locates the file the extractor produced: the largest regular file
// in the scope that is not a partial download.
func (s *Scope) Artifact() (string, int64, error) {
	var (
		bestPath string
		bestSize int64 = -1
	)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() || isPartial(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() > bestSize {
			bestPath, bestSize = path, info.Size()
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("walk scope: %w", err)
	}
	if bestPath == "" {
		return "", 0, ErrNotFound
	}
	if bestSize == 0 {
		return bestPath, 0, ErrEmptyFile
	}
	return bestPath, bestSize, nil
}

// ValidateSize fails with ErrSizeExceeded when the file at path is larger
// than limit bytes. A file of exactly limit bytes passes.
func ValidateSize(path string, limit int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat artifact: %w", err)
	}
	if limit > 0 && info.Size() > limit {
		return fmt.Errorf("%w: %s > %s", ErrSizeExceeded,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(limit)))
	}
	return nil
}

// Verify runs the existence, emptiness and size checks on path.
func Verify(path string, limit int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	if info.Size() == 0 {
		return 0, ErrEmptyFile
	}
	if err := ValidateSize(path, limit); err != nil {
		return info.Size(), err
	}
	return info.Size(), nil
}

func isPartial(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range partialExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
