package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Removed int
	Skipped int
	Errors  int
}

// Sweep removes entries under root whose newest modification is older than
// horizon. Scopes still held by a job are never touched.
func (m *Manager) Sweep(horizon time.Duration) (SweepResult, error) {
	return m.sweepAt(time.Now(), horizon)
}

func (m *Manager) sweepAt(now time.Time, horizon time.Duration) (SweepResult, error) {
	var res SweepResult

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return res, fmt.Errorf("read storage root: %w", err)
	}

	cutoff := now.Add(-horizon)
	for _, e := range entries {
		path := filepath.Join(m.root, e.Name())
		if m.isActive(path) {
			res.Skipped++
			continue
		}

		newest, err := newestModTime(path)
		if err != nil {
			m.log.Warn("sweep stat failed", "path", path, "error", err)
			res.Errors++
			continue
		}
		if newest.After(cutoff) {
			res.Skipped++
			continue
		}

		if err := m.removeUnder(path); err != nil {
			m.log.Error("sweep remove failed", "path", path, "error", err)
			res.Errors++
			continue
		}
		m.log.Info("swept stale entry", "path", path, "age", now.Sub(newest).Round(time.Second))
		res.Removed++
	}
	return res, nil
}

// newestModTime returns the latest mtime of path or anything beneath it.
func newestModTime(path string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}
