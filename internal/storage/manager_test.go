package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	return m
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o640))
}

func TestAcquire_UniqueDirs(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Acquire("job-1")
	require.NoError(t, err)
	b, err := m.Acquire("job-1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.DirExists(t, a.Dir())
	assert.True(t, strings.HasPrefix(a.Dir(), m.Root()))
	assert.Equal(t, 2, m.Active())
}

func TestRelease_Idempotent(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Acquire("abc")
	require.NoError(t, err)
	writeFile(t, filepath.Join(s.Dir(), "video.mp4"), 10)

	require.NoError(t, s.Release())
	assert.NoDirExists(t, s.Dir())
	assert.Equal(t, 0, m.Active())

	assert.NoError(t, s.Release(), "second release is a no-op")
}

func TestRelease_AlreadyGone(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Acquire("abc")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(s.Dir()))

	assert.NoError(t, s.Release())
}

func TestArtifact(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Acquire("abc")
	require.NoError(t, err)
	defer s.Release()

	_, _, err = s.Artifact()
	assert.ErrorIs(t, err, ErrNotFound)

	writeFile(t, filepath.Join(s.Dir(), "clip.f137.mp4.part"), 5000)
	_, _, err = s.Artifact()
	assert.ErrorIs(t, err, ErrNotFound, "partial files are not artifacts")

	writeFile(t, filepath.Join(s.Dir(), "clip.mp4"), 100)
	writeFile(t, filepath.Join(s.Dir(), "clip.jpg"), 10)
	path, size, err := s.Artifact()
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", filepath.Base(path))
	assert.Equal(t, int64(100), size)
}

func TestArtifact_Empty(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Acquire("abc")
	require.NoError(t, err)
	defer s.Release()

	writeFile(t, filepath.Join(s.Dir(), "clip.mp4"), 0)
	_, _, err = s.Artifact()
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestValidateSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	writeFile(t, path, 1024)

	assert.NoError(t, ValidateSize(path, 1024), "limit is inclusive")
	assert.NoError(t, ValidateSize(path, 0), "zero disables the limit")

	err := ValidateSize(path, 1023)
	assert.ErrorIs(t, err, ErrSizeExceeded)

	assert.ErrorIs(t, ValidateSize(filepath.Join(dir, "missing"), 10), ErrNotFound)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.mp4")
	writeFile(t, empty, 0)
	_, err := Verify(empty, 100)
	assert.ErrorIs(t, err, ErrEmptyFile)

	big := filepath.Join(dir, "big.mp4")
	writeFile(t, big, 200)
	size, err := Verify(big, 100)
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.Equal(t, int64(200), size)

	size, err = Verify(big, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(200), size)
}

func TestRemoveUnder_RefusesOutsideRoot(t *testing.T) {
	m := newTestManager(t)
	outside := t.TempDir()

	assert.ErrorIs(t, m.removeUnder(outside), ErrPathOutsideRoot)
	assert.ErrorIs(t, m.removeUnder(m.Root()), ErrPathOutsideRoot, "root itself is never removed")
	assert.ErrorIs(t, m.removeUnder(filepath.Join(m.Root(), "..", filepath.Base(outside))), ErrPathOutsideRoot)
	assert.DirExists(t, outside)
}

func TestSweep(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	stale := filepath.Join(m.Root(), "job-old-123")
	writeFile(t, filepath.Join(stale, "leftover.mp4"), 10)
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(stale, "leftover.mp4"), old, old))
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(m.Root(), "job-new-456")
	writeFile(t, filepath.Join(fresh, "recent.mp4"), 10)

	held, err := m.Acquire("held")
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(held.Dir(), old, old))

	res, err := m.sweepAt(now, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 2, res.Skipped)
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, held.Dir(), "active scopes survive the sweep")
}

func TestScope_Contains(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	s, err := mgr.Acquire("job-1")
	require.NoError(t, err)
	defer s.Release()

	assert.True(t, s.Contains(filepath.Join(s.Dir(), "video.mp4")))
	assert.True(t, s.Contains(filepath.Join(s.Dir(), "sub", "video.mp4")))
	assert.False(t, s.Contains(s.Dir()))
	assert.False(t, s.Contains(filepath.Join(s.Dir(), "..", "other.mp4")))
	assert.False(t, s.Contains(filepath.Join(mgr.Root(), "stray.mp4")))
	assert.True(t, strings.HasPrefix(s.OutputTemplate(), s.Dir()))
}
