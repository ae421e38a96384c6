package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/tubebot/internal/config"
	"github.com/vmunix/tubebot/internal/events"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/server"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath, logLevel, initForce = "", "", false
		eventsJob, eventsLimit, eventsStats = "", 20, 0
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.ServerConfig{LogLevel: "debug", LogFormat: "json"})
	log.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNewLogger_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.ServerConfig{LogLevel: "warn", LogFormat: "text"})
	log.Info("quiet")
	log.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "msg=loud")
}

func TestPrintCandidate(t *testing.T) {
	c := &media.Candidate{
		Title:    "Clip",
		Uploader: "Chan",
		Duration: 90 * time.Second,
		Videos: []media.Format{
			{ID: "22", Ext: "mp4", Height: 720, Note: "720p", Size: 3 << 20},
			{ID: "18", Ext: "mp4", Height: 360, Note: "360p"},
		},
		AudioTiers: []media.AudioTier{"128"},
	}

	var buf bytes.Buffer
	printCandidate(&buf, c)
	out := buf.String()

	assert.Contains(t, out, "Title:     Clip")
	assert.Contains(t, out, "Duration:  1m30s")
	assert.NotContains(t, out, "Thumbnail")
	assert.Contains(t, out, "v:22")
	assert.Contains(t, out, "~3.0 MiB")
	assert.Contains(t, out, "a:128")
	assert.Equal(t, 8, strings.Count(out, "\n"), "three info lines, a blank, the header and one row per option")
}

func TestConfigInit_WritesAndRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tubebot", "config.toml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
}

func TestConfigTest_ReportsMissingToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.WriteDefault(path))
	t.Setenv("TUBEBOT_TELEGRAM_TOKEN", "")
	require.NoError(t, os.Unsetenv("TUBEBOT_TELEGRAM_TOKEN"))

	out, err := execute(t, "config", "test", path)
	require.Error(t, err)
	assert.Contains(t, out, "Missing environment variables:")
	assert.Contains(t, out, "TUBEBOT_TELEGRAM_TOKEN")
}

func TestConfigTest_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.WriteDefault(path))
	t.Setenv("TUBEBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TUBEBOT_DATA", dir)

	out, err := execute(t, "config", "test", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid!")
	assert.Contains(t, out, filepath.Join(dir, "downloads"))
	assert.Contains(t, out, "50 MiB per file")
}

func TestSweep_RemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "downloads")
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nroot = \""+filepath.ToSlash(root)+"\"\nsweep_horizon = \"1h\"\n"), 0o600))

	stale := filepath.Join(root, "job-old-1")
	require.NoError(t, os.MkdirAll(stale, 0o750))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	out, err := execute(t, "--config", path, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1, kept 0, errors 0")
	assert.NoDirExists(t, stale)
}

// journalConfig writes a config pointing at a journal seeded with events.
func journalConfig(t *testing.T, seed ...events.Event) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tubebot.db")

	db, err := server.OpenDB(dbPath)
	require.NoError(t, err)
	log := events.NewEventLog(db)
	for _, e := range seed {
		_, err := log.Append(e)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database]\npath = \""+filepath.ToSlash(dbPath)+"\"\n"), 0o600))
	return path
}

func TestEvents_RecentAndJob(t *testing.T) {
	path := journalConfig(t,
		&events.JobCreated{
			BaseEvent: events.NewBaseEvent(events.EventJobCreated, events.EntityJob, "j1"),
			Identity:  42, Selector: "22",
		},
		&events.JobFailed{
			BaseEvent: events.NewBaseEvent(events.EventJobFailed, events.EntityJob, "j1"),
			Identity:  42, From: "verifying", Kind: "size_exceeded", Reason: "too big",
		},
		&events.JobCreated{
			BaseEvent: events.NewBaseEvent(events.EventJobCreated, events.EntityJob, "j2"),
			Identity:  7, Selector: "128", Audio: true,
		},
	)

	out, err := execute(t, "--config", path, "events", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "job/j2")
	assert.Contains(t, out, "user 7: audio 128")
	assert.Contains(t, out, "size_exceeded while verifying: too big")
	assert.NotContains(t, out, "user 42: 22")

	out, err = execute(t, "--config", path, "events", "--job", "j1")
	require.NoError(t, err)
	assert.Contains(t, out, "user 42: 22")
	assert.NotContains(t, out, "job/j2")
}

func TestEvents_Stats(t *testing.T) {
	path := journalConfig(t,
		&events.StorageSwept{BaseEvent: events.NewBaseEvent(events.EventStorageSwept, events.EntityStorage, "root"), Removed: 1},
		&events.StorageSwept{BaseEvent: events.NewBaseEvent(events.EventStorageSwept, events.EntityStorage, "root"), Removed: 2},
	)

	out, err := execute(t, "--config", path, "events", "--stats", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Regexp(t, `storage\.swept\s+2`, out)
}

func TestEvents_NoDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\n"), 0o600))

	_, err := execute(t, "--config", path, "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.path")
}

func TestDescribeEvent_Progress(t *testing.T) {
	got := describeEvent(&events.JobProgressed{Percent: 49.6, Total: 10 << 20})
	assert.Equal(t, "50% of 10 MiB", got)
}
