// internal/handlers/journal_test.go
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/tubebot/internal/events"
	"github.com/vmunix/tubebot/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupJournalDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Apply(db))
	return db
}

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) Prune(time.Duration) (int64, error) {
	p.calls.Add(1)
	return 0, p.err
}

func TestJournalHandler_Name(t *testing.T) {
	h := NewJournalHandler(events.NewBus(nil, nil), nil, JournalConfig{}, nil)
	assert.Equal(t, "journal", h.Name())
	assert.Equal(t, DefaultJournalMaxAge, h.config.MaxAge)
}

func TestJournalHandler_PrunesOldEvents(t *testing.T) {
	db := setupJournalDB(t)
	log := events.NewEventLog(db)

	oldEvent := events.NewBaseEvent(events.EventJobCreated, events.EntityJob, "old")
	oldEvent.Timestamp = time.Now().Add(-10 * 24 * time.Hour)
	_, err := log.Append(&events.JobCreated{BaseEvent: oldEvent, Identity: 1})
	require.NoError(t, err)
	_, err = log.Append(&events.JobCreated{BaseEvent: events.NewBaseEvent(events.EventJobCreated, events.EntityJob, "new"), Identity: 1})
	require.NoError(t, err)

	h := NewJournalHandler(events.NewBus(nil, nil), log, JournalConfig{MaxAge: 7 * 24 * time.Hour}, nil)
	h.prune()

	remaining, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].EntityID)
}

func TestJournalHandler_ConsumesUntilBusCloses(t *testing.T) {
	bus := events.NewBus(nil, nil)
	pruner := &countingPruner{err: errors.New("disk I/O error")}
	h := NewJournalHandler(bus, pruner, JournalConfig{PruneInterval: time.Hour}, nil)

	done := make(chan error, 1)
	go func() { done <- h.Start(context.Background()) }()

	require.Eventually(t, func() bool { return pruner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	for _, e := range []events.Event{
		&events.JobCompleted{BaseEvent: events.NewBaseEvent(events.EventJobCompleted, events.EntityJob, "j1"), Identity: 1, Size: 10},
		&events.JobFailed{BaseEvent: events.NewBaseEvent(events.EventJobFailed, events.EntityJob, "j2"), Identity: 1, Kind: "fetch_failed"},
		&events.JobCancelled{BaseEvent: events.NewBaseEvent(events.EventJobCancelled, events.EntityJob, "j3"), Identity: 1},
		&events.RequestRejected{BaseEvent: events.NewBaseEvent(events.EventRequestRejected, events.EntitySession, "1"), Identity: 1, Kind: "rate_limited"},
		&events.JobProgressed{BaseEvent: events.NewBaseEvent(events.EventJobProgressed, events.EntityJob, "j1"), Percent: 50},
	} {
		require.NoError(t, bus.Publish(context.Background(), e))
	}

	require.NoError(t, bus.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler did not stop after bus close")
	}
}

func TestJournalHandler_StopsOnCancel(t *testing.T) {
	bus := events.NewBus(nil, nil)
	defer bus.Close()
	h := NewJournalHandler(bus, nil, JournalConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("handler did not stop")
	}
}
