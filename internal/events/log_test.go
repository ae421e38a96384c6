package events

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/tubebot/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Apply(db))
	return db
}

func TestEventLog_Append(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	e := &JobCreated{
		BaseEvent: NewBaseEvent(EventJobCreated, EntityJob, "job-1"),
		Identity:  42,
		URL:       "https://youtu.be/abc",
		Selector:  "22",
	}

	id, err := log.Append(e)
	require.NoError(t, err)
	assert.Positive(t, id)

	events, err := log.ForEntity(EntityJob, "job-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Payload, `"selector":"22"`)
	assert.Equal(t, EventJobCreated, events[0].EventType)
	assert.Equal(t, EntityJob, events[0].EntityType)
	assert.Equal(t, "job-1", events[0].EntityID)
}

func TestEventLog_Since(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	old := &JobCreated{BaseEvent: NewBaseEvent(EventJobCreated, EntityJob, "old")}
	old.Timestamp = time.Now().Add(-2 * time.Hour)
	for _, e := range []Event{
		old,
		&JobCreated{BaseEvent: NewBaseEvent(EventJobCreated, EntityJob, "j1")},
		&JobCancelled{BaseEvent: NewBaseEvent(EventJobCancelled, EntityJob, "j1"), From: "fetching"},
	} {
		_, err := log.Append(e)
		require.NoError(t, err)
	}

	events, err := log.Since(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventJobCreated, events[0].EventType)
	assert.Equal(t, EventJobCancelled, events[1].EventType)
	assert.Contains(t, events[1].Payload, `"from":"fetching"`)
}

func TestEventLog_ForEntity(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	for _, e := range []Event{
		&JobCreated{BaseEvent: NewBaseEvent(EventJobCreated, EntityJob, "a")},
		&JobCreated{BaseEvent: NewBaseEvent(EventJobCreated, EntityJob, "b")},
		&JobCompleted{BaseEvent: NewBaseEvent(EventJobCompleted, EntityJob, "a"), Size: 10},
	} {
		_, err := log.Append(e)
		require.NoError(t, err)
	}

	events, err := log.ForEntity(EntityJob, "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventJobCreated, events[0].EventType)
	assert.Equal(t, EventJobCompleted, events[1].EventType)

	events, err = log.ForEntity(EntityJob, "b")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventLog_Prune(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	stale := &StorageSwept{BaseEvent: NewBaseEvent(EventStorageSwept, EntityStorage, "root"), Removed: 3}
	stale.Timestamp = time.Now().Add(-10 * 24 * time.Hour)
	_, err := log.Append(stale)
	require.NoError(t, err)
	_, err = log.Append(&StorageSwept{BaseEvent: NewBaseEvent(EventStorageSwept, EntityStorage, "root"), Removed: 1})
	require.NoError(t, err)

	n, err := log.Prune(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := log.Since(time.Time{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Contains(t, left[0].Payload, `"removed":1`)

	n, err = log.Prune(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEventLog_Recent(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	for i := 1; i <= 5; i++ {
		_, err := log.Append(&JobCompleted{
			BaseEvent: NewBaseEvent(EventJobCompleted, EntityJob, fmt.Sprintf("job-%d", i)),
			Size:      int64(i),
		})
		require.NoError(t, err)
	}

	events, err := log.Recent(3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "job-5", events[0].EntityID)
	assert.Equal(t, "job-4", events[1].EntityID)
	assert.Equal(t, "job-3", events[2].EntityID)
}

func TestEventLog_CountByType(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	for _, e := range []Event{
		&JobCompleted{BaseEvent: NewBaseEvent(EventJobCompleted, EntityJob, "a")},
		&JobCompleted{BaseEvent: NewBaseEvent(EventJobCompleted, EntityJob, "b")},
		&JobFailed{BaseEvent: NewBaseEvent(EventJobFailed, EntityJob, "c"), Kind: "size_exceeded"},
	} {
		_, err := log.Append(e)
		require.NoError(t, err)
	}

	counts, err := log.CountByType(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, counts[EventJobCompleted])
	assert.Equal(t, 1, counts[EventJobFailed])
}

// testEvent is a concrete event type for testing
type testEvent struct {
	BaseEvent
	Message string `json:"message"`
}
