package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventLog persists events to SQLite. It is the Bus journal.
type EventLog struct {
	db *sql.DB
}

// NewEventLog creates a new event log.
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// RawEvent is a journaled event with its payload still encoded.
// Registry.Unmarshal turns it back into a concrete Event.
type RawEvent struct {
	ID         int64
	EventType  string
	EntityType string
	EntityID   string
	Payload    string
	OccurredAt time.Time
	CreatedAt  time.Time
}

const selectEvents = `SELECT id, event_type, entity_type, entity_id, payload, occurred_at, created_at FROM events `

// Append journals e and returns its row id.
func (l *EventLog) Append(e Event) (int64, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}

	res, err := l.db.Exec(
		`INSERT INTO events (event_type, entity_type, entity_id, payload, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.EventType(), e.EntityType(), e.EntityID(), string(payload), e.OccurredAt(),
	)
	if err != nil {
		return 0, fmt.Errorf("journal %s: %w", e.EventType(), err)
	}
	return res.LastInsertId()
}

// Since returns events that occurred at or after t, oldest first.
func (l *EventLog) Since(t time.Time) ([]RawEvent, error) {
	return l.query(`WHERE occurred_at >= ? ORDER BY id`, t)
}

// ForEntity returns one entity's history, oldest first.
func (l *EventLog) ForEntity(entityType, entityID string) ([]RawEvent, error) {
	return l.query(`WHERE entity_type = ? AND entity_id = ? ORDER BY id`, entityType, entityID)
}

// Recent returns the newest n events, newest first.
func (l *EventLog) Recent(n int) ([]RawEvent, error) {
	return l.query(`ORDER BY id DESC LIMIT ?`, n)
}

// CountByType returns how many events of each type occurred since t.
func (l *EventLog) CountByType(t time.Time) (map[string]int, error) {
	rows, err := l.db.Query(
		`SELECT event_type, COUNT(*) FROM events WHERE occurred_at >= ? GROUP BY event_type`, t)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// Prune deletes events older than maxAge and reports how many went.
func (l *EventLog) Prune(maxAge time.Duration) (int64, error) {
	res, err := l.db.Exec(`DELETE FROM events WHERE occurred_at < ?`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

func (l *EventLog) query(clause string, args ...any) ([]RawEvent, error) {
	rows, err := l.db.Query(selectEvents+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []RawEvent
	for rows.Next() {
		var e RawEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &e.Payload, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
