package job

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

// UserUsage is one identity's delivery counters.
type UserUsage struct {
	Identity      int64
	Completed     int
	Bytes         int64
	LastCompleted time.Time
}

// Usage counts completed deliveries per identity. Counters only move on a
// completed job. When db is non-nil the counters are persisted to the usage
// table and restored by Load.
type Usage struct {
	mu    sync.Mutex
	users map[int64]*UserUsage
	db    *sql.DB
}

// NewUsage creates usage counters, optionally backed by db.
func NewUsage(db *sql.DB) *Usage {
	return &Usage{
		users: make(map[int64]*UserUsage),
		db:    db,
	}
}

// Load restores persisted counters. It is a no-op without a database.
func (u *Usage) Load() error {
	if u.db == nil {
		return nil
	}
	rows, err := u.db.Query(`SELECT identity, completed, bytes, last_completed_at FROM usage`)
	if err != nil {
		return fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	u.mu.Lock()
	defer u.mu.Unlock()
	for rows.Next() {
		var (
			rec  UserUsage
			last sql.NullTime
		)
		if err := rows.Scan(&rec.Identity, &rec.Completed, &rec.Bytes, &last); err != nil {
			return fmt.Errorf("scan usage: %w", err)
		}
		if last.Valid {
			rec.LastCompleted = last.Time
		}
		u.users[rec.Identity] = &rec
	}
	return rows.Err()
}

// Record counts one completed delivery of size bytes. The row is written
// under the lock so persisted counters never go backwards.
func (u *Usage) Record(identity int64, size int64, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.users[identity]
	if !ok {
		rec = &UserUsage{Identity: identity}
		u.users[identity] = rec
	}
	rec.Completed++
	rec.Bytes += size
	rec.LastCompleted = at

	if u.db == nil {
		return nil
	}
	_, err := u.db.Exec(`
		INSERT INTO usage (identity, completed, bytes, last_completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			completed = excluded.completed,
			bytes = excluded.bytes,
			last_completed_at = excluded.last_completed_at`,
		rec.Identity, rec.Completed, rec.Bytes, rec.LastCompleted,
	)
	if err != nil {
		return fmt.Errorf("persist usage: %w", err)
	}
	return nil
}

// User returns the counters for identity.
func (u *Usage) User(identity int64) UserUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	if rec, ok := u.users[identity]; ok {
		return *rec
	}
	return UserUsage{Identity: identity}
}

// Totals is the aggregate over all identities.
type Totals struct {
	Users     int
	Completed int
	Bytes     int64
}

// Totals returns aggregate counters.
func (u *Usage) Totals() Totals {
	u.mu.Lock()
	defer u.mu.Unlock()
	t := Totals{Users: len(u.users)}
	for _, rec := range u.users {
		t.Completed += rec.Completed
		t.Bytes += rec.Bytes
	}
	return t
}

// Top returns up to n identities ordered by completed count.
func (u *Usage) Top(n int) []UserUsage {
	u.mu.Lock()
	out := make([]UserUsage, 0, len(u.users))
	for _, rec := range u.users {
		out = append(out, *rec)
	}
	u.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return out[i].Completed > out[j].Completed
		}
		return out[i].Identity < out[j].Identity
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
