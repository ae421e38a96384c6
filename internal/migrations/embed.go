// Package migrations provides embedded SQL migration files.
package migrations

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed sql/001_events.sql
var EventsSQL string

//go:embed sql/002_usage.sql
var UsageSQL string

// All lists migrations in apply order. Each is idempotent.
var All = []string{EventsSQL, UsageSQL}

// Apply runs every migration against db.
func Apply(db *sql.DB) error {
	for i, m := range All {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %03d: %w", i+1, err)
		}
	}
	return nil
}
