package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema uses types understood by both PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	faculty TEXT NOT NULL,
	total_points INTEGER NOT NULL DEFAULT 0,
	weekly_points INTEGER NOT NULL DEFAULT 0,
	monthly_points INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL REFERENCES students(id),
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	sdgs TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL DEFAULT 0,
	occurred_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS badges (
	id TEXT NOT NULL,
	student_id TEXT NOT NULL REFERENCES students(id),
	name TEXT NOT NULL,
	earned_at TIMESTAMP NOT NULL,
	PRIMARY KEY (id, student_id)
)`,
	`CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	sdgs TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL DEFAULT 0,
	starts_at TIMESTAMP NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	capacity INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS event_registrations (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL REFERENCES students(id),
	event_id TEXT NOT NULL,
	status TEXT NOT NULL,
	registered_at TIMESTAMP NOT NULL,
	rating_overall INTEGER,
	rating_content INTEGER,
	rating_organization INTEGER,
	rating_venue INTEGER,
	rating_relevance INTEGER,
	highlights TEXT,
	improvements TEXT,
	would_recommend BOOLEAN
)`,
	`CREATE TABLE IF NOT EXISTS rewards (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	point_cost INTEGER NOT NULL DEFAULT 0,
	initial_stock INTEGER NOT NULL DEFAULT 0,
	stock INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS report_jobs (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	params TEXT NOT NULL,
	status TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	result_url TEXT,
	created_by TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	error_message TEXT
)`,
}

// EnsureSchema creates the tables the service reads and writes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
