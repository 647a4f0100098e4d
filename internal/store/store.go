// Stores day users, their raw GPS fixes and the time-homogenized records in a relational database.
// Both SQLite (mattn/go-sqlite3) and PostgreSQL (pgx) are supported.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite3"
	DriverPostgres = "pgx"
)

// Store wraps the database holding the trajectory schema.
type Store struct {
	db *sql.DB
	driver string
}

// Opens the database and creates the schema if needed.
// ctx: context for the schema creation
// driver: DriverSQLite or DriverPostgres
// dsn: file path for SQLite, connection string for PostgreSQL
// Returns the store or any errors
func Open(ctx context.Context, driver string, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS day_users (
			id ` + idColumn + `,
			user_label TEXT NOT NULL,
			day TEXT NOT NULL,
			start_time BIGINT NOT NULL DEFAULT 0,
			end_time BIGINT NOT NULL DEFAULT 0,
			duration BIGINT NOT NULL DEFAULT 0,
			count BIGINT NOT NULL DEFAULT 0,
			centroid_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			centroid_lon DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_lon DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_lon DOUBLE PRECISION NOT NULL DEFAULT 0,
			country TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			UNIQUE (user_label, day)
		)`,
		`CREATE TABLE IF NOT EXISTS raw_records (
			day_user_id BIGINT NOT NULL REFERENCES day_users(id) ON DELETE CASCADE,
			ts BIGINT NOT NULL,
			time BIGINT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			altitude DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_records_user ON raw_records(day_user_id, time)`,
		`CREATE TABLE IF NOT EXISTS homogenized_records (
			day_user_id BIGINT NOT NULL REFERENCES day_users(id) ON DELETE CASCADE,
			time BIGINT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (day_user_id, time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_homogenized_time ON homogenized_records(time)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Rewrites a query written with ? placeholders for the store's dialect.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Builds "?, ?, ?" for an IN list of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Records a metadata value.
func (s *Store) SetMeta(ctx context.Context, key string, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, value)
	return err
}

// Reads a metadata value. ok is false when the key was never set.
func (s *Store) Meta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM metadata WHERE key = ?`), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
