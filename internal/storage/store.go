package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store handles all database operations
type Store struct {
	db     *sql.DB
	driver string
}

// New opens a Store. dsn is a file path for sqlite3 and a connection URL for postgres.
func New(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer at a time keeps sqlite from returning SQLITE_BUSY under load
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, driver: driver}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the database driver name
func (s *Store) Driver() string {
	return s.driver
}

// IsUniqueViolation reports whether err is a unique or primary key conflict from either driver
func IsUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// migrate runs database migrations
func (s *Store) migrate(ctx context.Context) error {
	types := strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "DATETIME DEFAULT CURRENT_TIMESTAMP",
		"{{real}}", "REAL",
	)
	if s.driver == DriverPostgres {
		types = strings.NewReplacer(
			"{{id}}", "BIGSERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMP DEFAULT NOW()",
			"{{real}}", "DOUBLE PRECISION",
		)
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id {{id}},
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL DEFAULT '',
			created_at {{ts}}
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id {{id}},
			first_name TEXT NOT NULL,
			surname TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			qca {{real}} NOT NULL DEFAULT 0,
			year_of_study INTEGER NOT NULL DEFAULT 0,
			github TEXT NOT NULL DEFAULT '',
			linkedin TEXT NOT NULL DEFAULT '',
			created_at {{ts}}
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id {{id}},
			company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			salary TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			days_in_person INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			residency_term TEXT NOT NULL,
			created_at {{ts}}
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_company ON positions(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_term ON positions(residency_term)`,
		`CREATE TABLE IF NOT EXISTS interview_allocations (
			student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			created_at {{ts}},
			PRIMARY KEY (student_id, company_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_company ON interview_allocations(company_id)`,
		`CREATE TABLE IF NOT EXISTS rankings (
			kind TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			rank INTEGER NOT NULL CHECK (rank >= 1),
			updated_at {{ts}},
			PRIMARY KEY (kind, owner_id, item_id),
			UNIQUE (kind, owner_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rankings_owner ON rankings(kind, owner_id)`,
		`CREATE TABLE IF NOT EXISTS final_matches (
			student_id INTEGER PRIMARY KEY REFERENCES students(id) ON DELETE CASCADE,
			company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			combined_score INTEGER NOT NULL,
			qca {{real}} NOT NULL DEFAULT 0,
			run_id TEXT NOT NULL,
			created_at {{ts}}
		)`,
		`CREATE INDEX IF NOT EXISTS idx_final_matches_company ON final_matches(company_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, types.Replace(m)); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
