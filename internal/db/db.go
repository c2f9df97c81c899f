package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"subway-network/internal/subway"
)

// Store persists stations, lines and sections in PostgreSQL or SQLite.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens the database named by dsn. It does not touch the schema; call
// Migrate for that.
func Open(dsn string) (*Store, error) {
	driver, source, dialect, err := driverFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		// one writer at a time, and an in-memory database lives on one connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error { return s.db.Close() }

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		id BIGSERIAL PRIMARY KEY,
		line_id BIGINT NOT NULL REFERENCES lines(id) ON DELETE CASCADE,
		up_station_id BIGINT NOT NULL REFERENCES stations(id),
		down_station_id BIGINT NOT NULL REFERENCES stations(id),
		distance INTEGER NOT NULL CHECK (distance > 0),
		CHECK (up_station_id <> down_station_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_line ON sections(line_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		line_id INTEGER NOT NULL REFERENCES lines(id) ON DELETE CASCADE,
		up_station_id INTEGER NOT NULL REFERENCES stations(id),
		down_station_id INTEGER NOT NULL REFERENCES stations(id),
		distance INTEGER NOT NULL CHECK (distance > 0),
		CHECK (up_station_id <> down_station_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_line ON sections(line_id)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == SQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites $N placeholders to ?N for SQLite.
func (s *Store) rebind(q string) string {
	if s.dialect != SQLite {
		return q
	}
	var b strings.Builder
	b.Grow(len(q))
	for i := 0; i < len(q); i++ {
		if q[i] == '$' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
			b.WriteByte('?')
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// isUniqueViolation reports whether err is a unique constraint failure in
// either backend.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// snapshotOpts asks for a transaction in which every statement sees the
// same data. SQLite transactions already are.
func (s *Store) snapshotOpts() *sql.TxOptions {
	if s.dialect == SQLite {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func notFound(op, what string, id int64) error {
	return subway.Errorf(op, subway.KindNotFound, "%s %d", what, id)
}
