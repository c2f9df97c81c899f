package db

import (
	"fmt"
	"net/url"
	"strings"
)

// Dialect is the SQL flavour spoken by the opened database.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// WithDBName returns a DSN identical to the input but with the database path replaced.
// Supports postgres:// and postgresql:// schemes.
func WithDBName(dsn, database string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}
	// allow missing scheme by prefixing postgres://
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("cannot set database name on %s DSN", u.Scheme)
	}
	if !strings.HasPrefix(database, "/") {
		u.Path = "/" + database
	} else {
		u.Path = database
	}
	return u.String(), nil
}

// driverFor maps a DSN to a database/sql driver name and data source.
//
//	postgres://... postgresql://...  -> pgx
//	sqlite://path, sqlite://:memory: -> sqlite
//	file:path                        -> sqlite
func driverFor(dsn string) (driver, source string, dialect Dialect, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, Postgres, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", 0, fmt.Errorf("sqlite DSN %q has no path", dsn)
		}
		if path == ":memory:" {
			path = "file::memory:"
		}
		return "sqlite", withPragmas(path), SQLite, nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", withPragmas(dsn), SQLite, nil
	}
	return "", "", 0, fmt.Errorf("unsupported DSN %q (want postgres://, sqlite:// or file:)", dsn)
}

func withPragmas(source string) string {
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
