package sqlstore

import (
	_ "embed"
	"fmt"
	"time"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// sqliteTimeLayout is fixed-width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	name       string
	schema     string
	bind       func(n int) string
	encodeTime func(t time.Time) any
}

var (
	// Postgres expects the pgx stdlib driver ("pgx").
	Postgres = Dialect{
		name:       "postgres",
		schema:     postgresSchema,
		bind:       func(n int) string { return fmt.Sprintf("$%d", n) },
		encodeTime: func(t time.Time) any { return t.UTC() },
	}
	// SQLite expects the modernc.org/sqlite driver ("sqlite").
	SQLite = Dialect{
		name:       "sqlite",
		schema:     sqliteSchema,
		bind:       func(int) string { return "?" },
		encodeTime: func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
	}
)

func (d Dialect) String() string { return d.name }

// timeColumn scans timestamps stored natively (postgres) or as text (sqlite).
type timeColumn struct {
	t time.Time
}

func (c *timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		c.t = v.UTC()
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	case nil:
		c.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (c *timeColumn) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan timestamp %q: %w", s, err)
	}
	c.t = t.UTC()
	return nil
}
