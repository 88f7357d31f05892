// Package sqlstore persists audit envelopes in a SQL table (audit_logs).
// The same code serves PostgreSQL and SQLite through a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/value"
	"hrcore/pkg/platform/sentinel"
	"hrcore/pkg/platform/tx"
)

const selectColumns = `id, entity_type, action, entity_id, old_data, new_data, changes, performed_by, created_at, updated_at`

// Store implements audit.Store on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	clock   func() time.Time
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) dbtx {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New wraps an open database. Call Migrate before first use on a fresh database.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the audit_logs table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("migrate %s audit schema: %w", s.dialect, err)
	}
	return nil
}

// Create inserts envelope and returns it with ID and timestamps assigned.
func (s *Store) Create(ctx context.Context, envelope *audit.Envelope) (*audit.Envelope, error) {
	stored := *envelope
	stored.ID = uuid.NewString()
	now := s.clock().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	oldData, err := encodeValue(stored.OldData)
	if err != nil {
		return nil, fmt.Errorf("marshal old data: %w", err)
	}
	newData, err := encodeValue(stored.NewData)
	if err != nil {
		return nil, fmt.Errorf("marshal new data: %w", err)
	}
	changes, err := encodeDelta(stored.Changes)
	if err != nil {
		return nil, fmt.Errorf("marshal changes: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO audit_logs (id, entity_type, action, entity_id, old_data, new_data, changes, performed_by, created_at, updated_at)
		VALUES (%s)
	`, s.placeholders(10))
	_, err = s.conn(ctx).ExecContext(ctx, query,
		stored.ID,
		stored.EntityType,
		string(stored.Action),
		stored.EntityID,
		oldData,
		newData,
		changes,
		stored.PerformedBy,
		s.dialect.encodeTime(stored.CreatedAt),
		s.dialect.encodeTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return &stored, nil
}

// FindByID returns sentinel.ErrNotFound for unknown or malformed IDs.
func (s *Store) FindByID(ctx context.Context, id string) (*audit.Envelope, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE id = %s`, selectColumns, s.dialect.bind(1))
	env, err := scanEnvelope(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find audit log: %w", err)
	}
	return env, nil
}

// List returns one page ordered by insertion, most recent first.
func (s *Store) List(ctx context.Context, page audit.Page) (*audit.PageResult, error) {
	page = page.Normalize()

	where := ""
	var args []any
	if page.EntityType != "" {
		where = "WHERE entity_type = " + s.dialect.bind(1)
		args = append(args, page.EntityType)
	}

	conn := s.conn(ctx)
	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs " + where
	if err := conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_logs %s ORDER BY seq DESC LIMIT %s OFFSET %s`,
		selectColumns, where, s.dialect.bind(len(args)+1), s.dialect.bind(len(args)+2))
	rows, err := conn.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	result := &audit.PageResult{
		Items:  []*audit.Envelope{},
		Number: page.Number,
		Size:   page.Size,
		Total:  total,
	}
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		result.Items = append(result.Items, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return result, nil
}

func (s *Store) placeholders(n int) string {
	binds := make([]string, n)
	for i := range binds {
		binds[i] = s.dialect.bind(i + 1)
	}
	return strings.Join(binds, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row rowScanner) (*audit.Envelope, error) {
	var (
		env                       audit.Envelope
		action                    string
		oldData, newData, changes sql.NullString
		createdAt, updatedAt      timeColumn
	)
	err := row.Scan(
		&env.ID,
		&env.EntityType,
		&action,
		&env.EntityID,
		&oldData,
		&newData,
		&changes,
		&env.PerformedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	env.Action = audit.Action(action)
	env.CreatedAt = createdAt.t
	env.UpdatedAt = updatedAt.t

	if env.OldData, err = decodeValue(oldData); err != nil {
		return nil, fmt.Errorf("decode old data: %w", err)
	}
	if env.NewData, err = decodeValue(newData); err != nil {
		return nil, fmt.Errorf("decode new data: %w", err)
	}
	if changes.Valid {
		env.Changes = diff.NewDelta()
		if err := json.Unmarshal([]byte(changes.String), env.Changes); err != nil {
			return nil, fmt.Errorf("decode changes: %w", err)
		}
	}
	return &env, nil
}

// encodeValue stores Null as SQL NULL so absent data stays absent.
func encodeValue(v value.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func encodeDelta(d *diff.Delta) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeValue(col sql.NullString) (value.Value, error) {
	if !col.Valid {
		return value.Null(), nil
	}
	return value.Parse([]byte(col.String))
}
