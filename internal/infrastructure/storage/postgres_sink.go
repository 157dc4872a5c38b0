package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ThreatIngest/internal/ports"
)

// ErrInvalidTarget is returned for table names that are not plain identifiers.
var ErrInvalidTarget = errors.New("invalid table name")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	category    TEXT        NOT NULL,
	payload     JSONB       NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DB is the part of pgxpool the sink uses (pgxmock satisfies it in tests).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSink stores delivered payloads as JSONB rows; the target names the table.
type PostgresSink struct {
	db DB
}

var _ ports.Sink = (*PostgresSink)(nil)

// NewPostgresSink wires a pgx pool or any compatible DB.
func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Connect opens a pool for dsn and pings it once.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureTarget creates the table when to_regclass does not resolve it.
func (s *PostgresSink) EnsureTarget(ctx context.Context, name string) error {
	if err := validateTable(name); err != nil {
		return err
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists); err != nil {
		return fmt.Errorf("lookup table %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, name)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// Submit inserts one row.
func (s *PostgresSink) Submit(ctx context.Context, target string, payload []byte, category string) error {
	if err := validateTable(target); err != nil {
		return err
	}

	query, args, err := squirrel.Insert(target).
		Columns("category", "payload").
		Values(category, string(payload)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", target, err)
	}
	return nil
}

func validateTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, name)
	}
	return nil
}
