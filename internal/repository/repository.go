// Package repository implements the PostgreSQL stores for events,
// registrations and certificates. Queries are built with goqu and executed
// with pgx; every state-changing method runs inside one transaction so that
// lifecycle decisions are applied atomically.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyRegistered is returned when the same email registers twice.
var ErrAlreadyRegistered = errors.New("email already registered for this event")

// ErrConflict is returned when a write trips a uniqueness guarantee that the
// caller's decision should already have ruled out.
var ErrConflict = errors.New("conflicting write")

const (
	tableEvents        = "events"
	tableRegistrations = "registrations"
	tableCertificates  = "certificates"

	pgUniqueViolation = "23505"

	constraintRegistrationEmail = "registrations_event_id_email_key"
)

var dialect = goqu.Dialect("postgres")

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func toSQL(b sqlBuilder) (string, []any, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	return query, args, nil
}

func queryRow(ctx context.Context, q querier, b sqlBuilder) (pgx.Row, error) {
	query, args, err := toSQL(b)
	if err != nil {
		return nil, err
	}
	return q.QueryRow(ctx, query, args...), nil
}

func exec(ctx context.Context, q querier, b sqlBuilder) (pgconn.CommandTag, error) {
	query, args, err := toSQL(b)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return q.Exec(ctx, query, args...)
}

// withTx runs fn inside a transaction and commits only when fn succeeds.
func withTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
