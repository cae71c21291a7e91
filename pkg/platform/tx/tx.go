// Package tx provides the commit boundary used by services. A Runner opens a
// unit of work, stores drain reads/writes through the transaction carried in
// context, and the provisioning workflow commits once per step so generated
// ids are durably visible before the next step references them.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes fn inside one commit boundary. Implementations commit when
// fn returns nil and roll back when it returns an error.
type Runner interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs each unit of work in a database transaction.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested Execute joins the enclosing transaction; the outermost call
	// owns commit/rollback.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NopRunner satisfies Runner for in-memory stores, which apply writes
// immediately and have no transactional boundary to manage.
type NopRunner struct{}

func (NopRunner) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
