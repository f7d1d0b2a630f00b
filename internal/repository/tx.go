package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Storage-level violations surfaced to services.
var (
	ErrBookingOverlap              = errors.New("booking overlaps an existing booking in the classroom")
	ErrDuplicateActiveRegistration = errors.New("active registration already exists for student and class")
	ErrStillReferenced             = errors.New("row is still referenced")
)

const (
	pqUniqueViolation     = "23505"
	pqExclusionViolation  = "23P01"
	pqForeignKeyViolation = "23503"
)

type txKey struct{}

// executor is the query surface shared by *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Transactor runs units of work inside a single transaction carried by the context.
type Transactor struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

// NewTransactor constructs a Transactor. opts may be nil for the driver default isolation.
func NewTransactor(db *sqlx.DB, opts *sql.TxOptions) *Transactor {
	return &Transactor{db: db, opts: opts}
}

// WithinTransaction executes fn in a transaction, committing when fn returns nil.
// Nested calls join the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// conn returns the transaction stored in ctx, or db when none is active.
func conn(ctx context.Context, db *sqlx.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

func translateBookingErr(err error, op string) error {
	if isPQCode(err, pqExclusionViolation) {
		return fmt.Errorf("%s: %w", op, ErrBookingOverlap)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translateRegistrationErr(err error, op string) error {
	if isPQCode(err, pqUniqueViolation) {
		return fmt.Errorf("%s: %w", op, ErrDuplicateActiveRegistration)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translateDeleteErr(err error, op string) error {
	if isPQCode(err, pqForeignKeyViolation) {
		return fmt.Errorf("%s: %w", op, ErrStillReferenced)
	}
	return fmt.Errorf("%s: %w", op, err)
}
