package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/irsalhamdi/learnhub/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrDBNotFound  = errors.New("not found")
	ErrDBDuplicate = errors.New("duplicated entry")
)

const uniqueViolation = "23505"

func Open(cfg config.DB) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Open("postgres", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	return db, nil
}

func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var ok bool
	return db.QueryRowContext(ctx, `SELECT true`).Scan(&ok)
}

// Transaction runs fn inside a transaction, committing only when fn succeeds.
// The transaction is bound to ctx.
func Transaction(ctx context.Context, db *sqlx.DB, fn func(sqlx.ExtContext) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rollback transaction: %v: %w", rerr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NamedExecContext is a helper function to execute a CUD operation,
// translating postgres unique violations into ErrDBDuplicate.
func NamedExecContext(ctx context.Context, db sqlx.ExtContext, query string, data any) error {
	if _, err := sqlx.NamedExecContext(ctx, db, query, data); err != nil {
		return translate(err)
	}
	return nil
}

// NamedExecRows behaves like NamedExecContext but reports the affected rows.
func NamedExecRows(ctx context.Context, db sqlx.ExtContext, query string, data any) (int64, error) {
	res, err := sqlx.NamedExecContext(ctx, db, query, data)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// NamedQueryStruct runs a named query that is expected to return one row.
func NamedQueryStruct(ctx context.Context, db sqlx.ExtContext, query string, data any, dest any) error {
	q, args, err := sqlx.Named(query, data)
	if err != nil {
		return err
	}
	q = db.Rebind(q)

	if err := sqlx.GetContext(ctx, db, dest, q, args...); err != nil {
		return translate(err)
	}
	return nil
}

// NamedQuerySlice runs a named query returning any number of rows.
func NamedQuerySlice[T any](ctx context.Context, db sqlx.ExtContext, query string, data any, dest *[]T) error {
	q, args, err := sqlx.Named(query, data)
	if err != nil {
		return err
	}
	q = db.Rebind(q)

	var rows []T
	if err := sqlx.SelectContext(ctx, db, &rows, q, args...); err != nil {
		return translate(err)
	}
	if rows == nil {
		rows = []T{}
	}
	*dest = rows
	return nil
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDBNotFound
	}
	var pqerr *pq.Error
	if errors.As(err, &pqerr) && pqerr.Code == uniqueViolation {
		return ErrDBDuplicate
	}
	return err
}
