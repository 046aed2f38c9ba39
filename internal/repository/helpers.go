package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrMediaNotInProduct is returned when a selection names media owned by another product.
var ErrMediaNotInProduct = errors.New("media does not belong to product")

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func conn(db *sql.DB, tx *sql.Tx) queryer {
	if tx != nil {
		return tx
	}
	return db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullTimeIn(nt sql.NullTime, loc *time.Location) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.In(loc)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
