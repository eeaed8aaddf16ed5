package repository

import (
	"database/sql"
	"errors"
	"time"
)

// errUnstamped rejects inserts whose creation time was never set. Services
// stamp rows from their clock.
var errUnstamped = errors.New("repository: creation timestamp not set")

func stamp(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, errUnstamped
	}
	return t, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowsAffected turns a Result into a "did anything change" flag
func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
