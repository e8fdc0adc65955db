package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/spimex-api/internal/store"
)

// SQLSTATE codes translated by MapError.
const (
	codeUndefinedTable    = "42P01"
	codeStringTruncation  = "22001"
	codeNumericOutOfRange = "22003"
	codeCheckViolation    = "23514"
	codeNotNullViolation  = "23502"
)

var pgErrorKinds = map[string]struct {
	sentinel error
	detail   func(*pgconn.PgError) string
}{
	codeUndefinedTable:    {store.ErrTableMissing, func(e *pgconn.PgError) string { return e.TableName }},
	codeStringTruncation:  {store.ErrInvalidEntity, func(*pgconn.PgError) string { return "value too long" }},
	codeNumericOutOfRange: {store.ErrInvalidEntity, func(*pgconn.PgError) string { return "number out of range" }},
	codeCheckViolation:    {store.ErrInvalidEntity, func(e *pgconn.PgError) string { return "check " + e.ConstraintName }},
	codeNotNullViolation:  {store.ErrInvalidEntity, func(e *pgconn.PgError) string { return "null " + e.ColumnName }},
}

// MapError translates driver errors into store sentinels. Unknown errors
// are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	kind, ok := pgErrorKinds[pgErr.Code]
	if !ok {
		return err
	}
	return fmt.Errorf("%w (%s): %v", kind.sentinel, kind.detail(pgErr), err)
}
