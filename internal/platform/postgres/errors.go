package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskpilot/internal/store"
)

// SQLSTATE codes raised by the tasks schema.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

type pgMapping struct {
	target error
	label  string
	detail func(*pgconn.PgError) string
}

func constraintName(e *pgconn.PgError) string { return e.ConstraintName }

func columnName(e *pgconn.PgError) string { return e.ColumnName }

var pgMappings = map[string]pgMapping{
	uniqueViolationCode:     {target: store.ErrTaskExists},
	foreignKeyViolationCode: {target: store.ErrInvalidEntity, label: "foreign key violation", detail: constraintName},
	checkViolationCode:      {target: store.ErrInvalidEntity, label: "check constraint violation", detail: constraintName},
	notNullViolationCode:    {target: store.ErrInvalidEntity, label: "not null violation", detail: columnName},
}

// MapError translates driver errors into store sentinels. The original error
// stays in the chain so callers can still inspect the *pgconn.PgError.
// Anything unrecognised is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	m, ok := pgMappings[pgErr.Code]
	if !ok {
		return err
	}
	if m.detail == nil {
		return fmt.Errorf("%w: %w", m.target, err)
	}
	return fmt.Errorf("%w: %s (%s): %w", m.target, m.label, m.detail(pgErr), err)
}

func rowsAffected(result sql.Result) (int64, error) {
	if result == nil {
		return 0, errors.New("nil result")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
