package postgres

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/turtacn/credence/pkg/errors"
)

const pgUniqueViolation = "23505"

// mapDBError turns a gorm error into the domain error for resource.
func mapDBError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrResourceNotFound(resource)
	}
	if isUniqueViolation(err) {
		return errors.ErrConflict.WithMessage(resource + " already exists").WithMetadata("resource", resource)
	}
	return errors.ErrInternal("database operation failed", err)
}

func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
