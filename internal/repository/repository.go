// Package repository is the PostgreSQL data access layer for users,
// franchises, stores, the menu and orders.
package repository

import (
	"context"
	"database/sql"
	_ "embed"

	"pizza-service/internal/common/database"
	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"

	"github.com/google/uuid"
)

//go:embed schema.sql
var schemaSQL string

type Repository struct {
	db     *sql.DB
	logger logger.Logger
	newID  func() string
}

func New(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "repository"}),
		newID:  uuid.NewString,
	}
}

// EnsureSchema creates missing tables. It is safe to run on every boot.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return apperrors.NewInternalError("ensure schema", err)
	}
	return nil
}

func (r *Repository) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return wrapErr(op, database.WithTx(ctx, r.db, fn))
}

// wrapErr keeps typed errors and turns anything else into an internal error.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewInternalError(op, err)
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

func exists(ctx context.Context, q database.DBTX, query string, args ...interface{}) (bool, error) {
	var ok bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
