package session

import (
	"context"
	"database/sql"
	"time"

	"pizza-service/internal/models"
)

const (
	insertSessionQuery = `INSERT INTO sessions (token, user_id, issued_at, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO NOTHING`
	existsSessionQuery = `SELECT EXISTS (SELECT 1 FROM sessions WHERE token = $1)`
	deleteSessionQuery = `DELETE FROM sessions WHERE token = $1`
	pruneSessionsQuery = `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`
)

// PostgresStore keeps sessions in the sessions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Add(ctx context.Context, s models.Session, _ time.Duration) error {
	var expires sql.NullTime
	if !s.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: s.ExpiresAt, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, insertSessionQuery, s.Token, s.UserID, s.IssuedAt, expires)
	return err
}

func (p *PostgresStore) Exists(ctx context.Context, token string) (bool, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, existsSessionQuery, token).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (p *PostgresStore) Remove(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, deleteSessionQuery, token)
	return err
}

func (p *PostgresStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, pruneSessionsQuery, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
