package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/auth-web/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgx.
type PgxSessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(db DBTX) *PgxSessionRepository {
	return &PgxSessionRepository{db: db}
}

// Create inserts a new session.
func (r *PgxSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (token_hash, user_identifier, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, session.TokenHash, session.UserIdentifier, session.CreatedAt, session.ExpiresAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

// GetByTokenHash looks up the session by token hash.
// Returns (nil, nil) when the hash does not match any session.
func (r *PgxSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `
		SELECT token_hash, user_identifier, created_at, expires_at, invalidated_at
		FROM sessions
		WHERE token_hash = $1
	`

	var session domain.Session
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.TokenHash, &session.UserIdentifier, &session.CreatedAt,
		&session.ExpiresAt, &session.InvalidatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &session, nil
}

// Invalidate marks the session as logged out; the first invalidation time wins.
func (r *PgxSessionRepository) Invalidate(ctx context.Context, tokenHash string, at time.Time) error {
	query := `UPDATE sessions SET invalidated_at = $2 WHERE token_hash = $1 AND invalidated_at IS NULL`
	_, err := r.db.Exec(ctx, query, tokenHash, at)
	return err
}
