package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duynhne/auth-web/internal/core/domain"
)

// DBTX is the subset of *pgxpool.Pool used by the pgx repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxUserRepository implements domain.UserRepository using pgx.
type PgxUserRepository struct {
	db DBTX
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(db DBTX) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

// Create inserts a new user. The UNIQUE constraint on identifier decides
// concurrent signups.
func (r *PgxUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, identifier, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, user.ID, user.Identifier, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

// GetByIdentifier returns the user matching the given identifier.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT id, identifier, password_hash, created_at FROM users WHERE identifier = $1`

	var user domain.User
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&user.ID, &user.Identifier, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// List returns every user ordered by creation time.
func (r *PgxUserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT id, identifier, password_hash, created_at FROM users ORDER BY created_at, identifier`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Identifier, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
