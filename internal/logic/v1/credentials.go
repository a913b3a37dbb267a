package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/auth-web/internal/core/domain"
	"github.com/duynhne/auth-web/middleware"
)

// CredentialStore creates and looks up user records. Passwords are hashed
// before they reach the repository and are never stored in plaintext.
type CredentialStore struct {
	users  domain.UserRepository
	hasher PasswordHasher
	now    func() time.Time
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(users domain.UserRepository, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{
		users:  users,
		hasher: hasher,
		now:    time.Now,
	}
}

// CreateUser hashes password with a fresh salt and persists a new user.
// Concurrent signups for the same identifier are decided by the store's
// unique constraint; the losers get ErrDuplicateIdentifier.
func (s *CredentialStore) CreateUser(ctx context.Context, identifier, password string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "credentials.create_user", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("identifier", identifier),
	))
	defer span.End()

	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("register %q: %w", identifier, err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("register %q: %w", identifier, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("insert user: %w: %w", ErrStoreUnavailable, err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

// FindByIdentifier returns the user with identifier, or (nil, nil).
func (s *CredentialStore) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("query user %q: %w: %w", identifier, ErrStoreUnavailable, err)
	}
	return user, nil
}

// ListUsers returns every registered user.
func (s *CredentialStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %w", ErrStoreUnavailable, err)
	}
	return users, nil
}
