package domain

import (
	"context"
	"time"
)

// User is a stored account. PasswordHash is a salted one-way digest and
// never leaves the Logic layer.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Identifier   string    `bson:"identifier" json:"identifier"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on a driver directly.
type UserRepository interface {
	// Create inserts a new user. Returns ErrDuplicateKey when the identifier
	// is already taken; uniqueness is enforced by the store itself.
	Create(ctx context.Context, user *User) error

	// GetByIdentifier returns the user matching the given identifier.
	// Returns (nil, nil) when no user is found.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// List returns every user ordered by creation time.
	List(ctx context.Context) ([]User, error)
}
