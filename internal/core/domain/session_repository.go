package domain

import (
	"context"
	"time"
)

// SessionState is the lifecycle position of a session at a given instant.
type SessionState int

const (
	SessionActive SessionState = iota
	SessionExpired
	SessionInvalidated
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionExpired:
		return "expired"
	case SessionInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Session is a stored login. Only the SHA-256 of the bearer token is kept,
// so a leaked store cannot be replayed against the service.
type Session struct {
	TokenHash      string     `bson:"_id"`
	UserIdentifier string     `bson:"user_identifier"`
	CreatedAt      time.Time  `bson:"created_at"`
	ExpiresAt      *time.Time `bson:"expires_at,omitempty"`
	InvalidatedAt  *time.Time `bson:"invalidated_at,omitempty"`
}

// StateAt evaluates the session lifecycle lazily at now.
// Invalidated is terminal and takes precedence over expiry.
func (s *Session) StateAt(now time.Time) SessionState {
	if s.InvalidatedAt != nil {
		return SessionInvalidated
	}
	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return SessionExpired
	}
	return SessionActive
}

// IssuedSession is returned once, at login. Token is the plaintext bearer
// credential handed to the client; it is not recoverable afterwards.
type IssuedSession struct {
	Token   string
	Session Session
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Create inserts a new session. Returns ErrDuplicateKey when the token
	// hash already exists, including hashes of invalidated sessions.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash looks up the session by token hash.
	// Returns (nil, nil) when the hash does not match any session.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Invalidate marks the session as logged out. Invalidating an unknown or
	// already invalidated session is not an error.
	Invalidate(ctx context.Context, tokenHash string, at time.Time) error
}
