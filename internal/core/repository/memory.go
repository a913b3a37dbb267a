package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/duynhne/auth-web/internal/core/domain"
)

// MemoryUserRepository is an in-process domain.UserRepository used by tests
// and by DB_DRIVER=memory. Data does not survive a restart.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User // keyed by identifier
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

// Create inserts a new user.
func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Identifier]; ok {
		return domain.ErrDuplicateKey
	}
	r.users[user.Identifier] = *user
	return nil
}

// GetByIdentifier returns a copy of the stored user, or (nil, nil).
func (r *MemoryUserRepository) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[identifier]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// List returns every user ordered by creation time.
func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Identifier < users[j].Identifier
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// MemorySessionRepository is an in-process domain.SessionRepository.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session // keyed by token hash
}

// NewMemorySessionRepository creates an empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]domain.Session)}
}

// Create inserts a new session.
func (r *MemorySessionRepository) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.TokenHash]; ok {
		return domain.ErrDuplicateKey
	}
	r.sessions[session.TokenHash] = *session
	return nil
}

// GetByTokenHash returns a copy of the stored session, or (nil, nil).
func (r *MemorySessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// Invalidate marks the session as logged out; the first invalidation time wins.
func (r *MemorySessionRepository) Invalidate(_ context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[tokenHash]
	if !ok || session.InvalidatedAt != nil {
		return nil
	}
	session.InvalidatedAt = &at
	r.sessions[tokenHash] = session
	return nil
}

// Put stores session as-is, overwriting any existing record. It lets tests
// seed sessions in states the issuer never produces directly.
func (r *MemorySessionRepository) Put(session domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.TokenHash] = session
}

// Len reports how many session records are stored.
func (r *MemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
