package v1

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/auth-web/internal/core/domain"
	"github.com/duynhne/auth-web/internal/core/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errStoreDown = errors.New("connection refused")

// failingUsers is a UserRepository whose every call fails.
type failingUsers struct{}

func (failingUsers) Create(context.Context, *domain.User) error { return errStoreDown }
func (failingUsers) GetByIdentifier(context.Context, string) (*domain.User, error) {
	return nil, errStoreDown
}
func (failingUsers) List(context.Context) ([]domain.User, error) { return nil, errStoreDown }

// failingSessions is a SessionRepository whose every call fails.
type failingSessions struct{}

func (failingSessions) Create(context.Context, *domain.Session) error { return errStoreDown }
func (failingSessions) GetByTokenHash(context.Context, string) (*domain.Session, error) {
	return nil, errStoreDown
}
func (failingSessions) Invalidate(context.Context, string, time.Time) error { return errStoreDown }

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

type fixture struct {
	users    *repository.MemoryUserRepository
	sessions *repository.MemorySessionRepository
	clock    *fakeClock
	hasher   *BcryptHasher
	service  *AuthService
}

func newFixture(ttl time.Duration) *fixture {
	f := &fixture{
		users:    repository.NewMemoryUserRepository(),
		sessions: repository.NewMemorySessionRepository(),
		clock:    newClock(),
		hasher:   NewBcryptHasher(bcrypt.MinCost),
	}
	credentials := NewCredentialStore(f.users, f.hasher)
	issuer := NewSessionIssuer(f.sessions, ttl, WithClock(f.clock.Now))
	validator := NewSessionValidator(f.sessions, WithClock(f.clock.Now))
	f.service = NewAuthService(credentials, f.hasher, issuer, NewRouteGuard(validator))
	return f
}
