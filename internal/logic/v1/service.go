package v1

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/auth-web/internal/core/domain"
	"github.com/duynhne/auth-web/middleware"
)

// timingPassword feeds the dummy hash used when the identifier is unknown.
const timingPassword = "timing-equalization-only"

// AuthService implements the signup, login, logout and guarded-listing
// flows on top of the credential store and session components.
// It depends on repository interfaces only and MUST NOT access a driver directly.
type AuthService struct {
	credentials *CredentialStore
	hasher      PasswordHasher
	issuer      *SessionIssuer
	guard       *RouteGuard

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService from its collaborators.
func NewAuthService(credentials *CredentialStore, hasher PasswordHasher, issuer *SessionIssuer, guard *RouteGuard) *AuthService {
	return &AuthService{
		credentials: credentials,
		hasher:      hasher,
		issuer:      issuer,
		guard:       guard,
	}
}

// Signup creates a user. It does not log the user in.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.signup", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("identifier", req.Identifier),
	))
	defer span.End()

	user, err := s.credentials.CreateUser(ctx, req.Identifier, req.Password)
	if err != nil {
		span.SetAttributes(attribute.Bool("signup.success", false))
		switch {
		case errors.Is(err, ErrDuplicateIdentifier):
			Signups.WithLabelValues("duplicate").Inc()
		case errors.Is(err, ErrInvalidInput):
			Signups.WithLabelValues("invalid").Inc()
		default:
			span.RecordError(err)
			Signups.WithLabelValues(ResultError).Inc()
		}
		return nil, err
	}

	Signups.WithLabelValues(ResultSuccess).Inc()
	span.SetAttributes(attribute.Bool("signup.success", true))
	span.AddEvent("user.registered")
	return user, nil
}

// Login verifies credentials and issues a session. Unknown identifiers and
// wrong passwords both yield ErrInvalidCredentials, after the same amount
// of hashing work.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.IssuedSession, *domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("identifier", req.Identifier),
	))
	defer span.End()

	user, err := s.credentials.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		span.RecordError(err)
		Logins.WithLabelValues(ResultError).Inc()
		return nil, nil, err
	}

	if user == nil {
		_, _ = s.hasher.Verify(timingPassword, s.timingHash())
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		Logins.WithLabelValues(ResultFailure).Inc()
		return nil, nil, fmt.Errorf("authenticate %q: %w", req.Identifier, ErrInvalidCredentials)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		span.RecordError(err)
		Logins.WithLabelValues(ResultError).Inc()
		return nil, nil, fmt.Errorf("verify password for %q: %w", req.Identifier, err)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		Logins.WithLabelValues(ResultFailure).Inc()
		return nil, nil, fmt.Errorf("authenticate %q: %w", req.Identifier, ErrInvalidCredentials)
	}

	issued, err := s.issuer.Issue(ctx, user.Identifier)
	if err != nil {
		span.RecordError(err)
		Logins.WithLabelValues(ResultError).Inc()
		return nil, nil, err
	}

	Logins.WithLabelValues(ResultSuccess).Inc()
	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")
	return issued, user, nil
}

// Logout invalidates the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.issuer.Invalidate(ctx, token); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Guard implements middleware.SessionGuard.
func (s *AuthService) Guard(ctx context.Context, token string) (domain.GuardDecision, error) {
	return s.guard.Guard(ctx, token)
}

// CurrentUser resolves the user behind token, failing with ErrUnauthorized
// when the guard denies.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	decision, err := s.guard.Guard(ctx, token)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("session %s: %w", decision.Reason, ErrUnauthorized)
	}

	user, err := s.credentials.FindByIdentifier(ctx, decision.UserIdentifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// The account behind a live session is gone.
		return nil, fmt.Errorf("session owner %q missing: %w", decision.UserIdentifier, ErrUnauthorized)
	}
	return user, nil
}

// ListUsers returns every registered user. Callers gate it behind Guard.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.list_users", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	users, err := s.credentials.ListUsers(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingPassword)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
