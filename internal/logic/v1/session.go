package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/auth-web/internal/core/domain"
	"github.com/duynhne/auth-web/middleware"
)

// maxTokenAttempts bounds regeneration on a token-hash collision.
const maxTokenAttempts = 3

// SessionOption configures SessionIssuer and SessionValidator.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	now      func() time.Time
	newToken func() (string, error)
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) { o.now = now }
}

// WithTokenSource overrides token generation.
func WithTokenSource(newToken func() (string, error)) SessionOption {
	return func(o *sessionOptions) { o.newToken = newToken }
}

func buildSessionOptions(opts []SessionOption) sessionOptions {
	o := sessionOptions{now: time.Now, newToken: GenerateToken}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SessionIssuer creates sessions after a successful login and invalidates
// them on logout.
type SessionIssuer struct {
	sessions domain.SessionRepository
	ttl      time.Duration
	opts     sessionOptions
}

// NewSessionIssuer creates a SessionIssuer. A ttl of zero issues sessions
// without expiry.
func NewSessionIssuer(sessions domain.SessionRepository, ttl time.Duration, opts ...SessionOption) *SessionIssuer {
	return &SessionIssuer{
		sessions: sessions,
		ttl:      ttl,
		opts:     buildSessionOptions(opts),
	}
}

// Issue generates a fresh token for userIdentifier and stores its session.
// If the store reports the token hash as taken, a new token is generated.
func (i *SessionIssuer) Issue(ctx context.Context, userIdentifier string) (*domain.IssuedSession, error) {
	ctx, span := middleware.StartSpan(ctx, "session.issue", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	var issued *domain.IssuedSession
	attempts := 0

	backoff := retry.WithMaxRetries(maxTokenAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		token, err := i.opts.newToken()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		now := i.opts.now().UTC()
		session := domain.Session{
			TokenHash:      HashToken(token),
			UserIdentifier: userIdentifier,
			CreatedAt:      now,
		}
		if i.ttl > 0 {
			expiresAt := now.Add(i.ttl)
			session.ExpiresAt = &expiresAt
		}

		if err := i.sessions.Create(ctx, &session); err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				span.AddEvent("session.token_collision")
				return retry.RetryableError(err)
			}
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		issued = &domain.IssuedSession{Token: token, Session: session}
		return nil
	})
	span.SetAttributes(attribute.Int("session.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue session after %d attempts: %w", attempts, err)
	}

	SessionsIssued.Inc()
	return issued, nil
}

// Invalidate ends the session behind token. The record is kept, marked
// invalidated, so the token can never be accepted again.
func (i *SessionIssuer) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := i.sessions.Invalidate(ctx, HashToken(token), i.opts.now().UTC()); err != nil {
		return fmt.Errorf("invalidate session: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// SessionValidator resolves tokens to their owning user. It never writes:
// expiry is evaluated lazily against the stored record.
type SessionValidator struct {
	sessions domain.SessionRepository
	opts     sessionOptions
}

// NewSessionValidator creates a SessionValidator.
func NewSessionValidator(sessions domain.SessionRepository, opts ...SessionOption) *SessionValidator {
	return &SessionValidator{
		sessions: sessions,
		opts:     buildSessionOptions(opts),
	}
}

// Validate returns the owning user if token denotes a live session.
// ok is false for unknown, expired and invalidated tokens; err is only set
// when the store cannot be read.
func (v *SessionValidator) Validate(ctx context.Context, token string) (userIdentifier string, ok bool, err error) {
	decision, err := v.decide(ctx, token)
	if err != nil {
		return "", false, err
	}
	return decision.UserIdentifier, decision.Allowed, nil
}

func (v *SessionValidator) decide(ctx context.Context, token string) (domain.GuardDecision, error) {
	if token == "" {
		return domain.Deny(domain.DenyMissingToken), nil
	}

	session, err := v.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return domain.GuardDecision{}, fmt.Errorf("query session: %w: %w", ErrStoreUnavailable, err)
	}
	if session == nil {
		return domain.Deny(domain.DenyUnknownToken), nil
	}

	switch session.StateAt(v.opts.now()) {
	case domain.SessionExpired:
		return domain.Deny(domain.DenyExpired), nil
	case domain.SessionInvalidated:
		return domain.Deny(domain.DenyInvalidated), nil
	default:
		return domain.Allow(session.UserIdentifier), nil
	}
}

// RouteGuard is composed in front of protected operations.
type RouteGuard struct {
	validator *SessionValidator
}

// NewRouteGuard creates a RouteGuard over validator.
func NewRouteGuard(validator *SessionValidator) *RouteGuard {
	return &RouteGuard{validator: validator}
}

// Guard returns Allow with the owning user, or Deny with a reason. The
// caller must not run the protected operation on Deny.
func (g *RouteGuard) Guard(ctx context.Context, token string) (domain.GuardDecision, error) {
	ctx, span := middleware.StartSpan(ctx, "session.guard", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	decision, err := g.validator.decide(ctx, token)
	if err != nil {
		span.RecordError(err)
		GuardDecisions.WithLabelValues("error").Inc()
		return domain.GuardDecision{}, err
	}

	span.SetAttributes(attribute.Bool("session.valid", decision.Allowed))
	if decision.Allowed {
		GuardDecisions.WithLabelValues("allow").Inc()
	} else {
		span.SetAttributes(attribute.String("session.deny_reason", string(decision.Reason)))
		GuardDecisions.WithLabelValues(string(decision.Reason)).Inc()
	}
	return decision, nil
}
