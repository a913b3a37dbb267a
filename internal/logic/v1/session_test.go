package v1

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/auth-web/internal/core/domain"
	"github.com/duynhne/auth-web/internal/core/repository"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	// 32 bytes, unpadded base64url.
	assert.Len(t, token, 43)
	assert.Len(t, HashToken(token), 64)
	assert.NotEqual(t, token, HashToken(token))
}

func TestSessionIssuer_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewMemorySessionRepository()
	issuer := NewSessionIssuer(sessions, time.Hour)

	const n = 10_000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		issued, err := issuer.Issue(ctx, "alice")
		require.NoError(t, err)
		_, dup := seen[issued.Token]
		require.False(t, dup, "token issued twice after %d sessions", i)
		seen[issued.Token] = struct{}{}
	}
	assert.Equal(t, n, sessions.Len())
}

func TestSessionIssuer_Issue(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	sessions := repository.NewMemorySessionRepository()
	issuer := NewSessionIssuer(sessions, 30*time.Minute, WithClock(clock.Now))

	before := testutil.ToFloat64(SessionsIssued)
	issued, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(SessionsIssued))

	assert.Equal(t, "alice", issued.Session.UserIdentifier)
	assert.Equal(t, clock.Now(), issued.Session.CreatedAt)
	require.NotNil(t, issued.Session.ExpiresAt)
	assert.Equal(t, clock.Now().Add(30*time.Minute), *issued.Session.ExpiresAt)

	stored, err := sessions.GetByTokenHash(ctx, HashToken(issued.Token))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "alice", stored.UserIdentifier)

	raw, err := sessions.GetByTokenHash(ctx, issued.Token)
	require.NoError(t, err)
	assert.Nil(t, raw, "plaintext token must not be a storage key")
}

func TestSessionIssuer_NoExpiryWhenTTLZero(t *testing.T) {
	issuer := NewSessionIssuer(repository.NewMemorySessionRepository(), 0)

	issued, err := issuer.Issue(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, issued.Session.ExpiresAt)
}

func TestSessionIssuer_RegeneratesOnCollision(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewMemorySessionRepository()
	sessions.Put(domain.Session{TokenHash: HashToken("taken"), UserIdentifier: "bob"})

	tokens := []string{"taken", "fresh"}
	calls := 0
	issuer := NewSessionIssuer(sessions, time.Hour, WithTokenSource(func() (string, error) {
		token := tokens[calls]
		calls++
		return token, nil
	}))

	issued, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "fresh", issued.Token)
	assert.Equal(t, 2, calls)

	original, err := sessions.GetByTokenHash(ctx, HashToken("taken"))
	require.NoError(t, err)
	assert.Equal(t, "bob", original.UserIdentifier, "existing session must not be overwritten")
}

func TestSessionIssuer_GivesUpOnPersistentCollision(t *testing.T) {
	sessions := repository.NewMemorySessionRepository()
	sessions.Put(domain.Session{TokenHash: HashToken("stuck")})

	calls := 0
	issuer := NewSessionIssuer(sessions, time.Hour, WithTokenSource(func() (string, error) {
		calls++
		return "stuck", nil
	}))

	_, err := issuer.Issue(context.Background(), "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	assert.Equal(t, maxTokenAttempts, calls)
}

func TestSessionIssuer_TokenSourceFailure(t *testing.T) {
	issuer := NewSessionIssuer(repository.NewMemorySessionRepository(), time.Hour,
		WithTokenSource(func() (string, error) { return "", errors.New("entropy exhausted") }))

	_, err := issuer.Issue(context.Background(), "alice")
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestSessionIssuer_StoreUnavailable(t *testing.T) {
	issuer := NewSessionIssuer(failingSessions{}, time.Hour)

	_, err := issuer.Issue(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, issuer.Invalidate(context.Background(), "tok"), ErrStoreUnavailable)
}

func TestSessionValidator(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	sessions := repository.NewMemorySessionRepository()
	issuer := NewSessionIssuer(sessions, time.Hour, WithClock(clock.Now))
	validator := NewSessionValidator(sessions, WithClock(clock.Now))

	issued, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)

	t.Run("never issued tokens resolve to none", func(t *testing.T) {
		for _, token := range []string{"", "bogus", HashToken(issued.Token), issued.Token + "x"} {
			user, ok, err := validator.Validate(ctx, token)
			require.NoError(t, err)
			assert.False(t, ok, "token %q", token)
			assert.Empty(t, user)
		}
	})

	t.Run("repeated validation is idempotent and read-only", func(t *testing.T) {
		before, err := sessions.GetByTokenHash(ctx, issued.Session.TokenHash)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			user, ok, err := validator.Validate(ctx, issued.Token)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "alice", user)
		}

		after, err := sessions.GetByTokenHash(ctx, issued.Session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("expired session resolves to none while the record remains", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		defer clock.Advance(-2 * time.Hour)

		user, ok, err := validator.Validate(ctx, issued.Token)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, user)

		stored, err := sessions.GetByTokenHash(ctx, issued.Session.TokenHash)
		require.NoError(t, err)
		assert.NotNil(t, stored, "lazy expiry must not delete the record")
	})

	t.Run("invalidated session resolves to none", func(t *testing.T) {
		require.NoError(t, issuer.Invalidate(ctx, issued.Token))

		_, ok, err := validator.Validate(ctx, issued.Token)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSessionValidator_PastExpiresAt(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	sessions := repository.NewMemorySessionRepository()
	past := clock.Now().Add(-time.Second)
	sessions.Put(domain.Session{
		TokenHash:      HashToken("old-token"),
		UserIdentifier: "alice",
		CreatedAt:      clock.Now().Add(-time.Hour),
		ExpiresAt:      &past,
	})

	_, ok, err := NewSessionValidator(sessions, WithClock(clock.Now)).Validate(ctx, "old-token")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, sessions.Len())
}

func TestSessionValidator_StoreUnavailable(t *testing.T) {
	_, ok, err := NewSessionValidator(failingSessions{}).Validate(context.Background(), "tok")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRouteGuard(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	sessions := repository.NewMemorySessionRepository()
	issuer := NewSessionIssuer(sessions, time.Minute, WithClock(clock.Now))
	guard := NewRouteGuard(NewSessionValidator(sessions, WithClock(clock.Now)))

	live, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	loggedOut, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, issuer.Invalidate(ctx, loggedOut.Token))

	tests := []struct {
		name    string
		token   string
		advance time.Duration
		want    domain.GuardDecision
	}{
		{name: "allow", token: live.Token, want: domain.Allow("alice")},
		{name: "missing", token: "", want: domain.Deny(domain.DenyMissingToken)},
		{name: "unknown", token: "nope", want: domain.Deny(domain.DenyUnknownToken)},
		{name: "invalidated", token: loggedOut.Token, want: domain.Deny(domain.DenyInvalidated)},
		{name: "expired", token: live.Token, advance: time.Minute, want: domain.Deny(domain.DenyExpired)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(tt.advance)
			defer clock.Advance(-tt.advance)

			got, err := guard.Guard(ctx, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("store failure is an error, not a deny", func(t *testing.T) {
		before := testutil.ToFloat64(GuardDecisions.WithLabelValues("error"))
		_, err := NewRouteGuard(NewSessionValidator(failingSessions{})).Guard(ctx, "tok")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, before+1, testutil.ToFloat64(GuardDecisions.WithLabelValues("error")))
	})
}
