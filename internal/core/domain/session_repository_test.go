package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_StateAt(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name    string
		session Session
		want    SessionState
	}{
		{name: "no expiry", session: Session{}, want: SessionActive},
		{name: "expires later", session: Session{ExpiresAt: &future}, want: SessionActive},
		{name: "expired", session: Session{ExpiresAt: &past}, want: SessionExpired},
		{name: "expires exactly now", session: Session{ExpiresAt: &now}, want: SessionExpired},
		{name: "invalidated", session: Session{InvalidatedAt: &past}, want: SessionInvalidated},
		{name: "invalidated beats expired", session: Session{ExpiresAt: &past, InvalidatedAt: &past}, want: SessionInvalidated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.StateAt(now))
		})
	}
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "active", SessionActive.String())
	assert.Equal(t, "expired", SessionExpired.String())
	assert.Equal(t, "invalidated", SessionInvalidated.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}

func TestGuardDecision(t *testing.T) {
	allow := Allow("alice")
	assert.True(t, allow.Allowed)
	assert.Equal(t, "alice", allow.UserIdentifier)

	deny := Deny(DenyExpired)
	assert.False(t, deny.Allowed)
	assert.Empty(t, deny.UserIdentifier)
	assert.Equal(t, DenyExpired, deny.Reason)
}
