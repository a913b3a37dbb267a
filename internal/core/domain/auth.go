package domain

import "time"

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// AuthResponse is returned by the JSON API after a successful login.
type AuthResponse struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	User      PublicUser `json:"user"`
}

// PublicUser is the externally visible projection of a User.
type PublicUser struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public strips credential material from u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Identifier: u.Identifier, CreatedAt: u.CreatedAt}
}

// DenyReason says why the route guard refused a request.
type DenyReason string

const (
	DenyMissingToken DenyReason = "missing_token"
	DenyUnknownToken DenyReason = "unknown_token"
	DenyExpired      DenyReason = "expired"
	DenyInvalidated  DenyReason = "invalidated"
)

// GuardDecision is the outcome of a route guard check: either Allowed with
// the owning user, or denied with a Reason.
type GuardDecision struct {
	Allowed        bool
	UserIdentifier string
	Reason         DenyReason
}

// Allow builds an allowing decision for the given user.
func Allow(userIdentifier string) GuardDecision {
	return GuardDecision{Allowed: true, UserIdentifier: userIdentifier}
}

// Deny builds a denying decision.
func Deny(reason DenyReason) GuardDecision {
	return GuardDecision{Reason: reason}
}
