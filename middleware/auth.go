package middleware

import (
	"context"
	"slices"
	"strings"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"

	"github.com/duynhne/auth-web/internal/core/domain"
)

// UserIdentifierKey is the gin context key set by RequireSession on Allow.
const UserIdentifierKey = "user_identifier"

const bearerPrefix = "Bearer "

// SessionGuard decides whether a session token may pass.
type SessionGuard interface {
	Guard(ctx context.Context, token string) (domain.GuardDecision, error)
}

// SessionToken returns the token presented by the client: the session
// cookie if set, otherwise an Authorization bearer token. Empty if neither.
func SessionToken(c *gin.Context, cookieName string) string {
	if tokens := SessionTokens(c, cookieName); len(tokens) > 0 {
		return tokens[0]
	}
	return ""
}

// SessionTokens returns every distinct token presented by the client, the
// session cookie first and the bearer token second.
func SessionTokens(c *gin.Context, cookieName string) []string {
	var tokens []string
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		tokens = append(tokens, cookie)
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		if bearer := strings.TrimSpace(header[len(bearerPrefix):]); bearer != "" && !slices.Contains(tokens, bearer) {
			tokens = append(tokens, bearer)
		}
	}
	return tokens
}

// RequireSession gates the downstream handlers behind guard. Each presented
// token is tried in SessionTokens order, so a stale cookie does not hide a
// live bearer token. If none is allowed, onDeny gets the reason of the first
// token and the chain aborts; on a store failure onError is called instead.
// The protected handler never runs unless the guard allows.
func RequireSession(
	guard SessionGuard,
	cookieName string,
	onDeny func(*gin.Context, domain.DenyReason),
	onError func(*gin.Context, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := SessionTokens(c, cookieName)
		if len(tokens) == 0 {
			tokens = []string{""}
		}

		var decision domain.GuardDecision
		for i, token := range tokens {
			d, err := guard.Guard(c.Request.Context(), token)
			if err != nil {
				onError(c, err)
				c.Abort()
				return
			}
			if d.Allowed || i == 0 {
				decision = d
			}
			if d.Allowed {
				break
			}
		}
		if !decision.Allowed {
			onDeny(c, decision.Reason)
			c.Abort()
			return
		}

		c.Set(UserIdentifierKey, decision.UserIdentifier)
		logger := pkgzerolog.FromContext(c.Request.Context()).With().Str("user", decision.UserIdentifier).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

// CurrentUser returns the identifier RequireSession attached to c.
func CurrentUser(c *gin.Context) (string, bool) {
	id := c.GetString(UserIdentifierKey)
	return id, id != ""
}
