package v1

import (
	"errors"
	"net/http"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/auth-web/internal/core/domain"
	logicv1 "github.com/duynhne/auth-web/internal/logic/v1"
	"github.com/duynhne/auth-web/middleware"
)

// Handler groups HTTP handlers for the auth API v1.
// Dependencies are injected via the constructor; there is no global state.
type Handler struct {
	auth       *logicv1.AuthService
	cookieName string
}

// NewHandler creates a new Handler with the given AuthService.
func NewHandler(auth *logicv1.AuthService, cookieName string) *Handler {
	return &Handler{auth: auth, cookieName: cookieName}
}

// RegisterRoutes registers all auth API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.Signup)
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.GetMe)
	rg.GET("/users", middleware.RequireSession(h.auth, h.cookieName, denyJSON, failJSON), h.ListUsers)
}

func startSpan(c *gin.Context) (trace.Span, *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	c.Request = c.Request.WithContext(ctx)
	return span, c
}

// Signup handles HTTP request for user registration.
func (h *Handler) Signup(c *gin.Context) {
	span, c := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()
	logger := pkgzerolog.FromContext(ctx)

	var req domain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	user, err := h.auth.Signup(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, logicv1.ErrDuplicateIdentifier):
			c.JSON(http.StatusConflict, gin.H{"error": "Identifier already exists"})
		case errors.Is(err, logicv1.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Identifier and password are required; password at most 72 bytes"})
		default:
			span.RecordError(err)
			logger.Error().Err(err).Str("identifier", req.Identifier).Msg("Registration failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, user.Public())
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	span, c := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()
	logger := pkgzerolog.FromContext(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	issued, user, err := h.auth.Login(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			// Same response for unknown identifier and wrong password.
			logger.Warn().Msg("Login failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			span.RecordError(err)
			logger.Error().Err(err).Msg("Login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("Login successful")
	c.JSON(http.StatusOK, domain.AuthResponse{
		Token:     issued.Token,
		ExpiresAt: issued.Session.ExpiresAt,
		User:      user.Public(),
	})
}

// Logout invalidates the presented session.
func (h *Handler) Logout(c *gin.Context) {
	span, c := startSpan(c)
	defer span.End()

	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c, h.cookieName)); err != nil {
		span.RecordError(err)
		pkgzerolog.FromContext(c.Request.Context()).Error().Err(err).Msg("Logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMe handles HTTP request to get current user from session token.
// GET /api/v1/auth/me
// Authorization: Bearer <token> (or the session cookie)
func (h *Handler) GetMe(c *gin.Context) {
	span, c := startSpan(c)
	defer span.End()

	tokens := middleware.SessionTokens(c, h.cookieName)
	span.SetAttributes(attribute.Bool("auth.present", len(tokens) > 0))
	if len(tokens) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	var user *domain.User
	for _, token := range tokens {
		u, err := h.auth.CurrentUser(c.Request.Context(), token)
		if err == nil {
			user = u
			break
		}
		if !errors.Is(err, logicv1.ErrUnauthorized) {
			failJSON(c, err)
			return
		}
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// ListUsers returns every registered user. Guarded by RequireSession.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		failJSON(c, err)
		return
	}

	out := make([]domain.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func denyJSON(c *gin.Context, reason domain.DenyReason) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "reason": reason})
}

func failJSON(c *gin.Context, err error) {
	pkgzerolog.FromContext(c.Request.Context()).Error().Err(err).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
