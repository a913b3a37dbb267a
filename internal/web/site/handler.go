// Package site serves the server-rendered pages: landing, signup, login and
// the guarded secret page.
package site

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"

	"github.com/duynhne/auth-web/internal/core/domain"
	logicv1 "github.com/duynhne/auth-web/internal/logic/v1"
	"github.com/duynhne/auth-web/middleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

// User-facing messages. Login failures share one message so the page never
// reveals whether an identifier exists.
const (
	msgInvalidCredentials = "Invalid identifier or password."
	msgDuplicate          = "That identifier is already taken."
	msgInvalidInput       = "Please provide an identifier and a password of at most 72 bytes."
	msgSignedUp           = "Account created. You can log in now."
	msgLoginRequired      = "Please log in to view that page."
	msgLoggedOut          = "You have been logged out."
	msgInternal           = "Something went wrong. Please try again."
)

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler groups the page handlers. Dependencies are injected via the
// constructor; there is no global state.
type Handler struct {
	auth   *logicv1.AuthService
	cookie CookieConfig
	now    func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(auth *logicv1.AuthService, cookie CookieConfig) *Handler {
	return &Handler{auth: auth, cookie: cookie, now: time.Now}
}

// RegisterRoutes registers the page routes on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Index)
	r.GET("/signup", h.SignupForm)
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/secret", middleware.RequireSession(h.auth, h.cookie.Name, h.deny, h.fail), h.Secret)
}

type page struct {
	Title       string
	Error       string
	Notice      string
	Identifier  string
	CurrentUser string
	Users       []domain.User
}

// Index renders the landing page with the login form.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", page{Title: "Welcome"})
}

// SignupForm renders an empty signup form.
func (h *Handler) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", page{Title: "Sign up"})
}

// Signup creates an account. Business failures re-render the form with 200.
func (h *Handler) Signup(c *gin.Context) {
	var req domain.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusOK, "signup.html", page{Title: "Sign up", Error: msgInvalidInput})
		return
	}

	_, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		form := page{Title: "Sign up", Identifier: req.Identifier}
		switch {
		case errors.Is(err, logicv1.ErrDuplicateIdentifier):
			form.Error = msgDuplicate
		case errors.Is(err, logicv1.ErrInvalidInput):
			form.Error = msgInvalidInput
		default:
			h.fail(c, err)
			return
		}
		c.HTML(http.StatusOK, "signup.html", form)
		return
	}

	pkgzerolog.FromContext(c.Request.Context()).Info().Str("identifier", req.Identifier).Msg("Signup successful")
	c.HTML(http.StatusCreated, "index.html", page{Title: "Welcome", Notice: msgSignedUp})
}

// Login verifies credentials, sets the session cookie and redirects to the
// secret page.
func (h *Handler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		pkgzerolog.FromContext(c.Request.Context()).Warn().Err(err).Msg("Login form rejected")
		c.HTML(http.StatusUnauthorized, "index.html", page{Title: "Welcome", Error: msgInvalidCredentials})
		return
	}

	issued, _, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, logicv1.ErrInvalidCredentials) {
			pkgzerolog.FromContext(c.Request.Context()).Warn().Msg("Login failed")
			c.HTML(http.StatusUnauthorized, "index.html", page{Title: "Welcome", Error: msgInvalidCredentials})
			return
		}
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, issued)
	c.Redirect(http.StatusSeeOther, "/secret")
}

// Logout invalidates the current session and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c, h.cookie.Name)); err != nil {
		h.fail(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.HTML(http.StatusOK, "index.html", page{Title: "Welcome", Notice: msgLoggedOut})
}

// Secret renders the full user listing. It runs only behind RequireSession.
func (h *Handler) Secret(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.HTML(http.StatusOK, "secret.html", page{
		Title:       "Secret",
		CurrentUser: current,
		Users:       users,
	})
}

func (h *Handler) deny(c *gin.Context, reason domain.DenyReason) {
	pkgzerolog.FromContext(c.Request.Context()).Info().Str("reason", string(reason)).Msg("Access denied")
	if reason == domain.DenyExpired || reason == domain.DenyInvalidated {
		h.clearSessionCookie(c)
	}
	c.HTML(http.StatusUnauthorized, "index.html", page{Title: "Welcome", Error: msgLoginRequired})
}

// fail handles errors the user cannot fix. Details go to the log only.
func (h *Handler) fail(c *gin.Context, err error) {
	pkgzerolog.FromContext(c.Request.Context()).Error().Err(err).Msg("Request failed")
	c.HTML(http.StatusInternalServerError, "index.html", page{Title: "Error", Error: msgInternal})
}

func (h *Handler) setSessionCookie(c *gin.Context, issued *domain.IssuedSession) {
	maxAge := 0
	if issued.Session.ExpiresAt != nil {
		maxAge = int(issued.Session.ExpiresAt.Sub(h.now()).Seconds())
		if maxAge < 1 {
			maxAge = 1
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, issued.Token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
