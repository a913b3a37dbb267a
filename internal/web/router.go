// Package web assembles the gin engine: middleware chain, probes, metrics,
// server-rendered pages and the JSON API.
package web

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logicv1 "github.com/duynhne/auth-web/internal/logic/v1"
	"github.com/duynhne/auth-web/internal/web/site"
	v1 "github.com/duynhne/auth-web/internal/web/v1"
	"github.com/duynhne/auth-web/middleware"
)

// RouterConfig carries what NewRouter needs beyond the auth service.
type RouterConfig struct {
	ServiceName    string
	TracingEnabled bool
	Cookie         site.CookieConfig

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// ShuttingDown flips /ready to 503. May be nil.
	ShuttingDown *atomic.Bool
}

var quietPaths = []string{"/health", "/ready", "/metrics"}

// NewRouter builds the HTTP handler tree.
func NewRouter(auth *logicv1.AuthService, cfg RouterConfig) (*gin.Engine, error) {
	tmpl, err := site.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	r.Use(middleware.Recovery())
	if cfg.TracingEnabled {
		r.Use(middleware.TracingMiddleware(cfg.ServiceName))
	}
	r.Use(middleware.LoggingMiddleware(quietPaths...))
	r.Use(middleware.PrometheusMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if cfg.ShuttingDown != nil && cfg.ShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	site.NewHandler(auth, cfg.Cookie).RegisterRoutes(r)

	apiV1 := r.Group("/api/v1")
	v1.NewHandler(auth, cfg.Cookie.Name).RegisterRoutes(apiV1)

	return r, nil
}
