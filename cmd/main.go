package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/auth-web/config"
	database "github.com/duynhne/auth-web/internal/core"
	"github.com/duynhne/auth-web/internal/core/domain"
	"github.com/duynhne/auth-web/internal/core/repository"
	logicv1 "github.com/duynhne/auth-web/internal/logic/v1"
	"github.com/duynhne/auth-web/internal/web"
	"github.com/duynhne/auth-web/internal/web/site"
	"github.com/duynhne/auth-web/middleware"
	"github.com/duynhne/pkg/logger/zerolog"
)

// stores bundles the repositories of one backend with its teardown.
type stores struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func(context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Database.MongoDatabase).Msg("MongoDB connection established")
		return &stores{
			users:    repository.NewMongoUserRepository(db),
			sessions: repository.NewMongoSessionRepository(db),
			close:    client.Disconnect,
		}, nil

	case config.DriverPostgres:
		if cfg.Database.Migrate {
			if err := database.MigratePostgres(cfg.Database.PostgresDSN); err != nil {
				return nil, err
			}
			log.Info().Msg("Database migrations applied")
		}
		pool, err := database.Connect(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connection pool established")
		return &stores{
			users:    repository.NewUserRepository(pool),
			sessions: repository.NewSessionRepository(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return &stores{
			users:    repository.NewMemoryUserRepository(),
			sessions: repository.NewMemorySessionRepository(),
			close:    func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
}

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize Zerolog with LOG_LEVEL from config
	zerolog.Setup(cfg.Logging.Level)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Str("db_driver", cfg.Database.Driver).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	tracing := false
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = provider
			tracing = true
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}

	middleware.RegisterMetrics(prometheus.DefaultRegisterer)
	logicv1.RegisterMetrics(prometheus.DefaultRegisterer)

	hasher := logicv1.NewBcryptHasher(cfg.Session.BcryptCost)
	auth := logicv1.NewAuthService(
		logicv1.NewCredentialStore(st.users, hasher),
		hasher,
		logicv1.NewSessionIssuer(st.sessions, cfg.Session.TTL),
		logicv1.NewRouteGuard(logicv1.NewSessionValidator(st.sessions)),
	)

	gin.SetMode(cfg.Service.GinMode)

	var isShuttingDown atomic.Bool
	r, err := web.NewRouter(auth, web.RouterConfig{
		ServiceName:    cfg.Service.Name,
		TracingEnabled: tracing,
		Cookie: site.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		},
		ShuttingDown: &isShuttingDown,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting auth web")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	// Fail readiness first so load balancers stop routing here.
	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay completed")
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Close store connections
	if err := st.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Store close error")
	} else {
		log.Info().Msg("Store closed")
	}

	// 3. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
}
