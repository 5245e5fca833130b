package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/nkiryanov/studyplanner/internal/db"
	"github.com/nkiryanov/studyplanner/internal/handlers"
	"github.com/nkiryanov/studyplanner/internal/handlers/middleware"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/metrics"
	"github.com/nkiryanov/studyplanner/internal/repository/postgres"
	"github.com/nkiryanov/studyplanner/internal/repository/redis"
	"github.com/nkiryanov/studyplanner/internal/service/assistant"
	"github.com/nkiryanov/studyplanner/internal/service/auth"
	"github.com/nkiryanov/studyplanner/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/studyplanner/internal/service/focus"
	"github.com/nkiryanov/studyplanner/internal/service/google"
	"github.com/nkiryanov/studyplanner/internal/service/mailer"
	"github.com/nkiryanov/studyplanner/internal/service/storage"
	"github.com/nkiryanov/studyplanner/internal/service/task"
	"github.com/nkiryanov/studyplanner/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger      logger.Logger
	pool        *pgxpool.Pool
	sessions    *redis.SessionCache
	rateLimiter *middleware.RateLimiter
	avatars     *storage.GCS
}

// NewServerApp connects to dependencies and wires services
// Everything opened is closed if a later step fails
func NewServerApp(ctx context.Context, c *Config) (_ *ServerApp, err error) {
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: l}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	// Connect to the database and run migrations
	app.pool, err = db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	pgStorage := postgres.NewStorage(app.pool)

	app.sessions, err = redis.NewSessionCache(ctx, redis.Config{
		Addr:     c.RedisAddr,
		Username: c.RedisUsername,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
	}

	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Auth
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey, TTL: c.TokenTTL})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{Logger: l, Metrics: collector}, tokenManager, pgStorage.User(), app.sessions)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Optional integrations. Interfaces stay nil when not configured
	var activationMailer user.Mailer = mailer.NewLog(l)
	if c.SMTPHost != "" {
		activationMailer, err = mailer.NewSMTP(mailer.Config{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.MailFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("error while creating mailer. Err: %w", err)
		}
	} else {
		l.Warn("smtp host not set, activation links will be logged")
	}

	var avatars user.ObjectStore
	if c.GCSBucket != "" {
		app.avatars, err = storage.NewGCS(ctx, c.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("error while creating storage client. Err: %w", err)
		}
		avatars = app.avatars
	}

	var (
		scheduleAssistant task.Assistant
		focusAssistant    focus.Assistant
	)
	if c.OpenAIKey != "" {
		ai, err := assistant.New(assistant.Config{
			APIKey:  c.OpenAIKey,
			Model:   c.OpenAIModel,
			BaseURL: c.OpenAIBaseURL,
		}, collector)
		if err != nil {
			return nil, fmt.Errorf("error while creating assistant. Err: %w", err)
		}
		scheduleAssistant, focusAssistant = ai, ai
	}

	// Domain services
	userService, err := user.NewService(user.Config{
		Mailer:    activationMailer,
		Avatars:   avatars,
		PublicURL: c.PublicURL,
	}, pgStorage)
	if err != nil {
		return nil, fmt.Errorf("error while creating user service. Err: %w", err)
	}
	taskService, err := task.NewService(pgStorage.Task(), scheduleAssistant)
	if err != nil {
		return nil, fmt.Errorf("error while creating task service. Err: %w", err)
	}
	focusService, err := focus.NewService(pgStorage, focusAssistant)
	if err != nil {
		return nil, fmt.Errorf("error while creating focus service. Err: %w", err)
	}

	app.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{PerMinute: c.LoginRatePerMin}, l)

	app.Handler = handlers.NewRouter(
		handlers.Services{
			Auth:   authService,
			Google: google.New(google.Config{}),
			Users:  userService,
			Tasks:  taskService,
			Focus:  focusService,
		},
		handlers.Config{
			Logger:         l,
			RequestTimeout: c.RequestTimeout,
			CORSOrigins:    c.CORSOrigins,
			RateLimiter:    app.rateLimiter,
			Metrics:        collector,
			MetricsHandler: metrics.Handler(registry),
		},
	)

	return app, nil
}

// Run serves http until context is cancelled or server fails; then closes everything
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting server", "address", s.ListenAddr)
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// Stop accepting connections and drain in-flight requests
	g.Go(func() error {
		<-gCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(timeoutCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown")
			_ = httpServer.Close()
		}
		s.logger.Info("HTTP server stopped")
		return nil
	})

	err := g.Wait()
	s.close()

	return err
}

// Release dependencies: redis, database, rate limiter, storage client
func (s *ServerApp) close() {
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil {
			s.logger.Warn("redis close failed", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.avatars != nil {
		if err := s.avatars.Close(); err != nil {
			s.logger.Warn("storage client close failed", "error", err)
		}
	}
}
