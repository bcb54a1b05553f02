package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/akarpov/contactsbook/internal/avatar"
	"github.com/akarpov/contactsbook/internal/cache"
	"github.com/akarpov/contactsbook/internal/db"
	"github.com/akarpov/contactsbook/internal/handlers"
	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/mailer"
	"github.com/akarpov/contactsbook/internal/ratelimit"
	"github.com/akarpov/contactsbook/internal/repository/postgres"
	"github.com/akarpov/contactsbook/internal/service/auth"
	"github.com/akarpov/contactsbook/internal/service/contact"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	mailer *mailer.Dispatcher
	pool   *pgxpool.Pool
	rdb    *redis.Client
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Redis backs the session cache and the rate limiter
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
	})

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		SecretKey:  c.SecretKey,
		Alg:        c.TokenAlg,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
		EmailTTL:   c.EmailTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	mailDispatcher := mailer.New(mailer.Config{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	}, logger)

	sessionCache := cache.NewUserCache(rdb, c.CacheTTL)
	limiter := ratelimit.New(rdb, ratelimit.Config{Ceiling: c.RateCeiling, Slot: c.RateSlot})

	authService, err := auth.NewService(auth.Config{}, codec, storage.User(), sessionCache, mailDispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	contactService := contact.NewService(storage.Contact())

	avatarStorage, err := avatar.NewS3Storage(ctx, avatar.Config{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		Endpoint:      c.S3Endpoint,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		PublicBaseURL: c.S3PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating avatar storage. Err: %w", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuth(authService, logger)
	userHandler := handlers.NewUser(authService, avatarStorage, logger)
	contactHandler := handlers.NewContact(contactService, logger)
	healthHandler := handlers.HealthHandler(pool, logger)

	mux := handlers.NewRouter(
		authHandler,
		userHandler,
		contactHandler,
		healthHandler,
		authService,
		limiter,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     logger,
		mailer:     mailDispatcher,
		pool:       pool,
		rdb:        rdb,
	}, nil
}

// Run starts the mail dispatcher and the http server
// Closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	mailerStopped := s.mailer.Run(srvCtx)

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-mailerStopped

	s.pool.Close()
	if rdbErr := s.rdb.Close(); rdbErr != nil {
		s.logger.Error("error while closing redis client", "error", rdbErr)
	}

	return err
}
