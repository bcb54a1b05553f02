package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akarpov/contactsbook/internal/handlers/middleware"
	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type callerResolver interface {
	ResolveUser(ctx context.Context, accessToken string) (models.User, error)
}

type rateLimiter interface {
	Check(ctx context.Context, clientID string) (retryAfter time.Duration, err error)
}

func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	contactHandler *ContactHandler,
	healthHandler http.Handler,
	resolver callerResolver,
	limiter rateLimiter,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(resolver)

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", authHandler.Handler()))
	root.Handle("/api/user/", http.StripPrefix("/api/user", withAuth(userHandler.Handler())))
	root.Handle("/api/contacts/", http.StripPrefix("/api/contacts", withAuth(contactHandler.Handler())))
	root.Handle("GET /api/healthchecker", healthHandler)

	return chain(root,
		middleware.LoggerMiddleware(logger),
		middleware.RateLimitMiddleware(limiter, logger),
	)
}
