package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/handlers/render"
	"github.com/akarpov/contactsbook/internal/logger"
)

type rateLimiter interface {
	// Count the request against the client window
	// Has to return apperrors.ErrTooManyRequests with retry-after guidance on reject
	Check(ctx context.Context, clientID string) (retryAfter time.Duration, err error)
}

// RateLimitMiddleware gates every request through the per-client request ceiling
// Client identity is the caller ip scoped by route, the way the limiter
// treats different endpoints independently
func RateLimitMiddleware(limiter rateLimiter, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIP(r) + ":" + r.URL.Path

			retryAfter, err := limiter.Check(r.Context(), clientID)
			switch {
			case err == nil:

			case errors.Is(err, apperrors.ErrTooManyRequests):
				seconds := int(retryAfter.Round(time.Second).Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				render.ServiceError(w, "Too many requests", http.StatusTooManyRequests)
				return

			default:
				// Limiter backend trouble must not take the whole API down
				l.Error("rate limiter check failed", "error", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
