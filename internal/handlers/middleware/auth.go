package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akarpov/contactsbook/internal/handlers/render"
	"github.com/akarpov/contactsbook/internal/handlers/userctx"
	"github.com/akarpov/contactsbook/internal/models"
)

type callerResolver interface {
	// Resolve the caller from an access token
	// Has to return apperrors.ErrUnauthorized on any token problem
	ResolveUser(ctx context.Context, accessToken string) (models.User, error)
}

// AuthMiddleware resolves the caller from the bearer token and puts
// the user into the request context
func AuthMiddleware(resolver callerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := resolver.ResolveUser(r.Context(), token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header
func BearerToken(r *http.Request) (string, bool) {
	value := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}

	return token, true
}
