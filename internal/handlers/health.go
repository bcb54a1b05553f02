package handlers

import (
	"context"
	"net/http"

	"github.com/akarpov/contactsbook/internal/handlers/render"
	"github.com/akarpov/contactsbook/internal/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the service can reach its database
func HealthHandler(db pinger, l logger.Logger) http.Handler {
	type HealthResponse struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			l.Error("healthcheck failed", "error", err)
			render.ServiceError(w, "Database is not available", http.StatusServiceUnavailable)
			return
		}

		render.JSON(w, HealthResponse{Message: "API is up and running"})
	})
}
