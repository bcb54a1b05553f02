package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/akarpov/contactsbook/internal/handlers/render"
	"github.com/akarpov/contactsbook/internal/handlers/userctx"
	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/models"
)

const maxAvatarSize = 5 << 20 // 5 MiB

type avatarSetter interface {
	SetAvatar(ctx context.Context, email string, url string) (models.User, error)
}

type avatarUploader interface {
	// Upload stores the image and returns its public URL
	Upload(ctx context.Context, email string, contentType string, body io.Reader) (string, error)
}

type UserHandler struct {
	auth    avatarSetter
	uploads avatarUploader
	logger  logger.Logger
}

func NewUser(auth avatarSetter, uploads avatarUploader, l logger.Logger) *UserHandler {
	return &UserHandler{auth: auth, uploads: uploads, logger: l}
}

func (h *UserHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", h.me)
	mux.HandleFunc("PATCH /avatar", h.updateAvatar)

	return mux
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	render.JSON(w, user.Public())
}

func (h *UserHandler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		render.ServiceError(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	url, err := h.uploads.Upload(r.Context(), user.Email, contentType, file)
	if err != nil {
		h.logger.Error("avatar upload failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	updated, err := h.auth.SetAvatar(r.Context(), user.Email, url)
	if err != nil {
		h.logger.Error("avatar update failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, updated.Public())
}
