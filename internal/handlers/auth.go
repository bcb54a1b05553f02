package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/handlers/middleware"
	"github.com/akarpov/contactsbook/internal/handlers/render"
	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/models"
	"github.com/akarpov/contactsbook/internal/service/auth"
)

type authService interface {
	// Create unconfirmed account and trigger confirmation mail
	// Has to return apperrors.ErrUserAlreadyExists if the email is taken
	Signup(ctx context.Context, username string, email string, password string, host string) (models.PublicUser, error)

	// Login with email and password, issue token pair
	// Has to return apperrors.ErrEmailInvalid, ErrEmailNotConfirmed or ErrPasswordInvalid
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Rotate token pair by a valid refresh token
	// Has to return apperrors.ErrUnauthorized on any token problem
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Re-send confirmation mail
	// Has to return apperrors.ErrUserNotFound or ErrEmailAlreadyConfirmed
	ResendConfirmation(ctx context.Context, email string, host string) error

	// Confirm email by token, idempotent
	ConfirmEmail(ctx context.Context, token string) (auth.ConfirmResult, error)
}

type AuthHandler struct {
	auth   authService
	logger logger.Logger
}

func NewAuth(auth authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /refresh", h.refresh)
	mux.HandleFunc("POST /resend_email", h.resendEmail)
	mux.HandleFunc("GET /confirm_email/{token}", h.confirmEmail)

	return mux
}

// Token pair response, the shape OAuth2 clients expect
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(pair models.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "bearer",
	}
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	type SignupRequest struct {
		Username string `json:"username" validate:"required,min=2,max=30"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	data, err := render.BindAndValidate[SignupRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.auth.Signup(r.Context(), data.Username, data.Email, data.Password, baseURL(r))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			h.logger.Error("signup failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, user, http.StatusCreated)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmailInvalid):
			render.ServiceError(w, "Invalid e-mail", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrEmailNotConfirmed):
			render.ServiceError(w, "E-mail not confirmed", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrPasswordInvalid):
			render.ServiceError(w, "Invalid password", http.StatusUnauthorized)
		default:
			h.logger.Error("login failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, newTokenResponse(pair))
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	refresh, ok := middleware.BearerToken(r)
	if !ok {
		render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnauthorized):
			render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
		default:
			h.logger.Error("refresh failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, newTokenResponse(pair))
}

func (h *AuthHandler) resendEmail(w http.ResponseWriter, r *http.Request) {
	type ResendRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
	type ResendResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ResendRequest](w, r)
	if err != nil {
		return
	}

	err = h.auth.ResendConfirmation(r.Context(), data.Email, baseURL(r))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid e-mail", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrEmailAlreadyConfirmed):
			render.ServiceError(w, "E-mail already confirmed", http.StatusBadRequest)
		default:
			h.logger.Error("resend confirmation failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ResendResponse{Message: "email has been sent"})
}

func (h *AuthHandler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	type ConfirmResponse struct {
		Message string `json:"message"`
	}

	result, err := h.auth.ConfirmEmail(r.Context(), r.PathValue("token"))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrVerificationFailed):
			render.ServiceError(w, "Verification error", http.StatusBadRequest)
		default:
			h.logger.Error("confirm email failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	if result.AlreadyConfirmed {
		render.JSON(w, ConfirmResponse{Message: "E-mail already confirmed"})
		return
	}

	render.JSON(w, ConfirmResponse{Message: "E-mail confirmed"})
}
