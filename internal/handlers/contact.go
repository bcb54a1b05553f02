package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/handlers/render"
	"github.com/akarpov/contactsbook/internal/handlers/userctx"
	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/models"
	"github.com/akarpov/contactsbook/internal/repository"
)

const birthdayLayout = "2006-01-02"

type contactService interface {
	Create(ctx context.Context, user *models.User, contact models.Contact) (models.Contact, error)

	// Has to return apperrors.ErrContactNotFound if the contact is not owned by the user
	Get(ctx context.Context, user *models.User, contactID uuid.UUID) (models.Contact, error)

	List(ctx context.Context, user *models.User, limit int, offset int) ([]models.Contact, error)
	Query(ctx context.Context, user *models.User, filter models.ContactFilter) ([]models.Contact, error)
	Update(ctx context.Context, user *models.User, contactID uuid.UUID, params repository.UpdateContactParams) (models.Contact, error)
	Delete(ctx context.Context, user *models.User, contactID uuid.UUID) error
}

type ContactHandler struct {
	contacts contactService
	logger   logger.Logger
}

func NewContact(contacts contactService, l logger.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: l}
}

func (h *ContactHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", h.create)
	mux.HandleFunc("GET /", h.list)
	mux.HandleFunc("GET /query", h.query)
	mux.HandleFunc("GET /{id}", h.get)
	mux.HandleFunc("PATCH /{id}", h.update)
	mux.HandleFunc("DELETE /{id}", h.delete)

	return mux
}

type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Birthday  *string   `json:"birthday"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newContactResponse(c models.Contact) ContactResponse {
	resp := ContactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Birthday != nil {
		birthday := c.Birthday.Format(birthdayLayout)
		resp.Birthday = &birthday
	}
	return resp
}

func newContactListResponse(contacts []models.Contact) []ContactResponse {
	resp := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		resp = append(resp, newContactResponse(c))
	}
	return resp
}

func (h *ContactHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		FirstName string  `json:"first_name" validate:"required,max=50"`
		LastName  string  `json:"last_name" validate:"required,max=50"`
		Email     string  `json:"email" validate:"required,email"`
		Birthday  *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
		Notes     string  `json:"notes" validate:"max=500"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	contact := models.Contact{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Notes:     data.Notes,
	}
	if data.Birthday != nil {
		birthday, err := time.Parse(birthdayLayout, *data.Birthday)
		if err != nil {
			render.ServiceError(w, "Invalid birthday", http.StatusBadRequest)
			return
		}
		contact.Birthday = &birthday
	}

	created, err := h.contacts.Create(r.Context(), &user, contact)
	if err != nil {
		h.logger.Error("contact create failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONWithStatus(w, newContactResponse(created), http.StatusCreated)
}

func (h *ContactHandler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	contacts, err := h.contacts.List(r.Context(), &user, intParam(query, "limit"), intParam(query, "offset"))
	if err != nil {
		h.logger.Error("contact list failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, newContactListResponse(contacts))
}

func (h *ContactHandler) query(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	filter := models.ContactFilter{
		FirstName:      query.Get("first_name"),
		LastName:       query.Get("last_name"),
		Email:          query.Get("email"),
		DaysToBirthday: intParam(query, "days_to_birthday"),
		Limit:          intParam(query, "limit"),
		Offset:         intParam(query, "offset"),
	}

	contacts, err := h.contacts.Query(r.Context(), &user, filter)
	if err != nil {
		h.logger.Error("contact query failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, newContactListResponse(contacts))
}

func (h *ContactHandler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	contactID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Contact not found", http.StatusNotFound)
		return
	}

	contact, err := h.contacts.Get(r.Context(), &user, contactID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrContactNotFound):
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
		default:
			h.logger.Error("contact get failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, newContactResponse(contact))
}

func (h *ContactHandler) update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		FirstName *string `json:"first_name" validate:"omitempty,max=50"`
		LastName  *string `json:"last_name" validate:"omitempty,max=50"`
		Email     *string `json:"email" validate:"omitempty,email"`
		Birthday  *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
		Notes     *string `json:"notes" validate:"omitempty,max=500"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	contactID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Contact not found", http.StatusNotFound)
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	params := repository.UpdateContactParams{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Notes:     data.Notes,
	}
	if data.Birthday != nil {
		birthday, err := time.Parse(birthdayLayout, *data.Birthday)
		if err != nil {
			render.ServiceError(w, "Invalid birthday", http.StatusBadRequest)
			return
		}
		params.Birthday = &birthday
	}

	contact, err := h.contacts.Update(r.Context(), &user, contactID, params)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrContactNotFound):
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
		default:
			h.logger.Error("contact update failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, newContactResponse(contact))
}

func (h *ContactHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	contactID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Contact not found", http.StatusNotFound)
		return
	}

	err = h.contacts.Delete(r.Context(), &user, contactID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrContactNotFound):
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
		default:
			h.logger.Error("contact delete failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func intParam(query url.Values, name string) int {
	value, err := strconv.Atoi(query.Get(name))
	if err != nil {
		return 0
	}
	return value
}
