package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/akarpov/contactsbook/internal/models"
	"github.com/akarpov/contactsbook/internal/repository"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

// ContactService manages the address book of a single user
// Every operation is scoped by the owning user id
type ContactService struct {
	contacts repository.ContactRepo
}

func NewService(contacts repository.ContactRepo) *ContactService {
	return &ContactService{contacts: contacts}
}

func (s *ContactService) Create(ctx context.Context, user *models.User, contact models.Contact) (models.Contact, error) {
	contact.UserID = user.ID

	created, err := s.contacts.CreateContact(ctx, contact)
	if err != nil {
		return created, fmt.Errorf("can't create contact. Err: %w", err)
	}

	return created, nil
}

func (s *ContactService) Get(ctx context.Context, user *models.User, contactID uuid.UUID) (models.Contact, error) {
	return s.contacts.GetContact(ctx, user.ID, contactID)
}

func (s *ContactService) List(ctx context.Context, user *models.User, limit int, offset int) ([]models.Contact, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	return s.contacts.ListContacts(ctx, user.ID, limit, offset)
}

func (s *ContactService) Query(ctx context.Context, user *models.User, filter models.ContactFilter) ([]models.Contact, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.DaysToBirthday < 0 {
		filter.DaysToBirthday = 0
	}

	return s.contacts.QueryContacts(ctx, user.ID, filter)
}

func (s *ContactService) Update(ctx context.Context, user *models.User, contactID uuid.UUID, params repository.UpdateContactParams) (models.Contact, error) {
	return s.contacts.UpdateContact(ctx, user.ID, contactID, params)
}

func (s *ContactService) Delete(ctx context.Context, user *models.User, contactID uuid.UUID) error {
	return s.contacts.DeleteContact(ctx, user.ID, contactID)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	default:
		return limit
	}
}
