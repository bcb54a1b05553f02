package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akarpov/contactsbook/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user with hashed password
	// If user with the same email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, email string, hashedPassword string) (models.User, error)

	// Get user by email, lookup is case insensitive
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Set or clear (nil) the stored refresh token
	// Returns the persisted row so callers may verify the write
	SetRefreshToken(ctx context.Context, email string, token *string) (models.User, error)

	// Replace the stored refresh token only if it still equals old
	// If no row matched (user absent or token rotated already) must return apperrors.ErrUserNotFound
	RotateRefreshToken(ctx context.Context, email string, old string, next string) (models.User, error)

	// Set confirmed flag, the flag never reverts back
	ConfirmEmail(ctx context.Context, email string) (models.User, error)

	// Store url of the uploaded user avatar
	SetAvatarURL(ctx context.Context, email string, url string) (models.User, error)
}

// Contact repository interface
// All operations are scoped to the owning user
type ContactRepo interface {
	CreateContact(ctx context.Context, contact models.Contact) (models.Contact, error)

	// If contact not found for this user must return apperrors.ErrContactNotFound
	GetContact(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) (models.Contact, error)

	ListContacts(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Contact, error)

	// Filtered search, see models.ContactFilter for supported fields
	QueryContacts(ctx context.Context, userID uuid.UUID, filter models.ContactFilter) ([]models.Contact, error)

	UpdateContact(ctx context.Context, userID uuid.UUID, contactID uuid.UUID, params UpdateContactParams) (models.Contact, error)

	DeleteContact(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) error
}

// Fields to change on contact update
// Nil pointer means "keep current value"
type UpdateContactParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Birthday  *time.Time
	Notes     *string
}

// Storage aggregates repositories backed by the same connection
type Storage interface {
	User() UserRepo
	Contact() ContactRepo
}
