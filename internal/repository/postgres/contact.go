package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/models"
	"github.com/akarpov/contactsbook/internal/repository"
)

type ContactRepo struct {
	DB DBTX
}

const createContact = `-- name: CreateContact
INSERT INTO contacts (id, user_id, first_name, last_name, email, birthday, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, first_name, last_name, email, birthday, notes, created_at, updated_at
`

func (r *ContactRepo) CreateContact(ctx context.Context, contact models.Contact) (models.Contact, error) {
	id := contact.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createContact,
		id, contact.UserID, contact.FirstName, contact.LastName, contact.Email, contact.Birthday, contact.Notes)
	created, err := pgx.CollectOneRow(rows, rowToContact)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getContact = `-- name: GetContact
SELECT id, user_id, first_name, last_name, email, birthday, notes, created_at, updated_at
FROM contacts
WHERE id = $1 AND user_id = $2
`

func (r *ContactRepo) GetContact(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, getContact, contactID, userID)
	contact, err := pgx.CollectOneRow(rows, rowToContact)

	switch {
	case err == nil:
		return contact, nil
	case errors.Is(err, pgx.ErrNoRows):
		return contact, apperrors.ErrContactNotFound
	default:
		return contact, fmt.Errorf("db error: %w", err)
	}
}

const listContacts = `-- name: ListContacts
SELECT id, user_id, first_name, last_name, email, birthday, notes, created_at, updated_at
FROM contacts
WHERE user_id = $1
ORDER BY created_at, id
LIMIT $2 OFFSET $3
`

func (r *ContactRepo) ListContacts(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Contact, error) {
	rows, _ := r.DB.Query(ctx, listContacts, userID, limit, offset)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contacts, nil
}

const queryContacts = `-- name: QueryContacts
SELECT id, user_id, first_name, last_name, email, birthday, notes, created_at, updated_at
FROM contacts
WHERE user_id = $1
  AND ($2 = '' OR first_name ILIKE '%' || $2 || '%')
  AND ($3 = '' OR last_name ILIKE '%' || $3 || '%')
  AND ($4 = '' OR email ILIKE '%' || $4 || '%')
  AND ($5 = 0 OR (
    birthday IS NOT NULL
    AND (
      birthday + make_interval(years => date_part('year', CURRENT_DATE)::int - date_part('year', birthday)::int)
        BETWEEN CURRENT_DATE AND CURRENT_DATE + make_interval(days => $5)
      OR birthday + make_interval(years => date_part('year', CURRENT_DATE)::int - date_part('year', birthday)::int + 1)
        BETWEEN CURRENT_DATE AND CURRENT_DATE + make_interval(days => $5)
    )
  ))
ORDER BY created_at, id
LIMIT $6 OFFSET $7
`

// Filtered search with upcoming birthday anniversary window
// The anniversary may fall into the next calendar year, both are checked
// All filters are combined with AND, empty filter values are skipped
func (r *ContactRepo) QueryContacts(ctx context.Context, userID uuid.UUID, filter models.ContactFilter) ([]models.Contact, error) {
	rows, _ := r.DB.Query(ctx, queryContacts,
		userID,
		filter.FirstName,
		filter.LastName,
		filter.Email,
		filter.DaysToBirthday,
		filter.Limit,
		filter.Offset,
	)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contacts, nil
}

const updateContact = `-- name: UpdateContact
UPDATE contacts
SET first_name = COALESCE($3, first_name),
    last_name  = COALESCE($4, last_name),
    email      = COALESCE($5, email),
    birthday   = COALESCE($6, birthday),
    notes      = COALESCE($7, notes),
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, first_name, last_name, email, birthday, notes, created_at, updated_at
`

func (r *ContactRepo) UpdateContact(ctx context.Context, userID uuid.UUID, contactID uuid.UUID, params repository.UpdateContactParams) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, updateContact,
		contactID, userID, params.FirstName, params.LastName, params.Email, params.Birthday, params.Notes)
	contact, err := pgx.CollectOneRow(rows, rowToContact)

	switch {
	case err == nil:
		return contact, nil
	case errors.Is(err, pgx.ErrNoRows):
		return contact, apperrors.ErrContactNotFound
	default:
		return contact, fmt.Errorf("db error: %w", err)
	}
}

const deleteContact = `-- name: DeleteContact
DELETE FROM contacts
WHERE id = $1 AND user_id = $2
`

func (r *ContactRepo) DeleteContact(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteContact, contactID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrContactNotFound
	}

	return nil
}

func rowToContact(row pgx.CollectableRow) (models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Birthday, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
