package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, username, email, password_hash, avatar, refresh_token, confirmed
`

func (r *UserRepo) CreateUser(ctx context.Context, username string, email string, hashedPassword string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), username, email, hashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, username, email, password_hash, avatar, refresh_token, confirmed
FROM users
WHERE lower(email) = lower($1)
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token = $2
WHERE lower(email) = lower($1)
RETURNING id, created_at, username, email, password_hash, avatar, refresh_token, confirmed
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, email string, token *string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setRefreshToken, email, token)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE users
SET refresh_token = $3
WHERE lower(email) = lower($1) AND refresh_token = $2
RETURNING id, created_at, username, email, password_hash, avatar, refresh_token, confirmed
`

// Compare-and-swap the stored refresh token
// Exactly one of two concurrent rotations with the same old token may succeed
func (r *UserRepo) RotateRefreshToken(ctx context.Context, email string, old string, next string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, rotateRefreshToken, email, old, next)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const confirmEmail = `-- name: ConfirmEmail
UPDATE users
SET confirmed = true
WHERE lower(email) = lower($1)
RETURNING id, created_at, username, email, password_hash, avatar, refresh_token, confirmed
`

func (r *UserRepo) ConfirmEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, confirmEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setAvatarURL = `-- name: SetAvatarURL
UPDATE users
SET avatar = $2
WHERE lower(email) = lower($1)
RETURNING id, created_at, username, email, password_hash, avatar, refresh_token, confirmed
`

func (r *UserRepo) SetAvatarURL(ctx context.Context, email string, url string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setAvatarURL, email, url)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.HashedPassword, &u.AvatarURL, &u.RefreshToken, &u.Confirmed)
	return u, err
}
