package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/models"
	"github.com/akarpov/contactsbook/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	createUser := func(t *testing.T, repo *UserRepo, email string) models.User {
		t.Helper()
		user, err := repo.CreateUser(t.Context(), "testuser", email, "hashed-password")
		require.NoError(t, err, "creating test user should not fail")
		return user
	}

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}

				user, err := repo.CreateUser(t.Context(), "testuser", "user@example.com", "hashed-password")

				require.NoError(t, err)
				assert.NotZero(t, user.ID)
				assert.NotZero(t, user.CreatedAt)
				assert.Equal(t, "testuser", user.Username)
				assert.Equal(t, "user@example.com", user.Email)
				assert.Equal(t, "hashed-password", user.HashedPassword)
				assert.Nil(t, user.AvatarURL, "fresh user has no avatar")
				assert.Nil(t, user.RefreshToken, "fresh user has no active session")
				assert.False(t, user.Confirmed, "fresh user is not confirmed")
			})
		})

		t.Run("fail if email taken", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}
				createUser(t, repo, "user@example.com")

				_, err := repo.CreateUser(t.Context(), "other", "User@Example.COM", "other-hash")

				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "unique index is on lower(email)")
			})
		})
	})

	t.Run("GetUserByEmail", func(t *testing.T) {
		t.Run("get ok case insensitive", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}
				created := createUser(t, repo, "user@example.com")

				got, err := repo.GetUserByEmail(t.Context(), "USER@example.com")

				require.NoError(t, err)
				assert.Equal(t, created.ID, got.ID)
			})
		})

		t.Run("fail if not exists", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}

				_, err := repo.GetUserByEmail(t.Context(), "nobody@example.com")

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("SetRefreshToken", func(t *testing.T) {
		t.Run("set and clear", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}
				createUser(t, repo, "user@example.com")

				token := "refresh-token"
				user, err := repo.SetRefreshToken(t.Context(), "user@example.com", &token)
				require.NoError(t, err)
				require.NotNil(t, user.RefreshToken)
				assert.Equal(t, "refresh-token", *user.RefreshToken)

				user, err = repo.SetRefreshToken(t.Context(), "user@example.com", nil)
				require.NoError(t, err)
				assert.Nil(t, user.RefreshToken, "nil token clears the session")
			})
		})

		t.Run("fail if not exists", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}

				token := "refresh-token"
				_, err := repo.SetRefreshToken(t.Context(), "nobody@example.com", &token)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("RotateRefreshToken", func(t *testing.T) {
		t.Run("rotate ok", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}
				createUser(t, repo, "user@example.com")

				old := "old-token"
				_, err := repo.SetRefreshToken(t.Context(), "user@example.com", &old)
				require.NoError(t, err)

				user, err := repo.RotateRefreshToken(t.Context(), "user@example.com", "old-token", "new-token")

				require.NoError(t, err)
				require.NotNil(t, user.RefreshToken)
				assert.Equal(t, "new-token", *user.RefreshToken)
			})
		})

		t.Run("fail if stored token differs", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}
				createUser(t, repo, "user@example.com")

				old := "old-token"
				_, err := repo.SetRefreshToken(t.Context(), "user@example.com", &old)
				require.NoError(t, err)

				_, err = repo.RotateRefreshToken(t.Context(), "user@example.com", "stale-token", "new-token")

				require.ErrorIs(t, err, apperrors.ErrUserNotFound, "compare part of the swap must not match")
			})
		})

		t.Run("second rotation with same token fails", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &UserRepo{DB: tx}
				createUser(t, repo, "user@example.com")

				old := "old-token"
				_, err := repo.SetRefreshToken(t.Context(), "user@example.com", &old)
				require.NoError(t, err)

				_, err = repo.RotateRefreshToken(t.Context(), "user@example.com", "old-token", "new-token")
				require.NoError(t, err)

				_, err = repo.RotateRefreshToken(t.Context(), "user@example.com", "old-token", "another-token")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound, "the token was already swapped away")
			})
		})
	})

	t.Run("ConfirmEmail", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{DB: tx}
			createUser(t, repo, "user@example.com")

			user, err := repo.ConfirmEmail(t.Context(), "user@example.com")

			require.NoError(t, err)
			assert.True(t, user.Confirmed)

			// Confirming again keeps the flag set
			user, err = repo.ConfirmEmail(t.Context(), "user@example.com")
			require.NoError(t, err)
			assert.True(t, user.Confirmed)
		})
	})

	t.Run("SetAvatarURL", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{DB: tx}
			createUser(t, repo, "user@example.com")

			user, err := repo.SetAvatarURL(t.Context(), "user@example.com", "https://cdn.example.com/avatars/user.png")

			require.NoError(t, err)
			require.NotNil(t, user.AvatarURL)
			assert.Equal(t, "https://cdn.example.com/avatars/user.png", *user.AvatarURL)
		})
	})
}
