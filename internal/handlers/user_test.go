package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/models"
)

type avatarSetterStub struct {
	setAvatar func(ctx context.Context, email string, url string) (models.User, error)
}

func (s *avatarSetterStub) SetAvatar(ctx context.Context, email string, url string) (models.User, error) {
	return s.setAvatar(ctx, email, url)
}

type avatarUploaderStub struct {
	upload func(ctx context.Context, email string, contentType string, body io.Reader) (string, error)
}

func (s *avatarUploaderStub) Upload(ctx context.Context, email string, contentType string, body io.Reader) (string, error) {
	return s.upload(ctx, email, contentType, body)
}

func Test_UserHandler(t *testing.T) {
	t.Parallel()

	avatarURL := "https://cdn.example.com/avatars/user.png"
	testUser := models.User{ID: uuid.New(), Email: "user@example.com", Username: "testuser", Confirmed: true}

	newServer := func(t *testing.T, setter *avatarSetterStub, uploader *avatarUploaderStub) *httptest.Server {
		t.Helper()
		h := NewUser(setter, uploader, logger.NewNoOpLogger())
		srv := httptest.NewServer(withTestUser(testUser, h.Handler()))
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("me returns public projection", func(t *testing.T) {
		srv := newServer(t, &avatarSetterStub{}, &avatarUploaderStub{})

		resp, err := http.Get(srv.URL + "/me")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

		var user models.PublicUser
		require.NoError(t, json.Unmarshal(body, &user))
		assert.Equal(t, testUser.ID, user.ID)
		assert.Equal(t, "testuser", user.Username)
		assert.Equal(t, "user@example.com", user.Email)
		assert.True(t, user.Confirmed)

		// Sensitive fields must not leak into the response
		assert.NotContains(t, string(body), "password")
		assert.NotContains(t, string(body), "refresh")
	})

	t.Run("update avatar ok", func(t *testing.T) {
		var uploadedFor, uploadedType string
		uploader := &avatarUploaderStub{
			upload: func(ctx context.Context, email string, contentType string, body io.Reader) (string, error) {
				uploadedFor, uploadedType = email, contentType
				_, err := io.ReadAll(body)
				require.NoError(t, err)
				return avatarURL, nil
			},
		}
		setter := &avatarSetterStub{
			setAvatar: func(ctx context.Context, email string, url string) (models.User, error) {
				require.Equal(t, avatarURL, url)
				user := testUser
				user.AvatarURL = &url
				return user, nil
			},
		}
		srv := newServer(t, setter, uploader)

		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		part, err := mw.CreateFormFile("file", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPatch, srv.URL+"/avatar", buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
		assert.Equal(t, "user@example.com", uploadedFor)
		assert.Equal(t, "application/octet-stream", uploadedType, "multipart writer sets default part content type")

		var user models.PublicUser
		require.NoError(t, json.Unmarshal(body, &user))
		require.NotNil(t, user.AvatarURL)
		assert.Equal(t, avatarURL, *user.AvatarURL)
	})

	t.Run("update avatar without file", func(t *testing.T) {
		srv := newServer(t, &avatarSetterStub{}, &avatarUploaderStub{})

		req, err := http.NewRequest(http.MethodPatch, srv.URL+"/avatar", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
