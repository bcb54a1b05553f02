package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/handlers/userctx"
	"github.com/akarpov/contactsbook/internal/models"
)

// Allow to use a function as caller resolver
type resolverFunc func(ctx context.Context, accessToken string) (models.User, error)

func (f resolverFunc) ResolveUser(ctx context.Context, accessToken string) (models.User, error) {
	return f(ctx, accessToken)
}

func Test_AuthMiddleware(t *testing.T) {
	t.Parallel()

	// Simple handler that reports the username of the context user
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user or fail the request
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(user.Username))
		require.NoError(t, err, "should write username to response")
	})

	get := func(t *testing.T, url string, authorization string) (*http.Response, string) {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, url, nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp, string(body)
	}

	t.Run("resolve ok", func(t *testing.T) {
		var gotToken string
		mw := AuthMiddleware(resolverFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			gotToken = accessToken
			return models.User{Username: "test-user"}, nil
		}))

		srv := httptest.NewServer(mw(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL+"/test", "Bearer some-access-token")

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", body)
		require.Equal(t, "test-user", body, "should return username in response")
		require.Equal(t, "some-access-token", gotToken, "token should be passed to resolver as is")
	})

	t.Run("resolver fails", func(t *testing.T) {
		mw := AuthMiddleware(resolverFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			return models.User{}, apperrors.ErrUnauthorized
		}))

		srv := httptest.NewServer(mw(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL+"/test", "Bearer bad-token")

		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "should return 401. Resp: %s", body)
	})

	t.Run("no header", func(t *testing.T) {
		mw := AuthMiddleware(resolverFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			t.Fatal("resolver must not be called without a bearer token")
			return models.User{}, nil
		}))

		srv := httptest.NewServer(mw(handler))
		defer srv.Close()

		resp, _ := get(t, srv.URL+"/test", "")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		mw := AuthMiddleware(resolverFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			t.Fatal("resolver must not be called for non bearer schemes")
			return models.User{}, nil
		}))

		srv := httptest.NewServer(mw(handler))
		defer srv.Close()

		resp, _ := get(t, srv.URL+"/test", "Basic dXNlcjpwd2Q=")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func Test_BearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{name: "bearer ok", header: "Bearer token-value", wantToken: "token-value", wantOK: true},
		{name: "scheme case insensitive", header: "bearer token-value", wantToken: "token-value", wantOK: true},
		{name: "empty header", header: "", wantOK: false},
		{name: "no token", header: "Bearer ", wantOK: false},
		{name: "wrong scheme", header: "Basic token-value", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, ok := BearerToken(r)

			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantToken, token)
		})
	}
}
