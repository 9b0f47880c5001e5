package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetalk/tradetalk/internal/auth"
	"github.com/tradetalk/tradetalk/internal/database"
)

// setupAuthHandler wires the auth routes the way the server does, session
// middleware included, over a throwaway database.
func setupAuthHandler(t *testing.T) (*echo.Echo, *sessions.CookieStore) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	sessionStore := sessions.NewCookieStore([]byte("test-secret-key"))

	e := echo.New()
	e.Validator = NewValidator()
	e.Use(echosession.Middleware(sessionStore))

	h := NewAuthHandler(database.NewUserStore(db))
	e.POST("/api/register", h.RegisterPost)
	e.POST("/api/login", h.LoginPost)
	e.POST("/api/logout", h.LogoutPost)
	return e, sessionStore
}

func doJSON(t *testing.T, e *echo.Echo, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestRegisterIssuesValidatableSession(t *testing.T) {
	e, sessionStore := setupAuthHandler(t)

	rec := doJSON(t, e, "/api/register", map[string]string{
		"username": "alice", "password": "a-secure-password-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie, "registration must issue a session cookie")

	// The cookie the handler issued must decode through the validator the
	// gateway handshake uses, with the same store and keys.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	session, err := sessionStore.Get(req, auth.SessionCookieName)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Values[auth.SessionKeyUsername])
	assert.NotZero(t, session.Values[auth.SessionKeyUserID])
}

func TestLoginAndLogout(t *testing.T) {
	e, _ := setupAuthHandler(t)

	rec := doJSON(t, e, "/api/register", map[string]string{
		"username": "alice", "password": "a-secure-password-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("valid credentials issue a session", func(t *testing.T) {
		rec := doJSON(t, e, "/api/login", map[string]string{
			"username": "alice", "password": "a-secure-password-123",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, sessionCookie(t, rec))
	})

	t.Run("invalid credentials issue nothing", func(t *testing.T) {
		rec := doJSON(t, e, "/api/login", map[string]string{
			"username": "alice", "password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, sessionCookie(t, rec))
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		rec := doJSON(t, e, "/api/logout", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		cookie := sessionCookie(t, rec)
		require.NotNil(t, cookie)
		assert.Negative(t, cookie.MaxAge, "logout cookie must carry a negative max-age")
	})
}

func TestRegisterValidation(t *testing.T) {
	e, _ := setupAuthHandler(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "al", "password": "a-secure-password-123"}},
		{"short password", map[string]string{"username": "alice", "password": "short"}},
		{"missing fields", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, "/api/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
