package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/auth"
	"github.com/tradetalk/tradetalk/internal/database"
	"github.com/tradetalk/tradetalk/internal/domain"
)

// AuthHandler establishes and tears down the sessions the cookie validator
// resolves. Session access goes through the echo session middleware, so the
// middleware must be registered on any route group using these handlers.
type AuthHandler struct {
	users *database.UserStore
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *database.UserStore) *AuthHandler {
	return &AuthHandler{users: users}
}

// writeSession records the user in the request's session and issues the
// cookie on the response.
func writeSession(c echo.Context, user *domain.User) error {
	sess, err := echosession.Get(auth.SessionCookieName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
	}
	sess.Values[auth.SessionKeyUserID] = user.ID
	sess.Values[auth.SessionKeyUsername] = user.Username
	return sess.Save(c.Request(), c.Response())
}

// clearSession expires the session cookie.
func clearSession(c echo.Context) error {
	sess, err := echosession.Get(auth.SessionCookieName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// RegisterPost creates an account and logs it in.
func (h *AuthHandler) RegisterPost(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("username and password are required"))
	}

	user, err := h.users.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return c.JSON(http.StatusConflict, errorJSON("username is taken"))
		}
		slog.Error("Failed to register user", "username", req.Username, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("registration failed"))
	}

	if err := writeSession(c, user); err != nil {
		slog.Error("Failed to write session", "userID", user.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("registration failed"))
	}
	return c.JSON(http.StatusCreated, user)
}

// LoginPost verifies credentials and issues a session cookie.
func (h *AuthHandler) LoginPost(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("username and password are required"))
	}

	user, err := h.users.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, errorJSON("invalid credentials"))
		}
		slog.Error("Failed to authenticate user", "username", req.Username, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("login failed"))
	}

	if err := writeSession(c, user); err != nil {
		slog.Error("Failed to write session", "userID", user.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("login failed"))
	}
	return c.JSON(http.StatusOK, user)
}

// LogoutPost expires the session cookie.
func (h *AuthHandler) LogoutPost(c echo.Context) error {
	if err := clearSession(c); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
