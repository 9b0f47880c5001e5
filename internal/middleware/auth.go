package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/auth"
	"github.com/tradetalk/tradetalk/internal/domain"
)

// IdentityContextKey is where the authenticated identity lands in the echo
// context.
const IdentityContextKey = "identity"

// Auth protects API routes that require an authenticated session. It
// resolves the session cookie through the same validator the WebSocket
// handshake uses.
func Auth(validator auth.SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}

			identity, err := validator.Validate(c.Request().Context(), cookie.Value)
			if err != nil {
				// Clear the dead cookie so clients stop resending it.
				c.SetCookie(&http.Cookie{
					Name:   auth.SessionCookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}

			c.Set(IdentityContextKey, identity)
			return next(c)
		}
	}
}

// IdentityFromContext returns the identity the Auth middleware stored, or
// false when the route was reached without it.
func IdentityFromContext(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(IdentityContextKey).(domain.Identity)
	return identity, ok
}
