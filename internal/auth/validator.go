package auth

import (
	"context"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// SessionCookieName is the cookie the handshake token travels in.
const SessionCookieName = "session"

// SessionValidator resolves an opaque session token to a user identity.
// The gateway depends on this interface only, so it carries no knowledge of
// how sessions are transported or stored.
type SessionValidator interface {
	// Validate returns the identity for token, or an error wrapping
	// domain.ErrAuthentication when the token is missing, invalid, or
	// resolves to no user.
	Validate(ctx context.Context, token string) (domain.Identity, error)
}
