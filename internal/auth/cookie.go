package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/sessions"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// Session value keys. The auth handlers write them at login through the
// echo session middleware; the validator reads them back here.
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
)

// UserFinder resolves a user id from the account store. The validator uses
// it to reject sessions whose user no longer exists.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*domain.User, error)
}

// CookieValidator decodes a gorilla/sessions cookie value and resolves the
// embedded user id against the account store.
type CookieValidator struct {
	store *sessions.CookieStore
	users UserFinder
}

// NewCookieValidator creates a validator sharing the server's session store,
// so cookies issued at login decode with the same keys.
func NewCookieValidator(store *sessions.CookieStore, users UserFinder) *CookieValidator {
	return &CookieValidator{store: store, users: users}
}

// Validate implements SessionValidator. The token is the raw cookie value as
// sent by the client.
func (v *CookieValidator) Validate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, fmt.Errorf("empty session token: %w", domain.ErrAuthentication)
	}

	// sessions.Store only decodes out of an *http.Request, so rebuild the
	// cookie header around the bare token.
	req := (&http.Request{Header: http.Header{}}).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	session, err := v.store.Get(req, SessionCookieName)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid session cookie: %w", domain.ErrAuthentication)
	}

	userID, ok := session.Values[SessionKeyUserID].(uint)
	if !ok || session.IsNew {
		return domain.Identity{}, fmt.Errorf("session carries no user: %w", domain.ErrAuthentication)
	}

	user, err := v.users.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		return domain.Identity{}, fmt.Errorf("session user %d not found: %w", userID, domain.ErrAuthentication)
	}

	return domain.Identity{
		UserID:   strconv.FormatUint(uint64(user.ID), 10),
		Username: user.Username,
	}, nil
}
