package domain

import "errors"

// Sentinel errors for the chat domain. These provide consistent, checkable
// errors for the failure modes the gateway has to distinguish.
var (
	// ErrAuthentication is returned when a handshake token is missing,
	// invalid, or resolves to no user. It is terminal for the handshake:
	// no Connection is ever created.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation is returned for a malformed chat payload. It is
	// recoverable: the sender gets an error frame and the connection
	// stays open with its state unchanged.
	ErrValidation = errors.New("invalid payload")

	// ErrPersistence is returned when the message store cannot append.
	// It is reported to the sender and never retried automatically.
	ErrPersistence = errors.New("persistence failed")

	// ErrNotFound is returned for lookups of resources that do not exist.
	ErrNotFound = errors.New("requested resource not found")

	// ErrUserAlreadyExists is returned when registering a username that
	// is already taken.
	ErrUserAlreadyExists = errors.New("user with this username already exists")

	// ErrInvalidCredentials is returned for a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials provided")
)
