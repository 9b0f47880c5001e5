package domain

// Identity is the authenticated user identity a connection is bound to at
// handshake time. It is produced only by a SessionValidator and never
// re-derived from client input.
type Identity struct {
	UserID   string
	Username string
}
