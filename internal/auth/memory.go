package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// MemoryValidator is a token -> identity map. It backs tests and the
// in-process dev mode where no session store is configured.
type MemoryValidator struct {
	mu     sync.RWMutex
	tokens map[string]domain.Identity
}

// NewMemoryValidator creates an empty MemoryValidator.
func NewMemoryValidator() *MemoryValidator {
	return &MemoryValidator{tokens: make(map[string]domain.Identity)}
}

// Add registers token as a valid session for identity.
func (v *MemoryValidator) Add(token string, identity domain.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = identity
}

// Revoke removes a token.
func (v *MemoryValidator) Revoke(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.tokens, token)
}

// Validate implements SessionValidator.
func (v *MemoryValidator) Validate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, fmt.Errorf("empty session token: %w", domain.ErrAuthentication)
	}

	v.mu.RLock()
	identity, ok := v.tokens[token]
	v.mu.RUnlock()
	if !ok {
		return domain.Identity{}, fmt.Errorf("unknown session token: %w", domain.ErrAuthentication)
	}
	return identity, nil
}
