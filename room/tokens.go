package room

import (
	"sync"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

// TokenRegistry maps admission tokens to the profile each was minted for.
// Tokens never expire and are not single-use: any number of connections may
// authenticate with the same token.
type TokenRegistry struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProfile
}

func newTokenRegistry() *TokenRegistry {
	return &TokenRegistry{profiles: make(map[string]domain.UserProfile)}
}

// Issue mints a token for the given identity. The name is trimmed and capped,
// an empty name or color is rejected.
func (t *TokenRegistry) Issue(name, color string) (string, error) {
	profile, err := domain.NewUserProfile(name, color)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var token string
	for {
		token = newID()
		if _, exists := t.profiles[token]; !exists {
			break
		}
	}
	t.profiles[token] = profile
	return token, nil
}

// Has reports whether the token was minted by this registry.
func (t *TokenRegistry) Has(token string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.profiles[token]
	return ok
}

// Resolve looks up the profile a token was minted for without consuming it.
func (t *TokenRegistry) Resolve(token string) (domain.UserProfile, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	profile, ok := t.profiles[token]
	return profile, ok
}
