package session

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// cacheKey is the fixed namespace the token pair is stored under
const cacheKey = "planforge-auth-token"

// Cache persists the minimal token pair of the current session so a restart
// does not require a full re-authentication round trip. It is a resilience
// cache, not a credential store: every operation degrades to a no-op when the
// backing store is unavailable.
type Cache struct {
	store  Store
	logger zerolog.Logger
}

// NewCache creates a cache over the given store
func NewCache(store Store, logger zerolog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Save stores the session's token pair. Storage failures are swallowed.
func (c *Cache) Save(s *Session) {
	if !s.IsComplete() {
		return
	}

	data, err := json.Marshal(s.Pair())
	if err != nil {
		c.logger.Debug().Err(err).Msg("Failed to encode token pair")
		return
	}

	if err := c.store.Set(cacheKey, string(data)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to persist token pair")
	}
}

// Load returns the stored token pair, or nil if no entry exists, the entry is
// malformed, or either token is missing. It never fails.
func (c *Cache) Load() *TokenPair {
	value, err := c.store.Get(cacheKey)
	if err != nil {
		return nil
	}

	var pair TokenPair
	if err := json.Unmarshal([]byte(value), &pair); err != nil {
		c.logger.Debug().Err(err).Msg("Discarding malformed cached token pair")
		return nil
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil
	}

	return &pair
}

// Clear removes the stored pair. Storage failures are swallowed.
func (c *Cache) Clear() {
	if err := c.store.Delete(cacheKey); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to clear cached token pair")
	}
}
