package session

import "time"

// Session is the cached copy of a provider-issued session. The identity
// provider owns the real thing; this struct is never a second source of truth.
type Session struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"` // epoch seconds
	User         UserRef `json:"user"`
}

// UserRef identifies the authenticated user within a session
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IsComplete reports whether the session carries both tokens and an expiry.
// A partial session is treated as absent everywhere in this package.
func (s *Session) IsComplete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.ExpiresAt > 0
}

// ExpiresWithin reports whether the access token expires within d from now
func (s *Session) ExpiresWithin(d time.Duration) bool {
	if s == nil {
		return true
	}
	return time.Until(time.Unix(s.ExpiresAt, 0)) < d
}

// Pair returns the token pair projection persisted for reload survival
func (s *Session) Pair() TokenPair {
	return TokenPair{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}

// TokenPair is the minimal projection of a Session kept in the cache
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Usage holds the monthly generation quota counters for a user
type Usage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"` // -1 = unlimited
	Remaining int `json:"remaining"`
}

// Profile is the backend-held entitlement record for an authenticated user.
// It is refetched on every session establishment rather than cached, so tier
// changes from billing events are picked up promptly.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"` // "user", "admin"
	Tier     string `json:"tier"` // "free", "pro", "enterprise"
	IsActive bool   `json:"is_active"`
	Usage    Usage  `json:"usage"`
}

// AuthState is the public projection exposed to the rest of the application
type AuthState struct {
	User    *UserRef
	Profile *Profile
	Loading bool
}
