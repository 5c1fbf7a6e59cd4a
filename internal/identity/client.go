// Package identity wraps the external identity provider behind a small
// capability interface. Any provider satisfying Client is interchangeable;
// token issuance and cryptographic validation stay on the provider side.
package identity

import (
	"context"

	"github.com/planforge-dev/planforge/internal/session"
)

// EventKind identifies a session-change event
type EventKind string

const (
	EventInitial        EventKind = "INITIAL"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is delivered to session-change subscribers. Session is nil for
// SIGNED_OUT and for an INITIAL event with no restored session.
type Event struct {
	Kind    EventKind
	Session *session.Session
}

// Handler receives session-change events in delivery order
type Handler func(Event)

// Client is the consumed interface over the identity provider.
//
// Auth-negative outcomes (no session, expired or revoked tokens, denied
// refresh) are represented as a nil session with a nil error; a non-nil error
// indicates a transport-level fault only.
type Client interface {
	// GetSession returns the provider's view of the current session, or nil
	// when unauthenticated
	GetSession() *session.Session

	// RefreshSession exchanges the stored refresh token for a new pair and
	// emits TOKEN_REFRESHED on success. Returns nil when the refresh token
	// is revoked or expired.
	RefreshSession(ctx context.Context) (*session.Session, error)

	// SetSession re-hydrates a session from externally-held tokens and emits
	// SIGNED_IN on success. Returns nil when the pair can no longer be
	// exchanged for a session.
	SetSession(ctx context.Context, pair session.TokenPair) (*session.Session, error)

	// SignOut revokes the current session with the provider
	SignOut(ctx context.Context) error

	// OnSessionChange registers a handler for session-change events and
	// returns a function that unregisters it
	OnSessionChange(handler Handler) (unsubscribe func())
}
