// Package controller keeps a client's authentication state reconciled with
// the identity provider: it restores the session on startup, follows
// session-change events, refetches the profile when identity changes, and
// revalidates when the client wakes up.
package controller

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/planforge-dev/planforge/internal/identity"
	"github.com/planforge-dev/planforge/internal/session"
)

// ProfileFetcher retrieves the backend profile for the current session.
// A nil profile with a nil error means "no profile" (unauthenticated or
// backend failure); errors are transport faults.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context) (*session.Profile, error)
}

// Controller owns the AuthState of one client instance. All state mutations
// happen under a single mutex; profile fetches run on the caller's goroutine
// with an in-flight guard so overlapping triggers collapse into one request.
type Controller struct {
	identity identity.Client
	cache    *session.Cache
	profiles ProfileFetcher
	logger   zerolog.Logger

	mu          sync.Mutex
	state       session.AuthState
	fetching    bool
	closed      bool
	unsubscribe func()
	onChange    func(session.AuthState)
}

// New creates a controller. Call Start to restore the session and begin
// following provider events, and Close on teardown.
func New(identityClient identity.Client, cache *session.Cache, profiles ProfileFetcher, logger zerolog.Logger) *Controller {
	return &Controller{
		identity: identityClient,
		cache:    cache,
		profiles: profiles,
		logger:   logger,
		state:    session.AuthState{Loading: true},
	}
}

// SetOnChange registers a callback invoked after every state change.
// Must be called before Start.
func (c *Controller) SetOnChange(fn func(session.AuthState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns a snapshot of the current auth state
func (c *Controller) State() session.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start restores the session from the cache and subscribes to provider
// events. It runs once; the initial restoration is complete when it returns,
// with Loading switched off regardless of outcome.
func (c *Controller) Start(ctx context.Context) {
	c.restore(ctx)

	c.mu.Lock()
	c.state.Loading = false
	c.mu.Unlock()
	c.notify()

	// Subscribing after restoration means the provider's own INITIAL-style
	// delivery never double-fires the profile fetch.
	unsubscribe := c.identity.OnSessionChange(c.handleEvent)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

// Revalidate re-runs the cache-restore step. Called when the client regains
// focus or wakes, so a token rotated elsewhere or expired while idle is
// reconciled. Best-effort: failures demote the state to anonymous.
func (c *Controller) Revalidate(ctx context.Context) {
	c.restore(ctx)
}

// SignOut clears local state immediately and revokes the session with the
// provider. Local state is not left waiting on the provider's SIGNED_OUT
// event, to avoid a flash of authenticated UI.
func (c *Controller) SignOut(ctx context.Context) error {
	c.cache.Clear()

	c.mu.Lock()
	c.state.User = nil
	c.state.Profile = nil
	c.mu.Unlock()
	c.notify()

	return c.identity.SignOut(ctx)
}

// RefreshProfile re-runs the profile fetch. Used after actions that change
// entitlements, e.g. a generation that consumed a usage credit.
func (c *Controller) RefreshProfile(ctx context.Context) {
	c.fetchProfile(ctx)
}

// Close unsubscribes from provider events and suppresses any state writes
// from work still in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// restore attempts to re-establish a session from the cached token pair.
// A pair the provider no longer accepts is stale: the cache is cleared and
// the state demoted to anonymous. There is no retry beyond this one attempt.
func (c *Controller) restore(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	pair := c.cache.Load()
	if pair == nil {
		return
	}

	sess, err := c.identity.SetSession(ctx, *pair)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Session restoration failed")
		return
	}

	if sess == nil {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		changed := c.state.User != nil || c.state.Profile != nil
		c.state.User = nil
		c.state.Profile = nil
		c.mu.Unlock()
		c.cache.Clear()
		if changed {
			c.notify()
		}
		return
	}

	// Once subscribed, the SIGNED_IN event emitted by SetSession has already
	// persisted the rotated pair and triggered the profile fetch.
	c.mu.Lock()
	subscribed := c.unsubscribe != nil
	c.mu.Unlock()
	if subscribed {
		return
	}

	// The provider may have rotated the pair during restoration; persist
	// what it actually issued, not what was cached.
	c.cache.Save(sess)
	c.setUser(sess.User)
	c.fetchProfile(ctx)
}

// handleEvent processes session-change events in delivery order
func (c *Controller) handleEvent(event identity.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if event.Kind == identity.EventInitial {
		// Startup restoration already handled this
		return
	}

	if event.Kind == identity.EventSignedOut || event.Session == nil {
		c.cache.Clear()
		c.mu.Lock()
		c.state.User = nil
		c.state.Profile = nil
		c.mu.Unlock()
		c.notify()
		return
	}

	c.cache.Save(event.Session)
	c.setUser(event.Session.User)

	// A refresh rotates tokens without changing identity or entitlements;
	// refetching the profile on every silent refresh is wasted work.
	if event.Kind != identity.EventTokenRefreshed {
		c.fetchProfile(context.Background())
	}
}

// fetchProfile loads the profile for the current session. At most one fetch
// is in flight per controller; a trigger while one is running is a no-op.
// On failure the profile is set to nil rather than left stale - a wrong tier
// misrepresents entitlements, an absent one does not.
func (c *Controller) fetchProfile(ctx context.Context) {
	c.mu.Lock()
	if c.fetching || c.closed {
		c.mu.Unlock()
		return
	}
	c.fetching = true
	c.mu.Unlock()

	profile, err := c.profiles.FetchProfile(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Profile fetch failed")
		profile = nil
	}

	c.mu.Lock()
	c.fetching = false
	// Suppress the write if the controller closed or the user signed out
	// while the fetch was in flight
	apply := !c.closed && c.state.User != nil
	if apply {
		c.state.Profile = profile
	}
	c.mu.Unlock()

	if apply {
		c.notify()
	}
}

func (c *Controller) setUser(user session.UserRef) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.User = &user
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	state := c.state
	c.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}
