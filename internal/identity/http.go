package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/planforge-dev/planforge/internal/session"
)

// HTTPClient talks to a GoTrue-style identity provider over HTTP.
// It keeps the provider's current session in memory and fans session-change
// events out to subscribers in registration order.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	current  *session.Session
	handlers []handlerEntry
	nextID   int
}

type handlerEntry struct {
	id      int
	handler Handler
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the identity provider at baseURL.
// The apiKey is sent with every request as the project key.
func NewHTTPClient(baseURL, apiKey string, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *HTTPClient) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// tokenResponse is the provider's token grant response
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// GetSession returns the current in-memory session, or nil
func (c *HTTPClient) GetSession() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	copied := *c.current
	return &copied
}

// RefreshSession exchanges the current refresh token for a new pair and
// emits a TOKEN_REFRESHED event on success. A denied refresh (revoked or
// expired refresh token) clears the current session and returns nil.
func (c *HTTPClient) RefreshSession(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	return c.refreshWithToken(ctx, current.RefreshToken)
}

func (c *HTTPClient) refreshWithToken(ctx context.Context, refreshToken string) (*session.Session, error) {
	sess, err := c.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Refresh denied: the provider no longer recognizes this token.
		// That is a sign-out, and subscribers must observe it as one so
		// cached pairs get cleared and state demotes to anonymous.
		c.setCurrent(nil)
		c.emit(Event{Kind: EventSignedOut, Session: nil})
		return nil, nil
	}

	c.setCurrent(sess)
	c.emit(Event{Kind: EventTokenRefreshed, Session: sess})
	return c.GetSession(), nil
}

// SetSession re-hydrates a session from an externally-held token pair and
// emits SIGNED_IN on success.
func (c *HTTPClient) SetSession(ctx context.Context, pair session.TokenPair) (*session.Session, error) {
	sess, err := c.Resolve(ctx, pair)
	if err != nil || sess == nil {
		return nil, err
	}

	c.setCurrent(sess)
	c.emit(Event{Kind: EventSignedIn, Session: sess})
	return c.GetSession(), nil
}

// Resolve validates a token pair against the provider and returns the
// session it represents, exchanging the refresh token when the access token
// is expired or missing. Unlike SetSession it touches no client state and
// emits no events, so it is safe to call per request at the edge.
func (c *HTTPClient) Resolve(ctx context.Context, pair session.TokenPair) (*session.Session, error) {
	if pair.RefreshToken == "" && pair.AccessToken == "" {
		return nil, nil
	}

	if pair.AccessToken != "" {
		user, status, err := c.fetchUser(ctx, pair.AccessToken)
		if err != nil {
			return nil, err
		}
		if user != nil {
			sess := &session.Session{
				AccessToken:  pair.AccessToken,
				RefreshToken: pair.RefreshToken,
				ExpiresAt:    accessTokenExpiry(pair.AccessToken),
				User:         *user,
			}
			if !sess.IsComplete() {
				return nil, nil
			}
			return sess, nil
		}
		if status != http.StatusUnauthorized {
			return nil, nil
		}
		// Access token expired or revoked; the refresh token may still be good
	}

	if pair.RefreshToken == "" {
		return nil, nil
	}
	return c.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
}

// SignInWithPassword performs the provider's password grant and emits
// SIGNED_IN on success. Credentials pass straight through; nothing is stored.
// Not part of the Client interface: only the CLI login flow needs it.
func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	sess, err := c.tokenGrant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil || sess == nil {
		return nil, err
	}

	c.setCurrent(sess)
	c.emit(Event{Kind: EventSignedIn, Session: sess})
	return c.GetSession(), nil
}

// SignOut revokes the current session with the provider and emits SIGNED_OUT.
// The in-memory session is cleared even if the revocation call fails.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	var revokeErr error
	if current != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/logout", c.baseURL), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", current.AccessToken))
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			revokeErr = fmt.Errorf("failed to revoke session: %w", err)
		} else {
			resp.Body.Close()
		}
	}

	c.setCurrent(nil)
	c.emit(Event{Kind: EventSignedOut, Session: nil})
	return revokeErr
}

// OnSessionChange registers a session-change handler. Handlers are invoked
// synchronously in registration order.
func (c *HTTPClient) OnSessionChange(handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers = append(c.handlers, handlerEntry{id: id, handler: handler})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, entry := range c.handlers {
			if entry.id == id {
				c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// tokenGrant performs a token grant against the provider. A non-200 response
// means the grant was denied and yields (nil, nil).
func (c *HTTPClient) tokenGrant(ctx context.Context, grantType string, body map[string]string) (*session.Session, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/token?grant_type=%s", c.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("grant_type", grantType).
			Str("body", string(respBody)).
			Msg("Token grant denied")
		return nil, nil
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return sessionFromTokenResponse(&tr), nil
}

// fetchUser resolves the user behind an access token. Returns (nil, status,
// nil) when the provider rejects the token.
func (c *HTTPClient) fetchUser(ctx context.Context, accessToken string) (*session.UserRef, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/user", c.baseURL), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var user session.UserRef
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, resp.StatusCode, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
}

func (c *HTTPClient) setCurrent(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = sess
}

// emit delivers an event to all subscribers in registration order. The
// handler list is snapshotted so a handler may unsubscribe during delivery.
func (c *HTTPClient) emit(event Event) {
	c.mu.Lock()
	handlers := make([]handlerEntry, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, entry := range handlers {
		entry.handler(event)
	}
}

func sessionFromTokenResponse(tr *tokenResponse) *session.Session {
	expiresAt := tr.ExpiresAt
	if expiresAt == 0 && tr.ExpiresIn > 0 {
		expiresAt = time.Now().Unix() + tr.ExpiresIn
	}
	if expiresAt == 0 {
		expiresAt = accessTokenExpiry(tr.AccessToken)
	}

	sess := &session.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
		User: session.UserRef{
			ID:    tr.User.ID,
			Email: tr.User.Email,
		},
	}
	if !sess.IsComplete() {
		return nil
	}
	return sess
}

// accessTokenExpiry reads the exp claim without verifying the signature.
// Validation is the provider's job; this is only an expiry hint for the
// proactive-refresh check.
func accessTokenExpiry(accessToken string) int64 {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
