// Package apiclient wraps calls to the Planforge backend, attaching a valid
// bearer token and recovering once from an authorization failure.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/planforge-dev/planforge/internal/identity"
	"github.com/planforge-dev/planforge/internal/session"
)

// refreshLeeway is how close to expiry a token may get before it is
// refreshed ahead of use
const refreshLeeway = 60 * time.Second

// Client is an HTTP client for the Planforge backend API
type Client struct {
	baseURL    string
	identity   identity.Client
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a new API client
func New(baseURL string, identityClient identity.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		identity: identityClient,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Do issues an authenticated request to the backend.
//
// A session close to expiry is refreshed before use; a failed proactive
// refresh falls through to an unauthenticated request so the failure surfaces
// as a 401 rather than a silent retry loop. A 401 response triggers exactly
// one forced refresh and one retry; the retried response is final whatever
// its status. Only transport-level faults are returned as errors - the caller
// always gets a response for auth-negative outcomes.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token := c.bearerToken(ctx)

	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Reactive recovery: force one refresh and retry once
	refreshed, err := c.identity.RefreshSession(ctx)
	if err != nil || refreshed == nil {
		if err != nil {
			c.logger.Debug().Err(err).Msg("Forced refresh failed after 401")
		}
		return resp, nil
	}

	resp.Body.Close()
	return c.send(ctx, method, path, body, refreshed.AccessToken)
}

// Get issues an authenticated GET request
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// FetchProfile retrieves the current user's profile and usage stats.
// Any non-200 response means "no profile" and yields (nil, nil).
func (c *Client) FetchProfile(ctx context.Context) (*session.Profile, error) {
	resp, err := c.Get(ctx, "/api/auth/me")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.logger.Debug().Int("status", resp.StatusCode).Msg("Profile fetch returned non-200")
		return nil, nil
	}

	var profile session.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// bearerToken returns the access token to attach, refreshing proactively when
// the session is within refreshLeeway of expiry. Returns "" when no usable
// token exists.
func (c *Client) bearerToken(ctx context.Context) string {
	sess := c.identity.GetSession()
	if sess == nil {
		return ""
	}

	if sess.ExpiresWithin(refreshLeeway) {
		refreshed, err := c.identity.RefreshSession(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("Proactive refresh failed")
		}
		if refreshed == nil {
			// Proceed without a token; the request will surface as a 401
			return ""
		}
		sess = refreshed
	}

	return sess.AccessToken
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", c.baseURL, path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
