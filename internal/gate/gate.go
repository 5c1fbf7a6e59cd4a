// Package gate is the edge request interceptor: it revalidates the session
// from request cookies on every navigation, propagates refreshed tokens to
// both the forwarded request and the response, and enforces route access
// before any page renders.
package gate

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/planforge-dev/planforge/internal/session"
)

const (
	// Cookie names the token pair travels under
	AccessTokenCookie  = "pf-access-token"
	RefreshTokenCookie = "pf-refresh-token"

	accessTokenMaxAge  = 3600
	refreshTokenMaxAge = 30 * 24 * 3600
)

// SessionResolver validates a token pair with the identity provider and
// returns the session it represents, rotating expired access tokens. A nil
// session with a nil error means the pair resolves to no user.
// identity.HTTPClient satisfies this.
type SessionResolver interface {
	Resolve(ctx context.Context, pair session.TokenPair) (*session.Session, error)
}

// Gate gates requests by session state. It holds no per-request state; all
// session state lives in the request's cookies.
type Gate struct {
	resolver SessionResolver
	routes   RouteTable
	logger   zerolog.Logger
}

// New creates a gate over the given resolver and route table
func New(resolver SessionResolver, routes RouteTable, logger zerolog.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		routes:   routes,
		logger:   logger,
	}
}

// Middleware returns the gin middleware enforcing the route table. It runs
// before any page is served: the session is revalidated with the identity
// provider (which can detect server-side revocation a local expiry check
// cannot), rotated cookies are written through, and redirects are issued for
// protected and auth-only paths.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		sess := g.resolveSession(c)

		if g.routes.IsProtected(path) && sess == nil {
			query := url.Values{"redirect": {path}}
			c.Redirect(http.StatusFound, g.routes.LoginPath+"?"+query.Encode())
			c.Abort()
			return
		}

		if g.routes.IsAuthOnly(path) && sess != nil {
			c.Redirect(http.StatusFound, g.routes.LandingPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// resolveSession validates the cookie-borne token pair with the provider.
// Any provider error counts as "no user": protected paths fail closed,
// public paths keep rendering. When validation rotated the tokens, the new
// pair is written to the response for the browser and into the request's
// Cookie header for the upstream render.
func (g *Gate) resolveSession(c *gin.Context) *session.Session {
	pair := session.TokenPair{}
	if v, err := c.Cookie(AccessTokenCookie); err == nil {
		pair.AccessToken = v
	}
	if v, err := c.Cookie(RefreshTokenCookie); err == nil {
		pair.RefreshToken = v
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return nil
	}

	sess, err := g.resolver.Resolve(c.Request.Context(), pair)
	if err != nil {
		g.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Session validation failed")
		return nil
	}

	if sess == nil {
		g.clearCookies(c)
		return nil
	}

	if sess.AccessToken != pair.AccessToken || sess.RefreshToken != pair.RefreshToken {
		g.writeCookies(c, sess)
	}
	return sess
}

// writeCookies propagates a rotated pair to both directions. Skipping either
// one silently loses the refreshed tokens: the browser would keep presenting
// the old pair, or the upstream would render with it.
func (g *Gate) writeCookies(c *gin.Context, sess *session.Session) {
	secure := c.Request.TLS != nil

	c.SetCookie(AccessTokenCookie, sess.AccessToken, accessTokenMaxAge, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, sess.RefreshToken, refreshTokenMaxAge, "/", "", secure, true)

	setRequestCookie(c.Request, AccessTokenCookie, sess.AccessToken)
	setRequestCookie(c.Request, RefreshTokenCookie, sess.RefreshToken)
}

func (g *Gate) clearCookies(c *gin.Context) {
	secure := c.Request.TLS != nil

	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

// setRequestCookie replaces a cookie in the request's Cookie header
func setRequestCookie(r *http.Request, name, value string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	replaced := false
	for _, ck := range cookies {
		if ck.Name == name {
			r.AddCookie(&http.Cookie{Name: name, Value: value})
			replaced = true
			continue
		}
		r.AddCookie(ck)
	}
	if !replaced {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}
