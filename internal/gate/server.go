package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/planforge-dev/planforge/internal/config"
)

// Server is the edge gate HTTP server: gate middleware in front of a reverse
// proxy to the app upstream.
type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  zerolog.Logger
	gate    *Gate
	version string
}

// NewServer creates the edge gate server
func NewServer(cfg *config.Config, resolver SessionResolver, zlog zerolog.Logger, version string) (*Server, error) {
	routes := DefaultRouteTable()
	if cfg.Gate.RoutesFile != "" {
		loaded, err := LoadRouteTable(cfg.Gate.RoutesFile)
		if err != nil {
			return nil, err
		}
		routes = *loaded
	}

	upstream, err := url.Parse(cfg.Gate.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	server := &Server{
		config:  cfg,
		logger:  zlog,
		gate:    New(resolver, routes, zlog),
		version: version,
	}
	server.setupRouter(upstream)

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter(upstream *url.URL) {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (never gated)
	s.router.GET("/health", s.healthCheck)

	// Everything else runs through the gate and on to the upstream
	s.router.Use(s.gate.Middleware())

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Upstream proxy error")
		w.WriteHeader(http.StatusBadGateway)
	}
	s.router.NoRoute(gin.WrapH(proxy))
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

// loggingMiddleware creates a custom logging middleware using zerolog.
// Each request gets a ULID so edge log lines correlate with upstream ones.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ulid.Make().String()
		c.Request.Header.Set("X-Request-ID", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.Gate.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", s.config.Gate.ListenAddr).Msg("Starting edge gate")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Edge gate shutdown complete")
	return nil
}
