package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Identity provider configuration
	Identity IdentityConfig

	// Backend API configuration
	Backend BackendConfig

	// Edge gate configuration
	Gate GateConfig

	// Logging Configuration
	Logging LoggingConfig
}

// IdentityConfig holds identity provider configuration
type IdentityConfig struct {
	URL    string // Base URL of the identity provider auth API
	APIKey string // Project API key sent with every identity call
}

// BackendConfig holds backend API configuration
type BackendConfig struct {
	URL string // Base URL of the Planforge backend
}

// GateConfig holds edge gate configuration
type GateConfig struct {
	ListenAddr  string // Address the gate listens on (host:port)
	UpstreamURL string // App server requests are proxied to after gating
	RoutesFile  string // Optional YAML route table, empty = built-in defaults
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	identityURL := os.Getenv("IDENTITY_URL")
	if identityURL == "" {
		identityURL = "http://localhost:9999/auth/v1"
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}

	listenAddr := os.Getenv("GATE_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	upstreamURL := os.Getenv("GATE_UPSTREAM_URL")
	if upstreamURL == "" {
		upstreamURL = "http://localhost:3000"
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		Identity: IdentityConfig{
			URL:    identityURL,
			APIKey: os.Getenv("IDENTITY_API_KEY"),
		},
		Backend: BackendConfig{
			URL: backendURL,
		},
		Gate: GateConfig{
			ListenAddr:  listenAddr,
			UpstreamURL: upstreamURL,
			RoutesFile:  os.Getenv("GATE_ROUTES_FILE"),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
