package main

import (
	"fmt"
	"os"

	"github.com/planforge-dev/planforge/internal/config"
	"github.com/planforge-dev/planforge/internal/gate"
	"github.com/planforge-dev/planforge/internal/identity"
	"github.com/planforge-dev/planforge/internal/logger"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	// The gate resolves sessions against the identity provider per request
	identityClient := identity.NewHTTPClient(cfg.Identity.URL, cfg.Identity.APIKey, log)

	srv, err := gate.NewServer(cfg, identityClient, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create edge gate")
	}

	log.Info().Str("version", version).Msg("Starting Planforge edge gate...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Edge gate failed to start")
	}
}
