package commands

import (
	"github.com/planforge-dev/planforge/internal/apiclient"
	"github.com/planforge-dev/planforge/internal/config"
	"github.com/planforge-dev/planforge/internal/controller"
	"github.com/planforge-dev/planforge/internal/identity"
	"github.com/planforge-dev/planforge/internal/logger"
	"github.com/planforge-dev/planforge/internal/session"
)

// stack bundles the client-side components the commands operate on
type stack struct {
	identity   *identity.HTTPClient
	cache      *session.Cache
	api        *apiclient.Client
	controller *controller.Controller
}

// sessionStore is swapped out in tests; the keyring keeps a login usable
// across CLI invocations
var sessionStore session.Store = &session.KeyringStore{}

// newStack wires the client components from configuration
func newStack() (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.Init("warn", "console")
	log := logger.GetLogger()

	identityClient := identity.NewHTTPClient(cfg.Identity.URL, cfg.Identity.APIKey, log)
	cache := session.NewCache(sessionStore, log)
	api := apiclient.New(cfg.Backend.URL, identityClient, log)
	ctrl := controller.New(identityClient, cache, api, log)

	return &stack{
		identity:   identityClient,
		cache:      cache,
		api:        api,
		controller: ctrl,
	}, nil
}
