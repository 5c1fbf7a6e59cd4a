package gate

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RouteTable is the fixed route-access configuration: which path prefixes
// require a resolved user, and which paths are for anonymous visitors only.
// It is enumerated once at startup, never derived per request.
type RouteTable struct {
	// ProtectedPrefixes require a resolved user; anonymous requests are
	// redirected to LoginPath
	ProtectedPrefixes []string `yaml:"protected_prefixes" validate:"required,min=1,dive,startswith=/"`

	// AuthOnlyPaths redirect an already-resolved user to LandingPath
	AuthOnlyPaths []string `yaml:"auth_only_paths" validate:"dive,startswith=/"`

	// LoginPath is where anonymous requests to protected paths are sent
	LoginPath string `yaml:"login_path" validate:"required,startswith=/"`

	// LandingPath is the default destination for authenticated users
	LandingPath string `yaml:"landing_path" validate:"required,startswith=/"`
}

// DefaultRouteTable returns the built-in Planforge route table
func DefaultRouteTable() RouteTable {
	return RouteTable{
		ProtectedPrefixes: []string{"/dashboard", "/admin", "/generate", "/refine"},
		AuthOnlyPaths:     []string{"/login", "/register"},
		LoginPath:         "/login",
		LandingPath:       "/dashboard",
	}
}

// LoadRouteTable reads and validates a route table from a YAML file
func LoadRouteTable(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}

	var table RouteTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}

	if err := validator.New().Struct(&table); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	return &table, nil
}

// IsProtected reports whether the path requires a resolved user
func (t *RouteTable) IsProtected(path string) bool {
	for _, prefix := range t.ProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// IsAuthOnly reports whether the path is reserved for anonymous visitors
func (t *RouteTable) IsAuthOnly(path string) bool {
	for _, p := range t.AuthOnlyPaths {
		if path == p {
			return true
		}
	}
	return false
}
