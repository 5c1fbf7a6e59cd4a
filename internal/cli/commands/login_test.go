package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/planforge-dev/planforge/internal/session"
)

// mockProvider serves the password grant for one known user
func mockProvider(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if body["email"] != "user@example.com" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "cli-access",
			"refresh_token": "cli-refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "u1", "email": "user@example.com"},
		})
	}))
}

func setupLoginTest(t *testing.T) session.Store {
	t.Helper()

	provider := mockProvider(t)
	t.Cleanup(provider.Close)
	t.Setenv("IDENTITY_URL", provider.URL)
	t.Setenv("PLANFORGE_EMAIL", "")
	t.Setenv("PLANFORGE_PASSWORD", "")

	store := session.NewMemoryStore()
	original := sessionStore
	sessionStore = store
	t.Cleanup(func() { sessionStore = original })

	return store
}

func TestRunLoginStoresTokenPair(t *testing.T) {
	store := setupLoginTest(t)

	if err := runLogin(context.Background(), "user@example.com", "secret"); err != nil {
		t.Fatalf("runLogin() error: %v", err)
	}

	cache := session.NewCache(store, zerolog.Nop())
	pair := cache.Load()
	if pair == nil {
		t.Fatal("expected the session to be cached after login")
	}
	if pair.AccessToken != "cli-access" || pair.RefreshToken != "cli-refresh" {
		t.Errorf("unexpected cached pair: %+v", pair)
	}
}

func TestRunLoginRejectsBadCredentials(t *testing.T) {
	store := setupLoginTest(t)

	err := runLogin(context.Background(), "user@example.com", "wrong")
	if err == nil {
		t.Fatal("expected an error for bad credentials")
	}

	cache := session.NewCache(store, zerolog.Nop())
	if pair := cache.Load(); pair != nil {
		t.Errorf("expected nothing cached after failed login, got %+v", pair)
	}
}

func TestRunLoginRequiresEmail(t *testing.T) {
	setupLoginTest(t)

	if err := runLogin(context.Background(), "", "secret"); err == nil {
		t.Fatal("expected an error when email is missing")
	}
}
