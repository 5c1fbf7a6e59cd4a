package session

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// failingStore simulates an unavailable storage medium
type failingStore struct{}

func (f *failingStore) Set(key, value string) error { return errors.New("storage unavailable") }
func (f *failingStore) Get(key string) (string, error) {
	return "", errors.New("storage unavailable")
}
func (f *failingStore) Delete(key string) error { return errors.New("storage unavailable") }

func testSession() *Session {
	return &Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    4102444800,
		User:         UserRef{ID: "u1", Email: "user@example.com"},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(NewMemoryStore(), zerolog.Nop())

	cache.Save(testSession())

	pair := cache.Load()
	if pair == nil {
		t.Fatal("expected a cached pair, got nil")
	}
	if pair.AccessToken != "access-1" || pair.RefreshToken != "refresh-1" {
		t.Errorf("unexpected pair: %+v", pair)
	}

	cache.Clear()
	if got := cache.Load(); got != nil {
		t.Errorf("expected nil after clear, got %+v", got)
	}
}

func TestCacheLoadRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "malformed JSON", value: "{not json"},
		{name: "missing access token", value: `{"refresh_token":"r1"}`},
		{name: "missing refresh token", value: `{"access_token":"a1"}`},
		{name: "empty fields", value: `{"access_token":"","refresh_token":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			if err := store.Set(cacheKey, tt.value); err != nil {
				t.Fatalf("failed to seed store: %v", err)
			}

			cache := NewCache(store, zerolog.Nop())
			if got := cache.Load(); got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

func TestCacheIgnoresIncompleteSession(t *testing.T) {
	store := NewMemoryStore()
	cache := NewCache(store, zerolog.Nop())

	cache.Save(&Session{AccessToken: "a1"}) // no refresh token, no expiry

	if got := cache.Load(); got != nil {
		t.Errorf("expected incomplete session not to be cached, got %+v", got)
	}
}

func TestCacheSwallowsStorageFailures(t *testing.T) {
	cache := NewCache(&failingStore{}, zerolog.Nop())

	// None of these may panic or surface an error
	cache.Save(testSession())
	cache.Clear()

	if got := cache.Load(); got != nil {
		t.Errorf("expected nil from failing store, got %+v", got)
	}
}

func TestSessionIsComplete(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{name: "nil session", session: nil, want: false},
		{name: "complete", session: testSession(), want: true},
		{name: "no access token", session: &Session{RefreshToken: "r", ExpiresAt: 1}, want: false},
		{name: "no refresh token", session: &Session{AccessToken: "a", ExpiresAt: 1}, want: false},
		{name: "no expiry", session: &Session{AccessToken: "a", RefreshToken: "r"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsComplete(); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
