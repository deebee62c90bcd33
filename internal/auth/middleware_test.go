package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/auth"
)

func seededStore(t *testing.T) (auth.Store, string) {
	t.Helper()
	store := auth.NewInMemoryStore()
	if _, err := store.CreateUser("alice", "hunter2"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	key, err := store.ObtainToken("alice", "hunter2")
	if err != nil {
		t.Fatalf("obtain token: %v", err)
	}
	return store, key
}

func protectedRouter(store auth.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Use(auth.RequireToken(store, "/health"))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			w.WriteHeader(500)
			return
		}
		_, _ = w.Write([]byte(identity.Username))
	})
	return r
}

func TestRequireToken_MissingHeader(t *testing.T) {
	store, _ := seededStore(t)
	r := protectedRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/whoami", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body["error"] != "Authentication required." {
		t.Errorf("expected exact error body, got %q", body["error"])
	}
}

func TestRequireToken_BadCredentials(t *testing.T) {
	store, key := seededStore(t)
	r := protectedRouter(store)

	for name, header := range map[string]string{
		"wrong scheme":  "Bearer " + key,
		"unknown token": "Token nope",
		"no value":      "Token",
		"padded key":    "Token " + key + " extra",
	} {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRequireToken_ValidToken(t *testing.T) {
	store, key := seededStore(t)
	r := protectedRouter(store)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Token "+key)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "alice" {
		t.Errorf("expected identity alice, got %q", rec.Body.String())
	}
}

func TestRequireToken_SkipPath(t *testing.T) {
	store, _ := seededStore(t)
	r := protectedRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("skip path should be open, got %d", rec.Code)
	}
}
