package auth

import (
	"encoding/json"
	"net/http"
)

type authErr struct {
	Error string `json:"error"`
}

// RequireToken resolves the request identity from the Authorization
// header ("Token <key>") and rejects anonymous callers with 401 before
// any handler runs. Every lookup or parse failure degrades silently to
// anonymous; the underlying cause is never surfaced.
func RequireToken(store Store, skipPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			identity := resolve(store, r.Header.Get("Authorization"))
			if identity.Anonymous() {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func resolve(store Store, header string) Identity {
	key, ok := ParseTokenHeader(header)
	if !ok {
		return Identity{}
	}
	identity, err := store.LookupToken(key)
	if err != nil {
		return Identity{}
	}
	return identity
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Token realm="taskboard"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(authErr{Error: "Authentication required."})
}
