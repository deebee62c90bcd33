package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type obtainTokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type obtainTokenResponse struct {
	Token string `json:"token"`
}

// RegisterRoutes mounts the token-issuance endpoint. It must stay
// outside the RequireToken gate.
func RegisterRoutes(r chi.Router, store Store) {
	r.Post("/api/get-token/", obtainToken(store))
}

func obtainToken(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req obtainTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, authErr{Error: "invalid_json"})
			return
		}

		key, err := store.ObtainToken(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				writeJSON(w, http.StatusBadRequest, authErr{Error: "invalid_credentials"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, authErr{Error: "unexpected_error"})
			return
		}

		writeJSON(w, http.StatusOK, obtainTokenResponse{Token: key})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
