package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"taskboard/internal/auth"
)

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type gqlErr struct {
	Error string `json:"error"`
}

// Handler executes GraphQL documents over POST. The identity gate runs
// before any execution: a request without a resolvable token gets a 401
// and the document is never parsed.
func Handler(schema graphql.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, gqlErr{Error: "method_not_allowed"})
			return
		}

		if identity, ok := auth.IdentityFrom(r.Context()); !ok || identity.Anonymous() {
			writeJSON(w, http.StatusUnauthorized, gqlErr{Error: "Authentication required."})
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, gqlErr{Error: "invalid_json"})
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        r.Context(),
		})

		// a document that never executed (syntax or validation error)
		// is a client error; resolver failures still ship as 200 with
		// the errors array, since the root fields are nullable and
		// data is present
		status := http.StatusOK
		if result.Data == nil && result.HasErrors() {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
