package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/auth"
)

type taskRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

type errResponse struct {
	Error   string      `json:"error"`
	Details FieldErrors `json:"details,omitempty"`
}

// RegisterRoutes mounts the task collection. All routes assume the auth
// middleware has already placed an identity in the request context.
func RegisterRoutes(r chi.Router, engine *Engine, repo Repository) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", listTasks(repo))
		r.Post("/", createTask(engine))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getTask(repo))
			r.Put("/", updateTask(engine, repo, false))
			r.Patch("/", updateTask(engine, repo, true))
			r.Delete("/", deleteTask(engine))
		})
	})
}

func listTasks(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "Authentication required."})
			return
		}

		out, err := repo.ListOwned(identity.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createTask(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "Authentication required."})
			return
		}

		var req taskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		// owner always comes from the authenticated identity; an
		// owner-like field in the payload is simply never read
		in := CreateInput{Status: req.Status}
		if req.Title != nil {
			in.Title = *req.Title
		}

		t, ferrs, err := engine.Create(identity, in)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		if len(ferrs) > 0 {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "validation_error", Details: ferrs})
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func getTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "Authentication required."})
			return
		}
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
			return
		}

		t, err := repo.FindOwned(identity.ID, id)
		if err != nil {
			writeNotFoundOr500(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// updateTask serves both PUT and PATCH. PUT is a full representation and
// requires title; PATCH applies only the supplied fields.
func updateTask(engine *Engine, repo Repository, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "Authentication required."})
			return
		}
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
			return
		}

		var req taskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		if !partial && req.Title == nil {
			writeJSON(w, http.StatusBadRequest, errResponse{
				Error:   "validation_error",
				Details: FieldErrors{{Field: "title", Message: "title is required"}},
			})
			return
		}

		existing, err := repo.FindOwned(identity.ID, id)
		if err != nil {
			writeNotFoundOr500(w, err)
			return
		}

		t, ferrs, err := engine.Update(identity, existing, UpdateInput{
			Title:  req.Title,
			Status: req.Status,
		})
		if err != nil {
			writeNotFoundOr500(w, err)
			return
		}
		if len(ferrs) > 0 {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "validation_error", Details: ferrs})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func deleteTask(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "Authentication required."})
			return
		}
		id, ok := pathID(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
			return
		}

		if err := engine.Delete(identity, id); err != nil {
			w.Header().Set("Content-Type", "application/json")
			writeNotFoundOr500(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeNotFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
