package graphql_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/auth"
	"taskboard/internal/graphql"
	"taskboard/internal/tasks"
)

type testEnv struct {
	router *chi.Mux
	repo   *tasks.InMemoryRepo
	tokens map[string]string // username -> token
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := tasks.NewInMemoryRepo()
	engine := tasks.NewEngine(repo)
	store := auth.NewInMemoryStore()

	tokens := make(map[string]string)
	for _, name := range []string{"alice", "bob"} {
		if _, err := store.CreateUser(name, "pw-"+name); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		key, err := store.ObtainToken(name, "pw-"+name)
		if err != nil {
			t.Fatalf("token for %s: %v", name, err)
		}
		tokens[name] = key
	}

	schema, err := graphql.NewSchema(engine, repo)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	r := chi.NewRouter()
	r.Use(auth.RequireToken(store))
	r.Post("/graphql/", graphql.Handler(schema))

	return &testEnv{router: r, repo: repo, tokens: tokens}
}

type gqlResult struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *testEnv) post(t *testing.T, user, query string) (*httptest.ResponseRecorder, gqlResult) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		t.Fatalf("marshal query: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/graphql/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Token "+e.tokens[user])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var res gqlResult
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("parse result: %v, body=%s", err, rec.Body.String())
		}
	}
	return rec, res
}

type taskPayload struct {
	OK   bool `json:"ok"`
	Task *struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"task"`
	Errors []string `json:"errors"`
}

func decodePayload(t *testing.T, raw json.RawMessage) taskPayload {
	t.Helper()
	var p taskPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode payload: %v, raw=%s", err, raw)
	}
	return p
}

func TestGraphQL_UnauthenticatedIs401(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.post(t, "", `{ allTasks { id } }`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	want := `{"error":"Authentication required."}`
	var got, expected map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	_ = json.Unmarshal([]byte(want), &expected)
	if got["error"] != expected["error"] {
		t.Errorf("expected body %s, got %s", want, rec.Body.String())
	}
}

func TestGraphQL_MalformedDocumentIs400(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.post(t, "alice", `{ allTasks { `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("syntax error: expected 400, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var res gqlResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if len(res.Errors) == 0 {
		t.Errorf("expected an errors array in the body")
	}

	// a field the schema does not know fails validation the same way
	rec, _ = env.post(t, "alice", `{ nope }`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation error: expected 400, got %d", rec.Code)
	}
}

func TestGraphQL_AllTasksScopedToCaller(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.repo.Create(1, "alice's", tasks.StatusPending); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := env.repo.Create(2, "bob's", tasks.StatusPending); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, res := env.post(t, "alice", `{ allTasks { id title owner } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}

	var list []struct {
		Title string `json:"title"`
		Owner int64  `json:"owner"`
	}
	if err := json.Unmarshal(res.Data["allTasks"], &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}
	if list[0].Title != "alice's" || list[0].Owner != 1 {
		t.Errorf("foreign task leaked: %+v", list[0])
	}
}

func TestGraphQL_CreateTask(t *testing.T) {
	env := newTestEnv(t)

	rec, res := env.post(t, "alice",
		`mutation { createTask(title: "Write spec") { ok task { id title status } errors } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}

	p := decodePayload(t, res.Data["createTask"])
	if !p.OK {
		t.Fatalf("expected ok=true, payload=%+v", p)
	}
	if p.Task == nil || p.Task.Title != "Write spec" || p.Task.Status != "PENDING" {
		t.Errorf("unexpected task: %+v", p.Task)
	}
	if len(p.Errors) != 0 {
		t.Errorf("expected empty errors, got %v", p.Errors)
	}
}

func TestGraphQL_CreateTaskValidationFoldsIntoPayload(t *testing.T) {
	env := newTestEnv(t)

	rec, res := env.post(t, "alice",
		`mutation { createTask(title: "", status: "BOGUS") { ok task { id } errors } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("validation failures must not raise; got %d", rec.Code)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("validation failures must not surface as top-level errors: %+v", res.Errors)
	}

	p := decodePayload(t, res.Data["createTask"])
	if p.OK {
		t.Fatalf("expected ok=false")
	}
	if p.Task != nil {
		t.Errorf("expected task=null, got %+v", p.Task)
	}
	if len(p.Errors) != 2 {
		t.Fatalf("expected 2 error strings, got %v", p.Errors)
	}
	if p.Errors[0] != "title: title is required" {
		t.Errorf("unexpected first error: %q", p.Errors[0])
	}
}

func TestGraphQL_UpdateForeignTaskRaises(t *testing.T) {
	env := newTestEnv(t)

	bobs, err := env.repo.Create(2, "bob's", tasks.StatusPending)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := fmt.Sprintf(`mutation { updateTask(id: "%d", title: "x") { ok errors } }`, bobs.ID)
	rec, res := env.post(t, "alice", q)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "Not found or not allowed" {
		t.Fatalf("expected 'Not found or not allowed', got %+v", res.Errors)
	}

	// missing id must be indistinguishable from a foreign one
	rec, res = env.post(t, "alice",
		`mutation { updateTask(id: "9999", title: "x") { ok errors } }`)
	if len(res.Errors) != 1 || res.Errors[0].Message != "Not found or not allowed" {
		t.Fatalf("missing id: expected same error, got %+v", res.Errors)
	}

	// no mutation happened
	stored, err := env.repo.FindOwned(2, bobs.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Title != "bob's" {
		t.Errorf("foreign update mutated the task: %+v", stored)
	}
}

func TestGraphQL_UpdateTaskPartial(t *testing.T) {
	env := newTestEnv(t)

	seed, err := env.repo.Create(1, "original", tasks.StatusPending)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := fmt.Sprintf(`mutation { updateTask(id: "%d", status: "COMPLETED") { ok task { title status } errors } }`, seed.ID)
	rec, res := env.post(t, "alice", q)
	if rec.Code != http.StatusOK || len(res.Errors) > 0 {
		t.Fatalf("update failed: code=%d errors=%+v", rec.Code, res.Errors)
	}

	p := decodePayload(t, res.Data["updateTask"])
	if !p.OK || p.Task == nil {
		t.Fatalf("expected ok payload, got %+v", p)
	}
	if p.Task.Title != "original" || p.Task.Status != "COMPLETED" {
		t.Errorf("unexpected update result: %+v", p.Task)
	}
}

func TestGraphQL_DeleteTaskTwice(t *testing.T) {
	env := newTestEnv(t)

	seed, err := env.repo.Create(1, "ephemeral", tasks.StatusPending)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := fmt.Sprintf(`mutation { deleteTask(id: "%d") { ok } }`, seed.ID)
	rec, res := env.post(t, "alice", q)
	if rec.Code != http.StatusOK || len(res.Errors) > 0 {
		t.Fatalf("delete failed: code=%d errors=%+v", rec.Code, res.Errors)
	}
	var payload struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(res.Data["deleteTask"], &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.OK {
		t.Fatalf("expected ok=true")
	}

	_, res = env.post(t, "alice", q)
	if len(res.Errors) != 1 || res.Errors[0].Message != "Not found or not allowed" {
		t.Fatalf("second delete: expected 'Not found or not allowed', got %+v", res.Errors)
	}
}
