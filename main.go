package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"taskboard/internal/auth"
	"taskboard/internal/graphql"
	"taskboard/internal/middleware"
	"taskboard/internal/tasks"
)

func main() {
	logger := newLoggerFromEnv()
	slog.SetDefault(logger) // for third-party packages that use slog

	repo, store, err := openStores(logger)
	if err != nil {
		logger.Error("store_open_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bootstrapUser(store, logger)

	engine := tasks.NewEngine(repo)
	r, err := newRouter(engine, repo, store, logger)
	if err != nil {
		logger.Error("router_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logger.Info("server_listen", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openStores picks SQLite when DB_PATH is set, else the in-memory
// repositories (useful for local runs; nothing survives a restart).
func openStores(logger *slog.Logger) (tasks.Repository, auth.Store, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		logger.Warn("db_inmemory", slog.String("hint", "set DB_PATH for persistence"))
		return tasks.NewInMemoryRepo(), auth.NewInMemoryStore(), nil
	}

	dsn, err := tasks.SQLiteFileDSN(path)
	if err != nil {
		return nil, nil, err
	}
	db, err := tasks.OpenSQLite(dsn)
	if err != nil {
		return nil, nil, err
	}

	repo := tasks.NewSQLiteRepo(db)
	store := auth.NewSQLiteStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.ApplyMigrations(ctx); err != nil {
		return nil, nil, err
	}
	if err := store.ApplyMigrations(ctx); err != nil {
		return nil, nil, err
	}
	logger.Info("db_open", slog.String("path", path))
	return repo, store, nil
}

// bootstrapUser creates a first account from BOOTSTRAP_USER=name:password
// so a fresh deployment has something to hand to /api/get-token/.
func bootstrapUser(store auth.Store, logger *slog.Logger) {
	raw := os.Getenv("BOOTSTRAP_USER")
	if raw == "" {
		return
	}
	name, password, ok := strings.Cut(raw, ":")
	if !ok || name == "" || password == "" {
		logger.Warn("bootstrap_user_malformed")
		return
	}
	if _, err := store.CreateUser(name, password); err != nil && err != auth.ErrUsernameTaken {
		logger.Error("bootstrap_user_error", slog.String("error", err.Error()))
		return
	}
	logger.Info("bootstrap_user", slog.String("username", name))
}

// newRouter wires the ops endpoints, both API surfaces, and the
// middleware stack
func newRouter(engine *tasks.Engine, repo tasks.Repository, store auth.Store, logger *slog.Logger) (*chi.Mux, error) {
	schema, err := graphql.NewSchema(engine, repo)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, spans, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RateLimitMiddleware(newLimiterFromEnv()))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// Token auth for everything except ops endpoints and token issuance
	r.Use(auth.RequireToken(store, "/health", "/metrics", "/api/get-token/"))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	auth.RegisterRoutes(r, store)
	tasks.RegisterRoutes(r, engine, repo)
	r.Post("/graphql/", graphql.Handler(schema))

	return r, nil
}

func newLimiterFromEnv() *rate.Limiter {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_RPS"), 64)
	if err != nil {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return middleware.NewLimiter(rps, burst)
}

func newLoggerFromEnv() *slog.Logger {
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
