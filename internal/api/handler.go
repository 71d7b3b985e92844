package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/pipeline"
)

// QueryPipeline is the pipeline surface the handlers depend on.
type QueryPipeline interface {
	Answer(ctx context.Context, question string) (pipeline.Answer, error)
	AnswerStream(ctx context.Context, question string) (pipeline.StreamedAnswer, error)
	RunSQL(ctx context.Context, sqlText string) (pipeline.ResultSet, error)
}

// SchemaSource serves the table and schema lookups.
type SchemaSource interface {
	ListTables(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) (string, error)
}

// CacheClearer resets the process-wide schema cache.
type CacheClearer interface {
	Clear()
}

type Dependencies struct {
	Logger            *slog.Logger
	Pipeline          QueryPipeline
	Schema            SchemaSource
	Cache             CacheClearer
	Ping              func(ctx context.Context) error
	DependencyTimeout time.Duration
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Welcome to " + cfg.Service.Name,
			"endpoints": map[string]string{
				"query":       "POST /query - answer a natural language question",
				"execute-sql": "POST /execute-sql - run a read-only SQL query",
				"tables":      "GET /tables - list all tables",
				"schema":      "GET /schema/{table} - schema for one table",
				"clear-cache": "GET /clear-cache - reset the schema cache",
				"test":        "GET /test - liveness and database connectivity",
			},
		})
	})

	mux.HandleFunc("GET /test", func(w http.ResponseWriter, r *http.Request) {
		handleTest(deps, w, r)
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /execute-sql", func(w http.ResponseWriter, r *http.Request) {
		handleExecuteSQL(deps, w, r)
	})
	mux.HandleFunc("GET /tables", func(w http.ResponseWriter, r *http.Request) {
		handleListTables(deps, w, r)
	})
	mux.HandleFunc("GET /schema/{table}", func(w http.ResponseWriter, r *http.Request) {
		handleTableSchema(deps, w, r)
	})
	mux.HandleFunc("GET /clear-cache", func(w http.ResponseWriter, r *http.Request) {
		handleClearCache(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func handleTest(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	connected := false
	if deps.Ping != nil {
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		connected = deps.Ping(ctx) == nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "API is running!",
		"database_connected": connected,
	})
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
