package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/schema"
)

type queryRequest struct {
	Question string `json:"question"`
	Stream   bool   `json:"stream"`
}

type queryResponse struct {
	Question    string           `json:"question"`
	SQL         string           `json:"sql"`
	Result      []map[string]any `json:"result"`
	LLMResponse string           `json:"llm_response"`
	Error       *string          `json:"error,omitempty"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	if request.Stream {
		streamQuery(deps, w, r, request.Question)
		return
	}

	answer, err := deps.Pipeline.Answer(r.Context(), request.Question)
	if err != nil {
		writePipelineError(deps, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Question:    answer.Question,
		SQL:         answer.SQL,
		Result:      answer.Result.Rows,
		LLMResponse: answer.Explanation,
	})
}

// streamQuery completes generation and execution synchronously, then relays
// synthesis fragments as server-sent events. Once streaming has begun, a
// failure can only close the stream early; there is no structured error
// channel anymore.
func streamQuery(deps Dependencies, w http.ResponseWriter, r *http.Request, question string) {
	streamed, err := deps.Pipeline.AnswerStream(r.Context(), question)
	if err != nil {
		writePipelineError(deps, w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(r.Context(), w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer does not support streaming", false, nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for fragment := range streamed.Fragments {
		payload, err := json.Marshal(fragment)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client went away; draining stops once the producer notices
			// the cancelled request context.
			return
		}
		flusher.Flush()
	}
}

func writePipelineError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	if deps.Logger != nil {
		deps.Logger.ErrorContext(r.Context(), "pipeline request failed", slog.Any("error", err))
	}

	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REJECTED", validationErr.Reason, false, nil)
		return
	}
	if errors.Is(err, schema.ErrNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", err.Error(), false, nil)
		return
	}
	var upstreamErr *pipeline.UpstreamError
	if errors.As(err, &upstreamErr) {
		writeError(r.Context(), w, http.StatusBadGateway, "LLM_FAILED", upstreamErr.Error(), true, nil)
		return
	}
	var execErr *pipeline.ExecutionError
	if errors.As(err, &execErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_EXECUTION_FAILED", execErr.Error(), false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", err.Error(), false, nil)
}
