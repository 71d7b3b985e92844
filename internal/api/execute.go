package api

import (
	"io"
	"net/http"
	"strings"
)

// handleExecuteSQL runs caller-supplied SQL through the validation gate and
// the executor, skipping generation and synthesis. The request body is the
// raw SQL text.
func handleExecuteSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_BODY", "failed to read request body", false, nil)
		return
	}
	sqlText := strings.TrimSpace(string(body))
	if sqlText == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Pipeline.RunSQL(r.Context(), sqlText)
	if err != nil {
		writePipelineError(deps, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result.Rows})
}
