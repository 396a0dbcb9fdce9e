package api

import (
	"net/http"
)

func handlePipelineRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "pipeline is not configured", false, nil)
		return
	}

	summary, err := deps.Pipeline.RunOnce(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "PIPELINE_RUN_FAILED", "pipeline run failed", true, map[string]any{
			"details": err.Error(),
			"run_id":  summary.RunID,
		})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
