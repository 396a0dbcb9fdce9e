package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fedask/fedask/internal/observability"
)

type askRequest struct {
	Question *string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type askV1Response struct {
	Answer  string `json:"answer"`
	Status  string `json:"status"`
	SQL     string `json:"sql,omitempty"`
	TraceID string `json:"trace_id"`
}

// handleAsk serves the plain question contract. Agent failures are part of
// the answer text, so any decoded question gets a 200, blank ones included.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuestion(deps, w, r, false)
	if !ok {
		return
	}
	outcome := deps.Agent.Run(r.Context(), question)
	writeJSON(w, http.StatusOK, askResponse{Answer: outcome.Answer})
}

func handleAskV1(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuestion(deps, w, r, true)
	if !ok {
		return
	}
	outcome := deps.Agent.Run(r.Context(), question)
	writeJSON(w, http.StatusOK, askV1Response{
		Answer:  outcome.Answer,
		Status:  outcome.Status(),
		SQL:     outcome.SQL,
		TraceID: observability.TraceIDFromContext(r.Context()),
	})
}

func decodeQuestion(deps Dependencies, w http.ResponseWriter, r *http.Request, strict bool) (string, bool) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "question answering is not configured", false, nil)
		return "", false
	}

	var request askRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	if request.Question == nil || (strict && strings.TrimSpace(*request.Question) == "") {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	return *request.Question, true
}
