package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fedask/fedask/internal/agent"
	"github.com/fedask/fedask/internal/pipeline"
	"github.com/fedask/fedask/internal/query"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, string) (string, error) {
	return s.reply, s.err
}

type stubExecutor struct {
	result query.ResultSet
	err    error
}

func (s stubExecutor) Execute(context.Context, string) (query.ResultSet, error) {
	return s.result, s.err
}

func countAgent() *agent.Agent {
	return &agent.Agent{
		Generator: stubGenerator{reply: "```sql\nSELECT COUNT(*) FROM documents\n```"},
		Executor:  stubExecutor{result: query.ResultSet{Columns: []string{"COUNT(*)"}, Rows: [][]any{{int64(42)}}}},
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAskReturnsAnswer(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	rr := postJSON(t, h, "/ask", `{"question":"How many documents are there?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["answer"] != "42" {
		t.Fatalf("answer = %v", body["answer"])
	}
	if len(body) != 1 {
		t.Fatalf("ask response should only carry the answer: %v", body)
	}
}

func TestAskReturns200ForAgentFailures(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: &agent.Agent{
		Generator: stubGenerator{reply: "I cannot help with that."},
		Executor:  stubExecutor{},
	}})
	rr := postJSON(t, h, "/ask", `{"question":"hello"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["answer"] != agent.NoQueryFoundMessage {
		t.Fatalf("answer = %v", body["answer"])
	}
}

func TestAskPassesBlankQuestionToAgent(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	for _, payload := range []string{`{"question":""}`, `{"question":"   "}`} {
		rr := postJSON(t, h, "/ask", payload)
		if rr.Code != http.StatusOK {
			t.Fatalf("payload %s status = %d body=%s", payload, rr.Code, rr.Body.String())
		}
		if body := decodeBody(t, rr); body["answer"] != "42" {
			t.Fatalf("answer = %v", body["answer"])
		}
	}
}

func TestAskRequiresQuestionField(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	for _, payload := range []string{`{}`, `{"question":null}`} {
		rr := postJSON(t, h, "/ask", payload)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("payload %s status = %d", payload, rr.Code)
		}
		if body := decodeBody(t, rr); body["error_code"] != "QUESTION_REQUIRED" {
			t.Fatalf("error_code = %v", body["error_code"])
		}
	}
}

func TestAskV1RejectsBlankQuestion(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	for _, payload := range []string{`{"question":"   "}`, `{}`} {
		rr := postJSON(t, h, "/v1/ask", payload)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("payload %s status = %d", payload, rr.Code)
		}
		if body := decodeBody(t, rr); body["error_code"] != "QUESTION_REQUIRED" {
			t.Fatalf("error_code = %v", body["error_code"])
		}
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	rr := postJSON(t, h, "/ask", `{"question":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "INVALID_JSON" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestAskWithoutAgentIsNotImplemented(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	rr := postJSON(t, h, "/ask", `{"question":"hi"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestAskV1ReportsStatusAndSQL(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"How many?"}`))
	req.Header.Set("X-Trace-ID", "trace-ask")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["answer"] != "42" || body["status"] != agent.StatusOK {
		t.Fatalf("body = %v", body)
	}
	if body["sql"] != "SELECT COUNT(*) FROM documents" {
		t.Fatalf("sql = %v", body["sql"])
	}
	if body["trace_id"] != "trace-ask" {
		t.Fatalf("trace_id = %v", body["trace_id"])
	}
}

func TestAskV1ReportsExecutionFailure(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: &agent.Agent{
		Generator: stubGenerator{reply: "```\nSELECT nope FROM documents\n```"},
		Executor:  stubExecutor{err: query.NewExecutionError(errors.New("Unknown column 'nope'"))},
	}})
	rr := postJSON(t, h, "/v1/ask", `{"question":"?"}`)

	body := decodeBody(t, rr)
	if body["status"] != string(agent.FailureExecution) {
		t.Fatalf("status = %v", body["status"])
	}
	answer, _ := body["answer"].(string)
	if !strings.HasPrefix(answer, "Error executing SQL: ") {
		t.Fatalf("answer = %q", answer)
	}
}

func TestAskV1RejectsUnknownFields(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Agent: countAgent()})
	rr := postJSON(t, h, "/v1/ask", `{"question":"hi","limit":5}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

type stubPipeline struct {
	summary pipeline.RunSummary
	err     error
}

func (s stubPipeline) RunOnce(context.Context) (pipeline.RunSummary, error) {
	return s.summary, s.err
}

func TestPipelineRunReturnsSummary(t *testing.T) {
	started := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	h := NewHandler(testConfig(t), Dependencies{Pipeline: stubPipeline{summary: pipeline.RunSummary{
		RunID:     "run-1",
		Source:    "federalregister",
		Days:      []string{"2025-06-03", "2025-06-02"},
		Fetched:   7,
		Cleaned:   7,
		Written:   map[string]int{"store": 7},
		StartedAt: started,
	}}})
	rr := postJSON(t, h, "/v1/pipeline/run", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["run_id"] != "run-1" || body["fetched"] != float64(7) {
		t.Fatalf("body = %v", body)
	}
}

func TestPipelineRunFailureAndMissingPipeline(t *testing.T) {
	failing := NewHandler(testConfig(t), Dependencies{Pipeline: stubPipeline{
		summary: pipeline.RunSummary{RunID: "run-2"},
		err:     errors.New("fetch 2025-06-03: timeout"),
	}})
	rr := postJSON(t, failing, "/v1/pipeline/run", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "PIPELINE_RUN_FAILED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}

	missing := NewHandler(testConfig(t), Dependencies{})
	rr = postJSON(t, missing, "/v1/pipeline/run", "")
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}
