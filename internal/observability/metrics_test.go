package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAnswerCountsByStatus(t *testing.T) {
	before := testutil.ToFloat64(agentAnswersTotal.WithLabelValues("no_query_found"))
	ObserveAnswer("no_query_found")
	ObserveAnswer("no_query_found")
	if got := testutil.ToFloat64(agentAnswersTotal.WithLabelValues("no_query_found")) - before; got != 2 {
		t.Fatalf("answers delta = %v, want 2", got)
	}
}

func TestObservePipelineRunRecordsLastSuccess(t *testing.T) {
	finished := time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)
	loadedBefore := testutil.ToFloat64(pipelineDocumentsTotal.WithLabelValues("loaded"))
	failedBefore := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("failed"))

	ObservePipelineRun(5, 4, nil, finished)
	if got := testutil.ToFloat64(pipelineLastSuccessUnix); got != float64(finished.Unix()) {
		t.Fatalf("last success = %v", got)
	}
	if got := testutil.ToFloat64(pipelineDocumentsTotal.WithLabelValues("loaded")) - loadedBefore; got != 4 {
		t.Fatalf("loaded delta = %v", got)
	}

	ObservePipelineRun(0, 0, errors.New("fetch failed"), finished.Add(time.Hour))
	if got := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("failed")) - failedBefore; got != 1 {
		t.Fatalf("failed delta = %v", got)
	}
	if got := testutil.ToFloat64(pipelineLastSuccessUnix); got != float64(finished.Unix()) {
		t.Fatal("a failed run must not move the last success time")
	}
}
