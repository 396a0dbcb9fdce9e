package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedask_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedask_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	agentAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedask_agent_answers_total",
			Help: "Total number of answered questions by terminal status.",
		},
		[]string{"status"},
	)
	agentGenerateLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fedask_agent_generate_latency_ms",
			Help:    "Text generation latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000},
		},
	)
	agentExecuteLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fedask_agent_execute_latency_ms",
			Help:    "Candidate query execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	agentResultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fedask_agent_result_rows",
			Help:    "Number of rows returned by executed candidate queries.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedask_pipeline_runs_total",
			Help: "Total number of pipeline runs by result.",
		},
		[]string{"result"},
	)
	pipelineDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedask_pipeline_documents_total",
			Help: "Total number of documents handled by the pipeline by phase.",
		},
		[]string{"phase"},
	)
	pipelineLastSuccessUnix = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fedask_pipeline_last_success_unixtime",
			Help: "Unix time of the last successful pipeline run.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		agentAnswersTotal,
		agentGenerateLatencyMs,
		agentExecuteLatencyMs,
		agentResultRows,
		pipelineRunsTotal,
		pipelineDocumentsTotal,
		pipelineLastSuccessUnix,
	)
}

func ObserveAnswer(status string) {
	agentAnswersTotal.WithLabelValues(status).Inc()
}

func ObserveGenerateLatency(elapsed time.Duration) {
	agentGenerateLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveExecute(elapsed time.Duration, rows int) {
	agentExecuteLatencyMs.Observe(float64(elapsed.Milliseconds()))
	if rows >= 0 {
		agentResultRows.Observe(float64(rows))
	}
}

func ObservePipelineRun(fetched, loaded int, err error, finishedAt time.Time) {
	if err != nil {
		pipelineRunsTotal.WithLabelValues("failed").Inc()
		return
	}
	pipelineRunsTotal.WithLabelValues("succeeded").Inc()
	if fetched > 0 {
		pipelineDocumentsTotal.WithLabelValues("fetched").Add(float64(fetched))
	}
	if loaded > 0 {
		pipelineDocumentsTotal.WithLabelValues("loaded").Add(float64(loaded))
	}
	pipelineLastSuccessUnix.Set(float64(finishedAt.Unix()))
}
