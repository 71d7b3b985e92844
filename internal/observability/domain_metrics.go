package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_llm_requests_total",
			Help: "Total number of language-model calls by pipeline stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
	queryRepairsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_query_repairs_total",
			Help: "Total number of single-shot SQL repair retries attempted.",
		},
	)
	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage latency.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	schemaCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_schema_cache_lookups_total",
			Help: "Schema cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		llmRequestsTotal,
		queryRepairsTotal,
		pipelineStageDurationSeconds,
		schemaCacheLookupsTotal,
	)
}

func ObserveLLMRequest(stage string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmRequestsTotal.WithLabelValues(stage, outcome).Inc()
}

func IncrementQueryRepair() {
	queryRepairsTotal.Inc()
}

func ObservePipelineStage(stage string, duration time.Duration) {
	pipelineStageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

func ObserveSchemaCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	schemaCacheLookupsTotal.WithLabelValues(result).Inc()
}
