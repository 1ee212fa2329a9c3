package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RetrievalMetrics covers the context-building pipeline: which strategy was
// chosen and why, how long a build took, and how much context came out.
type RetrievalMetrics struct {
	strategyDecisions *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	contextChunks     *prometheus.HistogramVec
	noContextTotal    *prometheus.CounterVec
}

func newRetrievalMetrics(registry *prometheus.Registry) *RetrievalMetrics {
	strategyDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfx",
			Subsystem: "retrieval",
			Name:      "strategy_decisions_total",
			Help:      "Strategy selector decisions by chosen path and reason.",
		},
		[]string{"service", "path", "reason"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rfx",
			Subsystem: "retrieval",
			Name:      "pipeline_duration_seconds",
			Help:      "Context build duration in seconds by path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)
	contextChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rfx",
			Subsystem: "retrieval",
			Name:      "context_chunks",
			Help:      "Distribution of chunks included in the final context.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfx",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total context builds that produced an empty context.",
		},
		[]string{"service"},
	)

	registry.MustRegister(strategyDecisions, pipelineDuration, contextChunks, noContextTotal)

	return &RetrievalMetrics{
		strategyDecisions: strategyDecisions,
		pipelineDuration:  pipelineDuration,
		contextChunks:     contextChunks,
		noContextTotal:    noContextTotal,
	}
}

func (m *RetrievalMetrics) RecordBuild(service, path, reason string, chunkCount int, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.strategyDecisions.WithLabelValues(service, path, reason).Inc()
	m.pipelineDuration.WithLabelValues(service, path).Observe(duration.Seconds())
	m.contextChunks.WithLabelValues(service).Observe(float64(chunkCount))
	if chunkCount == 0 {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}
