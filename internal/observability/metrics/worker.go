package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vosbek/docxp/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	indexTotal    *prometheus.CounterVec
	indexDuration *prometheus.HistogramVec
	indexInFlight prometheus.Gauge
	queueLag      *prometheus.HistogramVec

	filesParsed     *prometheus.CounterVec
	filesFailed     *prometheus.CounterVec
	entitiesIndexed *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "repository_index_total",
			Help:      "Total indexed repositories by status.",
		},
		[]string{"service", "status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "repository_index_duration_seconds",
			Help:      "Repository indexing duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	indexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "repository_index_in_flight",
			Help:      "Number of in-flight repository indexing passes.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between repository registration and indexing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	filesParsed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "files_parsed_total",
			Help:      "Total source files parsed into entities.",
		},
		[]string{"service"},
	)
	filesFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "files_failed_total",
			Help:      "Total source files that failed to parse.",
		},
		[]string{"service"},
	)
	entitiesIndexed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docxp",
			Subsystem: "worker",
			Name:      "entities_indexed_total",
			Help:      "Total entities written to the retrieval indexes.",
		},
		[]string{"service"},
	)

	registry.MustRegister(indexTotal, indexDuration, indexInFlight, queueLag, filesParsed, filesFailed, entitiesIndexed)

	return &WorkerMetrics{
		registry:        registry,
		indexTotal:      indexTotal,
		indexDuration:   indexDuration,
		indexInFlight:   indexInFlight,
		queueLag:        queueLag,
		filesParsed:     filesParsed,
		filesFailed:     filesFailed,
		entitiesIndexed: entitiesIndexed,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartIndexing() {
	m.indexInFlight.Inc()
}

func (m *WorkerMetrics) FinishIndexing(service string, duration time.Duration, err error) {
	m.indexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.indexTotal.WithLabelValues(service, status).Inc()
	m.indexDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordIngestReport(service string, report domain.IngestReport) {
	m.filesParsed.WithLabelValues(service).Add(float64(report.FilesParsed))
	m.filesFailed.WithLabelValues(service).Add(float64(report.FilesFailed))
	m.entitiesIndexed.WithLabelValues(service).Add(float64(report.EntityCount))
}
