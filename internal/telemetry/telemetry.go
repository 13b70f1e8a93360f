// Package telemetry provides OpenTelemetry instrumentation for url-sentinel.
// It exports Prometheus metrics and provides tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "url-sentinel"

// Metrics holds all url-sentinel Prometheus metrics.
type Metrics struct {
	// Prediction metrics
	Predictions        *prometheus.CounterVec
	PredictionFailed   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram

	// Feedback metrics
	FeedbackProcessed *prometheus.CounterVec
	FeedbackConflicts prometheus.Counter
	ConsensusReached  prometheus.Counter
	EligibleRecords   prometheus.Gauge

	// Retrain metrics
	RetrainRuns        *prometheus.CounterVec
	RetrainDuration    prometheus.Histogram
	RetrainSamples     prometheus.Gauge
	ExtractionFailures prometheus.Counter

	// Bulk extraction metrics
	BulkRows     prometheus.Counter
	BulkFailed   prometheus.Counter
	BulkDuration prometheus.Histogram

	// Enrichment metrics
	Analyses       prometheus.Counter
	AnalysisFailed prometheus.Counter
	LookupDuration *prometheus.HistogramVec
}

// Provider wraps telemetry providers.
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics.
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initPredictionMetrics(m)
	initFeedbackMetrics(m)
	initRetrainMetrics(m)
	initBulkMetrics(m)
	initEnrichmentMetrics(m)
	return m
}

func initPredictionMetrics(m *Metrics) {
	m.Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_predictions_total",
		Help: "Total URL predictions by verdict",
	}, []string{"verdict"})

	m.PredictionFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_predictions_failed_total",
		Help: "Total failed predictions by error kind",
	}, []string{"kind"})

	m.PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_prediction_duration_seconds",
		Help:    "Time to score a single URL",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
}

func initFeedbackMetrics(m *Metrics) {
	m.FeedbackProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_feedback_processed_total",
		Help: "Total feedback events by reported type",
	}, []string{"type"})

	m.FeedbackConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_feedback_conflicts_total",
		Help: "Total feedback events that flipped a record's verdict",
	})

	m.ConsensusReached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_feedback_consensus_total",
		Help: "Total feedback events that reached consensus",
	})

	m.EligibleRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_feedback_eligible_records",
		Help: "Feedback records currently eligible for retraining",
	})
}

func initRetrainMetrics(m *Metrics) {
	m.RetrainRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_retrain_runs_total",
		Help: "Total retrain attempts by outcome",
	}, []string{"status"})

	m.RetrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_retrain_duration_seconds",
		Help:    "Time for a full retrain cycle",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	m.RetrainSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_retrain_samples",
		Help: "Samples used in the most recent training run",
	})

	m.ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_retrain_extraction_failures_total",
		Help: "Feedback URLs skipped during retrain feature extraction",
	})
}

func initBulkMetrics(m *Metrics) {
	m.BulkRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_bulk_rows_total",
		Help: "Total rows processed by bulk extraction",
	})

	m.BulkFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_bulk_rows_failed_total",
		Help: "Bulk extraction rows emitted with zeroed features",
	})

	m.BulkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_bulk_duration_seconds",
		Help:    "Time for one bulk extraction run",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
}

func initEnrichmentMetrics(m *Metrics) {
	m.Analyses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_analyses_total",
		Help: "Total URL enrichment analyses",
	})

	m.AnalysisFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_analyses_failed_total",
		Help: "Total failed enrichment analyses",
	})

	m.LookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentinel_lookup_duration_seconds",
		Help:    "Time per external lookup",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"lookup"})
}

// RecordPrediction records one scored URL.
func (p *Provider) RecordPrediction(verdict string, duration time.Duration) {
	p.Metrics.Predictions.WithLabelValues(verdict).Inc()
	p.Metrics.PredictionDuration.Observe(duration.Seconds())
}

// RecordPredictionFailure records a failed prediction by error kind.
func (p *Provider) RecordPredictionFailure(kind string) {
	p.Metrics.PredictionFailed.WithLabelValues(kind).Inc()
}

// RecordFeedback records one processed feedback event.
func (p *Provider) RecordFeedback(reportedType string, conflict, consensus bool) {
	p.Metrics.FeedbackProcessed.WithLabelValues(reportedType).Inc()
	if conflict {
		p.Metrics.FeedbackConflicts.Inc()
	}
	if consensus {
		p.Metrics.ConsensusReached.Inc()
	}
}

// SetEligibleRecords sets the retrain-eligible record gauge.
func (p *Provider) SetEligibleRecords(n int) {
	p.Metrics.EligibleRecords.Set(float64(n))
}

// RecordRetrain records one retrain attempt.
func (p *Provider) RecordRetrain(status string, samples int, duration time.Duration) {
	p.Metrics.RetrainRuns.WithLabelValues(status).Inc()
	if status == "completed" {
		p.Metrics.RetrainDuration.Observe(duration.Seconds())
		p.Metrics.RetrainSamples.Set(float64(samples))
	}
}

// RecordExtractionFailures adds to the retrain extraction failure counter.
func (p *Provider) RecordExtractionFailures(n int) {
	p.Metrics.ExtractionFailures.Add(float64(n))
}

// RecordBulkRun records one bulk extraction run.
func (p *Provider) RecordBulkRun(total, failed int, duration time.Duration) {
	p.Metrics.BulkRows.Add(float64(total))
	p.Metrics.BulkFailed.Add(float64(failed))
	p.Metrics.BulkDuration.Observe(duration.Seconds())
}

// RecordAnalysis records one enrichment analysis.
func (p *Provider) RecordAnalysis(success bool) {
	p.Metrics.Analyses.Inc()
	if !success {
		p.Metrics.AnalysisFailed.Inc()
	}
}

// ObserveLookup times one external lookup by kind (dns, headers, whois).
func (p *Provider) ObserveLookup(lookup string, duration time.Duration) {
	p.Metrics.LookupDuration.WithLabelValues(lookup).Observe(duration.Seconds())
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span
}
