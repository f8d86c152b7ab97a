// Package metrics holds the Prometheus collectors for the OCR pipeline and
// the review flow. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Metrics struct {
	uploadsTotal       *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	conversionFailures prometheus.Counter
	approvalsTotal     *prometheus.CounterVec
	duplicateWarnings  *prometheus.CounterVec
	patternsLearned    prometheus.Counter
	budgetCorrections  prometheus.Counter
	inboxFilesTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them on registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_uploads_total",
				Help: "Total number of processed invoice uploads",
			},
			[]string{"engine", "status"},
		),
		processingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocr_processing_duration_seconds",
				Help:    "Time from upload to persisted OCR record",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
			},
			[]string{"engine"},
		),
		conversionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdf_conversion_failures_total",
			Help: "Total number of failed PDF rasterizations",
		}),
		approvalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_approvals_total",
				Help: "Total number of review session approvals",
			},
			[]string{"status"},
		),
		duplicateWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duplicate_warnings_total",
				Help: "Total number of duplicate warnings raised during review",
			},
			[]string{"type"}, // exact, similar, position
		),
		patternsLearned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supplier_patterns_learned_total",
			Help: "Total number of stored supplier patterns",
		}),
		budgetCorrections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "budget_sync_corrections_total",
			Help: "Total number of consumed budgets corrected by the sync loop",
		}),
		inboxFilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inbox_files_total",
				Help: "Total number of files picked up from the inbox directory",
			},
			[]string{"status"},
		),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.uploadsTotal.Describe(ch)
	m.processingDuration.Describe(ch)
	m.conversionFailures.Describe(ch)
	m.approvalsTotal.Describe(ch)
	m.duplicateWarnings.Describe(ch)
	m.patternsLearned.Describe(ch)
	m.budgetCorrections.Describe(ch)
	m.inboxFilesTotal.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.uploadsTotal.Collect(ch)
	m.processingDuration.Collect(ch)
	m.conversionFailures.Collect(ch)
	m.approvalsTotal.Collect(ch)
	m.duplicateWarnings.Collect(ch)
	m.patternsLearned.Collect(ch)
	m.budgetCorrections.Collect(ch)
	m.inboxFilesTotal.Collect(ch)
}

func (m *Metrics) RecordUpload(engine, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(engine, status).Inc()
	if status == StatusSuccess {
		m.processingDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) RecordConversionFailure() {
	if m == nil {
		return
	}
	m.conversionFailures.Inc()
}

func (m *Metrics) RecordApproval(status string) {
	if m == nil {
		return
	}
	m.approvalsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordDuplicateWarnings(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.duplicateWarnings.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) RecordPatternLearned() {
	if m == nil {
		return
	}
	m.patternsLearned.Inc()
}

func (m *Metrics) RecordBudgetCorrection() {
	if m == nil {
		return
	}
	m.budgetCorrections.Inc()
}

func (m *Metrics) RecordInboxFile(status string) {
	if m == nil {
		return
	}
	m.inboxFilesTotal.WithLabelValues(status).Inc()
}
