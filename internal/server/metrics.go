package server

import (
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/converter"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/prometheus/client_golang/prometheus"
)

// Conversion outcomes used as the status label.
const (
	statusSuccess     = "success"
	statusSchemaError = "schema_error"
	statusInputError  = "input_error"
	statusError       = "error"
)

// Metrics are the conversion counters exported on /metrics.
type Metrics struct {
	conversions *prometheus.CounterVec
	rows        *prometheus.CounterVec
	unmatched   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpsconv_conversions_total",
			Help: "Total number of conversions by document type and outcome.",
		}, []string{"document", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpsconv_converted_rows_total",
			Help: "Total number of order lines written.",
		}, []string{"document"}),
		unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpsconv_unmatched_items_total",
			Help: "Total number of order lines whose item was not in the reference table.",
		}, []string{"document"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gpsconv_conversion_duration_seconds",
			Help:    "Time spent converting one request, including reference parsing.",
			Buckets: prometheus.DefBuckets,
		}, []string{"document"}),
	}
	reg.MustRegister(m.conversions, m.rows, m.unmatched, m.duration)
	return m
}

// Observe records a successful conversion.
func (m *Metrics) Observe(doc types.DocumentType, res *converter.Result, elapsed time.Duration) {
	d := doc.String()
	m.conversions.WithLabelValues(d, statusSuccess).Inc()
	m.rows.WithLabelValues(d).Add(float64(res.Rows))
	m.unmatched.WithLabelValues(d).Add(float64(res.Unmatched))
	m.duration.WithLabelValues(d).Observe(elapsed.Seconds())
}

// Fail records a failed conversion.
func (m *Metrics) Fail(doc types.DocumentType, err error) {
	status := statusError
	if _, ok := validation.IsSchemaError(err); ok {
		status = statusSchemaError
	} else if _, ok := validation.IsInputError(err); ok {
		status = statusInputError
	}
	m.conversions.WithLabelValues(doc.String(), status).Inc()
}
