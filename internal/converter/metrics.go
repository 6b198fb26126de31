package converter

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// Metrics holds the Prometheus metrics of pipeline runs. Each Metrics owns
// its registry so tests and repeated runs never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	RowsRead           *prometheus.CounterVec
	RowsMapped         *prometheus.CounterVec
	RowsRejected       *prometheus.CounterVec
	FilesProcessed     *prometheus.CounterVec
	DocumentsGenerated prometheus.Counter
	ValidationOutcomes *prometheus.CounterVec
	RunDuration        prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsRead: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saft_rows_read_total",
			Help: "Source rows read, by target model",
		}, []string{"kind"}),
		RowsMapped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saft_rows_mapped_total",
			Help: "Source rows that produced a valid entity, by target model",
		}, []string{"kind"}),
		RowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saft_rows_rejected_total",
			Help: "Source rows rejected by validation, by target model",
		}, []string{"kind"}),
		FilesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saft_input_files_total",
			Help: "Input files ingested, by status",
		}, []string{"status"}),
		DocumentsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "saft_documents_generated_total",
			Help: "SAF-T documents serialized",
		}),
		ValidationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saft_validation_outcomes_total",
			Help: "Schema validation results, by outcome",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "saft_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRows records the mapping outcome of one input file.
func (m *Metrics) ObserveRows(kind saft.Kind, read, mapped, rejected int) {
	label := kind.String()
	m.RowsRead.WithLabelValues(label).Add(float64(read))
	m.RowsMapped.WithLabelValues(label).Add(float64(mapped))
	m.RowsRejected.WithLabelValues(label).Add(float64(rejected))
}

// ObserveFile records one input file as "ingested" or "failed".
func (m *Metrics) ObserveFile(ok bool) {
	status := "ingested"
	if !ok {
		status = "failed"
	}
	m.FilesProcessed.WithLabelValues(status).Inc()
}

// ObserveValidation records a validation outcome: "valid", "invalid" or
// "error" when the schema could not be used.
func (m *Metrics) ObserveValidation(outcome string) {
	m.ValidationOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRun records the duration of a run started at start.
func (m *Metrics) ObserveRun(start time.Time) {
	m.RunDuration.Observe(time.Since(start).Seconds())
}

// WriteToTextfile writes every metric to path in the text exposition
// format read by node_exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
