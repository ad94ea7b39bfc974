package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "traffic"

// Metrics holds the Prometheus collectors for extraction, training and serving.
type Metrics struct {
	// Feature extraction.
	RowsRead       prometheus.Counter
	RowsWritten    prometheus.Counter
	RowsDropped    *prometheus.CounterVec // labels: reason={timestamp,weather}
	WeatherClasses prometheus.Gauge

	// Training.
	TrainingRows     *prometheus.GaugeVec // labels: set={train,test}
	TrainingDuration prometheus.Histogram
	ModelAccuracy    prometheus.Gauge

	// Serving.
	Predictions      *prometheus.CounterVec   // labels: label={Low,Moderate,High}
	PredictionErrors *prometheus.CounterVec   // labels: kind={unknown_weather,invalid_timestamp,bad_request,internal}
	HTTPDuration     *prometheus.HistogramVec // labels: route, method, status
	RecorderFailures *prometheus.CounterVec   // labels: sink={kafka,postgres}
	RecordersEnabled prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry creates all metrics and registers them with reg.
// The one-shot CLIs use a private registry so they can dump it to a textfile.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_rows_read_total",
			Help:      "Raw accident rows read from the source CSV.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_rows_written_total",
			Help:      "Cleaned rows written to the output CSV.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_rows_dropped_total",
			Help:      "Rows excluded from the cleaned table by reason.",
		}, []string{"reason"}),
		WeatherClasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_classes",
			Help:      "Distinct weather labels in the encoding table.",
		}),
		TrainingRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows",
			Help:      "Rows in the training and test partitions.",
		}, []string{"set"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time spent fitting the forest.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}),
		ModelAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Holdout accuracy of the last trained model.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Served predictions by congestion label.",
		}, []string{"label"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Rejected or failed prediction requests by kind.",
		}, []string{"kind"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"route", "method", "status"}),
		RecorderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_record_failures_total",
			Help:      "Prediction records that could not be delivered, by sink.",
		}, []string{"sink"}),
		RecordersEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prediction_recorders_enabled",
			Help:      "Number of configured prediction record sinks.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsRead,
		m.RowsWritten,
		m.RowsDropped,
		m.WeatherClasses,
		m.TrainingRows,
		m.TrainingDuration,
		m.ModelAccuracy,
		m.Predictions,
		m.PredictionErrors,
		m.HTTPDuration,
		m.RecorderFailures,
		m.RecordersEnabled,
	}
}
