// Package pipeline orchestrates the two offline jobs: feature extraction from
// the raw accident export, and training of the congestion classifier.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/observability"
)

// RawSource reads every raw accident row.
type RawSource interface {
	ReadAll(ctx context.Context) ([]domain.RawRecord, error)
}

// EventSink writes the cleaned table.
type EventSink interface {
	WriteAll(ctx context.Context, events []domain.Event) error
}

// ExtractSummary reports what one extraction run did.
type ExtractSummary struct {
	Read    int
	Written int
	Dropped int
	Classes []string
}

// Extractor turns raw accident rows into the cleaned feature table and the
// weather encoding table.
type Extractor struct {
	source      RawSource
	sink        EventSink
	encoderPath string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewExtractor creates an Extractor. The encoder table is saved to encoderPath.
func NewExtractor(source RawSource, sink EventSink, encoderPath string, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		source:      source,
		sink:        sink,
		encoderPath: encoderPath,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run reads, imputes and encodes every row, drops rows whose timestamp cannot
// be parsed, then writes the cleaned table and saves the encoder. Dropped rows
// are logged and counted but never fail the run.
func (e *Extractor) Run(ctx context.Context) (ExtractSummary, error) {
	raw, err := e.source.ReadAll(ctx)
	if err != nil {
		return ExtractSummary{}, fmt.Errorf("extract: %w", err)
	}
	e.metrics.RowsRead.Add(float64(len(raw)))
	if len(raw) == 0 {
		e.logger.Warn("source has no data rows")
	}

	imputed := domain.Impute(raw)

	// The encoder sees every row, including ones dropped below.
	labels := make([]string, len(imputed))
	for i, rec := range imputed {
		labels[i] = rec.Weather
	}
	enc := domain.FitWeatherEncoder(labels)
	e.metrics.WeatherClasses.Set(float64(enc.Len()))

	events := make([]domain.Event, 0, len(imputed))
	dropped := 0
	for _, rec := range imputed {
		ev, err := domain.ToEvent(rec, enc)
		if err != nil {
			dropped++
			e.metrics.RowsDropped.WithLabelValues(dropReason(err)).Inc()
			e.logger.Debug("dropping row", "line", rec.Line, "error", err)
			continue
		}
		events = append(events, ev)
	}

	if err := e.sink.WriteAll(ctx, events); err != nil {
		return ExtractSummary{}, fmt.Errorf("extract: %w", err)
	}
	e.metrics.RowsWritten.Add(float64(len(events)))

	if err := domain.SaveWeatherEncoder(e.encoderPath, enc); err != nil {
		return ExtractSummary{}, fmt.Errorf("extract: %w", err)
	}

	summary := ExtractSummary{
		Read:    len(raw),
		Written: len(events),
		Dropped: dropped,
		Classes: enc.Classes(),
	}
	e.logger.Info("extraction complete",
		"read", summary.Read,
		"written", summary.Written,
		"dropped", summary.Dropped,
		"weather_classes", len(summary.Classes),
		"encoder", e.encoderPath,
	)
	return summary, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTimestamp):
		return "timestamp"
	case errors.Is(err, domain.ErrUnknownWeather):
		return "weather"
	default:
		return "other"
	}
}
