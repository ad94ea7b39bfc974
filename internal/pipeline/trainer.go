package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/trafficlens/congestion-predictor/internal/adapter/csvfile"
	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/model"
	"github.com/trafficlens/congestion-predictor/internal/observability"
)

// TrainConfig controls the split and the forest hyperparameters. When
// EncoderPath is set, every Weather_Encoded value must be an id of that table.
type TrainConfig struct {
	ModelPath    string
	EncoderPath  string
	TestFraction float64
	Seed         uint64
	Trees        int
	MaxDepth     int
}

// DefaultTrainConfig returns the reference training settings.
func DefaultTrainConfig(modelPath string) TrainConfig {
	return TrainConfig{
		ModelPath:    modelPath,
		TestFraction: model.DefaultTestFraction,
		Seed:         model.DefaultSeed,
		Trees:        model.DefaultTrees,
	}
}

// TrainSummary reports the outcome of one training run.
type TrainSummary struct {
	TrainRows int
	TestRows  int
	Accuracy  float64
	Duration  time.Duration
}

// Trainer fits the congestion classifier on the cleaned table, reports its
// holdout accuracy and saves the model artifact.
type Trainer struct {
	data    io.Reader
	report  io.Writer
	cfg     TrainConfig
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTrainer creates a Trainer reading the cleaned table from data. The
// accuracy line is written to report.
func NewTrainer(data io.Reader, report io.Writer, cfg TrainConfig, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Trainer {
	return &Trainer{
		data:    data,
		report:  report,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Run trains and evaluates once. An empty training partition returns
// model.ErrEmptyTrainingSet.
func (t *Trainer) Run(ctx context.Context) (TrainSummary, error) {
	ds, err := csvfile.ReadCleaned(ctx, t.data)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	if t.cfg.EncoderPath != "" {
		enc, err := domain.LoadWeatherEncoder(t.cfg.EncoderPath)
		if err != nil {
			return TrainSummary{}, fmt.Errorf("train: %w", err)
		}
		if err := checkWeatherIDs(ds, enc); err != nil {
			return TrainSummary{}, fmt.Errorf("train: %w", err)
		}
	}

	trainIdx, testIdx, err := model.Split(len(ds.X), t.cfg.TestFraction, t.cfg.Seed)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	trainX, trainY := subset(ds, trainIdx)
	testX, testY := subset(ds, testIdx)
	t.metrics.TrainingRows.WithLabelValues("train").Set(float64(len(trainX)))
	t.metrics.TrainingRows.WithLabelValues("test").Set(float64(len(testX)))

	forest := model.NewForest(
		model.WithTrees(t.cfg.Trees),
		model.WithSeed(t.cfg.Seed),
		model.WithMaxDepth(t.cfg.MaxDepth),
	)

	start := t.clock.Now()
	if err := forest.Fit(trainX, trainY, ds.Features, congestionClasses()); err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	elapsed := t.clock.Since(start)
	t.metrics.TrainingDuration.Observe(elapsed.Seconds())

	acc, err := model.Accuracy(forest.PredictAll(testX), testY)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	t.metrics.ModelAccuracy.Set(acc)

	if _, err := fmt.Fprintf(t.report, "Model Accuracy: %.2f\n", acc); err != nil {
		return TrainSummary{}, fmt.Errorf("train: report accuracy: %w", err)
	}

	if err := model.Save(t.cfg.ModelPath, forest); err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}

	summary := TrainSummary{
		TrainRows: len(trainX),
		TestRows:  len(testX),
		Accuracy:  acc,
		Duration:  elapsed,
	}
	t.logger.Info("training complete",
		"train_rows", summary.TrainRows,
		"test_rows", summary.TestRows,
		"trees", t.cfg.Trees,
		"accuracy", acc,
		"duration", elapsed,
		"model", t.cfg.ModelPath,
	)
	return summary, nil
}

// checkWeatherIDs rejects tables encoded with a different weather table than
// the one the service will load.
func checkWeatherIDs(ds *csvfile.Dataset, enc *domain.WeatherEncoder) error {
	col := slices.Index(ds.Features, domain.ColWeatherID)
	if col < 0 {
		return fmt.Errorf("column %s missing", domain.ColWeatherID)
	}
	for i, row := range ds.X {
		id := row[col]
		if id != float64(int(id)) || int(id) < 0 || int(id) >= enc.Len() {
			return fmt.Errorf("row %d: %s %v is not one of the %d encoder ids", i+1, domain.ColWeatherID, id, enc.Len())
		}
	}
	return nil
}

func subset(ds *csvfile.Dataset, idx []int) ([][]float64, []int) {
	x := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for i, j := range idx {
		x[i] = ds.X[j]
		y[i] = ds.Y[j]
	}
	return x, y
}

func congestionClasses() []string {
	out := make([]string, len(domain.Congestions))
	for i, c := range domain.Congestions {
		out[i] = c.String()
	}
	return out
}
