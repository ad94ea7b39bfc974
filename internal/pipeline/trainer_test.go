package pipeline_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/congestion-predictor/internal/adapter/csvfile"
	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/model"
	"github.com/trafficlens/congestion-predictor/internal/pipeline"
)

// cleanedTable writes a cleaned table whose labels follow the rule cascade.
// Every feature combination is repeated so the holdout only contains rows the
// forest has seen.
func cleanedTable(t *testing.T, repeats int) *bytes.Buffer {
	t.Helper()
	weathers := []string{"Clear", "Rain"}
	day := time.Date(2016, 2, 8, 0, 0, 0, 0, time.UTC)

	var events []domain.Event
	for r := 0; r < repeats; r++ {
		for _, hour := range []int{3, 8, 12, 17} {
			for wid, weather := range weathers {
				for junction := 0; junction <= 1; junction++ {
					ts := day.Add(time.Duration(hour) * time.Hour)
					f := domain.DeriveFeatures(ts)
					f.WeatherID = wid
					label := domain.Classify(f.IsRushHour == 1, domain.IsBadWeather(weather), junction == 1)
					events = append(events, domain.Event{
						StartTime:  ts,
						Weather:    weather,
						Junction:   junction,
						Severity:   "2",
						Visibility: 10,
						Congestion: label,
						Features:   f,
					})
				}
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, csvfile.NewWriter(&buf).WriteAll(context.Background(), events))
	return &buf
}

func TestTrainer_Run(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "traffic_model.json")
	cfg := pipeline.DefaultTrainConfig(modelPath)
	cfg.Trees = 15
	metrics := newTestMetrics()
	var report bytes.Buffer

	tr := pipeline.NewTrainer(cleanedTable(t, 10), &report, cfg, clockwork.NewFakeClock(), slog.Default(), metrics)
	summary, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 128, summary.TrainRows)
	assert.Equal(t, 32, summary.TestRows)
	assert.GreaterOrEqual(t, summary.Accuracy, 0.9)
	assert.Regexp(t, `^Model Accuracy: [01]\.\d\d\n$`, report.String())

	forest, err := model.Load(modelPath)
	require.NoError(t, err)
	assert.Equal(t, csvfile.FeatureColumns, forest.Features)
	assert.Equal(t, []string{"Low", "Moderate", "High"}, forest.Classes)
	assert.Len(t, forest.Trees, 15)

	assert.InDelta(t, 128, testutil.ToFloat64(metrics.TrainingRows.WithLabelValues("train")), 0)
	assert.InDelta(t, 32, testutil.ToFloat64(metrics.TrainingRows.WithLabelValues("test")), 0)
	assert.InDelta(t, summary.Accuracy, testutil.ToFloat64(metrics.ModelAccuracy), 1e-12)
}

func TestTrainer_Run_Deterministic(t *testing.T) {
	dir := t.TempDir()
	run := func(name string) string {
		cfg := pipeline.DefaultTrainConfig(filepath.Join(dir, name))
		cfg.Trees = 5
		var report bytes.Buffer
		_, err := pipeline.NewTrainer(cleanedTable(t, 4), &report, cfg, clockwork.NewFakeClock(), slog.Default(), newTestMetrics()).
			Run(context.Background())
		require.NoError(t, err)
		return report.String()
	}
	assert.Equal(t, run("a.json"), run("b.json"))
}

func TestTrainer_Run_ChecksWeatherIDsAgainstEncoder(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		save    bool
		wantErr string
	}{
		{"matching encoder", []string{"Clear", "Rain"}, true, ""},
		{"encoder with fewer classes", []string{"Clear"}, true, "Weather_Encoded 1 is not one of the 1 encoder ids"},
		{"missing encoder", nil, false, "weather encoder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := pipeline.DefaultTrainConfig(filepath.Join(dir, "m.json"))
			cfg.Trees = 3
			cfg.EncoderPath = filepath.Join(dir, "weather_encoder.json")
			if tt.save {
				require.NoError(t, domain.SaveWeatherEncoder(cfg.EncoderPath, domain.FitWeatherEncoder(tt.classes)))
			}

			tr := pipeline.NewTrainer(cleanedTable(t, 2), &bytes.Buffer{}, cfg,
				clockwork.NewFakeClock(), slog.Default(), newTestMetrics())
			_, err := tr.Run(context.Background())
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.FileExists(t, cfg.ModelPath)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoFileExists(t, cfg.ModelPath)
		})
	}
}

func TestTrainer_Run_EmptyTrainingSet(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"header only", strings.Join(domain.CleanedColumns, ",") + "\n"},
		{"single row", strings.Join(domain.CleanedColumns, ",") + "\n2016-02-08 05:46:00,Clear,0,0,1,10,Low,5,0,0,0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modelPath := filepath.Join(t.TempDir(), "m.json")
			var report bytes.Buffer
			tr := pipeline.NewTrainer(strings.NewReader(tt.input), &report, pipeline.DefaultTrainConfig(modelPath),
				clockwork.NewFakeClock(), slog.Default(), newTestMetrics())

			_, err := tr.Run(context.Background())
			require.ErrorIs(t, err, model.ErrEmptyTrainingSet)
			assert.Empty(t, report.String())
			assert.NoFileExists(t, modelPath)
		})
	}
}

func TestTrainer_Run_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cfg   func(*pipeline.TrainConfig)
		msg   string
	}{
		{"missing header", "", nil, "missing header"},
		{"bad test fraction", cleanedTable(t, 1).String(), func(c *pipeline.TrainConfig) { c.TestFraction = 1.5 }, "test fraction"},
		{"no trees", cleanedTable(t, 1).String(), func(c *pipeline.TrainConfig) { c.Trees = 0 }, "tree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pipeline.DefaultTrainConfig(filepath.Join(t.TempDir(), "m.json"))
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			tr := pipeline.NewTrainer(strings.NewReader(tt.input), &bytes.Buffer{}, cfg,
				clockwork.NewFakeClock(), slog.Default(), newTestMetrics())
			_, err := tr.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
