// Command train fits the congestion classifier on the cleaned feature table,
// prints its holdout accuracy and saves the model artifact.
//
// Usage:
//
//	go run ./cmd/train \
//	  -data data/cleaned_traffic_data.csv \
//	  -model traffic_model.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trafficlens/congestion-predictor/internal/model"
	"github.com/trafficlens/congestion-predictor/internal/observability"
	"github.com/trafficlens/congestion-predictor/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	data := flag.String("data", "", "path to the cleaned feature CSV")
	modelPath := flag.String("model", "traffic_model.json", "path for the trained model")
	encoderPath := flag.String("encoder", "", "optional weather encoding table to check Weather_Encoded against")
	trees := flag.Int("trees", model.DefaultTrees, "number of trees in the forest")
	seed := flag.Uint64("seed", model.DefaultSeed, "seed for the split and the forest")
	testSize := flag.Float64("test-size", model.DefaultTestFraction, "fraction of rows held out for evaluation")
	maxDepth := flag.Int("max-depth", 0, "maximum tree depth, 0 for unlimited")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	metricsFile := flag.String("metrics-file", "", "optional Prometheus textfile to write run metrics to")
	flag.Parse()

	if *data == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -data")
	}

	logger, closeLog := observability.NewLogger(observability.LogOptions{Level: *logLevel, Format: "text"})
	defer closeLog() //nolint:errcheck // stdout only

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := os.Open(*data)
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	defer in.Close()

	cfg := pipeline.DefaultTrainConfig(*modelPath)
	cfg.Trees = *trees
	cfg.Seed = *seed
	cfg.TestFraction = *testSize
	cfg.MaxDepth = *maxDepth
	cfg.EncoderPath = *encoderPath

	tr := pipeline.NewTrainer(in, os.Stdout, cfg, clockwork.NewRealClock(), logger, metrics)
	if _, err := tr.Run(ctx); err != nil {
		if errors.Is(err, model.ErrEmptyTrainingSet) {
			return fmt.Errorf("%s has too few rows to train on: %w", *data, err)
		}
		return err
	}

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
