// Command extract cleans the raw accident export into the feature table used
// for training, and writes the weather encoding table shared by the trainer
// and the prediction service.
//
// Usage:
//
//	go run ./cmd/extract \
//	  -input data/US_Accidents.csv \
//	  -output data/cleaned_traffic_data.csv \
//	  -encoder weather_encoder.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trafficlens/congestion-predictor/internal/adapter/csvfile"
	"github.com/trafficlens/congestion-predictor/internal/observability"
	"github.com/trafficlens/congestion-predictor/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	input := flag.String("input", "", "path to the raw accident CSV")
	output := flag.String("output", "", "path for the cleaned feature CSV")
	encoderPath := flag.String("encoder", "weather_encoder.json", "path for the weather encoding table")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	metricsFile := flag.String("metrics-file", "", "optional Prometheus textfile to write run metrics to")
	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -input, -output")
	}

	logger, closeLog := observability.NewLogger(observability.LogOptions{Level: *logLevel, Format: "text"})
	defer closeLog() //nolint:errcheck // stdout only

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	ext := pipeline.NewExtractor(csvfile.NewReader(in), csvfile.NewWriter(out), *encoderPath, logger, metrics)
	summary, err := ext.Run(ctx)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log.Printf("wrote %d rows to %s (%d dropped)", summary.Written, *output, summary.Dropped)
	log.Printf("wrote %d weather classes to %s", len(summary.Classes), *encoderPath)

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
