// Command validate checks that the artifacts produced by extract and train
// agree with each other: the weather encoding table, the cleaned feature
// table and, optionally, the model. It recomputes every derived column from
// its source column and verifies the weather ids round-trip through the
// encoder the prediction service loads.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data data/cleaned_traffic_data.csv \
//	  -encoder weather_encoder.json \
//	  -model traffic_model.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/trafficlens/congestion-predictor/internal/adapter/csvfile"
	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/model"
)

// maxErrorsPerPhase caps the detail printed for one failing phase.
const maxErrorsPerPhase = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataPath := flag.String("data", "", "path to the cleaned feature CSV")
	encoderPath := flag.String("encoder", "weather_encoder.json", "path to the weather encoding table")
	modelPath := flag.String("model", "", "optional path to the trained model")
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*dataPath, *encoderPath, *modelPath))
}

func run(dataPath, encoderPath, modelPath string) int {
	fmt.Println("=== Traffic Artifact Validation ===")
	fmt.Println()

	enc, err := domain.LoadWeatherEncoder(encoderPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load encoder: %v\n", err)
		return 1
	}

	f, err := os.Open(dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open cleaned table: %v\n", err)
		return 1
	}
	events, err := csvfile.ReadEvents(context.Background(), f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read cleaned table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateEncoder(enc),
		validateWeatherIDs(events, enc),
		validateDerivedFeatures(events),
	}

	var forest *model.Forest
	if modelPath != "" {
		forest, err = model.Load(modelPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load model: %v\n", err)
			return 1
		}
		phases = append(phases, validateModelSchema(forest))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d cleaned, %d weather classes\n", len(events), enc.Len())
	if forest != nil && allPassed {
		fmt.Printf("Model accuracy on the full table: %.2f\n", tableAccuracy(forest, events))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrorsPerPhase {
				fmt.Printf("  ... %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateEncoder(enc *domain.WeatherEncoder) *phase {
	p := &phase{name: "Encoder round-trip"}
	classes := enc.Classes()
	if len(classes) == 0 {
		p.errorf("encoder has no classes")
	}
	for _, c := range classes {
		id, err := enc.Encode(c)
		if err != nil {
			p.errorf("encode %q: %v", c, err)
			continue
		}
		back, err := enc.Decode(id)
		if err != nil || back != c {
			p.errorf("class %q encodes to %d which decodes to %q", c, id, back)
		}
	}
	return p
}

func validateWeatherIDs(events []domain.Event, enc *domain.WeatherEncoder) *phase {
	p := &phase{name: "Weather ids match encoder"}
	for i, ev := range events {
		id, err := enc.Encode(ev.Weather)
		if err != nil {
			p.errorf("row %d: %v", i+1, err)
			continue
		}
		if id != ev.Features.WeatherID {
			p.errorf("row %d: %q has id %d, encoder says %d", i+1, ev.Weather, ev.Features.WeatherID, id)
		}
	}
	return p
}

func validateDerivedFeatures(events []domain.Event) *phase {
	p := &phase{name: "Derived columns match source columns"}
	for i, ev := range events {
		want := domain.DeriveFeatures(ev.StartTime)
		got := ev.Features
		if got.Hour != want.Hour {
			p.errorf("row %d: Hour %d, want %d", i+1, got.Hour, want.Hour)
		}
		if got.DayOfWeek != want.DayOfWeek {
			p.errorf("row %d: DayOfWeek %d, want %d", i+1, got.DayOfWeek, want.DayOfWeek)
		}
		if got.IsRushHour != want.IsRushHour {
			p.errorf("row %d: IsRushHour %d, want %d", i+1, got.IsRushHour, want.IsRushHour)
		}
		if label := domain.CongestionFromSeverity(ev.Severity); label != ev.Congestion {
			p.errorf("row %d: severity %q labelled %s, want %s", i+1, ev.Severity, ev.Congestion, label)
		}
		if ev.Junction != 0 && ev.Junction != 1 {
			p.errorf("row %d: Junction %d is not a flag", i+1, ev.Junction)
		}
		if ev.TrafficSignal != 0 && ev.TrafficSignal != 1 {
			p.errorf("row %d: Traffic_Signal %d is not a flag", i+1, ev.TrafficSignal)
		}
	}
	return p
}

func validateModelSchema(f *model.Forest) *phase {
	p := &phase{name: "Model schema matches cleaned table"}
	if !slices.Equal(f.Features, csvfile.FeatureColumns) {
		p.errorf("model features %v, want %v", f.Features, csvfile.FeatureColumns)
	}
	want := make([]string, len(domain.Congestions))
	for i, c := range domain.Congestions {
		want[i] = c.String()
	}
	if !slices.Equal(f.Classes, want) {
		p.errorf("model classes %v, want %v", f.Classes, want)
	}
	return p
}

func tableAccuracy(f *model.Forest, events []domain.Event) float64 {
	pred := make([]int, len(events))
	truth := make([]int, len(events))
	for i, ev := range events {
		pred[i] = f.Predict(csvfile.FeatureVector(ev))
		truth[i] = ev.Congestion.Index()
	}
	// Accuracy only fails on a length mismatch; both slices are sized from events.
	acc, _ := model.Accuracy(pred, truth)
	return acc
}
