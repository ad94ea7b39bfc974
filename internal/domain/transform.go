package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultWeather replaces missing weather labels.
const DefaultWeather = "Clear"

// instantLayouts are the accepted timestamp shapes, most specific first.
// Fractional seconds are accepted after any layout with a seconds field.
var instantLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02 15",
	"2006-01-02",
}

// ParseInstant parses an ISO-8601-like timestamp such as
// "2016-02-08 05:46:00", "2025-03-01T08:30" or "2025-03-01T08:30:00.000Z".
// The wall clock is kept as written; zoned inputs are not converted to UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// IsRushHour reports whether hour falls in the morning (7-9) or evening
// (16-18) rush, both inclusive.
func IsRushHour(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 16 && hour <= 18)
}

// DeriveFeatures extracts the time features of t. WeatherID is left for the
// caller to fill from a WeatherEncoder.
func DeriveFeatures(t time.Time) Features {
	f := Features{
		Hour:      t.Hour(),
		DayOfWeek: mondayFirst(t.Weekday()),
	}
	if IsRushHour(f.Hour) {
		f.IsRushHour = 1
	}
	return f
}

// mondayFirst renumbers a weekday so Monday is 0 and Sunday is 6.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Impute fills missing values in a batch of raw records:
//   - empty timestamps are carried forward from the previous row (leading
//     empties stay empty and are dropped later);
//   - empty weather becomes DefaultWeather;
//   - junction and signal flags become 1 for true and 0 otherwise;
//   - missing visibility becomes the mean of the parseable values, or 0 when
//     none parse;
//   - severity is mapped to a congestion label.
func Impute(records []RawRecord) []ImputedRecord {
	mean := meanVisibility(records)

	out := make([]ImputedRecord, len(records))
	lastTime := ""
	for i, rec := range records {
		ts := strings.TrimSpace(rec.StartTime)
		if ts == "" {
			ts = lastTime
		} else {
			lastTime = ts
		}

		weather := strings.TrimSpace(rec.Weather)
		if weather == "" {
			weather = DefaultWeather
		}

		visibility, ok := parseFloat(rec.Visibility)
		if !ok {
			visibility = mean
		}

		out[i] = ImputedRecord{
			Line:          rec.Line,
			StartTime:     ts,
			Weather:       weather,
			Junction:      parseFlag(rec.Junction),
			TrafficSignal: parseFlag(rec.TrafficSignal),
			Severity:      strings.TrimSpace(rec.Severity),
			Visibility:    visibility,
			Congestion:    CongestionFromSeverity(rec.Severity),
		}
	}
	return out
}

// ToEvent parses the timestamp of an imputed record and derives its features.
// The weather id is looked up in enc.
func ToEvent(rec ImputedRecord, enc *WeatherEncoder) (Event, error) {
	if rec.StartTime == "" {
		return Event{}, fmt.Errorf("line %d: %w: missing", rec.Line, ErrInvalidTimestamp)
	}
	t, err := ParseInstant(rec.StartTime)
	if err != nil {
		return Event{}, fmt.Errorf("line %d: %w", rec.Line, err)
	}
	id, err := enc.Encode(rec.Weather)
	if err != nil {
		return Event{}, fmt.Errorf("line %d: %w", rec.Line, err)
	}

	features := DeriveFeatures(t)
	features.WeatherID = id

	return Event{
		StartTime:     t,
		Weather:       rec.Weather,
		Junction:      rec.Junction,
		TrafficSignal: rec.TrafficSignal,
		Severity:      rec.Severity,
		Visibility:    rec.Visibility,
		Congestion:    rec.Congestion,
		Features:      features,
	}, nil
}

func meanVisibility(records []RawRecord) float64 {
	var sum float64
	var n int
	for _, rec := range records {
		if v, ok := parseFloat(rec.Visibility); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// parseFloat parses s as a finite float64. ok is false for empty,
// malformed, NaN and infinite values.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseFlag converts "True"/"False" style text to 1/0. Anything that is not
// recognisably true counts as false.
func parseFlag(s string) int {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil || !v {
		return 0
	}
	return 1
}
