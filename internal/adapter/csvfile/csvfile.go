// Package csvfile reads the raw accident export and reads and writes the
// cleaned feature table.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/trafficlens/congestion-predictor/internal/domain"
)

// TimeLayout is the timestamp format of the cleaned table.
const TimeLayout = "2006-01-02 15:04:05"

// ctxCheckEvery bounds how many rows are processed between cancellation checks.
const ctxCheckEvery = 4096

// FeatureColumns are the model inputs, in the order the model expects them.
var FeatureColumns = []string{
	domain.ColHour,
	domain.ColDayOfWeek,
	domain.ColRushHour,
	domain.ColJunction,
	domain.ColTrafficSignal,
	domain.ColWeatherID,
	domain.ColVisibility,
}

// featureValues reads each FeatureColumns entry off an event.
var featureValues = map[string]func(domain.Event) float64{
	domain.ColHour:          func(ev domain.Event) float64 { return float64(ev.Features.Hour) },
	domain.ColDayOfWeek:     func(ev domain.Event) float64 { return float64(ev.Features.DayOfWeek) },
	domain.ColRushHour:      func(ev domain.Event) float64 { return float64(ev.Features.IsRushHour) },
	domain.ColJunction:      func(ev domain.Event) float64 { return float64(ev.Junction) },
	domain.ColTrafficSignal: func(ev domain.Event) float64 { return float64(ev.TrafficSignal) },
	domain.ColWeatherID:     func(ev domain.Event) float64 { return float64(ev.Features.WeatherID) },
	domain.ColVisibility:    func(ev domain.Event) float64 { return ev.Visibility },
}

// FeatureVector lays out ev's model inputs in FeatureColumns order, matching
// the rows ReadCleaned produces.
func FeatureVector(ev domain.Event) []float64 {
	x := make([]float64, len(FeatureColumns))
	for j, col := range FeatureColumns {
		x[j] = featureValues[col](ev)
	}
	return x
}

// Reader reads raw accident rows from a CSV source. Columns are located by
// header name; extra columns are ignored.
type Reader struct {
	r io.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll reads every data row. A missing required column is an error; short
// rows yield empty values for the absent fields.
func (r *Reader) ReadAll(ctx context.Context) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r.r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read raw csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read raw csv header: %w", err)
	}
	idx, err := columnIndex(header, domain.SourceColumns)
	if err != nil {
		return nil, fmt.Errorf("read raw csv: %w", err)
	}

	var out []domain.RawRecord
	for line := 1; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read raw csv line %d: %w", line, err)
		}
		out = append(out, domain.RawRecord{
			Line:          line,
			StartTime:     field(row, idx[domain.ColStartTime]),
			Weather:       field(row, idx[domain.ColWeather]),
			Junction:      field(row, idx[domain.ColJunction]),
			TrafficSignal: field(row, idx[domain.ColTrafficSignal]),
			Severity:      field(row, idx[domain.ColSeverity]),
			Visibility:    field(row, idx[domain.ColVisibility]),
		})
	}
}

// Writer writes cleaned events as CSV with the domain.CleanedColumns header.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteAll writes the header followed by one row per event.
func (w *Writer) WriteAll(ctx context.Context, events []domain.Event) error {
	cw := csv.NewWriter(w.w)
	if err := cw.Write(domain.CleanedColumns); err != nil {
		return fmt.Errorf("write cleaned csv header: %w", err)
	}

	row := make([]string, len(domain.CleanedColumns))
	for i, ev := range events {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row[0] = ev.StartTime.Format(TimeLayout)
		row[1] = ev.Weather
		row[2] = strconv.Itoa(ev.Junction)
		row[3] = strconv.Itoa(ev.TrafficSignal)
		row[4] = ev.Severity
		row[5] = strconv.FormatFloat(ev.Visibility, 'f', -1, 64)
		row[6] = ev.Congestion.String()
		row[7] = strconv.Itoa(ev.Features.Hour)
		row[8] = strconv.Itoa(ev.Features.DayOfWeek)
		row[9] = strconv.Itoa(ev.Features.IsRushHour)
		row[10] = strconv.Itoa(ev.Features.WeatherID)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write cleaned csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush cleaned csv: %w", err)
	}
	return nil
}

// Dataset is the cleaned table reduced to model inputs and labels.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []int
}

// ReadCleaned reads a cleaned table and returns the FeatureColumns as a
// numeric matrix with congestion class indices as labels.
func ReadCleaned(ctx context.Context, r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read cleaned csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read cleaned csv header: %w", err)
	}
	idx, err := columnIndex(header, append(append([]string{}, FeatureColumns...), domain.ColCongestion))
	if err != nil {
		return nil, fmt.Errorf("read cleaned csv: %w", err)
	}

	ds := &Dataset{Features: append([]string(nil), FeatureColumns...)}
	for line := 1; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ds, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read cleaned csv line %d: %w", line, err)
		}

		x := make([]float64, len(FeatureColumns))
		for j, col := range FeatureColumns {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("read cleaned csv line %d: column %s: %w", line, col, err)
			}
			x[j] = v
		}
		label, err := domain.ParseCongestion(row[idx[domain.ColCongestion]])
		if err != nil {
			return nil, fmt.Errorf("read cleaned csv line %d: %w", line, err)
		}
		ds.X = append(ds.X, x)
		ds.Y = append(ds.Y, label.Index())
	}
}

// ReadEvents reads a cleaned table written by Writer back into events.
func ReadEvents(ctx context.Context, r io.Reader) ([]domain.Event, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read cleaned csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read cleaned csv header: %w", err)
	}
	idx, err := columnIndex(header, domain.CleanedColumns)
	if err != nil {
		return nil, fmt.Errorf("read cleaned csv: %w", err)
	}

	var out []domain.Event
	for line := 1; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read cleaned csv line %d: %w", line, err)
		}
		ev, err := parseEvent(row, idx)
		if err != nil {
			return nil, fmt.Errorf("read cleaned csv line %d: %w", line, err)
		}
		out = append(out, ev)
	}
}

func parseEvent(row []string, idx map[string]int) (domain.Event, error) {
	var ev domain.Event
	var err error

	if ev.StartTime, err = time.Parse(TimeLayout, row[idx[domain.ColStartTime]]); err != nil {
		return ev, fmt.Errorf("column %s: %w", domain.ColStartTime, err)
	}
	if ev.Congestion, err = domain.ParseCongestion(row[idx[domain.ColCongestion]]); err != nil {
		return ev, err
	}
	if ev.Visibility, err = strconv.ParseFloat(row[idx[domain.ColVisibility]], 64); err != nil {
		return ev, fmt.Errorf("column %s: %w", domain.ColVisibility, err)
	}
	ev.Weather = row[idx[domain.ColWeather]]
	ev.Severity = row[idx[domain.ColSeverity]]

	ints := []struct {
		col string
		dst *int
	}{
		{domain.ColJunction, &ev.Junction},
		{domain.ColTrafficSignal, &ev.TrafficSignal},
		{domain.ColHour, &ev.Features.Hour},
		{domain.ColDayOfWeek, &ev.Features.DayOfWeek},
		{domain.ColRushHour, &ev.Features.IsRushHour},
		{domain.ColWeatherID, &ev.Features.WeatherID},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(row[idx[f.col]])
		if err != nil {
			return ev, fmt.Errorf("column %s: %w", f.col, err)
		}
		*f.dst = v
	}
	return ev, nil
}

// columnIndex locates each wanted column in header.
func columnIndex(header, want []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make(map[string]int, len(want))
	var missing []string
	for _, col := range want {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
