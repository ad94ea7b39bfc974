package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

// WeatherEncoder maps weather labels to stable integer ids and back. Ids are
// positions in the sorted list of distinct labels. An encoder is immutable
// once built and safe for concurrent reads.
type WeatherEncoder struct {
	classes []string
	index   map[string]int
}

// encoderFile is the persisted JSON form of a WeatherEncoder.
type encoderFile struct {
	Classes []string `json:"classes"`
}

// FitWeatherEncoder builds an encoder from every label in labels.
func FitWeatherEncoder(labels []string) *WeatherEncoder {
	classes := slices.Clone(labels)
	slices.Sort(classes)
	return newWeatherEncoder(slices.Compact(classes))
}

func newWeatherEncoder(classes []string) *WeatherEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &WeatherEncoder{classes: classes, index: index}
}

// Classes returns a copy of the known labels in id order.
func (e *WeatherEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

// Len returns the number of known labels.
func (e *WeatherEncoder) Len() int { return len(e.classes) }

// Contains reports whether label is a known class.
func (e *WeatherEncoder) Contains(label string) bool {
	_, ok := e.index[label]
	return ok
}

// Encode returns the id of label.
func (e *WeatherEncoder) Encode(label string) (int, error) {
	id, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWeather, label)
	}
	return id, nil
}

// Decode returns the label with the given id.
func (e *WeatherEncoder) Decode(id int) (string, error) {
	if id < 0 || id >= len(e.classes) {
		return "", fmt.Errorf("weather id %d out of range [0,%d)", id, len(e.classes))
	}
	return e.classes[id], nil
}

// SaveWeatherEncoder writes the encoder as JSON to path.
func SaveWeatherEncoder(path string, e *WeatherEncoder) error {
	data, err := json.MarshalIndent(encoderFile{Classes: e.classes}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal weather encoder: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write weather encoder: %w", err)
	}
	return nil
}

// LoadWeatherEncoder reads an encoder previously written by
// SaveWeatherEncoder. A missing file yields ErrMissingArtifact.
func LoadWeatherEncoder(path string) (*WeatherEncoder, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: weather encoder %s", ErrMissingArtifact, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read weather encoder: %w", err)
	}

	var f encoderFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode weather encoder: %w", err)
	}
	if !slices.IsSorted(f.Classes) || len(slices.Compact(slices.Clone(f.Classes))) != len(f.Classes) {
		return nil, fmt.Errorf("decode weather encoder: classes must be sorted and unique")
	}
	return newWeatherEncoder(f.Classes), nil
}
