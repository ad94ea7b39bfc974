package domain

import "time"

// Source CSV column names.
const (
	ColStartTime     = "Start_Time"
	ColWeather       = "Weather_Condition"
	ColJunction      = "Junction"
	ColTrafficSignal = "Traffic_Signal"
	ColSeverity      = "Severity"
	ColVisibility    = "Visibility(mi)"
)

// Derived column names written by the extractor.
const (
	ColCongestion = "Traffic_Condition"
	ColHour       = "Hour"
	ColDayOfWeek  = "DayOfWeek"
	ColRushHour   = "IsRushHour"
	ColWeatherID  = "Weather_Encoded"
)

// SourceColumns lists the raw columns the extractor reads, in output order.
var SourceColumns = []string{ColStartTime, ColWeather, ColJunction, ColTrafficSignal, ColSeverity, ColVisibility}

// CleanedColumns lists the columns of the cleaned table, in output order.
var CleanedColumns = append(append([]string{}, SourceColumns...),
	ColCongestion, ColHour, ColDayOfWeek, ColRushHour, ColWeatherID)

// RawRecord is one accident row as read from the source CSV. Every field is
// kept as text so that missing and malformed values survive until imputation.
type RawRecord struct {
	Line          int // 1-based data row number, for diagnostics
	StartTime     string
	Weather       string
	Junction      string
	TrafficSignal string
	Severity      string
	Visibility    string
}

// ImputedRecord is a RawRecord after missing values have been filled in.
type ImputedRecord struct {
	Line          int
	StartTime     string
	Weather       string
	Junction      int
	TrafficSignal int
	Severity      string
	Visibility    float64
	Congestion    Congestion
}

// Features are the engineered model inputs derived from a record.
type Features struct {
	Hour       int `json:"hour"`
	DayOfWeek  int `json:"day_of_week"`
	IsRushHour int `json:"is_rush_hour"`
	WeatherID  int `json:"weather_encoded"`
}

// Event is a cleaned accident record with its derived features.
type Event struct {
	StartTime     time.Time
	Weather       string
	Junction      int
	TrafficSignal int
	Severity      string
	Visibility    float64
	Congestion    Congestion
	Features      Features
}
