package domain

import (
	"context"
	"time"
)

// PredictionRequest is the body of POST /predict. Field names follow the
// frontend form.
type PredictionRequest struct {
	DateTime   string `json:"DateTime"`
	Junction   int    `json:"Junction"`
	Weather    string `json:"Weather_Condition"`
	SpeedLimit int    `json:"Speed_Limit"`
}

// HistoryEntry is one synthetic past observation.
type HistoryEntry struct {
	Congestion Congestion `json:"traffic_condition"`
}

// PredictionResult is the body of a successful POST /predict response.
type PredictionResult struct {
	Congestion Congestion     `json:"traffic_condition"`
	Advisory   string         `json:"traffic_rule"`
	History    []HistoryEntry `json:"history"`
}

// PredictionRecord is the audit form of a served prediction.
type PredictionRecord struct {
	ID          string     `json:"id"`
	RequestTime time.Time  `json:"request_time"`
	Junction    int        `json:"junction"`
	Weather     string     `json:"weather_condition"`
	SpeedLimit  int        `json:"speed_limit"`
	RushHour    bool       `json:"rush_hour"`
	BadWeather  bool       `json:"bad_weather"`
	Congestion  Congestion `json:"traffic_condition"`
	PredictedAt time.Time  `json:"predicted_at"`
}

// PredictionRecorder persists or publishes served predictions.
type PredictionRecorder interface {
	Record(ctx context.Context, rec PredictionRecord) error
}
