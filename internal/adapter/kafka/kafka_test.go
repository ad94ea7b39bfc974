package kafka

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/congestion-predictor/internal/config"
	"github.com/trafficlens/congestion-predictor/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 5, 0, time.UTC)
	rec := domain.PredictionRecord{
		ID:          "pred-1",
		RequestTime: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		Junction:    1,
		Weather:     "Rain",
		SpeedLimit:  50,
		RushHour:    true,
		BadWeather:  true,
		Congestion:  domain.CongestionHigh,
		PredictedAt: now,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("pred-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"traffic_condition":"High"`)
	assert.Contains(t, string(msg.Value), `"weather_condition":"Rain"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "traffic_condition", msg.Headers[0].Key)
	assert.Equal(t, []byte("High"), msg.Headers[0].Value)
	assert.Equal(t, "predicted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.PredictionRecord
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, rec, decoded)
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:         []string{"b1:9092", "b2:9092"},
		KafkaPredictionTopic: "predictions",
	}
	w := NewWriter(cfg, slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "predictions", w.writer.Topic)
}
