// Package postgres stores served predictions in a PostgreSQL log table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trafficlens/congestion-predictor/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS prediction_logs (
	id                TEXT PRIMARY KEY,
	request_time      TIMESTAMP NOT NULL,
	junction          INTEGER NOT NULL,
	weather_condition TEXT NOT NULL,
	speed_limit       INTEGER NOT NULL,
	rush_hour         BOOLEAN NOT NULL,
	bad_weather       BOOLEAN NOT NULL,
	traffic_condition TEXT NOT NULL,
	predicted_at      TIMESTAMPTZ NOT NULL
)`

const insertPrediction = `
INSERT INTO prediction_logs (
	id, request_time, junction, weather_condition, speed_limit,
	rush_hour, bad_weather, traffic_condition, predicted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// execer is the subset of *pgxpool.Pool the recorder needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect opens a pool and verifies the server is reachable.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Recorder writes predictions to the prediction_logs table.
// It implements domain.PredictionRecorder.
type Recorder struct {
	db execer
}

// NewRecorder creates a Recorder over db, typically a *pgxpool.Pool.
func NewRecorder(db execer) *Recorder {
	return &Recorder{db: db}
}

// EnsureSchema creates the prediction_logs table if it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: create prediction_logs: %w", err)
	}
	return nil
}

// Record inserts one prediction.
func (r *Recorder) Record(ctx context.Context, rec domain.PredictionRecord) error {
	_, err := r.db.Exec(ctx, insertPrediction,
		rec.ID, rec.RequestTime, rec.Junction, rec.Weather, rec.SpeedLimit,
		rec.RushHour, rec.BadWeather, rec.Congestion.String(), rec.PredictedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save prediction %s: %w", rec.ID, err)
	}
	return nil
}
