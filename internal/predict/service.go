// Package predict serves congestion predictions from the rule cascade.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/observability"
)

// DefaultHistorySize is the number of synthetic history samples per response.
const DefaultHistorySize = 20

const defaultRecordTimeout = 2 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithRandomSource sets the source used for history sampling. The source must
// be safe for concurrent use if the service is shared between goroutines.
func WithRandomSource(rng domain.RandomSource) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock sets the clock used to stamp prediction records.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithHistorySize sets the number of history samples. Negative means zero.
func WithHistorySize(n int) Option {
	return func(s *Service) { s.historySize = max(n, 0) }
}

// WithRecorder adds a named sink that receives every served prediction.
func WithRecorder(name string, r domain.PredictionRecorder) Option {
	return func(s *Service) {
		s.recorders = append(s.recorders, namedRecorder{name: name, rec: r})
	}
}

// WithRecordTimeout bounds how long a single recorder may take.
func WithRecordTimeout(d time.Duration) Option {
	return func(s *Service) { s.recordTimeout = d }
}

type namedRecorder struct {
	name string
	rec  domain.PredictionRecorder
}

// globalRand draws from the math/rand/v2 top-level generator, which is safe
// for concurrent use.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Service answers prediction requests. Its only state is read-only after
// construction, so one Service may be shared by all request handlers.
type Service struct {
	encoder       *domain.WeatherEncoder
	rng           domain.RandomSource
	clock         clockwork.Clock
	historySize   int
	recorders     []namedRecorder
	recordTimeout time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewService creates a Service that validates weather labels against encoder.
func NewService(encoder *domain.WeatherEncoder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		encoder:       encoder,
		rng:           globalRand{},
		clock:         clockwork.NewRealClock(),
		historySize:   DefaultHistorySize,
		recordTimeout: defaultRecordTimeout,
		logger:        logger,
		metrics:       metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.RecordersEnabled.Set(float64(len(s.recorders)))
	return s
}

// Predict classifies one request. It returns an error wrapping
// domain.ErrUnknownWeather for a label the encoder does not know, and one
// wrapping domain.ErrInvalidTimestamp for an unparseable DateTime.
func (s *Service) Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error) {
	if !s.encoder.Contains(req.Weather) {
		s.metrics.PredictionErrors.WithLabelValues("unknown_weather").Inc()
		return domain.PredictionResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownWeather, req.Weather)
	}

	at, err := domain.ParseInstant(req.DateTime)
	if err != nil {
		s.metrics.PredictionErrors.WithLabelValues("invalid_timestamp").Inc()
		return domain.PredictionResult{}, err
	}

	rush := domain.IsRushHour(at.Hour())
	bad := domain.IsBadWeather(req.Weather)
	junction := req.Junction == 1
	label := domain.Classify(rush, bad, junction)

	samples := domain.SampleHistory(label, s.historySize, s.rng)
	history := make([]domain.HistoryEntry, len(samples))
	for i, c := range samples {
		history[i] = domain.HistoryEntry{Congestion: c}
	}

	s.metrics.Predictions.WithLabelValues(label.String()).Inc()
	s.logger.Info("prediction made",
		"traffic_condition", label,
		"hour", at.Hour(),
		"weather", req.Weather,
		"junction", req.Junction,
		"speed_limit", req.SpeedLimit,
	)

	s.record(ctx, domain.PredictionRecord{
		ID:          uuid.NewString(),
		RequestTime: at,
		Junction:    req.Junction,
		Weather:     req.Weather,
		SpeedLimit:  req.SpeedLimit,
		RushHour:    rush,
		BadWeather:  bad,
		Congestion:  label,
		PredictedAt: s.clock.Now().UTC(),
	})

	return domain.PredictionResult{
		Congestion: label,
		Advisory:   domain.Advisory(label),
		History:    history,
	}, nil
}

// record delivers rec to every sink. Failures are logged and counted but never
// reach the caller; a cancelled request still gets its record delivered.
func (s *Service) record(ctx context.Context, rec domain.PredictionRecord) {
	base := context.WithoutCancel(ctx)
	for _, r := range s.recorders {
		if err := s.recordOne(base, r, rec); err != nil {
			s.metrics.RecorderFailures.WithLabelValues(r.name).Inc()
			s.logger.Warn("record prediction failed",
				"sink", r.name,
				"id", rec.ID,
				"error", err,
				"timeout", errors.Is(err, context.DeadlineExceeded),
			)
		}
	}
}

// recordOne gives each sink its own deadline so a slow sink cannot starve
// the ones after it.
func (s *Service) recordOne(ctx context.Context, r namedRecorder, rec domain.PredictionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.recordTimeout)
	defer cancel()
	return r.rec.Record(ctx, rec)
}

// Classes returns the weather labels the service accepts.
func (s *Service) Classes() []string {
	return s.encoder.Classes()
}

// CheckReadiness reports whether the service can classify requests.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.encoder == nil || s.encoder.Len() == 0 {
		return errors.New("weather encoder has no classes")
	}
	return nil
}
