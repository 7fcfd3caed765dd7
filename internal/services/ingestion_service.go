package services

import (
	"context"
	"log/slog"
	"time"

	"waterguard/internal/models"

	"github.com/google/uuid"
)

const (
	MsgRequiredFieldsMissing = "TDS and Temperature required"
	MsgExtendedFieldsMissing = "pH, Turbidity and Conductivity required"
)

// Neutral values for legacy two-field devices when nothing has been stored yet.
const (
	DefaultPH           = 7.0
	DefaultTurbidity    = 2.5
	DefaultConductivity = 500.0
)

// ValidationError is a client error raised before a reading enters the store.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IngestionService validates raw readings and hands accepted ones to the
// stream aggregator.
type IngestionService struct {
	aggregator       *StreamAggregator
	requireAllFields bool
	now              func() time.Time
}

func NewIngestionService(aggregator *StreamAggregator, requireAllFields bool) *IngestionService {
	return &IngestionService{
		aggregator:       aggregator,
		requireAllFields: requireAllFields,
		now:              time.Now,
	}
}

func (s *IngestionService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit validates, stamps and stores one reading.
func (s *IngestionService) Submit(ctx context.Context, raw models.RawReading, source models.ReadingSource) (models.SensorReading, error) {
	raw = raw.Normalize()

	if raw.TDS == nil || raw.Temperature == nil {
		return models.SensorReading{}, &ValidationError{Message: MsgRequiredFieldsMissing}
	}
	missingExtended := raw.PH == nil || raw.Turbidity == nil || raw.Conductivity == nil
	if missingExtended && s.requireAllFields {
		return models.SensorReading{}, &ValidationError{Message: MsgExtendedFieldsMissing}
	}

	reading := models.SensorReading{
		ID:          uuid.New(),
		TDS:         *raw.TDS,
		Temperature: *raw.Temperature,
		Timestamp:   s.now(),
		Source:      source,
	}

	previous, hasPrevious := s.aggregator.Latest()
	reading.PH = pick(raw.PH, previous.PH, DefaultPH, hasPrevious)
	reading.Turbidity = pick(raw.Turbidity, previous.Turbidity, DefaultTurbidity, hasPrevious)
	reading.Conductivity = pick(raw.Conductivity, previous.Conductivity, DefaultConductivity, hasPrevious)

	s.aggregator.Accept(ctx, reading)

	slog.Info("Data received",
		"reading_id", reading.ID,
		"device_id", raw.DeviceID,
		"source", source,
		"tds", reading.TDS,
		"temperature", reading.Temperature,
		"legacy_payload", missingExtended)

	return reading, nil
}

// Readings returns the stored window oldest->newest.
func (s *IngestionService) Readings() []models.SensorReading {
	return s.aggregator.Snapshot()
}

// pick prefers the submitted value, then the previous reading's, then the
// neutral default.
func pick(submitted *float64, previous, fallback float64, hasPrevious bool) float64 {
	switch {
	case submitted != nil:
		return *submitted
	case hasPrevious:
		return previous
	default:
		return fallback
	}
}
