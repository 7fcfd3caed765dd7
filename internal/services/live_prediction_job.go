package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"waterguard/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNoLivePrediction = errors.New("no live prediction yet")
	ErrPredictionBusy   = errors.New("previous prediction still in flight")
)

// LatestReadingSource is anything that can hand out the newest reading.
type LatestReadingSource interface {
	Latest() (models.SensorReading, bool)
}

// Predictor is the part of the prediction gateway the live job needs.
type Predictor interface {
	Predict(ctx context.Context, reading models.SensorReading) (models.PredictionResult, error)
}

// LivePredictionJob polls the newest reading on a fixed interval and asks the
// gateway about it. The result is kept until the next cycle replaces or
// clears it.
type LivePredictionJob struct {
	readings  LatestReadingSource
	predictor Predictor

	inFlight atomic.Bool

	mu            sync.RWMutex
	current       *models.PredictionResult
	lastErr       error
	lastReadingID uuid.UUID
}

func NewLivePredictionJob(readings LatestReadingSource, predictor Predictor) *LivePredictionJob {
	return &LivePredictionJob{
		readings:  readings,
		predictor: predictor,
	}
}

// Run performs one polling cycle. It returns ErrPredictionBusy when the
// previous cycle's oracle call has not finished yet.
func (j *LivePredictionJob) Run(ctx context.Context) error {
	if !j.inFlight.CompareAndSwap(false, true) {
		slog.Debug("Skipping live prediction, previous call in flight")
		return ErrPredictionBusy
	}
	defer j.inFlight.Store(false)

	reading, ok := j.readings.Latest()
	if !ok {
		return nil
	}

	j.mu.RLock()
	unchanged := j.lastErr == nil && j.current != nil && j.lastReadingID == reading.ID
	j.mu.RUnlock()
	if unchanged {
		return nil
	}

	result, err := j.predictor.Predict(ctx, reading)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastReadingID = reading.ID
	if err != nil {
		j.current = nil
		j.lastErr = err
		slog.Warn("Live prediction cycle failed", "reading_id", reading.ID, "error", err)
		return err
	}
	j.current = &result
	j.lastErr = nil

	slog.Info("Live prediction updated",
		"reading_id", reading.ID,
		"prediction_id", result.ID,
		"risk_level", result.Risk.Level)
	return nil
}

// Current returns the cached result of the last cycle, the last cycle's error,
// or ErrNoLivePrediction when no cycle has produced anything yet.
func (j *LivePredictionJob) Current() (models.PredictionResult, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.lastErr != nil {
		return models.PredictionResult{}, j.lastErr
	}
	if j.current == nil {
		return models.PredictionResult{}, ErrNoLivePrediction
	}
	return *j.current, nil
}
