package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waterguard/internal/ai/gemini"
	"waterguard/internal/models"

	"github.com/google/uuid"
)

// ErrPredictionFailed is the single failure signal of the prediction gateway.
// The underlying cause is wrapped for logs only.
var ErrPredictionFailed = errors.New("prediction failed")

// DiseaseOracle turns a prompt into free text.
type DiseaseOracle interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// PredictionService formats readings into prompts and relays the oracle's
// answer. It never retries, caches or falls back.
type PredictionService struct {
	oracle    DiseaseOracle
	evaluator RiskEvaluator
	now       func() time.Time
}

func NewPredictionService(oracle DiseaseOracle, evaluator RiskEvaluator) *PredictionService {
	return &PredictionService{
		oracle:    oracle,
		evaluator: evaluator,
		now:       time.Now,
	}
}

// Predict calls the oracle for one reading. The reading is a copy, so no store
// lock is involved while the call is in flight.
func (s *PredictionService) Predict(ctx context.Context, reading models.SensorReading) (models.PredictionResult, error) {
	if s.oracle == nil {
		return models.PredictionResult{}, fmt.Errorf("%w: oracle is not configured", ErrPredictionFailed)
	}

	prompt := gemini.BuildDiseasePredictionPrompt(reading)
	risk := s.evaluator.Evaluate(reading)

	slog.Info("Requesting disease prediction",
		"reading_id", reading.ID,
		"risk_level", risk.Level,
		"prompt_length", len(prompt))

	text, err := s.oracle.GenerateText(ctx, prompt)
	if err != nil {
		slog.Error("Disease prediction failed", "reading_id", reading.ID, "error", err)
		return models.PredictionResult{}, fmt.Errorf("%w: %w", ErrPredictionFailed, err)
	}

	return models.PredictionResult{
		ID:          uuid.New(),
		Reading:     reading,
		Risk:        risk,
		Text:        text,
		GeneratedAt: s.now(),
	}, nil
}

// PredictAsync runs Predict in its own goroutine. The channel yields exactly
// one outcome. Outcomes of overlapping calls arrive in no particular order.
func (s *PredictionService) PredictAsync(ctx context.Context, reading models.SensorReading) <-chan models.PredictionOutcome {
	out := make(chan models.PredictionOutcome, 1)
	go func() {
		defer close(out)
		result, err := s.Predict(ctx, reading)
		out <- models.PredictionOutcome{Result: result, Err: err}
	}()
	return out
}
