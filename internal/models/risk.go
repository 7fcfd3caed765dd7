package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskAssessment is derived from one reading and never stored. Score is nil
// only for RiskLevelUnknown.
type RiskAssessment struct {
	Score   *int      `json:"score,omitempty"`
	Level   RiskLevel `json:"level"`
	Badge   string    `json:"badge"`
	Factors []string  `json:"factors"`
}

// PredictionResult is the oracle's free text for one reading.
type PredictionResult struct {
	ID          uuid.UUID      `json:"id"`
	Reading     SensorReading  `json:"reading"`
	Risk        RiskAssessment `json:"risk"`
	Text        string         `json:"text"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// PredictionOutcome carries the result of an asynchronous prediction.
type PredictionOutcome struct {
	Result PredictionResult
	Err    error
}

// RiskAlertEvent is published when consecutive readings escalate into High or
// Critical.
type RiskAlertEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	ReadingID     uuid.UUID `json:"reading_id"`
	PreviousLevel RiskLevel `json:"previous_level"`
	Level         RiskLevel `json:"level"`
	Score         int       `json:"score"`
	Factors       []string  `json:"factors"`
	Reading       string    `json:"reading"`
	Timestamp     time.Time `json:"timestamp"`
}

// StreamView is the read model served to chart consumers.
type StreamView struct {
	Mode     StreamMode      `json:"mode"`
	Capacity int             `json:"capacity"`
	Readings []SensorReading `json:"readings"`
	Latest   *SensorReading  `json:"latest,omitempty"`
	Risk     RiskAssessment  `json:"risk"`
}

// StreamEvent is pushed to live chart consumers for every accepted reading.
type StreamEvent struct {
	Reading SensorReading  `json:"reading"`
	Risk    RiskAssessment `json:"risk"`
}
