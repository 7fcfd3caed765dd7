package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// SENSOR READINGS
// ============================================================================

// SensorReading is one accepted, timestamped set of measurements. It is never
// modified after acceptance.
type SensorReading struct {
	ID           uuid.UUID     `json:"id"`
	PH           float64       `json:"ph"`
	Turbidity    float64       `json:"turbidity"`    // NTU
	TDS          float64       `json:"tds"`          // ppm
	Temperature  float64       `json:"temperature"`  // °C
	Conductivity float64       `json:"conductivity"` // µS/cm
	Timestamp    time.Time     `json:"timestamp"`
	Source       ReadingSource `json:"source"`
}

func (r SensorReading) String() string {
	return fmt.Sprintf("pH %.2f, Turbidity %.1f NTU, TDS %.0f ppm, Temp %.1f °C, Conductivity %.0f µS/cm",
		r.PH, r.Turbidity, r.TDS, r.Temperature, r.Conductivity)
}

// RawReading is the payload accepted at the ingestion boundary. Every field is
// optional so that presence can be checked explicitly.
type RawReading struct {
	DeviceID     string   `json:"device_id,omitempty"`
	PH           *float64 `json:"ph,omitempty"`
	Turbidity    *float64 `json:"turbidity,omitempty"`
	TDS          *float64 `json:"tds,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Conductivity *float64 `json:"conductivity,omitempty"`

	// Short names used by the dashboard payloads.
	Temp *float64 `json:"temp,omitempty"`
	Cond *float64 `json:"cond,omitempty"`
}

// Normalize folds the short aliases into the canonical fields. Canonical
// names win when both are present.
func (r RawReading) Normalize() RawReading {
	if r.Temperature == nil {
		r.Temperature = r.Temp
	}
	if r.Conductivity == nil {
		r.Conductivity = r.Cond
	}
	r.Temp = nil
	r.Cond = nil
	return r
}

// SimulationState is the walking value of every simulated field.
type SimulationState struct {
	PH           float64 `json:"ph"`
	Turbidity    float64 `json:"turbidity"`
	TDS          float64 `json:"tds"`
	Temperature  float64 `json:"temperature"`
	Conductivity float64 `json:"conductivity"`
}

// FieldBand bounds one simulated field; Step scales the per-tick nudge.
type FieldBand struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

type SimulationBands struct {
	PH           FieldBand `json:"ph"`
	Turbidity    FieldBand `json:"turbidity"`
	TDS          FieldBand `json:"tds"`
	Temperature  FieldBand `json:"temperature"`
	Conductivity FieldBand `json:"conductivity"`
}

// Contains reports whether every field of s lies inside its band.
func (b SimulationBands) Contains(s SimulationState) bool {
	in := func(v float64, band FieldBand) bool { return v >= band.Min && v <= band.Max }
	return in(s.PH, b.PH) &&
		in(s.Turbidity, b.Turbidity) &&
		in(s.TDS, b.TDS) &&
		in(s.Temperature, b.Temperature) &&
		in(s.Conductivity, b.Conductivity)
}

// Complete converts a payload carrying all five measurements into a reading.
// It reports false when any of them is missing.
func (r RawReading) Complete() (SensorReading, bool) {
	r = r.Normalize()
	if r.PH == nil || r.Turbidity == nil || r.TDS == nil || r.Temperature == nil || r.Conductivity == nil {
		return SensorReading{}, false
	}
	return SensorReading{
		PH:           *r.PH,
		Turbidity:    *r.Turbidity,
		TDS:          *r.TDS,
		Temperature:  *r.Temperature,
		Conductivity: *r.Conductivity,
	}, true
}
