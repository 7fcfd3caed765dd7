package services

import "waterguard/internal/models"

// Scoring thresholds. Every comparison is strict.
const (
	TurbidityElevatedNTU = 5.0
	TurbiditySevereNTU   = 8.0
	TDSElevatedPPM       = 500.0
	TDSSeverePPM         = 1000.0
	PHLowerBound         = 6.5
	PHUpperBound         = 8.5
	TemperatureWarmC     = 30.0
	ConductivityHighUScm = 800.0
)

// Level cut-offs on the total score.
const (
	CriticalScore = 6
	HighScore     = 4
	ModerateScore = 2
)

type riskRule struct {
	points  int
	factor  string
	matches func(models.SensorReading) bool
}

var riskRules = []riskRule{
	{2, "turbidity above 5 NTU", func(r models.SensorReading) bool { return r.Turbidity > TurbidityElevatedNTU }},
	{2, "turbidity above 8 NTU", func(r models.SensorReading) bool { return r.Turbidity > TurbiditySevereNTU }},
	{1, "TDS above 500 ppm", func(r models.SensorReading) bool { return r.TDS > TDSElevatedPPM }},
	{1, "TDS above 1000 ppm", func(r models.SensorReading) bool { return r.TDS > TDSSeverePPM }},
	{2, "pH outside 6.5-8.5", func(r models.SensorReading) bool { return r.PH < PHLowerBound || r.PH > PHUpperBound }},
	{1, "temperature above 30 °C", func(r models.SensorReading) bool { return r.Temperature > TemperatureWarmC }},
	{1, "conductivity above 800 µS/cm", func(r models.SensorReading) bool { return r.Conductivity > ConductivityHighUScm }},
}

// RiskEvaluator scores a single reading. It holds no state, so one value can
// be shared freely.
type RiskEvaluator struct{}

func NewRiskEvaluator() RiskEvaluator {
	return RiskEvaluator{}
}

// Evaluate applies the additive point table to one reading.
func (RiskEvaluator) Evaluate(reading models.SensorReading) models.RiskAssessment {
	score := 0
	factors := make([]string, 0, len(riskRules))
	for _, rule := range riskRules {
		if rule.matches(reading) {
			score += rule.points
			factors = append(factors, rule.factor)
		}
	}

	level := LevelForScore(score)
	return models.RiskAssessment{
		Score:   &score,
		Level:   level,
		Badge:   badgeForLevel(level),
		Factors: factors,
	}
}

// EvaluateLatest returns the Unknown assessment when no reading is available.
func (e RiskEvaluator) EvaluateLatest(reading models.SensorReading, ok bool) models.RiskAssessment {
	if !ok {
		return models.RiskAssessment{
			Level:   models.RiskLevelUnknown,
			Badge:   badgeForLevel(models.RiskLevelUnknown),
			Factors: []string{},
		}
	}
	return e.Evaluate(reading)
}

func LevelForScore(score int) models.RiskLevel {
	switch {
	case score >= CriticalScore:
		return models.RiskLevelCritical
	case score >= HighScore:
		return models.RiskLevelHigh
	case score >= ModerateScore:
		return models.RiskLevelModerate
	default:
		return models.RiskLevelLow
	}
}

// badgeForLevel maps a level to the dashboard badge variant.
func badgeForLevel(level models.RiskLevel) string {
	switch level {
	case models.RiskLevelCritical:
		return "destructive"
	case models.RiskLevelHigh:
		return "default"
	default:
		return "secondary"
	}
}
