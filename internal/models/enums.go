package models

type RiskLevel string

const (
	RiskLevelUnknown  RiskLevel = "Unknown"
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelModerate RiskLevel = "Moderate"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

// Rank orders levels for escalation checks. Unknown ranks lowest.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelLow:
		return 1
	case RiskLevelModerate:
		return 2
	case RiskLevelHigh:
		return 3
	case RiskLevelCritical:
		return 4
	default:
		return 0
	}
}

type StreamMode string

const (
	StreamModeLive      StreamMode = "live"
	StreamModeSimulated StreamMode = "simulated"
)

func IsValidStreamMode(mode StreamMode) bool {
	switch mode {
	case StreamModeLive, StreamModeSimulated:
		return true
	default:
		return false
	}
}

type ReadingSource string

const (
	SourceDevice    ReadingSource = "device"
	SourceSimulator ReadingSource = "simulator"
	SourceMQTT      ReadingSource = "mqtt"
)
