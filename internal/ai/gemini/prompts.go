package gemini

import (
	"fmt"

	"waterguard/internal/models"
)

const DiseasePredictionPromptTemplate = `Based on these water sensor readings:
- pH: %.2f
- Turbidity: %.1f NTU
- TDS: %.0f ppm
- Temperature: %.1f °C
- Conductivity: %.0f µS/cm

Give the result in EXACTLY this format:
Sensor Data: [write values in one line]

Possible Diseases:
- [Disease 1]: [one line effect]
- [Disease 2]: [one line effect]
- [Disease 3]: [one line effect]

Keep it short and do not add extra notes or disclaimers.
`

// BuildDiseasePredictionPrompt embeds one reading into the fixed template.
func BuildDiseasePredictionPrompt(reading models.SensorReading) string {
	return fmt.Sprintf(DiseasePredictionPromptTemplate,
		reading.PH,
		reading.Turbidity,
		reading.TDS,
		reading.Temperature,
		reading.Conductivity,
	)
}
