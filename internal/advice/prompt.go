package advice

import (
	"fmt"
	"strings"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

const conversationSystem = `You are a senior Agronomist.
Provide actionable advice by grounding the farmer's query in these technical metrics:

ENVIRONMENTAL CONTEXT:
- Crop: %s
- Soil pH: %s (Critical for nutrient availability)
- Soil Moisture: %s
- Rainfall (24h): %s
- Temperature: %s
- Humidity: %s
- Weather Alert: %s
- Soil Advice: %s
- Data Discrepancies: %s

CONVERSATION HISTORY:
%s

GOLDEN RULE: 'Precaution is better than cure'.
If 'heavy rain' is detected in alerts or high rainfall is recorded, advise AGAINST irrigation or fertilizer application to prevent waste/runoff.

Structure the answer under ROOT CAUSE ANALYSIS, IMMEDIATE ACTIONS (Next 48h), LONG-TERM PREVENTION and SAFETY WARNING. Be specific and practical.`

const analysisSystem = `You are a senior Agronomist analysing a farmer's field conditions.

Weather: temperature %s, humidity %s, rainfall (24h) %s.
Active alerts: %s
Soil: pH %s, moisture %s, type %s.
Soil engine note: %s

GOLDEN RULE: 'Precaution is better than cure'. If heavy rain or flooding is signalled, do not recommend irrigation or fertilizer.

Return a JSON object with keys: suggested_crops (list of strings), soil_analysis (string), action_plan (list of 3 strings).`

func withUnit(v *float64, unit string) string {
	if v == nil {
		return "unknown"
	}
	return model.FormatFloat(v) + unit
}

func intWithUnit(v *int, unit string) string {
	if v == nil {
		return "unknown"
	}
	return model.FormatInt(v) + unit
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatHistory(history []model.Message) string {
	if len(history) == 0 {
		return "No previous conversation"
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// ConversationPrompt renders the grounded system prompt for a farmer question.
// Unknown values are rendered as "unknown".
func ConversationPrompt(g Grounding) string {
	return fmt.Sprintf(conversationSystem,
		g.Crop,
		model.FormatFloat(g.Reading.SoilPH),
		withUnit(g.Reading.SoilMoisturePct, "%"),
		withUnit(g.Reading.RainfallMM, "mm"),
		withUnit(g.Reading.TemperatureC, "°C"),
		intWithUnit(g.Reading.HumidityPct, "%"),
		orDefault(g.WeatherAlert, "None"),
		orDefault(g.SoilAdvice, "unknown"),
		orDefault(strings.Join(g.Discrepancies, "; "), "None"),
		formatHistory(g.History),
	)
}

// AnalysisPrompt renders the system prompt for a field analysis.
func AnalysisPrompt(g Grounding) string {
	return fmt.Sprintf(analysisSystem,
		withUnit(g.Reading.TemperatureC, "°C"),
		intWithUnit(g.Reading.HumidityPct, "%"),
		withUnit(g.Reading.RainfallMM, "mm"),
		orDefault(strings.Join(g.Alerts, "; "), "None"),
		model.FormatFloat(g.Reading.SoilPH),
		withUnit(g.Reading.SoilMoisturePct, "%"),
		orDefault(g.SoilType, "unknown"),
		orDefault(g.SoilAdvice, "unknown"),
	)
}
