// Package alert evaluates deterministic weather alert rules over an
// environmental reading.
package alert

import (
	"strings"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// Category groups rules that read the same metric.
type Category string

const (
	CategoryRainfall    Category = "rainfall"
	CategoryTemperature Category = "temperature"
	CategoryHumidity    Category = "humidity"
)

// Alert labels. The text after the label is descriptive only.
const (
	HighFloodRisk    = "HIGH FLOOD RISK: Heavy rainfall detected"
	ModerateRainfall = "MODERATE RAINFALL: Possible water accumulation"
	HeatAlert        = "HEAT ALERT: Extreme high temperature"
	FrostAlert       = "FROST ALERT: Freezing temperature detected"
	HeatStress       = "HEAT STRESS: High temperature warning"
	ColdStress       = "COLD STRESS: Low temperature warning"
	DiseaseRisk      = "DISEASE RISK: Very high humidity"
	DiseaseWarning   = "DISEASE WARNING: High humidity conditions"
)

// Rule is one threshold test. Rules within a category are checked in order and
// the first match wins.
type Rule struct {
	Category Category
	Alert    string
	match    func(v float64) bool
}

type ruleSet struct {
	category Category
	metric   func(model.EnvironmentalReading) *float64
	rules    []Rule
}

// rules is the process-wide rule table. Category order is evaluation order.
var rules = []ruleSet{
	{
		category: CategoryRainfall,
		metric:   func(r model.EnvironmentalReading) *float64 { return r.RainfallMM },
		rules: []Rule{
			{CategoryRainfall, HighFloodRisk, func(v float64) bool { return v > 10 }},
			{CategoryRainfall, ModerateRainfall, func(v float64) bool { return v > 5 }},
		},
	},
	{
		category: CategoryTemperature,
		metric:   func(r model.EnvironmentalReading) *float64 { return r.TemperatureC },
		// 40 before 35 and 0 before 5 keeps the bands mutually exclusive.
		rules: []Rule{
			{CategoryTemperature, HeatAlert, func(v float64) bool { return v > 40 }},
			{CategoryTemperature, FrostAlert, func(v float64) bool { return v < 0 }},
			{CategoryTemperature, HeatStress, func(v float64) bool { return v > 35 }},
			{CategoryTemperature, ColdStress, func(v float64) bool { return v < 5 }},
		},
	},
	{
		category: CategoryHumidity,
		metric: func(r model.EnvironmentalReading) *float64 {
			if r.HumidityPct == nil {
				return nil
			}
			v := float64(*r.HumidityPct)
			return &v
		},
		rules: []Rule{
			{CategoryHumidity, DiseaseRisk, func(v float64) bool { return v > 90 }},
			{CategoryHumidity, DiseaseWarning, func(v float64) bool { return v > 80 }},
		},
	},
}

// Categories returns the categories in evaluation order.
func Categories() []Category {
	out := make([]Category, len(rules))
	for i, rs := range rules {
		out[i] = rs.category
	}
	return out
}

// Evaluate returns the single highest-priority alert for the reading, scanning
// rainfall, then temperature, then humidity. It returns nil when no rule fires.
// Absent fields are skipped.
func Evaluate(reading model.EnvironmentalReading) *string {
	for _, rs := range rules {
		if a := rs.evaluate(reading); a != nil {
			return a
		}
	}
	return nil
}

// EvaluateCategory returns the first matching alert within one category.
func EvaluateCategory(reading model.EnvironmentalReading, category Category) *string {
	for _, rs := range rules {
		if rs.category == category {
			return rs.evaluate(reading)
		}
	}
	return nil
}

// EvaluateAll returns the first match of every category, in evaluation order.
func EvaluateAll(reading model.EnvironmentalReading) []string {
	var out []string
	for _, rs := range rules {
		if a := rs.evaluate(reading); a != nil {
			out = append(out, *a)
		}
	}
	return out
}

func (rs ruleSet) evaluate(reading model.EnvironmentalReading) *string {
	v := rs.metric(reading)
	if v == nil {
		return nil
	}
	for _, r := range rs.rules {
		if r.match(*v) {
			a := r.Alert
			return &a
		}
	}
	return nil
}

// IsRainSignal reports whether an alert text signals rain or flooding.
func IsRainSignal(alert string) bool {
	a := strings.ToLower(alert)
	return strings.Contains(a, "flood") || strings.Contains(a, "rain")
}

// Label returns the alert label without its description.
func Label(alert string) string {
	label, _, _ := strings.Cut(alert, ":")
	return strings.TrimSpace(label)
}
