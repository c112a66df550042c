// Package validate cross-checks what a farmer says against the live readings
// and screens the query for unsafe intent.
package validate

import (
	"fmt"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/textutil"
)

// claimRule flags a stated condition that a reading contradicts by a clear
// margin. check returns "" when the reading is absent or agrees.
type claimRule struct {
	name     string
	keywords []string
	check    func(r model.EnvironmentalReading) string
}

var claimRules = []claimRule{
	{
		name:     "dry_soil",
		keywords: []string{"dry soil", "soil is dry", "soil too dry", "soil is too dry", "soil dried out", "parched"},
		check: func(r model.EnvironmentalReading) string {
			if r.SoilMoisturePct != nil && *r.SoilMoisturePct > 80 {
				return fmt.Sprintf("reports dry soil but soil moisture is %s%%", model.FormatFloat(r.SoilMoisturePct))
			}
			return ""
		},
	},
	{
		name:     "waterlogged",
		keywords: []string{"waterlogged", "water logged", "standing water", "flooded field", "soggy soil"},
		check: func(r model.EnvironmentalReading) string {
			if r.SoilMoisturePct != nil && *r.SoilMoisturePct < 20 {
				return fmt.Sprintf("reports waterlogging but soil moisture is %s%%", model.FormatFloat(r.SoilMoisturePct))
			}
			return ""
		},
	},
	{
		name:     "no_rain",
		keywords: []string{"no rain", "drought", "hasn't rained", "has not rained", "not rained"},
		check: func(r model.EnvironmentalReading) string {
			if r.RainfallMM != nil && *r.RainfallMM > 10 {
				return fmt.Sprintf("reports no rain but 24h rainfall is %smm", model.FormatFloat(r.RainfallMM))
			}
			return ""
		},
	},
	{
		name:     "heavy_rain",
		keywords: []string{"heavy rain", "lots of rain", "raining heavily", "downpour"},
		check: func(r model.EnvironmentalReading) string {
			if r.RainfallMM != nil && *r.RainfallMM < 1 {
				return fmt.Sprintf("reports heavy rain but 24h rainfall is %smm", model.FormatFloat(r.RainfallMM))
			}
			return ""
		},
	},
	{
		name:     "heat",
		keywords: []string{"heat wave", "heatwave", "very hot", "extreme heat", "scorching"},
		check: func(r model.EnvironmentalReading) string {
			if r.TemperatureC != nil && *r.TemperatureC < 15 {
				return fmt.Sprintf("reports heat but temperature is %s°C", model.FormatFloat(r.TemperatureC))
			}
			return ""
		},
	},
	{
		name:     "cold",
		keywords: []string{"frost", "freezing", "very cold", "cold snap"},
		check: func(r model.EnvironmentalReading) string {
			if r.TemperatureC != nil && *r.TemperatureC > 15 {
				return fmt.Sprintf("reports frost or cold but temperature is %s°C", model.FormatFloat(r.TemperatureC))
			}
			return ""
		},
	},
	{
		name:     "acidic",
		keywords: []string{"acidic soil", "soil is acidic", "acid soil"},
		check: func(r model.EnvironmentalReading) string {
			if r.SoilPH != nil && *r.SoilPH > 7.5 {
				return fmt.Sprintf("reports acidic soil but pH is %s", model.FormatFloat(r.SoilPH))
			}
			return ""
		},
	},
	{
		name:     "alkaline",
		keywords: []string{"alkaline soil", "soil is alkaline", "saline soil"},
		check: func(r model.EnvironmentalReading) string {
			if r.SoilPH != nil && *r.SoilPH < 6.0 {
				return fmt.Sprintf("reports alkaline soil but pH is %s", model.FormatFloat(r.SoilPH))
			}
			return ""
		},
	},
}

// Service produces validation verdicts. The zero value is not usable; call New.
type Service struct {
	gate *SafetyGate
}

// New returns a Service using the default safety gate.
func New() *Service {
	return &Service{gate: NewSafetyGate()}
}

// NewWithGate returns a Service using gate.
func NewWithGate(gate *SafetyGate) *Service {
	return &Service{gate: gate}
}

// Validate compares claims in the query text, symptoms and action taken with
// the reading. Negated claims ("no frost") are not claims. Absent readings
// never produce a discrepancy, and the verdict
// never blocks the pipeline on its own.
func (s *Service) Validate(q model.ExtractedQuery, text string, r model.EnvironmentalReading) model.ValidationVerdict {
	parts := append([]string{text, q.ActionTaken}, q.Symptoms...)
	haystack := textutil.Join(parts...)

	discrepancies := []string{}
	for _, rule := range claimRules {
		if !textutil.ContainsAffirmed(haystack, rule.keywords...) {
			continue
		}
		if msg := rule.check(r); msg != "" {
			discrepancies = append(discrepancies, msg)
		}
	}

	return model.ValidationVerdict{
		IsConsistent:  len(discrepancies) == 0,
		Discrepancies: discrepancies,
		IsSafe:        s.gate.Safe(text),
	}
}
