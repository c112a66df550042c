package model

import "fmt"

// EnvironmentalReading is the normalized weather and soil snapshot for a
// request. Every field is independently optional; nil means unknown.
type EnvironmentalReading struct {
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	HumidityPct     *int     `json:"humidity_pct,omitempty"`
	RainfallMM      *float64 `json:"rainfall_mm,omitempty"`
	SoilPH          *float64 `json:"soil_ph,omitempty"`
	SoilMoisturePct *float64 `json:"soil_moisture_pct,omitempty"`
}

// IsEmpty reports whether no field of the reading is known.
func (r EnvironmentalReading) IsEmpty() bool {
	return r.TemperatureC == nil &&
		r.HumidityPct == nil &&
		r.RainfallMM == nil &&
		r.SoilPH == nil &&
		r.SoilMoisturePct == nil
}

// Float returns a pointer to v. Convenience for building readings.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// FormatFloat renders an optional value for prompts and logs. Absent values
// render as "unknown" rather than a fabricated default.
func FormatFloat(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.1f", *v)
}

// FormatInt renders an optional integer, "unknown" when absent.
func FormatInt(v *int) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *v)
}
