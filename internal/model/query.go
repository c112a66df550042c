package model

// Urgency grades how quickly the farmer needs help.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Category is the primary problem area of a query.
type Category string

const (
	CategoryPest       Category = "pest"
	CategoryDisease    Category = "disease"
	CategoryNutrient   Category = "nutrient"
	CategoryIrrigation Category = "irrigation"
	CategoryWeather    Category = "weather"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPest, CategoryDisease, CategoryNutrient, CategoryIrrigation, CategoryWeather:
		return true
	}
	return false
}

// UnknownCrop is the crop recorded when extraction could not identify one.
const UnknownCrop = "unknown"

// ExtractedQuery is the typed entity record pulled from a farmer's free text.
type ExtractedQuery struct {
	Crop        string   `json:"crop" yaml:"crop"`
	Symptoms    []string `json:"symptoms" yaml:"symptoms"`
	Pests       []string `json:"pests" yaml:"pests"`
	ActionTaken string   `json:"action_taken" yaml:"action_taken"`
	Urgency     Urgency  `json:"urgency" yaml:"urgency"`
	Category    Category `json:"primary_category" yaml:"primary_category"`
}

// DefaultExtractedQuery is substituted when extraction fails.
func DefaultExtractedQuery() ExtractedQuery {
	return ExtractedQuery{
		Crop:     UnknownCrop,
		Symptoms: []string{},
		Pests:    []string{},
		Urgency:  UrgencyMedium,
		Category: CategoryPest,
	}
}

// ValidationVerdict annotates a request with consistency and safety findings.
// It never blocks the pipeline on its own.
type ValidationVerdict struct {
	IsConsistent  bool     `json:"is_consistent"`
	Discrepancies []string `json:"discrepancies"`
	IsSafe        bool     `json:"is_safe"`
}
