package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// AdviceMode selects which half of the AdviceResponse contract is populated.
type AdviceMode string

const (
	// AdviceModeAnalysis answers with crops, a soil note and an action plan.
	AdviceModeAnalysis AdviceMode = "analysis"
	// AdviceModeConversation answers a farmer's question with free text.
	AdviceModeConversation AdviceMode = "conversation"
)

// AdviceSections is the four-part advisory layout: what is going on, what to
// do now, what to do next season, and what to be careful about.
type AdviceSections struct {
	Subject            string   `json:"subject"`
	RootCause          string   `json:"root_cause"`
	ImmediateActions   []string `json:"immediate_actions"`
	LongTermPrevention string   `json:"long_term_prevention"`
	SafetyWarning      string   `json:"safety_warning"`
}

// Complete reports whether all four parts are present.
func (s AdviceSections) Complete() bool {
	return strings.TrimSpace(s.RootCause) != "" &&
		len(s.ImmediateActions) > 0 &&
		strings.TrimSpace(s.LongTermPrevention) != "" &&
		strings.TrimSpace(s.SafetyWarning) != ""
}

// AdviceResponse is the uniform answer contract shared by every tier.
type AdviceResponse struct {
	Mode              AdviceMode      `json:"mode"`
	SuggestedCrops    []string        `json:"suggested_crops,omitempty"`
	SoilAnalysis      string          `json:"soil_analysis,omitempty"`
	ActionPlan        []string        `json:"action_plan,omitempty"`
	AdviceText        string          `json:"advice_text,omitempty"`
	Sections          *AdviceSections `json:"sections,omitempty"`
	Tier              string          `json:"tier"`
	GoldenRuleApplied bool            `json:"golden_rule_applied"`
	Refused           bool            `json:"refused,omitempty"`
}

// Validate checks that the response carries the fields its mode requires.
func (r AdviceResponse) Validate() error {
	switch r.Mode {
	case AdviceModeAnalysis:
		if len(r.SuggestedCrops) == 0 {
			return eris.New("advice response: suggested_crops is empty")
		}
		if strings.TrimSpace(r.SoilAnalysis) == "" {
			return eris.New("advice response: soil_analysis is empty")
		}
		if len(r.ActionPlan) == 0 {
			return eris.New("advice response: action_plan is empty")
		}
	case AdviceModeConversation:
		if strings.TrimSpace(r.AdviceText) == "" {
			return eris.New("advice response: advice_text is empty")
		}
	default:
		return eris.Errorf("advice response: unknown mode %q", r.Mode)
	}
	if r.Tier == "" {
		return eris.New("advice response: tier is empty")
	}
	return nil
}

// Text returns the human-readable form of the response regardless of mode.
func (r AdviceResponse) Text() string {
	if r.Mode == AdviceModeConversation {
		return r.AdviceText
	}
	var b strings.Builder
	b.WriteString(r.SoilAnalysis)
	if len(r.SuggestedCrops) > 0 {
		b.WriteString("\nSuggested crops: ")
		b.WriteString(strings.Join(r.SuggestedCrops, ", "))
	}
	for _, a := range r.ActionPlan {
		b.WriteString("\n- ")
		b.WriteString(a)
	}
	return b.String()
}

// SoilBand names a pH band.
type SoilBand string

const (
	SoilBandAcidic   SoilBand = "acidic"
	SoilBandNeutral  SoilBand = "neutral"
	SoilBandAlkaline SoilBand = "alkaline"
)

// SoilRecommendation is the output of the pH-banded soil engine.
type SoilRecommendation struct {
	Band             SoilBand `json:"band"`
	SuggestedCrops   []string `json:"suggested_crops"`
	SoilAnalysisNote string   `json:"soil_analysis_note"`
	ActionPlan       []string `json:"action_plan"`
}

// Summary renders the recommendation as the soil advice carried in state.
func (s SoilRecommendation) Summary() string {
	return s.SoilAnalysisNote +
		" Suggested crops: " + strings.Join(s.SuggestedCrops, ", ") +
		". Actions: " + strings.Join(s.ActionPlan, "; ") + "."
}
