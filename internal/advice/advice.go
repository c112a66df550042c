// Package advice generates the final recommendation through an ordered chain
// of tiers: the primary provider, the secondary provider, and an offline
// simulator that always answers.
package advice

import (
	"context"
	"strings"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/alert"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/textutil"
)

// Tier is one way of producing advice.
type Tier interface {
	Name() string
	Generate(ctx context.Context, g Grounding) (model.AdviceResponse, error)
}

// Grounding is everything a tier may use, read from the advisory state. Tiers
// never call the rule engines themselves.
type Grounding struct {
	Mode          model.AdviceMode
	Query         string
	Crop          string
	SoilType      string
	Reading       model.EnvironmentalReading
	WeatherAlert  string
	Alerts        []string
	SoilAdvice    string
	Soil          *model.SoilRecommendation
	History       []model.Message
	Discrepancies []string
}

// GroundingFromState builds the grounding for s.
func GroundingFromState(s model.AdvisoryState) Grounding {
	g := Grounding{
		Mode:     s.Mode(),
		Query:    s.Query,
		Crop:     s.Crop(),
		SoilType: s.SoilType,
		Reading:  s.Reading,
		Alerts:   alert.EvaluateAll(s.Reading),
		History:  s.History,
		Soil:     s.SoilRecommendation,
	}
	if s.WeatherAlert != nil {
		g.WeatherAlert = *s.WeatherAlert
	}
	if s.SoilAdvice != nil {
		g.SoilAdvice = *s.SoilAdvice
	}
	if s.Verdict != nil {
		g.Discrepancies = s.Verdict.Discrepancies
	}
	return g
}

// RainExpected reports whether the golden rule applies.
func (g Grounding) RainExpected() bool {
	return g.WeatherAlert != "" && alert.IsRainSignal(g.WeatherAlert)
}

// GoldenRuleCaution is placed at the top of every answer given while rain or
// flooding is signalled.
const GoldenRuleCaution = "Do NOT irrigate or apply fertilizer until the rain has passed: water and nutrients applied now will be lost to runoff."

// GoldenRuleNote follows the caution when conflicting steps were cut from a
// provider's free-text answer.
const GoldenRuleNote = "Steps that would add water or nutrients now have been left out of the advice below."

var conflictingActions = []string{"irrigat", "fertiliz", "fertilis", "urea", "deep soak", "सिंचाई", "खाद"}

// holdActions mark a step that defers the conflicting action rather than
// prescribing it.
var holdActions = []string{"avoid", "postpone", "delay", "hold off", "wait", "skip", "stop"}

func conflictsWithGoldenRule(action string) bool {
	a := textutil.Normalize(action)
	return textutil.ContainsAffirmed(a, conflictingActions...) && !textutil.ContainsAny(a, holdActions...)
}

// stripConflicts removes sentences of text that prescribe irrigation or
// fertilizer. Blank lines and markdown layout are kept.
func stripConflicts(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	dropped := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out = append(out, line)
			continue
		}
		var kept []string
		for _, sentence := range splitSentences(line) {
			if conflictsWithGoldenRule(sentence) {
				dropped = true
				continue
			}
			kept = append(kept, sentence)
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, " "))
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n")), dropped
}

func splitSentences(line string) []string {
	var out []string
	start := 0
	for i := 0; i < len(line)-1; i++ {
		switch line[i] {
		case '.', '!', '?':
			if line[i+1] == ' ' {
				out = append(out, strings.TrimSpace(line[start:i+1]))
				start = i + 2
			}
		}
	}
	if rest := strings.TrimSpace(line[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// withCaution drops actions that conflict with the golden rule and puts the
// caution first.
func withCaution(actions []string) []string {
	out := make([]string, 0, len(actions)+1)
	out = append(out, GoldenRuleCaution)
	for _, a := range actions {
		if a == GoldenRuleCaution || conflictsWithGoldenRule(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ApplyGoldenRule enforces "precaution is better than cure" on resp when the
// weather alert signals rain or flooding. Applying it twice is harmless.
func ApplyGoldenRule(resp model.AdviceResponse, weatherAlert string) model.AdviceResponse {
	if weatherAlert == "" || !alert.IsRainSignal(weatherAlert) || resp.Refused {
		return resp
	}

	if len(resp.ActionPlan) > 0 || resp.Mode == model.AdviceModeAnalysis {
		resp.ActionPlan = withCaution(resp.ActionPlan)
	}
	if resp.Sections != nil {
		sec := *resp.Sections
		sec.ImmediateActions = withCaution(sec.ImmediateActions)
		resp.Sections = &sec
	}
	if resp.AdviceText != "" && !strings.Contains(resp.AdviceText, GoldenRuleCaution) {
		header := "**PRECAUTION (" + alert.Label(weatherAlert) + "):** " + GoldenRuleCaution
		body := resp.AdviceText
		if resp.Sections == nil {
			var dropped bool
			if body, dropped = stripConflicts(body); dropped {
				header += " " + GoldenRuleNote
			}
		}
		resp.AdviceText = header
		if body != "" {
			resp.AdviceText += "\n\n" + body
		}
	}
	resp.GoldenRuleApplied = true
	return resp
}

// RefusalText is returned when the safety gate rejects a query.
const RefusalText = "I can't help with that request. Please ask a question about growing or protecting your crops."

// Refusal is the response for an unsafe query. No tier is consulted.
func Refusal() model.AdviceResponse {
	return model.AdviceResponse{
		Mode:       model.AdviceModeConversation,
		AdviceText: RefusalText,
		Tier:       "safety_gate",
		Refused:    true,
	}
}
