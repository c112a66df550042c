package validate

import (
	"regexp"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/textutil"
)

var defaultBlockedPhrases = []string{
	"poison my neighbor",
	"poison my neighbour",
	"poison someone",
	"poison a person",
	"poison people",
	"poison the water supply",
	"contaminate the water supply",
	"kill my neighbor",
	"kill my neighbour",
	"harm people",
	"make a bomb",
	"fertilizer bomb",
	"fertiliser bomb",
	"ammonium nitrate bomb",
	"make explosives",
}

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?|directions?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|prompts?|rules?|context)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`),
	regexp.MustCompile(`(?i)system\s*:\s*you\s+are`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)pretend\s+you\s+(are|have)\s+no\s+(restrictions?|rules?|guidelines?)`),
	regexp.MustCompile(`(?i)reveal\s+(your|the)\s+(system\s+)?(prompt|instructions?)`),
}

// SafetyGate screens farmer text for harmful intent and prompt injection.
type SafetyGate struct {
	blocked []string
}

// NewSafetyGate returns a gate with the default blocked phrases plus extra.
func NewSafetyGate(extra ...string) *SafetyGate {
	blocked := make([]string, 0, len(defaultBlockedPhrases)+len(extra))
	for _, p := range append(append([]string{}, defaultBlockedPhrases...), extra...) {
		if n := textutil.Normalize(p); n != "" {
			blocked = append(blocked, n)
		}
	}
	return &SafetyGate{blocked: blocked}
}

// Safe reports whether text passes the gate. Empty text is safe.
func (g *SafetyGate) Safe(text string) bool {
	norm := textutil.Normalize(text)
	if norm == "" {
		return true
	}
	if textutil.ContainsAny(norm, g.blocked...) {
		return false
	}
	for _, re := range injectionPatterns {
		if re.MatchString(norm) {
			return false
		}
	}
	return true
}
