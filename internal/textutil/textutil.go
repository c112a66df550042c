// Package textutil normalizes farmer text before keyword matching.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, Unicode case folding and whitespace collapsing.
// Full-width and accented forms fold to the same key as their plain
// counterparts, so "ＤＲＹ  Soil" matches "dry soil".
func Normalize(s string) string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.FieldsFunc(folded, unicode.IsSpace), " ")
}

// ContainsAny reports whether normalized text contains any of the keywords.
// Keywords are expected in normalized form already.
func ContainsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// negators turn the claim that follows them around.
var negators = map[string]bool{
	"no":      true,
	"not":     true,
	"never":   true,
	"without": true,
	"nor":     true,
	"hardly":  true,
}

// negationWindow is how many words before a keyword can negate it.
const negationWindow = 3

// ContainsAffirmed is ContainsAny for claims: an occurrence preceded within
// negationWindow words of the same clause by a negator ("no heavy rain",
// "hasn't been very hot") does not count. Any affirmed occurrence is enough.
func ContainsAffirmed(text string, keywords ...string) bool {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], k)
			if i < 0 {
				break
			}
			i += from
			if !negated(text[:i]) {
				return true
			}
			from = i + len(k)
		}
	}
	return false
}

// negated reports whether the clause ending at prefix negates what follows.
func negated(prefix string) bool {
	words := strings.Fields(prefix)
	for j, n := len(words)-1, 0; j >= 0 && n < negationWindow; j, n = j-1, n+1 {
		w := words[j]
		if strings.ContainsAny(w[len(w)-1:], ".,;:!?") {
			return false
		}
		w = strings.Trim(w, ".,;:!?\"'()")
		if w == "but" {
			return false
		}
		if negators[w] || strings.HasSuffix(w, "n't") || strings.HasSuffix(w, "n\u2019t") {
			return true
		}
	}
	return false
}

// Join normalizes and concatenates parts with a single space, skipping
// empty ones.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

// CleanJSON extracts a JSON object from model output that may carry markdown
// code fences or surrounding prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
