package model

import (
	"strings"
	"time"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is the boundary input for a single advisory turn.
type Request struct {
	Query                string               `json:"query"`
	History              []Message            `json:"history,omitempty"`
	EnvironmentalContext EnvironmentalReading `json:"environmental_context"`
	SoilType             string               `json:"soil_type,omitempty"`
	SessionID            string               `json:"session_id,omitempty"`
}

// Result is what a caller receives for one advisory turn.
type Result struct {
	SessionID      string         `json:"session_id,omitempty"`
	Response       AdviceResponse `json:"response"`
	ReasoningTrace []string       `json:"reasoning_trace"`
}

// AdvisoryState is the record threaded through the orchestration graph. Stages
// receive it by value and return the updated copy.
type AdvisoryState struct {
	SessionID          string               `json:"session_id,omitempty"`
	Query              string               `json:"query"`
	SoilType           string               `json:"soil_type,omitempty"`
	History            []Message            `json:"history,omitempty"`
	Extracted          *ExtractedQuery      `json:"extracted,omitempty"`
	Reading            EnvironmentalReading `json:"reading"`
	Verdict            *ValidationVerdict   `json:"verdict,omitempty"`
	WeatherAlert       *string              `json:"weather_alert,omitempty"`
	SoilAdvice         *string              `json:"soil_advice,omitempty"`
	SoilRecommendation *SoilRecommendation  `json:"soil_recommendation,omitempty"`
	ReasoningTrace     []string             `json:"reasoning_trace"`
	FinalAdvice        *string              `json:"final_advice,omitempty"`
	Response           *AdviceResponse      `json:"response,omitempty"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// NewState builds the initial state for a fresh request.
func NewState(req Request) AdvisoryState {
	return AdvisoryState{
		SessionID:      req.SessionID,
		Query:          req.Query,
		SoilType:       req.SoilType,
		History:        append([]Message(nil), req.History...),
		Reading:        req.EnvironmentalContext,
		ReasoningTrace: []string{},
	}
}

// WithTrace returns a copy of s with one trace entry appended. The returned
// trace never shares a backing array with s.
func (s AdvisoryState) WithTrace(stage, detail string) AdvisoryState {
	trace := make([]string, len(s.ReasoningTrace), len(s.ReasoningTrace)+1)
	copy(trace, s.ReasoningTrace)
	entry := stage
	if detail != "" {
		entry += ": " + detail
	}
	s.ReasoningTrace = append(trace, entry)
	return s
}

// SoilKnown reports whether enough is known about the soil to run soil analysis.
func (s AdvisoryState) SoilKnown() bool {
	if s.Reading.SoilPH != nil {
		return true
	}
	st := strings.TrimSpace(strings.ToLower(s.SoilType))
	return st != "" && st != "unknown"
}

// Mode picks the response contract: a blank query asks for a field analysis.
func (s AdvisoryState) Mode() AdviceMode {
	if strings.TrimSpace(s.Query) == "" {
		return AdviceModeAnalysis
	}
	return AdviceModeConversation
}

// Crop returns the extracted crop, or "crop" when nothing useful is known.
func (s AdvisoryState) Crop() string {
	if s.Extracted == nil || s.Extracted.Crop == "" || s.Extracted.Crop == UnknownCrop {
		return "crop"
	}
	return s.Extracted.Crop
}

// Safe reports whether the verdict allows advice generation. A missing verdict
// counts as safe.
func (s AdvisoryState) Safe() bool {
	return s.Verdict == nil || s.Verdict.IsSafe
}

// TraceStage returns the stage name of a trace entry.
func TraceStage(entry string) string {
	name, _, _ := strings.Cut(entry, ":")
	return name
}

// Checkpoint is a persisted AdvisoryState for session continuation.
type Checkpoint struct {
	SessionID string    `json:"session_id"`
	Stage     string    `json:"stage"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}
