package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// initialState builds the state for req and picks the first stage. A known
// session resumes from its checkpoint and starts at validation, so every new
// query still passes the safety gate.
func (p *Pipeline) initialState(ctx context.Context, req model.Request) (model.AdvisoryState, string, error) {
	state := model.NewState(req)
	if p.store == nil {
		return state, StageExtract, nil
	}
	if strings.TrimSpace(state.SessionID) == "" {
		state.SessionID = p.newID()
		return state, StageExtract, nil
	}

	cp, err := p.store.LoadCheckpoint(ctx, state.SessionID)
	if err != nil {
		return state, "", eris.Wrap(err, "pipeline: load checkpoint")
	}
	if cp == nil {
		return state, StageExtract, nil
	}

	var prev model.AdvisoryState
	if err := json.Unmarshal(cp.Data, &prev); err != nil {
		zap.L().Warn("pipeline: discarding unreadable checkpoint",
			zap.String("session_id", state.SessionID),
			zap.Error(err),
		)
		return state, StageExtract, nil
	}
	if prev.Extracted == nil {
		return state, StageExtract, nil
	}
	return resume(prev, req), StageValidate, nil
}

// resume carries a finished turn into the next one.
func resume(prev model.AdvisoryState, req model.Request) model.AdvisoryState {
	s := model.NewState(req)
	s.SessionID = prev.SessionID
	s.Extracted = prev.Extracted
	if req.EnvironmentalContext.IsEmpty() {
		s.Reading = prev.Reading
	}
	if strings.TrimSpace(req.SoilType) == "" {
		s.SoilType = prev.SoilType
	}
	if len(req.History) == 0 {
		s.History = carriedHistory(prev)
	}
	return s
}

// carriedHistory is prev's history plus prev's own question and answer.
func carriedHistory(prev model.AdvisoryState) []model.Message {
	h := make([]model.Message, 0, len(prev.History)+2)
	h = append(h, prev.History...)
	if strings.TrimSpace(prev.Query) != "" {
		h = append(h, model.Message{Role: "user", Content: prev.Query})
	}
	if prev.FinalAdvice != nil && *prev.FinalAdvice != "" {
		h = append(h, model.Message{Role: "assistant", Content: *prev.FinalAdvice})
	}
	return h
}

// saveCheckpoint stores the terminal state. Failures are logged, not returned:
// the caller already has a complete answer.
func (p *Pipeline) saveCheckpoint(ctx context.Context, s model.AdvisoryState) {
	if p.store == nil || s.SessionID == "" {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		zap.L().Warn("pipeline: marshal checkpoint", zap.String("session_id", s.SessionID), zap.Error(err))
		return
	}
	if err := p.store.SaveCheckpoint(context.WithoutCancel(ctx), s.SessionID, StageEnd, data); err != nil {
		zap.L().Warn("pipeline: save checkpoint", zap.String("session_id", s.SessionID), zap.Error(err))
	}
}
