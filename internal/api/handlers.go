package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

const maxBodyBytes = 1 << 20

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"tiers":         s.tiers,
		"checkpointing": s.store != nil,
	})
}

func (s *Server) advise(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			zap.L().Info("api: client went away", zap.String("session_id", req.SessionID))
			return
		}
		zap.L().Error("api: advisory run failed", zap.String("session_id", req.SessionID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "advice unavailable")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type sessionResponse struct {
	SessionID string          `json:"session_id"`
	Stage     string          `json:"stage"`
	UpdatedAt time.Time       `json:"updated_at"`
	State     json.RawMessage `json:"state"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "session checkpointing is disabled")
		return
	}
	id := chi.URLParam(r, "sessionID")
	cp, err := s.store.LoadCheckpoint(r.Context(), id)
	if err != nil {
		zap.L().Error("api: load session", zap.String("session_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if cp == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	state := json.RawMessage(cp.Data)
	if !json.Valid(state) {
		respondError(w, http.StatusInternalServerError, "corrupt checkpoint")
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		SessionID: cp.SessionID,
		Stage:     cp.Stage,
		UpdatedAt: cp.UpdatedAt,
		State:     state,
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "session checkpointing is disabled")
		return
	}
	id := chi.URLParam(r, "sessionID")
	if err := s.store.DeleteCheckpoint(r.Context(), id); err != nil {
		zap.L().Error("api: delete session", zap.String("session_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		respondError(w, http.StatusNotFound, "tier monitoring is disabled")
		return
	}
	respondJSON(w, http.StatusOK, s.stats.Collect())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
