package store

import (
	"context"
	"sync"
	"time"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// MemoryStore keeps checkpoints in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]model.Checkpoint
	nowFunc     func() time.Time
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]model.Checkpoint),
		nowFunc:     time.Now,
	}
}

func (s *MemoryStore) SaveCheckpoint(_ context.Context, sessionID, stage string, data []byte) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[sessionID] = model.Checkpoint{
		SessionID: sessionID,
		Stage:     stage,
		Data:      append([]byte(nil), data...),
		UpdatedAt: s.nowFunc().UTC(),
	}
	return nil
}

func (s *MemoryStore) LoadCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[sessionID]
	if !ok {
		return nil, nil
	}
	cp.Data = append([]byte(nil), cp.Data...)
	return &cp, nil
}

func (s *MemoryStore) DeleteCheckpoint(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, sessionID)
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
