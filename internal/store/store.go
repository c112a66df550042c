// Package store persists advisory session checkpoints so a follow-up turn can
// resume where the previous one ended.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// Driver names accepted by New.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Store defines the persistence interface for session checkpoints.
type Store interface {
	// SaveCheckpoint inserts or replaces the checkpoint for sessionID.
	SaveCheckpoint(ctx context.Context, sessionID, stage string, data []byte) error
	// LoadCheckpoint returns nil, nil when the session has no checkpoint.
	LoadCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, sessionID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store named by driver and migrates it. The "none" driver
// returns a nil Store, which disables checkpointing.
func New(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverNone, "":
		return nil, nil
	case DriverMemory:
		st = NewMemory()
	case DriverSQLite:
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func validateID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return eris.New("store: empty session id")
	}
	return nil
}
