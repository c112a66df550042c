package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "agri-advisor.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	session_id TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_updated_at ON checkpoints(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, sessionID, stage string, data []byte) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, stage, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET stage = excluded.stage, data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, stage, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save checkpoint")
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	var (
		cp   model.Checkpoint
		data string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, stage, data, updated_at FROM checkpoints WHERE session_id = ?`,
		sessionID,
	).Scan(&cp.SessionID, &cp.Stage, &data, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load checkpoint")
	}
	cp.Data = []byte(data)
	return &cp, nil
}

func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, sessionID)
	return eris.Wrap(err, "sqlite: delete checkpoint")
}
