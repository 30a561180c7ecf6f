// Package sqlite provides a durable core.CheckpointStore backed by SQLite
// (modernc.org/sqlite). One row per session is upserted on every turn.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		session_id    TEXT PRIMARY KEY,
		snapshot      BLOB NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		updated_at_ns INTEGER NOT NULL
	);
`

// Options configures the SQLite checkpoint store.
type Options struct {
	Logger logging.Logger
}

// Store implements core.CheckpointStore on a *sql.DB owned by the caller.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New creates the schema if needed and returns a ready store.
func New(db *sql.DB, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating checkpoint schema: %w", err)
	}

	return &Store{db: db, logger: opts.Logger}, nil
}

// Get returns the session's checkpoint or core.ErrCheckpointNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*core.Checkpoint, error) {
	var (
		cp core.Checkpoint
		md string
		ts int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, snapshot, metadata_json, updated_at_ns
		FROM checkpoints WHERE session_id = ?`, sessionID).Scan(&cp.SessionID, &cp.Snapshot, &md, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get checkpoint %s: %w", sessionID, core.ErrCheckpointNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying checkpoint: %w", err)
	}

	cp.UpdatedAt = time.Unix(0, ts).UTC()
	cp.Metadata = map[string]string{}
	if err := json.Unmarshal([]byte(md), &cp.Metadata); err != nil {
		return nil, fmt.Errorf("decoding checkpoint metadata: %w", err)
	}
	return &cp, nil
}

// Put upserts the session's checkpoint. Last writer wins.
func (s *Store) Put(ctx context.Context, sessionID string, snapshot []byte, metadata map[string]string) error {
	if metadata == nil {
		metadata = map[string]string{}
	}
	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encoding checkpoint metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (session_id, snapshot, metadata_json, updated_at_ns)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			metadata_json = excluded.metadata_json,
			updated_at_ns = excluded.updated_at_ns`,
		sessionID, snapshot, string(md), time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint written", "session_id", sessionID, "bytes", len(snapshot))
	return nil
}

// Delete removes the session's checkpoint if present.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}
