// Package sqlite provides a durable core.SessionStore backed by SQLite
// (modernc.org/sqlite, no cgo). Sessions and their transcripts live in two
// tables; a transcript is always replaced inside a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		data_source   TEXT NOT NULL,
		summary       TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at_ns INTEGER NOT NULL,
		updated_at_ns INTEGER NOT NULL,

		CHECK (status IN ('idle', 'processing', 'error', 'closed'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at_ns);
	CREATE INDEX IF NOT EXISTS idx_sessions_data_source ON sessions(data_source);

	CREATE TABLE IF NOT EXISTS session_messages (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL,
		seq             INTEGER NOT NULL,
		role            TEXT NOT NULL,
		query           TEXT NOT NULL,
		generated_query TEXT NOT NULL DEFAULT '',
		result_summary  TEXT NOT NULL DEFAULT '',
		analysis        TEXT NOT NULL DEFAULT '',
		created_at_ns   INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		UNIQUE (session_id, seq)
	);
`

// Options configures the SQLite session store.
type Options struct {
	Logger logging.Logger
}

// Store implements core.SessionStore on a *sql.DB. The caller owns the
// database handle and closes it.
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
		return nil, fmt.Errorf("creating session schema: %w", err)
	}

	opts.Logger.Debug("SQLite session store initialized")
	return &Store{db: db, logger: opts.Logger}, nil
}

// Create inserts a new idle session.
func (s *Store) Create(ctx context.Context, dataSource string, metadata map[string]string) (*core.Session, error) {
	sess := core.NewSession(dataSource, metadata)
	md, err := encodeMetadata(sess.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data_source, summary, status, metadata_json, created_at_ns, updated_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.DataSource, sess.Summary, string(sess.Status), md,
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("session created", "session_id", sess.ID, "data_source", dataSource)
	return sess, nil
}

// Get loads a session and its transcript. Returns core.ErrSessionNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, data_source, summary, status, metadata_json, created_at_ns, updated_at_ns
		FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", id, core.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if sess.Messages, err = s.loadMessages(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

// List returns sessions matching filter, most recently updated first.
func (s *Store) List(ctx context.Context, filter core.SessionFilter) ([]*core.Session, error) {
	var (
		where []string
		args  []any
	)
	if filter.DataSource != "" {
		where = append(where, "data_source = ?")
		args = append(args, filter.DataSource)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT id, data_source, summary, status, metadata_json, created_at_ns, updated_at_ns FROM sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at_ns DESC, id ASC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // no limit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*core.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	rows.Close()

	for _, sess := range sessions {
		if sess.Messages, err = s.loadMessages(ctx, sess.ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// Update replaces summary, status, metadata and the full transcript of an
// existing session in one transaction.
func (s *Store) Update(ctx context.Context, session *core.Session) error {
	md, err := encodeMetadata(session.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET summary = ?, status = ?, metadata_json = ?, updated_at_ns = ?
		WHERE id = ?`,
		session.Summary, string(session.Status), md, time.Now().UTC().UnixNano(), session.ID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update session %s: %w", session.ID, core.ErrSessionNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("clearing transcript: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_messages (id, session_id, seq, role, query, generated_query, result_summary, analysis, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing transcript insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range session.Messages {
		if _, err := stmt.ExecContext(ctx, m.ID, session.ID, i, string(m.Role), m.Query,
			m.GeneratedQuery, m.ResultSummary, m.Analysis, m.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session update: %w", err)
	}
	return nil
}

// Delete removes a session and its transcript.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting transcript: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete session %s: %w", id, core.ErrSessionNotFound)
	}
	return tx.Commit()
}

// Close marks a session closed. Closing a closed session is a no-op.
func (s *Store) Close(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, updated_at_ns = ?
		WHERE id = ? AND status != ?`,
		string(core.StatusClosed), time.Now().UTC().UnixNano(), id, string(core.StatusClosed))
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("close session %s: %w", id, core.ErrSessionNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	return nil
}

func (s *Store) loadMessages(ctx context.Context, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, query, generated_query, result_summary, analysis, created_at_ns
		FROM session_messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	messages := []core.Message{}
	for rows.Next() {
		var (
			m    core.Message
			role string
			ts   int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Query, &m.GeneratedQuery, &m.ResultSummary, &m.Analysis, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = core.Role(role)
		m.Timestamp = time.Unix(0, ts).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcript: %w", err)
	}
	return messages, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*core.Session, error) {
	var (
		sess               core.Session
		status, md         string
		createdNs, updated int64
	)
	if err := row.Scan(&sess.ID, &sess.DataSource, &sess.Summary, &status, &md, &createdNs, &updated); err != nil {
		return nil, err
	}
	sess.Status = core.SessionStatus(status)
	sess.CreatedAt = time.Unix(0, createdNs).UTC()
	sess.UpdatedAt = time.Unix(0, updated).UTC()
	sess.Messages = []core.Message{}
	sess.Metadata = map[string]string{}
	if md != "" {
		if err := json.Unmarshal([]byte(md), &sess.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &sess, nil
}

func encodeMetadata(md map[string]string) (string, error) {
	if md == nil {
		md = map[string]string{}
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(b), nil
}
