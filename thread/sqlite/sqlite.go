// Package sqlite provides a durable core.ThreadStore backed by SQLite via
// the cgo-free modernc.org/sqlite driver. The schema is created on open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		responder TEXT,
		activity_json TEXT,
		final INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (thread_id) REFERENCES threads(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_thread_seq
		ON messages(thread_id, seq);
`

// Store implements core.ThreadStore on a SQLite database file.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New opens (or creates) the database at path and ensures the schema exists.
// Parent directories are created if needed.
func New(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode improves concurrent reader/writer behavior.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{db: db, logger: logging.NoOpLogger{}}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("sqlite thread store initialized", "path", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Create implements core.ThreadStore.
func (s *Store) Create(ctx context.Context) (*core.Thread, error) {
	t := core.NewThread()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, created_at, updated_at) VALUES (?, ?, ?)`,
		t.ID,
		t.Created.UTC().Format(time.RFC3339Nano),
		t.Updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting thread: %w", err)
	}

	s.logger.Debug("created thread", "id", t.ID)
	return t, nil
}

// Append implements core.ThreadStore. The insert and the updated_at bump run
// in one transaction; the seq column preserves append order independent of
// timestamp resolution.
func (s *Store) Append(ctx context.Context, threadID string, msg core.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM threads WHERE id = ?`, threadID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrThreadNotFound
	}
	if err != nil {
		return fmt.Errorf("querying thread: %w", err)
	}

	var activityJSON sql.NullString
	if len(msg.Activity) > 0 {
		raw, err := json.Marshal(msg.Activity)
		if err != nil {
			return fmt.Errorf("encoding activity: %w", err)
		}
		activityJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, role, content, responder, activity_json, final, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE thread_id = ?),
			?)`,
		msg.ID, threadID, msg.Role, msg.Content, msg.Responder, activityJSON,
		boolToInt(msg.Final), threadID, msg.Created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE threads SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), threadID)
	if err != nil {
		return fmt.Errorf("updating thread: %w", err)
	}

	return tx.Commit()
}

// History implements core.ThreadStore.
func (s *Store) History(ctx context.Context, threadID string) ([]core.Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM threads WHERE id = ?`, threadID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, responder, activity_json, final, created_at
		FROM messages
		WHERE thread_id = ?
		ORDER BY seq ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []core.Message{}
	for rows.Next() {
		var (
			msg          core.Message
			responder    sql.NullString
			activityJSON sql.NullString
			final        int
			createdStr   string
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &responder, &activityJSON, &final, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Responder = responder.String
		msg.Final = final != 0
		if activityJSON.Valid {
			if err := json.Unmarshal([]byte(activityJSON.String), &msg.Activity); err != nil {
				return nil, fmt.Errorf("decoding activity: %w", err)
			}
		}
		msg.Created, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}

// Delete implements core.ThreadStore. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID); err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}

	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
