// Package storage persists the conversation transcript and small pieces of
// engine state in a local sqlite database.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"aide/model"
)

// State keys for the app_state table.
const (
	StateKeyMetrics        = "cache_metrics"
	StateKeyLastForeground = "last_foreground"

	stateKeyStreaming = "streaming_message_id"
)

// Store is the durable home of the transcript: an ordered, append-mostly
// message sequence plus a key-value table for engine state (cache metrics
// blob, idle timestamp, streaming checkpoint).
type Store struct {
	db *sql.DB
}

func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "conversation.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		complete INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AppendMessage inserts a new message at the end of the transcript.
func (s *Store) AppendMessage(msg model.Message) error {
	query := `
	INSERT INTO messages (id, role, content, created_at, complete)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, msg.ID, string(msg.Role), msg.Content, msg.CreatedAt, boolToInt(msg.Complete))
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// UpdateMessage rewrites the content and completeness of a message. Only
// the in-flight streaming message is ever updated.
func (s *Store) UpdateMessage(id, content string, complete bool) error {
	query := `UPDATE messages SET content = ?, complete = ? WHERE id = ?`

	_, err := s.db.Exec(query, content, boolToInt(complete), id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// Messages returns the full transcript in order.
func (s *Store) Messages() ([]model.Message, error) {
	query := `
	SELECT id, role, content, created_at, complete
	FROM messages
	ORDER BY seq ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var role string
		var complete int
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.CreatedAt, &complete); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Complete = complete != 0
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// ClearMessages wipes the transcript and any streaming checkpoint.
func (s *Store) ClearMessages() error {
	if _, err := s.db.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return s.ClearStreamingCheckpoint()
}

// SetState stores a value in the key-value state table.
func (s *Store) SetState(key, value string) error {
	query := `INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)`

	_, err := s.db.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %q: %w", key, err)
	}
	return nil
}

// GetState reads a value from the state table; missing keys return "".
func (s *Store) GetState(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %q: %w", key, err)
	}
	return value, nil
}

// SetStreamingCheckpoint records the ID of the message currently streaming
// in, so a restart can find and finalize it.
func (s *Store) SetStreamingCheckpoint(messageID string) error {
	return s.SetState(stateKeyStreaming, messageID)
}

// ClearStreamingCheckpoint removes the checkpoint once the message is
// finalized.
func (s *Store) ClearStreamingCheckpoint() error {
	_, err := s.db.Exec(`DELETE FROM app_state WHERE key = ?`, stateKeyStreaming)
	if err != nil {
		return fmt.Errorf("failed to clear streaming checkpoint: %w", err)
	}
	return nil
}

// RecoverInterrupted finalizes a dangling streaming message left by a crash:
// the partial content is kept, the notice appended, and the message marked
// complete. It reports the recovered message ID, or "" when the transcript
// was already consistent.
func (s *Store) RecoverInterrupted(notice string) (string, error) {
	id, err := s.GetState(stateKeyStreaming)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", nil
	}

	var content string
	var complete int
	err = s.db.QueryRow(`SELECT content, complete FROM messages WHERE id = ?`, id).Scan(&content, &complete)
	if err == sql.ErrNoRows {
		// The message row never landed; the transcript is consistent
		// without it.
		return "", s.ClearStreamingCheckpoint()
	}
	if err != nil {
		return "", fmt.Errorf("failed to load checkpointed message: %w", err)
	}

	if complete == 0 {
		if err := s.UpdateMessage(id, content+notice, true); err != nil {
			return "", err
		}
	}
	return id, s.ClearStreamingCheckpoint()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
