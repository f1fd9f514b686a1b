// Package store persists finished conversations in a local sqlite database
// so a session can be reviewed or resumed later.
package store

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

	"lucius/internal/llm"
	"lucius/internal/logging"
)

// ErrNoTranscript means the database holds no saved conversations yet.
var ErrNoTranscript = errors.New("no transcript saved")

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	model      TEXT NOT NULL,
	messages   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
`

// Store wraps the transcript database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// storedMessage is the JSON shape persisted per entry.
type storedMessage struct {
	Kind int    `json:"kind"`
	Text string `json:"text"`
}

// SaveTranscript writes one conversation snapshot. Empty conversations are
// skipped so transient UI states don't litter the table.
func (s *Store) SaveTranscript(ctx context.Context, model string, msgs []llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	stored := make([]storedMessage, len(msgs))
	for i, m := range msgs {
		stored[i] = storedMessage{Kind: int(m.Kind), Text: m.Text}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (created_at, model, messages) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), model, string(data))
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	logging.Session("saved transcript (%d entries, model %s)", len(msgs), model)
	return nil
}

// LoadLatest returns the most recently saved conversation and its model.
func (s *Store) LoadLatest(ctx context.Context) ([]llm.Message, string, error) {
	var model, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT model, messages FROM transcripts ORDER BY id DESC LIMIT 1`).Scan(&model, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNoTranscript
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load transcript: %w", err)
	}

	var stored []storedMessage
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, "", fmt.Errorf("corrupt transcript: %w", err)
	}
	msgs := make([]llm.Message, len(stored))
	for i, m := range stored {
		msgs[i] = llm.Message{Kind: llm.Kind(m.Kind), Text: m.Text}
	}
	logging.Session("loaded latest transcript (%d entries, model %s)", len(msgs), model)
	return msgs, model, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
