// Package sqlite keeps reflection circles and their entries in a SQLite
// database. Entries are append-only: triggers reject any UPDATE or DELETE.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS circles (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	eligible TEXT NOT NULL,
	opened_at TEXT NOT NULL,
	closed_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_circles_session ON circles(session_id);

CREATE TABLE IF NOT EXISTS entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	circle_id TEXT NOT NULL REFERENCES circles(id),
	participant_id TEXT NOT NULL,
	content TEXT NOT NULL,
	emotion_tag TEXT NOT NULL,
	insights TEXT NOT NULL,
	action_ideas TEXT NOT NULL,
	submitted_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_circle ON entries(circle_id, seq);

CREATE TRIGGER IF NOT EXISTS entries_no_update BEFORE UPDATE ON entries
BEGIN
	SELECT RAISE(ABORT, 'reflection entries are append-only');
END;

CREATE TRIGGER IF NOT EXISTS entries_no_delete BEFORE DELETE ON entries
BEGIN
	SELECT RAISE(ABORT, 'reflection entries are append-only');
END;
`

// ReflectionStore implements ports.ReflectionStore on SQLite.
type ReflectionStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ports.ReflectionStore = (*ReflectionStore)(nil)

// NewReflectionStore opens or creates the database at path. ":memory:" keeps
// everything in process.
func NewReflectionStore(path string) (*ReflectionStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("reflections path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create reflections directory: %w", err)
		}
		if err := ensurePrivateFile(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open reflections database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure reflections database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize reflections schema: %w", err)
	}

	return &ReflectionStore{db: db}, nil
}

func ensurePrivateFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create reflections database: %w", err)
	}
	return f.Close()
}

func (s *ReflectionStore) Close() error {
	return s.db.Close()
}

func (s *ReflectionStore) CreateCircle(ctx context.Context, circle domain.ReflectionCircle) error {
	eligible, err := json.Marshal(participantStrings(circle.Eligible))
	if err != nil {
		return fmt.Errorf("encode eligible participants: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO circles (id, session_id, eligible, opened_at, closed_at) VALUES (?, ?, ?, ?, ?)`,
		string(circle.ID), string(circle.SessionID), string(eligible), formatTime(circle.OpenedAt), formatTime(circle.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reflection circle %s: %w", circle.ID, err)
	}
	return nil
}

func (s *ReflectionStore) Circle(ctx context.Context, id domain.CircleID) (domain.ReflectionCircle, error) {
	var (
		sessionID, eligible, openedAt, closedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, eligible, opened_at, closed_at FROM circles WHERE id = ?`, string(id),
	).Scan(&sessionID, &eligible, &openedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReflectionCircle{}, domain.ErrCircleNotFound
	}
	if err != nil {
		return domain.ReflectionCircle{}, fmt.Errorf("query reflection circle %s: %w", id, err)
	}

	var members []string
	if err := json.Unmarshal([]byte(eligible), &members); err != nil {
		return domain.ReflectionCircle{}, fmt.Errorf("decode eligible participants: %w", err)
	}

	circle := domain.ReflectionCircle{
		ID:        id,
		SessionID: domain.SessionID(sessionID),
		OpenedAt:  parseTime(openedAt),
		ClosedAt:  parseTime(closedAt),
	}
	for _, m := range members {
		circle.Eligible = append(circle.Eligible, domain.ParticipantID(m))
	}
	return circle, nil
}

// CloseCircle is idempotent: an already closed circle keeps its first
// closing time.
func (s *ReflectionStore) CloseCircle(ctx context.Context, id domain.CircleID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE circles SET closed_at = ? WHERE id = ? AND closed_at = ''`, formatTime(closedAt), string(id),
	)
	if err != nil {
		return fmt.Errorf("close reflection circle %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM circles WHERE id = ?`, string(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCircleNotFound
	}
	if err != nil {
		return fmt.Errorf("query reflection circle %s: %w", id, err)
	}
	return nil
}

func (s *ReflectionStore) Append(ctx context.Context, id domain.CircleID, entry domain.ReflectionEntry) error {
	insights, err := json.Marshal(nonNil(entry.Insights))
	if err != nil {
		return fmt.Errorf("encode insights: %w", err)
	}
	actionIdeas, err := json.Marshal(nonNil(entry.ActionIdeas))
	if err != nil {
		return fmt.Errorf("encode action ideas: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var closedAt string
	err = tx.QueryRowContext(ctx, `SELECT closed_at FROM circles WHERE id = ?`, string(id)).Scan(&closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCircleNotFound
	}
	if err != nil {
		return fmt.Errorf("query reflection circle %s: %w", id, err)
	}
	if closedAt != "" {
		return fmt.Errorf("reflection circle %s is closed", id)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (circle_id, participant_id, content, emotion_tag, insights, action_ideas, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(id), string(entry.ParticipantID), entry.Content, entry.EmotionTag,
		string(insights), string(actionIdeas), formatTime(entry.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reflection entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reflection entry: %w", err)
	}
	return nil
}

// Get returns the circle's entries in submission order.
func (s *ReflectionStore) Get(ctx context.Context, id domain.CircleID) ([]domain.ReflectionEntry, error) {
	if _, err := s.Circle(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, content, emotion_tag, insights, action_ideas, submitted_at
		FROM entries WHERE circle_id = ? ORDER BY seq`, string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("query reflection entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.ReflectionEntry{}
	for rows.Next() {
		var (
			participantID, content, emotionTag, insights, actionIdeas, submittedAt string
		)
		if err := rows.Scan(&participantID, &content, &emotionTag, &insights, &actionIdeas, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan reflection entry: %w", err)
		}

		entry := domain.ReflectionEntry{
			ParticipantID: domain.ParticipantID(participantID),
			Content:       content,
			EmotionTag:    emotionTag,
			SubmittedAt:   parseTime(submittedAt),
		}
		if err := decodeStrings(insights, &entry.Insights); err != nil {
			return nil, fmt.Errorf("decode insights: %w", err)
		}
		if err := decodeStrings(actionIdeas, &entry.ActionIdeas); err != nil {
			return nil, fmt.Errorf("decode action ideas: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reflection entries: %w", err)
	}
	return entries, nil
}

func participantStrings(ids []domain.ParticipantID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// decodeStrings leaves dst nil for an empty list.
func decodeStrings(raw string, dst *[]string) error {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return err
	}
	if len(values) > 0 {
		*dst = values
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
