// Package archive keeps an append-only SQLite record of accepted scenes and
// the private thoughts produced alongside them.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id     TEXT NOT NULL,
	scene_key   TEXT NOT NULL,
	body        TEXT NOT NULL,
	attempts    INTEGER NOT NULL DEFAULT 1,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenes_game ON scenes (game_id, id);

CREATE TABLE IF NOT EXISTS thoughts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id     TEXT NOT NULL,
	scene_key   TEXT NOT NULL,
	speaker     TEXT NOT NULL,
	thought     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_thoughts_game ON thoughts (game_id, scene_key);
`

// Scene is one archived scene.
type Scene struct {
	GameID    uuid.UUID
	Key       string
	Body      string
	Attempts  int
	CreatedAt time.Time
}

// Store is the SQLite archive.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the archive at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordScene appends an accepted scene. attempts is how many generations
// it took to pass validation.
func (s *Store) RecordScene(ctx context.Context, gameID uuid.UUID, key, body string, attempts int) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("archive is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("scene key is required")
	}
	if attempts < 1 {
		attempts = 1
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO scenes (game_id, scene_key, body, attempts, created_at) VALUES (?, ?, ?, ?, ?)`,
		gameID.String(), key, body, attempts, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert scene %s: %w", key, err)
	}
	return nil
}

// RecordThoughts appends one row per speaker in a single transaction.
func (s *Store) RecordThoughts(ctx context.Context, gameID uuid.UUID, key string, thoughts map[string]string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("archive is not configured")
	}
	if len(thoughts) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO thoughts (game_id, scene_key, speaker, thought, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare thought insert: %w", err)
	}
	defer stmt.Close()

	created := s.now().UTC().UnixMilli()
	for speaker, thought := range thoughts {
		if _, err := stmt.ExecContext(ctx, gameID.String(), key, speaker, thought, created); err != nil {
			return fmt.Errorf("insert thought for %s: %w", speaker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit thoughts: %w", err)
	}
	return nil
}

// Scenes returns the archived scenes of a game in insertion order.
func (s *Store) Scenes(ctx context.Context, gameID uuid.UUID) ([]Scene, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT scene_key, body, attempts, created_at FROM scenes WHERE game_id = ? ORDER BY id`,
		gameID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	var out []Scene
	for rows.Next() {
		sc := Scene{GameID: gameID}
		var created int64
		if err := rows.Scan(&sc.Key, &sc.Body, &sc.Attempts, &created); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		sc.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}
	return out, nil
}

// Thoughts returns the latest archived thought per speaker for a scene key.
func (s *Store) Thoughts(ctx context.Context, gameID uuid.UUID, key string) (map[string]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT speaker, thought FROM thoughts WHERE game_id = ? AND scene_key = ? ORDER BY id`,
		gameID.String(), key,
	)
	if err != nil {
		return nil, fmt.Errorf("query thoughts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var speaker, thought string
		if err := rows.Scan(&speaker, &thought); err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		out[speaker] = thought
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thoughts: %w", err)
	}
	return out, nil
}

// Export renders a game's archive as indented JSON, scenes first.
func (s *Store) Export(ctx context.Context, gameID uuid.UUID) ([]byte, error) {
	scenes, err := s.Scenes(ctx, gameID)
	if err != nil {
		return nil, err
	}
	type entry struct {
		Key      string            `json:"key"`
		Body     string            `json:"body"`
		Attempts int               `json:"attempts"`
		Thoughts map[string]string `json:"thoughts,omitempty"`
	}
	entries := make([]entry, 0, len(scenes))
	for _, sc := range scenes {
		th, err := s.Thoughts(ctx, gameID, sc.Key)
		if err != nil {
			return nil, err
		}
		if len(th) == 0 {
			th = nil
		}
		entries = append(entries, entry{Key: sc.Key, Body: sc.Body, Attempts: sc.Attempts, Thoughts: th})
	}
	return json.MarshalIndent(entries, "", "  ")
}
