package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	pkgstorage "github.com/jwebster45206/werewolf-engine/pkg/storage"
)

// File names used by FileStorage.
const (
	GameStateFile = "game_state.json"
	NotesFile     = ".gm_notes.json"

	scenePrefix    = "scene_"
	sceneSuffix    = ".txt"
	thoughtsPrefix = "_npc_thoughts_"
)

// FileStorage keeps a single game as plain files in one directory. Game IDs
// are accepted for interface compatibility and otherwise ignored.
type FileStorage struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// Ensure FileStorage implements Storage interface
var _ pkgstorage.Storage = (*FileStorage)(nil)

// NewFileStorage creates a file storage rooted at dir.
func NewFileStorage(dir string, logger *slog.Logger) *FileStorage {
	if dir == "" {
		dir = "."
	}
	return &FileStorage{dir: dir, logger: logger}
}

// Dir returns the storage directory.
func (f *FileStorage) Dir() string {
	return f.dir
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("state directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("state directory %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

// writeAtomic writes data to name through a temp file and a rename, so a
// reader never sees a partial file.
func (f *FileStorage) writeAtomic(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (f *FileStorage) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return f.writeAtomic(name, data)
}

// readJSON reports false when the file does not exist.
func (f *FileStorage) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

func (f *FileStorage) remove(name string) error {
	err := os.Remove(filepath.Join(f.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// GameState operations

func (f *FileStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	return f.writeJSON(GameStateFile, gs)
}

func (f *FileStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	found, err := f.readJSON(GameStateFile, &gs)
	if err != nil || !found {
		return nil, err
	}
	return &gs, nil
}

func (f *FileStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	return f.remove(GameStateFile)
}

// Notes operations

func (f *FileStorage) SaveNotes(ctx context.Context, id uuid.UUID, notes *state.Notes) error {
	if notes == nil {
		return errors.New("notes cannot be nil")
	}
	return f.writeJSON(NotesFile, notes)
}

func (f *FileStorage) LoadNotes(ctx context.Context, id uuid.UUID) (*state.Notes, error) {
	notes := state.NewNotes()
	found, err := f.readJSON(NotesFile, notes)
	if err != nil || !found {
		return nil, err
	}
	return notes, nil
}

func (f *FileStorage) DeleteNotes(ctx context.Context, id uuid.UUID) error {
	return f.remove(NotesFile)
}

// Scene operations

// SceneFile returns the file name holding the scene stored under key.
func SceneFile(key string) string {
	return scenePrefix + key + sceneSuffix
}

func (f *FileStorage) SaveScene(ctx context.Context, id uuid.UUID, key, text string) error {
	return f.writeAtomic(SceneFile(key), []byte(text))
}

func (f *FileStorage) LoadScene(ctx context.Context, id uuid.UUID, key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, SceneFile(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read scene %s: %w", key, err)
	}
	return string(data), nil
}

func (f *FileStorage) ListScenes(ctx context.Context, id uuid.UUID) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	keys := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, scenePrefix) || !strings.HasSuffix(name, sceneSuffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, scenePrefix), sceneSuffix))
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *FileStorage) ClearScenes(ctx context.Context, id uuid.UUID) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read state directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		scene := strings.HasPrefix(name, scenePrefix) && strings.HasSuffix(name, sceneSuffix)
		thoughts := strings.HasPrefix(name, thoughtsPrefix) && strings.HasSuffix(name, ".json")
		if e.IsDir() || !(scene || thoughts) {
			continue
		}
		if err := f.remove(name); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileStorage) SaveThoughts(ctx context.Context, id uuid.UUID, key string, thoughts map[string]string) error {
	return f.writeJSON(thoughtsPrefix+key+".json", thoughts)
}

// Character operations

func (f *FileStorage) ListCharacters(ctx context.Context) ([]actor.Character, error) {
	return loadCharacters(f.dir, f.logger)
}
