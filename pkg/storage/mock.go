package storage

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	gamestates map[uuid.UUID]*state.GameState
	notes      map[uuid.UUID]*state.Notes
	scenes     map[uuid.UUID]map[string]string
	thoughts   map[uuid.UUID]map[string]map[string]string
	characters []actor.Character
	pingError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		gamestates: make(map[uuid.UUID]*state.GameState),
		notes:      make(map[uuid.UUID]*state.Notes),
		scenes:     make(map[uuid.UUID]map[string]string),
		thoughts:   make(map[uuid.UUID]map[string]map[string]string),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveGameState mocks saving a gamestate
func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gamestate *state.GameState) error {
	if gamestate == nil {
		return errors.New("gamestate cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gamestates[id] = gamestate
	return nil
}

// LoadGameState mocks loading a gamestate
func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gamestate, exists := m.gamestates[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return gamestate, nil
}

// DeleteGameState mocks deleting a gamestate
func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gamestates, id)
	return nil
}

// SaveNotes mocks saving notes
func (m *MockStorage) SaveNotes(ctx context.Context, id uuid.UUID, notes *state.Notes) error {
	if notes == nil {
		return errors.New("notes cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[id] = notes
	return nil
}

// LoadNotes mocks loading notes
func (m *MockStorage) LoadNotes(ctx context.Context, id uuid.UUID) (*state.Notes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notes[id], nil
}

// DeleteNotes mocks deleting notes
func (m *MockStorage) DeleteNotes(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, id)
	return nil
}

// SaveScene mocks saving a scene
func (m *MockStorage) SaveScene(ctx context.Context, id uuid.UUID, key, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scenes[id] == nil {
		m.scenes[id] = make(map[string]string)
	}
	m.scenes[id][key] = text
	return nil
}

// LoadScene mocks loading a scene
func (m *MockStorage) LoadScene(ctx context.Context, id uuid.UUID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scenes[id][key], nil
}

// ListScenes mocks listing scene keys
func (m *MockStorage) ListScenes(ctx context.Context, id uuid.UUID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.scenes[id])), nil
}

// ClearScenes mocks removing every scene of a game
func (m *MockStorage) ClearScenes(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scenes, id)
	delete(m.thoughts, id)
	return nil
}

// SaveThoughts mocks saving discussion thoughts
func (m *MockStorage) SaveThoughts(ctx context.Context, id uuid.UUID, key string, thoughts map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.thoughts[id] == nil {
		m.thoughts[id] = make(map[string]map[string]string)
	}
	m.thoughts[id][key] = maps.Clone(thoughts)
	return nil
}

// Thoughts returns saved thoughts (for testing)
func (m *MockStorage) Thoughts(id uuid.UUID, key string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thoughts[id][key]
}

// ListCharacters mocks listing characters, falling back to the built-in cast
func (m *MockStorage) ListCharacters(ctx context.Context) ([]actor.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.characters) == 0 {
		return actor.DefaultCharacters(), nil
	}
	return slices.Clone(m.characters), nil
}

// AddCharacter adds a character to the mock storage (for testing)
func (m *MockStorage) AddCharacter(c actor.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters = append(m.characters, c)
}
