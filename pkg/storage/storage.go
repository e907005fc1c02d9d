package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// Storage defines a unified interface for all storage operations.
// Loads that find nothing return a nil value and a nil error.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// Notes operations (advisory bookkeeping kept next to the game state)
	SaveNotes(ctx context.Context, id uuid.UUID, notes *state.Notes) error
	LoadNotes(ctx context.Context, id uuid.UUID) (*state.Notes, error)
	DeleteNotes(ctx context.Context, id uuid.UUID) error

	// Scene operations. Keys look like "day2_disc1" or "epilogue".
	SaveScene(ctx context.Context, id uuid.UUID, key, text string) error
	LoadScene(ctx context.Context, id uuid.UUID, key string) (string, error)
	ListScenes(ctx context.Context, id uuid.UUID) ([]string, error)
	ClearScenes(ctx context.Context, id uuid.UUID) error

	// SaveThoughts stores the hidden reasoning behind a discussion, keyed like
	// its scene.
	SaveThoughts(ctx context.Context, id uuid.UUID, key string, thoughts map[string]string) error

	// Character operations (personas are shared by every game)
	ListCharacters(ctx context.Context) ([]actor.Character, error)
}
