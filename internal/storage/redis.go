package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	pkgstorage "github.com/jwebster45206/werewolf-engine/pkg/storage"
)

// gameTTL is how long an idle game survives in Redis.
const gameTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for games
// and the filesystem for characters
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ pkgstorage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		if parsed, err := redis.ParseURL(redisURL); err == nil {
			opt = parsed
		} else {
			logger.Warn("Invalid redis URL, using it as an address", "url", redisURL, "error", err)
		}
	}
	rdb := redis.NewClient(opt)

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func gameKey(id uuid.UUID) string     { return "gamestate:" + id.String() }
func notesKey(id uuid.UUID) string    { return "notes:" + id.String() }
func scenesKey(id uuid.UUID) string   { return "scenes:" + id.String() }
func thoughtsKey(id uuid.UUID) string { return "thoughts:" + id.String() }

// setJSON stores v under key with the game TTL.
func (r *RedisStorage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, gameTTL).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// getJSON loads key into v. It reports false when the key does not exist.
func (r *RedisStorage) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// GameState operations

func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now().UTC()
	if err := r.setJSON(ctx, gameKey(id), gs); err != nil {
		r.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return err
	}
	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	found, err := r.getJSON(ctx, gameKey(id), &gs)
	if err != nil {
		r.logger.Error("Failed to load gamestate", "uuid", id, "error", err)
		return nil, err
	}
	if !found {
		r.logger.Warn("Gamestate not found", "uuid", id)
		return nil, nil // Return nil for not found
	}
	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, gameKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

// Notes operations

func (r *RedisStorage) SaveNotes(ctx context.Context, id uuid.UUID, notes *state.Notes) error {
	if notes == nil {
		return errors.New("notes cannot be nil")
	}
	return r.setJSON(ctx, notesKey(id), notes)
}

func (r *RedisStorage) LoadNotes(ctx context.Context, id uuid.UUID) (*state.Notes, error) {
	notes := state.NewNotes()
	found, err := r.getJSON(ctx, notesKey(id), notes)
	if err != nil || !found {
		return nil, err
	}
	return notes, nil
}

func (r *RedisStorage) DeleteNotes(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, notesKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete notes: %w", err)
	}
	return nil
}

// Scene operations (one hash per game)

func (r *RedisStorage) SaveScene(ctx context.Context, id uuid.UUID, key, text string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, scenesKey(id), key, text)
		pipe.Expire(ctx, scenesKey(id), gameTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save scene %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) LoadScene(ctx context.Context, id uuid.UUID, key string) (string, error) {
	text, err := r.client.HGet(ctx, scenesKey(id), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load scene %s: %w", key, err)
	}
	return text, nil
}

func (r *RedisStorage) ListScenes(ctx context.Context, id uuid.UUID) ([]string, error) {
	keys, err := r.client.HKeys(ctx, scenesKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (r *RedisStorage) ClearScenes(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, scenesKey(id), thoughtsKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear scenes: %w", err)
	}
	return nil
}

func (r *RedisStorage) SaveThoughts(ctx context.Context, id uuid.UUID, key string, thoughts map[string]string) error {
	data, err := json.Marshal(thoughts)
	if err != nil {
		return fmt.Errorf("failed to marshal thoughts: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, thoughtsKey(id), key, data)
		pipe.Expire(ctx, thoughtsKey(id), gameTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save thoughts %s: %w", key, err)
	}
	return nil
}

// Character operations (filesystem-backed)

func (r *RedisStorage) ListCharacters(ctx context.Context) ([]actor.Character, error) {
	return loadCharacters(r.dataDir, r.logger)
}
