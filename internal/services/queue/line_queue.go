package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LineQueue holds the human player's lines submitted while a discussion is
// still being generated. The next discussion consumes them all.
type LineQueue struct {
	client *Client
}

func NewLineQueue(client *Client) *LineQueue {
	return &LineQueue{
		client: client,
	}
}

func lineKey(gameStateID uuid.UUID) string {
	return fmt.Sprintf("player-lines:%s", gameStateID.String())
}

// Enqueue adds a line to the end of the queue for a game
func (lq *LineQueue) Enqueue(ctx context.Context, gameStateID uuid.UUID, line string) error {
	if err := lq.client.rdb.RPush(ctx, lineKey(gameStateID), line).Err(); err != nil {
		return fmt.Errorf("failed to enqueue player line: %w", err)
	}
	return nil
}

// Dequeue removes and returns all queued lines for a game
func (lq *LineQueue) Dequeue(ctx context.Context, gameStateID uuid.UUID) ([]string, error) {
	key := lineKey(gameStateID)

	var lrange *redis.StringSliceCmd
	_, err := lq.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to dequeue player lines: %w", err)
	}
	return lrange.Val(), nil
}

// Peek returns queued lines without removing them
func (lq *LineQueue) Peek(ctx context.Context, gameStateID uuid.UUID, limit int) ([]string, error) {
	end := int64(limit - 1)
	if limit <= 0 {
		end = -1 // Get all
	}
	lines, err := lq.client.rdb.LRange(ctx, lineKey(gameStateID), 0, end).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to peek player lines: %w", err)
	}
	return lines, nil
}

// Clear removes all queued lines for a game
func (lq *LineQueue) Clear(ctx context.Context, gameStateID uuid.UUID) error {
	if err := lq.client.rdb.Del(ctx, lineKey(gameStateID)).Err(); err != nil {
		return fmt.Errorf("failed to clear player line queue: %w", err)
	}
	return nil
}

// Depth returns the number of lines queued for a game
func (lq *LineQueue) Depth(ctx context.Context, gameStateID uuid.UUID) (int, error) {
	count, err := lq.client.rdb.LLen(ctx, lineKey(gameStateID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

// Join concatenates lines into a single player contribution.
func Join(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
