package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued     EventType = "request.queued"
	EventTypeRequestProcessing EventType = "request.processing"
	EventTypeRequestCompleted  EventType = "request.completed"
	EventTypeRequestFailed     EventType = "request.failed"
	EventTypeAgentTyping       EventType = "agent.typing"
	EventTypeAgentLine         EventType = "agent.line"
	EventTypeAgentError        EventType = "agent.error"
	EventTypeAgentDone         EventType = "agent.done"
	EventTypeGameStateUpdated  EventType = "game.state_updated"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes events to Redis Pub/Sub for live viewers
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, gameID uuid.UUID, requestID string, requestType string) error {
	event := Event{
		Type:      EventTypeRequestQueued,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status": "queued",
			"type":   requestType,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, gameID uuid.UUID, requestID string, requestType string, userMessage string) error {
	event := Event{
		Type:      EventTypeRequestProcessing,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status":       "processing",
			"type":         requestType,
			"user_message": userMessage,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, gameID uuid.UUID, requestID string, result map[string]any) error {
	event := Event{
		Type:      EventTypeRequestCompleted,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error {
	event := Event{
		Type:      EventTypeRequestFailed,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishAgent publishes a discussion progress event. kind is one of
// typing, line, error or done.
func (b *Broadcaster) PublishAgent(ctx context.Context, gameID uuid.UUID, requestID string, kind string, name string, text string) error {
	var t EventType
	switch kind {
	case "typing":
		t = EventTypeAgentTyping
	case "line":
		t = EventTypeAgentLine
	case "error":
		t = EventTypeAgentError
	case "done":
		t = EventTypeAgentDone
	default:
		return fmt.Errorf("unknown agent event kind %q", kind)
	}
	data := map[string]any{}
	if name != "" {
		data["name"] = name
	}
	if text != "" {
		data["text"] = text
	}
	event := Event{
		Type:      t,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data:      data,
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishGameStateUpdated publishes a game.state_updated event
func (b *Broadcaster) PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, day int, phase string) error {
	event := Event{
		Type:   EventTypeGameStateUpdated,
		GameID: gameID.String(),
		Data: map[string]any{
			"day":   day,
			"phase": phase,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// Channel is the pub/sub channel carrying a game's events.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
