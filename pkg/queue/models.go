package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeDiscussion runs one discussion round, optionally opened by
	// the human player's line.
	RequestTypeDiscussion RequestType = "discussion"

	// RequestTypeScene generates a single-prompt scene (morning, vote, ...).
	RequestTypeScene RequestType = "scene"

	// RequestTypeNight resolves the night with the human's night action.
	RequestTypeNight RequestType = "night"

	// RequestTypeVote resolves the vote with the human's ballot.
	RequestTypeVote RequestType = "vote"
)

// Request represents a unified request in the queue
type Request struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	GameStateID uuid.UUID   `json:"game_state_id"`

	// Discussion-specific fields
	Message string `json:"message,omitempty"`

	// Scene-specific fields
	Scene string `json:"scene,omitempty"`

	// Night-specific fields
	Seer   string `json:"seer,omitempty"`
	Guard  string `json:"guard,omitempty"`
	Attack string `json:"attack,omitempty"`

	// Vote-specific fields. An empty vote abstains.
	Vote string `json:"vote,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks that the fields required by the request type are set.
func (r *Request) Validate() error {
	if r.GameStateID == uuid.Nil {
		return fmt.Errorf("game_state_id is required")
	}
	switch r.Type {
	case RequestTypeDiscussion, RequestTypeNight, RequestTypeVote:
	case RequestTypeScene:
		if r.Scene == "" {
			return fmt.Errorf("scene is required for %s requests", r.Type)
		}
	default:
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	return nil
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		GameStateID string `json:"game_state_id"`
		*Alias
	}{
		GameStateID: r.GameStateID.String(),
		Alias:       (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		GameStateID string `json:"game_state_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	// An absent id is left for Validate to report.
	if aux.GameStateID == "" {
		r.GameStateID = uuid.Nil
		return nil
	}
	gameStateID, err := uuid.Parse(aux.GameStateID)
	if err != nil {
		return err
	}

	r.GameStateID = gameStateID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
