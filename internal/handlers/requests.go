package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/werewolf-engine/internal/services/events"
	"github.com/jwebster45206/werewolf-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/werewolf-engine/pkg/queue"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/storage"
)

// RequestHandler hands game operations to the worker queue. Results arrive
// on the game's event stream.
type RequestHandler struct {
	storage     storage.Storage
	requests    *queue.RequestQueue
	lines       *queue.LineQueue
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

func NewRequestHandler(storage storage.Storage, requests *queue.RequestQueue, lines *queue.LineQueue, broadcaster *events.Broadcaster, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{
		storage:     storage,
		requests:    requests,
		lines:       lines,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

type EnqueueResponse struct {
	RequestID  string `json:"request_id"`
	QueueDepth int    `json:"queue_depth"`
}

// load writes a 404 and returns nil when the game is unknown.
func (h *RequestHandler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) *state.GameState {
	gs, err := h.storage.LoadGameState(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load game state", "game_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return nil
	}
	if gs == nil {
		respondError(w, h.logger, http.StatusNotFound, "Game not found")
		return nil
	}
	return gs
}

const deadPlayerMessage = "The player is dead and cannot speak."

// Enqueue queues one request for the game.
// POST /v1/games/{id}/requests
func (h *RequestHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	var req queuePkg.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with a 'type' field.")
		return
	}
	req.GameStateID = id
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if err := req.Validate(); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	gs := h.load(w, r, id)
	if gs == nil {
		return
	}
	if req.Type == queuePkg.RequestTypeDiscussion && strings.TrimSpace(req.Message) != "" && !gs.IsAlive(gs.Player) {
		respondError(w, h.logger, http.StatusConflict, deadPlayerMessage)
		return
	}

	ctx := r.Context()
	if err := h.requests.EnqueueRequest(ctx, &req); err != nil {
		h.logger.Error("Failed to enqueue request", "game_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to enqueue request")
		return
	}
	if err := h.broadcaster.PublishRequestQueued(ctx, id, req.RequestID, string(req.Type)); err != nil {
		h.logger.Warn("Failed to publish queued event", "request_id", req.RequestID, "error", err)
	}

	depth, err := h.requests.RequestQueueDepth(ctx)
	if err != nil {
		h.logger.Warn("Failed to read queue depth", "error", err)
	}
	h.logger.Info("Request queued", "game_id", id, "request_id", req.RequestID, "type", req.Type)
	respond(w, h.logger, http.StatusAccepted, EnqueueResponse{RequestID: req.RequestID, QueueDepth: depth})
}

// LineRequest is the body of POST /v1/games/{id}/lines.
type LineRequest struct {
	Line string `json:"line"`
}

// QueueLine stores a line for the human to say when the next discussion
// runs.
// POST /v1/games/{id}/lines
func (h *RequestHandler) QueueLine(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	var req LineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with a 'line' field.")
		return
	}
	line := strings.TrimSpace(req.Line)
	if line == "" {
		respondError(w, h.logger, http.StatusBadRequest, "Line cannot be empty.")
		return
	}
	gs := h.load(w, r, id)
	if gs == nil {
		return
	}
	if !gs.IsAlive(gs.Player) {
		respondError(w, h.logger, http.StatusConflict, deadPlayerMessage)
		return
	}

	if err := h.lines.Enqueue(r.Context(), id, line); err != nil {
		h.logger.Error("Failed to queue line", "game_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to queue line")
		return
	}
	depth, err := h.lines.Depth(r.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to read line depth", "error", err)
	}
	respond(w, h.logger, http.StatusAccepted, map[string]int{"depth": depth})
}
