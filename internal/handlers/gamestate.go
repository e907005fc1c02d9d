package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/storage"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	respond(w, logger, status, ErrorResponse{Error: msg})
}

// gameID parses the {id} path value.
func gameID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid game ID format")
	}
	return id, nil
}

type GameStateHandler struct {
	storage storage.Storage
	logger  *slog.Logger

	// DebugViews lets ReadView project characters other than the human.
	DebugViews bool

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGameStateHandler(storage storage.Storage, logger *slog.Logger, rng *rand.Rand) *GameStateHandler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &GameStateHandler{
		storage: storage,
		logger:  logger,
		rng:     rng,
	}
}

// CreateGameRequest is the body of POST /v1/games. An empty player seats a
// random character.
type CreateGameRequest struct {
	Player string `json:"player"`
}

// CreateGameResponse tells the human who they are. The rest of the roles stay
// hidden.
type CreateGameResponse struct {
	ID      uuid.UUID  `json:"id"`
	Player  string     `json:"player"`
	Role    state.Role `json:"role"`
	Players []string   `json:"players"`
}

// Create deals a new game.
// POST /v1/games
func (h *GameStateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid create game body", "error", err)
			respondError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with optional 'player' field.")
			return
		}
	}

	h.mu.Lock()
	gs, err := state.NewGame(req.Player, h.rng)
	h.mu.Unlock()
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if err := h.storage.SaveGameState(ctx, gs.ID, gs); err != nil {
		h.logger.Error("Failed to save game state", "game_id", gs.ID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to save game state")
		return
	}
	if err := h.storage.SaveNotes(ctx, gs.ID, state.NewNotes()); err != nil {
		h.logger.Error("Failed to save notes", "game_id", gs.ID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to save game state")
		return
	}

	h.logger.Info("Game created", "game_id", gs.ID, "player", gs.Player)
	resp := CreateGameResponse{ID: gs.ID, Player: gs.Player, Players: gs.Names()}
	if p := gs.Get(gs.Player); p != nil {
		resp.Role = p.Role
	}
	respond(w, h.logger, http.StatusCreated, resp)
}

// load fetches the game and its notes, writing a 4xx/5xx on failure.
func (h *GameStateHandler) load(w http.ResponseWriter, r *http.Request) (*state.GameState, *state.Notes, bool) {
	id, err := gameID(r)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	gs, err := h.storage.LoadGameState(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load game state", "game_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return nil, nil, false
	}
	if gs == nil {
		respondError(w, h.logger, http.StatusNotFound, "Game not found")
		return nil, nil, false
	}
	notes, err := h.storage.LoadNotes(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load notes", "game_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return nil, nil, false
	}
	if notes == nil {
		notes = state.NewNotes()
	}
	return gs, notes, true
}

// Read returns what the human player can see.
// GET /v1/games/{id}
func (h *GameStateHandler) Read(w http.ResponseWriter, r *http.Request) {
	gs, notes, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeView(w, gs, notes, gs.Player)
}

// ReadView returns what one named character can see. Only the human's own
// view is served unless DebugViews is set.
// GET /v1/games/{id}/view/{name}
func (h *GameStateHandler) ReadView(w http.ResponseWriter, r *http.Request) {
	gs, notes, ok := h.load(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	if name != gs.Player && !h.DebugViews {
		respondError(w, h.logger, http.StatusForbidden, "Only the player's own view is available")
		return
	}
	h.writeView(w, gs, notes, name)
}

func (h *GameStateHandler) writeView(w http.ResponseWriter, gs *state.GameState, notes *state.Notes, name string) {
	v, err := view.Project(gs, notes, name)
	if err != nil {
		respondError(w, h.logger, http.StatusNotFound, err.Error())
		return
	}
	respond(w, h.logger, http.StatusOK, v)
}

// ListScenes returns the stored scene keys in order.
// GET /v1/games/{id}/scenes
func (h *GameStateHandler) ListScenes(w http.ResponseWriter, r *http.Request) {
	gs, _, ok := h.load(w, r)
	if !ok {
		return
	}
	keys, err := h.storage.ListScenes(r.Context(), gs.ID)
	if err != nil {
		h.logger.Error("Failed to list scenes", "game_id", gs.ID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to list scenes")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	respond(w, h.logger, http.StatusOK, map[string]any{"scenes": keys})
}

// ReadScene returns one scene's text.
// GET /v1/games/{id}/scenes/{key}
func (h *GameStateHandler) ReadScene(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	key := r.PathValue("key")
	text, err := h.storage.LoadScene(r.Context(), id, key)
	if err != nil {
		h.logger.Error("Failed to load scene", "game_id", id, "key", key, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to load scene")
		return
	}
	if text == "" {
		respondError(w, h.logger, http.StatusNotFound, "Scene not found")
		return
	}
	respond(w, h.logger, http.StatusOK, map[string]string{"key": key, "text": text})
}

// Delete removes the game, its notes and its scenes.
// DELETE /v1/games/{id}
func (h *GameStateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	for _, del := range []func() error{
		func() error { return h.storage.ClearScenes(ctx, id) },
		func() error { return h.storage.DeleteNotes(ctx, id) },
		func() error { return h.storage.DeleteGameState(ctx, id) },
	} {
		if err := del(); err != nil {
			h.logger.Error("Failed to delete game", "game_id", id, "error", err)
			respondError(w, h.logger, http.StatusInternalServerError, "Failed to delete game")
			return
		}
	}
	h.logger.Info("Game deleted", "game_id", id)
	w.WriteHeader(http.StatusNoContent)
}
