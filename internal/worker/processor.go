package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/internal/services/queue"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	queuePkg "github.com/jwebster45206/werewolf-engine/pkg/queue"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/storage"
)

// Outcome is a processed request: the data published on completion and the
// game as it stands afterwards.
type Outcome struct {
	Data  map[string]any
	State *state.GameState
}

// Processor runs queued requests against a game master. A fresh master is
// loaded for every request so several workers can share one store.
type Processor struct {
	storage storage.Storage
	gen     services.Generator
	lines   *queue.LineQueue
	logger  *slog.Logger
	opts    []gm.Option
}

// NewProcessor creates a processor. lines may be nil when player lines are
// not queued separately.
func NewProcessor(store storage.Storage, gen services.Generator, lines *queue.LineQueue, logger *slog.Logger, opts ...gm.Option) *Processor {
	return &Processor{
		storage: store,
		gen:     gen,
		lines:   lines,
		logger:  logger,
		opts:    opts,
	}
}

// Process handles one request. Discussion and scene progress is sent on
// progress when it is non-nil.
func (p *Processor) Process(ctx context.Context, req *queuePkg.Request, progress chan<- agents.Progress) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	m, err := gm.New(ctx, p.storage, p.gen, p.logger, p.opts...)
	if err != nil {
		return nil, err
	}
	if err := m.Load(ctx, req.GameStateID); err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", req.GameStateID, err)
	}

	var data map[string]any
	switch req.Type {
	case queuePkg.RequestTypeDiscussion:
		data, err = p.discussion(ctx, m, req, progress)
	case queuePkg.RequestTypeScene:
		data, err = p.scene(ctx, m, req, progress)
	case queuePkg.RequestTypeNight:
		data, err = p.night(ctx, m, req)
	case queuePkg.RequestTypeVote:
		data, err = p.vote(ctx, m, req)
	default:
		err = fmt.Errorf("unknown request type: %s", req.Type)
	}
	if err != nil {
		return nil, err
	}

	gs, err := m.State()
	if err != nil {
		return nil, err
	}
	return &Outcome{Data: data, State: gs}, nil
}

func (p *Processor) discussion(ctx context.Context, m *gm.Master, req *queuePkg.Request, progress chan<- agents.Progress) (map[string]any, error) {
	lines := []string{req.Message}
	if p.lines != nil {
		queued, err := p.lines.Dequeue(ctx, req.GameStateID)
		if err != nil {
			p.logger.Error("Error reading queued player lines", "error", err, "game_state_id", req.GameStateID.String())
		}
		lines = append(queued, req.Message)
	}

	line := queue.Join(lines)
	if line != "" {
		gs, err := m.State()
		if err != nil {
			return nil, err
		}
		if !gs.IsAlive(gs.Player) && req.Message == "" {
			p.logger.Warn("Dropping lines queued by a dead player", "game_state_id", req.GameStateID.String(), "lines", len(lines)-1)
			line = ""
		}
	}

	out, err := m.Discussion(ctx, line, progress)
	if err != nil {
		return nil, err
	}
	return sceneData(out), nil
}

func (p *Processor) scene(ctx context.Context, m *gm.Master, req *queuePkg.Request, progress chan<- agents.Progress) (map[string]any, error) {
	kind, err := prompts.ParseSceneKind(req.Scene)
	if err != nil {
		return nil, err
	}
	out, err := m.Scene(ctx, kind, progress)
	if err != nil {
		return nil, err
	}
	return sceneData(out), nil
}

func sceneData(out *gm.SceneOutcome) map[string]any {
	data := map[string]any{
		"key":      out.Key,
		"message":  out.Text,
		"attempts": out.Attempts,
	}
	if out.Claims > 0 {
		data["new_claims"] = out.Claims
	}
	if len(out.Errored) > 0 {
		data["errored"] = out.Errored
	}
	return data
}

func (p *Processor) night(ctx context.Context, m *gm.Master, req *queuePkg.Request) (map[string]any, error) {
	out, err := m.ResolveNight(ctx, engine.NightActions{Attack: req.Attack, Seer: req.Seer, Guard: req.Guard})
	if err != nil {
		return nil, err
	}
	if out.Need.Any() {
		return map[string]any{"need_input": out.Need}, nil
	}
	return map[string]any{
		"victim":  out.Result.Victim,
		"guarded": out.Result.Guarded,
		"win":     out.Result.Win,
	}, nil
}

func (p *Processor) vote(ctx context.Context, m *gm.Master, req *queuePkg.Request) (map[string]any, error) {
	out, err := m.ResolveVote(ctx, req.Vote)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"executed":  out.Result.Executed,
		"tally":     out.Result.Tally,
		"ballots":   out.Ballots,
		"win":       out.Result.Win,
	}, nil
}
