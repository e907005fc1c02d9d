package gm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/pkg/chat"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/textfilter"
	"github.com/jwebster45206/werewolf-engine/pkg/validator"
)

// ErrRetriesExhausted is matched by a ValidationError.
var ErrRetriesExhausted = errors.New("scene failed validation on every attempt")

// ValidationError carries the violations of the last rejected attempt.
type ValidationError struct {
	Key        string
	Attempts   int
	Violations []validator.Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %s\n%s", ErrRetriesExhausted, e.Attempts, e.Key, validator.Format(e.Violations))
}

func (e *ValidationError) Unwrap() error { return ErrRetriesExhausted }

// SceneOutcome is an accepted scene.
type SceneOutcome struct {
	Key      string                `json:"key"`
	Text     string                `json:"text"`
	Attempts int                   `json:"attempts"`
	Claims   int                   `json:"new_claims,omitempty"`
	Errored  []string              `json:"errored,omitempty"`
	Rejected []validator.Violation `json:"rejected,omitempty"`
}

// Discussion runs one multi-agent discussion round for the current day.
// playerLine, when set, opens the scene as the human's line. A rejected scene
// is regenerated with the violations fed back to every speaker.
func (m *Master) Discussion(ctx context.Context, playerLine string, progress chan<- agents.Progress) (*SceneOutcome, error) {
	m.mu.Lock()
	if m.gs == nil {
		m.mu.Unlock()
		return nil, ErrNoGame
	}
	if m.gs.Phase != state.PhaseDayDiscussion {
		phase := m.gs.Phase
		m.mu.Unlock()
		return nil, fmt.Errorf("discussion needs day_discussion, game is in %s", phase)
	}
	if strings.TrimSpace(playerLine) != "" && !m.gs.IsAlive(m.gs.Player) {
		m.mu.Unlock()
		return nil, ErrPlayerDead
	}

	n, err := m.discussionCount(ctx, m.gs.Day)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	disc := n + 1
	key := prompts.DiscussionKey(m.gs.Day, disc)

	m.brief(disc == 1)
	if err := m.store.SaveNotes(ctx, m.gs.ID, m.notes); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	prior, err := m.dayDiscussions(ctx, m.gs.Day, n, true)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if prior != "" {
		prior = prompts.PriorDiscussionHeader + "\n" + prior
	}

	gs, notes, err := m.snapshot()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, p := range gs.Alive() {
		if p.Name != gs.Player {
			names = append(names, p.Name)
		}
	}
	var bluffers []string
	if disc == 1 {
		bluffers = notes.PendingCounterClaims(gs)
		names = agents.OrderForClaims(names, bluffers)
	}
	hints := agents.BuildClaimHints(gs, bluffers, disc)
	waves := agents.BuildWaves(names, hints)

	var line string
	if strings.TrimSpace(playerLine) != "" {
		line = chat.FormatAsLine(playerLine, gs.Player)
	}

	m.logger.Info("Running discussion", "game_id", gs.ID, "key", key, "speakers", len(names), "waves", len(waves))

	var (
		out      *agents.Output
		rejected []validator.Violation
		feedback string
		attempt  int
	)
	for attempt = 1; attempt <= m.maxRetries; attempt++ {
		out, err = m.agents.Run(ctx, gs, notes, agents.Request{
			Waves:        waves,
			Hints:        agents.AddFeedback(hints, names, feedback),
			PriorContext: prior,
			PlayerLine:   line,
		}, progress)
		if err != nil {
			return nil, err
		}

		vs := validator.Validate(gs, out.Scene, validator.Options{})
		if len(vs) == 0 {
			break
		}
		rejected = vs
		feedback = validator.Format(vs)
		m.logger.Warn("Discussion rejected", "key", key, "attempt", attempt, "violations", feedback)
	}
	if attempt > m.maxRetries {
		return nil, &ValidationError{Key: key, Attempts: m.maxRetries, Violations: rejected}
	}

	if err := m.commitDiscussion(ctx, gs, key, out, attempt); err != nil {
		return nil, err
	}

	found := m.requestClaims(ctx, gs, out.Scene)
	claims, err := m.recordClaims(ctx, gs, found)
	if err != nil {
		return nil, err
	}

	return &SceneOutcome{
		Key:      key,
		Text:     out.Scene,
		Attempts: attempt,
		Claims:   claims,
		Errored:  out.Errored(),
		Rejected: rejected,
	}, nil
}

// commitDiscussion stores an accepted discussion unless the game moved on
// from gs while it was generated.
func (m *Master) commitDiscussion(ctx context.Context, gs *state.GameState, key string, out *agents.Output, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if changed(m.gs, gs) {
		return ErrStateChanged
	}
	if err := m.store.SaveScene(ctx, gs.ID, key, out.Scene); err != nil {
		return err
	}
	if err := m.store.SaveThoughts(ctx, gs.ID, key, out.Thoughts); err != nil {
		return err
	}
	m.record(ctx, key, out.Scene, attempts, out.Thoughts)
	return nil
}

// changed reports whether the live game moved on from snap.
func changed(live, snap *state.GameState) bool {
	return live.ID != snap.ID || live.Day != snap.Day || live.Phase != snap.Phase || len(live.Log) != len(snap.Log)
}

// record archives an accepted scene. Archive failures are logged only.
func (m *Master) record(ctx context.Context, key, text string, attempts int, thoughts map[string]string) {
	if m.archive == nil {
		return
	}
	if err := m.archive.RecordScene(ctx, m.gs.ID, key, text, attempts); err != nil {
		m.logger.Warn("Failed to archive scene", "key", key, "error", err)
	}
	if err := m.archive.RecordThoughts(ctx, m.gs.ID, key, thoughts); err != nil {
		m.logger.Warn("Failed to archive thoughts", "key", key, "error", err)
	}
}

// Scene generates a single-prompt scene. The vote scene acts out the NPC
// ballots that ResolveVote will cast. The execution scene lets the executed
// player speak; finale scenes may reveal roles and let the dead speak.
func (m *Master) Scene(ctx context.Context, kind prompts.SceneKind, progress chan<- agents.Progress) (*SceneOutcome, error) {
	if progress != nil {
		defer func() {
			select {
			case progress <- agents.Progress{Kind: agents.ProgressDone}:
			case <-ctx.Done():
			}
		}()
	}

	m.mu.Lock()
	if m.gs == nil {
		m.mu.Unlock()
		return nil, ErrNoGame
	}

	builder := prompts.NewScene(kind).
		WithGameState(m.gs).
		WithNotes(m.notes).
		WithRoster(m.roster)

	opts := validator.Options{Finale: kind.Finale()}
	switch kind {
	case prompts.SceneVote:
		n, err := m.discussionCount(ctx, m.gs.Day)
		if err == nil {
			var text string
			if text, err = m.dayDiscussions(ctx, m.gs.Day, n, false); err == nil {
				builder.WithDiscussion(text)
			}
		}
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		builder.WithBallots(m.ballots(m.pendingVotes()))
		if err := m.store.SaveNotes(ctx, m.gs.ID, m.notes); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	case prompts.SceneExecution:
		opts.Protagonist = prompts.ExecutedToday(m.gs)
	}

	prompt, err := builder.Build()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	key := kind.Key(m.gs.Day)
	gs, _, err := m.snapshot()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if progress != nil {
		select {
		case progress <- agents.Progress{Kind: agents.ProgressTyping, Name: string(kind)}:
		case <-ctx.Done():
		}
	}

	text, attempts, rejected, err := m.generateValidated(ctx, gs, key, prompt, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if changed(m.gs, gs) {
		return nil, ErrStateChanged
	}
	if err := m.store.SaveScene(ctx, gs.ID, key, text); err != nil {
		return nil, err
	}
	m.record(ctx, key, text, attempts, nil)

	if progress != nil {
		select {
		case progress <- agents.Progress{Kind: agents.ProgressLine, Name: string(kind), Text: text}:
		case <-ctx.Done():
		}
	}
	return &SceneOutcome{Key: key, Text: text, Attempts: attempts, Rejected: rejected}, nil
}

// generateValidated asks the backend for prompt until the result passes the
// validator, appending the violations to the prompt after each rejection.
func (m *Master) generateValidated(ctx context.Context, gs *state.GameState, key, prompt string, opts validator.Options) (string, int, []validator.Violation, error) {
	req := chat.NewPrompt(prompts.SystemInstruction, prompt)
	var rejected []validator.Violation

	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		m.logger.Debug("Generating scene", "key", key, "attempt", attempt)
		raw, err := m.gen.Generate(ctx, req)
		if err != nil {
			return "", attempt, rejected, fmt.Errorf("failed to generate %s: %w", key, err)
		}
		text := strings.TrimSpace(textfilter.StripCodeFence(raw)) + "\n"

		vs := validator.Validate(gs, text, opts)
		if len(vs) == 0 {
			return text, attempt, rejected, nil
		}
		rejected = vs
		m.logger.Warn("Scene rejected", "key", key, "attempt", attempt, "violations", validator.Format(vs))
		req = chat.NewPrompt(prompts.SystemInstruction, prompt).Append(prompts.RetryFeedback(validator.Format(vs)))
	}
	return "", m.maxRetries, rejected, &ValidationError{Key: key, Attempts: m.maxRetries, Violations: rejected}
}

type claimResponse struct {
	Claims []struct {
		Name string     `json:"name"`
		Role state.Role `json:"role"`
	} `json:"co_claims"`
}

var claimableRoles = []state.Role{state.RoleSeer, state.RoleMedium, state.RoleBodyguard}

// claim is one role claim found in a scene.
type claim struct {
	Name string
	Role state.Role
}

// ExtractClaims records the role claims made in text and persists the notes.
// It returns how many new claims were recorded. The backend is called
// without holding the lock.
func (m *Master) ExtractClaims(ctx context.Context, text string) (int, error) {
	m.mu.Lock()
	gs, _, err := m.snapshot()
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return m.recordClaims(ctx, gs, m.requestClaims(ctx, gs, text))
}

// requestClaims asks the backend which seated players claimed a role in
// text. Backend and parse failures are logged and yield no claims.
func (m *Master) requestClaims(ctx context.Context, gs *state.GameState, text string) []claim {
	raw, err := m.gen.Generate(ctx, chat.NewPrompt(prompts.SystemInstruction, prompts.ClaimExtraction(text)))
	if err != nil {
		m.logger.Debug("Claim extraction failed", "error", err)
		return nil
	}
	var resp claimResponse
	if err := json.Unmarshal([]byte(textfilter.StripCodeFence(raw)), &resp); err != nil {
		m.logger.Debug("Claim extraction returned invalid JSON", "error", err)
		return nil
	}

	var out []claim
	for _, c := range resp.Claims {
		if c.Name == "" || gs.Get(c.Name) == nil || !slices.Contains(claimableRoles, c.Role) {
			continue
		}
		out = append(out, claim{Name: c.Name, Role: c.Role})
	}
	return out
}

// recordClaims stores claims made on the day of gs. Claims for a game that
// is no longer loaded are dropped.
func (m *Master) recordClaims(ctx context.Context, gs *state.GameState, claims []claim) (int, error) {
	if len(claims) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil || m.gs.ID != gs.ID {
		return 0, ErrStateChanged
	}

	n := 0
	for _, c := range claims {
		if m.notes.RecordClaim(c.Name, c.Role, gs.Day) {
			m.logger.Info("Claim recorded", "name", c.Name, "role", c.Role, "day", gs.Day)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := m.store.SaveNotes(ctx, m.gs.ID, m.notes); err != nil {
		return 0, err
	}
	return n, nil
}
