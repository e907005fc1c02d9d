// Package gm is the game master: it owns the authoritative game state and
// notes, runs every rule operation under one lock, and drives scene
// generation through the agents engine and the validator.
package gm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/archive"
	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/storage"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

// DefaultMaxRetries bounds validator-driven regeneration.
const DefaultMaxRetries = 3

var (
	// ErrNoGame is returned before Setup or Load has produced a game.
	ErrNoGame = errors.New("no game loaded")
	// ErrStateChanged is returned when the game moved on while a scene was
	// being generated from an older snapshot.
	ErrStateChanged = errors.New("game state changed during generation")
	// ErrPlayerDead is returned when a line is given for a human who is
	// no longer alive.
	ErrPlayerDead = errors.New("player is dead and cannot speak")
)

// Master serialises all access to one game.
type Master struct {
	mu sync.Mutex

	store   storage.Storage
	archive *archive.Store
	gen     services.Generator
	agents  *agents.Engine
	roster  actor.Roster
	rng     *rand.Rand
	logger  *slog.Logger

	maxRetries int
	claimProbs policy.ClaimProbabilities

	gs    *state.GameState
	notes *state.Notes
}

// Option configures a Master.
type Option func(*Master)

// WithArchive records accepted scenes and thoughts in a.
func WithArchive(a *archive.Store) Option {
	return func(m *Master) { m.archive = a }
}

// WithRand sets the random source used for setup and NPC decisions.
func WithRand(rng *rand.Rand) Option {
	return func(m *Master) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// WithMaxRetries sets how many generations a scene gets to pass validation.
func WithMaxRetries(n int) Option {
	return func(m *Master) {
		if n > 0 {
			m.maxRetries = n
		}
	}
}

// WithClaimProbabilities overrides the counter-claim odds.
func WithClaimProbabilities(p policy.ClaimProbabilities) Option {
	return func(m *Master) { m.claimProbs = p }
}

// WithAgentOptions configures the discussion engine.
func WithAgentOptions(opts ...agents.Option) Option {
	return func(m *Master) {
		m.agents = agents.New(m.gen, m.roster, m.logger, opts...)
	}
}

// New creates a master. The character roster is read from store once.
func New(ctx context.Context, store storage.Storage, gen services.Generator, logger *slog.Logger, opts ...Option) (*Master, error) {
	chars, err := store.ListCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}

	m := &Master{
		store:      store,
		gen:        gen,
		roster:     actor.NewRoster(chars),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		claimProbs: policy.DefaultClaimProbabilities,
	}
	m.agents = agents.New(gen, m.roster, logger)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Roster returns the loaded characters.
func (m *Master) Roster() actor.Roster {
	return m.roster
}

// Load reads a game and its notes from storage. Missing notes start empty.
func (m *Master) Load(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs, err := m.store.LoadGameState(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load game: %w", err)
	}
	if gs == nil {
		return ErrNoGame
	}
	notes, err := m.store.LoadNotes(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}
	if notes == nil {
		notes = state.NewNotes()
	}
	m.gs, m.notes = gs, notes
	return nil
}

// State returns a snapshot of the game.
func (m *Master) State() (*state.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}
	return m.gs.DeepCopy()
}

// Notes returns a snapshot of the notes.
func (m *Master) Notes() (*state.Notes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}
	return m.notes.DeepCopy()
}

// snapshot copies state and notes. Callers hold the lock.
func (m *Master) snapshot() (*state.GameState, *state.Notes, error) {
	if m.gs == nil {
		return nil, nil, ErrNoGame
	}
	gs, err := m.gs.DeepCopy()
	if err != nil {
		return nil, nil, err
	}
	notes, err := m.notes.DeepCopy()
	if err != nil {
		return nil, nil, err
	}
	return gs, notes, nil
}

// persist writes state and notes. Callers hold the lock.
func (m *Master) persist(ctx context.Context) error {
	if err := m.store.SaveGameState(ctx, m.gs.ID, m.gs); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if err := m.store.SaveNotes(ctx, m.gs.ID, m.notes); err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

// Setup deals a new game for player (random when empty), resets the notes
// and clears any scenes left from the previous game.
func (m *Master) Setup(ctx context.Context, player string) (*state.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs, err := state.NewGame(player, m.rng)
	if err != nil {
		return nil, err
	}
	if m.gs != nil {
		if err := m.store.ClearScenes(ctx, m.gs.ID); err != nil {
			return nil, err
		}
	}
	if err := m.store.ClearScenes(ctx, gs.ID); err != nil {
		return nil, err
	}

	m.gs, m.notes = gs, state.NewNotes()
	if err := m.persist(ctx); err != nil {
		return nil, err
	}
	m.logger.Info("Game set up", "game_id", gs.ID, "player", gs.Player)
	return gs.DeepCopy()
}

// NightOutcome is the result of ResolveNight. When Need has any flag set the
// night was not applied and Result is nil.
type NightOutcome struct {
	Actions engine.NightActions `json:"actions"`
	Need    policy.NeedInput    `json:"need_input"`
	Result  *engine.NightResult `json:"result,omitempty"`
}

// ResolveNight fills in NPC night actions, applies the night and persists.
func (m *Master) ResolveNight(ctx context.Context, human engine.NightActions) (*NightOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}

	actions, need := policy.DecideNightActions(m.gs, m.notes, human, m.rng)
	if need.Any() {
		return &NightOutcome{Actions: actions, Need: need}, nil
	}

	res, err := engine.New(m.gs, m.rng).ApplyNight(actions)
	if err != nil {
		return nil, err
	}
	m.notes.NPCSeerTarget, m.notes.NPCGuardTarget = "", ""
	m.notes.PendingVotes = nil
	m.revealMedium()

	if err := m.persist(ctx); err != nil {
		return nil, err
	}
	m.logger.Info("Night resolved", "game_id", m.gs.ID, "day", m.gs.Day, "victim", res.Victim, "win", res.Win)
	return &NightOutcome{Actions: actions, Result: res}, nil
}

// revealMedium publishes the reading of yesterday's execution when an NPC
// medium is alive and has publicly claimed.
func (m *Master) revealMedium() {
	medium := m.gs.FindRole(state.RoleMedium, true)
	if medium == nil || medium.Name == m.gs.Player {
		return
	}
	if role, ok := m.notes.ClaimedRole(medium.Name); !ok || role != state.RoleMedium {
		return
	}
	exec, ok := m.gs.LastExecution()
	if !ok || exec.Day != m.gs.Day-1 {
		return
	}
	for _, r := range m.notes.PublicMediumResults {
		if r.Day == exec.Day && r.Target == exec.Target {
			return
		}
	}
	result := state.ResultNotWerewolf
	if exec.Alignment == state.AlignmentWerewolf {
		result = state.ResultWerewolf
	}
	m.notes.PublicMediumResults = append(m.notes.PublicMediumResults, state.MediumResult{
		Day: exec.Day, Actor: medium.Name, Target: exec.Target, Result: result,
	})
}

// Ballots decides NPC votes for today, tags each with how it should be acted
// out, and keeps them so the vote scene and the tally agree.
func (m *Master) Ballots(ctx context.Context) (map[string]prompts.Ballot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}
	votes := m.pendingVotes()
	if err := m.store.SaveNotes(ctx, m.gs.ID, m.notes); err != nil {
		return nil, err
	}
	return m.ballots(votes), nil
}

// pendingVotes returns the stored NPC votes if they are still valid, and
// decides and stores new ones otherwise. Callers hold the lock.
func (m *Master) pendingVotes() map[string]string {
	if valid(m.gs, m.notes.PendingVotes) {
		return m.notes.PendingVotes
	}
	m.notes.PendingVotes = policy.DecideVotes(m.gs, m.notes, m.rng)
	return m.notes.PendingVotes
}

func valid(gs *state.GameState, votes map[string]string) bool {
	if len(votes) == 0 {
		return false
	}
	for voter, target := range votes {
		if voter == gs.Player || !gs.IsAlive(voter) || !gs.IsAlive(target) {
			return false
		}
	}
	for _, p := range gs.Alive() {
		if _, ok := votes[p.Name]; !ok && p.Name != gs.Player {
			return false
		}
	}
	return true
}

func (m *Master) ballots(votes map[string]string) map[string]prompts.Ballot {
	out := make(map[string]prompts.Ballot, len(votes))
	for voter, target := range votes {
		out[voter] = prompts.Ballot{Target: target, Reason: policy.ClassifyVote(m.notes.VillageVoteTarget, voter, target)}
	}
	return out
}

// VoteOutcome is the result of ResolveVote.
type VoteOutcome struct {
	Ballots map[string]string  `json:"ballots"`
	Result  *engine.VoteResult `json:"result"`
}

// ResolveVote casts NPC ballots plus the human's, executes and persists. A
// vote called during discussion first moves the game to the vote phase. The
// human's ballot is dropped when the human is dead or abstains.
func (m *Master) ResolveVote(ctx context.Context, playerVote string) (*VoteOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}

	eng := engine.New(m.gs, m.rng)
	prevPhase := m.gs.Phase
	if m.gs.Phase == state.PhaseDayDiscussion {
		eng.AdvancePhase()
	}

	votes := make(map[string]string)
	for k, v := range m.pendingVotes() {
		votes[k] = v
	}
	if playerVote != "" && m.gs.IsAlive(m.gs.Player) {
		votes[m.gs.Player] = playerVote
	}

	res, err := eng.ApplyVote(votes)
	if err != nil {
		m.gs.Phase = prevPhase
		return nil, err
	}
	m.notes.PendingVotes = nil

	if err := m.persist(ctx); err != nil {
		return nil, err
	}
	m.logger.Info("Vote resolved", "game_id", m.gs.ID, "day", m.gs.Day, "executed", res.Executed, "win", res.Win)
	return &VoteOutcome{Ballots: votes, Result: res}, nil
}

// Advance rotates to the next phase.
func (m *Master) Advance(ctx context.Context) (state.Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return "", ErrNoGame
	}
	phase := engine.New(m.gs, m.rng).AdvancePhase()
	if err := m.persist(ctx); err != nil {
		return "", err
	}
	return phase, nil
}

// CheckWin reports the current win status.
func (m *Master) CheckWin() (engine.WinStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return "", ErrNoGame
	}
	return engine.CheckWin(m.gs), nil
}

// Brief computes the village briefing. Newly decided counter-claimants and
// the vote plan are stored in the notes.
func (m *Master) Brief(ctx context.Context) (policy.Briefing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return policy.Briefing{}, ErrNoGame
	}
	b := m.brief(true)
	if err := m.store.SaveNotes(ctx, m.gs.ID, m.notes); err != nil {
		return policy.Briefing{}, err
	}
	return b, nil
}

// brief updates notes in memory only. New counter-claimants are decided only
// when decideClaims is set; they are hinted at the next first discussion of
// a day. Callers hold the lock.
func (m *Master) brief(decideClaims bool) policy.Briefing {
	b := policy.ComputeBriefing(m.gs, m.notes, m.rng, m.claimProbs)
	if !decideClaims {
		b.CounterClaims = nil
	}
	m.notes.AddCounterClaimActors(b.CounterClaims...)
	m.notes.VillageVoteTarget = ""
	if b.VotePlan != policy.VotePlanNone {
		m.notes.VillageVoteTarget = b.VotePlan
	}
	return b
}

// View projects the game from name's seat.
func (m *Master) View(name string) (*view.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}
	return view.Project(m.gs, m.notes, name)
}

// Scenes lists stored scene keys.
func (m *Master) Scenes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return nil, ErrNoGame
	}
	return m.store.ListScenes(ctx, m.gs.ID)
}

// LoadScene returns a stored scene, or "" when it does not exist.
func (m *Master) LoadScene(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gs == nil {
		return "", ErrNoGame
	}
	return m.store.LoadScene(ctx, m.gs.ID, key)
}

// discussionCount returns how many discussions are stored for day. Callers
// hold the lock.
func (m *Master) discussionCount(ctx context.Context, day int) (int, error) {
	keys, err := m.store.ListScenes(ctx, m.gs.ID)
	if err != nil {
		return 0, err
	}
	n := 0
	for {
		if !slices.Contains(keys, prompts.DiscussionKey(day, n+1)) {
			return n, nil
		}
		n++
	}
}

// dayDiscussions joins the stored discussions of day. With headers each
// one is marked "=== discN ===". Callers hold the lock.
func (m *Master) dayDiscussions(ctx context.Context, day, upTo int, headers bool) (string, error) {
	var parts []string
	for i := 1; i <= upTo; i++ {
		text, err := m.store.LoadScene(ctx, m.gs.ID, prompts.DiscussionKey(day, i))
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}
		if headers {
			parts = append(parts, fmt.Sprintf("=== disc%d ===\n%s", i, text))
		} else {
			parts = append(parts, strings.TrimSpace(text))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
