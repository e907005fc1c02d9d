// Package autoplay plays whole games with every decision automated and checks
// the result for consistency after each day and at the end.
package autoplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

const (
	// MaxDays stops a game that never reaches a winner.
	MaxDays = 9
	// ReportFile is the default report path.
	ReportFile = "autoplay_report.json"
)

// GameResult is the record of one automated game.
type GameResult struct {
	Game       int              `json:"game"`
	Player     string           `json:"player"`
	PlayerRole state.Role       `json:"player_role"`
	Days       int              `json:"days"`
	Winner     engine.WinStatus `json:"winner"`
	Errors     []string         `json:"errors"`
	Issues     []Issue          `json:"issues"`
	Log        []string         `json:"log"`
}

// Failed reports whether the game hit an error.
func (r *GameResult) Failed() bool {
	return len(r.Errors) > 0
}

// Runner drives a gm.Master through complete games.
type Runner struct {
	master  *gm.Master
	logger  *slog.Logger
	player  string
	maxDays int
}

// Option configures a Runner.
type Option func(*Runner)

// WithPlayer seats the automated human as name (random when empty).
func WithPlayer(name string) Option {
	return func(r *Runner) { r.player = name }
}

// WithMaxDays overrides MaxDays.
func WithMaxDays(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxDays = n
		}
	}
}

// NewRunner creates a Runner. Each game replaces the master's current game.
func NewRunner(master *gm.Master, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{master: master, logger: logger, maxDays: MaxDays}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) note(res *GameResult, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	res.Log = append(res.Log, msg)
	r.logger.Info(msg, "game", res.Game, "day", res.Days)
}

func (r *Runner) fail(res *GameResult, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	res.Errors = append(res.Errors, msg)
	r.logger.Error(msg, "game", res.Game, "day", res.Days)
}

func (r *Runner) addIssues(res *GameResult, issues []Issue) {
	for _, i := range issues {
		res.Issues = append(res.Issues, i)
		if i.Level == LevelError {
			res.Errors = append(res.Errors, i.String())
			r.logger.Error("Consistency check failed", "game", res.Game, "issue", i.String())
		} else {
			r.logger.Warn("Consistency warning", "game", res.Game, "issue", i.String())
		}
	}
}

// Play runs game number n from setup to the epilogue. Failures are recorded
// on the result; only context cancellation is returned as an error.
func (r *Runner) Play(ctx context.Context, n int) (*GameResult, error) {
	res := &GameResult{Game: n, Winner: engine.WinNone, Errors: []string{}, Issues: []Issue{}}

	gs, err := r.master.Setup(ctx, r.player)
	if err != nil {
		r.fail(res, "setup failed: %v", err)
		return res, ctx.Err()
	}
	res.Player = gs.Player
	res.PlayerRole = gs.Get(gs.Player).Role
	r.note(res, "setup: %s / %s", res.Player, res.PlayerRole)

	if err := r.playDays(ctx, res); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		r.fail(res, "%v", err)
	}
	if res.Winner == engine.WinNone && len(res.Errors) == 0 {
		r.fail(res, "no winner after %d days", r.maxDays)
	}

	for _, kind := range []prompts.SceneKind{prompts.SceneEpilogue, prompts.SceneEpilogueThread} {
		r.scene(ctx, res, kind)
	}
	r.note(res, "epilogue done, winner=%s", res.Winner)

	final, err := r.master.State()
	if err != nil {
		r.fail(res, "failed to read final state: %v", err)
		return res, ctx.Err()
	}
	scenes, err := r.scenes(ctx, "")
	if err != nil {
		r.fail(res, "failed to read scenes: %v", err)
		return res, ctx.Err()
	}
	r.addIssues(res, CheckGame(final, res.Winner, res.Days, r.maxDays, scenes))
	return res, ctx.Err()
}

// playDays runs day cycles until a side wins or the day cap is reached. A
// returned error ends the game; scene failures are only recorded.
func (r *Runner) playDays(ctx context.Context, res *GameResult) error {
	for day := 1; day <= r.maxDays; day++ {
		res.Days = day
		r.note(res, "--- Day %d ---", day)

		r.scene(ctx, res, prompts.SceneMorning)
		if _, err := r.master.Discussion(ctx, "", nil); err != nil {
			r.fail(res, "Day%d discussion failed: %v", day, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		gs, err := r.master.State()
		if err != nil {
			return err
		}
		notes, err := r.master.Notes()
		if err != nil {
			return err
		}
		alive := gs.AliveNames()

		ballots, err := r.master.Ballots(ctx)
		if err != nil {
			return fmt.Errorf("day %d ballots failed: %w", day, err)
		}
		if out := r.scene(ctx, res, prompts.SceneVote); out != nil {
			r.addIssues(res, CheckVoteScene(day, out.Text, targets(ballots), gs.Player, alive))
		}

		vote, err := r.master.ResolveVote(ctx, HumanVote(gs, notes.VillageVoteTarget))
		if err != nil {
			return fmt.Errorf("day %d vote failed: %w", day, err)
		}
		r.note(res, "executed: %s win=%s", vote.Result.Executed, vote.Result.Win)
		r.scene(ctx, res, prompts.SceneExecution)
		if vote.Result.Win != engine.WinNone {
			res.Winner = vote.Result.Win
			return nil
		}

		if gs, err = r.master.State(); err != nil {
			return err
		}
		night, err := r.master.ResolveNight(ctx, HumanNight(gs, notes))
		if err != nil {
			return fmt.Errorf("day %d night failed: %w", day, err)
		}
		if night.Need.Any() {
			return fmt.Errorf("day %d night still needs input: %+v", day, night.Need)
		}
		victim := night.Result.Victim
		if victim == "" {
			victim = "none"
		}
		r.note(res, "night: victim=%s win=%s", victim, night.Result.Win)
		if night.Result.Win != engine.WinNone {
			res.Winner = night.Result.Win
			return nil
		}

		if gs, err = r.master.State(); err != nil {
			return err
		}
		scenes, err := r.scenes(ctx, fmt.Sprintf("day%d_", day))
		if err != nil {
			return err
		}
		if issues := CheckDay(gs, day, scenes); len(issues) > 0 {
			r.addIssues(res, issues)
		} else {
			r.note(res, "Day%d consistent", day)
		}
	}
	return nil
}

// scene generates one scene and records a failure instead of returning it.
func (r *Runner) scene(ctx context.Context, res *GameResult, kind prompts.SceneKind) *gm.SceneOutcome {
	out, err := r.master.Scene(ctx, kind, nil)
	if err != nil {
		var verr *gm.ValidationError
		if errors.As(err, &verr) {
			r.fail(res, "Day%d %s rejected by the validator: %s", res.Days, kind, verr.Error())
		} else {
			r.fail(res, "Day%d %s failed: %v", res.Days, kind, err)
		}
		return nil
	}
	return out
}

// scenes loads every stored scene whose key starts with prefix.
func (r *Runner) scenes(ctx context.Context, prefix string) (map[string]string, error) {
	keys, err := r.master.Scenes(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		text, err := r.master.LoadScene(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = text
	}
	return out, nil
}

func targets(ballots map[string]prompts.Ballot) map[string]string {
	out := make(map[string]string, len(ballots))
	for voter, b := range ballots {
		out[voter] = b.Target
	}
	return out
}

// HumanVote follows the village plan. The human abstains when there is no
// plan or the plan names them.
func HumanVote(gs *state.GameState, plan string) string {
	if plan == "" || plan == policy.VotePlanNone || plan == gs.Player || !gs.IsAlive(plan) {
		return ""
	}
	return plan
}

// HumanNight picks the automated human's night action. The seer divines the
// first living player not yet divined, the bodyguard protects a living
// claimed seer or else the first living player, and a werewolf attacks the
// first living player outside the wolf side.
func HumanNight(gs *state.GameState, notes *state.Notes) engine.NightActions {
	var out engine.NightActions
	me := gs.Get(gs.Player)
	if me == nil || !me.Alive {
		return out
	}

	var others []state.Player
	for _, p := range gs.Alive() {
		if p.Name != me.Name {
			others = append(others, p)
		}
	}

	switch me.Role {
	case state.RoleSeer:
		checked := make(map[string]bool)
		for _, e := range gs.Log {
			if e.Type == state.EventSeer {
				checked[e.Target] = true
			}
		}
		for _, p := range others {
			if !checked[p.Name] {
				out.Seer = p.Name
				break
			}
		}
	case state.RoleBodyguard:
		var last string
		if prev, ok := gs.LastGuard(); ok && prev.Day == gs.Day-1 {
			last = prev.Target
		}
		for _, p := range others {
			if role, ok := notes.ClaimedRole(p.Name); ok && role == state.RoleSeer && p.Name != last {
				out.Guard = p.Name
				break
			}
		}
		if out.Guard == "" {
			for _, p := range others {
				if p.Name != last {
					out.Guard = p.Name
					break
				}
			}
		}
	case state.RoleWerewolf:
		for _, p := range others {
			if p.Role != state.RoleWerewolf && p.Role != state.RoleMadman {
				out.Attack = p.Name
				break
			}
		}
	}
	return out
}
