package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/autoplay"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/internal/storage"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// kv is one line of key=value output. Order is kept as given.
type kv struct {
	Key   string
	Value any
}

func printKV(w io.Writer, lines []kv) {
	for _, l := range lines {
		fmt.Fprintf(w, "%s=%v\n", l.Key, l.Value)
	}
}

func list(names []string) string {
	return strings.Join(names, ",")
}

func setupKV(gs *state.GameState) []kv {
	out := []kv{
		{"GAME_ID", gs.ID},
		{"PLAYER", gs.Player},
	}
	if p := gs.Get(gs.Player); p != nil {
		out = append(out, kv{"ROLE", p.Role})
	}
	return append(out, kv{"PLAYERS", list(gs.Names())})
}

func nightKV(out *gm.NightOutcome) []kv {
	if out.Need.Any() {
		var lines []kv
		if out.Need.Seer {
			lines = append(lines, kv{"NEED_SEER_INPUT", true})
		}
		if out.Need.Guard {
			lines = append(lines, kv{"NEED_GUARD_INPUT", true})
		}
		if out.Need.Attack {
			lines = append(lines, kv{"NEED_ATTACK_INPUT", true})
		}
		return lines
	}
	return []kv{
		{"ATTACK", out.Actions.Attack},
		{"VICTIM", out.Result.Victim},
		{"GUARDED", out.Result.Guarded},
		{"WIN", out.Result.Win},
	}
}

func voteKV(out *gm.VoteOutcome) []kv {
	voters := make([]string, 0, len(out.Ballots))
	for v := range out.Ballots {
		voters = append(voters, v)
	}
	sort.Strings(voters)
	ballots := make([]string, len(voters))
	for i, v := range voters {
		ballots[i] = v + ">" + out.Ballots[v]
	}

	return []kv{
		{"EXECUTED", out.Result.Executed},
		{"TIED", list(out.Result.Tied)},
		{"BALLOTS", list(ballots)},
		{"WIN", out.Result.Win},
	}
}

func gameKV(r *autoplay.GameResult) []kv {
	return []kv{
		{"GAME", r.Game},
		{"PLAYER", r.Player},
		{"ROLE", r.PlayerRole},
		{"DAYS", r.Days},
		{"WINNER", r.Winner},
		{"ISSUES", len(r.Issues)},
		{"ERRORS", len(r.Errors)},
	}
}

func summaryKV(s autoplay.Summary) []kv {
	return []kv{
		{"GAMES", s.Games},
		{"VILLAGE_WINS", s.VillageWins},
		{"WEREWOLF_WINS", s.WerewolfWins},
		{"UNDECIDED", s.Undecided},
		{"DAYS_AVG", fmt.Sprintf("%.1f", s.AverageDays)},
		{"DAYS_MAX", s.MaxDays},
		{"DAYS_MIN", s.MinDays},
		{"ISSUES", s.Issues},
		{"FAILED", s.Failed},
	}
}

func briefKV(b policy.Briefing) []kv {
	scores := make([]string, len(b.Suspicion))
	for i, s := range b.Suspicion {
		scores[i] = fmt.Sprintf("%s:%d", s.Name, s.Score)
	}
	return []kv{
		{"CONFIRMED_WHITE", list(b.ConfirmedWhite)},
		{"CONFIRMED_BLACK", list(b.ConfirmedBlack)},
		{"SUSPICION", list(scores)},
		{"VOTE_PLAN", b.VotePlan},
		{"COUNTER_CO", list(b.CounterClaims)},
		{"ROPE_MARGIN", b.RopeMargin},
		{"WOLVES_ALIVE", b.WolvesAlive},
		{"VILLAGE_ALIVE", b.VillageAlive},
	}
}

func sceneKV(out *gm.SceneOutcome) []kv {
	lines := []kv{
		{"SCENE_FILE", storage.SceneFile(out.Key)},
		{"ATTEMPTS", out.Attempts},
	}
	if out.Claims > 0 {
		lines = append(lines, kv{"NEW_CLAIMS", out.Claims})
	}
	if len(out.Errored) > 0 {
		lines = append(lines, kv{"FALLBACK_SPEAKERS", list(out.Errored)})
	}
	return lines
}

// printProgress renders progress events until the channel is closed.
func printProgress(w io.Writer, progress <-chan agents.Progress) {
	for p := range progress {
		switch p.Kind {
		case agents.ProgressTyping:
			fmt.Fprintf(w, "... %s\n", p.Name)
		case agents.ProgressError:
			fmt.Fprintf(w, "!! %s fell back to a silent line\n", p.Name)
		}
	}
}
