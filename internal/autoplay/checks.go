package autoplay

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/validator"
)

// Level grades an Issue. Only errors fail a game.
type Level string

const (
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Check names the consistency check that raised an Issue.
type Check string

const (
	CheckVote       Check = "vote_scene"
	CheckDeaths     Check = "deaths"
	CheckSeer       Check = "seer_targets"
	CheckScene      Check = "scene"
	CheckWinner     Check = "winner"
	CheckRoster     Check = "roster"
	CheckExecutions Check = "executions"
	CheckDays       Check = "days"
)

// Issue is one finding of a consistency check.
type Issue struct {
	Day     int    `json:"day,omitempty"`
	Level   Level  `json:"level"`
	Check   Check  `json:"check"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Day > 0 {
		return fmt.Sprintf("[Day%d %s %s] %s", i.Day, i.Level, i.Check, i.Message)
	}
	return fmt.Sprintf("[%s %s] %s", i.Level, i.Check, i.Message)
}

func errorf(day int, check Check, format string, args ...any) Issue {
	return Issue{Day: day, Level: LevelError, Check: check, Message: fmt.Sprintf(format, args...)}
}

func warnf(day int, check Check, format string, args ...any) Issue {
	return Issue{Day: day, Level: LevelWarn, Check: check, Message: fmt.Sprintf(format, args...)}
}

// Errors filters issues down to the error level.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Level == LevelError {
			out = append(out, i)
		}
	}
	return out
}

// votePhrase follows a name (with an optional honorific) when a speaker
// declares a ballot: "シモンに投票", "ディータさんを吊る", "ディータ吊りで".
const votePhrase = `(?:さん|君|殿|様)?(?:に投票|に一票|に入れ|を処刑|を吊|吊り)`

// VoteTarget returns the first candidate the dialogue declares a vote for, or
// "" when none can be read.
func VoteTarget(dialogue string, candidates []string) string {
	for _, name := range candidates {
		if regexp.MustCompile(regexp.QuoteMeta(name) + votePhrase).MatchString(dialogue) {
			return name
		}
	}
	return ""
}

var spokenLine = regexp.MustCompile(`^(.+?)「(.+)」\s*$`)

// speakerLines groups the quoted dialogue of a scene by speaker.
func speakerLines(text string) map[string][]string {
	out := make(map[string][]string)
	for _, line := range strings.Split(text, "\n") {
		m := spokenLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		speaker := strings.TrimSpace(m[1])
		out[speaker] = append(out[speaker], strings.TrimSpace(m[2]))
	}
	return out
}

// CheckVoteScene compares what each NPC says in a vote scene with the ballot
// the GM decided for them. A speaker naming a different target is an error;
// a missing or unreadable declaration is a warning. alive is the roster at
// the time of the vote.
func CheckVoteScene(day int, text string, ballots map[string]string, player string, alive []string) []Issue {
	lines := speakerLines(text)
	voters := make([]string, 0, len(ballots))
	for voter := range ballots {
		if voter != player {
			voters = append(voters, voter)
		}
	}
	sort.Strings(voters)

	var issues []Issue
	for _, voter := range voters {
		expected := ballots[voter]
		dialogue := lines[voter]
		if len(dialogue) == 0 {
			issues = append(issues, warnf(day, CheckVote, "%s does not speak in the vote scene (expected %s)", voter, expected))
			continue
		}
		combined := strings.Join(dialogue, " ")
		switch got := VoteTarget(combined, alive); got {
		case "":
			issues = append(issues, warnf(day, CheckVote, "no ballot readable from %s (expected %s): %s", voter, expected, clip(combined)))
		case expected:
		default:
			issues = append(issues, errorf(day, CheckVote, "%s says %s but the ballot is %s: %s", voter, got, expected, clip(combined)))
		}
	}
	return issues
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= 80 {
		return s
	}
	return string(r[:80]) + "…"
}

// CheckDay runs the checks that must hold at the end of every day: the dead
// match the log, nobody was divined twice, and the day's scenes are valid.
func CheckDay(gs *state.GameState, day int, scenes map[string]string) []Issue {
	var issues []Issue
	issues = append(issues, checkDeaths(gs, day)...)
	issues = append(issues, checkSeerTargets(gs, day)...)
	issues = append(issues, checkScenes(gs, day, scenes)...)
	return issues
}

// CheckGame runs the end-of-game checks against the final board. days is the
// number of days played and maxDays the cap the game was run under.
func CheckGame(gs *state.GameState, winner engine.WinStatus, days, maxDays int, scenes map[string]string) []Issue {
	var issues []Issue
	issues = append(issues, checkDeaths(gs, 0)...)

	wolves := len(gs.Werewolves(true))
	switch {
	case winner == engine.WinVillage && wolves > 0:
		issues = append(issues, errorf(0, CheckWinner, "village won with %d werewolves alive", wolves))
	case winner == engine.WinWerewolf && wolves == 0:
		issues = append(issues, errorf(0, CheckWinner, "werewolves won with no werewolf alive"))
	case winner == engine.WinNone && days < maxDays:
		issues = append(issues, errorf(0, CheckWinner, "game ended on day %d without a winner", days))
	}

	alive := len(gs.Alive())
	dead := len(gs.Players) - alive
	if alive+dead != len(state.RoleSet) {
		issues = append(issues, errorf(0, CheckRoster, "alive=%d dead=%d does not add up to %d seats", alive, dead, len(state.RoleSet)))
	}

	issues = append(issues, checkSeerTargets(gs, 0)...)

	for _, e := range gs.Log {
		if e.Type != state.EventExecute {
			continue
		}
		if p := gs.Get(e.Target); p == nil || p.Alive {
			issues = append(issues, errorf(e.Day, CheckExecutions, "executed %s is not among the dead", e.Target))
		}
	}

	issues = append(issues, checkScenes(gs, 0, scenes)...)

	last := 0
	for _, e := range gs.Log {
		last = max(last, e.Day)
	}
	if diff := last - days; diff > 1 || diff < -1 {
		issues = append(issues, errorf(0, CheckDays, "log ends on day %d but %d days were played", last, days))
	}
	return issues
}

func checkDeaths(gs *state.GameState, day int) []Issue {
	var executed, killed int
	for _, e := range gs.Log {
		switch {
		case e.Type == state.EventExecute:
			executed++
		case e.Type == state.EventAttack && e.Result == state.ResultKilled:
			killed++
		}
	}
	dead := len(gs.Players) - len(gs.Alive())
	if dead != executed+killed {
		return []Issue{errorf(day, CheckDeaths, "dead=%d but executions=%d and kills=%d", dead, executed, killed)}
	}
	return nil
}

func checkSeerTargets(gs *state.GameState, day int) []Issue {
	seen := make(map[string]int)
	for _, e := range gs.Log {
		if e.Type == state.EventSeer {
			seen[e.Target]++
		}
	}
	var dupes []string
	for name, n := range seen {
		if n > 1 {
			dupes = append(dupes, name)
		}
	}
	if len(dupes) == 0 {
		return nil
	}
	sort.Strings(dupes)
	return []Issue{errorf(day, CheckSeer, "divined more than once: %s", strings.Join(dupes, ", "))}
}

var sceneKey = regexp.MustCompile(`^day(\d+)_(\w+)$`)

// checkScenes validates stored scenes against the board as it stood when
// each was written. day 0 checks every scene.
func checkScenes(gs *state.GameState, day int, scenes map[string]string) []Issue {
	keys := make([]string, 0, len(scenes))
	for k := range scenes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var issues []Issue
	for _, key := range keys {
		sceneDay, part := 0, key
		if m := sceneKey.FindStringSubmatch(key); m != nil {
			sceneDay, _ = strconv.Atoi(m[1])
			part = m[2]
		}
		if day > 0 && sceneDay != day {
			continue
		}

		var vs []validator.Violation
		if sceneDay == 0 {
			vs = validator.Validate(gs, scenes[key], validator.Options{Finale: prompts.SceneKind(key).Finale()})
		} else {
			board := boardAt(gs, sceneDay, part)
			opts := validator.Options{}
			if part == string(prompts.SceneExecution) {
				opts.Protagonist = executedOn(gs, sceneDay)
			}
			vs = validator.Validate(board, scenes[key], opts)
		}
		if len(vs) > 0 {
			issues = append(issues, errorf(sceneDay, CheckScene, "%s: %s", key, strings.ReplaceAll(validator.Format(vs), "\n", " ")))
		}
	}
	return issues
}

// boardAt returns a copy of gs with everyone who died after the given scene
// alive again. Night victims die after the day's scenes; the executed player
// is dead from that day's execution scene on.
func boardAt(gs *state.GameState, day int, part string) *state.GameState {
	diedBefore := make(map[string]bool)
	for _, e := range gs.Log {
		switch {
		case e.Type == state.EventAttack && e.Result == state.ResultKilled:
			diedBefore[e.Target] = diedBefore[e.Target] || e.Day < day
		case e.Type == state.EventExecute:
			diedBefore[e.Target] = diedBefore[e.Target] || e.Day < day ||
				(e.Day == day && part == string(prompts.SceneExecution))
		}
	}

	board := *gs
	board.Players = slices.Clone(gs.Players)
	for i, p := range board.Players {
		if !p.Alive && !diedBefore[p.Name] {
			board.Players[i].Alive = true
		}
	}
	return &board
}

func executedOn(gs *state.GameState, day int) string {
	for _, e := range gs.Log {
		if e.Type == state.EventExecute && e.Day == day {
			return e.Target
		}
	}
	return ""
}
