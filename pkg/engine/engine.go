// Package engine is the game state machine. It is the only code that mutates
// a state.GameState; every operation validates fully before writing, so a
// rejected action leaves the state untouched.
package engine

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// WinStatus is the outcome of a win check.
type WinStatus string

const (
	WinNone     WinStatus = "none"
	WinVillage  WinStatus = "village_win"
	WinWerewolf WinStatus = "werewolf_win"
)

// NightActions are the targets chosen for one night. An empty field means the
// action is skipped.
type NightActions struct {
	Attack string `json:"attack,omitempty"`
	Seer   string `json:"seer,omitempty"`
	Guard  string `json:"guard,omitempty"`
}

// NightResult summarises a resolved night.
type NightResult struct {
	Victim  string    `json:"victim,omitempty"`
	Guarded bool      `json:"guarded"`
	Seer    string    `json:"seer_result,omitempty"`
	Win     WinStatus `json:"win"`
}

// VoteResult summarises a resolved vote.
type VoteResult struct {
	Executed  string         `json:"executed"`
	Alignment string         `json:"alignment"`
	Tally     map[string]int `json:"tally"`
	Tied      []string       `json:"tied,omitempty"`
	Win       WinStatus      `json:"win"`
}

// Engine applies game actions to a GameState.
type Engine struct {
	gs  *state.GameState
	rng *rand.Rand
}

// New wraps gs. A nil rng gets a randomly seeded source.
func New(gs *state.GameState, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{gs: gs, rng: rng}
}

// State returns the wrapped state.
func (e *Engine) State() *state.GameState {
	return e.gs
}

// ApplyNight resolves seer, guard and attack in that order and moves to the
// next day's discussion. A night with no actions is legal.
func (e *Engine) ApplyNight(a NightActions) (*NightResult, error) {
	gs := e.gs
	if gs.Phase != state.PhaseNight {
		return nil, &PhaseError{Op: "night", Want: state.PhaseNight, Got: gs.Phase}
	}

	var seer, guard *state.Player
	if a.Seer != "" {
		seer = gs.FindRole(state.RoleSeer, true)
		if seer == nil {
			return nil, &InvalidTargetError{Name: a.Seer, Reason: "no living seer"}
		}
		if gs.Get(a.Seer) == nil {
			return nil, &InvalidTargetError{Name: a.Seer, Reason: "no such player"}
		}
	}
	if a.Guard != "" {
		guard = gs.FindRole(state.RoleBodyguard, true)
		if guard == nil {
			return nil, &InvalidTargetError{Name: a.Guard, Reason: "no living bodyguard"}
		}
		if gs.Get(a.Guard) == nil {
			return nil, &InvalidTargetError{Name: a.Guard, Reason: "no such player"}
		}
		if prev, ok := gs.LastGuard(); ok && prev.Day == gs.Day-1 && prev.Target == a.Guard {
			return nil, &RepeatGuardError{Target: a.Guard}
		}
	}
	if a.Attack != "" {
		target := gs.Get(a.Attack)
		switch {
		case target == nil:
			return nil, &InvalidTargetError{Name: a.Attack, Reason: "no such player"}
		case !target.Alive:
			return nil, &InvalidTargetError{Name: a.Attack, Reason: "already dead"}
		case target.Role == state.RoleWerewolf:
			return nil, &InvalidTargetError{Name: a.Attack, Reason: "werewolves cannot be attacked"}
		}
	}

	res := &NightResult{}
	day := gs.Day

	if seer != nil {
		result := state.ResultNotWerewolf
		if gs.Get(a.Seer).Role == state.RoleWerewolf {
			result = state.ResultWerewolf
		}
		gs.Log = append(gs.Log, state.SeerEvent(day, seer.Name, a.Seer, result))
		res.Seer = result
	}
	if guard != nil {
		gs.Log = append(gs.Log, state.GuardEvent(day, guard.Name, a.Guard))
	}
	if a.Attack != "" {
		if a.Attack == a.Guard {
			gs.Log = append(gs.Log, state.AttackEvent(day, a.Attack, state.ResultGuarded))
			res.Guarded = true
		} else {
			gs.Get(a.Attack).Alive = false
			gs.Log = append(gs.Log, state.AttackEvent(day, a.Attack, state.ResultKilled))
			res.Victim = a.Attack
		}
	}

	gs.Day++
	gs.Phase = state.PhaseDayDiscussion
	gs.UpdatedAt = time.Now().UTC()
	res.Win = e.CheckWin()
	return res, nil
}

// ApplyVote tallies ballots, executes the top target and moves to night. A
// tie at the top is broken uniformly at random among the tied players.
func (e *Engine) ApplyVote(votes map[string]string) (*VoteResult, error) {
	gs := e.gs
	if gs.Phase != state.PhaseDayVote {
		return nil, &PhaseError{Op: "vote", Want: state.PhaseDayVote, Got: gs.Phase}
	}
	if len(votes) == 0 {
		return nil, &InvalidVoterError{Reason: "no ballots cast"}
	}

	for voter := range votes {
		if gs.Get(voter) == nil {
			return nil, &InvalidVoterError{Name: voter, Reason: "no such player"}
		}
	}

	// Seat order keeps validation and tie-break independent of map iteration.
	tally := make(map[string]int)
	for _, voter := range gs.Names() {
		target, ok := votes[voter]
		if !ok {
			continue
		}
		if !gs.IsAlive(voter) {
			return nil, &InvalidVoterError{Name: voter, Reason: "not alive"}
		}
		if !gs.IsAlive(target) {
			return nil, &InvalidTargetError{Name: target, Reason: "not a living player"}
		}
		tally[target]++
	}

	top := 0
	for _, n := range tally {
		top = max(top, n)
	}
	var tied []string
	for _, name := range gs.Names() {
		if tally[name] == top {
			tied = append(tied, name)
		}
	}

	executed := tied[0]
	if len(tied) > 1 {
		executed = tied[e.rng.IntN(len(tied))]
	}

	target := gs.Get(executed)
	target.Alive = false
	alignment := state.AlignmentHuman
	if target.Role == state.RoleWerewolf {
		alignment = state.AlignmentWerewolf
	}

	ballots := make(map[string]string, len(votes))
	for k, v := range votes {
		ballots[k] = v
	}
	gs.Log = append(gs.Log, state.ExecuteEvent(gs.Day, executed, alignment, tally, ballots))
	gs.Phase = state.PhaseNight
	gs.UpdatedAt = time.Now().UTC()

	res := &VoteResult{
		Executed:  executed,
		Alignment: alignment,
		Tally:     tally,
		Win:       e.CheckWin(),
	}
	if len(tied) > 1 {
		res.Tied = slices.Clone(tied)
	}
	return res, nil
}

// AdvancePhase rotates to the next phase without an action. The day counter
// only increments on night to day_discussion.
func (e *Engine) AdvancePhase() state.Phase {
	gs := e.gs
	if gs.Phase == state.PhaseNight {
		gs.Day++
	}
	gs.Phase = gs.Phase.Next()
	gs.UpdatedAt = time.Now().UTC()
	return gs.Phase
}

// CheckWin reports whether either side has won.
func (e *Engine) CheckWin() WinStatus {
	return CheckWin(e.gs)
}

// CheckWin is the win rule: the village wins when no werewolf is alive, the
// werewolves win once they are not outnumbered.
func CheckWin(gs *state.GameState) WinStatus {
	wolves, others := gs.Counts()
	switch {
	case wolves == 0:
		return WinVillage
	case wolves >= others:
		return WinWerewolf
	default:
		return WinNone
	}
}
