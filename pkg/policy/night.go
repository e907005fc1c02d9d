package policy

import (
	"math/rand/v2"
	"slices"

	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// NeedInput flags the night roles held by the human player that still need a
// target.
type NeedInput struct {
	Seer   bool `json:"seer,omitempty"`
	Guard  bool `json:"guard,omitempty"`
	Attack bool `json:"attack,omitempty"`
}

// Any reports whether any input is still missing.
func (n NeedInput) Any() bool {
	return n.Seer || n.Guard || n.Attack
}

// DecideNightActions fills in every NPC night action. The human's choices
// are taken from human; a night role held by the human with no choice made
// shows up in NeedInput and the returned actions must not be applied.
func DecideNightActions(gs *state.GameState, notes *state.Notes, human engine.NightActions, rng *rand.Rand) (engine.NightActions, NeedInput) {
	var out engine.NightActions
	var need NeedInput

	if seer := gs.FindRole(state.RoleSeer, true); seer != nil {
		if seer.Name == gs.Player {
			out.Seer = human.Seer
			need.Seer = human.Seer == ""
		} else {
			out.Seer = decideSeerTarget(gs, notes, seer.Name, rng)
		}
	}

	if guard := gs.FindRole(state.RoleBodyguard, true); guard != nil {
		if guard.Name == gs.Player {
			out.Guard = human.Guard
			need.Guard = human.Guard == ""
		} else {
			out.Guard = decideGuardTarget(gs, notes, guard.Name, rng)
		}
	}

	humanWolf := slices.ContainsFunc(gs.Werewolves(true), func(p state.Player) bool {
		return p.Name == gs.Player
	})
	if humanWolf {
		out.Attack = human.Attack
		need.Attack = human.Attack == ""
	} else {
		out.Attack = DecideAttackTarget(gs, out.Seer, notes, rng)
	}

	return out, need
}

func decideSeerTarget(gs *state.GameState, notes *state.Notes, seer string, rng *rand.Rand) string {
	checked := make(map[string]bool)
	for _, e := range gs.Log {
		if e.Type == state.EventSeer {
			checked[e.Target] = true
		}
	}
	var candidates []string
	for _, name := range gs.AliveNames() {
		if name != seer && !checked[name] {
			candidates = append(candidates, name)
		}
	}
	if notes != nil && slices.Contains(candidates, notes.NPCSeerTarget) {
		return notes.NPCSeerTarget
	}
	return pick(candidates, rng)
}

func decideGuardTarget(gs *state.GameState, notes *state.Notes, guard string, rng *rand.Rand) string {
	prev := previousGuardTarget(gs)
	var candidates []string
	for _, name := range gs.AliveNames() {
		if name != guard && name != prev {
			candidates = append(candidates, name)
		}
	}
	if notes != nil && slices.Contains(candidates, notes.NPCGuardTarget) {
		return notes.NPCGuardTarget
	}
	if seer := notes.ClaimedSeer(gs); seer != guard && slices.Contains(candidates, seer) {
		return seer
	}
	return pick(candidates, rng)
}

// previousGuardTarget is the target the engine would reject tonight as a
// repeat, or "".
func previousGuardTarget(gs *state.GameState) string {
	if prev, ok := gs.LastGuard(); ok && prev.Day == gs.Day-1 {
		return prev.Target
	}
	return ""
}
