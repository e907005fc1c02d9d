package policy

import (
	"math/rand/v2"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// DecideAttackTarget picks the werewolves' victim for tonight:
//
//  1. if tonight's seer target is a werewolf, the living seer;
//  2. if the last execution was a werewolf, the living medium;
//  3. whoever has accused living werewolves the most (random among ties);
//  4. any living non-werewolf.
//
// It never returns a werewolf, and returns "" when nobody can be attacked.
func DecideAttackTarget(gs *state.GameState, seerTarget string, notes *state.Notes, rng *rand.Rand) string {
	var candidates []string
	for _, p := range gs.Alive() {
		if p.Role != state.RoleWerewolf {
			candidates = append(candidates, p.Name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	if t := gs.Get(seerTarget); t != nil && t.Role == state.RoleWerewolf {
		if seer := gs.FindRole(state.RoleSeer, true); seer != nil {
			return seer.Name
		}
	}

	if last, ok := gs.LastExecution(); ok && last.Alignment == state.AlignmentWerewolf {
		if medium := gs.FindRole(state.RoleMedium, true); medium != nil {
			return medium.Name
		}
	}

	if notes != nil {
		counts := make(map[string]int)
		for _, wolf := range gs.Werewolves(true) {
			for _, accuser := range notes.WolfAccusations[wolf.Name] {
				if p := gs.Get(accuser); p != nil && p.Alive && p.Role != state.RoleWerewolf {
					counts[accuser]++
				}
			}
		}
		top := 0
		for _, n := range counts {
			top = max(top, n)
		}
		if top > 0 {
			var tied []string
			for _, name := range candidates {
				if counts[name] == top {
					tied = append(tied, name)
				}
			}
			return tied[rng.IntN(len(tied))]
		}
	}

	return candidates[rng.IntN(len(candidates))]
}
