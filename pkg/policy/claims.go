package policy

import (
	"math/rand/v2"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// ClaimProbabilities tune the counter-claim roll.
type ClaimProbabilities struct {
	Nobody         float64 `json:"nobody"`
	Madman         float64 `json:"madman"`
	WolfWithMadman float64 `json:"wolf_with_madman"`
}

// DefaultClaimProbabilities is the tuning used when nothing is configured.
var DefaultClaimProbabilities = ClaimProbabilities{
	Nobody:         0.01,
	Madman:         0.54,
	WolfWithMadman: 0.15,
}

// lastClaimDay is the final day on which a bluff claim is still believable.
const lastClaimDay = 2

// DecideCounterClaim picks which NPCs fake a seer claim today. Only the madman
// and the werewolves bluff, each at most once per game. If the madman stays
// quiet exactly one eligible werewolf claims instead.
func DecideCounterClaim(gs *state.GameState, notes *state.Notes, rng *rand.Rand, probs ClaimProbabilities) []string {
	if gs.Day > lastClaimDay {
		return nil
	}

	eligible := func(p *state.Player) bool {
		return p != nil && p.Alive && p.Name != gs.Player && !notes.HasCounterClaimed(p.Name)
	}

	madman := gs.FindRole(state.RoleMadman, false)
	madmanOK := eligible(madman)
	var wolves []string
	for _, w := range gs.Werewolves(true) {
		if eligible(&w) {
			wolves = append(wolves, w.Name)
		}
	}
	if !madmanOK && len(wolves) == 0 {
		return nil
	}

	if rng.Float64() < probs.Nobody {
		return nil
	}

	if madmanOK && rng.Float64() < probs.Madman {
		out := []string{madman.Name}
		for _, w := range wolves {
			if rng.Float64() < probs.WolfWithMadman {
				out = append(out, w)
			}
		}
		return out
	}
	if len(wolves) == 0 {
		return nil
	}
	return []string{wolves[rng.IntN(len(wolves))]}
}
