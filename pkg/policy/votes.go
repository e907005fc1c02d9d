package policy

import (
	"math/rand/v2"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// DecideVotes returns a ballot for every living NPC. The human player is
// never included.
func DecideVotes(gs *state.GameState, notes *state.Notes, rng *rand.Rand) map[string]string {
	votes := make(map[string]string)
	for _, p := range gs.Alive() {
		if p.Name == gs.Player {
			continue
		}
		var target string
		switch p.Role {
		case state.RoleWerewolf:
			target = DecideWolfVote(gs, notes, p.Name, rng)
		case state.RoleMadman:
			target = DecideMadmanVote(gs, notes, p.Name, rng)
		default:
			target = DecideVillageVote(gs, notes, p.Name, rng)
		}
		if target != "" {
			votes[p.Name] = target
		}
	}
	return votes
}

// DecideWolfVote votes out the claimed seer when possible, otherwise a random
// living non-werewolf.
func DecideWolfVote(gs *state.GameState, notes *state.Notes, voter string, rng *rand.Rand) string {
	var candidates []string
	for _, p := range gs.Alive() {
		if p.Role != state.RoleWerewolf && p.Name != voter {
			candidates = append(candidates, p.Name)
		}
	}
	seer := notes.ClaimedSeer(gs)
	for _, c := range candidates {
		if c == seer {
			return seer
		}
	}
	return pick(candidates, rng)
}

// DecideMadmanVote votes at random but never for the claimed seer unless
// nobody else is left.
func DecideMadmanVote(gs *state.GameState, notes *state.Notes, voter string, rng *rand.Rand) string {
	seer := notes.ClaimedSeer(gs)
	var candidates, fallback []string
	for _, name := range gs.AliveNames() {
		if name == voter {
			continue
		}
		fallback = append(fallback, name)
		if name != seer {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return pick(fallback, rng)
	}
	return pick(candidates, rng)
}

// DecideVillageVote follows the discussion's landing point, then the leader
// of the previous tally, then chance.
func DecideVillageVote(gs *state.GameState, notes *state.Notes, voter string, rng *rand.Rand) string {
	var candidates []string
	for _, name := range gs.AliveNames() {
		if name != voter {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	if notes != nil && notes.VillageVoteTarget != "" {
		for _, c := range candidates {
			if c == notes.VillageVoteTarget {
				return c
			}
		}
	}

	if last, ok := gs.LastExecution(); ok && len(last.Tally) > 0 {
		best, bestN := "", 0
		for _, c := range candidates {
			if n := last.Tally[c]; n > bestN {
				best, bestN = c, n
			}
		}
		if best != "" {
			return best
		}
	}

	return pick(candidates, rng)
}

func pick(names []string, rng *rand.Rand) string {
	if len(names) == 0 {
		return ""
	}
	return names[rng.IntN(len(names))]
}

// VoteReason is the acting direction given to a voter in the vote scene.
type VoteReason string

const (
	ReasonConsensus  VoteReason = "consensus"  // follows the village plan
	ReasonPivot      VoteReason = "pivot"      // breaks from it; needs an excuse
	ReasonConviction VoteReason = "conviction" // the voter's own read
)

// ClassifyVote labels a ballot relative to the public village vote plan,
// reading only the plan and the ballot. The plan's own target is never asked
// to explain itself.
func ClassifyVote(plan, voter, target string) VoteReason {
	switch {
	case plan == "" || plan == VotePlanNone:
		return ReasonConviction
	case target == plan:
		return ReasonConsensus
	case voter == plan:
		return ReasonConviction
	}
	return ReasonPivot
}
