// Package policy holds the NPC decision heuristics. Every function is a pure
// read of the game state and notes; randomness comes from the caller's rng.
package policy

import (
	"math/rand/v2"
	"slices"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// VotePlanNone is the vote plan when nobody stands out.
const VotePlanNone = "none"

// Suspicion is one living player's score. Higher is more suspicious.
type Suspicion struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Briefing is the village-perspective summary the GM computes before a
// discussion. It stays in the GM notes; NPC prompts only see the claim hints
// derived from it.
type Briefing struct {
	ConfirmedWhite []string    `json:"confirmed_white"`
	ConfirmedBlack []string    `json:"confirmed_black"`
	Suspicion      []Suspicion `json:"suspicion"`
	VotePlan       string      `json:"vote_plan"`
	CounterClaims  []string    `json:"counter_claims"`
	RopeMargin     int         `json:"rope_margin"`
	WolvesAlive    int         `json:"wolves_alive"`
	VillageAlive   int         `json:"village_alive"`
}

// ComputeBriefing derives the public picture of the game. CounterClaims holds
// only the claimants decided by this call; the caller persists them.
func ComputeBriefing(gs *state.GameState, notes *state.Notes, rng *rand.Rand, probs ClaimProbabilities) Briefing {
	black, white := confirmedColours(gs, notes)
	scores := suspicionScores(gs, notes, white, black)

	b := Briefing{
		ConfirmedWhite: white,
		ConfirmedBlack: black,
		Suspicion:      scores,
		VotePlan:       VotePlanNone,
		CounterClaims:  DecideCounterClaim(gs, notes, rng, probs),
	}

	switch {
	case len(black) > 0:
		b.VotePlan = black[0]
	case len(scores) > 0:
		top := scores[0]
		for _, s := range scores[1:] {
			if s.Score > top.Score {
				top = s
			}
		}
		b.VotePlan = top.Name
	}

	b.WolvesAlive, b.VillageAlive = gs.Counts()
	b.RopeMargin = max(0, b.VillageAlive-b.WolvesAlive-1)
	return b
}

// confirmedColours returns the living players known black and white from the
// village's point of view, in first-seen order.
func confirmedColours(gs *state.GameState, notes *state.Notes) (black, white []string) {
	add := func(list []string, name string) []string {
		if !gs.IsAlive(name) || slices.Contains(list, name) {
			return list
		}
		return append(list, name)
	}

	for _, e := range gs.Log {
		switch e.Type {
		case state.EventSeer:
			// an unclaimed or dead seer has published nothing
			if role, ok := notes.ClaimedRole(e.Actor); !ok || role != state.RoleSeer || !gs.IsAlive(e.Actor) {
				continue
			}
			if e.Result == state.ResultWerewolf {
				black = add(black, e.Target)
			} else {
				white = add(white, e.Target)
			}
		case state.EventAttack:
			if e.Result == state.ResultKilled {
				white = add(white, e.Target)
			}
		case state.EventExecute:
			if e.Alignment == state.AlignmentWerewolf {
				black = add(black, e.Target)
			} else {
				white = add(white, e.Target)
			}
		}
	}
	return black, white
}

// suspicionScores scores every living NPC in seat order. Confirmed black
// players are left out: they are the rope regardless.
func suspicionScores(gs *state.GameState, notes *state.Notes, white, black []string) []Suspicion {
	votes := make(map[string]int)
	for _, e := range gs.Log {
		if e.Type != state.EventExecute {
			continue
		}
		for name, n := range e.Tally {
			votes[name] += n
		}
	}

	var out []Suspicion
	for _, p := range gs.Alive() {
		if p.Name == gs.Player || slices.Contains(black, p.Name) {
			continue
		}
		score := 2 * votes[p.Name]
		if slices.Contains(white, p.Name) {
			score -= 10
		}
		if notes.HasClaimed(p.Name) {
			score -= 3
		}
		out = append(out, Suspicion{Name: p.Name, Score: score})
	}
	return out
}
