package state

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Claim is a public, in-narrative self-declaration of a role.
type Claim struct {
	Role Role `json:"role"`
	Day  int  `json:"day"`
}

// MediumResult is a medium's publicly disclosed reading of an executed player.
type MediumResult struct {
	Day    int    `json:"day"`
	Actor  string `json:"actor"`
	Target string `json:"target"`
	Result string `json:"result"`
}

// Notes is advisory side-channel bookkeeping. The engine never reads it; it
// feeds the policy engine and prompts only.
type Notes struct {
	PublicClaims        map[string]Claim    `json:"public_co_claims,omitempty"`
	PublicMediumResults []MediumResult      `json:"public_medium_results,omitempty"`
	CounterClaimActors  []string            `json:"counter_co_actors,omitempty"`
	VillageVoteTarget   string              `json:"village_vote_target,omitempty"`
	NPCSeerTarget       string              `json:"npc_seer_target,omitempty"`
	NPCGuardTarget      string              `json:"npc_guard_target,omitempty"`
	WolfAccusations     map[string][]string `json:"wolf_accusations,omitempty"`
	PendingVotes        map[string]string   `json:"pending_npc_votes,omitempty"`
}

// NewNotes returns empty notes.
func NewNotes() *Notes {
	return &Notes{
		PublicClaims:    make(map[string]Claim),
		WolfAccusations: make(map[string][]string),
	}
}

// HasClaimed reports whether name has publicly claimed any role.
func (n *Notes) HasClaimed(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.PublicClaims[name]
	return ok
}

// ClaimedRole returns the role name has publicly claimed, if any.
func (n *Notes) ClaimedRole(name string) (Role, bool) {
	if n == nil {
		return "", false
	}
	c, ok := n.PublicClaims[name]
	return c.Role, ok
}

// RecordClaim stores the first claim made by name. Later claims by the same
// name are ignored. It reports whether the notes changed.
func (n *Notes) RecordClaim(name string, role Role, day int) bool {
	if n.PublicClaims == nil {
		n.PublicClaims = make(map[string]Claim)
	}
	if _, ok := n.PublicClaims[name]; ok {
		return false
	}
	n.PublicClaims[name] = Claim{Role: role, Day: day}
	return true
}

// AddCounterClaimActors merges names into the one-shot bluff list.
func (n *Notes) AddCounterClaimActors(names ...string) {
	for _, name := range names {
		if !slices.Contains(n.CounterClaimActors, name) {
			n.CounterClaimActors = append(n.CounterClaimActors, name)
		}
	}
}

// HasCounterClaimed reports whether name already decided to bluff.
func (n *Notes) HasCounterClaimed(name string) bool {
	return n != nil && slices.Contains(n.CounterClaimActors, name)
}

// PendingCounterClaims lists the decided bluffers who are still alive and
// have not made a public claim yet, in decision order.
func (n *Notes) PendingCounterClaims(gs *GameState) []string {
	if n == nil {
		return nil
	}
	var out []string
	for _, name := range n.CounterClaimActors {
		if gs.IsAlive(name) && name != gs.Player && !n.HasClaimed(name) {
			out = append(out, name)
		}
	}
	return out
}

// ClaimedSeer returns the earliest public seer claimant (ties broken by seat),
// falling back to the first seer actor in the log.
func (n *Notes) ClaimedSeer(gs *GameState) string {
	if n != nil {
		best, bestDay := "", 0
		for _, p := range gs.Players {
			c, ok := n.PublicClaims[p.Name]
			if !ok || c.Role != RoleSeer {
				continue
			}
			if best == "" || c.Day < bestDay {
				best, bestDay = p.Name, c.Day
			}
		}
		if best != "" {
			return best
		}
	}
	for _, e := range gs.Log {
		if e.Type == EventSeer {
			return e.Actor
		}
	}
	return ""
}

// DeepCopy returns an independent copy of the notes.
func (n *Notes) DeepCopy() (*Notes, error) {
	if n == nil {
		return NewNotes(), nil
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notes: %w", err)
	}
	out := NewNotes()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
	}
	return out, nil
}
