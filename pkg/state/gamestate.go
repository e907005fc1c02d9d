package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a player's hidden role. Roles are fixed at game creation.
type Role string

const (
	RoleWerewolf  Role = "werewolf"
	RoleMadman    Role = "madman"
	RoleSeer      Role = "seer"
	RoleMedium    Role = "medium"
	RoleBodyguard Role = "bodyguard"
	RoleVillager  Role = "villager"
)

// Label returns the in-game (Japanese) label for the role.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

var roleLabels = map[Role]string{
	RoleWerewolf:  "人狼",
	RoleMadman:    "狂人",
	RoleSeer:      "占い師",
	RoleMedium:    "霊媒師",
	RoleBodyguard: "狩人",
	RoleVillager:  "村人",
}

// RoleKeywords lists every label a role can be written as, in both languages.
// Used for secrecy checks.
func RoleKeywords() []string {
	out := make([]string, 0, len(roleLabels)*2)
	for _, r := range []Role{RoleWerewolf, RoleMadman, RoleSeer, RoleMedium, RoleBodyguard, RoleVillager} {
		out = append(out, r.Label(), string(r))
	}
	return out
}

// Phase is the current step of the day/night cycle.
type Phase string

const (
	PhaseNight         Phase = "night"
	PhaseDayDiscussion Phase = "day_discussion"
	PhaseDayVote       Phase = "day_vote"
)

// Next returns the phase that follows p in the cycle.
func (p Phase) Next() Phase {
	switch p {
	case PhaseNight:
		return PhaseDayDiscussion
	case PhaseDayDiscussion:
		return PhaseDayVote
	default:
		return PhaseNight
	}
}

// Player is one seat at the table.
type Player struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Alive bool   `json:"alive"`
}

// GameState is the single authoritative aggregate for a game. It is mutated
// only by the engine; everything else reads snapshots.
type GameState struct {
	ID        uuid.UUID `json:"id"`
	Day       int       `json:"day"`
	Phase     Phase     `json:"phase"`
	Player    string    `json:"player,omitempty"` // the human player's character
	Players   []Player  `json:"players"`
	Log       []Event   `json:"log"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Get returns the player with the given name, or nil.
func (gs *GameState) Get(name string) *Player {
	for i := range gs.Players {
		if gs.Players[i].Name == name {
			return &gs.Players[i]
		}
	}
	return nil
}

// Alive returns the living players in seating order.
func (gs *GameState) Alive() []Player {
	out := make([]Player, 0, len(gs.Players))
	for _, p := range gs.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// AliveNames returns the names of living players in seating order.
func (gs *GameState) AliveNames() []string {
	alive := gs.Alive()
	names := make([]string, len(alive))
	for i, p := range alive {
		names[i] = p.Name
	}
	return names
}

// Names returns every player name in seating order.
func (gs *GameState) Names() []string {
	names := make([]string, len(gs.Players))
	for i, p := range gs.Players {
		names[i] = p.Name
	}
	return names
}

// IsAlive reports whether name is a living player.
func (gs *GameState) IsAlive(name string) bool {
	p := gs.Get(name)
	return p != nil && p.Alive
}

// FindRole returns the first player holding role. When aliveOnly is set, dead
// players are skipped.
func (gs *GameState) FindRole(role Role, aliveOnly bool) *Player {
	for i := range gs.Players {
		p := &gs.Players[i]
		if p.Role == role && (!aliveOnly || p.Alive) {
			return p
		}
	}
	return nil
}

// Werewolves returns the werewolf players.
func (gs *GameState) Werewolves(aliveOnly bool) []Player {
	var out []Player
	for _, p := range gs.Players {
		if p.Role == RoleWerewolf && (!aliveOnly || p.Alive) {
			out = append(out, p)
		}
	}
	return out
}

// Counts returns the living werewolf and non-werewolf counts.
func (gs *GameState) Counts() (wolves, others int) {
	for _, p := range gs.Players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleWerewolf {
			wolves++
		} else {
			others++
		}
	}
	return wolves, others
}

// LastGuard returns the most recent guard event, if any.
func (gs *GameState) LastGuard() (Event, bool) {
	for i := len(gs.Log) - 1; i >= 0; i-- {
		if gs.Log[i].Type == EventGuard {
			return gs.Log[i], true
		}
	}
	return Event{}, false
}

// LastExecution returns the most recent execute event, if any.
func (gs *GameState) LastExecution() (Event, bool) {
	for i := len(gs.Log) - 1; i >= 0; i-- {
		if gs.Log[i].Type == EventExecute {
			return gs.Log[i], true
		}
	}
	return Event{}, false
}

// AttackOn returns the attack event recorded for the night of day, if any.
func (gs *GameState) AttackOn(day int) (Event, bool) {
	for i := len(gs.Log) - 1; i >= 0; i-- {
		e := gs.Log[i]
		if e.Type == EventAttack && e.Day == day {
			return e, true
		}
	}
	return Event{}, false
}

// DeathCause returns a public label for how name died. It never names a role.
func (gs *GameState) DeathCause(name string) string {
	for i := len(gs.Log) - 1; i >= 0; i-- {
		e := gs.Log[i]
		if e.Target != name {
			continue
		}
		switch {
		case e.Type == EventExecute:
			return fmt.Sprintf("Day%d 処刑", e.Day)
		case e.Type == EventAttack && e.Result == ResultKilled:
			return fmt.Sprintf("Day%d 夜・襲撃死", e.Day)
		}
	}
	return "死亡"
}

// DeepCopy returns an independent copy of the game state.
func (gs *GameState) DeepCopy() (*GameState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	var out GameState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &out, nil
}
