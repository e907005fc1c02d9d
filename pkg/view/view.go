// Package view projects the authoritative game state down to what a single
// character is allowed to know. Prompts and the player status screen are built
// from a View, never from the raw state.
package view

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// Self is the caller's own identity.
type Self struct {
	Name      string     `json:"name"`
	Role      state.Role `json:"role"`
	RoleLabel string     `json:"role_label"`
	Alive     bool       `json:"alive"`
}

// DeadPlayer is a publicly known death. Cause never names a role.
type DeadPlayer struct {
	Name  string `json:"name"`
	Cause string `json:"cause"`
}

// SeerResult is one publicly announced seer reading.
type SeerResult struct {
	Day    int    `json:"day"`
	Actor  string `json:"actor"`
	Target string `json:"target"`
	Result string `json:"result"`
}

// Execution is a public execution record. It carries no alignment.
type Execution struct {
	Day    int    `json:"day"`
	Target string `json:"target"`
}

// View is everything one character may see.
type View struct {
	Self                Self                   `json:"self"`
	Day                 int                    `json:"day"`
	Phase               state.Phase            `json:"phase"`
	Players             []string               `json:"players"`
	AlivePlayers        []string               `json:"alive_players"`
	DeadPlayers         []DeadPlayer           `json:"dead_players"`
	WolfTeammates       []string               `json:"wolf_teammates"`
	PublicClaims        map[string]state.Claim `json:"public_co_claims"`
	PublicSeerResults   []SeerResult           `json:"public_seer_results"`
	PublicMediumResults []state.MediumResult   `json:"public_medium_results"`
	ExecutionHistory    []Execution            `json:"execution_history"`
	PrivateInfo         []string               `json:"private_info"`
}

// Public is what every seat can see: the table, deaths, public claims and
// announced results. It has no Self, teammates or private info, so scene
// prompts are built from it. Notes may be nil.
func Public(gs *state.GameState, notes *state.Notes) *View {
	v := &View{
		Day:                 gs.Day,
		Phase:               gs.Phase,
		Players:             gs.Names(),
		AlivePlayers:        gs.AliveNames(),
		DeadPlayers:         []DeadPlayer{},
		WolfTeammates:       []string{},
		PublicClaims:        map[string]state.Claim{},
		PublicSeerResults:   []SeerResult{},
		PublicMediumResults: []state.MediumResult{},
		ExecutionHistory:    []Execution{},
		PrivateInfo:         []string{},
	}

	for _, p := range gs.Players {
		if !p.Alive {
			v.DeadPlayers = append(v.DeadPlayers, DeadPlayer{Name: p.Name, Cause: gs.DeathCause(p.Name)})
		}
	}

	if notes != nil {
		for k, c := range notes.PublicClaims {
			v.PublicClaims[k] = c
		}
		v.PublicMediumResults = append(v.PublicMediumResults, notes.PublicMediumResults...)
	}

	for _, e := range gs.Log {
		switch e.Type {
		case state.EventSeer:
			if role, ok := notes.ClaimedRole(e.Actor); ok && role == state.RoleSeer && gs.IsAlive(e.Actor) {
				v.PublicSeerResults = append(v.PublicSeerResults, SeerResult{
					Day: e.Day, Actor: e.Actor, Target: e.Target, Result: e.Result,
				})
			}
		case state.EventExecute:
			v.ExecutionHistory = append(v.ExecutionHistory, Execution{Day: e.Day, Target: e.Target})
		}
	}
	return v
}

// Project builds name's view of gs. Notes may be nil.
func Project(gs *state.GameState, notes *state.Notes, name string) (*View, error) {
	me := gs.Get(name)
	if me == nil {
		return nil, fmt.Errorf("%s is not seated in this game", name)
	}

	v := Public(gs, notes)
	v.Self = Self{Name: me.Name, Role: me.Role, RoleLabel: me.Role.Label(), Alive: me.Alive}

	if me.Role == state.RoleWerewolf {
		for _, w := range gs.Werewolves(false) {
			if w.Name != me.Name {
				v.WolfTeammates = append(v.WolfTeammates, w.Name)
			}
		}
	}

	v.PrivateInfo = privateInfo(gs, me)
	return v, nil
}

// privateInfo lists what only me knows because of their role.
func privateInfo(gs *state.GameState, me *state.Player) []string {
	info := []string{}
	switch me.Role {
	case state.RoleSeer:
		for _, e := range gs.Log {
			if e.Type == state.EventSeer && e.Actor == me.Name {
				info = append(info, fmt.Sprintf("Night %d: %s → %s", e.Day, e.Target, readingLabel(e.Result)))
			}
		}
	case state.RoleBodyguard:
		for _, e := range gs.Log {
			if e.Type != state.EventGuard || e.Actor != me.Name {
				continue
			}
			line := fmt.Sprintf("Night %d: %s を護衛", e.Day, e.Target)
			if slices.ContainsFunc(gs.Log, func(a state.Event) bool {
				return a.Type == state.EventAttack && a.Day == e.Day && a.Target == e.Target && a.Result == state.ResultGuarded
			}) {
				line += " ★護衛成功"
			}
			info = append(info, line)
		}
	case state.RoleWerewolf:
		for _, e := range gs.Log {
			if e.Type != state.EventAttack {
				continue
			}
			outcome := "成功"
			if e.Result == state.ResultGuarded {
				outcome = "護衛された"
			}
			info = append(info, fmt.Sprintf("Night %d: %s を襲撃 → %s", e.Day, e.Target, outcome))
		}
	case state.RoleMedium:
		for _, e := range gs.Log {
			if e.Type != state.EventExecute {
				continue
			}
			label := "人間"
			if e.Alignment == state.AlignmentWerewolf {
				label = "人狼"
			}
			info = append(info, fmt.Sprintf("Day %d 処刑: %s → %s", e.Day, e.Target, label))
		}
	}
	return info
}

func readingLabel(result string) string {
	if result == state.ResultWerewolf {
		return "人狼"
	}
	return "人狼ではない"
}
