package policy

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// table seats: W1 W2 Mad Seer Medium Guard V1 V2 Hero(villager, human).
func table() *state.GameState {
	return &state.GameState{
		Day:    1,
		Phase:  state.PhaseNight,
		Player: "Hero",
		Players: []state.Player{
			{Name: "W1", Role: state.RoleWerewolf, Alive: true},
			{Name: "W2", Role: state.RoleWerewolf, Alive: true},
			{Name: "Mad", Role: state.RoleMadman, Alive: true},
			{Name: "Seer", Role: state.RoleSeer, Alive: true},
			{Name: "Medium", Role: state.RoleMedium, Alive: true},
			{Name: "Guard", Role: state.RoleBodyguard, Alive: true},
			{Name: "V1", Role: state.RoleVillager, Alive: true},
			{Name: "V2", Role: state.RoleVillager, Alive: true},
			{Name: "Hero", Role: state.RoleVillager, Alive: true},
		},
		Log: []state.Event{},
	}
}

func rng(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 99))
}

func TestComputeBriefing_ConfirmedColours(t *testing.T) {
	gs := table()
	gs.Day = 3
	gs.Log = append(gs.Log,
		state.SeerEvent(1, "Seer", "W1", state.ResultWerewolf),
		state.AttackEvent(1, "V2", state.ResultKilled),
		state.ExecuteEvent(2, "Mad", state.AlignmentHuman, map[string]int{"Mad": 5, "V1": 2}, nil),
	)
	gs.Get("V2").Alive = false
	gs.Get("Mad").Alive = false

	notes := state.NewNotes()
	notes.RecordClaim("Seer", state.RoleSeer, 1)

	b := ComputeBriefing(gs, notes, rng(1), DefaultClaimProbabilities)

	assert.Equal(t, []string{"W1"}, b.ConfirmedBlack)
	assert.Empty(t, b.ConfirmedWhite, "dead whites are not listed")
	assert.Equal(t, "W1", b.VotePlan)
	assert.Equal(t, 2, b.WolvesAlive)
	assert.Equal(t, 5, b.VillageAlive)
	assert.Equal(t, 2, b.RopeMargin)
	assert.Empty(t, b.CounterClaims, "no bluffing after day 2")

	for _, s := range b.Suspicion {
		if s.Name == "W1" {
			t.Error("Expected confirmed black to be excluded from suspicion")
		}
		if s.Name == "Hero" {
			t.Error("Expected the human player to be excluded from suspicion")
		}
	}
}

func TestComputeBriefing_UnclaimedSeerIsPrivate(t *testing.T) {
	gs := table()
	gs.Day = 2
	gs.Log = append(gs.Log, state.SeerEvent(1, "Seer", "W1", state.ResultWerewolf))

	b := ComputeBriefing(gs, state.NewNotes(), rng(1), ClaimProbabilities{Nobody: 1})
	assert.Empty(t, b.ConfirmedBlack)
	assert.Contains(t, b.Suspicion, Suspicion{Name: "W1", Score: 0})
}

func TestComputeBriefing_VotePlanFromSuspicion(t *testing.T) {
	gs := table()
	gs.Day = 3
	gs.Log = append(gs.Log,
		state.ExecuteEvent(1, "Medium", state.AlignmentHuman, map[string]int{"Medium": 4, "V1": 3, "W2": 2}, nil),
	)
	gs.Get("Medium").Alive = false

	b := ComputeBriefing(gs, state.NewNotes(), rng(1), DefaultClaimProbabilities)
	assert.Equal(t, "V1", b.VotePlan)

	scores := map[string]int{}
	for _, s := range b.Suspicion {
		scores[s.Name] = s.Score
	}
	assert.Equal(t, 6, scores["V1"])
	assert.Equal(t, 4, scores["W2"])
	assert.Equal(t, 0, scores["Guard"])
}

func TestComputeBriefing_VotePlanTies(t *testing.T) {
	gs := table()
	gs.Day = 3
	b := ComputeBriefing(gs, state.NewNotes(), rng(1), DefaultClaimProbabilities)
	assert.Equal(t, "W1", b.VotePlan, "ties go to the first seat")

	gs.Players = gs.Players[len(gs.Players)-1:]
	b = ComputeBriefing(gs, state.NewNotes(), rng(1), DefaultClaimProbabilities)
	assert.Equal(t, VotePlanNone, b.VotePlan)
}

func TestDecideAttackTarget(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(gs *state.GameState, n *state.Notes)
		seerTarget string
		want       []string
	}{
		{
			name:       "seer found a wolf",
			seerTarget: "W2",
			want:       []string{"Seer"},
		},
		{
			name: "wolf was executed",
			setup: func(gs *state.GameState, n *state.Notes) {
				gs.Log = append(gs.Log, state.ExecuteEvent(1, "W2", state.AlignmentWerewolf, nil, nil))
				gs.Get("W2").Alive = false
			},
			want: []string{"Medium"},
		},
		{
			name: "top accuser",
			setup: func(gs *state.GameState, n *state.Notes) {
				n.WolfAccusations["W1"] = []string{"V1", "V2"}
				n.WolfAccusations["W2"] = []string{"V1", "W1"}
			},
			want: []string{"V1"},
		},
		{
			name: "accusations against a dead wolf are ignored",
			setup: func(gs *state.GameState, n *state.Notes) {
				gs.Get("W2").Alive = false
				n.WolfAccusations["W2"] = []string{"V1"}
			},
			want: []string{"Mad", "Seer", "Medium", "Guard", "V1", "V2", "Hero"},
		},
		{
			name: "seer found a wolf but is dead",
			setup: func(gs *state.GameState, n *state.Notes) {
				gs.Get("Seer").Alive = false
			},
			seerTarget: "W1",
			want:       []string{"Mad", "Medium", "Guard", "V1", "V2", "Hero"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(0); seed < 10; seed++ {
				gs := table()
				notes := state.NewNotes()
				if tt.setup != nil {
					tt.setup(gs, notes)
				}
				got := DecideAttackTarget(gs, tt.seerTarget, notes, rng(seed))
				if !slices.Contains(tt.want, got) {
					t.Errorf("Expected one of %v, got %q", tt.want, got)
				}
			}
		})
	}
}

func TestDecideAttackTarget_NoCandidates(t *testing.T) {
	gs := table()
	for i := range gs.Players {
		if gs.Players[i].Role != state.RoleWerewolf {
			gs.Players[i].Alive = false
		}
	}
	if got := DecideAttackTarget(gs, "", nil, rng(1)); got != "" {
		t.Errorf("Expected no target, got %q", got)
	}
}

func TestDecideCounterClaim(t *testing.T) {
	t.Run("late game", func(t *testing.T) {
		gs := table()
		gs.Day = 3
		assert.Nil(t, DecideCounterClaim(gs, state.NewNotes(), rng(1), DefaultClaimProbabilities))
	})

	t.Run("nobody gate", func(t *testing.T) {
		gs := table()
		got := DecideCounterClaim(gs, state.NewNotes(), rng(1), ClaimProbabilities{Nobody: 1, Madman: 1})
		assert.Empty(t, got)
	})

	t.Run("madman with every wolf", func(t *testing.T) {
		gs := table()
		got := DecideCounterClaim(gs, state.NewNotes(), rng(1), ClaimProbabilities{Madman: 1, WolfWithMadman: 1})
		assert.Equal(t, []string{"Mad", "W1", "W2"}, got)
	})

	t.Run("madman quiet means exactly one wolf", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			got := DecideCounterClaim(table(), state.NewNotes(), rng(seed), ClaimProbabilities{})
			require.Len(t, got, 1)
			assert.Contains(t, []string{"W1", "W2"}, got[0])
		}
	})

	t.Run("claimants bluff once", func(t *testing.T) {
		notes := state.NewNotes()
		notes.AddCounterClaimActors("Mad", "W1", "W2")
		got := DecideCounterClaim(table(), notes, rng(1), ClaimProbabilities{Madman: 1})
		assert.Empty(t, got)
	})

	t.Run("human madman never bluffs for them", func(t *testing.T) {
		gs := table()
		gs.Player = "Mad"
		got := DecideCounterClaim(gs, state.NewNotes(), rng(1), ClaimProbabilities{Madman: 1})
		require.Len(t, got, 1)
		assert.NotEqual(t, "Mad", got[0])
	})
}

func TestDecideVotes(t *testing.T) {
	gs := table()
	gs.Phase = state.PhaseDayVote
	gs.Log = append(gs.Log, state.SeerEvent(1, "Seer", "V1", state.ResultNotWerewolf))
	notes := state.NewNotes()
	notes.RecordClaim("Seer", state.RoleSeer, 1)
	notes.VillageVoteTarget = "W2"

	for seed := uint64(0); seed < 10; seed++ {
		votes := DecideVotes(gs, notes, rng(seed))

		if _, ok := votes["Hero"]; ok {
			t.Error("Expected no ballot for the human player")
		}
		assert.Len(t, votes, 8)
		assert.Equal(t, "Seer", votes["W1"])
		assert.Equal(t, "Seer", votes["W2"])
		assert.NotEqual(t, "Seer", votes["Mad"])
		assert.NotEqual(t, "Mad", votes["Mad"])
		assert.Equal(t, "W2", votes["V1"])
		assert.Equal(t, "W2", votes["Guard"])
		for voter, target := range votes {
			if voter == target {
				t.Errorf("Expected %s not to vote for themselves", voter)
			}
		}
	}

	v := DecideVillageVote(gs, notes, "W2", rng(1))
	assert.NotEqual(t, "W2", v)
}

func TestDecideVillageVote_FallsBackToLastTally(t *testing.T) {
	gs := table()
	gs.Log = append(gs.Log, state.ExecuteEvent(1, "Medium", state.AlignmentHuman, map[string]int{"Medium": 5, "V2": 3, "W1": 1}, nil))
	gs.Get("Medium").Alive = false

	assert.Equal(t, "V2", DecideVillageVote(gs, state.NewNotes(), "V1", rng(1)))
	assert.Equal(t, "W1", DecideVillageVote(gs, state.NewNotes(), "V2", rng(1)))
}

func TestDecideNightActions(t *testing.T) {
	t.Run("all npc", func(t *testing.T) {
		gs := table()
		notes := state.NewNotes()
		notes.NPCSeerTarget = "W1"
		notes.NPCGuardTarget = "V1"

		got, need := DecideNightActions(gs, notes, engine.NightActions{}, rng(1))
		assert.False(t, need.Any())
		assert.Equal(t, "W1", got.Seer)
		assert.Equal(t, "V1", got.Guard)
		assert.Equal(t, "Seer", got.Attack, "a seer who found a wolf is attacked")

		_, err := engine.New(gs, rng(1)).ApplyNight(got)
		require.NoError(t, err)
	})

	t.Run("human seer without a target", func(t *testing.T) {
		gs := table()
		gs.Player = "Seer"
		_, need := DecideNightActions(gs, state.NewNotes(), engine.NightActions{}, rng(1))
		assert.True(t, need.Seer)
		assert.False(t, need.Guard)
		assert.False(t, need.Attack)
	})

	t.Run("human wolf", func(t *testing.T) {
		gs := table()
		gs.Player = "W1"
		got, need := DecideNightActions(gs, state.NewNotes(), engine.NightActions{Attack: "V2"}, rng(1))
		assert.False(t, need.Any())
		assert.Equal(t, "V2", got.Attack)
	})

	t.Run("guard avoids last night's target", func(t *testing.T) {
		gs := table()
		gs.Day = 2
		gs.Log = append(gs.Log, state.GuardEvent(1, "Guard", "Seer"))
		notes := state.NewNotes()
		notes.RecordClaim("Seer", state.RoleSeer, 1)
		notes.NPCGuardTarget = "Seer"

		for seed := uint64(0); seed < 20; seed++ {
			got, _ := DecideNightActions(gs, notes, engine.NightActions{}, rng(seed))
			assert.NotEqual(t, "Seer", got.Guard)
			assert.NotEqual(t, "Guard", got.Guard)
		}
	})

	t.Run("seer skips checked players", func(t *testing.T) {
		gs := table()
		gs.Day = 2
		for _, n := range []string{"W1", "W2", "Mad", "Medium", "Guard", "V1", "V2"} {
			gs.Log = append(gs.Log, state.SeerEvent(1, "Seer", n, state.ResultNotWerewolf))
		}
		got, _ := DecideNightActions(gs, state.NewNotes(), engine.NightActions{}, rng(1))
		assert.Equal(t, "Hero", got.Seer)
	})
}

func TestClassifyVote(t *testing.T) {
	tests := []struct {
		name   string
		plan   string
		voter  string
		target string
		want   VoteReason
	}{
		{"follows the plan", "V2", "V1", "V2", ReasonConsensus},
		{"wolf breaks away", "V2", "W1", "V1", ReasonPivot},
		{"villager breaks away", "V2", "V1", "W1", ReasonPivot},
		{"plan target votes elsewhere", "V2", "V2", "W1", ReasonConviction},
		{"no plan", "", "V1", "W1", ReasonConviction},
		{"plan none", VotePlanNone, "W1", "V1", ReasonConviction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyVote(tt.plan, tt.voter, tt.target); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
