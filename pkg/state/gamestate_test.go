package state

import (
	"encoding/json"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
)

func testState() *GameState {
	return &GameState{
		Day:    2,
		Phase:  PhaseDayDiscussion,
		Player: "カタリナ",
		Players: []Player{
			{Name: "カタリナ", Role: RoleVillager, Alive: true},
			{Name: "パメラ", Role: RoleWerewolf, Alive: true},
			{Name: "ヨアヒム", Role: RoleSeer, Alive: true},
			{Name: "ヤコブ", Role: RoleMadman, Alive: false},
		},
		Log: []Event{
			SeerEvent(1, "ヨアヒム", "パメラ", ResultWerewolf),
			ExecuteEvent(1, "ヤコブ", AlignmentHuman, map[string]int{"ヤコブ": 3}, map[string]string{"カタリナ": "ヤコブ"}),
		},
	}
}

func TestGameState_RoundTrip(t *testing.T) {
	gs := testState()

	data, err := json.Marshal(gs)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var loaded GameState
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if !reflect.DeepEqual(gs, &loaded) {
		t.Errorf("Expected round-trip to be identical\nwant: %+v\ngot:  %+v", gs, &loaded)
	}
}

func TestGameState_DeepCopyIsIndependent(t *testing.T) {
	gs := testState()
	cp, err := gs.DeepCopy()
	if err != nil {
		t.Fatalf("DeepCopy failed: %v", err)
	}

	cp.Players[0].Alive = false
	cp.Log[1].Tally["ヤコブ"] = 99

	if !gs.Players[0].Alive {
		t.Error("Expected original player to stay alive")
	}
	if gs.Log[1].Tally["ヤコブ"] != 3 {
		t.Errorf("Expected original tally 3, got %d", gs.Log[1].Tally["ヤコブ"])
	}
}

func TestGameState_Queries(t *testing.T) {
	gs := testState()

	if got := gs.AliveNames(); !slices.Equal(got, []string{"カタリナ", "パメラ", "ヨアヒム"}) {
		t.Errorf("Expected three living players, got %v", got)
	}
	wolves, others := gs.Counts()
	if wolves != 1 || others != 2 {
		t.Errorf("Expected counts 1/2, got %d/%d", wolves, others)
	}
	if p := gs.FindRole(RoleMadman, true); p != nil {
		t.Errorf("Expected no living madman, got %s", p.Name)
	}
	if p := gs.FindRole(RoleMadman, false); p == nil || p.Name != "ヤコブ" {
		t.Errorf("Expected dead madman ヤコブ, got %v", p)
	}
	if got := gs.DeathCause("ヤコブ"); got != "Day1 処刑" {
		t.Errorf("Expected 'Day1 処刑', got %q", got)
	}
}

func TestPhase_Next(t *testing.T) {
	tests := []struct {
		from Phase
		want Phase
	}{
		{PhaseNight, PhaseDayDiscussion},
		{PhaseDayDiscussion, PhaseDayVote},
		{PhaseDayVote, PhaseNight},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			if got := tt.from.Next(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewGame(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	gs, err := NewGame("シモン", rng)
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	if gs.Day != 1 || gs.Phase != PhaseDayDiscussion {
		t.Errorf("Expected day 1 day_discussion, got day %d %s", gs.Day, gs.Phase)
	}
	if gs.Player != "シモン" || gs.Players[0].Name != "シモン" {
		t.Errorf("Expected player シモン seated first, got %s / %s", gs.Player, gs.Players[0].Name)
	}
	if len(gs.Players) != len(RoleSet) {
		t.Fatalf("Expected %d players, got %d", len(RoleSet), len(gs.Players))
	}

	counts := map[Role]int{}
	seen := map[string]bool{}
	for _, p := range gs.Players {
		counts[p.Role]++
		if seen[p.Name] {
			t.Errorf("Duplicate name %s", p.Name)
		}
		seen[p.Name] = true
		if !p.Alive {
			t.Errorf("Expected %s alive at setup", p.Name)
		}
	}
	want := map[Role]int{RoleWerewolf: 2, RoleMadman: 1, RoleSeer: 1, RoleMedium: 1, RoleBodyguard: 1, RoleVillager: 3}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Expected role counts %v, got %v", want, counts)
	}
}

func TestNewGame_UnknownPlayer(t *testing.T) {
	if _, err := NewGame("Nobody", rand.New(rand.NewPCG(1, 2))); err == nil {
		t.Error("Expected error for unknown character")
	}
}

func TestNewGame_NoPlayerPicksFirstSeat(t *testing.T) {
	gs, err := NewGame("", rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	if gs.Player != gs.Players[0].Name {
		t.Errorf("Expected player %s, got %s", gs.Players[0].Name, gs.Player)
	}
}

func TestNotes_RecordClaimKeepsFirst(t *testing.T) {
	n := NewNotes()

	if !n.RecordClaim("パメラ", RoleSeer, 1) {
		t.Error("Expected first claim to be recorded")
	}
	if n.RecordClaim("パメラ", RoleMedium, 2) {
		t.Error("Expected second claim to be ignored")
	}
	if role, _ := n.ClaimedRole("パメラ"); role != RoleSeer {
		t.Errorf("Expected seer, got %s", role)
	}
}

func TestNotes_ClaimedSeerFallsBackToLog(t *testing.T) {
	gs := testState()

	if got := NewNotes().ClaimedSeer(gs); got != "ヨアヒム" {
		t.Errorf("Expected log fallback ヨアヒム, got %q", got)
	}

	n := NewNotes()
	n.RecordClaim("パメラ", RoleSeer, 1)
	if got := n.ClaimedSeer(gs); got != "パメラ" {
		t.Errorf("Expected claimant パメラ, got %q", got)
	}
}

func TestNotes_PendingCounterClaims(t *testing.T) {
	gs := &GameState{
		Player: "パメラ",
		Players: []Player{
			{Name: "パメラ", Role: RoleVillager, Alive: true},
			{Name: "オットー", Role: RoleMadman, Alive: true},
			{Name: "シモン", Role: RoleWerewolf, Alive: true},
			{Name: "ディータ", Role: RoleWerewolf, Alive: false},
		},
	}
	n := NewNotes()
	n.AddCounterClaimActors("シモン", "オットー", "ディータ")
	n.RecordClaim("シモン", RoleSeer, 1)

	got := n.PendingCounterClaims(gs)
	if len(got) != 1 || got[0] != "オットー" {
		t.Errorf("Expected [オットー], got %v", got)
	}

	var nilNotes *Notes
	if got := nilNotes.PendingCounterClaims(gs); got != nil {
		t.Errorf("Expected nil for nil notes, got %v", got)
	}
}
