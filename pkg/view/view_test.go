package view

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// The eight-seat fixture: アリス and ボブ are werewolves, カール is a claimed
// seer, ダナ an unclaimed seer, ヘンリー the medium executed on day 1.
func fixturePlayers() []state.Player {
	return []state.Player{
		{Name: "アリス", Role: state.RoleWerewolf, Alive: true},
		{Name: "ボブ", Role: state.RoleWerewolf, Alive: true},
		{Name: "カール", Role: state.RoleSeer, Alive: true},
		{Name: "ダナ", Role: state.RoleSeer, Alive: true},
		{Name: "エミリー", Role: state.RoleVillager, Alive: false},
		{Name: "フランク", Role: state.RoleBodyguard, Alive: true},
		{Name: "グレイス", Role: state.RoleMadman, Alive: true},
		{Name: "ヘンリー", Role: state.RoleMedium, Alive: false},
	}
}

func fixtureLog() []state.Event {
	return []state.Event{
		state.ExecuteEvent(1, "ヘンリー", state.AlignmentHuman,
			map[string]int{"ヘンリー": 5, "アリス": 2},
			map[string]string{"エミリー": "ヘンリー", "フランク": "ヘンリー"}),
		state.SeerEvent(1, "カール", "アリス", state.ResultWerewolf),
		state.SeerEvent(1, "ダナ", "ボブ", state.ResultWerewolf),
		state.GuardEvent(1, "フランク", "カール"),
		state.AttackEvent(1, "エミリー", state.ResultKilled),
	}
}

func fixture() (*state.GameState, *state.Notes) {
	gs := &state.GameState{
		Day:     2,
		Phase:   state.PhaseDayDiscussion,
		Players: fixturePlayers(),
		Log:     fixtureLog(),
	}
	notes := state.NewNotes()
	notes.RecordClaim("カール", state.RoleSeer, 1)
	notes.WolfAccusations["アリス"] = []string{"カール"}
	return gs, notes
}

func mustProject(t *testing.T, gs *state.GameState, notes *state.Notes, name string) *View {
	t.Helper()
	v, err := Project(gs, notes, name)
	if err != nil {
		t.Fatalf("Project(%s) failed: %v", name, err)
	}
	return v
}

func TestProject_WolfTeammates(t *testing.T) {
	tests := []struct {
		name string
		who  string
		want []string
	}{
		{"villager sees no wolves", "エミリー", []string{}},
		{"wolf sees only the other wolf", "アリス", []string{"ボブ"}},
		{"madman sees no wolves", "グレイス", []string{}},
		{"seer sees no wolves", "カール", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, notes := fixture()
			v := mustProject(t, gs, notes, tt.who)
			if !slices.Equal(v.WolfTeammates, tt.want) {
				t.Errorf("Expected wolf teammates %v, got %v", tt.want, v.WolfTeammates)
			}
		})
	}
}

func TestProject_WolfTeammatesIncludeDeadWolves(t *testing.T) {
	gs, notes := fixture()
	gs.Get("ボブ").Alive = false
	v := mustProject(t, gs, notes, "アリス")
	if !slices.Equal(v.WolfTeammates, []string{"ボブ"}) {
		t.Errorf("Expected [ボブ], got %v", v.WolfTeammates)
	}
}

func TestProject_ExecutionHistoryHasNoAlignment(t *testing.T) {
	gs, notes := fixture()
	v := mustProject(t, gs, notes, "エミリー")

	data, err := json.Marshal(v.ExecutionHistory)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "alignment") || strings.Contains(string(data), state.AlignmentHuman) {
		t.Errorf("Expected no alignment in execution history, got %s", data)
	}
	if len(v.ExecutionHistory) != 1 || v.ExecutionHistory[0].Target != "ヘンリー" {
		t.Errorf("Expected one execution of ヘンリー, got %+v", v.ExecutionHistory)
	}
}

func TestProject_DeathCauseNamesNoRole(t *testing.T) {
	gs, notes := fixture()
	v := mustProject(t, gs, notes, "エミリー")

	if len(v.DeadPlayers) != 2 {
		t.Fatalf("Expected 2 dead players, got %d", len(v.DeadPlayers))
	}
	for _, d := range v.DeadPlayers {
		for _, kw := range state.RoleKeywords() {
			if strings.Contains(d.Cause, kw) {
				t.Errorf("Expected cause of %s to hide roles, found %q in %q", d.Name, kw, d.Cause)
			}
		}
		if strings.Contains(d.Cause, "護衛") {
			t.Errorf("Expected no guard information in %q", d.Cause)
		}
	}
	if v.DeadPlayers[0].Cause != "Day1 夜・襲撃死" {
		t.Errorf("Expected 'Day1 夜・襲撃死', got %q", v.DeadPlayers[0].Cause)
	}
	if v.DeadPlayers[1].Cause != "Day1 処刑" {
		t.Errorf("Expected 'Day1 処刑', got %q", v.DeadPlayers[1].Cause)
	}
}

func TestProject_UnclaimedSeerResultsArePrivate(t *testing.T) {
	gs, notes := fixture()
	v := mustProject(t, gs, notes, "エミリー")

	for _, r := range v.PublicSeerResults {
		if r.Actor == "ダナ" {
			t.Errorf("Expected unclaimed seer ダナ to stay private, got %+v", r)
		}
	}
	if len(v.PublicSeerResults) != 1 || v.PublicSeerResults[0].Actor != "カール" {
		t.Errorf("Expected one result from カール, got %+v", v.PublicSeerResults)
	}
}

func TestProject_DeadClaimedSeerResultsAreDropped(t *testing.T) {
	gs, notes := fixture()
	gs.Players = []state.Player{
		{Name: "アリス", Role: state.RoleWerewolf, Alive: true},
		{Name: "ボブ", Role: state.RoleWerewolf, Alive: true},
		{Name: "カール", Role: state.RoleSeer, Alive: false},
		{Name: "エミリー", Role: state.RoleVillager, Alive: true},
		{Name: "グレイス", Role: state.RoleMadman, Alive: true},
	}
	v := mustProject(t, gs, notes, "エミリー")

	for _, r := range v.PublicSeerResults {
		if r.Actor == "カール" {
			t.Errorf("Expected dead seer カール's results to be dropped, got %+v", r)
		}
	}
}

func TestProject_GuardAndAttackStayOut(t *testing.T) {
	gs, notes := fixture()
	v := mustProject(t, gs, notes, "グレイス")

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	s := string(data)
	for _, leak := range []string{"guard", "attack", "護衛", "wolf_accusations"} {
		if strings.Contains(s, leak) {
			t.Errorf("Expected %q not to appear in a madman view: %s", leak, s)
		}
	}
	if len(v.PrivateInfo) != 0 {
		t.Errorf("Expected no private info for the madman, got %v", v.PrivateInfo)
	}
}

func TestProject_PlayerListsCarryNoRoles(t *testing.T) {
	gs, notes := fixture()
	v := mustProject(t, gs, notes, "エミリー")

	data, err := json.Marshal(v.DeadPlayers)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var dead []map[string]any
	if err := json.Unmarshal(data, &dead); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for _, d := range dead {
		for k := range d {
			if k != "name" && k != "cause" {
				t.Errorf("Expected only name and cause, got key %q", k)
			}
		}
	}
	want := []string{"アリス", "ボブ", "カール", "ダナ", "フランク", "グレイス"}
	if !slices.Equal(v.AlivePlayers, want) {
		t.Errorf("Expected alive %v, got %v", want, v.AlivePlayers)
	}
}

func TestProject_PrivateInfo(t *testing.T) {
	gs, notes := fixture()
	gs.Log = append(gs.Log, state.GuardEvent(2, "フランク", "ダナ"), state.AttackEvent(2, "ダナ", state.ResultGuarded))

	tests := []struct {
		who  string
		want []string
	}{
		{"カール", []string{"Night 1: アリス → 人狼"}},
		{"フランク", []string{"Night 1: カール を護衛", "Night 2: ダナ を護衛 ★護衛成功"}},
		{"ボブ", []string{"Night 1: エミリー を襲撃 → 成功", "Night 2: ダナ を襲撃 → 護衛された"}},
		{"エミリー", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.who, func(t *testing.T) {
			v := mustProject(t, gs, notes, tt.who)
			if !slices.Equal(v.PrivateInfo, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, v.PrivateInfo)
			}
		})
	}

	gs.Get("ヘンリー").Role = state.RoleVillager
	gs.Get("ダナ").Role = state.RoleMedium
	v := mustProject(t, gs, notes, "ダナ")
	if !slices.Equal(v.PrivateInfo, []string{"Day 1 処刑: ヘンリー → 人間"}) {
		t.Errorf("Expected medium reading, got %v", v.PrivateInfo)
	}
}

func TestProject_UnknownName(t *testing.T) {
	gs, notes := fixture()
	if _, err := Project(gs, notes, "Nobody"); err == nil {
		t.Error("Expected error for unknown name")
	}
}

func TestProject_NilNotes(t *testing.T) {
	gs, _ := fixture()
	v := mustProject(t, gs, nil, "エミリー")
	if len(v.PublicSeerResults) != 0 || len(v.PublicClaims) != 0 {
		t.Errorf("Expected nothing public without notes, got %+v", v)
	}
}

func TestPublic_HasNoPrivateFields(t *testing.T) {
	gs, notes := fixture()
	v := Public(gs, notes)

	if v.Self != (Self{}) {
		t.Errorf("Expected no identity, got %+v", v.Self)
	}
	if len(v.WolfTeammates) != 0 || len(v.PrivateInfo) != 0 {
		t.Errorf("Expected no teammates or private info, got %v / %v", v.WolfTeammates, v.PrivateInfo)
	}
	if len(v.PublicSeerResults) != 1 || v.PublicSeerResults[0].Actor != "カール" {
		t.Errorf("Expected only the claimed seer's result, got %+v", v.PublicSeerResults)
	}
	if !slices.Equal(v.Players, gs.Names()) {
		t.Errorf("Expected seat order %v, got %v", gs.Names(), v.Players)
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	for _, leak := range []string{string(state.RoleBodyguard), string(state.RoleMadman), string(state.AlignmentHuman)} {
		if strings.Contains(string(data), `"`+leak+`"`) {
			t.Errorf("Expected %q to stay out of the public view, got %s", leak, data)
		}
	}
}
