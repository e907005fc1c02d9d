package main

import (
	"bytes"
	"testing"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/autoplay"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
)

func render(lines []kv) string {
	var buf bytes.Buffer
	printKV(&buf, lines)
	return buf.String()
}

func TestNightKV(t *testing.T) {
	tests := []struct {
		name     string
		out      *gm.NightOutcome
		expected string
	}{
		{
			name:     "missing input",
			out:      &gm.NightOutcome{Need: policy.NeedInput{Seer: true, Attack: true}},
			expected: "NEED_SEER_INPUT=true\nNEED_ATTACK_INPUT=true\n",
		},
		{
			name: "resolved",
			out: &gm.NightOutcome{
				Actions: engine.NightActions{Attack: "ヤコブ"},
				Result:  &engine.NightResult{Victim: "ヤコブ", Win: engine.WinNone},
			},
			expected: "ATTACK=ヤコブ\nVICTIM=ヤコブ\nGUARDED=false\nWIN=none\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(nightKV(tt.out)); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestVoteKV(t *testing.T) {
	out := &gm.VoteOutcome{
		Ballots: map[string]string{"ヤコブ": "シモン", "カタリナ": "シモン", "シモン": "ヤコブ"},
		Result: &engine.VoteResult{
			Executed:  "シモン",
			Alignment: "werewolf",
			Win:       engine.WinNone,
		},
	}
	expected := "EXECUTED=シモン\nTIED=\nBALLOTS=カタリナ>シモン,シモン>ヤコブ,ヤコブ>シモン\nWIN=none\n"
	if got := render(voteKV(out)); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestSummaryKV(t *testing.T) {
	s := autoplay.Summarize([]*autoplay.GameResult{
		{Game: 1, Days: 3, Winner: engine.WinVillage},
		{Game: 2, Days: 4, Winner: engine.WinWerewolf, Errors: []string{"boom"}},
	})
	expected := "GAMES=2\nVILLAGE_WINS=1\nWEREWOLF_WINS=1\nUNDECIDED=0\nDAYS_AVG=3.5\nDAYS_MAX=4\nDAYS_MIN=3\nISSUES=0\nFAILED=1\n"
	if got := render(summaryKV(s)); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestBriefKV(t *testing.T) {
	b := policy.Briefing{
		ConfirmedWhite: []string{"リーザ", "ヨアヒム"},
		Suspicion:      []policy.Suspicion{{Name: "シモン", Score: 3}},
		VotePlan:       policy.VotePlanNone,
		RopeMargin:     2,
		WolvesAlive:    2,
		VillageAlive:   5,
	}
	expected := "CONFIRMED_WHITE=リーザ,ヨアヒム\nCONFIRMED_BLACK=\nSUSPICION=シモン:3\nVOTE_PLAN=none\nCOUNTER_CO=\nROPE_MARGIN=2\nWOLVES_ALIVE=2\nVILLAGE_ALIVE=5\n"
	if got := render(briefKV(b)); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestSceneKV(t *testing.T) {
	got := render(sceneKV(&gm.SceneOutcome{Key: "day2_vote", Attempts: 2, Errored: []string{"オットー"}}))
	expected := "SCENE_FILE=scene_day2_vote.txt\nATTEMPTS=2\nFALLBACK_SPEAKERS=オットー\n"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestPrintProgress(t *testing.T) {
	ch := make(chan agents.Progress, 4)
	ch <- agents.Progress{Kind: agents.ProgressTyping, Name: "ヤコブ"}
	ch <- agents.Progress{Kind: agents.ProgressLine, Name: "ヤコブ", Text: "ヤコブ「やあ」"}
	ch <- agents.Progress{Kind: agents.ProgressError, Name: "オットー"}
	close(ch)

	var buf bytes.Buffer
	printProgress(&buf, ch)
	expected := "... ヤコブ\n!! オットー fell back to a silent line\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}
