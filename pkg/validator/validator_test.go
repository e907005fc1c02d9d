package validator

import (
	"strings"
	"testing"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/stretchr/testify/assert"
)

func testState() *state.GameState {
	return &state.GameState{
		Day:   2,
		Phase: state.PhaseDayDiscussion,
		Players: []state.Player{
			{Name: "パメラ", Role: state.RoleWerewolf, Alive: true},
			{Name: "ヨアヒム", Role: state.RoleSeer, Alive: true},
			{Name: "ヤコブ", Role: state.RoleVillager, Alive: false},
			{Name: "リーザ", Role: state.RoleMedium, Alive: true},
		},
		Log: []state.Event{
			state.ExecuteEvent(1, "ヤコブ", state.AlignmentHuman, map[string]int{"ヤコブ": 3}, nil),
		},
	}
}

func kinds(vs []Violation) []Kind {
	out := make([]Kind, len(vs))
	for i, v := range vs {
		out[i] = v.Kind
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want []Kind
	}{
		{
			name: "clean scene",
			text: "朝が来た。\nパメラ「おはよう」\nヨアヒム：「ああ」\nリーザ: 「静かだね」",
			want: []Kind{},
		},
		{
			name: "dead speaker",
			text: "パメラ「おはよう」\nヤコブ「まだいるよ」",
			want: []Kind{KindDeadSpeaker},
		},
		{
			name: "dead speaker with full-width colon",
			text: "ヤコブ：「まだいるよ」",
			want: []Kind{KindDeadSpeaker},
		},
		{
			name: "last words at an execution",
			text: "ヤコブ「無念だ」",
			opts: Options{Protagonist: "ヤコブ"},
			want: []Kind{},
		},
		{
			name: "finale lets the dead speak and roles show",
			text: "ヤコブ「楽しかった」\nパメラ（人狼）「ごめんね」",
			opts: Options{Finale: true},
			want: []Kind{},
		},
		{
			name: "unknown speaker",
			text: "トーマス「誰だ？」",
			want: []Kind{KindUnknownSpeaker},
		},
		{
			name: "narration before the speaker is fine",
			text: "朝になった。パメラ「おはよう」",
			want: []Kind{},
		},
		{
			name: "japanese role label",
			text: "パメラ（人狼）「おはよう」",
			want: []Kind{KindRoleLeak},
		},
		{
			name: "english role label in any case",
			text: "ヨアヒム(Seer)は黙っていた。",
			want: []Kind{KindRoleLeak},
		},
		{
			name: "name echo",
			text: "パメラ「パメラ：おはよう」",
			want: []Kind{KindNameEcho},
		},
		{
			name: "doubled brackets",
			text: "パメラ「「おはよう」」",
			want: []Kind{KindDoubledBracket, KindDoubledBracket},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(Validate(testState(), tt.text, tt.opts))
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

// A dead character with a single attributable line is rejected, and the
// violation names them.
func TestValidate_DeadSpeakerNamed(t *testing.T) {
	vs := Validate(testState(), "リーザ「今日は誰を吊る？」\nヤコブ「俺じゃない」", Options{})
	if len(vs) != 1 {
		t.Fatalf("Expected 1 violation, got %d: %v", len(vs), vs)
	}
	if vs[0].Kind != KindDeadSpeaker || vs[0].Name != "ヤコブ" {
		t.Errorf("Expected dead_speaker for ヤコブ, got %+v", vs[0])
	}
}

func TestValidate_UnknownSpeakerReportedOnce(t *testing.T) {
	vs := Validate(testState(), "トーマス「一」\nトーマス「二」", Options{})
	if len(vs) != 1 {
		t.Errorf("Expected a single unknown_speaker, got %v", vs)
	}
}

func TestFormat(t *testing.T) {
	vs := []Violation{
		{Kind: KindDeadSpeaker, Name: "ヤコブ", Message: "ヤコブ は死亡済みですが発言しています"},
		{Kind: KindDoubledBracket, Message: "二重開きかぎ括弧（「「）が検出されました"},
	}
	out := Format(vs)
	if !strings.Contains(out, "- [dead_speaker] ヤコブ") {
		t.Errorf("Expected formatted dead_speaker line, got %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Expected two lines, got %q", out)
	}
}
