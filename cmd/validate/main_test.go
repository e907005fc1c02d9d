package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/validator"
)

func game() *state.GameState {
	return &state.GameState{
		Day:    2,
		Phase:  state.PhaseNight,
		Player: "パメラ",
		Players: []state.Player{
			{Name: "パメラ", Role: state.RoleVillager, Alive: true},
			{Name: "ヤコブ", Role: state.RoleSeer, Alive: true},
			{Name: "シモン", Role: state.RoleWerewolf, Alive: false},
			{Name: "ディータ", Role: state.RoleWerewolf, Alive: false},
		},
		Log: []state.Event{
			state.ExecuteEvent(1, "ディータ", state.AlignmentWerewolf, nil, nil),
			state.ExecuteEvent(2, "シモン", state.AlignmentWerewolf, nil, nil),
		},
	}
}

func TestOptionsFor(t *testing.T) {
	gs := game()
	tests := []struct {
		file     string
		expected validator.Options
	}{
		{"scene_day2_morning.txt", validator.Options{}},
		{"scene_day1_execution.txt", validator.Options{Protagonist: "ディータ"}},
		{"scene_day2_execution.txt", validator.Options{Protagonist: "シモン"}},
		{"scene_day9_execution.txt", validator.Options{Protagonist: "シモン"}},
		{"scene_epilogue.txt", validator.Options{Finale: true}},
		{"scene_epilogue_thread.txt", validator.Options{Finale: true}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.expected, optionsFor(gs, tt.file))
		})
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	data, err := json.Marshal(game())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game_state.json"), data, 0o644))

	write := func(name, text string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
		return p
	}

	vs, err := check(write("scene_day2_execution.txt", "シモン「無念だ」\n"), "")
	require.NoError(t, err)
	assert.Empty(t, vs)

	vs, err = check(write("scene_day2_morning.txt", "シモン「まだいる」\n"), "")
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, validator.KindDeadSpeaker, vs[0].Kind)

	_, err = check(filepath.Join(dir, "missing.txt"), "")
	assert.Error(t, err)
}
