package state

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// NamePool is the fixed cast that seats are drawn from.
var NamePool = []string{
	"カタリナ", "パメラ", "ヨアヒム", "ヤコブ", "シモン",
	"フリーデル", "オットー", "リーザ", "ニコラス", "ディータ",
	"モーリッツ", "レジーナ", "ヴァルター", "ジムゾン", "トーマス",
	"アルビン",
}

// RoleSet is the role distribution of a 9-player game.
var RoleSet = []Role{
	RoleWerewolf, RoleWerewolf, RoleMadman, RoleSeer,
	RoleMedium, RoleBodyguard, RoleVillager, RoleVillager, RoleVillager,
}

// NewGame seats len(RoleSet) characters and deals shuffled roles. The human
// player's character is always seated; when player is empty the first drawn
// name is used.
func NewGame(player string, rng *rand.Rand) (*GameState, error) {
	if player != "" && !slices.Contains(NamePool, player) {
		return nil, fmt.Errorf("unknown character: %s", player)
	}

	others := make([]string, 0, len(NamePool))
	for _, n := range NamePool {
		if n != player {
			others = append(others, n)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	var seated []string
	if player != "" {
		seated = append([]string{player}, others[:len(RoleSet)-1]...)
	} else {
		seated = others[:len(RoleSet)]
		player = seated[0]
	}

	roles := slices.Clone(RoleSet)
	rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	players := make([]Player, len(seated))
	for i, name := range seated {
		players[i] = Player{Name: name, Role: roles[i], Alive: true}
	}

	now := time.Now().UTC()
	return &GameState{
		ID:        uuid.New(),
		Day:       1,
		Phase:     PhaseDayDiscussion,
		Player:    player,
		Players:   players,
		Log:       []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
