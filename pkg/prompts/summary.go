package prompts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

// BuildStateSummary renders a public view for scene prompts. player is the
// human's seat, which the narrator needs to leave their lines alone.
func BuildStateSummary(v *view.View, player string) string {
	var sb strings.Builder
	sb.WriteString("## ゲーム状態\n")
	fmt.Fprintf(&sb, "- 日付: Day %d  フェーズ: %s\n", v.Day, v.Phase)
	fmt.Fprintf(&sb, "- プレイヤー操作キャラ: %s\n\n", player)
	fmt.Fprintf(&sb, "### 生存者 %d 名\n", len(v.AlivePlayers))
	for _, n := range v.AlivePlayers {
		fmt.Fprintf(&sb, "  - %s\n", n)
	}

	if len(v.DeadPlayers) > 0 {
		fmt.Fprintf(&sb, "\n### 死亡者 %d 名\n", len(v.DeadPlayers))
		for _, d := range v.DeadPlayers {
			fmt.Fprintf(&sb, "  - %s（%s）\n", d.Name, d.Cause)
		}
	}

	if len(v.PublicClaims) > 0 {
		byRole := map[state.Role][]string{}
		var order []state.Role
		for _, name := range v.Players {
			c, ok := v.PublicClaims[name]
			if !ok {
				continue
			}
			if _, seen := byRole[c.Role]; !seen {
				order = append(order, c.Role)
			}
			byRole[c.Role] = append(byRole[c.Role], fmt.Sprintf("%s（Day%d）", name, c.Day))
		}
		sb.WriteString("\n### 公開済みCO一覧（重要: 再COさせないこと）\n")
		for _, r := range order {
			fmt.Fprintf(&sb, "  - %sCO済み: %s\n", r.Label(), strings.Join(byRole[r], "、"))
		}
	}

	if len(v.PublicSeerResults) > 0 {
		sb.WriteString("\n### 公開済み占い結果\n")
		for _, r := range v.PublicSeerResults {
			fmt.Fprintf(&sb, "  - Day%d夜: %s → %s: %s\n", r.Day, r.Actor, r.Target, resultLabel(r.Result))
		}
	}

	if len(v.PublicMediumResults) > 0 {
		sb.WriteString("\n### 公開済み霊媒結果\n")
		for _, r := range v.PublicMediumResults {
			fmt.Fprintf(&sb, "  - Day%d: %s → %s: %s\n", r.Day, r.Actor, r.Target, resultLabel(r.Result))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// BuildCharacterInfo lists the speech settings of names, skipping any name
// the roster does not know.
func BuildCharacterInfo(roster actor.Roster, names []string) string {
	lines := []string{"## キャラクター設定（口調・一人称を厳守すること）"}
	for _, name := range names {
		c, ok := roster[name]
		if !ok {
			continue
		}
		lines = append(lines,
			"\n### "+name,
			"- 一人称: "+c.SpeechStyle.FirstPerson,
			"- 口調: "+c.SpeechStyle.Tone,
			"- 語尾・口癖: "+c.SpeechStyle.VocalTics,
			"- 推理傾向: "+c.Intellect,
		)
	}
	return strings.Join(lines, "\n")
}

// BuildRoleReveal lists every seat's role for the finale scenes.
func BuildRoleReveal(gs *state.GameState, header string, withStatus bool) string {
	lines := []string{header}
	for _, p := range gs.Players {
		line := fmt.Sprintf("  - %s: %s", p.Name, p.Role.Label())
		if withStatus {
			status := "死亡"
			if p.Alive {
				status = "生存"
			}
			line += "（" + status + "）"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Winner names the winning side for the epilogue.
func Winner(gs *state.GameState) string {
	if slices.ContainsFunc(gs.Players, func(p state.Player) bool {
		return p.Alive && p.Role == state.RoleWerewolf
	}) {
		return "人狼陣営"
	}
	return "村人陣営"
}
