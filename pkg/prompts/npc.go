package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

// NPCBuilder constructs a single character's discussion prompt using a fluent
// interface. Everything it knows comes from the character's projected view.
type NPCBuilder struct {
	view      *view.View
	character *actor.Character
	hint      string
	context   string
}

// NewNPC creates a builder for the character behind v.
func NewNPC(v *view.View) *NPCBuilder {
	return &NPCBuilder{view: v}
}

// WithCharacter sets the persona.
func (b *NPCBuilder) WithCharacter(c actor.Character) *NPCBuilder {
	b.character = &c
	return b
}

// WithHint sets a private instruction from the game master, e.g. a claim
// directive.
func (b *NPCBuilder) WithHint(hint string) *NPCBuilder {
	b.hint = hint
	return b
}

// WithContext sets earlier discussion text and the running context.
func (b *NPCBuilder) WithContext(context string) *NPCBuilder {
	b.context = context
	return b
}

// Build renders the prompt.
func (b *NPCBuilder) Build() (string, error) {
	if b.view == nil {
		return "", fmt.Errorf("view is required")
	}
	v := b.view
	c := actor.Roster(nil).Get(v.Self.Name)
	if b.character != nil {
		c = *b.character
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "あなたは%sとして人狼ゲームに参加しています。Day %d の議論フェーズです。\n\n", v.Self.Name, v.Day)

	sb.WriteString("## 自分の役職\n")
	fmt.Fprintf(&sb, "%s（あなただけが知っている秘密情報）\n", v.Self.RoleLabel)
	if len(v.WolfTeammates) > 0 {
		fmt.Fprintf(&sb, "\n## 仲間の人狼（秘密情報）\n%s\n", strings.Join(v.WolfTeammates, "、"))
	}
	if len(v.PrivateInfo) > 0 {
		sb.WriteString("\n## あなただけの記録（秘密情報）\n")
		sb.WriteString(bullets(v.PrivateInfo))
		sb.WriteString("\n")
	}

	sb.WriteString("\n## キャラクター設定\n")
	fmt.Fprintf(&sb, "- 一人称: %s\n", c.SpeechStyle.FirstPerson)
	fmt.Fprintf(&sb, "- 口調: %s\n", c.SpeechStyle.Tone)
	fmt.Fprintf(&sb, "- 語尾・口癖: %s\n", c.SpeechStyle.VocalTics)
	fmt.Fprintf(&sb, "- 推理傾向: %s\n", c.Intellect)

	sb.WriteString("\n## 現在の状況\n\n")
	fmt.Fprintf(&sb, "### 生存者（%d名）\n%s\n", len(v.AlivePlayers), bullets(v.AlivePlayers))

	dead := make([]string, len(v.DeadPlayers))
	for i, d := range v.DeadPlayers {
		dead[i] = fmt.Sprintf("%s（%s）", d.Name, d.Cause)
	}
	fmt.Fprintf(&sb, "\n### 死亡者\n%s\n", bullets(dead))

	var claims []string
	for _, name := range v.AlivePlayers {
		if cl, ok := v.PublicClaims[name]; ok {
			claims = append(claims, fmt.Sprintf("%s: %sCO（Day%d）", name, cl.Role.Label(), cl.Day))
		}
	}
	for _, d := range v.DeadPlayers {
		if cl, ok := v.PublicClaims[d.Name]; ok {
			claims = append(claims, fmt.Sprintf("%s: %sCO（Day%d）", d.Name, cl.Role.Label(), cl.Day))
		}
	}
	fmt.Fprintf(&sb, "\n### 公開CO一覧\n%s\n", bullets(claims))

	seer := make([]string, len(v.PublicSeerResults))
	for i, r := range v.PublicSeerResults {
		seer[i] = fmt.Sprintf("Day%d夜 %s → %s: %s", r.Day, r.Actor, r.Target, resultLabel(r.Result))
	}
	fmt.Fprintf(&sb, "\n### 公開占い結果\n%s\n", bullets(seer))

	medium := make([]string, len(v.PublicMediumResults))
	for i, r := range v.PublicMediumResults {
		medium[i] = fmt.Sprintf("Day%d %s → %s: %s", r.Day, r.Actor, r.Target, resultLabel(r.Result))
	}
	fmt.Fprintf(&sb, "\n### 公開霊媒結果\n%s\n", bullets(medium))

	execs := make([]string, len(v.ExecutionHistory))
	for i, e := range v.ExecutionHistory {
		execs[i] = fmt.Sprintf("Day%d: %s（処刑）", e.Day, e.Target)
	}
	fmt.Fprintf(&sb, "\n### 処刑履歴\n%s\n", bullets(execs))

	if b.hint != "" {
		fmt.Fprintf(&sb, "\n## GMからの指示\n%s\n", b.hint)
	}
	if b.context != "" {
		fmt.Fprintf(&sb, "\n%s\n", b.context)
	}

	sb.WriteString(npcRules)
	fmt.Fprintf(&sb, "{\"thought\": \"内面的な考察や戦略（非公開・日本語）\", \"message\": \"%s「セリフ」\"}", v.Self.Name)
	return sb.String(), nil
}

const npcRules = `
## 絶対ルール
- 他のプレイヤーの役職はわかりません。公開情報だけで推理してください。
- 死亡者（dead_players に含まれる人）には発言させない
- 発言フォーマット: 名前「セリフ」（役職を括弧書きしない。完全禁止）
- 一人称・語尾・口癖をキャラクター設定に厳密に従うこと
- 人狼ゲーム経験者として論理的・戦略的に発言すること
- 初心者向け解説・セオリー説明は禁止
- CO促し・ローラー・縄計算・確定白黒の扱いを理解して発言すること
- 【重要】Day 1（初日）は占い結果・霊媒結果が存在しない。占い師・霊媒師はCOできるが、結果の発表は不可。Day 1 に占い結果を述べることは絶対禁止。

## 出力フォーマット（このJSONのみを返すこと。コードブロック不要）
`

// bullets renders items as an indented list, or "なし".
func bullets(items []string) string {
	if len(items) == 0 {
		return "  なし"
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "  - " + it
	}
	return strings.Join(lines, "\n")
}
