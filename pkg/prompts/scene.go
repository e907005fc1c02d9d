package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

// SceneKind names a single-prompt scene.
type SceneKind string

const (
	SceneMorning        SceneKind = "morning"
	SceneVote           SceneKind = "vote"
	SceneExecution      SceneKind = "execution"
	SceneEpilogue       SceneKind = "epilogue"
	SceneEpilogueThread SceneKind = "epilogue_thread"
)

// ParseSceneKind validates a scene name.
func ParseSceneKind(s string) (SceneKind, error) {
	switch k := SceneKind(s); k {
	case SceneMorning, SceneVote, SceneExecution, SceneEpilogue, SceneEpilogueThread:
		return k, nil
	}
	return "", fmt.Errorf("unknown scene kind %q", s)
}

// Finale reports whether the scene may reveal roles and let the dead speak.
func (k SceneKind) Finale() bool {
	return k == SceneEpilogue || k == SceneEpilogueThread
}

// Key is the storage key for a scene of this kind on day. Finale scenes are
// not tied to a day.
func (k SceneKind) Key(day int) string {
	if k.Finale() {
		return string(k)
	}
	return fmt.Sprintf("day%d_%s", day, k)
}

// DiscussionKey is the storage key for the n-th discussion of day.
func DiscussionKey(day, n int) string {
	return fmt.Sprintf("day%d_disc%d", day, n)
}

// Ballot is a decided NPC vote and how to act it out.
type Ballot struct {
	Target string            `json:"target"`
	Reason policy.VoteReason `json:"reason"`
}

// SceneBuilder constructs single-prompt scene requests using a fluent
// interface.
type SceneBuilder struct {
	kind       SceneKind
	gs         *state.GameState
	notes      *state.Notes
	roster     actor.Roster
	discussion string
	ballots    map[string]Ballot
}

// NewScene creates a builder for kind.
func NewScene(kind SceneKind) *SceneBuilder {
	return &SceneBuilder{kind: kind}
}

// WithGameState sets the game state.
func (b *SceneBuilder) WithGameState(gs *state.GameState) *SceneBuilder {
	b.gs = gs
	return b
}

// WithNotes sets the public notes.
func (b *SceneBuilder) WithNotes(n *state.Notes) *SceneBuilder {
	b.notes = n
	return b
}

// WithRoster sets the character personas.
func (b *SceneBuilder) WithRoster(r actor.Roster) *SceneBuilder {
	b.roster = r
	return b
}

// WithDiscussion sets the day's discussion text, used by the vote scene.
func (b *SceneBuilder) WithDiscussion(text string) *SceneBuilder {
	b.discussion = text
	return b
}

// WithBallots sets the decided NPC votes for the vote scene.
func (b *SceneBuilder) WithBallots(ballots map[string]Ballot) *SceneBuilder {
	b.ballots = ballots
	return b
}

// Build renders the prompt for the configured scene.
func (b *SceneBuilder) Build() (string, error) {
	if b.gs == nil {
		return "", fmt.Errorf("gamestate is required")
	}
	switch b.kind {
	case SceneMorning:
		return b.morning(), nil
	case SceneVote:
		return b.vote(), nil
	case SceneExecution:
		return b.execution()
	case SceneEpilogue:
		return b.epilogue(), nil
	case SceneEpilogueThread:
		return b.epilogueThread(), nil
	}
	return "", fmt.Errorf("unknown scene kind %q", b.kind)
}

func (b *SceneBuilder) header(names []string) string {
	return BuildStateSummary(view.Public(b.gs, b.notes), b.gs.Player) + "\n\n" + BuildCharacterInfo(b.roster, names)
}

func outputLine(key string) string {
	return fmt.Sprintf("出力: scene_%s.txt のテキストのみ（余分な説明・コードブロック不要）", key)
}

func (b *SceneBuilder) morning() string {
	gs := b.gs
	victim := ""
	if e, ok := gs.AttackOn(gs.Day - 1); ok && e.Result == state.ResultKilled {
		victim = e.Target
	}

	desc := "昨夜の犠牲者: なし（「昨晩の犠牲者はなし」とだけ告知する。護衛の有無は描写しない）"
	if victim != "" {
		desc = fmt.Sprintf("昨夜の犠牲者: %s（死体が発見される）", victim)
	}

	var sb strings.Builder
	sb.WriteString(b.header(gs.AliveNames()))
	fmt.Fprintf(&sb, "\n\n## タスク: Day %d 朝シーンを生成してください\n\n%s\n\n", gs.Day, desc)
	sb.WriteString("生成ルール:\n")
	sb.WriteString("- 夜明けの村、前夜の出来事が明らかになる場面を描写する\n")
	if victim != "" {
		fmt.Fprintf(&sb, "- %s の死体発見と村人の動揺を描写する\n", victim)
	} else {
		sb.WriteString("- 「昨晩の犠牲者はなし」とだけ告知する（護衛成功かどうかは触れない）\n")
	}
	sb.WriteString("- 生存者数名が反応してよい（全員でなくてもよい）\n")
	sb.WriteString("- 200〜400 文字程度\n")
	fmt.Fprintf(&sb, "- プレイヤー（%s）の発言を生成してもよいが、自然な範囲で\n\n", gs.Player)
	sb.WriteString(outputLine(SceneMorning.Key(gs.Day)))
	return sb.String()
}

func (b *SceneBuilder) vote() string {
	gs := b.gs

	var instruction string
	if len(b.ballots) > 0 {
		voters := make([]string, 0, len(b.ballots))
		for v := range b.ballots {
			if v != gs.Player {
				voters = append(voters, v)
			}
		}
		sort.Slice(voters, func(i, j int) bool { return seat(gs, voters[i]) < seat(gs, voters[j]) })
		lines := make([]string, len(voters))
		for i, v := range voters {
			bl := b.ballots[v]
			lines[i] = fmt.Sprintf("- %s → %s（演技指示: %s）", v, bl.Target, ReasonHint(bl.Reason))
		}
		instruction = "## 各NPCの投票先と演技指示\n" +
			"投票先は決定済み。これまでの議論の流れを踏まえ、不自然にならない台詞を書くこと。\n" +
			"役職・裏の思惑は台詞に絶対に出さない。\n\n" +
			strings.Join(lines, "\n")
	} else {
		target := "未定"
		if b.notes != nil && b.notes.VillageVoteTarget != "" {
			target = b.notes.VillageVoteTarget
		}
		instruction = "村の多数派の投票先（NPC村人陣営はここに投票する）: " + target
	}

	var sb strings.Builder
	sb.WriteString(b.header(gs.AliveNames()))
	sb.WriteString("\n")
	if b.discussion != "" {
		fmt.Fprintf(&sb, "\n## 本日の議論（参考: 各NPCの直前の発言）\n%s\n", b.discussion)
	}
	fmt.Fprintf(&sb, "\n## タスク: Day %d 投票宣言シーンを生成してください\n\n%s\n\n", gs.Day, instruction)
	sb.WriteString("生成ルール:\n")
	sb.WriteString("- 各 NPC が投票先を宣言する場面を描写する\n")
	fmt.Fprintf(&sb, "- プレイヤー（%s）の投票宣言は含めない（ユーザーが後で入力する）\n", gs.Player)
	sb.WriteString("- 生存者のみが発言する\n")
	sb.WriteString("- 各キャラクターの口調・一人称・語尾を維持する\n")
	sb.WriteString("- 発言フォーマット: 名前「セリフ」（役職付記禁止）\n")
	sb.WriteString("- 「pivot」の NPC は翻意の理由を自然に語らせること。「なんとなく」「直感です」のみの一行は禁止。\n\n")
	sb.WriteString(outputLine(SceneVote.Key(gs.Day)))
	return sb.String()
}

func (b *SceneBuilder) execution() (string, error) {
	gs := b.gs
	executed := ExecutedToday(gs)
	if executed == "" {
		return "", fmt.Errorf("no execution recorded for day %d", gs.Day)
	}

	var sb strings.Builder
	sb.WriteString(b.header(append(gs.AliveNames(), executed)))
	fmt.Fprintf(&sb, "\n\n## タスク: Day %d 処刑シーンを生成してください\n\n処刑対象: %s\n\n", gs.Day, executed)
	sb.WriteString("生成ルール:\n")
	fmt.Fprintf(&sb, "- %s が処刑される場面を描写する\n", executed)
	fmt.Fprintf(&sb, "- %s は処刑前に最後の言葉を一言述べてもよい\n", executed)
	fmt.Fprintf(&sb, "- 処刑後、%s の役職は絶対に明かさない（霊媒師COがない限り）\n", executed)
	sb.WriteString("  NG: 「正体は〇〇だった」 NG: 「村人/人狼だったのか」という確定的表現\n")
	sb.WriteString("- 村人たちの反応を短く描写する\n")
	sb.WriteString("- 発言フォーマット: 名前「セリフ」（役職付記禁止）\n\n")
	sb.WriteString(outputLine(SceneExecution.Key(gs.Day)))
	return sb.String(), nil
}

func (b *SceneBuilder) epilogue() string {
	gs := b.gs
	var sb strings.Builder
	sb.WriteString(BuildRoleReveal(gs, "## 全役職（エピローグで公開）", true))
	sb.WriteString("\n\n")
	sb.WriteString(BuildCharacterInfo(b.roster, gs.Names()))
	fmt.Fprintf(&sb, "\n\n## タスク: エピローグシーンを生成してください\n\n勝者: %s\n\n", Winner(gs))
	sb.WriteString("生成ルール:\n")
	sb.WriteString("- 勝敗を宣告し、全員の役職を明かす（エピローグでは役職公開が許可されている）\n")
	sb.WriteString("- 村人たちの驚き・納得・安堵などの反応を描写する\n")
	sb.WriteString("- 各キャラクターが自分の役職と行動を振り返ってもよい\n")
	sb.WriteString("- 発言フォーマット: 名前「セリフ」\n\n")
	sb.WriteString(outputLine(SceneEpilogue.Key(gs.Day)))
	return sb.String()
}

func (b *SceneBuilder) epilogueThread() string {
	gs := b.gs
	var sb strings.Builder
	sb.WriteString(BuildRoleReveal(gs, "## 全役職（感想戦用）", false))
	sb.WriteString("\n\n")
	sb.WriteString(BuildCharacterInfo(b.roster, gs.Names()))
	fmt.Fprintf(&sb, "\n\n## タスク: 感想戦スレッド（BBS風）を生成してください\n\n勝者: %s\n\n", Winner(gs))
	sb.WriteString("生成ルール:\n")
	sb.WriteString("- ゲーム終了後の感想戦。死亡者を含む全員が役職公開の上で振り返る\n")
	sb.WriteString("- 「あの時こうすればよかった」「あれが失敗だった」など本音で語る\n")
	sb.WriteString("- BBS 投稿風に全員がバランスよく発言する\n")
	sb.WriteString("- 各キャラクターの口調・一人称・語尾を維持する\n")
	sb.WriteString("- 発言フォーマット: 名前「セリフ」\n")
	sb.WriteString("- 情報秘匿ルールはゲーム終了後のため適用外\n\n")
	sb.WriteString(outputLine(SceneEpilogueThread.Key(gs.Day)))
	return sb.String()
}

// ExecutedToday returns who was executed on the current day, if anyone.
func ExecutedToday(gs *state.GameState) string {
	for i := len(gs.Log) - 1; i >= 0; i-- {
		if e := gs.Log[i]; e.Type == state.EventExecute && e.Day == gs.Day {
			return e.Target
		}
	}
	return ""
}

func seat(gs *state.GameState, name string) int {
	for i, p := range gs.Players {
		if p.Name == name {
			return i
		}
	}
	return len(gs.Players)
}
