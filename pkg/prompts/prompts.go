package prompts

import (
	"fmt"

	"github.com/jwebster45206/werewolf-engine/pkg/policy"
)

// SystemInstruction is sent with every scene and NPC call.
const SystemInstruction = `あなたは人狼ゲームのゲームマスター兼ナレーターです。

## 絶対守るべきルール

### 死人は喋らない
alive: false のキャラクターに一切発言させない。

### 役職透け防止
- NPCの役職を絶対に出力しない。
- 発言フォーマットに役職を付記しない。
  NG: カタリナ（村人）「〜」  OK: カタリナ「〜」
- 処刑・襲撃死者の役職は公開しない。霊媒師が自らCOして初めて「人狼だった/人間だった」を公表できる。
  NG: 「正体は占い師だった」  OK: 霊媒師COによる公表のみ

### 出力フォーマット
- キャラクターの発言は「名前「セリフ」」の形式のみ。
- ナレーションは地の文として書く。
- 一人称・語尾・口癖はキャラクター設定に厳密に従う。

### NPCの議論スタイル（経験者モード）
- CO促し・ローラー・縄計算・確定白黒の扱いを全員が理解している。
- 曖昧な返答には「それでは答えになっていない」と追及する。
- 初心者向け解説・セオリー説明は絶対に行わない。

### 情報管理
- ゲーム終了前（epilogue以外）は誰の役職も明かさない。
- 占い・霊媒結果は「COして発表する」形式でのみ公開できる。`

// RetryFeedbackHeader opens the corrective feedback appended after a
// rejected generation.
const RetryFeedbackHeader = "前回のバリデーションエラー（必ず修正してください）"

// PriorDiscussionHeader introduces earlier discussions of the same day.
const PriorDiscussionHeader = "## 本日の議論（これまでの流れ・必ず把握して続けること）"

// RunningContextHeader introduces the lines already spoken in the current
// discussion.
const RunningContextHeader = "## 今discのここまでの発言（直近の流れ・これに続けて発言すること）"

// ClaimExtractionTemplate asks for new role claims made in a scene.
const ClaimExtractionTemplate = `以下の人狼ゲームシーンを読み、このシーン内で初めて役職をCOした発言を抽出してください。

対象:
- 占い師CO（「私が占い師」「占い師です」等）
- 霊媒師CO（「霊媒師です」「霊媒師だ」等）
- 狩人CO（「狩人です」「狩人だ」等）

出力形式（JSONのみ。COがなければ空リスト）:
{"co_claims": [{"name": "キャラ名", "role": "seer|medium|bodyguard"}]}

---
%s
`

// ClaimExtraction builds the claim extraction prompt for sceneText.
func ClaimExtraction(sceneText string) string {
	return fmt.Sprintf(ClaimExtractionTemplate, sceneText)
}

// RetryFeedback renders rejected output's violations as a follow-up prompt.
func RetryFeedback(formatted string) string {
	return "## " + RetryFeedbackHeader + "\n" + formatted
}

// ReasonHints are the acting directions for each kind of ballot.
var ReasonHints = map[policy.VoteReason]string{
	policy.ReasonConsensus: "議論の流れ・多数意見に沿った投票。これまでの発言と一貫した動機で宣言する。",
	policy.ReasonPivot: "議論中の自分の発言とは異なる相手に投票する。役職・裏の思惑は絶対に言わない。" +
		"キャラクターに合った自然な「翻意の言い訳」を考えること。" +
		"例: 直感が変わった / 最後の一手として / あえて流れを変えたい / 念のため など。",
	policy.ReasonConviction: "自分の判断に基づく投票。根拠を一言添える。",
}

// ReasonHint returns the acting direction for r, defaulting to consensus.
func ReasonHint(r policy.VoteReason) string {
	if h, ok := ReasonHints[r]; ok {
		return h
	}
	return ReasonHints[policy.ReasonConsensus]
}

func resultLabel(result string) string {
	if result == "werewolf" {
		return "人狼"
	}
	return "白（人間）"
}
