package actor

import "slices"

// SpeechStyle is how a character talks.
type SpeechStyle struct {
	FirstPerson string `json:"first_person"`         // e.g. "私", "俺"
	Tone        string `json:"tone"`                 // e.g. "丁寧語", "ぶっきらぼう"
	VocalTics   string `json:"vocal_tics,omitempty"` // sentence endings or catchphrases
}

// Character is the fixed persona behind a seat. Roles are dealt per game and
// are never part of the character.
type Character struct {
	Name        string      `json:"name"`
	SpeechStyle SpeechStyle `json:"speech_style"`
	Intellect   string      `json:"intellect,omitempty"` // reasoning tendency
}

// Roster is a set of characters keyed by name.
type Roster map[string]Character

// NewRoster indexes chars by name. Later duplicates win.
func NewRoster(chars []Character) Roster {
	r := make(Roster, len(chars))
	for _, c := range chars {
		r[c.Name] = c
	}
	return r
}

// Get returns the character for name, or a plain default persona.
func (r Roster) Get(name string) Character {
	if c, ok := r[name]; ok {
		return c
	}
	return Character{
		Name:        name,
		SpeechStyle: SpeechStyle{FirstPerson: "私", Tone: "普通", VocalTics: "なし"},
		Intellect:   "標準的",
	}
}

// Names returns the roster's names in sorted order.
func (r Roster) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DefaultCharacters is the built-in cast used when no characters.json is
// provided. Names match state.NamePool.
func DefaultCharacters() []Character {
	return []Character{
		{Name: "カタリナ", SpeechStyle: SpeechStyle{FirstPerson: "私", Tone: "明るく素直", VocalTics: "〜よね"}, Intellect: "直感型"},
		{Name: "パメラ", SpeechStyle: SpeechStyle{FirstPerson: "あたし", Tone: "おっとり", VocalTics: "〜かしら"}, Intellect: "感情重視"},
		{Name: "ヨアヒム", SpeechStyle: SpeechStyle{FirstPerson: "僕", Tone: "気弱", VocalTics: "えっと…"}, Intellect: "慎重派"},
		{Name: "ヤコブ", SpeechStyle: SpeechStyle{FirstPerson: "俺", Tone: "素朴で実直", VocalTics: "〜だべ"}, Intellect: "堅実"},
		{Name: "シモン", SpeechStyle: SpeechStyle{FirstPerson: "俺", Tone: "皮肉屋", VocalTics: "ふん"}, Intellect: "懐疑的"},
		{Name: "フリーデル", SpeechStyle: SpeechStyle{FirstPerson: "私", Tone: "丁寧語", VocalTics: "〜ですわ"}, Intellect: "論理型"},
		{Name: "オットー", SpeechStyle: SpeechStyle{FirstPerson: "僕", Tone: "のんびり", VocalTics: "〜だねぇ"}, Intellect: "楽観的"},
		{Name: "リーザ", SpeechStyle: SpeechStyle{FirstPerson: "リーザ", Tone: "幼く無邪気", VocalTics: "〜なの"}, Intellect: "観察型"},
		{Name: "ニコラス", SpeechStyle: SpeechStyle{FirstPerson: "私", Tone: "落ち着いた紳士", VocalTics: "ふむ"}, Intellect: "分析型"},
		{Name: "ディータ", SpeechStyle: SpeechStyle{FirstPerson: "俺", Tone: "荒っぽい", VocalTics: "〜だろうが"}, Intellect: "攻撃的"},
		{Name: "モーリッツ", SpeechStyle: SpeechStyle{FirstPerson: "わし", Tone: "老人口調", VocalTics: "〜じゃ"}, Intellect: "経験則重視"},
		{Name: "レジーナ", SpeechStyle: SpeechStyle{FirstPerson: "あたし", Tone: "姉御肌", VocalTics: "〜さ"}, Intellect: "現実的"},
		{Name: "ヴァルター", SpeechStyle: SpeechStyle{FirstPerson: "私", Tone: "威厳ある", VocalTics: "よいか"}, Intellect: "統率型"},
		{Name: "ジムゾン", SpeechStyle: SpeechStyle{FirstPerson: "私", Tone: "穏やかな敬語", VocalTics: "〜でしょう"}, Intellect: "中立的"},
		{Name: "トーマス", SpeechStyle: SpeechStyle{FirstPerson: "俺", Tone: "寡黙", VocalTics: "……"}, Intellect: "結論先行"},
		{Name: "アルビン", SpeechStyle: SpeechStyle{FirstPerson: "僕", Tone: "軽薄", VocalTics: "〜っしょ"}, Intellect: "場当たり的"},
	}
}
