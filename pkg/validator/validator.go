// Package validator checks generated scene text against the game state. It
// only looks at structure and secrecy: who speaks, whether roles leak and
// whether the dialogue markup is well formed.
package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/textfilter"
)

// Kind classifies a violation.
type Kind string

const (
	KindDeadSpeaker    Kind = "dead_speaker"
	KindUnknownSpeaker Kind = "unknown_speaker"
	KindRoleLeak       Kind = "role_leak"
	KindNameEcho       Kind = "name_echo"
	KindDoubledBracket Kind = "doubled_bracket"
)

// Violation is one rule broken by a scene.
type Violation struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s", v.Kind, v.Message)
}

// Options relax the checks for particular scenes.
type Options struct {
	// Finale allows dead speakers and role labels (epilogue scenes).
	Finale bool
	// Protagonist may speak even though dead (last words at an execution).
	Protagonist string
}

// attributed matches "Token「…」" with an optional colon separator. Text has
// been width-folded, so only the narrow colon needs matching.
var attributed = regexp.MustCompile(`(\S+?):?\s*「[^」]*」`)

// annotation is a trailing "(…)" on a speaker token. It is reported as a role
// leak, not as an unknown speaker.
var annotation = regexp.MustCompile(`\([^()]*\)$`)

// Validate returns every violation found in text. An empty result means the
// scene is accepted.
func Validate(gs *state.GameState, text string, opts Options) []Violation {
	folded := textfilter.Fold(text)
	names := gs.Names()

	var out []Violation

	if !opts.Finale {
		for _, p := range gs.Players {
			if p.Alive || p.Name == opts.Protagonist {
				continue
			}
			if speaks(folded, p.Name) {
				out = append(out, Violation{
					Kind:    KindDeadSpeaker,
					Name:    p.Name,
					Message: fmt.Sprintf("%s は死亡済みですが発言しています", p.Name),
				})
			}
		}
	}

	var unknown []string
	for _, m := range attributed.FindAllStringSubmatch(folded, -1) {
		candidate := annotation.ReplaceAllString(m[1], "")
		if candidate == "" || slices.Contains(unknown, candidate) {
			continue
		}
		if !slices.ContainsFunc(names, func(n string) bool { return strings.HasSuffix(candidate, n) }) {
			unknown = append(unknown, candidate)
			out = append(out, Violation{
				Kind:    KindUnknownSpeaker,
				Name:    candidate,
				Message: fmt.Sprintf("%s は players に登録されていません", candidate),
			})
		}
	}

	if !opts.Finale {
		lowered := textfilter.FoldCase(folded)
		for _, name := range names {
			for _, label := range state.RoleKeywords() {
				tag := textfilter.FoldCase(name + "(" + label + ")")
				if strings.Contains(lowered, tag) {
					out = append(out, Violation{
						Kind:    KindRoleLeak,
						Name:    name,
						Message: fmt.Sprintf("%s（%s）のように役職が付記されています", name, label),
					})
				}
			}
		}
	}

	for _, name := range names {
		if strings.Contains(folded, name+"「"+name+":") {
			out = append(out, Violation{
				Kind:    KindNameEcho,
				Name:    name,
				Message: fmt.Sprintf("%s の発言に名前重複パターン（%s「%s：）が検出されました", name, name, name),
			})
		}
	}

	if strings.Contains(folded, "「「") {
		out = append(out, Violation{Kind: KindDoubledBracket, Message: "二重開きかぎ括弧（「「）が検出されました"})
	}
	if strings.Contains(folded, "」」") {
		out = append(out, Violation{Kind: KindDoubledBracket, Message: "二重閉じかぎ括弧（」」）が検出されました"})
	}

	return out
}

// speaks reports whether name has an attributed line in text.
func speaks(text, name string) bool {
	re := regexp.MustCompile(regexp.QuoteMeta(name) + `:?\s*「[^」]*」`)
	return re.MatchString(text)
}

// Format renders violations one per line for corrective feedback.
func Format(vs []Violation) string {
	lines := make([]string, len(vs))
	for i, v := range vs {
		lines[i] = "- " + v.String()
	}
	return strings.Join(lines, "\n")
}
