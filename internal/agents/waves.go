package agents

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// Claim directives handed to speakers on the first discussion of a day.
const (
	BluffClaimHint = "disc1で占い師としてCOしてください（村を混乱させるための偽CO戦略）。ただし占い結果は絶対に出さないこと（Day1は初日占いなしのため結果が存在しない）"
	seerClaimHint  = "disc1で占い師としてCOしてください %s"
	noResultsYet   = "（初日のため結果なし）"
)

// BuildWaves partitions speakers. Names with a hint announce first and the
// rest react. Without announcers, four or more speakers split into the first
// two and the rest; smaller groups speak in one wave.
func BuildWaves(names []string, hints map[string]string) [][]string {
	var announcers, reactors []string
	for _, n := range names {
		if _, ok := hints[n]; ok {
			announcers = append(announcers, n)
		} else {
			reactors = append(reactors, n)
		}
	}

	if len(announcers) > 0 {
		if len(reactors) > 0 {
			return [][]string{announcers, reactors}
		}
		return [][]string{announcers}
	}
	if len(names) >= 4 {
		return [][]string{slices.Clone(names[:2]), slices.Clone(names[2:])}
	}
	if len(names) == 0 {
		return nil
	}
	return [][]string{slices.Clone(names)}
}

// BuildClaimHints returns per-speaker claim directives for the given
// discussion of the current day. Only the first discussion gets any.
// Bluffers are told to claim seer without results. The real seer, when it is
// an NPC and not a bluffer, is told to claim and given its own readings.
func BuildClaimHints(gs *state.GameState, bluffers []string, discussion int) map[string]string {
	hints := make(map[string]string)
	if discussion != 1 {
		return hints
	}

	for _, name := range bluffers {
		if name = strings.TrimSpace(name); name != "" {
			hints[name] = BluffClaimHint
		}
	}

	if human := gs.Get(gs.Player); human != nil && human.Role == state.RoleSeer {
		return hints
	}

	var seer *state.Player
	for i := range gs.Players {
		p := &gs.Players[i]
		if p.Role == state.RoleSeer && p.Alive && p.Name != gs.Player && !slices.Contains(bluffers, p.Name) {
			seer = p
			break
		}
	}
	if seer == nil {
		return hints
	}

	var parts []string
	for _, e := range gs.Log {
		if e.Type != state.EventSeer || e.Actor != seer.Name {
			continue
		}
		result := "白（人間）"
		if e.Result == state.ResultWerewolf {
			result = "人狼"
		}
		parts = append(parts, fmt.Sprintf("Day%d夜 → %s: %s", e.Day, e.Target, result))
	}
	results := noResultsYet
	if len(parts) > 0 {
		results = "（占い結果: " + strings.Join(parts, " / ") + "）"
	}
	hints[seer.Name] = fmt.Sprintf(seerClaimHint, results)
	return hints
}

// OrderForClaims moves bluffers to the end so real claimers speak first.
func OrderForClaims(names, bluffers []string) []string {
	if len(bluffers) == 0 {
		return slices.Clone(names)
	}
	out := make([]string, 0, len(names))
	var last []string
	for _, n := range names {
		if slices.Contains(bluffers, n) {
			last = append(last, n)
		} else {
			out = append(out, n)
		}
	}
	return append(out, last...)
}

// AddFeedback appends validator feedback to every speaker's hint.
func AddFeedback(hints map[string]string, names []string, feedback string) map[string]string {
	out := make(map[string]string, len(names))
	for k, v := range hints {
		out[k] = v
	}
	if feedback == "" {
		return out
	}
	for _, n := range names {
		fb := prompts.RetryFeedbackHeader + ":\n" + feedback
		if existing := out[n]; existing != "" {
			out[n] = existing + "\n\n" + fb
		} else {
			out[n] = fb
		}
	}
	return out
}
