// Package textfilter cleans up generated dialogue before it is validated or
// shown: width folding, code-fence stripping and Name「…」 line normalisation.
package textfilter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

const (
	openQuote  = "「"
	closeQuote = "」"
)

var codeFence = regexp.MustCompile("```(?:json|JSON)?")

// Fold maps full-width ASCII to narrow and half-width kana (and ｢｣) to wide,
// so that "：" and ":" or "（" and "(" compare equal.
func Fold(s string) string {
	return width.Fold.String(s)
}

// FoldCase folds s for case-insensitive comparison of Latin labels.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}

// StripCodeFence removes Markdown code fences that models like to wrap JSON in.
func StripCodeFence(raw string) string {
	s := codeFence.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "`")
	return strings.TrimSpace(s)
}

// SpeakerLine formats one attributed line.
func SpeakerLine(name, text string) string {
	return name + openQuote + text + closeQuote
}

// NormalizeMessage rewrites a generated message into one Name「…」 per line.
// A quote that spans several lines is split into one quote per line, and any
// line without the speaker prefix is wrapped. Blank lines close an open quote.
// If nothing usable remains the input is returned unchanged.
func NormalizeMessage(name, message string) string {
	if strings.TrimSpace(message) == "" {
		return message
	}

	prefix := name + openQuote
	var out, open []string

	flush := func() {
		for _, part := range open {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, SpeakerLine(name, p))
			}
		}
		open = open[:0]
	}

	for _, line := range strings.Split(strings.TrimSpace(message), "\n") {
		s := strings.TrimSpace(line)
		switch {
		case s == "":
			flush()
		case strings.HasPrefix(s, prefix):
			flush()
			inner := strings.TrimPrefix(s, prefix)
			if rest, ok := strings.CutSuffix(inner, closeQuote); ok {
				out = append(out, SpeakerLine(name, rest))
			} else {
				open = append(open, inner)
			}
		case len(open) > 0:
			if rest, ok := strings.CutSuffix(s, closeQuote); ok {
				open = append(open, rest)
				flush()
			} else {
				open = append(open, s)
			}
		default:
			out = append(out, SpeakerLine(name, s))
		}
	}
	flush()

	if len(out) == 0 {
		return message
	}
	return strings.Join(out, "\n")
}
