package agents

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jwebster45206/werewolf-engine/pkg/textfilter"
)

// Decision is one character's parsed output.
type Decision struct {
	Thought string `json:"thought"`
	Message string `json:"message"`
}

// Extractor tries to pull a Decision out of raw backend text.
type Extractor func(raw string) (Decision, bool)

// DefaultExtractors is the salvage chain, strictest first.
var DefaultExtractors = []Extractor{
	ExtractStrict,
	ExtractBalanced,
	ExtractFields,
}

// Extract runs the chain and returns the first success.
func Extract(raw string, chain ...Extractor) (Decision, bool) {
	if len(chain) == 0 {
		chain = DefaultExtractors
	}
	for _, fn := range chain {
		if d, ok := fn(raw); ok {
			return d, true
		}
	}
	return Decision{}, false
}

// parseDecision accepts a JSON object that carries a message field. A bare
// null or an object without a message is left to the next layer.
func parseDecision(s string) (Decision, bool) {
	var d *struct {
		Thought string  `json:"thought"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal([]byte(s), &d); err != nil || d == nil || d.Message == nil {
		return Decision{}, false
	}
	return Decision{Thought: d.Thought, Message: *d.Message}, true
}

// ExtractStrict strips code fences and parses the remainder as JSON.
func ExtractStrict(raw string) (Decision, bool) {
	return parseDecision(textfilter.StripCodeFence(raw))
}

// ExtractBalanced scans for balanced {...} spans and parses the largest one
// that is valid JSON. If none parse it tries the span from the first '{' to
// the last '}'.
func ExtractBalanced(raw string) (Decision, bool) {
	s := textfilter.StripCodeFence(raw)

	spans := balancedSpans(s)
	for len(spans) > 0 {
		best := 0
		for i, sp := range spans {
			if sp[1]-sp[0] > spans[best][1]-spans[best][0] {
				best = i
			}
		}
		if d, ok := parseDecision(s[spans[best][0]:spans[best][1]]); ok {
			return d, true
		}
		spans = append(spans[:best], spans[best+1:]...)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		return parseDecision(s[start : end+1])
	}
	return Decision{}, false
}

// balancedSpans returns the [start, end) offsets of every top-level balanced
// brace span in s. Braces inside JSON strings are ignored.
func balancedSpans(s string) [][2]int {
	var spans [][2]int
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, [2]int{start, i + 1})
			}
		}
	}
	return spans
}

var (
	thoughtField = regexp.MustCompile(`(?s)"thought"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	messageField = regexp.MustCompile(`(?s)"message"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// ExtractFields pulls the two fields out with regular expressions. It needs
// at least a message.
func ExtractFields(raw string) (Decision, bool) {
	s := textfilter.StripCodeFence(raw)
	m := messageField.FindStringSubmatch(s)
	if m == nil {
		return Decision{}, false
	}
	d := Decision{Message: unescape(m[1])}
	if t := thoughtField.FindStringSubmatch(s); t != nil {
		d.Thought = unescape(t[1])
	}
	return d, true
}

// unescape decodes a JSON string body, falling back to newline unescaping
// when the body is not valid JSON.
func unescape(body string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &out); err == nil {
		return out
	}
	return strings.ReplaceAll(body, `\n`, "\n")
}
