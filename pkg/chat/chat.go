package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxMessageLength caps the human player's line in bytes.
const MaxMessageLength = 2000

// ChatRequest is the human player's contribution to a discussion.
type ChatRequest struct {
	GameStateID uuid.UUID `json:"gamestate_id"`
	Message     string    `json:"message"`
}

const (
	ChatRoleUser   = "user"      // prompt
	ChatRoleAgent  = "assistant" // model output
	ChatRoleSystem = "system"    // rules and persona
)

// ChatMessage is one message sent to a generation backend.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// GenerateRequest is a single text-generation call.
type GenerateRequest struct {
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// NewPrompt builds a one-shot request with a system instruction.
func NewPrompt(system, prompt string) *GenerateRequest {
	return &GenerateRequest{
		System:   system,
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
	}
}

// Prompt returns the user-facing text of the request, for backends that take
// a single prompt string.
func (r *GenerateRequest) Prompt() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Role == ChatRoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Append adds a user message, used for corrective feedback on retries.
func (r *GenerateRequest) Append(content string) *GenerateRequest {
	out := *r
	out.Messages = append(append([]ChatMessage{}, r.Messages...), ChatMessage{Role: ChatRoleUser, Content: content})
	return &out
}

func (r *GenerateRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("request has no messages")
	}
	for _, m := range r.Messages {
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%s message cannot be empty", m.Role)
		}
	}
	return nil
}

func (cr *ChatRequest) Validate() error {
	if cr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d bytes", MaxMessageLength)
	}
	return nil
}

// FormatAsLine attributes a player's message to name as Name「…」, unless it
// already opens with a speaker quote.
func FormatAsLine(message, name string) string {
	trimmed := strings.TrimSpace(message)
	if i := strings.Index(trimmed, "「"); i > 0 && !strings.ContainsAny(trimmed[:i], " 　\n") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(strings.TrimSuffix(trimmed, "」"), "「")
	return name + "「" + trimmed + "」"
}
