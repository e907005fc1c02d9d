package chat

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestFormatAsLine(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		player   string
		expected string
	}{
		{
			name:     "wraps a plain message",
			message:  "ヤコブが怪しいと思う",
			player:   "カタリナ",
			expected: "カタリナ「ヤコブが怪しいと思う」",
		},
		{
			name:     "preserves an existing speaker quote",
			message:  "カタリナ「おはよう」",
			player:   "カタリナ",
			expected: "カタリナ「おはよう」",
		},
		{
			name:     "bare quote gets the player's name",
			message:  "「おはよう」",
			player:   "カタリナ",
			expected: "カタリナ「おはよう」",
		},
		{
			name:     "quote inside a sentence is not a speaker",
			message:  "みんな 「おはよう」 と言った",
			player:   "カタリナ",
			expected: "カタリナ「みんな 「おはよう」 と言った」",
		},
		{
			name:     "trims whitespace",
			message:  "  眠い  ",
			player:   "オットー",
			expected: "オットー「眠い」",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatAsLine(tt.message, tt.player)
			if result != tt.expected {
				t.Errorf("FormatAsLine(%q, %q) = %q; want %q", tt.message, tt.player, result, tt.expected)
			}
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid short message",
			req:     ChatRequest{Message: "ヤコブに投票する", GameStateID: id},
			wantErr: false,
		},
		{
			name:    "valid message at max length",
			req:     ChatRequest{Message: strings.Repeat("a", MaxMessageLength), GameStateID: id},
			wantErr: false,
		},
		{
			name:    "message too long",
			req:     ChatRequest{Message: strings.Repeat("a", MaxMessageLength+1), GameStateID: id},
			wantErr: true,
			errMsg:  "exceeds maximum length",
		},
		{
			name:    "empty message",
			req:     ChatRequest{Message: "", GameStateID: id},
			wantErr: true,
			errMsg:  "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestGenerateRequest(t *testing.T) {
	req := NewPrompt("rules", "first")
	retry := req.Append("fix this")

	if len(req.Messages) != 1 {
		t.Errorf("Expected Append to leave the original untouched, got %d messages", len(req.Messages))
	}
	if got := retry.Prompt(); got != "first\n\nfix this" {
		t.Errorf("Expected joined prompt, got %q", got)
	}
	if retry.System != "rules" {
		t.Errorf("Expected system to carry over, got %q", retry.System)
	}
	if err := retry.Validate(); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}
	if err := (&GenerateRequest{}).Validate(); err == nil {
		t.Error("Expected error for a request with no messages")
	}
}
