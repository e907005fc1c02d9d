package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jwebster45206/werewolf-engine/pkg/chat"
)

// MockGenerator is a mock implementation of Generator for testing and for
// offline play. Scripted responses are served in order; after they run out
// a canned response matching the prompt's shape is returned.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req *chat.GenerateRequest) (string, error)

	responses []string
	calls     []*chat.GenerateRequest

	mu sync.Mutex // protects all fields above
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock that will serve responses in order.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{responses: responses}
}

var npcPromptName = regexp.MustCompile(`あなたは(\S+?)として人狼ゲームに参加しています`)

// Generate records the call and returns the next scripted response.
func (m *MockGenerator) Generate(ctx context.Context, req *chat.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.GenerateFunc
	var next *string
	if fn == nil && len(m.responses) > 0 {
		next = &m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if next != nil {
		return *next, nil
	}
	return cannedResponse(req.Prompt()), nil
}

func cannedResponse(prompt string) string {
	if m := npcPromptName.FindStringSubmatch(prompt); m != nil {
		return fmt.Sprintf(`{"thought": "様子を見る", "message": "%s「今日は慎重に考えたい」"}`, m[1])
	}
	if strings.Contains(prompt, `"co_claims"`) {
		return `{"co_claims": []}`
	}
	return "静かな時間が流れた。"
}

// Push appends scripted responses.
func (m *MockGenerator) Push(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// SetGenerateError sets up the mock to return an error on every call
func (m *MockGenerator) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		return "", err
	}
}

// Calls returns a copy of the recorded requests in a thread-safe way
func (m *MockGenerator) Calls() []*chat.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*chat.GenerateRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears all call tracking and scripted responses
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
	m.GenerateFunc = nil
}
