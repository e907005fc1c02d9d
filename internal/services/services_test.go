package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/pkg/chat"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := NewAnthropicService("test-key", "", 0.5, 0, discard())
	a.baseURL = srv.URL
	return a
}

func TestNewAnthropicService(t *testing.T) {
	service := NewAnthropicService("test-api-key", "", 0.7, 0, discard())

	if service.modelName != DefaultAnthropicModel {
		t.Errorf("Expected model name %s, got %s", DefaultAnthropicModel, service.modelName)
	}
	if service.maxTokens != DefaultAnthropicMaxTokens {
		t.Errorf("Expected max tokens %d, got %d", DefaultAnthropicMaxTokens, service.maxTokens)
	}
	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
}

func TestAnthropicService_Generate(t *testing.T) {
	var got AnthropicChatRequest
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		if r.URL.Path != "/messages" {
			t.Errorf("Expected /messages, got %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"パメラ「"},{"type":"text","text":"おはよう」"}]}`))
	})

	req := chat.NewPrompt("rules", "prompt")
	req.Messages = append([]chat.ChatMessage{{Role: chat.ChatRoleSystem, Content: "extra"}}, req.Messages...)

	text, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "パメラ「おはよう」", text)
	assert.Equal(t, "rules\n\nextra", got.System)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, DefaultAnthropicModel, got.Model)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.5, *got.Temperature, 1e-9)
}

func TestAnthropicService_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, RateLimited},
		{"overloaded", 529, Transient},
		{"server error", http.StatusInternalServerError, Transient},
		{"bad request", http.StatusBadRequest, Permanent},
		{"unauthorized", http.StatusUnauthorized, Permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error"}`))
			})
			_, err := a.Generate(context.Background(), chat.NewPrompt("", "hi"))
			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("Expected *BackendError, got %T: %v", err, err)
			}
			if be.Kind != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, be.Kind)
			}
			if be.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, be.StatusCode)
			}
		})
	}
}

func TestAnthropicService_NetworkErrorIsTransient(t *testing.T) {
	a := NewAnthropicService("k", "", 0.5, 0, discard())
	a.baseURL = "http://127.0.0.1:1"
	_, err := a.Generate(context.Background(), chat.NewPrompt("", "hi"))
	assert.True(t, IsRetryable(err), "Expected network failure to be retryable, got %v", err)
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(&googleapi.Error{Code: 429, Message: "quota"})
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, RateLimited, be.Kind)

	err = classifyGeminiError(&googleapi.Error{Code: 503})
	require.ErrorAs(t, err, &be)
	assert.Equal(t, Transient, be.Kind)

	err = classifyGeminiError(&googleapi.Error{Code: 403})
	require.ErrorAs(t, err, &be)
	assert.Equal(t, Permanent, be.Kind)

	assert.ErrorIs(t, classifyGeminiError(context.Canceled), context.Canceled)
}

func fastPolicy(attempts uint) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, Multiplier: 1.5, MaxDelay: 5 * time.Millisecond}
}

func TestRetryingGenerator(t *testing.T) {
	t.Run("retries transient then succeeds", func(t *testing.T) {
		mock := NewMockGenerator()
		n := 0
		mock.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
			n++
			if n < 3 {
				return "", &BackendError{Kind: RateLimited, StatusCode: 429}
			}
			return "ok", nil
		}
		text, err := WithRetry(mock, fastPolicy(4), discard()).Generate(context.Background(), chat.NewPrompt("", "x"))
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Len(t, mock.Calls(), 3)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		mock := NewMockGenerator()
		mock.SetGenerateError(&BackendError{Kind: Permanent, StatusCode: 400})
		_, err := WithRetry(mock, fastPolicy(4), discard()).Generate(context.Background(), chat.NewPrompt("", "x"))
		var be *BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, Permanent, be.Kind)
		assert.Len(t, mock.Calls(), 1)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		mock := NewMockGenerator()
		mock.SetGenerateError(&BackendError{Kind: Transient, StatusCode: 503})
		_, err := WithRetry(mock, fastPolicy(3), discard()).Generate(context.Background(), chat.NewPrompt("", "x"))
		assert.True(t, IsRetryable(err))
		assert.Len(t, mock.Calls(), 3)
	})
}

func TestMockGenerator(t *testing.T) {
	mock := NewMockGenerator("first")
	ctx := context.Background()

	text, _ := mock.Generate(ctx, chat.NewPrompt("", "anything"))
	assert.Equal(t, "first", text)

	text, _ = mock.Generate(ctx, chat.NewPrompt("", "あなたはパメラとして人狼ゲームに参加しています。Day 1"))
	assert.True(t, strings.Contains(text, `"message": "パメラ「`), "Expected a canned NPC reply, got %s", text)

	text, _ = mock.Generate(ctx, chat.NewPrompt("", `{"co_claims": [...]}`))
	assert.Equal(t, `{"co_claims": []}`, text)

	assert.Len(t, mock.Calls(), 3)
	mock.Reset()
	assert.Empty(t, mock.Calls())
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		provider string
		wantType string
		wantErr  bool
	}{
		{"mock", "mock", "*services.MockGenerator", false},
		{"anthropic is retried", "Anthropic", "*services.RetryingGenerator", false},
		{"unknown", "venice", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{LLMProvider: tt.provider, AnthropicAPIKey: "k", RetryAttempts: 2}
			gen, closeFn, err := NewFromConfig(ctx, cfg, discard())
			require.NotNil(t, closeFn)
			assert.NoError(t, closeFn())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, fmt.Sprintf("%T", gen))
		})
	}
}
