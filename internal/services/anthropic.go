package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/werewolf-engine/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicModel       = "claude-haiku-4-5-20251001"
	DefaultAnthropicTemperature = 0.9
	DefaultAnthropicMaxTokens   = 2048
)

// AnthropicService implements Generator for Anthropic Claude
type AnthropicService struct {
	apiKey      string
	modelName   string
	temperature float64
	maxTokens   int
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ Generator = (*AnthropicService)(nil)

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, modelName string, temperature float64, maxTokens int, logger *slog.Logger) *AnthropicService {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	return &AnthropicService{
		apiKey:      apiKey,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
		baseURL:     anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// splitChatMessages extracts and combines all system messages into a single system prompt
// and returns the remaining non-system messages
func (a *AnthropicService) splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	return strings.Join(systemParts, "\n\n"), nonSystemMessages
}

// Generate makes a messages request to Anthropic. Failures are returned as
// *BackendError.
func (a *AnthropicService) Generate(ctx context.Context, r *chat.GenerateRequest) (string, error) {
	if err := r.Validate(); err != nil {
		return "", &BackendError{Kind: Permanent, Message: err.Error(), Err: err}
	}

	systemPrompt, conversation := a.splitChatMessages(r.Messages)
	if r.System != "" {
		systemPrompt = strings.TrimSpace(r.System + "\n\n" + systemPrompt)
	}

	temperature := a.temperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	model := a.modelName
	if r.Model != "" {
		model = r.Model
	}
	maxTokens := a.maxTokens
	if r.MaxTokens > 0 {
		maxTokens = r.MaxTokens
	}

	anthropicReq := AnthropicChatRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return "", &BackendError{Kind: Permanent, Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", &BackendError{Kind: Permanent, Message: "failed to create request", Err: err}
	}

	// Set required Anthropic headers
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &BackendError{Kind: Transient, Message: "failed to make request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Kind: Transient, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("Anthropic request failed", "status", resp.StatusCode, "model", model)
		return "", &BackendError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", &BackendError{Kind: Permanent, Message: "failed to parse response", Err: err}
	}

	if anthropicResp.Error != nil {
		return "", &BackendError{Kind: Permanent, Message: fmt.Sprintf("API error: %s", anthropicResp.Error.Message)}
	}

	var responseText strings.Builder
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			responseText.WriteString(content.Text)
		}
	}

	a.logger.Debug("Anthropic response received",
		"model", model,
		"input_tokens", anthropicResp.Usage.InputTokens,
		"output_tokens", anthropicResp.Usage.OutputTokens,
		"duration", time.Since(start))

	return responseText.String(), nil
}
