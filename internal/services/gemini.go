package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jwebster45206/werewolf-engine/pkg/chat"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiService implements Generator for Google Gemini
type GeminiService struct {
	client      *genai.Client
	modelName   string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ Generator = (*GeminiService)(nil)

func NewGeminiService(ctx context.Context, apiKey string, modelName string, temperature float64, maxTokens int, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}, nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

// Generate sends the request's user text as a single prompt.
func (g *GeminiService) Generate(ctx context.Context, r *chat.GenerateRequest) (string, error) {
	if err := r.Validate(); err != nil {
		return "", &BackendError{Kind: Permanent, Message: err.Error(), Err: err}
	}

	name := g.modelName
	if r.Model != "" {
		name = r.Model
	}
	model := g.client.GenerativeModel(name)
	if r.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(r.System)}}
	}
	temperature := g.temperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	model.SetTemperature(float32(temperature))
	if maxTokens := max(r.MaxTokens, g.maxTokens); maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(r.Prompt()))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return responseText(resp), nil
}

// classifyGeminiError wraps err as a *BackendError using the HTTP status
// carried by the API error, if any.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &BackendError{Kind: kindForStatus(gerr.Code), StatusCode: gerr.Code, Message: gerr.Message, Err: err}
	}
	return &BackendError{Kind: Transient, Message: err.Error(), Err: err}
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		break
	}
	return sb.String()
}
