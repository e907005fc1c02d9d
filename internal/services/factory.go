package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/werewolf-engine/internal/config"
)

// NewFromConfig builds the configured backend wrapped in the configured retry
// policy. The returned close func releases backend resources.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Generator, func() error, error) {
	noop := func() error { return nil }

	var (
		gen     Generator
		closeFn = noop
	)
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		gen = NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.Temperature, cfg.MaxTokens, logger)
	case "gemini":
		g, err := NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.Temperature, cfg.MaxTokens, logger)
		if err != nil {
			return nil, noop, err
		}
		gen, closeFn = g, g.Close
	case "mock":
		return NewMockGenerator(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
	logger.Info("Generation backend ready", "provider", cfg.LLMProvider, "model", cfg.ModelName)

	return WithRetry(gen, RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Multiplier:  cfg.RetryMultiplier,
		MaxDelay:    cfg.RetryMaxDelay,
	}, logger), closeFn, nil
}
