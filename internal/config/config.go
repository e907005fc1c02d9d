package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	// Generation backend
	LLMProvider     string  `env:"LLM_PROVIDER" envDefault:"anthropic"`
	ModelName       string  `env:"MODEL_NAME"`
	Temperature     float64 `env:"TEMPERATURE" envDefault:"0.9"`
	MaxTokens       int     `env:"MAX_TOKENS" envDefault:"2048"`
	AnthropicAPIKey string  `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string  `env:"GEMINI_API_KEY"`

	// Persistence
	RedisURL    string `env:"REDIS_URL" envDefault:"localhost:6379"`
	StateDir    string `env:"STATE_DIR" envDefault:"."`
	ArchivePath string `env:"ARCHIVE_PATH" envDefault:"archive.db"`

	// Generation limits
	MaxRetries   int `env:"MAX_RETRIES" envDefault:"3"`
	ContextLines int `env:"CONTEXT_LINES" envDefault:"5"`
	MaxWorkers   int `env:"MAX_WORKERS" envDefault:"4"`

	// Backend retry policy for rate limits and transient failures
	RetryAttempts   uint          `env:"RETRY_ATTEMPTS" envDefault:"4"`
	RetryBaseDelay  time.Duration `env:"RETRY_BASE_DELAY" envDefault:"2s"`
	RetryMultiplier float64       `env:"RETRY_MULTIPLIER" envDefault:"2"`
	RetryMaxDelay   time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	// Counter-claim probabilities
	ClaimProbNobody         float64 `env:"CLAIM_PROB_NOBODY" envDefault:"0.01"`
	ClaimProbMadman         float64 `env:"CLAIM_PROB_MADMAN" envDefault:"0.54"`
	ClaimProbWolfWithMadman float64 `env:"CLAIM_PROB_WOLF_WITH_MADMAN" envDefault:"0.15"`

	// Worker mode
	Port     string `env:"PORT" envDefault:"8080"`
	// DebugViews exposes every character's view over the API.
	DebugViews bool `env:"DEBUG_VIEWS" envDefault:"false"`
	WorkerID string `env:"WORKER_ID"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and provider settings.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LLMProvider) {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q (anthropic, gemini, mock)", c.LLMProvider))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, errors.New("MAX_RETRIES must be at least 1"))
	}
	if c.MaxWorkers < 1 {
		errs = append(errs, errors.New("MAX_WORKERS must be at least 1"))
	}
	if c.ContextLines < 0 {
		errs = append(errs, errors.New("CONTEXT_LINES cannot be negative"))
	}
	for name, p := range map[string]float64{
		"CLAIM_PROB_NOBODY":           c.ClaimProbNobody,
		"CLAIM_PROB_MADMAN":           c.ClaimProbMadman,
		"CLAIM_PROB_WOLF_WITH_MADMAN": c.ClaimProbWolfWithMadman,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, p))
		}
	}
	if c.ClaimProbNobody+c.ClaimProbMadman > 1 {
		errs = append(errs, errors.New("CLAIM_PROB_NOBODY + CLAIM_PROB_MADMAN cannot exceed 1"))
	}
	return errors.Join(errs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
