package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jwebster45206/werewolf-engine/pkg/chat"
)

// RetryPolicy bounds backend retries for rate limits and transient failures.
type RetryPolicy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is used when nothing is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	BaseDelay:   2 * time.Second,
	Multiplier:  2,
	MaxDelay:    30 * time.Second,
}

// RetryingGenerator retries the wrapped Generator according to its policy.
// Permanent errors are returned at once.
type RetryingGenerator struct {
	next   Generator
	policy RetryPolicy
	logger *slog.Logger
}

var _ Generator = (*RetryingGenerator)(nil)

// WithRetry wraps g with p.
func WithRetry(g Generator, p RetryPolicy, logger *slog.Logger) *RetryingGenerator {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 1
	}
	return &RetryingGenerator{next: g, policy: p, logger: logger}
}

func (r *RetryingGenerator) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.policy.BaseDelay > 0 {
		b.InitialInterval = r.policy.BaseDelay
	}
	if r.policy.Multiplier > 0 {
		b.Multiplier = r.policy.Multiplier
	}
	if r.policy.MaxDelay > 0 {
		b.MaxInterval = r.policy.MaxDelay
	}
	return b
}

func (r *RetryingGenerator) Generate(ctx context.Context, req *chat.GenerateRequest) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		text, err := r.next.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if !IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(r.policy.MaxAttempts),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger.Warn("Retrying generation", "attempt", attempt, "delay", d, "error", err)
		}),
	)
}
