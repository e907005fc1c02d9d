package gm

import (
	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
)

// ConfigOptions maps the generation limits and claim odds of cfg to options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithMaxRetries(cfg.MaxRetries),
		WithClaimProbabilities(policy.ClaimProbabilities{
			Nobody:         cfg.ClaimProbNobody,
			Madman:         cfg.ClaimProbMadman,
			WolfWithMadman: cfg.ClaimProbWolfWithMadman,
		}),
		WithAgentOptions(
			agents.WithMaxWorkers(cfg.MaxWorkers),
			agents.WithContextLines(cfg.ContextLines),
		),
	}
}
