package autoplay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jwebster45206/werewolf-engine/pkg/engine"
)

// Summary aggregates a batch of games.
type Summary struct {
	Games        int     `json:"games"`
	VillageWins  int     `json:"village_wins"`
	WerewolfWins int     `json:"werewolf_wins"`
	Undecided    int     `json:"undecided"`
	AverageDays  float64 `json:"average_days"`
	MaxDays      int     `json:"max_days"`
	MinDays      int     `json:"min_days"`
	Issues       int     `json:"issues"`
	Failed       int     `json:"failed"`
}

// Report is the document written to the report file.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Summary   Summary       `json:"summary"`
	Games     []*GameResult `json:"games"`
}

// Summarize aggregates results.
func Summarize(results []*GameResult) Summary {
	s := Summary{Games: len(results)}
	if len(results) == 0 {
		return s
	}
	total := 0
	s.MinDays = results[0].Days
	for _, r := range results {
		switch r.Winner {
		case engine.WinVillage:
			s.VillageWins++
		case engine.WinWerewolf:
			s.WerewolfWins++
		default:
			s.Undecided++
		}
		total += r.Days
		s.MaxDays = max(s.MaxDays, r.Days)
		s.MinDays = min(s.MinDays, r.Days)
		s.Issues += len(r.Issues)
		if r.Failed() {
			s.Failed++
		}
	}
	s.AverageDays = float64(total) / float64(len(results))
	return s
}

// WriteReport writes the report as indented JSON to path.
func WriteReport(path string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
