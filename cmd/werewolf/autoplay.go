package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/werewolf-engine/internal/autoplay"
)

func newAutoplayCmd() *cobra.Command {
	var (
		runs   int
		player string
		report string
	)
	cmd := &cobra.Command{
		Use:         "autoplay",
		Short:       "Play whole games unattended and check them for consistency",
		Long:        "Each game replaces the game in STATE_DIR. The human seat follows the village vote plan and a fixed night routine.",
		Args:        cobra.NoArgs,
		Annotations: fresh,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1, got %d", runs)
			}
			runner := autoplay.NewRunner(cli.master, cli.log, autoplay.WithPlayer(player))
			rep := &autoplay.Report{StartedAt: time.Now().UTC()}

			w := cmd.OutOrStdout()
			for i := 1; i <= runs; i++ {
				res, err := runner.Play(cmd.Context(), i)
				rep.Games = append(rep.Games, res)
				printKV(w, gameKV(res))
				for _, e := range res.Errors {
					fmt.Fprintf(w, "ERROR=%s\n", e)
				}
				if err != nil {
					break
				}
			}

			rep.Summary = autoplay.Summarize(rep.Games)
			printKV(w, summaryKV(rep.Summary))
			if err := autoplay.WriteReport(report, rep); err != nil {
				return err
			}
			fmt.Fprintf(w, "REPORT=%s\n", report)

			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if rep.Summary.Failed > 0 {
				return fmt.Errorf("%d of %d games failed", rep.Summary.Failed, rep.Summary.Games)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 10, "Number of games to play")
	cmd.Flags().StringVar(&player, "player", "", "Character the automated human plays (random when empty)")
	cmd.Flags().StringVar(&report, "report", autoplay.ReportFile, "Path of the JSON report")
	return cmd
}
