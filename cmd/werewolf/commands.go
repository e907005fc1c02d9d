package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
)

// fresh marks commands that run without an existing game.
var fresh = map[string]string{"fresh": "true"}

func newSetupCmd() *cobra.Command {
	var player string
	cmd := &cobra.Command{
		Use:         "setup",
		Short:       "Deal a new game, replacing the one in STATE_DIR",
		Args:        cobra.NoArgs,
		Annotations: fresh,
		RunE: func(cmd *cobra.Command, args []string) error {
			gs, err := cli.master.Setup(cmd.Context(), player)
			if err != nil {
				return err
			}
			printKV(cmd.OutOrStdout(), setupKV(gs))
			return nil
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "Character the human plays (random when empty)")
	return cmd
}

func newNightCmd() *cobra.Command {
	var human engine.NightActions
	cmd := &cobra.Command{
		Use:   "night",
		Short: "Resolve the night; NPC actions are decided automatically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.master.ResolveNight(cmd.Context(), human)
			if err != nil {
				return err
			}
			printKV(cmd.OutOrStdout(), nightKV(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&human.Seer, "seer", "", "Divination target when the human is the seer")
	cmd.Flags().StringVar(&human.Guard, "guard", "", "Guard target when the human is the bodyguard")
	cmd.Flags().StringVar(&human.Attack, "attack", "", "Attack target when the human is a werewolf")
	return cmd
}

func newVoteCmd() *cobra.Command {
	var playerVote string
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Cast NPC ballots plus the human's and execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.master.ResolveVote(cmd.Context(), playerVote)
			if err != nil {
				return err
			}
			printKV(cmd.OutOrStdout(), voteKV(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&playerVote, "player-vote", "", "The human's ballot (ignored when the human is dead)")
	return cmd
}

func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move to the next phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := cli.master.Advance(cmd.Context())
			if err != nil {
				return err
			}
			gs, err := cli.master.State()
			if err != nil {
				return err
			}
			printKV(cmd.OutOrStdout(), []kv{{"DAY", gs.Day}, {"PHASE", phase}})
			return nil
		},
	}
}

func newCheckWinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-win",
		Short: "Print the win status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			win, err := cli.master.CheckWin()
			if err != nil {
				return err
			}
			printKV(cmd.OutOrStdout(), []kv{{"WIN", win}})
			return nil
		},
	}
}

func newBriefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brief",
		Short: "Print the village briefing as key=value lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := cli.master.Brief(cmd.Context())
			if err != nil {
				return err
			}
			printKV(cmd.OutOrStdout(), briefKV(b))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Print what one character can see, as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := cli.master.View(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}

func newSceneCmd() *cobra.Command {
	var line string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "scene <discussion|morning|vote|execution|epilogue|epilogue_thread>",
		Short: "Generate, validate and store a scene",
		Long: "Generate a scene and write it to the state directory. A discussion runs every\n" +
			"living NPC as its own agent; --context is then the human's opening line.\n" +
			"A scene that fails validation on every attempt exits with status 2.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress chan agents.Progress
			done := make(chan struct{})
			if quiet {
				close(done)
			} else {
				progress = make(chan agents.Progress, 16)
				go func() {
					defer close(done)
					printProgress(os.Stderr, progress)
				}()
			}

			var (
				out *gm.SceneOutcome
				err error
			)
			if args[0] == "discussion" {
				out, err = cli.master.Discussion(cmd.Context(), line, progress)
			} else {
				var kind prompts.SceneKind
				if kind, err = prompts.ParseSceneKind(args[0]); err == nil {
					out, err = cli.master.Scene(cmd.Context(), kind, progress)
				}
			}
			if progress != nil {
				close(progress)
			}
			<-done
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out.Text)
			printKV(os.Stderr, sceneKV(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&line, "context", "", "The human's line to open a discussion with")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress to stderr")
	return cmd
}

func newScenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List stored scene keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := cli.master.Scenes(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the archived scenes and thoughts of this game as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.archive == nil {
				return errors.New("no scene archive configured (ARCHIVE_PATH)")
			}
			gs, err := cli.master.State()
			if err != nil {
				return err
			}
			data, err := cli.archive.Export(cmd.Context(), gs.ID)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}
