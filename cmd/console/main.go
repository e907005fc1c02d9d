// Command console is an interactive terminal for playing the human's seat.
// It runs the game master in-process against the game in STATE_DIR.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/werewolf-engine/internal/archive"
	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/internal/storage"
)

func main() {
	var (
		player  string
		newGame bool
	)
	cmd := &cobra.Command{
		Use:           "console",
		Short:         "Play the human's seat in a terminal UI",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), player, newGame)
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "Character to play when a new game is dealt")
	cmd.Flags().BoolVar(&newGame, "new", false, "Deal a new game even if one exists")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running console: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, player string, newGame bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// The alt screen owns the terminal.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewFileStorage(cfg.StateDir, log)
	if err := store.Ping(ctx); err != nil {
		return err
	}

	opts := gm.ConfigOptions(cfg)
	if cfg.ArchivePath != "" {
		arc, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			log.Warn("Scene archive disabled", "path", cfg.ArchivePath, "error", err)
		} else {
			defer func() { _ = arc.Close() }()
			opts = append(opts, gm.WithArchive(arc))
		}
	}

	gen, closeGen, err := services.NewFromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGen(); err != nil {
			log.Error("Error closing generator", "error", err)
		}
	}()

	master, err := gm.New(ctx, store, gen, log, opts...)
	if err != nil {
		return err
	}

	gs, err := store.LoadGameState(ctx, uuid.Nil)
	if err != nil {
		return err
	}
	var transcript []entry
	if gs == nil || newGame {
		if gs, err = master.Setup(ctx, player); err != nil {
			return err
		}
		transcript = append(transcript, entry{kind: entrySystem, title: "A new village:",
			text: fmt.Sprintf("You are %s. Type /help for commands.", gs.Player)})
	} else {
		if err := master.Load(ctx, gs.ID); err != nil {
			return err
		}
		if transcript, err = loadTranscript(ctx, master); err != nil {
			return err
		}
	}

	p := tea.NewProgram(NewConsoleUI(ctx, master, transcript),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

// loadTranscript replays the stored scenes of a resumed game.
func loadTranscript(ctx context.Context, master *gm.Master) ([]entry, error) {
	keys, err := master.Scenes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(keys))
	for _, key := range keys {
		text, err := master.LoadScene(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, entry{kind: entryScene, title: key, text: text})
	}
	return out, nil
}
