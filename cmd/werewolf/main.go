// Command werewolf is the game master CLI. Every subcommand loads the game
// from STATE_DIR, runs one operation and persists the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/werewolf-engine/internal/archive"
	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/internal/logger"
	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/internal/storage"
	"github.com/jwebster45206/werewolf-engine/pkg/validator"
)

// exit codes
const (
	exitError      = 1
	exitValidation = 2
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *storage.FileStorage
	archive *archive.Store
	master  *gm.Master
	closers []func() error
}

var cli = &app{}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Setup(cfg)

	a.store = storage.NewFileStorage(cfg.StateDir, a.log)
	if err := a.store.Ping(ctx); err != nil {
		return err
	}

	opts := gm.ConfigOptions(cfg)
	if cfg.ArchivePath != "" {
		arc, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			a.log.Warn("Scene archive disabled", "path", cfg.ArchivePath, "error", err)
		} else {
			a.archive = arc
			a.closers = append(a.closers, arc.Close)
			opts = append(opts, gm.WithArchive(arc))
		}
	}

	gen, closeGen, err := services.NewFromConfig(ctx, cfg, a.log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeGen)

	a.master, err = gm.New(ctx, a.store, gen, a.log, opts...)
	return err
}

// load reads the game in STATE_DIR into the master.
func (a *app) load(ctx context.Context) error {
	gs, err := a.store.LoadGameState(ctx, uuid.Nil)
	if err != nil {
		return err
	}
	if gs == nil {
		return fmt.Errorf("no %s in %s, run setup first", storage.GameStateFile, a.store.Dir())
	}
	return a.master.Load(ctx, gs.ID)
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil && a.log != nil {
			a.log.Error("Error closing resource", "error", err)
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "werewolf",
		Short:         "Game master for a nine-player werewolf village",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.setup(cmd.Context()); err != nil {
				return err
			}
			if cmd.Annotations["fresh"] == "true" {
				return nil
			}
			return cli.load(cmd.Context())
		},
	}
	root.AddCommand(
		newSetupCmd(),
		newNightCmd(),
		newVoteCmd(),
		newAdvanceCmd(),
		newCheckWinCmd(),
		newBriefCmd(),
		newStatusCmd(),
		newSceneCmd(),
		newScenesCmd(),
		newExportCmd(),
		newAutoplayCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	cli.close()
	if err == nil {
		return
	}

	var verr *gm.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "VALIDATION_FAILED=%s\n%s\n", verr.Key, validator.Format(verr.Violations))
		os.Exit(exitValidation)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(exitError)
}
