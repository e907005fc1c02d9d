// Command validate checks a generated scene file against the game it was
// generated for.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/werewolf-engine/internal/storage"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/validator"
)

func main() {
	var statePath string
	cmd := &cobra.Command{
		Use:           "validate <scene-file>",
		Short:         "Validate a scene file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := check(args[0], statePath)
			if err != nil {
				return err
			}
			if len(vs) > 0 {
				return fmt.Errorf("validation failed for %s:\n%s", args[0], validator.Format(vs))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "", "Game state file (default: game_state.json next to the scene)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// check validates the scene at scenePath. The finale and protagonist are
// inferred from the file name.
func check(scenePath, statePath string) ([]validator.Violation, error) {
	if statePath == "" {
		statePath = filepath.Join(filepath.Dir(scenePath), storage.GameStateFile)
	}

	text, err := os.ReadFile(scenePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %s: %w", scenePath, err)
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", statePath, err)
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("file %s contains invalid game state: %w", statePath, err)
	}

	return validator.Validate(&gs, string(text), optionsFor(&gs, filepath.Base(scenePath))), nil
}

var executionDay = regexp.MustCompile(`day(\d+)_execution`)

func optionsFor(gs *state.GameState, base string) validator.Options {
	opts := validator.Options{Finale: strings.Contains(base, "epilogue")}
	if !strings.Contains(base, "_execution") {
		return opts
	}

	if m := executionDay.FindStringSubmatch(base); m != nil {
		day, _ := strconv.Atoi(m[1])
		for _, e := range gs.Log {
			if e.Type == state.EventExecute && e.Day == day {
				opts.Protagonist = e.Target
				return opts
			}
		}
	}
	if e, ok := gs.LastExecution(); ok {
		opts.Protagonist = e.Target
	}
	return opts
}
