package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/werewolf-engine/pkg/actor"
)

// CharactersFile is the persona file read from the data directory.
const CharactersFile = "characters.json"

// loadCharacters reads dataDir/characters.json. A missing file yields the
// built-in cast.
func loadCharacters(dataDir string, logger *slog.Logger) ([]actor.Character, error) {
	path := filepath.Join(dataDir, CharactersFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No characters file, using built-in cast", "path", path)
			return actor.DefaultCharacters(), nil
		}
		return nil, fmt.Errorf("failed to read characters file %s: %w", path, err)
	}

	var chars []actor.Character
	if err := json.Unmarshal(data, &chars); err != nil {
		return nil, fmt.Errorf("failed to parse characters JSON from %s: %w", path, err)
	}
	return chars, nil
}
