// Package save implements JSON serialization and deserialization of
// game progress.
package save

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// DefaultName is used when no save name is given.
const DefaultName = "quicksave"

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version     string            `json:"version"`
	Game        string            `json:"game"`
	Map         string            `json:"map"`
	Turn        int               `json:"turn"`
	Player      types.PlayerState `json:"player"`
	RNGSeed     int64             `json:"rng_seed"`
	RNGPosition int64             `json:"rng_position"`
	CommandLog  []string          `json:"command_log"`
}

// Save serializes game state to JSON bytes.
func Save(s *types.State, defs *state.Defs) ([]byte, error) {
	data := SaveData{
		Version:     defs.Game.Version,
		Game:        defs.Game.Title,
		Map:         s.MapID,
		Turn:        s.TurnCount,
		Player:      s.Player,
		RNGSeed:     s.RNGSeed,
		RNGPosition: s.RNGPosition,
		CommandLog:  s.CommandLog,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	// Ensure maps and slices are never nil after load.
	if sd.Player.Roster == nil {
		sd.Player.Roster = map[string]types.Creature{}
	}
	if sd.Player.Lineup == nil {
		sd.Player.Lineup = []string{}
	}
	if sd.Player.Items == nil {
		sd.Player.Items = []types.Item{}
	}
	if sd.Player.StoryFlags == nil {
		sd.Player.StoryFlags = map[string]bool{}
	}
	if sd.CommandLog == nil {
		sd.CommandLog = []string{}
	}
	return &sd, nil
}

// ApplySave applies loaded save data onto a state. The caller restores
// its RNG from RNGSeed and RNGPosition.
func ApplySave(s *types.State, sd *SaveData) {
	s.MapID = sd.Map
	s.Player = sd.Player
	s.TurnCount = sd.Turn
	s.RNGSeed = sd.RNGSeed
	s.RNGPosition = sd.RNGPosition
	s.CommandLog = sd.CommandLog
}

// Path returns the file a named save lives in.
func Path(dir, name string) string {
	if name == "" {
		name = DefaultName
	}
	return filepath.Join(dir, name+".json")
}

// WriteFile saves the state under dir, creating it if needed.
func WriteFile(dir, name string, s *types.State, defs *state.Defs) error {
	data, err := Save(s, defs)
	if err != nil {
		return fmt.Errorf("encoding save: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating save dir: %w", err)
	}
	if err := os.WriteFile(Path(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing save: %w", err)
	}
	return nil
}

// ReadFile loads a named save from dir.
func ReadFile(dir, name string) (*SaveData, error) {
	data, err := os.ReadFile(Path(dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading save: %w", err)
	}
	sd, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("decoding save: %w", err)
	}
	return sd, nil
}
