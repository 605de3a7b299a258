// Package config loads runtime settings for the evolisk binary.
//
// Settings come from an optional YAML file, then from EVOLISK_* environment
// variables (which a .env file may supply). Game content is not configured
// here; it lives in the Lua game directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/evolisk/engine/battle"
)

// DefaultFile is the settings file read when no --config flag is given.
const DefaultFile = "evolisk.yaml"

// Settings holds everything the binary needs before the game starts.
type Settings struct {
	SaveDir   string    `yaml:"save_dir"`
	LogLevel  string    `yaml:"log_level"`
	LogFile   string    `yaml:"log_file"`
	Seed      int64     `yaml:"seed"`
	Pacing    Pacing    `yaml:"pacing"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Pacing is the battle delay table in milliseconds.
type Pacing struct {
	SettleMS int `yaml:"settle_ms"`
	SwapMS   int `yaml:"swap_ms"`
	ShakeMS  int `yaml:"shake_ms"`
	XPTickMS int `yaml:"xp_tick_ms"`
}

// Telemetry toggles the OTLP trace exporter.
type Telemetry struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the settings used when no file or environment overrides exist.
// A zero seed means "pick one from the clock".
func Default() Settings {
	p := battle.DefaultPacing()
	return Settings{
		SaveDir:  "saves",
		LogLevel: "info",
		Pacing: Pacing{
			SettleMS: int(p.Settle / time.Millisecond),
			SwapMS:   int(p.Swap / time.Millisecond),
			ShakeMS:  int(p.Shake / time.Millisecond),
			XPTickMS: int(p.XPTick / time.Millisecond),
		},
	}
}

// Load reads path (if it exists) over the defaults, then applies the
// environment. An explicit path that does not exist is an error; the
// default file is allowed to be missing.
func Load(path string) (Settings, error) {
	s := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return s, err
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error; variables already set are left alone.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("EVOLISK_SAVE_DIR"); ok && v != "" {
		s.SaveDir = v
	}
	if v, ok := lookup("EVOLISK_LOG_LEVEL"); ok && v != "" {
		s.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("EVOLISK_LOG_FILE"); ok {
		s.LogFile = v
	}
	if v, ok := lookup("EVOLISK_SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("EVOLISK_SEED: %w", err)
		}
		s.Seed = seed
	}
	if v, ok := lookup("EVOLISK_TELEMETRY"); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EVOLISK_TELEMETRY: %w", err)
		}
		s.Telemetry.Enabled = on
	}
	return nil
}

// Validate rejects settings the binary cannot run with.
func (s Settings) Validate() error {
	if _, err := s.Level(); err != nil {
		return err
	}
	p := s.Pacing
	if p.SettleMS < 0 || p.SwapMS < 0 || p.ShakeMS < 0 || p.XPTickMS < 0 {
		return fmt.Errorf("pacing delays must not be negative: %+v", p)
	}
	if s.SaveDir == "" {
		return errors.New("save_dir must not be empty")
	}
	return nil
}

// Level parses LogLevel.
func (s Settings) Level() (zerolog.Level, error) {
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
		return zerolog.ParseLevel(s.LogLevel)
	case "":
		return zerolog.InfoLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log_level %q (want debug, info, warn or error)", s.LogLevel)
}

// BattlePacing converts the millisecond table into battle delays.
func (s Settings) BattlePacing() battle.Pacing {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return battle.Pacing{
		Settle: ms(s.Pacing.SettleMS),
		Swap:   ms(s.Pacing.SwapMS),
		Shake:  ms(s.Pacing.ShakeMS),
		XPTick: ms(s.Pacing.XPTickMS),
	}
}
