// Evolisk is a creature-taming RPG: explore maps, talk to people, and
// fight turn-based battles with a team of Evolisks.
// Usage: evolisk [--version] [--plain] [--script <file>] [--trace] [--config <file>] <game_directory>
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/nathoo/evolisk/cli"
	"github.com/nathoo/evolisk/config"
	"github.com/nathoo/evolisk/engine"
	"github.com/nathoo/evolisk/loader"
	"github.com/nathoo/evolisk/telemetry"
	"github.com/nathoo/evolisk/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: evolisk [--version] [--plain] [--script <file>] [--trace] [--config <file>] <game_directory>"

func main() {
	plain := false
	trace := false
	var gameDir, scriptFile, configFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("evolisk %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script", "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a file path\n", args[i])
				os.Exit(1)
			}
			if args[i] == "--script" {
				scriptFile = args[i+1]
			} else {
				configFile = args[i+1]
			}
			i++
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}

	if gameDir == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env not loaded: %v\n", err)
	}
	settings, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}

	interactive := scriptFile == "" && !plain && isTerminal()
	log, closeLog, err := newLogger(settings, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if settings.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx, version)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry setup failed, continuing without tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("telemetry shutdown")
				}
			}()
		}
	}

	// Load and compile Lua game content.
	defs, err := loader.Load(gameDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(defs)
	eng.Log = log
	eng.Tracer = telemetry.Tracer("engine")
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	eng.Reseed(seed)
	log.Info().Str("game", defs.Game.Title).Int64("seed", seed).Msg("starting")

	// Script mode: open file, force plain, echo commands, no delays.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
		c := cli.New(eng, defs)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.SaveDir = settings.SaveDir
		exit(c.Run(ctx), log)
		return
	}

	eng.Pacing = settings.BattlePacing()

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if !interactive {
		fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
		c := cli.New(eng, defs)
		c.Trace = trace
		c.SaveDir = settings.SaveDir
		exit(c.Run(ctx), log)
		return
	}

	exit(tui.Run(ctx, eng, defs, tui.Options{SaveDir: settings.SaveDir, Trace: trace}), log)
}

// newLogger writes JSON to the configured log file, or to a console
// writer on stderr. The TUI owns the terminal, so without a log file
// interactive runs log nothing.
func newLogger(s config.Settings, interactive bool) (zerolog.Logger, func(), error) {
	level, err := s.Level()
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}

	var w io.Writer
	closer := func() {}
	switch {
	case s.LogFile != "":
		f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		w, closer = f, func() { f.Close() }
	case interactive:
		return zerolog.Nop(), closer, nil
	default:
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}

func exit(err error, log zerolog.Logger) {
	if err == nil || err == context.Canceled {
		return
	}
	log.Error().Err(err).Msg("game ended with an error")
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
