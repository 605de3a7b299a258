// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the Evolisk engine. It also acts as the engine's front end,
// drawing battles as text and reading menu picks as numbers.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/evolisk/engine"
	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/save"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)

	scanner *bufio.Scanner
	session *battle.Session
	lastCmd string // for "again"/"g" repeat
}

var _ engine.Frontend = (*CLI)(nil)

// New creates a CLI wired to the given engine and attaches it as the
// engine's front end.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	home, _ := os.UserHomeDir()
	c := &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(home, ".evolisk", "saves"),
	}
	eng.Frontend = c
	return c
}

// Run starts the game loop: intro, then prompt → input → dispatch → output
// until /quit, end of input or ctx is done.
func (c *CLI) Run(ctx context.Context) error {
	if c.Engine.Frontend == nil {
		c.Engine.Frontend = c
	}

	result, err := c.Engine.Start(ctx)
	c.printResult(result)
	if err != nil {
		return c.finish(err)
	}

	for {
		c.print("> ")
		input, err := c.readLine(ctx)
		if err != nil {
			return c.finish(err)
		}
		if input == "" {
			continue
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			quit, err := c.handleMeta(ctx, input)
			if err != nil {
				return c.finish(err)
			}
			if quit {
				return nil
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result, err := c.Engine.Step(ctx, input)
		c.printResult(result)
		if err != nil {
			return c.finish(err)
		}
	}
}

// finish turns a clean end of input into a nil error.
func (c *CLI) finish(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// readLine returns the next non-comment line, trimmed. Comment lines
// (starting with '#') let script files carry notes.
func (c *CLI) readLine(ctx context.Context) (string, error) {
	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.In)
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		line := strings.TrimSpace(c.scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(line)
		}
		return line, nil
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true, nil

	case "/save":
		c.cmdSave(arg)

	case "/load":
		return false, c.cmdLoad(ctx, arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false, nil
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = save.DefaultName
	}
	if err := save.WriteFile(c.SaveDir, name, c.Engine.State, c.Defs); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(ctx context.Context, name string) error {
	if name == "" {
		name = save.DefaultName
	}

	sd, err := save.ReadFile(c.SaveDir, name)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return nil
	}
	if sd.Game != c.Defs.Game.Title {
		c.printSystem(fmt.Sprintf("Load failed: %s is a save for %q.", name, sd.Game))
		return nil
	}

	save.ApplySave(c.Engine.State, sd)
	c.Engine.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", name, sd.Turn))

	// Show current map after loading.
	result, err := c.Engine.Step(ctx, "look")
	c.printResult(result)
	return err
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  Save game (default: quicksave)",
		"  /load [name]  Load game (default: quicksave)",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump current state",
		"  /trace        Toggle debug trace output",
		"",
		"Game commands:",
		"  look (l)                 Describe where you are",
		"  examine <thing> (x)      Look closely at someone or a creature",
		"  go <exit>                Move (or just type n/s/e/w)",
		"  talk <npc>               Talk to someone",
		"  explore                  Look for wild creatures",
		"  party (p)                Show your creatures",
		"  bag (i)                  Show your items",
		"  lead <creature>          Put a creature at the front",
		"  swap <a> with <b>        Trade a lineup slot for a benched creature",
		"  wait (z)                 Let time pass",
		"  again (g)                Repeat your last command",
		"",
		"In battle, answer menus with the number of your choice.",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	c.printSystem(fmt.Sprintf("Turn: %d", s.TurnCount))
	c.printSystem(fmt.Sprintf("Map: %s", s.MapID))
	c.printSystem(fmt.Sprintf("Lineup: %v", s.Player.Lineup))
	c.printSystem(fmt.Sprintf("Roster: %d creature(s), Items: %d", len(s.Player.Roster), len(s.Player.Items)))
	if len(s.Player.StoryFlags) > 0 {
		flags := make([]string, 0, len(s.Player.StoryFlags))
		for f, on := range s.Player.StoryFlags {
			if on {
				flags = append(flags, f)
			}
		}
		sort.Strings(flags)
		c.printSystem(fmt.Sprintf("Flags: %v", flags))
	}
	c.printSystem(fmt.Sprintf("RNG: seed=%d position=%d", s.RNGSeed, c.Engine.RNG.Position()))
}

// --- engine.Frontend ---

// Narrate prints overworld text immediately.
func (c *CLI) Narrate(_ context.Context, text string) error {
	c.printLine(text)
	return nil
}

// ChooseStarter shows the starter menu.
func (c *CLI) ChooseStarter(ctx context.Context, options []types.SpeciesDef) (int, error) {
	c.printLine("Choose your partner:")
	for i, sp := range options {
		c.printLine(fmt.Sprintf("  %d. %s (%s) %s", i+1, sp.Name, sp.Element, sp.Description))
	}
	return c.pick(ctx, len(options))
}

// Begin opens the battle screen.
func (c *CLI) Begin(_ context.Context, s *battle.Session) error {
	c.session = s
	c.printLine("")
	c.printLine(fmt.Sprintf("=== Battle: %s ===", s.Enemy().Name))
	return nil
}

// ShowMessage prints a battle line.
func (c *CLI) ShowMessage(_ context.Context, text string) error {
	c.printLine(text)
	return nil
}

// Animate has no text rendering; it only shows up in trace mode.
func (c *CLI) Animate(_ context.Context, a battle.Animation) error {
	if c.Trace {
		c.printSystem(fmt.Sprintf("[anim] %s", a.ID))
	}
	return nil
}

// Cue reacts to the cues that matter in text.
func (c *CLI) Cue(cue battle.Cue) {
	if cue.Kind == battle.CueShake {
		c.printLine("The disc shakes...")
	}
}

// ChooseSubmission shows the HUD and a numbered menu of actions, items
// and swaps.
func (c *CLI) ChooseSubmission(ctx context.Context, req battle.SubmissionRequest) (*battle.Submission, error) {
	c.printHUD()

	var subs []*battle.Submission
	c.printLine(fmt.Sprintf("What will %s do?", req.Caster.Name()))
	for _, a := range req.Actions {
		subs = append(subs, req.Use(a))
		c.printLine(fmt.Sprintf("  %d. %s", len(subs), a.Name))
	}
	for _, it := range req.Items {
		subs = append(subs, req.UseItem(it))
		c.printLine(fmt.Sprintf("  %d. %s x%d", len(subs), it.Action.Name, it.Quantity))
	}
	for _, r := range req.Replacements {
		subs = append(subs, req.Swap(r))
		c.printLine(fmt.Sprintf("  %d. Swap to %s (HP %d/%d)", len(subs), r.Name(), r.HP, r.MaxHP))
	}
	if len(subs) == 0 {
		c.printLine(fmt.Sprintf("%s has nothing it can do.", req.Caster.Name()))
		return nil, nil
	}

	i, err := c.pick(ctx, len(subs))
	if err != nil {
		return nil, err
	}
	return subs[i], nil
}

// ChooseReplacement asks which creature goes in next.
func (c *CLI) ChooseReplacement(ctx context.Context, _ types.Team, options []*battle.Combatant) (*battle.Combatant, error) {
	if len(options) == 0 {
		return nil, nil
	}
	c.printLine("Who goes in next?")
	for i, o := range options {
		c.printLine(fmt.Sprintf("  %d. %s (HP %d/%d)", i+1, o.Name(), o.HP, o.MaxHP))
	}
	i, err := c.pick(ctx, len(options))
	if err != nil {
		return nil, err
	}
	return options[i], nil
}

// pick reads a 1-based choice and returns it 0-based.
func (c *CLI) pick(ctx context.Context, n int) (int, error) {
	for {
		c.print(fmt.Sprintf("Choose [1-%d]: ", n))
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		i, err := strconv.Atoi(line)
		if err == nil && i >= 1 && i <= n {
			return i - 1, nil
		}
		c.printLine(fmt.Sprintf("Pick a number from 1 to %d.", n))
	}
}

func (c *CLI) printHUD() {
	if c.session == nil {
		return
	}
	for _, snap := range c.session.Snapshot() {
		if !snap.Active {
			continue
		}
		line := fmt.Sprintf("  [%s] %s  Lv %d  HP %d/%d", snap.Team, snap.Name, snap.Level, snap.HP, snap.MaxHP)
		if snap.Status != "" {
			line += "  (" + snap.Status + ")"
		}
		c.printLine(line)
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
	if c.Trace {
		for _, line := range result.Trace {
			c.printLine(line)
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
