package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/evolisk/engine"
	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/save"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// How long an animation or a hit highlights a panel.
const (
	animFlash = 250 * time.Millisecond
	hitFlash  = 150 * time.Millisecond
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// menuView is an open menu waiting for a pick.
type menuView struct {
	title   string
	options []string
	cursor  int
	reply   chan int
}

// Model is the Bubble Tea model for the Evolisk TUI. The engine runs
// on a command goroutine; the model only touches engine state while
// no step is in flight.
type Model struct {
	engine *engine.Engine
	defs   *state.Defs
	ctx    context.Context
	cancel context.CancelFunc

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)
	status   statusInfo
	battle   *battleView
	menu     *menuView

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	busy     bool // a step is running on the engine goroutine
	lastCmd  string
	saveDir  string
}

// Options tweak a TUI session.
type Options struct {
	SaveDir string
	Trace   bool
}

// stepDoneMsg carries a finished engine step into the Update loop.
type stepDoneMsg struct {
	header []string
	result types.Result
	status statusInfo
	err    error
}

type animDoneMsg struct{ done chan struct{} }

type clearFlashMsg struct{ id string }

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	home, _ := os.UserHomeDir()
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		engine:  eng,
		defs:    defs,
		ctx:     ctx,
		cancel:  cancel,
		input:   ti,
		history: NewHistory(100),
		saveDir: filepath.Join(home, ".evolisk", "saves"),
		busy:    true,
	}
}

// Run starts the Bubble Tea program and blocks until the player quits.
func Run(ctx context.Context, eng *engine.Engine, defs *state.Defs, opts Options) error {
	m := New(eng, defs)
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(ctx)
	defer m.cancel()
	if opts.SaveDir != "" {
		m.saveDir = opts.SaveDir
	}
	m.trace = opts.Trace

	p := tea.NewProgram(m, tea.WithAltScreen())
	eng.Frontend = &bridge{send: p.Send}
	_, err := p.Run()
	return err
}

// Init returns the initial command that starts the game.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start())
}

func (m Model) start() tea.Cmd {
	eng, ctx, defs := m.engine, m.ctx, m.defs
	return func() tea.Msg {
		header := []string{fmt.Sprintf("%s v%s by %s", defs.Game.Title, defs.Game.Version, defs.Game.Author), ""}
		result, err := eng.Start(ctx)
		return stepDoneMsg{header: header, result: result, status: takeStatus(eng), err: err}
	}
}

func (m Model) runStep(input string) tea.Cmd {
	eng, ctx := m.engine, m.ctx
	return func() tea.Msg {
		result, err := eng.Step(ctx, input)
		return stepDoneMsg{result: result, status: takeStatus(eng), err: err}
	}
}

// Update handles key presses, resizes, engine requests and step results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.width, 1)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		}
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stepDoneMsg:
		m.busy = false
		m.battle = nil
		m.menu = nil
		m.status = msg.status
		lines := append(msg.header, msg.result.Output...)
		if m.trace {
			lines = append(lines, msg.result.Trace...)
		}
		m.appendLines(lines, false)
		if msg.err != nil {
			if m.ctx.Err() != nil {
				return m.quit()
			}
			m.appendLines([]string{fmt.Sprintf("Error: %v", msg.err)}, true)
		}
		m.layout()
		return m, nil

	case narrateMsg:
		m.battle = nil
		m.appendLines([]string{msg.text}, false)
		m.layout()
		return m, nil

	case battleStartMsg:
		m.battle = &battleView{enemy: msg.enemy, hud: msg.hud}
		m.layout()
		return m, nil

	case battleTextMsg:
		b := m.ensureBattle()
		b.text = msg.text
		b.ack = msg.done
		if msg.hud != nil {
			b.hud = msg.hud
		}
		m.appendLines([]string{msg.text}, false)
		m.layout()
		return m, nil

	case animateMsg:
		b := m.ensureBattle()
		b.flashID = msg.target
		if msg.hud != nil {
			b.hud = msg.hud
		}
		if m.trace {
			m.appendLines([]string{"[trace] animation " + msg.id}, false)
		}
		m.layout()
		done := msg.done
		return m, tea.Tick(animFlash, func(time.Time) tea.Msg { return animDoneMsg{done: done} })

	case animDoneMsg:
		if m.battle != nil {
			m.battle.flashID = ""
		}
		close(msg.done)
		return m, nil

	case hudMsg:
		b := m.ensureBattle()
		if msg.hud != nil {
			b.hud = msg.hud
		}
		if msg.kind == battle.CueHit || msg.kind == battle.CueShake {
			b.flashID = msg.id
			id := msg.id
			return m, tea.Tick(hitFlash, func(time.Time) tea.Msg { return clearFlashMsg{id: id} })
		}
		return m, nil

	case clearFlashMsg:
		if m.battle != nil && m.battle.flashID == msg.id {
			m.battle.flashID = ""
		}
		return m, nil

	case menuMsg:
		m.menu = &menuView{title: msg.title, options: msg.options, reply: msg.reply}
		m.layout()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ensureBattle() *battleView {
	if m.battle == nil {
		m.battle = &battleView{}
	}
	return m.battle
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m.quit()
	}
	if k == "pgup" || k == "pgdown" {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.menu != nil {
		return m.handleMenuKey(k)
	}
	if m.battle != nil && m.battle.ack != nil {
		if k == "enter" || k == " " {
			close(m.battle.ack)
			m.battle.ack = nil
			m.layout()
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	switch k {
	case "enter":
		return m.handleEnter()

	case "up":
		if prev, ok := m.history.Prev(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		return m, nil

	case "down":
		if next, ok := m.history.Next(); ok {
			m.input.SetValue(next)
			m.input.CursorEnd()
		} else {
			m.input.SetValue("")
			m.history.ResetCursor()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleMenuKey moves the cursor or answers the open menu.
func (m Model) handleMenuKey(k string) (tea.Model, tea.Cmd) {
	mv := m.menu
	switch k {
	case "up", "k":
		if mv.cursor > 0 {
			mv.cursor--
		}
	case "down", "j":
		if mv.cursor < len(mv.options)-1 {
			mv.cursor++
		}
	case "enter":
		m.choose(mv.cursor)
	default:
		if len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
			if i := int(k[0] - '1'); i < len(mv.options) {
				m.choose(i)
			}
		}
	}
	return m, nil
}

func (m *Model) choose(i int) {
	mv := m.menu
	m.menu = nil
	m.rawLines = append(m.rawLines, rawLine{text: "> " + mv.options[i], isInput: true})
	mv.reply <- i
	m.layout()
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()
	m.rawLines = append(m.rawLines, rawLine{text: "> " + input, isInput: true})

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m.appendLines([]string{"Nothing to repeat."}, true)
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m.appendLines(output, true)
		if quit {
			return m.quit()
		}
		return m, nil
	}

	m.busy = true
	return m, m.runStep(input)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

// appendLines adds lines to the narrative, then a blank separator.
func (m *Model) appendLines(lines []string, system bool) {
	for _, line := range lines {
		rl := rawLine{text: line, isSystem: system}
		if !system {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
}

// layout sizes the viewport around the battle screen and open menu.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	extra := 0
	if m.battle != nil {
		extra += lipgloss.Height(m.battle.renderHUD(m.width))
	}
	if m.menu != nil {
		extra += lipgloss.Height(m.renderMenu())
	}
	vpHeight := m.height - 2 - extra // 1 status bar + 1 input line
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	m.refreshViewport()
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindMapTitle:
		return styleMapTitle.Render(line)
	case kindYouSee:
		return styledYouSee(line)
	case kindExits:
		return styleExits.Render(line)
	case kindDialogue:
		return styledDialogue(line)
	case kindBattle:
		return styleBattle.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wLen := len(word)
		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}
	return result.String()
}

func (m Model) renderMenu() string {
	if m.menu == nil {
		return ""
	}
	lines := []string{styleMenuTitle.Render(m.menu.title)}
	for i, opt := range m.menu.options {
		label := fmt.Sprintf(" %d. %s ", i+1, opt)
		if i == m.menu.cursor {
			lines = append(lines, styleMenuSelected.Render(label))
		} else {
			lines = append(lines, styleMenuItem.Render(label))
		}
	}
	return strings.Join(lines, "\n")
}

// View renders the layout: battle screen, log, menu, status bar, input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var parts []string
	if m.battle != nil {
		parts = append(parts, m.battle.renderHUD(m.width))
	}
	parts = append(parts, m.viewport.View())
	if m.menu != nil {
		parts = append(parts, m.renderMenu())
	}
	parts = append(parts, m.renderStatusBar(), m.input.View())
	return strings.Join(parts, "\n")
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
// It only runs while no step is in flight.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = save.DefaultName
	}
	if err := save.WriteFile(m.saveDir, name, m.engine.State, m.defs); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = save.DefaultName
	}

	sd, err := save.ReadFile(m.saveDir, name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if sd.Game != m.defs.Game.Title {
		return []string{fmt.Sprintf("Load failed: %s is a save for %q.", name, sd.Game)}
	}

	save.ApplySave(m.engine.State, sd)
	m.engine.RestoreRNG(sd.RNGSeed, sd.RNGPosition)

	// look never reaches the frontend, so it is safe to run inline.
	output := []string{fmt.Sprintf("Game loaded from %s (turn %d).", name, sd.Turn)}
	result, err := m.engine.Step(m.ctx, "look")
	output = append(output, result.Output...)
	if err != nil {
		output = append(output, fmt.Sprintf("Error: %v", err))
	}
	m.status = takeStatus(m.engine)
	return output
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save [name]  Save game (default: quicksave)",
		"  /load [name]  Load game (default: quicksave)",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump current state",
		"  /trace        Toggle debug trace output",
		"",
		"Game commands:",
		"  look (l)              Describe where you are",
		"  examine <thing> (x)   Look closely at someone or a creature",
		"  go <exit>             Move (or just type n/s/e/w)",
		"  talk <npc>            Talk to someone",
		"  explore               Look for wild creatures",
		"  party (p)             Show your creatures",
		"  bag (i)               Show your items",
		"  lead <creature>       Put a creature at the front",
		"  swap <a> with <b>     Trade a lineup slot for a benched creature",
		"  wait (z)              Let time pass",
		"  again (g)             Repeat your last command",
		"",
		"Battle: Up/Down or 1-9 to pick, Enter to confirm or continue",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.State
	output := []string{
		fmt.Sprintf("Turn: %d", s.TurnCount),
		fmt.Sprintf("Map: %s", s.MapID),
		fmt.Sprintf("Lineup: %v", s.Player.Lineup),
		fmt.Sprintf("Roster: %d creature(s), Items: %d", len(s.Player.Roster), len(s.Player.Items)),
	}
	var flags []string
	for f, on := range s.Player.StoryFlags {
		if on {
			flags = append(flags, f)
		}
	}
	if len(flags) > 0 {
		sort.Strings(flags)
		output = append(output, fmt.Sprintf("Flags: %v", flags))
	}
	return output
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
