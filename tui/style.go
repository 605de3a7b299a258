package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleMapTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	styleYouSee = lipgloss.NewStyle().
			Bold(true)

	styleExits = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleBattle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// Battle screen.
	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	stylePanelFlash = stylePanel.
			BorderForeground(lipgloss.Color("196"))

	styleCombatantName = lipgloss.NewStyle().Bold(true)

	styleStatusTag = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("141")).
			Padding(0, 1)

	styleXPBar = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	styleBattleText = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			BorderForeground(lipgloss.Color("240"))

	styleMenuTitle    = lipgloss.NewStyle().Bold(true)
	styleMenuItem     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	styleMenuSelected = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("214"))
)

// hpStyle colours an hp bar by how much is left.
func hpStyle(percent float64) lipgloss.Style {
	switch {
	case percent > 50:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	case percent > 20:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	}
}

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindMapTitle
	kindYouSee
	kindExits
	kindDialogue
	kindBattle
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "== ") && strings.HasSuffix(line, " =="):
		return kindMapTitle
	case strings.HasPrefix(line, "You see:"):
		return kindYouSee
	case strings.HasPrefix(line, "Exits:"):
		return kindExits
	case strings.HasPrefix(line, "You don't see"),
		strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "I don't understand"),
		strings.HasPrefix(line, "Error:"):
		return kindError
	case strings.HasSuffix(line, "wants to fight!"),
		line == "Winner!":
		return kindBattle
	case isSpeech(line):
		return kindDialogue
	default:
		return kindNarrative
	}
}

// isSpeech matches "Speaker: words" lines, where the speaker is a
// capitalised name of one or two words.
func isSpeech(line string) bool {
	i := strings.Index(line, ": ")
	if i <= 0 || i > 24 {
		return false
	}
	speaker := line[:i]
	if speaker[0] < 'A' || speaker[0] > 'Z' || strings.Count(speaker, " ") > 1 {
		return false
	}
	return !strings.ContainsAny(speaker, ".!?,")
}

// styledYouSee renders "You see: a, b." with the names bold.
func styledYouSee(line string) string {
	const prefix = "You see: "
	if !strings.HasPrefix(line, prefix) {
		return styleNarrative.Render(line)
	}
	return styleNarrative.Render(prefix) + styleYouSee.Render(line[len(prefix):])
}

// styledDialogue highlights the speaker of a "Speaker: words" line.
func styledDialogue(line string) string {
	i := strings.Index(line, ": ")
	if i < 0 {
		return styleDialogue.Render(line)
	}
	return styleYouSee.Inherit(styleDialogue).Render(line[:i+1]) + styleDialogue.Render(line[i+1:])
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
