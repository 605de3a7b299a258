package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/evolisk/engine"
	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/resolve"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// statusInfo is a copy of what the status bar shows. It is taken on the
// engine's goroutine so View never reads live engine state.
type statusInfo struct {
	mapName string
	exits   []string
	lead    string
	leadHP  string
	items   int
	turn    int
}

// takeStatus copies the status bar fields out of the engine.
func takeStatus(eng *engine.Engine) statusInfo {
	s := eng.State
	info := statusInfo{
		mapName: s.MapID,
		items:   len(s.Player.Items),
		turn:    s.TurnCount,
	}
	if m, ok := eng.Defs.Maps[s.MapID]; ok && m.Name != "" {
		info.mapName = m.Name
	}
	for dir := range state.MapExits(eng.Defs, s.MapID) {
		info.exits = append(info.exits, dir)
	}
	sort.Strings(info.exits)
	if lineup := state.LineupCreatures(&s.Player); len(lineup) > 0 {
		info.lead = resolve.DisplayName(lineup[0], eng.Defs)
		info.leadHP = fmt.Sprintf("%d/%d", lineup[0].HP, lineup[0].MaxHP)
	}
	return info
}

// renderStatusBar produces a full-width inverted status line showing
// the current map, exits, lead creature, bag size and turn count.
func (m Model) renderStatusBar() string {
	st := m.status

	left := fmt.Sprintf(" %s | Exits: %s", st.mapName, strings.Join(st.exits, ","))
	right := fmt.Sprintf("Bag: %d | T:%d ", st.items, st.turn)

	// Show the lead creature if it fits.
	if st.lead != "" {
		candidate := fmt.Sprintf("%s %s | %s", st.lead, st.leadHP, right)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

// battleView is the battle screen state: who is fighting, the message
// waiting to be acknowledged and any running animation.
type battleView struct {
	enemy   string
	hud     []battle.Snapshot
	text    string
	ack     chan struct{}
	flashID string // combatant id highlighted by a hit or an animation
}

// renderHUD draws both active combatants side by side.
func (b *battleView) renderHUD(width int) string {
	var player, enemy *battle.Snapshot
	for i := range b.hud {
		snap := &b.hud[i]
		if !snap.Active {
			continue
		}
		if snap.Team == types.TeamPlayer {
			player = snap
		} else {
			enemy = snap
		}
	}

	panelWidth := width/2 - 4
	if panelWidth < 20 {
		panelWidth = 20
	}
	panels := []string{
		b.renderPanel(player, panelWidth),
		b.renderPanel(enemy, panelWidth),
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, panels...)

	header := styleBattle.Render("Battle: " + b.enemy)
	out := []string{header, top}
	if b.text != "" {
		text := wordWrap(b.text, width)
		if b.ack != nil {
			text += "  " + styleSystem.Render("(enter)")
		}
		out = append(out, styleBattleText.Width(width).Render(text))
	}
	return strings.Join(out, "\n")
}

func (b *battleView) renderPanel(snap *battle.Snapshot, width int) string {
	if snap == nil {
		return stylePanel.Width(width).Render("...")
	}
	name := styleCombatantName.Render(snap.Name)
	if snap.Status != "" {
		name += " " + styleStatusTag.Render(snap.Status)
	}
	lines := []string{
		name,
		fmt.Sprintf("Lv %d", snap.Level),
		"HP " + hpStyle(snap.HPPercent).Render(bar(snap.HPPercent, 16)) + fmt.Sprintf(" %d/%d", max(snap.HP, 0), snap.MaxHP),
	}
	if snap.Team == types.TeamPlayer {
		lines = append(lines, "XP "+styleXPBar.Render(bar(snap.XPPercent, 16)))
	}
	style := stylePanel
	if b.flashID == snap.ID {
		style = stylePanelFlash
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

// bar renders a percentage as a fixed-width block bar.
func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
