package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/evolisk/engine"
	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/types"
)

// Messages sent from the engine goroutine into the Bubble Tea loop.
// Blocking requests carry a channel the model answers on.
type (
	narrateMsg struct{ text string }

	battleStartMsg struct {
		enemy string
		hud   []battle.Snapshot
	}

	battleTextMsg struct {
		text string
		hud  []battle.Snapshot
		done chan struct{}
	}

	animateMsg struct {
		id     string
		target string
		hud    []battle.Snapshot
		done   chan struct{}
	}

	hudMsg struct {
		hud  []battle.Snapshot
		kind battle.CueKind
		id   string
	}

	menuMsg struct {
		title   string
		options []string
		reply   chan int
	}
)

// bridge is the engine's Frontend inside the TUI. It runs on the
// engine goroutine; every call turns into a message for the model.
type bridge struct {
	send    func(tea.Msg)
	session *battle.Session
}

var _ engine.Frontend = (*bridge)(nil)

func (b *bridge) hud() []battle.Snapshot {
	if b.session == nil {
		return nil
	}
	return b.session.Snapshot()
}

func (b *bridge) Narrate(_ context.Context, text string) error {
	b.send(narrateMsg{text: text})
	return nil
}

func (b *bridge) Begin(_ context.Context, s *battle.Session) error {
	b.session = s
	b.send(battleStartMsg{enemy: s.Enemy().Name, hud: s.Snapshot()})
	return nil
}

// ShowMessage waits for the player to acknowledge the line.
func (b *bridge) ShowMessage(ctx context.Context, text string) error {
	done := make(chan struct{})
	b.send(battleTextMsg{text: text, hud: b.hud(), done: done})
	return await(ctx, done)
}

// Animate waits for the model's flash to finish.
func (b *bridge) Animate(ctx context.Context, a battle.Animation) error {
	done := make(chan struct{})
	msg := animateMsg{id: a.ID, hud: b.hud(), done: done}
	if a.Target != nil {
		msg.target = a.Target.ID
	}
	b.send(msg)
	return await(ctx, done)
}

func (b *bridge) Cue(c battle.Cue) {
	msg := hudMsg{hud: b.hud(), kind: c.Kind}
	if c.Combatant != nil {
		msg.id = c.Combatant.ID
	}
	b.send(msg)
}

func (b *bridge) ChooseSubmission(ctx context.Context, req battle.SubmissionRequest) (*battle.Submission, error) {
	subs, labels := submissionOptions(req)
	if len(subs) == 0 {
		return nil, nil
	}
	i, err := b.ask(ctx, fmt.Sprintf("What will %s do?", req.Caster.Name()), labels)
	if err != nil {
		return nil, err
	}
	return subs[i], nil
}

func (b *bridge) ChooseReplacement(ctx context.Context, _ types.Team, options []*battle.Combatant) (*battle.Combatant, error) {
	if len(options) == 0 {
		return nil, nil
	}
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = fmt.Sprintf("%s (HP %d/%d)", o.Name(), o.HP, o.MaxHP)
	}
	i, err := b.ask(ctx, "Who goes in next?", labels)
	if err != nil {
		return nil, err
	}
	return options[i], nil
}

func (b *bridge) ChooseStarter(ctx context.Context, options []types.SpeciesDef) (int, error) {
	labels := make([]string, len(options))
	for i, sp := range options {
		labels[i] = fmt.Sprintf("%s (%s) %s", sp.Name, sp.Element, sp.Description)
	}
	return b.ask(ctx, "Choose your partner:", labels)
}

// ask shows a menu and blocks until the player picks an entry.
func (b *bridge) ask(ctx context.Context, title string, options []string) (int, error) {
	reply := make(chan int, 1)
	b.send(menuMsg{title: title, options: options, reply: reply})
	select {
	case i := <-reply:
		return i, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func await(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submissionOptions flattens a request into one menu: actions, then
// items, then swaps.
func submissionOptions(req battle.SubmissionRequest) ([]*battle.Submission, []string) {
	var subs []*battle.Submission
	var labels []string
	for _, a := range req.Actions {
		subs = append(subs, req.Use(a))
		labels = append(labels, a.Name)
	}
	for _, it := range req.Items {
		subs = append(subs, req.UseItem(it))
		labels = append(labels, fmt.Sprintf("%s x%d", it.Action.Name, it.Quantity))
	}
	for _, r := range req.Replacements {
		subs = append(subs, req.Swap(r))
		labels = append(labels, fmt.Sprintf("Swap to %s (HP %d/%d)", r.Name(), r.HP, r.MaxHP))
	}
	return subs, labels
}
