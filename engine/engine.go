// Package engine provides the Step() orchestrator that wires together
// parsing, resolution, talk scenarios, cutscenes and battles into a
// single overworld turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/cutscene"
	"github.com/nathoo/evolisk/engine/dialogue"
	"github.com/nathoo/evolisk/engine/parser"
	"github.com/nathoo/evolisk/engine/resolve"
	"github.com/nathoo/evolisk/engine/rng"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoFrontend is returned when a battle or a menu is needed but no
// Frontend is attached.
var ErrNoFrontend = errors.New("engine: no frontend attached")

// Frontend is everything the engine needs from a presentation layer:
// the battle screen, the player's battle decisions, narration and the
// starter menu. Blocking calls return once the player is done with them.
type Frontend interface {
	battle.Presenter
	battle.Chooser
	Narrate(ctx context.Context, text string) error
	ChooseStarter(ctx context.Context, options []types.SpeciesDef) (int, error)
}

// Engine holds the game definitions and mutable state.
type Engine struct {
	Defs     *state.Defs
	State    *types.State
	RNG      *rng.RNG
	Frontend Frontend
	Pacing   battle.Pacing
	Log      zerolog.Logger
	Tracer   trace.Tracer

	pending []string
	traces  []string
}

// New creates a new engine from definitions.
func New(defs *state.Defs) *Engine {
	s := state.NewState(defs)
	return &Engine{
		Defs:  defs,
		State: s,
		RNG:   rng.New(s.RNGSeed),
		Log:   zerolog.Nop(),
	}
}

// Reseed replaces the RNG with a fresh one.
func (e *Engine) Reseed(seed int64) {
	e.State.RNGSeed = seed
	e.State.RNGPosition = 0
	e.RNG = rng.New(seed)
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	e.RNG = rng.Restore(seed, position)
}

// Start produces the opening text and plays the start map's entry scene.
func (e *Engine) Start(ctx context.Context) (types.Result, error) {
	if e.Defs.Game.Intro != "" {
		e.say(e.Defs.Game.Intro)
	}
	err := e.enterMap(ctx, e.State.MapID)
	return e.finish(), err
}

// Step processes one player command and returns the result. Errors come
// only from the context or the frontend; game-level problems are output.
func (e *Engine) Step(ctx context.Context, input string) (types.Result, error) {
	ctx, span := e.tracer().Start(ctx, "engine.step")
	defer span.End()

	// 1. Parse input.
	intent := parser.Parse(input)

	// 2. Log the command.
	e.State.CommandLog = append(e.State.CommandLog, input)

	// 3. Empty input.
	if intent.Verb == "" {
		e.say("What do you want to do?")
		return e.finish(), nil
	}
	span.SetAttributes(attribute.String("verb", intent.Verb))
	e.tracef("intent verb=%s object=%q target=%q", intent.Verb, intent.Object, intent.Target)

	// 4. Dispatch.
	var err error
	switch intent.Verb {
	case "look":
		if intent.Object != "" {
			e.examine(intent.Object)
		} else {
			e.describeMap(e.State.MapID)
		}
	case "examine":
		e.examine(intent.Object)
	case "go":
		err = e.cmdGo(ctx, intent.Object)
	case "talk":
		err = e.cmdTalk(ctx, intent.Object)
	case "explore":
		err = e.cmdExplore(ctx)
	case "party":
		e.cmdParty()
	case "bag":
		e.cmdBag()
	case "lead":
		e.cmdLead(intent.Object)
	case "swap":
		e.cmdSwap(intent.Object, intent.Target)
	case "wait":
		e.say("Time passes.")
	default:
		e.say("I don't understand that.")
	}

	// 5. Track RNG position for save/load.
	e.State.RNGPosition = e.RNG.Position()

	// 6. Increment turn count.
	e.State.TurnCount++

	return e.finish(), err
}

func (e *Engine) cmdGo(ctx context.Context, where string) error {
	if where == "" {
		e.say("Go where?")
		return nil
	}
	dir, err := resolve.Exit(e.State, e.Defs, where)
	if err != nil {
		if _, ok := err.(*resolve.NotFoundError); ok {
			e.say("You can't go that way.")
		} else {
			e.say(capitalize(err.Error()))
		}
		return nil
	}
	return e.enterMap(ctx, e.Defs.Maps[e.State.MapID].Exits[dir])
}

// enterMap moves the player, describes the map and plays its first
// eligible entry scene.
func (e *Engine) enterMap(ctx context.Context, mapID string) error {
	e.State.MapID = mapID
	e.describeMap(mapID)
	m, ok := e.Defs.Maps[mapID]
	if !ok {
		return nil
	}
	sc := dialogue.First(m.OnEnter, e.State)
	if sc == nil {
		return nil
	}
	e.tracef("scene map=%s events=%d", mapID, len(sc.Events))
	_, err := cutscene.Run(ctx, overworld{e}, sc.Events)
	return err
}

func (e *Engine) cmdTalk(ctx context.Context, who string) error {
	if who == "" {
		e.say("Talk to whom?")
		return nil
	}
	npcID, err := resolve.NPC(e.State, e.Defs, who)
	if err != nil {
		e.say(capitalize(err.Error()))
		return nil
	}
	name := e.Defs.NPCs[npcID].Name
	sc := dialogue.Select(npcID, e.State, e.Defs)
	if sc == nil {
		e.say(fmt.Sprintf("%s has nothing to say right now.", name))
		return nil
	}
	e.tracef("scene npc=%s events=%d", npcID, len(sc.Events))
	_, err = cutscene.Run(ctx, overworld{e}, sc.Events)
	return err
}

func (e *Engine) cmdExplore(ctx context.Context) error {
	m := e.Defs.Maps[e.State.MapID]
	if len(m.Wild) == 0 {
		e.say("You search around, but nothing wild lives here.")
		return nil
	}
	_, err := e.fight(ctx, e.wildEnemy(m.Wild, m.WildLevel), true)
	return err
}

func (e *Engine) cmdParty() {
	p := &e.State.Player
	if len(p.Roster) == 0 {
		e.say("You have no creatures.")
		return
	}
	e.say("Lineup:")
	for i, c := range state.LineupCreatures(p) {
		e.say(fmt.Sprintf("  %d. %s", i+1, e.creatureLine(c)))
	}
	if bench := state.Bench(p); len(bench) > 0 {
		e.say("Bench:")
		for _, c := range bench {
			e.say("  - " + e.creatureLine(c))
		}
	}
}

func (e *Engine) creatureLine(c types.Creature) string {
	line := fmt.Sprintf("%s  Lv %d  HP %d/%d  XP %d/%d",
		resolve.Label(c, e.Defs), c.Level, c.HP, c.MaxHP, c.XP, c.MaxXP)
	switch {
	case c.HP <= 0:
		line += "  (fainted)"
	case c.Status != nil:
		line += fmt.Sprintf("  (%s)", c.Status.Type)
	}
	return line
}

func (e *Engine) cmdBag() {
	counts := state.ItemCounts(&e.State.Player)
	if len(counts) == 0 {
		e.say("Your bag is empty.")
		return
	}
	parts := make([]string, 0, len(counts))
	for _, ic := range counts {
		name := ic.ActionID
		if a, ok := e.Defs.Actions[ic.ActionID]; ok {
			name = a.Name
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, ic.Count))
	}
	e.say("Your bag holds: " + strings.Join(parts, ", ") + ".")
}

func (e *Engine) cmdLead(name string) {
	if name == "" {
		e.say("Which creature should lead?")
		return
	}
	id, err := resolve.Creature(e.State, e.Defs, name)
	if err != nil {
		e.say(capitalize(err.Error()))
		return
	}
	c := e.State.Player.Roster[id]
	if len(e.State.Player.Lineup) > 0 && e.State.Player.Lineup[0] == id {
		e.say(fmt.Sprintf("%s is already in the lead.", resolve.DisplayName(c, e.Defs)))
		return
	}
	if err := state.MoveToFront(&e.State.Player, id); err != nil {
		e.say(capitalize(err.Error()))
		return
	}
	e.say(fmt.Sprintf("%s now leads your party.", resolve.DisplayName(c, e.Defs)))
}

func (e *Engine) cmdSwap(from, to string) {
	if from == "" || to == "" {
		e.say("Swap which creatures? Try: swap <lineup creature> with <creature>.")
		return
	}
	fromID, err := resolve.Creature(e.State, e.Defs, from)
	if err != nil {
		e.say(capitalize(err.Error()))
		return
	}
	toID, err := resolve.Creature(e.State, e.Defs, to)
	if err != nil {
		e.say(capitalize(err.Error()))
		return
	}
	if fromID == toID {
		e.say("That's the same creature.")
		return
	}
	if !state.InLineup(&e.State.Player, fromID) {
		fromID, toID = toID, fromID
	}
	if err := state.SwapLineup(&e.State.Player, fromID, toID); err != nil {
		e.say("Neither of those is in your lineup.")
		return
	}
	p := &e.State.Player
	e.say(fmt.Sprintf("%s takes %s's place.",
		resolve.DisplayName(p.Roster[toID], e.Defs), resolve.DisplayName(p.Roster[fromID], e.Defs)))
}

// examine describes an NPC, a roster creature or an exit.
func (e *Engine) examine(name string) {
	if name == "" {
		e.say("Examine what?")
		return
	}
	if id, err := resolve.NPC(e.State, e.Defs, name); err == nil {
		npc := e.Defs.NPCs[id]
		if npc.Description == "" {
			e.say(fmt.Sprintf("You see nothing special about %s.", npc.Name))
		} else {
			e.say(npc.Description)
		}
		return
	}
	id, err := resolve.Creature(e.State, e.Defs, name)
	if err == nil {
		c := e.State.Player.Roster[id]
		e.say(e.creatureLine(c))
		if sp, ok := e.Defs.Species[c.SpeciesID]; ok && sp.Description != "" {
			e.say(fmt.Sprintf("%s type. %s", sp.Element, sp.Description))
		}
		return
	}
	if _, ok := err.(*resolve.AmbiguityError); ok {
		e.say(capitalize(err.Error()))
		return
	}
	if dir, err := resolve.Exit(e.State, e.Defs, name); err == nil {
		target := e.Defs.Maps[e.Defs.Maps[e.State.MapID].Exits[dir]]
		e.say(fmt.Sprintf("To the %s lies %s.", dir, target.Name))
		return
	}
	e.say(fmt.Sprintf("You don't see %q here.", name))
}

// describeMap produces the standard map description output.
func (e *Engine) describeMap(mapID string) {
	m, ok := e.Defs.Maps[mapID]
	if !ok {
		e.say("You are somewhere unknown.")
		return
	}
	if m.Name != "" {
		e.say(fmt.Sprintf("== %s ==", m.Name))
	}
	if m.Description != "" {
		e.say(m.Description)
	}

	if npcs := state.NPCsInMap(e.Defs, mapID); len(npcs) > 0 {
		names := make([]string, len(npcs))
		for i, id := range npcs {
			names[i] = e.Defs.NPCs[id].Name
		}
		e.say("You see: " + strings.Join(names, ", ") + ".")
	}
	if len(m.Wild) > 0 {
		e.say("Something rustles nearby. You could explore.")
	}

	if len(m.Exits) > 0 {
		dirs := make([]string, 0, len(m.Exits))
		for dir := range m.Exits {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs) // deterministic order
		e.say("Exits: " + strings.Join(dirs, ", ") + ".")
	}
}

func (e *Engine) say(lines ...string) {
	e.pending = append(e.pending, lines...)
}

func (e *Engine) tracef(format string, args ...any) {
	e.traces = append(e.traces, "[trace] "+fmt.Sprintf(format, args...))
}

// flush hands queued output to the frontend so it appears before a
// battle or menu takes over the screen.
func (e *Engine) flush(ctx context.Context) error {
	if e.Frontend == nil {
		return nil
	}
	lines := e.pending
	e.pending = nil
	for _, line := range lines {
		if err := e.Frontend.Narrate(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) finish() types.Result {
	r := types.Result{Output: e.pending, Trace: e.traces}
	e.pending, e.traces = nil, nil
	return r
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer == nil {
		e.Tracer = otel.Tracer("evolisk/engine")
	}
	return e.Tracer
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
