package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// testDefs builds a small test game: a village with a healer, a wild
// meadow and a lab with a professor who hands out starters.
func testDefs() *state.Defs {
	hit := func(dmg int) []types.EffectEvent {
		return []types.EffectEvent{
			{Kind: types.EventText, Text: "{CASTER} uses {ACTION}!"},
			{Kind: types.EventStateChange, Damage: dmg},
		}
	}
	return &state.Defs{
		Game: types.GameDef{
			Title:          "Test Game",
			Version:        "1.0",
			Start:          "village",
			Intro:          "Welcome to the valley.",
			StartCreatures: []string{"ee001"},
			StartItems:     map[string]int{"potion": 2},
		},
		Species: map[string]types.SpeciesDef{
			"ee001": {ID: "ee001", Name: "Luxigon", Element: "Lightning", Description: "A crackling lizard.", Actions: []string{"smite", "nap"}},
			"ee002": {ID: "ee002", Name: "Umbraik", Element: "Shadow", Actions: []string{"smite"}},
			"ee003": {ID: "ee003", Name: "Floravine", Element: "Nature", Actions: []string{"smite"}},
		},
		Actions: map[string]types.ActionDef{
			"smite":  {ID: "smite", Name: "Smite", Target: types.TargetEnemy, Success: hit(100)},
			"nap":    {ID: "nap", Name: "Nap", Target: types.TargetFriendly, Success: []types.EffectEvent{{Kind: types.EventText, Text: "{CASTER} dozes off."}}},
			"potion": {ID: "potion", Name: "Potion", Target: types.TargetFriendly, Success: []types.EffectEvent{{Kind: types.EventStateChange, Recover: 20}}},
		},
		Enemies: map[string]types.EnemyDef{
			"rival": {ID: "rival", Name: "Rival Kai", Members: []types.EnemyMember{
				{Key: "a", SpeciesID: "ee002", HP: 10, MaxHP: 10, Level: 1},
			}},
		},
		Maps: map[string]types.MapDef{
			"village": {
				ID: "village", Name: "Ember Village", Description: "Smoke curls from the chimneys.",
				Exits: map[string]string{"north": "meadow", "east": "lab"},
			},
			"meadow": {
				ID: "meadow", Name: "Whisper Meadow", Description: "Tall grass sways.",
				Exits:   map[string]string{"south": "village"},
				Wild:    []string{"ee002"},
				Healing: &types.HealingSpot{Map: "village", Message: "You wake up back in the village.", Heal: state.HealPartial},
			},
			"lab": {
				ID: "lab", Name: "Research Lab",
				Exits: map[string]string{"west": "village"},
				OnEnter: []types.Scenario{{
					Requires: []types.Condition{{Type: "flag_not", Params: map[string]any{"flag": "lab_visited"}}},
					Events: []types.SceneEvent{
						{Type: "text", Text: "The lab smells of ozone."},
						{Type: "set_flag", Flag: "lab_visited"},
					},
				}},
			},
		},
		NPCs: map[string]types.NPCDef{
			"elder": {ID: "elder", Name: "Elder Rowan", Map: "village", Description: "A stooped old man."},
			"professor": {ID: "professor", Name: "Professor Elm", Map: "lab", Scenarios: []types.Scenario{
				{
					Requires: []types.Condition{{Type: "flag_not", Params: map[string]any{"flag": "got_starter"}}},
					Events: []types.SceneEvent{
						{Type: "text", Text: "Pick a partner."},
						{Type: "choose_creature", Species: []string{"ee002", "ee003"}},
						{Type: "set_flag", Flag: "got_starter"},
					},
				},
				{
					Requires: []types.Condition{{Type: "flag_not", Params: map[string]any{"flag": "beat_rival"}}},
					Events: []types.SceneEvent{
						{Type: "text", Text: "Show me what you've learned!"},
						{Type: "battle", Enemy: "rival"},
						{Type: "set_flag", Flag: "beat_rival"},
						{Type: "text", Text: "Splendid."},
					},
				},
			}},
		},
	}
}

// fakeFrontend records narration and battle messages and answers every
// menu from a fixed script.
type fakeFrontend struct {
	narrated []string
	messages []string
	action   string // action id the player uses; first action if empty
	starter  int
	begun    int
}

func (f *fakeFrontend) Begin(context.Context, *battle.Session) error {
	f.begun++
	return nil
}

func (f *fakeFrontend) ShowMessage(ctx context.Context, text string) error {
	f.messages = append(f.messages, text)
	return ctx.Err()
}

func (f *fakeFrontend) Animate(ctx context.Context, _ battle.Animation) error {
	return ctx.Err()
}

func (f *fakeFrontend) Cue(battle.Cue) {}

func (f *fakeFrontend) ChooseSubmission(_ context.Context, req battle.SubmissionRequest) (*battle.Submission, error) {
	for _, a := range req.Actions {
		if f.action == "" || a.ID == f.action {
			return req.Use(a), nil
		}
	}
	return nil, nil
}

func (f *fakeFrontend) ChooseReplacement(_ context.Context, _ types.Team, options []*battle.Combatant) (*battle.Combatant, error) {
	return options[0], nil
}

func (f *fakeFrontend) Narrate(ctx context.Context, text string) error {
	f.narrated = append(f.narrated, text)
	return ctx.Err()
}

func (f *fakeFrontend) ChooseStarter(_ context.Context, _ []types.SpeciesDef) (int, error) {
	return f.starter, nil
}

func (f *fakeFrontend) saw(text string) bool {
	for _, m := range append(f.narrated, f.messages...) {
		if m == text {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T) (*Engine, *fakeFrontend) {
	t.Helper()
	e := New(testDefs())
	e.Reseed(42)
	f := &fakeFrontend{}
	e.Frontend = f
	return e, f
}

func step(t *testing.T, e *Engine, input string) types.Result {
	t.Helper()
	res, err := e.Step(context.Background(), input)
	if err != nil {
		t.Fatalf("Step(%q): %v", input, err)
	}
	return res
}

func outputContains(r types.Result, substr string) bool {
	for _, line := range r.Output {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestStart_IntroAndMap(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Output) < 2 || res.Output[0] != "Welcome to the valley." {
		t.Fatalf("output = %v", res.Output)
	}
	if !outputContains(res, "== Ember Village ==") {
		t.Errorf("expected map header, got %v", res.Output)
	}
}

func TestLook(t *testing.T) {
	e, _ := newTestEngine(t)
	res := step(t, e, "look")

	for _, want := range []string{"Smoke curls", "You see: Elder Rowan.", "Exits: east, north."} {
		if !outputContains(res, want) {
			t.Errorf("look output missing %q: %v", want, res.Output)
		}
	}
	if outputContains(res, "rustles") {
		t.Error("village has no wild creatures")
	}
}

func TestGo(t *testing.T) {
	e, _ := newTestEngine(t)

	res := step(t, e, "n")
	if e.State.MapID != "meadow" {
		t.Fatalf("map = %q, want meadow", e.State.MapID)
	}
	if !outputContains(res, "rustles") {
		t.Errorf("meadow should mention wild creatures: %v", res.Output)
	}

	res = step(t, e, "go west")
	if e.State.MapID != "meadow" || !outputContains(res, "can't go that way") {
		t.Errorf("bad exit: map=%q output=%v", e.State.MapID, res.Output)
	}

	step(t, e, "go village")
	if e.State.MapID != "village" {
		t.Errorf("go by map name: map = %q", e.State.MapID)
	}
}

func TestGo_OnEnterSceneOnce(t *testing.T) {
	e, _ := newTestEngine(t)

	res := step(t, e, "east")
	if !outputContains(res, "The lab smells of ozone.") {
		t.Errorf("entry scene missing: %v", res.Output)
	}
	if !state.GetFlag(e.State, "lab_visited") {
		t.Error("entry scene should set its flag")
	}

	step(t, e, "west")
	res = step(t, e, "east")
	if outputContains(res, "ozone") {
		t.Error("entry scene should not replay")
	}
}

func TestTalk_StarterScene(t *testing.T) {
	e, f := newTestEngine(t)
	f.starter = 1
	step(t, e, "east")

	res := step(t, e, "talk to professor")
	if !f.saw("Pick a partner.") {
		t.Errorf("scene text should be flushed before the menu: %v", f.narrated)
	}
	if !outputContains(res, "Floravine joined your party!") {
		t.Errorf("output = %v", res.Output)
	}
	if !state.HasSpecies(e.State, "ee003") {
		t.Error("starter not added to roster")
	}
	if len(e.State.Player.Lineup) != 2 {
		t.Errorf("lineup = %v", e.State.Player.Lineup)
	}
}

func TestTalk_BattleScene(t *testing.T) {
	e, f := newTestEngine(t)
	state.SetFlag(e.State, "got_starter", true)
	e.State.MapID = "lab"

	res := step(t, e, "talk elm")
	if f.begun != 1 {
		t.Fatalf("battle began %d times", f.begun)
	}
	if !f.saw("Rival Kai wants to fight!") {
		t.Errorf("messages = %v", f.messages)
	}
	if !state.GetFlag(e.State, "beat_rival") {
		t.Error("flag after the battle should be set")
	}
	if !outputContains(res, "Splendid.") {
		t.Errorf("output = %v", res.Output)
	}

	res = step(t, e, "talk elm")
	if !outputContains(res, "Professor Elm has nothing to say right now.") {
		t.Errorf("output = %v", res.Output)
	}
}

func TestTalk_LostBattleStopsScene(t *testing.T) {
	e, f := newTestEngine(t)
	f.action = "nap"
	state.SetFlag(e.State, "got_starter", true)
	e.State.MapID = "lab"

	res := step(t, e, "talk professor")
	if state.GetFlag(e.State, "beat_rival") {
		t.Error("flag after a lost battle should stay unset")
	}
	if outputContains(res, "Splendid.") {
		t.Error("scene should stop after a lost battle")
	}
	if !f.saw(refreshedMessage) {
		t.Errorf("lab has no healing spot, expected the fallback message: %v", f.narrated)
	}
	for _, c := range e.State.Player.Roster {
		if c.HP != c.MaxHP {
			t.Errorf("fallback heal should be full, hp = %d/%d", c.HP, c.MaxHP)
		}
	}
}

func TestTalk_Unknown(t *testing.T) {
	e, _ := newTestEngine(t)
	res := step(t, e, "talk professor")
	if !outputContains(res, "You don't see") {
		t.Errorf("output = %v", res.Output)
	}
	res = step(t, e, "talk")
	if !outputContains(res, "Talk to whom?") {
		t.Errorf("output = %v", res.Output)
	}
}

func TestExplore_WildWin(t *testing.T) {
	e, f := newTestEngine(t)
	e.State.MapID = "meadow"

	step(t, e, "explore")
	if !f.saw("Wild Umbraik wants to fight!") {
		t.Fatalf("messages = %v", f.messages)
	}
	lead := e.State.Player.Roster[e.State.Player.Lineup[0]]
	if lead.XP == 0 && lead.Level == 1 {
		t.Errorf("winner should gain xp: %+v", lead)
	}
	if e.State.RNGPosition == 0 {
		t.Error("rng position should advance")
	}
}

func TestExplore_LossTeleports(t *testing.T) {
	e, f := newTestEngine(t)
	f.action = "nap"
	e.State.MapID = "meadow"

	step(t, e, "explore")
	if !f.saw("You wake up back in the village.") {
		t.Errorf("narrated = %v", f.narrated)
	}
	if e.State.MapID != "village" {
		t.Errorf("map = %q, want village", e.State.MapID)
	}
	for _, c := range e.State.Player.Roster {
		if c.HP != c.MaxHP/2 {
			t.Errorf("partial heal: hp = %d/%d", c.HP, c.MaxHP)
		}
	}
}

func TestExplore_NoWild(t *testing.T) {
	e, f := newTestEngine(t)
	res := step(t, e, "explore")
	if !outputContains(res, "nothing wild lives here") || f.begun != 0 {
		t.Errorf("output = %v, battles = %d", res.Output, f.begun)
	}
}

func TestExplore_ExhaustedParty(t *testing.T) {
	e, f := newTestEngine(t)
	e.State.MapID = "meadow"
	for id, c := range e.State.Player.Roster {
		c.HP = 0
		e.State.Player.Roster[id] = c
	}
	res := step(t, e, "explore")
	if !outputContains(res, "too exhausted") || f.begun != 0 {
		t.Errorf("output = %v, battles = %d", res.Output, f.begun)
	}
}

func TestExplore_NoFrontend(t *testing.T) {
	e := New(testDefs())
	e.State.MapID = "meadow"
	if _, err := e.Step(context.Background(), "explore"); !errors.Is(err, ErrNoFrontend) {
		t.Errorf("err = %v, want ErrNoFrontend", err)
	}
}

func TestWildEnemy(t *testing.T) {
	e, _ := newTestEngine(t)
	enemy := e.wildEnemy([]string{"ee003"}, 0)
	if enemy.Name != "Wild Floravine" || len(enemy.Members) != 1 {
		t.Fatalf("enemy = %+v", enemy)
	}
	m := enemy.Members[0]
	if m.HP != 30 || m.MaxHP != 30 || m.Level != 1 || m.MaxXP != 100 || m.XP != 0 {
		t.Errorf("member = %+v", m)
	}
	if lvl := e.wildEnemy([]string{"ee003"}, 4).Members[0].Level; lvl != 4 {
		t.Errorf("level = %d, want 4", lvl)
	}
}

func TestPartyAndBag(t *testing.T) {
	e, _ := newTestEngine(t)
	state.AddCreature(&e.State.Player, "ee002")

	res := step(t, e, "party")
	if res.Output[0] != "Lineup:" || !strings.Contains(res.Output[1], "1. Luxigon") {
		t.Errorf("party = %v", res.Output)
	}
	if !strings.Contains(res.Output[1], "HP 50/50") {
		t.Errorf("party line = %q", res.Output[1])
	}

	res = step(t, e, "bag")
	if !outputContains(res, "Potion x2") {
		t.Errorf("bag = %v", res.Output)
	}
}

func TestLead(t *testing.T) {
	e, _ := newTestEngine(t)
	c := state.AddCreature(&e.State.Player, "ee002")

	res := step(t, e, "lead umbraik")
	if e.State.Player.Lineup[0] != c.ID {
		t.Errorf("lineup = %v", e.State.Player.Lineup)
	}
	if !outputContains(res, "Umbraik now leads your party.") {
		t.Errorf("output = %v", res.Output)
	}

	res = step(t, e, "send out umbraik")
	if !outputContains(res, "already in the lead") {
		t.Errorf("output = %v", res.Output)
	}
}

func TestSwap(t *testing.T) {
	e, _ := newTestEngine(t)
	p := &e.State.Player
	state.AddCreature(p, "ee002")
	state.AddCreature(p, "ee002")
	bench := state.AddCreature(p, "ee003") // lineup is full
	lead := p.Lineup[0]

	res := step(t, e, "swap luxigon with floravine")
	if p.Lineup[0] != bench.ID || state.InLineup(p, lead) {
		t.Errorf("lineup = %v", p.Lineup)
	}
	if !outputContains(res, "Floravine takes Luxigon's place.") {
		t.Errorf("output = %v", res.Output)
	}

	res = step(t, e, "swap luxigon")
	if !outputContains(res, "Swap which creatures?") {
		t.Errorf("output = %v", res.Output)
	}
}

func TestExamine(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		input string
		want  string
	}{
		{"examine elder", "A stooped old man."},
		{"look at luxigon", "Lightning type. A crackling lizard."},
		{"x north", "To the north lies Whisper Meadow."},
		{"examine dragon", `You don't see "dragon" here.`},
		{"examine", "Examine what?"},
	}
	for _, tt := range tests {
		res := step(t, e, tt.input)
		if !outputContains(res, tt.want) {
			t.Errorf("%q: output = %v, want %q", tt.input, res.Output, tt.want)
		}
	}
}

func TestStep_Bookkeeping(t *testing.T) {
	e, _ := newTestEngine(t)

	res := step(t, e, "")
	if len(res.Output) != 1 || res.Output[0] != "What do you want to do?" {
		t.Errorf("empty input output = %v", res.Output)
	}
	res = step(t, e, "dance")
	if !outputContains(res, "I don't understand that.") {
		t.Errorf("output = %v", res.Output)
	}
	step(t, e, "wait")

	if e.State.TurnCount != 2 {
		t.Errorf("turn count = %d, want 2", e.State.TurnCount)
	}
	if len(e.State.CommandLog) != 3 {
		t.Errorf("command log = %v", e.State.CommandLog)
	}
	if len(res.Trace) == 0 || !strings.HasPrefix(res.Trace[0], "[trace] intent verb=dance") {
		t.Errorf("trace = %v", res.Trace)
	}
}

func TestStep_Cancelled(t *testing.T) {
	e, _ := newTestEngine(t)
	e.State.MapID = "meadow"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Step(ctx, "explore"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
