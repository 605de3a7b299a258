package battle

import (
	"context"
	"fmt"
	"testing"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
)

// scriptedRandom replays fixed draws. Once a script runs out it falls
// back to a draw that never catches, mutates or dazes.
type scriptedRandom struct {
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return n - 1
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return i % n
}

type recordingPresenter struct {
	begun    bool
	messages []string
	anims    []string
	cues     []Cue
}

func (p *recordingPresenter) Begin(_ context.Context, _ *Session) error {
	p.begun = true
	return nil
}

func (p *recordingPresenter) ShowMessage(ctx context.Context, text string) error {
	p.messages = append(p.messages, text)
	return ctx.Err()
}

func (p *recordingPresenter) Animate(ctx context.Context, a Animation) error {
	p.anims = append(p.anims, a.ID)
	return ctx.Err()
}

func (p *recordingPresenter) Cue(c Cue) {
	p.cues = append(p.cues, c)
}

func (p *recordingPresenter) saw(text string) bool {
	for _, m := range p.messages {
		if m == text {
			return true
		}
	}
	return false
}

// indexOf returns the position of the first message equal to text, or -1.
func (p *recordingPresenter) indexOf(text string) int {
	for i, m := range p.messages {
		if m == text {
			return i
		}
	}
	return -1
}

type scriptedChooser struct {
	submit  func(req SubmissionRequest) *Submission
	replace func(options []*Combatant) *Combatant

	requests []SubmissionRequest
	replaces int
}

func (c *scriptedChooser) ChooseSubmission(_ context.Context, req SubmissionRequest) (*Submission, error) {
	c.requests = append(c.requests, req)
	if c.submit == nil {
		return req.Use(req.Actions[0]), nil
	}
	return c.submit(req), nil
}

func (c *scriptedChooser) ChooseReplacement(_ context.Context, _ types.Team, options []*Combatant) (*Combatant, error) {
	c.replaces++
	if c.replace == nil {
		return options[0], nil
	}
	return c.replace(options), nil
}

// useAction submits the named action every turn.
func useAction(id string) func(SubmissionRequest) *Submission {
	return func(req SubmissionRequest) *Submission {
		for _, a := range req.Actions {
			if a.ID == id {
				return req.Use(a)
			}
		}
		panic(fmt.Sprintf("action %q not offered", id))
	}
}

type recordingWorld struct {
	teleports int
}

func (w *recordingWorld) TeleportToHealingArea(context.Context) error {
	w.teleports++
	return nil
}

type memStore struct {
	creatures map[string]types.Creature
	lineup    []string
	items     []types.Item

	mutated []string
	pruned  []string
	added   []string
}

func (m *memStore) Lineup() []string { return m.lineup }

func (m *memStore) Creature(id string) (types.Creature, bool) {
	c, ok := m.creatures[id]
	return c, ok
}

func (m *memStore) Items() []types.Item { return m.items }

func (m *memStore) WriteBack(id string, hp, xp, maxXP, level int) {
	c := m.creatures[id]
	c.HP, c.XP, c.MaxXP, c.Level = hp, xp, maxXP, level
	m.creatures[id] = c
}

func (m *memStore) MarkMutated(id string) {
	m.mutated = append(m.mutated, id)
}

func (m *memStore) PruneItems(used []string) {
	m.pruned = append(m.pruned, used...)
}

func (m *memStore) AddCreature(speciesID string) types.Creature {
	m.added = append(m.added, speciesID)
	c := types.Creature{ID: fmt.Sprintf("new%d", len(m.added)), SpeciesID: speciesID, HP: 50, MaxHP: 50, MaxXP: 100, Level: 1}
	m.creatures[c.ID] = c
	return c
}

func testCatalog() Catalog {
	hit := func(n int) []types.EffectEvent {
		return []types.EffectEvent{
			{Kind: types.EventText, Text: "{CASTER} uses {ACTION}!"},
			{Kind: types.EventAnimation, Animation: "spin"},
			{Kind: types.EventStateChange, Damage: n},
		}
	}
	return Catalog{
		Actions: map[string]types.ActionDef{
			"tackle": {ID: "tackle", Name: "Tackle", Target: types.TargetEnemy, Success: hit(10)},
			"slam":   {ID: "slam", Name: "Slam", Target: types.TargetEnemy, Success: hit(60)},
			"daze": {ID: "daze", Name: "Star Shatter", Target: types.TargetEnemy, Success: []types.EffectEvent{
				{Kind: types.EventStateChange, Status: &types.Status{Type: types.StatusDazed, ExpiresIn: 3}},
			}},
			"shroud": {ID: "shroud", Name: "Shroud Step", Target: types.TargetEnemy, Success: []types.EffectEvent{
				{Kind: types.EventStateChange, Status: &types.Status{Type: types.StatusEvade, ExpiresIn: 2}, OnCaster: true},
			}},
			"potion": {ID: "potion", Name: "Red Potion", Target: types.TargetFriendly, Success: []types.EffectEvent{
				{Kind: types.EventStateChange, Recover: 30},
			}},
			"disc": {ID: "disc", Name: "Capture Disc", Target: types.TargetEnemy, Success: []types.EffectEvent{
				{Kind: types.EventText, Text: "You throw a {ACTION}!"},
				{Kind: types.EventAttemptCatch},
			}},
		},
		Species: map[string]types.SpeciesDef{
			"lux": {ID: "lux", Name: "Luxigon", Actions: []string{"tackle", "slam", "daze", "shroud"}, MutatedName: "Luxigon Prime", MutatedSrc: "lux_m.png"},
			"umb": {ID: "umb", Name: "Umbraik", Actions: []string{"tackle"}},
			"lum": {ID: "lum", Name: "Lumivyre", Actions: []string{"tackle", "ghost"}},
			"mute": {ID: "mute", Name: "Mute", Actions: nil},
		},
		Enemies: map[string]types.EnemyDef{
			"froggert": {ID: "froggert", Name: "Froggert", Members: []types.EnemyMember{
				{Key: "a", SpeciesID: "umb", MaxHP: 50, Level: 1},
				{Key: "b", SpeciesID: "lum", MaxHP: 50, Level: 1},
			}},
		},
	}
}

func newStore(creatures ...types.Creature) *memStore {
	m := &memStore{creatures: map[string]types.Creature{}}
	for _, c := range creatures {
		if c.MaxXP == 0 {
			c.MaxXP = 100
		}
		if c.Level == 0 {
			c.Level = 1
		}
		m.creatures[c.ID] = c
		m.lineup = append(m.lineup, c.ID)
	}
	return m
}

type harness struct {
	session   *Session
	store     *memStore
	presenter *recordingPresenter
	chooser   *scriptedChooser
	ai        *scriptedChooser
	world     *recordingWorld
	rnd       *scriptedRandom
	results   []bool
}

func newHarness(t *testing.T, enemy types.EnemyDef, wild bool, store *memStore) *harness {
	t.Helper()
	h := &harness{
		store:     store,
		presenter: &recordingPresenter{},
		chooser:   &scriptedChooser{},
		ai:        &scriptedChooser{},
		world:     &recordingWorld{},
		rnd:       &scriptedRandom{},
	}
	s, err := New(enemy, wild, Options{
		Catalog:    testCatalog(),
		Store:      store,
		Presenter:  h.presenter,
		Chooser:    h.chooser,
		AI:         h.ai,
		World:      h.world,
		Random:     h.rnd,
		Logger:     zerolog.Nop(),
		OnComplete: func(won bool) { h.results = append(h.results, won) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.session = s
	return h
}

func wildEnemy(species string, hp int) types.EnemyDef {
	return types.EnemyDef{ID: "wild", Name: "Wild creature", Members: []types.EnemyMember{
		{Key: "a", SpeciesID: species, HP: hp, MaxHP: 50, Level: 1},
	}}
}
