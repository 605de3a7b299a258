// Package battle runs turn-based creature battles: combatants, the
// effect-event interpreter, the turn cycle and the session that wires
// them to the player's persistent state.
package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNoCombatants = errors.New("battle: a side has no combatants")
	ErrUnknownEnemy = errors.New("battle: unknown enemy")
)

// Options wires a session to its collaborators.
type Options struct {
	Catalog   Catalog
	Store     Store
	Presenter Presenter
	Chooser   Chooser // player decisions
	AI        Chooser // enemy decisions; defaults to NewAI
	World     World
	Random    Random
	Pacing    Pacing
	Logger    zerolog.Logger
	Tracer    trace.Tracer

	// OnComplete is called exactly once when the battle ends.
	OnComplete func(playerWon bool)
}

// PoolItem is an item in the battle's shared pool.
type PoolItem struct {
	types.Item
	Team types.Team
}

// Session owns both teams, the active pointers and the item pool.
type Session struct {
	enemy   types.EnemyDef
	wild    bool
	catalog Catalog

	combatants map[string]*Combatant
	order      []string
	active     map[types.Team]string
	items      []PoolItem
	used       []string

	opts   Options
	log    zerolog.Logger
	tracer trace.Tracer
	cycle  *TurnCycle
	done   bool
}

// New builds a battle against enemy from the player's stored lineup.
// Wild encounters leave out trainer members.
func New(enemy types.EnemyDef, wild bool, opts Options) (*Session, error) {
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("evolisk/battle")
	}
	if opts.AI == nil {
		opts.AI = NewAI(opts.Random, opts.Logger)
	}

	s := &Session{
		enemy:      enemy,
		wild:       wild,
		catalog:    opts.Catalog,
		combatants: map[string]*Combatant{},
		active:     map[types.Team]string{},
		opts:       opts,
		log:        opts.Logger.With().Str("enemy", enemy.ID).Logger(),
		tracer:     opts.Tracer,
	}

	for _, id := range opts.Store.Lineup() {
		cr, ok := opts.Store.Creature(id)
		if !ok {
			s.log.Error().Str("creature", id).Msg("lineup references missing creature")
			continue
		}
		s.addCombatant(id, types.TeamPlayer, cr)
	}

	for _, m := range enemy.Members {
		if wild && m.Trainer {
			continue
		}
		s.addCombatant("e_"+m.Key, types.TeamEnemy, memberCreature(m))
	}

	for _, team := range []types.Team{types.TeamPlayer, types.TeamEnemy} {
		if len(s.Team(team)) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoCombatants, team)
		}
	}

	for _, it := range opts.Store.Items() {
		s.items = append(s.items, PoolItem{Item: it, Team: types.TeamPlayer})
	}

	s.cycle = &TurnCycle{
		session: s,
		interp: &Interpreter{
			session:   s,
			presenter: opts.Presenter,
			store:     opts.Store,
			rnd:       opts.Random,
			pacing:    opts.Pacing,
			log:       s.log,
		},
		log: s.log,
	}
	return s, nil
}

// NewFromCatalog looks the enemy up by id before building the session.
func NewFromCatalog(enemyID string, wild bool, opts Options) (*Session, error) {
	enemy, ok := opts.Catalog.Enemies[enemyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnemy, enemyID)
	}
	return New(enemy, wild, opts)
}

func memberCreature(m types.EnemyMember) types.Creature {
	cr := types.Creature{
		SpeciesID: m.SpeciesID,
		HP:        m.HP,
		MaxHP:     m.MaxHP,
		XP:        m.XP,
		MaxXP:     m.MaxXP,
		Level:     m.Level,
	}
	if cr.MaxHP <= 0 {
		cr.MaxHP = 50
	}
	if m.HP == 0 {
		cr.HP = cr.MaxHP
	}
	if cr.MaxXP <= 0 {
		cr.MaxXP = 100
	}
	if cr.Level < 1 {
		cr.Level = 1
	}
	return cr
}

func (s *Session) addCombatant(id string, team types.Team, cr types.Creature) {
	species, ok := s.catalog.Species[cr.SpeciesID]
	if !ok {
		s.log.Error().Str("combatant", id).Str("species", cr.SpeciesID).Msg("unknown species")
		return
	}
	c := &Combatant{
		ID:               id,
		Team:             team,
		PlayerControlled: team == types.TeamPlayer,
		Species:          species,
		HP:               cr.HP,
		MaxHP:            cr.MaxHP,
		XP:               cr.XP,
		MaxXP:            cr.MaxXP,
		Level:            cr.Level,
		Mutated:          cr.Mutated,
		session:          s,
		log:              s.log.With().Str("combatant", id).Logger(),
	}
	c.SetStatus(cr.Status)
	s.combatants[id] = c
	s.order = append(s.order, id)

	// First healthy member added starts as active.
	if s.active[team] == "" && !c.Fainted() {
		s.active[team] = id
	}
}

// Run plays the battle to the end and reports whether the player won.
// It returns an error only when a collaborator fails or ctx is done.
func (s *Session) Run(ctx context.Context) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "battle.session",
		trace.WithAttributes(
			attribute.String("enemy", s.enemy.ID),
			attribute.Bool("wild", s.wild),
		))
	defer span.End()

	if err := s.opts.Presenter.Begin(ctx, s); err != nil {
		span.RecordError(err)
		return false, err
	}

	winner, err := s.cycle.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	won := winner == types.TeamPlayer
	span.SetAttributes(attribute.String("winner", string(winner)))
	if won {
		s.reconcile()
	}
	s.complete(won)
	return won, nil
}

// reconcile writes every player combatant back and prunes spent items.
// Fainted creatures are stored at 0 hp.
func (s *Session) reconcile() {
	for _, c := range s.Team(types.TeamPlayer) {
		s.opts.Store.WriteBack(c.ID, max(c.HP, 0), c.XP, c.MaxXP, c.Level)
	}
	if len(s.used) > 0 {
		s.opts.Store.PruneItems(s.used)
	}
}

func (s *Session) complete(won bool) {
	if s.done {
		return
	}
	s.done = true
	s.log.Info().Bool("player_won", won).Int("turns", s.cycle.turn).Msg("battle over")
	if s.opts.OnComplete != nil {
		s.opts.OnComplete(won)
	}
}

// Enemy returns the enemy definition this battle was built from.
func (s *Session) Enemy() types.EnemyDef {
	return s.enemy
}

// Wild reports whether this is a wild encounter.
func (s *Session) Wild() bool {
	return s.wild
}

// Phase returns the turn cycle's current phase.
func (s *Session) Phase() Phase {
	return s.cycle.Phase()
}

// Combatant returns a combatant by id, or nil.
func (s *Session) Combatant(id string) *Combatant {
	return s.combatants[id]
}

// Active returns a team's active combatant, or nil mid-swap.
func (s *Session) Active(team types.Team) *Combatant {
	return s.combatants[s.active[team]]
}

func (s *Session) setActive(team types.Team, id string) {
	s.active[team] = id
}

// Team returns a team's combatants in the order they were added.
func (s *Session) Team(team types.Team) []*Combatant {
	var out []*Combatant
	for _, id := range s.order {
		if c := s.combatants[id]; c.Team == team {
			out = append(out, c)
		}
	}
	return out
}

// Bench returns a team's healthy combatants that are not active.
func (s *Session) Bench(team types.Team) []*Combatant {
	var out []*Combatant
	for _, c := range s.Team(team) {
		if !c.Fainted() && !c.IsActive() {
			out = append(out, c)
		}
	}
	return out
}

// Items returns the remaining item pool.
func (s *Session) Items() []PoolItem {
	return s.items
}

// UsedItems returns the instance ids spent so far.
func (s *Session) UsedItems() []string {
	return s.used
}

// consumeItem removes an instance from the pool and records it as used.
func (s *Session) consumeItem(instanceID string) {
	for i, it := range s.items {
		if it.InstanceID == instanceID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.used = append(s.used, instanceID)
			return
		}
	}
	s.log.Error().Str("item", instanceID).Msg("spent item not in pool")
}

// WinningTeam returns the team that has won, or "" while both stand.
// Player exhaustion is checked first, so a double wipeout goes to the enemy.
func (s *Session) WinningTeam() types.Team {
	alive := map[types.Team]bool{}
	for _, c := range s.combatants {
		if !c.Fainted() {
			alive[c.Team] = true
		}
	}
	if !alive[types.TeamPlayer] {
		return types.TeamEnemy
	}
	if !alive[types.TeamEnemy] {
		return types.TeamPlayer
	}
	return ""
}

// Snapshot returns display copies of every combatant.
func (s *Session) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.combatants[id].Snapshot())
	}
	return out
}

// controller returns the chooser for a team.
func (s *Session) controller(team types.Team) Chooser {
	if team == types.TeamPlayer {
		return s.opts.Chooser
	}
	return s.opts.AI
}
