package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/cutscene"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

const refreshedMessage = "You feel mysteriously refreshed."

// fight hands control to a battle session and waits for it to finish.
func (e *Engine) fight(ctx context.Context, enemy types.EnemyDef, wild bool) (bool, error) {
	if e.Frontend == nil {
		return false, ErrNoFrontend
	}
	lineup := state.LineupCreatures(&e.State.Player)
	if len(lineup) == 0 {
		e.say("You have no creatures to battle with!")
		return false, nil
	}
	healthy := false
	for _, c := range lineup {
		if c.HP > 0 {
			healthy = true
			break
		}
	}
	if !healthy {
		e.say("Your creatures are too exhausted to fight.")
		return false, nil
	}
	if err := e.flush(ctx); err != nil {
		return false, err
	}

	log := e.Log.With().Str("enemy", enemy.ID).Bool("wild", wild).Logger()
	s, err := battle.New(enemy, wild, battle.Options{
		Catalog:   e.Defs.Catalog(),
		Store:     state.NewPlayerStore(&e.State.Player),
		Presenter: e.Frontend,
		Chooser:   e.Frontend,
		World:     overworld{e},
		Random:    e.RNG,
		Pacing:    e.Pacing,
		Logger:    log,
		Tracer:    e.Tracer,
	})
	if errors.Is(err, battle.ErrNoCombatants) {
		log.Error().Err(err).Msg("battle not started")
		e.say("Nothing answers your challenge.")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e.tracef("battle enemy=%s wild=%t", enemy.ID, wild)
	won, err := s.Run(ctx)
	if err != nil {
		return false, err
	}
	log.Info().Bool("won", won).Msg("battle finished")
	e.tracef("battle enemy=%s won=%t", enemy.ID, won)
	return won, nil
}

// wildEnemy builds a one-member encounter with a species picked
// uniformly from pool.
func (e *Engine) wildEnemy(pool []string, level int) types.EnemyDef {
	if level <= 0 {
		level = 1
	}
	speciesID := pool[e.RNG.Intn(len(pool))]
	name := speciesID
	src := ""
	if sp, ok := e.Defs.Species[speciesID]; ok {
		name, src = sp.Name, sp.Src
	}
	return types.EnemyDef{
		ID:   "wild_" + speciesID,
		Name: "Wild " + name,
		Src:  src,
		Members: []types.EnemyMember{{
			Key:       "wild",
			SpeciesID: speciesID,
			HP:        state.WildHP,
			MaxHP:     state.WildHP,
			MaxXP:     state.StartMaxXP,
			Level:     level,
		}},
	}
}

// overworld carries out scene events and the lost-battle teleport on
// behalf of the engine.
type overworld struct {
	e *Engine
}

var (
	_ cutscene.Host = overworld{}
	_ battle.World  = overworld{}
)

func (o overworld) Narrate(_ context.Context, text string) error {
	o.e.say(text)
	return nil
}

func (o overworld) Battle(ctx context.Context, enemyID string) (bool, error) {
	enemy, ok := o.e.Defs.Enemies[enemyID]
	if !ok {
		return false, fmt.Errorf("%w %q", battle.ErrUnknownEnemy, enemyID)
	}
	return o.e.fight(ctx, enemy, false)
}

// WildBattle draws from the current map's wild pool, or from every
// species when the map has none.
func (o overworld) WildBattle(ctx context.Context) (bool, error) {
	m := o.e.Defs.Maps[o.e.State.MapID]
	pool := m.Wild
	if len(pool) == 0 {
		for id := range o.e.Defs.Species {
			pool = append(pool, id)
		}
		sort.Strings(pool)
	}
	if len(pool) == 0 {
		return true, nil
	}
	return o.e.fight(ctx, o.e.wildEnemy(pool, m.WildLevel), true)
}

func (o overworld) SetFlag(name string) {
	state.SetFlag(o.e.State, name, true)
}

func (o overworld) ChooseCreature(ctx context.Context, species []string) error {
	e := o.e
	var options []types.SpeciesDef
	for _, id := range species {
		if sp, ok := e.Defs.Species[id]; ok {
			options = append(options, sp)
		}
	}
	if len(options) == 0 {
		e.Log.Error().Strs("species", species).Msg("starter menu has no known species")
		return nil
	}
	if e.Frontend == nil {
		return ErrNoFrontend
	}
	if err := e.flush(ctx); err != nil {
		return err
	}
	i, err := e.Frontend.ChooseStarter(ctx, options)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(options) {
		return fmt.Errorf("starter choice %d out of range", i)
	}
	state.AddCreature(&e.State.Player, options[i].ID)
	e.say(fmt.Sprintf("%s joined your party!", options[i].Name))
	return nil
}

func (o overworld) Heal(mode string) {
	state.HealRoster(&o.e.State.Player, mode)
}

// TeleportToHealingArea sends the player to the current map's healing
// spot and heals the roster.
func (o overworld) TeleportToHealingArea(ctx context.Context) error {
	e := o.e
	spot := types.HealingSpot{Message: refreshedMessage, Heal: state.HealFull}
	if m, ok := e.Defs.Maps[e.State.MapID]; ok && m.Healing != nil {
		spot = *m.Healing
	}
	if spot.Message != "" {
		e.say(spot.Message)
	}
	if _, ok := e.Defs.Maps[spot.Map]; ok {
		e.State.MapID = spot.Map
	}
	state.HealRoster(&e.State.Player, spot.Heal)
	e.Log.Info().Str("map", e.State.MapID).Str("heal", spot.Heal).Msg("teleported to healing area")
	return e.flush(ctx)
}
