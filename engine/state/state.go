// Package state manages the mutable player state on top of the
// immutable content definitions loaded from Lua.
package state

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/types"
)

// Defs holds the immutable game definitions loaded from Lua.
type Defs struct {
	Game    types.GameDef
	Species map[string]types.SpeciesDef
	Actions map[string]types.ActionDef
	Enemies map[string]types.EnemyDef
	Maps    map[string]types.MapDef
	NPCs    map[string]types.NPCDef
}

// Catalog exposes the battle-facing part of the definitions.
func (d *Defs) Catalog() battle.Catalog {
	return battle.Catalog{Actions: d.Actions, Species: d.Species, Enemies: d.Enemies}
}

// Roster defaults.
const (
	MaxLineup  = 3
	StartHP    = 50
	StartMaxXP = 100
	WildHP     = 30
)

// Heal modes.
const (
	HealFull    = "full"
	HealPartial = "partial"
)

// newID generates roster and item instance ids.
var newID = uuid.NewString

// NewState creates a fresh game state from definitions, handing out the
// starting creatures and items.
func NewState(defs *Defs) *types.State {
	s := &types.State{
		MapID: defs.Game.Start,
		Player: types.PlayerState{
			Roster:     map[string]types.Creature{},
			Lineup:     []string{},
			Items:      []types.Item{},
			StoryFlags: map[string]bool{},
		},
		CommandLog: []string{},
	}
	for _, sp := range defs.Game.StartCreatures {
		AddCreature(&s.Player, sp)
	}

	ids := make([]string, 0, len(defs.Game.StartItems))
	for id := range defs.Game.StartItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for i := 0; i < defs.Game.StartItems[id]; i++ {
			AddItem(&s.Player, id)
		}
	}
	return s
}

// GetFlag returns the value of a story flag. Unset flags return false.
func GetFlag(s *types.State, name string) bool {
	return s.Player.StoryFlags[name]
}

// SetFlag sets a story flag.
func SetFlag(s *types.State, name string, value bool) {
	if s.Player.StoryFlags == nil {
		s.Player.StoryFlags = map[string]bool{}
	}
	s.Player.StoryFlags[name] = value
}

// HasSpecies reports whether any roster creature is of the given species.
func HasSpecies(s *types.State, speciesID string) bool {
	for _, c := range s.Player.Roster {
		if c.SpeciesID == speciesID {
			return true
		}
	}
	return false
}

// HasItem reports whether the bag holds at least one instance of an action.
func HasItem(s *types.State, actionID string) bool {
	for _, it := range s.Player.Items {
		if it.ActionID == actionID {
			return true
		}
	}
	return false
}

// AddCreature creates a fresh level 1 roster entry. It joins the lineup
// while the lineup has room.
func AddCreature(p *types.PlayerState, speciesID string) types.Creature {
	c := types.Creature{
		ID:        newID(),
		SpeciesID: speciesID,
		HP:        StartHP,
		MaxHP:     StartHP,
		MaxXP:     StartMaxXP,
		Level:     1,
	}
	if p.Roster == nil {
		p.Roster = map[string]types.Creature{}
	}
	p.Roster[c.ID] = c
	if len(p.Lineup) < MaxLineup {
		p.Lineup = append(p.Lineup, c.ID)
	}
	return c
}

// AddItem puts a new instance of an action into the bag.
func AddItem(p *types.PlayerState, actionID string) types.Item {
	it := types.Item{ActionID: actionID, InstanceID: newID()}
	p.Items = append(p.Items, it)
	return it
}

// InLineup reports whether a creature is in the lineup.
func InLineup(p *types.PlayerState, id string) bool {
	return indexOf(p.Lineup, id) >= 0
}

// SwapLineup puts newID where oldID stands. When newID is already in the
// lineup the two trade places.
func SwapLineup(p *types.PlayerState, oldID, newID string) error {
	i := indexOf(p.Lineup, oldID)
	if i < 0 {
		return fmt.Errorf("%s is not in the lineup", oldID)
	}
	if _, ok := p.Roster[newID]; !ok {
		return fmt.Errorf("%s is not in the roster", newID)
	}
	if j := indexOf(p.Lineup, newID); j >= 0 {
		p.Lineup[i], p.Lineup[j] = p.Lineup[j], p.Lineup[i]
		return nil
	}
	p.Lineup[i] = newID
	return nil
}

// MoveToFront makes a creature lead the lineup. A benched creature takes
// the leader's slot and the leader moves to the back.
func MoveToFront(p *types.PlayerState, id string) error {
	if _, ok := p.Roster[id]; !ok {
		return fmt.Errorf("%s is not in the roster", id)
	}
	i := indexOf(p.Lineup, id)
	switch {
	case i == 0:
		return nil
	case i > 0:
		p.Lineup = append(p.Lineup[:i], p.Lineup[i+1:]...)
	case len(p.Lineup) >= MaxLineup:
		p.Lineup = p.Lineup[:len(p.Lineup)-1]
	}
	p.Lineup = append([]string{id}, p.Lineup...)
	return nil
}

// HealRoster restores every roster creature. Partial healing sets hp to
// half of max, rounded down. Statuses are cleared either way.
func HealRoster(p *types.PlayerState, mode string) {
	for id, c := range p.Roster {
		if mode == HealPartial {
			c.HP = c.MaxHP / 2
		} else {
			c.HP = c.MaxHP
		}
		c.Status = nil
		p.Roster[id] = c
	}
}

// PruneItems removes spent instances from the bag.
func PruneItems(p *types.PlayerState, used []string) {
	if len(used) == 0 {
		return
	}
	spent := make(map[string]bool, len(used))
	for _, id := range used {
		spent[id] = true
	}
	kept := p.Items[:0]
	for _, it := range p.Items {
		if !spent[it.InstanceID] {
			kept = append(kept, it)
		}
	}
	p.Items = kept
}

// LineupCreatures returns the lineup's creatures in order.
func LineupCreatures(p *types.PlayerState) []types.Creature {
	out := make([]types.Creature, 0, len(p.Lineup))
	for _, id := range p.Lineup {
		if c, ok := p.Roster[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Bench returns roster creatures outside the lineup, sorted by id.
func Bench(p *types.PlayerState) []types.Creature {
	var out []types.Creature
	for id, c := range p.Roster {
		if !InLineup(p, id) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ItemCount is one line of the bag listing.
type ItemCount struct {
	ActionID string
	Count    int
}

// ItemCounts groups the bag by action, in first-seen order.
func ItemCounts(p *types.PlayerState) []ItemCount {
	var out []ItemCount
	index := map[string]int{}
	for _, it := range p.Items {
		if i, ok := index[it.ActionID]; ok {
			out[i].Count++
			continue
		}
		index[it.ActionID] = len(out)
		out = append(out, ItemCount{ActionID: it.ActionID, Count: 1})
	}
	return out
}

// NPCsInMap returns the ids of NPCs placed on a map, sorted.
func NPCsInMap(defs *Defs, mapID string) []string {
	var out []string
	for id, n := range defs.NPCs {
		if n.Map == mapID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// MapExits returns a map's exits, or nil for an unknown map.
func MapExits(defs *Defs, mapID string) map[string]string {
	m, ok := defs.Maps[mapID]
	if !ok {
		return nil
	}
	return m.Exits
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
