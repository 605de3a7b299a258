package state

import (
	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/types"
)

// PlayerStore adapts the player's state to the battle Store.
type PlayerStore struct {
	p *types.PlayerState
}

var _ battle.Store = (*PlayerStore)(nil)

// NewPlayerStore wraps p. Battle reconciliation writes straight into it.
func NewPlayerStore(p *types.PlayerState) *PlayerStore {
	return &PlayerStore{p: p}
}

func (s *PlayerStore) Lineup() []string {
	return append([]string(nil), s.p.Lineup...)
}

func (s *PlayerStore) Creature(id string) (types.Creature, bool) {
	c, ok := s.p.Roster[id]
	return c, ok
}

func (s *PlayerStore) Items() []types.Item {
	return append([]types.Item(nil), s.p.Items...)
}

func (s *PlayerStore) WriteBack(id string, hp, xp, maxXP, level int) {
	c, ok := s.p.Roster[id]
	if !ok {
		return
	}
	c.HP, c.XP, c.MaxXP, c.Level = hp, xp, maxXP, level
	s.p.Roster[id] = c
}

func (s *PlayerStore) MarkMutated(id string) {
	c, ok := s.p.Roster[id]
	if !ok {
		return
	}
	c.Mutated = true
	s.p.Roster[id] = c
}

func (s *PlayerStore) PruneItems(used []string) {
	PruneItems(s.p, used)
}

func (s *PlayerStore) AddCreature(speciesID string) types.Creature {
	return AddCreature(s.p, speciesID)
}
