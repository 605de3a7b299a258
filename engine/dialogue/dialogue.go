// Package dialogue picks which scenario an NPC plays when talked to.
package dialogue

import (
	"github.com/nathoo/evolisk/engine/rules"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// Select returns the first scenario whose requirements all hold.
// Returns nil if the NPC is unknown or has nothing to say right now.
func Select(npcID string, s *types.State, defs *state.Defs) *types.Scenario {
	npc, ok := defs.NPCs[npcID]
	if !ok {
		return nil
	}
	return First(npc.Scenarios, s)
}

// First returns the first eligible scenario of an ordered list.
func First(scenarios []types.Scenario, s *types.State) *types.Scenario {
	for i := range scenarios {
		if rules.EvalAllConditions(scenarios[i].Requires, s) {
			return &scenarios[i]
		}
	}
	return nil
}

// Available counts the scenarios whose requirements currently hold.
func Available(npcID string, s *types.State, defs *state.Defs) int {
	npc, ok := defs.NPCs[npcID]
	if !ok {
		return 0
	}
	n := 0
	for _, sc := range npc.Scenarios {
		if rules.EvalAllConditions(sc.Requires, s) {
			n++
		}
	}
	return n
}
