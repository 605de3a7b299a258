package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/evolisk/engine/battle"
	"github.com/nathoo/evolisk/engine/cutscene"
	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"has_item":             true,
	"has_species":          true,
	"flag_set":             true,
	"flag_not":             true,
	"flag_is":              true,
	"in_map":               true,
	"roster_size_at_least": true,
	"not":                  true,
}

var knownStatuses = map[string]bool{
	types.StatusDazed:   true,
	types.StatusEvade:   true,
	types.StatusRecover: true,
}

// validate checks the compiled defs for referential integrity and
// consistency. Warnings are returned even when validation passes.
func validate(defs *state.Defs) ([]string, error) {
	ve := &ValidationError{}

	// Game title required.
	if defs.Game.Title == "" {
		ve.errorf("Game.Title is required")
	}

	// Start map exists.
	if defs.Game.Start == "" {
		ve.errorf("Game.Start is required")
	} else if _, ok := defs.Maps[defs.Game.Start]; !ok {
		ve.errorf("start map %q not found in defined maps", defs.Game.Start)
	}
	for _, sp := range defs.Game.StartCreatures {
		if _, ok := defs.Species[sp]; !ok {
			ve.errorf("Game.creatures references undefined species %q", sp)
		}
	}
	for _, id := range sortedKeys(defs.Game.StartItems) {
		if _, ok := defs.Actions[id]; !ok {
			ve.errorf("Game.items references undefined action %q", id)
		}
	}

	for _, id := range sortedKeys(defs.Actions) {
		validateAction(defs.Actions[id], ve)
	}

	for _, id := range sortedKeys(defs.Species) {
		sp := defs.Species[id]
		if sp.Name == "" {
			ve.errorf("species %q has no name", id)
		}
		if len(sp.Actions) == 0 {
			ve.warnf("species %q has no actions and will always pass", id)
		}
		for _, a := range sp.Actions {
			if _, ok := defs.Actions[a]; !ok {
				ve.errorf("species %q references undefined action %q", id, a)
			}
		}
		if sp.MutatedName != "" && sp.MutatedSrc == "" {
			ve.warnf("species %q has a mutated_name but no mutated_src and can never mutate", id)
		}
	}

	for _, id := range sortedKeys(defs.Enemies) {
		e := defs.Enemies[id]
		if len(e.Members) == 0 {
			ve.errorf("enemy %q has no members", id)
		}
		for _, m := range e.Members {
			if _, ok := defs.Species[m.SpeciesID]; !ok {
				ve.errorf("enemy %q member %q references undefined species %q", id, m.Key, m.SpeciesID)
			}
			if m.MaxHP > 0 && m.HP > m.MaxHP {
				ve.errorf("enemy %q member %q has hp %d above max_hp %d", id, m.Key, m.HP, m.MaxHP)
			}
		}
	}

	for _, id := range sortedKeys(defs.Maps) {
		m := defs.Maps[id]
		for _, dir := range sortedKeys(m.Exits) {
			if _, ok := defs.Maps[m.Exits[dir]]; !ok {
				ve.errorf("map %q exit %q points to undefined map %q", id, dir, m.Exits[dir])
			}
		}
		for _, sp := range m.Wild {
			if _, ok := defs.Species[sp]; !ok {
				ve.errorf("map %q wild list references undefined species %q", id, sp)
			}
		}
		if hs := m.Healing; hs != nil {
			if hs.Map != "" {
				if _, ok := defs.Maps[hs.Map]; !ok {
					ve.errorf("map %q healing spot points to undefined map %q", id, hs.Map)
				}
			}
			validateHealMode(fmt.Sprintf("map %q healing spot", id), hs.Heal, ve)
		}
		validateScenarios(fmt.Sprintf("map %q on_enter", id), m.OnEnter, defs, ve)
	}

	for _, id := range sortedKeys(defs.NPCs) {
		n := defs.NPCs[id]
		if _, ok := defs.Maps[n.Map]; !ok {
			ve.errorf("npc %q is placed on undefined map %q", id, n.Map)
		}
		if len(n.Scenarios) == 0 {
			ve.warnf("npc %q has nothing to say", id)
		}
		validateScenarios(fmt.Sprintf("npc %q", id), n.Scenarios, defs, ve)
	}

	if len(ve.Errors) > 0 {
		return ve.Warnings, ve
	}
	return ve.Warnings, nil
}

func validateAction(a types.ActionDef, ve *ValidationError) {
	if a.Name == "" {
		ve.errorf("action %q has no name", a.ID)
	}
	if a.Target != types.TargetEnemy && a.Target != types.TargetFriendly {
		ve.errorf("action %q has unknown target %q", a.ID, a.Target)
	}
	if len(a.Success) == 0 {
		ve.warnf("action %q has no success events", a.ID)
	}
	for i, ev := range a.Success {
		switch ev.Kind {
		case types.EventText, types.EventAttemptCatch:
		case types.EventAnimation:
			if !battle.Animations[ev.Animation] {
				ve.warnf("action %q success[%d] plays unknown animation %q", a.ID, i+1, ev.Animation)
			}
		case types.EventStateChange:
			if ev.Status != nil && !knownStatuses[ev.Status.Type] {
				ve.warnf("action %q success[%d] applies unknown status %q", a.ID, i+1, ev.Status.Type)
			}
		default:
			ve.errorf("action %q success[%d] has unknown kind %q", a.ID, i+1, ev.Kind)
		}
	}
	if battle.IsCatch(&a) && a.Target != types.TargetEnemy {
		ve.errorf("catch action %q must target the enemy", a.ID)
	}
}

func validateScenarios(where string, scenarios []types.Scenario, defs *state.Defs, ve *ValidationError) {
	for i, sc := range scenarios {
		at := fmt.Sprintf("%s scenario %d", where, i+1)
		validateConditions(at, sc.Requires, defs, ve)
		if len(sc.Events) == 0 {
			ve.warnf("%s has no events", at)
		}
		for _, ev := range sc.Events {
			validateSceneEvent(at, ev, defs, ve)
		}
	}
}

func validateSceneEvent(at string, ev types.SceneEvent, defs *state.Defs, ve *ValidationError) {
	if !cutscene.Known(ev.Type) {
		ve.errorf("%s has unknown event type %q", at, ev.Type)
		return
	}
	switch ev.Type {
	case cutscene.Battle:
		if _, ok := defs.Enemies[ev.Enemy]; !ok {
			ve.errorf("%s battles undefined enemy %q", at, ev.Enemy)
		}
	case cutscene.SetFlag:
		if ev.Flag == "" {
			ve.errorf("%s sets an empty flag", at)
		}
	case cutscene.ChooseCreature:
		if len(ev.Species) == 0 {
			ve.errorf("%s offers no creatures to choose from", at)
		}
		for _, sp := range ev.Species {
			if _, ok := defs.Species[sp]; !ok {
				ve.errorf("%s offers undefined species %q", at, sp)
			}
		}
	case cutscene.Heal:
		validateHealMode(at, ev.Heal, ve)
	}
}

func validateHealMode(at, mode string, ve *ValidationError) {
	if mode != state.HealFull && mode != state.HealPartial {
		ve.errorf("%s has unknown heal mode %q", at, mode)
	}
}

func validateConditions(at string, conditions []types.Condition, defs *state.Defs, ve *ValidationError) {
	for _, cond := range conditions {
		if !validConditionTypes[cond.Type] {
			ve.errorf("%s has unknown condition type %q", at, cond.Type)
			continue
		}

		switch cond.Type {
		case "has_item":
			if item, _ := cond.Params["item"].(string); item != "" {
				if _, ok := defs.Actions[item]; !ok {
					ve.errorf("%s condition has_item references undefined action %q", at, item)
				}
			}
		case "has_species":
			if sp, _ := cond.Params["species"].(string); sp != "" {
				if _, ok := defs.Species[sp]; !ok {
					ve.errorf("%s condition has_species references undefined species %q", at, sp)
				}
			}
		case "in_map":
			if m, _ := cond.Params["map"].(string); m != "" {
				if _, ok := defs.Maps[m]; !ok {
					ve.errorf("%s condition in_map references undefined map %q", at, m)
				}
			}
		case "not":
			if cond.Inner != nil {
				validateConditions(at, []types.Condition{*cond.Inner}, defs, ve)
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
