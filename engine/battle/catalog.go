package battle

import "github.com/nathoo/evolisk/types"

// Catalog is the static content a battle reads from.
type Catalog struct {
	Actions map[string]types.ActionDef
	Species map[string]types.SpeciesDef
	Enemies map[string]types.EnemyDef
}

// Action looks up an action by id.
func (c Catalog) Action(id string) (*types.ActionDef, bool) {
	def, ok := c.Actions[id]
	if !ok {
		return nil, false
	}
	return &def, true
}

// IsCatch reports whether an action attempts to catch its target.
func IsCatch(a *types.ActionDef) bool {
	for _, ev := range a.Success {
		if ev.Kind == types.EventAttemptCatch {
			return true
		}
	}
	return false
}

// TargetOf picks who an action lands on.
func TargetOf(a *types.ActionDef, caster, opponent *Combatant) *Combatant {
	if a.Target == types.TargetFriendly {
		return caster
	}
	return opponent
}

// CatchChance maps remaining hp to a capture probability.
func CatchChance(hpPercent float64) float64 {
	switch {
	case hpPercent < 25:
		return 0.9
	case hpPercent < 50:
		return 0.7
	case hpPercent < 75:
		return 0.5
	default:
		return 0.3
	}
}

// ScaledDamage is base damage plus 5 per caster level above the first.
func ScaledDamage(base, level int) int {
	return base + (level-1)*5
}
