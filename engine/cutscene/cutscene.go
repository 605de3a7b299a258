// Package cutscene plays overworld scene events one at a time.
package cutscene

import (
	"context"
	"fmt"

	"github.com/nathoo/evolisk/types"
)

// Event types.
const (
	Text           = "text"
	Battle         = "battle"
	WildBattle     = "wild_battle"
	SetFlag        = "set_flag"
	ChooseCreature = "choose_creature"
	Heal           = "heal"
)

// Known reports whether t is a scene event type the runner understands.
func Known(t string) bool {
	switch t {
	case Text, Battle, WildBattle, SetFlag, ChooseCreature, Heal:
		return true
	}
	return false
}

// Host carries out scene events. Blocking calls return once the
// presentation layer is done with them.
type Host interface {
	Narrate(ctx context.Context, text string) error
	Battle(ctx context.Context, enemyID string) (won bool, err error)
	WildBattle(ctx context.Context) (won bool, err error)
	SetFlag(name string)
	ChooseCreature(ctx context.Context, species []string) error
	Heal(mode string)
}

// Run plays events in order. It stops early, reporting false, when a
// battle is lost. Unknown event types are an error.
func Run(ctx context.Context, h Host, events []types.SceneEvent) (bool, error) {
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		switch ev.Type {
		case Text:
			if err := h.Narrate(ctx, ev.Text); err != nil {
				return false, err
			}

		case Battle, WildBattle:
			var won bool
			var err error
			if ev.Type == Battle {
				won, err = h.Battle(ctx, ev.Enemy)
			} else {
				won, err = h.WildBattle(ctx)
			}
			if err != nil {
				return false, err
			}
			if !won {
				return false, nil
			}

		case SetFlag:
			h.SetFlag(ev.Flag)

		case ChooseCreature:
			if err := h.ChooseCreature(ctx, ev.Species); err != nil {
				return false, err
			}

		case Heal:
			h.Heal(ev.Heal)

		default:
			return false, fmt.Errorf("scene event %d: unknown type %q", i, ev.Type)
		}
	}
	return true, nil
}
