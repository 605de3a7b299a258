package battle

import (
	"context"
	"fmt"
	"strings"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
)

// Event is an EffectEvent bound to the combatants and action of a turn.
type Event struct {
	types.EffectEvent
	Caster *Combatant
	Target *Combatant
	Action *types.ActionDef

	XP          int        // give_xp
	Team        types.Team // replace
	Replacement *Combatant // replace
}

// Outcome reports whether an event ended the battle.
type Outcome struct {
	Ended  bool
	Winner types.Team
}

// Interpreter executes one event at a time against a session.
type Interpreter struct {
	session   *Session
	presenter Presenter
	store     Store
	rnd       Random
	pacing    Pacing
	log       zerolog.Logger
}

// Run executes ev and returns when it has fully resolved.
func (in *Interpreter) Run(ctx context.Context, ev Event) (Outcome, error) {
	switch ev.Kind {
	case types.EventText:
		return Outcome{}, in.textMessage(ctx, ev)
	case types.EventAnimation:
		return Outcome{}, in.animation(ctx, ev)
	case types.EventStateChange:
		return Outcome{}, in.stateChange(ctx, ev)
	case types.EventAttemptCatch:
		return in.attemptCatch(ctx, ev)
	case types.EventGiveXP:
		return Outcome{}, in.giveXP(ctx, ev)
	case types.EventReplace:
		return Outcome{}, in.replace(ctx, ev)
	default:
		in.log.Error().Str("kind", string(ev.Kind)).Msg("unknown event kind")
		return Outcome{}, nil
	}
}

func (in *Interpreter) textMessage(ctx context.Context, ev Event) error {
	return in.presenter.ShowMessage(ctx, interpolate(ev.Text, ev))
}

func (in *Interpreter) animation(ctx context.Context, ev Event) error {
	if !Animations[ev.Animation] {
		in.log.Warn().Str("animation", ev.Animation).Msg("unknown animation")
		return nil
	}
	a := Animation{
		ID:     ev.Animation,
		Caster: ev.Caster,
		Target: ev.Target,
		Params: ev.Params,
	}
	if ev.Caster != nil {
		a.Team = ev.Caster.Team
	}
	return in.presenter.Animate(ctx, a)
}

func (in *Interpreter) stateChange(ctx context.Context, ev Event) error {
	who := ev.Target
	if ev.OnCaster {
		who = ev.Caster
	}
	if who == nil || (ev.Damage != 0 && ev.Target == nil) {
		in.log.Error().
			Bool("on_caster", ev.OnCaster).
			Msg("state change has no combatant to apply to")
		return nil
	}

	if ev.Damage != 0 {
		target := ev.Target
		if target.Status != nil && target.Status.Type == types.StatusEvade {
			target.SetStatus(nil)
			in.presenter.Cue(Cue{Kind: CueRefresh, Combatant: target})
			return in.presenter.ShowMessage(ctx, fmt.Sprintf("%s dodged the attack!", target.Name()))
		}

		level := 1
		if ev.Caster != nil {
			level = ev.Caster.Level
		}
		target.ApplyDamage(ScaledDamage(ev.Damage, level))
		in.presenter.Cue(Cue{Kind: CueHit, Combatant: target})
	}

	if ev.Recover != 0 {
		who.ApplyRecover(ev.Recover)
	}

	if ev.Status != nil {
		who.SetStatus(ev.Status)
	} else if ev.ClearStatus {
		who.SetStatus(nil)
	}

	in.presenter.Cue(Cue{Kind: CueRefresh, Combatant: who})
	return wait(ctx, in.pacing.Settle)
}

func (in *Interpreter) attemptCatch(ctx context.Context, ev Event) (Outcome, error) {
	target := in.session.Active(types.TeamEnemy)
	if target == nil {
		in.log.Error().Msg("catch attempted with no active enemy")
		return Outcome{}, nil
	}

	chance := CatchChance(target.HPPercent())
	roll := in.rnd.Float64()
	in.log.Debug().
		Str("target", target.ID).
		Float64("chance", chance).
		Float64("roll", roll).
		Msg("catch attempt")

	if roll < chance {
		c := in.store.AddCreature(target.Species.ID)
		in.log.Info().Str("species", target.Species.ID).Str("creature", c.ID).Msg("creature caught")
		if err := in.presenter.ShowMessage(ctx, fmt.Sprintf("You captured %s!", target.Name())); err != nil {
			return Outcome{}, err
		}
		return Outcome{Ended: true, Winner: types.TeamPlayer}, nil
	}

	if err := in.presenter.ShowMessage(ctx, fmt.Sprintf("Oh no! %s escaped!", target.Name())); err != nil {
		return Outcome{}, err
	}
	in.presenter.Cue(Cue{Kind: CueShake, Combatant: target})
	return Outcome{}, wait(ctx, in.pacing.Shake)
}

func (in *Interpreter) giveXP(ctx context.Context, ev Event) error {
	c := ev.Target
	if c == nil {
		in.log.Error().Int("xp", ev.XP).Msg("xp granted to missing combatant")
		return nil
	}

	for i := 0; i < ev.XP; i++ {
		leveled := c.addXP()
		in.presenter.Cue(Cue{Kind: CueRefresh, Combatant: c})
		if err := wait(ctx, in.pacing.XPTick); err != nil {
			return err
		}
		if !leveled {
			continue
		}

		in.log.Info().Str("combatant", c.ID).Int("level", c.Level).Msg("level up")
		if err := in.presenter.ShowMessage(ctx, fmt.Sprintf("%s leveled up!", c.Name())); err != nil {
			return err
		}
		if c.CanMutate() && in.rnd.Float64() < 0.5 {
			name := c.Name()
			if c.Mutate() {
				in.store.MarkMutated(c.ID)
				in.presenter.Cue(Cue{Kind: CueRefresh, Combatant: c})
				if err := in.presenter.ShowMessage(ctx, fmt.Sprintf("%s has mutated!", name)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (in *Interpreter) replace(ctx context.Context, ev Event) error {
	if ev.Replacement == nil {
		in.log.Error().Str("team", string(ev.Team)).Msg("replace without a replacement")
		return nil
	}
	if _, ok := in.session.combatants[ev.Replacement.ID]; !ok {
		in.log.Error().Str("combatant", ev.Replacement.ID).Msg("replacement not in battle")
		return nil
	}

	outgoing := in.session.Active(ev.Team)
	in.session.setActive(ev.Team, "")
	in.presenter.Cue(Cue{Kind: CueRefresh, Combatant: outgoing})
	if err := wait(ctx, in.pacing.Swap); err != nil {
		return err
	}

	in.session.setActive(ev.Team, ev.Replacement.ID)
	in.presenter.Cue(Cue{Kind: CueRefresh, Combatant: ev.Replacement})
	return wait(ctx, in.pacing.Swap)
}

// interpolate fills {CASTER}, {TARGET} and {ACTION} from the bound event.
func interpolate(text string, ev Event) string {
	var pairs []string
	if ev.Caster != nil {
		pairs = append(pairs, "{CASTER}", ev.Caster.Name())
	}
	if ev.Target != nil {
		pairs = append(pairs, "{TARGET}", ev.Target.Name())
	}
	if ev.Action != nil {
		pairs = append(pairs, "{ACTION}", ev.Action.Name)
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
