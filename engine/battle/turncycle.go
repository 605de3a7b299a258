package battle

import (
	"context"
	"fmt"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Phase is where the turn cycle currently stands.
type Phase int

const (
	PhaseAwaitingSubmission Phase = iota
	PhaseExecutingEvents
	PhaseCheckingFaint
	PhaseCheckingWin
	PhaseAwaitingReplacement
	PhasePostEffects
	PhaseWinnerDeclared
)

// String returns the phase name for traces and logs.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSubmission:
		return "awaiting_submission"
	case PhaseExecutingEvents:
		return "executing_events"
	case PhaseCheckingFaint:
		return "checking_faint"
	case PhaseCheckingWin:
		return "checking_win"
	case PhaseAwaitingReplacement:
		return "awaiting_replacement"
	case PhasePostEffects:
		return "post_effects"
	case PhaseWinnerDeclared:
		return "winner_declared"
	default:
		return "unknown"
	}
}

// TurnCycle alternates the two teams until one side is wiped out or a
// catch succeeds.
type TurnCycle struct {
	session *Session
	interp  *Interpreter
	log     zerolog.Logger

	current types.Team
	phase   Phase
	turn    int
}

// Phase returns the current phase.
func (tc *TurnCycle) Phase() Phase {
	return tc.phase
}

// Current returns the team whose turn it is.
func (tc *TurnCycle) Current() types.Team {
	return tc.current
}

// Run announces the battle and loops turns until a winner is declared.
func (tc *TurnCycle) Run(ctx context.Context) (types.Team, error) {
	tc.current = types.TeamPlayer
	intro := fmt.Sprintf("%s wants to fight!", tc.session.enemy.Name)
	if err := tc.say(ctx, intro); err != nil {
		return "", err
	}

	for {
		winner, err := tc.step(ctx)
		if err != nil {
			return "", err
		}
		if winner != "" {
			tc.phase = PhaseWinnerDeclared
			return winner, nil
		}
		tc.current = other(tc.current)
	}
}

// step plays one turn for the current team.
func (tc *TurnCycle) step(ctx context.Context) (types.Team, error) {
	s := tc.session
	tc.turn++

	caster := s.Active(tc.current)
	opponent := s.Active(other(tc.current))
	if caster == nil || opponent == nil {
		// Only reachable when a side starts with nobody able to fight.
		return s.WinningTeam(), nil
	}

	ctx, span := s.tracer.Start(ctx, "battle.turn",
		trace.WithAttributes(
			attribute.Int("turn", tc.turn),
			attribute.String("team", string(tc.current)),
			attribute.String("caster", caster.ID),
		))
	defer span.End()

	tc.phase = PhaseAwaitingSubmission
	sub, err := s.controller(tc.current).ChooseSubmission(ctx, s.submissionRequest(caster, opponent))
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var target *Combatant
	var action *types.ActionDef

	switch {
	case sub == nil:
		tc.log.Info().Str("team", string(tc.current)).Msg("side passes")

	case sub.Replacement != nil:
		span.SetAttributes(attribute.String("replacement", sub.Replacement.ID))
		if err := tc.replace(ctx, tc.current, sub.Replacement); err != nil {
			return "", err
		}
		return "", tc.say(ctx, fmt.Sprintf("Go get 'em, %s!", sub.Replacement.Name()))

	case sub.Action == nil:
		tc.log.Error().Str("team", string(tc.current)).Msg("submission has no action")

	default:
		target, action = sub.Target, sub.Action
		span.SetAttributes(attribute.String("action", action.ID))
		if sub.InstanceID != "" {
			s.consumeItem(sub.InstanceID)
		}

		tc.phase = PhaseExecutingEvents
		for _, e := range caster.ReplacedEvents(action.Success, tc.interp.rnd) {
			out, err := tc.interp.Run(ctx, Event{EffectEvent: e, Caster: caster, Target: target, Action: action})
			if err != nil {
				return "", err
			}
			if out.Ended {
				return out.Winner, nil
			}
		}
	}

	tc.phase = PhaseCheckingFaint
	fainted := target != nil && target.Fainted()
	if fainted {
		if err := tc.faint(ctx, target); err != nil {
			return "", err
		}
	}

	tc.phase = PhaseCheckingWin
	if winner := s.WinningTeam(); winner != "" {
		return winner, tc.declare(ctx, winner)
	}

	if fainted {
		tc.phase = PhaseAwaitingReplacement
		if err := tc.replaceFainted(ctx, target.Team); err != nil {
			return "", err
		}
	}

	tc.phase = PhasePostEffects
	for _, e := range caster.PostEvents() {
		if _, err := tc.interp.Run(ctx, Event{EffectEvent: e, Caster: caster, Target: target, Action: action}); err != nil {
			return "", err
		}
	}
	if expired := caster.DecrementStatus(); expired != nil {
		if _, err := tc.interp.Run(ctx, Event{EffectEvent: *expired, Caster: caster}); err != nil {
			return "", err
		}
	}
	return "", nil
}

// faint announces a fainted target and pays out xp for enemy faints.
func (tc *TurnCycle) faint(ctx context.Context, target *Combatant) error {
	if err := tc.say(ctx, fmt.Sprintf("%s has fainted!", target.Name())); err != nil {
		return err
	}
	if target.Team != types.TeamEnemy {
		return nil
	}
	receiver := tc.session.Active(types.TeamPlayer)
	if receiver == nil {
		tc.log.Error().Msg("no active player combatant to receive xp")
		return nil
	}
	xp := target.GivesXP()
	if err := tc.say(ctx, fmt.Sprintf("Gained %d XP!", xp)); err != nil {
		return err
	}
	_, err := tc.interp.Run(ctx, Event{
		EffectEvent: types.EffectEvent{Kind: types.EventGiveXP},
		Target:      receiver,
		XP:          xp,
	})
	return err
}

// declare announces the winner. A player wipeout sends the party to be healed.
func (tc *TurnCycle) declare(ctx context.Context, winner types.Team) error {
	if err := tc.say(ctx, "Winner!"); err != nil {
		return err
	}
	if winner == types.TeamEnemy && tc.session.opts.World != nil {
		return tc.session.opts.World.TeleportToHealingArea(ctx)
	}
	return nil
}

// replaceFainted asks the defeated team for a new active combatant.
func (tc *TurnCycle) replaceFainted(ctx context.Context, team types.Team) error {
	options := tc.session.Bench(team)
	if len(options) == 0 {
		return nil
	}
	next, err := tc.session.controller(team).ChooseReplacement(ctx, team, options)
	if err != nil {
		return err
	}
	if next == nil || next.Fainted() {
		next = options[0]
	}
	if err := tc.replace(ctx, team, next); err != nil {
		return err
	}
	return tc.say(ctx, fmt.Sprintf("%s appears!", next.Name()))
}

func (tc *TurnCycle) replace(ctx context.Context, team types.Team, next *Combatant) error {
	_, err := tc.interp.Run(ctx, Event{
		EffectEvent: types.EffectEvent{Kind: types.EventReplace},
		Team:        team,
		Replacement: next,
	})
	return err
}

func (tc *TurnCycle) say(ctx context.Context, text string) error {
	_, err := tc.interp.Run(ctx, Event{EffectEvent: types.EffectEvent{Kind: types.EventText, Text: text}})
	return err
}

func other(t types.Team) types.Team {
	if t == types.TeamPlayer {
		return types.TeamEnemy
	}
	return types.TeamPlayer
}
