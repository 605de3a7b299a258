package battle

import (
	"context"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
)

// Submission is what a side commits to for its turn: either an action
// (optionally spending an item) or a replacement.
type Submission struct {
	Action      *types.ActionDef
	Target      *Combatant
	InstanceID  string
	Replacement *Combatant
}

// ItemOption is one line of the item menu.
type ItemOption struct {
	Action     *types.ActionDef
	InstanceID string // instance spent when chosen
	Quantity   int
}

// SubmissionRequest is everything a chooser may pick from.
type SubmissionRequest struct {
	Caster       *Combatant
	Opponent     *Combatant
	Actions      []*types.ActionDef
	Items        []ItemOption
	Replacements []*Combatant
	Wild         bool
}

// Use builds the submission for an action from the request.
func (r SubmissionRequest) Use(a *types.ActionDef) *Submission {
	return &Submission{Action: a, Target: TargetOf(a, r.Caster, r.Opponent)}
}

// UseItem builds the submission for an item from the request.
func (r SubmissionRequest) UseItem(it ItemOption) *Submission {
	sub := r.Use(it.Action)
	sub.InstanceID = it.InstanceID
	return sub
}

// Swap builds a replacement submission.
func (r SubmissionRequest) Swap(c *Combatant) *Submission {
	return &Submission{Replacement: c}
}

// submissionRequest gathers the menus for caster's turn.
func (s *Session) submissionRequest(caster, opponent *Combatant) SubmissionRequest {
	req := SubmissionRequest{
		Caster:       caster,
		Opponent:     opponent,
		Replacements: s.Bench(caster.Team),
		Wild:         s.wild,
	}

	for _, id := range caster.Actions() {
		def, ok := s.catalog.Action(id)
		if !ok {
			s.log.Error().Str("combatant", caster.ID).Str("action", id).Msg("unknown action")
			continue
		}
		if IsCatch(def) && !s.wild {
			continue
		}
		req.Actions = append(req.Actions, def)
	}

	index := map[string]int{}
	for _, it := range s.items {
		if it.Team != caster.Team {
			continue
		}
		if i, ok := index[it.ActionID]; ok {
			req.Items[i].Quantity++
			continue
		}
		def, ok := s.catalog.Action(it.ActionID)
		if !ok {
			s.log.Error().Str("item", it.InstanceID).Str("action", it.ActionID).Msg("unknown item action")
			continue
		}
		if IsCatch(def) && !s.wild {
			continue
		}
		index[it.ActionID] = len(req.Items)
		req.Items = append(req.Items, ItemOption{Action: def, InstanceID: it.InstanceID, Quantity: 1})
	}

	return req
}

// AI picks uniformly among a combatant's usable actions. It never uses
// items or swaps voluntarily.
type AI struct {
	rnd Random
	log zerolog.Logger
}

// NewAI creates the computer-controlled chooser.
func NewAI(rnd Random, log zerolog.Logger) *AI {
	return &AI{rnd: rnd, log: log}
}

func (a *AI) ChooseSubmission(_ context.Context, req SubmissionRequest) (*Submission, error) {
	if len(req.Actions) == 0 {
		a.log.Error().Str("combatant", req.Caster.ID).Msg("enemy has no valid actions")
		return nil, nil
	}
	return req.Use(req.Actions[a.rnd.Intn(len(req.Actions))]), nil
}

// ChooseReplacement sends in the first healthy benched creature.
func (a *AI) ChooseReplacement(_ context.Context, _ types.Team, options []*Combatant) (*Combatant, error) {
	if len(options) == 0 {
		return nil, nil
	}
	return options[0], nil
}
