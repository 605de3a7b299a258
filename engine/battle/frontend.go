package battle

import (
	"context"
	"time"

	"github.com/nathoo/evolisk/types"
)

// Random is the battle's only source of chance.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// CueKind names a fire-and-forget visual cue.
type CueKind int

const (
	CueRefresh CueKind = iota // hud values changed
	CueHit                    // target took damage
	CueShake                  // a catch attempt failed
)

// Cue is a visual hint that needs no acknowledgement.
type Cue struct {
	Kind      CueKind
	Combatant *Combatant
}

// Animation is a request to play a named presentation routine.
type Animation struct {
	ID     string
	Caster *Combatant
	Target *Combatant
	Team   types.Team
	Params map[string]any
}

// Animations are the presentation routines front ends know how to play.
var Animations = map[string]bool{
	"spin":           true,
	"glob":           true,
	"phantomCharge":  true,
	"voidHowl":       true,
	"starShatter":    true,
	"paralyzingSpit": true,
	"paralyzingDust": true,
	"electricZap":    true,
	"vineWhip":       true,
	"shadowVanish":   true,
	"windBlast":      true,
}

// Presenter shows the battle to the player. ShowMessage and Animate
// return only once the presentation has finished.
type Presenter interface {
	Begin(ctx context.Context, s *Session) error
	ShowMessage(ctx context.Context, text string) error
	Animate(ctx context.Context, a Animation) error
	Cue(c Cue)
}

// Chooser supplies decisions for one side. A nil submission means the
// side passes its turn.
type Chooser interface {
	ChooseSubmission(ctx context.Context, req SubmissionRequest) (*Submission, error)
	ChooseReplacement(ctx context.Context, team types.Team, options []*Combatant) (*Combatant, error)
}

// World is the overworld side of a lost battle.
type World interface {
	TeleportToHealingArea(ctx context.Context) error
}

// Store is the persistent player state a battle reads and writes back.
type Store interface {
	Lineup() []string
	Creature(id string) (types.Creature, bool)
	Items() []types.Item
	WriteBack(id string, hp, xp, maxXP, level int)
	MarkMutated(id string)
	PruneItems(used []string)
	AddCreature(speciesID string) types.Creature
}

// Pacing holds the settle delays between battle steps.
// The zero value never waits.
type Pacing struct {
	Settle time.Duration
	Swap   time.Duration
	Shake  time.Duration
	XPTick time.Duration
}

// DefaultPacing is the pacing interactive front ends use.
func DefaultPacing() Pacing {
	return Pacing{
		Settle: 600 * time.Millisecond,
		Swap:   400 * time.Millisecond,
		Shake:  300 * time.Millisecond,
		XPTick: 16 * time.Millisecond,
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
