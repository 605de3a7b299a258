package battle

import (
	"fmt"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
)

// Level-up resets a creature's xp bar to this size.
const levelUpMaxXP = 50

// Combatant is one creature's runtime state inside a battle.
type Combatant struct {
	ID               string
	Team             types.Team
	PlayerControlled bool
	Species          types.SpeciesDef

	HP    int
	MaxHP int
	XP    int
	MaxXP int
	Level int

	Status  *types.Status
	Mutated bool

	session *Session
	log     zerolog.Logger
}

// Snapshot is a read-only copy of a combatant for display.
type Snapshot struct {
	ID        string
	Name      string
	Team      types.Team
	HP        int
	MaxHP     int
	XP        int
	MaxXP     int
	Level     int
	Status    string
	Active    bool
	HPPercent float64
	XPPercent float64
}

// Name returns the display name, which changes once mutated.
func (c *Combatant) Name() string {
	if c.Mutated && c.Species.MutatedName != "" {
		return c.Species.MutatedName
	}
	return c.Species.Name
}

// Src returns the sprite reference for the current form.
func (c *Combatant) Src() string {
	if c.Mutated && c.Species.MutatedSrc != "" {
		return c.Species.MutatedSrc
	}
	return c.Species.Src
}

// Actions returns the action ids this combatant can use.
func (c *Combatant) Actions() []string {
	return c.Species.Actions
}

// HPPercent is never negative, even when hp has dropped below zero.
func (c *Combatant) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	p := float64(c.HP) / float64(c.MaxHP) * 100
	if p < 0 {
		return 0
	}
	return p
}

func (c *Combatant) XPPercent() float64 {
	if c.MaxXP <= 0 {
		return 0
	}
	return float64(c.XP) / float64(c.MaxXP) * 100
}

// IsActive reports whether this combatant is its team's active fighter.
func (c *Combatant) IsActive() bool {
	if c.session == nil {
		return false
	}
	return c.session.active[c.Team] == c.ID
}

// GivesXP is the xp awarded for fainting this combatant.
func (c *Combatant) GivesXP() int {
	return c.Level * 20
}

// Fainted reports whether hp has reached zero or below.
func (c *Combatant) Fainted() bool {
	return c.HP <= 0
}

// CanMutate requires an alternate form and no previous mutation.
func (c *Combatant) CanMutate() bool {
	return !c.Mutated && c.Species.MutatedSrc != ""
}

// ApplyDamage subtracts hp. The result may go negative.
func (c *Combatant) ApplyDamage(amount int) {
	c.HP -= amount
}

// ApplyRecover adds hp, clamped to MaxHP.
func (c *Combatant) ApplyRecover(amount int) {
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
}

// SetStatus stores a private copy of s. A nil s clears the status.
func (c *Combatant) SetStatus(s *types.Status) {
	if s == nil {
		c.Status = nil
		return
	}
	cp := *s
	c.Status = &cp
}

// DecrementStatus counts down the current status by one owner turn.
// It returns a "wore off" message when the status expires.
func (c *Combatant) DecrementStatus() *types.EffectEvent {
	if c.Status == nil || c.Status.ExpiresIn <= 0 {
		return nil
	}
	c.Status.ExpiresIn--
	if c.Status.ExpiresIn > 0 {
		return nil
	}
	expired := c.Status.Type
	c.Status = nil
	return &types.EffectEvent{
		Kind: types.EventText,
		Text: fmt.Sprintf("%s's %s wore off!", c.Name(), expired),
	}
}

// Mutate switches to the alternate form. It is a no-op when ineligible.
func (c *Combatant) Mutate() bool {
	if !c.CanMutate() {
		c.log.Warn().
			Bool("mutated", c.Mutated).
			Str("species", c.Species.ID).
			Msg("mutation requested for ineligible combatant")
		return false
	}
	c.Mutated = true
	return true
}

// ReplacedEvents gives a dazed combatant a one in three chance of losing
// its whole action to a single message.
func (c *Combatant) ReplacedEvents(events []types.EffectEvent, rnd Random) []types.EffectEvent {
	if c.Status != nil && c.Status.Type == types.StatusDazed && dazedRoll(rnd) {
		return []types.EffectEvent{{
			Kind: types.EventText,
			Text: fmt.Sprintf("%s is dazed!", c.Name()),
		}}
	}
	return events
}

// PostEvents returns the heal-over-time tick for a recovering combatant.
func (c *Combatant) PostEvents() []types.EffectEvent {
	if c.Status == nil || c.Status.Type != types.StatusRecover {
		return nil
	}
	return []types.EffectEvent{
		{Kind: types.EventText, Text: fmt.Sprintf("%s recovered some health!", c.Name())},
		{Kind: types.EventStateChange, Recover: 10, OnCaster: true},
	}
}

// addXP grants a single point and reports whether it caused a level-up.
func (c *Combatant) addXP() bool {
	c.XP++
	if c.XP < c.MaxXP {
		return false
	}
	c.XP = 0
	c.MaxXP = levelUpMaxXP
	c.Level++
	return true
}

// Snapshot copies the display state.
func (c *Combatant) Snapshot() Snapshot {
	s := Snapshot{
		ID:        c.ID,
		Name:      c.Name(),
		Team:      c.Team,
		HP:        c.HP,
		MaxHP:     c.MaxHP,
		XP:        c.XP,
		MaxXP:     c.MaxXP,
		Level:     c.Level,
		Active:    c.IsActive(),
		HPPercent: c.HPPercent(),
		XPPercent: c.XPPercent(),
	}
	if c.Status != nil {
		s.Status = c.Status.Type
	}
	return s
}

// dazedRoll is a uniform pick over [true, false, false].
func dazedRoll(rnd Random) bool {
	return []bool{true, false, false}[rnd.Intn(3)]
}
