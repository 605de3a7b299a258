// Package types defines the shared data structures for the Evolisk engine.
// This package contains only type definitions, no logic.
package types

// Intent is the parsed representation of an overworld command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// Team identifies a side of a battle.
type Team string

const (
	TeamPlayer Team = "player"
	TeamEnemy  Team = "enemy"
)

// Status is a timed condition attached to a creature.
type Status struct {
	Type      string `json:"type"`
	ExpiresIn int    `json:"expires_in"`
}

// Well-known status types.
const (
	StatusDazed   = "dazed"
	StatusEvade   = "evade"
	StatusRecover = "recover"
)

// EventKind tags an EffectEvent variant.
type EventKind string

const (
	EventText         EventKind = "text"
	EventAnimation    EventKind = "animation"
	EventStateChange  EventKind = "state_change"
	EventAttemptCatch EventKind = "attempt_catch"

	// Produced by the turn cycle, never by content.
	EventGiveXP  EventKind = "give_xp"
	EventReplace EventKind = "replace"
)

// EffectEvent is one atomic, ordered step of an action.
type EffectEvent struct {
	Kind      EventKind
	Text      string         // text: may contain {CASTER}, {TARGET}, {ACTION}
	Animation string         // animation: presentation routine id
	Params    map[string]any // animation: extra params (color, ...)

	// state_change
	Damage      int
	Recover     int
	Status      *Status
	ClearStatus bool // explicit null status
	OnCaster    bool
}

// TargetType says who an action lands on.
type TargetType string

const (
	TargetEnemy    TargetType = "enemy"
	TargetFriendly TargetType = "friendly"
)

// ActionDef is a named move or item in the action catalog.
type ActionDef struct {
	ID          string
	Name        string
	Description string
	Target      TargetType
	Success     []EffectEvent
}

// SpeciesDef is the static definition of a creature species.
type SpeciesDef struct {
	ID          string
	Name        string
	Description string
	Element     string
	Src         string
	Icon        string
	Actions     []string
	MutatedName string // optional
	MutatedSrc  string // optional; a species can mutate only if set
}

// EnemyMember is one creature in an enemy roster.
type EnemyMember struct {
	Key       string
	SpeciesID string
	HP        int // 0 starts at MaxHP
	MaxHP     int
	XP        int
	MaxXP     int
	Level     int
	Trainer   bool // left out of wild encounters
}

// EnemyDef is a trainer (or wild group) the player can battle.
type EnemyDef struct {
	ID      string
	Name    string
	Src     string
	Members []EnemyMember
}

// HealingSpot is where the player is sent after losing every creature.
type HealingSpot struct {
	Map     string
	Message string
	Heal    string // "full" or "partial"
}

// Condition is a predicate that gates a talk scenario.
type Condition struct {
	Type   string         // "flag_set", "flag_not", "has_species", "has_item", "in_map", "not"
	Params map[string]any // condition-specific parameters
	Negate bool           // true if wrapped in Not()
	Inner  *Condition     // for Not(): the negated inner condition
}

// SceneEvent is one step of an overworld cutscene.
type SceneEvent struct {
	Type    string // "text", "battle", "wild_battle", "set_flag", "choose_creature", "heal"
	Text    string
	Enemy   string
	Flag    string
	Species []string
	Heal    string
}

// Scenario is a requirement-gated cutscene.
type Scenario struct {
	Requires []Condition
	Events   []SceneEvent
}

// NPCDef is a character the player can talk to.
type NPCDef struct {
	ID          string
	Name        string
	Map         string
	Description string
	Scenarios   []Scenario
}

// MapDef is an overworld location.
type MapDef struct {
	ID          string
	Name        string
	Description string
	Background  string
	Exits       map[string]string // direction → map id
	Wild        []string          // species found by exploring
	WildLevel   int
	Healing     *HealingSpot
	OnEnter     []Scenario
}

// GameDef holds game metadata from Lua.
type GameDef struct {
	Title          string
	Author         string
	Version        string
	Start          string // starting map ID
	Intro          string
	StartCreatures []string       // species ids
	StartItems     map[string]int // action id → count
}

// Creature is a persistent roster entry.
type Creature struct {
	ID        string  `json:"id"`
	SpeciesID string  `json:"species_id"`
	HP        int     `json:"hp"`
	MaxHP     int     `json:"max_hp"`
	XP        int     `json:"xp"`
	MaxXP     int     `json:"max_xp"`
	Level     int     `json:"level"`
	Status    *Status `json:"status,omitempty"`
	Mutated   bool    `json:"mutated"`
}

// Item is one consumable in the player's bag.
type Item struct {
	ActionID   string `json:"action_id"`
	InstanceID string `json:"instance_id"`
}

// PlayerState is everything the player owns.
type PlayerState struct {
	Roster     map[string]Creature `json:"roster"`
	Lineup     []string            `json:"lineup"`
	Items      []Item              `json:"items"`
	StoryFlags map[string]bool     `json:"story_flags"`
}

// State is the complete mutable game state.
type State struct {
	MapID       string
	Player      PlayerState
	TurnCount   int
	RNGSeed     int64
	RNGPosition int64
	CommandLog  []string
}

// Result is the output of a single overworld step.
type Result struct {
	Output []string
	Trace  []string
}
