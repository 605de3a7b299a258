// Package resolve maps names from parsed intents to NPC, exit and
// creature IDs.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

// AmbiguityError indicates multiple things matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates nothing matched a name.
type NotFoundError struct {
	Name string
	What string // "here", "in your party", ...
}

func (e *NotFoundError) Error() string {
	where := e.What
	if where == "" {
		where = "here"
	}
	return fmt.Sprintf("you don't see %q %s", e.Name, where)
}

// NPC resolves a name to an NPC on the player's current map.
func NPC(s *types.State, defs *state.Defs, name string) (string, error) {
	nameLower := strings.ToLower(name)
	var matches []string
	for _, id := range state.NPCsInMap(defs, s.MapID) {
		if matchesName(id, defs.NPCs[id].Name, nameLower) {
			matches = append(matches, id)
		}
	}
	return pick(name, "here", matches)
}

// Exit resolves a direction or destination name to an exit direction
// of the player's current map.
func Exit(s *types.State, defs *state.Defs, name string) (string, error) {
	exits := state.MapExits(defs, s.MapID)
	if _, ok := exits[name]; ok {
		return name, nil
	}

	nameLower := strings.ToLower(name)
	var matches []string
	for dir, target := range exits {
		if strings.ToLower(dir) == nameLower || matchesName(target, defs.Maps[target].Name, nameLower) {
			matches = append(matches, dir)
		}
	}
	sort.Strings(matches)
	return pick(name, "as a way out", matches)
}

// Creature resolves a name to a roster creature. Names match the
// species (or mutated) name, the full id, or an id prefix. Lineup
// creatures win over benched ones of the same name.
func Creature(s *types.State, defs *state.Defs, name string) (string, error) {
	nameLower := strings.ToLower(name)
	if _, ok := s.Player.Roster[name]; ok {
		return name, nil
	}

	var lineup, bench []string
	for id, c := range s.Player.Roster {
		if !creatureMatches(c, defs, nameLower) {
			continue
		}
		if state.InLineup(&s.Player, id) {
			lineup = append(lineup, id)
		} else {
			bench = append(bench, id)
		}
	}
	sort.Strings(lineup)
	sort.Strings(bench)

	if len(lineup) == 1 {
		return lineup[0], nil
	}
	matches := append(lineup, bench...)
	id, err := pick(name, "in your party", matches)
	if ae, ok := err.(*AmbiguityError); ok {
		for i, cid := range ae.Candidates {
			ae.Candidates[i] = Label(s.Player.Roster[cid], defs)
		}
	}
	return id, err
}

// Label names a creature together with a short id, for menus and
// disambiguation.
func Label(c types.Creature, defs *state.Defs) string {
	short := c.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s [%s]", DisplayName(c, defs), short)
}

// DisplayName returns a creature's species name, mutated if it has mutated.
func DisplayName(c types.Creature, defs *state.Defs) string {
	sp, ok := defs.Species[c.SpeciesID]
	if !ok {
		return c.SpeciesID
	}
	if c.Mutated && sp.MutatedName != "" {
		return sp.MutatedName
	}
	return sp.Name
}

func creatureMatches(c types.Creature, defs *state.Defs, nameLower string) bool {
	if len(nameLower) >= 4 && strings.HasPrefix(strings.ToLower(c.ID), nameLower) {
		return true
	}
	sp := defs.Species[c.SpeciesID]
	if matchesName(c.SpeciesID, sp.Name, nameLower) {
		return true
	}
	return c.Mutated && sp.MutatedName != "" && strings.ToLower(sp.MutatedName) == nameLower
}

func pick(name, what string, matches []string) (string, error) {
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Name: name, What: what}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// matchesName checks if a display name or id matches the query
// (case-insensitive). Supports exact match, word-based partial match,
// and id match.
func matchesName(id, display, nameLower string) bool {
	displayLower := strings.ToLower(display)
	if displayLower != "" {
		// Exact match.
		if displayLower == nameLower {
			return true
		}
		// Word-based partial match: "sage" matches "Old Sage".
		for _, word := range strings.Fields(displayLower) {
			if word == nameLower {
				return true
			}
		}
	}
	idLower := strings.ToLower(id)
	if idLower == nameLower {
		return true
	}
	// Underscore normalization: "shadow grove" matches id "shadow_grove".
	return strings.ReplaceAll(nameLower, " ", "_") == idLower
}
