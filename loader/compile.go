// Package loader loads Lua game content into Go structs at compile time.
// The Lua VM is discarded after loading, so no Lua runs during play.
package loader

import (
	"fmt"
	"sort"

	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds a constructor's table before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Check if it's an array (sequential integer keys starting at 1).
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		// Otherwise treat as map.
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToStringMap converts a Lua table to a map[string]string.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if vs, ok := v.(lua.LString); ok {
				m[string(ks)] = string(vs)
			}
		}
	})
	return m
}

// tableToStrings converts the array part of a Lua table to strings.
func tableToStrings(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// arrayTables returns the table elements of a Lua array, in order.
func arrayTables(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector) (*state.Defs, error) {
	defs := &state.Defs{
		Species: map[string]types.SpeciesDef{},
		Actions: map[string]types.ActionDef{},
		Enemies: map[string]types.EnemyDef{},
		Maps:    map[string]types.MapDef{},
		NPCs:    map[string]types.NPCDef{},
	}

	// Game.
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	for _, raw := range coll.actions {
		if _, dup := defs.Actions[raw.id]; dup {
			return nil, fmt.Errorf("action %s defined twice", raw.id)
		}
		a, err := compileAction(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling action %s: %w", raw.id, err)
		}
		defs.Actions[a.ID] = a
	}

	for _, raw := range coll.species {
		if _, dup := defs.Species[raw.id]; dup {
			return nil, fmt.Errorf("species %s defined twice", raw.id)
		}
		defs.Species[raw.id] = compileSpecies(raw)
	}

	for _, raw := range coll.enemies {
		if _, dup := defs.Enemies[raw.id]; dup {
			return nil, fmt.Errorf("enemy %s defined twice", raw.id)
		}
		e, err := compileEnemy(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling enemy %s: %w", raw.id, err)
		}
		defs.Enemies[raw.id] = e
	}

	for _, raw := range coll.maps {
		if _, dup := defs.Maps[raw.id]; dup {
			return nil, fmt.Errorf("map %s defined twice", raw.id)
		}
		defs.Maps[raw.id] = compileMap(raw)
	}

	for _, raw := range coll.npcs {
		if _, dup := defs.NPCs[raw.id]; dup {
			return nil, fmt.Errorf("npc %s defined twice", raw.id)
		}
		defs.NPCs[raw.id] = compileNPC(raw)
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	g := types.GameDef{
		Title:          getString(tbl, "title"),
		Author:         getString(tbl, "author"),
		Version:        getString(tbl, "version"),
		Start:          getString(tbl, "start"),
		Intro:          getString(tbl, "intro"),
		StartCreatures: tableToStrings(getTable(tbl, "creatures")),
	}
	if items := getTable(tbl, "items"); items != nil {
		g.StartItems = map[string]int{}
		items.ForEach(func(k, v lua.LValue) {
			ks, ok := k.(lua.LString)
			if !ok {
				return
			}
			if n, ok := v.(lua.LNumber); ok {
				g.StartItems[string(ks)] = int(n)
			}
		})
	}
	return g
}

func compileAction(raw rawDef) (types.ActionDef, error) {
	tbl := raw.table
	a := types.ActionDef{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Target:      types.TargetType(getString(tbl, "target")),
	}
	if a.Target == "" {
		a.Target = types.TargetEnemy
	}
	for i, evTbl := range arrayTables(getTable(tbl, "success")) {
		ev, err := compileEffectEvent(evTbl)
		if err != nil {
			return a, fmt.Errorf("success[%d]: %w", i+1, err)
		}
		a.Success = append(a.Success, ev)
	}
	return a, nil
}

func compileEffectEvent(tbl *lua.LTable) (types.EffectEvent, error) {
	ev := types.EffectEvent{Kind: types.EventKind(getString(tbl, "type"))}
	switch ev.Kind {
	case types.EventText:
		ev.Text = getString(tbl, "text")

	case types.EventAnimation:
		ev.Animation = getString(tbl, "animation")
		tbl.ForEach(func(k, v lua.LValue) {
			ks, ok := k.(lua.LString)
			if !ok || ks == "type" || ks == "animation" {
				return
			}
			if ev.Params == nil {
				ev.Params = map[string]any{}
			}
			ev.Params[string(ks)] = toGoValue(v)
		})

	case types.EventStateChange:
		ev.Damage = getInt(tbl, "damage")
		ev.Recover = getInt(tbl, "recover")
		ev.OnCaster = getBool(tbl, "on_caster", false)
		ev.ClearStatus = getBool(tbl, "clear_status", false)
		if st := getTable(tbl, "status"); st != nil {
			ev.Status = &types.Status{
				Type:      getString(st, "type"),
				ExpiresIn: getInt(st, "expires_in"),
			}
		}

	case types.EventAttemptCatch:

	default:
		return ev, fmt.Errorf("unknown effect event type %q", ev.Kind)
	}
	return ev, nil
}

func compileSpecies(raw rawDef) types.SpeciesDef {
	tbl := raw.table
	return types.SpeciesDef{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Element:     getString(tbl, "element"),
		Src:         getString(tbl, "src"),
		Icon:        getString(tbl, "icon"),
		Actions:     tableToStrings(getTable(tbl, "actions")),
		MutatedName: getString(tbl, "mutated_name"),
		MutatedSrc:  getString(tbl, "mutated_src"),
	}
}

// compileEnemy leaves an omitted hp at 0, which means full health. An
// hp written out must be positive.
func compileEnemy(raw rawDef) (types.EnemyDef, error) {
	tbl := raw.table
	e := types.EnemyDef{
		ID:   raw.id,
		Name: getString(tbl, "name"),
		Src:  getString(tbl, "src"),
	}
	for i, m := range arrayTables(getTable(tbl, "members")) {
		key := getString(m, "key")
		if key == "" {
			key = string(rune('a' + i))
		}
		if hp, ok := m.RawGetString("hp").(lua.LNumber); ok && hp <= 0 {
			return e, fmt.Errorf("member %s: hp must be positive, got %v", key, hp)
		}
		e.Members = append(e.Members, types.EnemyMember{
			Key:       key,
			SpeciesID: getString(m, "species"),
			HP:        getInt(m, "hp"),
			MaxHP:     getInt(m, "max_hp"),
			XP:        getInt(m, "xp"),
			MaxXP:     getInt(m, "max_xp"),
			Level:     getInt(m, "level"),
			Trainer:   getBool(m, "trainer", false),
		})
	}
	return e, nil
}

func compileMap(raw rawDef) types.MapDef {
	tbl := raw.table
	m := types.MapDef{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Background:  getString(tbl, "background"),
		Exits:       tableToStringMap(getTable(tbl, "exits")),
		Wild:        tableToStrings(getTable(tbl, "wild")),
		WildLevel:   getInt(tbl, "wild_level"),
		OnEnter:     compileScenarios(getTable(tbl, "on_enter")),
	}
	if hs := getTable(tbl, "healing_spot"); hs != nil {
		m.Healing = &types.HealingSpot{
			Map:     getString(hs, "map"),
			Message: getString(hs, "message"),
			Heal:    getString(hs, "heal"),
		}
		if m.Healing.Heal == "" {
			m.Healing.Heal = state.HealFull
		}
	}
	return m
}

func compileNPC(raw rawDef) types.NPCDef {
	tbl := raw.table
	return types.NPCDef{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Map:         getString(tbl, "map"),
		Description: getString(tbl, "description"),
		Scenarios:   compileScenarios(getTable(tbl, "scenarios")),
	}
}

func compileScenarios(tbl *lua.LTable) []types.Scenario {
	var out []types.Scenario
	for _, sc := range arrayTables(tbl) {
		out = append(out, types.Scenario{
			Requires: compileConditions(getTable(sc, "requires")),
			Events:   compileSceneEvents(getTable(sc, "events")),
		})
	}
	return out
}

func compileSceneEvents(tbl *lua.LTable) []types.SceneEvent {
	var out []types.SceneEvent
	for _, ev := range arrayTables(tbl) {
		out = append(out, types.SceneEvent{
			Type:    getString(ev, "type"),
			Text:    getString(ev, "text"),
			Enemy:   getString(ev, "enemy"),
			Flag:    getString(ev, "flag"),
			Species: tableToStrings(getTable(ev, "species")),
			Heal:    getString(ev, "heal"),
		})
	}
	return out
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	for _, condTbl := range arrayTables(tbl) {
		conditions = append(conditions, compileCondition(condTbl))
	}
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	condType := getString(tbl, "type")

	if condType == "not" {
		innerTbl := getTable(tbl, "inner")
		if innerTbl != nil {
			inner := compileCondition(innerTbl)
			return types.Condition{
				Type:   "not",
				Negate: true,
				Inner:  &inner,
			}
		}
	}

	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			key := string(ks)
			if key != "type" {
				params[key] = toGoValue(v)
			}
		}
	})

	return types.Condition{
		Type:   condType,
		Params: params,
	}
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
