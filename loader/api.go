package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
	registerSceneHelpers(L)
}

// curried registers a `Kind "id" { ... }` constructor that hands the id
// and table to add.
func curried(L *lua.LState, name string, add func(id string, tbl *lua.LTable)) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(id, L.CheckTable(1))
			return 0
		}))
		return 1
	}))
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.game = tbl
		return 0
	}))

	curried(L, "Action", func(id string, tbl *lua.LTable) {
		coll.actions = append(coll.actions, rawDef{id: id, table: tbl})
	})
	curried(L, "Species", func(id string, tbl *lua.LTable) {
		coll.species = append(coll.species, rawDef{id: id, table: tbl})
	})
	curried(L, "Enemy", func(id string, tbl *lua.LTable) {
		coll.enemies = append(coll.enemies, rawDef{id: id, table: tbl})
	})
	curried(L, "Map", func(id string, tbl *lua.LTable) {
		coll.maps = append(coll.maps, rawDef{id: id, table: tbl})
	})
	curried(L, "NPC", func(id string, tbl *lua.LTable) {
		coll.npcs = append(coll.npcs, rawDef{id: id, table: tbl})
	})

	// Scenario { requires = {...}, events = {...} }: passed through as is.
	L.SetGlobal("Scenario", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckTable(1))
		return 1
	}))
}

// tagged builds a table with a type field plus string fields taken from
// the call's arguments, in order.
func tagged(L *lua.LState, typ string, keys ...string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(typ))
	for i, key := range keys {
		tbl.RawSetString(key, lua.LString(L.CheckString(i+1)))
	}
	return tbl
}

func registerConditionHelpers(L *lua.LState) {
	simple := []struct{ name, typ, key string }{
		{"HasItem", "has_item", "item"},
		{"HasSpecies", "has_species", "species"},
		{"FlagSet", "flag_set", "flag"},
		{"FlagNot", "flag_not", "flag"},
		{"InMap", "in_map", "map"},
	}
	for _, h := range simple {
		h := h
		L.SetGlobal(h.name, L.NewFunction(func(L *lua.LState) int {
			L.Push(tagged(L, h.typ, h.key))
			return 1
		}))
	}

	// FlagIs("flag", value)
	L.SetGlobal("FlagIs", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "flag_is", "flag")
		tbl.RawSetString("value", lua.LBool(L.CheckBool(2)))
		L.Push(tbl)
		return 1
	}))

	// RosterAtLeast(n)
	L.SetGlobal("RosterAtLeast", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "roster_size_at_least")
		tbl.RawSetString("value", L.CheckNumber(1))
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := tagged(L, "not")
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	// Text("{CASTER} uses {ACTION}!")
	L.SetGlobal("Text", L.NewFunction(func(L *lua.LState) int {
		L.Push(tagged(L, "text", "text"))
		return 1
	}))

	// Animation("spin") or Animation("glob", { color = "#dafd2a" })
	L.SetGlobal("Animation", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "animation", "animation")
		if params, ok := L.Get(2).(*lua.LTable); ok {
			params.ForEach(func(k, v lua.LValue) {
				if ks, ok := k.(lua.LString); ok && ks != "type" && ks != "animation" {
					tbl.RawSetString(string(ks), v)
				}
			})
		}
		L.Push(tbl)
		return 1
	}))

	// StateChange { damage = 10, recover = 5, status = {...}, on_caster = true }
	L.SetGlobal("StateChange", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("type", lua.LString("state_change"))
		L.Push(tbl)
		return 1
	}))

	// Damage(10)
	L.SetGlobal("Damage", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "state_change")
		tbl.RawSetString("damage", L.CheckNumber(1))
		L.Push(tbl)
		return 1
	}))

	// Recover(30)
	L.SetGlobal("Recover", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "state_change")
		tbl.RawSetString("recover", L.CheckNumber(1))
		L.Push(tbl)
		return 1
	}))

	// Inflict("dazed", 3) lands a status on the target;
	// SelfStatus("evade", 1) lands it on the caster.
	status := func(onCaster bool) lua.LGFunction {
		return func(L *lua.LState) int {
			st := L.NewTable()
			st.RawSetString("type", lua.LString(L.CheckString(1)))
			st.RawSetString("expires_in", L.CheckNumber(2))
			tbl := tagged(L, "state_change")
			tbl.RawSetString("status", st)
			if onCaster {
				tbl.RawSetString("on_caster", lua.LTrue)
			}
			L.Push(tbl)
			return 1
		}
	}
	L.SetGlobal("Inflict", L.NewFunction(status(false)))
	L.SetGlobal("SelfStatus", L.NewFunction(status(true)))

	// ClearStatus()
	L.SetGlobal("ClearStatus", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "state_change")
		tbl.RawSetString("clear_status", lua.LTrue)
		L.Push(tbl)
		return 1
	}))

	// AttemptCatch()
	L.SetGlobal("AttemptCatch", L.NewFunction(func(L *lua.LState) int {
		L.Push(tagged(L, "attempt_catch"))
		return 1
	}))
}

func registerSceneHelpers(L *lua.LState) {
	// Say("text")
	L.SetGlobal("Say", L.NewFunction(func(L *lua.LState) int {
		L.Push(tagged(L, "text", "text"))
		return 1
	}))

	// Battle("enemy_id")
	L.SetGlobal("Battle", L.NewFunction(func(L *lua.LState) int {
		L.Push(tagged(L, "battle", "enemy"))
		return 1
	}))

	// WildBattle()
	L.SetGlobal("WildBattle", L.NewFunction(func(L *lua.LState) int {
		L.Push(tagged(L, "wild_battle"))
		return 1
	}))

	// SetFlag("flag")
	L.SetGlobal("SetFlag", L.NewFunction(func(L *lua.LState) int {
		L.Push(tagged(L, "set_flag", "flag"))
		return 1
	}))

	// Heal("full") or Heal("partial"); full when omitted.
	L.SetGlobal("Heal", L.NewFunction(func(L *lua.LState) int {
		tbl := tagged(L, "heal")
		tbl.RawSetString("heal", lua.LString(L.OptString(1, "full")))
		L.Push(tbl)
		return 1
	}))

	// ChooseCreature { "ee001", "ee002", "ee003" } or ChooseCreature("ee001", "ee002")
	L.SetGlobal("ChooseCreature", L.NewFunction(func(L *lua.LState) int {
		species := L.NewTable()
		if list, ok := L.Get(1).(*lua.LTable); ok {
			list.ForEach(func(_, v lua.LValue) {
				species.Append(v)
			})
		} else {
			for i := 1; i <= L.GetTop(); i++ {
				species.Append(lua.LString(L.CheckString(i)))
			}
		}
		tbl := tagged(L, "choose_creature")
		tbl.RawSetString("species", species)
		L.Push(tbl)
		return 1
	}))
}
