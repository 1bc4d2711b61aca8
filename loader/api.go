package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// Marker keys for the Any and Stop sentinels.
const (
	markerAny  = "__any"
	markerStop = "__stop"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerChooserHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Dungeon { name = "...", first = "rule", max_rooms = n }
	L.SetGlobal("Dungeon", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.dungeon = tbl
		return 0
	}))

	// Room "id" { class = "...", doors = n }, curried.
	L.SetGlobal("Room", curried(L, func(id string, tbl *lua.LTable) {
		coll.rooms = append(coll.rooms, rawNode{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Rule "id" { chooser = ... }, curried.
	L.SetGlobal("Rule", curried(L, func(id string, tbl *lua.LTable) {
		coll.rules = append(coll.rules, rawNode{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Conduit "id" {}, curried.
	L.SetGlobal("Conduit", curried(L, func(id string, tbl *lua.LTable) {
		coll.conduits = append(coll.conduits, rawNode{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Transition { from = ..., to = ..., priority = n, condition = ... }
	L.SetGlobal("Transition", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.transitions = append(coll.transitions, rawTransition{table: tbl, order: coll.nextSourceOrder()})
		return 0
	}))

	// Any and Stop are sentinel tables compared by marker key.
	anyTbl := L.NewTable()
	anyTbl.RawSetString(markerAny, lua.LTrue)
	L.SetGlobal("Any", anyTbl)

	stopTbl := L.NewTable()
	stopTbl.RawSetString(markerStop, lua.LTrue)
	L.SetGlobal("Stop", stopTbl)
}

// curried builds a Name "id" { ... } constructor.
func curried(L *lua.LState, fn func(id string, tbl *lua.LTable)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			fn(id, L.OptTable(1, L.NewTable()))
			return 0
		}))
		return 1
	})
}

func registerConditionHelpers(L *lua.LState) {
	// Always() / Never()
	L.SetGlobal("Always", L.NewFunction(func(L *lua.LState) int {
		L.Push(typedTable(L, "always"))
		return 1
	}))
	L.SetGlobal("Never", L.NewFunction(func(L *lua.LState) int {
		L.Push(typedTable(L, "never"))
		return 1
	}))

	// And { c1, c2, ... } / Or { c1, c2, ... }
	L.SetGlobal("And", L.NewFunction(func(L *lua.LState) int {
		tbl := typedTable(L, "and")
		tbl.RawSetString("conditions", L.OptTable(1, L.NewTable()))
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("Or", L.NewFunction(func(L *lua.LState) int {
		tbl := typedTable(L, "or")
		tbl.RawSetString("conditions", L.OptTable(1, L.NewTable()))
		L.Push(tbl)
		return 1
	}))

	// Not(condition). Not() negates nothing and is always false.
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		tbl := typedTable(L, "not")
		if inner := L.OptTable(1, nil); inner != nil {
			tbl.RawSetString("inner", inner)
		}
		L.Push(tbl)
		return 1
	}))

	// RoomCount { op = ">=", count = n, classes = {...} }
	L.SetGlobal("RoomCount", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("type", lua.LString("room_count"))
		L.Push(tbl)
		return 1
	}))

	// RoomDataCount { op = "==", count = n, rooms = {...} }
	L.SetGlobal("RoomDataCount", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("type", lua.LString("room_data_count"))
		L.Push(tbl)
		return 1
	}))
}

func registerChooserHelpers(L *lua.LState) {
	// Single "room"
	L.SetGlobal("Single", L.NewFunction(func(L *lua.LState) int {
		room := L.CheckString(1)
		tbl := typedTable(L, "single")
		rooms := L.NewTable()
		rooms.Append(lua.LString(room))
		tbl.RawSetString("rooms", rooms)
		L.Push(tbl)
		return 1
	}))

	// Random { "a", "b", ... }
	L.SetGlobal("Random", L.NewFunction(func(L *lua.LState) int {
		tbl := typedTable(L, "random")
		tbl.RawSetString("rooms", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))

	// Weighted { {"a", 3}, {"b", 1} }
	L.SetGlobal("Weighted", L.NewFunction(func(L *lua.LState) int {
		tbl := typedTable(L, "weighted")
		tbl.RawSetString("rooms", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))
}

func typedTable(L *lua.LState, typ string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(typ))
	return tbl
}
