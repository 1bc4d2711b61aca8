// Package loader loads Lua dungeon rule graphs into a compiled RuleSet.
// The Lua VM is discarded after loading; there is no Lua at runtime at runtime.
package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// rawNode holds a Room, Rule or Conduit table before compilation.
type rawNode struct {
	id    string
	table *lua.LTable
	order int
}

// rawTransition holds a Transition table before compilation.
type rawTransition struct {
	table *lua.LTable
	order int
}

// defs is the Go form of a dungeon file set, before references are
// resolved into a RuleSet.
type defs struct {
	Dungeon     dungeonDef
	Rooms       []roomDef
	Rules       []ruleDef
	Conduits    []string
	Transitions []transitionDef
}

type dungeonDef struct {
	Name     string
	First    string
	MaxRooms int
}

type roomDef struct {
	ID    string
	Class string
	Doors int
}

type ruleDef struct {
	ID      string
	Chooser *chooserDef // nil when the rule has no chooser
}

type chooserDef struct {
	Type    string
	Rooms   []string
	Weights []int // weighted only, parallel to Rooms
}

type transitionDef struct {
	Order     int
	From      []string
	FromAny   bool
	To        string
	ToStop    bool
	Priority  int
	Condition *conditionDef // nil means always
}

type conditionDef struct {
	Type     string
	Op       string
	Count    int
	Classes  []string
	Rooms    []string
	Children []conditionDef
	Inner    *conditionDef
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or def if missing.
func getInt(tbl *lua.LTable, key string, def int) int {
	if tbl.RawGetString(key) == lua.LNil {
		return def
	}
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

// hasMarker reports whether v is one of the Any/Stop sentinel tables.
func hasMarker(v lua.LValue, marker string) bool {
	t, ok := v.(*lua.LTable)
	return ok && t.RawGetString(marker) == lua.LTrue
}

// stringList converts the array part of a Lua table to strings.
func stringList(tbl *lua.LTable) ([]string, error) {
	if tbl == nil {
		return nil, nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		s, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, fmt.Errorf("entry %d is %s, want a string", i, tbl.RawGetInt(i).Type())
		}
		out = append(out, string(s))
	}
	return out, nil
}

// compile converts all collected Lua data into defs.
func compile(coll *collector) (*defs, error) {
	d := &defs{}

	if coll.dungeon == nil {
		return nil, fmt.Errorf("no Dungeon{} definition found")
	}
	d.Dungeon = dungeonDef{
		Name:     getString(coll.dungeon, "name"),
		First:    getString(coll.dungeon, "first"),
		MaxRooms: getInt(coll.dungeon, "max_rooms", 0),
	}

	for _, raw := range coll.rooms {
		class := getString(raw.table, "class")
		if class == "" {
			class = raw.id
		}
		d.Rooms = append(d.Rooms, roomDef{
			ID:    raw.id,
			Class: class,
			Doors: getInt(raw.table, "doors", 2),
		})
	}

	for _, raw := range coll.rules {
		rule := ruleDef{ID: raw.id}
		if tbl := getTable(raw.table, "chooser"); tbl != nil {
			chooser, err := compileChooser(tbl)
			if err != nil {
				return nil, fmt.Errorf("compiling rule %s: %w", raw.id, err)
			}
			rule.Chooser = &chooser
		}
		d.Rules = append(d.Rules, rule)
	}

	for _, raw := range coll.conduits {
		d.Conduits = append(d.Conduits, raw.id)
	}

	for i, raw := range coll.transitions {
		t, err := compileTransition(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling transition %d: %w", i+1, err)
		}
		d.Transitions = append(d.Transitions, t)
	}

	return d, nil
}

func compileChooser(tbl *lua.LTable) (chooserDef, error) {
	c := chooserDef{Type: getString(tbl, "type")}
	rooms := getTable(tbl, "rooms")
	if c.Type != "weighted" {
		list, err := stringList(rooms)
		if err != nil {
			return c, fmt.Errorf("%s chooser: %w", c.Type, err)
		}
		c.Rooms = list
		return c, nil
	}

	if rooms == nil {
		return c, nil
	}
	for i := 1; i <= rooms.MaxN(); i++ {
		entry, ok := rooms.RawGetInt(i).(*lua.LTable)
		if !ok {
			return c, fmt.Errorf("weighted chooser: entry %d is not a {room, weight} pair", i)
		}
		name, ok := entry.RawGetInt(1).(lua.LString)
		if !ok {
			return c, fmt.Errorf("weighted chooser: entry %d has no room name", i)
		}
		weight, ok := entry.RawGetInt(2).(lua.LNumber)
		if !ok {
			return c, fmt.Errorf("weighted chooser: entry %d has no weight", i)
		}
		c.Rooms = append(c.Rooms, string(name))
		c.Weights = append(c.Weights, int(weight))
	}
	return c, nil
}

func compileTransition(raw rawTransition) (transitionDef, error) {
	t := transitionDef{
		Order:    raw.order,
		Priority: getInt(raw.table, "priority", 0),
	}

	from := raw.table.RawGetString("from")
	switch v := from.(type) {
	case lua.LString:
		t.From = []string{string(v)}
	case *lua.LTable:
		if hasMarker(v, markerAny) {
			t.FromAny = true
			break
		}
		list, err := stringList(v)
		if err != nil {
			return t, fmt.Errorf("from: %w", err)
		}
		t.From = list
	default:
		return t, fmt.Errorf("from must be a name, a list of rule names or Any")
	}

	to := raw.table.RawGetString("to")
	switch v := to.(type) {
	case lua.LString:
		t.To = string(v)
	default:
		if !hasMarker(v, markerStop) {
			return t, fmt.Errorf("to must be a name or Stop")
		}
		t.ToStop = true
	}

	if tbl := getTable(raw.table, "condition"); tbl != nil {
		cond, err := compileCondition(tbl)
		if err != nil {
			return t, fmt.Errorf("condition: %w", err)
		}
		t.Condition = &cond
	}
	return t, nil
}

func compileCondition(tbl *lua.LTable) (conditionDef, error) {
	c := conditionDef{
		Type:  getString(tbl, "type"),
		Op:    getString(tbl, "op"),
		Count: getInt(tbl, "count", 0),
	}

	var err error
	switch c.Type {
	case "and", "or":
		children := getTable(tbl, "conditions")
		if children == nil {
			break
		}
		for i := 1; i <= children.MaxN(); i++ {
			child, ok := children.RawGetInt(i).(*lua.LTable)
			if !ok {
				return c, fmt.Errorf("%s: entry %d is not a condition", c.Type, i)
			}
			cc, err := compileCondition(child)
			if err != nil {
				return c, err
			}
			c.Children = append(c.Children, cc)
		}
	case "not":
		if inner := getTable(tbl, "inner"); inner != nil {
			ic, err := compileCondition(inner)
			if err != nil {
				return c, err
			}
			c.Inner = &ic
		}
	case "room_count":
		c.Classes, err = stringList(getTable(tbl, "classes"))
	case "room_data_count":
		c.Rooms, err = stringList(getTable(tbl, "rooms"))
	}
	if err != nil {
		return c, fmt.Errorf("%s: %w", c.Type, err)
	}
	return c, nil
}

// sortedLuaFiles returns .lua files in a directory, with dungeon.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var mainFile string
	var others []string
	for _, f := range files {
		if f == "dungeon.lua" {
			mainFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if mainFile != "" {
		return append([]string{mainFile}, others...)
	}
	return others
}
