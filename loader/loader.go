package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/rules"
	"github.com/nathoo/dungeonrules/types"
)

// Dungeon is a loaded dungeon: its room catalog and compiled rule set.
type Dungeon struct {
	Name     string
	MaxRooms int
	Rooms    map[string]*types.RoomData
	Rules    *rules.RuleSet
	Warnings []string
}

// collector accumulates Lua definitions during file execution.
type collector struct {
	dungeon     *lua.LTable
	rooms       []rawNode
	rules       []rawNode
	conduits    []rawNode
	transitions []rawTransition
	order       int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Load reads all .lua files from dir, compiles them into a rule set,
// validates references, and returns the immutable Dungeon. The Lua VM is
// discarded after loading.
func Load(dir string) (*Dungeon, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dungeon directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// Sort: dungeon.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	L := newSandbox()
	defer L.Close()

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		path := filepath.Join(dir, f)
		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	return finish(coll)
}

// LoadString compiles a dungeon from a single Lua chunk.
func LoadString(name, src string) (*Dungeon, error) {
	L := newSandbox()
	defer L.Close()

	coll := &collector{}
	registerAPI(L, coll)

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}

	return finish(coll)
}

func finish(coll *collector) (*Dungeon, error) {
	d, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling dungeon data: %w", err)
	}

	ve := validate(d)
	if len(ve.Errors) > 0 {
		return nil, ve
	}

	dungeon, err := build(d)
	if err != nil {
		return nil, fmt.Errorf("building rule set: %w", err)
	}
	dungeon.Warnings = append(ve.Warnings, dungeon.Warnings...)

	for _, w := range dungeon.Warnings {
		logger.Warning("dungeon definition", "dungeon", dungeon.Name, "warning", w)
	}
	return dungeon, nil
}

// newSandbox creates a Lua VM with only the safe standard libraries.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	return L
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Random picks belong to the generator's seeded RNG.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
