// Package types defines the shared data structures for the DungeonRules engine.
// This package contains only type definitions: no logic, no methods.
package types

// RoomData is a placeable room template from the dungeon's catalog.
// The rules engine treats it as an opaque token compared by identity,
// so it is always handled through a pointer.
type RoomData struct {
	Name  string
	Class string
	Doors int // number of doors a generator may connect through
}

// DoorDef describes the door of an already placed room that the
// generator wants to extend the dungeon from.
type DoorDef struct {
	Room  int // index of the placed room owning the door
	Index int // door index within that room
}

// PlacedRoom is one room instance added to the dungeon.
type PlacedRoom struct {
	Index  int
	Data   *RoomData
	Parent int    // index of the room it is attached to, -1 for the first room
	Door   int    // door index used on the parent, -1 for the first room
	Entry  int    // door index used on this room, -1 for the first room
	Rule   string // rule that selected this room
}

// Command is the parsed representation of a session command.
type Command struct {
	Verb string
	Args []string
}

// Result is the output of a single session step.
type Result struct {
	Placed []PlacedRoom
	Trace  []string
	Output []string
}
