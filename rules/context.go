// Package rules implements the dungeon rule state machine: rules select the
// next room to place, transitions decide which rule becomes active next.
//
// A RuleSet is built once through a Builder and is read-only afterwards, so
// it can be shared by any number of generation runs. The active rule is never
// stored here; callers pass it into every query.
package rules

import "github.com/nathoo/dungeonrules/types"

// Context is what the rules engine needs from the dungeon generator driving
// it. It is borrowed for the duration of a single query.
type Context interface {
	// RoomCount returns the number of placed rooms.
	RoomCount() int
	// CountRoomClasses returns the number of placed rooms whose class is
	// one of classes.
	CountRoomClasses(classes []string) int
	// CountRoomData returns the number of placed rooms built from one of
	// the given room data.
	CountRoomData(data []*types.RoomData) int
	// RandomRoom picks one room uniformly. It returns nil for an empty list.
	RandomRoom(rooms []*types.RoomData) *types.RoomData
	// WeightedRandomRoom picks one room proportionally to its weight.
	// It returns nil when no entry has a positive weight.
	WeightedRandomRoom(rooms []WeightedRoom) *types.RoomData
}

// WeightedRoom pairs a room with its selection weight.
type WeightedRoom struct {
	Room   *types.RoomData
	Weight int
}
