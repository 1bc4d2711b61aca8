package rules

import (
	"slices"

	"github.com/nathoo/dungeonrules/types"
)

// testContext is a deterministic generation context over a fixed list of
// placed rooms. Random picks return the entry at pick (clamped).
type testContext struct {
	placed []*types.RoomData
	pick   int
}

func (c *testContext) RoomCount() int { return len(c.placed) }

func (c *testContext) CountRoomClasses(classes []string) int {
	n := 0
	for _, r := range c.placed {
		if slices.Contains(classes, r.Class) {
			n++
		}
	}
	return n
}

func (c *testContext) CountRoomData(data []*types.RoomData) int {
	n := 0
	for _, r := range c.placed {
		if slices.Contains(data, r) {
			n++
		}
	}
	return n
}

func (c *testContext) RandomRoom(rooms []*types.RoomData) *types.RoomData {
	if len(rooms) == 0 {
		return nil
	}
	return rooms[min(c.pick, len(rooms)-1)]
}

// WeightedRandomRoom returns the heaviest room, first one on ties.
func (c *testContext) WeightedRandomRoom(rooms []WeightedRoom) *types.RoomData {
	var best *types.RoomData
	bestWeight := 0
	for _, w := range rooms {
		if w.Weight > bestWeight {
			best, bestWeight = w.Room, w.Weight
		}
	}
	return best
}

// countingCondition records how many times it was evaluated.
type countingCondition struct {
	result bool
	calls  int
}

func (c *countingCondition) Check(Context, *types.RoomData) bool {
	c.calls++
	return c.result
}

func (c *countingCondition) Description() string { return "counting" }

var (
	roomHall     = &types.RoomData{Name: "hall", Class: "Corridor", Doors: 2}
	roomCorridor = &types.RoomData{Name: "corridor", Class: "Corridor", Doors: 2}
	roomVault    = &types.RoomData{Name: "vault", Class: "Treasure", Doors: 1}
	roomStairs   = &types.RoomData{Name: "stairs", Class: "Exit", Doors: 1}
)
