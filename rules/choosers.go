package rules

import (
	"fmt"

	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/types"
)

// AnyDoor lets the generator pick the door of the new room itself.
const AnyDoor = -1

// RoomChooser selects the room data a rule wants placed next.
type RoomChooser interface {
	// ChooseFirst selects the very first room of the dungeon.
	ChooseFirst(ctx Context) *types.RoomData
	// ChooseNext selects a room to attach to prev through door. It also
	// returns the door index of the new room to connect, or AnyDoor.
	ChooseNext(ctx Context, prev *types.RoomData, door types.DoorDef) (*types.RoomData, int)
	Description() string
}

// SingleRoom always returns the same room.
type SingleRoom struct {
	Room *types.RoomData
}

func (c *SingleRoom) ChooseFirst(Context) *types.RoomData { return c.Room }

func (c *SingleRoom) ChooseNext(Context, *types.RoomData, types.DoorDef) (*types.RoomData, int) {
	return c.Room, AnyDoor
}

func (c *SingleRoom) Description() string {
	return fmt.Sprintf("Return '%s'", roomName(c.Room))
}

// RandomRoom picks uniformly from a fixed list.
type RandomRoom struct {
	Rooms []*types.RoomData
}

func (c *RandomRoom) ChooseFirst(ctx Context) *types.RoomData {
	return ctx.RandomRoom(c.Rooms)
}

func (c *RandomRoom) ChooseNext(ctx Context, _ *types.RoomData, _ types.DoorDef) (*types.RoomData, int) {
	return ctx.RandomRoom(c.Rooms), AnyDoor
}

func (c *RandomRoom) Description() string {
	return "Return a random (uniform) RoomData from a static array."
}

// WeightedRandomRoom picks from a fixed list proportionally to weights.
// A room listed twice keeps its first position and its last weight.
type WeightedRandomRoom struct {
	Rooms []WeightedRoom
}

func (c *WeightedRandomRoom) ChooseFirst(ctx Context) *types.RoomData {
	return ctx.WeightedRandomRoom(c.weights())
}

func (c *WeightedRandomRoom) ChooseNext(ctx Context, _ *types.RoomData, _ types.DoorDef) (*types.RoomData, int) {
	return ctx.WeightedRandomRoom(c.weights()), AnyDoor
}

func (c *WeightedRandomRoom) Description() string {
	return "Return a random (weighted) RoomData from a static array."
}

func (c *WeightedRandomRoom) weights() []WeightedRoom {
	out := make([]WeightedRoom, 0, len(c.Rooms))
	index := make(map[*types.RoomData]int, len(c.Rooms))
	for _, w := range c.Rooms {
		if i, ok := index[w.Room]; ok {
			out[i].Weight = w.Weight
			continue
		}
		index[w.Room] = len(out)
		out = append(out, w)
	}
	return out
}

// CustomChooser is the extension point for choosers written in Go.
// A missing func reports an error and selects nothing.
type CustomChooser struct {
	Name  string
	Text  string
	First func(ctx Context) *types.RoomData
	Next  func(ctx Context, prev *types.RoomData, door types.DoorDef) (*types.RoomData, int)
}

func (c *CustomChooser) ChooseFirst(ctx Context) *types.RoomData {
	if c.First == nil {
		logger.Error("choose first room is not implemented", "chooser", c.Name)
		return nil
	}
	return c.First(ctx)
}

func (c *CustomChooser) ChooseNext(ctx Context, prev *types.RoomData, door types.DoorDef) (*types.RoomData, int) {
	if c.Next == nil {
		logger.Error("choose next room is not implemented", "chooser", c.Name)
		return nil, AnyDoor
	}
	return c.Next(ctx, prev, door)
}

func (c *CustomChooser) Description() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("No description provided for '%s'.", c.Name)
}
