package rules

import (
	"testing"

	"github.com/nathoo/dungeonrules/types"
)

func TestSingleRoom(t *testing.T) {
	c := &SingleRoom{Room: roomHall}
	ctx := &testContext{}
	if got := c.ChooseFirst(ctx); got != roomHall {
		t.Errorf("ChooseFirst() = %v, want hall", got)
	}
	room, door := c.ChooseNext(ctx, roomVault, types.DoorDef{Room: 0, Index: 1})
	if room != roomHall || door != AnyDoor {
		t.Errorf("ChooseNext() = (%v, %d), want (hall, %d)", room, door, AnyDoor)
	}
	if got, want := c.Description(), "Return 'hall'"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
	if got, want := (&SingleRoom{}).Description(), "Return 'None'"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
}

func TestRandomRoom(t *testing.T) {
	c := &RandomRoom{Rooms: []*types.RoomData{roomHall, roomCorridor, roomVault}}
	if got := c.ChooseFirst(&testContext{pick: 2}); got != roomVault {
		t.Errorf("ChooseFirst() = %v, want vault", got)
	}
	room, door := c.ChooseNext(&testContext{pick: 1}, roomHall, types.DoorDef{})
	if room != roomCorridor || door != AnyDoor {
		t.Errorf("ChooseNext() = (%v, %d), want (corridor, %d)", room, door, AnyDoor)
	}
	if got := (&RandomRoom{}).ChooseFirst(&testContext{}); got != nil {
		t.Errorf("empty ChooseFirst() = %v, want nil", got)
	}
}

func TestWeightedRandomRoom(t *testing.T) {
	c := &WeightedRandomRoom{Rooms: []WeightedRoom{
		{Room: roomHall, Weight: 5},
		{Room: roomVault, Weight: 2},
		{Room: roomHall, Weight: 1},
	}}

	weights := c.weights()
	if len(weights) != 2 {
		t.Fatalf("weights() has %d entries, want 2", len(weights))
	}
	if weights[0].Room != roomHall || weights[0].Weight != 1 {
		t.Errorf("weights()[0] = %v/%d, want hall/1", weights[0].Room, weights[0].Weight)
	}

	// The duplicate lowered hall below vault.
	if got := c.ChooseFirst(&testContext{}); got != roomVault {
		t.Errorf("ChooseFirst() = %v, want vault", got)
	}
}

func TestCustomChooser(t *testing.T) {
	ctx := &testContext{}
	c := &CustomChooser{
		Name:  "follow",
		First: func(Context) *types.RoomData { return roomStairs },
		Next: func(_ Context, prev *types.RoomData, door types.DoorDef) (*types.RoomData, int) {
			if prev == roomHall {
				return roomVault, 0
			}
			return roomCorridor, door.Index
		},
	}
	if got := c.ChooseFirst(ctx); got != roomStairs {
		t.Errorf("ChooseFirst() = %v, want stairs", got)
	}
	if room, door := c.ChooseNext(ctx, roomHall, types.DoorDef{Index: 3}); room != roomVault || door != 0 {
		t.Errorf("ChooseNext(hall) = (%v, %d), want (vault, 0)", room, door)
	}
	if room, door := c.ChooseNext(ctx, roomVault, types.DoorDef{Index: 3}); room != roomCorridor || door != 3 {
		t.Errorf("ChooseNext(vault) = (%v, %d), want (corridor, 3)", room, door)
	}

	unimplemented := &CustomChooser{Name: "todo"}
	if got := unimplemented.ChooseFirst(ctx); got != nil {
		t.Errorf("unimplemented ChooseFirst() = %v, want nil", got)
	}
	if room, door := unimplemented.ChooseNext(ctx, roomHall, types.DoorDef{}); room != nil || door != AnyDoor {
		t.Errorf("unimplemented ChooseNext() = (%v, %d), want (nil, %d)", room, door, AnyDoor)
	}
	if got, want := unimplemented.Description(), "No description provided for 'todo'."; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
}
