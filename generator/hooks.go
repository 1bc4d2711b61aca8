package generator

import "github.com/nathoo/dungeonrules/types"

// EventReceiver is notified of generation lifecycle events.
type EventReceiver interface {
	OnPreGeneration(g *Generator)
	OnGenerationInit(g *Generator)
	OnRoomAdded(g *Generator, room types.PlacedRoom)
	OnFailedToAddRoom(g *Generator, door types.DoorDef)
	OnPostGeneration(g *Generator)
	OnGenerationFailed(g *Generator)
}

// Validator decides whether a finished attempt is kept.
type Validator interface {
	IsDungeonValid(g *Generator) bool
}

// Initializer runs over the placed rooms of a finished attempt, before the
// validators.
type Initializer interface {
	InitializeDungeon(g *Generator)
}

// Hooks is an EventReceiver built from optional funcs.
type Hooks struct {
	PreGeneration    func(g *Generator)
	GenerationInit   func(g *Generator)
	RoomAdded        func(g *Generator, room types.PlacedRoom)
	FailedToAddRoom  func(g *Generator, door types.DoorDef)
	PostGeneration   func(g *Generator)
	GenerationFailed func(g *Generator)
}

// OnPreGeneration calls PreGeneration when it is set.
func (h *Hooks) OnPreGeneration(g *Generator) {
	if h.PreGeneration != nil {
		h.PreGeneration(g)
	}
}

// OnGenerationInit calls GenerationInit when it is set.
func (h *Hooks) OnGenerationInit(g *Generator) {
	if h.GenerationInit != nil {
		h.GenerationInit(g)
	}
}

// OnRoomAdded calls RoomAdded when it is set.
func (h *Hooks) OnRoomAdded(g *Generator, room types.PlacedRoom) {
	if h.RoomAdded != nil {
		h.RoomAdded(g, room)
	}
}

// OnFailedToAddRoom calls FailedToAddRoom when it is set.
func (h *Hooks) OnFailedToAddRoom(g *Generator, door types.DoorDef) {
	if h.FailedToAddRoom != nil {
		h.FailedToAddRoom(g, door)
	}
}

// OnPostGeneration calls PostGeneration when it is set.
func (h *Hooks) OnPostGeneration(g *Generator) {
	if h.PostGeneration != nil {
		h.PostGeneration(g)
	}
}

// OnGenerationFailed calls GenerationFailed when it is set.
func (h *Hooks) OnGenerationFailed(g *Generator) {
	if h.GenerationFailed != nil {
		h.GenerationFailed(g)
	}
}

// ValidatorFunc adapts a func to a Validator.
type ValidatorFunc func(g *Generator) bool

func (f ValidatorFunc) IsDungeonValid(g *Generator) bool { return f(g) }

// InitializerFunc adapts a func to an Initializer.
type InitializerFunc func(g *Generator)

func (f InitializerFunc) InitializeDungeon(g *Generator) { f(g) }

// MinRoomsOfClass is a Validator requiring at least Count placed rooms of
// Class.
type MinRoomsOfClass struct {
	Class string
	Count int
}

func (v MinRoomsOfClass) IsDungeonValid(g *Generator) bool {
	return g.CountRoomClasses([]string{v.Class}) >= v.Count
}
