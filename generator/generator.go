// Package generator places rooms one by one under the control of a rule
// set. It is the generation context the rules query: it counts the placed
// rooms and owns the seeded RNG behind every random pick.
package generator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/rules"
	"github.com/nathoo/dungeonrules/types"
)

var (
	ErrMissingRules     = errors.New("missing dungeon rules")
	ErrGenerationFailed = errors.New("failed to add room")
	ErrInvalidDungeon   = errors.New("invalid dungeon")
	ErrFinished         = errors.New("generation finished")
)

const (
	DefaultMaxRooms = 100
	tracerName      = "github.com/nathoo/dungeonrules/generator"
)

// Generator builds a dungeon from a shared RuleSet. The rule set is only
// read; the current rule and the placed rooms belong to the generator.
// A Generator is not safe for concurrent use; run one per goroutine.
type Generator struct {
	Rules        *rules.RuleSet
	MaxRooms     int // 0 means DefaultMaxRooms
	Attempts     int // 0 means a single attempt
	Receivers    []EventReceiver
	Initializers []Initializer
	Validators   []Validator
	Tracer       trace.Tracer // nil uses the global otel provider

	rng     *RNG
	runID   uuid.UUID
	rooms   []types.PlacedRoom
	used    map[types.DoorDef]bool
	current *rules.Rule
	failure error
	span    trace.Span
}

// Run is a finished, valid generation.
type Run struct {
	ID          uuid.UUID
	Seed        int64
	Attempt     int
	Rooms       []types.PlacedRoom
	RNGPosition int64
}

// New creates a generator for rs with default limits.
func New(rs *rules.RuleSet) *Generator {
	return &Generator{Rules: rs}
}

// Begin starts a new attempt from seed: the RNG is reseeded, the rooms
// cleared and the current rule set to the first rule.
func (g *Generator) Begin(ctx context.Context, seed int64) error {
	if g.Rules == nil {
		logger.Error("missing dungeon rules in the dungeon generator")
		return ErrMissingRules
	}
	if g.span != nil {
		g.span.End()
	}

	g.rng = NewRNG(seed)
	g.runID = uuid.New()
	g.rooms = nil
	g.used = make(map[types.DoorDef]bool)
	g.failure = nil
	_, g.span = g.tracer().Start(ctx, "dungeonrules.generate", trace.WithAttributes(
		attribute.String("dungeon", g.Rules.Name()),
		attribute.Int64("seed", seed),
		attribute.String("run.id", g.runID.String()),
	))

	for _, r := range g.Receivers {
		r.OnPreGeneration(g)
	}
	g.current = g.Rules.FirstRule()
	for _, r := range g.Receivers {
		r.OnGenerationInit(g)
	}
	logger.Debug("generation started", "dungeon", g.Rules.Name(), "run", g.runID, "seed", seed)
	return nil
}

// ContinueToAddRoom reports whether Step may place another room: a rule
// is active, no room failed and the room limit is not reached.
func (g *Generator) ContinueToAddRoom() bool {
	if g.Rules == nil {
		logger.Error("missing dungeon rules in the dungeon generator")
		return false
	}
	return g.current != nil && g.failure == nil && len(g.rooms) < g.maxRooms()
}

// Step places one room and moves the state machine on. It returns
// ErrFinished when generation is over, or an error wrapping
// ErrGenerationFailed when the room could not be added.
func (g *Generator) Step() (types.PlacedRoom, error) {
	if !g.ContinueToAddRoom() {
		return types.PlacedRoom{}, ErrFinished
	}
	if len(g.rooms) == 0 {
		return g.placeFirst()
	}
	return g.placeNext()
}

func (g *Generator) placeFirst() (types.PlacedRoom, error) {
	data, err := g.Rules.FirstRoomData(g, g.current)
	if err != nil {
		return g.fail(types.DoorDef{Room: -1, Index: -1}, err)
	}
	return g.add(types.PlacedRoom{
		Index:  0,
		Data:   data,
		Parent: -1,
		Door:   -1,
		Entry:  -1,
		Rule:   g.current.Name(),
	}), nil
}

func (g *Generator) placeNext() (types.PlacedRoom, error) {
	door, ok := g.openDoor()
	if !ok {
		return g.fail(types.DoorDef{Room: -1, Index: -1}, errors.New("no open door left"))
	}
	parent := g.rooms[door.Room]

	data, entry, err := g.Rules.NextRoomData(g, g.current, parent.Data, door)
	if err != nil {
		return g.fail(door, err)
	}
	if data.Doors < 1 {
		return g.fail(door, fmt.Errorf("room %q has no door to connect", data.Name))
	}
	if entry < 0 || entry >= data.Doors {
		if entry != rules.AnyDoor {
			logger.Warning("chosen door does not exist on room", "room", data.Name, "door", entry, "doors", data.Doors)
		}
		entry = g.rng.Intn(data.Doors)
	}

	room := types.PlacedRoom{
		Index:  len(g.rooms),
		Data:   data,
		Parent: door.Room,
		Door:   door.Index,
		Entry:  entry,
		Rule:   g.current.Name(),
	}
	g.used[door] = true
	g.used[types.DoorDef{Room: room.Index, Index: entry}] = true
	return g.add(room), nil
}

func (g *Generator) add(room types.PlacedRoom) types.PlacedRoom {
	g.rooms = append(g.rooms, room)
	g.span.AddEvent("room.added", trace.WithAttributes(
		attribute.Int("index", room.Index),
		attribute.String("room", room.Data.Name),
		attribute.String("class", room.Data.Class),
		attribute.String("rule", room.Rule),
	))
	for _, r := range g.Receivers {
		r.OnRoomAdded(g, room)
	}

	prev := g.current
	g.current = g.Rules.NextRule(g, g.current, room.Data)
	if g.current != prev {
		to := "Stop"
		if g.current != nil {
			to = g.current.Name()
		}
		g.span.AddEvent("rule.changed", trace.WithAttributes(
			attribute.String("from", prev.Name()),
			attribute.String("to", to),
		))
		logger.Debug("rule changed", "run", g.runID, "from", prev.Name(), "to", to, "rooms", len(g.rooms))
	}
	return room
}

func (g *Generator) fail(door types.DoorDef, err error) (types.PlacedRoom, error) {
	g.failure = fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	g.span.AddEvent("room.failed", trace.WithAttributes(attribute.String("error", err.Error())))
	logger.Warning("failed to add room", "run", g.runID, "rooms", len(g.rooms), "error", err)
	for _, r := range g.Receivers {
		r.OnFailedToAddRoom(g, door)
	}
	return types.PlacedRoom{}, g.failure
}

// openDoor picks a free door, preferring the most recently placed room.
func (g *Generator) openDoor() (types.DoorDef, bool) {
	for i := len(g.rooms) - 1; i >= 0; i-- {
		var free []int
		for d := 0; d < g.rooms[i].Data.Doors; d++ {
			if !g.used[types.DoorDef{Room: i, Index: d}] {
				free = append(free, d)
			}
		}
		if len(free) > 0 {
			return types.DoorDef{Room: i, Index: free[g.rng.Intn(len(free))]}, true
		}
	}
	return types.DoorDef{}, false
}

// Finish ends the attempt: initializers run, then validators decide. An
// attempt without any room is never valid.
func (g *Generator) Finish() error {
	if g.span == nil {
		return nil
	}
	defer func() {
		g.span.End()
		g.span = nil
	}()

	for _, in := range g.Initializers {
		in.InitializeDungeon(g)
	}

	valid := len(g.rooms) > 0
	for _, v := range g.Validators {
		if !valid {
			break
		}
		valid = v.IsDungeonValid(g)
	}

	g.span.SetAttributes(attribute.Int("rooms", len(g.rooms)), attribute.Bool("valid", valid))
	if valid {
		g.span.SetStatus(codes.Ok, "")
		for _, r := range g.Receivers {
			r.OnPostGeneration(g)
		}
		logger.Info("dungeon generated", "dungeon", g.Rules.Name(), "run", g.runID, "seed", g.rng.Seed(), "rooms", len(g.rooms))
		return nil
	}

	g.span.SetStatus(codes.Error, "invalid dungeon")
	for _, r := range g.Receivers {
		r.OnGenerationFailed(g)
	}
	if g.failure != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDungeon, g.failure)
	}
	return ErrInvalidDungeon
}

// Generate runs whole attempts until one is valid. Attempt n uses
// seed+n-1.
func (g *Generator) Generate(ctx context.Context, seed int64) (*Run, error) {
	attempts := max(g.Attempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := seed + int64(attempt-1)
		if err := g.Begin(ctx, s); err != nil {
			return nil, err
		}
		for g.ContinueToAddRoom() {
			if _, err := g.Step(); err != nil {
				break
			}
		}
		if err := g.Finish(); err != nil {
			lastErr = err
			logger.Info("dungeon rejected", "dungeon", g.Rules.Name(), "seed", s, "attempt", attempt, "error", err)
			continue
		}
		run := g.Snapshot()
		run.Attempt = attempt
		return run, nil
	}
	return nil, fmt.Errorf("after %d attempt(s): %w", attempts, lastErr)
}

// Snapshot captures the current attempt as a Run, finished or not.
func (g *Generator) Snapshot() *Run {
	return &Run{
		ID:          g.runID,
		Seed:        g.Seed(),
		Attempt:     1,
		Rooms:       g.Rooms(),
		RNGPosition: g.RNGPosition(),
	}
}

// Rooms returns a copy of the rooms placed so far.
func (g *Generator) Rooms() []types.PlacedRoom {
	return slices.Clone(g.rooms)
}

// CurrentRule is the active rule, nil once a transition led to Stop.
func (g *Generator) CurrentRule() *rules.Rule { return g.current }

// RunID identifies the current attempt.
func (g *Generator) RunID() uuid.UUID { return g.runID }

// Seed is the seed of the current attempt.
func (g *Generator) Seed() int64 {
	if g.rng == nil {
		return 0
	}
	return g.rng.Seed()
}

// RNGPosition is the number of random draws of the current attempt.
func (g *Generator) RNGPosition() int64 {
	if g.rng == nil {
		return 0
	}
	return g.rng.Position()
}

// Failure is the error that stopped the current attempt, if any.
func (g *Generator) Failure() error { return g.failure }

func (g *Generator) maxRooms() int {
	if g.MaxRooms > 0 {
		return g.MaxRooms
	}
	return DefaultMaxRooms
}

func (g *Generator) tracer() trace.Tracer {
	if g.Tracer != nil {
		return g.Tracer
	}
	return otel.Tracer(tracerName)
}

// RoomCount implements rules.Context.
func (g *Generator) RoomCount() int { return len(g.rooms) }

// CountRoomClasses implements rules.Context.
func (g *Generator) CountRoomClasses(classes []string) int {
	n := 0
	for _, r := range g.rooms {
		if slices.Contains(classes, r.Data.Class) {
			n++
		}
	}
	return n
}

// CountRoomData implements rules.Context.
func (g *Generator) CountRoomData(data []*types.RoomData) int {
	n := 0
	for _, r := range g.rooms {
		if slices.Contains(data, r.Data) {
			n++
		}
	}
	return n
}

// RandomRoom implements rules.Context.
func (g *Generator) RandomRoom(rooms []*types.RoomData) *types.RoomData {
	if len(rooms) == 0 || g.rng == nil {
		return nil
	}
	return rooms[g.rng.Intn(len(rooms))]
}

// WeightedRandomRoom implements rules.Context.
func (g *Generator) WeightedRandomRoom(rooms []rules.WeightedRoom) *types.RoomData {
	if g.rng == nil {
		return nil
	}
	weights := make([]int, len(rooms))
	for i, w := range rooms {
		weights[i] = w.Weight
	}
	if i := g.rng.WeightedSelect(weights); i >= 0 {
		return rooms[i].Room
	}
	return nil
}

var _ rules.Context = (*Generator)(nil)
