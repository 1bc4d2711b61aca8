// Package engine provides the Step() orchestrator that turns one session
// command into generator work and output lines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nathoo/dungeonrules/engine/parser"
	"github.com/nathoo/dungeonrules/generator"
	"github.com/nathoo/dungeonrules/loader"
	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/report"
	"github.com/nathoo/dungeonrules/rules"
	"github.com/nathoo/dungeonrules/types"
)

// Recorder archives finished generations.
type Recorder interface {
	Record(r *report.Report) error
}

// Engine holds the loaded dungeon and the generation in progress.
type Engine struct {
	Dungeon  *loader.Dungeon
	Gen      *generator.Generator
	Recorder Recorder // optional

	ctx      context.Context
	finished bool
	err      error // Finish result of the current attempt
}

// New creates an engine for d and begins a generation from seed.
func New(d *loader.Dungeon, seed int64) *Engine {
	g := generator.New(d.Rules)
	g.MaxRooms = d.MaxRooms
	e := &Engine{
		Dungeon: d,
		Gen:     g,
		ctx:     context.Background(),
	}
	e.Reset(seed)
	return e
}

// WithContext sets the context later generations run under.
func (e *Engine) WithContext(ctx context.Context) *Engine {
	e.ctx = ctx
	return e
}

// Reset discards the current generation and begins a new one from seed.
func (e *Engine) Reset(seed int64) error {
	e.finished = false
	e.err = nil
	if err := e.Gen.Begin(e.ctx, seed); err != nil {
		e.finished = true
		e.err = err
		return err
	}
	return nil
}

// Finished reports whether the current generation is over.
func (e *Engine) Finished() bool { return e.finished }

// Err is the outcome of a finished generation: nil when the dungeon was
// kept, otherwise why it was rejected.
func (e *Engine) Err() error { return e.err }

// Run captures the current generation.
func (e *Engine) Run() *generator.Run { return e.Gen.Snapshot() }

// Report builds the report of the current generation.
func (e *Engine) Report() *report.Report {
	maxRooms := e.Gen.MaxRooms
	if maxRooms <= 0 {
		maxRooms = generator.DefaultMaxRooms
	}
	r := report.Build(e.Dungeon.Name, maxRooms, e.Gen.Snapshot())
	switch {
	case !e.finished:
		r.Status = report.StatusInProgress
	case e.err != nil:
		r.Status = report.StatusRejected
	}
	return r
}

// Restore checks that r replays against the loaded rules, then rebuilds
// it as the current generation.
func (e *Engine) Restore(r *report.Report) (types.Result, error) {
	if err := report.Replay(e.ctx, e.Dungeon.Rules, r); err != nil {
		return types.Result{}, err
	}
	e.Gen.MaxRooms = r.MaxRooms
	if err := e.Reset(r.Seed); err != nil {
		return types.Result{}, err
	}
	var result types.Result
	switch {
	case r.Status != report.StatusInProgress:
		e.place(&result, -1)
	case len(r.Rooms) > 0:
		e.place(&result, len(r.Rooms))
	}
	return result, nil
}

// Step processes one session command and returns the result.
func (e *Engine) Step(input string) types.Result {
	var result types.Result

	// 1. Parse input.
	cmd := parser.Parse(input)

	// 2. Empty input.
	if cmd.Verb == "" {
		result.Output = append(result.Output, "What do you want to do? (look, step, run, reset, rules, rooms)")
		return result
	}

	// 3. Dispatch on verb.
	switch cmd.Verb {
	case "look":
		result.Output = append(result.Output, e.describeStatus()...)

	case "step":
		n, ok := countArg(cmd.Args, 1)
		if !ok {
			result.Output = append(result.Output, "Step how many rooms? Give a positive number.")
			return result
		}
		e.place(&result, n)

	case "run":
		if len(cmd.Args) == 0 {
			e.place(&result, -1)
			return result
		}
		n, ok := countArg(cmd.Args, 1)
		if !ok {
			result.Output = append(result.Output, "Run how many dungeons? Give a positive number.")
			return result
		}
		e.runMany(&result, n)

	case "reset":
		seed := e.Gen.Seed() + 1
		if len(cmd.Args) > 0 {
			s, err := strconv.ParseInt(cmd.Args[0], 10, 64)
			if err != nil {
				result.Output = append(result.Output, fmt.Sprintf("Not a seed: %q.", cmd.Args[0]))
				return result
			}
			seed = s
		}
		if err := e.Reset(seed); err != nil {
			result.Output = append(result.Output, fmt.Sprintf("Cannot start a new dungeon: %v", err))
			return result
		}
		result.Trace = append(result.Trace, fmt.Sprintf("begin run %s seed %d", e.Gen.RunID(), seed))
		result.Output = append(result.Output, fmt.Sprintf("New %s dungeon with seed %d.", e.Dungeon.Name, seed))

	case "rules":
		result.Output = append(result.Output, e.describeRules()...)

	case "rooms":
		result.Output = append(result.Output, e.describeRooms()...)

	default:
		result.Output = append(result.Output, fmt.Sprintf("I don't know how to %q. Try: look, step, run, reset, rules, rooms.", cmd.Verb))
	}

	return result
}

// place adds up to n rooms, or rooms until the generation ends when n < 0.
func (e *Engine) place(result *types.Result, n int) {
	if e.finished {
		result.Output = append(result.Output, "This dungeon is finished. Use reset to start a new one.")
		return
	}

	for i := 0; n < 0 || i < n; i++ {
		before := e.Gen.CurrentRule()
		room, err := e.Gen.Step()
		if err != nil {
			if !errors.Is(err, generator.ErrFinished) {
				result.Output = append(result.Output, fmt.Sprintf("Could not add a room: %v", err))
				result.Trace = append(result.Trace, fmt.Sprintf("rule %s failed: %v", ruleName(before), err))
			}
			e.finish(result)
			return
		}

		result.Placed = append(result.Placed, room)
		result.Output = append(result.Output, describePlaced(room))
		result.Trace = append(result.Trace, fmt.Sprintf("rule %s chose %s (%d draws)", room.Rule, room.Data.Name, e.Gen.RNGPosition()))
		if after := e.Gen.CurrentRule(); after != before {
			result.Trace = append(result.Trace, fmt.Sprintf("rule %s -> %s", ruleName(before), ruleName(after)))
		}

		if !e.Gen.ContinueToAddRoom() {
			e.finish(result)
			return
		}
	}
}

// finish closes the attempt and reports whether the dungeon was kept.
func (e *Engine) finish(result *types.Result) {
	if e.finished {
		return
	}
	e.finished = true

	reason := "the room limit was reached"
	switch {
	case e.Gen.Failure() != nil:
		reason = "a room could not be added"
	case e.Gen.CurrentRule() == nil:
		reason = "the rules reached Stop"
	}

	e.err = e.Gen.Finish()
	rooms := len(e.Gen.Rooms())
	if e.err != nil {
		result.Output = append(result.Output, fmt.Sprintf("The dungeon was rejected after %d room(s): %v", rooms, e.err))
	} else {
		result.Output = append(result.Output, fmt.Sprintf("The dungeon is complete: %d room(s), %s.", rooms, reason))
	}
	logger.Debug("session generation finished", "dungeon", e.Dungeon.Name, "run", e.Gen.RunID(), "rooms", rooms, "error", e.err)

	if e.Recorder != nil {
		if err := e.Recorder.Record(e.Report()); err != nil {
			logger.Warning("failed to record run", "run", e.Gen.RunID(), "error", err)
			result.Output = append(result.Output, fmt.Sprintf("Could not record the run: %v", err))
		}
	}
}

// runMany generates n whole dungeons from the seeds following the current
// one, leaving the session's own generation untouched.
func (e *Engine) runMany(result *types.Result, n int) {
	base := e.Gen.Seed() + 1
	kept := 0
	for i := 0; i < n; i++ {
		g := &generator.Generator{
			Rules:      e.Gen.Rules,
			MaxRooms:   e.Gen.MaxRooms,
			Attempts:   e.Gen.Attempts,
			Validators: e.Gen.Validators,
		}
		seed := base + int64(i)
		run, err := g.Generate(e.ctx, seed)
		if err != nil {
			result.Output = append(result.Output, fmt.Sprintf("seed %d: rejected (%v)", seed, err))
			if e.ctx.Err() != nil {
				return
			}
			continue
		}
		kept++
		result.Output = append(result.Output, fmt.Sprintf("seed %d: %d room(s), %s", run.Seed, len(run.Rooms), ClassSummary(run.Rooms)))
		result.Trace = append(result.Trace, fmt.Sprintf("run %s seed %d attempt %d", run.ID, run.Seed, run.Attempt))
	}
	result.Output = append(result.Output, fmt.Sprintf("%d of %d dungeon(s) kept.", kept, n))
}

// countArg reads a positive count from the first argument.
func countArg(args []string, def int) (int, bool) {
	if len(args) == 0 {
		return def, true
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func ruleName(r *rules.Rule) string {
	if r == nil {
		return "Stop"
	}
	return r.Name()
}
