package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/dungeonrules/generator"
	"github.com/nathoo/dungeonrules/rules"
	"github.com/nathoo/dungeonrules/types"
)

func (e *Engine) describeStatus() []string {
	g := e.Gen
	limit := g.MaxRooms
	if limit <= 0 {
		limit = generator.DefaultMaxRooms
	}

	state := "generating"
	switch {
	case e.finished && e.err != nil:
		state = "rejected: " + e.err.Error()
	case e.finished:
		state = "complete"
	}

	output := []string{
		fmt.Sprintf("Dungeon: %s (seed %d, run %s)", e.Dungeon.Name, g.Seed(), shortID(g.RunID().String())),
		fmt.Sprintf("Rooms placed: %d / %d", g.RoomCount(), limit),
	}
	if r := g.CurrentRule(); r != nil {
		output = append(output, fmt.Sprintf("Current rule: %s. %s", r.Name(), r.Description()))
	} else {
		output = append(output, "Current rule: Stop")
	}
	output = append(output, "State: "+state)
	if rooms := g.Rooms(); len(rooms) > 0 {
		output = append(output, "Classes: "+ClassSummary(rooms))
	}
	return output
}

func (e *Engine) describeRules() []string {
	rs := e.Dungeon.Rules
	current := e.Gen.CurrentRule()

	output := []string{fmt.Sprintf("Rule set: %s", rs.Name())}
	for _, r := range rs.Rules() {
		mark := " "
		if r == current {
			mark = "*"
		}
		suffix := ""
		if r == rs.FirstRule() {
			suffix = " (first)"
		}
		output = append(output, fmt.Sprintf("%s %s%s: %s", mark, r.Name(), suffix, r.Description()))
		output = append(output, describeTransitions(rs, r.Transitions())...)
	}
	for _, c := range rs.Conduits() {
		output = append(output, fmt.Sprintf("  conduit %s:", c.Name()))
		output = append(output, describeTransitions(rs, c.Transitions())...)
	}
	if globals := rs.GlobalTransitions(); len(globals) > 0 {
		output = append(output, "  any rule:")
		for _, t := range globals {
			output = append(output, describeTransition(t))
		}
	}
	return output
}

func describeTransitions(rs *rules.RuleSet, ids []rules.TransitionID) []string {
	var output []string
	for _, id := range ids {
		t, ok := rs.Transition(id)
		if !ok {
			output = append(output, fmt.Sprintf("      -> <missing transition %d>", id))
			continue
		}
		output = append(output, describeTransition(t))
	}
	return output
}

func describeTransition(t *rules.Transition) string {
	return fmt.Sprintf("      -> %s [%d] %s", t.NextName(), t.Priority(), t.Description())
}

func (e *Engine) describeRooms() []string {
	rooms := e.Gen.Rooms()
	if len(rooms) == 0 {
		return []string{"No rooms placed yet."}
	}
	output := make([]string, 0, len(rooms))
	for _, r := range rooms {
		output = append(output, describePlaced(r))
	}
	return output
}

// describePlaced renders one room: "#3 corridor (Corridor) by halls, door 1 of #2".
func describePlaced(r types.PlacedRoom) string {
	if r.Parent < 0 {
		return fmt.Sprintf("#%d %s (%s) by %s", r.Index, r.Data.Name, r.Data.Class, r.Rule)
	}
	return fmt.Sprintf("#%d %s (%s) by %s, door %d of #%d", r.Index, r.Data.Name, r.Data.Class, r.Rule, r.Door, r.Parent)
}

// ClassSummary counts rooms per class in name order: "Corridor 5, Exit 1".
func ClassSummary(rooms []types.PlacedRoom) string {
	counts := make(map[string]int)
	for _, r := range rooms {
		counts[r.Data.Class]++
	}
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes) // deterministic order

	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = fmt.Sprintf("%s %d", c, counts[c])
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
