package loader

import (
	"fmt"
	"math"
	"strings"

	"github.com/nathoo/dungeonrules/rules"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Known chooser types.
var validChooserTypes = map[string]bool{
	"single":   true,
	"random":   true,
	"weighted": true,
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"always":          true,
	"never":           true,
	"and":             true,
	"or":              true,
	"not":             true,
	"room_count":      true,
	"room_data_count": true,
}

// validate checks the compiled defs for referential integrity and
// consistency. It returns the warnings even when there is no error.
func validate(d *defs) *ValidationError {
	ve := &ValidationError{}

	if d.Dungeon.Name == "" {
		ve.errorf("Dungeon.name is required")
	}
	if d.Dungeon.MaxRooms < 0 {
		ve.errorf("Dungeon.max_rooms must not be negative, got %d", d.Dungeon.MaxRooms)
	}

	// Room IDs unique.
	rooms := map[string]bool{}
	for _, r := range d.Rooms {
		if rooms[r.ID] {
			ve.errorf("duplicate room ID %q", r.ID)
		}
		rooms[r.ID] = true
		if r.Doors < 0 {
			ve.errorf("room %q has a negative door count", r.ID)
		} else if r.Doors == 0 {
			ve.warnf("room %q has no door and can only be placed first", r.ID)
		}
	}

	// Rules and conduits share one namespace: transitions name either.
	nodes := map[string]string{}
	for _, r := range d.Rules {
		if kind, ok := nodes[r.ID]; ok {
			ve.errorf("duplicate node ID %q (already a %s)", r.ID, kind)
		}
		nodes[r.ID] = "rule"
	}
	for _, c := range d.Conduits {
		if kind, ok := nodes[c]; ok {
			ve.errorf("duplicate node ID %q (already a %s)", c, kind)
		}
		nodes[c] = "conduit"
	}

	if d.Dungeon.First == "" {
		ve.errorf("Dungeon.first is required")
	} else if nodes[d.Dungeon.First] != "rule" {
		ve.errorf("first rule %q not found in defined rules", d.Dungeon.First)
	}

	used := map[string]bool{}
	for _, r := range d.Rules {
		validateChooser(r, rooms, used, ve)
	}

	for _, t := range d.Transitions {
		where := fmt.Sprintf("transition #%d", t.Order)
		if len(t.From) == 0 && !t.FromAny {
			ve.errorf("%s has no source", where)
		}
		for _, from := range t.From {
			kind, ok := nodes[from]
			switch {
			case !ok:
				ve.errorf("%s comes from undefined node %q", where, from)
			case kind == "conduit" && len(t.From) > 1:
				ve.errorf("%s lists conduit %q in a rule alias", where, from)
			}
		}
		if !t.ToStop {
			if _, ok := nodes[t.To]; !ok {
				ve.errorf("%s leads to undefined node %q", where, t.To)
			}
		}
		if t.Priority < math.MinInt32 || t.Priority > math.MaxInt32 {
			ve.errorf("%s priority %d is outside %d..%d", where, t.Priority, math.MinInt32, math.MaxInt32)
		}
		if t.Condition != nil {
			validateCondition(*t.Condition, where, rooms, ve)
		}
	}

	if cycle := conduitCycle(d, nodes); cycle != nil {
		ve.errorf("conduits lead into each other in a loop: %s", strings.Join(cycle, " -> "))
	}

	for _, r := range d.Rooms {
		if !used[r.ID] {
			ve.warnf("room %q is not used by any rule", r.ID)
		}
	}
	return ve
}

func validateChooser(r ruleDef, rooms, used map[string]bool, ve *ValidationError) {
	if r.Chooser == nil {
		ve.warnf("rule %q has no chooser and cannot place rooms", r.ID)
		return
	}
	c := r.Chooser
	if !validChooserTypes[c.Type] {
		ve.errorf("rule %q uses unknown chooser type %q", r.ID, c.Type)
		return
	}
	if len(c.Rooms) == 0 {
		ve.errorf("rule %q chooser has no room", r.ID)
	}
	for i, room := range c.Rooms {
		if !rooms[room] {
			ve.errorf("rule %q chooser references undefined room %q", r.ID, room)
		}
		used[room] = true
		if c.Type == "weighted" && c.Weights[i] <= 0 {
			ve.warnf("rule %q gives room %q weight %d; it is never selected", r.ID, room, c.Weights[i])
		}
	}
}

func validateCondition(c conditionDef, where string, rooms map[string]bool, ve *ValidationError) {
	if !validConditionTypes[c.Type] {
		ve.errorf("%s uses unknown condition type %q", where, c.Type)
		return
	}
	switch c.Type {
	case "and", "or":
		for _, child := range c.Children {
			validateCondition(child, where, rooms, ve)
		}
	case "not":
		if c.Inner == nil {
			ve.warnf("%s negates nothing; Not() is always false", where)
			break
		}
		validateCondition(*c.Inner, where, rooms, ve)
	case "room_count", "room_data_count":
		if _, err := rules.ParseComparisonOp(c.Op); err != nil {
			ve.errorf("%s: %s", where, err)
		}
		for _, room := range c.Rooms {
			if !rooms[room] {
				ve.errorf("%s counts undefined room %q", where, room)
			}
		}
	}
}

// conduitCycle finds a loop of transitions running only between conduits.
// It returns the names along the loop, first name repeated at the end.
func conduitCycle(d *defs, nodes map[string]string) []string {
	next := map[string][]string{}
	for _, t := range d.Transitions {
		if t.ToStop || nodes[t.To] != "conduit" {
			continue
		}
		for _, from := range t.From {
			if nodes[from] == "conduit" {
				next[from] = append(next[from], t.To)
			}
		}
	}

	const (
		active = 1
		done   = 2
	)
	state := map[string]int{}
	var path []string

	var visit func(c string) []string
	visit = func(c string) []string {
		state[c] = active
		path = append(path, c)
		for _, to := range next[c] {
			switch state[to] {
			case active:
				for i, name := range path {
					if name == to {
						return append(append([]string{}, path[i:]...), to)
					}
				}
			case done:
			default:
				if cycle := visit(to); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		state[c] = done
		return nil
	}

	for _, c := range d.Conduits {
		if state[c] == 0 {
			if cycle := visit(c); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
