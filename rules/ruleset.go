package rules

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/types"
)

// Errors returned while building or running a ruleset.
var (
	ErrNoCurrentRule = errors.New("no current rule")
	ErrNoRoomChooser = errors.New("no room chooser")
	ErrNoRoomData    = errors.New("room chooser returned no room data")
	ErrNoFirstRule   = errors.New("no first rule")
	ErrUnknownRule   = errors.New("unknown rule")
	ErrConduitCycle  = errors.New("conduits lead into each other in a loop")
)

// RuleSet is a compiled rule graph. It is immutable and safe for concurrent
// use by any number of generation runs.
type RuleSet struct {
	name        string
	rules       []*Rule
	conduits    []*Conduit
	transitions []*Transition
	global      []TransitionID
	first       RuleID
}

// Name is the name the ruleset was built with.
func (rs *RuleSet) Name() string { return rs.name }

// FirstRule returns the initial state of the machine.
func (rs *RuleSet) FirstRule() *Rule {
	if rs == nil {
		return nil
	}
	r, _ := rs.Rule(rs.first)
	return r
}

// Rule resolves a rule handle.
func (rs *RuleSet) Rule(id RuleID) (*Rule, bool) {
	if id < 0 || int(id) >= len(rs.rules) || rs.rules[id] == nil {
		return nil, false
	}
	return rs.rules[id], true
}

// Conduit resolves a conduit handle.
func (rs *RuleSet) Conduit(id ConduitID) (*Conduit, bool) {
	if id < 0 || int(id) >= len(rs.conduits) || rs.conduits[id] == nil {
		return nil, false
	}
	return rs.conduits[id], true
}

// Transition resolves a transition handle.
func (rs *RuleSet) Transition(id TransitionID) (*Transition, bool) {
	if id < 0 || int(id) >= len(rs.transitions) || rs.transitions[id] == nil {
		return nil, false
	}
	return rs.transitions[id], true
}

// RuleByName looks a rule up by its name.
func (rs *RuleSet) RuleByName(name string) (*Rule, error) {
	for _, r := range rs.rules {
		if r != nil && r.name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRule, name)
}

// Rules returns the live rules in handle order.
func (rs *RuleSet) Rules() []*Rule {
	out := make([]*Rule, 0, len(rs.rules))
	for _, r := range rs.rules {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Conduits returns the live conduits in handle order.
func (rs *RuleSet) Conduits() []*Conduit {
	out := make([]*Conduit, 0, len(rs.conduits))
	for _, c := range rs.conduits {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Transitions returns the live transitions in handle order.
func (rs *RuleSet) Transitions() []*Transition {
	out := make([]*Transition, 0, len(rs.transitions))
	for _, t := range rs.transitions {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// GlobalTransitions returns the any-state transitions in evaluation order.
func (rs *RuleSet) GlobalTransitions() []*Transition {
	out := make([]*Transition, 0, len(rs.global))
	for _, id := range rs.global {
		if t, ok := rs.Transition(id); ok {
			out = append(out, t)
		}
	}
	return out
}

func (rs *RuleSet) provider(t Target) (ruleProvider, bool) {
	switch t.Kind {
	case TargetStop:
		return stopTarget{}, true
	case TargetRule:
		if r, ok := rs.Rule(RuleID(t.ID)); ok {
			return r, true
		}
	case TargetConduit:
		if c, ok := rs.Conduit(ConduitID(t.ID)); ok {
			return c, true
		}
	}
	return nil, false
}

// FirstRoomData asks the current rule for the first room of the dungeon.
func (rs *RuleSet) FirstRoomData(ctx Context, current *Rule) (*types.RoomData, error) {
	chooser, err := rs.chooser(current)
	if err != nil {
		return nil, err
	}
	room := chooser.ChooseFirst(ctx)
	if room == nil {
		logger.Error("room chooser returned no room data", "ruleset", rs.name, "rule", current.name)
		return nil, fmt.Errorf("rule %q: %w", current.name, ErrNoRoomData)
	}
	return room, nil
}

// NextRoomData asks the current rule for a room to attach to prev through
// door. It also returns the door of the new room to connect, or AnyDoor.
func (rs *RuleSet) NextRoomData(ctx Context, current *Rule, prev *types.RoomData, door types.DoorDef) (*types.RoomData, int, error) {
	chooser, err := rs.chooser(current)
	if err != nil {
		return nil, AnyDoor, err
	}
	room, doorIndex := chooser.ChooseNext(ctx, prev, door)
	if room == nil {
		logger.Error("room chooser returned no room data", "ruleset", rs.name, "rule", current.name)
		return nil, AnyDoor, fmt.Errorf("rule %q: %w", current.name, ErrNoRoomData)
	}
	return room, doorIndex, nil
}

func (rs *RuleSet) chooser(current *Rule) (RoomChooser, error) {
	if current == nil {
		logger.Error("no current rule", "ruleset", rs.name)
		return nil, ErrNoCurrentRule
	}
	if current.chooser == nil {
		logger.Error("no room chooser in current rule", "ruleset", rs.name, "rule", current.name)
		return nil, fmt.Errorf("rule %q: %w", current.name, ErrNoRoomChooser)
	}
	return current.chooser, nil
}

// NextRule runs the full transition cascade for the current rule: its own
// transitions first, then the global ones, and finally the current rule
// itself. A nil result means a transition led to Stop.
func (rs *RuleSet) NextRule(ctx Context, current *Rule, prev *types.RoomData) *Rule {
	if current == nil {
		return nil
	}
	if next, ok := current.NextRule(ctx, prev); ok {
		return next
	}
	if next, ok := rs.resolve(ctx, prev, rs.global, "global"); ok {
		return next
	}
	return current
}

// Validate lists graph integrity problems. A RuleSet with problems still
// works: dangling handles are skipped during evaluation.
func (rs *RuleSet) Validate() []string {
	var problems []string

	checkHandles := func(owner string, handles []TransitionID) {
		for _, id := range handles {
			if _, ok := rs.Transition(id); !ok {
				problems = append(problems, fmt.Sprintf("%s: transition %d no longer exists", owner, id))
			}
		}
	}

	for _, r := range rs.Rules() {
		if r.chooser == nil {
			problems = append(problems, fmt.Sprintf("rule %q has no room chooser", r.name))
		}
		checkHandles(fmt.Sprintf("rule %q", r.name), r.transitions)
	}
	for _, c := range rs.Conduits() {
		owner := fmt.Sprintf("conduit %q", c.name)
		if len(c.transitions) == 0 {
			problems = append(problems, owner+" has no outgoing transition")
		}
		checkHandles(owner, c.transitions)
	}
	checkHandles("global", rs.global)

	for _, t := range rs.Transitions() {
		if _, ok := rs.provider(t.next); !ok {
			problems = append(problems, fmt.Sprintf("transition %d: target %s no longer exists", t.id, t.next))
		}
	}

	reached := rs.reachable()
	for _, r := range rs.Rules() {
		if !reached[r.id] {
			problems = append(problems, fmt.Sprintf("rule %q is unreachable from the first rule", r.name))
		}
	}
	return problems
}

// conduitCycle returns the conduit names along a loop made only of
// conduits, first name repeated at the end, or nil. Entering such a loop
// would check the same gates forever.
func (rs *RuleSet) conduitCycle() []string {
	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, len(rs.conduits))
	var path []ConduitID

	var visit func(c *Conduit) []ConduitID
	visit = func(c *Conduit) []ConduitID {
		state[c.id] = active
		path = append(path, c.id)
		for _, id := range c.transitions {
			t, ok := rs.Transition(id)
			if !ok || t.next.Kind != TargetConduit {
				continue
			}
			d, ok := rs.Conduit(ConduitID(t.next.ID))
			if !ok {
				continue
			}
			switch state[d.id] {
			case active:
				start := slices.Index(path, d.id)
				return append(slices.Clone(path[start:]), d.id)
			case unvisited:
				if cycle := visit(d); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		state[c.id] = done
		return nil
	}

	for _, c := range rs.Conduits() {
		if state[c.id] != unvisited {
			continue
		}
		if cycle := visit(c); cycle != nil {
			names := make([]string, len(cycle))
			for i, id := range cycle {
				names[i] = rs.conduits[id].name
			}
			return names
		}
	}
	return nil
}

// reachable marks the rules the machine can enter from the first rule,
// ignoring conditions.
func (rs *RuleSet) reachable() map[RuleID]bool {
	seen := make(map[RuleID]bool)
	first := rs.FirstRule()
	if first == nil {
		return seen
	}

	visitedConduits := make(map[ConduitID]bool)
	queue := []*Rule{first}
	seen[first.id] = true

	var follow func(handles []TransitionID)
	follow = func(handles []TransitionID) {
		for _, id := range handles {
			t, ok := rs.Transition(id)
			if !ok {
				continue
			}
			switch t.next.Kind {
			case TargetRule:
				if r, ok := rs.Rule(RuleID(t.next.ID)); ok && !seen[r.id] {
					seen[r.id] = true
					queue = append(queue, r)
				}
			case TargetConduit:
				if c, ok := rs.Conduit(ConduitID(t.next.ID)); ok && !visitedConduits[c.id] {
					visitedConduits[c.id] = true
					follow(c.transitions)
				}
			}
		}
	}

	// Global transitions can fire from any state.
	follow(rs.global)
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		follow(r.transitions)
	}
	return seen
}
