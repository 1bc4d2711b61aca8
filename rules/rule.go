package rules

import (
	"slices"

	"github.com/nathoo/dungeonrules/types"
)

// RuleID is a handle to a rule owned by a RuleSet.
type RuleID int

// ConduitID is a handle to a conduit owned by a RuleSet.
type ConduitID int

// Rule is a state of the dungeon state machine. Its chooser selects rooms
// while it is active; its transitions decide what comes next.
type Rule struct {
	id          RuleID
	name        string
	chooser     RoomChooser
	transitions []TransitionID
	set         *RuleSet
}

// ID is the handle the rule was added under.
func (r *Rule) ID() RuleID { return r.id }
// Name is the rule's display name.
func (r *Rule) Name() string { return r.name }
// Chooser is the room chooser, nil when the rule has none.
func (r *Rule) Chooser() RoomChooser { return r.chooser }
func (r *Rule) displayName() string { return r.name }
func (r *Rule) String() string { return r.name }

// Transitions returns a copy of the rule's outgoing transition handles.
func (r *Rule) Transitions() []TransitionID {
	return slices.Clone(r.transitions)
}

func (r *Rule) resolveRule(Context, *types.RoomData) *Rule { return r }

// NextRule evaluates the rule's own transitions. The bool is false when
// none of them passed.
func (r *Rule) NextRule(ctx Context, prev *types.RoomData) (*Rule, bool) {
	return r.set.resolve(ctx, prev, r.transitions, r.name)
}

// Description is the tooltip of the rule.
func (r *Rule) Description() string {
	if r.chooser == nil {
		return "Return None"
	}
	return r.chooser.Description()
}

// Conduit is a node without a room chooser that forwards to the first
// passing of its own transitions. Used as a target it also gates the
// inbound transition: it is only enterable when one of its transitions
// passes.
type Conduit struct {
	id          ConduitID
	name        string
	transitions []TransitionID
	set         *RuleSet
}

// ID is the handle the conduit was added under.
func (c *Conduit) ID() ConduitID { return c.id }
// Name is the conduit's display name.
func (c *Conduit) Name() string { return c.name }
func (c *Conduit) displayName() string { return c.name }

// Transitions returns a copy of the conduit's outgoing transition handles.
func (c *Conduit) Transitions() []TransitionID {
	return slices.Clone(c.transitions)
}

// Resolve returns the rule the conduit leads to, nil when no outgoing
// transition passes or the passing one leads to Stop.
func (c *Conduit) Resolve(ctx Context, prev *types.RoomData) *Rule {
	next, _ := c.set.resolve(ctx, prev, c.transitions, c.name)
	return next
}

func (c *Conduit) resolveRule(ctx Context, prev *types.RoomData) *Rule {
	return c.Resolve(ctx, prev)
}

// CheckCondition is true when at least one outgoing transition passes.
// Resolve evaluates the same conditions again when the conduit is entered.
func (c *Conduit) CheckCondition(ctx Context, prev *types.RoomData) bool {
	for _, id := range c.transitions {
		t, ok := c.set.Transition(id)
		if !ok {
			continue
		}
		if t.CheckCondition(ctx, prev) {
			return true
		}
	}
	return false
}
