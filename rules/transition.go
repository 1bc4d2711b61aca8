package rules

import (
	"fmt"
	"math"

	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/types"
)

// TransitionID is a handle to a transition owned by a RuleSet.
type TransitionID int

// TargetKind is the kind of node a transition leads to.
type TargetKind uint8

const (
	// TargetStop ends the state machine: the transition resolves to no rule.
	TargetStop TargetKind = iota
	TargetRule
	TargetConduit
)

// Target is a non-owning reference to the node a transition leads to.
type Target struct {
	Kind TargetKind
	ID   int
}

// ToRule targets a rule.
func ToRule(id RuleID) Target { return Target{Kind: TargetRule, ID: int(id)} }

// ToConduit targets a conduit.
func ToConduit(id ConduitID) Target { return Target{Kind: TargetConduit, ID: int(id)} }

// ToStop targets the end of the state machine.
func ToStop() Target { return Target{Kind: TargetStop} }

// String renders the target as kind#id, or stop.
func (t Target) String() string {
	switch t.Kind {
	case TargetRule:
		return fmt.Sprintf("rule#%d", t.ID)
	case TargetConduit:
		return fmt.Sprintf("conduit#%d", t.ID)
	default:
		return "stop"
	}
}

// ruleProvider is a transition target resolving to the next rule.
type ruleProvider interface {
	resolveRule(ctx Context, prev *types.RoomData) *Rule
	displayName() string
}

// conditionProvider is a transition target with its own gate.
type conditionProvider interface {
	CheckCondition(ctx Context, prev *types.RoomData) bool
}

type stopTarget struct{}

func (stopTarget) resolveRule(Context, *types.RoomData) *Rule { return nil }
func (stopTarget) displayName() string { return "Stop" }

// Transition is a guarded, prioritised edge from a rule or conduit.
// A lower priority number wins over a higher one.
type Transition struct {
	id        TransitionID
	priority  int32
	condition Condition
	next      Target
	set       *RuleSet
}

// ID is the handle the transition was added under.
func (t *Transition) ID() TransitionID { return t.id }
// Priority orders competing transitions; lower wins.
func (t *Transition) Priority() int32 { return t.priority }
// Condition is the guard, nil meaning always.
func (t *Transition) Condition() Condition { return t.condition }
// Next is where the transition leads.
func (t *Transition) Next() Target { return t.next }

// CheckCondition reports whether the transition may be taken. A target with
// its own gate (a conduit) is checked first and blocks the transition when it
// fails; otherwise a missing condition passes.
func (t *Transition) CheckCondition(ctx Context, prev *types.RoomData) bool {
	if p, ok := t.set.provider(t.next); ok {
		if gate, ok := p.(conditionProvider); ok && !gate.CheckCondition(ctx, prev) {
			return false
		}
	}
	return checkOptional(t.condition, ctx, prev)
}

// Description is the tooltip of the transition.
func (t *Transition) Description() string {
	return describeOptional(t.condition)
}

// NextName is the display name of the transition target.
func (t *Transition) NextName() string {
	if p, ok := t.set.provider(t.next); ok {
		return p.displayName()
	}
	return "<invalid " + t.next.String() + ">"
}

// resolve walks handles in order and returns the rule of the passing
// transition with the lowest priority number. Ties go to the first one in
// list order. The bool is false when no transition passed; a passing
// transition may still resolve to a nil rule (Stop).
func (rs *RuleSet) resolve(ctx Context, prev *types.RoomData, handles []TransitionID, owner string) (*Rule, bool) {
	var (
		next  *Rule
		found bool
		best  int64 = math.MaxInt64
	)
	for _, id := range handles {
		t, ok := rs.Transition(id)
		if !ok {
			logger.Warning("invalid transition found", "owner", owner, "transition", int(id))
			continue
		}

		target, ok := rs.provider(t.next)
		if !ok {
			logger.Warning("transition target no longer exists", "owner", owner, "transition", int(id), "target", t.next.String())
			continue
		}

		if int64(t.priority) >= best {
			continue
		}

		if !t.CheckCondition(ctx, prev) {
			continue
		}

		next = target.resolveRule(ctx, prev)
		best = int64(t.priority)
		found = true
	}
	return next, found
}
