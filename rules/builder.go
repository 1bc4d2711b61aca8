package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// SourceKind is the kind of node a transition is attached to.
type SourceKind uint8

// Source kinds.
const (
	SourceRules SourceKind = iota
	SourceConduit
	SourceAny
)

// Source says where a new transition is attached. Several rules form an
// alias: the same transition is added to each of them.
type Source struct {
	Kind    SourceKind
	Rules   []RuleID
	Conduit ConduitID
}

// FromRule attaches the transition to a single rule.
func FromRule(id RuleID) Source { return Source{Kind: SourceRules, Rules: []RuleID{id}} }

// FromRules attaches the same transition to each of ids.
func FromRules(ids ...RuleID) Source { return Source{Kind: SourceRules, Rules: ids} }

// FromConduit attaches the transition to a conduit.
func FromConduit(id ConduitID) Source { return Source{Kind: SourceConduit, Conduit: id} }

// FromAny attaches the transition to the global list, evaluated from any
// rule when its own transitions do not match.
func FromAny() Source { return Source{Kind: SourceAny} }

type ruleDef struct {
	name        string
	chooser     RoomChooser
	transitions []TransitionID
}

type conduitDef struct {
	name        string
	transitions []TransitionID
}

type transitionDef struct {
	priority  int32
	condition Condition
	next      Target
}

// Builder assembles a rule graph. Handles it returns stay valid until the
// entry is removed; removing leaves the handles pointing at it dangling.
// A Builder is not safe for concurrent use.
type Builder struct {
	name        string
	rules       []*ruleDef
	conduits    []*conduitDef
	transitions []*transitionDef
	global      []TransitionID
	first       RuleID
	hasFirst    bool
	errs        []error
}

// NewBuilder returns an empty builder for a ruleset called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Clear drops every node and transition. Handles from before are invalid.
func (b *Builder) Clear() {
	*b = Builder{name: b.name}
}

// AddRule adds a rule with the given room chooser and returns its handle.
func (b *Builder) AddRule(name string, chooser RoomChooser) RuleID {
	b.rules = append(b.rules, &ruleDef{name: name, chooser: chooser})
	return RuleID(len(b.rules) - 1)
}

// AddConduit adds a conduit and returns its handle.
func (b *Builder) AddConduit(name string) ConduitID {
	b.conduits = append(b.conduits, &conduitDef{name: name})
	return ConduitID(len(b.conduits) - 1)
}

// SetFirstRule picks the initial state. Build checks it resolves.
func (b *Builder) SetFirstRule(id RuleID) {
	b.first = id
	b.hasFirst = true
}

// AddTransition creates a transition and appends it to the transition list
// of every source. The target is not checked: it may be removed later.
// An unknown source is reported by Build.
func (b *Builder) AddTransition(from Source, to Target, priority int32, cond Condition) TransitionID {
	b.transitions = append(b.transitions, &transitionDef{priority: priority, condition: cond, next: to})
	id := TransitionID(len(b.transitions) - 1)

	switch from.Kind {
	case SourceAny:
		b.global = appendUnique(b.global, id)
	case SourceConduit:
		c := b.conduit(from.Conduit)
		if c == nil {
			b.errs = append(b.errs, fmt.Errorf("transition %d: unknown source conduit %d", id, from.Conduit))
			break
		}
		c.transitions = appendUnique(c.transitions, id)
	default:
		if len(from.Rules) == 0 {
			b.errs = append(b.errs, fmt.Errorf("transition %d: no source rule", id))
		}
		for _, rid := range from.Rules {
			r := b.rule(rid)
			if r == nil {
				b.errs = append(b.errs, fmt.Errorf("transition %d: unknown source rule %d", id, rid))
				continue
			}
			r.transitions = appendUnique(r.transitions, id)
		}
	}
	return id
}

// RemoveRule deletes a rule. Transitions targeting it are left dangling.
func (b *Builder) RemoveRule(id RuleID) {
	if b.rule(id) != nil {
		b.rules[id] = nil
	}
}

// RemoveConduit deletes a conduit. Transitions targeting it are left dangling.
func (b *Builder) RemoveConduit(id ConduitID) {
	if b.conduit(id) != nil {
		b.conduits[id] = nil
	}
}

// RemoveTransition deletes a transition. Rule and conduit lists keep the
// dangling handle; the global list drops it.
func (b *Builder) RemoveTransition(id TransitionID) {
	if id < 0 || int(id) >= len(b.transitions) {
		return
	}
	b.transitions[id] = nil
	b.global = slices.DeleteFunc(b.global, func(g TransitionID) bool { return g == id })
}

func (b *Builder) rule(id RuleID) *ruleDef {
	if id < 0 || int(id) >= len(b.rules) {
		return nil
	}
	return b.rules[id]
}

func (b *Builder) conduit(id ConduitID) *conduitDef {
	if id < 0 || int(id) >= len(b.conduits) {
		return nil
	}
	return b.conduits[id]
}

// Build compiles the graph into an immutable RuleSet. Later edits to the
// builder do not affect it.
func (b *Builder) Build() (*RuleSet, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if !b.hasFirst || b.rule(b.first) == nil {
		return nil, fmt.Errorf("ruleset %q: %w", b.name, ErrNoFirstRule)
	}

	rs := &RuleSet{
		name:        b.name,
		rules:       make([]*Rule, len(b.rules)),
		conduits:    make([]*Conduit, len(b.conduits)),
		transitions: make([]*Transition, len(b.transitions)),
		global:      slices.Clone(b.global),
		first:       b.first,
	}
	for i, def := range b.rules {
		if def == nil {
			continue
		}
		rs.rules[i] = &Rule{
			id:          RuleID(i),
			name:        def.name,
			chooser:     def.chooser,
			transitions: slices.Clone(def.transitions),
			set:         rs,
		}
	}
	for i, def := range b.conduits {
		if def == nil {
			continue
		}
		rs.conduits[i] = &Conduit{
			id:          ConduitID(i),
			name:        def.name,
			transitions: slices.Clone(def.transitions),
			set:         rs,
		}
	}
	for i, def := range b.transitions {
		if def == nil {
			continue
		}
		rs.transitions[i] = &Transition{
			id:        TransitionID(i),
			priority:  def.priority,
			condition: def.condition,
			next:      def.next,
			set:       rs,
		}
	}
	if cycle := rs.conduitCycle(); cycle != nil {
		return nil, fmt.Errorf("ruleset %q: %w: %s", b.name, ErrConduitCycle, strings.Join(cycle, " -> "))
	}
	return rs, nil
}

func appendUnique(list []TransitionID, id TransitionID) []TransitionID {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}
