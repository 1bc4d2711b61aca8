package loader

import (
	"fmt"

	"github.com/nathoo/dungeonrules/rules"
	"github.com/nathoo/dungeonrules/types"
)

// build resolves the names of validated defs into a RuleSet.
func build(d *defs) (*Dungeon, error) {
	dungeon := &Dungeon{
		Name:     d.Dungeon.Name,
		MaxRooms: d.Dungeon.MaxRooms,
		Rooms:    make(map[string]*types.RoomData, len(d.Rooms)),
	}
	for _, r := range d.Rooms {
		dungeon.Rooms[r.ID] = &types.RoomData{Name: r.ID, Class: r.Class, Doors: r.Doors}
	}

	b := rules.NewBuilder(d.Dungeon.Name)
	ruleIDs := make(map[string]rules.RuleID, len(d.Rules))
	conduitIDs := make(map[string]rules.ConduitID, len(d.Conduits))

	for _, r := range d.Rules {
		ruleIDs[r.ID] = b.AddRule(r.ID, buildChooser(r.Chooser, dungeon.Rooms))
	}
	for _, c := range d.Conduits {
		conduitIDs[c] = b.AddConduit(c)
	}
	b.SetFirstRule(ruleIDs[d.Dungeon.First])

	for _, t := range d.Transitions {
		var from rules.Source
		switch {
		case t.FromAny:
			from = rules.FromAny()
		case len(t.From) == 1 && isConduit(conduitIDs, t.From[0]):
			from = rules.FromConduit(conduitIDs[t.From[0]])
		default:
			ids := make([]rules.RuleID, 0, len(t.From))
			for _, name := range t.From {
				ids = append(ids, ruleIDs[name])
			}
			from = rules.FromRules(ids...)
		}

		var to rules.Target
		switch {
		case t.ToStop:
			to = rules.ToStop()
		case isConduit(conduitIDs, t.To):
			to = rules.ToConduit(conduitIDs[t.To])
		default:
			to = rules.ToRule(ruleIDs[t.To])
		}

		var cond rules.Condition
		if t.Condition != nil {
			c, err := buildCondition(*t.Condition, dungeon.Rooms)
			if err != nil {
				return nil, fmt.Errorf("transition #%d: %w", t.Order, err)
			}
			cond = c
		}
		b.AddTransition(from, to, int32(t.Priority), cond)
	}

	rs, err := b.Build()
	if err != nil {
		return nil, err
	}
	dungeon.Rules = rs
	dungeon.Warnings = rs.Validate()
	return dungeon, nil
}

func isConduit(ids map[string]rules.ConduitID, name string) bool {
	_, ok := ids[name]
	return ok
}

func buildChooser(c *chooserDef, rooms map[string]*types.RoomData) rules.RoomChooser {
	if c == nil {
		return nil
	}
	switch c.Type {
	case "single":
		return &rules.SingleRoom{Room: rooms[c.Rooms[0]]}
	case "random":
		list := make([]*types.RoomData, len(c.Rooms))
		for i, name := range c.Rooms {
			list[i] = rooms[name]
		}
		return &rules.RandomRoom{Rooms: list}
	default:
		list := make([]rules.WeightedRoom, len(c.Rooms))
		for i, name := range c.Rooms {
			list[i] = rules.WeightedRoom{Room: rooms[name], Weight: c.Weights[i]}
		}
		return &rules.WeightedRandomRoom{Rooms: list}
	}
}

func buildCondition(c conditionDef, rooms map[string]*types.RoomData) (rules.Condition, error) {
	switch c.Type {
	case "always":
		return rules.Always, nil
	case "never":
		return rules.Never, nil
	case "and", "or":
		children := make([]rules.Condition, 0, len(c.Children))
		for _, child := range c.Children {
			cc, err := buildCondition(child, rooms)
			if err != nil {
				return nil, err
			}
			children = append(children, cc)
		}
		if c.Type == "or" {
			return rules.Or(children...), nil
		}
		return rules.And(children...), nil
	case "not":
		if c.Inner == nil {
			return &rules.Not{}, nil
		}
		inner, err := buildCondition(*c.Inner, rooms)
		if err != nil {
			return nil, err
		}
		return &rules.Not{Condition: inner}, nil
	case "room_count":
		op, err := rules.ParseComparisonOp(c.Op)
		if err != nil {
			return nil, err
		}
		return &rules.RoomClassCount{Classes: c.Classes, Op: op, Count: c.Count}, nil
	case "room_data_count":
		op, err := rules.ParseComparisonOp(c.Op)
		if err != nil {
			return nil, err
		}
		list := make([]*types.RoomData, len(c.Rooms))
		for i, name := range c.Rooms {
			list[i] = rooms[name]
		}
		return &rules.RoomDataCount{Rooms: list, Op: op, Count: c.Count}, nil
	}
	return nil, fmt.Errorf("unknown condition type %q", c.Type)
}
