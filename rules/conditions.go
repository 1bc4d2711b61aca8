package rules

import (
	"fmt"
	"strings"

	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/types"
)

// Condition gates a transition. prev is the room placed last, nil before
// the first room.
type Condition interface {
	Check(ctx Context, prev *types.RoomData) bool
	Description() string
}

// Constant always returns its own value.
type Constant bool

// Always and Never are the two constant conditions.
const (
	Always Constant = true
	Never  Constant = false
)

func (c Constant) Check(Context, *types.RoomData) bool { return bool(c) }

func (c Constant) Description() string {
	if c {
		return "Always true."
	}
	return "Always false."
}

// LogicalOp combines the children of a Logical condition.
type LogicalOp uint8

const (
	OpAnd LogicalOp = iota
	OpOr
)

// Logical is an AND or OR over a list of conditions.
// An empty list is true for both operators.
type Logical struct {
	Op         LogicalOp
	Conditions []Condition
}

// And returns a condition true when every child is true.
func And(conds ...Condition) *Logical {
	return &Logical{Op: OpAnd, Conditions: conds}
}

// Or returns a condition true when at least one child is true.
func Or(conds ...Condition) *Logical {
	return &Logical{Op: OpOr, Conditions: conds}
}

// Check short-circuits on the first child deciding the result.
// A nil child counts as an absent condition, which passes.
func (l *Logical) Check(ctx Context, prev *types.RoomData) bool {
	if len(l.Conditions) == 0 {
		return true
	}
	decisive := l.Op == OpOr
	for _, c := range l.Conditions {
		if checkOptional(c, ctx, prev) == decisive {
			return decisive
		}
	}
	return !decisive
}

func (l *Logical) Description() string {
	if l.Op == OpOr {
		return "True when at least one condition is met."
	}
	return "True when all conditions are met."
}

// Not negates its inner condition. A missing inner condition is false.
type Not struct {
	Condition Condition
}

func (n *Not) Check(ctx Context, prev *types.RoomData) bool {
	return n.Condition != nil && !n.Condition.Check(ctx, prev)
}

func (n *Not) Description() string {
	if n.Condition == nil {
		return "Always false."
	}
	return "True when this condition is false:\n- " + n.Condition.Description()
}

// RoomClassCount compares the number of placed rooms of some classes to a
// threshold. With no classes every placed room is counted.
type RoomClassCount struct {
	Classes []string
	Op      ComparisonOp
	Count   int
}

func (c *RoomClassCount) Check(ctx Context, _ *types.RoomData) bool {
	n := 0
	if len(c.Classes) > 0 {
		n = ctx.CountRoomClasses(c.Classes)
	} else {
		n = ctx.RoomCount()
	}
	return Compare(n, c.Count, c.Op)
}

func (c *RoomClassCount) Description() string {
	var suffix string
	switch len(c.Classes) {
	case 0:
	case 1:
		suffix = fmt.Sprintf(" with class '%s'", c.Classes[0])
	default:
		suffix = " from a collection of class"
	}
	return fmt.Sprintf("True when the dungeon has %s room(s)%s.", DescribeComparison(c.Op, c.Count), suffix)
}

// RoomDataCount is RoomClassCount keyed on room data identity.
type RoomDataCount struct {
	Rooms []*types.RoomData
	Op    ComparisonOp
	Count int
}

func (c *RoomDataCount) Check(ctx Context, _ *types.RoomData) bool {
	n := 0
	if len(c.Rooms) > 0 {
		n = ctx.CountRoomData(c.Rooms)
	} else {
		n = ctx.RoomCount()
	}
	return Compare(n, c.Count, c.Op)
}

func (c *RoomDataCount) Description() string {
	var suffix string
	switch len(c.Rooms) {
	case 0:
	case 1:
		suffix = fmt.Sprintf(" with data '%s'", roomName(c.Rooms[0]))
	default:
		suffix = " from a collection of data"
	}
	return fmt.Sprintf("True when the dungeon has %s room(s)%s.", DescribeComparison(c.Op, c.Count), suffix)
}

// CustomCondition is the extension point for conditions written in Go.
// Without a Func it reports an error and evaluates to false.
type CustomCondition struct {
	Name string
	Text string
	Func func(ctx Context, prev *types.RoomData) bool
}

func (c *CustomCondition) Check(ctx Context, prev *types.RoomData) bool {
	if c.Func == nil {
		logger.Error("condition check is not implemented", "condition", c.Name)
		return false
	}
	return c.Func(ctx, prev)
}

func (c *CustomCondition) Description() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("No condition description provided for '%s'.", c.Name)
}

// checkOptional evaluates c, treating nil as an absent condition.
func checkOptional(c Condition, ctx Context, prev *types.RoomData) bool {
	if c == nil {
		return true
	}
	return c.Check(ctx, prev)
}

// describeOptional describes c, treating nil as an absent condition.
func describeOptional(c Condition) string {
	if c == nil {
		return Always.Description()
	}
	return c.Description()
}

func roomName(r *types.RoomData) string {
	if r == nil {
		return "None"
	}
	return r.Name
}

// DescribeTree renders a condition and its children as an indented list.
func DescribeTree(c Condition) string {
	var b strings.Builder
	describeTree(&b, c, 0)
	return strings.TrimRight(b.String(), "\n")
}

func describeTree(b *strings.Builder, c Condition, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := c.(type) {
	case nil:
		fmt.Fprintf(b, "%s%s\n", indent, Always.Description())
	case *Logical:
		op := "AND"
		if v.Op == OpOr {
			op = "OR"
		}
		fmt.Fprintf(b, "%s%s (%d)\n", indent, op, len(v.Conditions))
		for _, child := range v.Conditions {
			describeTree(b, child, depth+1)
		}
	case *Not:
		fmt.Fprintf(b, "%sNOT\n", indent)
		if v.Condition != nil {
			describeTree(b, v.Condition, depth+1)
		}
	default:
		fmt.Fprintf(b, "%s%s\n", indent, c.Description())
	}
}
