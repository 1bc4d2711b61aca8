package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/dungeonrules/rules"
)

const compileHeader = `
Dungeon { name = "Compile", first = "a" }
Room "x" { class = "Hall" }
Room "y" {}
Rule "a" { chooser = Single "x" }
Rule "b" { chooser = Random { "x", "y" } }
Rule "c" { chooser = Weighted { { "x", 2 }, { "y", 5 } } }
Conduit "pick" {}
`

func mustLoadString(t *testing.T, src string) *Dungeon {
	t.Helper()
	d, err := LoadString("test.lua", compileHeader+src)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	return d
}

func TestCompile_RoomDefaults(t *testing.T) {
	d := mustLoadString(t, "")
	y := d.Rooms["y"]
	if y.Class != "y" || y.Doors != 2 {
		t.Errorf("room y = %+v, want class y with 2 doors", *y)
	}
	if d.MaxRooms != 0 {
		t.Errorf("MaxRooms = %d, want 0", d.MaxRooms)
	}
}

func TestCompile_Choosers(t *testing.T) {
	d := mustLoadString(t, "")

	tests := []struct {
		rule string
		want string
	}{
		{"a", "Return 'x'"},
		{"b", "Return a random (uniform) RoomData from a static array."},
		{"c", "Return a random (weighted) RoomData from a static array."},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			r, err := d.Rules.RuleByName(tt.rule)
			if err != nil {
				t.Fatal(err)
			}
			if got := r.Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}

	c, _ := d.Rules.RuleByName("c")
	w, ok := c.Chooser().(*rules.WeightedRandomRoom)
	if !ok {
		t.Fatalf("chooser of c is %T, want *rules.WeightedRandomRoom", c.Chooser())
	}
	if len(w.Rooms) != 2 || w.Rooms[0].Room != d.Rooms["x"] || w.Rooms[1].Weight != 5 {
		t.Errorf("weighted rooms = %+v", w.Rooms)
	}
}

func TestCompile_Transitions(t *testing.T) {
	d := mustLoadString(t, `
Transition { from = "a", to = "pick", priority = 3 }
Transition { from = { "b", "c" }, to = "a" }
Transition { from = "pick", to = "b", condition = RoomCount { op = "<", count = 4, classes = { "Hall" } } }
Transition { from = "pick", to = Stop, priority = 9 }
Transition { from = Any, to = "c", condition = Not(Always()) }
`)
	rs := d.Rules

	a, _ := rs.RuleByName("a")
	ts := a.Transitions()
	if len(ts) != 1 {
		t.Fatalf("a has %d transitions, want 1", len(ts))
	}
	tr, _ := rs.Transition(ts[0])
	if tr.Priority() != 3 || tr.Next().Kind != rules.TargetConduit || tr.NextName() != "pick" {
		t.Errorf("a -> %s (priority %d, kind %d), want pick (3, conduit)", tr.NextName(), tr.Priority(), tr.Next().Kind)
	}

	b, _ := rs.RuleByName("b")
	c, _ := rs.RuleByName("c")
	if b.Transitions()[0] != c.Transitions()[0] {
		t.Errorf("alias not shared: b %v, c %v", b.Transitions(), c.Transitions())
	}

	conduit := rs.Conduits()[0]
	if got := len(conduit.Transitions()); got != 2 {
		t.Errorf("conduit has %d transitions, want 2", got)
	}
	stop, _ := rs.Transition(conduit.Transitions()[1])
	if stop.Next().Kind != rules.TargetStop || stop.NextName() != "Stop" {
		t.Errorf("second conduit transition leads to %s, want Stop", stop.NextName())
	}
	branch, _ := rs.Transition(conduit.Transitions()[0])
	if got, want := branch.Description(), "True when the dungeon has less than 4 room(s) with class 'Hall'."; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}

	globals := rs.GlobalTransitions()
	if len(globals) != 1 {
		t.Fatalf("expected 1 global transition, got %d", len(globals))
	}
	if got := rules.DescribeTree(globals[0].Condition()); !strings.Contains(got, "NOT") {
		t.Errorf("global condition = %q, want a NOT", got)
	}
}

func TestCompile_ConditionTree(t *testing.T) {
	d := mustLoadString(t, `
Transition {
    from = "a", to = "b",
    condition = Or {
        And {},
        Not(),
        RoomDataCount { op = "!=", count = 2, rooms = { "x", "y" } },
    },
}
`)
	a, _ := d.Rules.RuleByName("a")
	tr, _ := d.Rules.Transition(a.Transitions()[0])

	or, ok := tr.Condition().(*rules.Logical)
	if !ok || or.Op != rules.OpOr || len(or.Conditions) != 3 {
		t.Fatalf("condition = %#v, want OR of 3", tr.Condition())
	}
	if and, ok := or.Conditions[0].(*rules.Logical); !ok || and.Op != rules.OpAnd || len(and.Conditions) != 0 {
		t.Errorf("first child = %#v, want empty AND", or.Conditions[0])
	}
	if not, ok := or.Conditions[1].(*rules.Not); !ok || not.Condition != nil {
		t.Errorf("second child = %#v, want empty NOT", or.Conditions[1])
	}
	count, ok := or.Conditions[2].(*rules.RoomDataCount)
	if !ok || count.Op != rules.NotEqual || count.Count != 2 || len(count.Rooms) != 2 || count.Rooms[1] != d.Rooms["y"] {
		t.Errorf("third child = %#v, want != 2 over x, y", or.Conditions[2])
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no dungeon", `Room "x" {}`, "no Dungeon{} definition"},
		{"bad from", compileHeader + `Transition { from = 3, to = "a" }`, "from must be"},
		{"bad to", compileHeader + `Transition { from = "a" }`, "to must be"},
		{"bad alias entry", compileHeader + `Transition { from = { "a", 1 }, to = "b" }`, "entry 2"},
		{"bad weighted entry", compileHeader + `Rule "w" { chooser = Weighted { "x" } }`, "not a {room, weight} pair"},
		{"bad class list", compileHeader + `Transition { from = "a", to = "b", condition = RoomCount { op = ">", count = 1, classes = { 4 } } }`, "room_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString("test.lua", tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadString() error = %v, want %q", err, tt.want)
			}
		})
	}
}
