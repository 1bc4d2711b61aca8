package loader

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing name",
			src:  `Dungeon { first = "a" } Room "x" {} Rule "a" { chooser = Single "x" }`,
			want: "Dungeon.name is required",
		},
		{
			name: "missing first",
			src:  `Dungeon { name = "D" } Room "x" {} Rule "a" { chooser = Single "x" }`,
			want: "Dungeon.first is required",
		},
		{
			name: "first is a conduit",
			src:  `Dungeon { name = "D", first = "c" } Conduit "c" {}`,
			want: `first rule "c" not found`,
		},
		{
			name: "negative max rooms",
			src:  `Dungeon { name = "D", first = "a", max_rooms = -1 } Room "x" {} Rule "a" { chooser = Single "x" }`,
			want: "max_rooms must not be negative",
		},
		{
			name: "duplicate room",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Room "x" {} Rule "a" { chooser = Single "x" }`,
			want: `duplicate room ID "x"`,
		},
		{
			name: "rule and conduit share a name",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Conduit "a" {}`,
			want: `duplicate node ID "a" (already a rule)`,
		},
		{
			name: "unknown chooser room",
			src:  `Dungeon { name = "D", first = "a" } Rule "a" { chooser = Single "ghost" }`,
			want: `references undefined room "ghost"`,
		},
		{
			name: "empty random chooser",
			src:  `Dungeon { name = "D", first = "a" } Rule "a" { chooser = Random {} }`,
			want: `rule "a" chooser has no room`,
		},
		{
			name: "unknown source",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Transition { from = "b", to = "a" }`,
			want: `comes from undefined node "b"`,
		},
		{
			name: "unknown target",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Transition { from = "a", to = "b" }`,
			want: `leads to undefined node "b"`,
		},
		{
			name: "conduit in alias",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Conduit "c" {} Transition { from = { "a", "c" }, to = "a" }`,
			want: `lists conduit "c" in a rule alias`,
		},
		{
			name: "bad operator",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Transition { from = "a", to = Stop, condition = RoomCount { op = "=>", count = 1 } }`,
			want: `unknown comparison operator "=>"`,
		},
		{
			name: "priority above int32",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Transition { from = "a", to = Stop, priority = 2147483648 }`,
			want: "priority 2147483648 is outside -2147483648..2147483647",
		},
		{
			name: "priority below int32",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Transition { from = "a", to = Stop, priority = -2147483649 }`,
			want: "priority -2147483649 is outside",
		},
		{
			name: "conduit loop",
			src: `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" }
Conduit "c1" {} Conduit "c2" {}
Transition { from = "a", to = "c1" }
Transition { from = "c1", to = "c2" }
Transition { from = "c2", to = "c1" }`,
			want: "conduits lead into each other in a loop: c1 -> c2 -> c1",
		},
		{
			name: "conduit into itself",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Conduit "c" {} Transition { from = "c", to = "c" }`,
			want: "in a loop: c -> c",
		},
		{
			name: "unknown counted room",
			src:  `Dungeon { name = "D", first = "a" } Room "x" {} Rule "a" { chooser = Single "x" } Transition { from = "a", to = Stop, condition = Or { RoomDataCount { op = "==", count = 1, rooms = { "ghost" } } } }`,
			want: `counts undefined room "ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString("test.lua", tt.src)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("LoadString() error = %v, want a *ValidationError", err)
			}
			if !strings.Contains(ve.Error(), tt.want) {
				t.Errorf("errors = %v, want %q", ve.Errors, tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	_, err := LoadString("test.lua", `Dungeon {} Rule "a" { chooser = Single "ghost" }`)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("LoadString() error = %v, want a *ValidationError", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidate_Warnings(t *testing.T) {
	d, err := LoadString("test.lua", `
Dungeon { name = "D", first = "a" }
Room "x" {}
Room "unused" {}
Room "closet" { doors = 0 }
Rule "a" { chooser = Weighted { { "x", 1 }, { "closet", 0 } } }
Rule "idle" {}
Conduit "nowhere" {}
Transition { from = "a", to = Stop, condition = Not() }
`)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	all := strings.Join(d.Warnings, "\n")
	for _, want := range []string{
		`room "unused" is not used by any rule`,
		`room "closet" has no door`,
		`gives room "closet" weight 0`,
		`rule "idle" has no chooser`,
		`Not() is always false`,
		`conduit "nowhere" has no outgoing transition`,
		`rule "idle" is unreachable`,
	} {
		if !strings.Contains(all, want) {
			t.Errorf("warnings missing %q:\n%s", want, all)
		}
	}
}

func TestValidate_PriorityLimitsAccepted(t *testing.T) {
	d, err := LoadString("test.lua", `
Dungeon { name = "D", first = "a" }
Room "x" {}
Rule "a" { chooser = Single "x" }
Rule "low" { chooser = Single "x" }
Rule "high" { chooser = Single "x" }
Transition { from = "a", to = "low", priority = 2147483647 }
Transition { from = "a", to = "high", priority = -2147483648 }
`)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	a, err := d.Rules.RuleByName("a")
	if err != nil {
		t.Fatal(err)
	}
	if next, ok := a.NextRule(nil, nil); !ok || next.Name() != "high" {
		t.Errorf("NextRule() = %v, %v, want high", next, ok)
	}
}

func TestValidate_ConduitChainAccepted(t *testing.T) {
	d, err := LoadString("test.lua", `
Dungeon { name = "D", first = "a" }
Room "x" {}
Rule "a" { chooser = Single "x" }
Conduit "c1" {} Conduit "c2" {}
Transition { from = "a", to = "c1" }
Transition { from = "c1", to = "c2" }
Transition { from = "c2", to = "a" }
`)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	a, err := d.Rules.RuleByName("a")
	if err != nil {
		t.Fatal(err)
	}
	if next := d.Rules.NextRule(nil, a, nil); next != a {
		t.Errorf("NextRule() = %v, want a", next)
	}
}
