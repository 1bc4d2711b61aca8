package rules

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/nathoo/dungeonrules/types"
)

func mustBuild(t *testing.T, b *Builder) *RuleSet {
	t.Helper()
	rs, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return rs
}

func mustRule(t *testing.T, rs *RuleSet, id RuleID) *Rule {
	t.Helper()
	r, ok := rs.Rule(id)
	if !ok {
		t.Fatalf("Rule(%d) does not resolve", id)
	}
	return r
}

func ruleName(r *Rule) string {
	if r == nil {
		return "<nil>"
	}
	return r.Name()
}

func TestTransitionTieBreak(t *testing.T) {
	b := NewBuilder("tie")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	a := b.AddRule("a", &SingleRoom{Room: roomCorridor})
	bb := b.AddRule("b", &SingleRoom{Room: roomVault})
	b.SetFirstRule(start)
	b.AddTransition(FromRule(start), ToRule(a), 5, Always)
	b.AddTransition(FromRule(start), ToRule(bb), 5, Always)
	rs := mustBuild(t, b)

	next, ok := mustRule(t, rs, start).NextRule(&testContext{}, nil)
	if !ok || ruleName(next) != "a" {
		t.Errorf("NextRule() = (%s, %v), want (a, true)", ruleName(next), ok)
	}
}

func TestTransitionPriorityOverride(t *testing.T) {
	b := NewBuilder("override")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	a := b.AddRule("a", &SingleRoom{Room: roomCorridor})
	bb := b.AddRule("b", &SingleRoom{Room: roomVault})
	c := b.AddRule("c", &SingleRoom{Room: roomStairs})
	b.SetFirstRule(start)
	b.AddTransition(FromRule(start), ToRule(a), 10, Always)
	b.AddTransition(FromRule(start), ToRule(bb), 1, Always)
	// Failing conditions never override, whatever their priority.
	b.AddTransition(FromRule(start), ToRule(c), 0, Never)
	rs := mustBuild(t, b)

	next := rs.NextRule(&testContext{}, mustRule(t, rs, start), nil)
	if ruleName(next) != "b" {
		t.Errorf("NextRule() = %s, want b", ruleName(next))
	}
}

func TestTransitionMaxPriorityMatches(t *testing.T) {
	b := NewBuilder("max")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	a := b.AddRule("a", &SingleRoom{Room: roomCorridor})
	b.SetFirstRule(start)
	b.AddTransition(FromRule(start), ToRule(a), 1<<31-1, nil)
	rs := mustBuild(t, b)

	next, ok := mustRule(t, rs, start).NextRule(&testContext{}, nil)
	if !ok || ruleName(next) != "a" {
		t.Errorf("NextRule() = (%s, %v), want (a, true)", ruleName(next), ok)
	}
}

func TestNextRuleCascade(t *testing.T) {
	b := NewBuilder("cascade")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	treasure := b.AddRule("treasure", &SingleRoom{Room: roomVault})
	exit := b.AddRule("exit", &SingleRoom{Room: roomStairs})
	b.SetFirstRule(start)

	b.AddTransition(FromRule(start), ToRule(treasure), 0, &RoomClassCount{Op: GreaterEqual, Count: 3})
	b.AddTransition(FromAny(), ToRule(exit), 0, &RoomClassCount{Classes: []string{"Treasure"}, Op: GreaterEqual, Count: 1})
	b.AddTransition(FromRule(exit), ToStop(), 0, nil)
	rs := mustBuild(t, b)

	startRule := mustRule(t, rs, start)
	treasureRule := mustRule(t, rs, treasure)
	exitRule := mustRule(t, rs, exit)

	tests := []struct {
		name    string
		current *Rule
		placed  []*types.RoomData
		want    *Rule
	}{
		{"nil current", nil, nil, nil},
		{"self loop", startRule, []*types.RoomData{roomHall}, startRule},
		{"local transition", startRule, []*types.RoomData{roomHall, roomHall, roomHall}, treasureRule},
		{"local wins over global", startRule, []*types.RoomData{roomHall, roomVault, roomHall}, treasureRule},
		{"global fallback", treasureRule, []*types.RoomData{roomVault}, exitRule},
		{"global not matching", treasureRule, []*types.RoomData{roomHall}, treasureRule},
		{"stop", exitRule, []*types.RoomData{roomVault}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &testContext{placed: tt.placed}
			if got := rs.NextRule(ctx, tt.current, nil); got != tt.want {
				t.Errorf("NextRule() = %s, want %s", ruleName(got), ruleName(tt.want))
			}
		})
	}
}

func TestRuleWithoutTransitions(t *testing.T) {
	b := NewBuilder("lonely")
	only := b.AddRule("only", &SingleRoom{Room: roomHall})
	b.SetFirstRule(only)
	rs := mustBuild(t, b)

	r := mustRule(t, rs, only)
	if next, ok := r.NextRule(&testContext{}, nil); ok || next != nil {
		t.Errorf("Rule.NextRule() = (%s, %v), want (<nil>, false)", ruleName(next), ok)
	}
	if got := rs.NextRule(&testContext{}, r, nil); got != r {
		t.Errorf("RuleSet.NextRule() = %s, want only", ruleName(got))
	}
}

func TestConduitGating(t *testing.T) {
	b := NewBuilder("conduit")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	small := b.AddRule("small", &SingleRoom{Room: roomCorridor})
	big := b.AddRule("big", &SingleRoom{Room: roomVault})
	fallback := b.AddRule("fallback", &SingleRoom{Room: roomStairs})
	split := b.AddConduit("split")
	b.SetFirstRule(start)

	// Inbound transition has no condition; only the conduit gates it.
	b.AddTransition(FromRule(start), ToConduit(split), 0, nil)
	b.AddTransition(FromRule(start), ToRule(fallback), 10, nil)
	b.AddTransition(FromConduit(split), ToRule(small), 0, &RoomClassCount{Op: Equal, Count: 2})
	b.AddTransition(FromConduit(split), ToRule(big), 1, &RoomClassCount{Op: GreaterEqual, Count: 5})
	rs := mustBuild(t, b)
	startRule := mustRule(t, rs, start)

	tests := []struct {
		name  string
		rooms int
		want  string
	}{
		{"all conduit branches fail", 3, "fallback"},
		{"first branch", 2, "small"},
		{"second branch", 6, "big"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &testContext{placed: slices.Repeat([]*types.RoomData{roomHall}, tt.rooms)}
			if got := rs.NextRule(ctx, startRule, nil); ruleName(got) != tt.want {
				t.Errorf("NextRule() = %s, want %s", ruleName(got), tt.want)
			}
		})
	}
}

func TestConduitEvaluatesConditionsTwice(t *testing.T) {
	b := NewBuilder("twice")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	end := b.AddRule("end", &SingleRoom{Room: roomStairs})
	c := b.AddConduit("c")
	b.SetFirstRule(start)
	counting := &countingCondition{result: true}
	b.AddTransition(FromRule(start), ToConduit(c), 0, nil)
	b.AddTransition(FromConduit(c), ToRule(end), 0, counting)
	rs := mustBuild(t, b)

	if got := rs.NextRule(&testContext{}, mustRule(t, rs, start), nil); ruleName(got) != "end" {
		t.Fatalf("NextRule() = %s, want end", ruleName(got))
	}
	if counting.calls != 2 {
		t.Errorf("conduit branch evaluated %d times, want 2", counting.calls)
	}
}

func TestEmptyConduitIsNeverEntered(t *testing.T) {
	b := NewBuilder("empty")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	c := b.AddConduit("dead_end")
	b.SetFirstRule(start)
	b.AddTransition(FromRule(start), ToConduit(c), 0, Always)
	rs := mustBuild(t, b)

	startRule := mustRule(t, rs, start)
	if next, ok := startRule.NextRule(&testContext{}, nil); ok {
		t.Errorf("NextRule() = (%s, true), want no match", ruleName(next))
	}
}

func TestDanglingHandlesAreSkipped(t *testing.T) {
	b := NewBuilder("dangling")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	gone := b.AddRule("gone", &SingleRoom{Room: roomVault})
	kept := b.AddRule("kept", &SingleRoom{Room: roomCorridor})
	b.SetFirstRule(start)
	toGone := b.AddTransition(FromRule(start), ToRule(gone), 0, Always)
	removed := b.AddTransition(FromRule(start), ToRule(kept), 1, Always)
	b.AddTransition(FromRule(start), ToRule(kept), 2, Always)
	b.RemoveRule(gone)
	b.RemoveTransition(removed)
	rs := mustBuild(t, b)

	startRule := mustRule(t, rs, start)
	if got := startRule.Transitions(); len(got) != 3 {
		t.Fatalf("Transitions() = %v, want 3 handles", got)
	}
	if next, ok := startRule.NextRule(&testContext{}, nil); !ok || ruleName(next) != "kept" {
		t.Errorf("NextRule() = (%s, %v), want (kept, true)", ruleName(next), ok)
	}

	tr, ok := rs.Transition(toGone)
	if !ok {
		t.Fatalf("Transition(%d) does not resolve", toGone)
	}
	if got := tr.NextName(); !strings.HasPrefix(got, "<invalid") {
		t.Errorf("NextName() = %q, want invalid marker", got)
	}

	problems := strings.Join(rs.Validate(), "\n")
	for _, want := range []string{"no longer exists", "rule#1"} {
		if !strings.Contains(problems, want) {
			t.Errorf("Validate() = %q, missing %q", problems, want)
		}
	}
}

func TestRoomDataQueries(t *testing.T) {
	b := NewBuilder("rooms")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	empty := b.AddRule("empty", nil)
	broken := b.AddRule("broken", &CustomChooser{Name: "broken"})
	b.SetFirstRule(start)
	rs := mustBuild(t, b)
	ctx := &testContext{}

	room, err := rs.FirstRoomData(ctx, mustRule(t, rs, start))
	if err != nil || room != roomHall {
		t.Errorf("FirstRoomData(start) = (%v, %v), want (hall, nil)", room, err)
	}
	room, door, err := rs.NextRoomData(ctx, mustRule(t, rs, start), roomVault, types.DoorDef{})
	if err != nil || room != roomHall || door != AnyDoor {
		t.Errorf("NextRoomData(start) = (%v, %d, %v), want (hall, %d, nil)", room, door, err, AnyDoor)
	}

	tests := []struct {
		name    string
		current *Rule
		want    error
	}{
		{"no current rule", nil, ErrNoCurrentRule},
		{"no chooser", mustRule(t, rs, empty), ErrNoRoomChooser},
		{"chooser returns nothing", mustRule(t, rs, broken), ErrNoRoomData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := rs.FirstRoomData(ctx, tt.current)
			if room != nil || !errors.Is(err, tt.want) {
				t.Errorf("FirstRoomData() = (%v, %v), want (nil, %v)", room, err, tt.want)
			}
			room, door, err := rs.NextRoomData(ctx, tt.current, roomHall, types.DoorDef{})
			if room != nil || door != AnyDoor || !errors.Is(err, tt.want) {
				t.Errorf("NextRoomData() = (%v, %d, %v), want (nil, %d, %v)", room, door, err, AnyDoor, tt.want)
			}
		})
	}
}

func TestBuildFirstRuleIsMember(t *testing.T) {
	b := NewBuilder("members")
	var ids []RuleID
	for _, name := range []string{"a", "b", "c", "d"} {
		ids = append(ids, b.AddRule(name, &SingleRoom{Room: roomHall}))
	}
	for i := range ids {
		b.AddTransition(FromRule(ids[i]), ToRule(ids[(i+1)%len(ids)]), int32(i), nil)
	}
	b.SetFirstRule(ids[2])
	rs := mustBuild(t, b)

	first := rs.FirstRule()
	if first == nil {
		t.Fatal("FirstRule() = nil")
	}
	if !slices.Contains(rs.Rules(), first) {
		t.Errorf("FirstRule() = %s, not a member of Rules()", first.Name())
	}
	if len(rs.Transitions()) != 4 {
		t.Errorf("len(Transitions()) = %d, want 4", len(rs.Transitions()))
	}
	if problems := rs.Validate(); len(problems) != 0 {
		t.Errorf("Validate() = %v, want none", problems)
	}
}

func TestBuildErrors(t *testing.T) {
	b := NewBuilder("errors")
	if _, err := b.Build(); !errors.Is(err, ErrNoFirstRule) {
		t.Errorf("Build() without first rule error = %v, want %v", err, ErrNoFirstRule)
	}

	first := b.AddRule("first", &SingleRoom{Room: roomHall})
	b.SetFirstRule(first)
	b.RemoveRule(first)
	if _, err := b.Build(); !errors.Is(err, ErrNoFirstRule) {
		t.Errorf("Build() with removed first rule error = %v, want %v", err, ErrNoFirstRule)
	}

	b.Clear()
	r := b.AddRule("r", &SingleRoom{Room: roomHall})
	b.SetFirstRule(r)
	b.AddTransition(FromRule(RuleID(7)), ToRule(r), 0, nil)
	if _, err := b.Build(); err == nil || !strings.Contains(err.Error(), "unknown source rule 7") {
		t.Errorf("Build() error = %v, want unknown source rule", err)
	}
}

func TestBuildRejectsConduitLoops(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder, start RuleID, end RuleID)
		want  string
	}{
		{
			name: "two conduits",
			build: func(b *Builder, start, end RuleID) {
				a := b.AddConduit("a")
				c := b.AddConduit("b")
				b.AddTransition(FromRule(start), ToConduit(a), 0, nil)
				b.AddTransition(FromConduit(a), ToConduit(c), 0, nil)
				b.AddTransition(FromConduit(c), ToConduit(a), 0, nil)
			},
			want: "a -> b -> a",
		},
		{
			name: "self loop behind an exit",
			build: func(b *Builder, start, end RuleID) {
				a := b.AddConduit("a")
				b.AddTransition(FromRule(start), ToConduit(a), 0, nil)
				b.AddTransition(FromConduit(a), ToRule(end), 1, Never)
				b.AddTransition(FromConduit(a), ToConduit(a), 0, nil)
			},
			want: "a -> a",
		},
		{
			name: "unreachable loop",
			build: func(b *Builder, start, end RuleID) {
				x := b.AddConduit("x")
				y := b.AddConduit("y")
				z := b.AddConduit("z")
				b.AddTransition(FromConduit(x), ToConduit(y), 0, nil)
				b.AddTransition(FromConduit(y), ToConduit(z), 0, nil)
				b.AddTransition(FromConduit(z), ToConduit(y), 0, nil)
			},
			want: "y -> z -> y",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("loop")
			start := b.AddRule("start", &SingleRoom{Room: roomHall})
			end := b.AddRule("end", &SingleRoom{Room: roomStairs})
			b.SetFirstRule(start)
			tt.build(b, start, end)

			rs, err := b.Build()
			if !errors.Is(err, ErrConduitCycle) {
				t.Fatalf("Build() = (%v, %v), want %v", rs, err, ErrConduitCycle)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build() error = %q, want the loop %q", err, tt.want)
			}
		})
	}
}

func TestBuildAcceptsChainedConduits(t *testing.T) {
	b := NewBuilder("chain")
	start := b.AddRule("start", &SingleRoom{Room: roomHall})
	end := b.AddRule("end", &SingleRoom{Room: roomStairs})
	b.SetFirstRule(start)
	a := b.AddConduit("a")
	c := b.AddConduit("b")
	b.AddTransition(FromRule(start), ToConduit(a), 0, nil)
	b.AddTransition(FromRule(end), ToConduit(a), 0, nil)
	b.AddTransition(FromConduit(a), ToConduit(c), 0, nil)
	b.AddTransition(FromConduit(c), ToRule(end), 0, nil)
	b.AddTransition(FromConduit(c), ToRule(start), 1, nil)
	rs := mustBuild(t, b)

	if next := rs.NextRule(&testContext{}, mustRule(t, rs, start), nil); ruleName(next) != "end" {
		t.Errorf("NextRule() = %s, want end", ruleName(next))
	}
}

func TestBuildIsolatedFromBuilder(t *testing.T) {
	b := NewBuilder("isolated")
	a := b.AddRule("a", &SingleRoom{Room: roomHall})
	c := b.AddRule("c", &SingleRoom{Room: roomVault})
	b.SetFirstRule(a)
	b.AddTransition(FromRule(a), ToRule(c), 0, nil)
	rs := mustBuild(t, b)

	b.AddTransition(FromRule(a), ToStop(), -1, nil)
	b.RemoveRule(c)

	if got := rs.NextRule(&testContext{}, rs.FirstRule(), nil); ruleName(got) != "c" {
		t.Errorf("NextRule() after builder edits = %s, want c", ruleName(got))
	}
}

func TestAliasAndGlobalSources(t *testing.T) {
	b := NewBuilder("alias")
	a := b.AddRule("a", &SingleRoom{Room: roomHall})
	c := b.AddRule("c", &SingleRoom{Room: roomCorridor})
	end := b.AddRule("end", &SingleRoom{Room: roomStairs})
	b.SetFirstRule(a)
	shared := b.AddTransition(FromRules(a, c, a), ToRule(end), 0, nil)
	global := b.AddTransition(FromAny(), ToStop(), 0, nil)
	b.AddTransition(FromRule(a), ToRule(c), 1, nil)
	rs := mustBuild(t, b)

	if got := mustRule(t, rs, a).Transitions(); !slices.Equal(got, []TransitionID{shared, 2}) {
		t.Errorf("a.Transitions() = %v, want [%d 2]", got, shared)
	}
	if got := mustRule(t, rs, c).Transitions(); !slices.Equal(got, []TransitionID{shared}) {
		t.Errorf("c.Transitions() = %v, want [%d]", got, shared)
	}
	globals := rs.GlobalTransitions()
	if len(globals) != 1 || globals[0].ID() != global {
		t.Errorf("GlobalTransitions() = %v, want [%d]", globals, global)
	}
	// end has no transitions: the global Stop ends the machine.
	if got := rs.NextRule(&testContext{}, mustRule(t, rs, end), nil); got != nil {
		t.Errorf("NextRule(end) = %s, want <nil>", ruleName(got))
	}
}

func TestRuleByName(t *testing.T) {
	b := NewBuilder("names")
	b.SetFirstRule(b.AddRule("entrance", &SingleRoom{Room: roomHall}))
	rs := mustBuild(t, b)

	if r, err := rs.RuleByName("entrance"); err != nil || r.Name() != "entrance" {
		t.Errorf("RuleByName(entrance) = (%s, %v)", ruleName(r), err)
	}
	if _, err := rs.RuleByName("missing"); !errors.Is(err, ErrUnknownRule) {
		t.Errorf("RuleByName(missing) error = %v, want %v", err, ErrUnknownRule)
	}
}

func TestDescriptions(t *testing.T) {
	b := NewBuilder("descriptions")
	a := b.AddRule("a", &SingleRoom{Room: roomHall})
	none := b.AddRule("none", nil)
	b.SetFirstRule(a)
	tr := b.AddTransition(FromRule(a), ToRule(none), 0, nil)
	rs := mustBuild(t, b)

	if got, want := mustRule(t, rs, none).Description(), "Return None"; got != want {
		t.Errorf("Rule.Description() = %q, want %q", got, want)
	}
	transition, _ := rs.Transition(tr)
	if got, want := transition.Description(), "Always true."; got != want {
		t.Errorf("Transition.Description() = %q, want %q", got, want)
	}
	if got, want := transition.NextName(), "none"; got != want {
		t.Errorf("Transition.NextName() = %q, want %q", got, want)
	}
}

func TestValidateFindings(t *testing.T) {
	b := NewBuilder("findings")
	a := b.AddRule("a", &SingleRoom{Room: roomHall})
	b.AddRule("island", &SingleRoom{Room: roomVault})
	b.AddRule("chooserless", nil)
	b.AddConduit("empty")
	b.SetFirstRule(a)
	rs := mustBuild(t, b)

	problems := strings.Join(rs.Validate(), "\n")
	for _, want := range []string{
		`rule "island" is unreachable`,
		`rule "chooserless" has no room chooser`,
		`conduit "empty" has no outgoing transition`,
	} {
		if !strings.Contains(problems, want) {
			t.Errorf("Validate() = %q, missing %q", problems, want)
		}
	}
}

func TestRuleSetConcurrentUse(t *testing.T) {
	b := NewBuilder("shared")
	start := b.AddRule("start", &RandomRoom{Rooms: []*types.RoomData{roomHall, roomCorridor}})
	end := b.AddRule("end", &SingleRoom{Room: roomStairs})
	b.SetFirstRule(start)
	b.AddTransition(FromRule(start), ToRule(end), 0, &RoomClassCount{Op: GreaterEqual, Count: 4})
	b.AddTransition(FromRule(end), ToStop(), 0, nil)
	rs := mustBuild(t, b)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := &testContext{pick: i % 2}
			current := rs.FirstRule()
			for current != nil && len(ctx.placed) < 100 {
				var room *types.RoomData
				if len(ctx.placed) == 0 {
					room, _ = rs.FirstRoomData(ctx, current)
				} else {
					room, _, _ = rs.NextRoomData(ctx, current, ctx.placed[len(ctx.placed)-1], types.DoorDef{})
				}
				ctx.placed = append(ctx.placed, room)
				current = rs.NextRule(ctx, current, room)
			}
			results[i] = len(ctx.placed)
		}()
	}
	wg.Wait()

	for i, n := range results {
		if n != 5 {
			t.Errorf("run %d placed %d rooms, want 5", i, n)
		}
	}
}
