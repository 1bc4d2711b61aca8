package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/dungeonrules/generator"
)

// renderStatusBar produces a full-width inverted status line showing the
// dungeon, current rule, room count and seed.
func (m Model) renderStatusBar() string {
	e := m.engine
	g := e.Gen

	rule := "Stop"
	if r := g.CurrentRule(); r != nil {
		rule = r.Name()
	}
	limit := g.MaxRooms
	if limit <= 0 {
		limit = generator.DefaultMaxRooms
	}

	state := "generating"
	switch {
	case e.Finished() && e.Err() != nil:
		state = "rejected"
	case e.Finished():
		state = "complete"
	}

	left := fmt.Sprintf(" %s | Rule: %s | Rooms: %d/%d", e.Dungeon.Name, rule, g.RoomCount(), limit)
	right := fmt.Sprintf("%s | Seed: %d ", state, g.Seed())
	if m.meta.Trace {
		right = "trace | " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		// Drop the seed when space runs out.
		right = state + " "
		gap = max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
