package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/nathoo/dungeonrules/engine"
)

const (
	panelWidth    = 26 // including the border
	minPanelWidth = 72 // narrower terminals hide the panel
)

func (m Model) panelVisible() bool {
	return m.showPanel && m.width >= minPanelWidth
}

// renderPanel lists the rule graph with the current rule marked, followed
// by the classes placed so far.
func (m Model) renderPanel(height int) string {
	rs := m.engine.Dungeon.Rules
	current := m.engine.Gen.CurrentRule()
	inner := panelWidth - 2

	lines := []string{stylePanelTitle.Render("Rules")}
	for _, r := range rs.Rules() {
		if r == current {
			lines = append(lines, stylePanelCurrent.Render(ansi.Truncate("> "+r.Name(), inner, "…")))
			continue
		}
		lines = append(lines, stylePanelItem.Render(ansi.Truncate("  "+r.Name(), inner, "…")))
	}
	for _, c := range rs.Conduits() {
		lines = append(lines, stylePanelConduit.Render(ansi.Truncate("  ~"+c.Name(), inner, "…")))
	}
	if current == nil {
		lines = append(lines, stylePanelCurrent.Render("> Stop"))
	}

	if rooms := m.engine.Gen.Rooms(); len(rooms) > 0 {
		lines = append(lines, "", stylePanelTitle.Render("Classes"))
		for _, c := range strings.Split(engine.ClassSummary(rooms), ", ") {
			lines = append(lines, stylePanelItem.Render(ansi.Truncate("  "+c, inner, "…")))
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return stylePanel.Width(panelWidth - 1).Height(height).Render(strings.Join(lines, "\n"))
}
