package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	styleText        = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleRoomIndex   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	styleTransition  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	styleHeading     = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true)
	styleDone        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleSystem      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	styleError       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleInput       = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	styleTrace       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("238")).
			PaddingLeft(1)
	stylePanelTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true)
	stylePanelItem    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	stylePanelCurrent = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	stylePanelConduit = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
)

type lineKind int

const (
	kindText lineKind = iota
	kindInput
	kindRoom
	kindTransition
	kindHeading
	kindDone
	kindSystem
	kindError
	kindTrace
)

// classifyLine picks the style of an engine output line from its shape.
func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "#"):
		return kindRoom
	case strings.HasPrefix(trimmed, "->"):
		return kindTransition
	case strings.HasPrefix(line, "Dungeon:"),
		strings.HasPrefix(line, "Rule set:"),
		strings.HasPrefix(trimmed, "conduit "),
		trimmed == "any rule:":
		return kindHeading
	case strings.HasPrefix(line, "The dungeon is complete"),
		strings.HasPrefix(line, "New "):
		return kindDone
	case strings.HasPrefix(line, "The dungeon was rejected"),
		strings.HasPrefix(line, "Could not"),
		strings.HasPrefix(line, "I don't know"),
		strings.Contains(line, "rejected ("):
		return kindError
	default:
		return kindText
	}
}

// render styles an already wrapped line.
func render(text string, kind lineKind) string {
	switch kind {
	case kindInput:
		return styleInput.Render(text)
	case kindRoom:
		// Highlight the "#3" index only.
		if i := strings.IndexByte(text, ' '); i > 0 {
			return styleRoomIndex.Render(text[:i]) + styleText.Render(text[i:])
		}
		return styleRoomIndex.Render(text)
	case kindTransition:
		return styleTransition.Render(text)
	case kindHeading:
		return styleHeading.Render(text)
	case kindDone:
		return styleDone.Render(text)
	case kindSystem:
		return styleSystem.Render(text)
	case kindError:
		return styleError.Render(text)
	case kindTrace:
		return styleTrace.Render(text)
	default:
		return styleText.Render(text)
	}
}
