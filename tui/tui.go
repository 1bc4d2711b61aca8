// Package tui provides a Bubble Tea terminal UI for stepping through a
// dungeon generation.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nathoo/dungeonrules/cli"
	"github.com/nathoo/dungeonrules/engine"
	"github.com/nathoo/dungeonrules/history"
)

// Options configures a Model.
type Options struct {
	History *history.History // nil disables /history
	SaveDir string           // empty uses cli.DefaultSaveDir
	Trace   bool
}

type keyMap struct {
	Quit     key.Binding
	Submit   key.Binding
	Step     key.Binding
	Run      key.Binding
	Panel    key.Binding
	Older    key.Binding
	Newer    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("Ctrl+C", "quit")),
		Submit:   key.NewBinding(key.WithKeys("enter")),
		Step:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("Ctrl+N", "step")),
		Run:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("Ctrl+R", "run")),
		Panel:    key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("Ctrl+P", "rules panel")),
		Older:    key.NewBinding(key.WithKeys("up"), key.WithHelp("Up/Down", "command history")),
		Newer:    key.NewBinding(key.WithKeys("down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp/PgDn", "scroll")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}
}

// helpLines describes the bindings that carry help text.
func (k keyMap) helpLines() []string {
	lines := []string{"", "Keys:"}
	for _, b := range []key.Binding{k.Step, k.Run, k.Panel, k.Older, k.PageUp, k.Quit} {
		h := b.Help()
		lines = append(lines, fmt.Sprintf("  %-16s %s", h.Key, h.Desc))
	}
	return lines
}

type logLine struct {
	text string
	kind lineKind
}

// introMsg carries the session start output into Update.
type introMsg struct{ lines []logLine }

// Model is the Bubble Tea model for the DungeonRules TUI.
type Model struct {
	engine *engine.Engine
	meta   *cli.Meta
	keys   keyMap

	log    viewport.Model
	input  textinput.Model
	recall *recall
	lines  []logLine // unwrapped, re-rendered on resize

	width     int
	height    int
	ready     bool
	quitting  bool
	showPanel bool
	lastCmd   string
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.CharLimit = 256
	ti.Focus()

	saveDir := opts.SaveDir
	if saveDir == "" {
		saveDir = cli.DefaultSaveDir()
	}
	keys := defaultKeys()
	return Model{
		engine: eng,
		meta: &cli.Meta{
			Engine:  eng,
			History: opts.History,
			SaveDir: saveDir,
			Trace:   opts.Trace,
			Keys:    keys.helpLines(),
		},
		keys:      keys,
		input:     ti,
		recall:    newRecall(100),
		showPanel: true,
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, opts Options) error {
	p := tea.NewProgram(New(eng, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init produces the dungeon summary and the first status.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg {
		summary, warnings := cli.Intro(m.engine)
		var lines []logLine
		for _, s := range summary {
			lines = append(lines, logLine{s, kindText})
		}
		for _, w := range warnings {
			lines = append(lines, logLine{w, kindSystem})
		}
		lines = append(lines, logLine{"Type /help for commands.", kindText}, logLine{})
		for _, s := range m.engine.Step("look").Output {
			lines = append(lines, logLine{s, classifyLine(s)})
		}
		return introMsg{lines}
	})
}

// Update handles key presses, resizes and the intro.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case introMsg:
		m.lines = append(m.lines, msg.lines...)
		m.lines = append(m.lines, logLine{})
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m.submit(m.input.Value())
		case key.Matches(msg, m.keys.Step):
			return m.submit("step")
		case key.Matches(msg, m.keys.Run):
			return m.submit("run")
		case key.Matches(msg, m.keys.Panel):
			m.showPanel = !m.showPanel
			m.layout()
			return m, nil
		case key.Matches(msg, m.keys.Older):
			if s, ok := m.recall.Older(m.input.Value()); ok {
				m.input.SetValue(s)
				m.input.CursorEnd()
			}
			return m, nil
		case key.Matches(msg, m.keys.Newer):
			if s, ok := m.recall.Newer(); ok {
				m.input.SetValue(s)
				m.input.CursorEnd()
			}
			return m, nil
		case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs one line of input and refreshes the log.
func (m Model) submit(raw string) (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(raw)
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}
	quit := m.exec(input)
	m.refresh()
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// exec handles a slash command, "again", or a session command for the
// engine. It reports whether the session should end.
func (m *Model) exec(input string) bool {
	m.recall.Add(input)
	m.lines = append(m.lines, logLine{"> " + input, kindInput})

	if cli.IsMeta(input) {
		reply := m.meta.Handle(input)
		for _, n := range reply.Notes {
			m.lines = append(m.lines, logLine{"[" + n + "]", kindSystem})
		}
		m.appendOutput(reply.Lines)
		return reply.Quit
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m.appendOutput([]string{"Nothing to repeat."})
			return false
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	result := m.engine.Step(input)
	output := result.Output
	if m.meta.Trace {
		output = append(output, cli.TraceLines(result)...)
	}
	m.appendOutput(output)
	return false
}

// appendOutput adds engine lines and a blank separator.
func (m *Model) appendOutput(lines []string) {
	for _, s := range lines {
		m.lines = append(m.lines, logLine{s, classifyLine(s)})
	}
	m.lines = append(m.lines, logLine{})
}

// layout sizes the log and input to the window.
func (m *Model) layout() {
	h := max(m.height-2, 1) // status bar + input line
	w := m.width
	if m.panelVisible() {
		w -= panelWidth
	}
	w = max(w, 10)

	if !m.ready {
		m.log = viewport.New(w, h)
		m.log.KeyMap = logKeys()
		m.ready = true
	} else {
		m.log.Width = w
		m.log.Height = h
	}
	m.input.Width = max(m.width-lipgloss.Width(m.input.Prompt)-1, 1)
	m.refresh()
}

// refresh re-wraps every line at the log width.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	styled := make([]string, len(m.lines))
	for i, l := range m.lines {
		if l.text == "" {
			continue
		}
		styled[i] = render(wrap(l.text, m.log.Width), l.kind)
	}
	m.log.SetContent(strings.Join(styled, "\n"))
	m.log.GotoBottom()
}

// wrap breaks text at spaces to fit width, splitting words longer than
// the width.
func wrap(text string, width int) string {
	if width <= 0 || ansi.StringWidth(text) <= width {
		return text
	}
	return ansi.Wrap(text, width, "")
}

// View renders the log with the rules panel, the status bar and the input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	body := m.log.View()
	if m.panelVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderPanel(m.log.Height))
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar(), m.input.View())
}

// logKeys leaves Up/Down to the command history.
func logKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
