package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nathoo/dungeonrules/engine"
	"github.com/nathoo/dungeonrules/history"
	"github.com/nathoo/dungeonrules/report"
)

// Meta runs the slash commands both front ends share.
type Meta struct {
	Engine  *engine.Engine
	History *history.History // nil disables /history
	SaveDir string
	Trace   bool
	Keys    []string // extra help lines, e.g. key bindings
}

// Reply is the outcome of one slash command. Notes are short status
// messages, Lines are listings.
type Reply struct {
	Notes []string
	Lines []string
	Quit  bool
}

func note(format string, args ...any) Reply {
	return Reply{Notes: []string{fmt.Sprintf(format, args...)}}
}

// IsMeta reports whether input is a slash command.
func IsMeta(input string) bool {
	return strings.HasPrefix(input, "/")
}

// Handle dispatches a slash command.
func (m *Meta) Handle(input string) Reply {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return Reply{}
	}
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch parts[0] {
	case "/quit", "/exit":
		return Reply{Notes: []string{"Goodbye."}, Quit: true}
	case "/save":
		return m.save(arg)
	case "/load":
		return m.load(arg)
	case "/history":
		return m.history(arg)
	case "/help":
		return Reply{Lines: append(HelpLines(), m.Keys...)}
	case "/trace":
		m.Trace = !m.Trace
		if m.Trace {
			return note("Trace output enabled.")
		}
		return note("Trace output disabled.")
	default:
		return note("Unknown command: %s. Type /help for available commands.", parts[0])
	}
}

func (m *Meta) save(name string) Reply {
	r := m.Engine.Report()
	path, err := report.WriteFile(m.SaveDir, name, r)
	if err != nil {
		return note("Save failed: %v", err)
	}
	return note("Report saved to %s (%d room(s), %s).", filepath.Base(path), len(r.Rooms), r.Status)
}

func (m *Meta) load(name string) Reply {
	if name == "" {
		return note("Usage: /load <name>")
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}

	r, err := report.ReadFile(filepath.Join(m.SaveDir, name))
	if err != nil {
		return note("Load failed: %v", err)
	}
	result, err := m.Engine.Restore(r)
	if err != nil {
		return note("Load failed: %v", err)
	}
	reply := note("Replayed %s: seed %d, %d room(s).", name, r.Seed, len(result.Placed))
	reply.Lines = m.Engine.Step("look").Output
	return reply
}

func (m *Meta) history(arg string) Reply {
	if m.History == nil {
		return note("History is disabled.")
	}
	limit := 10
	if n, err := strconv.Atoi(arg); err == nil && n > 0 {
		limit = n
	}

	runs, err := m.History.Recent(limit)
	if err != nil {
		return note("History failed: %v", err)
	}
	if len(runs) == 0 {
		return note("No runs recorded yet.")
	}
	reply := Reply{Lines: HistoryLines(runs)}

	name := m.Engine.Dungeon.Name
	counts, err := m.History.ClassCounts(name)
	if err != nil {
		reply.Notes = append(reply.Notes, fmt.Sprintf("History failed: %v", err))
		return reply
	}
	if len(counts) > 0 {
		reply.Lines = append(reply.Lines, ClassCountLine(name, counts))
	}
	return reply
}

// HistoryLines renders recent runs, one per line.
func HistoryLines(runs []history.Summary) []string {
	lines := make([]string, 0, len(runs))
	for _, r := range runs {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		lines = append(lines, fmt.Sprintf("  %s  %-12s seed %-20d %3d room(s)  %-11s %s",
			id, r.Dungeon, r.Seed, r.Rooms, r.Status, r.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	return lines
}

// ClassCountLine summarizes the classes placed over a dungeon's runs.
func ClassCountLine(dungeon string, counts []history.ClassCount) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s %d (%d runs)", c.Class, c.Rooms, c.Runs)
	}
	return fmt.Sprintf("%s classes: %s", dungeon, strings.Join(parts, ", "))
}

// HelpLines is the help text shared by the front ends.
func HelpLines() []string {
	return []string{
		"System:",
		"  /save [name]     Save a report of this dungeon",
		"  /load <name>     Replay a saved report",
		"  /history [n]     Show recent recorded runs",
		"  /trace           Toggle trace output",
		"  /help            Show this help",
		"  /quit            Exit",
		"",
		"Session commands:",
		"  look (l, status)      Show the generation state",
		"  step [n] (s, n)       Place the next n rooms",
		"  run                   Place rooms until the dungeon is finished",
		"  run <count>           Generate count whole dungeons from the next seeds",
		"  reset [seed] (new)    Start again from a seed (default: next seed)",
		"  rules (graph)         Show the rule graph",
		"  rooms (map)           List the placed rooms",
		"  again (g)             Repeat your last command",
	}
}
