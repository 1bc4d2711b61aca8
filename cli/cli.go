// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the DungeonRules session engine.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/dungeonrules/engine"
	"github.com/nathoo/dungeonrules/types"
)

// CLI handles terminal interaction with the user.
type CLI struct {
	Meta
	In        io.Reader
	Out       io.Writer
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Meta: Meta{Engine: eng, SaveDir: DefaultSaveDir()},
		In:   os.Stdin,
		Out:  os.Stdout,
	}
}

// DefaultSaveDir is where reports go when no directory is configured.
func DefaultSaveDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dungeonrules", "saves")
}

// Intro is the summary shown when a session starts.
func Intro(eng *engine.Engine) (lines, warnings []string) {
	d := eng.Dungeon
	lines = []string{fmt.Sprintf("%s: %d room template(s), %d rule(s).", d.Name, len(d.Rooms), len(d.Rules.Rules()))}
	for _, w := range d.Warnings {
		warnings = append(warnings, "warning: "+w)
	}
	return lines, warnings
}

// Run reads commands until input ends or /quit.
func (c *CLI) Run() {
	lines, warnings := Intro(c.Engine)
	c.printLines(lines)
	for _, w := range warnings {
		c.printSystem(w)
	}
	c.printLine("Type /help for commands.")
	c.printLine("")
	c.printLines(c.Engine.Step("look").Output)

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if IsMeta(input) {
			reply := c.Handle(input)
			for _, n := range reply.Notes {
				c.printSystem(n)
			}
			c.printLines(reply.Lines)
			if reply.Quit {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		c.printLines(result.Output)
		if c.Trace {
			c.printLines(TraceLines(result))
		}
	}
}

// TraceLines prefixes each trace entry of a result.
func TraceLines(result types.Result) []string {
	lines := make([]string, len(result.Trace))
	for i, line := range result.Trace {
		lines[i] = "[trace] " + line
	}
	return lines
}

func (c *CLI) printLines(lines []string) {
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
