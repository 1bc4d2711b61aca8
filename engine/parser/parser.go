// Package parser converts session input into Command structs.
// Intentionally dumb: no grammar, just aliases and word splitting.
package parser

import (
	"strings"

	"github.com/nathoo/dungeonrules/types"
)

var verbAliases = map[string]string{
	// Look / Status
	"l":      "look",
	"status": "look",
	"st":     "look",
	"info":   "look",

	// Step
	"s":     "step",
	"n":     "step",
	"next":  "step",
	"place": "step",
	"add":   "step",

	// Run
	"r":        "run",
	"finish":   "run",
	"generate": "run",
	"gen":      "run",

	// Reset
	"restart": "reset",
	"new":     "reset",
	"reseed":  "reset",

	// Rules
	"graph":   "rules",
	"ruleset": "rules",

	// Rooms
	"map":    "rooms",
	"placed": "rooms",
	"ls":     "rooms",
}

// Words dropped from arguments: "step 5 rooms", "run 3 times".
var fillers = map[string]bool{
	"the": true, "a": true, "an": true,
	"room": true, "rooms": true,
	"time": true, "times": true,
	"with": true, "seed": true,
}

// Parse converts a raw command string into a Command.
func Parse(input string) types.Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Command{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	cmd := types.Command{Verb: words[0]}
	for _, w := range words[1:] {
		if !fillers[w] {
			cmd.Args = append(cmd.Args, w)
		}
	}
	return cmd
}

// expandMultiWordVerbs handles "show rules", "list rooms", "start over" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "show", "list", "print":
		switch words[1] {
		case "rules", "graph", "ruleset":
			return append([]string{"rules"}, words[2:]...)
		case "rooms", "map":
			return append([]string{"rooms"}, words[2:]...)
		case "status":
			return append([]string{"look"}, words[2:]...)
		}
	case "start":
		if words[1] == "over" || words[1] == "again" {
			return append([]string{"reset"}, words[2:]...)
		}
	case "run", "generate":
		if words[1] == "to" && len(words) > 2 && words[2] == "end" {
			return append([]string{"run"}, words[3:]...)
		}
	}

	return words
}
