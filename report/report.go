// Package report implements JSON run reports: what a generation placed,
// from which seed, so that it can be saved, archived and replayed.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nathoo/dungeonrules/generator"
	"github.com/nathoo/dungeonrules/rules"
)

// Version of the report format written by Marshal.
const Version = 1

// Report status values.
const (
	StatusComplete   = "complete"
	StatusRejected   = "rejected"
	StatusInProgress = "in_progress"
)

var (
	ErrVersion  = errors.New("unsupported report version")
	ErrMismatch = errors.New("replay does not match report")
)

// Report is the JSON-serializable record of one generation.
type Report struct {
	Version     int       `json:"version"`
	Dungeon     string    `json:"dungeon"`
	RunID       string    `json:"run_id"`
	Seed        int64     `json:"seed"`
	Attempt     int       `json:"attempt"`
	MaxRooms    int       `json:"max_rooms"`
	Status      string    `json:"status"`
	RNGPosition int64     `json:"rng_position"`
	CreatedAt   time.Time `json:"created_at"`
	Rooms       []Room    `json:"rooms"`
}

// Room is one placed room in a report.
type Room struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Class  string `json:"class"`
	Parent int    `json:"parent"`
	Door   int    `json:"door"`
	Entry  int    `json:"entry"`
	Rule   string `json:"rule"`
}

// Build creates a complete report of run for the named dungeon.
// maxRooms is the limit the run was generated under.
func Build(dungeon string, maxRooms int, run *generator.Run) *Report {
	r := &Report{
		Version:     Version,
		Dungeon:     dungeon,
		RunID:       run.ID.String(),
		Seed:        run.Seed,
		Attempt:     run.Attempt,
		MaxRooms:    maxRooms,
		Status:      StatusComplete,
		RNGPosition: run.RNGPosition,
		CreatedAt:   time.Now().UTC(),
		Rooms:       make([]Room, 0, len(run.Rooms)),
	}
	for _, p := range run.Rooms {
		r.Rooms = append(r.Rooms, Room{
			Index:  p.Index,
			Name:   p.Data.Name,
			Class:  p.Data.Class,
			Parent: p.Parent,
			Door:   p.Door,
			Entry:  p.Entry,
			Rule:   p.Rule,
		})
	}
	return r
}

// Marshal serializes a report to indented JSON.
func Marshal(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Unmarshal deserializes and checks a report.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, r.Version)
	}
	// Ensure rooms are never nil after load.
	if r.Rooms == nil {
		r.Rooms = []Room{}
	}
	if r.Status == "" {
		r.Status = StatusComplete
	}
	return &r, nil
}

// FileName is the default file name of a report: "crypt-42.json".
func FileName(r *Report) string {
	name := strings.ToLower(strings.Join(strings.Fields(r.Dungeon), "_"))
	if name == "" {
		name = "dungeon"
	}
	return fmt.Sprintf("%s-%d.json", name, r.Seed)
}

// WriteFile saves r as dir/name, adding ".json" if needed. An empty name
// uses FileName. It returns the written path.
func WriteFile(dir, name string, r *Report) (string, error) {
	if name == "" {
		name = FileName(r)
	} else if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	data, err := Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// Replay regenerates the report's rooms from its seed with rs and checks
// that every placement and the final RNG position match.
func Replay(ctx context.Context, rs *rules.RuleSet, r *Report) error {
	if rs.Name() != r.Dungeon {
		return fmt.Errorf("%w: report is for %q, rules are %q", ErrMismatch, r.Dungeon, rs.Name())
	}

	g := &generator.Generator{Rules: rs, MaxRooms: r.MaxRooms}
	if err := g.Begin(ctx, r.Seed); err != nil {
		return err
	}
	defer g.Finish()

	for i, want := range r.Rooms {
		if err := ctx.Err(); err != nil {
			return err
		}
		got, err := g.Step()
		if err != nil {
			return fmt.Errorf("%w: room %d: %w", ErrMismatch, i, err)
		}
		if diff := compareRoom(want, got.Data.Name, got.Parent, got.Door, got.Entry, got.Rule); diff != "" {
			return fmt.Errorf("%w: room %d: %s", ErrMismatch, i, diff)
		}
	}
	// A finished run either stopped here or failed on the next room.
	if r.Status != StatusInProgress && g.ContinueToAddRoom() {
		if _, err := g.Step(); !errors.Is(err, generator.ErrGenerationFailed) {
			return fmt.Errorf("%w: generation continues after %d room(s)", ErrMismatch, len(r.Rooms))
		}
	}
	if pos := g.RNGPosition(); pos != r.RNGPosition {
		return fmt.Errorf("%w: rng position %d, want %d", ErrMismatch, pos, r.RNGPosition)
	}
	return nil
}

func compareRoom(want Room, name string, parent, door, entry int, rule string) string {
	switch {
	case want.Name != name:
		return fmt.Sprintf("placed %s, want %s", name, want.Name)
	case want.Rule != rule:
		return fmt.Sprintf("chosen by rule %s, want %s", rule, want.Rule)
	case want.Parent != parent || want.Door != door:
		return fmt.Sprintf("attached to door %d of #%d, want door %d of #%d", door, parent, want.Door, want.Parent)
	case want.Entry != entry:
		return fmt.Sprintf("entered by door %d, want %d", entry, want.Entry)
	}
	return ""
}
