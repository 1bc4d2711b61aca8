// DungeonRules steps a rule-driven dungeon generator one room at a time.
// Usage: dungeonrules [--version] [--plain] [--config <file>] [--seed <n>] [--batch <n>] [--trace] <dungeon_dir>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nathoo/dungeonrules/cli"
	"github.com/nathoo/dungeonrules/config"
	"github.com/nathoo/dungeonrules/engine"
	"github.com/nathoo/dungeonrules/generator"
	"github.com/nathoo/dungeonrules/history"
	"github.com/nathoo/dungeonrules/loader"
	"github.com/nathoo/dungeonrules/logger"
	"github.com/nathoo/dungeonrules/report"
	"github.com/nathoo/dungeonrules/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: dungeonrules [--version] [--plain] [--config <file>] [--seed <n>] [--batch <n>] [--trace] <dungeon_dir>"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the parsed command line flags.
type options struct {
	version    bool
	plain      bool
	trace      bool
	configPath string
	dungeonDir string
	seed       int64
	batch      int
}

func parseArgs(args []string) (options, error) {
	opts := options{configPath: config.DefaultPath}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			opts.version = true
		case "--plain":
			opts.plain = true
		case "--trace":
			opts.trace = true
		case "--config":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			opts.configPath = v
		case "--seed":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return opts, fmt.Errorf("--seed: %w", err)
			}
			opts.seed = n
		case "--batch":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return opts, errors.New("--batch requires a positive count")
			}
			opts.batch = n
		default:
			if opts.dungeonDir == "" {
				opts.dungeonDir = args[i]
			}
		}
	}
	return opts, nil
}

// run does everything main does short of exiting, so deferred cleanup
// always happens.
func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Printf("dungeonrules %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	// Use plain CLI if --plain flag or stdout is not a terminal.
	useTUI := !opts.plain && opts.batch == 0 && isTerminal()
	if useTUI {
		// Console logging would draw over the alternate screen.
		cfg.Logging.ConsoleEnabled = false
	}
	closer, err := logger.Init(cfg.Logging)
	if err != nil {
		return fmt.Errorf("starting logger: %w", err)
	}
	defer closer.Close()

	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	dungeonDir := opts.dungeonDir
	if dungeonDir == "" {
		dungeonDir = cfg.Dungeon
	}
	if dungeonDir == "" {
		return errors.New(usage)
	}

	d, err := loader.Load(dungeonDir)
	if err != nil {
		return fmt.Errorf("loading dungeon: %w", err)
	}
	if cfg.MaxRooms > 0 {
		d.MaxRooms = cfg.MaxRooms
	}

	var runs *history.History
	if cfg.History != "" {
		runs, err = history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer runs.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.batch > 0 {
		return runBatch(ctx, d, cfg, runs, opts.batch)
	}

	eng := engine.New(d, cfg.ResolveSeed()).WithContext(ctx)
	eng.Gen.Attempts = cfg.Attempts
	if runs != nil {
		eng.Recorder = runs
	}

	if !useTUI {
		c := cli.New(eng)
		c.History = runs
		c.Trace = opts.trace
		if cfg.SaveDir != "" {
			c.SaveDir = cfg.SaveDir
		}
		c.Run()
		return nil
	}

	tuiOpts := tui.Options{History: runs, SaveDir: cfg.SaveDir, Trace: opts.trace}
	return tui.Run(eng, tuiOpts)
}

// runBatch generates n dungeons concurrently from one rule set, seeds base
// to base+n-1, and records every kept dungeon.
func runBatch(ctx context.Context, d *loader.Dungeon, cfg *config.Config, runs *history.History, n int) error {
	base := cfg.ResolveSeed()
	lines := make([]string, n)
	var kept atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range n {
		g.Go(func() error {
			gen := generator.New(d.Rules)
			gen.MaxRooms = d.MaxRooms
			gen.Attempts = cfg.Attempts
			s := base + int64(i)

			run, err := gen.Generate(ctx, s)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				lines[i] = fmt.Sprintf("seed %d: rejected (%v)", s, err)
				return nil
			}
			kept.Add(1)
			r := report.Build(d.Name, gen.MaxRooms, run)
			lines[i] = fmt.Sprintf("seed %d: %d room(s), run %s", s, len(run.Rooms), run.ID)
			if runs == nil {
				return nil
			}
			if err := runs.Record(r); err != nil {
				return fmt.Errorf("recording seed %d: %w", s, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Printf("%d of %d dungeon(s) kept.\n", kept.Load(), n)
	logger.Info("batch finished", "dungeon", d.Name, "seed", base, "count", n, "kept", kept.Load())
	return nil
}

// flagValue consumes the argument after a flag.
func flagValue(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s requires a value", args[*i])
	}
	*i++
	return args[*i], nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
