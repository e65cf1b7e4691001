// Command pipenet sizes the pipes of an irrigation design file and writes
// the solved network to stdout or a file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pipenet/internal/config"
	"pipenet/internal/domain"
	"pipenet/internal/repository/sqlite"
	"pipenet/internal/service"
	"pipenet/internal/watcher"
)

type options struct {
	in         string
	configPath string
	optimizer  string
	seed       *int64
	format     string
	out        string
	db         string
	watch      bool
	initConfig bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("pipenet", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.in, "in", "", "Design file (.yaml, .yml, .geojson, .json)")
	fs.StringVar(&opts.configPath, "config", "", "Config file path (default: search standard locations)")
	fs.StringVar(&opts.optimizer, "optimizer", "", "Optimizer: greedy or genetic (default from config)")
	fs.StringVar(&opts.format, "format", "geojson", "Output format: geojson, json or yaml")
	fs.StringVar(&opts.out, "out", "", "Output file (default: stdout)")
	fs.StringVar(&opts.db, "db", "", "SQLite database to keep runs in (default: not stored)")
	fs.BoolVar(&opts.watch, "watch", false, "Solve again whenever the design file changes")
	fs.BoolVar(&opts.initConfig, "init-config", false, "Write the default config to the user config directory and exit")
	fs.Func("seed", "Seed of the genetic optimizer", func(s string) error {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		opts.seed = &seed
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.in == "" && !opts.initConfig {
		return nil, fmt.Errorf("-in is required")
	}
	return opts, nil
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	if opts.initConfig {
		path := config.DefaultConfigPath()
		if err := config.DefaultConfig().Save(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		log.Printf("Default config written to %s", path)
		return nil
	}

	cfg, loadedFrom, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if loadedFrom != "" {
		log.Printf("Config loaded: %s", loadedFrom)
	}

	// Runs are only kept when a database is given
	dbPath := opts.db
	if dbPath == "" {
		dbPath = ":memory:"
	}
	repo, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	svc := service.NewDesignService(repo, service.NewEventBus(), cfg, nil)
	runOpts := service.RunOptions{Optimizer: opts.optimizer, Seed: opts.seed}

	if err := solve(ctx, svc, opts, runOpts, stdout); err != nil && !opts.watch {
		return err
	}
	if !opts.watch {
		return nil
	}

	w := watcher.New(func(string) {
		if err := solve(ctx, svc, opts, runOpts, stdout); err != nil {
			log.Printf("%v", err)
		}
	}, opts.in)
	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// solve runs the design file once and writes the export
func solve(ctx context.Context, svc *service.DesignService, opts *options, runOpts service.RunOptions, stdout io.Writer) error {
	run, err := svc.RunFile(ctx, opts.in, runOpts)
	if run == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("run %s ended with status %s: %w", run.ID, run.Status, err)
	}

	log.Printf("%s: status=%s cost=%.2f length=%.1f m links=%d invalid=%d",
		run.Name, run.Status, run.Summary.TotalCost, run.Summary.TotalLength,
		run.Summary.LinkCount, run.InvalidItems)
	if run.Status == domain.StatusInfeasible {
		log.Printf("%s: %d pressure or velocity violation(s) remain", run.Name, run.Violations)
	}

	return writeOutput(run, opts, stdout)
}

func writeOutput(run *domain.DesignRun, opts *options, stdout io.Writer) error {
	if opts.out == "" {
		return service.ExportRun(run, opts.format, stdout)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := service.ExportRun(run, opts.format, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
