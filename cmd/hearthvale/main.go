// Command hearthvale runs the village simulation, either for a fixed
// number of days or in real time behind the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hearthvale/internal/api"
	"github.com/talgya/hearthvale/internal/archive"
	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/feed"
	"github.com/talgya/hearthvale/internal/persistence"
	"github.com/talgya/hearthvale/internal/savefile"
)

type flags struct {
	config   string
	days     int
	load     string
	save     string
	db       string
	archive  string
	export   string
	port     int
	natsPort int
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.config, "config", "", "YAML config file (defaults are used when empty)")
	flag.IntVar(&f.days, "days", 0, "simulate this many days and exit; 0 runs in real time")
	flag.StringVar(&f.load, "load", "", "save file to resume from")
	flag.StringVar(&f.save, "save", "", "save file to write on autosave and exit")
	flag.StringVar(&f.db, "db", "", "SQLite database for snapshots and the audit archive")
	flag.StringVar(&f.archive, "archive", "", "directory for the per-season event archive")
	flag.StringVar(&f.export, "export", "", "directory to export the event and decision logs to on exit")
	flag.IntVar(&f.port, "serve", 0, "serve the HTTP API on this port (real-time mode)")
	flag.IntVar(&f.natsPort, "nats", 0, "relay events over an embedded NATS server on this port (real-time mode)")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	opts := config.Default()
	if f.config != "" {
		var err error
		if opts, err = config.Load(f.config); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	level, err := config.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(f, opts); err != nil {
		slog.Error("hearthvale failed", "error", err)
		os.Exit(1)
	}
}

func run(f flags, opts config.Options) error {
	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if f.db != "" {
		if err := os.MkdirAll(filepath.Dir(f.db), 0o755); err != nil {
			return err
		}
		var err error
		if db, err = persistence.Open(f.db); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		slog.Info("database opened", "path", f.db)
	}

	// ── Load or Generate the Village ─────────────────────────────────
	sim, err := loadVillage(f, opts, db)
	if err != nil {
		return err
	}
	slog.Info("village ready",
		"name", sim.Options.WorldName,
		"run", sim.RunID,
		"day", sim.Clock.Day,
		"season", sim.Clock.Season,
		"entities", sim.Registry.Len(),
		"agents", len(sim.Agents()),
	)

	// ── Event Archive ────────────────────────────────────────────────
	var logger *archive.EventLogger
	if f.archive != "" {
		logger = archive.NewEventLogger(f.archive, sim.Options.SeasonLengthDays)
		if _, err := sim.Bus.Subscribe(event.Any(), logger.Handler()); err != nil {
			return fmt.Errorf("subscribe archive: %w", err)
		}
		defer func() {
			if err := logger.Close(); err != nil {
				slog.Error("closing archive failed", "error", err)
			}
		}()
	}

	save := func(s *engine.Simulation) {
		if db != nil {
			if err := db.SaveWorldState(s); err != nil {
				slog.Error("database save failed", "error", err)
			}
		}
		if f.save != "" {
			if err := savefile.WriteFile(s, f.save); err != nil {
				slog.Error("save file failed", "error", err)
			}
		}
		if logger != nil {
			if err := logger.Flush(); err != nil {
				slog.Error("archive flush failed", "error", err)
			}
		}
	}

	startDay := sim.Clock.Day
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.days > 0 {
		runDays(ctx, sim, f.days, save)
	} else if err := runRealtime(ctx, sim, f, db, save); err != nil {
		return err
	}

	// Final save on shutdown.
	slog.Info("final save...")
	save(sim)

	if f.export != "" {
		if err := exportLogs(sim, f.export); err != nil {
			return err
		}
	}

	printSummary(sim, startDay, logger)
	return nil
}

func loadVillage(f flags, opts config.Options, db *persistence.DB) (*engine.Simulation, error) {
	if f.load != "" {
		sim, err := savefile.ReadFile(f.load, opts)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.load, err)
		}
		return sim, nil
	}
	if db != nil {
		sim, err := db.LoadWorldState(opts)
		if err == nil {
			return sim, nil
		}
		if !errors.Is(err, persistence.ErrNoSnapshot) {
			return nil, fmt.Errorf("load database: %w", err)
		}
		slog.Info("no saved state found, founding a new village...")
	}
	opts = opts.Seeded()
	slog.Info("founding village", "seed", opts.Seed)
	return engine.NewVillage(opts)
}

// runDays advances the village a day at a time, autosaving as configured.
func runDays(ctx context.Context, sim *engine.Simulation, days int, save func(*engine.Simulation)) {
	for i := 1; i <= days; i++ {
		if ctx.Err() != nil {
			slog.Info("interrupted", "days_run", i-1)
			return
		}
		sim.AdvanceDays(1)
		if sim.Options.AutosaveDays > 0 && i%sim.Options.AutosaveDays == 0 && i < days {
			save(sim)
		}
	}
}

// runRealtime drives the engine until ctx ends, with the API and the
// event feed alongside it.
func runRealtime(ctx context.Context, sim *engine.Simulation, f flags, db *persistence.DB, save func(*engine.Simulation)) error {
	eng := engine.NewEngine(sim)

	var sinceSave int
	eng.OnDay = func(s *engine.Simulation) {
		sinceSave++
		if s.Options.AutosaveDays > 0 && sinceSave >= s.Options.AutosaveDays {
			save(s)
			sinceSave = 0
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2)
	)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	if f.natsPort != 0 {
		srv, err := feed.NewServer(feed.WithPort(f.natsPort))
		if err != nil {
			return err
		}
		if _, err := feed.NewRelay(srv).Attach(sim.Bus); err != nil {
			return fmt.Errorf("attach feed: %w", err)
		}
		start("feed", srv.Start)
	}
	if f.port != 0 {
		start("api", (&api.Server{
			Eng:      eng,
			DB:       db,
			Port:     f.port,
			AdminKey: os.Getenv("HEARTHVALE_ADMIN_KEY"),
			RelayKey: os.Getenv("HEARTHVALE_RELAY_KEY"),
		}).Start)
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", f.port)
	}

	fmt.Printf("\n%s is alive on day %d. (Ctrl+C to stop)\n", sim.Options.WorldName, sim.Clock.Day)
	_ = eng.Start(ctx)
	cancel()
	wg.Wait()
	close(errs)

	if err, ok := <-errs; ok {
		return err
	}
	return nil
}

func exportLogs(sim *engine.Simulation, dir string) error {
	events := filepath.Join(dir, fmt.Sprintf("%s-events.jsonl.zst", sim.RunID))
	if err := archive.ExportEvents(events, sim.Events.All()); err != nil {
		return err
	}
	decisions := filepath.Join(dir, fmt.Sprintf("%s-decisions.jsonl.zst", sim.RunID))
	if err := archive.ExportDecisions(decisions, sim.Decisions.All()); err != nil {
		return err
	}
	slog.Info("logs exported", "events", events, "decisions", decisions)
	return nil
}

func printSummary(sim *engine.Simulation, startDay int, logger *archive.EventLogger) {
	st := sim.Stats()
	fmt.Printf("\n%s, %s day of %s, year %d (%s).\n",
		sim.Options.WorldName, humanize.Ordinal(st.Day), st.Season, st.Year, st.Weather)
	fmt.Printf("Simulated %s days: %s events, %s decisions (%s succeeded), %s relationships.\n",
		humanize.Comma(int64(st.Day-startDay)),
		humanize.Comma(int64(st.Events)),
		humanize.Comma(int64(st.Decisions)),
		humanize.Comma(int64(st.Successful)),
		humanize.Comma(int64(st.Relationship)),
	)
	if logger != nil {
		fmt.Printf("Archived %s of events.\n", humanize.Bytes(uint64(logger.Written())))
	}
}
