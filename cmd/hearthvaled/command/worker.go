package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pixil98/go-service"

	"github.com/talgya/hearthvale/internal/archive"
	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/feed"
	"github.com/talgya/hearthvale/internal/persistence"
	"github.com/talgya/hearthvale/internal/savefile"
)

func BuildWorkers(cfgAny interface{}) (service.WorkerList, error) {
	cfg, ok := cfgAny.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	db, err := cfg.Storage.openDB()
	if err != nil {
		return nil, err
	}

	sim, err := loadVillage(cfg, db)
	if err != nil {
		return nil, err
	}

	v := &villageWorker{
		eng:      engine.NewEngine(sim),
		db:       db,
		saveFile: cfg.Storage.SaveFile,
		archive:  cfg.Storage.buildArchive(sim.Options.SeasonLengthDays),
	}
	if v.archive != nil {
		if _, err := sim.Bus.Subscribe(event.Any(), v.archive.Handler()); err != nil {
			return nil, fmt.Errorf("subscribing archive: %w", err)
		}
	}
	v.eng.OnDay = v.onDay

	workers := service.WorkerList{
		"village": v,
	}

	apiServer, err := cfg.Api.buildServer(v.eng, db)
	if err != nil {
		return nil, fmt.Errorf("creating api server: %w", err)
	}
	if apiServer != nil {
		workers["api"] = apiServer
	}

	if cfg.Nats.Enabled {
		natsServer, err := cfg.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		if _, err := feed.NewRelay(natsServer).Attach(sim.Bus); err != nil {
			return nil, fmt.Errorf("attaching feed: %w", err)
		}
		workers["feed"] = natsServer
	}

	return workers, nil
}

func loadVillage(cfg *Config, db *persistence.DB) (*engine.Simulation, error) {
	if db != nil {
		sim, err := db.LoadWorldState(cfg.Village)
		if err == nil {
			return sim, nil
		}
		if !errors.Is(err, persistence.ErrNoSnapshot) {
			return nil, fmt.Errorf("loading database: %w", err)
		}
	}
	if cfg.Storage.SaveFile != "" {
		sim, err := savefile.ReadFile(cfg.Storage.SaveFile, cfg.Village)
		if err == nil {
			return sim, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading save file: %w", err)
		}
	}
	opts := cfg.Village.Seeded()
	slog.Info("no saved state found, founding a new village", "name", opts.WorldName, "seed", opts.Seed)
	return engine.NewVillage(opts)
}

// villageWorker runs the simulation loop and owns its storage.
type villageWorker struct {
	eng      *engine.Engine
	db       *persistence.DB
	saveFile string
	archive  *archive.EventLogger

	sinceSave int
}

func (v *villageWorker) Start(ctx context.Context) error {
	err := v.eng.Start(ctx)

	v.save(v.eng.Sim)
	if v.archive != nil {
		if cerr := v.archive.Close(); cerr != nil {
			slog.Error("closing archive", "error", cerr)
		}
	}
	if v.db != nil {
		if cerr := v.db.Close(); cerr != nil {
			slog.Error("closing database", "error", cerr)
		}
	}
	return err
}

func (v *villageWorker) onDay(s *engine.Simulation) {
	v.sinceSave++
	if s.Options.AutosaveDays > 0 && v.sinceSave >= s.Options.AutosaveDays {
		v.save(s)
		v.sinceSave = 0
	}
}

func (v *villageWorker) save(s *engine.Simulation) {
	if v.db != nil {
		if err := v.db.SaveWorldState(s); err != nil {
			slog.Error("database save failed", "error", err)
		}
	}
	if v.saveFile != "" {
		if err := savefile.WriteFile(s, v.saveFile); err != nil {
			slog.Error("save file failed", "error", err)
		}
	}
	if v.archive != nil {
		if err := v.archive.Flush(); err != nil {
			slog.Error("archive flush failed", "error", err)
		}
	}
}
