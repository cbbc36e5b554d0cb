// Package savefile reads and writes the JSON save format. Every file is
// checked against an embedded JSON schema before it is decoded.
package savefile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// Version is written into every save. Files with another major version
// are refused.
const Version = "1.0"

const schemaURL = "https://hearthvale.local/schemas/save.schema.json"

var (
	ErrInvalidSave        = errors.New("invalid save file")
	ErrUnsupportedVersion = errors.New("unsupported save version")
)

//go:embed schema.json
var schemaJSON string

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add save schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// File is the on-disk layout. Sections after Entities are optional; a file
// without them loads with those systems empty.
type File struct {
	Metadata Metadata     `json:"metadata"`
	Time     Time         `json:"time"`
	Weather  WeatherState `json:"weather"`
	Player   Player       `json:"player"`
	Entities []Entity     `json:"entities"`

	World       *world.Snapshot       `json:"world,omitempty"`
	Agriculture *agriculture.Snapshot `json:"agriculture,omitempty"`
	Social      *social.Snapshot      `json:"social,omitempty"`
	Market      *economy.Snapshot     `json:"market,omitempty"`
	Events      *EventLog             `json:"event_log,omitempty"`
	Decisions   *DecisionLog          `json:"decision_log,omitempty"`
}

type Metadata struct {
	GameName  string `json:"game_name"`
	Version   string `json:"version"`
	RunID     string `json:"run_id"`
	Seed      int64  `json:"seed"`
	CreatedAt int64  `json:"created_at"`
	LastSaved int64  `json:"last_saved"`
}

type Time struct {
	Day          int          `json:"day_count"`
	Period       clock.Period `json:"time_of_day"`
	Season       clock.Season `json:"season"`
	Year         int          `json:"year"`
	SeasonLength int          `json:"season_length_days,omitempty"`
}

type WeatherState struct {
	Current weather.Kind `json:"current_weather"`
}

type Player struct {
	ID ecs.EntityID `json:"player_id"`
}

// Entity is one saved entity. Components are kind-tagged objects. Destroyed
// entities are kept, flagged inactive, so their IDs stay retired.
type Entity struct {
	ID         ecs.EntityID      `json:"id"`
	Name       string            `json:"name"`
	Archetype  string            `json:"entity_type"`
	Inactive   bool              `json:"inactive,omitempty"`
	Components []json.RawMessage `json:"components"`
}

type EventLog struct {
	NextID uint64        `json:"next_event_id"`
	Stats  event.Stats   `json:"stats"`
	Events []event.Event `json:"events"`
}

type DecisionLog struct {
	Stats   decision.Stats    `json:"stats"`
	Records []decision.Record `json:"records"`
}

// Snapshot captures the complete state of sim.
func Snapshot(sim *engine.Simulation) (*File, error) {
	f := &File{
		Metadata: Metadata{
			GameName:  sim.Options.WorldName,
			Version:   Version,
			RunID:     sim.RunID,
			Seed:      sim.Options.Seed,
			CreatedAt: sim.CreatedAt,
			LastSaved: sim.Now().Unix(),
		},
		Time: Time{
			Day:          sim.Clock.Day,
			Period:       sim.Clock.Period,
			Season:       sim.Clock.Season,
			Year:         sim.Clock.Year,
			SeasonLength: sim.Clock.SeasonLength,
		},
		Weather:  WeatherState{Current: sim.Weather.Current},
		Player:   Player{ID: sim.Player},
		Entities: []Entity{},
	}

	for _, e := range sim.Registry.All() {
		se := Entity{ID: e.ID, Name: e.Name, Archetype: e.Archetype, Inactive: !e.Active, Components: []json.RawMessage{}}
		for _, c := range e.Components() {
			raw, err := ecs.MarshalComponent(c)
			if err != nil {
				return nil, fmt.Errorf("save entity %d: %w", e.ID, err)
			}
			se.Components = append(se.Components, raw)
		}
		f.Entities = append(f.Entities, se)
	}

	ws := sim.World.Snapshot()
	as := sim.Farms.Snapshot()
	ss := sim.Social.Snapshot()
	ms := sim.Market.Snapshot()
	f.World, f.Agriculture, f.Social, f.Market = &ws, &as, &ss, &ms
	f.Events = &EventLog{NextID: sim.Bus.NextID(), Stats: sim.Events.Stats(), Events: sim.Events.All()}
	f.Decisions = &DecisionLog{Stats: sim.Decisions.Stats(), Records: sim.Decisions.All()}
	return f, nil
}

// Encode renders sim as indented JSON.
func Encode(sim *engine.Simulation) ([]byte, error) {
	f, err := Snapshot(sim)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// Validate checks data against the save schema without decoding it.
func Validate(data []byte) error {
	schema, err := compiled()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	return nil
}

// Decode rebuilds a simulation from data. opts supplies capacities and
// anything the file does not record; the file's seed, world name and
// season length win over opts. Unknown keys are ignored.
func Decode(data []byte, opts config.Options, simOpts ...engine.Option) (*engine.Simulation, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var f File
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	if major(f.Metadata.Version) != major(Version) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, f.Metadata.Version)
	}
	return Restore(&f, opts, simOpts...)
}

// Restore rebuilds a simulation from a decoded file.
func Restore(f *File, opts config.Options, simOpts ...engine.Option) (*engine.Simulation, error) {
	if f.Metadata.Seed != 0 {
		opts.Seed = f.Metadata.Seed
	}
	if f.Metadata.GameName != "" {
		opts.WorldName = f.Metadata.GameName
	}
	if f.Time.SeasonLength > 0 {
		opts.SeasonLengthDays = f.Time.SeasonLength
	}
	if f.Metadata.RunID != "" {
		simOpts = append([]engine.Option{engine.WithRunID(f.Metadata.RunID)}, simOpts...)
	}
	sim, err := engine.New(opts, simOpts...)
	if err != nil {
		return nil, err
	}
	if f.Metadata.CreatedAt != 0 {
		sim.CreatedAt = f.Metadata.CreatedAt
	}

	sim.Clock.Day = max(f.Time.Day, 1)
	sim.Clock.Period = f.Time.Period
	sim.Clock.Season = f.Time.Season
	sim.Clock.Year = max(f.Time.Year, 1)
	sim.Weather.Current = f.Weather.Current

	for _, e := range f.Entities {
		comps := make([]ecs.Component, 0, len(e.Components))
		for _, raw := range e.Components {
			c, err := ecs.UnmarshalComponent(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: entity %d: %v", ErrInvalidSave, e.ID, err)
			}
			comps = append(comps, c)
		}
		if err := sim.Registry.Restore(e.ID, e.Name, e.Archetype, !e.Inactive, comps...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSave, err)
		}
	}
	sim.Player = f.Player.ID

	if f.World != nil {
		g, err := world.FromSnapshot(*f.World, opts.MaxLocations)
		if err != nil {
			return nil, fmt.Errorf("%w: world: %v", ErrInvalidSave, err)
		}
		sim.World = g
	}
	if f.Agriculture != nil {
		m, err := agriculture.FromSnapshot(*f.Agriculture, opts.MaxCropsPerField)
		if err != nil {
			return nil, fmt.Errorf("%w: agriculture: %v", ErrInvalidSave, err)
		}
		sim.Farms = m
	}
	if f.Social != nil {
		if err := sim.Social.Restore(*f.Social); err != nil {
			return nil, fmt.Errorf("%w: social: %v", ErrInvalidSave, err)
		}
	}
	if f.Market != nil {
		if err := sim.Market.Restore(*f.Market); err != nil {
			return nil, fmt.Errorf("%w: market: %v", ErrInvalidSave, err)
		}
	}
	if f.Events != nil {
		sim.Events.Restore(f.Events.Events, f.Events.Stats)
		next := f.Events.NextID
		if n := len(f.Events.Events); n > 0 {
			next = max(next, f.Events.Events[n-1].ID+1)
		}
		sim.Bus.SetNextID(next)
	}
	if f.Decisions != nil {
		sim.Decisions.Restore(f.Decisions.Records, f.Decisions.Stats)
	}

	if err := sim.AssignDefaultTrees(); err != nil {
		return nil, err
	}
	return sim, nil
}

func major(v string) string {
	m, _, _ := strings.Cut(v, ".")
	return m
}

// WriteFile saves sim to path, creating parent directories, and records a
// GameSaved event. The file is written to a temporary name first and
// renamed into place.
func WriteFile(sim *engine.Simulation, path string) error {
	data, err := Encode(sim)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write save: %w", err)
	}

	if _, err := sim.Bus.Publish(event.New(event.GameSaved, ecs.NoEntity, ecs.NoEntity, "Game saved to "+path)); err != nil {
		slog.Warn("publish failed", "event", event.GameSaved.String(), "error", err)
	}
	slog.Info("game saved", "path", path, "day", sim.Clock.Day, "bytes", len(data))
	return nil
}

// ReadFile loads a simulation saved with WriteFile and records a GameLoaded
// event.
func ReadFile(path string, opts config.Options, simOpts ...engine.Option) (*engine.Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	sim, err := Decode(data, opts, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if _, err := sim.Bus.Publish(event.New(event.GameLoaded, ecs.NoEntity, ecs.NoEntity, "Game loaded from "+path)); err != nil {
		slog.Warn("publish failed", "event", event.GameLoaded.String(), "error", err)
	}
	slog.Info("game loaded", "path", path, "day", sim.Clock.Day, "entities", sim.Registry.Len())
	return sim, nil
}
