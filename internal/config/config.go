// Package config holds the options a simulation is constructed with.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/talgya/hearthvale/internal/entropy"
)

// MinSeasonLength keeps every stock crop able to mature within a season.
const MinSeasonLength = 10

// Options configures a simulation. Zero-valued fields left out of a config
// file keep their defaults.
type Options struct {
	WorldName  string `yaml:"world_name" json:"world_name"`
	PlayerName string `yaml:"player_name" json:"player_name"`
	Seed       int64  `yaml:"seed" json:"seed"`
	LogLevel   string `yaml:"log_level" json:"log_level"`

	SeasonLengthDays int  `yaml:"season_length_days" json:"season_length_days"`
	WorldSize        Size `yaml:"world_size" json:"world_size"`

	EventLogCapacity    int `yaml:"event_log_capacity" json:"event_log_capacity"`
	DecisionLogCapacity int `yaml:"decision_log_capacity" json:"decision_log_capacity"`

	NearbyRadius              float64 `yaml:"nearby_radius" json:"nearby_radius"`
	MaxNearbyEntities         int     `yaml:"max_nearby_entities" json:"max_nearby_entities"`
	MaxRecentEventsPerContext int     `yaml:"max_recent_events_per_context" json:"max_recent_events_per_context"`

	MaxEntities        int `yaml:"max_entities" json:"max_entities"`
	MaxSubscribers     int `yaml:"max_subscribers" json:"max_subscribers"`
	MaxLocations       int `yaml:"max_locations" json:"max_locations"`
	MaxCropsPerField   int `yaml:"max_crops_per_field" json:"max_crops_per_field"`
	MaxRelationships   int `yaml:"max_relationships" json:"max_relationships"`
	BlackboardCapacity int `yaml:"blackboard_capacity" json:"blackboard_capacity"`

	TickInterval string `yaml:"tick_interval" json:"tick_interval"`
	AutosaveDays int    `yaml:"autosave_days" json:"autosave_days"`
}

// Size is the extent of the plane locations are placed on.
type Size struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Default returns the stock options.
func Default() Options {
	return Options{
		WorldName:                 "Hearthvale",
		PlayerName:                "player",
		Seed:                      42,
		LogLevel:                  "info",
		SeasonLengthDays:          28,
		WorldSize:                 Size{Width: 200, Height: 200},
		EventLogCapacity:          10000,
		DecisionLogCapacity:       1000,
		NearbyRadius:              100,
		MaxNearbyEntities:         20,
		MaxRecentEventsPerContext: 10,
		MaxEntities:               1000,
		MaxSubscribers:            32,
		MaxLocations:              100,
		MaxCropsPerField:          100,
		MaxRelationships:          500,
		BlackboardCapacity:        50,
		TickInterval:              "1s",
		AutosaveDays:              7,
	}
}

// Load reads a YAML config on top of the defaults.
func Load(path string) (Options, error) {
	o := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return o, err
	}
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("%s: %w", path, err)
	}
	if err := o.Validate(); err != nil {
		return o, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// Seeded returns o with a freshly drawn seed when the seed is zero.
func (o Options) Seeded() Options {
	if o.Seed == 0 {
		o.Seed = entropy.NewSeed()
	}
	return o
}

// Validate reports every invalid option at once.
func (o *Options) Validate() error {
	el := errors.NewErrorList()

	if o.WorldName == "" {
		el.Add(fmt.Errorf("world_name is required"))
	}
	if o.PlayerName == "" {
		el.Add(fmt.Errorf("player_name is required"))
	}
	if _, err := ParseLevel(o.LogLevel); err != nil {
		el.Add(err)
	}
	if o.SeasonLengthDays < MinSeasonLength {
		el.Add(fmt.Errorf("season_length_days must be at least %d", MinSeasonLength))
	}
	if o.WorldSize.Width <= 0 || o.WorldSize.Height <= 0 {
		el.Add(fmt.Errorf("world_size must be positive"))
	}
	if o.NearbyRadius <= 0 {
		el.Add(fmt.Errorf("nearby_radius must be positive"))
	}
	if o.AutosaveDays < 0 {
		el.Add(fmt.Errorf("autosave_days must not be negative"))
	}

	positive := []struct {
		name string
		v    int
	}{
		{"event_log_capacity", o.EventLogCapacity},
		{"decision_log_capacity", o.DecisionLogCapacity},
		{"max_nearby_entities", o.MaxNearbyEntities},
		{"max_recent_events_per_context", o.MaxRecentEventsPerContext},
		{"max_entities", o.MaxEntities},
		{"max_subscribers", o.MaxSubscribers},
		{"max_locations", o.MaxLocations},
		{"max_crops_per_field", o.MaxCropsPerField},
		{"max_relationships", o.MaxRelationships},
		{"blackboard_capacity", o.BlackboardCapacity},
	}
	for _, p := range positive {
		if p.v <= 0 {
			el.Add(fmt.Errorf("%s must be positive", p.name))
		}
	}

	if _, err := o.Interval(); err != nil {
		el.Add(err)
	}

	return el.Err()
}

// Interval parses TickInterval.
func (o *Options) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(o.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("parsing tick_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("tick_interval must be positive")
	}
	return d, nil
}

// ParseLevel converts a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
}
