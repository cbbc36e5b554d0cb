// Package weather holds the daily weather state and the rule that rolls it.
// Rolls are reproducible: each day draws from a stream seeded by the world
// seed and the calendar, blended with a slow seasonal moisture signal.
package weather

import (
	"errors"
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/entropy"
)

// ErrUnknownWeather is returned when parsing a weather name fails.
var ErrUnknownWeather = errors.New("unknown weather")

// Kind is the single world-wide weather state.
type Kind uint8

const (
	Sunny Kind = iota
	Rainy
	Cloudy
	Stormy
	Drought
)

var names = [...]string{"sunny", "rainy", "cloudy", "stormy", "drought"}

func (k Kind) String() string {
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("weather(%d)", uint8(k))
}

// Title is the capitalised label shown in decision contexts.
func (k Kind) Title() string {
	switch k {
	case Sunny:
		return "Sunny"
	case Rainy:
		return "Rainy"
	case Cloudy:
		return "Cloudy"
	case Stormy:
		return "Stormy"
	case Drought:
		return "Drought"
	}
	return "Unknown"
}

// Valid reports whether k is a defined weather state.
func (k Kind) Valid() bool { return k <= Drought }

// Parse converts a save-file weather name.
func Parse(s string) (Kind, error) {
	for i, n := range names {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeather, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWeather, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Rule decides the weather for the day the clock now shows.
type Rule interface {
	Next(c clock.Clock, current Kind) Kind
}

// Fixed always returns the same weather. Useful for scenarios and tests.
type Fixed Kind

// Next implements Rule.
func (f Fixed) Next(clock.Clock, Kind) Kind { return Kind(f) }

// seasonOdds are per-season base chances of rain, storm, cloud and drought.
// Sunny takes whatever remains.
type seasonOdds struct {
	rain, storm, cloud, drought float64
}

var odds = map[clock.Season]seasonOdds{
	clock.Spring: {rain: 0.30, storm: 0.05, cloud: 0.20, drought: 0.02},
	clock.Summer: {rain: 0.15, storm: 0.08, cloud: 0.12, drought: 0.10},
	clock.Fall:   {rain: 0.25, storm: 0.06, cloud: 0.25, drought: 0.03},
	clock.Winter: {rain: 0.20, storm: 0.10, cloud: 0.30, drought: 0.01},
}

// persistence is the chance that calm weather simply carries over.
const persistence = 0.35

// Seasonal is the default rule. The moisture signal shifts odds between
// wet and dry spells that last several days.
type Seasonal struct {
	seed  int64
	noise opensimplex.Noise
}

// NewSeasonal creates the default rule for a world seed.
func NewSeasonal(seed int64) *Seasonal {
	return &Seasonal{
		seed:  seed,
		noise: opensimplex.NewNormalized(seed),
	}
}

// Moisture returns the seasonal moisture signal in [0,1) for a day.
func (s *Seasonal) Moisture(c clock.Clock) float64 {
	return s.noise.Eval2(float64(c.Day)*0.15, float64(c.Year)*3.7)
}

// Next implements Rule.
func (s *Seasonal) Next(c clock.Clock, current Kind) Kind {
	rng := entropy.ForDay(s.seed, c.Year, int(c.Season), c.Day)
	if current != Stormy && current != Drought && rng.Float64() < persistence {
		return current
	}

	m := s.Moisture(c)
	o := odds[c.Season]
	wet := 0.5 + m // 0.5..1.5
	dry := 1.5 - m // 1.5..0.5

	roll := rng.Float64()
	acc := o.rain * wet
	if roll < acc {
		return Rainy
	}
	acc += o.storm * wet
	if roll < acc {
		return Stormy
	}
	acc += o.cloud
	if roll < acc {
		return Cloudy
	}
	acc += o.drought * dry
	if roll < acc {
		return Drought
	}
	return Sunny
}

// State is the current weather plus the rule that advances it.
type State struct {
	Current Kind
	rule    Rule
}

// NewState starts sunny under rule.
func NewState(rule Rule) *State {
	return &State{Current: Sunny, rule: rule}
}

// SetRule swaps the rule, e.g. to force a drought in a scenario.
func (s *State) SetRule(rule Rule) { s.rule = rule }

// Roll advances to the weather for the day c shows and reports whether it changed.
func (s *State) Roll(c clock.Clock) (prev Kind, changed bool) {
	prev = s.Current
	if s.rule == nil {
		return prev, false
	}
	s.Current = s.rule.Next(c, prev)
	return prev, s.Current != prev
}

// Describe returns a short line for reports.
func Describe(k Kind, season clock.Season) string {
	switch k {
	case Sunny:
		return fmt.Sprintf("clear %s skies", season)
	case Rainy:
		return "steady rain over the fields"
	case Cloudy:
		return "grey clouds overhead"
	case Stormy:
		return "a storm batters the village"
	case Drought:
		return "the ground is parched"
	}
	return "fair weather"
}
