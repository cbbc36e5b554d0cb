// Package clock implements the world calendar: four periods make a day,
// a fixed number of days make a season, four seasons make a year.
package clock

import (
	"errors"
	"fmt"
)

// DefaultSeasonLength is the number of days per season when none is configured.
const DefaultSeasonLength = 28

// ErrUnknownValue is returned when parsing a period or season name fails.
var ErrUnknownValue = errors.New("unknown clock value")

// Period is one of the four time-of-day slices.
type Period uint8

const (
	Morning Period = iota
	Afternoon
	Evening
	Night
)

var periodNames = [...]string{"morning", "afternoon", "evening", "night"}

func (p Period) String() string {
	if int(p) < len(periodNames) {
		return periodNames[p]
	}
	return fmt.Sprintf("period(%d)", uint8(p))
}

// Title is the capitalised label used in event and decision records.
func (p Period) Title() string {
	switch p {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case Evening:
		return "Evening"
	case Night:
		return "Night"
	}
	return "Unknown"
}

// Next returns the period that follows p, wrapping night to morning.
func (p Period) Next() Period { return (p + 1) % 4 }

// Valid reports whether p is a defined period.
func (p Period) Valid() bool { return p <= Night }

// ParsePeriod accepts the lower-case save-file name or the title-case label.
func ParsePeriod(s string) (Period, error) {
	for i, n := range periodNames {
		if n == s || Period(i).Title() == s {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("%w: period %q", ErrUnknownValue, s)
}

// Season is one of the four seasons.
type Season uint8

const (
	Spring Season = iota
	Summer
	Fall
	Winter
)

var seasonNames = [...]string{"spring", "summer", "fall", "winter"}

func (s Season) String() string {
	if int(s) < len(seasonNames) {
		return seasonNames[s]
	}
	return fmt.Sprintf("season(%d)", uint8(s))
}

// Next returns the season that follows s.
func (s Season) Next() Season { return (s + 1) % 4 }

// Valid reports whether s is a defined season.
func (s Season) Valid() bool { return s <= Winter }

// ParseSeason accepts the save-file name of a season.
func ParseSeason(str string) (Season, error) {
	for i, n := range seasonNames {
		if n == str {
			return Season(i), nil
		}
	}
	return 0, fmt.Errorf("%w: season %q", ErrUnknownValue, str)
}

// Rollover reports which calendar boundaries an advance crossed.
type Rollover struct {
	NewDay    bool
	NewSeason bool
	NewYear   bool
}

// Clock is the world calendar. The zero value is not usable; call New.
type Clock struct {
	Year         int
	Season       Season
	Day          int // day count since the start of the run, ≥ 1
	Period       Period
	SeasonLength int
}

// New returns a clock at spring morning of day 1, year 1.
func New(seasonLength int) *Clock {
	if seasonLength <= 0 {
		seasonLength = DefaultSeasonLength
	}
	return &Clock{
		Year:         1,
		Season:       Spring,
		Day:          1,
		Period:       Morning,
		SeasonLength: seasonLength,
	}
}

// AdvancePeriod moves to the next period. Wrapping from night starts a new day.
func (c *Clock) AdvancePeriod() Rollover {
	c.Period = c.Period.Next()
	if c.Period != Morning {
		return Rollover{}
	}
	return c.newDay()
}

// AdvanceDay jumps straight to the next morning.
func (c *Clock) AdvanceDay() Rollover {
	c.Period = Morning
	return c.newDay()
}

func (c *Clock) newDay() Rollover {
	r := Rollover{NewDay: true}
	c.Day++
	if c.Day%c.SeasonLength == 0 {
		r.NewSeason = true
		c.Season = c.Season.Next()
		if c.Season == Spring {
			r.NewYear = true
			c.Year++
		}
	}
	return r
}

// DayOfSeason returns the 1-based day within the current season. The
// first season starts on day 1 and is one day shorter than the rest, since
// seasons roll over whenever the day count is a multiple of the length.
func (c *Clock) DayOfSeason() int {
	if c.Day < c.SeasonLength {
		return c.Day
	}
	return c.Day%c.SeasonLength + 1
}

// Snapshot is a value copy of the clock for records that must not alias it.
func (c *Clock) Snapshot() Clock { return *c }

// Label renders the clock for log lines and event descriptions.
func (c *Clock) Label() string {
	return fmt.Sprintf("Year %d, %s, Day %d, %s", c.Year, c.Season, c.Day, c.Period.Title())
}

func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: period %d", ErrUnknownValue, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (s Season) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: season %d", ErrUnknownValue, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Season) UnmarshalText(b []byte) error {
	v, err := ParseSeason(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
