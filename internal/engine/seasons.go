// Weather and seasonal rollover.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/weather"
)

// rollWeather runs the weather rule for the new day.
func (s *Simulation) rollWeather() {
	prev, changed := s.Weather.Roll(s.Clock.Snapshot())
	if !changed {
		return
	}
	slog.Debug("weather changed", "day", s.Clock.Day, "from", prev.String(), "to", s.Weather.Current.String())
	s.publish(event.NewWeatherChange(prev.String(), s.Weather.Current.String()))
}

// changeSeason announces a new season, and a new year when spring returns.
func (s *Simulation) changeSeason(roll clock.Rollover) {
	slog.Info("season changed", "season", s.Clock.Season.String(), "year", s.Clock.Year)
	s.publish(event.New(event.SeasonChanged, ecs.NoEntity, ecs.NoEntity,
		fmt.Sprintf("%s has arrived", s.Clock.Season)))
	s.publish(event.NewTimeAdvance(event.NewSeason, s.Clock.Day, s.Clock.Period.String()))
	if roll.NewYear {
		s.publish(event.NewTimeAdvance(event.NewYear, s.Clock.Day, s.Clock.Period.String()))
	}
}

// Forecast describes today's weather in a sentence.
func (s *Simulation) Forecast() string {
	return weather.Describe(s.Weather.Current, s.Clock.Season)
}
