// Simulation ties together all village systems and steps them one period
// at a time.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/behavior"
	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNoTree   = errors.New("entity has no behavior tree")
)

// Simulation holds the complete village state. It is not safe for
// concurrent use; the Engine serializes access.
type Simulation struct {
	Options config.Options

	Registry  *ecs.Registry
	Clock     *clock.Clock
	Weather   *weather.State
	Bus       *event.Bus
	Events    *event.Log
	Decisions *decision.Log
	World     *world.Graph
	Farms     *agriculture.Manager
	Social    *social.Manager
	Market    *economy.Market

	Player    ecs.EntityID
	RunID     string
	CreatedAt int64

	trees    map[ecs.EntityID]*behavior.Tree
	contexts map[ecs.EntityID]*behavior.Context
	now      func() time.Time
}

// Option configures a Simulation at construction.
type Option func(*Simulation)

// WithNow replaces the wall clock behind every timestamp the simulation
// writes, so that runs can be compared byte for byte.
func WithNow(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(s *Simulation) { s.RunID = id }
}

// WithWeatherRule replaces the seasonal weather rule.
func WithWeatherRule(r weather.Rule) Option {
	return func(s *Simulation) { s.Weather.SetRule(r) }
}

// New creates an empty simulation: no locations, no entities, the stock
// crop types and item catalogue.
func New(opts config.Options, simOpts ...Option) (*Simulation, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	s := &Simulation{
		Options:  opts,
		Registry: ecs.NewRegistry(opts.MaxEntities),
		Clock:    clock.New(opts.SeasonLengthDays),
		Weather:  weather.NewState(weather.NewSeasonal(opts.Seed)),
		Events:   event.NewLog(opts.EventLogCapacity),
		World:    world.NewGraph(opts.WorldName, opts.WorldSize.Width, opts.WorldSize.Height, opts.MaxLocations),
		Farms:    agriculture.NewManager(opts.MaxCropsPerField),
		trees:    make(map[ecs.EntityID]*behavior.Tree),
		contexts: make(map[ecs.EntityID]*behavior.Context),
		now:      time.Now,
	}
	for _, o := range simOpts {
		o(s)
	}

	s.Bus = event.NewBus(
		event.WithClock(s.now),
		event.WithMaxSubscribers(opts.MaxSubscribers),
		event.WithStamp(s.stamp),
	)
	if _, err := s.Bus.Subscribe(event.Any(), s.Events.Handler()); err != nil {
		return nil, fmt.Errorf("subscribe event log: %w", err)
	}
	s.Decisions = decision.NewLog(opts.DecisionLogCapacity, decision.WithClock(s.now))
	s.Social = social.NewManager(social.WithClock(s.now), social.WithMaxRelationships(opts.MaxRelationships))
	s.Market = economy.NewMarket(economy.DefaultCatalogue(), s.Bus)

	for _, t := range agriculture.DefaultCropTypes() {
		if err := s.Farms.RegisterType(t); err != nil {
			return nil, fmt.Errorf("register crop %s: %w", t.Name, err)
		}
	}
	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}
	s.CreatedAt = s.now().Unix()
	return s, nil
}

// stamp fills in the game day and period of events published without one.
func (s *Simulation) stamp(e *event.Event) {
	if e.GameDay == 0 {
		e.GameDay = s.Clock.Day
	}
	if e.GameTime == "" {
		e.GameTime = s.Clock.Period.String()
	}
}

// Now returns the simulation's wall clock reading.
func (s *Simulation) Now() time.Time { return s.now() }

// AssignTree makes id an autonomous agent driven by t.
func (s *Simulation) AssignTree(id ecs.EntityID, t *behavior.Tree) error {
	if !s.Registry.Alive(id) {
		return fmt.Errorf("assign tree to %d: %w", id, ErrNotFound)
	}
	t.Entity = id
	s.trees[id] = t
	ctx := behavior.NewContext(id, s.Registry)
	ctx.SetBlackboardCapacity(s.Options.BlackboardCapacity)
	s.contexts[id] = ctx
	return nil
}

// AssignDefaultTrees gives every villager without a tree the stock tree for
// its occupation.
func (s *Simulation) AssignDefaultTrees() error {
	for _, e := range s.Registry.ByArchetype(ecs.ArchetypeVillager) {
		if _, ok := s.trees[e.ID]; ok {
			continue
		}
		title := ""
		if occ := s.Registry.Occupation(e.ID); occ != nil {
			title = occ.Title
		}
		if err := s.AssignTree(e.ID, behavior.ForOccupation(title)); err != nil {
			return err
		}
	}
	return nil
}

// Tree returns the behavior tree driving id.
func (s *Simulation) Tree(id ecs.EntityID) (*behavior.Tree, bool) {
	t, ok := s.trees[id]
	return t, ok
}

// Agents lists the autonomous agents in ID order.
func (s *Simulation) Agents() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(s.trees))
	for id := range s.trees {
		if s.Registry.Alive(id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// TickPeriod advances the clock one period and runs everything that period
// brings: the new-day systems on a day boundary, then every agent in
// ascending ID order, then the period event.
func (s *Simulation) TickPeriod() clock.Rollover {
	roll := s.Clock.AdvancePeriod()
	if roll.NewDay {
		s.newDay(roll)
	}
	for _, id := range s.Agents() {
		s.tickAgent(id)
	}
	s.publish(event.NewTimeAdvance(periodEvent(s.Clock.Period), s.Clock.Day, s.Clock.Period.String()))
	return roll
}

// AdvanceDays ticks whole days.
func (s *Simulation) AdvanceDays(n int) {
	for i := 0; i < n*PeriodsPerDay; i++ {
		s.TickPeriod()
	}
}

func (s *Simulation) newDay(roll clock.Rollover) {
	s.rollWeather()
	s.publish(event.NewTimeAdvance(event.NewDay, s.Clock.Day, s.Clock.Period.String()))
	if roll.NewSeason {
		s.changeSeason(roll)
	}
	s.growCrops()
	s.decayRelationships()
	s.Market.Daily()
	s.decayNeeds()
	s.dailyReport()
}

func (s *Simulation) decayNeeds() {
	for _, e := range s.Registry.Query(ecs.MaskOf(ecs.KindNeeds)) {
		s.Registry.Needs(e.ID).Decay(1)
	}
}

// tickAgent runs one agent's tree and logs the decision it made.
func (s *Simulation) tickAgent(id ecs.EntityID) {
	tree := s.trees[id]
	ctx := s.contexts[id]

	snap, err := decision.Capture(decision.Params{
		Registry:        s.Registry,
		Clock:           s.Clock.Snapshot(),
		Weather:         s.Weather.Current,
		Events:          s.Events,
		Radius:          s.Options.NearbyRadius,
		MaxNearby:       s.Options.MaxNearbyEntities,
		MaxRecentEvents: s.Options.MaxRecentEventsPerContext,
	}, id)
	if err != nil {
		slog.Warn("decision context capture failed", "entity", id, "error", err)
		return
	}

	ctx.Clock = s.Clock.Snapshot()
	ctx.Weather = s.Weather.Current
	ctx.Snapshot = &snap
	ctx.Graph = s.World
	ctx.Farms = s.Farms
	ctx.Social = s.Social
	ctx.Market = s.Market
	ctx.Bus = s.Bus
	ctx.Events = s.Events
	ctx.Decisions = s.Decisions

	status := tree.Tick(ctx)

	opts := ctx.Options()
	chosen := ctx.Chosen()
	if chosen < 0 && len(opts) > 0 {
		chosen = len(opts) - 1
	}
	rec, err := decision.NewRecord(snap, opts, chosen, ctx.Reasoning())
	if err != nil {
		slog.Warn("decision record rejected", "entity", id, "error", err)
		return
	}
	utility := 0.0
	if opt, ok := rec.ChosenOption(); ok && status != behavior.Failure {
		utility = opt.Utility
	}
	rec.SetOutcome(status == behavior.Success, utility, ctx.Outcome())
	s.Decisions.Append(rec)
}

func (s *Simulation) publish(e *event.Event) {
	if _, err := s.Bus.Publish(e); err != nil {
		slog.Warn("publish failed", "event", e.SubKind.String(), "error", err)
	}
}

func periodEvent(p clock.Period) event.SubKind {
	switch p {
	case clock.Afternoon:
		return event.AfternoonStarted
	case clock.Evening:
		return event.EveningStarted
	case clock.Night:
		return event.NightStarted
	}
	return event.MorningStarted
}

// PlayerID returns the player entity, or ecs.NoEntity.
func (s *Simulation) PlayerID() ecs.EntityID { return s.Player }

// Stats summarizes the village for reports and the API.
type Stats struct {
	Day          int                       `json:"day"`
	Season       string                    `json:"season"`
	Year         int                       `json:"year"`
	Period       string                    `json:"time_of_day"`
	Weather      string                    `json:"weather"`
	Entities     int                       `json:"entities"`
	Agents       int                       `json:"agents"`
	Crops        map[agriculture.Stage]int `json:"crops_by_stage"`
	Events       int                       `json:"total_events_logged"`
	Decisions    int                       `json:"total_decisions"`
	Successful   int                       `json:"successful_decisions"`
	Relationship int                       `json:"relationships"`
}

// Stats returns the current summary.
func (s *Simulation) Stats() Stats {
	ds := s.Decisions.Stats()
	return Stats{
		Day:          s.Clock.Day,
		Season:       s.Clock.Season.String(),
		Year:         s.Clock.Year,
		Period:       s.Clock.Period.String(),
		Weather:      s.Weather.Current.String(),
		Entities:     s.Registry.Len(),
		Agents:       len(s.Agents()),
		Crops:        s.Farms.StageCounts(),
		Events:       s.Events.Stats().Total,
		Decisions:    ds.Total,
		Successful:   ds.Successful,
		Relationship: s.Social.Len(),
	}
}

func (s *Simulation) dailyReport() {
	st := s.Stats()
	slog.Info("daily report",
		"day", st.Day,
		"season", st.Season,
		"year", st.Year,
		"weather", st.Weather,
		"crops", s.Farms.TotalCrops(),
		"mature", st.Crops[agriculture.Mature],
		"withered", st.Crops[agriculture.Withered],
		"relationships", st.Relationship,
		"events", st.Events,
		"decisions", st.Decisions,
		"successful", st.Successful,
	)
}
