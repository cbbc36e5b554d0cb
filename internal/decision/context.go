package decision

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/weather"
)

// Capture defaults.
const (
	DefaultNearbyRadius    = 100.0
	DefaultMaxNearby       = 20
	DefaultMaxRecentEvents = 10
)

var ErrEntityNotFound = errors.New("entity not found")

// Nearby is another entity within sight at decision time.
type Nearby struct {
	ID           ecs.EntityID `json:"id"`
	Name         string       `json:"name"`
	Relationship int          `json:"relationship"`
	Distance     float64      `json:"distance"`
}

// Context is a flat copy of everything an agent could see when it decided.
// Each has_* flag says whether the matching block was captured.
type Context struct {
	EntityID   ecs.EntityID `json:"entity_id"`
	EntityName string       `json:"entity_name"`
	EntityType string       `json:"entity_type"`

	Day                int          `json:"day_count"`
	Period             clock.Period `json:"time_of_day"`
	Season             clock.Season `json:"season"`
	Year               int          `json:"year"`
	Weather            weather.Kind `json:"weather"`
	WeatherDescription string       `json:"weather_description"`

	X        float64 `json:"position_x"`
	Y        float64 `json:"position_y"`
	Location string  `json:"location"`

	HasNeeds bool    `json:"has_needs"`
	Hunger   float64 `json:"hunger"`
	Energy   float64 `json:"energy"`
	Social   float64 `json:"social"`

	HasHealth     bool `json:"has_health"`
	HealthCurrent int  `json:"health_current"`
	HealthMax     int  `json:"health_max"`

	HasCurrency bool `json:"has_currency"`
	Currency    int  `json:"currency"`

	HasInventory      bool `json:"has_inventory"`
	InventoryItems    int  `json:"inventory_item_count"`
	InventoryCapacity int  `json:"inventory_capacity"`

	HasOccupation bool   `json:"has_occupation"`
	Occupation    string `json:"occupation"`
	SkillLevel    int    `json:"skill_level"`

	HasGoal     bool   `json:"has_goal"`
	CurrentGoal string `json:"current_goal"`

	HasRelationships bool     `json:"has_relationships"`
	Nearby           []Nearby `json:"nearby_entities"`

	HasSchedule     bool   `json:"has_schedule"`
	CurrentActivity string `json:"current_activity"`

	RecentEvents []uint64 `json:"recent_event_ids"`

	HasMemory   bool `json:"has_memory"`
	MemoryCount int  `json:"memory_count"`
}

// Clone returns a copy whose slices are not shared.
func (c Context) Clone() Context {
	c.Nearby = slices.Clone(c.Nearby)
	c.RecentEvents = slices.Clone(c.RecentEvents)
	return c
}

// Friendliest returns the nearby entity with the highest relationship value.
func (c *Context) Friendliest() (Nearby, bool) {
	if len(c.Nearby) == 0 {
		return Nearby{}, false
	}
	best := c.Nearby[0]
	for _, n := range c.Nearby[1:] {
		if n.Relationship > best.Relationship {
			best = n
		}
	}
	return best, true
}

// Params are the world handles and bounds a capture reads.
type Params struct {
	Registry *ecs.Registry
	Clock    clock.Clock
	Weather  weather.Kind
	Events   *event.Log // optional

	Radius          float64
	MaxNearby       int
	MaxRecentEvents int
}

func (p *Params) defaults() {
	if p.Radius <= 0 {
		p.Radius = DefaultNearbyRadius
	}
	if p.MaxNearby <= 0 {
		p.MaxNearby = DefaultMaxNearby
	}
	if p.MaxRecentEvents <= 0 {
		p.MaxRecentEvents = DefaultMaxRecentEvents
	}
}

// Capture builds the context for entity id. Nearby entities are the closest
// MaxNearby within Radius, nearest first, ties by ID. Recent events are the
// newest MaxRecentEvents naming id, oldest first.
func Capture(p Params, id ecs.EntityID) (Context, error) {
	p.defaults()
	e := p.Registry.Get(id)
	if e == nil || !e.Active {
		return Context{}, fmt.Errorf("capture %d: %w", id, ErrEntityNotFound)
	}
	ctx := Context{
		EntityID:           e.ID,
		EntityName:         e.Name,
		EntityType:         e.Archetype,
		Day:                p.Clock.Day,
		Period:             p.Clock.Period,
		Season:             p.Clock.Season,
		Year:               p.Clock.Year,
		Weather:            p.Weather,
		WeatherDescription: p.Weather.Title(),
	}
	captureComponents(&ctx, p, e)
	if pos := p.Registry.Position(id); pos != nil {
		ctx.Nearby = nearby(p, e, pos)
	}
	if p.Events != nil {
		for _, ev := range p.Events.ByEntity(id, p.MaxRecentEvents) {
			ctx.RecentEvents = append(ctx.RecentEvents, ev.ID)
		}
	}
	return ctx, nil
}

func captureComponents(ctx *Context, p Params, e *ecs.Entity) {
	for _, c := range e.Components() {
		switch v := c.(type) {
		case *ecs.Position:
			ctx.X, ctx.Y, ctx.Location = v.X, v.Y, v.Location
		case *ecs.Needs:
			ctx.HasNeeds = true
			ctx.Hunger, ctx.Energy, ctx.Social = v.Hunger, v.Energy, v.Social
		case *ecs.Health:
			ctx.HasHealth = true
			ctx.HealthCurrent, ctx.HealthMax = v.Current, v.Max
		case *ecs.Currency:
			ctx.HasCurrency = true
			ctx.Currency = v.Amount
		case *ecs.Inventory:
			ctx.HasInventory = true
			ctx.InventoryItems, ctx.InventoryCapacity = len(v.Items), v.Capacity
		case *ecs.Occupation:
			ctx.HasOccupation = true
			ctx.Occupation, ctx.SkillLevel = v.Title, v.Skill
		case *ecs.Goal:
			ctx.HasGoal = true
			ctx.CurrentGoal = v.Current
		case *ecs.Relationship:
			ctx.HasRelationships = true
		case *ecs.Schedule:
			ctx.HasSchedule = true
			ctx.CurrentActivity, _ = v.ActivityAt(p.Clock.Period)
		case *ecs.Memory:
			ctx.HasMemory = true
			ctx.MemoryCount = len(v.Entries)
		}
	}
}

func nearby(p Params, self *ecs.Entity, pos *ecs.Position) []Nearby {
	rel := p.Registry.Relationship(self.ID)
	var out []Nearby
	for _, o := range p.Registry.Query(ecs.MaskOf(ecs.KindPosition)) {
		if o.ID == self.ID {
			continue
		}
		op := o.Component(ecs.KindPosition).(*ecs.Position)
		d := math.Hypot(op.X-pos.X, op.Y-pos.Y)
		if d > p.Radius {
			continue
		}
		n := Nearby{ID: o.ID, Name: o.Name, Distance: d}
		if rel != nil {
			n.Relationship = rel.Get(o.ID)
		}
		out = append(out, n)
	}
	slices.SortStableFunc(out, func(a, b Nearby) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return int(a.ID - b.ID)
	})
	if len(out) > p.MaxNearby {
		out = out[:p.MaxNearby]
	}
	return out
}
