// Transparency queries: filtered reads of the event and decision logs, and
// plain-text explanations of individual decisions.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
)

// DefaultQueryLimit caps query results when no limit is given.
const DefaultQueryLimit = 50

// EventFilter selects events. Zero fields match everything.
type EventFilter struct {
	Kind    *event.Kind
	SubKind *event.SubKind
	Entity  ecs.EntityID // source or target; 0 matches any
	Day     int
	Limit   int
}

func (f EventFilter) match(e *event.Event) bool {
	switch {
	case f.Kind != nil && e.Kind != *f.Kind:
		return false
	case f.SubKind != nil && e.SubKind != *f.SubKind:
		return false
	case f.Entity > 0 && !e.Involves(f.Entity):
		return false
	case f.Day > 0 && e.GameDay != f.Day:
		return false
	}
	return true
}

// DecisionFilter selects decision records. Zero fields match everything.
type DecisionFilter struct {
	Action    *decision.Action
	Entity    ecs.EntityID
	Day       int
	Succeeded *bool
	Limit     int
}

func (f DecisionFilter) match(r *decision.Record) bool {
	switch {
	case f.Action != nil && r.ChosenAction != *f.Action:
		return false
	case f.Entity > 0 && r.EntityID != f.Entity:
		return false
	case f.Day > 0 && r.GameDay != f.Day:
		return false
	case f.Succeeded != nil && r.Succeeded != *f.Succeeded:
		return false
	}
	return true
}

func limit(n int) int {
	if n <= 0 {
		return DefaultQueryLimit
	}
	return n
}

// QueryEvents returns the newest matching events, oldest first.
func (s *Simulation) QueryEvents(f EventFilter) []event.Event {
	all := s.Events.All()
	out := make([]event.Event, 0, min(limit(f.Limit), len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit(f.Limit); i-- {
		if f.match(&all[i]) {
			out = append(out, all[i])
		}
	}
	reverse(out)
	return out
}

// QueryDecisions returns the newest matching decisions, oldest first.
func (s *Simulation) QueryDecisions(f DecisionFilter) []decision.Record {
	all := s.Decisions.All()
	out := make([]decision.Record, 0, min(limit(f.Limit), len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit(f.Limit); i-- {
		if f.match(&all[i]) {
			out = append(out, all[i])
		}
	}
	reverse(out)
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Explanation is a decision together with the events it saw.
type Explanation struct {
	Record       decision.Record `json:"decision"`
	RecentEvents []event.Event   `json:"recent_events"`
	Text         string          `json:"text"`
}

// Explain renders decision id: what the agent saw, what it weighed and
// what it chose. Events that have since left the log are listed by id only.
func (s *Simulation) Explain(id uint64) (Explanation, error) {
	rec, ok := s.Decisions.Get(id)
	if !ok {
		return Explanation{}, fmt.Errorf("decision %d: %w", id, ErrNotFound)
	}
	ex := Explanation{Record: rec}
	for _, eid := range rec.Context.RecentEvents {
		if e, ok := s.Events.Get(eid); ok {
			ex.RecentEvents = append(ex.RecentEvents, e)
		}
	}
	ex.Text = renderExplanation(&rec, ex.RecentEvents)
	return ex, nil
}

func renderExplanation(r *decision.Record, seen []event.Event) string {
	var b strings.Builder
	c := &r.Context

	fmt.Fprintf(&b, "Decision #%d by %s (day %d, %s)\n", r.ID, r.EntityName, r.GameDay, r.GameTime)
	fmt.Fprintf(&b, "Saw: %s at (%.0f, %.0f), %s, %s of year %d\n",
		orDash(c.Location), c.X, c.Y, c.Weather, c.Season, c.Year)
	if c.HasNeeds {
		fmt.Fprintf(&b, "Needs: hunger %.0f, energy %.0f, social %.0f\n", c.Hunger, c.Energy, c.Social)
	}
	if c.HasHealth {
		fmt.Fprintf(&b, "Health: %d/%d\n", c.HealthCurrent, c.HealthMax)
	}
	if c.HasCurrency {
		fmt.Fprintf(&b, "Gold: %d\n", c.Currency)
	}
	if c.HasInventory {
		fmt.Fprintf(&b, "Inventory: %d/%d stacks\n", c.InventoryItems, c.InventoryCapacity)
	}
	if c.HasOccupation {
		fmt.Fprintf(&b, "Occupation: %s (skill %d)\n", c.Occupation, c.SkillLevel)
	}
	if c.HasGoal && c.CurrentGoal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", c.CurrentGoal)
	}
	if len(c.Nearby) > 0 {
		b.WriteString("Nearby:\n")
		for _, n := range c.Nearby {
			fmt.Fprintf(&b, "  %s (#%d) %.1f away, affection %d\n", n.Name, n.ID, n.Distance, n.Relationship)
		}
	}
	if len(c.RecentEvents) > 0 {
		b.WriteString("Recent events:\n")
		known := make(map[uint64]string, len(seen))
		for _, e := range seen {
			known[e.ID] = e.Description
		}
		for _, id := range c.RecentEvents {
			desc, ok := known[id]
			if !ok {
				desc = "(no longer in the log)"
			}
			fmt.Fprintf(&b, "  #%d %s\n", id, desc)
		}
	}

	if len(r.Options) == 0 {
		b.WriteString("Options: none\n")
	} else {
		b.WriteString("Options:\n")
		for i, o := range r.Options {
			mark := " "
			if i == r.Chosen {
				mark = "*"
			}
			fmt.Fprintf(&b, " %s[%d] %s: %s (utility %.2f, cost %.2f, chance %.2f)\n",
				mark, i, o.Action, o.Description, o.Utility, o.Cost, o.SuccessChance)
		}
	}
	fmt.Fprintf(&b, "Chose: %s\n", r.ChosenAction)
	if r.Reasoning != "" {
		fmt.Fprintf(&b, "Because: %s\n", r.Reasoning)
	}
	switch {
	case !r.Executed:
		b.WriteString("Outcome: not executed\n")
	case r.Succeeded:
		fmt.Fprintf(&b, "Outcome: succeeded (utility %.2f) %s\n", r.ActualUtility, r.Outcome)
	default:
		fmt.Fprintf(&b, "Outcome: failed %s\n", r.Outcome)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// EntityView is the read-only shape of an entity for reports and the API.
type EntityView struct {
	ID         ecs.EntityID      `json:"id"`
	Name       string            `json:"name"`
	Archetype  string            `json:"archetype"`
	Active     bool              `json:"active"`
	Agent      bool              `json:"agent"`
	Components []json.RawMessage `json:"components"`
}

// Entity returns a view of id.
func (s *Simulation) Entity(id ecs.EntityID) (EntityView, error) {
	e := s.Registry.Get(id)
	if e == nil {
		return EntityView{}, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	_, agent := s.trees[id]
	v := EntityView{
		ID:        e.ID,
		Name:      e.Name,
		Archetype: e.Archetype,
		Active:    e.Active,
		Agent:     agent,
	}
	for _, c := range e.Components() {
		raw, err := ecs.MarshalComponent(c)
		if err != nil {
			return EntityView{}, err
		}
		v.Components = append(v.Components, raw)
	}
	return v, nil
}

// Entities lists every active entity in ID order.
func (s *Simulation) Entities() []EntityView {
	active := s.Registry.Active()
	out := make([]EntityView, 0, len(active))
	for _, e := range active {
		if v, err := s.Entity(e.ID); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// RelationshipsOf returns copies of every relationship id takes part in.
func (s *Simulation) RelationshipsOf(id ecs.EntityID) []social.Relationship {
	rs := s.Social.RelationshipsOf(id)
	out := make([]social.Relationship, 0, len(rs))
	for _, r := range rs {
		out = append(out, *r)
	}
	return out
}

// CropView is a crop and the field it grows in.
type CropView struct {
	Field string           `json:"field"`
	Crop  agriculture.Crop `json:"crop"`
}

// Crops lists every planted crop, field by field.
func (s *Simulation) Crops() []CropView {
	var out []CropView
	for _, f := range s.Farms.Fields() {
		name := ""
		if loc := s.World.Location(f.Location); loc != nil {
			name = loc.Name
		}
		for _, c := range f.Crops() {
			out = append(out, CropView{Field: name, Crop: *c})
		}
	}
	return out
}
