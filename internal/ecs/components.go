package ecs

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/clock"
)

// Component defaults.
const (
	DefaultInventoryCapacity = 20
	DefaultMemoryCapacity    = 50
	MaxRelationshipEntries   = 100
	MaxScheduleEntries       = 10
	MaxGoals                 = 10
)

// Need decay per unit of elapsed time.
const (
	HungerDecay = 5.0
	EnergyDecay = 3.0
	SocialDecay = 2.0
)

// Position places an entity on the world plane.
type Position struct {
	Location string  `json:"location"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func (*Position) Kind() Kind { return KindPosition }

// Health tracks hit points.
type Health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (*Health) Kind() Kind { return KindHealth }

// Heal adds amount up to Max.
func (h *Health) Heal(amount int) {
	h.Current = min(h.Current+amount, h.Max)
}

// Damage subtracts amount, flooring at zero.
func (h *Health) Damage(amount int) {
	h.Current = max(h.Current-amount, 0)
}

// Stack is one inventory slot.
type Stack struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Inventory is a bounded list of item stacks. Capacity counts stacks, not units.
type Inventory struct {
	Items    []Stack `json:"items"`
	Capacity int     `json:"capacity"`
}

func (*Inventory) Kind() Kind { return KindInventory }

// NewInventory returns an empty inventory. A non-positive capacity uses the default.
func NewInventory(capacity int) *Inventory {
	if capacity <= 0 {
		capacity = DefaultInventoryCapacity
	}
	return &Inventory{Capacity: capacity}
}

// Add merges qty into an existing stack or opens a new one if a slot is free.
func (inv *Inventory) Add(item string, qty int) error {
	if item == "" || qty <= 0 {
		return fmt.Errorf("%w: add %d %q", ErrInvalidArgument, qty, item)
	}
	for i := range inv.Items {
		if inv.Items[i].Item == item {
			inv.Items[i].Quantity += qty
			return nil
		}
	}
	if len(inv.Items) >= inv.Capacity {
		return ErrInventoryFull
	}
	inv.Items = append(inv.Items, Stack{Item: item, Quantity: qty})
	return nil
}

// Remove takes qty from the named stack. Emptied stacks are dropped.
func (inv *Inventory) Remove(item string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: remove %d %q", ErrInvalidArgument, qty, item)
	}
	for i := range inv.Items {
		if inv.Items[i].Item != item {
			continue
		}
		if inv.Items[i].Quantity < qty {
			return ErrInsufficientItems
		}
		inv.Items[i].Quantity -= qty
		if inv.Items[i].Quantity == 0 {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
		}
		return nil
	}
	return ErrInsufficientItems
}

// Count returns the quantity held of item.
func (inv *Inventory) Count(item string) int {
	for _, s := range inv.Items {
		if s.Item == item {
			return s.Quantity
		}
	}
	return 0
}

// Has reports whether at least qty of item is held.
func (inv *Inventory) Has(item string, qty int) bool { return inv.Count(item) >= qty }

// Full reports whether every slot is taken.
func (inv *Inventory) Full() bool { return len(inv.Items) >= inv.Capacity }

// Currency is an entity's purse.
type Currency struct {
	Amount int `json:"amount"`
}

func (*Currency) Kind() Kind { return KindCurrency }

// Add credits amount. Negative amounts are refused.
func (c *Currency) Add(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: credit %d", ErrInvalidArgument, amount)
	}
	c.Amount += amount
	return nil
}

// Spend debits amount, failing without change when the purse is short.
func (c *Currency) Spend(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit %d", ErrInvalidArgument, amount)
	}
	if c.Amount < amount {
		return ErrInsufficientFunds
	}
	c.Amount -= amount
	return nil
}

// Need names one of the three drives.
type Need string

const (
	NeedHunger Need = "hunger"
	NeedEnergy Need = "energy"
	NeedSocial Need = "social"
)

// Needs holds the three drives, each in [0,100]. Higher is better.
type Needs struct {
	Hunger float64 `json:"hunger"`
	Energy float64 `json:"energy"`
	Social float64 `json:"social"`
}

func (*Needs) Kind() Kind { return KindNeeds }

// NewNeeds returns the starting drives of a villager.
func NewNeeds() *Needs {
	return &Needs{Hunger: 50, Energy: 100, Social: 50}
}

// Decay applies dt units of drive loss.
func (n *Needs) Decay(dt float64) {
	n.Hunger = clampNeed(n.Hunger - HungerDecay*dt)
	n.Energy = clampNeed(n.Energy - EnergyDecay*dt)
	n.Social = clampNeed(n.Social - SocialDecay*dt)
}

// Eat restores hunger.
func (n *Needs) Eat(amount float64) { n.Hunger = clampNeed(n.Hunger + amount) }

// Rest restores energy.
func (n *Needs) Rest(amount float64) { n.Energy = clampNeed(n.Energy + amount) }

// Socialize restores the social drive.
func (n *Needs) Socialize(amount float64) { n.Social = clampNeed(n.Social + amount) }

// Tire drains energy, e.g. after work.
func (n *Needs) Tire(amount float64) { n.Energy = clampNeed(n.Energy - amount) }

// MostUrgent returns the lowest drive. Ties favour hunger, then energy.
func (n *Needs) MostUrgent() Need {
	switch {
	case n.Hunger <= n.Energy && n.Hunger <= n.Social:
		return NeedHunger
	case n.Energy <= n.Social:
		return NeedEnergy
	default:
		return NeedSocial
	}
}

func clampNeed(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Relationship is one entity's own view of others, −100..100 per target.
type Relationship struct {
	Values map[EntityID]int `json:"values"`
}

func (*Relationship) Kind() Kind { return KindRelationship }

// NewRelationship returns an empty relationship table.
func NewRelationship() *Relationship {
	return &Relationship{Values: make(map[EntityID]int)}
}

// Get returns the stored value for other, zero when unknown.
func (r *Relationship) Get(other EntityID) int { return r.Values[other] }

// Set stores value for other, clamped to [−100,100].
func (r *Relationship) Set(other EntityID, value int) error {
	if _, ok := r.Values[other]; !ok && len(r.Values) >= MaxRelationshipEntries {
		return ErrRelationshipsFull
	}
	if r.Values == nil {
		r.Values = make(map[EntityID]int)
	}
	r.Values[other] = max(-100, min(100, value))
	return nil
}

// Modify adds delta to the stored value for other.
func (r *Relationship) Modify(other EntityID, delta int) error {
	return r.Set(other, r.Get(other)+delta)
}

// Level buckets a relationship value into a named tier.
func (r *Relationship) Level(other EntityID) string {
	return RelationshipLevel(r.Get(other))
}

// RelationshipLevel names the tier of a raw relationship value.
func RelationshipLevel(v int) string {
	switch {
	case v < -50:
		return "enemy"
	case v < -10:
		return "dislike"
	case v < 10:
		return "neutral"
	case v < 50:
		return "friendly"
	case v < 75:
		return "friend"
	default:
		return "close_friend"
	}
}

// ScheduleEntry maps a period to an activity.
type ScheduleEntry struct {
	Period   clock.Period `json:"period"`
	Activity string       `json:"activity"`
}

// Schedule is an ordered daily routine.
type Schedule struct {
	Entries []ScheduleEntry `json:"entries"`
}

func (*Schedule) Kind() Kind { return KindSchedule }

// Set assigns activity to a period, overwriting an existing entry.
func (s *Schedule) Set(p clock.Period, activity string) error {
	for i := range s.Entries {
		if s.Entries[i].Period == p {
			s.Entries[i].Activity = activity
			return nil
		}
	}
	if len(s.Entries) >= MaxScheduleEntries {
		return fmt.Errorf("%w: schedule holds %d entries", ErrInvalidArgument, MaxScheduleEntries)
	}
	s.Entries = append(s.Entries, ScheduleEntry{Period: p, Activity: activity})
	return nil
}

// ActivityAt returns the planned activity for p.
func (s *Schedule) ActivityAt(p clock.Period) (string, bool) {
	for _, e := range s.Entries {
		if e.Period == p {
			return e.Activity, true
		}
	}
	return "", false
}

// Occupation describes what an entity does for a living.
type Occupation struct {
	Title     string `json:"title"`
	Workplace string `json:"workplace"`
	Skill     int    `json:"skill"`
}

func (*Occupation) Kind() Kind { return KindOccupation }

// MemoryEntry is one remembered moment.
type MemoryEntry struct {
	Text   string       `json:"text"`
	Day    int          `json:"day"`
	Period clock.Period `json:"period"`
}

// Memory keeps the most recent Capacity entries, oldest first.
type Memory struct {
	Entries  []MemoryEntry `json:"entries"`
	Capacity int           `json:"capacity"`
}

func (*Memory) Kind() Kind { return KindMemory }

// NewMemory returns an empty memory. A non-positive capacity uses the default.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{Capacity: capacity}
}

// Add records an entry, dropping the oldest when full.
func (m *Memory) Add(text string, day int, p clock.Period) {
	if len(m.Entries) >= m.Capacity {
		m.Entries = append(m.Entries[:0], m.Entries[len(m.Entries)-m.Capacity+1:]...)
	}
	m.Entries = append(m.Entries, MemoryEntry{Text: text, Day: day, Period: p})
}

// Recent returns up to n entries, newest first.
func (m *Memory) Recent(n int) []MemoryEntry {
	n = min(n, len(m.Entries))
	out := make([]MemoryEntry, 0, n)
	for i := len(m.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.Entries[i])
	}
	return out
}

// Goal is the entity's current aim plus a backlog of unique goals.
type Goal struct {
	Current string   `json:"current"`
	Backlog []string `json:"backlog"`
}

func (*Goal) Kind() Kind { return KindGoal }

// Add appends a goal to the backlog if it is new and there is room.
func (g *Goal) Add(goal string) error {
	if goal == "" {
		return fmt.Errorf("%w: empty goal", ErrInvalidArgument)
	}
	for _, b := range g.Backlog {
		if b == goal {
			return nil
		}
	}
	if len(g.Backlog) >= MaxGoals {
		return fmt.Errorf("%w: goal backlog holds %d entries", ErrInvalidArgument, MaxGoals)
	}
	g.Backlog = append(g.Backlog, goal)
	return nil
}

// Complete removes goal from the backlog and clears Current if it matches.
func (g *Goal) Complete(goal string) bool {
	found := false
	for i, b := range g.Backlog {
		if b == goal {
			g.Backlog = append(g.Backlog[:i], g.Backlog[i+1:]...)
			found = true
			break
		}
	}
	if g.Current == goal {
		g.Current = ""
		found = true
	}
	return found
}

// clone returns a deep copy of c so snapshots never alias live state.
func clone(c Component) Component {
	switch v := c.(type) {
	case *Position:
		cp := *v
		return &cp
	case *Health:
		cp := *v
		return &cp
	case *Inventory:
		cp := *v
		cp.Items = append([]Stack(nil), v.Items...)
		return &cp
	case *Currency:
		cp := *v
		return &cp
	case *Needs:
		cp := *v
		return &cp
	case *Relationship:
		cp := &Relationship{Values: make(map[EntityID]int, len(v.Values))}
		for k, val := range v.Values {
			cp.Values[k] = val
		}
		return cp
	case *Schedule:
		cp := *v
		cp.Entries = append([]ScheduleEntry(nil), v.Entries...)
		return &cp
	case *Occupation:
		cp := *v
		return &cp
	case *Memory:
		cp := *v
		cp.Entries = append([]MemoryEntry(nil), v.Entries...)
		return &cp
	case *Goal:
		cp := *v
		cp.Backlog = append([]string(nil), v.Backlog...)
		return &cp
	}
	panic(fmt.Sprintf("ecs: clone of unknown component %T", c))
}
