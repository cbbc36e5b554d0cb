package behavior

import (
	"math"
	"strings"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/ecs"
)

// Thresholds used by the stock conditions.
const (
	HungryBelow     = 30.0
	TiredBelow      = 30.0
	LonelyBelow     = 30.0
	UrgentBelow     = 20.0
	MinCurrency     = 10
	FriendRadius    = 10.0
	FriendAffection = 30
)

// Foods lists what villagers eat, best first, with how much hunger each restores.
var Foods = []struct {
	Item    string
	Restore float64
}{
	{"Bread", 30},
	{"Wheat", 15},
}

func needs(c *Context) *ecs.Needs { return c.Registry.Needs(c.Entity) }

// Hungry holds when hunger is below HungryBelow.
func Hungry(c *Context) bool {
	n := needs(c)
	return n != nil && n.Hunger < HungryBelow
}

// Tired holds when energy is below TiredBelow.
func Tired(c *Context) bool {
	n := needs(c)
	return n != nil && n.Energy < TiredBelow
}

// Lonely holds when the social drive is below LonelyBelow.
func Lonely(c *Context) bool {
	n := needs(c)
	return n != nil && n.Social < LonelyBelow
}

// NeedsUrgent holds when any drive is below UrgentBelow.
func NeedsUrgent(c *Context) bool {
	n := needs(c)
	return n != nil && (n.Hunger < UrgentBelow || n.Energy < UrgentBelow || n.Social < UrgentBelow)
}

// HasCurrency holds when the purse has at least MinCurrency gold.
func HasCurrency(c *Context) bool {
	cur := c.Registry.Currency(c.Entity)
	return cur != nil && cur.Amount >= MinCurrency
}

// InventoryFull holds when no new stack fits.
func InventoryFull(c *Context) bool {
	inv := c.Registry.Inventory(c.Entity)
	return inv != nil && inv.Full()
}

// HasFood holds when the inventory carries anything in Foods.
func HasFood(c *Context) bool {
	inv := c.Registry.Inventory(c.Entity)
	if inv == nil {
		return false
	}
	for _, f := range Foods {
		if inv.Has(f.Item, 1) {
			return true
		}
	}
	return false
}

// HasItem holds when at least qty of item is carried.
func HasItem(item string, qty int) ConditionFunc {
	return func(c *Context) bool {
		inv := c.Registry.Inventory(c.Entity)
		return inv != nil && inv.Has(item, qty)
	}
}

// IsPeriod holds during period p.
func IsPeriod(p clock.Period) ConditionFunc {
	return func(c *Context) bool { return c.Clock.Period == p }
}

var (
	IsMorning   = IsPeriod(clock.Morning)
	IsAfternoon = IsPeriod(clock.Afternoon)
	IsEvening   = IsPeriod(clock.Evening)
	IsNight     = IsPeriod(clock.Night)
)

// NearbyFriend holds when someone within FriendRadius is liked above
// FriendAffection. The friend is left on the blackboard under
// KeyTargetEntity for the actions that follow.
func NearbyFriend(c *Context) bool {
	pos := c.Registry.Position(c.Entity)
	rel := c.Registry.Relationship(c.Entity)
	if pos == nil || rel == nil {
		return false
	}
	for _, o := range c.Registry.Query(ecs.MaskOf(ecs.KindPosition)) {
		if o.ID == c.Entity {
			continue
		}
		op := o.Component(ecs.KindPosition).(*ecs.Position)
		if math.Hypot(op.X-pos.X, op.Y-pos.Y) > FriendRadius {
			continue
		}
		if rel.Get(o.ID) > FriendAffection {
			_ = c.Set(KeyTargetEntity, o.ID)
			return true
		}
	}
	return false
}

// AtWorkplace holds when the current location names the workplace.
func AtWorkplace(c *Context) bool {
	pos := c.Registry.Position(c.Entity)
	occ := c.Registry.Occupation(c.Entity)
	if pos == nil || occ == nil || occ.Workplace == "" {
		return false
	}
	return strings.Contains(pos.Location, occ.Workplace)
}
