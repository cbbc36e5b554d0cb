package behavior

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
)

// Amounts applied by the stock actions.
const (
	RestAmount      = 40.0
	SocializeAmount = 30.0
	TalkAmount      = 25.0
	WorkEnergy      = 10.0
	FarmEnergy      = 15.0
	Wage            = 20
	ForageYield     = 5
	SellThreshold   = 5
)

// MoveTo walks one road towards the location named on the blackboard under
// KeyTargetLocation. It runs until the destination is reached.
func MoveTo(c *Context) Status {
	target, ok := c.Text(KeyTargetLocation)
	if !ok {
		c.Report("no destination")
		return Failure
	}
	pos := c.Registry.Position(c.Entity)
	if pos == nil {
		return Failure
	}
	if pos.Location == target {
		c.Report("%s is already at %s", c.Name(), target)
		return Success
	}
	if c.Graph == nil {
		from := pos.Location
		pos.Location = target
		c.Publish(event.NewMove(c.Entity, from, target))
		c.Report("%s went to %s", c.Name(), target)
		return Success
	}

	dst := c.Graph.ByName(target)
	if dst == nil {
		c.Report("%s does not exist", target)
		return Failure
	}
	cur, err := c.Graph.LocationOf(c.Entity)
	if err != nil {
		if err := c.Graph.Place(c.Entity, dst.ID); err != nil {
			c.Report("cannot enter %s: %v", target, err)
			return Failure
		}
		from := pos.Location
		pos.Location, pos.X, pos.Y = dst.Name, dst.X, dst.Y
		c.Publish(event.NewMove(c.Entity, from, dst.Name))
		c.Report("%s arrived at %s", c.Name(), dst.Name)
		return Success
	}
	path := c.Graph.FindPath(cur.ID, dst.ID)
	if len(path) < 2 {
		c.Report("no open road from %s to %s", cur.Name, target)
		return Failure
	}
	next := c.Graph.Location(path[1])
	if err := c.Graph.Move(c.Entity, cur.ID, next.ID); err != nil {
		c.Report("cannot enter %s: %v", next.Name, err)
		return Failure
	}
	pos.Location, pos.X, pos.Y = next.Name, next.X, next.Y
	c.Publish(event.NewMove(c.Entity, cur.Name, next.Name))
	if next.ID == dst.ID {
		c.Report("%s arrived at %s", c.Name(), dst.Name)
		return Success
	}
	c.Report("%s is walking to %s, now at %s", c.Name(), dst.Name, next.Name)
	return Running
}

// Wait does nothing and succeeds.
func Wait(c *Context) Status {
	c.Report("%s waited", c.Name())
	return Success
}

// Idle does nothing and succeeds.
func Idle(c *Context) Status {
	c.Report("%s idled", c.Name())
	return Success
}

// EatFood eats the best food carried.
func EatFood(c *Context) Status {
	n := needs(c)
	inv := c.Registry.Inventory(c.Entity)
	if n == nil || inv == nil {
		return Failure
	}
	for _, f := range Foods {
		if inv.Remove(f.Item, 1) != nil {
			continue
		}
		n.Eat(f.Restore)
		c.Publish(event.NewItem(event.ItemConsumed, c.Entity, f.Item, 1, "eaten"))
		c.Report("%s ate %s", c.Name(), f.Item)
		return Success
	}
	c.Report("%s has nothing to eat", c.Name())
	return Failure
}

// Rest restores energy.
func Rest(c *Context) Status {
	n := needs(c)
	if n == nil {
		return Failure
	}
	n.Rest(RestAmount)
	c.Publish(event.New(event.EntityRested, c.Entity, ecs.NoEntity, fmt.Sprintf("%s rested", c.Name())))
	c.Report("%s rested", c.Name())
	return Success
}

// Socialize restores the social drive, chatting with someone nearby if
// anyone is around.
func Socialize(c *Context) Status { return talk(c, SocializeAmount) }

// TalkToNearby chats with the nearby friend or neighbour.
func TalkToNearby(c *Context) Status { return talk(c, TalkAmount) }

func talk(c *Context, amount float64) Status {
	n := needs(c)
	if n == nil {
		return Failure
	}
	n.Socialize(amount)
	partner, ok := c.partner()
	if !ok || c.Social == nil {
		c.Publish(event.New(event.ConversationStarted, c.Entity, ecs.NoEntity,
			fmt.Sprintf("%s chatted with passers-by", c.Name())))
		c.Report("%s chatted with passers-by", c.Name())
		return Success
	}
	_ = c.Set(KeyTargetEntity, partner)
	ch, err := c.Social.Converse(c.Entity, partner, topicFor(c.Clock.Period))
	if err != nil {
		c.Report("%s could not talk to %s: %v", c.Name(), c.Registry.Name(partner), err)
		return Failure
	}
	c.mirror(ch.A, ch.B, ch.After)
	c.Publish(event.NewRelationshipChange(ch.A, ch.B, ch.Before, ch.After, ch.Reason))
	c.Report("%s %s with %s", c.Name(), ch.Reason, c.Registry.Name(partner))
	return Success
}

func topicFor(p clock.Period) social.Topic {
	switch p {
	case clock.Morning:
		return social.TopicWeather
	case clock.Afternoon:
		return social.TopicWork
	case clock.Evening:
		return social.TopicGossip
	}
	return social.TopicVillage
}

// Work spends energy for a day's wage.
func Work(c *Context) Status {
	if n := needs(c); n != nil {
		n.Tire(WorkEnergy)
	}
	if cur := c.Registry.Currency(c.Entity); cur != nil {
		if err := cur.Add(Wage); err != nil {
			return Failure
		}
		c.Publish(event.NewCurrency(c.Entity, Wage, "wages"))
	}
	c.Report("%s worked for %d gold", c.Name(), Wage)
	return Success
}

// Farm tends the agent's field: harvest what is ripe, otherwise water what
// is dry, otherwise sow carried seeds. Without a farm manager the agent
// forages ForageYield wheat instead.
func Farm(c *Context) Status {
	inv := c.Registry.Inventory(c.Entity)
	if c.Farms == nil {
		if inv == nil || inv.Add("Wheat", ForageYield) != nil {
			return Failure
		}
		tire(c, FarmEnergy)
		c.SetAction(decision.Harvest)
		c.Publish(event.NewItem(event.ItemGained, c.Entity, "Wheat", ForageYield, "foraged"))
		c.Report("%s gathered %d Wheat", c.Name(), ForageYield)
		return Success
	}
	f := c.field()
	if f == nil {
		c.Report("%s has no field to tend", c.Name())
		return Failure
	}
	if s, done := harvest(c, f, inv); done {
		return s
	}
	if watered := water(c, f); watered > 0 {
		tire(c, FarmEnergy)
		c.SetAction(decision.Water)
		c.Report("%s watered %d crops", c.Name(), watered)
		return Success
	}
	cleared := clearWithered(c, f)
	if s := sow(c, f, inv); s == Success || cleared == 0 {
		return s
	}
	tire(c, FarmEnergy)
	c.Report("%s cleared %d withered crops", c.Name(), cleared)
	return Success
}

func clearWithered(c *Context, f *agriculture.Field) int {
	n := 0
	for _, crop := range f.Crops() {
		if !crop.Withered() {
			continue
		}
		if _, err := c.Farms.Clear(f.Location, crop.ID); err == nil {
			n++
		}
	}
	return n
}

func tire(c *Context, amount float64) {
	if n := needs(c); n != nil {
		n.Tire(amount)
	}
}

func harvest(c *Context, f *agriculture.Field, inv *ecs.Inventory) (Status, bool) {
	ready := f.Ready()
	if len(ready) == 0 || inv == nil {
		return Failure, false
	}
	crop := ready[0]
	if inv.Full() && !inv.Has(crop.Type, 1) {
		c.Report("%s has no room for the %s harvest", c.Name(), crop.Type)
		return Failure, true
	}
	got, err := c.Farms.Harvest(f.Location, crop.ID)
	if err != nil {
		c.Report("harvest failed: %v", err)
		return Failure, true
	}
	if got.PredictedYield > 0 {
		if err := inv.Add(got.Type, got.PredictedYield); err != nil {
			c.Report("harvest lost: %v", err)
			return Failure, true
		}
	}
	tire(c, FarmEnergy)
	c.SetAction(decision.Harvest)
	c.Publish(event.NewCropAction(event.CropHarvested, got.Type, got.X, got.Y, got.Stage.String(), 0, c.Entity))
	c.Publish(event.NewItem(event.ItemGained, c.Entity, got.Type, got.PredictedYield, "harvest"))
	c.Report("%s harvested %d %s", c.Name(), got.PredictedYield, got.Type)
	return Success, true
}

func water(c *Context, f *agriculture.Field) int {
	n := 0
	for _, crop := range f.Crops() {
		if crop.Withered() || crop.WateredToday {
			continue
		}
		ok, err := c.Farms.Water(f.Location, crop.ID)
		if err != nil || !ok {
			continue
		}
		n++
		left := 0
		if t := c.Farms.Type(crop.Type); t != nil {
			left = crop.DaysLeft(t)
		}
		c.Publish(event.NewCropAction(event.CropWatered, crop.Type, crop.X, crop.Y, crop.Stage.String(), left, c.Entity))
	}
	return n
}

func sow(c *Context, f *agriculture.Field, inv *ecs.Inventory) Status {
	if inv == nil {
		return Failure
	}
	for _, t := range c.Farms.Types() {
		seeds := economy.SeedsFor(t.Name)
		if !t.GoodForPlanting(c.Clock.Season) || !inv.Has(seeds, 1) {
			continue
		}
		x, y, ok := freePlot(f)
		if !ok {
			c.Report("%s's field is full", c.Name())
			return Failure
		}
		crop, err := c.Farms.Plant(f.Location, t.Name, x, y, c.Entity)
		if err != nil {
			c.Report("planting failed: %v", err)
			return Failure
		}
		_ = inv.Remove(seeds, 1)
		tire(c, FarmEnergy)
		c.SetAction(decision.Plant)
		c.Publish(event.NewCropAction(event.CropPlanted, t.Name, x, y, crop.Stage.String(), t.DaysToMature, c.Entity))
		c.Report("%s planted %s at (%d, %d)", c.Name(), t.Name, x, y)
		return Success
	}
	c.Report("%s found nothing to do in the field", c.Name())
	return Failure
}

func freePlot(f *agriculture.Field) (int, int, bool) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if !f.Occupied(x, y) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// field picks the field at the agent's location, then at its workplace,
// then the first registered one.
func (c *Context) field() *agriculture.Field {
	if c.Graph != nil {
		names := []string{}
		if pos := c.Registry.Position(c.Entity); pos != nil {
			names = append(names, pos.Location)
		}
		if occ := c.Registry.Occupation(c.Entity); occ != nil {
			names = append(names, occ.Workplace)
		}
		for _, n := range names {
			if loc := c.Graph.ByName(n); loc != nil {
				if f := c.Farms.Field(loc.ID); f != nil {
					return f
				}
			}
		}
	}
	if fs := c.Farms.Fields(); len(fs) > 0 {
		return fs[0]
	}
	return nil
}

// GiveGift hands one item to the nearby friend. The item is taken from the
// blackboard under KeyGiftItem, else Wheat, else the first stack carried.
func GiveGift(c *Context) Status {
	inv := c.Registry.Inventory(c.Entity)
	if inv == nil || len(inv.Items) == 0 {
		return Failure
	}
	to, ok := c.partner()
	if !ok {
		c.Report("%s has no one to give a gift to", c.Name())
		return Failure
	}
	item, ok := c.Text(KeyGiftItem)
	if !ok {
		item = "Wheat"
		if !inv.Has(item, 1) {
			item = inv.Items[0].Item
		}
	}
	if err := inv.Remove(item, 1); err != nil {
		c.Report("%s has no %s to give", c.Name(), item)
		return Failure
	}
	if recv := c.Registry.Inventory(to); recv != nil {
		if err := recv.Add(item, 1); err != nil {
			_ = inv.Add(item, 1)
			c.Report("%s cannot carry %s", c.Registry.Name(to), item)
			return Failure
		}
	}
	_ = c.Set(KeyTargetEntity, to)

	value := 0
	if c.Market != nil {
		value = c.Market.Catalogue.Value(item)
	}
	e := event.New(event.GiftGiven, c.Entity, to, fmt.Sprintf("%s gave %s to %s", c.Name(), item, c.Registry.Name(to)))
	if c.Social != nil {
		g, err := c.Social.GiveGift(c.Entity, to, item, value)
		if err == nil {
			c.mirror(c.Entity, to, g.After)
			e.Description = fmt.Sprintf("%s gave %s to %s (%s, %+d affection)",
				c.Name(), item, c.Registry.Name(to), g.Reaction, g.Delta)
			e.Payload = event.RelationshipPayload{Before: g.Before, After: g.After, Delta: g.Delta, Reason: "gift of " + item}
		}
	}
	c.Publish(e)
	c.Report("%s", e.Description)
	return Success
}

// SellProduce sells carried harvest at the market once a crop's stock
// reaches SellThreshold, keeping one unit back.
func SellProduce(c *Context) Status {
	inv := c.Registry.Inventory(c.Entity)
	if c.Market == nil || inv == nil {
		return Failure
	}
	shop := c.shop()
	if shop == nil {
		c.Report("no shop to sell at")
		return Failure
	}
	for _, name := range c.produce() {
		n := inv.Count(name)
		if n < SellThreshold {
			continue
		}
		r, err := c.Market.Sell(c.Registry, c.Entity, shop.ID, name, n-1)
		if err != nil {
			c.Report("%s could not sell %s: %v", c.Name(), name, err)
			return Failure
		}
		c.Report("%s sold %d %s at %s for %d gold", c.Name(), r.Quantity, name, shop.Name, r.Total)
		return Success
	}
	c.Report("%s has nothing worth selling", c.Name())
	return Failure
}

func (c *Context) shop() *economy.Shop {
	if id, ok := c.Get(KeyShop); ok {
		if n, ok := id.(int); ok {
			if s := c.Market.Shop(n); s != nil {
				return s
			}
		}
	}
	shops := c.Market.Shops()
	for _, s := range shops {
		if s.Pricing == economy.SupplyDemand {
			return s
		}
	}
	if len(shops) > 0 {
		return shops[0]
	}
	return nil
}

func (c *Context) produce() []string {
	if c.Farms != nil {
		var out []string
		for _, t := range c.Farms.Types() {
			out = append(out, t.Name)
		}
		return out
	}
	return []string{"Wheat", "Corn"}
}

// partner is the target on the blackboard, else the nearest villager in
// the decision snapshot.
func (c *Context) partner() (ecs.EntityID, bool) {
	if id, ok := c.EntityRef(KeyTargetEntity); ok && c.Registry.Alive(id) {
		return id, true
	}
	if c.Snapshot == nil {
		return ecs.NoEntity, false
	}
	for _, n := range c.Snapshot.Nearby {
		if e := c.Registry.Get(n.ID); e != nil && e.Active && e.Archetype != ecs.ArchetypeCrop {
			return n.ID, true
		}
	}
	return ecs.NoEntity, false
}

// mirror copies a social affection into both entities' relationship tables.
func (c *Context) mirror(a, b ecs.EntityID, affection int) {
	if r := c.Registry.Relationship(a); r != nil {
		_ = r.Set(b, affection)
	}
	if r := c.Registry.Relationship(b); r != nil {
		_ = r.Set(a, affection)
	}
}
