// Player commands. Each command runs as a one-leaf behavior tree so that
// it lands in the decision log like any villager's choice.
package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/hearthvale/internal/behavior"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/world"
)

var (
	ErrNoPlayer       = errors.New("simulation has no player")
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is something the player asks their character to do.
type Command struct {
	Action   decision.Action `json:"action"`
	Target   ecs.EntityID    `json:"target_entity_id,omitempty"`
	Location string          `json:"location,omitempty"`
	Item     string          `json:"item,omitempty"`
	Quantity int             `json:"quantity,omitempty"`
	Sell     bool            `json:"sell,omitempty"`
	Shop     int             `json:"shop_id,omitempty"`
	Field    string          `json:"field,omitempty"`
	X        int             `json:"plot_x"`
	Y        int             `json:"plot_y"`
}

// Result reports how a command went.
type Result struct {
	DecisionID uint64   `json:"decision_id"`
	Succeeded  bool     `json:"succeeded"`
	Message    string   `json:"message"`
	Events     []uint64 `json:"event_ids"`
}

// Act carries out cmd for the player. Failures the world refuses, such as
// an empty purse, are reported in the result rather than as an error.
func (s *Simulation) Act(cmd Command) (Result, error) {
	if !s.Registry.Alive(s.Player) {
		return Result{}, ErrNoPlayer
	}
	run, err := s.command(cmd)
	if err != nil {
		return Result{}, err
	}

	ctx := behavior.NewContext(s.Player, s.Registry)
	ctx.Clock = s.Clock.Snapshot()
	ctx.Weather = s.Weather.Current
	ctx.Graph = s.World
	ctx.Farms = s.Farms
	ctx.Social = s.Social
	ctx.Market = s.Market
	ctx.Bus = s.Bus
	ctx.Events = s.Events
	if cmd.Target != ecs.NoEntity {
		_ = ctx.Set(behavior.KeyTargetEntity, cmd.Target)
	}
	if cmd.Location != "" {
		_ = ctx.Set(behavior.KeyTargetLocation, cmd.Location)
	}
	if cmd.Item != "" {
		_ = ctx.Set(behavior.KeyGiftItem, cmd.Item)
	}

	snap, err := decision.Capture(decision.Params{
		Registry:        s.Registry,
		Clock:           s.Clock.Snapshot(),
		Weather:         s.Weather.Current,
		Events:          s.Events,
		Radius:          s.Options.NearbyRadius,
		MaxNearby:       s.Options.MaxNearbyEntities,
		MaxRecentEvents: s.Options.MaxRecentEventsPerContext,
	}, s.Player)
	if err != nil {
		return Result{}, fmt.Errorf("capture player context: %w", err)
	}
	ctx.Snapshot = &snap

	leaf := behavior.NewAction("Player "+cmd.Action.String(), cmd.Action, behavior.ActionFunc(run))
	status := behavior.NewTree("Player", leaf).Tick(ctx)

	opts := ctx.Options()
	if len(opts) == 1 {
		opts[0].TargetItem = cmd.Item
		opts[0].TargetX, opts[0].TargetY = float64(cmd.X), float64(cmd.Y)
	}
	rec, err := decision.NewRecord(snap, opts, 0, "player command")
	if err != nil {
		return Result{}, err
	}
	rec.SetOutcome(status == behavior.Success, opts[0].Utility, ctx.Outcome())
	id := s.Decisions.Append(rec)

	return Result{
		DecisionID: id,
		Succeeded:  status == behavior.Success,
		Message:    ctx.Outcome(),
		Events:     ctx.Published(),
	}, nil
}

func (s *Simulation) command(cmd Command) (func(*behavior.Context) behavior.Status, error) {
	switch cmd.Action {
	case decision.Move:
		return behavior.MoveTo, nil
	case decision.Talk:
		return func(c *behavior.Context) behavior.Status { return s.playerTalk(c, cmd) }, nil
	case decision.GiveGift:
		return behavior.GiveGift, nil
	case decision.Plant:
		return func(c *behavior.Context) behavior.Status { return s.playerPlant(c, cmd) }, nil
	case decision.Water:
		return func(c *behavior.Context) behavior.Status { return s.playerWater(c, cmd) }, nil
	case decision.Harvest:
		return func(c *behavior.Context) behavior.Status { return s.playerHarvest(c, cmd) }, nil
	case decision.Trade:
		return func(c *behavior.Context) behavior.Status { return s.playerTrade(c, cmd) }, nil
	case decision.Work:
		return behavior.Work, nil
	case decision.Rest:
		return needsFirst(behavior.Rest), nil
	case decision.Eat:
		return needsFirst(behavior.EatFood), nil
	case decision.Wait:
		return behavior.Wait, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Action)
}

// needsFirst refuses commands that tend drives when the player has none.
func needsFirst(run func(*behavior.Context) behavior.Status) func(*behavior.Context) behavior.Status {
	return func(c *behavior.Context) behavior.Status {
		if c.Registry.Needs(c.Entity) == nil {
			c.Report("%s has no needs to tend", c.Name())
			return behavior.Failure
		}
		return run(c)
	}
}

func (s *Simulation) playerTalk(c *behavior.Context, cmd Command) behavior.Status {
	if !s.Registry.Alive(cmd.Target) || cmd.Target == s.Player {
		c.Report("there is no one to talk to")
		return behavior.Failure
	}
	ch, err := s.Social.Converse(s.Player, cmd.Target, social.TopicWeather)
	if err != nil {
		c.Report("conversation failed: %v", err)
		return behavior.Failure
	}
	s.mirror(ch.A, ch.B, ch.After)
	c.Publish(event.NewRelationshipChange(ch.A, ch.B, ch.Before, ch.After, ch.Reason))
	c.Report("talked with %s", s.Registry.Name(cmd.Target))
	return behavior.Success
}

func (s *Simulation) playerField(cmd Command) (*fieldRef, error) {
	name := cmd.Field
	if name == "" {
		name = "West Field"
	}
	loc := s.World.ByName(name)
	if loc == nil {
		return nil, fmt.Errorf("field %q: %w", name, ErrNotFound)
	}
	if s.Farms.Field(loc.ID) == nil {
		return nil, fmt.Errorf("%q is not a field: %w", name, ErrNotFound)
	}
	return &fieldRef{id: loc.ID, name: loc.Name}, nil
}

func (s *Simulation) playerPlant(c *behavior.Context, cmd Command) behavior.Status {
	f, err := s.playerField(cmd)
	if err != nil {
		c.Report("%v", err)
		return behavior.Failure
	}
	seeds := economy.SeedsFor(cmd.Item)
	inv := s.Registry.Inventory(s.Player)
	if inv == nil || !inv.Has(seeds, 1) {
		c.Report("no %s to plant", seeds)
		return behavior.Failure
	}
	crop, err := s.Farms.Plant(f.id, cmd.Item, cmd.X, cmd.Y, s.Player)
	if err != nil {
		c.Report("planting failed: %v", err)
		return behavior.Failure
	}
	_ = inv.Remove(seeds, 1)
	left := 0
	if t := s.Farms.Type(cmd.Item); t != nil {
		left = crop.DaysLeft(t)
	}
	c.Publish(event.NewCropAction(event.CropPlanted, cmd.Item, cmd.X, cmd.Y, crop.Stage.String(), left, s.Player).At(f.name))
	c.Report("planted %s at (%d, %d)", cmd.Item, cmd.X, cmd.Y)
	return behavior.Success
}

func (s *Simulation) playerWater(c *behavior.Context, cmd Command) behavior.Status {
	f, err := s.playerField(cmd)
	if err != nil {
		c.Report("%v", err)
		return behavior.Failure
	}
	crop := s.Farms.Field(f.id).At(cmd.X, cmd.Y)
	if crop == nil {
		c.Report("nothing grows at (%d, %d)", cmd.X, cmd.Y)
		return behavior.Failure
	}
	if _, err := s.Farms.Water(f.id, crop.ID); err != nil {
		c.Report("watering failed: %v", err)
		return behavior.Failure
	}
	c.Publish(event.NewCropAction(event.CropWatered, crop.Type, crop.X, crop.Y, crop.Stage.String(), 0, s.Player).At(f.name))
	c.Report("watered the %s at (%d, %d)", crop.Type, cmd.X, cmd.Y)
	return behavior.Success
}

func (s *Simulation) playerHarvest(c *behavior.Context, cmd Command) behavior.Status {
	f, err := s.playerField(cmd)
	if err != nil {
		c.Report("%v", err)
		return behavior.Failure
	}
	crop := s.Farms.Field(f.id).At(cmd.X, cmd.Y)
	if crop == nil {
		c.Report("nothing grows at (%d, %d)", cmd.X, cmd.Y)
		return behavior.Failure
	}
	got, err := s.Farms.Harvest(f.id, crop.ID)
	if err != nil {
		c.Report("harvest failed: %v", err)
		return behavior.Failure
	}
	if inv := s.Registry.Inventory(s.Player); inv != nil && got.PredictedYield > 0 {
		if err := inv.Add(got.Type, got.PredictedYield); err != nil {
			c.Report("harvest lost: %v", err)
			return behavior.Failure
		}
	}
	c.Publish(event.NewCropAction(event.CropHarvested, got.Type, got.X, got.Y, got.Stage.String(), 0, s.Player).At(f.name))
	c.Report("harvested %d %s", got.PredictedYield, got.Type)
	return behavior.Success
}

func (s *Simulation) playerTrade(c *behavior.Context, cmd Command) behavior.Status {
	qty := max(cmd.Quantity, 1)
	var (
		r   economy.Receipt
		err error
	)
	if cmd.Sell {
		r, err = s.Market.Sell(s.Registry, s.Player, cmd.Shop, cmd.Item, qty)
	} else {
		r, err = s.Market.Buy(s.Registry, s.Player, cmd.Shop, cmd.Item, qty)
	}
	if err != nil {
		c.Report("trade failed: %v", err)
		return behavior.Failure
	}
	verb := "bought"
	if cmd.Sell {
		verb = "sold"
	}
	c.Report("%s %d %s for %d gold", verb, r.Quantity, r.Item, r.Total)
	return behavior.Success
}

type fieldRef struct {
	id   world.LocationID
	name string
}
