// Default village content: the map, fields, shops, villagers and player.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/world"
)

// Field size for each farm field, in plots.
const (
	FieldWidth  = 5
	FieldHeight = 5
)

type resident struct {
	name       string
	occupation string
	home       string
	items      map[string]int
}

// The first three residents take IDs 1..3, which the social defaults expect
// as farmer, merchant and shy villager.
var residents = []resident{
	{"John", "farmer", "West Field", map[string]int{"Wheat Seeds": 3, "Bread": 2}},
	{"Mary", "merchant", "General Store", map[string]int{"Bread": 3}},
	{"Lily", "shy villager", "Village Square", map[string]int{"Wheat": 3}},
}

// NewVillage builds a simulation populated with the stock farming village.
func NewVillage(opts config.Options, simOpts ...Option) (*Simulation, error) {
	s, err := New(opts, simOpts...)
	if err != nil {
		return nil, err
	}

	g, err := world.Generate(world.GenConfig{
		Name:         opts.WorldName,
		Width:        opts.WorldSize.Width,
		Height:       opts.WorldSize.Height,
		Seed:         opts.Seed,
		Wilds:        3,
		MaxLocations: opts.MaxLocations,
	})
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}
	s.World = g

	for _, name := range []string{"West Field", "East Field"} {
		loc := g.ByName(name)
		if loc == nil {
			return nil, fmt.Errorf("field %s: %w", name, ErrNotFound)
		}
		if _, err := s.Farms.RegisterField(loc.ID, FieldWidth, FieldHeight); err != nil {
			return nil, fmt.Errorf("register field %s: %w", name, err)
		}
	}

	ids := make([]ecs.EntityID, 0, len(residents))
	for _, r := range residents {
		id, err := s.spawn(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := social.SeedDefaults(s.Social, ids[0], ids[1], ids[2]); err != nil {
		return nil, fmt.Errorf("seed social defaults: %w", err)
	}
	store, square := g.ByName("General Store"), g.ByName("Village Square")
	if store == nil || square == nil {
		return nil, fmt.Errorf("village shops: %w", ErrNotFound)
	}
	if err := s.Market.SeedDefaultShops(store.ID, square.ID, ids[1]); err != nil {
		return nil, fmt.Errorf("open shops: %w", err)
	}

	s.Player, err = ecs.NewPlayer(s.Registry, opts.PlayerName)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	s.publish(event.New(event.EntityCreated, s.Player, ecs.NoEntity, opts.PlayerName+" moved to the village"))

	if err := s.AssignDefaultTrees(); err != nil {
		return nil, err
	}

	slog.Info("village created",
		"world", opts.WorldName,
		"seed", opts.Seed,
		"locations", g.Len(),
		"villagers", len(ids),
		"created", time.Unix(s.CreatedAt, 0).UTC().Format(time.RFC3339),
	)
	return s, nil
}

// spawn creates a villager standing at its home location.
func (s *Simulation) spawn(r resident) (ecs.EntityID, error) {
	loc := s.World.ByName(r.home)
	if loc == nil {
		return ecs.NoEntity, fmt.Errorf("home %s of %s: %w", r.home, r.name, ErrNotFound)
	}
	id, err := ecs.NewVillager(s.Registry, ecs.VillagerSpec{
		Name:       r.name,
		Occupation: r.occupation,
		Location:   loc.Name,
		X:          loc.X,
		Y:          loc.Y,
	})
	if err != nil {
		return ecs.NoEntity, fmt.Errorf("spawn %s: %w", r.name, err)
	}
	s.Registry.Occupation(id).Workplace = loc.Name

	inv := s.Registry.Inventory(id)
	for _, item := range []string{"Wheat Seeds", "Bread", "Wheat"} {
		if n := r.items[item]; n > 0 {
			if err := inv.Add(item, n); err != nil {
				return ecs.NoEntity, fmt.Errorf("stock %s: %w", r.name, err)
			}
		}
	}
	if err := s.World.Place(id, loc.ID); err != nil {
		return ecs.NoEntity, fmt.Errorf("place %s: %w", r.name, err)
	}
	s.publish(event.New(event.EntityCreated, id, ecs.NoEntity, fmt.Sprintf("%s the %s moved in", r.name, r.occupation)).At(loc.Name))
	return id, nil
}
