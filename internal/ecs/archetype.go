package ecs

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/clock"
)

// Archetype tags used by the default content.
const (
	ArchetypePlayer   = "Player"
	ArchetypeVillager = "Villager"
	ArchetypeCrop     = "Crop"
)

// PlayerHome is the location a new player starts at.
const PlayerHome = "YourFarm"

// NewPlayer creates the player entity with its starting kit.
func NewPlayer(r *Registry, name string) (EntityID, error) {
	id, err := r.Create(name, ArchetypePlayer)
	if err != nil {
		return NoEntity, err
	}
	err = attachAll(r, id,
		&Position{Location: PlayerHome},
		&Health{Current: 100, Max: 100},
		NewInventory(20),
		&Currency{Amount: 100},
		NewRelationship(),
	)
	if err != nil {
		r.Destroy(id)
		return NoEntity, err
	}
	return id, nil
}

// VillagerSpec describes a villager to create.
type VillagerSpec struct {
	Name       string
	Occupation string
	Location   string
	X, Y       float64
}

// NewVillager creates an autonomous villager with needs, a routine and a job.
func NewVillager(r *Registry, spec VillagerSpec) (EntityID, error) {
	id, err := r.Create(spec.Name, ArchetypeVillager)
	if err != nil {
		return NoEntity, err
	}
	sched := &Schedule{}
	routine := []struct {
		p   clock.Period
		act string
	}{
		{clock.Morning, "work"},
		{clock.Afternoon, "work"},
		{clock.Evening, "socialize"},
		{clock.Night, "rest"},
	}
	for _, e := range routine {
		if err := sched.Set(e.p, e.act); err != nil {
			r.Destroy(id)
			return NoEntity, err
		}
	}
	err = attachAll(r, id,
		&Position{Location: spec.Location, X: spec.X, Y: spec.Y},
		&Health{Current: 100, Max: 100},
		NewInventory(15),
		&Currency{Amount: 50},
		NewNeeds(),
		sched,
		&Occupation{Title: spec.Occupation, Workplace: "WorkPlace", Skill: 1},
		NewMemory(DefaultMemoryCapacity),
		&Goal{},
		NewRelationship(),
	)
	if err != nil {
		r.Destroy(id)
		return NoEntity, err
	}
	return id, nil
}

// NewCropEntity creates a positional marker for a planted crop.
func NewCropEntity(r *Registry, name, location string, x, y float64) (EntityID, error) {
	id, err := r.Create(name, ArchetypeCrop)
	if err != nil {
		return NoEntity, err
	}
	if err := r.Attach(id, &Position{Location: location, X: x, Y: y}); err != nil {
		r.Destroy(id)
		return NoEntity, err
	}
	return id, nil
}

func attachAll(r *Registry, id EntityID, comps ...Component) error {
	for _, c := range comps {
		if err := r.Attach(id, c); err != nil {
			return fmt.Errorf("attach %s: %w", c.Kind(), err)
		}
	}
	return nil
}
