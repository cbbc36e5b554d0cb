package ecs

import (
	"fmt"
	"sort"
)

// DefaultMaxEntities bounds the live entity count when no limit is configured.
const DefaultMaxEntities = 1000

// Entity is a named bag of components.
type Entity struct {
	ID        EntityID
	Name      string
	Archetype string
	Active    bool

	mask       Mask
	components [kindCount]Component
}

// Mask returns the set of kinds attached to e.
func (e *Entity) Mask() Mask { return e.mask }

// Component returns the attached component of kind k, or nil.
func (e *Entity) Component(k Kind) Component {
	if !k.Valid() {
		return nil
	}
	return e.components[k]
}

// Components lists attached components in kind order.
func (e *Entity) Components() []Component {
	out := make([]Component, 0, e.mask.Count())
	for _, c := range e.components {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Registry allocates entity IDs and stores their components.
type Registry struct {
	entities map[EntityID]*Entity
	nextID   EntityID
	live     int
	max      int
}

// NewRegistry creates an empty registry. A non-positive max uses DefaultMaxEntities.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxEntities
	}
	return &Registry{
		entities: make(map[EntityID]*Entity),
		nextID:   1,
		max:      max,
	}
}

// Create allocates the next ID. It fails with ErrCapacity once the live bound is hit.
func (r *Registry) Create(name, archetype string) (EntityID, error) {
	if name == "" {
		return NoEntity, fmt.Errorf("%w: empty entity name", ErrInvalidArgument)
	}
	if r.live >= r.max {
		return NoEntity, fmt.Errorf("create %q: %w", name, ErrCapacity)
	}
	id := r.nextID
	r.nextID++
	r.entities[id] = &Entity{ID: id, Name: name, Archetype: archetype, Active: true}
	r.live++
	return id, nil
}

// Restore re-inserts an entity loaded from a save. The ID counter moves past it.
func (r *Registry) Restore(id EntityID, name, archetype string, active bool, comps ...Component) error {
	if id <= 0 {
		return fmt.Errorf("%w: entity id %d", ErrInvalidArgument, id)
	}
	if _, ok := r.entities[id]; ok {
		return fmt.Errorf("%w: entity %d already present", ErrInvalidArgument, id)
	}
	if active && r.live >= r.max {
		return fmt.Errorf("restore %d: %w", id, ErrCapacity)
	}
	e := &Entity{ID: id, Name: name, Archetype: archetype, Active: active}
	for _, c := range comps {
		k := c.Kind()
		if e.mask.Has(k) {
			return fmt.Errorf("restore %d: %s: %w", id, k, ErrDuplicateComponent)
		}
		e.components[k] = c
		e.mask = e.mask.Set(k)
	}
	r.entities[id] = e
	if active {
		r.live++
	}
	if id >= r.nextID {
		r.nextID = id + 1
	}
	return nil
}

// Destroy marks the entity inactive and releases its components.
// The ID is retired, never reissued.
func (r *Registry) Destroy(id EntityID) bool {
	e, ok := r.entities[id]
	if !ok || !e.Active {
		return false
	}
	e.Active = false
	e.components = [kindCount]Component{}
	e.mask = 0
	r.live--
	return true
}

// Get returns the entity with id, or nil. Inactive entities are still returned.
func (r *Registry) Get(id EntityID) *Entity {
	return r.entities[id]
}

// Alive reports whether id names an active entity.
func (r *Registry) Alive(id EntityID) bool {
	e := r.entities[id]
	return e != nil && e.Active
}

// Name returns the display name of id, or "" if unknown.
func (r *Registry) Name(id EntityID) string {
	if e := r.entities[id]; e != nil {
		return e.Name
	}
	return ""
}

// Attach adds c to the entity. A second component of the same kind is refused.
func (r *Registry) Attach(id EntityID, c Component) error {
	e, err := r.activeEntity(id)
	if err != nil {
		return err
	}
	k := c.Kind()
	if !k.Valid() {
		return fmt.Errorf("%w: component kind %d", ErrUnknownEnum, k)
	}
	if e.mask.Has(k) {
		return fmt.Errorf("attach %s to %d: %w", k, id, ErrDuplicateComponent)
	}
	e.components[k] = c
	e.mask = e.mask.Set(k)
	return nil
}

// Detach removes the component of kind k.
func (r *Registry) Detach(id EntityID, k Kind) error {
	e, err := r.activeEntity(id)
	if err != nil {
		return err
	}
	if !e.mask.Has(k) {
		return fmt.Errorf("detach %s from %d: %w", k, id, ErrNoComponent)
	}
	e.components[k] = nil
	e.mask = e.mask.Clear(k)
	return nil
}

// Component returns the component of kind k on id, or nil when absent.
func (r *Registry) Component(id EntityID, k Kind) Component {
	e := r.entities[id]
	if e == nil || !e.Active {
		return nil
	}
	return e.Component(k)
}

func (r *Registry) activeEntity(id EntityID) (*Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	if !e.Active {
		return nil, fmt.Errorf("entity %d: %w", id, ErrInactive)
	}
	return e, nil
}

// Query returns active entities carrying every kind in mask, ascending by ID.
func (r *Registry) Query(mask Mask) []*Entity {
	out := make([]*Entity, 0)
	for _, e := range r.entities {
		if e.Active && e.mask.ContainsAll(mask) {
			out = append(out, e)
		}
	}
	sortByID(out)
	return out
}

// ByArchetype returns active entities with the given tag, ascending by ID.
func (r *Registry) ByArchetype(tag string) []*Entity {
	out := make([]*Entity, 0)
	for _, e := range r.entities {
		if e.Active && e.Archetype == tag {
			out = append(out, e)
		}
	}
	sortByID(out)
	return out
}

// Active returns every active entity, ascending by ID.
func (r *Registry) Active() []*Entity { return r.Query(0) }

// All returns every entity including destroyed ones, ascending by ID.
func (r *Registry) All() []*Entity {
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sortByID(out)
	return out
}

// Len is the number of live entities.
func (r *Registry) Len() int { return r.live }

// Max is the live entity bound.
func (r *Registry) Max() int { return r.max }

// NextID is the ID the next Create will hand out.
func (r *Registry) NextID() EntityID { return r.nextID }

func sortByID(es []*Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// Typed getters. Each returns nil when the entity is absent, inactive, or
// lacks the component.

func (r *Registry) Position(id EntityID) *Position {
	c, _ := r.Component(id, KindPosition).(*Position)
	return c
}

func (r *Registry) Health(id EntityID) *Health {
	c, _ := r.Component(id, KindHealth).(*Health)
	return c
}

func (r *Registry) Inventory(id EntityID) *Inventory {
	c, _ := r.Component(id, KindInventory).(*Inventory)
	return c
}

func (r *Registry) Currency(id EntityID) *Currency {
	c, _ := r.Component(id, KindCurrency).(*Currency)
	return c
}

func (r *Registry) Needs(id EntityID) *Needs {
	c, _ := r.Component(id, KindNeeds).(*Needs)
	return c
}

func (r *Registry) Relationship(id EntityID) *Relationship {
	c, _ := r.Component(id, KindRelationship).(*Relationship)
	return c
}

func (r *Registry) Schedule(id EntityID) *Schedule {
	c, _ := r.Component(id, KindSchedule).(*Schedule)
	return c
}

func (r *Registry) Occupation(id EntityID) *Occupation {
	c, _ := r.Component(id, KindOccupation).(*Occupation)
	return c
}

func (r *Registry) Memory(id EntityID) *Memory {
	c, _ := r.Component(id, KindMemory).(*Memory)
	return c
}

func (r *Registry) Goal(id EntityID) *Goal {
	c, _ := r.Component(id, KindGoal).(*Goal)
	return c
}

// Clone returns a deep copy of the component, for snapshots.
func Clone(c Component) Component { return clone(c) }
