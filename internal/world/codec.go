package world

import (
	"fmt"
	"slices"

	"github.com/talgya/hearthvale/internal/ecs"
)

// Snapshot is the saved form of a graph.
type Snapshot struct {
	Name           string     `json:"world_name"`
	Width          float64    `json:"world_width"`
	Height         float64    `json:"world_height"`
	NextLocationID LocationID `json:"next_location_id"`
	Locations      []Location `json:"locations"`
}

// Snapshot returns a deep copy of the graph.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Name:           g.Name,
		Width:          g.Width,
		Height:         g.Height,
		NextLocationID: g.nextID,
		Locations:      make([]Location, 0, len(g.locs)),
	}
	for _, l := range g.locs {
		cp := *l
		cp.Connections = slices.Clone(l.Connections)
		cp.Entities = slices.Clone(l.Entities)
		s.Locations = append(s.Locations, cp)
	}
	return s
}

// FromSnapshot rebuilds a graph, checking that every road is stored on
// both ends and every entity stands in one place only.
func FromSnapshot(s Snapshot, maxLocations int) (*Graph, error) {
	g := NewGraph(s.Name, s.Width, s.Height, maxLocations)
	if len(s.Locations) > g.max {
		return nil, fmt.Errorf("restore %d locations: %w", len(s.Locations), ErrCapacity)
	}
	seen := make(map[ecs.EntityID]LocationID)
	for i := range s.Locations {
		l := s.Locations[i]
		if l.ID <= 0 || g.byID[l.ID] != nil {
			return nil, fmt.Errorf("%w: location id %d", ErrInvalidArgument, l.ID)
		}
		if l.Name == "" {
			return nil, fmt.Errorf("%w: location %d has no name", ErrInvalidArgument, l.ID)
		}
		if len(l.Connections) > MaxConnections {
			return nil, fmt.Errorf("location %s: %w", l.Name, ErrConnectionsFull)
		}
		for _, e := range l.Entities {
			if prev, dup := seen[e]; dup {
				return nil, fmt.Errorf("%w: entity %d at both %d and %d", ErrInvalidArgument, e, prev, l.ID)
			}
			seen[e] = l.ID
		}
		cp := l
		cp.Connections = slices.Clone(l.Connections)
		cp.Entities = slices.Clone(l.Entities)
		g.insert(&cp)
		if l.ID >= g.nextID {
			g.nextID = l.ID + 1
		}
	}
	if s.NextLocationID > g.nextID {
		g.nextID = s.NextLocationID
	}
	for _, l := range g.locs {
		for _, c := range l.Connections {
			o := g.byID[c.To]
			if o == nil {
				return nil, fmt.Errorf("location %s: road to %d: %w", l.Name, c.To, ErrNotFound)
			}
			back := o.Connection(l.ID)
			if back == nil || back.Distance != c.Distance || back.Blocked != c.Blocked || !(c.Distance > 0) {
				return nil, fmt.Errorf("%w: road %s-%s is not symmetric", ErrInvalidArgument, l.Name, o.Name)
			}
		}
	}
	return g, nil
}
