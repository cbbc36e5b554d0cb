package world

import (
	"fmt"
	"math"
	"slices"

	"github.com/talgya/hearthvale/internal/ecs"
)

// Limits applied to every location.
const (
	MaxConnections         = 10
	MaxEntitiesPerLocation = 50
	DefaultCapacity        = 10
	DefaultSize            = 10.0
)

// LocationID identifies a location within a graph. IDs start at 1.
type LocationID int

// NoLocation is returned when a lookup fails.
const NoLocation LocationID = -1

// LocationKind classifies a location.
type LocationKind uint8

const (
	Outdoor LocationKind = iota
	Indoor
	Field
	Shop
	Home
	Workshop
	Road
	Water
	Forest
	VillageCenter
	locationKindCount
)

var locationKindNames = [locationKindCount]string{
	"Outdoor", "Indoor", "Field", "Shop", "Home", "Workshop", "Road", "Water", "Forest", "Village Center",
}

func (k LocationKind) String() string {
	if k < locationKindCount {
		return locationKindNames[k]
	}
	return "Unknown"
}

// ParseLocationKind converts a saved kind name.
func ParseLocationKind(s string) (LocationKind, error) {
	for i, n := range locationKindNames {
		if n == s {
			return LocationKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: location kind %q", ErrInvalidArgument, s)
}

func (k LocationKind) MarshalText() ([]byte, error) {
	if k >= locationKindCount {
		return nil, fmt.Errorf("%w: location kind %d", ErrInvalidArgument, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *LocationKind) UnmarshalText(b []byte) error {
	v, err := ParseLocationKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Connection is one directed half of an undirected edge.
type Connection struct {
	To          LocationID `json:"location_id"`
	Distance    float64    `json:"distance"`
	Blocked     bool       `json:"blocked"`
	Description string     `json:"description"`
}

// Location is a place on the world plane.
type Location struct {
	ID          LocationID   `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Kind        LocationKind `json:"type"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Indoor    bool `json:"indoor"`
	Protected bool `json:"protected_from_weather"`
	Capacity  int  `json:"capacity"`

	CanRest bool `json:"can_rest"`
	CanWork bool `json:"can_work"`
	CanShop bool `json:"can_shop"`
	CanFarm bool `json:"can_farm"`

	Connections []Connection   `json:"connections"`
	Entities    []ecs.EntityID `json:"entity_ids"`
}

func newLocation(id LocationID, name string, kind LocationKind, x, y float64) *Location {
	indoor := kind == Indoor || kind == Shop || kind == Home || kind == Workshop
	return &Location{
		ID:        id,
		Name:      name,
		Kind:      kind,
		X:         x,
		Y:         y,
		Width:     DefaultSize,
		Height:    DefaultSize,
		Indoor:    indoor,
		Protected: indoor,
		Capacity:  DefaultCapacity,
		CanRest:   kind == Home || kind == Indoor,
		CanWork:   kind == Workshop || kind == Shop,
		CanShop:   kind == Shop,
		CanFarm:   kind == Field,
	}
}

// Full reports whether no more entities fit.
func (l *Location) Full() bool {
	return len(l.Entities) >= l.Capacity || len(l.Entities) >= MaxEntitiesPerLocation
}

// Has reports whether id is at l.
func (l *Location) Has(id ecs.EntityID) bool {
	return slices.Contains(l.Entities, id)
}

// Contains reports whether the point lies inside l's footprint.
func (l *Location) Contains(x, y float64) bool {
	return x >= l.X && x < l.X+l.Width && y >= l.Y && y < l.Y+l.Height
}

// DistanceTo is the straight-line distance between the two anchors.
func (l *Location) DistanceTo(o *Location) float64 {
	return math.Hypot(o.X-l.X, o.Y-l.Y)
}

// Connection returns the edge towards id, or nil.
func (l *Location) Connection(id LocationID) *Connection {
	for i := range l.Connections {
		if l.Connections[i].To == id {
			return &l.Connections[i]
		}
	}
	return nil
}

func (l *Location) addEntity(id ecs.EntityID) error {
	if l.Has(id) {
		return fmt.Errorf("%w: entity %d already at %s", ErrInvalidArgument, id, l.Name)
	}
	if l.Full() {
		return fmt.Errorf("%s: %w", l.Name, ErrLocationFull)
	}
	l.Entities = append(l.Entities, id)
	return nil
}

func (l *Location) removeEntity(id ecs.EntityID) bool {
	i := slices.Index(l.Entities, id)
	if i < 0 {
		return false
	}
	l.Entities = slices.Delete(l.Entities, i, i+1)
	return true
}

func (l *Location) removeConnection(id LocationID) bool {
	for i := range l.Connections {
		if l.Connections[i].To == id {
			l.Connections = slices.Delete(l.Connections, i, i+1)
			return true
		}
	}
	return false
}
