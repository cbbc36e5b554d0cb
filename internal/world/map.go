// Package world holds the location graph: named places on a plane, the
// bidirectional weighted roads between them and who is standing where.
package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/hearthvale/internal/ecs"
)

// DefaultMaxLocations bounds the location pool when none is configured.
const DefaultMaxLocations = 100

var (
	ErrNotFound         = errors.New("location not found")
	ErrCapacity         = errors.New("location pool full")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrLocationFull     = errors.New("location at capacity")
	ErrConnectionsFull  = errors.New("location has no free connection slots")
	ErrAlreadyConnected = errors.New("locations already connected")
	ErrNotConnected     = errors.New("locations not connected")
	ErrDuplicateName    = errors.New("location name already used")
	ErrEntityNotLocated = errors.New("entity is not at any location")
)

// Graph is the set of locations and the roads between them.
type Graph struct {
	Name   string
	Width  float64
	Height float64

	locs   []*Location // registration order
	byID   map[LocationID]*Location
	where  map[ecs.EntityID]LocationID
	nextID LocationID
	max    int
}

// NewGraph creates an empty graph on a width×height plane.
func NewGraph(name string, width, height float64, maxLocations int) *Graph {
	if name == "" {
		name = "Unnamed World"
	}
	if maxLocations <= 0 {
		maxLocations = DefaultMaxLocations
	}
	return &Graph{
		Name:   name,
		Width:  width,
		Height: height,
		byID:   make(map[LocationID]*Location),
		where:  make(map[ecs.EntityID]LocationID),
		nextID: 1,
		max:    maxLocations,
	}
}

// AddLocation registers a new location with defaults derived from its kind.
func (g *Graph) AddLocation(name string, kind LocationKind, x, y float64) (*Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty location name", ErrInvalidArgument)
	}
	if kind >= locationKindCount {
		return nil, fmt.Errorf("%w: location kind %d", ErrInvalidArgument, kind)
	}
	if g.ByName(name) != nil {
		return nil, fmt.Errorf("add %q: %w", name, ErrDuplicateName)
	}
	if len(g.locs) >= g.max {
		return nil, fmt.Errorf("add %q: %w", name, ErrCapacity)
	}
	loc := newLocation(g.nextID, name, kind, x, y)
	g.nextID++
	g.insert(loc)
	return loc, nil
}

func (g *Graph) insert(loc *Location) {
	g.locs = append(g.locs, loc)
	g.byID[loc.ID] = loc
	for _, e := range loc.Entities {
		g.where[e] = loc.ID
	}
}

// Remove deletes a location, its roads and its occupancy records.
func (g *Graph) Remove(id LocationID) bool {
	loc, ok := g.byID[id]
	if !ok {
		return false
	}
	for i, l := range g.locs {
		if l.ID == id {
			g.locs = append(g.locs[:i], g.locs[i+1:]...)
			break
		}
	}
	delete(g.byID, id)
	for _, e := range loc.Entities {
		delete(g.where, e)
	}
	for _, l := range g.locs {
		l.removeConnection(id)
	}
	return true
}

// Location returns the location with id, or nil.
func (g *Graph) Location(id LocationID) *Location { return g.byID[id] }

// ByName returns the location with the given name, or nil.
func (g *Graph) ByName(name string) *Location {
	for _, l := range g.locs {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// ByKind returns locations of kind k in registration order.
func (g *Graph) ByKind(k LocationKind) []*Location {
	var out []*Location
	for _, l := range g.locs {
		if l.Kind == k {
			out = append(out, l)
		}
	}
	return out
}

// At returns the first location whose footprint contains (x, y), or nil.
func (g *Graph) At(x, y float64) *Location {
	for _, l := range g.locs {
		if l.Contains(x, y) {
			return l
		}
	}
	return nil
}

// Locations returns every location in registration order.
func (g *Graph) Locations() []*Location {
	out := make([]*Location, len(g.locs))
	copy(out, g.locs)
	return out
}

// Len is the number of locations.
func (g *Graph) Len() int { return len(g.locs) }

// Connect adds a road of length d between a and b, stored on both ends.
func (g *Graph) Connect(a, b LocationID, d float64, desc string) error {
	la, lb := g.byID[a], g.byID[b]
	if la == nil || lb == nil {
		return fmt.Errorf("connect %d-%d: %w", a, b, ErrNotFound)
	}
	if a == b {
		return fmt.Errorf("%w: cannot connect %s to itself", ErrInvalidArgument, la.Name)
	}
	if !(d > 0) || math.IsInf(d, 0) {
		return fmt.Errorf("%w: distance %v", ErrInvalidArgument, d)
	}
	if la.Connection(b) != nil || lb.Connection(a) != nil {
		return fmt.Errorf("connect %s-%s: %w", la.Name, lb.Name, ErrAlreadyConnected)
	}
	if len(la.Connections) >= MaxConnections || len(lb.Connections) >= MaxConnections {
		return fmt.Errorf("connect %s-%s: %w", la.Name, lb.Name, ErrConnectionsFull)
	}
	la.Connections = append(la.Connections, Connection{To: b, Distance: d, Description: desc})
	lb.Connections = append(lb.Connections, Connection{To: a, Distance: d, Description: desc})
	g.mustBeSymmetric(la, lb)
	return nil
}

// Disconnect removes the road between a and b.
func (g *Graph) Disconnect(a, b LocationID) error {
	la, lb := g.byID[a], g.byID[b]
	if la == nil || lb == nil {
		return fmt.Errorf("disconnect %d-%d: %w", a, b, ErrNotFound)
	}
	ra := la.removeConnection(b)
	rb := lb.removeConnection(a)
	if !ra && !rb {
		return fmt.Errorf("disconnect %s-%s: %w", la.Name, lb.Name, ErrNotConnected)
	}
	if ra != rb {
		panic(fmt.Sprintf("world: asymmetric road between %s and %s", la.Name, lb.Name))
	}
	return nil
}

// SetBlocked blocks or reopens the road between a and b in both directions.
func (g *Graph) SetBlocked(a, b LocationID, blocked bool) error {
	la, lb := g.byID[a], g.byID[b]
	if la == nil || lb == nil {
		return fmt.Errorf("block %d-%d: %w", a, b, ErrNotFound)
	}
	ca, cb := la.Connection(b), lb.Connection(a)
	if ca == nil || cb == nil {
		return fmt.Errorf("block %s-%s: %w", la.Name, lb.Name, ErrNotConnected)
	}
	ca.Blocked = blocked
	cb.Blocked = blocked
	return nil
}

// Connected reports whether an unblocked road joins a and b.
func (g *Graph) Connected(a, b LocationID) bool {
	la := g.byID[a]
	if la == nil {
		return false
	}
	c := la.Connection(b)
	return c != nil && !c.Blocked
}

func (g *Graph) mustBeSymmetric(la, lb *Location) {
	ca, cb := la.Connection(lb.ID), lb.Connection(la.ID)
	if ca == nil || cb == nil || ca.Distance != cb.Distance || ca.Blocked != cb.Blocked {
		panic(fmt.Sprintf("world: asymmetric road between %s and %s", la.Name, lb.Name))
	}
}

// FindPath returns the fewest-hops route from start to end over unblocked
// roads, both ends included. Among equal-length routes the one found by
// following roads in the order they were added wins. It returns nil when
// no route exists.
func (g *Graph) FindPath(start, end LocationID) []LocationID {
	if g.byID[start] == nil || g.byID[end] == nil {
		return nil
	}
	if start == end {
		return []LocationID{start}
	}
	parent := map[LocationID]LocationID{start: NoLocation}
	queue := []LocationID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range g.byID[cur].Connections {
			if c.Blocked {
				continue
			}
			if _, seen := parent[c.To]; seen {
				continue
			}
			parent[c.To] = cur
			if c.To == end {
				return unwind(parent, end)
			}
			queue = append(queue, c.To)
		}
	}
	return nil
}

func unwind(parent map[LocationID]LocationID, end LocationID) []LocationID {
	var rev []LocationID
	for n := end; n != NoLocation; n = parent[n] {
		rev = append(rev, n)
	}
	out := make([]LocationID, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

// PathDistance sums the stored road lengths along path. Missing roads count as zero.
func (g *Graph) PathDistance(path []LocationID) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		if l := g.byID[path[i]]; l != nil {
			if c := l.Connection(path[i+1]); c != nil {
				total += c.Distance
			}
		}
	}
	return total
}

// Place puts an entity at loc, taking it off wherever it was before.
func (g *Graph) Place(id ecs.EntityID, loc LocationID) error {
	from := NoLocation
	if cur, ok := g.where[id]; ok {
		from = cur
	}
	return g.Move(id, from, loc)
}

// Move transfers an entity to another location. The destination is
// checked first; the entity leaves its source only once it has arrived.
func (g *Graph) Move(id ecs.EntityID, from, to LocationID) error {
	dst := g.byID[to]
	if dst == nil {
		return fmt.Errorf("move %d to %d: %w", id, to, ErrNotFound)
	}
	if from == to && dst.Has(id) {
		return nil
	}
	if err := dst.addEntity(id); err != nil {
		return fmt.Errorf("move %d: %w", id, err)
	}
	if src := g.byID[from]; src != nil {
		src.removeEntity(id)
	}
	if cur, ok := g.where[id]; ok && cur != from {
		if l := g.byID[cur]; l != nil {
			l.removeEntity(id)
		}
	}
	g.where[id] = to
	return nil
}

// Evict removes an entity from the graph entirely.
func (g *Graph) Evict(id ecs.EntityID) bool {
	cur, ok := g.where[id]
	if !ok {
		return false
	}
	if l := g.byID[cur]; l != nil {
		l.removeEntity(id)
	}
	delete(g.where, id)
	return true
}

// LocationOf returns where an entity is standing.
func (g *Graph) LocationOf(id ecs.EntityID) (*Location, error) {
	cur, ok := g.where[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrEntityNotLocated)
	}
	return g.byID[cur], nil
}

// EntitiesAt lists the occupants of loc in arrival order.
func (g *Graph) EntitiesAt(loc LocationID) []ecs.EntityID {
	l := g.byID[loc]
	if l == nil {
		return nil
	}
	out := make([]ecs.EntityID, len(l.Entities))
	copy(out, l.Entities)
	return out
}

// Nearest returns the location of kind k closest to (x, y), or nil.
func (g *Graph) Nearest(x, y float64, k LocationKind) *Location {
	var best *Location
	bestD := math.Inf(1)
	for _, l := range g.locs {
		if l.Kind != k {
			continue
		}
		if d := math.Hypot(l.X-x, l.Y-y); d < bestD {
			best, bestD = l, d
		}
	}
	return best
}

// NextID is the ID the next AddLocation will hand out.
func (g *Graph) NextID() LocationID { return g.nextID }

// Max is the location pool bound.
func (g *Graph) Max() int { return g.max }

func (g *Graph) String() string {
	return fmt.Sprintf("World(%s, %.0fx%.0f, locations=%d)", g.Name, g.Width, g.Height, len(g.locs))
}
