// Village layout and outskirts generation.
// The village core is a fixed layout; the outskirts are scattered with
// layered simplex noise so each seed gets its own woods and ponds.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Name         string
	Width        float64
	Height       float64
	Seed         int64
	Wilds        int // outlying forest, water and road locations to scatter
	MaxLocations int
}

// DefaultGenConfig returns the standard farming village.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Name:         "Farming Village",
		Width:        200,
		Height:       200,
		Seed:         1,
		Wilds:        3,
		MaxLocations: DefaultMaxLocations,
	}
}

// Generate builds the village core and then scatters the outskirts.
func Generate(cfg GenConfig) (*Graph, error) {
	g := NewGraph(cfg.Name, cfg.Width, cfg.Height, cfg.MaxLocations)
	if err := buildVillage(g); err != nil {
		return nil, fmt.Errorf("build village: %w", err)
	}
	if cfg.Wilds > 0 {
		if err := scatterWilds(g, cfg.Seed, cfg.Wilds); err != nil {
			return nil, fmt.Errorf("scatter wilds: %w", err)
		}
	}
	return g, nil
}

// NewFarmingVillage returns the fixed village layout with no outskirts.
func NewFarmingVillage() *Graph {
	g := NewGraph("Farming Village", 200, 200, DefaultMaxLocations)
	if err := buildVillage(g); err != nil {
		panic(fmt.Sprintf("world: default village: %v", err))
	}
	return g
}

type road struct {
	a, b *Location
	d    float64
	desc string
}

func buildVillage(g *Graph) error {
	square, err := g.AddLocation("Village Square", VillageCenter, 100, 100)
	if err != nil {
		return err
	}
	square.Width, square.Height, square.Capacity = 30, 30, 50
	square.Description = "The heart of the village where everyone gathers"

	// Farm area.
	west, err := g.AddLocation("West Field", Field, 50, 150)
	if err != nil {
		return err
	}
	west.Description = "Tilled rows on the west side of the farm"
	east, err := g.AddLocation("East Field", Field, 80, 150)
	if err != nil {
		return err
	}
	east.Description = "Tilled rows on the east side of the farm"
	barn, err := g.AddLocation("Barn", Workshop, 65, 170)
	if err != nil {
		return err
	}
	barn.Description = "Tools, seed sacks and a hayloft"
	roads := []road{
		{west, barn, 15, "Path to barn"},
		{east, barn, 15, "Path to barn"},
		{west, square, 20, "Road to village"},
	}

	// Shop.
	store, err := g.AddLocation("General Store", Shop, 150, 100)
	if err != nil {
		return err
	}
	store.Width, store.Height = 15, 15
	store.Description = "A general store selling goods and supplies"
	roads = append(roads, road{store, square, 10, "Main street"})

	// Houses.
	for i := 0; i < 3; i++ {
		h, err := g.AddLocation(fmt.Sprintf("House %d", i+1), Home, 100+float64(i)*20, 50)
		if err != nil {
			return err
		}
		h.Width, h.Height, h.Capacity = 15, 15, 5
		roads = append(roads, road{h, square, 15, "Residential street"})
	}

	for _, r := range roads {
		if err := g.Connect(r.a.ID, r.b.ID, r.d, r.desc); err != nil {
			return err
		}
	}
	return nil
}

// scatterWilds places n outlying locations. Candidate points are sampled
// across the plane; noise decides whether each becomes water, forest or road.
func scatterWilds(g *Graph, seed int64, n int) error {
	elevNoise := opensimplex.NewNormalized(seed)
	wetNoise := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed))

	counts := map[LocationKind]int{}
	placed := 0
	for attempt := 0; placed < n && attempt < n*50; attempt++ {
		x := rng.Float64() * (g.Width - DefaultSize)
		y := rng.Float64() * (g.Height - DefaultSize)
		if g.overlaps(x, y, DefaultSize, DefaultSize) {
			continue
		}

		elev := octaveNoise(elevNoise, x, y, 3, 0.02, 0.5)
		wet := octaveNoise(wetNoise, x, y, 2, 0.03, 0.5)
		kind := Road
		switch {
		case wet > 0.58:
			kind = Water
		case elev > 0.5:
			kind = Forest
		}
		counts[kind]++

		loc, err := g.AddLocation(wildName(kind, counts[kind]), kind, x, y)
		if err != nil {
			return err
		}
		loc.Description = wildDescription(kind)

		target := g.nearestWithRoom(loc)
		if target == nil {
			g.Remove(loc.ID)
			counts[kind]--
			continue
		}
		d := math.Max(1, math.Round(loc.DistanceTo(target)))
		if err := g.Connect(loc.ID, target.ID, d, "Trail to "+target.Name); err != nil {
			return err
		}
		placed++
	}
	return nil
}

func (g *Graph) overlaps(x, y, w, h float64) bool {
	for _, l := range g.locs {
		if x < l.X+l.Width && x+w > l.X && y < l.Y+l.Height && y+h > l.Y {
			return true
		}
	}
	return false
}

// nearestWithRoom finds the closest other location that can take one more road.
func (g *Graph) nearestWithRoom(from *Location) *Location {
	var best *Location
	bestD := math.Inf(1)
	for _, l := range g.locs {
		if l.ID == from.ID || len(l.Connections) >= MaxConnections {
			continue
		}
		if d := from.DistanceTo(l); d < bestD {
			best, bestD = l, d
		}
	}
	return best
}

func wildName(k LocationKind, n int) string {
	switch k {
	case Water:
		return fmt.Sprintf("Pond %d", n)
	case Forest:
		return fmt.Sprintf("Woods %d", n)
	}
	return fmt.Sprintf("Old Road %d", n)
}

func wildDescription(k LocationKind) string {
	switch k {
	case Water:
		return "Still water ringed with reeds"
	case Forest:
		return "Tall trees and a carpet of leaves"
	}
	return "A rutted cart track"
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// KindCounts returns how many locations of each kind the graph holds.
func KindCounts(g *Graph) map[LocationKind]int {
	counts := make(map[LocationKind]int)
	for _, l := range g.locs {
		counts[l.Kind]++
	}
	return counts
}
