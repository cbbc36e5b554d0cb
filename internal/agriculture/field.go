package agriculture

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// DefaultMaxCropsPerField bounds the crop pool of one field.
const DefaultMaxCropsPerField = 100

// Field is a grid of plots bound to one location. Each plot holds at most one crop.
type Field struct {
	Location world.LocationID
	Width    int
	Height   int

	crops          []*Crop // planting order
	nextID         int
	max            int
	totalPlanted   int
	totalHarvested int
}

// NewField creates an empty width×height field at loc.
func NewField(loc world.LocationID, width, height, maxCrops int) *Field {
	if maxCrops <= 0 {
		maxCrops = DefaultMaxCropsPerField
	}
	return &Field{
		Location: loc,
		Width:    width,
		Height:   height,
		nextID:   1,
		max:      min(maxCrops, width*height),
	}
}

// Plots is the number of plots in the grid.
func (f *Field) Plots() int { return f.Width * f.Height }

// Plant sows a crop of typeName at (x, y) and returns it.
func (f *Field) Plant(typeName string, x, y int, by ecs.EntityID) (*Crop, error) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return nil, fmt.Errorf("plant at (%d, %d): %w", x, y, ErrOutOfBounds)
	}
	if f.Occupied(x, y) {
		return nil, fmt.Errorf("plant at (%d, %d): %w", x, y, ErrPlotOccupied)
	}
	if len(f.crops) >= f.max {
		return nil, fmt.Errorf("plant %s: %w", typeName, ErrFieldFull)
	}
	c := newCrop(f.nextID, typeName, f.Location, x, y, by)
	f.nextID++
	f.crops = append(f.crops, c)
	f.totalPlanted++
	return c, nil
}

// Remove takes a crop off the field.
func (f *Field) Remove(id int) bool {
	for i, c := range f.crops {
		if c.ID == id {
			f.crops = append(f.crops[:i], f.crops[i+1:]...)
			return true
		}
	}
	return false
}

// Crop returns the crop with id, or nil.
func (f *Field) Crop(id int) *Crop {
	for _, c := range f.crops {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// At returns the crop on plot (x, y), or nil.
func (f *Field) At(x, y int) *Crop {
	for _, c := range f.crops {
		if c.X == x && c.Y == y {
			return c
		}
	}
	return nil
}

// Occupied reports whether a crop stands on (x, y).
func (f *Field) Occupied(x, y int) bool { return f.At(x, y) != nil }

// Crops returns the crops in planting order.
func (f *Field) Crops() []*Crop {
	out := make([]*Crop, len(f.crops))
	copy(out, f.crops)
	return out
}

// Len is the number of crops on the field.
func (f *Field) Len() int { return len(f.crops) }

// WaterAll waters every living crop and returns how many were watered.
func (f *Field) WaterAll() int {
	n := 0
	for _, c := range f.crops {
		if c.Water() {
			n++
		}
	}
	return n
}

// Ready returns the crops that can be harvested.
func (f *Field) Ready() []*Crop {
	var out []*Crop
	for _, c := range f.crops {
		if c.Ready() {
			out = append(out, c)
		}
	}
	return out
}

// CountByStage counts crops in stage s.
func (f *Field) CountByStage(s Stage) int {
	n := 0
	for _, c := range f.crops {
		if c.Stage == s {
			n++
		}
	}
	return n
}

// Totals returns lifetime planted and harvested counts.
func (f *Field) Totals() (planted, harvested int) { return f.totalPlanted, f.totalHarvested }

func (f *Field) update(types map[string]*CropType, season clock.Season, w weather.Kind, out []Transition) []Transition {
	for _, c := range f.crops {
		t := types[c.Type]
		if t == nil {
			continue
		}
		from := c.Stage
		c.Update(t, season, w)
		if c.Stage != from {
			out = append(out, Transition{
				Field:     f.Location,
				CropID:    c.ID,
				CropType:  c.Type,
				X:         c.X,
				Y:         c.Y,
				From:      from,
				To:        c.Stage,
				PlantedBy: c.PlantedBy,
				DaysLeft:  c.DaysLeft(t),
			})
		}
	}
	return out
}
