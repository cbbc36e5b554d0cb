package agriculture

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/world"
)

// FieldSnapshot is the saved form of a field.
type FieldSnapshot struct {
	Location       world.LocationID `json:"field_location_id"`
	Width          int              `json:"field_width"`
	Height         int              `json:"field_height"`
	NextCropID     int              `json:"next_crop_id"`
	TotalPlanted   int              `json:"total_planted"`
	TotalHarvested int              `json:"total_harvested"`
	Crops          []Crop           `json:"crops"`
}

// Snapshot is the saved form of the manager.
type Snapshot struct {
	CropTypes []CropType      `json:"crop_types"`
	Fields    []FieldSnapshot `json:"fields"`
}

// Snapshot copies out every type, field and crop.
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{CropTypes: m.Types(), Fields: make([]FieldSnapshot, 0, len(m.fields))}
	for _, f := range m.fields {
		fs := FieldSnapshot{
			Location:       f.Location,
			Width:          f.Width,
			Height:         f.Height,
			NextCropID:     f.nextID,
			TotalPlanted:   f.totalPlanted,
			TotalHarvested: f.totalHarvested,
			Crops:          make([]Crop, 0, len(f.crops)),
		}
		for _, c := range f.crops {
			fs.Crops = append(fs.Crops, *c)
		}
		s.Fields = append(s.Fields, fs)
	}
	return s
}

// FromSnapshot rebuilds a manager. Crops must sit inside their field, on
// distinct plots, and name a known crop type.
func FromSnapshot(s Snapshot, maxCropsPerField int) (*Manager, error) {
	m := NewManager(maxCropsPerField)
	for _, t := range s.CropTypes {
		if err := m.RegisterType(t); err != nil {
			return nil, err
		}
	}
	for _, fs := range s.Fields {
		f, err := m.RegisterField(fs.Location, fs.Width, fs.Height)
		if err != nil {
			return nil, err
		}
		if len(fs.Crops) > f.max {
			return nil, fmt.Errorf("restore field %d: %w", fs.Location, ErrFieldFull)
		}
		for i := range fs.Crops {
			c := fs.Crops[i]
			switch {
			case m.types[c.Type] == nil:
				return nil, fmt.Errorf("restore crop %d: %q: %w", c.ID, c.Type, ErrUnknownCropType)
			case !c.Stage.Valid():
				return nil, fmt.Errorf("restore crop %d: %w", c.ID, ErrUnknownStage)
			case c.X < 0 || c.Y < 0 || c.X >= f.Width || c.Y >= f.Height:
				return nil, fmt.Errorf("restore crop %d: %w", c.ID, ErrOutOfBounds)
			case f.Occupied(c.X, c.Y):
				return nil, fmt.Errorf("restore crop %d: %w", c.ID, ErrPlotOccupied)
			case c.Health < 0 || c.Health > 100 || c.WaterLevel < 0 || c.WaterLevel > 100:
				return nil, fmt.Errorf("restore crop %d: health %d water %d out of range", c.ID, c.Health, c.WaterLevel)
			}
			c.Field = f.Location
			f.crops = append(f.crops, &c)
			if c.ID >= f.nextID {
				f.nextID = c.ID + 1
			}
		}
		if fs.NextCropID > f.nextID {
			f.nextID = fs.NextCropID
		}
		f.totalPlanted = fs.TotalPlanted
		f.totalHarvested = fs.TotalHarvested
	}
	return m, nil
}
