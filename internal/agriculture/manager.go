package agriculture

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// MaxCropTypes bounds the crop type table.
const MaxCropTypes = 20

// Transition is a stage change observed during a daily update.
type Transition struct {
	Field     world.LocationID
	CropID    int
	CropType  string
	X, Y      int
	From, To  Stage
	PlantedBy ecs.EntityID
	DaysLeft  int
}

// Manager owns the crop types and every field.
type Manager struct {
	types     map[string]*CropType
	typeOrder []string
	fields    []*Field // registration order
	maxCrops  int
}

// NewManager creates a manager whose fields hold at most maxCropsPerField crops.
func NewManager(maxCropsPerField int) *Manager {
	return &Manager{
		types:    make(map[string]*CropType),
		maxCrops: maxCropsPerField,
	}
}

// RegisterType adds or replaces a crop type.
func (m *Manager) RegisterType(t CropType) error {
	if t.Name == "" || t.DaysToMature <= 0 {
		return fmt.Errorf("register crop type %q: invalid profile", t.Name)
	}
	if _, ok := m.types[t.Name]; !ok {
		if len(m.typeOrder) >= MaxCropTypes {
			return fmt.Errorf("register %s: %w", t.Name, ErrTypesFull)
		}
		m.typeOrder = append(m.typeOrder, t.Name)
	}
	cp := t
	m.types[t.Name] = &cp
	return nil
}

// Type returns the crop type called name, or nil.
func (m *Manager) Type(name string) *CropType { return m.types[name] }

// Types returns every crop type in registration order.
func (m *Manager) Types() []CropType {
	out := make([]CropType, 0, len(m.typeOrder))
	for _, n := range m.typeOrder {
		out = append(out, *m.types[n])
	}
	return out
}

// RegisterField binds a new field to location loc.
func (m *Manager) RegisterField(loc world.LocationID, width, height int) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("register field %d: %dx%d: %w", loc, width, height, ErrOutOfBounds)
	}
	if m.Field(loc) != nil {
		return nil, fmt.Errorf("register field %d: %w", loc, ErrFieldExists)
	}
	f := NewField(loc, width, height, m.maxCrops)
	m.fields = append(m.fields, f)
	return f, nil
}

// Field returns the field at loc, or nil.
func (m *Manager) Field(loc world.LocationID) *Field {
	for _, f := range m.fields {
		if f.Location == loc {
			return f
		}
	}
	return nil
}

// Fields returns the fields in registration order.
func (m *Manager) Fields() []*Field {
	out := make([]*Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Plant sows a registered crop type on a field.
func (m *Manager) Plant(loc world.LocationID, typeName string, x, y int, by ecs.EntityID) (*Crop, error) {
	f := m.Field(loc)
	if f == nil {
		return nil, fmt.Errorf("plant on %d: %w", loc, ErrFieldNotFound)
	}
	if m.types[typeName] == nil {
		return nil, fmt.Errorf("plant %q: %w", typeName, ErrUnknownCropType)
	}
	return f.Plant(typeName, x, y, by)
}

// Water waters one crop. It reports false for a withered crop.
func (m *Manager) Water(loc world.LocationID, cropID int) (bool, error) {
	c, err := m.crop(loc, cropID)
	if err != nil {
		return false, err
	}
	return c.Water(), nil
}

// Harvest removes a mature crop and returns its yield.
func (m *Manager) Harvest(loc world.LocationID, cropID int) (Crop, error) {
	c, err := m.crop(loc, cropID)
	if err != nil {
		return Crop{}, err
	}
	if !c.Ready() {
		return Crop{}, fmt.Errorf("harvest %s %d (%s): %w", c.Type, c.ID, c.Stage, ErrNotMature)
	}
	f := m.Field(loc)
	f.Remove(cropID)
	f.totalHarvested++
	return *c, nil
}

// Clear digs up a withered crop and frees its plot.
func (m *Manager) Clear(loc world.LocationID, cropID int) (Crop, error) {
	c, err := m.crop(loc, cropID)
	if err != nil {
		return Crop{}, err
	}
	if !c.Withered() {
		return Crop{}, fmt.Errorf("clear %s %d (%s): %w", c.Type, c.ID, c.Stage, ErrNotWithered)
	}
	m.Field(loc).Remove(cropID)
	return *c, nil
}

func (m *Manager) crop(loc world.LocationID, cropID int) (*Crop, error) {
	f := m.Field(loc)
	if f == nil {
		return nil, fmt.Errorf("field %d: %w", loc, ErrFieldNotFound)
	}
	c := f.Crop(cropID)
	if c == nil {
		return nil, fmt.Errorf("crop %d on field %d: %w", cropID, loc, ErrCropNotFound)
	}
	return c, nil
}

// UpdateAll runs one day of growth on every field, fields in registration
// order and crops in planting order, and returns the stage changes.
func (m *Manager) UpdateAll(season clock.Season, w weather.Kind) []Transition {
	var out []Transition
	for _, f := range m.fields {
		out = f.update(m.types, season, w, out)
	}
	return out
}

// TotalCrops counts crops across all fields.
func (m *Manager) TotalCrops() int {
	n := 0
	for _, f := range m.fields {
		n += f.Len()
	}
	return n
}

// CountByStage counts crops in stage s across all fields.
func (m *Manager) CountByStage(s Stage) int {
	n := 0
	for _, f := range m.fields {
		n += f.CountByStage(s)
	}
	return n
}

// StageCounts tallies crops by stage across all fields.
func (m *Manager) StageCounts() map[Stage]int {
	out := make(map[Stage]int)
	for _, f := range m.fields {
		for _, c := range f.crops {
			out[c.Stage]++
		}
	}
	return out
}

// GoodForPlanting reports whether typeName may be sown in season s.
func (m *Manager) GoodForPlanting(typeName string, s clock.Season) bool {
	t := m.types[typeName]
	return t != nil && t.GoodForPlanting(s)
}
