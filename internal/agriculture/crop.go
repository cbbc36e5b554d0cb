// Package agriculture runs the crop lifecycle: crop types, planted crops
// and the fields that hold them.
package agriculture

import (
	"errors"
	"fmt"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

var (
	ErrUnknownStage    = errors.New("unknown crop stage")
	ErrUnknownCropType = errors.New("unknown crop type")
	ErrTypesFull       = errors.New("crop type table full")
	ErrFieldNotFound   = errors.New("field not found")
	ErrFieldExists     = errors.New("field already registered")
	ErrFieldFull       = errors.New("field full")
	ErrPlotOccupied    = errors.New("plot occupied")
	ErrOutOfBounds     = errors.New("plot out of bounds")
	ErrCropNotFound    = errors.New("crop not found")
	ErrNotMature       = errors.New("crop not mature")
	ErrNotWithered     = errors.New("crop not withered")
)

// Stage is where a crop is in its life.
type Stage uint8

const (
	Seed Stage = iota
	Sprout
	Growing
	Mature
	Withered
)

var stageNames = [...]string{"seed", "sprout", "growing", "mature", "withered"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s <= Withered }

// ParseStage converts a saved stage name.
func ParseStage(str string) (Stage, error) {
	for i, n := range stageNames {
		if n == str {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, str)
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	v, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CropType is the growing profile shared by every crop of one kind.
type CropType struct {
	Name            string       `json:"name"`
	DaysToMature    int          `json:"days_to_mature"`
	DaysSprout      int          `json:"days_sprout"`
	DaysGrowing     int          `json:"days_growing"`
	PreferredSeason clock.Season `json:"preferred_season"`
	AnySeason       bool         `json:"can_grow_any_season"`
	WaterNeed       int          `json:"water_requirement"`
	NeedsSun        bool         `json:"needs_sun"`
	BaseYield       int          `json:"base_yield"`
	MinYield        int          `json:"min_yield"`
	MaxYield        int          `json:"max_yield"`
	SellPrice       int          `json:"sell_price"`
	SeedCost        int          `json:"seed_cost"`
}

// NewCropType returns a type with the stock growing profile for its maturity time.
func NewCropType(name string, daysToMature int, season clock.Season) CropType {
	return CropType{
		Name:            name,
		DaysToMature:    daysToMature,
		DaysSprout:      daysToMature / 4,
		DaysGrowing:     daysToMature / 2,
		PreferredSeason: season,
		WaterNeed:       50,
		NeedsSun:        true,
		BaseYield:       5,
		MinYield:        1,
		MaxYield:        10,
		SellPrice:       10,
		SeedCost:        5,
	}
}

// GoodForPlanting reports whether t can be sown in season s.
func (t CropType) GoodForPlanting(s clock.Season) bool {
	return t.AnySeason || t.PreferredSeason == s
}

// Crop is one planted crop occupying a plot.
type Crop struct {
	ID             int              `json:"id"`
	Type           string           `json:"crop_type_name"`
	Field          world.LocationID `json:"field_location_id"`
	X              int              `json:"plot_x"`
	Y              int              `json:"plot_y"`
	Stage          Stage            `json:"stage"`
	DaysPlanted    int              `json:"days_planted"`
	DaysInStage    int              `json:"days_in_current_stage"`
	Health         int              `json:"health"`
	WaterLevel     int              `json:"water_level"`
	WateredToday   bool             `json:"watered_today"`
	PlantedBy      ecs.EntityID     `json:"planted_by_entity_id"`
	PredictedYield int              `json:"predicted_yield"`
}

func newCrop(id int, typeName string, field world.LocationID, x, y int, by ecs.EntityID) *Crop {
	return &Crop{
		ID:         id,
		Type:       typeName,
		Field:      field,
		X:          x,
		Y:          y,
		Stage:      Seed,
		Health:     100,
		WaterLevel: 50,
		PlantedBy:  by,
	}
}

// Update runs one day of growth. Withered crops are left alone.
func (c *Crop) Update(t *CropType, season clock.Season, w weather.Kind) {
	if c.Stage == Withered {
		return
	}
	before := c.Stage

	c.DaysPlanted++
	c.DaysInStage++

	if !c.WateredToday {
		c.WaterLevel = max(c.WaterLevel-15, 0)
	}
	c.WateredToday = false

	if c.WaterLevel < 20 {
		c.Health -= 10
	}

	switch w {
	case weather.Rainy:
		c.WaterLevel = min(c.WaterLevel+20, 100)
	case weather.Stormy:
		c.Health -= 5
	case weather.Drought:
		c.WaterLevel = max(c.WaterLevel-10, 0)
		c.Health -= 5
	}

	if !t.AnySeason && season != t.PreferredSeason {
		c.Health -= 2
	}

	if c.Health <= 0 {
		c.Stage = Withered
		c.Health = 0
		return
	}

	switch c.Stage {
	case Seed:
		if c.DaysInStage >= t.DaysSprout {
			c.enter(Sprout)
		}
	case Sprout:
		if c.DaysInStage >= t.DaysSprout {
			c.enter(Growing)
		}
	case Growing:
		if c.DaysPlanted >= t.DaysToMature {
			c.enter(Mature)
			c.PredictedYield = t.MinYield + (t.MaxYield-t.MinYield)*c.Health/100
		}
	case Mature:
		if c.DaysInStage > 7 {
			c.Health -= 5
		}
	}

	c.Health = min(max(c.Health, 0), 100)
	if c.Stage < before {
		panic(fmt.Sprintf("agriculture: crop %d regressed from %s to %s", c.ID, before, c.Stage))
	}
}

func (c *Crop) enter(s Stage) {
	c.Stage = s
	c.DaysInStage = 0
}

// Water adds 40 water and a little health. Withered crops cannot be
// revived, so Water reports false for them.
func (c *Crop) Water() bool {
	if c.Stage == Withered {
		return false
	}
	c.WaterLevel = min(c.WaterLevel+40, 100)
	c.WateredToday = true
	c.Health = min(c.Health+5, 100)
	return true
}

// Ready reports whether the crop can be harvested.
func (c *Crop) Ready() bool { return c.Stage == Mature }

// Withered reports whether the crop has died.
func (c *Crop) Withered() bool { return c.Stage == Withered }

// Progress is the fraction of the growing period elapsed.
func (c *Crop) Progress(t *CropType) float64 {
	if t == nil || t.DaysToMature <= 0 {
		return 0
	}
	return float64(c.DaysPlanted) / float64(t.DaysToMature)
}

// DaysLeft is how many more days the crop needs before it can mature.
func (c *Crop) DaysLeft(t *CropType) int {
	if c.Stage >= Mature || t == nil {
		return 0
	}
	return max(t.DaysToMature-c.DaysPlanted, 0)
}
