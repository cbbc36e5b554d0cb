// Daily crop growth.
package engine

import (
	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/event"
)

// growCrops updates every field once and reports each stage change.
func (s *Simulation) growCrops() {
	for _, t := range s.Farms.UpdateAll(s.Clock.Season, s.Weather.Current) {
		sub := event.CropGrowthStage
		if t.To == agriculture.Withered {
			sub = event.CropWithered
		}
		e := event.NewCropAction(sub, t.CropType, t.X, t.Y, t.To.String(), t.DaysLeft, t.PlantedBy)
		if loc := s.World.Location(t.Field); loc != nil {
			e.Location = loc.Name
		}
		s.publish(e)
	}
}
