package agriculture

import "github.com/talgya/hearthvale/internal/clock"

// DefaultCropTypes returns the village's stock crops.
func DefaultCropTypes() []CropType {
	wheat := NewCropType("Wheat", 8, clock.Spring)
	wheat.WaterNeed = 40
	wheat.BaseYield, wheat.MinYield, wheat.MaxYield = 6, 3, 10
	wheat.SellPrice, wheat.SeedCost = 12, 5

	corn := NewCropType("Corn", 10, clock.Summer)
	corn.WaterNeed = 60
	corn.BaseYield, corn.MinYield, corn.MaxYield = 8, 4, 15
	corn.SellPrice, corn.SeedCost = 15, 8

	tomato := NewCropType("Tomato", 7, clock.Summer)
	tomato.WaterNeed = 70
	tomato.BaseYield, tomato.MinYield, tomato.MaxYield = 10, 5, 20
	tomato.SellPrice, tomato.SeedCost = 8, 6

	potato := NewCropType("Potato", 9, clock.Fall)
	potato.AnySeason = true
	potato.BaseYield, potato.MinYield, potato.MaxYield = 12, 6, 20
	potato.SellPrice, potato.SeedCost = 6, 4

	carrot := NewCropType("Carrot", 6, clock.Spring)
	carrot.WaterNeed = 45
	carrot.BaseYield, carrot.MinYield, carrot.MaxYield = 8, 4, 12
	carrot.SellPrice, carrot.SeedCost = 7, 3

	return []CropType{wheat, corn, tomato, potato, carrot}
}
