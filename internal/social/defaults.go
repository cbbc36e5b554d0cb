package social

import "github.com/talgya/hearthvale/internal/ecs"

// SeedDefaults registers the stock villagers' personalities and tastes:
// the farmer (1), the merchant (2) and the shy villager (3).
func SeedDefaults(m *Manager, farmer, merchant, shy ecs.EntityID) error {
	people := []struct {
		id       ecs.EntityID
		traits   []Trait
		loved    []string
		liked    []string
		disliked []string
	}{
		{farmer, []Trait{Friendly, Honest, Generous}, []string{"Hoe", "Watering Can", "Wheat Seeds"}, []string{"Wheat", "Corn"}, []string{"Stone"}},
		{merchant, []Trait{Greedy, Honest, Ambitious}, []string{"Iron Ore", "Bread"}, []string{"Wheat", "Corn"}, nil},
		{shy, []Trait{Shy, Honest}, []string{"Carrot", "Tomato"}, []string{"Bread", "Vegetable Soup"}, nil},
	}
	for _, p := range people {
		pers := NewPersonality(p.id)
		for _, t := range p.traits {
			if err := pers.AddTrait(t); err != nil {
				return err
			}
		}
		if err := m.SetPersonality(pers); err != nil {
			return err
		}
		prefs := &GiftPreferences{Entity: p.id, Loved: p.loved, Liked: p.liked, Disliked: p.disliked}
		if err := m.SetPreferences(prefs); err != nil {
			return err
		}
	}
	return nil
}
