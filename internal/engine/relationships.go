// Relationship drift between villagers who have not met in a while.
package engine

import (
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
)

// decayRelationships applies one day of decay and keeps each entity's own
// relationship table in step with the social manager.
func (s *Simulation) decayRelationships() {
	for _, ch := range s.Social.DecayAll(1) {
		s.mirror(ch.A, ch.B, ch.After)
		s.publish(event.NewRelationshipChange(ch.A, ch.B, ch.Before, ch.After, ch.Reason))
	}
}

func (s *Simulation) mirror(a, b ecs.EntityID, affection int) {
	if r := s.Registry.Relationship(a); r != nil {
		_ = r.Set(b, affection)
	}
	if r := s.Registry.Relationship(b); r != nil {
		_ = r.Set(a, affection)
	}
}
