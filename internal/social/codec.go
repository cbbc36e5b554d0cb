package social

import (
	"fmt"
	"slices"
	"sort"

	"github.com/talgya/hearthvale/internal/ecs"
)

// Snapshot is the saved form of the manager. Open conversations are not saved.
type Snapshot struct {
	Relationships      []Relationship    `json:"relationships"`
	Personalities      []Personality     `json:"personalities"`
	GiftPreferences    []GiftPreferences `json:"gift_preferences"`
	NextConversationID int               `json:"next_conversation_id"`
}

// Snapshot copies the manager's tables; personalities and preferences are sorted by entity.
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{NextConversationID: m.nextConvID}
	for _, r := range m.relationships {
		s.Relationships = append(s.Relationships, *r)
	}
	for _, id := range sortedKeys(m.personalities) {
		p := *m.personalities[id]
		p.Traits = slices.Clone(p.Traits)
		s.Personalities = append(s.Personalities, p)
	}
	for _, id := range sortedKeys(m.preferences) {
		g := *m.preferences[id]
		g.Loved, g.Liked, g.Disliked = slices.Clone(g.Loved), slices.Clone(g.Liked), slices.Clone(g.Disliked)
		s.GiftPreferences = append(s.GiftPreferences, g)
	}
	return s
}

// Restore replaces the manager's tables with s.
func (m *Manager) Restore(s Snapshot) error {
	if len(s.Relationships) > m.max || len(s.Personalities) > m.max || len(s.GiftPreferences) > m.max {
		return fmt.Errorf("restore social: %w", ErrCapacity)
	}
	rels := make([]*Relationship, 0, len(s.Relationships))
	for i := range s.Relationships {
		r := s.Relationships[i]
		if r.A == r.B {
			return fmt.Errorf("%w: self relationship for %d", ErrInvalidArgument, r.A)
		}
		if r.Affection < -100 || r.Affection > 100 || r.Trust < 0 || r.Trust > 100 || r.Respect < 0 || r.Respect > 100 {
			return fmt.Errorf("%w: relationship %d-%d out of range", ErrInvalidArgument, r.A, r.B)
		}
		rels = append(rels, &r)
	}
	m.relationships = rels
	m.personalities = make(map[ecs.EntityID]*Personality, len(s.Personalities))
	for i := range s.Personalities {
		p := s.Personalities[i]
		if len(p.Traits) > MaxTraits {
			return fmt.Errorf("personality %d: %w", p.Entity, ErrCapacity)
		}
		m.personalities[p.Entity] = &p
	}
	m.preferences = make(map[ecs.EntityID]*GiftPreferences, len(s.GiftPreferences))
	for i := range s.GiftPreferences {
		g := s.GiftPreferences[i]
		m.preferences[g.Entity] = &g
	}
	m.conversations = nil
	m.nextConvID = max(s.NextConversationID, 1)
	return nil
}

func sortedKeys[V any](m map[ecs.EntityID]V) []ecs.EntityID {
	keys := make([]ecs.EntityID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
