// Package social models how villagers feel about each other: relationships,
// personalities, gift reactions and conversations.
package social

import (
	"fmt"
	"time"

	"github.com/talgya/hearthvale/internal/ecs"
)

// DefaultMaxRelationships bounds each of the manager's tables.
const DefaultMaxRelationships = 100

// Change is an affection change the caller may want to report.
type Change struct {
	A, B   ecs.EntityID
	Before int
	After  int
	Reason string
}

// Delta is After minus Before.
func (c Change) Delta() int { return c.After - c.Before }

// Manager owns every relationship, personality, preference list and
// active conversation.
type Manager struct {
	relationships []*Relationship // creation order
	personalities map[ecs.EntityID]*Personality
	preferences   map[ecs.EntityID]*GiftPreferences
	conversations []*Conversation
	nextConvID    int
	max           int
	now           func() time.Time
}

// ManagerOpt configures a Manager.
type ManagerOpt func(*Manager)

// WithClock sets the time source for interaction timestamps.
func WithClock(now func() time.Time) ManagerOpt {
	return func(m *Manager) { m.now = now }
}

// WithMaxRelationships sets the table bound.
func WithMaxRelationships(n int) ManagerOpt {
	return func(m *Manager) {
		if n > 0 {
			m.max = n
		}
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOpt) *Manager {
	m := &Manager{
		personalities: make(map[ecs.EntityID]*Personality),
		preferences:   make(map[ecs.EntityID]*GiftPreferences),
		nextConvID:    1,
		max:           DefaultMaxRelationships,
		now:           time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Relationship returns the relationship between a and b in either order, or nil.
func (m *Manager) Relationship(a, b ecs.EntityID) *Relationship {
	for _, r := range m.relationships {
		if (r.A == a && r.B == b) || (r.A == b && r.B == a) {
			return r
		}
	}
	return nil
}

// Ensure returns the relationship between a and b, creating it if needed.
func (m *Manager) Ensure(a, b ecs.EntityID) (*Relationship, error) {
	if a == b {
		return nil, fmt.Errorf("%w: entity %d cannot relate to itself", ErrInvalidArgument, a)
	}
	if r := m.Relationship(a, b); r != nil {
		return r, nil
	}
	if len(m.relationships) >= m.max {
		return nil, fmt.Errorf("relationship %d-%d: %w", a, b, ErrCapacity)
	}
	r := NewRelationship(a, b, m.now())
	m.relationships = append(m.relationships, r)
	return r, nil
}

// Relationships returns every relationship in creation order.
func (m *Manager) Relationships() []*Relationship {
	out := make([]*Relationship, len(m.relationships))
	copy(out, m.relationships)
	return out
}

// RelationshipsOf returns the relationships involving id.
func (m *Manager) RelationshipsOf(id ecs.EntityID) []*Relationship {
	var out []*Relationship
	for _, r := range m.relationships {
		if r.Involves(id) {
			out = append(out, r)
		}
	}
	return out
}

// Lock freezes or thaws the relationship between a and b.
func (m *Manager) Lock(a, b ecs.EntityID, locked bool) error {
	r := m.Relationship(a, b)
	if r == nil {
		return fmt.Errorf("lock %d-%d: %w", a, b, ErrNotFound)
	}
	r.Locked = locked
	return nil
}

// SetPersonality registers or replaces p.
func (m *Manager) SetPersonality(p *Personality) error {
	if _, ok := m.personalities[p.Entity]; !ok && len(m.personalities) >= m.max {
		return fmt.Errorf("personality %d: %w", p.Entity, ErrCapacity)
	}
	m.personalities[p.Entity] = p
	return nil
}

// Personality returns id's personality, or nil.
func (m *Manager) Personality(id ecs.EntityID) *Personality { return m.personalities[id] }

// SetPreferences registers or replaces g.
func (m *Manager) SetPreferences(g *GiftPreferences) error {
	if _, ok := m.preferences[g.Entity]; !ok && len(m.preferences) >= m.max {
		return fmt.Errorf("preferences %d: %w", g.Entity, ErrCapacity)
	}
	m.preferences[g.Entity] = g
	return nil
}

// Preferences returns id's gift preferences, or nil.
func (m *Manager) Preferences(id ecs.EntityID) *GiftPreferences { return m.preferences[id] }

// Converse has a talk to b. The base gain of 3 grows by 2 when b is
// chatty and by 1 for each friendly party; trust grows by 1.
func (m *Manager) Converse(a, b ecs.EntityID, topic Topic) (Change, error) {
	r, err := m.Ensure(a, b)
	if err != nil {
		return Change{}, err
	}
	if r.Locked {
		return Change{}, fmt.Errorf("converse %d-%d: %w", a, b, ErrLocked)
	}
	pa, pb := m.personalities[a], m.personalities[b]

	gain := 3
	if pb != nil && pb.Chattiness > 70 {
		gain += 2
	}
	if pa != nil && pa.HasTrait(Friendly) {
		gain++
	}
	if pb != nil && pb.HasTrait(Friendly) {
		gain++
	}

	before := r.Affection
	_ = r.ModifyAffection(gain)
	_ = r.ModifyTrust(1)
	r.RecordTalk(m.now())
	return Change{A: a, B: b, Before: before, After: r.Affection, Reason: "talked about " + topic.String()}, nil
}

// GiveGift applies a gift from giver to receiver.
func (m *Manager) GiveGift(giver, receiver ecs.EntityID, item string, value int) (Gift, error) {
	if item == "" {
		return Gift{}, fmt.Errorf("%w: empty item name", ErrInvalidArgument)
	}
	r, err := m.Ensure(giver, receiver)
	if err != nil {
		return Gift{}, err
	}
	if r.Locked {
		return Gift{}, fmt.Errorf("gift %d-%d: %w", giver, receiver, ErrLocked)
	}
	prefs := m.preferences[receiver]
	delta := GiftAffection(item, value, prefs, m.personalities[receiver])

	g := Gift{
		Giver:    giver,
		Receiver: receiver,
		Item:     item,
		Value:    value,
		Reaction: prefs.Reaction(item),
		Delta:    delta,
		Before:   r.Affection,
		GivenAt:  m.now().Unix(),
	}
	_ = r.ModifyAffection(delta)
	r.RecordGift(m.now())
	g.After = r.Affection
	return g, nil
}

// StartConversation opens a conversation between initiator and recipient.
func (m *Manager) StartConversation(initiator, recipient ecs.EntityID) (*Conversation, error) {
	if len(m.conversations) >= m.max {
		m.pruneConversations()
		if len(m.conversations) >= m.max {
			return nil, fmt.Errorf("start conversation: %w", ErrCapacity)
		}
	}
	c := newConversation(m.nextConvID, initiator, recipient, m.now())
	m.nextConvID++
	m.conversations = append(m.conversations, c)
	return c, nil
}

// ActiveConversation returns the open conversation involving id, or nil.
func (m *Manager) ActiveConversation(id ecs.EntityID) *Conversation {
	for _, c := range m.conversations {
		if !c.Completed && c.Involves(id) {
			return c
		}
	}
	return nil
}

// EndConversation closes a conversation. When an option was selected its
// affection, trust and respect changes are applied and the talk recorded.
func (m *Manager) EndConversation(id int) (Change, error) {
	var c *Conversation
	for _, cc := range m.conversations {
		if cc.ID == id {
			c = cc
			break
		}
	}
	if c == nil {
		return Change{}, fmt.Errorf("conversation %d: %w", id, ErrNotFound)
	}
	if c.Completed {
		return Change{}, fmt.Errorf("%w: conversation %d already ended", ErrInvalidArgument, id)
	}
	c.Completed = true
	c.EndedAt = m.now().Unix()

	ch := Change{A: c.Initiator, B: c.Recipient}
	if c.Selected < 0 {
		return ch, nil
	}
	r, err := m.Ensure(c.Initiator, c.Recipient)
	if err != nil {
		return ch, err
	}
	o := c.Options[c.Selected]
	ch.Before = r.Affection
	_ = r.ModifyAffection(o.Affection)
	_ = r.ModifyTrust(o.Trust)
	_ = r.ModifyRespect(o.Respect)
	r.RecordTalk(m.now())
	ch.After = r.Affection
	ch.Reason = "talked about " + o.Topic.String()
	return ch, nil
}

func (m *Manager) pruneConversations() {
	open := m.conversations[:0]
	for _, c := range m.conversations {
		if !c.Completed {
			open = append(open, c)
		}
	}
	m.conversations = open
}

// DecayAll ages every relationship and returns the ones that lost affection.
func (m *Manager) DecayAll(days int) []Change {
	var out []Change
	for _, r := range m.relationships {
		before := r.Affection
		r.Decay(days)
		if r.Affection != before {
			out = append(out, Change{A: r.A, B: r.B, Before: before, After: r.Affection, Reason: "drifted apart"})
		}
	}
	return out
}

// Len is the number of relationships.
func (m *Manager) Len() int { return len(m.relationships) }
