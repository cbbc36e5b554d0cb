package social

import (
	"fmt"
	"time"

	"github.com/talgya/hearthvale/internal/ecs"
)

// MaxDialogueOptions bounds the options offered in one conversation.
const MaxDialogueOptions = 10

// Topic is what a conversation is about.
type Topic uint8

const (
	TopicWeather Topic = iota
	TopicFarming
	TopicFamily
	TopicWork
	TopicHobbies
	TopicGossip
	TopicDreams
	TopicPast
	TopicRomance
	TopicBusiness
	TopicFood
	TopicVillage
)

var topicNames = [...]string{
	"weather", "farming", "family", "work", "hobbies", "gossip", "dreams", "past", "romance", "business", "food", "village",
}

func (t Topic) String() string {
	if int(t) < len(topicNames) {
		return topicNames[t]
	}
	return "unknown"
}

// ParseTopic converts a topic name.
func ParseTopic(s string) (Topic, error) {
	for i, n := range topicNames {
		if n == s {
			return Topic(i), nil
		}
	}
	return 0, fmt.Errorf("%w: topic %q", ErrUnknownValue, s)
}

func (t Topic) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Topic) UnmarshalText(b []byte) error {
	v, err := ParseTopic(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// DialogueOption is one line a speaker may choose.
type DialogueOption struct {
	ID           int    `json:"id"`
	Text         string `json:"text"`
	Topic        Topic  `json:"topic"`
	Affection    int    `json:"affection_change"`
	Trust        int    `json:"trust_change"`
	Respect      int    `json:"respect_change"`
	MinAffection *int   `json:"min_affection,omitempty"` // nil: always offered
}

// Conversation is an exchange between an initiator and a recipient.
type Conversation struct {
	ID        int              `json:"id"`
	Initiator ecs.EntityID     `json:"initiator_id"`
	Recipient ecs.EntityID     `json:"recipient_id"`
	Options   []DialogueOption `json:"options"`
	Selected  int              `json:"selected_option_id"`
	StartedAt int64            `json:"started_at"`
	EndedAt   int64            `json:"ended_at"`
	Completed bool             `json:"completed"`
}

func newConversation(id int, initiator, recipient ecs.EntityID, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Initiator: initiator,
		Recipient: recipient,
		Selected:  -1,
		StartedAt: now.Unix(),
	}
}

// AddOption appends a dialogue option and returns its ID.
func (c *Conversation) AddOption(text string, topic Topic, affection, trust, respect int) (int, error) {
	if text == "" {
		return -1, fmt.Errorf("%w: empty dialogue", ErrInvalidArgument)
	}
	if len(c.Options) >= MaxDialogueOptions {
		return -1, fmt.Errorf("add option: %w", ErrCapacity)
	}
	id := len(c.Options)
	c.Options = append(c.Options, DialogueOption{
		ID:        id,
		Text:      text,
		Topic:     topic,
		Affection: affection,
		Trust:     trust,
		Respect:   respect,
	})
	return id, nil
}

// Gate hides option id until the relationship reaches minAffection.
func (c *Conversation) Gate(id, minAffection int) error {
	if id < 0 || id >= len(c.Options) {
		return fmt.Errorf("gate option %d: %w", id, ErrNotFound)
	}
	c.Options[id].MinAffection = &minAffection
	return nil
}

// Select picks option id.
func (c *Conversation) Select(id int) error {
	if id < 0 || id >= len(c.Options) {
		return fmt.Errorf("select option %d: %w", id, ErrNotFound)
	}
	c.Selected = id
	return nil
}

// Available returns the options unlocked at r's affection. A nil
// relationship unlocks everything.
func (c *Conversation) Available(r *Relationship) []DialogueOption {
	var out []DialogueOption
	for _, o := range c.Options {
		if o.MinAffection != nil && r != nil && r.Affection < *o.MinAffection {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Involves reports whether id takes part in c.
func (c *Conversation) Involves(id ecs.EntityID) bool {
	return c.Initiator == id || c.Recipient == id
}
