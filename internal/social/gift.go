package social

import (
	"fmt"
	"slices"

	"github.com/talgya/hearthvale/internal/ecs"
)

// MaxPreferenceItems bounds each of the loved, liked and disliked lists.
const MaxPreferenceItems = 10

// Gift value tiers.
const (
	ExpensiveAbove = 50
	CheapBelow     = 10
)

// Reaction is how a receiver feels about a gifted item.
type Reaction uint8

const (
	Neutral Reaction = iota
	Loved
	Liked
	Disliked
)

var reactionNames = [...]string{"neutral", "loved", "liked", "disliked"}

func (r Reaction) String() string {
	if int(r) < len(reactionNames) {
		return reactionNames[r]
	}
	return "unknown"
}

func (r Reaction) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Base affection per reaction before value and personality adjustments.
func (r Reaction) base() int {
	switch r {
	case Loved:
		return 15
	case Liked:
		return 10
	case Disliked:
		return -5
	}
	return 5
}

// GiftPreferences lists the items an entity reacts to.
type GiftPreferences struct {
	Entity   ecs.EntityID `json:"entity_id"`
	Loved    []string     `json:"loved"`
	Liked    []string     `json:"liked"`
	Disliked []string     `json:"disliked"`
}

// NewGiftPreferences returns empty preferences for id.
func NewGiftPreferences(id ecs.EntityID) *GiftPreferences {
	return &GiftPreferences{Entity: id}
}

func (g *GiftPreferences) AddLoved(item string) error    { return addPref(&g.Loved, item) }
func (g *GiftPreferences) AddLiked(item string) error    { return addPref(&g.Liked, item) }
func (g *GiftPreferences) AddDisliked(item string) error { return addPref(&g.Disliked, item) }

func addPref(list *[]string, item string) error {
	if item == "" {
		return fmt.Errorf("%w: empty item name", ErrInvalidArgument)
	}
	if len(*list) >= MaxPreferenceItems {
		return fmt.Errorf("add preference %q: %w", item, ErrCapacity)
	}
	*list = append(*list, item)
	return nil
}

// Reaction classifies item. Loved wins over liked, liked over disliked.
func (g *GiftPreferences) Reaction(item string) Reaction {
	switch {
	case g == nil:
		return Neutral
	case slices.Contains(g.Loved, item):
		return Loved
	case slices.Contains(g.Liked, item):
		return Liked
	case slices.Contains(g.Disliked, item):
		return Disliked
	}
	return Neutral
}

// Gift is a completed gift and what it did to the relationship.
type Gift struct {
	Giver    ecs.EntityID `json:"giver_id"`
	Receiver ecs.EntityID `json:"receiver_id"`
	Item     string       `json:"item_name"`
	Value    int          `json:"item_value"`
	Reaction Reaction     `json:"reaction"`
	Delta    int          `json:"affection_gained"`
	Before   int          `json:"affection_before"`
	After    int          `json:"affection_after"`
	GivenAt  int64        `json:"given_at"`
}

// GiftAffection computes the affection a gift earns: the reaction base,
// plus 3 above ExpensiveAbove or minus 1 below CheapBelow, scaled by
// 0.5 + generosity·0.5 and truncated towards zero.
func GiftAffection(item string, value int, prefs *GiftPreferences, receiver *Personality) int {
	a := prefs.Reaction(item).base()
	switch {
	case value > ExpensiveAbove:
		a += 3
	case value < CheapBelow:
		a--
	}
	if receiver != nil {
		a = int(float64(a) * (0.5 + receiver.GenerosityMod()*0.5))
	}
	return a
}
