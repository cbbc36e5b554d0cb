package social

import (
	"fmt"
	"slices"

	"github.com/talgya/hearthvale/internal/ecs"
)

// MaxTraits bounds a personality's trait list.
const MaxTraits = 10

// Trait is one personality trait.
type Trait uint8

const (
	Friendly Trait = iota
	Shy
	Generous
	Greedy
	Honest
	Deceitful
	Optimistic
	Pessimistic
	Ambitious
	Lazy
)

var traitNames = [...]string{
	"friendly", "shy", "generous", "greedy", "honest", "deceitful", "optimistic", "pessimistic", "ambitious", "lazy",
}

func (t Trait) String() string {
	if int(t) < len(traitNames) {
		return traitNames[t]
	}
	return "unknown"
}

// ParseTrait converts a saved trait name.
func ParseTrait(s string) (Trait, error) {
	for i, n := range traitNames {
		if n == s {
			return Trait(i), nil
		}
	}
	return 0, fmt.Errorf("%w: trait %q", ErrUnknownValue, s)
}

func (t Trait) MarshalText() ([]byte, error) {
	if int(t) >= len(traitNames) {
		return nil, fmt.Errorf("%w: trait %d", ErrUnknownValue, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Trait) UnmarshalText(b []byte) error {
	v, err := ParseTrait(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Personality shapes how an entity reacts to conversation and gifts.
// Scores run 0–100 with 50 as the average villager.
type Personality struct {
	Entity          ecs.EntityID `json:"entity_id"`
	Traits          []Trait      `json:"traits"`
	Friendliness    int          `json:"friendliness"`
	Generosity      int          `json:"generosity"`
	Chattiness      int          `json:"chattiness"`
	Trustworthiness int          `json:"trustworthiness"`
}

// NewPersonality returns an average personality with no traits.
func NewPersonality(id ecs.EntityID) *Personality {
	return &Personality{
		Entity:          id,
		Friendliness:    50,
		Generosity:      50,
		Chattiness:      50,
		Trustworthiness: 50,
	}
}

// AddTrait adds t and applies its score adjustments.
func (p *Personality) AddTrait(t Trait) error {
	if int(t) >= len(traitNames) {
		return fmt.Errorf("%w: trait %d", ErrUnknownValue, uint8(t))
	}
	if p.HasTrait(t) {
		return fmt.Errorf("%w: trait %s already present", ErrInvalidArgument, t)
	}
	if len(p.Traits) >= MaxTraits {
		return fmt.Errorf("add trait %s: %w", t, ErrCapacity)
	}
	p.Traits = append(p.Traits, t)

	switch t {
	case Friendly:
		p.Friendliness += 20
		p.Chattiness += 15
	case Shy:
		p.Friendliness -= 20
		p.Chattiness -= 20
	case Generous:
		p.Generosity += 30
	case Greedy:
		p.Generosity -= 30
	case Honest:
		p.Trustworthiness += 25
	case Deceitful:
		p.Trustworthiness -= 25
	case Optimistic:
		p.Friendliness += 10
	case Pessimistic:
		p.Friendliness -= 10
	}

	p.Friendliness = clamp(p.Friendliness, 0, 100)
	p.Generosity = clamp(p.Generosity, 0, 100)
	p.Chattiness = clamp(p.Chattiness, 0, 100)
	p.Trustworthiness = clamp(p.Trustworthiness, 0, 100)
	return nil
}

// HasTrait reports whether t is present.
func (p *Personality) HasTrait(t Trait) bool { return slices.Contains(p.Traits, t) }

// Modifiers scale 0–100 scores to 0.0–2.0; a nil personality is average.

func (p *Personality) FriendlinessMod() float64 {
	if p == nil {
		return 1
	}
	return float64(p.Friendliness) / 50
}

func (p *Personality) GenerosityMod() float64 {
	if p == nil {
		return 1
	}
	return float64(p.Generosity) / 50
}

func (p *Personality) TrustMod() float64 {
	if p == nil {
		return 1
	}
	return float64(p.Trustworthiness) / 50
}
