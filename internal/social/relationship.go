// Relationships: affection, trust and respect between pairs of entities.
// Affection drives the relationship type; trust and respect only shade it.
package social

import (
	"errors"
	"fmt"
	"time"

	"github.com/talgya/hearthvale/internal/ecs"
)

var (
	ErrCapacity        = errors.New("social table full")
	ErrNotFound        = errors.New("not found")
	ErrLocked          = errors.New("relationship locked")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownValue    = errors.New("unknown social value")
)

// Affection thresholds for the relationship type.
const (
	CloseFriendAt  = 80
	FriendAt       = 50
	AcquaintanceAt = 20
	EnemyAt        = -80
	RivalAt        = -50
)

// StaleAfterDays is how long a relationship goes untouched before it starts to fade.
const StaleAfterDays = 7

// RelationshipType classifies a relationship by affection.
type RelationshipType uint8

const (
	Stranger RelationshipType = iota
	Acquaintance
	Friend
	CloseFriend
	Romantic
	Family
	Rival
	Enemy
)

var relationshipTypeNames = [...]string{
	"stranger", "acquaintance", "friend", "close_friend", "romantic", "family", "rival", "enemy",
}

func (t RelationshipType) String() string {
	if int(t) < len(relationshipTypeNames) {
		return relationshipTypeNames[t]
	}
	return "unknown"
}

// ParseRelationshipType converts a saved type name.
func ParseRelationshipType(s string) (RelationshipType, error) {
	for i, n := range relationshipTypeNames {
		if n == s {
			return RelationshipType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: relationship type %q", ErrUnknownValue, s)
}

func (t RelationshipType) MarshalText() ([]byte, error) {
	if int(t) >= len(relationshipTypeNames) {
		return nil, fmt.Errorf("%w: relationship type %d", ErrUnknownValue, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *RelationshipType) UnmarshalText(b []byte) error {
	v, err := ParseRelationshipType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TypeFor returns the relationship type implied by an affection score.
func TypeFor(affection int) RelationshipType {
	switch {
	case affection >= CloseFriendAt:
		return CloseFriend
	case affection >= FriendAt:
		return Friend
	case affection >= AcquaintanceAt:
		return Acquaintance
	case affection <= EnemyAt:
		return Enemy
	case affection <= RivalAt:
		return Rival
	}
	return Stranger
}

// Relationship is the bond between A and B. It is symmetric: the pair
// (A, B) and (B, A) name the same relationship.
type Relationship struct {
	A                    ecs.EntityID     `json:"entity_a_id"`
	B                    ecs.EntityID     `json:"entity_b_id"`
	Type                 RelationshipType `json:"type"`
	Affection            int              `json:"affection"`
	Trust                int              `json:"trust"`
	Respect              int              `json:"respect"`
	TimesTalked          int              `json:"times_talked"`
	TimesGifted          int              `json:"times_gifted"`
	DaysSinceInteraction int              `json:"days_since_interaction"`
	FirstMet             int64            `json:"first_met"`
	LastInteraction      int64            `json:"last_interaction"`
	Locked               bool             `json:"is_locked"`
}

// NewRelationship starts two strangers at neutral affection and middling trust.
func NewRelationship(a, b ecs.EntityID, now time.Time) *Relationship {
	return &Relationship{
		A:               a,
		B:               b,
		Type:            Stranger,
		Trust:           50,
		Respect:         50,
		FirstMet:        now.Unix(),
		LastInteraction: now.Unix(),
	}
}

// Involves reports whether id is one side of r.
func (r *Relationship) Involves(id ecs.EntityID) bool { return r.A == id || r.B == id }

// Other returns the side of r that is not id.
func (r *Relationship) Other(id ecs.EntityID) ecs.EntityID {
	if r.A == id {
		return r.B
	}
	return r.A
}

// ModifyAffection shifts affection, clamped to ±100, and reclassifies the type.
func (r *Relationship) ModifyAffection(delta int) error {
	if r.Locked {
		return ErrLocked
	}
	r.Affection = clamp(r.Affection+delta, -100, 100)
	r.Type = TypeFor(r.Affection)
	return nil
}

// ModifyTrust shifts trust within [0, 100].
func (r *Relationship) ModifyTrust(delta int) error {
	if r.Locked {
		return ErrLocked
	}
	r.Trust = clamp(r.Trust+delta, 0, 100)
	return nil
}

// ModifyRespect shifts respect within [0, 100].
func (r *Relationship) ModifyRespect(delta int) error {
	if r.Locked {
		return ErrLocked
	}
	r.Respect = clamp(r.Respect+delta, 0, 100)
	return nil
}

// Meets reports whether r reaches both minimums.
func (r *Relationship) Meets(minAffection, minTrust int) bool {
	return r.Affection >= minAffection && r.Trust >= minTrust
}

// RecordTalk counts a conversation and resets the staleness counter.
func (r *Relationship) RecordTalk(now time.Time) {
	r.TimesTalked++
	r.touch(now)
}

// RecordGift counts a gift and resets the staleness counter.
func (r *Relationship) RecordGift(now time.Time) {
	r.TimesGifted++
	r.touch(now)
}

func (r *Relationship) touch(now time.Time) {
	r.LastInteraction = now.Unix()
	r.DaysSinceInteraction = 0
}

// Decay ages the relationship by days. Past a week without contact,
// affection drops one point per further full week.
func (r *Relationship) Decay(days int) {
	if r.Locked || days <= 0 {
		return
	}
	r.DaysSinceInteraction += days
	if r.DaysSinceInteraction > StaleAfterDays {
		if loss := (r.DaysSinceInteraction - StaleAfterDays) / 7; loss > 0 {
			_ = r.ModifyAffection(-loss)
		}
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
