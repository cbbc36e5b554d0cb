// Package event defines the domain event record, the synchronous bus that
// dispatches it and the bounded log that keeps the audit trail.
package event

import (
	"errors"
	"fmt"

	"github.com/talgya/hearthvale/internal/ecs"
)

var (
	ErrUnknownKind     = errors.New("unknown event kind")
	ErrSubscribersFull = errors.New("subscriber table full")
	ErrPublishDepth    = errors.New("event publish nested too deep")
	ErrNilHandler      = errors.New("nil event handler")
)

// Kind is the top-level event category.
type Kind uint8

const (
	Economic Kind = iota
	Social
	Agricultural
	Environmental
	Time
	System
	kindCount
)

var kindNames = [kindCount]string{"Economic", "Social", "Agricultural", "Environmental", "Time", "System"}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// Valid reports whether k is a defined kind.
func (k Kind) Valid() bool { return k < kindCount }

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind converts the saved name of a kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// SubKind narrows a Kind. Each sub-kind belongs to exactly one kind.
type SubKind uint8

const (
	TradeOffered SubKind = iota
	TradeAccepted
	TradeDeclined
	CurrencyGained
	CurrencySpent
	PriceChanged
	ItemGained
	ItemConsumed

	ConversationStarted
	ConversationEnded
	RelationshipChanged
	GiftGiven
	HelpRequested
	HelpProvided

	CropPlanted
	CropWatered
	CropHarvested
	CropWithered
	CropGrowthStage

	WeatherChanged
	TimeAdvanced
	SeasonChanged
	DayStarted

	MorningStarted
	AfternoonStarted
	EveningStarted
	NightStarted
	NewDay
	NewSeason
	NewYear

	EntityCreated
	EntityDestroyed
	EntityMoved
	EntityRested
	GameSaved
	GameLoaded
	subKindCount
)

var subKinds = [subKindCount]struct {
	name string
	kind Kind
}{
	{"TradeOffered", Economic},
	{"TradeAccepted", Economic},
	{"TradeDeclined", Economic},
	{"CurrencyGained", Economic},
	{"CurrencySpent", Economic},
	{"PriceChanged", Economic},
	{"ItemGained", Economic},
	{"ItemConsumed", Economic},

	{"ConversationStarted", Social},
	{"ConversationEnded", Social},
	{"RelationshipChanged", Social},
	{"GiftGiven", Social},
	{"HelpRequested", Social},
	{"HelpProvided", Social},

	{"CropPlanted", Agricultural},
	{"CropWatered", Agricultural},
	{"CropHarvested", Agricultural},
	{"CropWithered", Agricultural},
	{"CropGrowthStage", Agricultural},

	{"WeatherChanged", Environmental},
	{"TimeAdvanced", Environmental},
	{"SeasonChanged", Environmental},
	{"DayStarted", Environmental},

	{"MorningStarted", Time},
	{"AfternoonStarted", Time},
	{"EveningStarted", Time},
	{"NightStarted", Time},
	{"NewDay", Time},
	{"NewSeason", Time},
	{"NewYear", Time},

	{"EntityCreated", System},
	{"EntityDestroyed", System},
	{"EntityMoved", System},
	{"EntityRested", System},
	{"GameSaved", System},
	{"GameLoaded", System},
}

func (s SubKind) String() string {
	if s < subKindCount {
		return subKinds[s].name
	}
	return "Unknown"
}

// Kind returns the category s belongs to.
func (s SubKind) Kind() Kind {
	if s < subKindCount {
		return subKinds[s].kind
	}
	return kindCount
}

// Valid reports whether s is a defined sub-kind.
func (s SubKind) Valid() bool { return s < subKindCount }

// ParseSubKind converts the saved name of a sub-kind.
func ParseSubKind(str string) (SubKind, error) {
	for i, sk := range subKinds {
		if sk.name == str {
			return SubKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: subtype %q", ErrUnknownKind, str)
}

func (s SubKind) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: subtype %d", ErrUnknownKind, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *SubKind) UnmarshalText(b []byte) error {
	v, err := ParseSubKind(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Event is one immutable entry in the audit trail. ID, Timestamp and the
// game stamp are filled in by the bus on publish.
type Event struct {
	ID          uint64       `json:"id"`
	Kind        Kind         `json:"type"`
	SubKind     SubKind      `json:"subtype"`
	Timestamp   int64        `json:"timestamp"`
	GameDay     int          `json:"game_day"`
	GameTime    string       `json:"game_time"`
	Source      ecs.EntityID `json:"source_entity_id"`
	Target      ecs.EntityID `json:"target_entity_id"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	Payload     Payload      `json:"-"`
}

// New creates an event of sub-kind sub. Kind is derived from sub.
func New(sub SubKind, source, target ecs.EntityID, description string) *Event {
	return &Event{
		Kind:        sub.Kind(),
		SubKind:     sub,
		Source:      source,
		Target:      target,
		Description: description,
	}
}

// At sets the location label and returns e.
func (e *Event) At(location string) *Event {
	e.Location = location
	return e
}

// Involves reports whether id is the source or target of e.
func (e *Event) Involves(id ecs.EntityID) bool {
	return e.Source == id || e.Target == id
}

// NewTrade records an offered, accepted or declined trade.
func NewTrade(source, target ecs.EntityID, item string, qty, price int, accepted bool, reason string) *Event {
	sub, verb := TradeDeclined, "declined"
	if accepted {
		sub, verb = TradeAccepted, "accepted"
	}
	e := New(sub, source, target, fmt.Sprintf("Trade %s: %d %s for %d gold. %s", verb, qty, item, price, reason))
	e.Payload = TradePayload{Item: item, Quantity: qty, Price: price, Accepted: accepted, Reason: reason}
	return e
}

// NewRelationshipChange records an affection change between two entities.
func NewRelationshipChange(source, target ecs.EntityID, before, after int, reason string) *Event {
	e := New(RelationshipChanged, source, target,
		fmt.Sprintf("Relationship changed: %d -> %d (%+d). %s", before, after, after-before, reason))
	e.Payload = RelationshipPayload{Before: before, After: after, Delta: after - before, Reason: reason}
	return e
}

// NewCropAction records something that happened to a crop.
func NewCropAction(sub SubKind, cropType string, x, y int, stage string, daysLeft int, source ecs.EntityID) *Event {
	action := "acted on"
	switch sub {
	case CropPlanted:
		action = "planted"
	case CropWatered:
		action = "watered"
	case CropHarvested:
		action = "harvested"
	case CropWithered:
		action = "withered"
	case CropGrowthStage:
		action = "grew to " + stage
	}
	e := New(sub, source, ecs.NoEntity, fmt.Sprintf("%s %s at (%d, %d)", action, cropType, x, y))
	e.Payload = CropPayload{CropType: cropType, PlotX: x, PlotY: y, Stage: stage, DaysToMaturity: daysLeft}
	return e
}

// NewWeatherChange records a weather transition.
func NewWeatherChange(from, to string) *Event {
	e := New(WeatherChanged, ecs.NoEntity, ecs.NoEntity, fmt.Sprintf("Weather changed from %s to %s", from, to))
	e.Payload = WeatherPayload{From: from, To: to}
	return e
}

// NewCurrency records gold gained (amount ≥ 0) or spent.
func NewCurrency(entity ecs.EntityID, amount int, reason string) *Event {
	sub, verb := CurrencyGained, "Gained"
	if amount < 0 {
		sub, verb = CurrencySpent, "Spent"
	}
	e := New(sub, entity, ecs.NoEntity, fmt.Sprintf("%s %d gold. %s", verb, abs(amount), reason))
	e.Payload = CurrencyPayload{Amount: amount, Reason: reason}
	return e
}

// NewItem records items gained or consumed by an entity.
func NewItem(sub SubKind, entity ecs.EntityID, item string, qty int, reason string) *Event {
	verb := "Gained"
	if sub == ItemConsumed {
		verb = "Consumed"
	}
	e := New(sub, entity, ecs.NoEntity, fmt.Sprintf("%s %d %s. %s", verb, qty, item, reason))
	e.Payload = ItemPayload{Item: item, Quantity: qty}
	return e
}

// NewMove records an entity changing location.
func NewMove(entity ecs.EntityID, from, to string) *Event {
	e := New(EntityMoved, entity, ecs.NoEntity, fmt.Sprintf("Moved from %s to %s", from, to))
	e.Location = to
	e.Payload = MovePayload{From: from, To: to}
	return e
}

// NewTimeAdvance records the clock entering a new period or calendar unit.
func NewTimeAdvance(sub SubKind, day int, timeOfDay string) *Event {
	e := New(sub, ecs.NoEntity, ecs.NoEntity, fmt.Sprintf("Time advanced to day %d, %s", day, timeOfDay))
	e.GameDay = day
	e.GameTime = timeOfDay
	return e
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
