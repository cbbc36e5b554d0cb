package event

import (
	"fmt"
	"time"
)

// DefaultMaxSubscribers bounds the subscriber table.
const DefaultMaxSubscribers = 100

// MaxPublishDepth caps how deeply handlers may publish from inside a dispatch.
const MaxPublishDepth = 8

// Handler receives a copy of each matching event.
type Handler func(e Event)

// Filter selects which events a subscriber sees.
type Filter struct {
	all  bool
	kind Kind
}

// Any matches every event.
func Any() Filter { return Filter{all: true} }

// Only matches events of kind k.
func Only(k Kind) Filter { return Filter{kind: k} }

// Matches reports whether e passes the filter.
func (f Filter) Matches(e *Event) bool { return f.all || f.kind == e.Kind }

func (f Filter) String() string {
	if f.all {
		return "any"
	}
	return f.kind.String()
}

// Token identifies a subscription.
type Token uint64

type subscriber struct {
	token   Token
	filter  Filter
	handler Handler
	active  bool
}

// Bus dispatches events synchronously to subscribers in subscription order.
// It is not safe for concurrent use.
type Bus struct {
	subs      []subscriber
	max       int
	nextID    uint64
	nextToken Token
	depth     int
	pending   bool

	now   func() time.Time
	stamp func(*Event)
}

// BusOpt configures a Bus.
type BusOpt func(*Bus)

// WithClock overrides the wall clock used for event timestamps.
func WithClock(now func() time.Time) BusOpt {
	return func(b *Bus) { b.now = now }
}

// WithStamp installs a hook that fills in game day and time on publish.
func WithStamp(fn func(*Event)) BusOpt {
	return func(b *Bus) { b.stamp = fn }
}

// WithMaxSubscribers sets the subscriber table size.
func WithMaxSubscribers(n int) BusOpt {
	return func(b *Bus) {
		if n > 0 {
			b.max = n
		}
	}
}

// NewBus creates a bus. Event IDs start at 1.
func NewBus(opts ...BusOpt) *Bus {
	b := &Bus{
		max:       DefaultMaxSubscribers,
		nextID:    1,
		nextToken: 1,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers handler for events passing filter.
func (b *Bus) Subscribe(filter Filter, handler Handler) (Token, error) {
	if handler == nil {
		return 0, ErrNilHandler
	}
	if b.activeCount() >= b.max {
		return 0, fmt.Errorf("subscribe %s: %w", filter, ErrSubscribersFull)
	}
	t := b.nextToken
	b.nextToken++
	b.subs = append(b.subs, subscriber{token: t, filter: filter, handler: handler, active: true})
	return t, nil
}

// Unsubscribe removes a subscription. During a dispatch the handler stops
// receiving events at once, and its slot is released when dispatch returns.
func (b *Bus) Unsubscribe(t Token) bool {
	for i := range b.subs {
		if b.subs[i].token == t && b.subs[i].active {
			b.subs[i].active = false
			if b.depth > 0 {
				b.pending = true
			} else {
				b.compact()
			}
			return true
		}
	}
	return false
}

// Publish assigns e the next ID and delivers it to matching subscribers.
// Handlers may publish in turn, up to MaxPublishDepth levels deep.
func (b *Bus) Publish(e *Event) (uint64, error) {
	if e == nil {
		return 0, fmt.Errorf("publish: nil event")
	}
	if !e.SubKind.Valid() || e.SubKind.Kind() != e.Kind {
		return 0, fmt.Errorf("publish %s/%s: %w", e.Kind, e.SubKind, ErrUnknownKind)
	}
	if b.depth >= MaxPublishDepth {
		return 0, fmt.Errorf("publish %s: %w (limit %d)", e.SubKind, ErrPublishDepth, MaxPublishDepth)
	}

	e.ID = b.nextID
	b.nextID++
	if e.Timestamp == 0 {
		e.Timestamp = b.now().Unix()
	}
	if b.stamp != nil {
		b.stamp(e)
	}

	b.depth++
	n := len(b.subs)
	for i := 0; i < n; i++ {
		s := b.subs[i]
		if s.active && s.filter.Matches(e) {
			s.handler(*e)
		}
	}
	b.depth--

	if b.depth == 0 && b.pending {
		b.compact()
		b.pending = false
	}
	return e.ID, nil
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	if b.depth > 0 {
		for i := range b.subs {
			b.subs[i].active = false
		}
		b.pending = true
		return
	}
	b.subs = nil
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int { return b.activeCount() }

// NextID is the ID the next published event will receive.
func (b *Bus) NextID() uint64 { return b.nextID }

// SetNextID restores the ID counter after a load. It never moves backwards.
func (b *Bus) SetNextID(id uint64) {
	if id > b.nextID {
		b.nextID = id
	}
}

func (b *Bus) activeCount() int {
	n := 0
	for _, s := range b.subs {
		if s.active {
			n++
		}
	}
	return n
}

func (b *Bus) compact() {
	out := b.subs[:0]
	for _, s := range b.subs {
		if s.active {
			out = append(out, s)
		}
	}
	b.subs = out
}
