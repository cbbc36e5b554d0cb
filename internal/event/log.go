package event

import "github.com/talgya/hearthvale/internal/ecs"

// DefaultLogCapacity is the ring size used when none is configured.
const DefaultLogCapacity = 10000

// Stats are lifetime counters. They survive ring overwrite.
type Stats struct {
	Total  int          `json:"total_events_logged"`
	ByKind map[Kind]int `json:"events_by_type"`
}

// Log is a fixed-capacity ring of events. Once full, each append drops the
// oldest record. Queries return copies; nothing returned aliases the ring.
type Log struct {
	buf    []Event
	head   int // next write position
	size   int
	total  int
	byKind [kindCount]int
}

// NewLog creates a ring of the given capacity (DefaultLogCapacity if ≤ 0).
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{buf: make([]Event, capacity)}
}

// Append stores a copy of e.
func (l *Log) Append(e Event) {
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
	l.total++
	if e.Kind.Valid() {
		l.byKind[e.Kind]++
	}
}

// Handler adapts the log to a bus subscription.
func (l *Log) Handler() Handler {
	return func(e Event) { l.Append(e) }
}

// at returns the i-th surviving record, oldest first.
func (l *Log) at(i int) *Event {
	start := (l.head - l.size + len(l.buf)) % len(l.buf)
	return &l.buf[(start+i)%len(l.buf)]
}

// Recent returns up to n records, newest first.
func (l *Log) Recent(n int) []Event {
	n = min(n, l.size)
	out := make([]Event, 0, max(n, 0))
	for i := l.size - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *l.at(i))
	}
	return out
}

// ByKind returns the newest n records of kind k in chronological order.
func (l *Log) ByKind(k Kind, n int) []Event {
	return l.match(n, func(e *Event) bool { return e.Kind == k })
}

// BySubKind returns the newest n records of sub-kind s in chronological order.
func (l *Log) BySubKind(s SubKind, n int) []Event {
	return l.match(n, func(e *Event) bool { return e.SubKind == s })
}

// ByEntity returns the newest n records naming id as source or target,
// in chronological order.
func (l *Log) ByEntity(id ecs.EntityID, n int) []Event {
	return l.match(n, func(e *Event) bool { return e.Involves(id) })
}

// ByDay returns the newest n records stamped with game day d, in chronological order.
func (l *Log) ByDay(d int, n int) []Event {
	return l.match(n, func(e *Event) bool { return e.GameDay == d })
}

// Get returns the record with the given ID if it is still in the ring.
func (l *Log) Get(id uint64) (Event, bool) {
	for i := 0; i < l.size; i++ {
		if e := l.at(i); e.ID == id {
			return *e, true
		}
	}
	return Event{}, false
}

func (l *Log) match(n int, pred func(*Event) bool) []Event {
	if n <= 0 {
		return []Event{}
	}
	var rev []Event
	for i := l.size - 1; i >= 0 && len(rev) < n; i-- {
		if e := l.at(i); pred(e) {
			rev = append(rev, *e)
		}
	}
	out := make([]Event, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}

// All returns every surviving record, oldest first.
func (l *Log) All() []Event {
	out := make([]Event, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, *l.at(i))
	}
	return out
}

// Len is the number of surviving records.
func (l *Log) Len() int { return l.size }

// Cap is the ring capacity.
func (l *Log) Cap() int { return len(l.buf) }

// Stats returns a copy of the lifetime counters.
func (l *Log) Stats() Stats {
	s := Stats{Total: l.total, ByKind: make(map[Kind]int, kindCount)}
	for k := Kind(0); k < kindCount; k++ {
		s.ByKind[k] = l.byKind[k]
	}
	return s
}

// Restore replaces the contents with records loaded from a save. Records
// beyond capacity keep only the newest. Counters are taken from st.
func (l *Log) Restore(events []Event, st Stats) {
	l.Clear()
	if len(events) > len(l.buf) {
		events = events[len(events)-len(l.buf):]
	}
	for _, e := range events {
		l.buf[l.head] = e
		l.head = (l.head + 1) % len(l.buf)
		l.size++
	}
	l.total = max(st.Total, l.size)
	for k, v := range st.ByKind {
		if k.Valid() {
			l.byKind[k] = v
		}
	}
}

// Clear drops every record and resets the counters.
func (l *Log) Clear() {
	clear(l.buf)
	l.head, l.size, l.total = 0, 0, 0
	l.byKind = [kindCount]int{}
}
