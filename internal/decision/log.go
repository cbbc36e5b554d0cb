package decision

import (
	"slices"
	"time"

	"github.com/talgya/hearthvale/internal/ecs"
)

// DefaultLogCapacity is the ring size used when none is configured.
const DefaultLogCapacity = 1000

// Stats are lifetime counters. They survive ring overwrite.
type Stats struct {
	Total      int            `json:"total_decisions"`
	Successful int            `json:"successful_decisions"`
	Failed     int            `json:"failed_decisions"`
	ByAction   map[Action]int `json:"decisions_by_action"`
}

// Log is a fixed-capacity ring of decision records. It assigns record IDs
// from 1. Queries return deep copies.
type Log struct {
	buf    []Record
	head   int
	size   int
	nextID uint64

	total, succeeded, failed int
	byAction                 [actionCount]int

	now func() time.Time
}

// LogOpt configures a Log.
type LogOpt func(*Log)

// WithClock overrides the wall clock used for record timestamps.
func WithClock(now func() time.Time) LogOpt {
	return func(l *Log) { l.now = now }
}

// NewLog creates a ring of the given capacity (DefaultLogCapacity if ≤ 0).
func NewLog(capacity int, opts ...LogOpt) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	l := &Log{buf: make([]Record, capacity), nextID: 1, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append assigns r the next ID, stamps it and stores a copy. The oldest
// record is dropped once the ring is full.
func (l *Log) Append(r *Record) uint64 {
	r.ID = l.nextID
	l.nextID++
	if r.Timestamp == 0 {
		r.Timestamp = l.now().Unix()
	}
	l.buf[l.head] = r.Clone()
	l.head = (l.head + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}

	l.total++
	if r.ChosenAction.Valid() {
		l.byAction[r.ChosenAction]++
	}
	if r.Executed {
		if r.Succeeded {
			l.succeeded++
		} else {
			l.failed++
		}
	}
	return r.ID
}

func (l *Log) at(i int) *Record {
	start := (l.head - l.size + len(l.buf)) % len(l.buf)
	return &l.buf[(start+i)%len(l.buf)]
}

// Recent returns up to n records, newest first.
func (l *Log) Recent(n int) []Record {
	n = min(n, l.size)
	out := make([]Record, 0, max(n, 0))
	for i := l.size - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.at(i).Clone())
	}
	return out
}

// ByEntity returns the newest n of id's records, oldest first.
func (l *Log) ByEntity(id ecs.EntityID, n int) []Record {
	return l.match(n, func(r *Record) bool { return r.EntityID == id })
}

// ByDay returns the newest n records made on game day d, oldest first.
func (l *Log) ByDay(d, n int) []Record {
	return l.match(n, func(r *Record) bool { return r.GameDay == d })
}

// ByAction returns the newest n records that chose a, oldest first.
func (l *Log) ByAction(a Action, n int) []Record {
	return l.match(n, func(r *Record) bool { return r.ChosenAction == a })
}

func (l *Log) match(n int, pred func(*Record) bool) []Record {
	if n <= 0 {
		return []Record{}
	}
	var out []Record
	for i := l.size - 1; i >= 0 && len(out) < n; i-- {
		if r := l.at(i); pred(r) {
			out = append(out, r.Clone())
		}
	}
	slices.Reverse(out)
	return out
}

// Get returns the record with the given ID if it is still in the ring.
func (l *Log) Get(id uint64) (Record, bool) {
	for i := 0; i < l.size; i++ {
		if r := l.at(i); r.ID == id {
			return r.Clone(), true
		}
	}
	return Record{}, false
}

// All returns every surviving record, oldest first.
func (l *Log) All() []Record {
	out := make([]Record, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.at(i).Clone())
	}
	return out
}

// Len is the number of surviving records.
func (l *Log) Len() int { return l.size }

// Cap is the ring capacity.
func (l *Log) Cap() int { return len(l.buf) }

// NextID is the ID the next Append will assign.
func (l *Log) NextID() uint64 { return l.nextID }

// Stats returns a copy of the lifetime counters.
func (l *Log) Stats() Stats {
	s := Stats{
		Total:      l.total,
		Successful: l.succeeded,
		Failed:     l.failed,
		ByAction:   make(map[Action]int, actionCount),
	}
	for a := Action(0); a < actionCount; a++ {
		s.ByAction[a] = l.byAction[a]
	}
	return s
}

// Restore replaces the contents with records loaded from a save. IDs are
// kept as saved; the next ID continues after the highest one seen.
func (l *Log) Restore(records []Record, st Stats) {
	l.Clear()
	if len(records) > len(l.buf) {
		records = records[len(records)-len(l.buf):]
	}
	for _, r := range records {
		l.buf[l.head] = r.Clone()
		l.head = (l.head + 1) % len(l.buf)
		l.size++
		if r.ID >= l.nextID {
			l.nextID = r.ID + 1
		}
	}
	l.total = max(st.Total, l.size)
	l.succeeded, l.failed = st.Successful, st.Failed
	for a, v := range st.ByAction {
		if a.Valid() {
			l.byAction[a] = v
		}
	}
}

// Clear drops every record and resets the counters and IDs.
func (l *Log) Clear() {
	clear(l.buf)
	l.head, l.size = 0, 0
	l.nextID = 1
	l.total, l.succeeded, l.failed = 0, 0, 0
	l.byAction = [actionCount]int{}
}
