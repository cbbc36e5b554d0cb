package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/talgya/hearthvale/internal/event"
)

var ErrNotStarted = errors.New("nats server not started")

// SubjectPrefix is prepended to the lower-cased event kind.
const SubjectPrefix = "hearthvale.events"

// Subject returns the subject events of kind k are published on.
func Subject(k event.Kind) string {
	return SubjectPrefix + "." + strings.ToLower(k.String())
}

// AllSubjects matches every relayed event.
const AllSubjects = SubjectPrefix + ".>"

type publisher interface {
	Publish(subject string, data []byte) error
}

// Relay forwards bus events to a publisher as JSON.
type Relay struct {
	pub     publisher
	sent    atomic.Int64
	dropped atomic.Int64
}

func NewRelay(pub publisher) *Relay {
	return &Relay{pub: pub}
}

// Handler returns a bus handler that relays every event it receives.
// Events published before the server is up are dropped.
func (r *Relay) Handler() event.Handler {
	return func(e event.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			slog.Warn("encoding event for feed", "event", e.ID, "error", err)
			r.dropped.Add(1)
			return
		}
		if err := r.pub.Publish(Subject(e.Kind), data); err != nil {
			if !errors.Is(err, ErrNotStarted) {
				slog.Warn("publishing event to feed", "event", e.ID, "error", err)
			}
			r.dropped.Add(1)
			return
		}
		r.sent.Add(1)
	}
}

// Attach subscribes the relay to every event on bus.
func (r *Relay) Attach(bus *event.Bus) (event.Token, error) {
	return bus.Subscribe(event.Any(), r.Handler())
}

func (r *Relay) Sent() int64    { return r.sent.Load() }
func (r *Relay) Dropped() int64 { return r.dropped.Load() }
