package event

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/ecs"
)

func TestBus_Publish(t *testing.T) {
	b := NewBus(WithClock(func() time.Time { return time.Unix(1700000000, 0) }))

	var order []string
	_, _ = b.Subscribe(Any(), func(e Event) { order = append(order, "any") })
	_, _ = b.Subscribe(Only(Social), func(e Event) { order = append(order, "social") })
	_, _ = b.Subscribe(Only(Economic), func(e Event) { order = append(order, "economic") })

	id, err := b.Publish(New(GiftGiven, 1, 2, "gift"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	testutil.AssertEqual(t, "first id", id, uint64(1))
	testutil.AssertEqual(t, "dispatch", len(order), 2)
	testutil.AssertEqual(t, "subscription order", order[0], "any")
	testutil.AssertEqual(t, "filtered", order[1], "social")

	e := NewWeatherChange("sunny", "rainy")
	id, _ = b.Publish(e)
	testutil.AssertEqual(t, "second id", id, uint64(2))
	testutil.AssertEqual(t, "timestamp", e.Timestamp, int64(1700000000))
}

func TestBus_SubscriberLimit(t *testing.T) {
	b := NewBus(WithMaxSubscribers(1))
	if _, err := b.Subscribe(Any(), func(Event) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_, err := b.Subscribe(Any(), func(Event) {})
	if !errors.Is(err, ErrSubscribersFull) {
		t.Errorf("expected ErrSubscribersFull, got %v", err)
	}
	if _, err := b.Subscribe(Any(), nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	b := NewBus()
	var tok Token
	calls := 0
	tok, _ = b.Subscribe(Any(), func(Event) {
		calls++
		b.Unsubscribe(tok)
	})
	after := 0
	_, _ = b.Subscribe(Any(), func(Event) { after++ })

	_, _ = b.Publish(New(NewDay, ecs.NoEntity, ecs.NoEntity, "a"))
	_, _ = b.Publish(New(NewDay, ecs.NoEntity, ecs.NoEntity, "b"))

	testutil.AssertEqual(t, "self-removed handler ran once", calls, 1)
	testutil.AssertEqual(t, "later handler still runs", after, 2)
	testutil.AssertEqual(t, "len", b.Len(), 1)
}

func TestBus_NestedPublishDepth(t *testing.T) {
	b := NewBus()
	var nestedErr error
	depth := 0
	_, _ = b.Subscribe(Any(), func(e Event) {
		depth++
		if _, err := b.Publish(New(TimeAdvanced, ecs.NoEntity, ecs.NoEntity, "again")); err != nil {
			nestedErr = err
		}
	})
	if _, err := b.Publish(New(TimeAdvanced, ecs.NoEntity, ecs.NoEntity, "start")); err != nil {
		t.Fatalf("outer publish: %v", err)
	}
	if !errors.Is(nestedErr, ErrPublishDepth) {
		t.Fatalf("expected ErrPublishDepth, got %v", nestedErr)
	}
	testutil.AssertEqual(t, "handler invocations", depth, MaxPublishDepth)
}

func TestBus_RejectsMismatchedKind(t *testing.T) {
	b := NewBus()
	e := New(GiftGiven, 1, 2, "gift")
	e.Kind = Economic
	_, err := b.Publish(e)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestEvent_JSON(t *testing.T) {
	tests := map[string]struct {
		event *Event
	}{
		"trade":    {event: NewTrade(1, 2, "Wheat", 3, 36, true, "fair price")},
		"crop":     {event: NewCropAction(CropPlanted, "Corn", 2, 3, "seed", 10, 4)},
		"currency": {event: NewCurrency(1, -12, "bought bread")},
		"bare":     {event: New(EntityCreated, 5, ecs.NoEntity, "spawned")},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.event.ID = 9
			tt.event.GameDay = 3
			tt.event.GameTime = "Morning"
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Event
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			testutil.AssertEqual(t, "subkind", got.SubKind, tt.event.SubKind)
			testutil.AssertEqual(t, "payload", PayloadType(got.Payload), PayloadType(tt.event.Payload))
			again, _ := json.Marshal(got)
			testutil.AssertEqual(t, "stable", string(again), string(data))
		})
	}
}

func TestEvent_Descriptions(t *testing.T) {
	testutil.AssertEqual(t, "currency", NewCurrency(1, -12, "bought bread").Description, "Spent 12 gold. bought bread")
	testutil.AssertEqual(t, "relationship",
		NewRelationshipChange(1, 2, 10, 28, "gift").Description, "Relationship changed: 10 -> 28 (+18). gift")
	testutil.AssertEqual(t, "crop", NewCropAction(CropWatered, "Wheat", 0, 1, "sprout", 5, 1).Description, "watered Wheat at (0, 1)")
	testutil.AssertEqual(t, "weather", NewWeatherChange("sunny", "rainy").Description, "Weather changed from sunny to rainy")
}

func TestEvent_UnmarshalRejectsUnknown(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"id":1,"type":"Magic","subtype":"NewDay"}`), &e)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	err = json.Unmarshal([]byte(`{"id":1,"type":"Time","subtype":"NewDay","extra":true}`), &e)
	if err != nil {
		t.Errorf("unknown keys should be ignored: %v", err)
	}
}
