package ecs

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/clock"
)

func TestInventory(t *testing.T) {
	inv := NewInventory(2)

	if err := inv.Add("Wheat", 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := inv.Add("Wheat", 2); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := inv.Add("Bread", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	testutil.AssertEqual(t, "stacks", len(inv.Items), 2)
	testutil.AssertEqual(t, "wheat", inv.Count("Wheat"), 5)

	if err := inv.Add("Stone", 1); !errors.Is(err, ErrInventoryFull) {
		t.Errorf("expected ErrInventoryFull, got %v", err)
	}
	if err := inv.Add("Stone", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	if err := inv.Remove("Wheat", 6); !errors.Is(err, ErrInsufficientItems) {
		t.Errorf("expected ErrInsufficientItems, got %v", err)
	}
	testutil.AssertEqual(t, "unchanged", inv.Count("Wheat"), 5)

	if err := inv.Remove("Bread", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	testutil.AssertEqual(t, "empty stack dropped", len(inv.Items), 1)
	testutil.AssertEqual(t, "full", inv.Full(), false)
}

func TestCurrency(t *testing.T) {
	c := &Currency{Amount: 10}
	if err := c.Spend(11); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	testutil.AssertEqual(t, "unchanged", c.Amount, 10)
	if err := c.Spend(4); err != nil {
		t.Fatalf("spend: %v", err)
	}
	_ = c.Add(20)
	testutil.AssertEqual(t, "amount", c.Amount, 26)
}

func TestNeeds(t *testing.T) {
	n := NewNeeds()
	n.Decay(2)
	testutil.AssertEqual(t, "hunger", n.Hunger, 40.0)
	testutil.AssertEqual(t, "energy", n.Energy, 94.0)
	testutil.AssertEqual(t, "social", n.Social, 46.0)

	n.Decay(100)
	testutil.AssertEqual(t, "floor", n.Hunger, 0.0)
	n.Eat(500)
	testutil.AssertEqual(t, "ceiling", n.Hunger, 100.0)
	testutil.AssertEqual(t, "most urgent", n.MostUrgent(), NeedEnergy)
}

func TestRelationship(t *testing.T) {
	r := NewRelationship()
	_ = r.Modify(2, 150)
	testutil.AssertEqual(t, "clamped", r.Get(2), 100)
	_ = r.Modify(3, -60)
	testutil.AssertEqual(t, "enemy", r.Level(3), "enemy")
	testutil.AssertEqual(t, "unknown", r.Level(4), "neutral")

	for i := 0; i < MaxRelationshipEntries; i++ {
		_ = r.Set(EntityID(100+i), 1)
	}
	if err := r.Set(9999, 1); !errors.Is(err, ErrRelationshipsFull) {
		t.Errorf("expected ErrRelationshipsFull, got %v", err)
	}
	if err := r.Set(2, 5); err != nil {
		t.Errorf("updating an existing entry should succeed: %v", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory(3)
	for i := 1; i <= 5; i++ {
		m.Add("event", i, clock.Morning)
	}
	testutil.AssertEqual(t, "len", len(m.Entries), 3)
	testutil.AssertEqual(t, "oldest", m.Entries[0].Day, 3)
	recent := m.Recent(2)
	testutil.AssertEqual(t, "newest first", recent[0].Day, 5)
}

func TestGoal(t *testing.T) {
	g := &Goal{Current: "harvest"}
	_ = g.Add("sell wheat")
	_ = g.Add("sell wheat")
	testutil.AssertEqual(t, "unique", len(g.Backlog), 1)
	testutil.AssertEqual(t, "complete current", g.Complete("harvest"), true)
	testutil.AssertEqual(t, "cleared", g.Current, "")
	testutil.AssertEqual(t, "missing", g.Complete("nap"), false)
}

func TestComponentCodec(t *testing.T) {
	tests := map[string]struct {
		comp Component
	}{
		"position":     {comp: &Position{Location: "Barn", X: 1.5, Y: 2}},
		"inventory":    {comp: &Inventory{Items: []Stack{{Item: "Wheat", Quantity: 2}}, Capacity: 5}},
		"relationship": {comp: &Relationship{Values: map[EntityID]int{2: 40, 3: -10}}},
		"schedule":     {comp: &Schedule{Entries: []ScheduleEntry{{Period: clock.Evening, Activity: "socialize"}}}},
		"goal":         {comp: &Goal{Current: "farm", Backlog: []string{"eat"}}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalComponent(tt.comp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := UnmarshalComponent(data)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			again, err := MarshalComponent(got)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			testutil.AssertEqual(t, "stable", string(again), string(data))
		})
	}
}

func TestComponentCodec_Rejects(t *testing.T) {
	_, err := UnmarshalComponent([]byte(`{"kind":"mana","amount":3}`))
	if !errors.Is(err, ErrUnknownEnum) {
		t.Errorf("expected ErrUnknownEnum, got %v", err)
	}
	_, err = UnmarshalComponent([]byte(`{"kind":"schedule","entries":[{"period":"dusk","activity":"x"}]}`))
	testutil.AssertErrorContains(t, err, "decode schedule")

	c, err := UnmarshalComponent([]byte(`{"kind":"currency","amount":7,"future_field":true}`))
	if err != nil {
		t.Fatalf("unknown keys should be tolerated: %v", err)
	}
	testutil.AssertEqual(t, "amount", c.(*Currency).Amount, 7)
}
