package world

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/ecs"
)

func TestFarmingVillage(t *testing.T) {
	g := NewFarmingVillage()
	testutil.AssertEqual(t, "locations", g.Len(), 8)

	square := g.ByName("Village Square")
	if square == nil {
		t.Fatalf("village square missing")
	}
	testutil.AssertEqual(t, "square id", square.ID, LocationID(1))
	testutil.AssertEqual(t, "square capacity", square.Capacity, 50)
	testutil.AssertEqual(t, "square roads", len(square.Connections), 5)

	store := g.ByName("General Store")
	testutil.AssertEqual(t, "store can shop", store.CanShop, true)
	testutil.AssertEqual(t, "store indoor", store.Indoor, true)
	testutil.AssertEqual(t, "store protected", store.Protected, true)

	house := g.ByName("House 2")
	testutil.AssertEqual(t, "house x", house.X, 120.0)
	testutil.AssertEqual(t, "house capacity", house.Capacity, 5)
	testutil.AssertEqual(t, "house can rest", house.CanRest, true)

	testutil.AssertEqual(t, "fields", len(g.ByKind(Field)), 2)
	testutil.AssertEqual(t, "barn can work", g.ByName("Barn").CanWork, true)
}

func TestGraph_ConnectSymmetric(t *testing.T) {
	g := NewGraph("t", 100, 100, 0)
	a, _ := g.AddLocation("A", Outdoor, 0, 0)
	b, _ := g.AddLocation("B", Outdoor, 10, 0)

	if err := g.Connect(a.ID, b.ID, 7, "lane"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	testutil.AssertEqual(t, "a->b", a.Connection(b.ID).Distance, 7.0)
	testutil.AssertEqual(t, "b->a", b.Connection(a.ID).Distance, 7.0)
	testutil.AssertEqual(t, "unblocked", b.Connection(a.ID).Blocked, false)

	tests := map[string]struct {
		a, b   LocationID
		d      float64
		expErr error
	}{
		"duplicate":   {a: a.ID, b: b.ID, d: 3, expErr: ErrAlreadyConnected},
		"self":        {a: a.ID, b: a.ID, d: 3, expErr: ErrInvalidArgument},
		"unknown end": {a: a.ID, b: 99, d: 3, expErr: ErrNotFound},
		"negative":    {a: b.ID, b: a.ID, d: -1, expErr: ErrInvalidArgument},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := g.Connect(tt.a, tt.b, tt.d, "")
			if !errors.Is(err, tt.expErr) {
				t.Errorf("expected %v, got %v", tt.expErr, err)
			}
		})
	}
}

func TestGraph_ConnectionLimit(t *testing.T) {
	g := NewGraph("t", 100, 100, 0)
	hub, _ := g.AddLocation("Hub", Outdoor, 0, 0)
	for i := 0; i < MaxConnections; i++ {
		l, _ := g.AddLocation(string(rune('a'+i)), Outdoor, 1, 1)
		if err := g.Connect(hub.ID, l.ID, 1, ""); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
	}
	extra, _ := g.AddLocation("extra", Outdoor, 2, 2)
	err := g.Connect(extra.ID, hub.ID, 1, "")
	if !errors.Is(err, ErrConnectionsFull) {
		t.Fatalf("expected ErrConnectionsFull, got %v", err)
	}
	testutil.AssertEqual(t, "no partial edge", len(extra.Connections), 0)
}

func TestGraph_FindPath(t *testing.T) {
	g := NewFarmingVillage()
	east := g.ByName("East Field").ID
	store := g.ByName("General Store").ID
	barn := g.ByName("Barn").ID
	west := g.ByName("West Field").ID
	square := g.ByName("Village Square").ID

	path := g.FindPath(east, store)
	testutil.AssertEqual(t, "hops", len(path), 5)
	want := []LocationID{east, barn, west, square, store}
	for i := range want {
		testutil.AssertEqual(t, "step", path[i], want[i])
	}
	testutil.AssertEqual(t, "distance", g.PathDistance(path), 60.0)

	if err := g.SetBlocked(west, square, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if g.FindPath(east, store) != nil {
		t.Errorf("path should be cut by blocked road")
	}
	if g.FindPath(square, east) != nil {
		t.Errorf("blocked road must be unusable in both directions")
	}
	_ = g.SetBlocked(square, west, false)
	testutil.AssertEqual(t, "reopened", len(g.FindPath(square, east)), 4)

	testutil.AssertEqual(t, "self path", len(g.FindPath(barn, barn)), 1)
	if g.FindPath(barn, 999) != nil {
		t.Errorf("unknown destination should give no path")
	}
}

func TestGraph_FindPathFewestHops(t *testing.T) {
	g := NewGraph("t", 100, 100, 0)
	a, _ := g.AddLocation("A", Road, 0, 0)
	b, _ := g.AddLocation("B", Road, 0, 0)
	c, _ := g.AddLocation("C", Road, 0, 0)
	_ = g.Connect(a.ID, c.ID, 100, "long direct")
	_ = g.Connect(a.ID, b.ID, 1, "")
	_ = g.Connect(b.ID, c.ID, 1, "")

	path := g.FindPath(a.ID, c.ID)
	testutil.AssertEqual(t, "hops beat distance", len(path), 2)
	testutil.AssertEqual(t, "distance", g.PathDistance(path), 100.0)
}

func TestGraph_Move(t *testing.T) {
	g := NewFarmingVillage()
	house := g.ByName("House 1")
	square := g.ByName("Village Square")

	for i := 1; i <= 5; i++ {
		if err := g.Place(ecs.EntityID(i), house.ID); err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
	}
	if err := g.Place(6, square.ID); err != nil {
		t.Fatalf("place: %v", err)
	}

	err := g.Move(6, square.ID, house.ID)
	if !errors.Is(err, ErrLocationFull) {
		t.Fatalf("expected ErrLocationFull, got %v", err)
	}
	testutil.AssertEqual(t, "stays at source", square.Has(6), true)
	loc, err := g.LocationOf(6)
	if err != nil {
		t.Fatalf("location of: %v", err)
	}
	testutil.AssertEqual(t, "tracked", loc.ID, square.ID)

	if err := g.Move(1, house.ID, square.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	testutil.AssertEqual(t, "left house", house.Has(1), false)
	testutil.AssertEqual(t, "arrived", len(g.EntitiesAt(square.ID)), 2)

	g.Evict(1)
	if _, err := g.LocationOf(1); !errors.Is(err, ErrEntityNotLocated) {
		t.Errorf("expected ErrEntityNotLocated, got %v", err)
	}
}

func TestGraph_Remove(t *testing.T) {
	g := NewFarmingVillage()
	store := g.ByName("General Store")
	square := g.ByName("Village Square")
	_ = g.Place(9, store.ID)

	testutil.AssertEqual(t, "removed", g.Remove(store.ID), true)
	if square.Connection(store.ID) != nil {
		t.Errorf("roads to a removed location must go")
	}
	if _, err := g.LocationOf(9); err == nil {
		t.Errorf("occupants of a removed location are no longer placed")
	}
}

func TestGraph_Lookups(t *testing.T) {
	g := NewFarmingVillage()
	testutil.AssertEqual(t, "at", g.At(110, 110).Name, "Village Square")
	if g.At(0, 0) != nil {
		t.Errorf("nothing at the origin")
	}
	testutil.AssertEqual(t, "nearest field", g.Nearest(85, 150, Field).Name, "East Field")
	if _, err := g.AddLocation("Barn", Workshop, 0, 0); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	a, err := Generate(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := Generate(cfg)
	testutil.AssertEqual(t, "same seed same size", a.Len(), b.Len())
	if a.Len() <= 8 {
		t.Fatalf("expected outskirts beyond the village core, got %d locations", a.Len())
	}
	for _, l := range a.Locations()[8:] {
		testutil.AssertEqual(t, "wild name", l.Name, b.ByName(l.Name).Name)
		if len(l.Connections) == 0 {
			t.Errorf("%s should have a trail", l.Name)
		}
		if a.FindPath(l.ID, 1) == nil {
			t.Errorf("%s should be reachable from the square", l.Name)
		}
	}
}

func TestSnapshot(t *testing.T) {
	g := NewFarmingVillage()
	_ = g.Place(3, g.ByName("Barn").ID)
	_ = g.SetBlocked(2, 4, true)

	r, err := FromSnapshot(g.Snapshot(), 0)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	testutil.AssertEqual(t, "len", r.Len(), g.Len())
	loc, err := r.LocationOf(3)
	if err != nil {
		t.Fatalf("location of: %v", err)
	}
	testutil.AssertEqual(t, "occupant", loc.Name, "Barn")
	testutil.AssertEqual(t, "blocked kept", r.Connected(2, 4), false)
	testutil.AssertEqual(t, "next id", r.NextID(), g.NextID())

	s := g.Snapshot()
	s.Locations[0].Connections = s.Locations[0].Connections[:1]
	if _, err := FromSnapshot(s, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected asymmetric snapshot to be rejected, got %v", err)
	}
}
