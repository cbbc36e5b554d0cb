package ecs

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestRegistry_Create(t *testing.T) {
	r := NewRegistry(2)

	a, err := r.Create("Alice", ArchetypeVillager)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := r.Create("Bob", ArchetypeVillager)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	testutil.AssertEqual(t, "first id", a, EntityID(1))
	testutil.AssertEqual(t, "second id", b, EntityID(2))

	_, err = r.Create("Carol", ArchetypeVillager)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}

	r.Destroy(a)
	c, err := r.Create("Carol", ArchetypeVillager)
	if err != nil {
		t.Fatalf("create after destroy: %v", err)
	}
	testutil.AssertEqual(t, "ids are not reused", c, EntityID(3))
	testutil.AssertEqual(t, "live", r.Len(), 2)
}

func TestRegistry_CreateEmptyName(t *testing.T) {
	r := NewRegistry(0)
	_, err := r.Create("", ArchetypeVillager)
	testutil.AssertErrorContains(t, err, "empty entity name")
}

func TestRegistry_Attach(t *testing.T) {
	r := NewRegistry(10)
	id, _ := r.Create("Alice", ArchetypeVillager)

	if err := r.Attach(id, &Health{Current: 10, Max: 100}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	err := r.Attach(id, &Health{Current: 50, Max: 50})
	if !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("expected ErrDuplicateComponent, got %v", err)
	}
	testutil.AssertEqual(t, "original kept", r.Health(id).Current, 10)

	if err := r.Detach(id, KindHealth); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if r.Health(id) != nil {
		t.Errorf("expected health to be detached")
	}
	if err := r.Detach(id, KindHealth); !errors.Is(err, ErrNoComponent) {
		t.Errorf("expected ErrNoComponent, got %v", err)
	}
	if err := r.Attach(99, &Currency{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_Query(t *testing.T) {
	r := NewRegistry(10)
	ids := make([]EntityID, 0, 4)
	for _, n := range []string{"a", "b", "c", "d"} {
		id, _ := r.Create(n, ArchetypeVillager)
		ids = append(ids, id)
	}
	for _, id := range ids {
		_ = r.Attach(id, &Position{})
	}
	_ = r.Attach(ids[1], NewNeeds())
	_ = r.Attach(ids[3], NewNeeds())
	_ = r.Attach(ids[2], NewNeeds())
	r.Destroy(ids[3])

	got := r.Query(MaskOf(KindPosition, KindNeeds))
	testutil.AssertEqual(t, "count", len(got), 2)
	testutil.AssertEqual(t, "first", got[0].ID, ids[1])
	testutil.AssertEqual(t, "second", got[1].ID, ids[2])

	testutil.AssertEqual(t, "active", len(r.Active()), 3)
	testutil.AssertEqual(t, "all", len(r.All()), 4)
	if r.Component(ids[3], KindPosition) != nil {
		t.Errorf("destroyed entity should expose no components")
	}
}

func TestRegistry_ByArchetype(t *testing.T) {
	r := NewRegistry(10)
	p, err := NewPlayer(r, "You")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	v, err := NewVillager(r, VillagerSpec{Name: "John", Occupation: "Farmer", Location: "West Field"})
	if err != nil {
		t.Fatalf("villager: %v", err)
	}

	players := r.ByArchetype(ArchetypePlayer)
	testutil.AssertEqual(t, "players", len(players), 1)
	testutil.AssertEqual(t, "player id", players[0].ID, p)
	testutil.AssertEqual(t, "player home", r.Position(p).Location, PlayerHome)
	testutil.AssertEqual(t, "player purse", r.Currency(p).Amount, 100)

	testutil.AssertEqual(t, "villager purse", r.Currency(v).Amount, 50)
	testutil.AssertEqual(t, "villager slots", r.Inventory(v).Capacity, 15)
	act, ok := r.Schedule(v).ActivityAt(3)
	testutil.AssertEqual(t, "night scheduled", ok, true)
	testutil.AssertEqual(t, "night activity", act, "rest")
}

func TestRegistry_Restore(t *testing.T) {
	r := NewRegistry(10)
	if err := r.Restore(7, "Old", ArchetypeVillager, true, &Currency{Amount: 3}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	testutil.AssertEqual(t, "next id", r.NextID(), EntityID(8))
	testutil.AssertEqual(t, "currency", r.Currency(7).Amount, 3)

	err := r.Restore(8, "Dup", ArchetypeVillager, true, &Currency{}, &Currency{})
	if !errors.Is(err, ErrDuplicateComponent) {
		t.Errorf("expected ErrDuplicateComponent, got %v", err)
	}
}
