package persistence

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "village.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newVillage(t *testing.T) *engine.Simulation {
	t.Helper()
	s, err := engine.NewVillage(config.Default(),
		engine.WithNow(func() time.Time { return time.Unix(1700000000, 0) }),
		engine.WithRunID("run-a"))
	if err != nil {
		t.Fatalf("new village: %v", err)
	}
	return s
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveMeta("last_day", "3"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.SaveMeta("last_day", "4"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, err := db.GetMeta("last_day")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	testutil.AssertEqual(t, "value", v, "4")

	if _, err := db.GetMeta("missing"); err == nil {
		t.Errorf("expected error for missing key")
	}
}

func TestLatestSnapshot_Empty(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LatestSnapshot("")
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestArchive_SkipsDuplicates(t *testing.T) {
	db := openTestDB(t)
	s := newVillage(t)
	s.AdvanceDays(1)

	events := s.Events.All()
	n, err := db.ArchiveEvents(s.RunID, events)
	if err != nil {
		t.Fatalf("archive events: %v", err)
	}
	testutil.AssertEqual(t, "first pass", n, len(events))

	s.TickPeriod()
	n, err = db.ArchiveEvents(s.RunID, s.Events.All())
	if err != nil {
		t.Fatalf("archive events again: %v", err)
	}
	testutil.AssertEqual(t, "second pass", n, s.Events.Len()-len(events))

	recs := s.Decisions.All()
	n, err = db.ArchiveDecisions(s.RunID, recs)
	if err != nil {
		t.Fatalf("archive decisions: %v", err)
	}
	testutil.AssertEqual(t, "decisions", n, len(recs))

	recent, err := db.RecentEvents(s.RunID, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	testutil.AssertEqual(t, "recent count", len(recent), 2)
	testutil.AssertEqual(t, "newest first", recent[0].EventID, s.Events.Recent(1)[0].ID)

	john, err := db.DecisionsFor(s.RunID, 1, 100)
	if err != nil {
		t.Fatalf("decisions for: %v", err)
	}
	testutil.AssertEqual(t, "john decisions", len(john), len(s.QueryDecisions(engine.DecisionFilter{Entity: 1, Limit: 100})))
	testutil.AssertEqual(t, "decoded name", john[0].EntityName, "John")
}

func TestSaveLoadWorldState(t *testing.T) {
	db := openTestDB(t)
	s := newVillage(t)
	s.AdvanceDays(2)

	if err := db.SaveWorldState(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	day, err := db.GetMeta("last_day")
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	testutil.AssertEqual(t, "last day", day, "3")

	loaded, err := db.LoadWorldState(config.Default())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	testutil.AssertEqual(t, "run", loaded.RunID, "run-a")
	testutil.AssertEqual(t, "day", loaded.Clock.Day, 3)
	testutil.AssertEqual(t, "entities", loaded.Registry.Len(), s.Registry.Len())
	testutil.AssertEqual(t, "decisions", loaded.Decisions.Len(), s.Decisions.Len())

	snap, err := db.LatestSnapshot("run-a")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	testutil.AssertEqual(t, "snapshot day", snap.GameDay, 3)
}
