package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
)

func newVillage(t *testing.T) *engine.Simulation {
	t.Helper()
	s, err := engine.NewVillage(config.Default(), engine.WithNow(func() time.Time { return time.Unix(1700000000, 0) }))
	if err != nil {
		t.Fatalf("new village: %v", err)
	}
	return s
}

func TestSegment(t *testing.T) {
	tests := map[string]struct {
		day, length int
		exp         string
	}{
		"first season":   {day: 1, length: 28, exp: "s0000"},
		"boundary":       {day: 28, length: 28, exp: "s0001"},
		"default length": {day: 60, length: 0, exp: "s0002"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "segment", Segment(tt.day, tt.length), tt.exp)
		})
	}
}

func TestExportAndRead(t *testing.T) {
	s := newVillage(t)
	s.AdvanceDays(2)
	dir := t.TempDir()

	events := s.Events.All()
	path := filepath.Join(dir, "export", "events.jsonl.zst")
	if err := ExportEvents(path, events); err != nil {
		t.Fatalf("export events: %v", err)
	}
	got, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	testutil.AssertEqual(t, "event count", len(got), len(events))
	testutil.AssertEqual(t, "last id", got[len(got)-1].ID, events[len(events)-1].ID)
	testutil.AssertEqual(t, "description", got[0].Description, events[0].Description)

	records := s.Decisions.All()
	dpath := filepath.Join(dir, "decisions.jsonl.zst")
	if err := ExportDecisions(dpath, records); err != nil {
		t.Fatalf("export decisions: %v", err)
	}
	recs, err := ReadDecisions(dpath)
	if err != nil {
		t.Fatalf("read decisions: %v", err)
	}
	testutil.AssertEqual(t, "decision count", len(recs), len(records))
	testutil.AssertEqual(t, "chosen action", recs[3].ChosenAction, records[3].ChosenAction)
}

func TestEventLogger_StreamsFromBus(t *testing.T) {
	s := newVillage(t)
	dir := t.TempDir()
	l := NewEventLogger(dir, s.Options.SeasonLengthDays)
	if _, err := s.Bus.Subscribe(event.Any(), l.Handler()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	before := s.Events.Stats().Total
	s.AdvanceDays(1)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if l.Written() == 0 {
		t.Fatalf("nothing written")
	}

	got, err := ReadEvents(filepath.Join(dir, "events", "events-s0000.jsonl.zst"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	testutil.AssertEqual(t, "streamed", len(got), s.Events.Stats().Total-before)
}
