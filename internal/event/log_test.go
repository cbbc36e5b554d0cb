package event

import (
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/ecs"
)

func fill(l *Log, n int) {
	for i := 1; i <= n; i++ {
		sub := NewDay
		if i%2 == 0 {
			sub = GiftGiven
		}
		e := New(sub, ecs.EntityID(i%3), ecs.NoEntity, "x")
		e.ID = uint64(i)
		e.GameDay = i/10 + 1
		l.Append(*e)
	}
}

func TestLog_Overflow(t *testing.T) {
	l := NewLog(50)
	fill(l, 120)

	testutil.AssertEqual(t, "len", l.Len(), 50)
	testutil.AssertEqual(t, "total", l.Stats().Total, 120)
	testutil.AssertEqual(t, "social counter", l.Stats().ByKind[Social], 60)

	all := l.All()
	testutil.AssertEqual(t, "oldest surviving", all[0].ID, uint64(71))
	testutil.AssertEqual(t, "newest", all[49].ID, uint64(120))
	if _, ok := l.Get(70); ok {
		t.Errorf("record 70 should have been dropped")
	}
}

func TestLog_Queries(t *testing.T) {
	l := NewLog(100)
	fill(l, 30)

	recent := l.Recent(3)
	testutil.AssertEqual(t, "recent count", len(recent), 3)
	testutil.AssertEqual(t, "newest first", recent[0].ID, uint64(30))

	social := l.ByKind(Social, 4)
	testutil.AssertEqual(t, "by kind count", len(social), 4)
	testutil.AssertEqual(t, "chronological", social[0].ID, uint64(24))
	testutil.AssertEqual(t, "chronological last", social[3].ID, uint64(30))

	ent := l.ByEntity(1, 100)
	for _, e := range ent {
		if e.Source != 1 && e.Target != 1 {
			t.Fatalf("event %d does not involve entity 1", e.ID)
		}
	}
	testutil.AssertEqual(t, "by entity count", len(ent), 10)

	day := l.ByDay(2, 100)
	testutil.AssertEqual(t, "by day count", len(day), 10)
	testutil.AssertEqual(t, "by day first", day[0].ID, uint64(10))

	testutil.AssertEqual(t, "by subkind", len(l.BySubKind(NewDay, 100)), 15)
	testutil.AssertEqual(t, "zero n", len(l.ByKind(Social, 0)), 0)
}

func TestLog_CopiesDoNotAlias(t *testing.T) {
	l := NewLog(10)
	fill(l, 3)
	got := l.Recent(1)
	got[0].Description = "changed"
	again := l.Recent(1)
	testutil.AssertEqual(t, "ring untouched", again[0].Description, "x")
}

func TestLog_Restore(t *testing.T) {
	src := NewLog(100)
	fill(src, 20)

	dst := NewLog(5)
	dst.Restore(src.All(), src.Stats())
	testutil.AssertEqual(t, "len", dst.Len(), 5)
	testutil.AssertEqual(t, "total", dst.Stats().Total, 20)
	testutil.AssertEqual(t, "newest kept", dst.Recent(1)[0].ID, uint64(20))

	dst.Clear()
	testutil.AssertEqual(t, "cleared", dst.Len(), 0)
}
