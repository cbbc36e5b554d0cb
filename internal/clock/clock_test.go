package clock

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestAdvancePeriod(t *testing.T) {
	c := New(DefaultSeasonLength)
	for _, want := range []Period{Afternoon, Evening, Night} {
		r := c.AdvancePeriod()
		testutil.AssertEqual(t, "period", c.Period, want)
		testutil.AssertEqual(t, "no rollover", r.NewDay, false)
	}
	r := c.AdvancePeriod()
	testutil.AssertEqual(t, "wrapped", c.Period, Morning)
	testutil.AssertEqual(t, "new day", r.NewDay, true)
	testutil.AssertEqual(t, "day", c.Day, 2)
}

func TestFourPeriodsEqualOneDay(t *testing.T) {
	a := New(10)
	b := New(10)
	for i := 0; i < 37; i++ {
		for p := 0; p < 4; p++ {
			a.AdvancePeriod()
		}
		b.AdvanceDay()
	}
	testutil.AssertEqual(t, "clocks agree", a.Snapshot(), b.Snapshot())
}

func TestSeasonAndYearRollover(t *testing.T) {
	c := New(10)
	var seasons, years int
	for i := 0; i < 40; i++ {
		r := c.AdvanceDay()
		if r.NewSeason {
			seasons++
		}
		if r.NewYear {
			years++
		}
	}
	testutil.AssertEqual(t, "day", c.Day, 41)
	testutil.AssertEqual(t, "seasons", seasons, 4)
	testutil.AssertEqual(t, "years", years, 1)
	testutil.AssertEqual(t, "year", c.Year, 2)
	testutil.AssertEqual(t, "season", c.Season, Spring)
}

func TestDayOfSeason(t *testing.T) {
	c := New(10)
	testutil.AssertEqual(t, "first day", c.DayOfSeason(), 1)

	for i := 0; i < 8; i++ {
		c.AdvanceDay()
	}
	testutil.AssertEqual(t, "day 9", c.DayOfSeason(), 9)
	testutil.AssertEqual(t, "still spring", c.Season, Spring)

	c.AdvanceDay()
	testutil.AssertEqual(t, "summer", c.Season, Summer)
	testutil.AssertEqual(t, "new season starts at 1", c.DayOfSeason(), 1)

	for i := 0; i < 9; i++ {
		c.AdvanceDay()
	}
	testutil.AssertEqual(t, "last of summer", c.DayOfSeason(), 10)
	c.AdvanceDay()
	testutil.AssertEqual(t, "fall", c.Season, Fall)
	testutil.AssertEqual(t, "fall day 1", c.DayOfSeason(), 1)
}

func TestParse(t *testing.T) {
	tests := map[string]struct {
		in     string
		exp    Period
		expErr bool
	}{
		"lower":   {in: "evening", exp: Evening},
		"title":   {in: "Night", exp: Night},
		"unknown": {in: "dusk", expErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.expErr {
				testutil.AssertErrorContains(t, err, "unknown clock value")
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "period", p, tt.exp)
		})
	}

	s, err := ParseSeason("fall")
	if err != nil {
		t.Fatalf("parse season: %v", err)
	}
	testutil.AssertEqual(t, "season", s, Fall)
	if _, err := ParseSeason("autumn"); err == nil {
		t.Errorf("expected error for unknown season")
	}
}

func TestLabel(t *testing.T) {
	c := New(28)
	c.AdvancePeriod()
	testutil.AssertEqual(t, "label", c.Label(), "Year 1, spring, Day 1, Afternoon")
}
