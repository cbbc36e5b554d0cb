package entropy

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestSeed(t *testing.T) {
	testutil.AssertEqual(t, "stable", Seed(42, 1, 2, 3), Seed(42, 1, 2, 3))
	if Seed(42, 1, 2, 3) == Seed(42, 1, 2, 4) {
		t.Errorf("different parts should give different seeds")
	}
	if Seed(42) == Seed(43) {
		t.Errorf("different bases should give different seeds")
	}
}

func TestForDay(t *testing.T) {
	a := ForDay(7, 1, 0, 5)
	b := ForDay(7, 1, 0, 5)
	for i := 0; i < 10; i++ {
		testutil.AssertEqual(t, "replay", a.Float64(), b.Float64())
	}
}

func TestNewSeed(t *testing.T) {
	if NewSeed() <= 0 {
		t.Errorf("seed should be positive")
	}
}
