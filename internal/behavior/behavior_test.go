package behavior

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
)

func fixed(name string, s Status) *ActionNode {
	return NewAction(name, decision.Wait, ActionFunc(func(*Context) Status { return s }))
}

func newVillager(t *testing.T, reg *ecs.Registry, name string, x, y float64) ecs.EntityID {
	t.Helper()
	id, err := ecs.NewVillager(reg, ecs.VillagerSpec{Name: name, Occupation: "farmer", Location: "West Field", X: x, Y: y})
	if err != nil {
		t.Fatalf("villager %s: %v", name, err)
	}
	return id
}

func TestComposite_ShortCircuit(t *testing.T) {
	tests := map[string]struct {
		root     func(a, b, c Node) Node
		statuses [3]Status
		exp      Status
	}{
		"sequence stops at failure": {
			root:     func(a, b, c Node) Node { return NewSequence("seq", a, b, c) },
			statuses: [3]Status{Success, Failure, Success},
			exp:      Failure,
		},
		"selector stops at success": {
			root:     func(a, b, c Node) Node { return NewSelector("sel", a, b, c) },
			statuses: [3]Status{Failure, Success, Failure},
			exp:      Success,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a, b, c := fixed("a", tt.statuses[0]), fixed("b", tt.statuses[1]), fixed("c", tt.statuses[2])
			tree := NewTree(name, tt.root(a, b, c))
			ctx := NewContext(1, ecs.NewRegistry(0))

			testutil.AssertEqual(t, "status", tree.Tick(ctx), tt.exp)
			testutil.AssertEqual(t, "first ran", a.Info().Executions, 1)
			testutil.AssertEqual(t, "second ran", b.Info().Executions, 1)
			testutil.AssertEqual(t, "third skipped", c.Info().Executions, 0)
		})
	}
}

func TestSequence_ResumesRunningChild(t *testing.T) {
	steps := 0
	slow := NewAction("slow", decision.Move, ActionFunc(func(*Context) Status {
		steps++
		if steps < 3 {
			return Running
		}
		return Success
	}))
	first := fixed("first", Success)
	tree := NewTree("resume", NewSequence("seq", first, slow))
	ctx := NewContext(1, ecs.NewRegistry(0))

	testutil.AssertEqual(t, "tick 1", tree.Tick(ctx), Running)
	testutil.AssertEqual(t, "tick 2", tree.Tick(ctx), Running)
	testutil.AssertEqual(t, "tick 3", tree.Tick(ctx), Success)
	testutil.AssertEqual(t, "first not re-run", first.Info().Executions, 1)
	testutil.AssertEqual(t, "slow runs", slow.Info().Executions, 3)

	st := tree.Stats()
	testutil.AssertEqual(t, "total", st.Total, 3)
	testutil.AssertEqual(t, "running", st.Running, 2)
	testutil.AssertEqual(t, "success", st.Success, 1)
	testutil.AssertEqual(t, "tick count", ctx.TickCount, 3)
}

func TestTree_ResetRestartsFromFirstChild(t *testing.T) {
	first := fixed("first", Success)
	hold := fixed("hold", Running)
	tree := NewTree("reset", NewSelector("sel", NewSequence("seq", first, hold)))
	ctx := NewContext(1, ecs.NewRegistry(0))

	tree.Tick(ctx)
	tree.Tick(ctx)
	testutil.AssertEqual(t, "resumed past first", first.Info().Executions, 1)

	tree.Reset()
	tree.Tick(ctx)
	testutil.AssertEqual(t, "restarted", first.Info().Executions, 2)
}

func TestDecorators(t *testing.T) {
	tests := map[string]struct {
		node func() Node
		exp  []Status
	}{
		"inverter success": {
			node: func() Node { return NewInverter("inv", fixed("ok", Success)) },
			exp:  []Status{Failure},
		},
		"inverter failure": {
			node: func() Node { return NewInverter("inv", fixed("no", Failure)) },
			exp:  []Status{Success},
		},
		"inverter running": {
			node: func() Node { return NewInverter("inv", fixed("wait", Running)) },
			exp:  []Status{Running},
		},
		"repeater counts successes": {
			node: func() Node { return NewRepeater("rep", fixed("ok", Success), 3) },
			exp:  []Status{Running, Running, Success, Running},
		},
		"repeater failure": {
			node: func() Node { return NewRepeater("rep", fixed("no", Failure), 3) },
			exp:  []Status{Failure},
		},
		"parallel all succeed": {
			node: func() Node { return NewParallel("par", fixed("a", Success), fixed("b", Success)) },
			exp:  []Status{Success},
		},
		"parallel one fails": {
			node: func() Node { return NewParallel("par", fixed("a", Success), fixed("b", Failure)) },
			exp:  []Status{Failure},
		},
		"parallel running wins": {
			node: func() Node { return NewParallel("par", fixed("a", Failure), fixed("b", Running)) },
			exp:  []Status{Running},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			n := tt.node()
			ctx := NewContext(1, ecs.NewRegistry(0))
			for i, exp := range tt.exp {
				testutil.AssertEqual(t, fmt.Sprintf("tick %d", i+1), n.Tick(ctx), exp)
			}
		})
	}
}

func TestRepeater_Reset(t *testing.T) {
	rep := NewRepeater("rep", fixed("ok", Success), 3)
	ctx := NewContext(1, ecs.NewRegistry(0))
	rep.Tick(ctx)
	rep.Tick(ctx)
	testutil.AssertEqual(t, "counted", rep.Repeats(), 2)
	rep.Reset()
	testutil.AssertEqual(t, "cleared", rep.Repeats(), 0)
}

func TestComposite_MaxChildren(t *testing.T) {
	seq := NewSequence("seq")
	for i := 0; i < MaxChildren; i++ {
		if err := seq.AddChild(fixed(fmt.Sprint(i), Success)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	err := seq.AddChild(fixed("extra", Success))
	if !errors.Is(err, ErrTooManyChildren) {
		t.Errorf("expected ErrTooManyChildren, got %v", err)
	}
	testutil.AssertEqual(t, "children", len(seq.Children()), MaxChildren)
}

func TestBlackboard(t *testing.T) {
	ctx := NewContext(1, ecs.NewRegistry(0))
	for i := 0; i < DefaultBlackboardCapacity; i++ {
		if err := ctx.Set(fmt.Sprintf("k%d", i), i); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if err := ctx.Set("one too many", true); !errors.Is(err, ErrBlackboardFull) {
		t.Errorf("expected ErrBlackboardFull, got %v", err)
	}
	if err := ctx.Set("k0", "overwritten"); err != nil {
		t.Errorf("overwrite: %v", err)
	}
	v, _ := ctx.Get("k0")
	testutil.AssertEqual(t, "overwrite value", v, any("overwritten"))
	testutil.AssertEqual(t, "len", ctx.BlackboardLen(), DefaultBlackboardCapacity)

	ctx.Delete("k0")
	testutil.AssertEqual(t, "deleted", ctx.Has("k0"), false)

	_ = ctx.Set(KeyTargetEntity, ecs.EntityID(7))
	id, ok := ctx.EntityRef(KeyTargetEntity)
	testutil.AssertEqual(t, "entity ref ok", ok, true)
	testutil.AssertEqual(t, "entity ref", id, ecs.EntityID(7))
}

func TestTick_DecisionBookkeeping(t *testing.T) {
	reg := ecs.NewRegistry(0)
	id := newVillager(t, reg, "John", 0, 0)
	reg.Needs(id).Hunger = 10
	_ = reg.Inventory(id).Add("Bread", 1)

	tree := NewNPCTree("npc")
	ctx := NewContext(id, reg)
	ctx.Bus = event.NewBus()

	testutil.AssertEqual(t, "status", tree.Tick(ctx), Success)

	opts := ctx.Options()
	testutil.AssertEqual(t, "options", len(opts), 1)
	testutil.AssertEqual(t, "urgent rest tried first", opts[0].Action, decision.Rest)
	testutil.AssertEqual(t, "chosen", ctx.Chosen(), 0)
	testutil.AssertEqual(t, "outcome", ctx.Outcome(), "John rested")
	if !strings.HasPrefix(ctx.Reasoning(), "Needs Urgent? true") {
		t.Errorf("unexpected reasoning %q", ctx.Reasoning())
	}
	testutil.AssertEqual(t, "published", len(ctx.Published()), 1)

	// The next tick starts from clean bookkeeping.
	reg.Needs(id).Hunger = 100
	reg.Needs(id).Social = 100
	tree.Tick(ctx)
	testutil.AssertEqual(t, "idle only", len(ctx.Options()), 1)
	testutil.AssertEqual(t, "idle action", ctx.Options()[0].Action, decision.Wait)
}

func TestTick_BlackboardLastsOneTick(t *testing.T) {
	reg := ecs.NewRegistry(0)
	john := newVillager(t, reg, "John", 0, 0)
	mary := newVillager(t, reg, "Mary", 3, 4)

	ticks := 0
	talk := NewAction("Talk", decision.Talk, ActionFunc(func(c *Context) Status {
		ticks++
		if ticks == 1 {
			_ = c.Set(KeyTargetEntity, mary)
		}
		return Success
	}))
	tree := NewTree("chatty", talk)
	ctx := NewContext(john, reg)

	tree.Tick(ctx)
	testutil.AssertEqual(t, "first target", ctx.Options()[0].TargetEntity, mary)
	testutil.AssertEqual(t, "board after tick", ctx.BlackboardLen(), 0)

	tree.Tick(ctx)
	testutil.AssertEqual(t, "second target", ctx.Options()[0].TargetEntity, ecs.NoEntity)
}

func TestEatFood(t *testing.T) {
	tests := map[string]struct {
		items    map[string]int
		exp      Status
		hunger   float64
		leftover string
	}{
		"bread first": {
			items:    map[string]int{"Wheat": 2, "Bread": 1},
			exp:      Success,
			hunger:   80,
			leftover: "Wheat",
		},
		"wheat": {
			items:    map[string]int{"Wheat": 2},
			exp:      Success,
			hunger:   65,
			leftover: "Wheat",
		},
		"nothing": {
			items:  map[string]int{},
			exp:    Failure,
			hunger: 50,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			reg := ecs.NewRegistry(0)
			id := newVillager(t, reg, "John", 0, 0)
			for item, n := range tt.items {
				_ = reg.Inventory(id).Add(item, n)
			}
			ctx := NewContext(id, reg)

			testutil.AssertEqual(t, "status", EatFood(ctx), tt.exp)
			testutil.AssertEqual(t, "hunger", reg.Needs(id).Hunger, tt.hunger)
			if tt.leftover != "" {
				testutil.AssertEqual(t, "leftover", reg.Inventory(id).Has(tt.leftover, 1), true)
			}
		})
	}
}

func TestWork(t *testing.T) {
	reg := ecs.NewRegistry(0)
	id := newVillager(t, reg, "Mary", 0, 0)
	bus := event.NewBus()
	var got []event.Event
	_, _ = bus.Subscribe(event.Only(event.Economic), func(e event.Event) { got = append(got, e) })

	ctx := NewContext(id, reg)
	ctx.Bus = bus
	testutil.AssertEqual(t, "status", Work(ctx), Success)
	testutil.AssertEqual(t, "wage", reg.Currency(id).Amount, 50+Wage)
	testutil.AssertEqual(t, "energy", reg.Needs(id).Energy, 100-WorkEnergy)
	testutil.AssertEqual(t, "events", len(got), 1)
	testutil.AssertEqual(t, "location stamped", got[0].Location, "West Field")
}

func TestFarm(t *testing.T) {
	reg := ecs.NewRegistry(0)
	id := newVillager(t, reg, "John", 0, 0)

	farms := agriculture.NewManager(0)
	for _, ct := range agriculture.DefaultCropTypes() {
		if err := farms.RegisterType(ct); err != nil {
			t.Fatalf("register %s: %v", ct.Name, err)
		}
	}
	field, err := farms.RegisterField(2, 2, 2)
	if err != nil {
		t.Fatalf("field: %v", err)
	}

	ctx := NewContext(id, reg)
	ctx.Farms = farms
	ctx.Clock = *clock.New(0)

	testutil.AssertEqual(t, "nothing to do", Farm(ctx), Failure)

	_ = reg.Inventory(id).Add("Wheat Seeds", 1)
	testutil.AssertEqual(t, "sow", Farm(ctx), Success)
	testutil.AssertEqual(t, "planted", field.Len(), 1)
	testutil.AssertEqual(t, "seeds used", reg.Inventory(id).Count("Wheat Seeds"), 0)
	testutil.AssertEqual(t, "energy", reg.Needs(id).Energy, 100-FarmEnergy)

	field.Crops()[0].WateredToday = false
	testutil.AssertEqual(t, "water", Farm(ctx), Success)
	testutil.AssertEqual(t, "watered", field.Crops()[0].WateredToday, true)
}

func TestFarm_ClearsWithered(t *testing.T) {
	reg := ecs.NewRegistry(0)
	id := newVillager(t, reg, "John", 0, 0)

	farms := agriculture.NewManager(0)
	for _, ct := range agriculture.DefaultCropTypes() {
		if err := farms.RegisterType(ct); err != nil {
			t.Fatalf("register %s: %v", ct.Name, err)
		}
	}
	field, err := farms.RegisterField(2, 2, 2)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			c, err := farms.Plant(2, "Wheat", x, y, id)
			if err != nil {
				t.Fatalf("plant: %v", err)
			}
			c.Stage = agriculture.Withered
		}
	}

	ctx := NewContext(id, reg)
	ctx.Farms = farms
	ctx.Clock = *clock.New(0)

	testutil.AssertEqual(t, "clear only", Farm(ctx), Success)
	testutil.AssertEqual(t, "field emptied", field.Len(), 0)
	testutil.AssertEqual(t, "energy", reg.Needs(id).Energy, 100-FarmEnergy)

	c, _ := farms.Plant(2, "Wheat", 0, 0, id)
	c.Stage = agriculture.Withered
	_ = reg.Inventory(id).Add("Wheat Seeds", 1)
	testutil.AssertEqual(t, "clear and sow", Farm(ctx), Success)
	testutil.AssertEqual(t, "replanted", field.Len(), 1)
	testutil.AssertEqual(t, "fresh crop", field.Crops()[0].Withered(), false)
}

func TestFarm_Forage(t *testing.T) {
	reg := ecs.NewRegistry(0)
	id := newVillager(t, reg, "John", 0, 0)
	ctx := NewContext(id, reg)

	idx := ctx.consider(decision.Work, "Farm")
	s := Farm(ctx)
	ctx.settle(idx, s)

	testutil.AssertEqual(t, "status", s, Success)
	testutil.AssertEqual(t, "wheat", reg.Inventory(id).Count("Wheat"), ForageYield)
	testutil.AssertEqual(t, "retargeted", ctx.Options()[0].Action, decision.Harvest)
}

func TestGiveGift(t *testing.T) {
	reg := ecs.NewRegistry(0)
	john := newVillager(t, reg, "John", 0, 0)
	mary := newVillager(t, reg, "Mary", 3, 4)
	_ = reg.Inventory(john).Add("Wheat", 2)

	ctx := NewContext(john, reg)
	ctx.Social = social.NewManager()
	ctx.Bus = event.NewBus()
	_ = ctx.Set(KeyTargetEntity, mary)

	testutil.AssertEqual(t, "status", GiveGift(ctx), Success)
	testutil.AssertEqual(t, "given", reg.Inventory(john).Count("Wheat"), 1)
	testutil.AssertEqual(t, "received", reg.Inventory(mary).Count("Wheat"), 1)

	aff := ctx.Social.Relationship(john, mary).Affection
	testutil.AssertEqual(t, "affection", aff, 4)
	testutil.AssertEqual(t, "mirrored giver", reg.Relationship(john).Get(mary), aff)
	testutil.AssertEqual(t, "mirrored receiver", reg.Relationship(mary).Get(john), aff)
}

func TestNearbyFriend(t *testing.T) {
	tests := map[string]struct {
		x, y      float64
		affection int
		exp       bool
	}{
		"close friend":     {x: 3, y: 4, affection: 40, exp: true},
		"too far":          {x: 30, y: 40, affection: 40, exp: false},
		"not liked enough": {x: 3, y: 4, affection: FriendAffection, exp: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			reg := ecs.NewRegistry(0)
			john := newVillager(t, reg, "John", 0, 0)
			mary := newVillager(t, reg, "Mary", tt.x, tt.y)
			_ = reg.Relationship(john).Set(mary, tt.affection)

			ctx := NewContext(john, reg)
			testutil.AssertEqual(t, "friend", NearbyFriend(ctx), tt.exp)
			_, set := ctx.EntityRef(KeyTargetEntity)
			testutil.AssertEqual(t, "target set", set, tt.exp)
		})
	}
}

func TestFarmerTree_ByPeriod(t *testing.T) {
	tests := map[string]struct {
		period clock.Period
		exp    decision.Action
	}{
		"morning farms":   {period: clock.Morning, exp: decision.Harvest},
		"afternoon works": {period: clock.Afternoon, exp: decision.Work},
		"night rests":     {period: clock.Night, exp: decision.Rest},
		"evening idles":   {period: clock.Evening, exp: decision.Wait},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			reg := ecs.NewRegistry(0)
			id := newVillager(t, reg, "John", 0, 0)
			ctx := NewContext(id, reg)
			ctx.Clock = *clock.New(0)
			ctx.Clock.Period = tt.period

			tree := ForOccupation("Farmer")
			testutil.AssertEqual(t, "tree", tree.Name, "Farmer Behavior")
			testutil.AssertEqual(t, "status", tree.Tick(ctx), Success)
			opts := ctx.Options()
			testutil.AssertEqual(t, "chosen action", opts[ctx.Chosen()].Action, tt.exp)
		})
	}
}

func TestForOccupation(t *testing.T) {
	tests := map[string]string{
		"farmer":       "Farmer Behavior",
		"Merchant":     "Merchant Behavior",
		"shopkeeper":   "Merchant Behavior",
		"shy villager": "Villager Behavior",
		"":             "Villager Behavior",
	}
	for title, exp := range tests {
		t.Run(title, func(t *testing.T) {
			testutil.AssertEqual(t, "tree", ForOccupation(title).Name, exp)
		})
	}
}

func TestDescribe(t *testing.T) {
	tree := NewMerchantTree()
	out := tree.Describe()
	for _, want := range []string{"Merchant Behavior", "[selector] Merchant Root", "[action] Work"} {
		if !strings.Contains(out, want) {
			t.Errorf("describe missing %q:\n%s", want, out)
		}
	}
	if Find(tree.Root(), "Business Hours") == nil {
		t.Errorf("expected to find Business Hours")
	}
}
