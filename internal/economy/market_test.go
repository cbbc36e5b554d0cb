package economy

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
)

func newTestMarket(t *testing.T) (*Market, *ecs.Registry, ecs.EntityID, *event.Log) {
	t.Helper()
	bus := event.NewBus()
	log := event.NewLog(100)
	if _, err := bus.Subscribe(event.Any(), log.Handler()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m := NewMarket(DefaultCatalogue(), bus)
	if err := m.SeedDefaultShops(5, 1, 2); err != nil {
		t.Fatalf("seed shops: %v", err)
	}
	reg := ecs.NewRegistry(0)
	player, err := ecs.NewPlayer(reg, "player")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	return m, reg, player, log
}

func TestMarket_Buy(t *testing.T) {
	m, reg, player, log := newTestMarket(t)
	store := m.ShopAt(5)

	r, err := m.Buy(reg, player, store.ID, "Wheat Seeds", 2)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	testutil.AssertEqual(t, "unit", r.UnitPrice, 6)
	testutil.AssertEqual(t, "purse", reg.Currency(player).Amount, 88)
	testutil.AssertEqual(t, "seeds", reg.Inventory(player).Count("Wheat Seeds"), 2)
	testutil.AssertEqual(t, "stock", store.Quantity("Wheat Seeds"), 18)
	testutil.AssertEqual(t, "events", log.Len(), 3)
	testutil.AssertEqual(t, "trade event", log.BySubKind(event.TradeAccepted, 1)[0].Source, player)
}

func TestMarket_BuyRefusals(t *testing.T) {
	m, reg, player, log := newTestMarket(t)
	store := m.ShopAt(5)

	tests := map[string]struct {
		item   string
		qty    int
		purse  int
		expErr error
	}{
		"short of gold":  {item: "Hoe", qty: 1, purse: 10, expErr: ecs.ErrInsufficientFunds},
		"out of stock":   {item: "Hoe", qty: 2, purse: 500, expErr: ErrOutOfStock},
		"unknown item":   {item: "Lute", qty: 1, purse: 500, expErr: ErrUnknownItem},
		"zero quantity":  {item: "Hoe", qty: 0, purse: 500, expErr: ErrInvalidQuantity},
		"not in catalog": {item: "", qty: 1, purse: 500, expErr: ErrUnknownItem},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			reg.Currency(player).Amount = tt.purse
			_, err := m.Buy(reg, player, store.ID, tt.item, tt.qty)
			if !errors.Is(err, tt.expErr) {
				t.Fatalf("expected %v, got %v", tt.expErr, err)
			}
			testutil.AssertEqual(t, "purse untouched", reg.Currency(player).Amount, tt.purse)
		})
	}
	testutil.AssertEqual(t, "hoe still stocked", store.Quantity("Hoe"), 1)
	testutil.AssertEqual(t, "declines logged", len(log.BySubKind(event.TradeDeclined, 10)), 2)

	if _, err := m.Buy(reg, player, 99, "Hoe", 1); !errors.Is(err, ErrShopNotFound) {
		t.Errorf("expected ErrShopNotFound, got %v", err)
	}
}

func TestMarket_Sell(t *testing.T) {
	m, reg, player, _ := newTestMarket(t)
	market := m.ShopAt(1)
	_ = reg.Inventory(player).Add("Wheat", 5)

	r, err := m.Sell(reg, player, market.ID, "Wheat", 5)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	testutil.AssertEqual(t, "scarce premium", r.UnitPrice, 16)
	testutil.AssertEqual(t, "purse", reg.Currency(player).Amount, 180)
	testutil.AssertEqual(t, "market paid", market.Currency, 4920)
	testutil.AssertEqual(t, "sold out of inventory", reg.Inventory(player).Has("Wheat", 1), false)

	if _, err := m.Sell(reg, player, market.ID, "Wheat", 1); !errors.Is(err, ecs.ErrInsufficientItems) {
		t.Errorf("expected ErrInsufficientItems, got %v", err)
	}
}

func TestMarket_Daily(t *testing.T) {
	m, _, _, _ := newTestMarket(t)
	store := m.ShopAt(5)
	testutil.AssertEqual(t, "no stone yet", store.Quantity("Stone"), 0)
	m.Daily()
	testutil.AssertEqual(t, "restocked stackable", store.Quantity("Stone"), 10)
	testutil.AssertEqual(t, "restocked tool", store.Quantity("Sickle"), 1)
	testutil.AssertEqual(t, "existing kept", store.Quantity("Wheat Seeds"), 20)
	testutil.AssertEqual(t, "market not restocked", len(m.ShopAt(1).Stock), 0)
}

func TestItemValue(t *testing.T) {
	hoe, _ := DefaultCatalogue().Def("Hoe")
	tests := map[string]struct {
		qty       int
		quality   Quality
		condition int
		exp       int
	}{
		"normal":     {qty: 1, quality: Normal, condition: 100, exp: 50},
		"poor":       {qty: 1, quality: Poor, condition: 100, exp: 25},
		"masterwork": {qty: 2, quality: Masterwork, condition: 100, exp: 300},
		"worn":       {qty: 1, quality: Good, condition: 50, exp: 37},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "value", hoe.Value(tt.qty, tt.quality, tt.condition), tt.exp)
		})
	}
}
