package economy

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/world"
)

// Publisher receives the economic events a trade produces.
type Publisher interface {
	Publish(e *event.Event) (uint64, error)
}

// Receipt describes a completed trade.
type Receipt struct {
	Shop      int
	Entity    ecs.EntityID
	Item      string
	Quantity  int
	UnitPrice int
	Total     int
}

// Market owns the catalogue and shops and settles trades against entity
// inventories and purses.
type Market struct {
	Catalogue   *Catalogue
	GlobalPrice float64

	shops      []*Shop
	nextShopID int
	pub        Publisher
}

// NewMarket creates a market over cat. pub may be nil.
func NewMarket(cat *Catalogue, pub Publisher) *Market {
	if cat == nil {
		cat = NewCatalogue()
	}
	return &Market{Catalogue: cat, GlobalPrice: 1, nextShopID: 1, pub: pub}
}

// SetPublisher replaces the event sink.
func (m *Market) SetPublisher(pub Publisher) { m.pub = pub }

// OpenShop registers a new shop and returns it.
func (m *Market) OpenShop(name string, loc world.LocationID, owner ecs.EntityID, p Pricing) (*Shop, error) {
	if len(m.shops) >= MaxShops {
		return nil, fmt.Errorf("open %s: %w", name, ErrShopsFull)
	}
	s := NewShop(m.nextShopID, name, loc, owner, p)
	m.nextShopID++
	m.shops = append(m.shops, s)
	return s, nil
}

// Shop returns the shop with id, or nil.
func (m *Market) Shop(id int) *Shop {
	for _, s := range m.shops {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ShopAt returns the first shop at loc, or nil.
func (m *Market) ShopAt(loc world.LocationID) *Shop {
	for _, s := range m.shops {
		if s.Location == loc {
			return s
		}
	}
	return nil
}

// Shops lists shops in opening order.
func (m *Market) Shops() []*Shop {
	out := make([]*Shop, len(m.shops))
	copy(out, m.shops)
	return out
}

// SellPrice is what shop s charges for one item.
func (m *Market) SellPrice(s *Shop, item string) (int, error) {
	d, err := m.tradeable(item)
	if err != nil {
		return 0, err
	}
	return int(float64(d.Value(1, Normal, 100)) * s.SellModifier * m.GlobalPrice * s.pressure(item)), nil
}

// BuyPrice is what shop s pays for one item.
func (m *Market) BuyPrice(s *Shop, item string) (int, error) {
	d, err := m.tradeable(item)
	if err != nil {
		return 0, err
	}
	return int(float64(d.Value(1, Normal, 100)) * s.BuyModifier * s.pressure(item)), nil
}

func (m *Market) tradeable(item string) (ItemDefinition, error) {
	d, ok := m.Catalogue.Def(item)
	if !ok {
		return d, fmt.Errorf("%q: %w", item, ErrUnknownItem)
	}
	if !d.Tradeable {
		return d, fmt.Errorf("%q: %w", item, ErrNotTradeable)
	}
	return d, nil
}

// Buy moves qty of item from a shop to buyer in exchange for gold.
// Nothing changes unless every check passes.
func (m *Market) Buy(reg *ecs.Registry, buyer ecs.EntityID, shopID int, item string, qty int) (Receipt, error) {
	s, inv, purse, err := m.parties(reg, buyer, shopID, qty)
	if err != nil {
		return Receipt{}, err
	}
	unit, err := m.SellPrice(s, item)
	if err != nil {
		return Receipt{}, err
	}
	total := unit * qty
	switch {
	case s.Quantity(item) < qty:
		err = fmt.Errorf("buy %d %s: %w", qty, item, ErrOutOfStock)
	case purse.Amount < total:
		err = fmt.Errorf("buy %d %s for %d: %w", qty, item, total, ecs.ErrInsufficientFunds)
	case inv.Count(item) == 0 && inv.Full():
		err = fmt.Errorf("buy %s: %w", item, ecs.ErrInventoryFull)
	}
	if err != nil {
		m.publish(event.NewTrade(buyer, s.Owner, item, qty, total, false, err.Error()))
		return Receipt{}, err
	}

	_ = s.removeStock(item, qty)
	_ = inv.Add(item, qty)
	_ = purse.Spend(total)
	s.Currency += total
	s.Demand[item] += float64(qty)

	reason := "Bought at " + s.Name
	m.publish(event.NewTrade(buyer, s.Owner, item, qty, total, true, reason))
	m.publish(event.NewCurrency(buyer, -total, reason))
	m.publish(event.NewItem(event.ItemGained, buyer, item, qty, reason))
	return Receipt{Shop: s.ID, Entity: buyer, Item: item, Quantity: qty, UnitPrice: unit, Total: total}, nil
}

// Sell moves qty of item from seller to a shop in exchange for gold.
func (m *Market) Sell(reg *ecs.Registry, seller ecs.EntityID, shopID int, item string, qty int) (Receipt, error) {
	s, inv, purse, err := m.parties(reg, seller, shopID, qty)
	if err != nil {
		return Receipt{}, err
	}
	unit, err := m.BuyPrice(s, item)
	if err != nil {
		return Receipt{}, err
	}
	total := unit * qty
	switch {
	case !inv.Has(item, qty):
		err = fmt.Errorf("sell %d %s: %w", qty, item, ecs.ErrInsufficientItems)
	case !s.InfiniteCurrency && s.Currency < total:
		err = fmt.Errorf("sell %d %s: %w", qty, item, ErrShopCannotPay)
	case s.stock(item) == nil && len(s.Stock) >= MaxShopInventory:
		err = fmt.Errorf("sell %s: %w", item, ErrShopStockFull)
	}
	if err != nil {
		m.publish(event.NewTrade(seller, s.Owner, item, qty, total, false, err.Error()))
		return Receipt{}, err
	}

	_ = inv.Remove(item, qty)
	_ = s.AddStock(item, qty)
	_ = purse.Add(total)
	if !s.InfiniteCurrency {
		s.Currency -= total
	}

	reason := "Sold to " + s.Name
	m.publish(event.NewTrade(seller, s.Owner, item, qty, total, true, reason))
	m.publish(event.NewCurrency(seller, total, reason))
	m.publish(event.NewItem(event.ItemConsumed, seller, item, qty, reason))
	return Receipt{Shop: s.ID, Entity: seller, Item: item, Quantity: qty, UnitPrice: unit, Total: total}, nil
}

func (m *Market) parties(reg *ecs.Registry, id ecs.EntityID, shopID, qty int) (*Shop, *ecs.Inventory, *ecs.Currency, error) {
	if qty <= 0 {
		return nil, nil, nil, fmt.Errorf("trade %d: %w", qty, ErrInvalidQuantity)
	}
	s := m.Shop(shopID)
	if s == nil {
		return nil, nil, nil, fmt.Errorf("shop %d: %w", shopID, ErrShopNotFound)
	}
	inv, purse := reg.Inventory(id), reg.Currency(id)
	if inv == nil || purse == nil {
		return nil, nil, nil, fmt.Errorf("entity %d cannot trade: %w", id, ecs.ErrNoComponent)
	}
	return s, inv, purse, nil
}

func (m *Market) publish(e *event.Event) {
	if m.pub != nil {
		_, _ = m.pub.Publish(e)
	}
}

// Daily restocks auto-restocking shops with any tradeable item they have
// run out of and lets recorded demand cool off.
func (m *Market) Daily() {
	for _, s := range m.shops {
		s.settle()
		if !s.AutoRestock {
			continue
		}
		for _, d := range m.Catalogue.Items() {
			if !d.Tradeable || s.Quantity(d.Name) > 0 {
				continue
			}
			qty := 1
			if d.Stackable {
				qty = 10
			}
			if err := s.AddStock(d.Name, qty); err != nil {
				break
			}
		}
	}
}

// SeedDefaultShops opens the general store and the farmer's market.
func (m *Market) SeedDefaultShops(store, square world.LocationID, shopkeeper ecs.EntityID) error {
	general, err := m.OpenShop("General Store", store, shopkeeper, Fixed)
	if err != nil {
		return err
	}
	general.InfiniteCurrency = true
	general.AutoRestock = true
	for _, st := range []Stock{{Item: "Wheat Seeds", Quantity: 20}, {Item: "Corn Seeds", Quantity: 20}, {Item: "Hoe", Quantity: 1}, {Item: "Watering Can", Quantity: 1}, {Item: "Bread", Quantity: 10}} {
		if err := general.AddStock(st.Item, st.Quantity); err != nil {
			return err
		}
	}

	market, err := m.OpenShop("Farmer's Market", square, ecs.NoEntity, SupplyDemand)
	if err != nil {
		return err
	}
	market.BuyModifier = 0.7
	market.SellModifier = 1.1
	market.Currency = 5000
	return nil
}

// Snapshot is the saved form of the market.
type Snapshot struct {
	GlobalPriceModifier float64 `json:"global_price_modifier"`
	NextShopID          int     `json:"next_shop_id"`
	Shops               []Shop  `json:"shops"`
}

// Snapshot copies out every shop.
func (m *Market) Snapshot() Snapshot {
	s := Snapshot{GlobalPriceModifier: m.GlobalPrice, NextShopID: m.nextShopID}
	for _, sh := range m.shops {
		cp := *sh
		cp.Stock = append([]Stock(nil), sh.Stock...)
		cp.Demand = make(map[string]float64, len(sh.Demand))
		for k, v := range sh.Demand {
			cp.Demand[k] = v
		}
		s.Shops = append(s.Shops, cp)
	}
	return s
}

// Restore replaces the market's shops with s.
func (m *Market) Restore(s Snapshot) error {
	if len(s.Shops) > MaxShops {
		return fmt.Errorf("restore market: %w", ErrShopsFull)
	}
	m.shops = m.shops[:0]
	m.nextShopID = max(s.NextShopID, 1)
	for i := range s.Shops {
		sh := s.Shops[i]
		if len(sh.Stock) > MaxShopInventory {
			return fmt.Errorf("restore shop %s: %w", sh.Name, ErrShopStockFull)
		}
		if sh.Demand == nil {
			sh.Demand = make(map[string]float64)
		}
		m.shops = append(m.shops, &sh)
		if sh.ID >= m.nextShopID {
			m.nextShopID = sh.ID + 1
		}
	}
	m.GlobalPrice = s.GlobalPriceModifier
	if m.GlobalPrice <= 0 {
		m.GlobalPrice = 1
	}
	return nil
}
