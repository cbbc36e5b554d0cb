package economy

import (
	"fmt"

	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/world"
)

// Pricing is how a shop sets prices.
type Pricing uint8

const (
	Fixed Pricing = iota
	SupplyDemand
	Haggle
	Barter
)

var pricingNames = [...]string{"fixed", "supply_demand", "haggle", "barter"}

func (p Pricing) String() string {
	if int(p) < len(pricingNames) {
		return pricingNames[p]
	}
	return "unknown"
}

func (p Pricing) MarshalText() ([]byte, error) {
	if int(p) >= len(pricingNames) {
		return nil, fmt.Errorf("%w: pricing %d", ErrUnknownValue, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Pricing) UnmarshalText(b []byte) error {
	for i, n := range pricingNames {
		if n == string(b) {
			*p = Pricing(i)
			return nil
		}
	}
	return fmt.Errorf("%w: pricing %q", ErrUnknownValue, b)
}

// Stock is a quantity of one item held by a shop.
type Stock struct {
	Item      string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	Quality   Quality `json:"quality"`
	Condition int     `json:"condition"`
}

// Shop buys from and sells to entities at one location.
type Shop struct {
	ID               int              `json:"id"`
	Name             string           `json:"name"`
	Location         world.LocationID `json:"location_id"`
	Owner            ecs.EntityID     `json:"owner_entity_id"`
	Pricing          Pricing          `json:"pricing"`
	BuyModifier      float64          `json:"buy_price_modifier"`  // what the shop pays, × value
	SellModifier     float64          `json:"sell_price_modifier"` // what the shop charges, × value
	Currency         int              `json:"currency"`
	InfiniteCurrency bool             `json:"infinite_currency"`
	AutoRestock      bool             `json:"auto_restock"`
	Stock            []Stock          `json:"stock"`

	// Demand counts units sold per item since the last daily settle;
	// supply-and-demand shops price against it.
	Demand map[string]float64 `json:"demand,omitempty"`
}

// NewShop returns a shop with 1000 gold that buys at half value and sells at 120%.
func NewShop(id int, name string, loc world.LocationID, owner ecs.EntityID, p Pricing) *Shop {
	return &Shop{
		ID:           id,
		Name:         name,
		Location:     loc,
		Owner:        owner,
		Pricing:      p,
		BuyModifier:  0.5,
		SellModifier: 1.2,
		Currency:     1000,
		Demand:       make(map[string]float64),
	}
}

func (s *Shop) stock(item string) *Stock {
	for i := range s.Stock {
		if s.Stock[i].Item == item {
			return &s.Stock[i]
		}
	}
	return nil
}

// Quantity is how many of item the shop holds.
func (s *Shop) Quantity(item string) int {
	if st := s.stock(item); st != nil {
		return st.Quantity
	}
	return 0
}

// AddStock adds qty normal-quality items.
func (s *Shop) AddStock(item string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("stock %s: %w", item, ErrInvalidQuantity)
	}
	if st := s.stock(item); st != nil {
		st.Quantity += qty
		return nil
	}
	if len(s.Stock) >= MaxShopInventory {
		return fmt.Errorf("stock %s: %w", item, ErrShopStockFull)
	}
	s.Stock = append(s.Stock, Stock{Item: item, Quantity: qty, Quality: Normal, Condition: 100})
	return nil
}

func (s *Shop) removeStock(item string, qty int) error {
	st := s.stock(item)
	if st == nil || st.Quantity < qty {
		return fmt.Errorf("%s at %s: %w", item, s.Name, ErrOutOfStock)
	}
	st.Quantity -= qty
	if st.Quantity == 0 {
		for i := range s.Stock {
			if s.Stock[i].Item == item {
				s.Stock = append(s.Stock[:i], s.Stock[i+1:]...)
				break
			}
		}
	}
	return nil
}

// pressure is the demand/supply ratio for item, bounded to [0.5, 2].
func (s *Shop) pressure(item string) float64 {
	if s.Pricing != SupplyDemand {
		return 1
	}
	supply := float64(s.Quantity(item))
	if supply < 1 {
		supply = 1
	}
	p := (1 + s.Demand[item]) / supply * 10
	return min(max(p, 0.5), 2)
}

// settle halves recorded demand. Called once a day.
func (s *Shop) settle() {
	for k, v := range s.Demand {
		if v /= 2; v < 0.1 {
			delete(s.Demand, k)
		} else {
			s.Demand[k] = v
		}
	}
}
