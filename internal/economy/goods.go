// Package economy provides the item catalogue, shops and the market that
// moves goods and gold between entities and shops.
package economy

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnknownValue    = errors.New("unknown economy value")
	ErrCatalogueFull   = errors.New("item catalogue full")
	ErrNotTradeable    = errors.New("item not tradeable")
	ErrShopNotFound    = errors.New("shop not found")
	ErrShopsFull       = errors.New("shop table full")
	ErrOutOfStock      = errors.New("out of stock")
	ErrShopStockFull   = errors.New("shop stock full")
	ErrShopCannotPay   = errors.New("shop cannot afford item")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Table bounds.
const (
	MaxItemTypes     = 100
	MaxShops         = 20
	MaxShopInventory = 100
)

// ItemType groups items by use.
type ItemType uint8

const (
	Crop ItemType = iota
	Seed
	Tool
	Product
	Material
	Food
	GiftItem
	Misc
)

var itemTypeNames = [...]string{"crop", "seed", "tool", "product", "material", "food", "gift", "misc"}

func (t ItemType) String() string {
	if int(t) < len(itemTypeNames) {
		return itemTypeNames[t]
	}
	return "unknown"
}

func (t ItemType) MarshalText() ([]byte, error) {
	if int(t) >= len(itemTypeNames) {
		return nil, fmt.Errorf("%w: item type %d", ErrUnknownValue, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ItemType) UnmarshalText(b []byte) error {
	for i, n := range itemTypeNames {
		if n == string(b) {
			*t = ItemType(i)
			return nil
		}
	}
	return fmt.Errorf("%w: item type %q", ErrUnknownValue, b)
}

// Quality scales an item's value.
type Quality uint8

const (
	Poor Quality = iota
	Normal
	Good
	Excellent
	Masterwork
)

var qualityNames = [...]string{"poor", "normal", "good", "excellent", "masterwork"}
var qualityMods = [...]float64{0.5, 1.0, 1.5, 2.0, 3.0}

func (q Quality) String() string {
	if int(q) < len(qualityNames) {
		return qualityNames[q]
	}
	return "unknown"
}

// Mod is the value multiplier for q.
func (q Quality) Mod() float64 {
	if int(q) < len(qualityMods) {
		return qualityMods[q]
	}
	return 1
}

func (q Quality) MarshalText() ([]byte, error) {
	if int(q) >= len(qualityNames) {
		return nil, fmt.Errorf("%w: quality %d", ErrUnknownValue, uint8(q))
	}
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(b []byte) error {
	for i, n := range qualityNames {
		if n == string(b) {
			*q = Quality(i)
			return nil
		}
	}
	return fmt.Errorf("%w: quality %q", ErrUnknownValue, b)
}

// ItemDefinition describes one kind of item.
type ItemDefinition struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        ItemType `json:"type"`
	BaseValue   int      `json:"base_value"`
	Stackable   bool     `json:"stackable"`
	MaxStack    int      `json:"max_stack"`
	Tradeable   bool     `json:"tradeable"`
	Consumable  bool     `json:"consumable"`
	Weight      int      `json:"weight"` // grams
}

// NewItemDefinition returns a tradeable definition. Food and crops are consumable.
func NewItemDefinition(name string, t ItemType, baseValue int, stackable bool, maxStack int) ItemDefinition {
	return ItemDefinition{
		Name:       name,
		Type:       t,
		BaseValue:  baseValue,
		Stackable:  stackable,
		MaxStack:   maxStack,
		Tradeable:  true,
		Consumable: t == Food || t == Crop,
		Weight:     100,
	}
}

// Value is what qty items of quality q in condition (0–100) are worth.
func (d ItemDefinition) Value(qty int, q Quality, condition int) int {
	return int(float64(d.BaseValue) * q.Mod() * float64(condition) / 100 * float64(qty))
}

// Catalogue is the table of known items.
type Catalogue struct {
	defs  map[string]ItemDefinition
	order []string
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{defs: make(map[string]ItemDefinition)}
}

// Register adds or replaces d.
func (c *Catalogue) Register(d ItemDefinition) error {
	if d.Name == "" {
		return fmt.Errorf("register item: %w", ErrUnknownItem)
	}
	if _, ok := c.defs[d.Name]; !ok {
		if len(c.order) >= MaxItemTypes {
			return fmt.Errorf("register %s: %w", d.Name, ErrCatalogueFull)
		}
		c.order = append(c.order, d.Name)
	}
	c.defs[d.Name] = d
	return nil
}

// Def returns the definition for name.
func (c *Catalogue) Def(name string) (ItemDefinition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Value is the base value of one normal-quality item, or 0 if unknown.
func (c *Catalogue) Value(name string) int { return c.defs[name].BaseValue }

// Items lists definitions in registration order.
func (c *Catalogue) Items() []ItemDefinition {
	out := make([]ItemDefinition, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.defs[n])
	}
	return out
}

// DefaultCatalogue returns the village's stock items.
func DefaultCatalogue() *Catalogue {
	c := NewCatalogue()
	defs := []ItemDefinition{
		NewItemDefinition("Wheat", Crop, 12, true, 99),
		NewItemDefinition("Corn", Crop, 15, true, 99),
		NewItemDefinition("Tomato", Crop, 10, true, 99),
		NewItemDefinition("Potato", Crop, 8, true, 99),
		NewItemDefinition("Carrot", Crop, 6, true, 99),
		NewItemDefinition("Wheat Seeds", Seed, 5, true, 99),
		NewItemDefinition("Corn Seeds", Seed, 8, true, 99),
		NewItemDefinition("Tomato Seeds", Seed, 6, true, 99),
		NewItemDefinition("Potato Seeds", Seed, 4, true, 99),
		NewItemDefinition("Carrot Seeds", Seed, 3, true, 99),
		NewItemDefinition("Hoe", Tool, 50, false, 1),
		NewItemDefinition("Watering Can", Tool, 30, false, 1),
		NewItemDefinition("Sickle", Tool, 40, false, 1),
		NewItemDefinition("Wood", Material, 5, true, 50),
		NewItemDefinition("Stone", Material, 3, true, 50),
		NewItemDefinition("Iron Ore", Material, 15, true, 50),
		NewItemDefinition("Bread", Food, 10, true, 20),
		NewItemDefinition("Vegetable Soup", Food, 15, true, 10),
	}
	weights := map[string]int{"Hoe": 500, "Watering Can": 300, "Sickle": 400}
	for _, d := range defs {
		if w, ok := weights[d.Name]; ok {
			d.Weight = w
		}
		if err := c.Register(d); err != nil {
			panic(fmt.Sprintf("economy: default catalogue: %v", err))
		}
	}
	return c
}

// SeedsFor names the seed item for a crop.
func SeedsFor(crop string) string { return crop + " Seeds" }
