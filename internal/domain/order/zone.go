package order

import "github.com/shopspring/decimal"

// Zone identifies one of the five fixed delivery regions.
type Zone string

const (
	ZoneZ1 Zone = "Z1"
	ZoneZ2 Zone = "Z2"
	ZoneZ3 Zone = "Z3"
	ZoneZ4 Zone = "Z4"
	ZoneZ5 Zone = "Z5"
)

// zoneShippingCost is the fixed shipping price table. The set of zones is
// closed: anything outside this map is rejected, never defaulted.
var zoneShippingCost = map[Zone]decimal.Decimal{
	ZoneZ1: decimal.RequireFromString("3.00"),
	ZoneZ2: decimal.RequireFromString("5.00"),
	ZoneZ3: decimal.RequireFromString("8.00"),
	ZoneZ4: decimal.RequireFromString("12.00"),
	ZoneZ5: decimal.RequireFromString("18.00"),
}

// ShippingCost returns the fixed shipping price for z. The second return
// value is false for unknown zone identifiers.
func (z Zone) ShippingCost() (decimal.Decimal, bool) {
	cost, ok := zoneShippingCost[z]
	return cost, ok
}

// Valid reports whether z is a known delivery zone.
func (z Zone) Valid() bool {
	_, ok := zoneShippingCost[z]
	return ok
}

// Zones returns all known delivery zones in display order.
func Zones() []Zone {
	return []Zone{ZoneZ1, ZoneZ2, ZoneZ3, ZoneZ4, ZoneZ5}
}
