package model

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OpenOrder is a broker-reported resting order. Qty and Filled carry the
// venue's signed convention: positive for buys, negative for sells.
type OpenOrder struct {
	Symbol string
	Qty    int
	Filled int
	Handle string
}

// IsBuy reports whether the order is on the buy side.
func (o OpenOrder) IsBuy() bool { return o.Qty > 0 }

// Unfilled returns the open remainder as a positive share count.
func (o OpenOrder) Unfilled() int {
	if o.Qty > 0 {
		return o.Qty - o.Filled
	}
	return o.Filled - o.Qty
}
