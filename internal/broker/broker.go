package broker

import "StopLineTrader/internal/model"

// Broker is the venue surface the core needs: prices, the live position view,
// and the order lifecycle. All calls are synchronous and blocking for the
// duration of one scheduling tick. Position lookups degrade to zero values on
// venue failure; the engine treats that as "skip this security this tick".
type Broker interface {
	Name() string

	// CurrentPrice returns the latest minute price.
	CurrentPrice(symbol string) (float64, error)
	// PriceHistory returns up to count minute prices, most-recent-last.
	PriceHistory(symbol string, count int) ([]float64, error)

	// CostBasis reports the average cost of the live position, if any.
	CostBasis(symbol string) (float64, bool)
	// SharesHeld returns the live position size.
	SharesHeld(symbol string) int

	// PlaceOrder submits a limit order: positive qty buys, negative sells.
	// A limit of zero or less is a market order (used by the flatten path).
	PlaceOrder(symbol string, qty int, limit float64) (string, error)
	// OpenOrders lists resting orders; an empty symbol lists all symbols.
	OpenOrders(symbol string) ([]model.OpenOrder, error)
	CancelOrder(handle string) error
}
