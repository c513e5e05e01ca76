package holding

import (
	"log"

	"StopLineTrader/internal/model"
)

// Holding records cash, shares, and the single outstanding order per side for
// one security being traded. At most one open buy price and one open sell
// price exist at any time; a new price on a side requires cancelling the old
// order first. Cash and shares change only through the four mutators below.
type Holding struct {
	Symbol        string
	Cash          float64
	Shares        int
	OpenBuyPrice  float64
	OpenBuyQty    int
	OpenSellPrice float64
	OpenSellQty   int
}

// OrderBuy debits cash optimistically and records the open buy.
func (h *Holding) OrderBuy(qty int, price float64) {
	log.Printf("[INFO] holding %s: buy %d @ %.2f", h.Symbol, qty, price)
	h.Cash -= float64(qty) * price
	h.OpenBuyPrice = price
	h.OpenBuyQty += qty
}

// ReconcileBuyCancel settles a cancelled buy against the broker-reported fill:
// cash for the unfilled remainder is restored and the filled quantity becomes
// shares. Clears the open-buy fields.
func (h *Holding) ReconcileBuyCancel(filled int) {
	h.Cash += float64(h.OpenBuyQty-filled) * h.OpenBuyPrice
	h.Shares += filled
	h.OpenBuyPrice = 0
	h.OpenBuyQty = 0
}

// OrderSell records the open sell. Proceeds are only credited on reconcile.
func (h *Holding) OrderSell(qty int, price float64) {
	log.Printf("[INFO] holding %s: sell %d @ %.2f", h.Symbol, qty, price)
	h.OpenSellPrice = price
	h.OpenSellQty += qty
}

// ReconcileSellCancel settles a cancelled sell: proceeds for the filled
// quantity are credited and the same quantity leaves the share count. Clears
// the open-sell fields.
func (h *Holding) ReconcileSellCancel(filled int) {
	h.Cash += float64(filled) * h.OpenSellPrice
	h.Shares -= filled
	h.OpenSellPrice = 0
	h.OpenSellQty = 0
}

// Unwound reports whether the holding holds nothing and has no open orders,
// i.e. it can be released back to the pool.
func (h *Holding) Unwound() bool {
	return h.Shares == 0 && h.OpenBuyQty == 0 && h.OpenSellQty == 0
}

// Snapshot returns a read-only copy for reports and journaling.
func (h *Holding) Snapshot() model.HoldingSnapshot {
	return model.HoldingSnapshot{
		Symbol:        h.Symbol,
		Cash:          h.Cash,
		Shares:        h.Shares,
		OpenBuyPrice:  h.OpenBuyPrice,
		OpenBuyQty:    h.OpenBuyQty,
		OpenSellPrice: h.OpenSellPrice,
		OpenSellQty:   h.OpenSellQty,
	}
}
