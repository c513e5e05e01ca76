package journal

import "StopLineTrader/internal/model"

// OrderEvent records one order handed to the venue.
type OrderEvent struct {
	Symbol string
	Side   model.Side
	Qty    int
	Price  float64
	Handle string
	Kind   string // "PLACE" or "FLATTEN"
}

// CancelEvent records one cancel-and-reconcile pass for a holding.
type CancelEvent struct {
	Symbol      string
	Side        model.Side
	Filled      int
	CashAfter   float64
	SharesAfter int
}

// Journal persists the session's audit trail for later analysis. Detector
// state is deliberately not journaled; stop-line memory is session-scoped.
type Journal interface {
	RecordOrder(evt *OrderEvent) error
	RecordCancel(evt *CancelEvent) error
	RecordSessionEnd(sum *model.SessionSummary) error
	Close() error
}
