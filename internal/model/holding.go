package model

import "time"

// HoldingSnapshot is a read-only copy of one holding's bookkeeping, used for
// reports and journaling.
type HoldingSnapshot struct {
	Symbol        string
	Cash          float64
	Shares        int
	OpenBuyPrice  float64
	OpenBuyQty    int
	OpenSellPrice float64
	OpenSellQty   int
}

// PositionSummary is one broker-side position at session end.
type PositionSummary struct {
	Symbol string
	Shares int
}

// SessionSummary describes the forced end-of-day flatten.
type SessionSummary struct {
	EndCash        float64
	CanceledOrders int
	Positions      []PositionSummary
	FlattenedAt    time.Time
}
