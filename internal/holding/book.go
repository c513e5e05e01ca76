package holding

import "StopLineTrader/internal/metrics"

// Book owns the active holdings and the shared session cash pool. Allocation
// carves cash out of the pool; a fully unwound holding returns its cash to the
// pool exactly once on release. The Book is owned by the engine's single
// logical thread and does no locking of its own.
type Book struct {
	pool     float64
	holdings map[string]*Holding
	order    []string // insertion order, for deterministic iteration
}

// NewBook creates an empty book with the given session cash pool.
func NewBook(cash float64) *Book {
	b := &Book{holdings: make(map[string]*Holding)}
	b.Reset(cash)
	return b
}

// Reset discards all holdings and restarts the pool (start of a new session).
func (b *Book) Reset(cash float64) {
	b.pool = cash
	b.holdings = make(map[string]*Holding)
	b.order = nil
	metrics.SetPoolCash(b.pool)
	metrics.SetActiveHoldings(0)
}

// Pool returns the unallocated session cash.
func (b *Book) Pool() float64 { return b.pool }

// Len returns the number of active holdings.
func (b *Book) Len() int { return len(b.holdings) }

// Get returns the holding for symbol, if active.
func (b *Book) Get(symbol string) (*Holding, bool) {
	h, ok := b.holdings[symbol]
	return h, ok
}

// Symbols returns the active symbols in allocation order.
func (b *Book) Symbols() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Allocate carves cash out of the pool for a new holding. The caller decides
// the per-holding amount; allocating an already-active symbol is a no-op.
func (b *Book) Allocate(symbol string, cash float64) *Holding {
	if h, ok := b.holdings[symbol]; ok {
		return h
	}
	if cash > b.pool {
		cash = b.pool
	}
	h := &Holding{Symbol: symbol, Cash: cash}
	b.pool -= cash
	b.holdings[symbol] = h
	b.order = append(b.order, symbol)
	metrics.SetPoolCash(b.pool)
	metrics.SetActiveHoldings(len(b.holdings))
	return h
}

// Release returns the holding's remaining cash to the pool and removes it
// from the active set.
func (b *Book) Release(symbol string) {
	h, ok := b.holdings[symbol]
	if !ok {
		return
	}
	b.pool += h.Cash
	delete(b.holdings, symbol)
	for i, s := range b.order {
		if s == symbol {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	metrics.SetPoolCash(b.pool)
	metrics.SetActiveHoldings(len(b.holdings))
}
