package broker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"StopLineTrader/internal/model"
)

// PaperBroker is an in-memory venue used for dry runs and tests. Prices are
// pushed in via SetPrice; resting limit orders fill when the price crosses
// their limit. Partial fills can be forced with Fill to simulate a live venue
// filling between ticks.
type PaperBroker struct {
	mu        sync.Mutex
	prices    map[string][]float64
	positions map[string]*paperPosition
	orders    map[string]*paperOrder
}

type paperPosition struct {
	shares int
	cost   float64 // average cost basis
}

type paperOrder struct {
	symbol string
	qty    int // signed: positive buys, negative sells
	filled int // unsigned share count
	limit  float64
}

// NewPaperBroker creates an empty paper venue.
func NewPaperBroker() *PaperBroker {
	return &PaperBroker{
		prices:    make(map[string][]float64),
		positions: make(map[string]*paperPosition),
		orders:    make(map[string]*paperOrder),
	}
}

func (p *PaperBroker) Name() string { return "paper" }

// SetPrice appends a new minute price and fills any resting order the price
// crosses: buys at or below the new price's limit, sells at or above it.
func (p *PaperBroker) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = append(p.prices[symbol], price)

	for handle, o := range p.orders {
		if o.symbol != symbol {
			continue
		}
		if (o.qty > 0 && price <= o.limit) || (o.qty < 0 && price >= o.limit) {
			p.fillLocked(handle, o.remaining(), o.limit)
		}
	}
}

// SeedHistory replaces the symbol's full minute history.
func (p *PaperBroker) SeedHistory(symbol string, prices []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = append([]float64(nil), prices...)
}

// SetPosition installs a live position directly (test setup).
func (p *PaperBroker) SetPosition(symbol string, shares int, cost float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[symbol] = &paperPosition{shares: shares, cost: cost}
}

func (o *paperOrder) remaining() int {
	if o.qty > 0 {
		return o.qty - o.filled
	}
	return -o.qty - o.filled
}

// Fill forces qty shares of the order to fill at its limit price (or the
// current price for market orders). Used to simulate partial external fills.
func (p *PaperBroker) Fill(handle string, qty int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[handle]
	if !ok {
		return fmt.Errorf("fill: unknown order %s", handle)
	}
	if qty > o.remaining() {
		qty = o.remaining()
	}
	p.fillLocked(handle, qty, o.limit)
	return nil
}

func (p *PaperBroker) fillLocked(handle string, qty int, price float64) {
	o := p.orders[handle]
	if o == nil || qty <= 0 {
		return
	}
	pos, ok := p.positions[o.symbol]
	if !ok {
		pos = &paperPosition{}
		p.positions[o.symbol] = pos
	}
	if o.qty > 0 {
		if pos.shares+qty > 0 {
			pos.cost = (pos.cost*float64(pos.shares) + price*float64(qty)) / float64(pos.shares+qty)
		}
		pos.shares += qty
	} else {
		pos.shares -= qty
		if pos.shares <= 0 {
			pos.shares = 0
			pos.cost = 0
			delete(p.positions, o.symbol)
		}
	}
	o.filled += qty
	if o.remaining() == 0 {
		delete(p.orders, handle)
	}
}

func (p *PaperBroker) CurrentPrice(symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hist := p.prices[symbol]
	if len(hist) == 0 {
		return 0, fmt.Errorf("no price seen for %s", symbol)
	}
	return hist[len(hist)-1], nil
}

func (p *PaperBroker) PriceHistory(symbol string, count int) ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hist := p.prices[symbol]
	if len(hist) == 0 {
		return nil, fmt.Errorf("no history for %s", symbol)
	}
	if len(hist) > count {
		hist = hist[len(hist)-count:]
	}
	return append([]float64(nil), hist...), nil
}

func (p *PaperBroker) CostBasis(symbol string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[symbol]
	if !ok || pos.shares == 0 {
		return 0, false
	}
	return pos.cost, true
}

func (p *PaperBroker) SharesHeld(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[symbol]; ok {
		return pos.shares
	}
	return 0
}

func (p *PaperBroker) PlaceOrder(symbol string, qty int, limit float64) (string, error) {
	if qty == 0 {
		return "", errors.New("order quantity must be non-zero")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	handle := uuid.New().String()
	o := &paperOrder{symbol: symbol, qty: qty, limit: limit}
	p.orders[handle] = o

	if limit <= 0 {
		// Market order: fill immediately at the last seen price.
		hist := p.prices[symbol]
		if len(hist) == 0 {
			delete(p.orders, handle)
			return "", fmt.Errorf("market order: no price seen for %s", symbol)
		}
		p.fillLocked(handle, o.remaining(), hist[len(hist)-1])
	}
	return handle, nil
}

func (p *PaperBroker) OpenOrders(symbol string) ([]model.OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.OpenOrder
	for handle, o := range p.orders {
		if symbol != "" && o.symbol != symbol {
			continue
		}
		filled := o.filled
		if o.qty < 0 {
			filled = -filled
		}
		out = append(out, model.OpenOrder{
			Symbol: o.symbol,
			Qty:    o.qty,
			Filled: filled,
			Handle: handle,
		})
	}
	return out, nil
}

func (p *PaperBroker) CancelOrder(handle string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.orders[handle]; !ok {
		return fmt.Errorf("cancel: unknown order %s", handle)
	}
	delete(p.orders, handle)
	return nil
}
