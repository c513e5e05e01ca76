package engine

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"StopLineTrader/internal/broker"
	"StopLineTrader/internal/holding"
	"StopLineTrader/internal/journal"
	"StopLineTrader/internal/metrics"
	"StopLineTrader/internal/model"
	"StopLineTrader/internal/stopline"
	"StopLineTrader/internal/universe"
)

// maxCostSentinel caps the buy reference price when no position exists, so
// min(currentPrice, costBasis) defaults to the current price.
const maxCostSentinel = 10000000

// Config holds the per-session trading parameters.
type Config struct {
	SessionCash  float64
	MaxPositions int
	CoolOutTime  int // minutes after open before the detector warms up
	Detector     stopline.Config
}

// Session owns one trading day's state: the stop-line detector, the holding
// book, the candidate rotation, and the already-stopped gate. The minute clock
// drives it single-threaded, but notifier commands arrive from another
// goroutine, so public methods serialize behind a mutex.
type Session struct {
	mu sync.Mutex

	cfg     Config
	broker  broker.Broker
	uni     universe.Provider
	journal journal.Journal

	detector *stopline.Detector
	book     *holding.Book
	symbols  []string // today's candidates, in universe order
	rotation *universe.Cycle
	minute   int // minutes since session start
	stopped  bool
}

// NewSession wires a session; call StartDay before the first tick.
func NewSession(cfg Config, b broker.Broker, uni universe.Provider, j journal.Journal) *Session {
	return &Session{
		cfg:      cfg,
		broker:   b,
		uni:      uni,
		journal:  j,
		detector: stopline.New(cfg.Detector),
		book:     holding.NewBook(cfg.SessionCash),
		rotation: universe.NewCycle(nil),
	}
}

// StartDay pulls today's candidates and resets all session-scoped state.
func (s *Session) StartDay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols, err := s.uni.Candidates()
	if err != nil {
		return fmt.Errorf("candidates: %w", err)
	}
	s.symbols = symbols
	s.rotation = universe.NewCycle(symbols)
	s.detector.Reset()
	s.book.Reset(s.cfg.SessionCash)
	s.minute = 0
	s.stopped = false
	log.Printf("[INFO] session start: %d candidates, cash %.2f", len(symbols), s.cfg.SessionCash)
	return nil
}

// OnMinute advances the session clock; the scheduler calls it once per minute
// before dispatching any tick action.
func (s *Session) OnMinute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minute++
}

// Stopped reports whether the end-of-day gate has been set.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Detect runs one stop-line detector tick over every candidate. It is a no-op
// until the warm-up period has elapsed and after the session gate is set.
func (s *Session) Detect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.minute < s.cfg.Detector.Window+s.cfg.CoolOutTime {
		return
	}
	need := s.cfg.Detector.HistoryLen()
	for _, sym := range s.symbols {
		prices, err := s.broker.PriceHistory(sym, need)
		if err != nil {
			log.Printf("[WARN] detect %s: %v", sym, err)
			continue
		}
		s.detector.Observe(sym, prices)
	}
}

// RebalanceBuy allocates free position slots from the candidate rotation, then
// re-evaluates the resting buy for every active holding.
func (s *Session) RebalanceBuy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.allocateHoldings()
	for _, sym := range s.book.Symbols() {
		h, ok := s.book.Get(sym)
		if !ok {
			continue
		}
		s.rebalanceBuyOne(sym, h)
	}
}

// allocateHoldings rotates new candidates into free slots, splitting the
// remaining pool evenly across the slots still open at each step.
func (s *Session) allocateHoldings() {
	for range s.symbols {
		slots := s.cfg.MaxPositions - s.book.Len()
		if slots <= 0 {
			break
		}
		sym, ok := s.rotation.Next()
		if !ok {
			break
		}
		if _, held := s.book.Get(sym); held {
			continue
		}
		s.book.Allocate(sym, s.book.Pool()/float64(slots))
	}
}

func (s *Session) rebalanceBuyOne(sym string, h *holding.Holding) {
	cur, err := s.broker.CurrentPrice(sym)
	if err != nil {
		log.Printf("[WARN] buy %s: current price: %v", sym, err)
		return
	}
	cur = model.RoundCents(cur)

	cost := float64(maxCostSentinel)
	if c, ok := s.broker.CostBasis(sym); ok {
		cost = model.RoundCents(c)
	}

	buyPrice, haveLevel := s.detector.SupportBelow(sym, math.Min(cur, cost))

	// Cancel-before-replace: a resting buy at another price (or with no target
	// left at all) is reconciled first.
	if h.OpenBuyPrice != 0 && (!haveLevel || h.OpenBuyPrice != buyPrice) {
		s.cancelOpen(sym, h, model.SideBuy)
	}
	// Stale order: the venue shows nothing left open even though we track an
	// open buy; reconcile the fills.
	if h.OpenBuyQty != 0 {
		if unfilled, err := s.openAmount(sym, model.SideBuy, false); err == nil && unfilled == 0 {
			s.cancelOpen(sym, h, model.SideBuy)
		}
	}

	if !haveLevel {
		return
	}
	qty := int(h.Cash / buyPrice)
	if qty <= 0 {
		return
	}
	handle, err := s.broker.PlaceOrder(sym, qty, buyPrice)
	if err != nil {
		// Not reflected in the holding; the next tick re-evaluates.
		log.Printf("[WARN] place buy %s: %v", sym, err)
		return
	}
	h.OrderBuy(qty, buyPrice)
	metrics.IncOrderPlaced(string(model.SideBuy))
	s.journalOrder(&journal.OrderEvent{Symbol: sym, Side: model.SideBuy, Qty: qty, Price: buyPrice, Handle: handle, Kind: "PLACE"})
}

// RebalanceSell re-evaluates the resting sell for every holding and releases
// fully unwound holdings back to the pool.
func (s *Session) RebalanceSell() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	for _, sym := range s.symbols {
		h, ok := s.book.Get(sym)
		if !ok {
			continue
		}
		s.rebalanceSellOne(sym, h)
		if h.Unwound() {
			log.Printf("[INFO] %s fully unwound, returning %.2f to pool", sym, h.Cash)
			s.book.Release(sym)
		}
	}
}

func (s *Session) rebalanceSellOne(sym string, h *holding.Holding) {
	cur, err := s.broker.CurrentPrice(sym)
	if err != nil {
		log.Printf("[WARN] sell %s: current price: %v", sym, err)
		return
	}
	cur = model.RoundCents(cur)
	cost, hasCost := s.broker.CostBasis(sym)
	if hasCost {
		cost = model.RoundCents(cost)
	}

	sellPrice, haveTarget := s.detector.ResistanceAbove(sym, cur)

	// Loss cut: underwater with no evidence of a floor below the price.
	if hasCost && cur < cost {
		if _, ok := s.detector.SupportBelow(sym, cur); !ok {
			sellPrice, haveTarget = cur, true
		}
	}
	// Profit lock: no ceiling on record but the price already clears cost.
	if !haveTarget && (!hasCost || cur > cost) {
		sellPrice, haveTarget = cur, true
	}
	// Stay strictly profitable while pricing competitively.
	if hasCost && haveTarget && sellPrice-0.01 > cost {
		sellPrice = model.RoundCents(sellPrice - 0.01)
	}

	if h.OpenSellPrice != 0 && haveTarget && h.OpenSellPrice != sellPrice {
		s.cancelOpen(sym, h, model.SideSell)
	}
	if h.OpenSellQty != 0 {
		if unfilled, err := s.openAmount(sym, model.SideSell, false); err == nil && unfilled == 0 {
			s.cancelOpen(sym, h, model.SideSell)
		}
	}

	if !haveTarget {
		return
	}
	qty := s.broker.SharesHeld(sym) - h.OpenSellQty
	if qty <= 0 {
		return
	}
	handle, err := s.broker.PlaceOrder(sym, -qty, sellPrice)
	if err != nil {
		log.Printf("[WARN] place sell %s: %v", sym, err)
		return
	}
	h.OrderSell(qty, sellPrice)
	metrics.IncOrderPlaced(string(model.SideSell))
	s.journalOrder(&journal.OrderEvent{Symbol: sym, Side: model.SideSell, Qty: qty, Price: sellPrice, Handle: handle, Kind: "PLACE"})
}

// openAmount sums the unfilled remainder of the venue's open orders for one
// side of a symbol, optionally cancelling them along the way. The venue's live
// view always wins over internal counters.
func (s *Session) openAmount(sym string, side model.Side, cancel bool) (int, error) {
	orders, err := s.broker.OpenOrders(sym)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, o := range orders {
		if (side == model.SideBuy) != o.IsBuy() {
			continue
		}
		log.Printf("[INFO] open %s order: %d of %s | filled: %d", strings.ToLower(string(side)), o.Qty, sym, o.Filled)
		if cancel {
			if err := s.broker.CancelOrder(o.Handle); err != nil {
				log.Printf("[WARN] cancel %s: %v", o.Handle, err)
			}
		}
		total += o.Unfilled()
	}
	return total, nil
}

// cancelOpen cancels a holding's open orders on one side and settles the
// bookkeeping against the broker-reported fill.
func (s *Session) cancelOpen(sym string, h *holding.Holding, side model.Side) {
	unfilled, err := s.openAmount(sym, side, true)
	if err != nil {
		log.Printf("[WARN] cancel open %s orders %s: %v", side, sym, err)
		return
	}
	var filled int
	if side == model.SideBuy {
		filled = h.OpenBuyQty - unfilled
		h.ReconcileBuyCancel(filled)
	} else {
		filled = h.OpenSellQty - unfilled
		h.ReconcileSellCancel(filled)
	}
	metrics.IncOrderCanceled(string(side))
	s.journalCancel(&journal.CancelEvent{Symbol: sym, Side: side, Filled: filled, CashAfter: h.Cash, SharesAfter: h.Shares})
}

// Flatten cancels every open order for every tracked security (trusting the
// venue's live open-order query), submits a flatten-to-zero order for every
// held position, returns all holding cash to the pool, and sets the session
// gate. Safe to invoke repeatedly; any call after the first is a no-op.
func (s *Session) Flatten() *model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	log.Println("[INFO] ACTION: clear positions")

	for _, sym := range s.symbols {
		if h, ok := s.book.Get(sym); ok {
			s.cancelOpen(sym, h, model.SideBuy)
			s.cancelOpen(sym, h, model.SideSell)
		}
	}

	// Belt and braces: cancel whatever the venue still reports open.
	canceled := 0
	for _, sym := range s.symbols {
		orders, err := s.broker.OpenOrders(sym)
		if err != nil {
			log.Printf("[WARN] flatten: open orders %s: %v", sym, err)
			continue
		}
		for _, o := range orders {
			if err := s.broker.CancelOrder(o.Handle); err != nil {
				log.Printf("[WARN] flatten: cancel %s: %v", o.Handle, err)
				continue
			}
			canceled++
		}
	}

	sum := &model.SessionSummary{FlattenedAt: time.Now(), CanceledOrders: canceled}
	for _, sym := range s.symbols {
		shares := s.broker.SharesHeld(sym)
		if shares == 0 {
			continue
		}
		log.Printf("[INFO] PORTFOLIO: day end SECURITY: %s AMOUNT: %d", sym, shares)
		sum.Positions = append(sum.Positions, model.PositionSummary{Symbol: sym, Shares: shares})
		handle, err := s.broker.PlaceOrder(sym, -shares, 0)
		if err != nil {
			log.Printf("[WARN] flatten %s: %v", sym, err)
			continue
		}
		s.journalOrder(&journal.OrderEvent{Symbol: sym, Side: model.SideSell, Qty: shares, Price: 0, Handle: handle, Kind: "FLATTEN"})
	}

	for _, sym := range s.book.Symbols() {
		s.book.Release(sym)
	}
	sum.EndCash = s.book.Pool()
	log.Printf("[INFO] PORTFOLIO: day end CASH: %.2f", sum.EndCash)

	s.stopped = true
	metrics.IncSessionFlattened()
	if err := s.journal.RecordSessionEnd(sum); err != nil {
		log.Printf("[ERROR] journal session end: %v", err)
	}
	return sum
}

// Snapshot returns the pool and per-holding bookkeeping for status reports.
func (s *Session) Snapshot() (pool float64, holdings []model.HoldingSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool = s.book.Pool()
	for _, sym := range s.book.Symbols() {
		if h, ok := s.book.Get(sym); ok {
			holdings = append(holdings, h.Snapshot())
		}
	}
	return pool, holdings
}

// SymbolLevels pairs a symbol with its currently active stop lines.
type SymbolLevels struct {
	Symbol     string
	Support    []stopline.Level
	Resistance []stopline.Level
}

// ActiveLevels lists the active stop lines for every candidate that has any.
func (s *Session) ActiveLevels() []SymbolLevels {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SymbolLevels
	for _, sym := range s.symbols {
		support, resistance := s.detector.ActiveLines(sym)
		if len(support) == 0 && len(resistance) == 0 {
			continue
		}
		out = append(out, SymbolLevels{Symbol: sym, Support: support, Resistance: resistance})
	}
	return out
}

func (s *Session) journalOrder(evt *journal.OrderEvent) {
	if err := s.journal.RecordOrder(evt); err != nil {
		log.Printf("[ERROR] journal order: %v", err)
	}
}

func (s *Session) journalCancel(evt *journal.CancelEvent) {
	if err := s.journal.RecordCancel(evt); err != nil {
		log.Printf("[ERROR] journal cancel: %v", err)
	}
}
