package engine

import (
	"math"
	"testing"

	"StopLineTrader/internal/broker"
	"StopLineTrader/internal/journal"
	"StopLineTrader/internal/stopline"
	"StopLineTrader/internal/universe"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func newTestSession(t *testing.T, pb *broker.PaperBroker, symbols []string, cash float64, maxPositions int) *Session {
	t.Helper()
	s := NewSession(Config{
		SessionCash:  cash,
		MaxPositions: maxPositions,
		CoolOutTime:  0,
		Detector:     stopline.Config{Window: 3, Interval: 1, Proportion: 0.25},
	}, pb, &universe.Static{Symbols: symbols}, journal.NewNoopJournal())
	if err := s.StartDay(); err != nil {
		t.Fatalf("start day: %v", err)
	}
	return s
}

// warmup advances the clock past the detector warm-up period.
func warmup(s *Session) {
	for i := 0; i < 3; i++ {
		s.OnMinute()
	}
}

func TestAllocation_SplitsPoolAcrossSlots(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("AAA", []float64{1.00})
	pb.SeedHistory("BBB", []float64{1.00})
	pb.SeedHistory("CCC", []float64{1.00})
	s := newTestSession(t, pb, []string{"AAA", "BBB", "CCC"}, 1000, 2)

	s.RebalanceBuy()
	pool, holdings := s.Snapshot()
	if !approx(pool, 0) {
		t.Errorf("expected pool drained, got %.2f", pool)
	}
	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings (position cap), got %d", len(holdings))
	}
	for _, h := range holdings {
		if !approx(h.Cash, 500) {
			t.Errorf("expected even 500 split, %s got %.2f", h.Symbol, h.Cash)
		}
	}
}

func TestDetect_GatedByWarmup(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("ABC", []float64{2.00, 1.00, 2.00})
	s := newTestSession(t, pb, []string{"ABC"}, 100, 1)

	s.Detect() // minute 0: still warming up
	s.RebalanceBuy()
	orders, _ := pb.OpenOrders("ABC")
	if len(orders) != 0 {
		t.Fatalf("no order may be placed before the detector warms up, got %d", len(orders))
	}
}

func TestRebalanceBuy_PlacesOrderAtSupport(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("ABC", []float64{2.00, 1.00, 2.00}) // support at 1.00
	s := newTestSession(t, pb, []string{"ABC"}, 100, 1)
	warmup(s)
	s.Detect()

	s.RebalanceBuy()
	orders, _ := pb.OpenOrders("ABC")
	if len(orders) != 1 {
		t.Fatalf("expected 1 open order, got %d", len(orders))
	}
	if orders[0].Qty != 100 {
		t.Errorf("expected all-in 100 shares at 1.00, got %d", orders[0].Qty)
	}

	_, holdings := s.Snapshot()
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	h := holdings[0]
	if !approx(h.Cash, 0) || h.OpenBuyQty != 100 || h.OpenBuyPrice != 1.00 {
		t.Errorf("holding bookkeeping off: cash %.2f, open buy %d @ %.2f", h.Cash, h.OpenBuyQty, h.OpenBuyPrice)
	}

	// Same target next tick: the resting order stays put.
	s.RebalanceBuy()
	orders, _ = pb.OpenOrders("ABC")
	if len(orders) != 1 {
		t.Errorf("unchanged target must not churn the order, got %d open", len(orders))
	}
}

func TestRebalanceBuy_ReconcilesStaleFilledOrder(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("ABC", []float64{2.00, 1.00, 2.00})
	s := newTestSession(t, pb, []string{"ABC"}, 100, 1)
	warmup(s)
	s.Detect()
	s.RebalanceBuy()

	// The venue fills the whole resting buy between ticks.
	orders, _ := pb.OpenOrders("ABC")
	if err := pb.Fill(orders[0].Handle, 100); err != nil {
		t.Fatalf("fill: %v", err)
	}

	s.RebalanceBuy()
	_, holdings := s.Snapshot()
	h := holdings[0]
	if h.Shares != 100 {
		t.Errorf("filled buy must convert to shares, got %d", h.Shares)
	}
	if h.OpenBuyQty != 0 {
		t.Errorf("open buy must clear after reconcile, got %d", h.OpenBuyQty)
	}
	if pb.SharesHeld("ABC") != 100 {
		t.Errorf("venue position mismatch: %d", pb.SharesHeld("ABC"))
	}
}

func TestRebalanceSell_ProfitLockAndShave(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("ABC", []float64{2.00, 1.00, 2.00})
	s := newTestSession(t, pb, []string{"ABC"}, 100, 1)
	warmup(s)
	s.Detect()
	s.RebalanceBuy()
	orders, _ := pb.OpenOrders("ABC")
	pb.Fill(orders[0].Handle, 100)
	s.RebalanceBuy() // reconcile the fill

	// Price clears cost with no resistance on record: sell at the price,
	// shaved one cent while that stays above cost.
	pb.SetPrice("ABC", 2.50)
	s.RebalanceSell()
	orders, _ = pb.OpenOrders("ABC")
	if len(orders) != 1 {
		t.Fatalf("expected 1 open sell, got %d", len(orders))
	}
	if orders[0].Qty != -100 {
		t.Errorf("expected sell of full position, got %d", orders[0].Qty)
	}
	_, holdings := s.Snapshot()
	if holdings[0].OpenSellPrice != 2.49 {
		t.Errorf("expected shaved sell price 2.49, got %.2f", holdings[0].OpenSellPrice)
	}
}

func TestRebalanceSell_ReleasesUnwoundHolding(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("ABC", []float64{2.00, 1.00, 2.00})
	s := newTestSession(t, pb, []string{"ABC"}, 100, 1)
	warmup(s)
	s.Detect()
	s.RebalanceBuy()
	orders, _ := pb.OpenOrders("ABC")
	pb.Fill(orders[0].Handle, 100)
	s.RebalanceBuy()

	pb.SetPrice("ABC", 2.50)
	s.RebalanceSell() // resting sell @ 2.49
	pb.SetPrice("ABC", 2.60)
	s.RebalanceSell() // fill reconciled, holding unwound

	pool, holdings := s.Snapshot()
	if len(holdings) != 0 {
		t.Fatalf("unwound holding must leave the book, got %d", len(holdings))
	}
	if !approx(pool, 249) { // 100 shares bought at 1.00, sold at 2.49
		t.Errorf("expected pool 249 after the round trip, got %.2f", pool)
	}
}

func TestRebalanceSell_LossCutWithoutSupport(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("XYZ", []float64{4.50, 4.50, 4.50})
	pb.SetPosition("XYZ", 10, 5.00)
	s := newTestSession(t, pb, []string{"XYZ"}, 100, 1)

	s.RebalanceBuy() // allocates the holding; no support, no buy
	s.RebalanceSell()

	orders, _ := pb.OpenOrders("XYZ")
	if len(orders) != 1 {
		t.Fatalf("expected 1 loss-cut sell, got %d open orders", len(orders))
	}
	if orders[0].Qty != -10 {
		t.Errorf("expected sell of 10 shares, got %d", orders[0].Qty)
	}
	_, holdings := s.Snapshot()
	// Underwater with no floor below: sell at the current price, no shave.
	if holdings[0].OpenSellPrice != 4.50 {
		t.Errorf("expected loss-cut at 4.50, got %.2f", holdings[0].OpenSellPrice)
	}
}

func TestFlatten_IdempotentAndComplete(t *testing.T) {
	pb := broker.NewPaperBroker()
	pb.SeedHistory("XYZ", []float64{4.50, 4.50, 4.50})
	pb.SetPosition("XYZ", 10, 5.00)
	s := newTestSession(t, pb, []string{"XYZ"}, 100, 1)
	s.RebalanceBuy()
	s.RebalanceSell() // resting loss-cut sell

	sum := s.Flatten()
	if sum == nil {
		t.Fatal("first flatten must return a summary")
	}
	if len(sum.Positions) != 1 || sum.Positions[0].Shares != 10 {
		t.Fatalf("expected the 10-share position in the summary, got %+v", sum.Positions)
	}
	if !approx(sum.EndCash, 100) {
		t.Errorf("expected all session cash back in the pool, got %.2f", sum.EndCash)
	}
	if pb.SharesHeld("XYZ") != 0 {
		t.Errorf("market flatten must zero the position, held %d", pb.SharesHeld("XYZ"))
	}
	if orders, _ := pb.OpenOrders(""); len(orders) != 0 {
		t.Errorf("no order may remain open after flatten, got %d", len(orders))
	}
	if !s.Stopped() {
		t.Error("session must be stopped after flatten")
	}

	if s.Flatten() != nil {
		t.Error("second flatten must be a no-op")
	}

	// Every tick action is gated once stopped.
	s.RebalanceBuy()
	s.RebalanceSell()
	s.Detect()
	if orders, _ := pb.OpenOrders(""); len(orders) != 0 {
		t.Errorf("stopped session must not place orders, got %d", len(orders))
	}
}
