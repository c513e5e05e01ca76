package universe

import (
	"errors"
	"log"
	"sort"

	"StopLineTrader/internal/broker"
)

// Ranked orders a base provider's candidates by the percent difference between
// a short and a long moving average of recent prices, ascending, and keeps the
// bottom MaxCandidates — the securities that have pulled back the furthest
// relative to their longer trend.
type Ranked struct {
	Base          Provider
	Broker        broker.Broker
	ShortWindow   int
	LongWindow    int
	MaxCandidates int
}

func (r *Ranked) Name() string { return "ranked" }

type rankedSymbol struct {
	symbol string
	diff   float64
}

func (r *Ranked) Candidates() ([]string, error) {
	base, err := r.Base.Candidates()
	if err != nil {
		return nil, err
	}

	var scored []rankedSymbol
	for _, sym := range base {
		prices, err := r.Broker.PriceHistory(sym, r.LongWindow)
		if err != nil {
			log.Printf("[WARN] universe: history for %s: %v, skipping", sym, err)
			continue
		}
		longAvg, err := sma(prices, r.LongWindow)
		if err != nil {
			continue
		}
		shortAvg, err := sma(prices, r.ShortWindow)
		if err != nil {
			continue
		}
		scored = append(scored, rankedSymbol{symbol: sym, diff: (shortAvg - longAvg) / longAvg})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].diff < scored[j].diff })
	if r.MaxCandidates > 0 && len(scored) > r.MaxCandidates {
		scored = scored[:r.MaxCandidates]
	}

	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.symbol
	}
	return out, nil
}

// sma computes the simple moving average of the trailing period prices.
func sma(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}
