package universe

import (
	"log"

	"StopLineTrader/internal/broker"
)

// Provider supplies the day's tradeable candidates. Universe construction
// itself (fundamental screens, liquidity ranks) is an external concern; the
// implementations here only filter and order what configuration supplies.
type Provider interface {
	Candidates() ([]string, error)
	Name() string
}

// Static serves a configured symbol list minus an exclude list, optionally
// filtered to a price band.
type Static struct {
	Symbols  []string
	Exclude  []string
	MinPrice float64 // 0 disables the band
	MaxPrice float64
	Broker   broker.Broker
}

func (s *Static) Name() string { return "static" }

func (s *Static) Candidates() ([]string, error) {
	excluded := make(map[string]bool, len(s.Exclude))
	for _, sym := range s.Exclude {
		excluded[sym] = true
	}

	var out []string
	for _, sym := range s.Symbols {
		if excluded[sym] {
			continue
		}
		if s.MinPrice > 0 || s.MaxPrice > 0 {
			price, err := s.Broker.CurrentPrice(sym)
			if err != nil {
				log.Printf("[WARN] universe: price for %s: %v, skipping", sym, err)
				continue
			}
			if s.MinPrice > 0 && price < s.MinPrice {
				continue
			}
			if s.MaxPrice > 0 && price > s.MaxPrice {
				continue
			}
		}
		out = append(out, sym)
	}
	return out, nil
}

// Cycle iterates a candidate list round-robin, the rotation the buy tick uses
// when allocating new holdings.
type Cycle struct {
	symbols []string
	next    int
}

// NewCycle creates a rotation over symbols.
func NewCycle(symbols []string) *Cycle {
	return &Cycle{symbols: append([]string(nil), symbols...)}
}

// Next returns the next symbol in rotation; ok is false for an empty cycle.
func (c *Cycle) Next() (string, bool) {
	if len(c.symbols) == 0 {
		return "", false
	}
	sym := c.symbols[c.next]
	c.next = (c.next + 1) % len(c.symbols)
	return sym, true
}

// Len returns the number of symbols in rotation.
func (c *Cycle) Len() int { return len(c.symbols) }
