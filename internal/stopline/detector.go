package stopline

import (
	"sort"

	"StopLineTrader/internal/metrics"
	"StopLineTrader/internal/model"
)

// Config holds the detector parameters.
type Config struct {
	Window      int     // sub-window length in minutes
	Interval    int     // sub-windows consumed per detector tick
	Proportion  float64 // percentile rank used for the confidence bar
	PickNearest bool    // level query: true = nearest qualifying level, false = legacy full-scan result
}

// HistoryLen is the number of minute prices one detector tick consumes.
func (c Config) HistoryLen() int { return c.Window + c.Interval - 1 }

// noSupportBar makes an empty support side pass nothing: with no evidence of a
// floor the engine must not buy blind. An empty resistance side keeps a bar of
// zero so any recorded ceiling counts. The asymmetry is intentional.
const noSupportBar = 1000000

// Level is one stop line with its current confidence, as seen by queries.
type Level struct {
	Price      float64
	Confidence float64
}

// Book holds all stop lines for one security, both sides, plus the ordered
// confidence views and bars the level queries read. Lines are never deleted
// within a session and their counts only ever grow.
type Book struct {
	support    map[float64]*model.StopLine
	resistance map[float64]*model.StopLine

	// Support ordered descending by price, resistance ascending. Rebuilt
	// together with the bars after every observation pass.
	orderedSupport    []Level
	orderedResistance []Level
	supportBar        float64
	resistanceBar     float64
}

func newBook() *Book {
	return &Book{
		support:       make(map[float64]*model.StopLine),
		resistance:    make(map[float64]*model.StopLine),
		supportBar:    noSupportBar,
		resistanceBar: 0,
	}
}

// Detector turns minute price windows into confidence-scored stop lines, one
// Book per security. All state is scoped to a single trading session.
type Detector struct {
	cfg   Config
	books map[string]*Book
}

// New creates an empty Detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg, books: make(map[string]*Book)}
}

// Reset drops all accumulated lines at the start of a new session.
func (d *Detector) Reset() {
	d.books = make(map[string]*Book)
}

func (d *Detector) book(symbol string) *Book {
	b, ok := d.books[symbol]
	if !ok {
		b = newBook()
		d.books[symbol] = b
	}
	return b
}

// Observe consumes the most recent Window+Interval-1 minute prices for symbol
// (most-recent-last) as Interval overlapping sub-windows shifted by one minute
// each, classifies every sub-window midpoint, then recomputes the ordered
// views and confidence bars. Short histories are skipped silently.
func (d *Detector) Observe(symbol string, prices []float64) {
	need := d.cfg.HistoryLen()
	if len(prices) < need {
		return
	}
	prices = prices[len(prices)-need:]

	rounded := make([]float64, len(prices))
	for i, p := range prices {
		rounded[i] = model.RoundCents(p)
	}

	b := d.book(symbol)
	mid := d.cfg.Window / 2
	for i := 0; i < d.cfg.Interval; i++ {
		b.classify(rounded[i:i+d.cfg.Window], mid)
	}
	b.recompute(d.cfg.Proportion)
}

// classify applies the four mutually exclusive midpoint branches to one
// sub-window. Ties go to the max/min branches first.
func (b *Book) classify(win []float64, mid int) {
	p := win[mid]
	switch {
	case p == sliceMax(win):
		confirm(b.resistance, p)
		metrics.IncLineConfirmed("resistance")
	case p == sliceMin(win):
		confirm(b.support, p)
		metrics.IncLineConfirmed("support")
	case p > sliceMin(win[:mid]) && p < sliceMax(win[mid+1:]):
		// Midpoint failed to be a local max where a resistance was recorded.
		if l, ok := b.resistance[p]; ok {
			l.Contradicts++
			metrics.IncLineContradicted("resistance")
		}
	case p < sliceMax(win[:mid]) && p > sliceMin(win[mid+1:]):
		if l, ok := b.support[p]; ok {
			l.Contradicts++
			metrics.IncLineContradicted("support")
		}
	}
}

func confirm(lines map[float64]*model.StopLine, price float64) {
	l, ok := lines[price]
	if !ok {
		l = &model.StopLine{Price: price}
		lines[price] = l
	}
	l.Confirms++
}

func (b *Book) recompute(proportion float64) {
	b.orderedResistance = orderedByPrice(b.resistance, false)
	b.orderedSupport = orderedByPrice(b.support, true)
	b.resistanceBar = confidenceBar(b.orderedResistance, proportion, 0)
	b.supportBar = confidenceBar(b.orderedSupport, proportion, noSupportBar)
}

func orderedByPrice(lines map[float64]*model.StopLine, descending bool) []Level {
	out := make([]Level, 0, len(lines))
	for _, l := range lines {
		out = append(out, Level{Price: l.Price, Confidence: l.Confidence()})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

// confidenceBar ranks a side's lines by confidence descending and takes the
// value at rank floor(n*proportion); an empty side yields the fallback.
func confidenceBar(lines []Level, proportion float64, empty float64) float64 {
	if len(lines) == 0 {
		return empty
	}
	ranked := make([]float64, len(lines))
	for i, l := range lines {
		ranked[i] = l.Confidence
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ranked)))
	idx := int(float64(len(ranked)) * proportion)
	if idx >= len(ranked) {
		idx = len(ranked) - 1
	}
	return ranked[idx]
}

// SupportBelow returns the qualifying support level strictly below price. The
// legacy scan walks the full descending list keeping the last match, so the
// result is the lowest qualifying level; PickNearest stops at the first.
func (d *Detector) SupportBelow(symbol string, price float64) (float64, bool) {
	b, ok := d.books[symbol]
	if !ok {
		return 0, false
	}
	return pickLevel(b.orderedSupport, b.supportBar, d.cfg.PickNearest, func(level float64) bool {
		return level < price
	})
}

// ResistanceAbove is the sell-side mirror of SupportBelow.
func (d *Detector) ResistanceAbove(symbol string, price float64) (float64, bool) {
	b, ok := d.books[symbol]
	if !ok {
		return 0, false
	}
	return pickLevel(b.orderedResistance, b.resistanceBar, d.cfg.PickNearest, func(level float64) bool {
		return level > price
	})
}

func pickLevel(lines []Level, bar float64, pickFirst bool, qualifies func(float64) bool) (float64, bool) {
	var price float64
	found := false
	for _, l := range lines {
		if l.Confidence >= bar && qualifies(l.Price) {
			price = l.Price
			found = true
			if pickFirst {
				break
			}
		}
	}
	return price, found
}

// ActiveLines returns the lines currently passing each side's confidence bar,
// support first, for status reports.
func (d *Detector) ActiveLines(symbol string) (support, resistance []Level) {
	b, ok := d.books[symbol]
	if !ok {
		return nil, nil
	}
	for _, l := range b.orderedSupport {
		if l.Confidence >= b.supportBar {
			support = append(support, l)
		}
	}
	for _, l := range b.orderedResistance {
		if l.Confidence >= b.resistanceBar {
			resistance = append(resistance, l)
		}
	}
	return support, resistance
}

func sliceMax(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func sliceMin(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
