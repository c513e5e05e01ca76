package stopline

import (
	"testing"
)

func cfg3() Config {
	return Config{Window: 3, Interval: 1, Proportion: 0.25}
}

func TestHistoryLen(t *testing.T) {
	c := Config{Window: 10, Interval: 3}
	if got := c.HistoryLen(); got != 12 {
		t.Fatalf("expected history length 12, got %d", got)
	}
}

func TestObserve_ConfirmsResistanceAtLocalMax(t *testing.T) {
	d := New(Config{Window: 5, Interval: 1, Proportion: 0.25})
	d.Observe("ABC", []float64{1, 3, 5, 3, 1})

	price, ok := d.ResistanceAbove("ABC", 4.0)
	if !ok {
		t.Fatal("expected a resistance level above 4.0")
	}
	if price != 5.00 {
		t.Fatalf("expected resistance at 5.00, got %.2f", price)
	}
	// Strictly above: a query at the level itself must not return it.
	if _, ok := d.ResistanceAbove("ABC", 5.00); ok {
		t.Error("resistance query at the level price should not match")
	}
	// Nothing was confirmed on the support side.
	if _, ok := d.SupportBelow("ABC", 10.0); ok {
		t.Error("expected no support level")
	}
}

func TestObserve_ConfirmsSupportAtLocalMin(t *testing.T) {
	d := New(cfg3())
	d.Observe("ABC", []float64{2.00, 1.00, 2.00})

	price, ok := d.SupportBelow("ABC", 1.50)
	if !ok {
		t.Fatal("expected a support level below 1.50")
	}
	if price != 1.00 {
		t.Fatalf("expected support at 1.00, got %.2f", price)
	}
	if _, ok := d.SupportBelow("ABC", 1.00); ok {
		t.Error("support query at the level price should not match")
	}
}

func TestObserve_RoundsPricesToCents(t *testing.T) {
	d := New(cfg3())
	d.Observe("ABC", []float64{2.996, 1.004, 2.00})

	price, ok := d.SupportBelow("ABC", 2.00)
	if !ok {
		t.Fatal("expected a support level")
	}
	if price != 1.00 {
		t.Fatalf("expected level keyed at rounded 1.00, got %.2f", price)
	}
}

func TestObserve_ContradictionLowersConfidence(t *testing.T) {
	d := New(Config{Window: 5, Interval: 1, Proportion: 0.25})
	d.Observe("ABC", []float64{1, 3, 5, 3, 1})

	_, resistance := d.ActiveLines("ABC")
	if len(resistance) != 1 {
		t.Fatalf("expected 1 resistance line, got %d", len(resistance))
	}
	before := resistance[0].Confidence
	if before != 1.39 { // (1+1)*ln(2)/1 rounded
		t.Fatalf("expected confidence 1.39 after one confirm, got %.2f", before)
	}

	// Midpoint sits at the recorded 5.00 but is no longer the window max and
	// has lower prices to its left: the line failed to hold.
	d.Observe("ABC", []float64{4, 6, 5, 4, 7})
	_, resistance = d.ActiveLines("ABC")
	if len(resistance) != 1 {
		t.Fatalf("expected 1 resistance line, got %d", len(resistance))
	}
	after := resistance[0].Confidence
	if after != 0.69 { // (1+1)*ln(2)/2 rounded
		t.Fatalf("expected confidence 0.69 after contradiction, got %.2f", after)
	}
	if after >= before {
		t.Fatalf("contradiction must lower confidence: %.2f -> %.2f", before, after)
	}
}

func TestObserve_SlidesIntervalSubWindows(t *testing.T) {
	// Interval 2 consumes two overlapping windows in one tick:
	// [2,1,2] confirms support 1.00, [1,2,1] confirms resistance 2.00.
	d := New(Config{Window: 3, Interval: 2, Proportion: 0.25})
	d.Observe("ABC", []float64{2, 1, 2, 1})

	if _, ok := d.SupportBelow("ABC", 1.50); !ok {
		t.Error("expected support from the first sub-window")
	}
	if _, ok := d.ResistanceAbove("ABC", 1.50); !ok {
		t.Error("expected resistance from the second sub-window")
	}
}

func TestObserve_ShortHistorySkipped(t *testing.T) {
	d := New(Config{Window: 5, Interval: 3, Proportion: 0.25})
	d.Observe("ABC", []float64{1, 3, 5, 3}) // needs 7
	if _, ok := d.ResistanceAbove("ABC", 0); ok {
		t.Error("short history must not produce levels")
	}
}

func TestSupportBelow_LegacyKeepsFarthest(t *testing.T) {
	d := New(cfg3())
	d.Observe("ABC", []float64{3.00, 1.00, 2.00}) // support 1.00
	d.Observe("ABC", []float64{5.00, 2.00, 4.00}) // support 2.00

	price, ok := d.SupportBelow("ABC", 3.00)
	if !ok {
		t.Fatal("expected a support level below 3.00")
	}
	// Both lines qualify with equal confidence; the full scan keeps the last
	// match in descending order, the lowest level.
	if price != 1.00 {
		t.Fatalf("expected farthest support 1.00, got %.2f", price)
	}
}

func TestSupportBelow_PickNearest(t *testing.T) {
	d := New(Config{Window: 3, Interval: 1, Proportion: 0.25, PickNearest: true})
	d.Observe("ABC", []float64{3.00, 1.00, 2.00})
	d.Observe("ABC", []float64{5.00, 2.00, 4.00})

	price, ok := d.SupportBelow("ABC", 3.00)
	if !ok {
		t.Fatal("expected a support level below 3.00")
	}
	if price != 2.00 {
		t.Fatalf("expected nearest support 2.00, got %.2f", price)
	}
}

func TestConfidenceBar_FiltersWeakLines(t *testing.T) {
	d := New(Config{Window: 3, Interval: 1, Proportion: 0.25, PickNearest: true})
	d.Observe("ABC", []float64{3.00, 1.00, 2.00}) // support 1.00, one confirm
	d.Observe("ABC", []float64{5.00, 2.00, 4.00}) // support 2.00, one confirm
	d.Observe("ABC", []float64{2.00, 1.00, 3.00}) // support 1.00 again

	// With two lines and proportion 0.25 the bar is the top confidence, so
	// only the twice-confirmed 1.00 qualifies even for a nearest pick.
	price, ok := d.SupportBelow("ABC", 3.00)
	if !ok {
		t.Fatal("expected a support level")
	}
	if price != 1.00 {
		t.Fatalf("expected only the strong line to pass the bar, got %.2f", price)
	}

	support, _ := d.ActiveLines("ABC")
	if len(support) != 1 || support[0].Price != 1.00 {
		t.Fatalf("expected exactly the strong line active, got %+v", support)
	}
}

func TestEmptySides_AsymmetricBars(t *testing.T) {
	d := New(cfg3())
	d.Observe("ABC", []float64{3.00, 5.00, 3.00}) // resistance only

	// Resistance side works with a single line.
	if _, ok := d.ResistanceAbove("ABC", 4.00); !ok {
		t.Error("expected the lone resistance line to qualify")
	}
	// No support evidence at all: the query must never pass.
	if _, ok := d.SupportBelow("ABC", 100.00); ok {
		t.Error("support query must fail with no recorded support")
	}
}

func TestUnknownSymbolAndReset(t *testing.T) {
	d := New(cfg3())
	if _, ok := d.SupportBelow("NOPE", 10); ok {
		t.Error("unknown symbol must not match")
	}

	d.Observe("ABC", []float64{2.00, 1.00, 2.00})
	d.Reset()
	if _, ok := d.SupportBelow("ABC", 1.50); ok {
		t.Error("levels must not survive a reset")
	}
}
