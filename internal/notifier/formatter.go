package notifier

import (
	"fmt"
	"strings"

	"StopLineTrader/internal/engine"
	"StopLineTrader/internal/model"
)

// FormatSessionReport formats the end-of-day flatten summary.
func FormatSessionReport(sum *model.SessionSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Session flattened</b> | %s\n\n", sum.FlattenedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Day-end cash: %.2f\n", sum.EndCash))
	b.WriteString(fmt.Sprintf("Open orders canceled: %d\n", sum.CanceledOrders))
	if len(sum.Positions) > 0 {
		b.WriteString("\n<b>Positions flattened to zero:</b>\n")
		for _, p := range sum.Positions {
			b.WriteString(fmt.Sprintf("  %s: %d shares\n", p.Symbol, p.Shares))
		}
	}
	return b.String()
}

// FormatStatus formats the cash pool and per-holding bookkeeping.
func FormatStatus(pool float64, holdings []model.HoldingSnapshot) string {
	var b strings.Builder
	b.WriteString("📦 <b>Holdings</b>\n\n")
	b.WriteString(fmt.Sprintf("Cash pool: %.2f\n", pool))
	if len(holdings) == 0 {
		b.WriteString("No active holdings\n")
		return b.String()
	}
	for _, h := range holdings {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>  cash %.2f | shares %d\n", h.Symbol, h.Cash, h.Shares))
		if h.OpenBuyQty != 0 {
			b.WriteString(fmt.Sprintf("  open buy: %d @ %.2f\n", h.OpenBuyQty, h.OpenBuyPrice))
		}
		if h.OpenSellQty != 0 {
			b.WriteString(fmt.Sprintf("  open sell: %d @ %.2f\n", h.OpenSellQty, h.OpenSellPrice))
		}
	}
	return b.String()
}

// FormatLevels formats the active stop lines per symbol.
func FormatLevels(levels []engine.SymbolLevels) string {
	if len(levels) == 0 {
		return "No active stop lines yet."
	}
	var b strings.Builder
	b.WriteString("📈 <b>Active stop lines</b>\n")
	for _, sl := range levels {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", sl.Symbol))
		for _, l := range sl.Resistance {
			b.WriteString(fmt.Sprintf("  resistance %.2f (conf %.2f)\n", l.Price, l.Confidence))
		}
		for _, l := range sl.Support {
			b.WriteString(fmt.Sprintf("  support %.2f (conf %.2f)\n", l.Price, l.Confidence))
		}
	}
	return b.String()
}
