package model

import "math"

// StopLine is one recurring support or resistance level for a security.
// Created on first confirmation; counts only ever grow within a session.
type StopLine struct {
	Price       float64
	Confirms    int
	Contradicts int
}

// Confidence weighs frequent confirmation against contradiction:
// (c+1) * ln(c+1) / (d+1), rounded to cents precision.
func (l *StopLine) Confidence() float64 {
	c := float64(l.Confirms)
	d := float64(l.Contradicts)
	return RoundCents((c + 1) * math.Log(c+1) / (d + 1))
}

// RoundCents rounds a price (or score) to two decimal places. All level
// comparisons go through this to avoid floating-point fragmentation of levels.
func RoundCents(p float64) float64 {
	return math.Round(p*100) / 100
}
