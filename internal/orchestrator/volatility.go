package orchestrator

import "math"

const secondsPerYear = 365 * 24 * 3600

// volWindow keeps a bounded drop-oldest window of close prices and
// derives annualized realized volatility from their log returns.
type volWindow struct {
	cap        int
	minSamples int
	closes     []float64
}

func newVolWindow(cap, minSamples int) *volWindow {
	return &volWindow{cap: cap, minSamples: minSamples}
}

// push appends a close price, dropping the oldest beyond capacity.
// Non-positive prices are ignored; log returns need positive inputs.
func (w *volWindow) push(close float64) {
	if close <= 0 {
		return
	}
	w.closes = append(w.closes, close)
	if len(w.closes) > w.cap {
		w.closes = w.closes[1:]
	}
}

// value returns annualized volatility, or false while the window holds
// fewer than minSamples closes. tickSeconds is the sampling period
// used for annualization.
func (w *volWindow) value(tickSeconds float64) (float64, bool) {
	if len(w.closes) < w.minSamples {
		return 0, false
	}

	returns := make([]float64, 0, len(w.closes)-1)
	for i := 1; i < len(w.closes); i++ {
		returns = append(returns, math.Log(w.closes[i]/w.closes[i-1]))
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	periodsPerYear := secondsPerYear / tickSeconds
	return math.Sqrt(variance) * math.Sqrt(periodsPerYear), true
}
