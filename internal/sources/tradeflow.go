package sources

import "time"

// flowTrade is one aggressor-signed trade in the rolling flow window.
type flowTrade struct {
	at       time.Time
	notional float64 // signed quote volume: positive for buy aggressor
}

// tradeFlow keeps a rolling window of signed trade notionals and
// answers flow-delta and large-trade queries over trailing spans. Not
// thread-safe; the owning handler serializes access.
type tradeFlow struct {
	span           time.Duration
	largeThreshold float64
	trades         []flowTrade
}

func newTradeFlow(span time.Duration, largeThreshold float64) *tradeFlow {
	return &tradeFlow{
		span:           span,
		largeThreshold: largeThreshold,
	}
}

// add records a trade and evicts entries older than the window span.
func (f *tradeFlow) add(at time.Time, notional float64) {
	f.trades = append(f.trades, flowTrade{at: at, notional: notional})

	cutoff := at.Add(-f.span)
	i := 0
	for i < len(f.trades) && !f.trades[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		f.trades = append(f.trades[:0], f.trades[i:]...)
	}
}

// delta returns the net signed notional over the trailing span.
func (f *tradeFlow) delta(now time.Time, span time.Duration) float64 {
	cutoff := now.Add(-span)
	var sum float64
	for _, t := range f.trades {
		if t.at.After(cutoff) {
			sum += t.notional
		}
	}
	return sum
}

// largeCount returns the number of trades over the large-trade
// threshold in the full window.
func (f *tradeFlow) largeCount() float64 {
	var n float64
	for _, t := range f.trades {
		abs := t.notional
		if abs < 0 {
			abs = -abs
		}
		if abs >= f.largeThreshold {
			n++
		}
	}
	return n
}
