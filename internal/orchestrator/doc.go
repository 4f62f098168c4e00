// Package orchestrator runs the fixed-cadence merge loop: each tick it
// folds every collector's latest snapshot into one feature row,
// forward-fills gaps, derives clock and volatility features, and hands
// the row to the sink. Ticks are strictly sequential; the sink write
// happens on the tick goroutine so storage pressure slows the loop
// instead of queueing unboundedly.
package orchestrator
