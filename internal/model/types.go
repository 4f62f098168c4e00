package model

import "time"

// FeatureRow is one merged row of the feature_store table: the union of all
// collector snapshots at a single tick plus derived fields. A row is built
// and consumed within one orchestrator tick; it is never retained.
type FeatureRow struct {
	Timestamp time.Time // Tick time (UTC)
	Symbol    string    // Instrument symbol (e.g., "BTCUSDT")

	// Fields maps feature column name to value. Absent columns are written
	// as NULL. Keys must come from the Field* constants.
	Fields map[string]float64
}

// NewFeatureRow creates an empty row for the given tick.
func NewFeatureRow(ts time.Time, symbol string) FeatureRow {
	return FeatureRow{
		Timestamp: ts.UTC(),
		Symbol:    symbol,
		Fields:    make(map[string]float64, len(ValueColumns)),
	}
}

// Value returns the value for a column and whether it is set.
func (r FeatureRow) Value(col string) (float64, bool) {
	v, ok := r.Fields[col]
	return v, ok
}
