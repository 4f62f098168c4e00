// Package model defines shared data types used across the Crypto Data Factory.
//
// Conventions:
//   - Feature values: float64 (the feature_store schema is DOUBLE PRECISION)
//   - Timestamps: time.Time in UTC
//   - Field names: the Field* constants, matching feature_store column names
package model
