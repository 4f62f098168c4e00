// Package store persists merged feature rows to TimescaleDB. One row
// per tick lands in the feature_store hypertable, keyed by
// (timestamp, symbol); re-writes of the same key upsert in place. The
// schema tolerates plain PostgreSQL when the timescaledb extension is
// unavailable.
package store
