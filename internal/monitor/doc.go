// Package monitor implements call tracking, write tracking, and alerting.
//
// Components:
//   - CallTracker: per-source ring buffer of call outcomes plus totals
//   - WriteMonitor: sink write outcomes plus per-field population counters
//   - AlertManager: static-threshold alerts over rolling-window metrics
//   - System: aggregates all of the above for the dashboard surface
//
// History is bounded everywhere: fixed-capacity rings evict the oldest
// entry, so a long-running process never grows monitoring state.
package monitor
