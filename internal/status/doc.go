// Package status exposes the factory's operational state over HTTP:
// credential pool health, collector freshness, sink statistics, and
// the monitoring dashboard. The orchestrator pushes a fresh snapshot
// onto the Board every few ticks; handlers only ever read the board,
// so a wedged pipeline shows up as staleness instead of hanging the
// endpoints.
package status
