// Package collector defines the collection contract shared by all data
// sources and provides the two runtime shapes behind it: a Poller that
// fetches on a fixed interval over REST, and a Stream that holds a
// WebSocket open and folds messages into a snapshot as they arrive.
//
// Both shapes publish into a snapshot store that the orchestrator reads
// on its own clock; a source that stalls leaves its last snapshot in
// place rather than blocking the pipeline.
package collector
