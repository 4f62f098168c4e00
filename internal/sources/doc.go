// Package sources contains the per-provider adapters that turn upstream
// market data APIs into feature field maps. Each adapter exposes either
// a collector.FetchFunc (pull sources) or a collector.MessageHandler
// (the Binance stream); the runtime shape around them lives in the
// collector package.
package sources
