// Package keyring manages API credentials shared by all collectors.
//
// The Manager:
//   - Tracks usage per rotation slot and per credential identity
//   - Rotates to the next credential with headroom at 95% of its limit
//   - Resets counters lazily per window kind (minute, day, month)
//   - Round-robins outbound proxies
//
// All decisions for one service are taken under a single lock so that
// concurrent collectors observe a globally consistent rotation state.
package keyring
