// Package httpx provides the shared REST client used by the pull
// collectors. It layers retry with jittered exponential backoff, error
// classification, and optional outbound proxy rotation on top of
// net/http.
package httpx
