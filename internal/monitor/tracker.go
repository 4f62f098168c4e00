package monitor

import (
	"sync"
	"time"
)

// Error classes recorded by collectors. Free-form classes are allowed; these
// cover the taxonomy the collectors use.
const (
	ErrClassTimeout    = "Timeout"
	ErrClassNetwork    = "NetworkError"
	ErrClassProtocol   = "ProtocolError"
	ErrClassHTTPStatus = "HTTPStatus"
	ErrClassRateLimit  = "RateLimitExhausted"
	ErrClassDisconnect = "StreamDisconnect"
)

const (
	callHistoryCap  = 1000
	errorHistoryCap = 100
)

// CallRecord is one outbound call outcome.
type CallRecord struct {
	At         time.Time
	Success    bool
	ErrClass   string
	ErrMsg     string
	Latency    time.Duration
	HTTPStatus int
}

// CallMetrics is a point-in-time metric summary for one source.
type CallMetrics struct {
	Service             string           `json:"service"`
	TotalCalls          int64            `json:"total_calls"`
	SuccessCount        int64            `json:"success_count"`
	ErrorCount          int64            `json:"error_count"`
	RecentCalls         int              `json:"recent_calls"`
	RecentErrors        int              `json:"recent_errors"`
	SuccessRate         float64          `json:"success_rate"` // percent, over the window
	AvgLatency          time.Duration    `json:"avg_latency"`
	LastCall            time.Time        `json:"last_call"`
	LastSuccess         time.Time        `json:"last_success"`
	LastFailure         time.Time        `json:"last_failure"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	ErrorClasses        map[string]int64 `json:"error_classes"`
}

// CallTracker records call outcomes for one source in a bounded ring.
type CallTracker struct {
	service string

	mu          sync.Mutex
	calls       *ring[CallRecord]
	errors      *ring[CallRecord]
	total       int64
	successes   int64
	failures    int64
	lastCall    time.Time
	lastSuccess time.Time
	lastFailure time.Time
	consecutive int
	errClasses  map[string]int64
}

// NewCallTracker creates a tracker for the named source.
func NewCallTracker(service string) *CallTracker {
	return &CallTracker{
		service:    service,
		calls:      newRing[CallRecord](callHistoryCap),
		errors:     newRing[CallRecord](errorHistoryCap),
		errClasses: make(map[string]int64),
	}
}

// Record appends one call outcome. Zero At defaults to now.
func (t *CallTracker) Record(rec CallRecord) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls.push(rec)
	t.total++
	t.lastCall = rec.At

	if rec.Success {
		t.successes++
		t.lastSuccess = rec.At
		t.consecutive = 0
		return
	}

	t.failures++
	t.lastFailure = rec.At
	t.consecutive++
	t.errors.push(rec)
	if rec.ErrClass != "" {
		t.errClasses[rec.ErrClass]++
	}
}

// Metrics computes success rate and average latency over the trailing
// window, alongside the running totals.
func (t *CallTracker) Metrics(window time.Duration) CallMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-window)

	var recent, recentErrors int
	var latencySum time.Duration
	for _, c := range t.calls.items() {
		if !c.At.After(cutoff) {
			continue
		}
		recent++
		latencySum += c.Latency
		if !c.Success {
			recentErrors++
		}
	}

	m := CallMetrics{
		Service:             t.service,
		TotalCalls:          t.total,
		SuccessCount:        t.successes,
		ErrorCount:          t.failures,
		RecentCalls:         recent,
		RecentErrors:        recentErrors,
		LastCall:            t.lastCall,
		LastSuccess:         t.lastSuccess,
		LastFailure:         t.lastFailure,
		ConsecutiveFailures: t.consecutive,
		ErrorClasses:        make(map[string]int64, len(t.errClasses)),
	}
	for k, v := range t.errClasses {
		m.ErrorClasses[k] = v
	}
	if recent > 0 {
		m.SuccessRate = float64(recent-recentErrors) / float64(recent) * 100
		m.AvgLatency = latencySum / time.Duration(recent)
	}
	return m
}

// RecentErrors returns up to limit most recent failures, oldest first.
func (t *CallTracker) RecentErrors(limit int) []CallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := t.errors.items()
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}
