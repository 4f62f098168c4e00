package monitor

import (
	"sync"
	"time"
)

const writeLatencyCap = 100

// WriteRecord is one sink write attempt.
type WriteRecord struct {
	At      time.Time
	Success bool
	ErrMsg  string
	Latency time.Duration

	// PopulatedFields are the logical fields that were non-null on a
	// successful write; FailedFields the fields lost on a failed one.
	PopulatedFields []string
	FailedFields    []string
}

// WriteMetrics summarizes sink write behavior.
type WriteMetrics struct {
	TotalWrites         int64            `json:"total_writes"`
	SuccessfulWrites    int64            `json:"successful_writes"`
	FailedWrites        int64            `json:"failed_writes"`
	RecentWrites        int              `json:"recent_writes"`
	RecentFailures      int              `json:"recent_failures"`
	SuccessRate         float64          `json:"success_rate"` // percent, over the window
	AvgWriteTime        time.Duration    `json:"avg_write_time"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	FieldPopulated      map[string]int64 `json:"field_populated"`
	FieldFailed         map[string]int64 `json:"field_failed"`
}

// WriteMonitor records sink write outcomes in a bounded ring, plus
// per-field population counters that show which logical fields actually
// reach storage.
type WriteMonitor struct {
	mu          sync.Mutex
	writes      *ring[WriteRecord]
	latencies   *ring[time.Duration]
	total       int64
	successes   int64
	failures    int64
	consecutive int
	populated   map[string]int64
	failed      map[string]int64
}

// NewWriteMonitor creates an empty WriteMonitor.
func NewWriteMonitor() *WriteMonitor {
	return &WriteMonitor{
		writes:    newRing[WriteRecord](callHistoryCap),
		latencies: newRing[time.Duration](writeLatencyCap),
		populated: make(map[string]int64),
		failed:    make(map[string]int64),
	}
}

// Record appends one write outcome. Zero At defaults to now.
func (w *WriteMonitor) Record(rec WriteRecord) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.writes.push(rec)
	w.latencies.push(rec.Latency)
	w.total++

	if rec.Success {
		w.successes++
		w.consecutive = 0
		for _, f := range rec.PopulatedFields {
			w.populated[f]++
		}
		return
	}

	w.failures++
	w.consecutive++
	for _, f := range rec.FailedFields {
		w.failed[f]++
	}
}

// Metrics computes rolling-window write metrics.
func (w *WriteMonitor) Metrics(window time.Duration) WriteMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-window)

	var recent, recentFailures int
	for _, rec := range w.writes.items() {
		if !rec.At.After(cutoff) {
			continue
		}
		recent++
		if !rec.Success {
			recentFailures++
		}
	}

	var latencySum time.Duration
	lats := w.latencies.items()
	for _, l := range lats {
		latencySum += l
	}

	m := WriteMetrics{
		TotalWrites:         w.total,
		SuccessfulWrites:    w.successes,
		FailedWrites:        w.failures,
		RecentWrites:        recent,
		RecentFailures:      recentFailures,
		ConsecutiveFailures: w.consecutive,
		FieldPopulated:      make(map[string]int64, len(w.populated)),
		FieldFailed:         make(map[string]int64, len(w.failed)),
	}
	for k, v := range w.populated {
		m.FieldPopulated[k] = v
	}
	for k, v := range w.failed {
		m.FieldFailed[k] = v
	}
	if recent > 0 {
		m.SuccessRate = float64(recent-recentFailures) / float64(recent) * 100
	}
	if len(lats) > 0 {
		m.AvgWriteTime = latencySum / time.Duration(len(lats))
	}
	return m
}
