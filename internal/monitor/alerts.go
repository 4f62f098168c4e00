package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const alertHistoryCap = 100

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	LevelWarning  AlertLevel = "WARNING"
	LevelCritical AlertLevel = "CRITICAL"
)

// Alert types.
const (
	AlertAPIErrorRate        = "API_ERROR_RATE"
	AlertAPIConsecutiveFails = "API_CONSECUTIVE_FAILURES"
	AlertDBWriteFailure      = "DB_WRITE_FAILURE"
	AlertDBConsecutiveFails  = "DB_CONSECUTIVE_FAILURES"
)

// Alert is a threshold crossing detected during a metric evaluation.
type Alert struct {
	ID      uuid.UUID  `json:"id"`
	At      time.Time  `json:"timestamp"`
	Level   AlertLevel `json:"level"`
	Type    string     `json:"type"`
	Service string     `json:"service,omitempty"`
	Message string     `json:"message"`
}

// Thresholds are the static alert limits.
type Thresholds struct {
	ErrorRatePct             float64 // percent of failed calls in the window
	WriteFailureRatePct      float64 // percent of failed writes in the window
	ConsecutiveCallFailures  int
	ConsecutiveWriteFailures int
}

// DefaultThresholds returns the operational defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRatePct:             10.0,
		WriteFailureRatePct:      5.0,
		ConsecutiveCallFailures:  5,
		ConsecutiveWriteFailures: 3,
	}
}

// AlertManager compares metric snapshots to static thresholds and keeps a
// bounded alert history.
//
// Alerts are re-evaluated on every dashboard refresh and are NOT
// deduplicated between evaluations: a condition that persists produces one
// alert per evaluation. The bounded ring keeps this from growing.
type AlertManager struct {
	mu         sync.Mutex
	thresholds Thresholds
	alerts     *ring[Alert]
}

// NewAlertManager creates an AlertManager with the given thresholds.
func NewAlertManager(th Thresholds) *AlertManager {
	return &AlertManager{
		thresholds: th,
		alerts:     newRing[Alert](alertHistoryCap),
	}
}

// CheckCalls evaluates one source's call metrics against the thresholds and
// appends any resulting alerts.
func (a *AlertManager) CheckCalls(service string, m CallMetrics) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	var raised []Alert

	if m.RecentCalls > 0 {
		errRate := float64(m.RecentErrors) / float64(m.RecentCalls) * 100
		if errRate > a.thresholds.ErrorRatePct {
			raised = append(raised, a.append(Alert{
				Level:   LevelWarning,
				Type:    AlertAPIErrorRate,
				Service: service,
				Message: fmt.Sprintf("%s error rate %.1f%% exceeds threshold %.1f%%",
					service, errRate, a.thresholds.ErrorRatePct),
			}))
		}
	}

	if m.ConsecutiveFailures >= a.thresholds.ConsecutiveCallFailures {
		raised = append(raised, a.append(Alert{
			Level:   LevelWarning,
			Type:    AlertAPIConsecutiveFails,
			Service: service,
			Message: fmt.Sprintf("%s has %d consecutive failures (threshold %d)",
				service, m.ConsecutiveFailures, a.thresholds.ConsecutiveCallFailures),
		}))
	}

	return raised
}

// CheckWrites evaluates sink write metrics against the thresholds.
func (a *AlertManager) CheckWrites(m WriteMetrics) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	var raised []Alert

	if m.RecentWrites > 0 {
		failRate := float64(m.RecentFailures) / float64(m.RecentWrites) * 100
		if failRate > a.thresholds.WriteFailureRatePct {
			raised = append(raised, a.append(Alert{
				Level: LevelCritical,
				Type:  AlertDBWriteFailure,
				Message: fmt.Sprintf("database write failure rate %.1f%% exceeds threshold %.1f%%",
					failRate, a.thresholds.WriteFailureRatePct),
			}))
		}
	}

	if m.ConsecutiveFailures >= a.thresholds.ConsecutiveWriteFailures {
		raised = append(raised, a.append(Alert{
			Level: LevelCritical,
			Type:  AlertDBConsecutiveFails,
			Message: fmt.Sprintf("database has %d consecutive write failures (threshold %d)",
				m.ConsecutiveFailures, a.thresholds.ConsecutiveWriteFailures),
		}))
	}

	return raised
}

// Active returns alerts raised within the trailing window, oldest first.
func (a *AlertManager) Active(window time.Duration) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-window)
	var out []Alert
	for _, al := range a.alerts.items() {
		if al.At.After(cutoff) {
			out = append(out, al)
		}
	}
	return out
}

// append stamps and stores an alert. Must be called with the lock held.
func (a *AlertManager) append(al Alert) Alert {
	al.ID = uuid.New()
	al.At = time.Now()
	a.alerts.push(al)
	return al
}
