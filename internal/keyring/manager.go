package keyring

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// RotationThreshold is the fraction of a credential's limit at which the
// manager rotates away from it.
const RotationThreshold = 0.95

// ErrNoCredentials is returned when a service has no credentials loaded.
// This is an expected condition: the collector skips credentialed calls.
var ErrNoCredentials = errors.New("keyring: no credentials for service")

// slot is the rotation state for one service.
type slot struct {
	active      int
	count       int
	windowStart time.Time
}

// Manager tracks credential usage and rotation for every service.
type Manager struct {
	mu     sync.Mutex
	logger *slog.Logger

	creds   map[string][]Credential
	slots   map[string]*slot
	usage   map[string]int // credential ID → calls this window
	proxies []Proxy
	proxyIx int

	now func() time.Time
}

// NewManager creates a Manager over an immutable credential set.
func NewManager(creds map[string][]Credential, proxies []Proxy, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger:  logger,
		creds:   creds,
		slots:   make(map[string]*slot, len(creds)),
		usage:   make(map[string]int),
		proxies: proxies,
		now:     time.Now,
	}

	for service, list := range creds {
		if len(list) == 0 {
			continue
		}
		m.slots[service] = &slot{windowStart: m.windowStart(list[0].Window, m.now().UTC())}
		logger.Info("keyring service registered",
			"service", service,
			"keys", len(list),
			"window", list[0].Window.String(),
		)
	}

	return m
}

// Active returns the credential a caller should use for its next request.
// It does not consume quota; pair with RecordUse.
func (m *Manager) Active(service string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.creds[service]
	if len(list) == 0 {
		return Credential{}, ErrNoCredentials
	}

	m.resetIfElapsed(service)
	return list[m.slots[service].active], nil
}

// RecordUse accounts for one outbound call against the active credential.
// It returns false when every credential for the service is at capacity;
// the caller must then skip the call until the window resets.
func (m *Manager) RecordUse(service string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.creds[service]
	if len(list) == 0 {
		return false
	}

	m.resetIfElapsed(service)

	st := m.slots[service]
	active := list[st.active]

	// Rotation triggers at 95% of the limit, truncated: a 10-call budget
	// rotates after the 9th call, a 100-call budget after the 95th.
	if st.count >= int(float64(active.Limit)*RotationThreshold) {
		limits := make([]int, len(list))
		used := make([]int, len(list))
		for i, c := range list {
			limits[i] = c.Limit
			used[i] = m.usage[c.ID()]
		}

		next, ok := NextEligible(limits, used, st.active, RotationThreshold)
		if !ok {
			m.logger.Warn("rate budget exhausted, call denied",
				"service", service,
				"keys", len(list),
			)
			return false
		}

		m.logger.Info("rotated credential",
			"service", service,
			"from", st.active,
			"to", next,
			"used", st.count,
			"limit", active.Limit,
		)
		st.active = next
		// Adopt the target credential's true within-window usage so that
		// rotating away and back never undercounts.
		st.count = used[next]
	}

	st.count++
	m.usage[list[st.active].ID()]++
	return true
}

// Proxy returns the next proxy in rotation, or ok=false when none are
// configured.
func (m *Manager) Proxy() (Proxy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.proxies) == 0 {
		return Proxy{}, false
	}
	p := m.proxies[m.proxyIx]
	m.proxyIx = (m.proxyIx + 1) % len(m.proxies)
	return p, true
}

// ProxyURL returns the next proxy formatted for an HTTP transport.
func (m *Manager) ProxyURL() (string, bool) {
	p, ok := m.Proxy()
	if !ok {
		return "", false
	}
	return p.URL(), true
}

// Status returns a per-service rotation and usage summary.
func (m *Manager) Status() map[string]ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]ServiceStatus, len(m.creds))
	for service, list := range m.creds {
		if len(list) == 0 {
			continue
		}
		m.resetIfElapsed(service)
		st := m.slots[service]

		ss := ServiceStatus{
			TotalKeys:     len(list),
			ActiveIndex:   st.active,
			TotalRequests: st.count,
			Window:        list[0].Window.String(),
			WindowReset:   st.windowStart,
			Keys:          make([]KeyStatus, 0, len(list)),
		}
		for i, c := range list {
			used := m.usage[c.ID()]
			pct := 0.0
			if c.Limit > 0 {
				pct = float64(used) / float64(c.Limit) * 100
			}
			state := "OK"
			switch {
			case float64(used) >= float64(c.Limit)*RotationThreshold:
				state = "CRITICAL"
			case float64(used) >= float64(c.Limit)*0.8:
				state = "WARNING"
			}
			ss.Keys = append(ss.Keys, KeyStatus{
				Index:  i,
				Active: i == st.active,
				Used:   used,
				Limit:  c.Limit,
				Pct:    pct,
				State:  state,
			})
		}
		out[service] = ss
	}
	return out
}

// resetIfElapsed applies the lazy window-reset policy for one service.
// Must be called with the lock held.
func (m *Manager) resetIfElapsed(service string) {
	st := m.slots[service]
	list := m.creds[service]
	if st == nil || len(list) == 0 {
		return
	}

	now := m.now().UTC()
	w := list[0].Window

	var reset bool
	var start time.Time
	switch w {
	case WindowMinute:
		if now.Sub(st.windowStart) >= time.Minute {
			reset, start = true, now
		}
	case WindowDay:
		if ds := dayStart(now); ds.After(st.windowStart) {
			reset, start = true, ds
		}
	case WindowMonth:
		if ms := monthStart(now); ms.After(st.windowStart) {
			reset, start = true, ms
		}
	}
	if !reset {
		return
	}

	st.count = 0
	st.windowStart = start
	for _, c := range list {
		delete(m.usage, c.ID())
	}
	m.logger.Debug("usage window reset", "service", service, "window", w.String())
}

func (m *Manager) windowStart(w Window, now time.Time) time.Time {
	switch w {
	case WindowDay:
		return dayStart(now)
	case WindowMonth:
		return monthStart(now)
	}
	return now
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
