package keyring

import (
	"fmt"
	"net/url"
	"time"
)

// Window classifies how a credential's rate limit resets.
type Window int

const (
	// WindowMinute is a rolling 60-second window.
	WindowMinute Window = iota
	// WindowDay resets at midnight UTC.
	WindowDay
	// WindowMonth resets on the first of the month UTC.
	WindowMonth
)

func (w Window) String() string {
	switch w {
	case WindowMinute:
		return "minute"
	case WindowDay:
		return "day"
	case WindowMonth:
		return "month"
	}
	return "unknown"
}

// Credential grants call quota against one external service. The set of
// credentials is immutable after load; only the manager's counters change.
type Credential struct {
	Service string // Service name (e.g., "coinalyze")
	Key     string // API key or token
	Secret  string // Optional secret (exchange-style key pairs)
	Limit   int    // Calls allowed per window
	Window  Window // Window kind the limit applies to
	Kind    string // Optional key type tag (e.g., binance "spot")
}

// ID returns a stable identity for usage tracking: service plus a key
// prefix, matching how operators recognize keys in dashboards without
// exposing the full secret.
func (c Credential) ID() string {
	k := c.Key
	if len(k) > 8 {
		k = k[:8]
	}
	return c.Service + "_" + k
}

// Proxy is one outbound proxy endpoint.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
}

// URL formats the proxy for an HTTP transport.
func (p Proxy) URL() string {
	u := url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}

// KeyStatus describes one credential in a service status summary.
type KeyStatus struct {
	Index  int     `json:"index"`
	Active bool    `json:"active"`
	Used   int     `json:"used"`
	Limit  int     `json:"limit"`
	Pct    float64 `json:"percentage"`
	State  string  `json:"status"` // OK, WARNING, CRITICAL
}

// ServiceStatus summarizes rotation state for one service.
type ServiceStatus struct {
	TotalKeys     int         `json:"total_keys"`
	ActiveIndex   int         `json:"current_key_index"`
	TotalRequests int         `json:"total_requests"`
	Window        string      `json:"window"`
	WindowReset   time.Time   `json:"window_reset_time"`
	Keys          []KeyStatus `json:"keys"`
}
