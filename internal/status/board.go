package status

import (
	"sync"
	"time"

	"github.com/rickgao/crypto-factory/internal/keyring"
)

// CollectorStatus is one collector's freshness entry.
type CollectorStatus struct {
	Name       string    `json:"name"`
	State      string    `json:"state,omitempty"` // stream collectors only
	UpdatedAt  time.Time `json:"updated_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Fields     int       `json:"fields"`
}

// Snapshot is the full status payload pushed by the orchestrator.
type Snapshot struct {
	UpdatedAt   time.Time                        `json:"updated_at"`
	Symbol      string                           `json:"symbol"`
	Keyring     map[string]keyring.ServiceStatus `json:"api_keys"`
	Collectors  []CollectorStatus                `json:"collectors"`
	DBConnected bool                             `json:"db_connected"`
	DBRows      int64                            `json:"db_rows"`
}

// Board holds the latest pushed snapshot for the HTTP handlers.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Set replaces the snapshot.
func (b *Board) Set(s Snapshot) {
	b.mu.Lock()
	b.snap = s
	b.mu.Unlock()
}

// Get returns the latest snapshot.
func (b *Board) Get() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
