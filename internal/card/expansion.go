package card

import (
	"maps"
	"strconv"
	"sync"

	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

// AlertKey identifies a row for expansion state: severity, area and the sent
// timestamp, falling back to published and then to the row's index within its
// group.
func AlertKey(a domain.Alert, idx int) string {
	stamp := a.Sent
	if stamp == "" {
		stamp = a.Published
	}
	if stamp == "" {
		stamp = strconv.Itoa(idx)
	}
	return a.Severity + "-" + a.Area + "-" + stamp
}

// Expansion records which rows the user opened. A key that was never toggled
// is collapsed.
type Expansion struct {
	mu       sync.RWMutex
	expanded map[string]bool
}

// NewExpansion returns an empty Expansion.
func NewExpansion() *Expansion {
	return &Expansion{expanded: make(map[string]bool)}
}

// Toggle flips key and returns its new value.
func (e *Expansion) Toggle(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expanded[key] = !e.expanded[key]
	return e.expanded[key]
}

// Expanded reports whether key is open.
func (e *Expansion) Expanded(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expanded[key]
}

// Reset collapses every row.
func (e *Expansion) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.expanded)
}

// Snapshot returns a copy of the current state.
func (e *Expansion) Snapshot() map[string]bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.expanded)
}
