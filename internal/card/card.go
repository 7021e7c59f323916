// Package card holds the presentation side of the alert card: its user
// configuration, the per-instance expansion state, the render description
// built from a host state snapshot, and the actions run on row gestures.
package card

import (
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

// DefaultHeader is used when neither title nor friendly name is available.
const DefaultHeader = "Krisinformation"

// AlertsAttribute is the entity attribute holding the raw alert list.
const AlertsAttribute = "alerts"

// EntityState is one host entity as reported by Home Assistant.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// FriendlyName returns the friendly_name attribute, if any.
func (s EntityState) FriendlyName() string {
	if v, ok := s.Attributes["friendly_name"].(string); ok {
		return v
	}
	return ""
}

// HostState is an immutable snapshot pushed by the host.
type HostState struct {
	Language string
	States   map[string]EntityState
}

// Model is the selected and grouped alert list for one host state. It is
// cached by callers so expansion changes can re-render without normalizing
// again.
type Model struct {
	Language     string
	FriendlyName string
	Groups       []domain.Group
	Count        int
	Received     int
	Normalized   int
	Fingerprint  string
}

// Dropped is the number of received entries that normalization discarded.
func (m Model) Dropped() int {
	return m.Received - m.Normalized
}

// Option configures a Card.
type Option func(*Card)

// WithLocation sets the time zone used for displayed timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Card) { c.location = loc }
}

// Card turns host state into a View. Its only mutable state is the
// expansion map; the configuration is replaced wholesale by SetConfig.
type Card struct {
	mu        sync.RWMutex
	cfg       Config
	location  *time.Location
	expansion *Expansion
}

// New creates a card for cfg.
func New(cfg Config, opts ...Option) *Card {
	c := &Card{cfg: cfg, location: time.Local, expansion: NewExpansion()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the current configuration.
func (c *Card) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetConfig replaces the configuration and collapses every row.
func (c *Card) SetConfig(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.expansion.Reset()
}

// Toggle flips the expansion state of one row and returns the new value.
func (c *Card) Toggle(key string) bool {
	return c.expansion.Toggle(key)
}

// Expanded reports whether a row is open.
func (c *Card) Expanded(key string) bool {
	return c.expansion.Expanded(key)
}

// Prepare normalizes, selects and groups the entity's alerts.
func (c *Card) Prepare(state HostState) Model {
	cfg := c.Config()
	entity := state.States[cfg.Entity]

	attr := entity.Attributes[AlertsAttribute]
	alerts := domain.NormalizeAttribute(attr, strings.ToLower(state.Language))
	selected := domain.Select(alerts, cfg.Selection())

	return Model{
		Language:     state.Language,
		FriendlyName: entity.FriendlyName(),
		Groups:       domain.GroupAlerts(selected, cfg.GroupBy),
		Count:        len(selected),
		Received:     entryCount(attr),
		Normalized:   len(alerts),
		Fingerprint:  domain.Fingerprint(alerts),
	}
}

func entryCount(attr any) int {
	if list, ok := attr.([]any); ok {
		return len(list)
	}
	return 0
}

// Update is Prepare followed by Render.
func (c *Card) Update(state HostState) View {
	return c.Render(c.Prepare(state))
}

// Size is the number of grid rows the card wants: one for the header plus
// one per alert, at least one.
func (c *Card) Size(m Model) int {
	size := max(m.Count, 1)
	if c.Config().ShowHeader {
		size++
	}
	return size
}

// GridOptions describes the card's sizing in a sections dashboard.
type GridOptions struct {
	Columns    int `json:"columns"`
	MinColumns int `json:"min_columns"`
	MaxColumns int `json:"max_columns"`
	MinRows    int `json:"min_rows"`
}

// DefaultGridOptions spans the full width and needs at least one row.
func DefaultGridOptions() GridOptions {
	return GridOptions{Columns: 12, MinColumns: 1, MaxColumns: 12, MinRows: 1}
}
