package card

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CardType is the registered type of the built-in alert card.
const CardType = "krisinformation-alert-card"

const customPrefix = "custom:"

// ErrUnknownCardType is returned when a config names a card that was never
// registered.
var ErrUnknownCardType = errors.New("unknown card type")

// Definition describes a card type for the dashboard's card picker.
type Definition struct {
	Type        string                                 `json:"type"`
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Preview     bool                                   `json:"preview"`
	Stub        func(entities []string) map[string]any `json:"-"`
}

// Registry holds card definitions keyed by type. Registering a type twice
// keeps the first definition.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds def unless its type is already present. It reports whether
// def was added.
func (r *Registry) Register(def Definition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	typ := trimCustom(def.Type)
	if _, ok := r.defs[typ]; ok {
		return false
	}
	def.Type = typ
	r.defs[typ] = def
	r.order = append(r.order, typ)
	return true
}

// Lookup finds a definition; the "custom:" prefix is optional.
func (r *Registry) Lookup(typ string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[trimCustom(typ)]
	return def, ok
}

// List returns the definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, typ := range r.order {
		out = append(out, r.defs[typ])
	}
	return out
}

// Resolve returns the definition for a card config. An empty type selects
// the built-in card.
func (r *Registry) Resolve(cfg Config) (Definition, error) {
	typ := cfg.Type
	if typ == "" {
		typ = CardType
	}
	def, ok := r.Lookup(typ)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownCardType, cfg.Type)
	}
	return def, nil
}

func trimCustom(typ string) string {
	return strings.TrimPrefix(strings.TrimSpace(typ), customPrefix)
}

// Builtin is the definition of the crisis alert card.
func Builtin() Definition {
	return Definition{
		Type:        CardType,
		Name:        "Krisinformation Alert Card",
		Description: "Displays Krisinformation alerts using the Krisinformation integration with configurable attributes",
		Preview:     true,
		Stub:        StubConfig,
	}
}

// StubConfig is the starting configuration offered when the card is added
// to a dashboard. It picks the first sensor entity, if any.
func StubConfig(entities []string) map[string]any {
	entity := ""
	for _, e := range entities {
		if strings.HasPrefix(e, "sensor.") {
			entity = e
			break
		}
	}
	metaOrder := make([]string, len(DefaultMetaOrder))
	for i, k := range DefaultMetaOrder {
		metaOrder[i] = string(k)
	}
	return map[string]any{
		"entity":              entity,
		"title":               "",
		"show_header":         true,
		"show_icon":           true,
		"severity_background": false,
		"icon":                DefaultIcon,
		"max_items":           0,
		"sort_order":          "time_desc",
		"date_format":         string(DateLocale),
		"group_by":            "none",
		"filter_severities":   []string{},
		"filter_areas":        []string{},
		"collapse_details":    true,
		"show_area":           true,
		"show_type":           true,
		"show_severity":       true,
		"show_sent":           true,
		"show_details":        true,
		"meta_order":          metaOrder,
	}
}
