package card

import (
	"strings"

	"github.com/couchcryptid/crisis-alert-card/internal/gesture"
)

// ActionKind is the "action" value of a tap, double-tap or hold action.
type ActionKind string

const (
	ActionNone        ActionKind = "none"
	ActionMoreInfo    ActionKind = "more-info"
	ActionNavigate    ActionKind = "navigate"
	ActionURL         ActionKind = "url"
	ActionCallService ActionKind = "call-service"
)

// Action is a user-configured reaction to a gesture.
type Action struct {
	Action         ActionKind     `json:"action" yaml:"action"`
	NavigationPath string         `json:"navigation_path,omitempty" yaml:"navigation_path,omitempty"`
	URLPath        string         `json:"url_path,omitempty" yaml:"url_path,omitempty"`
	Service        string         `json:"service,omitempty" yaml:"service,omitempty"`
	ServiceData    map[string]any `json:"service_data,omitempty" yaml:"service_data,omitempty"`
}

var defaultAction = Action{Action: ActionMoreInfo}

// Signal is an outbound request produced by running an action. The host
// decides how to carry it out.
type Signal struct {
	Kind        ActionKind     `json:"kind"`
	EntityID    string         `json:"entity_id,omitempty"`
	Path        string         `json:"navigation_path,omitempty"`
	URL         string         `json:"url,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`

	// Context for auditing; not part of the request itself.
	Gesture  string `json:"gesture,omitempty"`
	AlertKey string `json:"alert_key,omitempty"`
}

// ActionFor resolves the configured action for a gesture. Double tap and hold
// fall back to the tap action, which falls back to more-info.
func (c Config) ActionFor(kind gesture.Kind) Action {
	chain := []*Action{c.TapAction}
	switch kind {
	case gesture.DoubleTap:
		chain = []*Action{c.DoubleTapAction, c.TapAction}
	case gesture.Hold:
		chain = []*Action{c.HoldAction, c.TapAction}
	}
	for _, a := range chain {
		if a != nil {
			return *a
		}
	}
	return defaultAction
}

// Signal translates the action into an outbound request for entity. Every
// kind carries the entity so audit consumers can key on it. It reports false when the action does nothing: "none", an unrecognized kind,
// or a kind whose required parameter is missing.
func (a Action) Signal(entity string) (Signal, bool) {
	kind := a.Action
	if kind == "" {
		kind = ActionMoreInfo
	}

	switch kind {
	case ActionMoreInfo:
		return Signal{Kind: kind, EntityID: entity}, true
	case ActionNavigate:
		if a.NavigationPath == "" {
			return Signal{}, false
		}
		return Signal{Kind: kind, EntityID: entity, Path: a.NavigationPath}, true
	case ActionURL:
		if a.URLPath == "" {
			return Signal{}, false
		}
		return Signal{Kind: kind, EntityID: entity, URL: a.URLPath}, true
	case ActionCallService:
		parts := strings.Split(a.Service, ".")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return Signal{}, false
		}
		data := a.ServiceData
		if data == nil {
			data = map[string]any{}
		}
		return Signal{Kind: kind, EntityID: entity, Domain: parts[0], Service: parts[1], ServiceData: data}, true
	default:
		return Signal{}, false
	}
}
