package card

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

// ErrMissingEntity is returned when a card config names no host entity.
var ErrMissingEntity = errors.New("you must specify an entity")

// DefaultIcon is shown next to each alert unless icon is configured.
const DefaultIcon = "mdi:alert-circle-outline"

// MetaKey names one piece of row content in meta_order.
type MetaKey string

const (
	MetaArea     MetaKey = "area"
	MetaType     MetaKey = "type"
	MetaSeverity MetaKey = "severity"
	MetaSent     MetaKey = "sent"
	MetaDivider  MetaKey = "divider"
	MetaText     MetaKey = "text"
)

// DefaultMetaOrder puts the metadata inline and the free text behind the
// details toggle.
var DefaultMetaOrder = []MetaKey{MetaArea, MetaType, MetaSeverity, MetaSent, MetaDivider, MetaText}

var knownMetaKeys = []MetaKey{MetaArea, MetaType, MetaSeverity, MetaSent, MetaDivider, MetaText}

// Config is a validated card configuration with every default applied.
type Config struct {
	Type               string           `json:"type" yaml:"type"`
	Entity             string           `json:"entity" yaml:"entity" validate:"required"`
	Title              string           `json:"title,omitempty" yaml:"title,omitempty"`
	ShowHeader         bool             `json:"show_header" yaml:"show_header"`
	ShowIcon           bool             `json:"show_icon" yaml:"show_icon"`
	SeverityBackground bool             `json:"severity_background" yaml:"severity_background"`
	Icon               string           `json:"icon" yaml:"icon"`
	IconColor          string           `json:"icon_color,omitempty" yaml:"icon_color,omitempty"`
	MaxItems           int              `json:"max_items" yaml:"max_items" validate:"gte=0"`
	SortOrder          domain.SortOrder `json:"sort_order" yaml:"sort_order"`
	DateFormat         DateFormat       `json:"date_format" yaml:"date_format"`
	GroupBy            domain.GroupBy   `json:"group_by" yaml:"group_by"`
	FilterSeverities   []string         `json:"filter_severities" yaml:"filter_severities"`
	FilterAreas        []string         `json:"filter_areas" yaml:"filter_areas"`
	CollapseDetails    bool             `json:"collapse_details" yaml:"collapse_details"`
	ShowArea           bool             `json:"show_area" yaml:"show_area"`
	ShowType           bool             `json:"show_type" yaml:"show_type"`
	ShowSeverity       bool             `json:"show_severity" yaml:"show_severity"`
	ShowSent           bool             `json:"show_sent" yaml:"show_sent"`
	ShowDetails        bool             `json:"show_details" yaml:"show_details"`
	MetaOrder          []MetaKey        `json:"meta_order" yaml:"meta_order"`
	TapAction          *Action          `json:"tap_action,omitempty" yaml:"tap_action,omitempty"`
	DoubleTapAction    *Action          `json:"double_tap_action,omitempty" yaml:"double_tap_action,omitempty"`
	HoldAction         *Action          `json:"hold_action,omitempty" yaml:"hold_action,omitempty"`
}

// Selection returns the filter, ordering and cap used by domain.Select.
func (c Config) Selection() domain.Selection {
	return domain.Selection{
		Severities: c.FilterSeverities,
		Areas:      c.FilterAreas,
		Order:      c.SortOrder,
		MaxItems:   c.MaxItems,
	}
}

// RawConfig is the card YAML as the user wrote it. Boolean flags are pointers
// so an absent key can be told apart from an explicit false.
type RawConfig struct {
	Type               string     `yaml:"type"`
	Entity             string     `yaml:"entity"`
	Title              string     `yaml:"title"`
	ShowHeader         *bool      `yaml:"show_header"`
	ShowIcon           *bool      `yaml:"show_icon"`
	SeverityBackground *bool      `yaml:"severity_background"`
	Icon               string     `yaml:"icon"`
	IconColor          string     `yaml:"icon_color"`
	MaxItems           *int       `yaml:"max_items"`
	SortOrder          string     `yaml:"sort_order"`
	DateFormat         string     `yaml:"date_format"`
	GroupBy            string     `yaml:"group_by"`
	FilterSeverities   StringList `yaml:"filter_severities"`
	FilterAreas        StringList `yaml:"filter_areas"`
	CollapseDetails    *bool      `yaml:"collapse_details"`
	ShowArea           *bool      `yaml:"show_area"`
	ShowAreas          *bool      `yaml:"show_areas"`
	ShowType           *bool      `yaml:"show_type"`
	ShowSeverity       *bool      `yaml:"show_severity"`
	ShowSent           *bool      `yaml:"show_sent"`
	ShowDetails        *bool      `yaml:"show_details"`
	ShowDescription    *bool      `yaml:"show_description"`
	MetaOrder          []string   `yaml:"meta_order"`
	TapAction          *Action    `yaml:"tap_action"`
	DoubleTapAction    *Action    `yaml:"double_tap_action"`
	HoldAction         *Action    `yaml:"hold_action"`

	// Accepted for compatibility with older dashboards; they have no effect.
	HideWhenEmpty *bool `yaml:"hide_when_empty"`
	ShowBorder    *bool `yaml:"show_border"`
}

// StringList decodes either a YAML sequence or a comma-separated string.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = splitList(strings.Split(node.Value, ","))
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = splitList(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a comma-separated string", node.Line)
	}
}

func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var validate = validator.New()

// LoadConfig reads and normalizes a card YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read card config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes card YAML and normalizes it.
func ParseConfig(data []byte) (Config, error) {
	var raw RawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("decode card config: %w", err)
	}
	return NormalizeConfig(raw)
}

// NormalizeConfig applies defaults and legacy key mappings, then validates.
func NormalizeConfig(raw RawConfig) (Config, error) {
	cfg := Config{
		Type:               strings.TrimSpace(raw.Type),
		Entity:             strings.TrimSpace(raw.Entity),
		Title:              raw.Title,
		ShowHeader:         flag(true, raw.ShowHeader),
		ShowIcon:           flag(true, raw.ShowIcon),
		SeverityBackground: flag(false, raw.SeverityBackground),
		Icon:               orDefault(strings.TrimSpace(raw.Icon), DefaultIcon),
		IconColor:          strings.TrimSpace(raw.IconColor),
		SortOrder:          sortOrder(raw.SortOrder),
		DateFormat:         dateFormat(raw.DateFormat),
		GroupBy:            groupBy(raw.GroupBy),
		FilterSeverities:   nonNil(raw.FilterSeverities),
		FilterAreas:        nonNil(raw.FilterAreas),
		CollapseDetails:    flag(true, raw.CollapseDetails),
		ShowArea:           flag(true, raw.ShowArea, raw.ShowAreas),
		ShowType:           flag(true, raw.ShowType),
		ShowSeverity:       flag(true, raw.ShowSeverity),
		ShowSent:           flag(true, raw.ShowSent),
		ShowDetails:        flag(true, raw.ShowDetails, raw.ShowDescription),
		MetaOrder:          NormalizeMetaOrder(raw.MetaOrder),
		TapAction:          raw.TapAction,
		DoubleTapAction:    raw.DoubleTapAction,
		HoldAction:         raw.HoldAction,
	}
	if raw.MaxItems != nil {
		cfg.MaxItems = *raw.MaxItems
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, validationError(err)
	}
	return cfg, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate card config: %w", err)
	}
	for _, fe := range verrs {
		if fe.Field() == "Entity" {
			return ErrMissingEntity
		}
	}
	fe := verrs[0]
	return fmt.Errorf("invalid card config: %s must satisfy %s=%s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
}

// NormalizeMetaOrder drops unknown and repeated keys and makes sure divider
// and text appear exactly once. An empty order yields DefaultMetaOrder.
func NormalizeMetaOrder(keys []string) []MetaKey {
	out := make([]MetaKey, 0, len(knownMetaKeys))
	for _, k := range keys {
		key := MetaKey(strings.ToLower(strings.TrimSpace(k)))
		if !slices.Contains(knownMetaKeys, key) || slices.Contains(out, key) {
			continue
		}
		out = append(out, key)
	}
	if len(out) == 0 {
		return slices.Clone(DefaultMetaOrder)
	}
	if !slices.Contains(out, MetaDivider) {
		out = append(out, MetaDivider)
	}
	if !slices.Contains(out, MetaText) {
		out = append(out, MetaText)
	}
	return out
}

// flag returns the first explicitly set value, or def.
func flag(def bool, values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return def
}

func sortOrder(v string) domain.SortOrder {
	switch o := domain.SortOrder(strings.TrimSpace(v)); o {
	case domain.SortTimeDesc, domain.SortSeverityThenTime, domain.SortTypeThenTime:
		return o
	default:
		return domain.SortTimeDesc
	}
}

func groupBy(v string) domain.GroupBy {
	switch g := domain.GroupBy(strings.TrimSpace(v)); g {
	case domain.GroupNone, domain.GroupArea, domain.GroupSeverity, domain.GroupType:
		return g
	default:
		return domain.GroupNone
	}
}

func dateFormat(v string) DateFormat {
	switch f := DateFormat(strings.TrimSpace(v)); f {
	case DateLocale, DateDayMonthTime, DateWeekdayTime, DateDayMonthTimeYear:
		return f
	default:
		return DateLocale
	}
}

func nonNil(l StringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
