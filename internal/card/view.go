package card

import (
	"slices"
	"strings"

	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

// View is the render description of the whole card.
type View struct {
	Entity     string      `json:"entity"`
	ShowHeader bool        `json:"show_header"`
	Header     string      `json:"header,omitempty"`
	Language   string      `json:"language"`
	Empty      bool        `json:"empty"`
	EmptyText  string      `json:"empty_text,omitempty"`
	Grouped    bool        `json:"grouped"`
	Groups     []GroupView `json:"groups"`
	Size       int         `json:"size"`
	Grid       GridOptions `json:"grid"`
}

// Rows returns every row in display order.
func (v View) Rows() []RowView {
	var rows []RowView
	for _, g := range v.Groups {
		rows = append(rows, g.Rows...)
	}
	return rows
}

// GroupView is one group; Key is empty when grouping is off.
type GroupView struct {
	Key  string    `json:"key,omitempty"`
	Rows []RowView `json:"rows"`
}

// MetaField is one labelled value such as "Area: Gotland".
type MetaField struct {
	Key   MetaKey `json:"key"`
	Label string  `json:"label"`
	Value string  `json:"value"`
}

// RowView describes one alert row.
type RowView struct {
	Key                string      `json:"key"`
	SeverityClass      string      `json:"severity_class"`
	SeverityBackground bool        `json:"severity_background"`
	Compact            bool        `json:"compact"`
	ShowIcon           bool        `json:"show_icon"`
	Icon               string      `json:"icon,omitempty"`
	IconColor          string      `json:"icon_color,omitempty"`
	Title              string      `json:"title"`
	AriaLabel          string      `json:"aria_label"`
	ShowToggle         bool        `json:"show_toggle"`
	Expanded           bool        `json:"expanded"`
	ToggleLabel        string      `json:"toggle_label,omitempty"`
	Inline             []MetaField `json:"inline,omitempty"`
	InlineText         string      `json:"inline_text,omitempty"`
	HasDetails         bool        `json:"has_details"`
	Details            []MetaField `json:"details,omitempty"`
	DetailsText        string      `json:"details_text,omitempty"`
}

// SeverityClass maps a severity onto its row style class.
func SeverityClass(severity string) string {
	switch s := strings.ToLower(severity); s {
	case "minor", "moderate", "severe", "extreme":
		return "sev-" + s
	default:
		return "sev-unknown"
	}
}

// Render builds the View for a prepared model using the current expansion
// state.
func (c *Card) Render(m Model) View {
	cfg := c.Config()
	t := func(key string) string { return Translate(m.Language, key) }

	v := View{
		Entity:     cfg.Entity,
		ShowHeader: cfg.ShowHeader,
		Language:   m.Language,
		Empty:      m.Count == 0,
		Grouped:    cfg.GroupBy != domain.GroupNone,
		Size:       c.Size(m),
		Grid:       DefaultGridOptions(),
	}
	if cfg.ShowHeader {
		v.Header = firstNonEmpty(cfg.Title, m.FriendlyName, DefaultHeader)
	}
	if v.Empty {
		v.EmptyText = t(msgNoAlerts)
		return v
	}

	dates := DateFormatter{Style: cfg.DateFormat, Language: m.Language, Location: c.location}
	b := rowBuilder{cfg: cfg, t: t, dates: dates, expansion: c.expansion}

	v.Groups = make([]GroupView, 0, len(m.Groups))
	for _, g := range m.Groups {
		gv := GroupView{Key: g.Key, Rows: make([]RowView, 0, len(g.Alerts))}
		for idx, a := range g.Alerts {
			gv.Rows = append(gv.Rows, b.row(a, idx))
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

type rowBuilder struct {
	cfg       Config
	t         func(string) string
	dates     DateFormatter
	expansion *Expansion
}

func (b rowBuilder) row(a domain.Alert, idx int) RowView {
	cfg := b.cfg
	key := AlertKey(a, idx)

	fields := b.metaFields(a)
	text := ""
	if details := firstNonEmpty(a.Details, a.Description); cfg.ShowDetails && strings.TrimSpace(details) != "" {
		text = details
	}

	inlineKeys, detailKeys := splitAtDivider(cfg.MetaOrder)
	inline, inlineText := collect(inlineKeys, fields, text)
	details, detailsText := collect(detailKeys, fields, text)

	hasDetails := len(details) > 0 || detailsText != ""
	expanded := !cfg.CollapseDetails || b.expansion.Expanded(key)

	row := RowView{
		Key:                key,
		SeverityClass:      SeverityClass(a.Severity),
		SeverityBackground: cfg.SeverityBackground,
		Compact:            !expanded && len(inline) == 0 && inlineText == "",
		ShowIcon:           cfg.ShowIcon,
		Title:              firstNonEmpty(a.Headline, a.Event, a.Description, a.Area),
		AriaLabel:          firstNonEmpty(a.Headline, a.Event),
		ShowToggle:         cfg.CollapseDetails && hasDetails,
		Expanded:           expanded,
		Inline:             inline,
		InlineText:         inlineText,
		HasDetails:         hasDetails,
	}
	if cfg.ShowIcon {
		row.Icon = cfg.Icon
		row.IconColor = cfg.IconColor
	}
	if row.ShowToggle {
		row.ToggleLabel = b.t(msgShowDetails)
		if expanded {
			row.ToggleLabel = b.t(msgHideDetails)
		}
	}
	if expanded {
		row.Details = details
		row.DetailsText = detailsText
	}
	return row
}

func (b rowBuilder) metaFields(a domain.Alert) map[MetaKey]MetaField {
	cfg := b.cfg
	fields := make(map[MetaKey]MetaField, 4)
	add := func(key MetaKey, enabled bool, value string) {
		if enabled && value != "" {
			fields[key] = MetaField{Key: key, Label: b.t(string(key)), Value: value}
		}
	}
	add(MetaArea, cfg.ShowArea, a.Area)
	add(MetaType, cfg.ShowType, a.Event)
	add(MetaSeverity, cfg.ShowSeverity, a.Severity)
	add(MetaSent, cfg.ShowSent, b.dates.Format(a.Sent))
	return fields
}

// splitAtDivider returns the keys before and after the divider. Without a
// divider everything is inline.
func splitAtDivider(order []MetaKey) (inline, details []MetaKey) {
	i := slices.Index(order, MetaDivider)
	if i < 0 {
		return order, nil
	}
	return order[:i], order[i+1:]
}

func collect(keys []MetaKey, fields map[MetaKey]MetaField, text string) ([]MetaField, string) {
	var out []MetaField
	var block string
	for _, k := range keys {
		if k == MetaText {
			block = text
			continue
		}
		if f, ok := fields[k]; ok {
			out = append(out, f)
		}
	}
	return out, block
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
