package domain

// RawAlert is one entry of the host entity's "alerts" attribute, decoded from
// JSON without a schema. It is either CAP-shaped or a legacy flat record.
type RawAlert map[string]any

// Alert is the canonical, display-ready representation after normalization.
// Every stage after Normalize works on Alert regardless of the source shape.
type Alert struct {
	Severity    string `json:"severity"`
	Event       string `json:"event"`
	Area        string `json:"area"`
	Headline    string `json:"headline,omitempty"`
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"`
	Sent        string `json:"sent,omitempty"`
	Published   string `json:"published,omitempty"`

	// Passthrough fields kept from CAP records.
	Identifier string `json:"identifier,omitempty"`
	URL        string `json:"url,omitempty"`
	Source     string `json:"source,omitempty"`
	Expires    string `json:"expires,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
	Certainty  string `json:"certainty,omitempty"`
}

// Timestamp returns the instant used for time ordering: Sent, falling back to
// Published. Missing or unparsable values yield the Unix epoch.
func (a Alert) Timestamp() int64 {
	v := a.Sent
	if v == "" {
		v = a.Published
	}
	t, ok := ParseTimestamp(v)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// SeverityUnknown is assigned to retained alerts that carry no severity.
const SeverityUnknown = "Unknown"

// SortOrder selects the primary key of the alert ordering.
type SortOrder string

const (
	SortTimeDesc         SortOrder = "time_desc"
	SortSeverityThenTime SortOrder = "severity_then_time"
	SortTypeThenTime     SortOrder = "type_then_time"
)

// GroupBy selects how selected alerts are partitioned for display.
type GroupBy string

const (
	GroupNone     GroupBy = "none"
	GroupArea     GroupBy = "area"
	GroupSeverity GroupBy = "severity"
	GroupType     GroupBy = "type"
)

// Selection holds the user-configured filters, ordering and item cap.
type Selection struct {
	Severities []string
	Areas      []string
	Order      SortOrder
	MaxItems   int
}

// Group is one partition of the selected alerts, in display order.
type Group struct {
	Key    string
	Alerts []Alert
}
