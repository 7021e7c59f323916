package domain

import (
	"strconv"
	"strings"
)

// capMarkers are top-level fields whose presence identifies a CAP alert.
var capMarkers = []string{"info", "msgType", "sender", "identifier"}

// Normalize converts the host's raw alert records into canonical alerts.
// CAP-shaped records are flattened using the info block chosen for langPref;
// legacy flat records pass through with area/areas reconciled. Records with
// nothing to show are dropped without affecting the rest of the batch.
func Normalize(raw []RawAlert, langPref string) []Alert {
	out := make([]Alert, 0, len(raw))
	for _, rec := range raw {
		if rec == nil {
			continue
		}
		var a Alert
		if IsCAP(rec) {
			a = fromCAP(rec, langPref)
		} else {
			a = fromLegacy(rec)
		}
		if isEmpty(a) {
			continue
		}
		if a.Severity == "" {
			a.Severity = SeverityUnknown
		}
		out = append(out, a)
	}
	return out
}

// NormalizeAttribute decodes the "alerts" attribute value as delivered in a
// host state (a JSON array of objects) and normalizes it. Entries that are not
// objects are ignored; a non-array value yields no alerts.
func NormalizeAttribute(value any, langPref string) []Alert {
	return Normalize(RawAlerts(value), langPref)
}

// RawAlerts extracts the object entries of a decoded JSON array.
func RawAlerts(value any) []RawAlert {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]RawAlert, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, RawAlert(v))
		case RawAlert:
			out = append(out, v)
		}
	}
	return out
}

// IsCAP reports whether rec looks like a CAP alert: it carries a truthy info,
// msgType, sender or identifier field.
func IsCAP(rec RawAlert) bool {
	for _, k := range capMarkers {
		if truthy(rec[k]) {
			return true
		}
	}
	return false
}

func fromLegacy(rec RawAlert) Alert {
	area := areaString(rec["area"])
	if area == "" {
		area = areaString(rec["areas"])
	}
	return Alert{
		Severity:    stringOrEmpty(rec["severity"]),
		Event:       stringOrEmpty(rec["event"]),
		Area:        area,
		Headline:    stringOrEmpty(rec["headline"]),
		Description: stringOrEmpty(rec["description"]),
		Details:     stringOrEmpty(rec["details"]),
		Sent:        stringOrEmpty(rec["sent"]),
		Published:   stringOrEmpty(rec["published"]),
		Identifier:  stringOrEmpty(rec["identifier"]),
		URL:         stringOrEmpty(rec["url"]),
		Source:      stringOrEmpty(rec["source"]),
		Expires:     stringOrEmpty(rec["expires"]),
		Urgency:     stringOrEmpty(rec["urgency"]),
		Certainty:   stringOrEmpty(rec["certainty"]),
	}
}

func fromCAP(rec RawAlert, langPref string) Alert {
	info := PickInfo(rec["info"], langPref)

	var areaNames []string
	if list, ok := info["area"].([]any); ok {
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				areaNames = append(areaNames, stringOrEmpty(m["areaDesc"]))
			}
		}
	}
	area := strings.Join(joinUnique(areaNames), ", ")

	description := stringOrEmpty(info["description"])
	instruction := stringOrEmpty(info["instruction"])
	web := stringOrEmpty(info["web"])

	details := make([]string, 0, 3)
	for _, part := range []string{description, instruction, web} {
		if part != "" {
			details = append(details, part)
		}
	}

	sent := firstNonEmpty(rec["sent"], info["sent"], info["effective"], info["onset"])
	published := firstNonEmpty(rec["sent"], info["effective"], info["onset"])

	return Alert{
		Severity:    stringOrEmpty(info["severity"]),
		Event:       stringOrEmpty(info["event"]),
		Area:        area,
		Headline:    stringOrEmpty(info["headline"]),
		Description: description,
		Details:     strings.Join(details, "\n\n"),
		Sent:        sent,
		Published:   published,
		Identifier:  stringOrEmpty(rec["identifier"]),
		URL:         web,
		Source:      stringOrEmpty(rec["sender"]),
		Expires:     stringOrEmpty(info["expires"]),
		Urgency:     stringOrEmpty(info["urgency"]),
		Certainty:   stringOrEmpty(info["certainty"]),
	}
}

// PickInfo selects the CAP info block to display. A list is searched for the
// first language candidate with a matching "language" field (case-insensitive),
// falling back to its first element; a single object is used as-is.
func PickInfo(info any, langPref string) map[string]any {
	switch v := info.(type) {
	case map[string]any:
		return v
	case []any:
		for _, candidate := range LanguageCandidates(langPref) {
			for _, item := range v {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if strings.ToLower(stringOrEmpty(m["language"])) == candidate {
					return m
				}
			}
		}
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
	}
	return map[string]any{}
}

func isEmpty(a Alert) bool {
	return a.Severity == "" && a.Event == "" && a.Area == "" && a.Details == "" && a.Description == ""
}

// areaString renders an area field, which integrations emit either as a
// string or as a list of names.
func areaString(v any) string {
	if list, ok := v.([]any); ok {
		names := make([]string, 0, len(list))
		for _, item := range list {
			names = append(names, stringOrEmpty(item))
		}
		return strings.Join(joinUnique(names), ", ")
	}
	return stringOrEmpty(v)
}

// joinUnique trims, drops empties and removes duplicates, keeping first-seen order.
func joinUnique(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		s := strings.TrimSpace(item)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func firstNonEmpty(values ...any) string {
	for _, v := range values {
		if s := stringOrEmpty(v); s != "" {
			return s
		}
	}
	return ""
}

func stringOrEmpty(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}
