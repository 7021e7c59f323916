package domain

import (
	"cmp"
	"slices"
	"strings"
)

// placeholderKey labels groups whose key field is empty.
const placeholderKey = "—"

// GroupAlerts partitions alerts by the requested field. Members keep their
// input order; group keys are ordered by severity rank (highest first) when
// grouping by severity and lexicographically otherwise. GroupNone, and any
// unrecognised mode, yields a single group with an empty key.
func GroupAlerts(alerts []Alert, by GroupBy) []Group {
	keyOf := groupKeyFunc(by)
	if keyOf == nil {
		return []Group{{Alerts: alerts}}
	}

	index := make(map[string]int)
	var groups []Group
	for _, a := range alerts {
		key := keyOf(a)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Alerts = append(groups[i].Alerts, a)
	}

	if by == GroupSeverity {
		slices.SortStableFunc(groups, func(a, b Group) int {
			return cmp.Compare(SeverityRank(b.Key), SeverityRank(a.Key))
		})
	} else {
		slices.SortStableFunc(groups, func(a, b Group) int {
			return strings.Compare(a.Key, b.Key)
		})
	}
	return groups
}

func groupKeyFunc(by GroupBy) func(Alert) string {
	switch by {
	case GroupArea:
		return func(a Alert) string { return orDefault(a.Area, placeholderKey) }
	case GroupSeverity:
		return func(a Alert) string { return orDefault(a.Severity, SeverityUnknown) }
	case GroupType:
		return func(a Alert) string { return orDefault(a.Event, placeholderKey) }
	default:
		return nil
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
