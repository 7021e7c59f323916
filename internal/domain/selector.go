package domain

import (
	"cmp"
	"slices"
	"strings"
)

// SeverityRank orders CAP severities for sorting and grouping:
// extreme 4, severe 3, moderate 2, minor 1, anything else 0.
func SeverityRank(severity string) int {
	switch strings.ToLower(severity) {
	case "extreme":
		return 4
	case "severe":
		return 3
	case "moderate":
		return 2
	case "minor":
		return 1
	default:
		return 0
	}
}

// Select applies the severity and area filters, orders the survivors and
// truncates to the item cap. The input slice is not modified.
func Select(alerts []Alert, sel Selection) []Alert {
	severities := lowerAll(sel.Severities)
	areas := lowerAll(sel.Areas)

	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if matchesSeverity(a, severities) && matchesArea(a, areas) {
			out = append(out, a)
		}
	}

	slices.SortStableFunc(out, comparator(sel.Order))

	if sel.MaxItems > 0 && len(out) > sel.MaxItems {
		out = out[:sel.MaxItems]
	}
	return out
}

func matchesSeverity(a Alert, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	return slices.Contains(filter, strings.ToLower(a.Severity))
}

// matchesArea is a substring match so a token like "stockholm" selects
// "Stockholms län".
func matchesArea(a Alert, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	area := strings.ToLower(a.Area)
	for _, token := range filter {
		if strings.Contains(area, token) {
			return true
		}
	}
	return false
}

func comparator(order SortOrder) func(a, b Alert) int {
	return func(a, b Alert) int {
		switch order {
		case SortSeverityThenTime:
			if c := cmp.Compare(SeverityRank(b.Severity), SeverityRank(a.Severity)); c != 0 {
				return c
			}
		case SortTypeThenTime:
			if c := strings.Compare(strings.ToLower(a.Event), strings.ToLower(b.Event)); c != 0 {
				return c
			}
		}
		// Newest first.
		return cmp.Compare(b.Timestamp(), a.Timestamp())
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
