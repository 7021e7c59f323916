// Command genmock writes a deterministic Krisinformation entity state fixture
// for the file source, the offline commands and the test suites. Records mix
// CAP alerts with Swedish and English info blocks, legacy flat records and a
// malformed entry that normalization must drop. It normalizes the result with
// the card's domain package and reports what the card would see.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/krisinformation_alerts.json -count 8
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

const entityID = "sensor.krisinformation_alerts"

var baseTime = time.Date(2024, time.January, 15, 6, 0, 0, 0, time.UTC)

type template struct {
	event    string
	severity string
	areas    []string
	sv       string
	en       string
}

var templates = []template{
	{event: "Storm", severity: "Severe", areas: []string{"Stockholms län"}, sv: "Varning för storm", en: "Storm warning"},
	{event: "Brand", severity: "Extreme", areas: []string{"Gotlands län", "Kalmar län"}, sv: "Stor brand, håll dörrar och fönster stängda", en: "Large fire, keep doors and windows closed"},
	{event: "Översvämning", severity: "Moderate", areas: []string{"Västra Götalands län"}, sv: "Risk för översvämning", en: "Risk of flooding"},
	{event: "Snö", severity: "Minor", areas: []string{"Norrbottens län"}, sv: "Mycket snö", en: "Heavy snow"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock/krisinformation_alerts.json", "output path for the entity state fixture")
	count := flag.Int("count", 8, "number of well-formed alerts to generate")
	flag.Parse()

	if *count < 0 {
		flag.Usage()
		return fmt.Errorf("count must not be negative")
	}

	// A fixed clock keeps sent times reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	defer domain.SetClock(nil)

	alerts := make([]any, 0, *count+1)
	for i := range *count {
		tpl := templates[i%len(templates)]
		sent := domain.Now().Add(-time.Duration(i) * 90 * time.Minute)
		if i%3 == 2 {
			alerts = append(alerts, legacyAlert(i, tpl, sent))
		} else {
			alerts = append(alerts, capAlert(i, tpl, sent))
		}
	}
	// Nothing to display: normalization drops it.
	alerts = append(alerts, map[string]any{"headline": "", "web": "https://www.krisinformation.se"})

	state := card.EntityState{
		EntityID: entityID,
		State:    fmt.Sprint(*count),
		Attributes: map[string]any{
			"friendly_name":       "Krisinformation",
			card.AlertsAttribute:  alerts,
			"attribution":         "Data provided by Krisinformation.se",
			"unit_of_measurement": "alerts",
		},
		LastUpdated: domain.Now().Format(time.RFC3339),
	}

	if err := writeJSON(*out, state); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d records)", *out, len(alerts))

	printStats(alerts)
	return nil
}

func capAlert(i int, tpl template, sent time.Time) map[string]any {
	areas := make([]any, len(tpl.areas))
	for j, a := range tpl.areas {
		areas[j] = map[string]any{"areaDesc": a}
	}
	info := func(lang, headline string) map[string]any {
		return map[string]any{
			"language":    lang,
			"event":       tpl.event,
			"severity":    tpl.severity,
			"urgency":     "Immediate",
			"certainty":   "Likely",
			"headline":    headline,
			"description": headline + ".",
			"web":         "https://www.krisinformation.se/nyheter",
			"expires":     sent.Add(24 * time.Hour).Format(time.RFC3339),
			"area":        areas,
		}
	}
	return map[string]any{
		"identifier": fmt.Sprintf("krisinformation-%04d", i+1),
		"sender":     "krisinformation.se",
		"sent":       sent.Format(time.RFC3339),
		"msgType":    "Alert",
		"info":       []any{info("sv-SE", tpl.sv), info("en-US", tpl.en)},
	}
}

func legacyAlert(i int, tpl template, sent time.Time) map[string]any {
	areas := make([]any, len(tpl.areas))
	for j, a := range tpl.areas {
		areas[j] = a
	}
	return map[string]any{
		"event":       tpl.event,
		"severity":    tpl.severity,
		"areas":       areas,
		"headline":    tpl.sv,
		"description": fmt.Sprintf("%s (meddelande %d).", tpl.sv, i+1),
		// Legacy records carry zone-less local timestamps.
		"published": sent.Format("2006-01-02T15:04:05"),
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(alerts []any) {
	raw := domain.RawAlerts(alerts)
	for _, lang := range []string{"sv", "en"} {
		normalized := domain.Normalize(raw, lang)
		fmt.Printf("\nLanguage %q: %d normalized, %d dropped\n", lang, len(normalized), len(raw)-len(normalized))
		for _, g := range domain.GroupAlerts(normalized, domain.GroupSeverity) {
			fmt.Printf("  %-10s %d\n", g.Key, len(g.Alerts))
		}
		fmt.Printf("  fingerprint %s\n", domain.Fingerprint(normalized))
	}
}
