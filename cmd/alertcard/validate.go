package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-alert-card/internal/adapter/file"
	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

var errValidationFailed = errors.New("validation failed")

// fallbackEntity names the fixture's entity when the card config is unusable.
const fallbackEntity = "sensor.krisinformation_alerts"

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	var (
		cardPath string
		fixture  string
		language string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a card config and an alert fixture end to end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, cardPath, fixture, language)
		},
	}
	cmd.Flags().StringVarP(&cardPath, "card", "c", defaultCardPath, "card config YAML")
	cmd.Flags().StringVarP(&fixture, "fixture", "f", defaultFixturePath, "alert fixture JSON")
	cmd.Flags().StringVar(&language, "lang", "sv", "host language")
	return cmd
}

func runValidate(cmd *cobra.Command, cardPath, fixture, language string) error {
	cmd.Println("=== Alert Card Validation ===")
	cmd.Println()

	cfgPhase := &phase{name: "Card config"}
	cfg, err := loadCardConfig(cardPath, newRegistry())
	if err != nil {
		cfgPhase.errorf("%v", err)
	}

	fixturePhase := &phase{name: "Fixture decoding"}
	entity := cfg.Entity
	if entity == "" {
		entity = fallbackEntity
	}
	state, err := file.Load(fixture, entity)
	if err != nil {
		fixturePhase.errorf("%v", err)
	}
	attr := state.Attributes[card.AlertsAttribute]
	if err == nil {
		if _, ok := attr.([]any); !ok {
			fixturePhase.errorf("attribute %q is %T, want a list", card.AlertsAttribute, attr)
		}
	}

	raw := domain.RawAlerts(attr)
	alerts := domain.Normalize(raw, strings.ToLower(language))

	phases := []*phase{
		cfgPhase,
		fixturePhase,
		validateNormalization(raw, alerts),
		validateSelection(alerts, cfg),
		validateFingerprint(raw, alerts, language),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		cmd.Printf("  %-32s %s\n", p.name, status)
	}

	cmd.Println()
	cmd.Printf("Alerts: %d entries, %d objects, %d normalized, %d dropped\n",
		entryCount(attr), len(raw), len(alerts), len(raw)-len(alerts))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		cmd.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			cmd.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if !allPassed {
		cmd.Println("\nValidation FAILED.")
		return errValidationFailed
	}
	cmd.Println("\nAll validations passed.")
	return nil
}

func entryCount(attr any) int {
	list, _ := attr.([]any)
	return len(list)
}

// validateNormalization checks that every kept alert has a severity and that
// its timestamps parse.
func validateNormalization(raw []domain.RawAlert, alerts []domain.Alert) *phase {
	p := &phase{name: "Normalization"}
	if len(alerts) > len(raw) {
		p.errorf("normalized %d alerts from %d records", len(alerts), len(raw))
	}
	for i, a := range alerts {
		if a.Severity == "" {
			p.errorf("alert %d: empty severity", i)
		}
		if a.Sent != "" {
			if _, ok := domain.ParseTimestamp(a.Sent); !ok {
				p.errorf("alert %d: sent %q does not parse", i, a.Sent)
			}
		}
		if a.Published != "" {
			if _, ok := domain.ParseTimestamp(a.Published); !ok {
				p.errorf("alert %d: published %q does not parse", i, a.Published)
			}
		}
	}
	return p
}

// validateSelection checks that selecting twice changes nothing, that the
// cap holds and that grouping keeps every alert.
func validateSelection(alerts []domain.Alert, cfg card.Config) *phase {
	p := &phase{name: "Selection and grouping"}
	sel := cfg.Selection()

	once := domain.Select(alerts, sel)
	twice := domain.Select(once, sel)
	if diff := cmp.Diff(once, twice); diff != "" {
		p.errorf("selection is not idempotent (-once +twice):\n%s", diff)
	}
	if sel.MaxItems > 0 && len(once) > sel.MaxItems {
		p.errorf("selected %d alerts, max_items is %d", len(once), sel.MaxItems)
	}

	grouped := 0
	for _, g := range domain.GroupAlerts(once, cfg.GroupBy) {
		if len(g.Alerts) == 0 && g.Key != "" {
			p.errorf("group %q is empty", g.Key)
		}
		grouped += len(g.Alerts)
	}
	if grouped != len(once) {
		p.errorf("groups hold %d alerts, selection has %d", grouped, len(once))
	}
	return p
}

// validateFingerprint checks that normalizing the same input again yields
// the same fingerprint.
func validateFingerprint(raw []domain.RawAlert, alerts []domain.Alert, language string) *phase {
	p := &phase{name: "Fingerprint stability"}
	again := domain.Normalize(raw, strings.ToLower(language))
	if diff := cmp.Diff(alerts, again); diff != "" {
		p.errorf("normalization is not deterministic (-first +second):\n%s", diff)
	}
	if a, b := domain.Fingerprint(alerts), domain.Fingerprint(again); a != b {
		p.errorf("fingerprint changed between runs: %s != %s", a, b)
	}
	return p
}
