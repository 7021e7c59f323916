package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-alert-card/internal/adapter/file"
	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/domain"
	"github.com/couchcryptid/crisis-alert-card/internal/render"
)

const (
	defaultCardPath    = "card.yaml"
	defaultFixturePath = "data/mock/krisinformation_alerts.json"
)

// offlineFlags are shared by the commands that work from a fixture.
type offlineFlags struct {
	cardPath string
	fixture  string
	language string
	timezone string

	location *time.Location
}

func (f *offlineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.cardPath, "card", "c", defaultCardPath, "card config YAML")
	cmd.Flags().StringVarP(&f.fixture, "fixture", "f", defaultFixturePath, "alert fixture JSON")
	cmd.Flags().StringVar(&f.language, "lang", "sv", "host language")
	cmd.Flags().StringVar(&f.timezone, "tz", "Europe/Stockholm", "display time zone")
}

// load resolves the card config and builds a card fed from the fixture.
func (f *offlineFlags) load() (*card.Card, card.HostState, error) {
	cfg, err := loadCardConfig(f.cardPath, newRegistry())
	if err != nil {
		return nil, card.HostState{}, err
	}
	loc, err := time.LoadLocation(f.timezone)
	if err != nil {
		return nil, card.HostState{}, fmt.Errorf("load time zone: %w", err)
	}
	f.location = loc
	state, err := file.Load(f.fixture, cfg.Entity)
	if err != nil {
		return nil, card.HostState{}, err
	}

	host := card.HostState{
		Language: f.language,
		States:   map[string]card.EntityState{cfg.Entity: state},
	}
	return card.New(cfg, card.WithLocation(loc)), host, nil
}

func newRenderCmd() *cobra.Command {
	var (
		flags  offlineFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the card from a fixture to a standalone HTML page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, host, err := flags.load()
			if err != nil {
				return err
			}
			renderer, err := render.New()
			if err != nil {
				return err
			}

			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer out.Close()

			view := c.Update(host)
			opts := render.PageOptions{GeneratedAt: time.Now().Format(time.RFC1123)}
			if err := renderer.Page(out, view, opts); err != nil {
				return err
			}
			cmd.Printf("Wrote %s (%d alerts)\n", output, len(view.Rows()))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "card.html", "output HTML file")
	return cmd
}

func newListCmd() *cobra.Command {
	var flags offlineFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the alerts the card would show for a fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, host, err := flags.load()
			if err != nil {
				return err
			}
			model := c.Prepare(host)
			cfg := c.Config()
			dates := card.DateFormatter{Style: cfg.DateFormat, Language: host.Language, Location: flags.location}

			label := func(key card.MetaKey) string { return card.Translate(host.Language, string(key)) }

			cmd.Printf("Entity: %s\n", cfg.Entity)
			cmd.Printf("Alerts: %d shown, %d received, %d dropped\n", model.Count, model.Received, model.Dropped())
			if model.Count == 0 {
				cmd.Println(card.Translate(host.Language, "no_alerts"))
				return nil
			}

			for _, g := range model.Groups {
				if cfg.GroupBy != domain.GroupNone {
					cmd.Printf("\n== %s ==\n", g.Key)
				}
				for _, a := range g.Alerts {
					title := a.Headline
					if title == "" {
						title = a.Event
					}
					cmd.Println()
					cmd.Printf("%s [%s]\n", title, a.Severity)
					cmd.Printf("  %s: %s\n", label(card.MetaType), a.Event)
					cmd.Printf("  %s: %s\n", label(card.MetaArea), a.Area)
					if a.Sent != "" {
						cmd.Printf("  %s: %s\n", label(card.MetaSent), dates.Format(a.Sent))
					}
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
