// Command alertcard serves the crisis alert card and offers offline tools
// for rendering, listing and validating alerts from a fixture.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "alertcard",
		Short: "Krisinformation alert card service",
		Long: `alertcard follows a Home Assistant Krisinformation sensor and serves
its alerts as a live dashboard card. Without a subcommand it runs the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newValidateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRegistry returns the card registry with the built-in card registered.
func newRegistry() *card.Registry {
	registry := card.NewRegistry()
	registry.Register(card.Builtin())
	return registry
}

// loadCardConfig reads the card YAML and checks that its type is registered.
func loadCardConfig(path string, registry *card.Registry) (card.Config, error) {
	cfg, err := card.LoadConfig(path)
	if err != nil {
		return card.Config{}, err
	}
	if _, err := registry.Resolve(cfg); err != nil {
		return card.Config{}, fmt.Errorf("card config %s: %w", path, err)
	}
	return cfg, nil
}
