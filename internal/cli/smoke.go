package cli

import (
	"fmt"

	"github.com/labtiva/esprobe/internal/config"
	"github.com/labtiva/esprobe/internal/es"
	"github.com/labtiva/esprobe/internal/scenario"
	"github.com/labtiva/esprobe/internal/ui"
	"github.com/spf13/cobra"
)

func newSmokeCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the health, index and document scenarios against each driver",
		Long: `Smoke runs every scenario through the selected driver, or through all
drivers when --driver is empty or "all". Each scenario uses a fresh random
index and removes it afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.session(cmd, streams)
			if err != nil {
				return err
			}

			drivers := config.Drivers
			if g.driver != "" && g.driver != driverAll {
				drivers = []string{g.driver}
			}

			var results []scenario.Result
			for _, driver := range drivers {
				store, err := es.Open(s.cfg.WithDriver(driver), s.opts...)
				if err != nil {
					return err
				}
				runner := scenario.NewRunner(store, s.log.With().Str("driver", driver).Logger())
				results = append(results, runner.RunAll(cmd.Context())...)
				if err := store.Close(); err != nil {
					return fmt.Errorf("closing %s driver: %w", driver, err)
				}
			}

			failed := 0
			if markdown {
				s.out.Markdown(ui.MarkdownReport(results))
				for _, res := range results {
					if !res.Passed() {
						failed++
					}
				}
			} else {
				failed = s.out.Report(results)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the report as a markdown table")
	return cmd
}
