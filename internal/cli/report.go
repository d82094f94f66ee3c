package cli

import (
	"github.com/spf13/cobra"

	"github.com/PepeHerrera14/final-adquisicion/internal/config"
	"github.com/PepeHerrera14/final-adquisicion/pkg/report"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

func newReportCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize finishing positions against pit stops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			merged, err := table.ReadFile(cfg.OutputPath())
			if err != nil {
				return err
			}
			summary, err := report.Analyze(merged, cfg.Report())
			if err != nil {
				return err
			}
			report.Render(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.ReportSeasons, "report-seasons", cfg.ReportSeasons, "restrict the report to these seasons")
	cmd.Flags().StringSliceVar(&cfg.Drivers, "driver", cfg.Drivers, "restrict the report to these drivers (repeatable)")
	return cmd
}
