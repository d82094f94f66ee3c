package cli

import (
	"github.com/spf13/cobra"

	"github.com/PepeHerrera14/final-adquisicion/internal/config"
)

func newAllCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run crawl, pitstops and merge in sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runCrawl(cmd, cfg); err != nil {
				return err
			}
			if err := runPitStops(cmd, cfg); err != nil {
				return err
			}
			return runMerge(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.WikiURL, "wiki-url", cfg.WikiURL, "encyclopedia base URL")
	cmd.Flags().StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "also export the merged table to this SQLite file")
	addAPIFlags(cmd, cfg)
	return cmd
}
