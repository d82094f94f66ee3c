package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PepeHerrera14/final-adquisicion/internal/config"
	"github.com/PepeHerrera14/final-adquisicion/pkg/crawl"
)

func newCrawlCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Download race classifications from the encyclopedia",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.WikiURL, "wiki-url", cfg.WikiURL, "encyclopedia base URL")
	return cmd
}

func runCrawl(cmd *cobra.Command, cfg *config.Config) error {
	crawler := crawl.New(cfg.Crawl(), nil)

	var total crawl.Stats
	for _, year := range seasons(cfg) {
		stats, err := crawler.Season(cmd.Context(), year)
		if err != nil {
			return err
		}
		total.Races += stats.Races
		total.Written += stats.Written
		total.Skipped += stats.Skipped
	}

	log.Info().
		Int("races", total.Races).
		Int("written", total.Written).
		Int("skipped", total.Skipped).
		Msg("Crawl complete")
	return nil
}
