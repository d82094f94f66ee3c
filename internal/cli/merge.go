package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PepeHerrera14/final-adquisicion/internal/config"
	"github.com/PepeHerrera14/final-adquisicion/pkg/reconcile"
	"github.com/PepeHerrera14/final-adquisicion/pkg/store"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

// SQLite table names of the export.
const (
	mergedTable   = "merged"
	manifestTable = "manifest"
)

func newMergeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Join race classifications with pit-stop summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "also export the merged table to this SQLite file")
	return cmd
}

func runMerge(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	result, err := reconcile.Run(ctx, cfg.Reconcile())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows for %d seasons to %s\n",
		result.Rows, len(result.Seasons), result.Output)

	if cfg.SQLitePath == "" {
		return nil
	}
	return exportSQLite(ctx, cfg.SQLitePath, result)
}

func exportSQLite(ctx context.Context, path string, result *reconcile.Result) error {
	merged, err := table.ReadFile(result.Output)
	if err != nil {
		return err
	}

	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ExportTable(ctx, db, mergedTable, merged); err != nil {
		return err
	}
	if err := store.ExportTable(ctx, db, manifestTable, result.Manifest.Table()); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("rows", merged.Len()).Msg("Exported to SQLite")
	return nil
}
