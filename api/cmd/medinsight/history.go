package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"medinsight/api/internal/output"
	"medinsight/api/internal/store"
)

var (
	historyLimit int
	historyStats bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored analyses from DATABASE_URL",
	Long: `Print the most recent stored analyses, or aggregate counts with --stats.

Examples:
  medinsight history --limit 5
  medinsight history --stats -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		cfg, log, err := loadConfig(false)
		if err != nil {
			return err
		}
		defer log.Sync()
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		db, err := store.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		repo := store.NewReportRepo(db)

		if historyStats {
			st, err := repo.Stats(ctx)
			if err != nil {
				return err
			}
			if format == output.Markdown {
				format = output.YAML
			}
			return output.Encode(cmd.OutOrStdout(), format, st)
		}
		recs, err := repo.Recent(ctx, min(max(historyLimit, 1), 100))
		if err != nil {
			return err
		}
		return output.WriteHistory(cmd.OutOrStdout(), format, recs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of records (max 100)")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "print counts by modality and severity")
}
