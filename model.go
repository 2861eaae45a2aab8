package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"car-deal-finder/config"
	"car-deal-finder/services"
	"car-deal-finder/storage"
)

func modelCmd() *cobra.Command {
	var (
		input string
		top   int
	)

	cmd := &cobra.Command{
		Use:   "model",
		Short: "Fit the fair-value model and rank the best deals",
		Long: `Fit the linear and log-linear price models on the canonical table, write the
model report and the deal ranking to OUTPUT_DIR and print the top deals.
With STORAGE_BACKEND set, the scored table is also stored in the database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = cfg.CleanedCSVPath
			}
			if top <= 0 {
				top = cfg.TopDeals
			}
			return runModel(cmd.Context(), input, top)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "cleaned CSV path (default: CLEANED_CSV_PATH)")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "number of deals to print (default: TOP_DEALS)")
	return cmd
}

func runModel(ctx context.Context, input string, top int) error {
	logger.Info("=== Fitting fair-value model ===")

	analysis, err := loadAnalysis(input)
	if err != nil {
		return err
	}

	reportPath, err := services.WriteModelReport(cfg.OutputDir, analysis.Model)
	if err != nil {
		return err
	}
	logger.Info("Model report saved to %s", reportPath)

	deals := analysis.Deals(0)
	dw, err := storage.NewCSVWriter(filepath.Join(cfg.OutputDir, "deal_ranking.csv"))
	if err != nil {
		return err
	}
	defer dw.Close()
	if err := dw.WriteDeals(deals); err != nil {
		return err
	}
	logger.Info("Deal ranking (%d rows) saved to %s", len(deals), dw.Path())

	insights := services.NewInsightService(logger, os.Stdout)
	insights.PrintComparison(analysis.Model.Comparison())
	insights.PrintTopDeals(deals, top)

	return persist(ctx, analysis)
}

// persist stores the scored table in the configured database and reads it
// back as a check.
func persist(ctx context.Context, analysis *services.Analysis) error {
	var (
		store storage.ListingWriter
		err   error
	)
	switch cfg.Backend() {
	case config.StoragePostgres:
		store, err = storage.NewPostgresWriter(ctx, cfg.DSN(), cfg.MaxRetries, logger)
	case config.StorageSQLite:
		store, err = storage.NewSQLiteWriter(cfg.SQLitePath, logger)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Write(analysis.Scored); err != nil {
		return fmt.Errorf("store scored listings: %w", err)
	}
	stored, err := store.FetchAll()
	if err != nil {
		return fmt.Errorf("read back scored listings: %w", err)
	}
	logger.Info("Scored listings stored in %s (table: listings, %d rows)", cfg.Backend(), len(stored))
	return nil
}

func loadAnalysis(input string) (*services.Analysis, error) {
	listings, err := storage.ReadCanonicalCSV(input)
	if err != nil {
		return nil, fmt.Errorf("%w (run \"car-deals clean\" first)", err)
	}
	logger.Info("Loaded %d canonical listings from %s", len(listings), input)

	analysis, err := services.NewAnalysis(logger, listings, services.DefaultComparableWeights())
	if err != nil {
		return nil, err
	}
	dedup, err := services.ReadDedupReport(filepath.Dir(input))
	if err != nil {
		logger.Warn("Dedup report unavailable: %v", err)
	}
	analysis.Dedup = dedup
	return analysis, nil
}
