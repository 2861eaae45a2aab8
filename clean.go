package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"car-deal-finder/config"
	"car-deal-finder/services"
	"car-deal-finder/storage"
)

func cleanCmd() *cobra.Command {
	var (
		manifest string
		policy   string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Merge the scraped sources into the canonical table",
		Long: `Load every source listed in the manifest, map them onto the common columns,
drop duplicate registrations and write the canonical CSV used by "model".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if manifest == "" {
				manifest = cfg.SourcesManifest
			}
			if output == "" {
				output = cfg.CleanedCSVPath
			}
			dedup := cfg.Policy()
			if policy != "" {
				p, err := services.ParseDedupPolicy(policy)
				if err != nil {
					return err
				}
				dedup = p
			}
			return runClean(manifest, dedup, output)
		},
	}

	cmd.Flags().StringVar(&manifest, "sources", "", "sources manifest (default: built-in manifest or SOURCES_MANIFEST)")
	cmd.Flags().StringVar(&policy, "policy", "", "dedup policy: first or priority (default: DEDUP_POLICY)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "cleaned CSV path (default: CLEANED_CSV_PATH)")
	return cmd
}

func runClean(manifest string, policy services.DedupPolicy, output string) error {
	logger.Info("=== Cleaning scraped listings ===")

	profiles, err := config.LoadSources(manifest)
	if err != nil {
		return err
	}
	files := make([]storage.SourceFile, 0, len(profiles))
	for _, p := range profiles {
		files = append(files, storage.SourceFile{Source: p.Source, Path: p.Path})
	}

	tables, err := storage.ReadSources(files, cfg.MaxConcurrency, logger)
	if err != nil {
		return err
	}

	cleaner := services.NewCleaner(logger, cfg.AgeReferenceYear(), cfg.EngineBands())
	result, err := services.NewReconciler(logger, profiles, cleaner).Reconcile(tables, policy)
	if err != nil {
		return err
	}
	if len(result.Listings) == 0 {
		return fmt.Errorf("all listings were dropped during cleaning")
	}

	insights := services.NewInsightService(logger, os.Stdout)
	insights.PrintDedup(result.Report)
	insights.PrintSummary("CLEANED DATASET", insights.Summarize(result.Listings))

	w, err := storage.NewCSVWriter(output)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteCanonical(result.Listings); err != nil {
		return err
	}

	reportPath, err := services.WriteDedupReport(filepath.Dir(output), result.Report)
	if err != nil {
		return err
	}

	logger.Info("Cleaned dataset: %d listings saved to %s (dedup report: %s)", len(result.Listings), w.Path(), reportPath)
	return nil
}
