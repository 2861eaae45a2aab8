package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"car-deal-finder/config"
	"car-deal-finder/services"
)

func searchCmd() *cobra.Command {
	var (
		input string
		n     int
	)

	cmd := &cobra.Command{
		Use:   "search <registration>",
		Short: "Find the cars most similar to one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				input = cfg.CleanedCSVPath
			}
			if n <= 0 {
				n = cfg.TopComparables
			}
			if n > config.MaxComparables {
				return fmt.Errorf("--limit must be at most %d", config.MaxComparables)
			}
			return runSearch(input, args[0], n)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "cleaned CSV path (default: CLEANED_CSV_PATH)")
	cmd.Flags().IntVarP(&n, "limit", "n", 0, "number of comparables (default: TOP_COMPARABLES)")
	return cmd
}

func runSearch(input, registration string, n int) error {
	analysis, err := loadAnalysis(input)
	if err != nil {
		return err
	}

	target, ok := analysis.Listing(registration)
	if !ok {
		return fmt.Errorf("%w: %s", services.ErrListingNotFound, registration)
	}
	comps, err := analysis.Comparables(registration, n)
	if err != nil {
		return err
	}

	services.NewInsightService(logger, os.Stdout).PrintComparables(target, comps)
	return nil
}
