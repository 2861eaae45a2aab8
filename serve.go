package main

import (
	"github.com/spf13/cobra"

	"car-deal-finder/httpapi"
)

func serveCmd() *cobra.Command {
	var (
		input string
		port  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve listings, deals and comparables over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = cfg.CleanedCSVPath
			}
			if port <= 0 {
				port = cfg.HTTPPort
			}

			analysis, err := loadAnalysis(input)
			if err != nil {
				return err
			}

			server := httpapi.NewServer(analysis, logger.Zerolog(), httpapi.Options{
				Host:            cfg.HTTPHost,
				Port:            port,
				DealLimit:       cfg.TopDeals,
				ComparableLimit: cfg.TopComparables,
			})
			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "cleaned CSV path (default: CLEANED_CSV_PATH)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: HTTP_PORT)")
	return cmd
}
