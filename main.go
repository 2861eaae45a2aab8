package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"car-deal-finder/config"
	"car-deal-finder/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	rootCmd = &cobra.Command{
		Use:   "car-deals",
		Short: "Used Volvo XC60 deal finder",
		Long: `car-deals merges scraped XC60 listings from several dealer sites into one
canonical table, fits a fair-value price model and ranks the listings that are
priced furthest below it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initApp,
	}
)

func init() {
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(modelCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(serveCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if logger != nil {
			logger.Error("%v", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func initApp(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	l, err := utils.NewLoggerFor(loaded.Environment, loaded.LogLevel)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	return nil
}
