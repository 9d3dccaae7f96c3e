// Command solvectl is the operator CLI: schema migrations and one-off solve jobs.
package main

import (
	"fmt"
	"os"

	"autosolver/internal/platform/config"
	"autosolver/internal/platform/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "solvectl",
	Short: "Operate the daily solver",
	Long:  "solvectl applies database migrations and queues solve jobs outside the schedule.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		return config.AppConfig.Validate()
	},
	SilenceUsage: true,
}

func newLogger() *zap.Logger {
	return logger.Must(logger.Config{Level: config.AppConfig.LogLevel, Format: "console"})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
