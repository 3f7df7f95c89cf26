package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"songrab/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "songrab",
	Short: "songrab downloads tracks from a streaming service as flac or mp3.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(logLevel),
			OutputPath: os.Getenv("LOG_PATH"),
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
