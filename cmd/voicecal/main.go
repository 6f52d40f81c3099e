package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gwi.com/voice-calorie-log/internal/app"
	"gwi.com/voice-calorie-log/internal/config"
	"gwi.com/voice-calorie-log/internal/logging"
)

var (
	// Global flags
	verbose bool
	dbPath  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "voicecal",
	Short: "Log food by voice and keep a running calorie total",
	Long: `voicecal logs what you eat from a spoken or typed sentence such as
"150 grams of apple". Known foods are logged straight away; for an unknown
food you are asked for its calories per 100g once, and it is remembered.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "WARN"
		if verbose {
			level = "DEBUG"
		}
		var err error
		logger, err = logging.New(level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openApp loads the environment and opens the food log.
func openApp() (*app.App, error) {
	cfg, _ := config.Load()
	if dbPath != "" {
		cfg.DatabaseURL = dbPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return app.New(cfg, logger)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file (defaults to DATABASE_URL)")

	listenCmd.Flags().StringVar(&audioPath, "audio", "", "Recorded utterance to transcribe")
	listenCmd.Flags().StringVar(&audioMIME, "mime", "audio/webm", "MIME type of the recording")
	_ = listenCmd.MarkFlagRequired("audio")

	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyStatusCmd)

	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(foodsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(keyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
