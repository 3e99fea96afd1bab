package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/config"
	"github.com/pable/go-subchurn/internal/logging"
)

var (
	dbPath    string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "subchurn",
	Short: "Subtitle search and player-churn toolkit",
	Long: `Two independent pipelines:

  search / span / shell    rank time-stamped subtitle segments against a
                           natural-language query (semantic + direct + product scores)
  import / features /      turn per-match player records into retention labels,
  train / player           streak features and classifier evaluations`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (default $SUBCHURN_DB or ~/.subchurn/subchurn.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json (default $LOG_FORMAT or text)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(spanCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// setup loads configuration and installs the logger. Flags win over env.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if logFormat == "" {
		logFormat = cfg.LogFormat
	}
	logger = logging.Init(logLevel, logFormat, os.Stderr)
	logger.Debug("configuration loaded", "db", dbPath, "embedder", cfg.EmbeddingBackend)
	return nil
}
